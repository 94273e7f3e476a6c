// Package models defines the core data structures for IntakePipe.
//
// It includes the Encounter, IntakeSession and Lock records shared across
// modules, plus the API response envelope.
package models

import (
	"errors"
	"time"
)

// Validation constants for input validation
const (
	// MaxComplaintTextLength defines the maximum allowed length for the free-text complaint description
	MaxComplaintTextLength = 2000
	// MinPainIntensity is the lowest valid pain intensity value
	MinPainIntensity = 1
	// MaxPainIntensity is the highest valid pain intensity value
	MaxPainIntensity = 10
	// SessionTTL is how long an intake session stays resumable without activity
	SessionTTL = 30 * time.Minute
	// LockStaleness is the age after which a lock lease is considered abandoned
	LockStaleness = 5 * time.Minute
	// LockHeartbeatInterval is how often a holding tab refreshes its lease
	LockHeartbeatInterval = 30 * time.Second
	// SnapshotTTL is the age after which a recovery snapshot is no longer honored
	SnapshotTTL = time.Hour
)

// Error variables for better error handling and testability
var (
	ErrEmptyPatientID       = errors.New("patient id cannot be empty")
	ErrEmptyTabID           = errors.New("tab id cannot be empty")
	ErrInvalidPainIntensity = errors.New("pain intensity must be between 1 and 10")
	ErrEmptyZoneID          = errors.New("zone id cannot be empty")
	ErrComplaintTextTooLong = errors.New("complaint description exceeds maximum length")
	ErrSessionExpired       = errors.New("session expired")
	ErrSessionNotFound      = errors.New("session not found")
	ErrEncounterNotFound    = errors.New("encounter not found")
	ErrEncounterComplete    = errors.New("encounter is complete and immutable")
	ErrAccountNotFound      = errors.New("patient account not found")
	ErrSnapshotNotFound     = errors.New("recovery snapshot not found")
)

// ComplaintType identifies a presenting complaint category.
type ComplaintType string

const (
	ComplaintPain        ComplaintType = "pain"
	ComplaintFever       ComplaintType = "fever"
	ComplaintBreathing   ComplaintType = "breathing"
	ComplaintDigestive   ComplaintType = "digestive"
	ComplaintInjury      ComplaintType = "injury"
	ComplaintSkin        ComplaintType = "skin"
	ComplaintMentalState ComplaintType = "mental_state"
	ComplaintGeneral     ComplaintType = "general"
)

// IsValidComplaintType checks if the given complaint type is supported.
func IsValidComplaintType(ct ComplaintType) bool {
	switch ct {
	case ComplaintPain, ComplaintFever, ComplaintBreathing, ComplaintDigestive,
		ComplaintInjury, ComplaintSkin, ComplaintMentalState, ComplaintGeneral:
		return true
	default:
		return false
	}
}

// PainPoint records one localized pain report within an encounter.
type PainPoint struct {
	ZoneID    string   `json:"zone_id"`
	Intensity int      `json:"intensity"`           // 1-10
	Radiation []string `json:"radiation,omitempty"` // target zone ids
	Quality   []string `json:"quality,omitempty"`   // e.g. "crushing", "burning"
	Onset     string   `json:"onset,omitempty"`     // "sudden" or "gradual"
	Primary   bool     `json:"primary"`
}

// Validate checks a pain point for structural validity.
func (p *PainPoint) Validate() error {
	if p.ZoneID == "" {
		return ErrEmptyZoneID
	}
	if p.Intensity < MinPainIntensity || p.Intensity > MaxPainIntensity {
		return ErrInvalidPainIntensity
	}
	return nil
}

// EncounterStatus represents the lifecycle state of an encounter.
type EncounterStatus string

const (
	// EncounterStatusActive indicates the encounter is being filled in by the orchestrator.
	EncounterStatusActive EncounterStatus = "active"
	// EncounterStatusComplete indicates the encounter finished intake and is immutable.
	EncounterStatusComplete EncounterStatus = "complete"
	// EncounterStatusEmergencyExit indicates intake halted on a positive screening checkpoint.
	EncounterStatusEmergencyExit EncounterStatus = "emergency_exit"
	// EncounterStatusAbandoned indicates the session expired or was discarded before completion.
	EncounterStatusAbandoned EncounterStatus = "abandoned"
)

// Encounter is the single unit of work for one patient visit.
//
// It is owned exclusively by the active session and mutated only by the
// orchestrator while active. Once marked complete it is immutable and handed
// to the decision engine.
type Encounter struct {
	ID            string            `json:"id"`
	PatientID     string            `json:"patient_id"`
	Status        EncounterStatus   `json:"status"`
	ComplaintType ComplaintType     `json:"complaint_type,omitempty"`
	ComplaintText string            `json:"complaint_text,omitempty"`
	PainPoints    []PainPoint       `json:"pain_points,omitempty"`
	BodyLocation  string            `json:"body_location,omitempty"` // resolved terminal zone id
	Screening     *ScreeningResult  `json:"screening,omitempty"`
	Answers       map[string]string `json:"answers,omitempty"` // keyed by question id
	RedFlags      []string          `json:"red_flags,omitempty"`
	Triage        *TriageResult     `json:"triage,omitempty"`
	ClinicalNote  string            `json:"clinical_note,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty"`
}

// PrimaryPainPoint returns the primary pain point, or the first recorded one
// if none is flagged primary. Returns nil when no pain was recorded.
func (e *Encounter) PrimaryPainPoint() *PainPoint {
	for i := range e.PainPoints {
		if e.PainPoints[i].Primary {
			return &e.PainPoints[i]
		}
	}
	if len(e.PainPoints) > 0 {
		return &e.PainPoints[0]
	}
	return nil
}

// HasLocation reports whether a body location or at least one pain point was recorded.
func (e *Encounter) HasLocation() bool {
	return e.BodyLocation != "" || len(e.PainPoints) > 0
}

// PatientAccount holds long-lived baseline data persisting across encounters.
//
// Written only through an explicit confirmed update, never silently merged
// from encounter answers.
type PatientAccount struct {
	PatientID         string    `json:"patient_id"`
	YearOfBirth       int       `json:"year_of_birth,omitempty"`
	Sex               string    `json:"sex,omitempty"`
	ChronicConditions []string  `json:"chronic_conditions,omitempty"`
	Allergies         []string  `json:"allergies,omitempty"`
	Medications       []string  `json:"medications,omitempty"`
	FamilyHistory     []string  `json:"family_history,omitempty"`
	RiskFlags         []string  `json:"risk_flags,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// HasCondition reports whether the account lists the given chronic condition.
func (a *PatientAccount) HasCondition(name string) bool {
	for _, c := range a.ChronicConditions {
		if c == name {
			return true
		}
	}
	return false
}

// Age returns the patient's age in whole years relative to now, or -1 when
// the year of birth is unknown.
func (a *PatientAccount) Age(now time.Time) int {
	if a.YearOfBirth <= 0 {
		return -1
	}
	return now.Year() - a.YearOfBirth
}

// NavigationStep is one completed step on the session's navigation stack.
type NavigationStep struct {
	StepID   string            `json:"step_id"`
	StepType StepType          `json:"step_type"`
	Data     map[string]string `json:"data,omitempty"`
}

// IntakeSession is the resumable orchestration record for one patient's intake.
type IntakeSession struct {
	PatientID   string           `json:"patient_id"`
	Phase       Phase            `json:"phase"`
	Stack       []NavigationStep `json:"stack,omitempty"`
	Encounter   *Encounter       `json:"encounter,omitempty"`
	IsFirstTime bool             `json:"is_first_time"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	ExpiresAt   time.Time        `json:"expires_at"`
}

// Expired reports whether the session is past its staleness timestamp.
func (s *IntakeSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Clone returns a deep copy of the session. The orchestrator operates on
// snapshots so a rejected transition never leaves partial mutations behind.
func (s *IntakeSession) Clone() *IntakeSession {
	c := *s
	c.Stack = make([]NavigationStep, len(s.Stack))
	copy(c.Stack, s.Stack)
	if s.Encounter != nil {
		enc := *s.Encounter
		enc.PainPoints = append([]PainPoint(nil), s.Encounter.PainPoints...)
		enc.RedFlags = append([]string(nil), s.Encounter.RedFlags...)
		if s.Encounter.Answers != nil {
			enc.Answers = make(map[string]string, len(s.Encounter.Answers))
			for k, v := range s.Encounter.Answers {
				enc.Answers[k] = v
			}
		}
		if s.Encounter.Screening != nil {
			scr := *s.Encounter.Screening
			scr.Recorded = append([]CheckpointAnswer(nil), s.Encounter.Screening.Recorded...)
			enc.Screening = &scr
		}
		c.Encounter = &enc
	}
	return &c
}

// Lock is a short-lived lease claiming one patient's active intake for one tab.
type Lock struct {
	TabID     string    `json:"tab_id"`
	PatientID string    `json:"patient_id"`
	Timestamp time.Time `json:"timestamp"` // acquisition or last heartbeat
}

// Stale reports whether the lease has gone unrefreshed past the staleness window.
func (l *Lock) Stale(now time.Time) bool {
	return now.Sub(l.Timestamp) >= LockStaleness
}

// OwnedBy reports whether the lease belongs to the given tab.
func (l *Lock) OwnedBy(tabID string) bool {
	return l.TabID == tabID
}

// StateSnapshot preserves a patient's intake progress across a recoverable
// failure so the session can be restored without re-asking questions.
type StateSnapshot struct {
	PatientID string         `json:"patient_id"`
	Session   *IntakeSession `json:"session"`
	Reason    string         `json:"reason,omitempty"` // error class that triggered the snapshot
	CreatedAt time.Time      `json:"created_at"`
}

// Expired reports whether the snapshot is older than the recovery window.
func (s *StateSnapshot) Expired(now time.Time) bool {
	return now.Sub(s.CreatedAt) >= SnapshotTTL
}
