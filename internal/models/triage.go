// Package models defines the screening and triage output structures.
package models

import "time"

// BinaryAnswer is a strictly binary checkpoint response. Free text must be
// normalized to one of these or rejected; there is no silent default.
type BinaryAnswer string

const (
	AnswerYes BinaryAnswer = "YES"
	AnswerNo  BinaryAnswer = "NO"
)

// CheckpointAnswer records one answered emergency checkpoint.
type CheckpointAnswer struct {
	CheckpointID string       `json:"checkpoint_id"`
	Answer       BinaryAnswer `json:"answer"`
	AnsweredAt   time.Time    `json:"answered_at"`
}

// EmergencyProtocol is the canonical guidance selected by a positive checkpoint.
type EmergencyProtocol struct {
	Message          string `json:"message"`
	MessageUrdu      string `json:"message_ur"`
	EmergencyContact string `json:"emergency_contact"` // e.g. "call_1122"
}

// ScreeningResult is the outcome of the emergency screening state machine.
type ScreeningResult struct {
	AnyPositive        bool               `json:"anyPositive"`
	FiredCheckpoint    string             `json:"firedCheckpoint,omitempty"`
	RecommendedAction  string             `json:"recommendedAction,omitempty"`
	Protocol           *EmergencyProtocol `json:"protocol,omitempty"`
	Recorded           []CheckpointAnswer `json:"recorded,omitempty"`
	ScreeningCompleted bool               `json:"screeningCompleted"`
}

// UrgencyLevel is one of four ordered severities.
type UrgencyLevel string

const (
	UrgencyEmergency  UrgencyLevel = "emergency"
	UrgencyUrgent     UrgencyLevel = "urgent"
	UrgencySemiUrgent UrgencyLevel = "semi-urgent"
	UrgencyRoutine    UrgencyLevel = "routine"
)

// UrgencyRank returns the comparable severity rank of an urgency level.
// Unknown or empty levels rank zero.
func UrgencyRank(u UrgencyLevel) int {
	switch u {
	case UrgencyEmergency:
		return 4
	case UrgencyUrgent:
		return 3
	case UrgencySemiUrgent:
		return 2
	case UrgencyRoutine:
		return 1
	default:
		return 0
	}
}

// Probability is a coarse likelihood bucket for a differential entry.
type Probability string

const (
	ProbabilityHigh     Probability = "high"
	ProbabilityModerate Probability = "moderate"
	ProbabilityLow      Probability = "low"
	ProbabilityConsider Probability = "consider"
)

// ProbabilityRank returns the comparable rank of a probability bucket.
// The consider bucket deliberately ranks below low but above nothing.
func ProbabilityRank(p Probability) float64 {
	switch p {
	case ProbabilityHigh:
		return 3
	case ProbabilityModerate:
		return 2
	case ProbabilityLow:
		return 1
	case ProbabilityConsider:
		return 0.5
	default:
		return 0
	}
}

// Differential is one ranked differential-diagnosis entry. The engine never
// asserts a confirmed diagnosis; entries are review material for a clinician.
type Differential struct {
	Condition   string       `json:"condition"`
	Probability Probability  `json:"probability"`
	Supporting  []string     `json:"supporting,omitempty"`
	Contra      []string     `json:"contra,omitempty"`
	Urgency     UrgencyLevel `json:"urgency,omitempty"`
}

// RedFlag is a finding that mandates an escalation action regardless of score.
type RedFlag struct {
	Flag         string `json:"flag"`
	Significance string `json:"significance"`
	Action       string `json:"action"`
}

// Recommendation is one prioritized next action for the patient.
type Recommendation struct {
	Priority int    `json:"priority"` // 1 = primary action, 4 = safety net
	Text     string `json:"text"`
	TextUrdu string `json:"text_ur"`
}

// NextStep is one entry of the care-pathway list derived from the triage outcome.
type NextStep struct {
	Step   string `json:"step"`
	Reason string `json:"reason,omitempty"`
}

// TriageResult is the output of the clinical decision engine for one
// completed encounter. Produced once; never mutated, only superseded by a
// fresh computation on re-triage.
type TriageResult struct {
	Urgency         UrgencyLevel     `json:"urgency"`
	Score           int              `json:"score"`
	Message         string           `json:"message"`
	MessageUrdu     string           `json:"message_ur"`
	Timeframe       string           `json:"timeframe"`
	Factors         []string         `json:"factors,omitempty"`
	Differentials   []Differential   `json:"differentials,omitempty"`
	RedFlags        []RedFlag        `json:"red_flags,omitempty"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
	NextSteps       []NextStep       `json:"next_steps,omitempty"`
	ComputedAt      time.Time        `json:"computed_at"`
}
