package session

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/BTreeMap/IntakePipe/internal/models"
	"github.com/BTreeMap/IntakePipe/internal/store"
)

// Manager persists intake sessions to the durable store and applies the
// resume rules: a saved session is only handed back while it is unexpired
// and belongs to the requesting patient; anything else starts fresh.
type Manager struct {
	store store.Store
	now   func() time.Time
}

// NewManager creates a session manager over the given store.
func NewManager(st store.Store) *Manager {
	return &Manager{store: st, now: time.Now}
}

// NewSession builds a fresh session at the start of the flow, with a new
// encounter attached. isFirstTime selects the full baseline later.
func (m *Manager) NewSession(patientID string, isFirstTime bool) *models.IntakeSession {
	now := m.now().UTC()
	return &models.IntakeSession{
		PatientID: patientID,
		Phase:     models.PhaseEmergency,
		Encounter: &models.Encounter{
			ID:        "enc_" + uuid.NewString(),
			PatientID: patientID,
			Status:    models.EncounterStatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		},
		IsFirstTime: isFirstTime,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(models.SessionTTL),
	}
}

// Save stamps the session and writes it through. Every transition calls this,
// so activity keeps pushing the expiry forward.
func (m *Manager) Save(session *models.IntakeSession) error {
	now := m.now().UTC()
	session.UpdatedAt = now
	session.ExpiresAt = now.Add(models.SessionTTL)
	if err := m.store.SaveSession(session); err != nil {
		return fmt.Errorf("failed to persist session for %s: %w", session.PatientID, err)
	}
	return nil
}

// Load returns the saved session for the patient. Expired sessions are
// deleted and reported as models.ErrSessionExpired; a session saved under a
// different patient id is treated as not found.
func (m *Manager) Load(patientID string) (*models.IntakeSession, error) {
	session, err := m.store.GetSession(patientID)
	if err != nil {
		return nil, err
	}
	if session.PatientID != patientID {
		slog.Warn("Manager.Load: stored session names a different patient",
			"requested", patientID, "stored", session.PatientID)
		return nil, models.ErrSessionNotFound
	}
	if session.Expired(m.now()) {
		slog.Info("Manager.Load: session expired, discarding", "patientID", patientID)
		if err := m.store.DeleteSession(patientID); err != nil {
			slog.Warn("Manager.Load: failed to delete expired session", "error", err, "patientID", patientID)
		}
		return nil, models.ErrSessionExpired
	}
	return session, nil
}

// LoadOrNew resumes the saved session when one is valid, otherwise starts a
// fresh one. The second return reports whether an existing session resumed.
func (m *Manager) LoadOrNew(patientID string, isFirstTime bool) (*models.IntakeSession, bool, error) {
	session, err := m.Load(patientID)
	if err == nil {
		return session, true, nil
	}
	if errors.Is(err, models.ErrSessionNotFound) || errors.Is(err, models.ErrSessionExpired) {
		return m.NewSession(patientID, isFirstTime), false, nil
	}
	return nil, false, err
}

// Clear removes the saved session, used on completion and emergency exit.
func (m *Manager) Clear(patientID string) error {
	if err := m.store.DeleteSession(patientID); err != nil {
		return fmt.Errorf("failed to clear session for %s: %w", patientID, err)
	}
	return nil
}
