package store

import (
	"sync"
	"time"

	"github.com/BTreeMap/IntakePipe/internal/models"
)

// InMemoryStore keeps all records in process memory. It backs tests and
// ephemeral single-process deployments; nothing survives a restart.
type InMemoryStore struct {
	mu         sync.RWMutex
	sessions   map[string]*models.IntakeSession
	encounters map[string]*models.Encounter
	accounts   map[string]*models.PatientAccount
	snapshots  map[string]*models.StateSnapshot
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions:   make(map[string]*models.IntakeSession),
		encounters: make(map[string]*models.Encounter),
		accounts:   make(map[string]*models.PatientAccount),
		snapshots:  make(map[string]*models.StateSnapshot),
	}
}

func (s *InMemoryStore) SaveSession(session *models.IntakeSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.PatientID] = session.Clone()
	return nil
}

func (s *InMemoryStore) GetSession(patientID string) (*models.IntakeSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[patientID]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	return session.Clone(), nil
}

func (s *InMemoryStore) DeleteSession(patientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, patientID)
	return nil
}

func (s *InMemoryStore) DeleteExpiredSessions() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	n := 0
	for id, session := range s.sessions {
		if session.Expired(now) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

func (s *InMemoryStore) SaveEncounter(enc *models.Encounter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *enc
	s.encounters[enc.ID] = &copied
	return nil
}

func (s *InMemoryStore) GetEncounter(id string) (*models.Encounter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	enc, ok := s.encounters[id]
	if !ok {
		return nil, models.ErrEncounterNotFound
	}
	copied := *enc
	return &copied, nil
}

func (s *InMemoryStore) ListEncounters(patientID string) ([]*models.Encounter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Encounter
	for _, enc := range s.encounters {
		if enc.PatientID == patientID {
			copied := *enc
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *InMemoryStore) SaveAccount(account *models.PatientAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *account
	s.accounts[account.PatientID] = &copied
	return nil
}

func (s *InMemoryStore) GetAccount(patientID string) (*models.PatientAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[patientID]
	if !ok {
		return nil, models.ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

func (s *InMemoryStore) SaveSnapshot(snap *models.StateSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *snap
	s.snapshots[snap.PatientID] = &copied
	return nil
}

func (s *InMemoryStore) GetSnapshot(patientID string) (*models.StateSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[patientID]
	if !ok {
		return nil, models.ErrSnapshotNotFound
	}
	copied := *snap
	return &copied, nil
}

func (s *InMemoryStore) DeleteSnapshot(patientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, patientID)
	return nil
}

func (s *InMemoryStore) DeleteExpiredSnapshots() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	n := 0
	for id, snap := range s.snapshots {
		if snap.Expired(now) {
			delete(s.snapshots, id)
			n++
		}
	}
	return n, nil
}

func (s *InMemoryStore) Close() error {
	return nil
}
