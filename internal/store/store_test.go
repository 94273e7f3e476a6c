package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/BTreeMap/IntakePipe/internal/models"
)

// openStores builds one store per backend so every test runs against both.
func openStores(t *testing.T) map[string]Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "intake.db")
	sqlite, err := NewSQLiteStore(WithDSN(dsn))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })
	return map[string]Store{
		"memory": NewInMemoryStore(),
		"sqlite": sqlite,
	}
}

func sampleSession(patientID string) *models.IntakeSession {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.IntakeSession{
		PatientID: patientID,
		Phase:     models.PhaseBodyMap,
		Stack: []models.NavigationStep{
			{StepID: "emergency", StepType: models.StepEmergency},
			{StepID: "complaint", StepType: models.StepComplaint, Data: map[string]string{"complaint": "pain"}},
		},
		Encounter: &models.Encounter{
			ID:        "enc_1",
			PatientID: patientID,
			Status:    models.EncounterStatusActive,
			PainPoints: []models.PainPoint{
				{ZoneID: "chest.center", Intensity: 7, Primary: true},
			},
			Answers:   map[string]string{"chest.duration": "hours"},
			CreatedAt: now,
			UpdatedAt: now,
		},
		IsFirstTime: true,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(models.SessionTTL),
	}
}

func TestSessionRoundTrip(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.GetSession("p1"); !errors.Is(err, models.ErrSessionNotFound) {
				t.Fatalf("expected ErrSessionNotFound, got %v", err)
			}

			session := sampleSession("p1")
			if err := s.SaveSession(session); err != nil {
				t.Fatalf("SaveSession: %v", err)
			}
			got, err := s.GetSession("p1")
			if err != nil {
				t.Fatalf("GetSession: %v", err)
			}
			if got.Phase != models.PhaseBodyMap {
				t.Errorf("phase = %q, want body_map", got.Phase)
			}
			if len(got.Stack) != 2 || got.Stack[1].Data["complaint"] != "pain" {
				t.Errorf("navigation stack not preserved: %+v", got.Stack)
			}
			if got.Encounter == nil || got.Encounter.Answers["chest.duration"] != "hours" {
				t.Errorf("encounter answers not preserved: %+v", got.Encounter)
			}
			if !got.IsFirstTime {
				t.Error("first-time flag not preserved")
			}

			// Save again under the same patient: a session is an upsert.
			session.Phase = models.PhaseSummary
			if err := s.SaveSession(session); err != nil {
				t.Fatalf("SaveSession update: %v", err)
			}
			got, err = s.GetSession("p1")
			if err != nil {
				t.Fatalf("GetSession after update: %v", err)
			}
			if got.Phase != models.PhaseSummary {
				t.Errorf("phase after update = %q, want summary", got.Phase)
			}

			if err := s.DeleteSession("p1"); err != nil {
				t.Fatalf("DeleteSession: %v", err)
			}
			if _, err := s.GetSession("p1"); !errors.Is(err, models.ErrSessionNotFound) {
				t.Errorf("expected ErrSessionNotFound after delete, got %v", err)
			}
		})
	}
}

func TestDeleteExpiredSessions(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			fresh := sampleSession("fresh")
			expired := sampleSession("expired")
			expired.ExpiresAt = time.Now().UTC().Add(-time.Minute)
			if err := s.SaveSession(fresh); err != nil {
				t.Fatal(err)
			}
			if err := s.SaveSession(expired); err != nil {
				t.Fatal(err)
			}

			n, err := s.DeleteExpiredSessions()
			if err != nil {
				t.Fatalf("DeleteExpiredSessions: %v", err)
			}
			if n != 1 {
				t.Errorf("swept %d sessions, want 1", n)
			}
			if _, err := s.GetSession("fresh"); err != nil {
				t.Errorf("fresh session must survive the sweep: %v", err)
			}
			if _, err := s.GetSession("expired"); !errors.Is(err, models.ErrSessionNotFound) {
				t.Errorf("expired session must be gone, got %v", err)
			}
		})
	}
}

func TestEncounterRoundTrip(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.GetEncounter("missing"); !errors.Is(err, models.ErrEncounterNotFound) {
				t.Fatalf("expected ErrEncounterNotFound, got %v", err)
			}

			now := time.Now().UTC().Truncate(time.Second)
			enc := &models.Encounter{
				ID:            "enc_42",
				PatientID:     "p2",
				Status:        models.EncounterStatusComplete,
				ComplaintType: models.ComplaintPain,
				PainPoints:    []models.PainPoint{{ZoneID: "arm.left.shoulder", Intensity: 4, Primary: true}},
				RedFlags:      []string{"visible-deformity"},
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if err := s.SaveEncounter(enc); err != nil {
				t.Fatalf("SaveEncounter: %v", err)
			}
			got, err := s.GetEncounter("enc_42")
			if err != nil {
				t.Fatalf("GetEncounter: %v", err)
			}
			if got.Status != models.EncounterStatusComplete || len(got.RedFlags) != 1 {
				t.Errorf("encounter not preserved: %+v", got)
			}

			list, err := s.ListEncounters("p2")
			if err != nil {
				t.Fatalf("ListEncounters: %v", err)
			}
			if len(list) != 1 || list[0].ID != "enc_42" {
				t.Errorf("ListEncounters = %+v, want the one saved encounter", list)
			}
			if list, _ := s.ListEncounters("someone-else"); len(list) != 0 {
				t.Errorf("ListEncounters must filter by patient, got %+v", list)
			}
		})
	}
}

func TestAccountRoundTrip(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.GetAccount("p3"); !errors.Is(err, models.ErrAccountNotFound) {
				t.Fatalf("expected ErrAccountNotFound, got %v", err)
			}
			account := &models.PatientAccount{
				PatientID:         "p3",
				YearOfBirth:       1971,
				ChronicConditions: []string{"cardiac", "diabetes"},
				Medications:       []string{"anticoagulant"},
				UpdatedAt:         time.Now().UTC().Truncate(time.Second),
			}
			if err := s.SaveAccount(account); err != nil {
				t.Fatalf("SaveAccount: %v", err)
			}
			got, err := s.GetAccount("p3")
			if err != nil {
				t.Fatalf("GetAccount: %v", err)
			}
			if !got.HasCondition("cardiac") || got.YearOfBirth != 1971 {
				t.Errorf("account not preserved: %+v", got)
			}
		})
	}
}

func TestSnapshotLifecycle(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.GetSnapshot("p4"); !errors.Is(err, models.ErrSnapshotNotFound) {
				t.Fatalf("expected ErrSnapshotNotFound, got %v", err)
			}
			snap := &models.StateSnapshot{
				PatientID: "p4",
				Session:   sampleSession("p4"),
				Reason:    "NETWORK_TIMEOUT",
				CreatedAt: time.Now().UTC().Truncate(time.Second),
			}
			if err := s.SaveSnapshot(snap); err != nil {
				t.Fatalf("SaveSnapshot: %v", err)
			}
			got, err := s.GetSnapshot("p4")
			if err != nil {
				t.Fatalf("GetSnapshot: %v", err)
			}
			if got.Reason != "NETWORK_TIMEOUT" || got.Session == nil {
				t.Errorf("snapshot not preserved: %+v", got)
			}

			// An over-age snapshot is swept.
			old := &models.StateSnapshot{
				PatientID: "p5",
				Session:   sampleSession("p5"),
				CreatedAt: time.Now().UTC().Add(-models.SnapshotTTL - time.Minute),
			}
			if err := s.SaveSnapshot(old); err != nil {
				t.Fatal(err)
			}
			n, err := s.DeleteExpiredSnapshots()
			if err != nil {
				t.Fatalf("DeleteExpiredSnapshots: %v", err)
			}
			if n != 1 {
				t.Errorf("swept %d snapshots, want 1", n)
			}
			if _, err := s.GetSnapshot("p4"); err != nil {
				t.Errorf("recent snapshot must survive the sweep: %v", err)
			}

			if err := s.DeleteSnapshot("p4"); err != nil {
				t.Fatalf("DeleteSnapshot: %v", err)
			}
			if _, err := s.GetSnapshot("p4"); !errors.Is(err, models.ErrSnapshotNotFound) {
				t.Errorf("expected ErrSnapshotNotFound after delete, got %v", err)
			}
		})
	}
}

func TestInMemoryStoreIsolation(t *testing.T) {
	s := NewInMemoryStore()
	session := sampleSession("p6")
	if err := s.SaveSession(session); err != nil {
		t.Fatal(err)
	}
	// Mutating the caller's copy after save must not leak into the store.
	session.Phase = models.PhaseComplete
	session.Encounter.Answers["chest.duration"] = "days"

	got, err := s.GetSession("p6")
	if err != nil {
		t.Fatal(err)
	}
	if got.Phase != models.PhaseBodyMap {
		t.Errorf("stored phase mutated through caller reference: %q", got.Phase)
	}
	if got.Encounter.Answers["chest.duration"] != "hours" {
		t.Error("stored answers mutated through caller reference")
	}
}
