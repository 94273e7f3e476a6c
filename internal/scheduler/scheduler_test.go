package scheduler

import (
	"testing"
	"time"

	"github.com/BTreeMap/IntakePipe/internal/models"
	"github.com/BTreeMap/IntakePipe/internal/store"
)

func TestSchedulerAddJob(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()
	if err := s.AddJob("* * * * *", func() {}); err != nil {
		t.Errorf("Expected no error adding job, got %v", err)
	}
}

func TestSchedulerRejectsInvalidExpression(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()
	if err := s.AddJob("not a cron spec", func() {}); err == nil {
		t.Error("expected error for invalid cron expression")
	}
}

func TestScheduleMaintenance(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()
	if err := ScheduleMaintenance(s, store.NewInMemoryStore()); err != nil {
		t.Fatalf("ScheduleMaintenance: %v", err)
	}
}

func TestSweepsRemoveExpiredRecords(t *testing.T) {
	st := store.NewInMemoryStore()
	now := time.Now().UTC()

	expired := &models.IntakeSession{
		PatientID: "p-old",
		Phase:     models.PhaseBodyMap,
		Encounter: &models.Encounter{ID: "enc_old", PatientID: "p-old"},
		ExpiresAt: now.Add(-time.Minute),
	}
	live := &models.IntakeSession{
		PatientID: "p-live",
		Phase:     models.PhaseEmergency,
		Encounter: &models.Encounter{ID: "enc_live", PatientID: "p-live"},
		ExpiresAt: now.Add(models.SessionTTL),
	}
	if err := st.SaveSession(expired); err != nil {
		t.Fatal(err)
	}
	if err := st.SaveSession(live); err != nil {
		t.Fatal(err)
	}
	if err := st.SaveSnapshot(&models.StateSnapshot{
		PatientID: "p-old",
		Session:   expired,
		CreatedAt: now.Add(-models.SnapshotTTL - time.Minute),
	}); err != nil {
		t.Fatal(err)
	}

	sweepSessions(st)
	sweepSnapshots(st)

	if _, err := st.GetSession("p-old"); err == nil {
		t.Error("expired session survived the sweep")
	}
	if _, err := st.GetSession("p-live"); err != nil {
		t.Errorf("live session must survive the sweep: %v", err)
	}
	if _, err := st.GetSnapshot("p-old"); err == nil {
		t.Error("expired snapshot survived the sweep")
	}
}
