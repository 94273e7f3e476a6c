package recovery

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/BTreeMap/IntakePipe/internal/models"
	"github.com/BTreeMap/IntakePipe/internal/store"
)

func TestClassifyPrecedence(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{"timeout beats network", errors.New("network request timed out"), CategoryNetworkTimeout},
		{"deadline exceeded", fmt.Errorf("calling collaborator: %w", context.DeadlineExceeded), CategoryNetworkTimeout},
		{"connection refused", errors.New("dial tcp 127.0.0.1:5432: connection refused"), CategoryNetworkError},
		{"validation message", errors.New("validation failed for field year"), CategoryValidation},
		{"wrapped validation sentinel", fmt.Errorf("recording point: %w", models.ErrInvalidPainIntensity), CategoryValidation},
		{"openai failure", errors.New("openai: rate limit exceeded"), CategoryAIService},
		{"sql failure", errors.New("sql: database is locked"), CategoryStorage},
		{"redis failure", errors.New("redis: nil"), CategoryStorage},
		{"wrapped session expiry", fmt.Errorf("loading session: %w", models.ErrSessionExpired), CategorySessionExpired},
		{"unknown", errors.New("something inexplicable"), CategorySystem},
		{"nil error", nil, CategorySystem},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if got.Category != tt.want {
				t.Errorf("Classify(%v).Category = %s, want %s", tt.err, got.Category, tt.want)
			}
		})
	}
}

func TestClassificationVerdicts(t *testing.T) {
	tests := []struct {
		category  Category
		severity  Severity
		action    Action
		retryable bool
	}{
		{CategoryNetworkTimeout, SeverityRecoverable, ActionRetry, true},
		{CategoryNetworkError, SeverityRecoverable, ActionRetry, true},
		{CategoryValidation, SeverityRecoverable, ActionRetry, true},
		{CategoryAIService, SeverityDegraded, ActionContinue, false},
		{CategoryStorage, SeverityDegraded, ActionContinue, false},
		{CategorySessionExpired, SeverityRecoverable, ActionRestart, false},
		{CategorySystem, SeverityCritical, ActionContactSupport, false},
	}
	for _, tt := range tests {
		v, ok := verdicts[tt.category]
		if !ok {
			t.Fatalf("no verdict for %s", tt.category)
		}
		if v.Severity != tt.severity || v.Action != tt.action || v.Retryable != tt.retryable {
			t.Errorf("%s: got (%s, %s, %v), want (%s, %s, %v)",
				tt.category, v.Severity, v.Action, v.Retryable, tt.severity, tt.action, tt.retryable)
		}
		if v.Message == "" || v.MessageUrdu == "" {
			t.Errorf("%s: verdict must carry a bilingual message", tt.category)
		}
	}
}

func TestOnlyCriticalSkipsSnapshot(t *testing.T) {
	for category, v := range verdicts {
		want := category != CategorySystem
		if v.Snapshottable() != want {
			t.Errorf("%s: Snapshottable() = %v, want %v", category, v.Snapshottable(), want)
		}
	}
}

func testSession(patientID string) *models.IntakeSession {
	now := time.Now().UTC()
	return &models.IntakeSession{
		PatientID: patientID,
		Phase:     models.PhaseBodyMap,
		Encounter: &models.Encounter{
			ID:        "enc_recovery_test",
			PatientID: patientID,
			Status:    models.EncounterStatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		},
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(models.SessionTTL),
	}
}

func TestHandleSnapshotsRecoverableFailures(t *testing.T) {
	st := store.NewInMemoryStore()
	svc := NewService(st)
	sess := testSession("p1")

	c := svc.Handle(errors.New("request timed out"), sess)
	if c.Category != CategoryNetworkTimeout {
		t.Fatalf("category = %s", c.Category)
	}
	snap, err := st.GetSnapshot("p1")
	if err != nil {
		t.Fatalf("recoverable failure must leave a snapshot: %v", err)
	}
	if snap.Reason != string(CategoryNetworkTimeout) {
		t.Errorf("snapshot reason = %q", snap.Reason)
	}
	if snap.Session.Phase != models.PhaseBodyMap {
		t.Errorf("snapshot phase = %s", snap.Session.Phase)
	}
}

func TestHandleCriticalLeavesNoSnapshot(t *testing.T) {
	st := store.NewInMemoryStore()
	svc := NewService(st)

	c := svc.Handle(errors.New("something inexplicable"), testSession("p1"))
	if c.Severity != SeverityCritical {
		t.Fatalf("severity = %s", c.Severity)
	}
	if _, err := st.GetSnapshot("p1"); !errors.Is(err, models.ErrSnapshotNotFound) {
		t.Errorf("critical failure must not snapshot, got %v", err)
	}
}

func TestRestoreWithinWindow(t *testing.T) {
	st := store.NewInMemoryStore()
	svc := NewService(st)
	sess := testSession("p1")

	if err := svc.Snapshot(sess, "NETWORK_ERROR"); err != nil {
		t.Fatal(err)
	}
	restored, err := svc.Restore("p1")
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.Phase != models.PhaseBodyMap || restored.Encounter.ID != "enc_recovery_test" {
		t.Errorf("restored session does not match: %+v", restored)
	}

	// The restored copy is independent of the stored one.
	restored.Phase = models.PhaseSummary
	again, err := svc.Restore("p1")
	if err != nil {
		t.Fatal(err)
	}
	if again.Phase != models.PhaseBodyMap {
		t.Error("mutating a restored session must not affect the stored snapshot")
	}
}

func TestExpiredSnapshotIsNeverRestored(t *testing.T) {
	st := store.NewInMemoryStore()
	svc := NewService(st)
	sess := testSession("p1")

	if err := svc.Snapshot(sess, "NETWORK_ERROR"); err != nil {
		t.Fatal(err)
	}
	// Snapshot is present but one minute past the window.
	svc.now = func() time.Time { return time.Now().Add(models.SnapshotTTL + time.Minute) }

	if _, err := svc.Restore("p1"); !errors.Is(err, models.ErrSnapshotNotFound) {
		t.Fatalf("expired snapshot must not be restored, got %v", err)
	}
	// And it has been deleted, not merely skipped.
	if _, err := st.GetSnapshot("p1"); !errors.Is(err, models.ErrSnapshotNotFound) {
		t.Errorf("expired snapshot must be deleted on lookup, got %v", err)
	}
}

func TestRestoreMissingSnapshot(t *testing.T) {
	svc := NewService(store.NewInMemoryStore())
	if _, err := svc.Restore("nobody"); !errors.Is(err, models.ErrSnapshotNotFound) {
		t.Errorf("got %v, want ErrSnapshotNotFound", err)
	}
}

func TestDiscardIsIdempotent(t *testing.T) {
	st := store.NewInMemoryStore()
	svc := NewService(st)

	if err := svc.Snapshot(testSession("p1"), "STORAGE_ERROR"); err != nil {
		t.Fatal(err)
	}
	if err := svc.Discard("p1"); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if err := svc.Discard("p1"); err != nil {
		t.Fatalf("second Discard: %v", err)
	}
}
