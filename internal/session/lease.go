package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/BTreeMap/IntakePipe/internal/models"
)

// AcquireLease runs the acquisition protocol for an arbitrary tab identity:
// compare-and-set first, then takeover of a lease that is stale or already
// owned by the same tab. On refusal the current holder is returned so callers
// can tell the patient which tab owns the intake. A successful acquisition is
// published to watchers.
//
// Server-side callers whose heartbeats arrive over the wire use this directly;
// LockManager wraps it for in-process tabs.
func AcquireLease(ctx context.Context, store LockStore, patientID, tabID string, now time.Time) (bool, *models.Lock, error) {
	if patientID == "" {
		return false, nil, models.ErrEmptyPatientID
	}
	if tabID == "" {
		return false, nil, models.ErrEmptyTabID
	}
	lock := &models.Lock{TabID: tabID, PatientID: patientID, Timestamp: now}

	ok, err := store.TryAcquire(ctx, lock)
	if err != nil {
		return false, nil, err
	}
	if ok {
		publishAcquired(ctx, store, lock)
		return true, lock, nil
	}

	current, err := store.Get(ctx, patientID)
	if errors.Is(err, ErrLockNotFound) {
		// Holder vanished between the CAS and the read; one more CAS attempt.
		ok, err = store.TryAcquire(ctx, lock)
		if err != nil || !ok {
			return ok, nil, err
		}
		publishAcquired(ctx, store, lock)
		return true, lock, nil
	}
	if err != nil {
		return false, nil, err
	}

	if current.OwnedBy(tabID) || current.Stale(now) {
		if err := store.Overwrite(ctx, lock); err != nil {
			return false, nil, err
		}
		slog.Info("AcquireLease: lease taken over",
			"patientID", patientID, "tabID", tabID, "previousTab", current.TabID,
			"stale", current.Stale(now))
		publishAcquired(ctx, store, lock)
		return true, lock, nil
	}

	slog.Debug("AcquireLease: lease held elsewhere",
		"patientID", patientID, "holder", current.TabID)
	return false, current, nil
}

func publishAcquired(ctx context.Context, store LockStore, lock *models.Lock) {
	if err := store.Publish(ctx, LockEvent{
		Type: LockEventAcquired, PatientID: lock.PatientID, TabID: lock.TabID,
	}); err != nil {
		slog.Warn("AcquireLease: publish failed", "error", err, "patientID", lock.PatientID)
	}
}

// ReleaseLease clears the lease if tabID still owns it, publishing the release
// to watchers. It reports whether the lease was actually removed.
func ReleaseLease(ctx context.Context, store LockStore, patientID, tabID string) (bool, error) {
	released, err := store.ReleaseIfOwner(ctx, patientID, tabID)
	if err != nil {
		return false, err
	}
	if released {
		if err := store.Publish(ctx, LockEvent{
			Type: LockEventReleased, PatientID: patientID, TabID: tabID,
		}); err != nil {
			slog.Warn("ReleaseLease: publish failed", "error", err, "patientID", patientID)
		}
	}
	return released, nil
}
