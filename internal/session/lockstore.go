// Package session owns cross-tab coordination for a patient's active intake:
// the Redis lock lease, its heartbeat, takeover detection, and durable
// session persistence.
package session

import (
	"context"
	"errors"

	"github.com/BTreeMap/IntakePipe/internal/models"
)

var (
	// ErrLockNotFound indicates no lease record exists for the patient.
	ErrLockNotFound = errors.New("lock not found")
	// ErrLockLost indicates the lease no longer names this tab; another tab
	// took over or the record expired.
	ErrLockLost = errors.New("lock lost to another tab")
)

// LockEventType classifies a change broadcast on a patient's lock channel.
type LockEventType string

const (
	// LockEventAcquired is published when a tab takes the lease, including takeovers.
	LockEventAcquired LockEventType = "acquired"
	// LockEventReleased is published when the holding tab clears the lease.
	LockEventReleased LockEventType = "released"
)

// LockEvent is the pub/sub payload other tabs observe on the lock channel.
type LockEvent struct {
	Type      LockEventType `json:"type"`
	PatientID string        `json:"patient_id"`
	TabID     string        `json:"tab_id"`
}

// LockStore is the lease storage the LockManager drives. The Redis
// implementation is the production one; the contract exists so tests and the
// orchestrator depend on behavior, not on a client type.
type LockStore interface {
	// TryAcquire writes the lease only if no record exists (compare-and-set).
	// It reports false, without error, when another record is present.
	TryAcquire(ctx context.Context, lock *models.Lock) (bool, error)

	// Get returns the current lease, or ErrLockNotFound.
	Get(ctx context.Context, patientID string) (*models.Lock, error)

	// Overwrite replaces the lease unconditionally. Callers use it only after
	// deciding a takeover is legitimate (stale holder or same tab).
	Overwrite(ctx context.Context, lock *models.Lock) error

	// Refresh rewrites the lease timestamp only while the record still names
	// the given tab. Returns ErrLockLost when it does not.
	Refresh(ctx context.Context, lock *models.Lock) error

	// ReleaseIfOwner deletes the lease only while the record still names the
	// given tab. It reports whether a record was deleted.
	ReleaseIfOwner(ctx context.Context, patientID, tabID string) (bool, error)

	// Publish broadcasts a lock change to every tab watching the patient.
	Publish(ctx context.Context, event LockEvent) error

	// Watch subscribes to the patient's lock channel. The returned channel
	// closes when ctx is cancelled.
	Watch(ctx context.Context, patientID string) (<-chan LockEvent, error)
}
