package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/BTreeMap/IntakePipe/internal/models"
	"github.com/BTreeMap/IntakePipe/internal/util"
)

// NotificationKind classifies what a watching tab should surface to the patient.
type NotificationKind string

const (
	// NotificationUnlocked means the holding tab released the lease; this tab may take it.
	NotificationUnlocked NotificationKind = "unlocked"
	// NotificationRevoked means another tab took the lease away from this tab.
	NotificationRevoked NotificationKind = "revoked"
)

// Notification is a patient-facing lock state change.
type Notification struct {
	Kind        NotificationKind `json:"kind"`
	PatientID   string           `json:"patient_id"`
	Message     string           `json:"message"`
	MessageUrdu string           `json:"message_urdu"`
}

const (
	takeoverWarning     = "Your intake was resumed in another tab or window. This tab is now read-only."
	takeoverWarningUrdu = "آپ کا انٹیک کسی اور ٹیب یا ونڈو میں دوبارہ شروع کیا گیا ہے۔ یہ ٹیب اب صرف پڑھنے کے لیے ہے۔"
	unlockedNotice      = "The intake is no longer open elsewhere. You can continue here."
	unlockedNoticeUrdu  = "انٹیک اب کہیں اور کھلا نہیں ہے۔ آپ یہاں جاری رکھ سکتے ہیں۔"
)

// LockManager runs one tab's side of the lock protocol: compare-and-set
// acquisition with stale-holder takeover, a 30-second heartbeat that stops
// itself on takeover, and owner-checked release.
type LockManager struct {
	store LockStore
	tabID string
	now   func() time.Time

	mu         sync.Mutex
	heartbeats map[string]*heartbeat // patientID -> running refresh loop

	// onRevoked, when set, fires once per takeover of a held lease.
	onRevoked func(patientID string)
}

type heartbeat struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewLockManager creates a manager bound to one tab identity. An empty tabID
// mints a fresh one.
func NewLockManager(store LockStore, tabID string) *LockManager {
	if tabID == "" {
		tabID = util.GenerateTabID()
	}
	return &LockManager{
		store:      store,
		tabID:      tabID,
		now:        time.Now,
		heartbeats: make(map[string]*heartbeat),
	}
}

// OnRevoked registers a callback invoked when a held lease is taken over.
// Must be called before Acquire.
func (m *LockManager) OnRevoked(fn func(patientID string)) {
	m.onRevoked = fn
}

// TabID returns the tab identity this manager acquires under.
func (m *LockManager) TabID() string {
	return m.tabID
}

// Acquire claims the patient's intake for this tab. It reports false when
// another tab holds a live lease. A lease that is stale (no heartbeat for
// the staleness window) or already owned by this tab is overwritten.
func (m *LockManager) Acquire(ctx context.Context, patientID string) (bool, error) {
	ok, _, err := AcquireLease(ctx, m.store, patientID, m.tabID, m.now())
	if err != nil || !ok {
		return false, err
	}
	m.startHeartbeat(patientID)
	return true, nil
}

// Held reports whether this tab currently believes it holds the patient's lease.
func (m *LockManager) Held(patientID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.heartbeats[patientID]
	return ok
}

// startHeartbeat launches the refresh loop. An existing loop for the patient
// is stopped first so re-acquisition never doubles up tickers.
func (m *LockManager) startHeartbeat(patientID string) {
	m.stopHeartbeat(patientID)

	ctx, cancel := context.WithCancel(context.Background())
	hb := &heartbeat{cancel: cancel, done: make(chan struct{})}
	m.mu.Lock()
	m.heartbeats[patientID] = hb
	m.mu.Unlock()

	go m.runHeartbeat(ctx, patientID, hb)
}

func (m *LockManager) runHeartbeat(ctx context.Context, patientID string, hb *heartbeat) {
	defer close(hb.done)
	ticker := time.NewTicker(models.LockHeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			lock := &models.Lock{TabID: m.tabID, PatientID: patientID, Timestamp: m.now()}
			err := m.store.Refresh(ctx, lock)
			if errors.Is(err, ErrLockLost) {
				slog.Warn("LockManager.runHeartbeat: lease taken over, stopping",
					"patientID", patientID, "tabID", m.tabID)
				m.dropHeartbeat(patientID, hb)
				if m.onRevoked != nil {
					m.onRevoked(patientID)
				}
				return
			}
			if err != nil {
				// Transient store failure: keep the loop alive, the lease TTL
				// covers the gap until the next tick.
				slog.Warn("LockManager.runHeartbeat: refresh failed",
					"error", err, "patientID", patientID)
			}
		}
	}
}

func (m *LockManager) stopHeartbeat(patientID string) {
	m.mu.Lock()
	hb, ok := m.heartbeats[patientID]
	if ok {
		delete(m.heartbeats, patientID)
	}
	m.mu.Unlock()
	if ok {
		hb.cancel()
		<-hb.done
	}
}

// dropHeartbeat removes the registry entry without waiting on done; used from
// inside the loop itself.
func (m *LockManager) dropHeartbeat(patientID string, hb *heartbeat) {
	m.mu.Lock()
	if cur, ok := m.heartbeats[patientID]; ok && cur == hb {
		delete(m.heartbeats, patientID)
	}
	m.mu.Unlock()
}

// Release clears the lease if this tab still owns it and stops the heartbeat
// either way.
func (m *LockManager) Release(ctx context.Context, patientID string) error {
	m.stopHeartbeat(patientID)
	released, err := ReleaseLease(ctx, m.store, patientID, m.tabID)
	if err != nil {
		return err
	}
	slog.Debug("LockManager.Release", "patientID", patientID, "tabID", m.tabID, "released", released)
	return nil
}

// Watch translates raw lock events into patient-facing notifications for this
// tab: a foreign release means the intake is available here; a foreign
// acquisition while this tab holds the lease means it was taken away.
func (m *LockManager) Watch(ctx context.Context, patientID string) (<-chan Notification, error) {
	events, err := m.store.Watch(ctx, patientID)
	if err != nil {
		return nil, err
	}
	out := make(chan Notification)
	go func() {
		defer close(out)
		for event := range events {
			if event.TabID == m.tabID {
				continue
			}
			var note Notification
			switch event.Type {
			case LockEventReleased:
				note = Notification{
					Kind:        NotificationUnlocked,
					PatientID:   patientID,
					Message:     unlockedNotice,
					MessageUrdu: unlockedNoticeUrdu,
				}
			case LockEventAcquired:
				if !m.Held(patientID) {
					continue
				}
				m.stopHeartbeat(patientID)
				note = Notification{
					Kind:        NotificationRevoked,
					PatientID:   patientID,
					Message:     takeoverWarning,
					MessageUrdu: takeoverWarningUrdu,
				}
			default:
				continue
			}
			select {
			case out <- note:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
