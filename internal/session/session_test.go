package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BTreeMap/IntakePipe/internal/models"
	"github.com/BTreeMap/IntakePipe/internal/store"
)

func setupLockStore(t *testing.T) *RedisLockStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisLockStore(client)
}

func TestTryAcquireIsCompareAndSet(t *testing.T) {
	ls := setupLockStore(t)
	ctx := context.Background()

	ok, err := ls.TryAcquire(ctx, &models.Lock{TabID: "tab_a", PatientID: "p1", Timestamp: time.Now()})
	require.NoError(t, err)
	assert.True(t, ok, "first acquisition must succeed")

	ok, err = ls.TryAcquire(ctx, &models.Lock{TabID: "tab_b", PatientID: "p1", Timestamp: time.Now()})
	require.NoError(t, err)
	assert.False(t, ok, "second acquisition against a live lease must fail")

	current, err := ls.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "tab_a", current.TabID, "losing tab must not overwrite the record")
}

func TestTwoTabsOnlyOneWins(t *testing.T) {
	ls := setupLockStore(t)
	ctx := context.Background()

	mgrA := NewLockManager(ls, "tab_a")
	mgrB := NewLockManager(ls, "tab_b")
	defer mgrA.Release(ctx, "p1")
	defer mgrB.Release(ctx, "p1")

	gotA, err := mgrA.Acquire(ctx, "p1")
	require.NoError(t, err)
	gotB, err := mgrB.Acquire(ctx, "p1")
	require.NoError(t, err)

	assert.True(t, gotA != gotB, "exactly one tab must win")
	assert.True(t, gotA, "first requester wins")
	assert.True(t, mgrA.Held("p1"))
	assert.False(t, mgrB.Held("p1"))
}

func TestSameTabReacquires(t *testing.T) {
	ls := setupLockStore(t)
	ctx := context.Background()
	mgr := NewLockManager(ls, "tab_a")
	defer mgr.Release(ctx, "p1")

	for i := 0; i < 2; i++ {
		ok, err := mgr.Acquire(ctx, "p1")
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d: the owning tab always reacquires", i)
	}
}

func TestStaleLeaseIsTakenOver(t *testing.T) {
	ls := setupLockStore(t)
	ctx := context.Background()

	// A lease whose heartbeat stopped 5 minutes ago.
	stale := &models.Lock{
		TabID:     "tab_dead",
		PatientID: "p1",
		Timestamp: time.Now().Add(-models.LockStaleness),
	}
	require.NoError(t, ls.Overwrite(ctx, stale))

	mgr := NewLockManager(ls, "tab_live")
	defer mgr.Release(ctx, "p1")
	ok, err := mgr.Acquire(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, ok, "a stale lease must be taken over")

	current, err := ls.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "tab_live", current.TabID)
}

func TestFreshLeaseIsNotTakenOver(t *testing.T) {
	ls := setupLockStore(t)
	ctx := context.Background()

	fresh := &models.Lock{
		TabID:     "tab_holder",
		PatientID: "p1",
		Timestamp: time.Now().Add(-models.LockStaleness + 10*time.Second),
	}
	require.NoError(t, ls.Overwrite(ctx, fresh))

	mgr := NewLockManager(ls, "tab_other")
	ok, err := mgr.Acquire(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, ok, "a lease inside the staleness window must be respected")
}

func TestRefreshRequiresOwnership(t *testing.T) {
	ls := setupLockStore(t)
	ctx := context.Background()

	require.NoError(t, ls.Overwrite(ctx, &models.Lock{TabID: "tab_a", PatientID: "p1", Timestamp: time.Now()}))

	err := ls.Refresh(ctx, &models.Lock{TabID: "tab_b", PatientID: "p1", Timestamp: time.Now()})
	assert.ErrorIs(t, err, ErrLockLost, "a non-owner heartbeat must be refused")

	before, err := ls.Get(ctx, "p1")
	require.NoError(t, err)
	later := time.Now().Add(time.Minute)
	require.NoError(t, ls.Refresh(ctx, &models.Lock{TabID: "tab_a", PatientID: "p1", Timestamp: later}))
	after, err := ls.Get(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, after.Timestamp.After(before.Timestamp), "owner refresh must advance the timestamp")
}

func TestRefreshAfterExpiryReportsLost(t *testing.T) {
	ls := setupLockStore(t)
	ctx := context.Background()

	err := ls.Refresh(ctx, &models.Lock{TabID: "tab_a", PatientID: "p1", Timestamp: time.Now()})
	assert.ErrorIs(t, err, ErrLockLost)
}

func TestReleaseOnlyByOwner(t *testing.T) {
	ls := setupLockStore(t)
	ctx := context.Background()

	require.NoError(t, ls.Overwrite(ctx, &models.Lock{TabID: "tab_a", PatientID: "p1", Timestamp: time.Now()}))

	released, err := ls.ReleaseIfOwner(ctx, "p1", "tab_b")
	require.NoError(t, err)
	assert.False(t, released, "non-owner release must be a no-op")
	_, err = ls.Get(ctx, "p1")
	require.NoError(t, err, "record must survive a non-owner release")

	released, err = ls.ReleaseIfOwner(ctx, "p1", "tab_a")
	require.NoError(t, err)
	assert.True(t, released)
	_, err = ls.Get(ctx, "p1")
	assert.ErrorIs(t, err, ErrLockNotFound)
}

func TestWatchReportsTakeover(t *testing.T) {
	ls := setupLockStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mgrA := NewLockManager(ls, "tab_a")
	ok, err := mgrA.Acquire(ctx, "p1")
	require.NoError(t, err)
	require.True(t, ok)

	notes, err := mgrA.Watch(ctx, "p1")
	require.NoError(t, err)

	// Age the lease so another tab may take it.
	stale := &models.Lock{TabID: "tab_a", PatientID: "p1", Timestamp: time.Now().Add(-models.LockStaleness)}
	require.NoError(t, ls.Overwrite(ctx, stale))

	mgrB := NewLockManager(ls, "tab_b")
	defer mgrB.Release(ctx, "p1")
	ok, err = mgrB.Acquire(ctx, "p1")
	require.NoError(t, err)
	require.True(t, ok)

	select {
	case note := <-notes:
		assert.Equal(t, NotificationRevoked, note.Kind)
		assert.NotEmpty(t, note.Message)
		assert.NotEmpty(t, note.MessageUrdu)
	case <-time.After(2 * time.Second):
		t.Fatal("takeover notification never arrived")
	}
	assert.False(t, mgrA.Held("p1"), "revoked tab must drop its held flag")
}

func TestWatchReportsRelease(t *testing.T) {
	ls := setupLockStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mgrA := NewLockManager(ls, "tab_a")
	mgrB := NewLockManager(ls, "tab_b")

	ok, err := mgrA.Acquire(ctx, "p1")
	require.NoError(t, err)
	require.True(t, ok)

	notes, err := mgrB.Watch(ctx, "p1")
	require.NoError(t, err)

	require.NoError(t, mgrA.Release(ctx, "p1"))

	select {
	case note := <-notes:
		assert.Equal(t, NotificationUnlocked, note.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("release notification never arrived")
	}
}

func TestSessionSaveAndResume(t *testing.T) {
	m := NewManager(store.NewInMemoryStore())

	session := m.NewSession("p1", true)
	assert.Equal(t, models.PhaseEmergency, session.Phase)
	require.NotNil(t, session.Encounter)

	session.Phase = models.PhaseBodyMap
	require.NoError(t, m.Save(session))

	resumed, ok, err := m.LoadOrNew("p1", true)
	require.NoError(t, err)
	assert.True(t, ok, "a freshly saved session must resume")
	assert.Equal(t, models.PhaseBodyMap, resumed.Phase)
	assert.Equal(t, session.Encounter.ID, resumed.Encounter.ID)
}

func TestExpiredSessionStartsFresh(t *testing.T) {
	st := store.NewInMemoryStore()
	m := NewManager(st)

	session := m.NewSession("p1", false)
	require.NoError(t, m.Save(session))

	// Simulate the clock passing the session TTL.
	m.now = func() time.Time { return time.Now().Add(models.SessionTTL + time.Minute) }

	_, err := m.Load("p1")
	assert.ErrorIs(t, err, models.ErrSessionExpired)

	// The expired record is gone from the store entirely.
	_, err = st.GetSession("p1")
	assert.ErrorIs(t, err, models.ErrSessionNotFound)

	fresh, resumed, err := m.LoadOrNew("p1", false)
	require.NoError(t, err)
	assert.False(t, resumed)
	assert.Equal(t, models.PhaseEmergency, fresh.Phase)
	assert.NotEqual(t, session.Encounter.ID, fresh.Encounter.ID)
}

// mismatchedStore hands back a session naming a different patient than the
// one asked for, as a corrupted or miskeyed row would.
type mismatchedStore struct {
	store.Store
}

func (s mismatchedStore) GetSession(patientID string) (*models.IntakeSession, error) {
	now := time.Now()
	return &models.IntakeSession{
		PatientID: "someone-else",
		Phase:     models.PhaseSummary,
		CreatedAt: now, UpdatedAt: now, ExpiresAt: now.Add(time.Hour),
	}, nil
}

func TestLoadRejectsForeignPatient(t *testing.T) {
	m := NewManager(mismatchedStore{Store: store.NewInMemoryStore()})

	_, err := m.Load("p1")
	assert.ErrorIs(t, err, models.ErrSessionNotFound)

	fresh, resumed, err := m.LoadOrNew("p1", true)
	require.NoError(t, err)
	assert.False(t, resumed, "a miskeyed session must not resume")
	assert.Equal(t, "p1", fresh.PatientID)
}
