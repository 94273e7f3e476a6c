package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis/v8"

	"github.com/BTreeMap/IntakePipe/internal/models"
)

const (
	lockKeyPrefix     = "lock:"
	lockChannelPrefix = "lock-events:"
)

// RedisLockStore keeps lock leases in Redis. The record TTL equals the
// staleness window so a lease whose tab died simply expires; an overwrite by
// a live tab resets it.
type RedisLockStore struct {
	client *redis.Client
}

// NewRedisLockStore wraps an existing Redis client.
func NewRedisLockStore(client *redis.Client) *RedisLockStore {
	return &RedisLockStore{client: client}
}

func lockKey(patientID string) string {
	return lockKeyPrefix + patientID
}

func lockChannel(patientID string) string {
	return lockChannelPrefix + patientID
}

// TryAcquire writes the lease via SET NX PX, an atomic compare-and-set:
// concurrent acquisitions from two tabs resolve in Redis, not in a local
// read-then-write race.
func (s *RedisLockStore) TryAcquire(ctx context.Context, lock *models.Lock) (bool, error) {
	payload, err := json.Marshal(lock)
	if err != nil {
		return false, fmt.Errorf("failed to marshal lock for %s: %w", lock.PatientID, err)
	}
	ok, err := s.client.SetNX(ctx, lockKey(lock.PatientID), payload, models.LockStaleness).Result()
	if err != nil {
		slog.Error("RedisLockStore.TryAcquire failed", "error", err, "patientID", lock.PatientID)
		return false, fmt.Errorf("failed to acquire lock for %s: %w", lock.PatientID, err)
	}
	slog.Debug("RedisLockStore.TryAcquire", "patientID", lock.PatientID, "tabID", lock.TabID, "acquired", ok)
	return ok, nil
}

func (s *RedisLockStore) Get(ctx context.Context, patientID string) (*models.Lock, error) {
	payload, err := s.client.Get(ctx, lockKey(patientID)).Result()
	if err == redis.Nil {
		return nil, ErrLockNotFound
	}
	if err != nil {
		slog.Error("RedisLockStore.Get failed", "error", err, "patientID", patientID)
		return nil, fmt.Errorf("failed to read lock for %s: %w", patientID, err)
	}
	var lock models.Lock
	if err := json.Unmarshal([]byte(payload), &lock); err != nil {
		return nil, fmt.Errorf("failed to unmarshal lock for %s: %w", patientID, err)
	}
	return &lock, nil
}

func (s *RedisLockStore) Overwrite(ctx context.Context, lock *models.Lock) error {
	payload, err := json.Marshal(lock)
	if err != nil {
		return fmt.Errorf("failed to marshal lock for %s: %w", lock.PatientID, err)
	}
	if err := s.client.Set(ctx, lockKey(lock.PatientID), payload, models.LockStaleness).Err(); err != nil {
		slog.Error("RedisLockStore.Overwrite failed", "error", err, "patientID", lock.PatientID)
		return fmt.Errorf("failed to overwrite lock for %s: %w", lock.PatientID, err)
	}
	slog.Debug("RedisLockStore.Overwrite", "patientID", lock.PatientID, "tabID", lock.TabID)
	return nil
}

// Refresh rewrites the timestamp inside a WATCH transaction so the update
// only lands while the record still names the heartbeating tab.
func (s *RedisLockStore) Refresh(ctx context.Context, lock *models.Lock) error {
	key := lockKey(lock.PatientID)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		payload, err := tx.Get(ctx, key).Result()
		if err == redis.Nil {
			return ErrLockLost
		}
		if err != nil {
			return err
		}
		var current models.Lock
		if err := json.Unmarshal([]byte(payload), &current); err != nil {
			return fmt.Errorf("failed to unmarshal lock for %s: %w", lock.PatientID, err)
		}
		if !current.OwnedBy(lock.TabID) {
			return ErrLockLost
		}
		next, err := json.Marshal(lock)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, models.LockStaleness)
			return nil
		})
		return err
	}, key)
	if err == redis.TxFailedErr {
		// Another tab rewrote the record mid-transaction.
		return ErrLockLost
	}
	return err
}

// ReleaseIfOwner deletes the lease inside a WATCH transaction so a takeover
// between the ownership check and the delete aborts the release.
func (s *RedisLockStore) ReleaseIfOwner(ctx context.Context, patientID, tabID string) (bool, error) {
	key := lockKey(patientID)
	released := false
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		payload, err := tx.Get(ctx, key).Result()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}
		var current models.Lock
		if err := json.Unmarshal([]byte(payload), &current); err != nil {
			return fmt.Errorf("failed to unmarshal lock for %s: %w", patientID, err)
		}
		if !current.OwnedBy(tabID) {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		if err == nil {
			released = true
		}
		return err
	}, key)
	if err == redis.TxFailedErr {
		return false, nil
	}
	if err != nil {
		slog.Error("RedisLockStore.ReleaseIfOwner failed", "error", err, "patientID", patientID)
		return false, err
	}
	slog.Debug("RedisLockStore.ReleaseIfOwner", "patientID", patientID, "tabID", tabID, "released", released)
	return released, nil
}

func (s *RedisLockStore) Publish(ctx context.Context, event LockEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal lock event: %w", err)
	}
	if err := s.client.Publish(ctx, lockChannel(event.PatientID), payload).Err(); err != nil {
		slog.Error("RedisLockStore.Publish failed", "error", err, "patientID", event.PatientID)
		return fmt.Errorf("failed to publish lock event for %s: %w", event.PatientID, err)
	}
	return nil
}

// Watch subscribes to the patient's lock channel and decodes events until
// ctx is cancelled. Malformed payloads are logged and skipped.
func (s *RedisLockStore) Watch(ctx context.Context, patientID string) (<-chan LockEvent, error) {
	sub := s.client.Subscribe(ctx, lockChannel(patientID))
	// Force the subscription to be established before returning.
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("failed to subscribe to lock channel for %s: %w", patientID, err)
	}

	out := make(chan LockEvent)
	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event LockEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					slog.Warn("RedisLockStore.Watch: malformed lock event", "error", err, "patientID", patientID)
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
