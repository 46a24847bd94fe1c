package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquireFanoutLock attempts to acquire the fan-out lock for a ride, so a
// redelivered submit job cannot spray duplicate offers.
// Returns true if the lock was acquired, false if already held.
func (s *LockStore) AcquireFanoutLock(ctx context.Context, rideID string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:fanout:%s", rideID)

	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// ReleaseFanoutLock releases the fan-out lock for a ride.
func (s *LockStore) ReleaseFanoutLock(ctx context.Context, rideID string) error {
	key := fmt.Sprintf("lock:fanout:%s", rideID)

	return s.client.Del(ctx, key).Err()
}
