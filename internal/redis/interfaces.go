package redis

import (
	"context"
	"time"
)

// DriverCache defines the interface for driver profile caching.
type DriverCache interface {
	GetDriver(ctx context.Context, driverID string) (*CachedDriver, error)
	SetDriver(ctx context.Context, driver *CachedDriver) error
	InvalidateDriver(ctx context.Context, driverID string) error
	GetDriversBatch(ctx context.Context, driverIDs []string) (map[string]*CachedDriver, []string, error)
	SetDriversBatch(ctx context.Context, drivers []*CachedDriver) error
}

// FanoutLock defines the interface for the per-ride fan-out lock.
type FanoutLock interface {
	AcquireFanoutLock(ctx context.Context, rideID string, ttl time.Duration) (bool, error)
	ReleaseFanoutLock(ctx context.Context, rideID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ DriverCache = (*CacheStore)(nil)
	_ FanoutLock  = (*LockStore)(nil)
)
