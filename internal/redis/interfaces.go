package redis

import (
	"context"
	"time"

	"tracker/internal/domain"
)

// LocationStoreInterface defines the interface for live device positions.
type LocationStoreInterface interface {
	UpdateLocation(ctx context.Context, deviceID string, lat, lng float64) error
	FindNearbyDevices(ctx context.Context, lat, lng, radiusKm float64) ([]DeviceLocation, error)
	RemoveLocation(ctx context.Context, deviceID string) error
}

// LockStoreInterface defines the interface for per-device ingest locking.
type LockStoreInterface interface {
	AcquireDeviceLock(ctx context.Context, deviceID string, ttl time.Duration) (token string, ok bool, err error)
	ReleaseDeviceLock(ctx context.Context, deviceID, token string) error
}

// TripCacheInterface defines the interface for trip caching and active-device tracking.
type TripCacheInterface interface {
	GetTrip(ctx context.Context, tripID string) (*domain.TripRecord, error)
	SetTrip(ctx context.Context, rec *domain.TripRecord) error
	AddActiveDevice(ctx context.Context, deviceID string) error
	RemoveActiveDevice(ctx context.Context, deviceID string) error
	GetActiveDevices(ctx context.Context) ([]string, error)
}

// PublisherInterface defines the interface for notification fan-out.
type PublisherInterface interface {
	Publish(ctx context.Context, deviceID string, payload []byte) error
}

// Ensure concrete types implement interfaces.
var (
	_ LocationStoreInterface = (*LocationStore)(nil)
	_ LockStoreInterface     = (*LockStore)(nil)
	_ TripCacheInterface     = (*CacheStore)(nil)
	_ PublisherInterface     = (*Publisher)(nil)
)
