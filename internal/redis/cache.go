package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"tracker/internal/domain"
)

// CacheStore handles finalized-trip caching and the set of devices with an
// open trip.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// TripCacheTTL bounds how long a finalized trip stays cached. Finalized trips
// never change, so this only limits memory.
const TripCacheTTL = 10 * time.Minute

const (
	tripCachePrefix  = "cache:trip:"
	activeDevicesKey = "active_devices"
)

// GetTrip retrieves a finalized trip from cache.
func (s *CacheStore) GetTrip(ctx context.Context, tripID string) (*domain.TripRecord, error) {
	data, err := s.client.Get(ctx, tripCachePrefix+tripID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var rec domain.TripRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// SetTrip stores a finalized trip in cache.
func (s *CacheStore) SetTrip(ctx context.Context, rec *domain.TripRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, tripCachePrefix+rec.Trip.ID, data, TripCacheTTL).Err()
}

// AddActiveDevice marks a device as having an open trip.
func (s *CacheStore) AddActiveDevice(ctx context.Context, deviceID string) error {
	return s.client.SAdd(ctx, activeDevicesKey, deviceID).Err()
}

// RemoveActiveDevice clears a device's open-trip mark.
func (s *CacheStore) RemoveActiveDevice(ctx context.Context, deviceID string) error {
	return s.client.SRem(ctx, activeDevicesKey, deviceID).Err()
}

// GetActiveDevices returns all devices with an open trip.
func (s *CacheStore) GetActiveDevices(ctx context.Context) ([]string, error) {
	return s.client.SMembers(ctx, activeDevicesKey).Result()
}
