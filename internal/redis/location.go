package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const deviceLocationKey = "devices:locations"

// DeviceLocation represents a device's last significant position.
type DeviceLocation struct {
	DeviceID   string
	Lat        float64
	Lng        float64
	DistanceKm float64
}

// LocationStore keeps live device positions in a Redis geo index.
type LocationStore struct {
	client *redis.Client
}

// NewLocationStore creates a new LocationStore.
func NewLocationStore(client *redis.Client) *LocationStore {
	return &LocationStore{client: client}
}

// UpdateLocation stores a device's location using GEOADD.
func (s *LocationStore) UpdateLocation(ctx context.Context, deviceID string, lat, lng float64) error {
	return s.client.GeoAdd(ctx, deviceLocationKey, &redis.GeoLocation{
		Name:      deviceID,
		Longitude: lng,
		Latitude:  lat,
	}).Err()
}

// FindNearbyDevices returns devices within the given radius (in kilometers), nearest first.
func (s *LocationStore) FindNearbyDevices(ctx context.Context, lat, lng, radiusKm float64) ([]DeviceLocation, error) {
	results, err := s.client.GeoRadius(ctx, deviceLocationKey, lng, lat, &redis.GeoRadiusQuery{
		Radius:    radiusKm,
		Unit:      "km",
		WithCoord: true,
		WithDist:  true,
		Sort:      "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}

	locations := make([]DeviceLocation, 0, len(results))
	for _, r := range results {
		locations = append(locations, DeviceLocation{
			DeviceID:   r.Name,
			Lat:        r.Latitude,
			Lng:        r.Longitude,
			DistanceKm: r.Dist,
		})
	}

	return locations, nil
}

// RemoveLocation removes a device's location from the geo index.
func (s *LocationStore) RemoveLocation(ctx context.Context, deviceID string) error {
	return s.client.ZRem(ctx, deviceLocationKey, deviceID).Err()
}
