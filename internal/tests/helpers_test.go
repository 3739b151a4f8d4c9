package tests

import (
	"time"

	"tracker/internal/domain"
	"tracker/internal/driving"
	"tracker/internal/service"
)

var epoch = time.Date(2026, 3, 1, 7, 30, 0, 0, time.UTC)

const (
	originLat = -6.2000
	originLng = 106.8166
	// Degrees of longitude per meter near the origin's latitude.
	lngPerMeter = 1.0 / 110670.0
)

// sample builds a sample positioned metersEast of the origin.
func sample(sec, metersEast, speedKmh float64) driving.Sample {
	return driving.Sample{
		Lat:       originLat,
		Lng:       originLng + metersEast*lngPerMeter,
		SpeedKmh:  domain.Float(speedKmh),
		Timestamp: epoch.Add(time.Duration(sec * float64(time.Second))),
	}
}

// drive returns samples every 5s for [from, to] seconds at a constant speed,
// starting at startMeters east of the origin.
func drive(from, to, startMeters, speedKmh float64) []driving.Sample {
	var out []driving.Sample
	mps := speedKmh / 3.6
	for sec := from; sec <= to; sec += 5 {
		out = append(out, sample(sec, startMeters+(sec-from)*mps, speedKmh))
	}
	return out
}

// park returns stationary zero-speed samples every 5s for [from, to] seconds.
func park(from, to, atMeters float64) []driving.Sample {
	var out []driving.Sample
	for sec := from; sec <= to; sec += 5 {
		out = append(out, sample(sec, atMeters, 0))
	}
	return out
}

// commute drives for a minute at 45 km/h, then parks past the idle timeout.
// With default thresholds the trip ends on the sample at 370s.
func commute() []driving.Sample {
	samples := drive(0, 60, 0, 45)
	return append(samples, park(65, 400, 60*45/3.6)...)
}

type fixture struct {
	tripRepo      *MockTripRepository
	locationStore *MockLocationStore
	lockStore     *MockLockStore
	cacheStore    *MockCacheStore
	publisher     *MockPublisher
	service       *service.TrackingService
}

func newFixture() *fixture {
	f := &fixture{
		tripRepo:      NewMockTripRepository(),
		locationStore: NewMockLocationStore(),
		lockStore:     NewMockLockStore(),
		cacheStore:    NewMockCacheStore(),
		publisher:     NewMockPublisher(),
	}
	f.service = service.NewTrackingService(service.TrackingDeps{
		Registry:            driving.NewRegistry(driving.DefaultConfig()),
		TripRepo:            f.tripRepo,
		LocationStore:       f.locationStore,
		LockStore:           f.lockStore,
		CacheStore:          f.cacheStore,
		NotificationService: service.NewNotificationService(f.publisher, nil),
		LockTTL:             time.Second,
	})
	return f
}
