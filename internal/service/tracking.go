package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tracker/internal/domain"
	"tracker/internal/driving"
	"tracker/internal/geo"
	"tracker/internal/redis"
	"tracker/internal/repository"
)

const defaultIngestLockTTL = 2 * time.Second

// TrackingService turns per-device sample streams into trips. It owns the
// in-memory device registry and fans results out to storage and subscribers.
type TrackingService struct {
	registry            *driving.Registry
	tripRepo            repository.TripRepository
	locationStore       redis.LocationStoreInterface
	lockStore           redis.LockStoreInterface
	cacheStore          redis.TripCacheInterface
	notificationService *NotificationService
	lockTTL             time.Duration

	// Finalized trips whose insert failed, retried on the next ingest.
	pendingMu sync.Mutex
	pending   []*domain.TripRecord
}

// TrackingDeps contains the collaborators of a TrackingService. Only
// Registry and TripRepo are required.
type TrackingDeps struct {
	Registry            *driving.Registry
	TripRepo            repository.TripRepository
	LocationStore       redis.LocationStoreInterface
	LockStore           redis.LockStoreInterface
	CacheStore          redis.TripCacheInterface
	NotificationService *NotificationService
	LockTTL             time.Duration
}

// NewTrackingService creates a new TrackingService.
func NewTrackingService(deps TrackingDeps) *TrackingService {
	ttl := deps.LockTTL
	if ttl <= 0 {
		ttl = defaultIngestLockTTL
	}
	return &TrackingService{
		registry:            deps.Registry,
		tripRepo:            deps.TripRepo,
		locationStore:       deps.LocationStore,
		lockStore:           deps.LockStore,
		cacheStore:          deps.CacheStore,
		notificationService: deps.NotificationService,
		lockTTL:             ttl,
	}
}

// IngestSample applies one location sample to its device. Finalized trips are
// persisted before the call returns.
func (s *TrackingService) IngestSample(ctx context.Context, deviceID string, sample driving.Sample) (*driving.ProcessResult, error) {
	if deviceID == "" {
		return nil, ErrInvalidDeviceID
	}

	s.FlushPending(ctx)

	release, err := s.lockDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	defer release()

	res, err := s.registry.ProcessSample(deviceID, sample)
	if err != nil {
		return nil, err
	}

	// The sample is applied at this point; downstream failures are logged
	// rather than returned so the client does not resend it.
	if res.Moved && s.locationStore != nil {
		if err := s.locationStore.UpdateLocation(ctx, deviceID, res.Waypoint.Lat, res.Waypoint.Lng); err != nil {
			log.Printf("[INGEST] device=%s location update failed: %v", deviceID, err)
		}
	}

	if res.TripStarted != nil {
		if s.cacheStore != nil {
			_ = s.cacheStore.AddActiveDevice(ctx, deviceID)
		}
		s.notify(func(n *NotificationService) error { return n.NotifyTripStarted(ctx, res.TripStarted) })
	}

	for _, event := range res.Events {
		event := event
		s.notify(func(n *NotificationService) error { return n.NotifyDrivingEvent(ctx, event) })
	}

	if res.TripEnded != nil {
		s.finishTrip(ctx, res.TripEnded)
	}

	return &res, nil
}

// EndSession force-ends the device's trip, if any, and forgets the device.
// The returned record is nil when no trip was open.
func (s *TrackingService) EndSession(ctx context.Context, deviceID string) (*domain.TripRecord, error) {
	if deviceID == "" {
		return nil, ErrInvalidDeviceID
	}

	release, err := s.lockDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	defer release()

	trip, err := s.registry.ForceEndTrip(deviceID)
	if err != nil {
		return nil, err
	}

	if s.locationStore != nil {
		if err := s.locationStore.RemoveLocation(ctx, deviceID); err != nil {
			log.Printf("[INGEST] device=%s location removal failed: %v", deviceID, err)
		}
	}

	if trip == nil {
		return nil, nil
	}
	return s.finishTrip(ctx, trip), nil
}

// ActiveTripResult is an in-progress trip with statistics computed so far.
type ActiveTripResult struct {
	Trip      *domain.Trip
	Stats     domain.TripStats
	IsDriving bool
	IdleSince time.Time
}

// ActiveTrip returns the device's open trip.
func (s *TrackingService) ActiveTrip(ctx context.Context, deviceID string) (*ActiveTripResult, error) {
	if deviceID == "" {
		return nil, ErrInvalidDeviceID
	}

	snap, err := s.registry.Snapshot(deviceID)
	if err != nil {
		return nil, err
	}
	if snap.CurrentTrip == nil {
		return nil, ErrNoActiveTrip
	}

	return &ActiveTripResult{
		Trip:      snap.CurrentTrip,
		Stats:     driving.ComputeStats(snap.CurrentTrip, s.registry.Config().DrivingThresholdKmh),
		IsDriving: snap.IsDriving,
		IdleSince: snap.IdleSince,
	}, nil
}

// Devices returns the IDs of devices with in-memory state on this instance.
func (s *TrackingService) Devices() []string {
	return s.registry.Devices()
}

// ActiveDevices returns devices with an open trip on any instance, as
// tracked in the shared cache. Without a cache it falls back to this
// instance's devices with an open trip.
func (s *TrackingService) ActiveDevices(ctx context.Context) ([]string, error) {
	if s.cacheStore != nil {
		ids, err := s.cacheStore.GetActiveDevices(ctx)
		if err != nil {
			return nil, err
		}
		sort.Strings(ids)
		return ids, nil
	}

	ids := make([]string, 0)
	for _, id := range s.registry.Devices() {
		if snap, err := s.registry.Snapshot(id); err == nil && snap.CurrentTrip != nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// GetTrip retrieves a finalized trip by ID, reading through the cache.
func (s *TrackingService) GetTrip(ctx context.Context, tripID string) (*domain.TripRecord, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}
	if _, err := uuid.Parse(tripID); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTripID, tripID)
	}

	if s.cacheStore != nil {
		cached, err := s.cacheStore.GetTrip(ctx, tripID)
		if err == nil && cached != nil {
			return cached, nil
		}
	}

	rec, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	if s.cacheStore != nil {
		_ = s.cacheStore.SetTrip(ctx, rec)
	}
	return rec, nil
}

// ListTrips returns the device's finalized trips, newest first.
func (s *TrackingService) ListTrips(ctx context.Context, deviceID string, limit int) ([]*domain.TripRecord, error) {
	if deviceID == "" {
		return nil, ErrInvalidDeviceID
	}
	return s.tripRepo.ListByDevice(ctx, deviceID, limit)
}

// NearbyDevices returns devices whose last significant position lies within
// radiusKm of the point, nearest first.
func (s *TrackingService) NearbyDevices(ctx context.Context, lat, lng, radiusKm float64) ([]redis.DeviceLocation, error) {
	if !geo.ValidLatitude(lat) || !geo.ValidLongitude(lng) {
		return nil, ErrInvalidLocation
	}
	if radiusKm <= 0 {
		return nil, ErrInvalidRadius
	}
	if s.locationStore == nil {
		return []redis.DeviceLocation{}, nil
	}
	return s.locationStore.FindNearbyDevices(ctx, lat, lng, radiusKm)
}

// finishTrip computes statistics for an ended trip, persists it and
// announces it. A trip that fails to persist is kept for FlushPending.
func (s *TrackingService) finishTrip(ctx context.Context, trip *domain.Trip) *domain.TripRecord {
	rec := &domain.TripRecord{
		Trip:  trip,
		Stats: driving.ComputeStats(trip, s.registry.Config().DrivingThresholdKmh),
	}

	if !s.persist(ctx, rec) {
		s.pendingMu.Lock()
		s.pending = append(s.pending, rec)
		s.pendingMu.Unlock()
	}

	if s.cacheStore != nil {
		_ = s.cacheStore.RemoveActiveDevice(ctx, trip.DeviceID)
	}

	s.notify(func(n *NotificationService) error { return n.NotifyTripEnded(ctx, trip, rec.Stats) })
	return rec
}

// persist stores rec and caches it. It reports false when the insert failed
// and should be retried.
func (s *TrackingService) persist(ctx context.Context, rec *domain.TripRecord) bool {
	if err := s.tripRepo.Create(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			log.Printf("[INGEST] trip=%s already persisted", rec.Trip.ID)
			return true
		}
		log.Printf("[INGEST] trip=%s device=%s persist failed: %v", rec.Trip.ID, rec.Trip.DeviceID, err)
		return false
	}
	if s.cacheStore != nil {
		_ = s.cacheStore.SetTrip(ctx, rec)
	}
	return true
}

// FlushPending retries trips that could not be persisted when they ended and
// returns how many are still waiting.
func (s *TrackingService) FlushPending(ctx context.Context) int {
	s.pendingMu.Lock()
	batch := s.pending
	s.pending = nil
	s.pendingMu.Unlock()

	var failed []*domain.TripRecord
	for _, rec := range batch {
		if !s.persist(ctx, rec) {
			failed = append(failed, rec)
		}
	}

	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	s.pending = append(failed, s.pending...)
	return len(s.pending)
}

func (s *TrackingService) notify(send func(*NotificationService) error) {
	if s.notificationService == nil {
		return
	}
	if err := send(s.notificationService); err != nil {
		log.Printf("[NOTIFICATION] publish failed: %v", err)
	}
}

// lockDevice takes the distributed ingest lock when a lock store is configured.
func (s *TrackingService) lockDevice(ctx context.Context, deviceID string) (func(), error) {
	if s.lockStore == nil {
		return func() {}, nil
	}

	token, acquired, err := s.lockStore.AcquireDeviceLock(ctx, deviceID, s.lockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrDeviceBusy
	}

	return func() {
		if err := s.lockStore.ReleaseDeviceLock(context.WithoutCancel(ctx), deviceID, token); err != nil {
			log.Printf("[INGEST] device=%s lock release failed: %v", deviceID, err)
		}
	}, nil
}
