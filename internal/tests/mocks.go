package tests

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"tracker/internal/domain"
	"tracker/internal/redis"
	"tracker/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK TRIP REPOSITORY
// ──────────────────────────────────────────────

// MockTripRepository is a mock implementation of TripRepository.
type MockTripRepository struct {
	mu      sync.RWMutex
	records map[string]*domain.TripRecord
	order   []string

	// Counters
	CreateCallCount  int32
	GetByIDCallCount int32

	// Error injection
	CreateError error
	GetError    error
}

// NewMockTripRepository creates a new mock trip repository.
func NewMockTripRepository() *MockTripRepository {
	return &MockTripRepository{
		records: make(map[string]*domain.TripRecord),
	}
}

// AddRecord adds a finalized trip to the mock repository.
func (m *MockTripRepository) AddRecord(rec *domain.TripRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.Trip.ID] = rec
	m.order = append(m.order, rec.Trip.ID)
}

func (m *MockTripRepository) Create(ctx context.Context, rec *domain.TripRecord) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[rec.Trip.ID]; exists {
		return repository.ErrConflict
	}
	m.records[rec.Trip.ID] = &domain.TripRecord{Trip: rec.Trip.Clone(), Stats: rec.Stats}
	m.order = append(m.order, rec.Trip.ID)
	return nil
}

func (m *MockTripRepository) GetByID(ctx context.Context, id string) (*domain.TripRecord, error) {
	atomic.AddInt32(&m.GetByIDCallCount, 1)
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &domain.TripRecord{Trip: rec.Trip.Clone(), Stats: rec.Stats}, nil
}

func (m *MockTripRepository) ListByDevice(ctx context.Context, deviceID string, limit int) ([]*domain.TripRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.TripRecord
	for _, id := range m.order {
		rec := m.records[id]
		if rec.Trip.DeviceID == deviceID {
			result = append(result, &domain.TripRecord{Trip: rec.Trip.Clone(), Stats: rec.Stats})
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Trip.StartedAt.After(result[j].Trip.StartedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Records returns all stored records in insertion order (for test assertions).
func (m *MockTripRepository) Records() []*domain.TripRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.TripRecord, 0, len(m.order))
	for _, id := range m.order {
		result = append(result, m.records[id])
	}
	return result
}

// CountTrips returns the number of trips.
func (m *MockTripRepository) CountTrips() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// ──────────────────────────────────────────────
// MOCK LOCATION STORE
// ──────────────────────────────────────────────

// MockLocationStore is a mock implementation of LocationStore.
type MockLocationStore struct {
	mu        sync.RWMutex
	locations []redis.DeviceLocation

	// Counters
	UpdateLocationCallCount int32
	RemoveLocationCallCount int32

	// Error injection
	UpdateLocationError    error
	FindNearbyDevicesError error
}

// NewMockLocationStore creates a new mock location store.
func NewMockLocationStore() *MockLocationStore {
	return &MockLocationStore{
		locations: make([]redis.DeviceLocation, 0),
	}
}

// SetLocations sets all locations (for test setup).
func (m *MockLocationStore) SetLocations(locations []redis.DeviceLocation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations = locations
}

func (m *MockLocationStore) UpdateLocation(ctx context.Context, deviceID string, lat, lng float64) error {
	atomic.AddInt32(&m.UpdateLocationCallCount, 1)
	if m.UpdateLocationError != nil {
		return m.UpdateLocationError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, loc := range m.locations {
		if loc.DeviceID == deviceID {
			m.locations[i].Lat = lat
			m.locations[i].Lng = lng
			return nil
		}
	}
	m.locations = append(m.locations, redis.DeviceLocation{
		DeviceID: deviceID,
		Lat:      lat,
		Lng:      lng,
	})
	return nil
}

func (m *MockLocationStore) FindNearbyDevices(ctx context.Context, lat, lng, radiusKm float64) ([]redis.DeviceLocation, error) {
	if m.FindNearbyDevicesError != nil {
		return nil, m.FindNearbyDevicesError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	// Return all locations (mock doesn't do real geo filtering).
	result := make([]redis.DeviceLocation, len(m.locations))
	copy(result, m.locations)
	return result, nil
}

func (m *MockLocationStore) RemoveLocation(ctx context.Context, deviceID string) error {
	atomic.AddInt32(&m.RemoveLocationCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, loc := range m.locations {
		if loc.DeviceID == deviceID {
			m.locations = append(m.locations[:i], m.locations[i+1:]...)
			return nil
		}
	}
	return nil
}

// Location returns the stored location of a device (for test assertions).
func (m *MockLocationStore) Location(deviceID string) (redis.DeviceLocation, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, loc := range m.locations {
		if loc.DeviceID == deviceID {
			return loc, true
		}
	}
	return redis.DeviceLocation{}, false
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStore.
type MockLockStore struct {
	mu     sync.Mutex
	locks  map[string]mockLock
	tokens int

	// Counters
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error
}

type mockLock struct {
	token  string
	expiry time.Time
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]mockLock),
	}
}

func (m *MockLockStore) AcquireDeviceLock(ctx context.Context, deviceID string, ttl time.Duration) (string, bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return "", false, m.AcquireError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if l, exists := m.locks[deviceID]; exists && time.Now().Before(l.expiry) {
		return "", false, nil // Lock still held.
	}

	m.tokens++
	token := fmt.Sprintf("token-%d", m.tokens)
	m.locks[deviceID] = mockLock{token: token, expiry: time.Now().Add(ttl)}
	return token, true, nil
}

func (m *MockLockStore) ReleaseDeviceLock(ctx context.Context, deviceID, token string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, exists := m.locks[deviceID]; exists && l.token == token {
		delete(m.locks, deviceID)
	}
	return nil
}

// Hold marks a device as locked by another instance (for test setup).
func (m *MockLockStore) Hold(deviceID string, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks[deviceID] = mockLock{token: "held-elsewhere", expiry: time.Now().Add(ttl)}
}

// IsLocked checks if a device is locked (for test assertions).
func (m *MockLockStore) IsLocked(deviceID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, exists := m.locks[deviceID]
	return exists && time.Now().Before(l.expiry)
}

// ──────────────────────────────────────────────
// MOCK CACHE STORE
// ──────────────────────────────────────────────

// MockCacheStore is a mock implementation of the trip cache.
type MockCacheStore struct {
	mu      sync.RWMutex
	trips   map[string]*domain.TripRecord
	devices map[string]bool

	// Counters
	GetTripCallCount int32
	SetTripCallCount int32
}

// NewMockCacheStore creates a new mock cache store.
func NewMockCacheStore() *MockCacheStore {
	return &MockCacheStore{
		trips:   make(map[string]*domain.TripRecord),
		devices: make(map[string]bool),
	}
}

func (m *MockCacheStore) GetTrip(ctx context.Context, tripID string) (*domain.TripRecord, error) {
	atomic.AddInt32(&m.GetTripCallCount, 1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.trips[tripID]
	if !ok {
		return nil, nil // Cache miss
	}
	return rec, nil
}

func (m *MockCacheStore) SetTrip(ctx context.Context, rec *domain.TripRecord) error {
	atomic.AddInt32(&m.SetTripCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[rec.Trip.ID] = rec
	return nil
}

func (m *MockCacheStore) AddActiveDevice(ctx context.Context, deviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices[deviceID] = true
	return nil
}

func (m *MockCacheStore) RemoveActiveDevice(ctx context.Context, deviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.devices, deviceID)
	return nil
}

func (m *MockCacheStore) GetActiveDevices(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.devices))
	for id := range m.devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// IsActive checks the active-device mark (for test assertions).
func (m *MockCacheStore) IsActive(deviceID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.devices[deviceID]
}

// ──────────────────────────────────────────────
// MOCK PUBLISHER
// ──────────────────────────────────────────────

// PublishedMessage is one payload captured by MockPublisher.
type PublishedMessage struct {
	DeviceID string
	Payload  []byte
}

// MockPublisher captures published notifications.
type MockPublisher struct {
	mu       sync.Mutex
	messages []PublishedMessage

	// Error injection
	PublishError error
}

// NewMockPublisher creates a new mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, deviceID string, payload []byte) error {
	if m.PublishError != nil {
		return m.PublishError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, PublishedMessage{DeviceID: deviceID, Payload: payload})
	return nil
}

// Messages returns captured messages in publish order.
func (m *MockPublisher) Messages() []PublishedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]PublishedMessage, len(m.messages))
	copy(result, m.messages)
	return result
}

// Ensure mocks implement the interfaces the services depend on.
var (
	_ repository.TripRepository    = (*MockTripRepository)(nil)
	_ redis.LocationStoreInterface = (*MockLocationStore)(nil)
	_ redis.LockStoreInterface     = (*MockLockStore)(nil)
	_ redis.TripCacheInterface     = (*MockCacheStore)(nil)
	_ redis.PublisherInterface     = (*MockPublisher)(nil)
)

// ──────────────────────────────────────────────
// HELPER ERRORS
// ──────────────────────────────────────────────

var (
	ErrMockDBConstraint = errors.New("mock: unique constraint violation")
	ErrMockTimeout      = errors.New("mock: operation timeout")
)
