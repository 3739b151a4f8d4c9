package driving

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"tracker/internal/domain"
	"tracker/internal/geo"
)

// ProcessResult is what one accepted sample did to its device.
type ProcessResult struct {
	DeviceID    string
	Waypoint    domain.Waypoint
	State       TripState
	TripStarted *domain.Trip
	TripEnded   *domain.Trip
	Events      []domain.DrivingEvent
	// Moved is true when the sample is the device's first or is at least the
	// device-class movement threshold away from the previous waypoint.
	Moved bool
}

// DeviceSnapshot is a read-only copy of a device's driving state.
type DeviceSnapshot struct {
	DeviceID     string
	State        TripState
	CurrentTrip  *domain.Trip
	LastWaypoint *domain.Waypoint
	IsDriving    bool
	IdleSince    time.Time
}

type deviceEntry struct {
	mu      sync.Mutex
	state   DeviceDrivingState
	removed bool
}

// Registry owns one DeviceDrivingState per device. Each device is guarded by
// its own mutex so independent devices are processed concurrently.
type Registry struct {
	cfg       Config
	validator *Validator
	machine   *TripMachine

	mu      sync.RWMutex
	devices map[string]*deviceEntry
}

// NewRegistry creates a new Registry.
func NewRegistry(cfg Config) *Registry {
	return &Registry{
		cfg:       cfg,
		validator: NewValidator(cfg),
		machine:   NewTripMachine(cfg),
		devices:   make(map[string]*deviceEntry),
	}
}

// Config returns the thresholds the registry was built with.
func (r *Registry) Config() Config {
	return r.cfg
}

// ProcessSample validates s and applies it to the device's trip machine.
// Invalid samples are dropped with ErrInvalidSample and leave state untouched.
func (r *Registry) ProcessSample(deviceID string, s Sample) (ProcessResult, error) {
	if deviceID == "" {
		return ProcessResult{}, invalid("missing device id")
	}

	for {
		entry := r.entry(deviceID)
		entry.mu.Lock()
		if entry.removed {
			// Lost a race with ForceEndTrip; pick up the fresh entry.
			entry.mu.Unlock()
			continue
		}
		res, err := r.apply(entry, deviceID, s)
		if err != nil && entry.state.LastWaypoint == nil {
			// A rejected first sample must not leave a device behind.
			r.mu.Lock()
			if r.devices[deviceID] == entry {
				delete(r.devices, deviceID)
			}
			r.mu.Unlock()
			entry.removed = true
		}
		entry.mu.Unlock()
		return res, err
	}
}

func (r *Registry) apply(entry *deviceEntry, deviceID string, s Sample) (ProcessResult, error) {
	st := &entry.state
	prev := st.LastWaypoint

	wp, err := r.validator.Normalize(s, prev)
	if err != nil {
		return ProcessResult{}, err
	}

	moved := true
	if prev != nil {
		moved = geo.Distance(prev.Lat, prev.Lng, wp.Lat, wp.Lng) >= r.cfg.MinMovement(s.DeviceClass)
	}

	step := r.machine.Step(st, wp)
	return ProcessResult{
		DeviceID:    deviceID,
		Waypoint:    wp,
		State:       st.State(),
		TripStarted: step.TripStarted,
		TripEnded:   step.TripEnded,
		Events:      step.Events,
		Moved:       moved,
	}, nil
}

// ForceEndTrip finalizes the device's open trip immediately and removes the
// device's state. It returns a nil trip when the device had state but no open
// trip, and ErrUnknownDevice when the device has no state.
func (r *Registry) ForceEndTrip(deviceID string) (*domain.Trip, error) {
	r.mu.Lock()
	entry, ok := r.devices[deviceID]
	if ok {
		delete(r.devices, deviceID)
	}
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDevice, deviceID)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.removed = true
	return r.machine.ForceEnd(&entry.state), nil
}

// Snapshot returns a copy of the device's current state.
func (r *Registry) Snapshot(deviceID string) (DeviceSnapshot, error) {
	r.mu.RLock()
	entry, ok := r.devices[deviceID]
	r.mu.RUnlock()
	if !ok {
		return DeviceSnapshot{}, fmt.Errorf("%w: %s", ErrUnknownDevice, deviceID)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	st := entry.state
	snap := DeviceSnapshot{
		DeviceID:    deviceID,
		State:       st.State(),
		CurrentTrip: st.CurrentTrip.Clone(),
		IsDriving:   st.IsDriving,
		IdleSince:   st.IdleSince,
	}
	if st.LastWaypoint != nil {
		last := *st.LastWaypoint
		snap.LastWaypoint = &last
	}
	return snap, nil
}

// Devices returns the IDs of all tracked devices, sorted.
func (r *Registry) Devices() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.devices))
	for id := range r.devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) entry(deviceID string) *deviceEntry {
	r.mu.RLock()
	entry, ok := r.devices[deviceID]
	r.mu.RUnlock()
	if ok {
		return entry
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.devices[deviceID]; ok {
		return entry
	}
	entry = &deviceEntry{state: DeviceDrivingState{DeviceID: deviceID}}
	r.devices[deviceID] = entry
	return entry
}
