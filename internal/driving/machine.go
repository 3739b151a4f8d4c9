package driving

import (
	"time"

	"github.com/google/uuid"

	"tracker/internal/domain"
)

// TripState is the state of a device's trip machine.
type TripState int

const (
	StateNoTrip TripState = iota
	StateTripActive
)

func (s TripState) String() string {
	if s == StateTripActive {
		return "TRIP_ACTIVE"
	}
	return "NO_TRIP"
}

// DeviceDrivingState is the mutable per-device state the trip machine operates on.
type DeviceDrivingState struct {
	DeviceID     string
	CurrentTrip  *domain.Trip
	LastWaypoint *domain.Waypoint
	IsDriving    bool
	IdleSince    time.Time // zero when no idle timer is running
}

// State reports whether a trip is open.
func (s *DeviceDrivingState) State() TripState {
	if s.CurrentTrip != nil {
		return StateTripActive
	}
	return StateNoTrip
}

// StepResult describes the transitions caused by one waypoint.
type StepResult struct {
	TripStarted *domain.Trip
	TripEnded   *domain.Trip
	Events      []domain.DrivingEvent
}

// TripMachine applies validated waypoints to a DeviceDrivingState. It holds no
// per-device data and is shared by all devices.
type TripMachine struct {
	cfg      Config
	detector *Detector
	newID    func() string
}

// NewTripMachine creates a new TripMachine.
func NewTripMachine(cfg Config) *TripMachine {
	return &TripMachine{
		cfg:      cfg,
		detector: NewDetector(cfg),
		newID:    uuid.NewString,
	}
}

// Step applies one waypoint to st. Waypoints must arrive in increasing
// timestamp order; the caller serializes calls per device.
func (m *TripMachine) Step(st *DeviceDrivingState, wp domain.Waypoint) StepResult {
	var res StepResult
	prev := st.LastWaypoint
	driving := wp.Speed() >= m.cfg.DrivingThresholdKmh

	switch {
	case st.CurrentTrip == nil && driving:
		st.CurrentTrip = &domain.Trip{
			ID:        m.newID(),
			DeviceID:  st.DeviceID,
			Start:     wp.Location(),
			StartedAt: wp.Timestamp,
			Waypoints: []domain.Waypoint{wp},
			IsActive:  true,
		}
		st.IdleSince = time.Time{}
		res.TripStarted = st.CurrentTrip.Clone()

	case st.CurrentTrip != nil && driving:
		st.IdleSince = time.Time{}
		m.record(st.CurrentTrip, wp, true)
		if prev != nil {
			res.Events = m.detect(st, *prev, wp)
		}

	case st.CurrentTrip != nil:
		m.record(st.CurrentTrip, wp, false)
		if st.IdleSince.IsZero() {
			st.IdleSince = wp.Timestamp
		} else if wp.Timestamp.Sub(st.IdleSince) > m.cfg.IdleTimeout {
			res.TripEnded = m.finalize(st, wp)
		}
	}

	last := wp
	st.LastWaypoint = &last
	st.IsDriving = driving

	return res
}

// ForceEnd closes the open trip at the last waypoint seen, regardless of the
// idle timer. It returns nil when no trip is open.
func (m *TripMachine) ForceEnd(st *DeviceDrivingState) *domain.Trip {
	if st.CurrentTrip == nil || st.LastWaypoint == nil {
		return nil
	}
	return m.finalize(st, *st.LastWaypoint)
}

// record appends wp when the device is driving or when at least twice the
// nominal sample interval has passed since the last recorded waypoint.
func (m *TripMachine) record(trip *domain.Trip, wp domain.Waypoint, driving bool) {
	if !driving {
		last := trip.Waypoints[len(trip.Waypoints)-1]
		if wp.Timestamp.Sub(last.Timestamp) < m.cfg.recordingGap() {
			return
		}
	}
	trip.Waypoints = append(trip.Waypoints, wp)
}

func (m *TripMachine) detect(st *DeviceDrivingState, prev, cur domain.Waypoint) []domain.DrivingEvent {
	events := m.detector.Detect(prev, cur)
	for i := range events {
		events[i].ID = m.newID()
		events[i].TripID = st.CurrentTrip.ID
		events[i].DeviceID = st.DeviceID
	}
	st.CurrentTrip.Events = append(st.CurrentTrip.Events, events...)
	return events
}

func (m *TripMachine) finalize(st *DeviceDrivingState, at domain.Waypoint) *domain.Trip {
	trip := st.CurrentTrip
	end := at.Location()
	trip.End = &end
	trip.EndedAt = at.Timestamp
	trip.IsActive = false

	st.CurrentTrip = nil
	st.IdleSince = time.Time{}
	return trip
}
