package domain

import "time"

// Trip is one continuous movement session for one device.
type Trip struct {
	ID        string
	DeviceID  string
	Start     Location
	End       *Location // nil while the trip is active
	StartedAt time.Time
	EndedAt   time.Time // zero while the trip is active
	Waypoints []Waypoint
	Events    []DrivingEvent
	IsActive  bool
}

// Clone returns a deep copy of the trip so callers can read it while the
// owning device keeps appending to the original.
func (t *Trip) Clone() *Trip {
	if t == nil {
		return nil
	}
	c := *t
	if t.End != nil {
		end := *t.End
		c.End = &end
	}
	c.Waypoints = append([]Waypoint(nil), t.Waypoints...)
	c.Events = append([]DrivingEvent(nil), t.Events...)
	return &c
}

// Duration returns the elapsed time between start and end, or zero for an active trip.
func (t *Trip) Duration() time.Duration {
	if t.EndedAt.IsZero() {
		return 0
	}
	return t.EndedAt.Sub(t.StartedAt)
}

// TripStats holds derived distance, speed and safety figures for a trip.
type TripStats struct {
	TotalDistanceM   float64
	MaxSpeedKmh      float64
	AverageSpeedKmh  float64
	TotalDrivingTime time.Duration
	SafetyScore      int
}

// TripRecord is a finalized trip together with its statistics, as persisted.
type TripRecord struct {
	Trip  *Trip
	Stats TripStats
}
