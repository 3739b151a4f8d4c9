package domain

import "time"

// EventType classifies a detected driving behavior.
type EventType string

const (
	EventHardBraking       EventType = "hard_braking"
	EventRapidAcceleration EventType = "rapid_acceleration"
	EventSpeeding          EventType = "speeding"
	EventHarshTurning      EventType = "harsh_turning"
)

// Severity grades a driving event.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Penalty returns the safety score deduction for an event of this severity.
func (s Severity) Penalty() int {
	switch s {
	case SeverityCritical:
		return 10
	case SeverityHigh:
		return 5
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// DrivingEvent is a risky-driving instant detected between two consecutive waypoints.
type DrivingEvent struct {
	ID          string
	TripID      string
	DeviceID    string
	Type        EventType
	Severity    Severity
	Lat         float64
	Lng         float64
	SpeedKmh    float64
	Magnitude   float64 // deceleration/acceleration g-force, lateral g-force, or km/h over the limit
	Description string
	OccurredAt  time.Time
}
