package driving

import (
	"fmt"
	"math"

	"tracker/internal/domain"
	"tracker/internal/geo"
)

// gravity is standard gravity in m/s².
const gravity = 9.81

// Detector classifies risky driving between two consecutive waypoints.
type Detector struct {
	cfg Config
}

// NewDetector creates a new Detector.
func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// Detect runs every check independently and returns the events that fired,
// in the order braking, acceleration, speeding, turning. Checks whose inputs
// are missing are skipped. Returned events carry no ID, trip or device.
func (d *Detector) Detect(prev, cur domain.Waypoint) []domain.DrivingEvent {
	var events []domain.DrivingEvent

	if e, ok := d.hardBraking(cur); ok {
		events = append(events, e)
	}
	if e, ok := d.rapidAcceleration(cur); ok {
		events = append(events, e)
	}
	if e, ok := d.speeding(cur); ok {
		events = append(events, e)
	}
	if e, ok := d.harshTurning(prev, cur); ok {
		events = append(events, e)
	}

	return events
}

func (d *Detector) hardBraking(cur domain.Waypoint) (domain.DrivingEvent, bool) {
	if cur.AccelerationMps2 == nil || *cur.AccelerationMps2 >= d.cfg.HardBrakingMps2 {
		return domain.DrivingEvent{}, false
	}
	decel := math.Abs(*cur.AccelerationMps2)
	g := decel / gravity

	severity := domain.SeverityLow
	switch {
	case g > 0.8:
		severity = domain.SeverityCritical
	case g > 0.6:
		severity = domain.SeverityHigh
	case g > 0.4:
		severity = domain.SeverityMedium
	}

	return newEvent(cur, domain.EventHardBraking, severity, g,
		fmt.Sprintf("Hard braking: %.1f m/s² deceleration (%.2fg)", decel, g)), true
}

func (d *Detector) rapidAcceleration(cur domain.Waypoint) (domain.DrivingEvent, bool) {
	if cur.AccelerationMps2 == nil || *cur.AccelerationMps2 <= d.cfg.RapidAccelerationMps2 {
		return domain.DrivingEvent{}, false
	}
	accel := *cur.AccelerationMps2
	g := accel / gravity

	severity := domain.SeverityLow
	switch {
	case g > 0.5:
		severity = domain.SeverityHigh
	case g > 0.35:
		severity = domain.SeverityMedium
	}

	return newEvent(cur, domain.EventRapidAcceleration, severity, g,
		fmt.Sprintf("Rapid acceleration: %.1f m/s² (%.2fg)", accel, g)), true
}

func (d *Detector) speeding(cur domain.Waypoint) (domain.DrivingEvent, bool) {
	if !cur.HasSpeed() || cur.Speed() <= d.cfg.SpeedLimitKmh {
		return domain.DrivingEvent{}, false
	}
	over := cur.Speed() - d.cfg.SpeedLimitKmh

	severity := domain.SeverityLow
	switch {
	case over > 30:
		severity = domain.SeverityCritical
	case over > 20:
		severity = domain.SeverityHigh
	case over > 10:
		severity = domain.SeverityMedium
	}

	return newEvent(cur, domain.EventSpeeding, severity, over,
		fmt.Sprintf("Speeding: %.0f km/h, %.0f km/h over the %.0f km/h limit", cur.Speed(), over, d.cfg.SpeedLimitKmh)), true
}

func (d *Detector) harshTurning(prev, cur domain.Waypoint) (domain.DrivingEvent, bool) {
	if prev.HeadingDeg == nil || cur.HeadingDeg == nil {
		return domain.DrivingEvent{}, false
	}
	delta := geo.HeadingDelta(*prev.HeadingDeg, *cur.HeadingDeg)
	if delta <= d.cfg.HarshTurnMinDeltaDeg || cur.Speed() <= d.cfg.HarshTurnMinSpeedKmh {
		return domain.DrivingEvent{}, false
	}
	dt := cur.Timestamp.Sub(prev.Timestamp).Seconds()
	if dt <= 0 {
		return domain.DrivingEvent{}, false
	}

	g := kmhToMps(cur.Speed()) * geo.ToRadians(delta) / dt / gravity
	if g <= d.cfg.HarshTurnMinG {
		return domain.DrivingEvent{}, false
	}

	severity := domain.SeverityLow
	switch {
	case g > 0.7:
		severity = domain.SeverityHigh
	case g > 0.5:
		severity = domain.SeverityMedium
	}

	return newEvent(cur, domain.EventHarshTurning, severity, g,
		fmt.Sprintf("Harsh turn: %.0f° heading change at %.0f km/h (%.2fg lateral)", delta, cur.Speed(), g)), true
}

func newEvent(at domain.Waypoint, typ domain.EventType, severity domain.Severity, magnitude float64, desc string) domain.DrivingEvent {
	return domain.DrivingEvent{
		Type:        typ,
		Severity:    severity,
		Lat:         at.Lat,
		Lng:         at.Lng,
		SpeedKmh:    at.Speed(),
		Magnitude:   magnitude,
		Description: desc,
		OccurredAt:  at.Timestamp,
	}
}
