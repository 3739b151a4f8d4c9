package driving

import (
	"fmt"
	"time"

	"tracker/internal/domain"
	"tracker/internal/geo"
)

// Sample is a raw location update as delivered by the ingestion layer.
type Sample struct {
	Lat              float64
	Lng              float64
	AccuracyM        *float64
	AltitudeM        *float64
	SpeedKmh         *float64
	HeadingDeg       *float64
	AccelerationMps2 *float64
	Timestamp        time.Time
	DeviceClass      DeviceClass
}

// Validator turns raw samples into waypoints. It never mutates device state.
type Validator struct {
	cfg Config
}

// NewValidator creates a new Validator.
func NewValidator(cfg Config) *Validator {
	return &Validator{cfg: cfg}
}

// Normalize validates s against the device's previous waypoint and returns the
// resulting waypoint. A provided acceleration is kept as is; otherwise it is
// derived from the speed change when both speeds are known.
func (v *Validator) Normalize(s Sample, prev *domain.Waypoint) (domain.Waypoint, error) {
	if s.Timestamp.IsZero() {
		return domain.Waypoint{}, invalid("missing timestamp")
	}
	if !geo.ValidLatitude(s.Lat) {
		return domain.Waypoint{}, invalid("latitude out of range")
	}
	if !geo.ValidLongitude(s.Lng) {
		return domain.Waypoint{}, invalid("longitude out of range")
	}

	wp := domain.Waypoint{
		Lat:              s.Lat,
		Lng:              s.Lng,
		AccuracyM:        copyFloat(s.AccuracyM),
		AltitudeM:        copyFloat(s.AltitudeM),
		SpeedKmh:         copyFloat(s.SpeedKmh),
		HeadingDeg:       copyFloat(s.HeadingDeg),
		AccelerationMps2: copyFloat(s.AccelerationMps2),
		Timestamp:        s.Timestamp,
	}

	if prev == nil {
		return wp, nil
	}

	if !s.Timestamp.After(prev.Timestamp) {
		return domain.Waypoint{}, invalid("non-monotonic timestamp")
	}
	dt := s.Timestamp.Sub(prev.Timestamp).Seconds()

	if v.cfg.MaxImpliedSpeedKmh > 0 {
		implied := geo.Distance(prev.Lat, prev.Lng, s.Lat, s.Lng) / dt * 3.6
		if implied > v.cfg.MaxImpliedSpeedKmh {
			return domain.Waypoint{}, invalid(fmt.Sprintf("implausible jump (%.0f km/h)", implied))
		}
	}

	if wp.AccelerationMps2 == nil && wp.SpeedKmh != nil && prev.SpeedKmh != nil {
		accel := (kmhToMps(*wp.SpeedKmh) - kmhToMps(*prev.SpeedKmh)) / dt
		wp.AccelerationMps2 = &accel
	}

	return wp, nil
}

func invalid(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidSample, reason)
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func kmhToMps(kmh float64) float64 {
	return kmh / 3.6
}
