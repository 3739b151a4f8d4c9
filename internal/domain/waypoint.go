package domain

import "time"

// Location is a WGS84 coordinate pair in decimal degrees.
type Location struct {
	Lat float64
	Lng float64
}

// Waypoint is a single timestamped location observation from a device.
// Optional fields are nil when the device did not report them.
type Waypoint struct {
	Lat              float64
	Lng              float64
	AccuracyM        *float64
	AltitudeM        *float64
	SpeedKmh         *float64 // km/h
	HeadingDeg       *float64 // 0-360, clockwise from north
	AccelerationMps2 *float64 // m/s², negative when decelerating
	Timestamp        time.Time
}

// Location returns the waypoint's coordinates.
func (w Waypoint) Location() Location {
	return Location{Lat: w.Lat, Lng: w.Lng}
}

// Speed returns the reported speed in km/h, or 0 when absent.
func (w Waypoint) Speed() float64 {
	if w.SpeedKmh == nil {
		return 0
	}
	return *w.SpeedKmh
}

// HasSpeed reports whether the waypoint carries a speed value.
func (w Waypoint) HasSpeed() bool {
	return w.SpeedKmh != nil
}

// Float returns a pointer to v. Handy for building waypoints with optional fields.
func Float(v float64) *float64 {
	return &v
}
