package driving

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracker/internal/domain"
)

func withAccel(wp domain.Waypoint, a float64) domain.Waypoint {
	wp.AccelerationMps2 = domain.Float(a)
	return wp
}

func withHeading(wp domain.Waypoint, h float64) domain.Waypoint {
	wp.HeadingDeg = domain.Float(h)
	return wp
}

func TestDetect_HardBrakingHigh(t *testing.T) {
	d := NewDetector(DefaultConfig())
	prev := waypoint(0, 50)
	cur := withAccel(waypoint(1, 24.8), -7.0)

	events := d.Detect(prev, cur)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventHardBraking, events[0].Type)
	assert.Equal(t, domain.SeverityHigh, events[0].Severity)
	assert.InDelta(t, 7.0/9.81, events[0].Magnitude, 1e-9)
	assert.Equal(t, cur.Timestamp, events[0].OccurredAt)
	assert.Equal(t, cur.Lat, events[0].Lat)
}

func TestDetect_BrakingAndAccelerationSeverities(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		accel    float64
		wantType domain.EventType
		want     domain.Severity
	}{
		{name: "braking at threshold does not fire", accel: -6.5},
		{name: "braking high", accel: -6.6, wantType: domain.EventHardBraking, want: domain.SeverityHigh},
		{name: "braking critical", accel: -8.0, wantType: domain.EventHardBraking, want: domain.SeverityCritical},
		{name: "acceleration at threshold does not fire", accel: 3.5},
		{name: "acceleration medium", accel: 3.6, wantType: domain.EventRapidAcceleration, want: domain.SeverityMedium},
		{name: "acceleration high", accel: 5.0, wantType: domain.EventRapidAcceleration, want: domain.SeverityHigh},
		{name: "gentle", accel: 1.0},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			events := NewDetector(DefaultConfig()).Detect(waypoint(0, 60), withAccel(waypoint(1, 60), tc.accel))
			if tc.wantType == "" {
				assert.Empty(t, events)
				return
			}
			require.Len(t, events, 1)
			assert.Equal(t, tc.wantType, events[0].Type)
			assert.Equal(t, tc.want, events[0].Severity)
		})
	}
}

func TestDetect_SpeedingSeverities(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		speed float64
		want  domain.Severity
	}{
		{speed: 120},
		{speed: 125, want: domain.SeverityLow},
		{speed: 130, want: domain.SeverityLow},
		{speed: 131, want: domain.SeverityMedium},
		{speed: 141, want: domain.SeverityHigh},
		{speed: 150, want: domain.SeverityHigh},
		{speed: 151, want: domain.SeverityCritical},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(string(tc.want), func(t *testing.T) {
			t.Parallel()
			events := NewDetector(DefaultConfig()).Detect(waypoint(0, tc.speed), waypoint(5, tc.speed))
			if tc.want == "" {
				assert.Empty(t, events)
				return
			}
			require.Len(t, events, 1)
			assert.Equal(t, domain.EventSpeeding, events[0].Type)
			assert.Equal(t, tc.want, events[0].Severity)
			assert.InDelta(t, tc.speed-120, events[0].Magnitude, 1e-9)
		})
	}
}

func TestDetect_SpeedingBoundaryDescription(t *testing.T) {
	events := NewDetector(DefaultConfig()).Detect(waypoint(0, 150), waypoint(5, 150))
	require.Len(t, events, 1)
	assert.Equal(t, domain.SeverityHigh, events[0].Severity)
	assert.Equal(t, 30.0, events[0].Magnitude)
	assert.Contains(t, events[0].Description, "30 km/h over")
}

func TestDetect_HarshTurning(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		from  float64
		to    float64
		speed float64
		dtSec float64
		want  domain.Severity
	}{
		{name: "sharp turn high", from: 0, to: 90, speed: 40, dtSec: 1, want: domain.SeverityHigh},
		{name: "across north high", from: 340, to: 60, speed: 40, dtSec: 1, want: domain.SeverityHigh},
		{name: "medium", from: 0, to: 45, speed: 40, dtSec: 1.5, want: domain.SeverityMedium},
		{name: "slow turn below g threshold", from: 0, to: 45, speed: 40, dtSec: 2},
		{name: "delta at threshold", from: 0, to: 30, speed: 80, dtSec: 1},
		{name: "speed at threshold", from: 0, to: 90, speed: 30, dtSec: 1},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			prev := withHeading(waypoint(0, tc.speed), tc.from)
			cur := withHeading(waypoint(tc.dtSec, tc.speed), tc.to)
			events := NewDetector(DefaultConfig()).Detect(prev, cur)
			if tc.want == "" {
				assert.Empty(t, events)
				return
			}
			require.Len(t, events, 1)
			assert.Equal(t, domain.EventHarshTurning, events[0].Type)
			assert.Equal(t, tc.want, events[0].Severity)
			assert.Greater(t, events[0].Magnitude, 0.5)
		})
	}
}

func TestDetect_MissingFieldsSuppressChecks(t *testing.T) {
	d := NewDetector(DefaultConfig())
	prev := domain.Waypoint{Lat: 1, Lng: 1, Timestamp: at(0)}
	cur := domain.Waypoint{Lat: 1.001, Lng: 1, HeadingDeg: domain.Float(180), Timestamp: at(1)}

	assert.Empty(t, d.Detect(prev, cur))
}

func TestDetect_IndependentChecksCanAllFire(t *testing.T) {
	d := NewDetector(DefaultConfig())
	prev := withHeading(waypoint(0, 160), 0)
	cur := withHeading(withAccel(waypoint(1, 160), -9), 90)

	events := d.Detect(prev, cur)
	require.Len(t, events, 3)
	assert.Equal(t, domain.EventHardBraking, events[0].Type)
	assert.Equal(t, domain.EventSpeeding, events[1].Type)
	assert.Equal(t, domain.EventHarshTurning, events[2].Type)
}
