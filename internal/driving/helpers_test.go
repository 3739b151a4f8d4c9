package driving

import (
	"fmt"
	"time"

	"tracker/internal/domain"
)

var baseTime = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func at(sec float64) time.Time {
	return baseTime.Add(time.Duration(sec * float64(time.Second)))
}

// moving returns a sample heading north along a meridian at the given second.
func moving(sec float64, speedKmh float64) Sample {
	return Sample{
		Lat:       12.9716 + sec*1e-4,
		Lng:       77.5946,
		SpeedKmh:  domain.Float(speedKmh),
		Timestamp: at(sec),
	}
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func waypoint(sec float64, speedKmh float64) domain.Waypoint {
	return domain.Waypoint{
		Lat:       12.9716 + sec*1e-4,
		Lng:       77.5946,
		SpeedKmh:  domain.Float(speedKmh),
		Timestamp: at(sec),
	}
}
