package driving

import (
	"tracker/internal/domain"
	"tracker/internal/geo"
)

// ComputeStats derives distance, speed, driving time and safety score for a
// trip. Trips with fewer than two waypoints get zero metrics and a perfect score.
func ComputeStats(trip *domain.Trip, drivingThresholdKmh float64) domain.TripStats {
	stats := domain.TripStats{SafetyScore: 100}
	if trip == nil || len(trip.Waypoints) < 2 {
		return stats
	}

	var speedSum float64
	var speedCount int
	for i, wp := range trip.Waypoints {
		if wp.HasSpeed() {
			speedSum += wp.Speed()
			speedCount++
			if wp.Speed() > stats.MaxSpeedKmh {
				stats.MaxSpeedKmh = wp.Speed()
			}
		}
		if i == 0 {
			continue
		}
		prev := trip.Waypoints[i-1]
		stats.TotalDistanceM += geo.Distance(prev.Lat, prev.Lng, wp.Lat, wp.Lng)
		if wp.Speed() >= drivingThresholdKmh {
			stats.TotalDrivingTime += wp.Timestamp.Sub(prev.Timestamp)
		}
	}
	if speedCount > 0 {
		stats.AverageSpeedKmh = speedSum / float64(speedCount)
	}

	stats.SafetyScore = SafetyScore(trip.Events)
	return stats
}

// SafetyScore starts at 100 and deducts a severity-based penalty per event,
// clamped to [0, 100].
func SafetyScore(events []domain.DrivingEvent) int {
	score := 100
	for _, e := range events {
		score -= e.Severity.Penalty()
	}
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
