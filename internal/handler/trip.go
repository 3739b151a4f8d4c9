package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tracker/internal/domain"
	"tracker/internal/service"
)

// TripHandler handles HTTP requests for finalized trips.
type TripHandler struct {
	trackingService *service.TrackingService
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(trackingService *service.TrackingService) *TripHandler {
	return &TripHandler{trackingService: trackingService}
}

// LocationResponse is a coordinate pair.
type LocationResponse struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// WaypointResponse is one recorded trip point.
type WaypointResponse struct {
	Lat              float64  `json:"lat"`
	Lng              float64  `json:"lng"`
	AccuracyM        *float64 `json:"accuracy_m,omitempty"`
	AltitudeM        *float64 `json:"altitude_m,omitempty"`
	SpeedKmh         *float64 `json:"speed_kmh,omitempty"`
	HeadingDeg       *float64 `json:"heading_deg,omitempty"`
	AccelerationMps2 *float64 `json:"acceleration_mps2,omitempty"`
	Timestamp        string   `json:"timestamp"`
}

// EventResponse is one detected driving event.
type EventResponse struct {
	ID          string  `json:"id"`
	TripID      string  `json:"trip_id"`
	Type        string  `json:"type"`
	Severity    string  `json:"severity"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	SpeedKmh    float64 `json:"speed_kmh"`
	Magnitude   float64 `json:"magnitude"`
	Description string  `json:"description"`
	OccurredAt  string  `json:"occurred_at"`
}

// StatsResponse carries trip statistics.
type StatsResponse struct {
	TotalDistanceM  float64 `json:"total_distance_m"`
	MaxSpeedKmh     float64 `json:"max_speed_kmh"`
	AverageSpeedKmh float64 `json:"avg_speed_kmh"`
	DrivingSeconds  int64   `json:"driving_seconds"`
	SafetyScore     int     `json:"safety_score"`
}

// TripResponse is the HTTP response for trip data.
type TripResponse struct {
	TripID    string             `json:"trip_id"`
	DeviceID  string             `json:"device_id"`
	IsActive  bool               `json:"is_active"`
	Start     LocationResponse   `json:"start"`
	End       *LocationResponse  `json:"end,omitempty"`
	StartedAt string             `json:"started_at"`
	EndedAt   string             `json:"ended_at,omitempty"`
	Stats     *StatsResponse     `json:"stats,omitempty"`
	Waypoints []WaypointResponse `json:"waypoints,omitempty"`
	Events    []EventResponse    `json:"events"`
}

// GetTrip handles GET /v1/trips/:id
func (h *TripHandler) GetTrip(c *gin.Context) {
	tripID := c.Param("id")

	rec, err := h.trackingService.GetTrip(c.Request.Context(), tripID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newTripResponse(rec.Trip, &rec.Stats, true))
}

func newTripResponse(trip *domain.Trip, stats *domain.TripStats, withWaypoints bool) TripResponse {
	response := TripResponse{
		TripID:    trip.ID,
		DeviceID:  trip.DeviceID,
		IsActive:  trip.IsActive,
		Start:     LocationResponse{Lat: trip.Start.Lat, Lng: trip.Start.Lng},
		StartedAt: formatTime(trip.StartedAt),
		EndedAt:   formatTime(trip.EndedAt),
		Events:    make([]EventResponse, 0, len(trip.Events)),
	}

	if trip.End != nil {
		response.End = &LocationResponse{Lat: trip.End.Lat, Lng: trip.End.Lng}
	}

	if stats != nil {
		response.Stats = &StatsResponse{
			TotalDistanceM:  stats.TotalDistanceM,
			MaxSpeedKmh:     stats.MaxSpeedKmh,
			AverageSpeedKmh: stats.AverageSpeedKmh,
			DrivingSeconds:  int64(stats.TotalDrivingTime.Seconds()),
			SafetyScore:     stats.SafetyScore,
		}
	}

	if withWaypoints {
		response.Waypoints = make([]WaypointResponse, 0, len(trip.Waypoints))
		for _, wp := range trip.Waypoints {
			response.Waypoints = append(response.Waypoints, WaypointResponse{
				Lat:              wp.Lat,
				Lng:              wp.Lng,
				AccuracyM:        wp.AccuracyM,
				AltitudeM:        wp.AltitudeM,
				SpeedKmh:         wp.SpeedKmh,
				HeadingDeg:       wp.HeadingDeg,
				AccelerationMps2: wp.AccelerationMps2,
				Timestamp:        formatTime(wp.Timestamp),
			})
		}
	}

	for _, ev := range trip.Events {
		response.Events = append(response.Events, newEventResponse(ev))
	}

	return response
}

func newEventResponse(ev domain.DrivingEvent) EventResponse {
	return EventResponse{
		ID:          ev.ID,
		TripID:      ev.TripID,
		Type:        string(ev.Type),
		Severity:    string(ev.Severity),
		Lat:         ev.Lat,
		Lng:         ev.Lng,
		SpeedKmh:    ev.SpeedKmh,
		Magnitude:   ev.Magnitude,
		Description: ev.Description,
		OccurredAt:  formatTime(ev.OccurredAt),
	}
}
