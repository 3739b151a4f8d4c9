package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/newrelic/go-agent/v3/newrelic"

	"tracker/internal/domain"
	"tracker/internal/redis"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationTripStarted  NotificationType = "TRIP_STARTED"
	NotificationTripEnded    NotificationType = "TRIP_ENDED"
	NotificationDrivingEvent NotificationType = "DRIVING_EVENT"
)

// Notification represents a notification to be sent.
type Notification struct {
	ID        string                 `json:"id"`
	Type      NotificationType       `json:"type"`
	DeviceID  string                 `json:"device_id"`
	TripID    string                 `json:"trip_id"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// NotificationService handles notification delivery. Both the publisher and
// the New Relic application are optional.
type NotificationService struct {
	publisher redis.PublisherInterface
	nrApp     *newrelic.Application
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(publisher redis.PublisherInterface, nrApp *newrelic.Application) *NotificationService {
	return &NotificationService{
		publisher: publisher,
		nrApp:     nrApp,
	}
}

// NotifyTripStarted announces a newly opened trip.
func (s *NotificationService) NotifyTripStarted(ctx context.Context, trip *domain.Trip) error {
	notification := Notification{
		Type:     NotificationTripStarted,
		DeviceID: trip.DeviceID,
		TripID:   trip.ID,
		Title:    "Trip Started",
		Message:  fmt.Sprintf("Trip started at (%.5f, %.5f)", trip.Start.Lat, trip.Start.Lng),
		Data: map[string]interface{}{
			"start_lat":  trip.Start.Lat,
			"start_lng":  trip.Start.Lng,
			"started_at": trip.StartedAt,
		},
	}
	return s.send(ctx, notification)
}

// NotifyTripEnded announces a finalized trip with its statistics.
func (s *NotificationService) NotifyTripEnded(ctx context.Context, trip *domain.Trip, stats domain.TripStats) error {
	notification := Notification{
		Type:     NotificationTripEnded,
		DeviceID: trip.DeviceID,
		TripID:   trip.ID,
		Title:    "Trip Ended",
		Message: fmt.Sprintf("Trip ended: %.2f km, safety score %d",
			stats.TotalDistanceM/1000, stats.SafetyScore),
		Data: map[string]interface{}{
			"ended_at":         trip.EndedAt,
			"total_distance_m": stats.TotalDistanceM,
			"max_speed_kmh":    stats.MaxSpeedKmh,
			"avg_speed_kmh":    stats.AverageSpeedKmh,
			"driving_seconds":  int64(stats.TotalDrivingTime.Seconds()),
			"safety_score":     stats.SafetyScore,
			"event_count":      len(trip.Events),
		},
	}

	if s.nrApp != nil {
		s.nrApp.RecordCustomEvent("TripEnded", map[string]interface{}{
			"deviceId":       trip.DeviceID,
			"tripId":         trip.ID,
			"distanceMeters": stats.TotalDistanceM,
			"safetyScore":    stats.SafetyScore,
			"events":         len(trip.Events),
		})
	}

	return s.send(ctx, notification)
}

// NotifyDrivingEvent announces a detected driving event.
func (s *NotificationService) NotifyDrivingEvent(ctx context.Context, event domain.DrivingEvent) error {
	notification := Notification{
		Type:     NotificationDrivingEvent,
		DeviceID: event.DeviceID,
		TripID:   event.TripID,
		Title:    "Driving Event",
		Message:  event.Description,
		Data: map[string]interface{}{
			"event_id":    event.ID,
			"event_type":  event.Type,
			"severity":    event.Severity,
			"lat":         event.Lat,
			"lng":         event.Lng,
			"speed_kmh":   event.SpeedKmh,
			"magnitude":   event.Magnitude,
			"occurred_at": event.OccurredAt,
		},
	}

	if s.nrApp != nil {
		s.nrApp.RecordCustomEvent("DrivingEvent", map[string]interface{}{
			"deviceId":  event.DeviceID,
			"tripId":    event.TripID,
			"eventType": string(event.Type),
			"severity":  string(event.Severity),
			"speedKmh":  event.SpeedKmh,
			"magnitude": event.Magnitude,
		})
	}

	return s.send(ctx, notification)
}

// send logs the notification and publishes it on the device's channel.
func (s *NotificationService) send(ctx context.Context, notification Notification) error {
	notification.ID = uuid.New().String()
	notification.CreatedAt = time.Now()

	log.Printf("[NOTIFICATION] Type=%s, Device=%s, Trip=%s, Message=%s",
		notification.Type, notification.DeviceID, notification.TripID, notification.Message)

	if s.publisher == nil {
		return nil
	}

	payload, err := json.Marshal(notification)
	if err != nil {
		return err
	}
	return s.publisher.Publish(ctx, notification.DeviceID, payload)
}
