package repository

import (
	"context"

	"tracker/internal/domain"
)

// TripRepository defines the persistence operations for finalized trips.
type TripRepository interface {
	// Create persists a finalized trip with its waypoints, events and stats.
	Create(ctx context.Context, rec *domain.TripRecord) error

	// GetByID retrieves a trip with waypoints and events.
	GetByID(ctx context.Context, id string) (*domain.TripRecord, error)

	// ListByDevice retrieves a device's trips, newest first, without
	// waypoints or events.
	ListByDevice(ctx context.Context, deviceID string, limit int) ([]*domain.TripRecord, error)
}
