package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"tracker/internal/domain"
	"tracker/internal/repository"
)

// PostgreSQL error codes.
const (
	uniqueViolation           = "23505"
	invalidTextRepresentation = "22P02" // e.g. a malformed UUID
)

func hasCode(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}

// TripRepository is a PostgreSQL implementation of repository.TripRepository.
type TripRepository struct {
	db *sql.DB
	q  Querier
}

// NewTripRepository creates a new PostgreSQL trip repository.
func NewTripRepository(db *sql.DB) *TripRepository {
	return &TripRepository{db: db, q: db}
}

// NewTripRepositoryWithTx creates a trip repository using a transaction.
func NewTripRepositoryWithTx(tx *sql.Tx) *TripRepository {
	return &TripRepository{q: tx}
}

// Create persists a finalized trip. Trip, waypoints and events are written in
// one transaction unless the repository is already bound to one.
func (r *TripRepository) Create(ctx context.Context, rec *domain.TripRecord) (err error) {
	if r.db == nil {
		return r.insert(ctx, rec)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = NewTripRepositoryWithTx(tx).insert(ctx, rec); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *TripRepository) insert(ctx context.Context, rec *domain.TripRecord) error {
	trip, stats := rec.Trip, rec.Stats

	var endLat, endLng sql.NullFloat64
	if trip.End != nil {
		endLat = sql.NullFloat64{Float64: trip.End.Lat, Valid: true}
		endLng = sql.NullFloat64{Float64: trip.End.Lng, Valid: true}
	}
	var endedAt sql.NullTime
	if !trip.EndedAt.IsZero() {
		endedAt = sql.NullTime{Time: trip.EndedAt, Valid: true}
	}

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO trips (id, device_id, start_lat, start_lng, end_lat, end_lng, started_at, ended_at,
			total_distance_m, max_speed_kmh, avg_speed_kmh, driving_seconds, safety_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		trip.ID,
		trip.DeviceID,
		trip.Start.Lat,
		trip.Start.Lng,
		endLat,
		endLng,
		trip.StartedAt,
		endedAt,
		stats.TotalDistanceM,
		stats.MaxSpeedKmh,
		stats.AverageSpeedKmh,
		int64(stats.TotalDrivingTime.Seconds()),
		stats.SafetyScore,
	)
	if err != nil {
		if hasCode(err, uniqueViolation) {
			return fmt.Errorf("%w: trip %s", repository.ErrConflict, trip.ID)
		}
		return err
	}

	if err := r.copyWaypoints(ctx, trip); err != nil {
		return err
	}

	for i, e := range trip.Events {
		_, err := r.q.ExecContext(ctx, `
			INSERT INTO driving_events (id, trip_id, seq, device_id, type, severity, lat, lng, speed_kmh, magnitude, description, occurred_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, e.ID, trip.ID, i, e.DeviceID, e.Type, e.Severity, e.Lat, e.Lng, e.SpeedKmh, e.Magnitude, e.Description, e.OccurredAt)
		if err != nil {
			return err
		}
	}

	return nil
}

// copyWaypoints bulk-loads the trip's waypoints with COPY.
func (r *TripRepository) copyWaypoints(ctx context.Context, trip *domain.Trip) error {
	if len(trip.Waypoints) == 0 {
		return nil
	}

	stmt, err := r.q.PrepareContext(ctx, pq.CopyIn("trip_waypoints",
		"trip_id", "seq", "lat", "lng", "accuracy_m", "altitude_m",
		"speed_kmh", "heading_deg", "acceleration_mps2", "recorded_at",
	))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, wp := range trip.Waypoints {
		if _, err := stmt.ExecContext(ctx,
			trip.ID, i, wp.Lat, wp.Lng,
			nullFloat(wp.AccuracyM), nullFloat(wp.AltitudeM), nullFloat(wp.SpeedKmh),
			nullFloat(wp.HeadingDeg), nullFloat(wp.AccelerationMps2), wp.Timestamp,
		); err != nil {
			return err
		}
	}

	// Flush buffered rows.
	_, err = stmt.ExecContext(ctx)
	return err
}

const tripColumns = `id, device_id, start_lat, start_lng, end_lat, end_lng, started_at, ended_at,
	total_distance_m, max_speed_kmh, avg_speed_kmh, driving_seconds, safety_score`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrip(row rowScanner) (*domain.TripRecord, error) {
	var trip domain.Trip
	var stats domain.TripStats
	var endLat, endLng sql.NullFloat64
	var endedAt sql.NullTime
	var drivingSeconds int64

	if err := row.Scan(
		&trip.ID,
		&trip.DeviceID,
		&trip.Start.Lat,
		&trip.Start.Lng,
		&endLat,
		&endLng,
		&trip.StartedAt,
		&endedAt,
		&stats.TotalDistanceM,
		&stats.MaxSpeedKmh,
		&stats.AverageSpeedKmh,
		&drivingSeconds,
		&stats.SafetyScore,
	); err != nil {
		return nil, err
	}

	if endLat.Valid && endLng.Valid {
		trip.End = &domain.Location{Lat: endLat.Float64, Lng: endLng.Float64}
	}
	if endedAt.Valid {
		trip.EndedAt = endedAt.Time
	}
	trip.IsActive = trip.EndedAt.IsZero()
	stats.TotalDrivingTime = time.Duration(drivingSeconds) * time.Second

	return &domain.TripRecord{Trip: &trip, Stats: stats}, nil
}

// GetByID retrieves a trip with its waypoints and events.
func (r *TripRepository) GetByID(ctx context.Context, id string) (*domain.TripRecord, error) {
	rec, err := scanTrip(r.q.QueryRowContext(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || hasCode(err, invalidTextRepresentation) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	if rec.Trip.Waypoints, err = r.waypoints(ctx, id); err != nil {
		return nil, err
	}
	if rec.Trip.Events, err = r.events(ctx, id); err != nil {
		return nil, err
	}

	return rec, nil
}

// ListByDevice retrieves a device's trips, newest first.
func (r *TripRepository) ListByDevice(ctx context.Context, deviceID string, limit int) ([]*domain.TripRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.q.QueryContext(ctx, `
		SELECT `+tripColumns+`
		FROM trips WHERE device_id = $1
		ORDER BY started_at DESC LIMIT $2
	`, deviceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*domain.TripRecord
	for rows.Next() {
		rec, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}

	return recs, rows.Err()
}

func (r *TripRepository) waypoints(ctx context.Context, tripID string) ([]domain.Waypoint, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT lat, lng, accuracy_m, altitude_m, speed_kmh, heading_deg, acceleration_mps2, recorded_at
		FROM trip_waypoints WHERE trip_id = $1
		ORDER BY seq
	`, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var wps []domain.Waypoint
	for rows.Next() {
		var wp domain.Waypoint
		var accuracy, altitude, speed, heading, accel sql.NullFloat64
		if err := rows.Scan(&wp.Lat, &wp.Lng, &accuracy, &altitude, &speed, &heading, &accel, &wp.Timestamp); err != nil {
			return nil, err
		}
		wp.AccuracyM = floatPtr(accuracy)
		wp.AltitudeM = floatPtr(altitude)
		wp.SpeedKmh = floatPtr(speed)
		wp.HeadingDeg = floatPtr(heading)
		wp.AccelerationMps2 = floatPtr(accel)
		wps = append(wps, wp)
	}

	return wps, rows.Err()
}

func (r *TripRepository) events(ctx context.Context, tripID string) ([]domain.DrivingEvent, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, trip_id, device_id, type, severity, lat, lng, speed_kmh, magnitude, description, occurred_at
		FROM driving_events WHERE trip_id = $1
		ORDER BY seq
	`, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.DrivingEvent
	for rows.Next() {
		var e domain.DrivingEvent
		if err := rows.Scan(&e.ID, &e.TripID, &e.DeviceID, &e.Type, &e.Severity, &e.Lat, &e.Lng,
			&e.SpeedKmh, &e.Magnitude, &e.Description, &e.OccurredAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

// Ensure TripRepository implements repository.TripRepository.
var _ repository.TripRepository = (*TripRepository)(nil)
