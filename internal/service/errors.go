package service

import "errors"

var (
	// ErrInvalidDeviceID is returned when device ID is empty.
	ErrInvalidDeviceID = errors.New("invalid device id")

	// ErrInvalidTripID is returned when trip ID is empty.
	ErrInvalidTripID = errors.New("invalid trip id")

	// ErrInvalidLocation is returned when query coordinates are out of range.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrInvalidRadius is returned when a search radius is not positive.
	ErrInvalidRadius = errors.New("invalid radius")

	// ErrDeviceBusy is returned when another instance holds the device's ingest lock.
	ErrDeviceBusy = errors.New("device is being processed elsewhere")

	// ErrNoActiveTrip is returned when a tracked device has no open trip.
	ErrNoActiveTrip = errors.New("device has no active trip")
)
