package driving

import "errors"

var (
	// ErrInvalidSample is returned when a sample is dropped: non-monotonic
	// timestamp, coordinates out of range, or an implausible jump.
	ErrInvalidSample = errors.New("invalid sample")

	// ErrUnknownDevice is returned when no driving state exists for a device.
	ErrUnknownDevice = errors.New("unknown device")
)
