package driving

import "time"

// DeviceClass distinguishes reporting hardware with different GPS noise floors.
type DeviceClass string

const (
	DeviceClassPhone   DeviceClass = "phone"
	DeviceClassVehicle DeviceClass = "vehicle"
)

// Config holds the thresholds that drive trip segmentation and event detection.
type Config struct {
	DrivingThresholdKmh float64       // speed at or above which a device is driving
	IdleTimeout         time.Duration // continuous sub-threshold time that ends a trip
	SampleInterval      time.Duration // nominal reporting interval; parked samples are kept every 2x

	HardBrakingMps2       float64 // fires below this (negative) acceleration
	RapidAccelerationMps2 float64
	SpeedLimitKmh         float64
	HarshTurnMinDeltaDeg  float64
	HarshTurnMinSpeedKmh  float64
	HarshTurnMinG         float64

	// MaxImpliedSpeedKmh rejects samples whose distance from the previous one
	// implies a faster speed. Zero disables the check.
	MaxImpliedSpeedKmh float64

	// Minimum displacement, in meters, that counts as significant movement.
	MinMovementPhoneM   float64
	MinMovementVehicleM float64
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		DrivingThresholdKmh:   15,
		IdleTimeout:           300 * time.Second,
		SampleInterval:        5 * time.Second,
		HardBrakingMps2:       -6.5,
		RapidAccelerationMps2: 3.5,
		SpeedLimitKmh:         120,
		HarshTurnMinDeltaDeg:  30,
		HarshTurnMinSpeedKmh:  30,
		HarshTurnMinG:         0.5,
		MaxImpliedSpeedKmh:    0,
		MinMovementPhoneM:     10,
		MinMovementVehicleM:   5,
	}
}

// MinMovement returns the significant-movement threshold for a device class.
// Unknown classes get the phone threshold.
func (c Config) MinMovement(class DeviceClass) float64 {
	if class == DeviceClassVehicle {
		return c.MinMovementVehicleM
	}
	return c.MinMovementPhoneM
}

// recordingGap is the elapsed time after which a non-driving sample is still recorded.
func (c Config) recordingGap() time.Duration {
	return 2 * c.SampleInterval
}
