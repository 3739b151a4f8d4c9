package config

import (
	"os"
	"strconv"
	"time"

	"tracker/internal/driving"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NewRelic NewRelicConfig
	Engine   EngineConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port        string
	ReadTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	// AutoMigrate applies the embedded schema at startup.
	AutoMigrate  bool
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// IngestLockTTL bounds how long one instance holds a device while applying a sample.
	IngestLockTTL time.Duration
	// IdempotencyTTL is how long a replayable response is kept per Idempotency-Key.
	IdempotencyTTL time.Duration
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// EngineConfig holds the trip segmentation and event detection thresholds.
type EngineConfig struct {
	DrivingThresholdKmh   float64
	IdleTimeout           time.Duration
	SampleInterval        time.Duration
	HardBrakingMps2       float64
	RapidAccelerationMps2 float64
	SpeedLimitKmh         float64
	HarshTurnMinDeltaDeg  float64
	HarshTurnMinSpeedKmh  float64
	HarshTurnMinG         float64
	MaxImpliedSpeedKmh    float64
	MinMovementPhoneM     float64
	MinMovementVehicleM   float64
}

// Driving converts the engine settings into the engine's own config type.
func (e EngineConfig) Driving() driving.Config {
	return driving.Config{
		DrivingThresholdKmh:   e.DrivingThresholdKmh,
		IdleTimeout:           e.IdleTimeout,
		SampleInterval:        e.SampleInterval,
		HardBrakingMps2:       e.HardBrakingMps2,
		RapidAccelerationMps2: e.RapidAccelerationMps2,
		SpeedLimitKmh:         e.SpeedLimitKmh,
		HarshTurnMinDeltaDeg:  e.HarshTurnMinDeltaDeg,
		HarshTurnMinSpeedKmh:  e.HarshTurnMinSpeedKmh,
		HarshTurnMinG:         e.HarshTurnMinG,
		MaxImpliedSpeedKmh:    e.MaxImpliedSpeedKmh,
		MinMovementPhoneM:     e.MinMovementPhoneM,
		MinMovementVehicleM:   e.MinMovementVehicleM,
	}
}

// Load loads configuration from environment variables.
func Load() *Config {
	d := driving.DefaultConfig()

	return &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			ReadTimeout: getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			DBName:       getEnv("DB_NAME", "tracker"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			AutoMigrate:  getBoolEnv("DB_AUTO_MIGRATE", true),
			MaxOpenConns: getIntEnv("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns: getIntEnv("DB_MAX_IDLE_CONNS", 25),
		},
		Redis: RedisConfig{
			Addr:           getEnv("REDIS_ADDR", "localhost:6379"),
			Password:       getEnv("REDIS_PASSWORD", ""),
			DB:             getIntEnv("REDIS_DB", 0),
			IngestLockTTL:  getDurationEnv("REDIS_INGEST_LOCK_TTL", 2*time.Second),
			IdempotencyTTL: getDurationEnv("REDIS_IDEMPOTENCY_TTL", 24*time.Hour),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "trip-engine"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Engine: EngineConfig{
			DrivingThresholdKmh:   getFloatEnv("ENGINE_DRIVING_THRESHOLD_KMH", d.DrivingThresholdKmh),
			IdleTimeout:           getDurationEnv("ENGINE_IDLE_TIMEOUT", d.IdleTimeout),
			SampleInterval:        getDurationEnv("ENGINE_SAMPLE_INTERVAL", d.SampleInterval),
			HardBrakingMps2:       getFloatEnv("ENGINE_HARD_BRAKING_MPS2", d.HardBrakingMps2),
			RapidAccelerationMps2: getFloatEnv("ENGINE_RAPID_ACCELERATION_MPS2", d.RapidAccelerationMps2),
			SpeedLimitKmh:         getFloatEnv("ENGINE_SPEED_LIMIT_KMH", d.SpeedLimitKmh),
			HarshTurnMinDeltaDeg:  getFloatEnv("ENGINE_HARSH_TURN_MIN_DELTA_DEG", d.HarshTurnMinDeltaDeg),
			HarshTurnMinSpeedKmh:  getFloatEnv("ENGINE_HARSH_TURN_MIN_SPEED_KMH", d.HarshTurnMinSpeedKmh),
			HarshTurnMinG:         getFloatEnv("ENGINE_HARSH_TURN_MIN_G", d.HarshTurnMinG),
			MaxImpliedSpeedKmh:    getFloatEnv("ENGINE_MAX_IMPLIED_SPEED_KMH", d.MaxImpliedSpeedKmh),
			MinMovementPhoneM:     getFloatEnv("ENGINE_MIN_MOVEMENT_PHONE_M", d.MinMovementPhoneM),
			MinMovementVehicleM:   getFloatEnv("ENGINE_MIN_MOVEMENT_VEHICLE_M", d.MinMovementVehicleM),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
