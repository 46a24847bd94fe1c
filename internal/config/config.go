package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NewRelic NewRelicConfig
	Maps     MapsConfig
	Dispatch DispatchConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// MapsConfig holds the geocoding provider endpoint.
type MapsConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// DispatchConfig holds dispatch policy. The booleans and the offer TTL are
// deliberate policy switches, not hardwired behavior: the observed design
// auto-activates drivers on location updates, never expires offers and never
// deactivates on disconnect, and each of those is worth being able to revisit
// per deployment.
type DispatchConfig struct {
	SearchRadiusKm float64 // offer fan-out radius around pickup
	CancelRadiusKm float64 // narrower re-query radius for cancel notices
	FanoutWorkers  int
	QueueSize      int
	TripCodeDigits int

	AutoActivateOnLocation bool          // location update flips driver active
	DeactivateOnDisconnect bool          // socket loss flips driver inactive
	OfferTTL               time.Duration // 0 = offers never expire
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "quickrides"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "quickrides-dispatch"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Maps: MapsConfig{
			BaseURL: getEnv("MAPS_BASE_URL", "http://localhost:9090"),
			APIKey:  getEnv("MAPS_API_KEY", ""),
			Timeout: getDurationEnv("MAPS_TIMEOUT", 5*time.Second),
		},
		Dispatch: DispatchConfig{
			SearchRadiusKm:         getFloatEnv("DISPATCH_SEARCH_RADIUS_KM", 50),
			CancelRadiusKm:         getFloatEnv("DISPATCH_CANCEL_RADIUS_KM", 4),
			FanoutWorkers:          getIntEnv("DISPATCH_FANOUT_WORKERS", 4),
			QueueSize:              getIntEnv("DISPATCH_QUEUE_SIZE", 256),
			TripCodeDigits:         getIntEnv("DISPATCH_TRIP_CODE_DIGITS", 6),
			AutoActivateOnLocation: getBoolEnv("DISPATCH_AUTO_ACTIVATE_ON_LOCATION", true),
			DeactivateOnDisconnect: getBoolEnv("DISPATCH_DEACTIVATE_ON_DISCONNECT", false),
			OfferTTL:               getDurationEnv("DISPATCH_OFFER_TTL", 0),
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
