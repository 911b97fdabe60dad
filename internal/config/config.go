package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all process configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Provider  ProviderConfig
	Scheduler SchedulerConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	URL             string
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// ProviderConfig holds external weather provider settings
type ProviderConfig struct {
	APIKey    string
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64 // requests per second to the provider
	Burst     int
}

// SchedulerConfig holds ingestion scheduling settings
type SchedulerConfig struct {
	CurrentWeatherIntervalHours int
	ForecastIntervalHours       int
	MisfireGrace                time.Duration
}

// LoggingConfig holds log output settings
type LoggingConfig struct {
	Level string
}

// LoadConfig reads configuration from the environment, consulting a .env file
// when present.
func LoadConfig() (*Config, error) {
	// A missing .env file is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        os.Getenv("DB_PASSWORD"),
			Database:        getEnv("DB_NAME", "weather_pipeline"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Provider: ProviderConfig{
			APIKey:    os.Getenv("WEATHER_API_KEY"),
			BaseURL:   getEnv("WEATHER_API_BASE_URL", "https://api.openweathermap.org"),
			Timeout:   getEnvDuration("WEATHER_API_TIMEOUT", 15*time.Second),
			RateLimit: getEnvFloat("WEATHER_API_RATE_LIMIT", 5),
			Burst:     getEnvInt("WEATHER_API_BURST", 10),
		},
		Scheduler: SchedulerConfig{
			CurrentWeatherIntervalHours: getEnvInt("CURRENT_WEATHER_INTERVAL_HOURS", 1),
			ForecastIntervalHours:       getEnvInt("FORECAST_INTERVAL_HOURS", 3),
			MisfireGrace:                time.Duration(getEnvInt("MISFIRE_GRACE_SECONDS", 300)) * time.Second,
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	return cfg, nil
}

// Validate checks that required settings are present and sane
func (c *Config) Validate() error {
	if c.Provider.APIKey == "" {
		return fmt.Errorf("WEATHER_API_KEY is required")
	}
	if c.Database.URL == "" && c.Database.Password == "" {
		return fmt.Errorf("either DATABASE_URL or DB_PASSWORD must be set")
	}
	if c.Scheduler.CurrentWeatherIntervalHours <= 0 {
		return fmt.Errorf("CURRENT_WEATHER_INTERVAL_HOURS must be positive")
	}
	if c.Scheduler.ForecastIntervalHours <= 0 {
		return fmt.Errorf("FORECAST_INTERVAL_HOURS must be positive")
	}
	if c.Scheduler.MisfireGrace < 0 {
		return fmt.Errorf("MISFIRE_GRACE_SECONDS must not be negative")
	}
	if c.Provider.RateLimit <= 0 {
		return fmt.Errorf("WEATHER_API_RATE_LIMIT must be positive")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
