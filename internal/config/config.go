package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	ServiceName string
	LogLevel    string
	HTTP        HTTPConfig
	Database    DatabaseConfig
	RabbitMQ    RabbitMQConfig
	Auth        AuthConfig
	Validation  ValidationConfig
	Anomaly     AnomalyConfig
	Reports     ReportsConfig
}

// HTTPConfig holds API listener settings
type HTTPConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL             string
	MaxConns        int
	MaxConnLifetime time.Duration
}

// RabbitMQConfig holds RabbitMQ connection and queue settings
type RabbitMQConfig struct {
	URL                 string
	EventsExchange      string
	AuditQueue          string
	AuditBindingKey     string
	DLQQueue            string
	SubmittedRoutingKey string
	VerifiedRoutingKey  string
	RejectedRoutingKey  string
	PrefetchCount       int
}

// AuthConfig holds bearer token settings
type AuthConfig struct {
	JWTSecret string
	Issuer    string
	TokenTTL  time.Duration
}

// ValidationConfig holds validation settings
type ValidationConfig struct {
	ReadingDateToleranceMinutes int
}

// AnomalyConfig holds anomaly detection settings
type AnomalyConfig struct {
	SpikeThreshold            float64
	MinDataPointsForDetection int
	HistoryWindow             int
}

// ReportsConfig holds limits applied to admin listings
type ReportsConfig struct {
	DefaultLimit int
	MaxLimit     int
}

// Load loads the API server configuration from environment variables
func Load() (*Config, error) {
	cfg := load()

	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required but not set in environment variables")
	}
	if cfg.RabbitMQ.URL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required but not set in environment variables")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("AUTH_JWT_SECRET is required but not set in environment variables")
	}

	return cfg, nil
}

// LoadWorker loads the audit worker configuration, which needs no auth settings
func LoadWorker() (*Config, error) {
	cfg := load()
	cfg.ServiceName = getEnv("SERVICE_NAME", "civic-kiosk-audit-worker")

	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required but not set in environment variables")
	}
	if cfg.RabbitMQ.URL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required but not set in environment variables")
	}

	return cfg, nil
}

// LoadAuth loads only the token settings, for tooling that signs tokens
func LoadAuth() (*AuthConfig, error) {
	cfg := load()
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("AUTH_JWT_SECRET is required but not set in environment variables")
	}
	return &cfg.Auth, nil
}

func load() *Config {
	return &Config{
		ServiceName: getEnv("SERVICE_NAME", "civic-kiosk-api"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		HTTP: HTTPConfig{
			Host:           getEnv("HTTP_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("HTTP_PORT", 8080),
			ReadTimeout:    getEnvAsDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("HTTP_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
			AllowedOrigins: getEnvAsList("HTTP_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DATABASE_MAX_CONNS", 10),
			MaxConnLifetime: getEnvAsDuration("DATABASE_MAX_CONN_LIFETIME", time.Hour),
		},
		RabbitMQ: RabbitMQConfig{
			URL:                 getEnv("RABBITMQ_URL", ""),
			EventsExchange:      getEnv("RABBITMQ_EVENTS_EXCHANGE", "civic-kiosk.readings.exchange"),
			AuditQueue:          getEnv("RABBITMQ_AUDIT_QUEUE", "civic-kiosk.readings.audit"),
			AuditBindingKey:     getEnv("RABBITMQ_AUDIT_BINDING_KEY", "meter.reading.*"),
			DLQQueue:            getEnv("RABBITMQ_DLQ_QUEUE", "civic-kiosk.readings.audit.dlq"),
			SubmittedRoutingKey: getEnv("RABBITMQ_SUBMITTED_ROUTING_KEY", "meter.reading.submitted"),
			VerifiedRoutingKey:  getEnv("RABBITMQ_VERIFIED_ROUTING_KEY", "meter.reading.verified"),
			RejectedRoutingKey:  getEnv("RABBITMQ_REJECTED_ROUTING_KEY", "meter.reading.rejected"),
			PrefetchCount:       getEnvAsInt("RABBITMQ_PREFETCH", 10),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", ""),
			Issuer:    getEnv("AUTH_ISSUER", "civic-kiosk"),
			TokenTTL:  getEnvAsDuration("AUTH_TOKEN_TTL", 12*time.Hour),
		},
		Validation: ValidationConfig{
			ReadingDateToleranceMinutes: getEnvAsInt("VALIDATION_READING_DATE_TOLERANCE_MINUTES", 10080),
		},
		Anomaly: AnomalyConfig{
			SpikeThreshold:            getEnvAsFloat("ANOMALY_SPIKE_THRESHOLD", 3.0),
			MinDataPointsForDetection: getEnvAsInt("ANOMALY_MIN_DATA_POINTS", 3),
			HistoryWindow:             getEnvAsInt("ANOMALY_HISTORY_WINDOW", 10),
		},
		Reports: ReportsConfig{
			DefaultLimit: getEnvAsInt("REPORTS_DEFAULT_LIMIT", 10),
			MaxLimit:     getEnvAsInt("REPORTS_MAX_LIMIT", 100),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsList(key string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
