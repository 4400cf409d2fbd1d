// Package config builds the service configuration from the environment once,
// at startup. The resulting struct is immutable; nothing re-reads the
// environment after Load.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

// Config is the full service configuration.
type Config struct {
	// RabbitMQ connection pieces; the URL is assembled by AMQPURL.
	RabbitLogin    string
	RabbitPassword string
	RabbitHost     string
	RabbitPort     string

	// HTTPPort is the listen port of the HTTP API.
	HTTPPort string

	// DBPath is the SQLite database file.
	DBPath string

	// JWTSecret enables bearer auth on the HTTP API when non-empty.
	JWTSecret string

	// AllowedClients is the client-IP allowlist for the HTTP API; empty
	// disables filtering.
	AllowedClients []string

	// UserServiceURL and CompanyServiceURL locate the platform services.
	UserServiceURL    string
	CompanyServiceURL string

	// ShutdownGrace bounds how long in-flight dispatches may run after a
	// stop signal.
	ShutdownGrace time.Duration
}

// Load reads the environment. Missing values fall back to development
// defaults, matching how the service runs in docker-compose.
func Load() (*Config, error) {
	grace, err := time.ParseDuration(getEnvOr("SHUTDOWN_GRACE", "30s"))
	if err != nil {
		return nil, fmt.Errorf("parse SHUTDOWN_GRACE: %w", err)
	}

	cfg := &Config{
		RabbitLogin:       getEnvOr("RABBITMQ_LOGIN", "guest"),
		RabbitPassword:    getEnvOr("RABBITMQ_PASSWORD", "guest"),
		RabbitHost:        getEnvOr("RABBITMQ_HOST", "localhost"),
		RabbitPort:        getEnvOr("RABBITMQ_PORT", "5672"),
		HTTPPort:          getEnvOr("HTTP_PORT", "8000"),
		DBPath:            getEnvOr("DB_PATH", "payment.db"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		AllowedClients:    splitList(os.Getenv("ALLOWED_CLIENTS")),
		UserServiceURL:    getEnvOr("USER_SERVICE_URL", "http://localhost:8001"),
		CompanyServiceURL: getEnvOr("COMPANY_SERVICE_URL", "http://localhost:8002"),
		ShutdownGrace:     grace,
	}

	return cfg, nil
}

// AMQPURL assembles the broker URL from the connection pieces. Credentials
// are escaped, so passwords with reserved characters survive.
func (c *Config) AMQPURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/",
		url.QueryEscape(c.RabbitLogin),
		url.QueryEscape(c.RabbitPassword),
		c.RabbitHost,
		c.RabbitPort,
	)
}

// getEnvOr returns the environment value for key, or fallback when unset.
func getEnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

// splitList parses a comma-separated list, trimming blanks.
func splitList(v string) []string {
	if v == "" {
		return nil
	}

	var out []string

	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}

	return out
}
