// Package config reads all service configuration from the environment once at
// startup. Collaborators receive explicit Config values; nothing reads the
// environment after boot.
package config

import "os"

// Database holds PostgreSQL connection settings.
type Database struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// Config is the full service configuration.
type Config struct {
	// Addr is the listen address for the HTTP server, e.g. ":8080".
	Addr string
	// LogLevel is a zerolog level name: debug, info, warn, error.
	LogLevel string
	DB       Database
}

// FromEnv builds a Config from well-known environment variables, falling back
// to local-development defaults.
func FromEnv() Config {
	return Config{
		Addr:     ":" + getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		DB: Database{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "floracollective"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
