// Package config loads the audit service's configuration from environment
// variables, following the same Load()-with-defaults shape the rest of the
// platform's services use.
package config

import (
	"os"
	"strconv"
)

// Config holds the audit service's runtime configuration.
type Config struct {
	Port     string
	LogLevel string

	DatabaseURL string

	AuthServiceURL         string
	LocationServiceURL     string
	InventoryServiceURL    string
	NotificationServiceURL string
	NotificationSecret     string

	RedisAddr string

	RoleSystemAdmin string
	RoleAuditor     string
	RoleSupervisor  string

	RateLimitRPS   int
	RateLimitBurst int
}

// Load reads configuration from the environment, falling back to sane
// local-dev defaults for anything unset.
func Load() *Config {
	return &Config{
		Port:     getenv("PORT", "8085"),
		LogLevel: getenv("LOG_LEVEL", "INFO"),

		DatabaseURL: getenv("AUDIT_DATABASE_URL", getenv("DATABASE_URL", "postgres://audit@localhost:5432/inventory_audit?sslmode=disable")),

		AuthServiceURL:         getenv("AUTH_SERVICE_URL", "http://auth-service:8000"),
		LocationServiceURL:     getenv("LOCATION_SERVICE_URL", "http://location-service:8000"),
		InventoryServiceURL:    getenv("INVENTORY_SERVICE_URL", "http://inventory-service:8000"),
		NotificationServiceURL: getenv("NOTIFICATION_SERVICE_URL", "http://notification-service:8000"),
		NotificationSecret:     getenv("NOTIFICATION_SHARED_SECRET", ""),

		RedisAddr: getenv("REDIS_ADDR", ""),

		RoleSystemAdmin: getenv("SYSTEM_ADMIN_ROLE", "system_admin"),
		RoleAuditor:     getenv("AUDIT_AUDITOR_ROLE", "audit_auditor"),
		RoleSupervisor:  getenv("AUDIT_SUPERVISOR_ROLE", "audit_supervisor"),

		RateLimitRPS:   getenvInt("RATE_LIMIT_RPS", 20),
		RateLimitBurst: getenvInt("RATE_LIMIT_BURST", 40),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
