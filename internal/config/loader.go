package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the calendar service.
type Config struct {
	HTTPPort              int
	SQLiteDSN             string
	SessionTTL            time.Duration
	MaintenanceSchedule   string
	NotificationRetention time.Duration
	LogLevel              string
}

// Load parses configuration values from the current process environment.
//
// The loader applies defaults for every optional field and accumulates the
// names of invalid entries so that a misconfigured deployment fails with one
// complete message instead of the first problem found.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:              8080,
		SQLiteDSN:             "file:flowfly.db?_foreign_keys=on",
		SessionTTL:            24 * time.Hour,
		MaintenanceSchedule:   "0 3 * * *",
		NotificationRetention: 30 * 24 * time.Hour,
		LogLevel:              "info",
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("FLOWFLY_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "FLOWFLY_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("FLOWFLY_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if ttlValue := strings.TrimSpace(os.Getenv("FLOWFLY_SESSION_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "FLOWFLY_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if schedule := strings.TrimSpace(os.Getenv("FLOWFLY_MAINTENANCE_SCHEDULE")); schedule != "" {
		cfg.MaintenanceSchedule = schedule
	}

	if retentionValue := strings.TrimSpace(os.Getenv("FLOWFLY_NOTIFICATION_RETENTION")); retentionValue != "" {
		retention, err := time.ParseDuration(retentionValue)
		if err != nil || retention <= 0 {
			invalid = append(invalid, "FLOWFLY_NOTIFICATION_RETENTION")
		} else {
			cfg.NotificationRetention = retention
		}
	}

	if level := strings.TrimSpace(os.Getenv("FLOWFLY_LOG_LEVEL")); level != "" {
		switch strings.ToLower(level) {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = strings.ToLower(level)
		default:
			invalid = append(invalid, "FLOWFLY_LOG_LEVEL")
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variables: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
