package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/localnerve/gestionale/internal/config"
	"gorm.io/gorm"
)

// Pinger is a dependency that can report its reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status       string            `json:"status"`
	Database     string            `json:"database"`
	Redis        string            `json:"redis"`
	Connections  int               `json:"connections"`
	Details      map[string]string `json:"details,omitempty"`
	ErrorMessage string            `json:"error,omitempty"`
}

func (r *HealthCheckResult) fail(msg string) {
	r.Status = "unhealthy"
	if r.ErrorMessage == "" {
		r.ErrorMessage = msg
	} else {
		r.ErrorMessage += "; " + msg
	}
}

// HealthCheck pings the database and, when configured, the push relay. redis may be nil.
func HealthCheck(ctx context.Context, cfg *config.Config, db *gorm.DB, redis Pinger, connections int) HealthCheckResult {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result := HealthCheckResult{
		Status:      "healthy",
		Redis:       "disabled",
		Connections: connections,
		Details:     make(map[string]string),
	}

	// Check database connectivity
	sqlDB, err := db.DB()
	if err != nil {
		result.Database = "error"
		result.Details["database_error"] = err.Error()
		result.fail(fmt.Sprintf("Database connection error: %v", err))
		slog.Error("health check failed", "component", "database", "error", err)
	} else if err := sqlDB.PingContext(ctx); err != nil {
		result.Database = "unreachable"
		result.Details["database_ping_error"] = err.Error()
		result.fail(fmt.Sprintf("Database ping failed: %v", err))
		slog.Error("health check failed", "component", "database", "error", err)
	} else {
		result.Database = "ok"
		result.Details["database_type"] = cfg.DBType
		result.Details["database_name"] = cfg.DBDatabase
	}

	if redis != nil {
		if err := redis.Ping(ctx); err != nil {
			result.Redis = "unreachable"
			result.Details["redis_error"] = err.Error()
			result.fail(fmt.Sprintf("Redis ping failed: %v", err))
			slog.Error("health check failed", "component", "redis", "error", err)
		} else {
			result.Redis = "ok"
		}
	}

	if result.Status == "healthy" {
		slog.Debug("health check passed", "connections", connections)
	}

	return result
}
