// Package logging configures colored structured logging with tint.
//
// Usage:
//
//	logging.Setup()                          // level from LOG_LEVEL env
//	logging.SetupWithLevel(slog.LevelDebug)  // explicit level override
//	logger := logging.GormLogger("warn")     // gorm logger writing through slog
//
// Environment variables:
//
//	LOG_LEVEL: debug, info, warn, error (default: info)
package logging

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	gormlogger "gorm.io/gorm/logger"
)

// Setup configures colored logging at the level specified by LOG_LEVEL env var
// (default: INFO).
func Setup() {
	SetupWithLevel(ParseLevel(os.Getenv("LOG_LEVEL")))
}

// SetupWithLevel configures colored logging at the given level.
func SetupWithLevel(level slog.Level) {
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		}),
	))
}

// ParseLevel maps a level name onto a slog level, defaulting to INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GormLogger returns a gorm logger that writes through the default slog handler.
// level is one of silent, error, warn, info.
func GormLogger(level string) gormlogger.Interface {
	var logLevel gormlogger.LogLevel
	var slogLevel slog.Level
	switch strings.ToLower(level) {
	case "silent":
		logLevel, slogLevel = gormlogger.Silent, slog.LevelDebug
	case "error":
		logLevel, slogLevel = gormlogger.Error, slog.LevelError
	case "info":
		logLevel, slogLevel = gormlogger.Info, slog.LevelInfo
	default:
		logLevel, slogLevel = gormlogger.Warn, slog.LevelWarn
	}

	return gormlogger.New(
		slog.NewLogLogger(slog.Default().Handler(), slogLevel),
		gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}
