package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/localnerve/gestionale/internal/auth"
	"github.com/localnerve/gestionale/internal/config"
	"github.com/localnerve/gestionale/internal/database"
	"github.com/localnerve/gestionale/internal/email"
	"github.com/localnerve/gestionale/internal/metrics"
	"github.com/localnerve/gestionale/internal/notify"
	"github.com/localnerve/gestionale/internal/push"
	"github.com/localnerve/gestionale/internal/server"
	"github.com/localnerve/gestionale/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"

	_ "github.com/localnerve/gestionale/docs/api" // Swagger docs
)

// @title Gestionale API
// @version 1.0.0
// @description Shared expenses, shopping lists and workout cards backend
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/localnerve/gestionale
// @contact.email info@localnerve.com

// @license.name AGPL-3.0
// @license.url https://www.gnu.org/licenses/agpl-3.0.html

// @host localhost:8000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	logging.Setup()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close(db)

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := push.NewRegistry()
	m := metrics.New(prometheus.DefaultRegisterer, registry.Connections)
	opts := []notify.Option{notify.WithMetrics(m)}

	deps := server.Deps{
		Config:    cfg,
		DB:        db,
		JWT:       auth.NewJWTManager(cfg.SecretKey, cfg.AccessTokenExpiry),
		Registry:  registry,
		Metrics:   true,
		AccessLog: true,
	}

	// Cross-instance push relay
	if cfg.RedisURL != "" {
		relay, err := push.NewRelay(cfg.RedisURL, registry)
		if err != nil {
			slog.Error("failed to create push relay", "error", err)
			os.Exit(1)
		}
		defer relay.Close()

		go func() {
			if err := relay.Run(ctx); err != nil {
				slog.Error("push relay stopped", "error", err)
			}
		}()
		opts = append(opts, notify.WithRelay(relay))
		deps.Redis = relay
	} else {
		slog.Info("push relay disabled: REDIS_URL not configured")
	}
	deps.Dispatcher = notify.NewDispatcher(db, registry, opts...)

	mailer, err := email.NewService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.FrontendURL)
	if err != nil {
		slog.Error("failed to create email service", "error", err)
		os.Exit(1)
	}
	deps.Mailer = mailer

	if google := auth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL); google != nil {
		deps.Google = google
	} else {
		slog.Info("google login disabled: GOOGLE_CLIENT_ID or GOOGLE_CLIENT_SECRET not configured")
	}

	app := server.New(deps)

	// Graceful shutdown
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigs
		slog.Info("gracefully shutting down")
		cancel()
		if err := app.ShutdownWithTimeout(server.ShutdownTimeout); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	// Start server
	slog.Info("starting server", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		slog.Error("failed to start server", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}
