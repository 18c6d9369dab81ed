package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"

	httpapi "github.com/i474232898/whoop-data-sync/internal/api/http"
	"github.com/i474232898/whoop-data-sync/internal/config"
	"github.com/i474232898/whoop-data-sync/internal/logging"
	"github.com/i474232898/whoop-data-sync/internal/scheduler"
	"github.com/i474232898/whoop-data-sync/internal/store"
	"github.com/i474232898/whoop-data-sync/internal/whoop"
)

func main() {
	// Load configuration. Missing credentials abort before anything is armed.
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logging.Init(cfg.LogLevel, cfg.LogFormat)

	// Shared HTTP client for outbound vendor calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Local DuckDB store, schema bootstrapped on open.
	recordStore, err := store.Open(cfg.DBPath, cfg.Timezone)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open record store")
	}
	defer recordStore.Close()

	// Each fetch cycle opens its own authenticated vendor session.
	newSession := func(ctx context.Context) (whoop.Session, error) {
		client := whoop.NewClient(whoop.ClientConfig{
			Username:   cfg.Username,
			Password:   cfg.Password,
			AuthURL:    cfg.AuthURL,
			APIURL:     cfg.APIURL,
			HTTPClient: httpClient,
		})
		if err := client.Authenticate(ctx); err != nil {
			client.Close()
			return nil, err
		}
		return client, nil
	}

	// Core service orchestrating fetch cycles and reads.
	service := whoop.NewService(recordStore, newSession, cfg.Timezone)

	// Scheduler runs cycle 0 synchronously so the store is warm before the
	// API starts serving, then fires at the configured interval.
	sched := scheduler.New(service, cfg.FetchInterval)
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "whoop-data-sync",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(fiberlogger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "whoop-data-sync",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, service)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error().Err(err).Msg("fiber server stopped")
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
}
