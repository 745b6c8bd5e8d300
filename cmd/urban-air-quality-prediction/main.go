package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/Sylvester04556/Urban-Air-Quality-Prediction/internal/api/http"
	"github.com/Sylvester04556/Urban-Air-Quality-Prediction/internal/config"
	"github.com/Sylvester04556/Urban-Air-Quality-Prediction/internal/features"
	"github.com/Sylvester04556/Urban-Air-Quality-Prediction/internal/pipeline"
	"github.com/Sylvester04556/Urban-Air-Quality-Prediction/internal/predictor"
	"github.com/Sylvester04556/Urban-Air-Quality-Prediction/internal/scheduler"
	"github.com/Sylvester04556/Urban-Air-Quality-Prediction/internal/store"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Build the prediction pipeline from on-disk artifacts. Missing
	// artifacts are fatal at startup.
	build := func() (*pipeline.Pipeline, error) {
		return buildPipeline(cfg)
	}

	pl, err := build()
	if err != nil {
		log.Fatalf("failed to build prediction pipeline: %v", err)
	}
	registry := pipeline.NewRegistry(pl)

	// In-memory history of served predictions with configured retention.
	history := store.NewMemoryStore(cfg.HistoryMaxRecords, cfg.HistoryMaxAge)

	// Reloader that swaps in a rebuilt pipeline when artifacts change.
	reloader := scheduler.New(registry, build, cfg.ModelsDir, []string{
		cfg.ScalerPath,
		cfg.FeatureNamesPath,
		cfg.LocationLookupPath,
		cfg.MediansPath,
	}, cfg.ReloadInterval)
	if err := reloader.Start(); err != nil {
		log.Fatalf("failed to start artifact reloader: %v", err)
	}
	defer reloader.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "urban-air-quality-prediction",
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
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "urban-air-quality-prediction",
			"model":   registry.Current().Info().Model.ModelName,
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, registry, history)

	// Start server with graceful shutdown
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}

// buildPipeline loads every artifact once and assembles an immutable
// pipeline value.
func buildPipeline(cfg *config.AppConfig) (*pipeline.Pipeline, error) {
	defaults, err := features.LoadDefaults(cfg.LocationLookupPath, cfg.MediansPath)
	if err != nil {
		return nil, err
	}

	pred, err := predictor.New(predictor.Options{
		ModelsDir:        cfg.ModelsDir,
		ScalerPath:       cfg.ScalerPath,
		FeatureNamesPath: cfg.FeatureNamesPath,
	})
	if err != nil {
		return nil, err
	}

	return pipeline.New(defaults, features.NewEngineer(), pred), nil
}
