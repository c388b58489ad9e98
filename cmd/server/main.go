// Package main implements the entry point for the Capsule API server,
// which lets users seal text, image and video capsules until a future
// open date and deliver them to themselves or other registered users.
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/digicapsule/capsule-api/internal/config"
	"github.com/digicapsule/capsule-api/internal/platform/logger"
)

// main is the entry point for the capsule-api server.
// It loads configuration, sets up logging, wires application dependencies
// and runs the HTTP server until a shutdown signal arrives.
func main() {
	if err := run(); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(logger.LoggerConfig{Level: cfg.Server.LogLevel})
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	appLogger.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel)

	app, err := newApplication(ctx, cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	router := app.setupRouter()
	return app.startHTTPServer(ctx, router)
}
