package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Black-And-White-Club/ringside/app"
	"github.com/Black-And-White-Club/ringside/config"
	"github.com/Black-And-White-Club/ringside/pkg/observability"
	"github.com/joho/godotenv"
)

// version is set with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	configFile := flag.String("config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to load .env: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	obs, err := observability.Init(ctx, config.ToObsConfig(cfg, version))
	if err != nil {
		log.Fatalf("Failed to initialize observability: %v", err)
	}
	logger := obs.Provider.Logger
	logger.Info("Starting ringside", "version", version)

	application := &app.App{}
	if err := application.Initialize(ctx, cfg, obs); err != nil {
		logger.Error("Failed to initialize application", "error", err)
		_ = application.Close()
		os.Exit(1)
	}

	runErr := application.Run(ctx)
	if runErr != nil {
		logger.Error("Application stopped with error", "error", runErr)
	}

	logger.Info("Shutting down ringside")
	if err := application.Close(); err != nil {
		logger.Error("Error during shutdown", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := obs.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to flush telemetry", "error", err)
	}

	if runErr != nil {
		os.Exit(1)
	}
}
