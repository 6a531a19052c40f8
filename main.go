package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"abtester/adapters/api"
	"abtester/adapters/stats/primitives"
	"abtester/internal"
	"abtester/internal/config"
	"abtester/internal/decision"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := internal.NewLogger(internal.ParseLogLevel(appConfig.Log.Level))
	engine := decision.NewEngine(primitives.New(), decision.WithLogger(logger))

	server := api.NewServer(api.Config{
		Port:            appConfig.Server.Port,
		Workers:         appConfig.Batch.Workers,
		ShutdownTimeout: appConfig.Server.ShutdownTimeout,
	}, engine, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("🚀 Starting A/B test server on port %s (alpha=%g, alternative=%s, workers=%d)",
		appConfig.Server.Port, appConfig.Test.Alpha, appConfig.Test.Alternative, appConfig.Batch.Workers)
	if err := server.ListenAndServe(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
