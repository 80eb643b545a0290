package main

import (
	"context"
	"embed"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/fx"

	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/logger"
)

// embeddedConfig holds the application's YAML configuration file.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

// embeddedMigrations holds the per-driver schema migration files.
//
//go:embed resources/migrations
var embeddedMigrations embed.FS

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Warnf("Received signal '%v'. Shutting down...", sig)
		cancel()
	}()

	envFilePath := os.Getenv("ENV_FILE_PATH")
	if envFilePath == "" {
		envFilePath = ".env"
	}

	migrations, err := fs.Sub(embeddedMigrations, "resources")
	if err != nil {
		logger.Fatalf("Failed to open embedded migrations: %v", err)
	}

	fxApp := fx.New(GetApplicationOptions(ctx, envFilePath, embeddedConfig, migrations)...)
	fxApp.Run()
	if fxApp.Err() != nil {
		logger.Fatalf("Application run failed: %v", fxApp.Err())
	}
}
