package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/backendbuddy/backendbuddy/internal/app"
	"github.com/backendbuddy/backendbuddy/internal/config"
	"github.com/backendbuddy/backendbuddy/internal/env"
	"github.com/backendbuddy/backendbuddy/internal/logger"
	"github.com/backendbuddy/backendbuddy/internal/version"
)

func main() {
	vlog := log.New(log.Writer(), "", 0)
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.PrintVersionInfo(true, vlog)
		os.Exit(0)
	} else {
		version.PrintVersionInfo(false, vlog)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	lcfg := buildLoggerConfig(cfg)
	logInstance, styledLogger, cleanup, err := logger.NewWithTheme(lcfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	slog.SetDefault(logInstance)

	styledLogger.Info("Initialising", "version", version.Version, "pid", os.Getpid())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		styledLogger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	application, err := app.New(cfg, styledLogger)
	if err != nil {
		logger.FatalWithLogger(logInstance, "Failed to create application", "error", err)
	}

	if err := application.Start(ctx); err != nil {
		logger.FatalWithLogger(logInstance, "Failed to start application", "error", err)
	}

	<-ctx.Done()

	if err := application.Stop(context.Background()); err != nil {
		styledLogger.Error("Error during shutdown", "error", err)
	}

	styledLogger.Info("BackendBuddy has shutdown")
}

// buildLoggerConfig merges file configuration with environment overrides.
func buildLoggerConfig(cfg *config.Config) *logger.Config {
	return &logger.Config{
		Level:      env.GetEnvOrDefault("BACKENDBUDDY_LOG_LEVEL", cfg.Logging.Level),
		FileOutput: env.GetEnvBoolOrDefault("BACKENDBUDDY_FILE_OUTPUT", cfg.Logging.FileOutput),
		LogDir:     env.GetEnvOrDefault("BACKENDBUDDY_LOG_DIR", cfg.Logging.LogDir),
		MaxSize:    env.GetEnvIntOrDefault("BACKENDBUDDY_MAX_SIZE", cfg.Logging.MaxSize),
		MaxBackups: env.GetEnvIntOrDefault("BACKENDBUDDY_MAX_BACKUPS", cfg.Logging.MaxBackups),
		MaxAge:     env.GetEnvIntOrDefault("BACKENDBUDDY_MAX_AGE", cfg.Logging.MaxAge),
		Theme:      env.GetEnvOrDefault("BACKENDBUDDY_THEME", cfg.Logging.Theme),
	}
}
