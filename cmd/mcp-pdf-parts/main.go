package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/a3tai/mcp-pdf-parts/internal/config"
	"github.com/a3tai/mcp-pdf-parts/internal/httpapi"
	"github.com/a3tai/mcp-pdf-parts/internal/mcp"
	"github.com/a3tai/mcp-pdf-parts/internal/parts"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogging configures logger for the server mode. In stdio mode
// stdout carries the MCP protocol, so logs go to stderr and only when
// debugging.
func setupLogging(cfg *config.Config, logger *logrus.Logger) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	logger.SetOutput(os.Stderr)

	if cfg.IsStdioMode() {
		if !cfg.IsDebug() {
			logger.SetOutput(io.Discard)
		}
		logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
		return
	}
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// run builds the pipeline and serves in the configured mode until ctx is
// done.
func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	entry := logrus.NewEntry(logger)

	pipeline, err := parts.NewPipeline(cfg.PipelineOptions(), parts.WithLogger(entry))
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	if !pipeline.OCRAvailable() {
		entry.Warn("OCR is not available, image-only pages will be rejected")
	}

	if cfg.IsServerMode() {
		api, err := httpapi.NewServer(pipeline, cfg.MaxFileSize, entry)
		if err != nil {
			return fmt.Errorf("failed to create HTTP API: %w", err)
		}
		return api.ListenAndServe(ctx, cfg.Address())
	}

	server, err := mcp.NewServer(cfg, pipeline)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	return server.Run(ctx)
}

func main() {
	cfg, err := config.LoadFromFlags()
	if errors.Is(err, config.ErrVersionRequested) {
		printVersion(os.Stdout)
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(2)
	}

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	logger := logrus.StandardLogger()
	setupLogging(cfg, logger)
	logger.WithField("config", cfg.String()).Debug("starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Error("server stopped with error")
		stop()
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "MCP PDF Parts\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Built with: %s\n", runtime.Version())
}
