package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/a3tai/mcp-pdf-parts/internal/config"
)

const (
	testVersion = "1.2.3"
	devVersion  = "dev"
)

func TestPrintVersion(t *testing.T) {
	oldVersion, oldBuildTime, oldGitCommit := version, buildTime, gitCommit
	defer func() {
		version, buildTime, gitCommit = oldVersion, oldBuildTime, oldGitCommit
	}()

	version = testVersion
	buildTime = "2023-12-01_10:30:00"
	gitCommit = "abc123"

	var buf bytes.Buffer
	printVersion(&buf)
	output := buf.String()

	expected := []string{
		"MCP PDF Parts",
		"Version: " + testVersion,
		"Build Time: 2023-12-01_10:30:00",
		"Git Commit: abc123",
		"Built with: " + runtime.Version(),
	}
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %q, got: %s", want, output)
		}
	}
}

func TestPrintVersionWithDefaults(t *testing.T) {
	if version != devVersion {
		t.Skip("version was set by build flags")
	}

	var buf bytes.Buffer
	printVersion(&buf)

	if !strings.Contains(buf.String(), "Version: dev") {
		t.Errorf("Expected default version, got: %s", buf.String())
	}
}

func TestSetupLogging(t *testing.T) {
	tests := []struct {
		name        string
		mode        string
		logLevel    string
		wantLevel   logrus.Level
		wantDiscard bool
	}{
		{"stdio info is silent", config.ModeStdio, "info", logrus.InfoLevel, true},
		{"stdio debug logs to stderr", config.ModeStdio, "debug", logrus.DebugLevel, false},
		{"server info", config.ModeServer, "info", logrus.InfoLevel, false},
		{"server warn", config.ModeServer, "warn", logrus.WarnLevel, false},
		{"unknown level falls back to info", config.ModeServer, "loud", logrus.InfoLevel, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Mode = tt.mode
			cfg.LogLevel = tt.logLevel

			logger := logrus.New()
			setupLogging(cfg, logger)

			if logger.GetLevel() != tt.wantLevel {
				t.Errorf("expected level %s, got %s", tt.wantLevel, logger.GetLevel())
			}
			if discard := logger.Out == io.Discard; discard != tt.wantDiscard {
				t.Errorf("expected discard=%v, got output %v", tt.wantDiscard, logger.Out)
			}
			if !tt.wantDiscard && logger.Out != os.Stderr {
				t.Error("expected logs on stderr")
			}

			formatter, ok := logger.Formatter.(*logrus.TextFormatter)
			if !ok {
				t.Fatalf("expected text formatter, got %T", logger.Formatter)
			}
			if tt.mode == config.ModeServer && !formatter.FullTimestamp {
				t.Error("server mode should log full timestamps")
			}
		})
	}
}

func TestRun_ServerModeStopsOnCancel(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Mode = config.ModeServer
	cfg.PDFDirectory = t.TempDir()
	cfg.Port = 0

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, logger) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestRun_InvalidPipelineOptions(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.PDFDirectory = t.TempDir()
	cfg.Tolerance = -1

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	if err := run(context.Background(), cfg, logger); err == nil {
		t.Error("expected error for invalid tolerance")
	}
}
