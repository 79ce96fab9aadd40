package config

import (
	"errors"
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load("mcp-pdf-parts", []string{"--dir=" + dir})
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.Mode != ModeStdio {
		t.Errorf("Load() Mode = %v, want %v", cfg.Mode, ModeStdio)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("Load() Port = %v, want %v", cfg.Port, DefaultPort)
	}
	if cfg.PDFDirectory != dir {
		t.Errorf("Load() PDFDirectory = %v, want %v", cfg.PDFDirectory, dir)
	}
	if cfg.OCRDPI != 300 {
		t.Errorf("Load() OCRDPI = %v, want 300", cfg.OCRDPI)
	}
}

func TestLoad_Flags(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(*Config) bool
	}{
		{"server mode", []string{"--mode=server", "--host=0.0.0.0", "--port=9090"}, func(c *Config) bool {
			return c.Mode == ModeServer && c.Host == "0.0.0.0" && c.Port == 9090
		}},
		{"debug logging", []string{"--log-level=debug"}, func(c *Config) bool { return c.IsDebug() }},
		{"max file size", []string{"--max-file-size=50000000"}, func(c *Config) bool { return c.MaxFileSize == 50000000 }},
		{"ocr settings", []string{"--ocr-dpi=400", "--ocr-lang=eng,jpn", "--ocr-workers=2"}, func(c *Config) bool {
			return c.OCRDPI == 400 && strings.Join(c.OCRLanguages, ",") == "eng,jpn" && c.OCRWorkers == 2
		}},
		{"matching settings", []string{"--tolerance=0.1", "--min-token-length=4", "--confusion-threshold=0.2"}, func(c *Config) bool {
			return c.Tolerance == 0.1 && c.MinTokenLength == 4 && c.ConfusionThreshold == 0.2
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--dir=" + t.TempDir()}, tt.args...)
			cfg, err := Load("mcp-pdf-parts", args)
			if err != nil {
				t.Fatalf("Load() unexpected error: %v", err)
			}
			if !tt.check(cfg) {
				t.Errorf("Load(%v) = %s", tt.args, cfg)
			}
		})
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PDF_PARTS_MODE", "server")
	t.Setenv("PDF_PARTS_PORT", "3000")
	t.Setenv("PDF_PARTS_DIR", dir)
	t.Setenv("PDF_PARTS_LOG_LEVEL", "warn")
	t.Setenv("PDF_PARTS_OCR_DPI", "600")
	t.Setenv("PDF_PARTS_TOLERANCE", "0.01")

	cfg, err := Load("mcp-pdf-parts", nil)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.Mode != ModeServer || cfg.Port != 3000 || cfg.PDFDirectory != dir {
		t.Errorf("Load() server settings from env = %s", cfg)
	}
	if cfg.LogLevel != "warn" || cfg.OCRDPI != 600 || cfg.Tolerance != 0.01 {
		t.Errorf("Load() pipeline settings from env = %s", cfg)
	}
}

func TestLoad_FlagOverridesEnvironment(t *testing.T) {
	t.Setenv("PDF_PARTS_MODE", "server")
	t.Setenv("PDF_PARTS_PORT", "3000")

	cfg, err := Load("mcp-pdf-parts", []string{"--mode=stdio", "--port=8888", "--dir=" + t.TempDir()})
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Mode != ModeStdio || cfg.Port != 8888 {
		t.Errorf("Load() flags should override env, got %s", cfg)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"invalid mode", []string{"--mode=invalid"}, "mode must be either 'stdio' or 'server'"},
		{"invalid port", []string{"--mode=server", "--port=99999"}, "port must be between 1 and 65535"},
		{"invalid log level", []string{"--log-level=invalid"}, "invalid log level"},
		{"invalid dpi", []string{"--ocr-dpi=10"}, "ocr dpi"},
		{"unknown flag", []string{"--nope"}, "unknown flag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--dir=" + t.TempDir()}, tt.args...)
			_, err := Load("mcp-pdf-parts", args)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_VersionFlag(t *testing.T) {
	_, err := Load("mcp-pdf-parts", []string{"--version"})
	if !errors.Is(err, ErrVersionRequested) {
		t.Errorf("Load() error = %v, want ErrVersionRequested", err)
	}
}
