package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/a3tai/mcp-pdf-parts/internal/ocr"
	"github.com/a3tai/mcp-pdf-parts/internal/parts"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// EnvPrefix prefixes every environment variable, e.g. PDF_PARTS_OCR_DPI.
	EnvPrefix = "PDF_PARTS"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = parts.DefaultMaxFileSize

	// Directory permissions
	DefaultDirPerm = 0o750
)

// ErrVersionRequested is returned by Load when --version was passed.
var ErrVersionRequested = errors.New("version requested")

// Config holds all configuration for the part extraction service
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// PDF configuration
	PDFDirectory string
	MaxFileSize  int64

	// Application configuration
	Version    string
	ServerName string
	LogLevel   string

	// Extraction tunables
	OCRDPI             int
	OCRLanguages       []string
	OCRWorkers         int
	FileWorkers        int
	Tolerance          float64
	MinTokenLength     int
	ConfusionThreshold float64
	TableThreshold     float64
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:               ModeStdio,
		Host:               DefaultHost,
		Port:               DefaultPort,
		PDFDirectory:       currentDir,
		MaxFileSize:        DefaultMaxFileSize,
		Version:            "1.0.0",
		ServerName:         "mcp-pdf-parts",
		LogLevel:           DefaultLogLevel,
		OCRDPI:             ocr.DefaultDPI,
		OCRLanguages:       []string{"eng"},
		OCRWorkers:         runtime.NumCPU(),
		FileWorkers:        runtime.NumCPU(),
		Tolerance:          parts.DefaultTolerance,
		MinTokenLength:     parts.DefaultMinTokenLength,
		ConfusionThreshold: parts.DefaultConfusionThreshold,
		TableThreshold:     parts.DefaultTableThreshold,
	}
}

// LoadFromFlags parses the process arguments and environment.
func LoadFromFlags() (*Config, error) {
	return Load(os.Args[0], os.Args[1:])
}

// Load parses args with a private flag set, overlays PDF_PARTS_*
// environment variables and validates the result.
func Load(program string, args []string) (*Config, error) {
	cfg := DefaultConfig()

	fs := pflag.NewFlagSet(program, pflag.ContinueOnError)
	fs.Bool("version", false, "Print version information and exit")
	RegisterServerFlags(fs, cfg)
	RegisterPipelineFlags(fs, cfg)
	fs.Usage = usage(fs, program)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if v, _ := fs.GetBool("version"); v {
		return nil, ErrVersionRequested
	}

	v, err := NewViper(fs)
	if err != nil {
		return nil, err
	}
	cfg.ApplyServer(v)
	cfg.ApplyPipeline(v)

	if cfg.PDFDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.PDFDirectory); err == nil {
			cfg.PDFDirectory = expandedPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// RegisterServerFlags defines the transport flags of the service binary.
func RegisterServerFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for the HTTP upload API")
	fs.String("host", cfg.Host, "Server host address (server mode only)")
	fs.Int("port", cfg.Port, "Server port (server mode only)")
	fs.String("dir", cfg.PDFDirectory, "Directory the MCP tools may read PDF files from")
}

// RegisterPipelineFlags defines the extraction flags shared by the service
// and the batch CLI.
func RegisterPipelineFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.Int64("max-file-size", cfg.MaxFileSize, "Maximum PDF file size in bytes")
	fs.Int("ocr-dpi", cfg.OCRDPI, "Rasterization resolution for image-only pages")
	fs.StringSlice("ocr-lang", cfg.OCRLanguages, "Tesseract languages, e.g. eng,jpn")
	fs.Int("ocr-workers", cfg.OCRWorkers, "Maximum concurrent OCR recognitions")
	fs.Int("file-workers", cfg.FileWorkers, "Maximum files processed concurrently")
	fs.Float64("tolerance", cfg.Tolerance, "Absolute tolerance for L/W/T matching")
	fs.Int("min-token-length", cfg.MinTokenLength, "Shortest token accepted as a part number")
	fs.Float64("confusion-threshold", cfg.ConfusionThreshold, "Largest share of OCR letters folded to digits in a segment")
	fs.Float64("table-threshold", cfg.TableThreshold, "Minimum column alignment confidence for a table")
}

// NewViper binds fs to a fresh viper instance that also reads
// PDF_PARTS_* variables, with dashes in flag names mapped to underscores.
func NewViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}
	return v, nil
}

// ApplyServer fills the transport fields from v.
func (c *Config) ApplyServer(v *viper.Viper) {
	c.Mode = v.GetString("mode")
	c.Host = v.GetString("host")
	c.Port = v.GetInt("port")
	c.PDFDirectory = v.GetString("dir")
}

// ApplyPipeline fills the extraction fields from v.
func (c *Config) ApplyPipeline(v *viper.Viper) {
	c.LogLevel = v.GetString("log-level")
	c.MaxFileSize = v.GetInt64("max-file-size")
	c.OCRDPI = v.GetInt("ocr-dpi")
	c.OCRLanguages = v.GetStringSlice("ocr-lang")
	c.OCRWorkers = v.GetInt("ocr-workers")
	c.FileWorkers = v.GetInt("file-workers")
	c.Tolerance = v.GetFloat64("tolerance")
	c.MinTokenLength = v.GetInt("min-token-length")
	c.ConfusionThreshold = v.GetFloat64("confusion-threshold")
	c.TableThreshold = v.GetFloat64("table-threshold")
}

func usage(fs *pflag.FlagSet, program string) func() {
	return func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", program)
		fmt.Fprintf(os.Stderr, "\nMCP PDF Parts - part-number extraction and L/W/T matching for PDF drawings\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                         "+
			"# stdio MCP mode, current directory (default)\n", program)
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/drawings                 "+
			"# stdio MCP mode with custom directory\n", program)
		fmt.Fprintf(os.Stderr, "  %s --mode=server --port=8081                # HTTP upload API\n", program)
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  Every flag can be set as %s_<FLAG>, e.g. %s_OCR_DPI=400\n", EnvPrefix, EnvPrefix)
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.PDFDirectory == "" {
		return errors.New("PDF directory cannot be empty")
	}

	if _, err := os.Stat(c.PDFDirectory); os.IsNotExist(err) {
		if err := os.MkdirAll(c.PDFDirectory, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create PDF directory %s: %w", c.PDFDirectory, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access PDF directory %s: %w", c.PDFDirectory, err)
	}

	return c.ValidatePipeline()
}

// ValidatePipeline checks the fields shared with the batch CLI.
func (c *Config) ValidatePipeline() error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	if c.OCRDPI < 72 || c.OCRDPI > 1200 {
		return fmt.Errorf("ocr dpi must be between 72 and 1200, got %d", c.OCRDPI)
	}
	if len(c.OCRLanguages) == 0 {
		return errors.New("at least one OCR language is required")
	}
	if c.OCRWorkers < 1 {
		return errors.New("ocr workers must be at least 1")
	}

	if err := c.PipelineOptions().Validate(); err != nil {
		return err
	}
	return nil
}

// PipelineOptions converts the configuration into pipeline options.
func (c *Config) PipelineOptions() parts.Options {
	opts := parts.DefaultOptions()
	opts.Tolerance = c.Tolerance
	opts.MinTokenLength = c.MinTokenLength
	opts.ConfusionThreshold = c.ConfusionThreshold
	opts.TableThreshold = c.TableThreshold
	opts.MaxFileSize = c.MaxFileSize
	opts.FileWorkers = c.FileWorkers
	opts.OCR = ocr.Config{
		DPI:       c.OCRDPI,
		Languages: append([]string(nil), c.OCRLanguages...),
		Workers:   c.OCRWorkers,
	}
	return opts
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, PDFDirectory: %s, LogLevel: %s, MaxFileSize: %d, "+
		"OCRDPI: %d, OCRLanguages: %s, Tolerance: %g, MinTokenLength: %d}",
		c.Mode, c.Host, c.Port, c.PDFDirectory, c.LogLevel, c.MaxFileSize,
		c.OCRDPI, strings.Join(c.OCRLanguages, "+"), c.Tolerance, c.MinTokenLength)
}

// IsServerMode returns true if the service runs the HTTP upload API
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the service runs in MCP stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
