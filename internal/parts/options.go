package parts

import (
	"fmt"
	"runtime"

	"github.com/a3tai/mcp-pdf-parts/internal/ocr"
)

// Defaults for Options.
const (
	DefaultTolerance          = 0.005
	DefaultMinTokenLength     = 3
	DefaultConfusionThreshold = 0.34
	DefaultTableThreshold     = 0.7
	DefaultMinPageTextChars   = 1
	DefaultMaxFileSize        = 100 * 1024 * 1024
	DefaultNearbyBefore       = 3
	DefaultNearbyAfter        = 2
	DefaultNotFoundLabel      = "(not found)"
)

// Options are the tunables of one pipeline. They are passed explicitly so
// that runs with different settings do not interfere.
type Options struct {
	Tolerance          float64
	MinTokenLength     int
	ConfusionThreshold float64
	TableThreshold     float64
	MinPageTextChars   int
	MaxFileSize        int64
	FileWorkers        int
	NearbyBefore       int
	NearbyAfter        int
	NotFoundLabel      string
	OCR                ocr.Config
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		Tolerance:          DefaultTolerance,
		MinTokenLength:     DefaultMinTokenLength,
		ConfusionThreshold: DefaultConfusionThreshold,
		TableThreshold:     DefaultTableThreshold,
		MinPageTextChars:   DefaultMinPageTextChars,
		MaxFileSize:        DefaultMaxFileSize,
		FileWorkers:        runtime.NumCPU(),
		NearbyBefore:       DefaultNearbyBefore,
		NearbyAfter:        DefaultNearbyAfter,
		NotFoundLabel:      DefaultNotFoundLabel,
		OCR:                ocr.Config{DPI: ocr.DefaultDPI, Languages: []string{"eng"}},
	}
}

// Validate checks that every option is usable.
func (o Options) Validate() error {
	if o.Tolerance < 0 {
		return fmt.Errorf("tolerance must be non-negative, got %v", o.Tolerance)
	}
	if o.MinTokenLength < 1 {
		return fmt.Errorf("min token length must be at least 1, got %d", o.MinTokenLength)
	}
	if o.ConfusionThreshold < 0 || o.ConfusionThreshold > 1 {
		return fmt.Errorf("confusion threshold must be between 0 and 1, got %v", o.ConfusionThreshold)
	}
	if o.TableThreshold < 0 || o.TableThreshold > 1 {
		return fmt.Errorf("table threshold must be between 0 and 1, got %v", o.TableThreshold)
	}
	if o.MinPageTextChars < 1 {
		return fmt.Errorf("min page text chars must be at least 1, got %d", o.MinPageTextChars)
	}
	if o.MaxFileSize <= 0 {
		return fmt.Errorf("max file size must be positive, got %d", o.MaxFileSize)
	}
	if o.FileWorkers < 1 {
		return fmt.Errorf("file workers must be at least 1, got %d", o.FileWorkers)
	}
	if o.NearbyBefore < 0 || o.NearbyAfter < 0 {
		return fmt.Errorf("nearby window must be non-negative, got %d/%d", o.NearbyBefore, o.NearbyAfter)
	}
	if o.OCR.DPI < 0 {
		return fmt.Errorf("ocr dpi must be non-negative, got %d", o.OCR.DPI)
	}
	return nil
}
