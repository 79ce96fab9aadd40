// Package ocr recognizes text on pages that have no text layer.
//
// Pages are rasterized at a configured DPI and handed to a recognizer.
// Recognition is CPU heavy, so every Engine call draws from one weighted
// semaphore sized by Config.Workers, shared by all documents of a process.
//
// The Tesseract recognizer and the MuPDF rasterizer need cgo libraries and
// are compiled only with the "ocr" build tag:
//
//	go build -tags ocr ./...
package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// ErrUnavailable is returned when no recognizer is compiled in or installed.
var ErrUnavailable = errors.New("ocr engine unavailable; rebuild with -tags ocr and install tesseract")

// DefaultDPI is the rasterization resolution used when none is configured.
const DefaultDPI = 300

// Line is one recognized line of text in image pixel coordinates.
type Line struct {
	Text       string
	Bounds     image.Rectangle
	Confidence float64
}

// Recognizer turns a page image into text lines. Implementations must be
// safe for concurrent use.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image, dpi int) ([]Line, error)
}

// Rasterizer opens a PDF for page rendering.
type Rasterizer interface {
	Open(data []byte) (Document, error)
}

// Document renders pages of an opened PDF. Pages are 1-based. A Document
// is not safe for concurrent use.
type Document interface {
	Render(page, dpi int) (image.Image, error)
	Close() error
}

// Config holds the OCR tunables.
type Config struct {
	DPI       int
	Languages []string
	Workers   int
}

func (c Config) withDefaults() Config {
	if c.DPI <= 0 {
		c.DPI = DefaultDPI
	}
	if len(c.Languages) == 0 {
		c.Languages = []string{"eng"}
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	return c
}

// PageResult is the outcome for one page. Err is set when the page could
// not be rendered or recognized; such a page contributes no lines.
type PageResult struct {
	Page  int
	Lines []Line
	Err   error
}

// Engine runs rasterization and recognition for image-only pages.
type Engine struct {
	cfg        Config
	raster     Rasterizer
	recognizer Recognizer
	sem        *semaphore.Weighted
	logger     *logrus.Entry
}

// NewEngine assembles an engine from explicit components. A nil recognizer
// yields an engine that reports ErrUnavailable.
func NewEngine(cfg Config, raster Rasterizer, recognizer Recognizer, logger *logrus.Entry) *Engine {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Engine{
		cfg:        cfg,
		raster:     raster,
		recognizer: recognizer,
		sem:        semaphore.NewWeighted(int64(cfg.Workers)),
		logger:     logger.WithField("component", "ocr"),
	}
}

// NewDefaultEngine wires Tesseract with the MuPDF rasterizer, falling back
// to the page's embedded scan image when MuPDF is not compiled in.
func NewDefaultEngine(cfg Config, logger *logrus.Entry) *Engine {
	cfg = cfg.withDefaults()
	recognizer, err := NewTesseract(cfg.Languages)
	if err != nil {
		recognizer = nil
		if logger != nil {
			logger.WithError(err).Debug("ocr recognizer not available")
		}
	}
	raster := ChainRasterizer{NewFitzRasterizer(), NewEmbeddedImageRasterizer()}
	return NewEngine(cfg, raster, recognizer, logger)
}

// Available returns ErrUnavailable when the engine cannot recognize text.
func (e *Engine) Available() error {
	if e == nil || e.recognizer == nil || e.raster == nil {
		return ErrUnavailable
	}
	return nil
}

// DPI returns the configured rasterization resolution.
func (e *Engine) DPI() int {
	return e.cfg.DPI
}

// ExtractPages recognizes the given pages of a PDF. Results are returned in
// the order of pages. The returned error is ErrUnavailable or a context
// error; per-page failures are reported in PageResult.Err.
func (e *Engine) ExtractPages(ctx context.Context, data []byte, pages []int) ([]PageResult, error) {
	if err := e.Available(); err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, nil
	}

	results := make([]PageResult, len(pages))
	for i, p := range pages {
		results[i].Page = p
	}

	doc, err := e.raster.Open(data)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return nil, err
		}
		for i := range results {
			results[i].Err = fmt.Errorf("open for rendering: %w", err)
		}
		return results, nil
	}
	defer doc.Close()

	var renderMu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for i, pageNum := range pages {
		g.Go(func() error {
			if err := e.sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer e.sem.Release(1)

			lines, err := e.extractPage(gctx, doc, &renderMu, pageNum)
			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			results[i].Lines = lines
			results[i].Err = err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *Engine) extractPage(ctx context.Context, doc Document, renderMu *sync.Mutex, pageNum int) ([]Line, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	renderMu.Lock()
	img, err := renderPage(doc, pageNum, e.cfg.DPI)
	renderMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", pageNum, err)
	}

	lines, err := e.recognizer.Recognize(ctx, img, e.cfg.DPI)
	if err != nil {
		return nil, fmt.Errorf("recognize page %d: %w", pageNum, err)
	}

	kept := lines[:0]
	for _, l := range lines {
		l.Text = strings.Join(strings.Fields(l.Text), " ")
		if l.Text != "" {
			kept = append(kept, l)
		}
	}
	SortReadingOrder(kept)

	e.logger.WithFields(logrus.Fields{"page": pageNum, "lines": len(kept)}).Debug("page recognized")
	return kept, nil
}

// renderPage converts rasterizer panics into errors.
func renderPage(doc Document, pageNum, dpi int) (img image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rasterizer panic: %v", r)
		}
	}()
	return doc.Render(pageNum, dpi)
}

// SortReadingOrder orders lines top to bottom, and left to right among
// lines that share a visual row.
func SortReadingOrder(lines []Line) {
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].Bounds.Min.Y < lines[j].Bounds.Min.Y
	})

	for start := 0; start < len(lines); {
		top := lines[start].Bounds
		end := start + 1
		for end < len(lines) {
			center := (lines[end].Bounds.Min.Y + lines[end].Bounds.Max.Y) / 2
			if center > top.Max.Y {
				break
			}
			end++
		}
		group := lines[start:end]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Bounds.Min.X < group[j].Bounds.Min.X
		})
		start = end
	}
}

// ChainRasterizer tries each rasterizer in turn and uses the first that
// opens the document.
type ChainRasterizer []Rasterizer

// Open implements Rasterizer.
func (c ChainRasterizer) Open(data []byte) (Document, error) {
	var errs []error
	for _, r := range c {
		doc, err := r.Open(data)
		if err == nil {
			return doc, nil
		}
		if !errors.Is(err, ErrUnavailable) {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil, ErrUnavailable
	}
	return nil, errors.Join(errs...)
}
