// Package parts finds part numbers in extracted PDF text and matches the
// dimension values next to them against L/W/T criteria.
package parts

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/a3tai/mcp-pdf-parts/internal/ocr"
	"github.com/a3tai/mcp-pdf-parts/internal/pdf"
	pdferrors "github.com/a3tai/mcp-pdf-parts/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-parts/internal/pdf/extraction"
)

// Request is one pipeline invocation: ordered files plus optional L/W/T
// criteria as the user typed them.
type Request struct {
	Files []pdf.NamedFile
	L     string
	W     string
	T     string
	Mode  Mode
}

// Pipeline turns uploaded PDFs into part-number records. It holds no
// per-request state and may be used concurrently.
type Pipeline struct {
	opts       Options
	loader     *pdf.Loader
	extractor  *extraction.TextExtractor
	normalizer *Normalizer
	matcher    *Matcher
	ocr        *ocr.Engine
	logger     *logrus.Entry
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithOCREngine sets the engine used for image-only pages.
func WithOCREngine(engine *ocr.Engine) Option {
	return func(p *Pipeline) {
		p.ocr = engine
	}
}

// WithLogger sets the log entry runs are logged to.
func WithLogger(logger *logrus.Entry) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// NewPipeline validates opts and assembles the stages. Without
// WithOCREngine the default Tesseract engine is used when compiled in.
func NewPipeline(opts Options, options ...Option) (*Pipeline, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline options: %w", err)
	}

	p := &Pipeline{
		opts:       opts,
		extractor:  extraction.NewTextExtractor(opts.TableThreshold),
		normalizer: NewNormalizer(opts.MinTokenLength, opts.ConfusionThreshold),
		matcher:    NewMatcher(),
		logger:     logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, o := range options {
		o(p)
	}
	p.logger = p.logger.WithField("component", "pipeline")
	p.loader = pdf.NewLoader(opts.MaxFileSize, opts.MinPageTextChars).WithLogger(p.logger)
	if p.ocr == nil {
		p.ocr = ocr.NewDefaultEngine(opts.OCR, p.logger)
	}
	return p, nil
}

// Options returns the options the pipeline was built with.
func (p *Pipeline) Options() Options {
	return p.opts
}

// OCRAvailable reports whether image-only pages can be recognized.
func (p *Pipeline) OCRAvailable() bool {
	return p.ocr.Available() == nil
}

// Run processes every file of req and aggregates the results per mode.
// Criteria errors are returned before any file is opened. A file that
// fails on its own becomes an annotation; a file that needs OCR while
// OCR is unavailable fails the whole request.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Response, error) {
	started := time.Now()
	runID := uuid.NewString()
	logger := p.logger.WithField("run_id", runID)

	criteria, err := ParseCriteria(req.L, req.W, req.T, p.opts.Tolerance)
	if err != nil {
		logger.WithError(err).Debug("rejected criteria")
		return nil, err
	}
	mode := resolveMode(req.Mode, criteria)

	logger.WithFields(logrus.Fields{
		"files":    len(req.Files),
		"mode":     mode,
		"criteria": criteria.String(),
	}).Info("pipeline run started")

	outcomes := make([]FileOutcome, len(req.Files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.FileWorkers)
	for i, f := range req.Files {
		g.Go(func() error {
			if err := pdferrors.FromContext(gctx); err != nil {
				return err
			}
			outcome, err := p.processFile(gctx, f, logger.WithField("file", f.Name))
			if err != nil {
				return err
			}
			outcomes[i] = outcome
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := pdferrors.FromContext(ctx); err != nil {
		return nil, err
	}

	var needOCR []string
	for _, o := range outcomes {
		if o.NeedsOCR {
			needOCR = append(needOCR, o.FileName)
		}
	}
	if len(needOCR) > 0 {
		return nil, pdferrors.NewPDFErrorWithContext(pdferrors.ErrorTypeOCRUnavailable,
			pdferrors.ErrorTypeOCRUnavailable.Title(),
			"needed for "+strings.Join(needOCR, ", ")).WithCause(ocr.ErrUnavailable)
	}

	resp := &Response{
		Mode:        mode,
		Criteria:    criteria.String(),
		Annotations: Annotations(outcomes),
		Stats:       Stats{RunID: runID, Files: len(outcomes)},
	}
	switch mode {
	case ModePartsList:
		resp.Records = AggregatePartsList(outcomes)
	case ModeLineSearch:
		resp.Records = AggregateLineSearch(outcomes, criteria, p.matcher, NearbyWindow{
			Before:        p.opts.NearbyBefore,
			After:         p.opts.NearbyAfter,
			NotFoundLabel: p.opts.NotFoundLabel,
		})
	case ModeLines:
		resp.Lines = AggregateLines(outcomes)
	}
	for _, o := range outcomes {
		resp.Stats.Pages += o.Pages
		resp.Stats.OCRPages += o.OCRPages
	}
	resp.Stats.Duration = time.Since(started)

	logger.WithFields(logrus.Fields{
		"records":     len(resp.Records),
		"lines":       len(resp.Lines),
		"annotations": len(resp.Annotations),
		"pages":       resp.Stats.Pages,
		"ocr_pages":   resp.Stats.OCRPages,
		"duration":    resp.Stats.Duration,
	}).Info("pipeline run complete")
	return resp, nil
}

func resolveMode(mode Mode, criteria Criteria) Mode {
	switch mode {
	case ModePartsList, ModeLineSearch, ModeLines:
		return mode
	}
	if criteria.IsEmpty() {
		return ModePartsList
	}
	return ModeLineSearch
}

// processFile loads, extracts and normalizes one file. The returned error
// is only ever a cancellation; every other failure lands in the outcome.
func (p *Pipeline) processFile(ctx context.Context, f pdf.NamedFile, logger *logrus.Entry) (FileOutcome, error) {
	out := FileOutcome{FileName: f.Name, Problems: pdferrors.NewErrorCollection(f.Name)}

	doc, err := p.loader.Load(f.Name, f.Data)
	if err != nil {
		logger.WithError(err).Warn("file skipped")
		out.Err = err
		return out, nil
	}
	out.Pages = doc.PageCount()

	contents := make(map[int]extraction.PageContent, len(doc.Pages))
	for _, page := range doc.Pages {
		if err := pdferrors.FromContext(ctx); err != nil {
			return out, err
		}
		switch page.Status {
		case pdf.PageText:
			contents[page.Number] = p.extractor.Extract(f.Name, page)
		case pdf.PageUnreadable:
			out.Problems.Add(pdferrors.WrapError(pdferrors.ErrorTypeMalformedPage, page.Err).WithPage(page.Number))
			contents[page.Number] = extraction.Empty{Page: page.Number, Reason: page.Status.String()}
		case pdf.PageBlank:
			contents[page.Number] = extraction.Empty{Page: page.Number, Reason: page.Status.String()}
		}
	}

	if imagePages := doc.ImageOnlyPages(); len(imagePages) > 0 {
		results, err := p.ocr.ExtractPages(ctx, doc.Data, imagePages)
		switch {
		case errors.Is(err, ocr.ErrUnavailable):
			logger.WithField("pages", imagePages).Warn("image-only pages need ocr")
			out.NeedsOCR = true
			return out, nil
		case err != nil:
			return out, pdferrors.NewPDFError(pdferrors.ErrorTypeCanceled, pdferrors.ErrorTypeCanceled.Title()).WithCause(err)
		}
		out.OCRPages = len(imagePages)
		for _, r := range results {
			if r.Err != nil {
				out.Problems.Add(pdferrors.NewPDFErrorWithContext(pdferrors.ErrorTypeOCRFailed,
					pdferrors.ErrorTypeOCRFailed.Title(), r.Err.Error()).WithPage(r.Page))
				contents[r.Page] = extraction.Empty{Page: r.Page, Reason: "ocr failed"}
				continue
			}
			contents[r.Page] = ocrContent(f.Name, r)
		}
	}

	for _, page := range doc.Pages {
		out.Units = append(out.Units, p.units(contents[page.Number])...)
	}

	logger.WithFields(logrus.Fields{
		"parser":    doc.Parser,
		"pages":     out.Pages,
		"ocr_pages": out.OCRPages,
		"units":     len(out.Units),
	}).Debug("file processed")
	return out, nil
}

// ocrContent converts recognized lines into page content.
func ocrContent(fileName string, r ocr.PageResult) extraction.PageContent {
	if len(r.Lines) == 0 {
		return extraction.Empty{Page: r.Page, Reason: "no text recognized"}
	}
	content := extraction.OCRExtracted{Page: r.Page}
	for i, l := range r.Lines {
		content.Lines = append(content.Lines, extraction.RawLine{
			FileName: fileName,
			Page:     r.Page,
			LineNo:   i + 1,
			Text:     l.Text,
			Method:   extraction.MethodOCR,
		})
	}
	return content
}

// units flattens page content into reading-order units. Each table row
// becomes one unit whose candidates span all its cells.
func (p *Pipeline) units(content extraction.PageContent) []Unit {
	switch c := content.(type) {
	case extraction.TextExtracted:
		units := make([]Unit, 0, len(c.Lines))
		for _, l := range c.Lines {
			units = append(units, p.lineUnit(l))
		}
		units = append(units, p.rowUnits(c.Cells)...)
		sort.SliceStable(units, func(i, j int) bool { return units[i].LineNo < units[j].LineNo })
		return units
	case extraction.OCRExtracted:
		units := make([]Unit, 0, len(c.Lines))
		for _, l := range c.Lines {
			units = append(units, p.lineUnit(l))
		}
		return units
	default:
		return nil
	}
}

func (p *Pipeline) lineUnit(l extraction.RawLine) Unit {
	matchText := l.Text
	if l.Method == extraction.MethodOCR {
		matchText = p.normalizer.FoldDigits(l.Text)
	}
	return Unit{
		Page:       l.Page,
		LineNo:     l.LineNo,
		Text:       l.Text,
		MatchText:  matchText,
		Method:     l.Method,
		Candidates: p.normalizer.NormalizeLine(l),
	}
}

func (p *Pipeline) rowUnits(cells []extraction.TableCell) []Unit {
	var units []Unit
	for start := 0; start < len(cells); {
		end := start + 1
		for end < len(cells) && cells[end].Table == cells[start].Table && cells[end].Row == cells[start].Row {
			end++
		}
		row := cells[start:end]
		units = append(units, Unit{
			Page:       row[0].Page,
			LineNo:     row[0].LineNo,
			Text:       row[0].RowText,
			MatchText:  rowMatchText(row),
			Method:     extraction.MethodText,
			Candidates: p.normalizer.NormalizeRow(row),
		})
		start = end
	}
	return units
}

// rowMatchText writes each cell as header=value so that column headers act
// as axis labels. A parenthesized unit in the header is dropped.
func rowMatchText(row []extraction.TableCell) string {
	parts := make([]string, 0, len(row))
	for _, c := range row {
		header, _, _ := strings.Cut(c.Header, "(")
		header = strings.TrimSpace(header)
		if header == "" || header == c.Text {
			parts = append(parts, c.Text)
			continue
		}
		parts = append(parts, header+"="+c.Text)
	}
	return strings.Join(parts, " ")
}
