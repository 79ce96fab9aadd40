package pdf

import (
	"bytes"
	"fmt"
	"unicode"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/sirupsen/logrus"

	pdferrors "github.com/a3tai/mcp-pdf-parts/internal/pdf/errors"
)

// Loader opens uploaded PDF bytes and classifies every page by how its
// text can be obtained.
type Loader struct {
	validator    *Validator
	minTextChars int
	logger       *logrus.Entry
}

// NewLoader creates a new loader. minTextChars is the number of
// non-whitespace characters a page needs to count as text-bearing.
func NewLoader(maxFileSize int64, minTextChars int) *Loader {
	if minTextChars < 1 {
		minTextChars = 1
	}
	return &Loader{
		validator:    NewValidator(maxFileSize),
		minTextChars: minTextChars,
		logger:       logrus.NewEntry(logrus.StandardLogger()),
	}
}

// WithLogger sets the log entry used for parser diagnostics.
func (l *Loader) WithLogger(entry *logrus.Entry) *Loader {
	l.logger = entry
	return l
}

// Load parses data into a SourceDocument. Unparseable input fails with a
// CORRUPT_DOCUMENT error; an individual page that cannot be decoded is
// marked unreadable and loading continues.
func (l *Loader) Load(name string, data []byte) (*SourceDocument, error) {
	if err := l.validator.ValidateBytes(name, data); err != nil {
		return nil, err
	}

	doc, primaryErr := l.loadText(name, data)
	if primaryErr == nil {
		return doc, nil
	}

	l.logger.WithFields(logrus.Fields{"file": name, "error": primaryErr}).
		Debug("text layer parser failed, falling back to structural parser")

	doc, fallbackErr := l.loadStructure(name, data)
	if fallbackErr != nil {
		return nil, pdferrors.NewPDFErrorWithContext(pdferrors.ErrorTypeCorruptDocument,
			"failed to open PDF", fmt.Sprintf("%v; %v", primaryErr, fallbackErr)).
			WithFile(name).WithCause(primaryErr)
	}
	return doc, nil
}

// loadText opens the document with ledongthuc/pdf and decodes each page.
func (l *Loader) loadText(name string, data []byte) (*SourceDocument, error) {
	var reader *pdf.Reader
	err := pdferrors.Guard(pdferrors.ErrorTypeCorruptDocument, func() error {
		r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return err
		}
		reader = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	var numPages int
	if err := pdferrors.Guard(pdferrors.ErrorTypeCorruptDocument, func() error {
		numPages = reader.NumPage()
		return nil
	}); err != nil {
		return nil, err
	}
	if numPages == 0 {
		return nil, fmt.Errorf("document has no pages")
	}

	doc := &SourceDocument{
		Name:   name,
		Data:   data,
		Pages:  make([]Page, 0, numPages),
		Parser: ParserLedongthuc,
	}
	for pageNum := 1; pageNum <= numPages; pageNum++ {
		doc.Pages = append(doc.Pages, l.decodePage(name, reader, pageNum))
	}
	return doc, nil
}

// decodePage extracts glyphs and plain text for one page.
func (l *Loader) decodePage(name string, reader *pdf.Reader, pageNum int) Page {
	page := Page{Number: pageNum}

	err := pdferrors.Guard(pdferrors.ErrorTypeMalformedPage, func() error {
		p := reader.Page(pageNum)
		if p.V.IsNull() {
			return fmt.Errorf("page object missing")
		}

		page.Images = countImages(p)
		page.Drawn = hasContent(p)

		for _, t := range p.Content().Text {
			page.Glyphs = append(page.Glyphs, Glyph{
				X:        t.X,
				Y:        t.Y,
				W:        t.W,
				FontSize: t.FontSize,
				S:        t.S,
			})
		}

		text, err := p.GetPlainText(nil)
		if err != nil && len(page.Glyphs) == 0 {
			return err
		}
		page.Plain = text
		return nil
	})
	if err != nil {
		page.Status = PageUnreadable
		page.Glyphs = nil
		page.Err = pdferrors.WrapError(pdferrors.ErrorTypeMalformedPage, err).WithFile(name).WithPage(pageNum)
		l.logger.WithFields(logrus.Fields{"file": name, "page": pageNum, "error": err}).
			Warn("page could not be decoded")
		return page
	}

	if countVisible(page.Glyphs, page.Plain) < l.minTextChars {
		page.Status = PageImage
		if page.Images == 0 && !page.Drawn {
			page.Status = PageBlank
		}
		page.Glyphs = nil
		page.Plain = ""
		return page
	}

	page.Status = PageText
	return page
}

// loadStructure opens the document with pdfcpu when the text parser
// rejects it. Such a document has no decodable text layer, so every page
// is routed to OCR.
func (l *Loader) loadStructure(name string, data []byte) (*SourceDocument, error) {
	var pageCount int
	err := pdferrors.Guard(pdferrors.ErrorTypeCorruptDocument, func() error {
		conf := model.NewDefaultConfiguration()
		conf.ValidationMode = model.ValidationRelaxed

		ctx, err := api.ReadContext(bytes.NewReader(data), conf)
		if err != nil {
			return fmt.Errorf("failed to read PDF context: %w", err)
		}
		if err := ctx.EnsurePageCount(); err != nil {
			return fmt.Errorf("failed to ensure page count: %w", err)
		}
		pageCount = ctx.PageCount
		return nil
	})
	if err != nil {
		return nil, err
	}
	if pageCount == 0 {
		return nil, fmt.Errorf("document has no pages")
	}

	doc := &SourceDocument{
		Name:   name,
		Data:   data,
		Pages:  make([]Page, pageCount),
		Parser: ParserPDFCPU,
	}
	for i := range doc.Pages {
		doc.Pages[i] = Page{Number: i + 1, Status: PageImage}
	}
	return doc, nil
}

// countImages counts image XObjects in the page resources
func countImages(page pdf.Page) int {
	resources := page.V.Key("Resources")
	if resources.IsNull() {
		return 0
	}

	xObjects := resources.Key("XObject")
	if xObjects.IsNull() || xObjects.Kind() != pdf.Dict {
		return 0
	}

	imageCount := 0
	for _, key := range xObjects.Keys() {
		subtype := xObjects.Key(key).Key("Subtype")
		if !subtype.IsNull() && subtype.Name() == "Image" {
			imageCount++
		}
	}
	return imageCount
}

// hasContent reports whether the page has a content stream with data.
// Vector outlines of text need OCR just like scans do.
func hasContent(page pdf.Page) bool {
	contents := page.V.Key("Contents")
	switch contents.Kind() {
	case pdf.Stream:
		return contents.Key("Length").Int64() > 0
	case pdf.Array:
		for i := 0; i < contents.Len(); i++ {
			if contents.Index(i).Key("Length").Int64() > 0 {
				return true
			}
		}
	}
	return false
}

// countVisible counts non-whitespace characters, preferring positioned
// glyphs over the plain text rendering.
func countVisible(glyphs []Glyph, plain string) int {
	n := 0
	if len(glyphs) > 0 {
		for _, g := range glyphs {
			n += countNonSpace(g.S)
		}
		return n
	}
	return countNonSpace(plain)
}

func countNonSpace(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
