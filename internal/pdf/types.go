package pdf

import "strings"

// PageStatus classifies how a page's text can be obtained.
type PageStatus int

const (
	// PageText has a decodable text layer.
	PageText PageStatus = iota
	// PageImage has no usable text layer but draws something, so it needs OCR.
	PageImage
	// PageBlank has no text and no drawing content.
	PageBlank
	// PageUnreadable could not be decoded at all.
	PageUnreadable
)

// String returns the status name
func (s PageStatus) String() string {
	switch s {
	case PageText:
		return "text"
	case PageImage:
		return "image"
	case PageBlank:
		return "blank"
	case PageUnreadable:
		return "unreadable"
	default:
		return "unknown"
	}
}

// Parser names the library that opened a document.
const (
	ParserLedongthuc = "ledongthuc"
	ParserPDFCPU     = "pdfcpu"
)

// Glyph is one decoded character with its position in PDF user space.
// Y grows upward; W is the advance width.
type Glyph struct {
	X        float64
	Y        float64
	W        float64
	FontSize float64
	S        string
}

// Page is one page of a loaded document.
type Page struct {
	Number int
	Status PageStatus
	Glyphs []Glyph
	Plain  string
	Images int
	// Drawn is true when the page has a non-empty content stream.
	Drawn bool
	Err   error
}

// HasText reports whether the page carries any non-whitespace text.
func (p Page) HasText() bool {
	return strings.TrimSpace(p.Plain) != "" || len(p.Glyphs) > 0
}

// SourceDocument is an uploaded file paired with its parsed pages. It lives
// only for the duration of one request.
type SourceDocument struct {
	Name   string
	Data   []byte
	Pages  []Page
	Parser string
}

// PageCount returns the number of pages.
func (d *SourceDocument) PageCount() int {
	return len(d.Pages)
}

// ImageOnlyPages returns the numbers of the pages that need OCR.
func (d *SourceDocument) ImageOnlyPages() []int {
	var pages []int
	for _, p := range d.Pages {
		if p.Status == PageImage {
			pages = append(pages, p.Number)
		}
	}
	return pages
}

// NamedFile is one input of a request: the user-supplied file name and
// its bytes, in submission order.
type NamedFile struct {
	Name string
	Data []byte
}

// FileInfo represents information about a PDF file found on disk
type FileInfo struct {
	Path         string `json:"path"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	ModifiedTime string `json:"modified_time"`
}
