package extraction

// Method tags how a line's text was obtained.
type Method string

const (
	MethodText Method = "text"
	MethodOCR  Method = "ocr"
)

// RawLine is one visual row of text on a page. LineNo is the 1-based
// ordinal of the row among the non-empty rows of its page, top to bottom.
type RawLine struct {
	FileName string `json:"file_name"`
	Page     int    `json:"page"`
	LineNo   int    `json:"line_no"`
	Text     string `json:"text"`
	Method   Method `json:"method"`
}

// TableCell is one cell of a detected table. RowText is the whole row
// joined with single spaces; Header is the text of the table's header
// cell in the same column, when the table has one.
type TableCell struct {
	FileName string `json:"file_name"`
	Page     int    `json:"page"`
	LineNo   int    `json:"line_no"`
	Table    int    `json:"table"`
	Row      int    `json:"row"`
	Col      int    `json:"col"`
	Text     string `json:"text"`
	RowText  string `json:"row_text"`
	Header   string `json:"header,omitempty"`
}

// PageContent is the outcome of extracting one page. It is one of
// TextExtracted, OCRExtracted or Empty.
type PageContent interface {
	PageNumber() int
	isPageContent()
}

// TextExtracted holds the free-text lines and table cells of a page with
// a text layer.
type TextExtracted struct {
	Page  int
	Lines []RawLine
	Cells []TableCell
}

// OCRExtracted holds the recognized lines of an image-only page.
type OCRExtracted struct {
	Page  int
	Lines []RawLine
}

// Empty marks a page that contributes nothing.
type Empty struct {
	Page   int
	Reason string
}

func (c TextExtracted) PageNumber() int { return c.Page }
func (c OCRExtracted) PageNumber() int  { return c.Page }
func (c Empty) PageNumber() int         { return c.Page }

func (TextExtracted) isPageContent() {}
func (OCRExtracted) isPageContent()  {}
func (Empty) isPageContent()         {}
