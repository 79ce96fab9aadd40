package parts

import (
	"time"

	pdferrors "github.com/a3tai/mcp-pdf-parts/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-parts/internal/pdf/extraction"
)

// Mode selects how candidates are aggregated.
type Mode string

const (
	// ModeAuto runs a line search when any axis is constrained and a parts
	// list otherwise.
	ModeAuto       Mode = "auto"
	ModePartsList  Mode = "parts_list"
	ModeLineSearch Mode = "line_search"
	ModeLines      Mode = "lines"
)

// Candidate is a part-number token with the line it came from.
type Candidate struct {
	PartNumber  string            `json:"part_number"`
	FileName    string            `json:"file_name"`
	MatchedLine string            `json:"matched_line"`
	Page        int               `json:"page"`
	LineNo      int               `json:"line_no"`
	Method      extraction.Method `json:"method"`
}

// Unit is one free-text line or one table row of a page, in reading order.
// MatchText is what the dimension matcher sees: the line itself, or the
// row's cells written as header=value.
type Unit struct {
	Page       int
	LineNo     int
	Text       string
	MatchText  string
	Method     extraction.Method
	Candidates []Candidate
}

// FileOutcome is the result of processing one input file. Err is set when
// the file contributed nothing; page-level problems that did not stop the
// file are collected in Problems.
type FileOutcome struct {
	FileName string
	Pages    int
	OCRPages int
	Units    []Unit
	Problems *pdferrors.ErrorCollection
	Err      error
	// NeedsOCR is set when image-only pages were found and no OCR engine
	// could process them.
	NeedsOCR bool
}

// ResultRecord is one row of the result set. MatchedLine is empty in
// parts-list mode.
type ResultRecord struct {
	PartNumber  string `json:"part_number"`
	MatchedLine string `json:"matched_line,omitempty"`
	FileName    string `json:"file_name"`
}

// ResultSet is an ordered sequence of records.
type ResultSet []ResultRecord

// LineRecord is one extracted text line.
type LineRecord struct {
	FileName string `json:"file_name"`
	Page     int    `json:"page"`
	LineNo   int    `json:"line_no"`
	Text     string `json:"text"`
}

// Annotation reports a file or page that contributed less than expected.
// Page is zero for file-level problems.
type Annotation struct {
	FileName string `json:"file_name"`
	Page     int    `json:"page,omitempty"`
	Category string `json:"category"`
	Message  string `json:"message"`
}

// Stats summarizes a run.
type Stats struct {
	RunID    string        `json:"run_id"`
	Files    int           `json:"files"`
	Pages    int           `json:"pages"`
	OCRPages int           `json:"ocr_pages"`
	Duration time.Duration `json:"duration_ns"`
}

// Response is the full result of one pipeline run.
type Response struct {
	Mode        Mode         `json:"mode"`
	Criteria    string       `json:"criteria,omitempty"`
	Records     ResultSet    `json:"records,omitempty"`
	Lines       []LineRecord `json:"lines,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty"`
	Stats       Stats        `json:"stats"`
}
