package export

import (
	"fmt"
	"strings"

	"github.com/a3tai/mcp-pdf-parts/internal/parts"
)

// Record is the display form of one result. MatchedLine is omitted from
// JSON in parts-list mode.
type Record struct {
	PartNumber  string `json:"part_number"`
	MatchedLine string `json:"matched_line,omitempty"`
	FileName    string `json:"file_name"`
}

// Records converts a result set for interactive display. The returned
// slice is never nil so that it encodes as [].
func Records(records parts.ResultSet) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		out = append(out, Record(r))
	}
	return out
}

// Payload is the JSON body returned to interactive callers.
type Payload struct {
	Mode        parts.Mode         `json:"mode"`
	Results     []Record           `json:"results"`
	Lines       []parts.LineRecord `json:"lines,omitempty"`
	Annotations []parts.Annotation `json:"annotations"`
	RunID       string             `json:"run_id"`
}

// NewPayload builds the JSON body of a response.
func NewPayload(resp *parts.Response) Payload {
	annotations := resp.Annotations
	if annotations == nil {
		annotations = []parts.Annotation{}
	}
	return Payload{
		Mode:        resp.Mode,
		Results:     Records(resp.Records),
		Lines:       resp.Lines,
		Annotations: annotations,
		RunID:       resp.Stats.RunID,
	}
}

// Summary renders a response as plain text for tool output.
func Summary(resp *parts.Response) string {
	var b strings.Builder

	switch resp.Mode {
	case parts.ModeLines:
		fmt.Fprintf(&b, "Extracted %d line(s) from %d file(s)", len(resp.Lines), resp.Stats.Files)
	case parts.ModeLineSearch:
		fmt.Fprintf(&b, "Found %d matching line record(s) for %s in %d file(s)", len(resp.Records), resp.Criteria, resp.Stats.Files)
	default:
		fmt.Fprintf(&b, "Found %d part number(s) in %d file(s)", len(resp.Records), resp.Stats.Files)
	}
	if resp.Stats.OCRPages > 0 {
		fmt.Fprintf(&b, " (%d page(s) via OCR)", resp.Stats.OCRPages)
	}
	b.WriteString("\n")

	if len(resp.Records) > 0 || len(resp.Lines) > 0 {
		b.WriteString("\n")
	}
	for _, r := range resp.Records {
		if resp.Mode == parts.ModeLineSearch {
			fmt.Fprintf(&b, "%s\t%s\t%s\n", r.PartNumber, r.FileName, r.MatchedLine)
			continue
		}
		fmt.Fprintf(&b, "%s\t%s\n", r.PartNumber, r.FileName)
	}
	for _, l := range resp.Lines {
		fmt.Fprintf(&b, "%s:%d:%d\t%s\n", l.FileName, l.Page, l.LineNo, l.Text)
	}

	if len(resp.Annotations) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, a := range resp.Annotations {
			b.WriteString("- ")
			b.WriteString(FormatAnnotation(a))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// FormatAnnotation renders one annotation on a single line.
func FormatAnnotation(a parts.Annotation) string {
	if a.Page > 0 {
		return fmt.Sprintf("%s page %d: %s [%s]", a.FileName, a.Page, a.Message, a.Category)
	}
	return fmt.Sprintf("%s: %s [%s]", a.FileName, a.Message, a.Category)
}
