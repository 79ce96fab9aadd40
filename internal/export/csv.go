// Package export renders pipeline results as JSON-ready records and CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/a3tai/mcp-pdf-parts/internal/parts"
)

// Schema names a CSV layout.
type Schema int

const (
	// SchemaPartsList is part_number,file_name.
	SchemaPartsList Schema = iota
	// SchemaMatchedLines is part_number,matched_line,file_name.
	SchemaMatchedLines
	// SchemaLines is file_name,page,line_no,text.
	SchemaLines
)

// utf8BOM lets spreadsheet applications detect the encoding of line dumps.
const utf8BOM = "\ufeff"

// ContentType is the media type of every CSV this package writes.
const ContentType = "text/csv; charset=utf-8"

// String returns the schema name
func (s Schema) String() string {
	switch s {
	case SchemaPartsList:
		return "parts list"
	case SchemaMatchedLines:
		return "matched lines"
	case SchemaLines:
		return "pdf lines"
	default:
		return "unknown"
	}
}

// FileName returns the download name for a schema.
func FileName(s Schema) string {
	switch s {
	case SchemaMatchedLines:
		return "search_results.csv"
	case SchemaLines:
		return "pdf_lines.csv"
	default:
		return "parts_list.csv"
	}
}

// Header returns the CSV header row of a schema.
func Header(s Schema) []string {
	switch s {
	case SchemaMatchedLines:
		return []string{"part_number", "matched_line", "file_name"}
	case SchemaLines:
		return []string{"file_name", "page", "line_no", "text"}
	default:
		return []string{"part_number", "file_name"}
	}
}

// SchemaFor picks the record schema of a pipeline mode.
func SchemaFor(mode parts.Mode) Schema {
	switch mode {
	case parts.ModeLineSearch:
		return SchemaMatchedLines
	case parts.ModeLines:
		return SchemaLines
	default:
		return SchemaPartsList
	}
}

// WriteCSV writes the header and one row per record, in ResultSet order.
func WriteCSV(w io.Writer, records parts.ResultSet, schema Schema) error {
	if schema == SchemaLines {
		return fmt.Errorf("schema %s holds line records, use WriteLinesCSV", schema)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Header(schema)); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range records {
		row := []string{r.PartNumber, r.FileName}
		if schema == SchemaMatchedLines {
			row = []string{r.PartNumber, r.MatchedLine, r.FileName}
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteLinesCSV writes a UTF-8 BOM, the header and one row per line.
func WriteLinesCSV(w io.Writer, lines []parts.LineRecord) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return fmt.Errorf("failed to write CSV BOM: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Header(SchemaLines)); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, l := range lines {
		row := []string{l.FileName, strconv.Itoa(l.Page), strconv.Itoa(l.LineNo), l.Text}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteResponse writes the CSV matching the response mode and returns the
// file name to offer for download.
func WriteResponse(w io.Writer, resp *parts.Response) (string, error) {
	schema := SchemaFor(resp.Mode)
	if schema == SchemaLines {
		return FileName(schema), WriteLinesCSV(w, resp.Lines)
	}
	return FileName(schema), WriteCSV(w, resp.Records, schema)
}

// ReadCSV parses a parts list or matched lines CSV back into records.
func ReadCSV(r io.Reader, schema Schema) (parts.ResultSet, error) {
	if schema == SchemaLines {
		return nil, fmt.Errorf("schema %s holds line records", schema)
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header(schema))
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("missing CSV header")
	}

	records := make(parts.ResultSet, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if schema == SchemaMatchedLines {
			records = append(records, parts.ResultRecord{PartNumber: row[0], MatchedLine: row[1], FileName: row[2]})
			continue
		}
		records = append(records, parts.ResultRecord{PartNumber: row[0], FileName: row[1]})
	}
	return records, nil
}
