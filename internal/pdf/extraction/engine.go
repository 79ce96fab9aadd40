package extraction

import (
	"math"
	"sort"
	"strings"

	"github.com/tsawler/tabula/model"
	"github.com/tsawler/tabula/tables"

	"github.com/a3tai/mcp-pdf-parts/internal/pdf"
)

const (
	defaultTableDetectionThreshold = 0.7
	defaultFontSize                = 12.0

	// Row and cell geometry, in points or multiples of the font size.
	rowTolerance    = 3.0
	wordGapFactor   = 0.2
	cellGapFactor   = 1.5
	columnTolerance = 12.0
	gridTolerance   = columnTolerance / 2
	glyphWidthRatio = 0.5

	minRowsForTable = 2
	minColsForTable = 2

	// unruledWeight is the share of the geometric detector's confidence
	// that does not come from ruling lines. Ruling lines are not read, so
	// the threshold is scaled by it.
	unruledWeight = 0.8
)

// TextExtractor turns the text layer of a page into lines and table cells.
type TextExtractor struct {
	tableThreshold float64
	detector       *tables.GeometricDetector
}

// NewTextExtractor creates an extractor. Regions whose table confidence is
// below tableThreshold are treated as free text.
func NewTextExtractor(tableThreshold float64) *TextExtractor {
	if tableThreshold <= 0 || tableThreshold > 1 {
		tableThreshold = defaultTableDetectionThreshold
	}

	detector := tables.NewGeometricDetector()
	_ = detector.Configure(tables.Config{
		MinRows:            minRowsForTable,
		MinCols:            minColsForTable,
		MinConfidence:      tableThreshold * unruledWeight,
		UseWhitespace:      true,
		MaxCellGap:         defaultFontSize * cellGapFactor,
		AlignmentTolerance: gridTolerance,
	})
	return &TextExtractor{tableThreshold: tableThreshold, detector: detector}
}

type segment struct {
	x0, x1 float64
	text   string
}

type row struct {
	y        float64
	segments []segment
}

func (r row) text() string {
	parts := make([]string, len(r.segments))
	for i, s := range r.segments {
		parts[i] = s.text
	}
	return strings.Join(parts, " ")
}

// detectedTable is a table reported by the detector. rows holds the page
// row index of each table row; cells holds the texts of the non-empty
// columns of each row.
type detectedTable struct {
	rows   []int
	cells  [][]string
	header bool
}

// ExtractText returns every non-empty visual row of the page as a line.
func (e *TextExtractor) ExtractText(fileName string, page pdf.Page) []RawLine {
	rows := e.rows(page)
	lines := make([]RawLine, 0, len(rows))
	for i, r := range rows {
		lines = append(lines, RawLine{
			FileName: fileName,
			Page:     page.Number,
			LineNo:   i + 1,
			Text:     r.text(),
			Method:   MethodText,
		})
	}
	return lines
}

// ExtractTables returns the cells of the tables detected on the page.
func (e *TextExtractor) ExtractTables(fileName string, page pdf.Page) []TableCell {
	rows := e.rows(page)
	var cells []TableCell
	for t, table := range e.detectTables(rows) {
		cells = append(cells, tableCells(fileName, page.Number, t, table, rows)...)
	}
	return cells
}

// Extract splits the page into free-text lines and table cells. Rows
// inside a detected table appear only as cells.
func (e *TextExtractor) Extract(fileName string, page pdf.Page) PageContent {
	if page.Status != pdf.PageText {
		return Empty{Page: page.Number, Reason: page.Status.String()}
	}

	rows := e.rows(page)
	if len(rows) == 0 {
		return Empty{Page: page.Number, Reason: "no text"}
	}

	content := TextExtracted{Page: page.Number}
	inTable := make([]bool, len(rows))
	for t, table := range e.detectTables(rows) {
		for _, i := range table.rows {
			inTable[i] = true
		}
		content.Cells = append(content.Cells, tableCells(fileName, page.Number, t, table, rows)...)
	}

	for i, r := range rows {
		if inTable[i] {
			continue
		}
		content.Lines = append(content.Lines, RawLine{
			FileName: fileName,
			Page:     page.Number,
			LineNo:   i + 1,
			Text:     r.text(),
			Method:   MethodText,
		})
	}
	return content
}

// rows groups the page glyphs into visual rows, top to bottom.
func (e *TextExtractor) rows(page pdf.Page) []row {
	if len(page.Glyphs) == 0 {
		return plainRows(page.Plain)
	}

	glyphs := make([]pdf.Glyph, len(page.Glyphs))
	copy(glyphs, page.Glyphs)
	sort.SliceStable(glyphs, func(i, j int) bool {
		return glyphs[i].Y > glyphs[j].Y
	})

	var groups [][]pdf.Glyph
	current := []pdf.Glyph{glyphs[0]}
	currentY := glyphs[0].Y
	for _, g := range glyphs[1:] {
		if math.Abs(g.Y-currentY) <= rowTolerance {
			current = append(current, g)
			continue
		}
		groups = append(groups, current)
		current = []pdf.Glyph{g}
		currentY = g.Y
	}
	groups = append(groups, current)

	rows := make([]row, 0, len(groups))
	for _, group := range groups {
		if r, ok := buildRow(group); ok {
			rows = append(rows, r)
		}
	}
	return rows
}

// buildRow orders glyphs left to right and splits them into segments on
// wide horizontal gaps.
func buildRow(glyphs []pdf.Glyph) (row, bool) {
	sort.SliceStable(glyphs, func(i, j int) bool {
		return glyphs[i].X < glyphs[j].X
	})

	r := row{y: glyphs[0].Y}
	var b strings.Builder
	var x0, end float64
	started := false

	flush := func() {
		text := strings.Join(strings.Fields(b.String()), " ")
		if text != "" {
			r.segments = append(r.segments, segment{x0: x0, x1: end, text: text})
		}
		b.Reset()
		started = false
	}

	for _, g := range glyphs {
		size := g.FontSize
		if size <= 0 {
			size = defaultFontSize
		}
		width := g.W
		if width <= 0 {
			width = size * glyphWidthRatio * float64(len([]rune(g.S)))
		}

		if started {
			gap := g.X - end
			switch {
			case gap > size*cellGapFactor:
				flush()
			case gap > size*wordGapFactor:
				b.WriteByte(' ')
			}
		}
		if !started {
			if strings.TrimSpace(g.S) == "" {
				continue
			}
			started = true
			x0 = g.X
			end = g.X
		}

		b.WriteString(g.S)
		if g.X+width > end {
			end = g.X + width
		}
	}
	flush()

	return r, len(r.segments) > 0
}

// plainRows is used when a page has text but no positioned glyphs.
func plainRows(text string) []row {
	var rows []row
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		rows = append(rows, row{segments: []segment{{text: line}}})
	}
	return rows
}

// detectTables finds runs of multi-segment rows whose columns line up and
// hands each run to the geometric table detector.
func (e *TextExtractor) detectTables(rows []row) []detectedTable {
	var found []detectedTable
	for i := 0; i < len(rows); {
		if len(rows[i].segments) < minColsForTable {
			i++
			continue
		}
		j := i
		for j < len(rows) && len(rows[j].segments) >= minColsForTable {
			j++
		}
		if j-i >= minRowsForTable && columnConsistency(rows[i:j]) >= e.tableThreshold {
			found = append(found, e.gridTables(rows, i, j)...)
		}
		i = j
	}
	return found
}

// columnConsistency scores how table-like a run of rows is: the share of
// rows with the most common segment count, times the share of those rows
// whose segments start within columnTolerance of the first such row.
func columnConsistency(rows []row) float64 {
	if len(rows) < minRowsForTable {
		return 0
	}

	colCounts := make(map[int]int)
	for _, r := range rows {
		colCounts[len(r.segments)]++
	}

	maxCount, commonColCount := 0, 0
	for count, frequency := range colCounts {
		if frequency > maxCount || (frequency == maxCount && count > commonColCount) {
			maxCount = frequency
			commonColCount = count
		}
	}
	consistency := float64(maxCount) / float64(len(rows))

	var anchors []float64
	aligned := 0
	for _, r := range rows {
		if len(r.segments) != commonColCount {
			continue
		}
		if anchors == nil {
			anchors = make([]float64, commonColCount)
			for c, s := range r.segments {
				anchors[c] = s.x0
			}
		}
		ok := true
		for c, s := range r.segments {
			if math.Abs(s.x0-anchors[c]) > columnTolerance {
				ok = false
				break
			}
		}
		if ok {
			aligned++
		}
	}
	alignment := float64(aligned) / float64(maxCount)

	return consistency * alignment
}

// gridTables runs the detector over rows[start:end].
func (e *TextExtractor) gridTables(rows []row, start, end int) []detectedTable {
	page, centers := regionPage(rows[start:end])
	found, err := e.detector.Detect(page)
	if err != nil {
		return nil
	}

	var out []detectedTable
	for _, t := range found {
		if table, ok := compactTable(t, centers, start); ok {
			out = append(out, table)
		}
	}
	return out
}

// regionPage lays a run of rows out as text fragments. A fragment spans
// its row's band vertically and reaches the start of the next segment of
// its row horizontally, so grid boundaries fall on row bands and column
// starts. The returned centers are the vertical band centers per row.
func regionPage(rows []row) (*model.Page, []float64) {
	right := 0.0
	for _, r := range rows {
		last := r.segments[len(r.segments)-1]
		right = math.Max(right, math.Max(last.x1, last.x0+columnTolerance))
	}

	page := &model.Page{}
	centers := make([]float64, len(rows))
	for i, r := range rows {
		top, bottom := rowBand(rows, i)
		centers[i] = (top + bottom) / 2
		for k, s := range r.segments {
			x1 := right
			if k+1 < len(r.segments) {
				x1 = r.segments[k+1].x0
			}
			page.RawText = append(page.RawText, model.TextFragment{
				Text: s.text,
				BBox: model.NewBBox(s.x0, bottom, x1-s.x0, top-bottom),
			})
		}
	}
	return page, centers
}

// rowBand returns the vertical extent of rows[i], halfway to its
// neighbours. len(rows) must be at least 2.
func rowBand(rows []row, i int) (top, bottom float64) {
	y := rows[i].y
	if i > 0 {
		top = (rows[i-1].y + y) / 2
	} else {
		top = y + (y-rows[i+1].y)/2
	}
	if i+1 < len(rows) {
		bottom = (y + rows[i+1].y) / 2
	} else {
		bottom = y - (rows[i-1].y-y)/2
	}
	return top, bottom
}

// compactTable drops the empty rows and columns of a detected grid and maps
// each remaining row back to its page row.
func compactTable(t *model.Table, centers []float64, offset int) (detectedTable, bool) {
	used := make([]bool, t.ColCount())
	for _, cells := range t.Rows {
		for c, cell := range cells {
			if cell.Text != "" {
				used[c] = true
			}
		}
	}

	var table detectedTable
	for _, cells := range t.Rows {
		var texts []string
		pageRow := -1
		for c, cell := range cells {
			if !used[c] {
				continue
			}
			texts = append(texts, cell.Text)
			if cell.Text != "" && pageRow < 0 {
				pageRow = offset + nearest(centers, cell.BBox.Center().Y)
			}
		}
		if pageRow < 0 {
			continue
		}
		table.rows = append(table.rows, pageRow)
		table.cells = append(table.cells, texts)
	}

	if len(table.rows) < minRowsForTable {
		return detectedTable{}, false
	}
	table.header = isHeaderRow(table.cells[0])
	return table, true
}

func nearest(values []float64, v float64) int {
	best, bestDist := 0, math.Inf(1)
	for i, x := range values {
		if d := math.Abs(x - v); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// isHeaderRow reports whether a table row looks like column titles.
func isHeaderRow(texts []string) bool {
	for _, text := range texts {
		if strings.ContainsAny(text, "0123456789") {
			return false
		}
	}
	return true
}

func tableCells(fileName string, pageNum, index int, table detectedTable, rows []row) []TableCell {
	var cells []TableCell
	for r, texts := range table.cells {
		pageRow := table.rows[r]
		rowText := rows[pageRow].text()
		for c, text := range texts {
			if text == "" {
				continue
			}
			cell := TableCell{
				FileName: fileName,
				Page:     pageNum,
				LineNo:   pageRow + 1,
				Table:    index,
				Row:      r,
				Col:      c,
				Text:     text,
				RowText:  rowText,
			}
			if table.header && r > 0 {
				cell.Header = table.cells[0][c]
			}
			cells = append(cells, cell)
		}
	}
	return cells
}
