package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-parts/internal/pdf"
	"github.com/a3tai/mcp-pdf-parts/internal/pdf/pdftest"
)

// glyphs lays s out as monospaced 12pt characters starting at (x, y).
func glyphs(x, y float64, s string) []pdf.Glyph {
	var out []pdf.Glyph
	for _, r := range s {
		out = append(out, pdf.Glyph{X: x, Y: y, W: 7.2, FontSize: 12, S: string(r)})
		x += 7.2
	}
	return out
}

func textPage(number int, runs ...[]pdf.Glyph) pdf.Page {
	page := pdf.Page{Number: number, Status: pdf.PageText}
	for _, r := range runs {
		page.Glyphs = append(page.Glyphs, r...)
	}
	return page
}

func TestTextExtractor_ExtractText(t *testing.T) {
	extractor := NewTextExtractor(0.7)

	page := textPage(2,
		glyphs(72, 700, "second line"),
		glyphs(72, 720, "PART NO: ABC-123"),
		glyphs(72, 719, ""),
	)

	lines := extractor.ExtractText("a.pdf", page)
	require.Len(t, lines, 2)
	assert.Equal(t, RawLine{FileName: "a.pdf", Page: 2, LineNo: 1, Text: "PART NO: ABC-123", Method: MethodText}, lines[0])
	assert.Equal(t, "second line", lines[1].Text)
	assert.Equal(t, 2, lines[1].LineNo)
}

func TestTextExtractor_RowAssembly(t *testing.T) {
	extractor := NewTextExtractor(0.7)

	tests := []struct {
		name string
		page pdf.Page
		want []string
	}{
		{
			name: "glyphs out of order are sorted by x",
			page: textPage(1, glyphs(150, 500, "DEF"), glyphs(72, 500.5, "ABC")),
			want: []string{"ABC DEF"},
		},
		{
			name: "small gap becomes a space",
			page: textPage(1, glyphs(72, 500, "L=20"), glyphs(72+4*7.2+4, 500, "mm")),
			want: []string{"L=20 mm"},
		},
		{
			name: "adjacent glyphs join",
			page: textPage(1, glyphs(72, 500, "AB"), glyphs(72+2*7.2, 500, "C-1")),
			want: []string{"ABC-1"},
		},
		{
			name: "rows within tolerance merge",
			page: textPage(1, glyphs(72, 500, "X1"), glyphs(300, 498, "Y2")),
			want: []string{"X1 Y2"},
		},
		{
			name: "rows outside tolerance split",
			page: textPage(1, glyphs(72, 500, "X1"), glyphs(72, 490, "Y2")),
			want: []string{"X1", "Y2"},
		},
		{
			name: "whitespace collapses",
			page: textPage(1, glyphs(72, 500, "  A   B  ")),
			want: []string{"A B"},
		},
		{
			name: "plain text fallback",
			page: pdf.Page{Number: 1, Status: pdf.PageText, Plain: "first\n\n  second  line \n"},
			want: []string{"first", "second line"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, l := range extractor.ExtractText("f.pdf", tt.page) {
				got = append(got, l.Text)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTextExtractor_Tables(t *testing.T) {
	extractor := NewTextExtractor(0.7)

	page := textPage(1,
		glyphs(72, 740, "PARTS LIST"),
		glyphs(72, 720, "PART NO"), glyphs(222, 720, "L"), glyphs(372, 720, "W"),
		glyphs(72, 700, "XYZ-200"), glyphs(222, 700, "20"), glyphs(372, 700, "4"),
		glyphs(72, 680, "XYZ-300"), glyphs(222, 680, "30"), glyphs(372, 680, "5"),
		glyphs(72, 640, "NOTE: ALL DIMS IN MM"),
	)

	content := extractor.Extract("t.pdf", page)
	text, ok := content.(TextExtracted)
	require.True(t, ok, "expected TextExtracted, got %T", content)

	require.Len(t, text.Lines, 2)
	assert.Equal(t, "PARTS LIST", text.Lines[0].Text)
	assert.Equal(t, 1, text.Lines[0].LineNo)
	assert.Equal(t, "NOTE: ALL DIMS IN MM", text.Lines[1].Text)
	assert.Equal(t, 5, text.Lines[1].LineNo)

	require.Len(t, text.Cells, 9)
	cell := text.Cells[4]
	assert.Equal(t, "20", cell.Text)
	assert.Equal(t, 1, cell.Row)
	assert.Equal(t, 1, cell.Col)
	assert.Equal(t, 3, cell.LineNo)
	assert.Equal(t, "XYZ-200 20 4", cell.RowText)
	assert.Equal(t, "L", cell.Header)
	assert.Empty(t, text.Cells[0].Header, "header row has no header")

	assert.Equal(t, text.Cells, extractor.ExtractTables("t.pdf", page))
}

func TestTextExtractor_AmbiguousRegionStaysText(t *testing.T) {
	extractor := NewTextExtractor(0.7)

	// Two-segment rows whose columns do not line up.
	page := textPage(1,
		glyphs(72, 720, "ABC-1"), glyphs(200, 720, "left"),
		glyphs(300, 700, "DEF-2"), glyphs(480, 700, "right"),
	)

	content := extractor.Extract("a.pdf", page)
	text, ok := content.(TextExtracted)
	require.True(t, ok)
	assert.Empty(t, text.Cells)
	require.Len(t, text.Lines, 2)
	assert.Equal(t, "ABC-1 left", text.Lines[0].Text)
	assert.Empty(t, extractor.ExtractTables("a.pdf", page))
}

func TestTextExtractor_EmptyPages(t *testing.T) {
	extractor := NewTextExtractor(0)

	content := extractor.Extract("a.pdf", pdf.Page{Number: 3, Status: pdf.PageImage})
	empty, ok := content.(Empty)
	require.True(t, ok)
	assert.Equal(t, 3, empty.PageNumber())
	assert.Equal(t, "image", empty.Reason)

	content = extractor.Extract("a.pdf", pdf.Page{Number: 1, Status: pdf.PageText, Plain: "  \n "})
	_, ok = content.(Empty)
	assert.True(t, ok)
}

func TestColumnConsistency(t *testing.T) {
	aligned := []row{
		{segments: []segment{{x0: 72}, {x0: 200}}},
		{segments: []segment{{x0: 74}, {x0: 205}}},
		{segments: []segment{{x0: 70}, {x0: 198}}},
	}
	assert.InDelta(t, 1.0, columnConsistency(aligned), 1e-9)

	mixed := []row{
		{segments: []segment{{x0: 72}, {x0: 200}}},
		{segments: []segment{{x0: 72}, {x0: 200}, {x0: 300}}},
		{segments: []segment{{x0: 72}, {x0: 200}, {x0: 300}, {x0: 400}}},
	}
	assert.Less(t, columnConsistency(mixed), 0.7)

	assert.Zero(t, columnConsistency(aligned[:1]))
}

func TestTextExtractor_JitteredColumns(t *testing.T) {
	extractor := NewTextExtractor(0.7)

	page := textPage(1,
		glyphs(72, 720, "A-100"), glyphs(222, 720, "20"),
		glyphs(76, 700, "B-200"), glyphs(222, 700, "30"),
		glyphs(72, 680, "C-300"), glyphs(226, 680, "40"),
	)

	cells := extractor.ExtractTables("j.pdf", page)
	require.Len(t, cells, 6)
	for i, cell := range cells {
		assert.Equal(t, i/2, cell.Row, cell.Text)
		assert.Equal(t, i%2, cell.Col, cell.Text)
		assert.Equal(t, i/2+1, cell.LineNo, cell.Text)
		assert.Empty(t, cell.Header, "first row has digits so it is not a header")
	}
	assert.Equal(t, "B-200", cells[2].Text)
	assert.Equal(t, "40", cells[5].Text)
	assert.Equal(t, "C-300 40", cells[5].RowText)
}

func TestRowBand(t *testing.T) {
	rows := []row{{y: 720}, {y: 700}, {y: 670}}

	tests := []struct {
		i           int
		top, bottom float64
	}{
		{0, 730, 710},
		{1, 710, 685},
		{2, 685, 655},
	}
	for _, tt := range tests {
		top, bottom := rowBand(rows, tt.i)
		assert.Equal(t, tt.top, top, "top of row %d", tt.i)
		assert.Equal(t, tt.bottom, bottom, "bottom of row %d", tt.i)
	}
}

func TestTextExtractor_FromPDF(t *testing.T) {
	data := pdftest.Build(
		pdftest.Lines("PART NO: ABC-123, L=20mm W=4mm").Table(660,
			[]string{"PART", "L", "W"},
			[]string{"XYZ-9", "20", "4"},
		),
	)

	doc, err := pdf.NewLoader(0, 1).Load("d.pdf", data)
	require.NoError(t, err)

	content := NewTextExtractor(0.7).Extract("d.pdf", doc.Pages[0])
	text, ok := content.(TextExtracted)
	require.True(t, ok)
	require.NotEmpty(t, text.Lines)
	assert.Equal(t, "PART NO: ABC-123, L=20mm W=4mm", text.Lines[0].Text)
	require.Len(t, text.Cells, 6)
	assert.Equal(t, "XYZ-9 20 4", text.Cells[3].RowText)
}
