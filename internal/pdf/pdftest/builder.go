// Package pdftest builds small, well-formed PDF documents for tests.
//
// Text is drawn in Courier with an explicit width table so that glyph
// positions decoded by a PDF reader are stable and predictable.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

// Courier advance width in thousandths of the font size.
const CharWidth = 600

// Item is one run of text drawn at (X, Y) in PDF user space.
type Item struct {
	X, Y float64
	Text string
	Size float64
}

// Page is the content of one page. A page without items has no text layer.
// Scan pages carry a full-page image XObject; Ops are raw content
// operators appended after the text.
type Page struct {
	Items []Item
	Scan  bool
	Ops   string
}

// Lines stacks each line at the left margin, top to bottom.
func Lines(lines ...string) Page {
	p := Page{}
	for i, l := range lines {
		p.Items = append(p.Items, Item{X: 72, Y: 720 - float64(i)*20, Text: l})
	}
	return p
}

// Table draws rows of cells at fixed column positions below any existing
// content, starting at y. Columns are 150pt apart.
func (p Page) Table(y float64, rows ...[]string) Page {
	for r, row := range rows {
		for c, cell := range row {
			if cell == "" {
				continue
			}
			p.Items = append(p.Items, Item{X: 72 + float64(c)*150, Y: y - float64(r)*20, Text: cell})
		}
	}
	return p
}

// Blank is an empty page.
func Blank() Page {
	return Page{}
}

// Scan is a page whose only content is an embedded image, like a scanned
// sheet.
func Scan() Page {
	return Page{Scan: true}
}

// Vector is a page with line art but no text.
func Vector() Page {
	return Page{Ops: "72 72 m 300 300 l S"}
}

// Build renders the pages into a PDF file.
func Build(pages ...Page) []byte {
	// 1: catalog, 2: pages, 3: font, 4: shared 1x1 image; then per page
	// a page object and its content stream.
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 5+i*2)
	}
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		fontObject(),
		"<< /Type /XObject /Subtype /Image /Width 1 /Height 1 /ColorSpace /DeviceGray " +
			"/BitsPerComponent 8 /Length 1 >>\nstream\n\xff\nendstream",
	}

	for i, page := range pages {
		content := contentStream(page)
		resources := "/Font << /F1 3 0 R >>"
		if page.Scan {
			resources += " /XObject << /Im1 4 0 R >>"
		}
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
				"/Resources << %s >> /Contents %d 0 R >>", resources, 6+i*2),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func fontObject() string {
	widths := make([]string, 0, 95)
	for c := 32; c <= 126; c++ {
		widths = append(widths, fmt.Sprint(CharWidth))
	}
	return "<< /Type /Font /Subtype /Type1 /BaseFont /Courier /Encoding /WinAnsiEncoding " +
		"/FirstChar 32 /LastChar 126 /Widths [" + strings.Join(widths, " ") + "] >>"
}

func contentStream(p Page) string {
	var b strings.Builder
	for _, it := range p.Items {
		size := it.Size
		if size == 0 {
			size = 12
		}
		fmt.Fprintf(&b, "BT /F1 %g Tf %g %g Td (%s) Tj ET\n", size, it.X, it.Y, escape(it.Text))
	}
	if p.Scan {
		b.WriteString("q 612 0 0 792 0 0 cm /Im1 Do Q\n")
	}
	if p.Ops != "" {
		b.WriteString(p.Ops)
		b.WriteString("\n")
	}
	return b.String()
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
