package descriptions

import "sort"

// Tool descriptions with practical examples and use cases

const (
	PartsListDescription = `List every part number found in one or more PDF drawings or parts lists.

**When to use:** Need the complete set of part numbers referenced by a document, without filtering by size.

**Why it's useful:** Reads the text layer and table cells of every page, falls back to OCR for scanned pages, and folds full-width characters and common OCR confusions (O/0, l/1) so the same part number is reported once per file.

**Examples:**
• Bill of materials: "List the part numbers in assembly-A100.pdf"
• Whole folder: "List all part numbers in the drawings directory"

**Parameters:**
• paths: comma or newline separated PDF paths inside the configured directory
• directory: use every PDF in this directory instead of paths (defaults to the configured directory)
• format: "text" (default) or "csv" for parts_list.csv content

**Best practices:** Results are sorted by part number, then file name. Pages that could not be read are listed under Warnings rather than failing the call.`

	PartsSearchDescription = `Find the lines of a PDF whose dimensions match L, W and T values, with the part number on or near each line.

**When to use:** Looking for a part by its size, e.g. a plate of length 20 and width 4.

**Why it's useful:** Matches labeled values (L=20, 幅 4, Width: 4.0) and unlabeled values (20x4x1.6) with an absolute tolerance. When the matching line carries no part number, the nearest part number on the same page is reported.

**Examples:**
• "Which parts in catalog.pdf are 20 long and 4 wide?" → l_value=20, w_value=4
• "Find 1.6 thick parts in the drawings directory" → t_value=1.6

**Parameters:**
• paths or directory: as for parts_list
• l_value, w_value, t_value: numbers, unset axes are ignored; at least one is needed to filter
• format: "text" (default) or "csv" for search_results.csv content

**Best practices:** Without any value the tool behaves like parts_list. Non-numeric or negative values are rejected before any file is read.`

	PDFLinesDescription = `Extract every text line of one or more PDFs with file name, page and line number.

**When to use:** Need to inspect what the extractor sees, or want raw lines for your own filtering.

**Why it's useful:** Table rows are returned as single lines in reading order, and OCR text from scanned pages is included alongside the text layer.

**Examples:**
• "Show me the lines of spec-sheet.pdf"
• "Export the lines of every drawing as CSV" → format=csv

**Parameters:**
• paths or directory: as for parts_list
• format: "text" (default) or "csv" for pdf_lines.csv content

**Best practices:** Use this to check why a part number was or was not found before tuning the search values.`

	PartsServerInfoDescription = `Show server configuration, the PDFs available in the configured directory, and the available tools.

**When to use:** At the start of a session, to learn which files can be searched and whether OCR is available.

**Why it's useful:** Reports the matching tolerance, OCR resolution and languages, and lists PDF files so their paths can be passed to the other tools.

**Examples:**
• "What drawings can you search?"
• "Is OCR enabled on this server?"`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	"parts_list":        PartsListDescription,
	"parts_search":      PartsSearchDescription,
	"pdf_lines":         PDFLinesDescription,
	"parts_server_info": PartsServerInfoDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns the sorted names of all described tools
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
