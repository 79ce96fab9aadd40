package parts

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/a3tai/mcp-pdf-parts/internal/pdf/extraction"
)

var (
	pureNumberPattern = regexp.MustCompile(`^\d+(?:\.\d+)?$`)
	unitNumberPattern = regexp.MustCompile(`(?i)^\d+(?:\.\d+)?(?:mm|cm|m|in|inch|inches|um|mil|deg)$`)
	productPattern    = regexp.MustCompile(`(?i)^\d+(?:\.\d+)?(?:x\d+(?:\.\d+)?)+(?:mm|cm|m|in)?$`)
	fractionPattern   = regexp.MustCompile(`^\d+/\d+$`)
)

// confusables maps letters OCR commonly returns in place of digits.
var confusables = map[rune]rune{
	'O': '0', 'o': '0', 'Q': '0', 'D': '0',
	'I': '1', 'l': '1',
	'S': '5', 's': '5',
	'B': '8',
	'Z': '2', 'z': '2',
	'G': '6',
}

// Fold applies NFKC so full-width forms become ASCII and unifies dash
// variants to '-'.
func Fold(s string) string {
	s = norm.NFKC.String(s)
	return strings.Map(func(r rune) rune {
		switch r {
		case '‐', '‑', '‒', '–', '—', '―', '⁃', '−', '﹣':
			return '-'
		}
		return r
	}, s)
}

// Normalizer recognizes part-number shaped tokens.
type Normalizer struct {
	minLength          int
	confusionThreshold float64
}

// NewNormalizer creates a normalizer. minLength is the shortest token that
// counts as a part number; confusionThreshold is the largest share of a
// mostly-digit OCR segment that may be letters folded to digits.
func NewNormalizer(minLength int, confusionThreshold float64) *Normalizer {
	if minLength < 1 {
		minLength = DefaultMinTokenLength
	}
	return &Normalizer{minLength: minLength, confusionThreshold: confusionThreshold}
}

// Tokens returns the distinct part-number tokens of text in order of first
// appearance.
func (n *Normalizer) Tokens(text string, method extraction.Method) []string {
	var out []string
	seen := make(map[string]bool)
	for _, raw := range splitRuns(Fold(text)) {
		for _, tok := range n.expand(raw) {
			if method == extraction.MethodOCR {
				tok = n.foldConfusables(tok)
			}
			if !n.isPartNumber(tok) || seen[tok] {
				continue
			}
			seen[tok] = true
			out = append(out, tok)
		}
	}
	return out
}

// NormalizeLine returns one Candidate per distinct token of the line.
func (n *Normalizer) NormalizeLine(line extraction.RawLine) []Candidate {
	tokens := n.Tokens(line.Text, line.Method)
	candidates := make([]Candidate, 0, len(tokens))
	for _, tok := range tokens {
		candidates = append(candidates, Candidate{
			PartNumber:  tok,
			FileName:    line.FileName,
			MatchedLine: line.Text,
			Page:        line.Page,
			LineNo:      line.LineNo,
			Method:      line.Method,
		})
	}
	return candidates
}

// NormalizeCell returns the candidates of one table cell; the matched line
// is the cell's whole row.
func (n *Normalizer) NormalizeCell(cell extraction.TableCell) []Candidate {
	tokens := n.Tokens(cell.Text, extraction.MethodText)
	candidates := make([]Candidate, 0, len(tokens))
	for _, tok := range tokens {
		candidates = append(candidates, Candidate{
			PartNumber:  tok,
			FileName:    cell.FileName,
			MatchedLine: cell.RowText,
			Page:        cell.Page,
			LineNo:      cell.LineNo,
			Method:      extraction.MethodText,
		})
	}
	return candidates
}

// NormalizeRow returns the candidates of all cells of one table row,
// deduplicated across the row.
func (n *Normalizer) NormalizeRow(cells []extraction.TableCell) []Candidate {
	var out []Candidate
	seen := make(map[string]bool)
	for _, cell := range cells {
		for _, c := range n.NormalizeCell(cell) {
			if seen[c.PartNumber] {
				continue
			}
			seen[c.PartNumber] = true
			out = append(out, c)
		}
	}
	return out
}

// splitRuns returns the maximal runs of characters that may appear in a
// part number, plus '.', which is resolved by expand.
func splitRuns(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !isTokenRune(r) && r != '.'
	})
}

func isTokenRune(r rune) bool {
	return r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '/')
}

// expand trims a run and splits it on dots that are not decimal points.
func (n *Normalizer) expand(run string) []string {
	run = strings.Trim(run, ".-_/")
	if run == "" {
		return nil
	}
	if !strings.Contains(run, ".") {
		return []string{run}
	}
	if isDimensionToken(run) {
		return nil
	}
	var out []string
	for _, piece := range strings.Split(run, ".") {
		if piece = strings.Trim(piece, "-_/"); piece != "" {
			out = append(out, piece)
		}
	}
	return out
}

func (n *Normalizer) isPartNumber(tok string) bool {
	if len(tok) < n.minLength {
		return false
	}
	hasDigit := false
	for _, r := range tok {
		if !isTokenRune(r) {
			return false
		}
		if unicode.IsDigit(r) {
			hasDigit = true
		}
	}
	return hasDigit && !isDimensionToken(tok)
}

// isDimensionToken reports tokens that look like measurements rather than
// identifiers.
func isDimensionToken(tok string) bool {
	return pureNumberPattern.MatchString(tok) ||
		unitNumberPattern.MatchString(tok) ||
		productPattern.MatchString(tok) ||
		fractionPattern.MatchString(tok)
}

// FoldDigits replaces a run of confusable letters that directly follows a
// digit, so that OCR output such as L=2O reads as L=20. Runs that also hold
// other letters, like the unit in 4mm, are kept. It returns text unchanged
// when confusable folding is disabled.
func (n *Normalizer) FoldDigits(text string) string {
	if n.confusionThreshold <= 0 {
		return text
	}
	runes := []rune(Fold(text))
	for i := 1; i < len(runes); i++ {
		if _, ok := confusables[runes[i]]; !ok || !unicode.IsDigit(runes[i-1]) {
			continue
		}
		j := i
		for j < len(runes) && runes[j] < unicode.MaxASCII && unicode.IsLetter(runes[j]) {
			if _, ok := confusables[runes[j]]; !ok {
				break
			}
			j++
		}
		if j < len(runes) && runes[j] < unicode.MaxASCII && unicode.IsLetter(runes[j]) {
			i = j
			continue
		}
		for k := i; k < j; k++ {
			runes[k] = confusables[runes[k]]
		}
		i = j
	}
	return string(runes)
}

// foldConfusables replaces letters OCR confuses with digits inside
// separator-delimited segments that are mostly digits.
func (n *Normalizer) foldConfusables(tok string) string {
	if n.confusionThreshold <= 0 {
		return tok
	}
	segments := strings.FieldsFunc(tok, func(r rune) bool { return r == '-' || r == '_' || r == '/' })
	if len(segments) == 0 {
		return tok
	}

	var b strings.Builder
	rest := tok
	for _, seg := range segments {
		idx := strings.Index(rest, seg)
		b.WriteString(rest[:idx])
		b.WriteString(n.foldSegment(seg))
		rest = rest[idx+len(seg):]
	}
	b.WriteString(rest)
	return b.String()
}

func (n *Normalizer) foldSegment(seg string) string {
	digits, confused := 0, 0
	for _, r := range seg {
		switch {
		case unicode.IsDigit(r):
			digits++
		case confusables[r] != 0:
			confused++
		default:
			return seg
		}
	}
	if digits == 0 || confused == 0 {
		return seg
	}
	if float64(confused)/float64(digits+confused) > n.confusionThreshold {
		return seg
	}
	return strings.Map(func(r rune) rune {
		if d, ok := confusables[r]; ok {
			return d
		}
		return r
	}, seg)
}
