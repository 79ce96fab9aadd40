package parts

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	pdferrors "github.com/a3tai/mcp-pdf-parts/internal/pdf/errors"
)

// Axis is a dimension axis of a part.
type Axis int

const (
	AxisNone Axis = iota
	AxisL
	AxisW
	AxisT
)

// String returns the axis letter
func (a Axis) String() string {
	switch a {
	case AxisL:
		return "L"
	case AxisW:
		return "W"
	case AxisT:
		return "T"
	default:
		return ""
	}
}

// floatSlack absorbs binary rounding when comparing against the tolerance.
const floatSlack = 1e-9

var (
	numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?|\.\d+`)

	asciiLabels = map[string]Axis{
		"l": AxisL, "len": AxisL, "length": AxisL,
		"w": AxisW, "wid": AxisW, "width": AxisW,
		"t": AxisT, "thk": AxisT, "thick": AxisT, "thickness": AxisT,
	}

	// Longest first so that 板厚 wins over 厚.
	cjkLabels = []struct {
		label string
		axis  Axis
	}{
		{"長さ", AxisL}, {"板厚", AxisT}, {"厚さ", AxisT},
		{"長", AxisL}, {"幅", AxisW}, {"厚", AxisT},
	}

	units = map[string]bool{
		"mm": true, "cm": true, "m": true, "in": true, "inch": true, "inches": true,
		"um": true, "mil": true, "deg": true,
	}
)

// Criteria is the optional L/W/T filter. A nil axis is unconstrained.
type Criteria struct {
	L         *float64
	W         *float64
	T         *float64
	Tolerance float64
}

// IsEmpty reports whether no axis is constrained.
func (c Criteria) IsEmpty() bool {
	return c.L == nil && c.W == nil && c.T == nil
}

type axisTarget struct {
	axis   Axis
	target float64
}

func (c Criteria) axes() []axisTarget {
	var out []axisTarget
	if c.L != nil {
		out = append(out, axisTarget{AxisL, *c.L})
	}
	if c.W != nil {
		out = append(out, axisTarget{AxisW, *c.W})
	}
	if c.T != nil {
		out = append(out, axisTarget{AxisT, *c.T})
	}
	return out
}

// String renders the constrained axes, e.g. "L=20 W=4".
func (c Criteria) String() string {
	var parts []string
	for _, a := range c.axes() {
		parts = append(parts, fmt.Sprintf("%s=%s", a.axis, strconv.FormatFloat(a.target, 'f', -1, 64)))
	}
	return strings.Join(parts, " ")
}

// ParseCriteria parses user-supplied L/W/T strings. Empty strings leave the
// axis unconstrained. Anything else must be a non-negative decimal number,
// optionally followed by "mm".
func ParseCriteria(l, w, t string, tolerance float64) (Criteria, error) {
	c := Criteria{Tolerance: tolerance}
	for _, f := range []struct {
		name string
		raw  string
		dst  **float64
	}{{"L", l, &c.L}, {"W", w, &c.W}, {"T", t, &c.T}} {
		v, err := parseValue(f.name, f.raw)
		if err != nil {
			return Criteria{}, err
		}
		*f.dst = v
	}
	return c, nil
}

func parseValue(name, raw string) (*float64, error) {
	s := strings.TrimSpace(Fold(raw))
	if s == "" {
		return nil, nil
	}
	s = strings.TrimSpace(strings.TrimSuffix(strings.ToLower(s), "mm"))

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, pdferrors.NewPDFError(pdferrors.ErrorTypeInvalidCriteria,
			fmt.Sprintf("%s value %q is not a number", name, raw))
	}
	if v < 0 {
		return nil, pdferrors.NewPDFError(pdferrors.ErrorTypeInvalidCriteria,
			fmt.Sprintf("%s value %q must not be negative", name, raw))
	}
	return &v, nil
}

// Value is a number found on a line, with the axis its label names.
type Value struct {
	Number float64
	Axis   Axis
}

// Matcher tests lines against dimension criteria.
type Matcher struct{}

// NewMatcher creates a new matcher
func NewMatcher() *Matcher {
	return &Matcher{}
}

// Matches reports whether every constrained axis finds a value on the line
// within tolerance. Values labeled with the axis are preferred; a line with
// no label for the axis is checked against its unlabeled values.
func (m *Matcher) Matches(text string, c Criteria) bool {
	if c.IsEmpty() {
		return true
	}

	values := m.Values(text)
	labeled := make(map[Axis][]float64)
	var unlabeled []float64
	for _, v := range values {
		if v.Axis == AxisNone {
			unlabeled = append(unlabeled, v.Number)
		} else {
			labeled[v.Axis] = append(labeled[v.Axis], v.Number)
		}
	}

	for _, a := range c.axes() {
		pool := labeled[a.axis]
		if len(pool) == 0 {
			pool = unlabeled
		}
		if !withinTolerance(pool, a.target, c.Tolerance) {
			return false
		}
	}
	return true
}

func withinTolerance(pool []float64, target, tolerance float64) bool {
	for _, v := range pool {
		if math.Abs(v-target) <= tolerance+floatSlack {
			return true
		}
	}
	return false
}

// Values returns the dimension-like numbers of a line. Digits that belong
// to an identifier such as ABC-123 or 12AB are skipped.
func (m *Matcher) Values(text string) []Value {
	s := Fold(text)
	var out []Value
	for _, loc := range numberPattern.FindAllStringIndex(s, -1) {
		start, end := loc[0], loc[1]
		if s[start] == '.' && endsWithDigit(s[:start]) {
			continue
		}
		if !rightContextOK(s[end:]) {
			continue
		}
		axis, ok := leftContext(s[:start])
		if !ok {
			continue
		}
		n, err := strconv.ParseFloat(s[start:end], 64)
		if err != nil {
			continue
		}
		out = append(out, Value{Number: n, Axis: axis})
	}
	return out
}

// rightContextOK accepts a number followed by nothing alphabetic, a unit,
// the x of a product such as 20x4, or the label of the next value, alone or
// after a unit or x as in L20xW4 and W=4mmT=1.
func rightContextOK(after string) bool {
	run := strings.ToLower(leadingASCIILetters(after))
	if run == "" || isGlue(run) {
		return true
	}
	for i := 0; i < len(run); i++ {
		if i > 0 && !isGlue(run[:i]) {
			continue
		}
		if _, ok := asciiLabels[run[i:]]; ok {
			return true
		}
	}
	return false
}

// isGlue reports whether s may sit between a number and the next label.
func isGlue(s string) bool {
	return s == "x" || units[s]
}

// leftContext classifies the text before a number. It returns the axis a
// label names, or ok=false when the digits are part of an identifier.
func leftContext(before string) (Axis, bool) {
	if before == "" {
		return AxisNone, true
	}
	r, _ := utf8.DecodeLastRuneInString(before)

	switch {
	case r < unicode.MaxASCII && unicode.IsLetter(r):
		run := trailingASCIILetters(before)
		ahead := before[:len(before)-len(run)]
		if axis, ok := labelRun(run, ahead); ok {
			return axis, true
		}
		if strings.ToLower(run) == "x" && (endsWithDigit(ahead) || !endsWithTokenRune(ahead)) {
			return AxisNone, true
		}
		return AxisNone, false

	case r == '-' || r == '_' || r == '/':
		token := trailingToken(before)
		if strings.IndexFunc(token, func(r rune) bool { return r < unicode.MaxASCII && unicode.IsLetter(r) }) >= 0 {
			return AxisNone, false
		}
		return AxisNone, true

	case r == '.':
		return AxisNone, !endsWithDigit(before[:len(before)-1])
	}

	return labelBefore(before), true
}

// labelBefore looks for an axis label ending just before a number,
// skipping spaces and one '=' or ':'.
func labelBefore(before string) Axis {
	s := strings.TrimRightFunc(before, unicode.IsSpace)
	if trimmed := strings.TrimRight(s, "=:"); len(s)-len(trimmed) <= 1 {
		s = strings.TrimRightFunc(trimmed, unicode.IsSpace)
	}

	for _, l := range cjkLabels {
		if strings.HasSuffix(s, l.label) {
			return l.axis
		}
	}

	run := trailingASCIILetters(s)
	if run == "" {
		return AxisNone
	}
	if axis, ok := labelRun(run, s[:len(s)-len(run)]); ok {
		return axis
	}
	return AxisNone
}

// labelRun classifies the letters run found just before a number, with
// ahead the text before the run. The run is a label on its own at a token
// start or after a number, or a unit or x glued to the previous number
// followed by a label.
func labelRun(run, ahead string) (Axis, bool) {
	lower := strings.ToLower(run)
	if axis, ok := asciiLabels[lower]; ok && (!endsWithTokenRune(ahead) || endsWithDigit(ahead)) {
		return axis, true
	}
	if !endsWithDigit(ahead) {
		return AxisNone, false
	}
	for i := 1; i < len(lower); i++ {
		if !isGlue(lower[:i]) {
			continue
		}
		if axis, ok := asciiLabels[lower[i:]]; ok {
			return axis, true
		}
	}
	return AxisNone, false
}

func leadingASCIILetters(s string) string {
	i := 0
	for i < len(s) && isASCIILetter(s[i]) {
		i++
	}
	return s[:i]
}

func trailingASCIILetters(s string) string {
	i := len(s)
	for i > 0 && isASCIILetter(s[i-1]) {
		i--
	}
	return s[i:]
}

// trailingToken returns the identifier-like run at the end of s.
func trailingToken(s string) string {
	i := len(s)
	for i > 0 && isTokenByte(s[i-1]) {
		i--
	}
	return s[i:]
}

func endsWithTokenRune(s string) bool {
	return s != "" && isTokenByte(s[len(s)-1])
}

func endsWithDigit(s string) bool {
	return s != "" && s[len(s)-1] >= '0' && s[len(s)-1] <= '9'
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isTokenByte(b byte) bool {
	return isASCIILetter(b) || (b >= '0' && b <= '9') || b == '-' || b == '_' || b == '/'
}
