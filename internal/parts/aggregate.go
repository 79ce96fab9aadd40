package parts

import (
	"sort"

	pdferrors "github.com/a3tai/mcp-pdf-parts/internal/pdf/errors"
)

// NearbyWindow bounds the lookup for a part number when a matching line
// names none itself.
type NearbyWindow struct {
	Before        int
	After         int
	NotFoundLabel string
}

// AggregatePartsList flattens all candidates into unique
// (part_number, file_name) pairs ordered by part number, then file name.
func AggregatePartsList(outcomes []FileOutcome) ResultSet {
	type key struct{ part, file string }
	seen := make(map[key]bool)
	records := ResultSet{}
	for _, o := range outcomes {
		for _, u := range o.Units {
			for _, c := range u.Candidates {
				k := key{c.PartNumber, o.FileName}
				if seen[k] {
					continue
				}
				seen[k] = true
				records = append(records, ResultRecord{PartNumber: c.PartNumber, FileName: o.FileName})
			}
		}
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].PartNumber != records[j].PartNumber {
			return records[i].PartNumber < records[j].PartNumber
		}
		return records[i].FileName < records[j].FileName
	})
	return records
}

// AggregateLineSearch emits one record per candidate of every unit whose
// text passes the matcher, in file, page and line order. A passing unit
// without candidates takes the nearest candidate on the same page within
// the window, or the not-found label.
func AggregateLineSearch(outcomes []FileOutcome, criteria Criteria, matcher *Matcher, window NearbyWindow) ResultSet {
	records := ResultSet{}
	for _, o := range outcomes {
		for i, u := range o.Units {
			if !matcher.Matches(u.MatchText, criteria) {
				continue
			}
			if len(u.Candidates) > 0 {
				for _, c := range u.Candidates {
					records = append(records, ResultRecord{
						PartNumber:  c.PartNumber,
						MatchedLine: u.Text,
						FileName:    o.FileName,
					})
				}
				continue
			}
			records = append(records, ResultRecord{
				PartNumber:  nearbyPartNumber(o.Units, i, window),
				MatchedLine: u.Text,
				FileName:    o.FileName,
			})
		}
	}
	return records
}

// nearbyPartNumber looks back first, then forward, staying on the page of
// units[i].
func nearbyPartNumber(units []Unit, i int, window NearbyWindow) string {
	page := units[i].Page
	for d := 1; d <= window.Before && i-d >= 0; d++ {
		u := units[i-d]
		if u.Page != page {
			break
		}
		if len(u.Candidates) > 0 {
			return u.Candidates[0].PartNumber
		}
	}
	for d := 1; d <= window.After && i+d < len(units); d++ {
		u := units[i+d]
		if u.Page != page {
			break
		}
		if len(u.Candidates) > 0 {
			return u.Candidates[0].PartNumber
		}
	}
	return window.NotFoundLabel
}

// AggregateLines returns every unit as a line record, in file order.
func AggregateLines(outcomes []FileOutcome) []LineRecord {
	lines := []LineRecord{}
	for _, o := range outcomes {
		for _, u := range o.Units {
			lines = append(lines, LineRecord{
				FileName: o.FileName,
				Page:     u.Page,
				LineNo:   u.LineNo,
				Text:     u.Text,
			})
		}
	}
	return lines
}

// Annotations collects file failures and page diagnostics in file order.
func Annotations(outcomes []FileOutcome) []Annotation {
	var out []Annotation
	for _, o := range outcomes {
		if o.Err != nil {
			out = append(out, Annotation{
				FileName: o.FileName,
				Category: pdferrors.TypeOf(o.Err).String(),
				Message:  pdferrors.Describe(o.Err),
			})
		}
		if o.Problems == nil {
			continue
		}
		problems := make([]*pdferrors.PDFError, 0, len(o.Problems.Errors)+len(o.Problems.Warnings))
		problems = append(problems, o.Problems.Errors...)
		problems = append(problems, o.Problems.Warnings...)
		for _, pe := range problems {
			msg := pe.Type.Title()
			if pe.Context != "" {
				msg += ": " + pe.Context
			}
			out = append(out, Annotation{
				FileName: o.FileName,
				Page:     pe.PageNumber,
				Category: pe.Type.String(),
				Message:  msg,
			})
		}
	}
	return out
}
