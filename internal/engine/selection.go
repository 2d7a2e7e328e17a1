package engine

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"mstransform/internal/table"
)

// SelectionSpec is the declarative selection for one transform. The zero
// value selects everything.
type SelectionSpec struct {
	Field       string `json:"field,omitempty"`       // "0,2~4,3C*"
	Spw         string `json:"spw,omitempty"`         // "0:0~63^2,1,3:10~20;30~40"
	Width       []int  `json:"width,omitempty"`       // channel averaging widths
	Baseline    string `json:"baseline,omitempty"`    // "0&1;2;!DV05"
	Correlation string `json:"correlation,omitempty"` // "XX,YY"
	TimeRange   string `json:"timerange,omitempty"`   // "t0~t1", seconds
	Scan        string `json:"scan,omitempty"`        // "1,3~5"
	Intent      string `json:"intent,omitempty"`      // "CALIBRATE_*,OBSERVE_TARGET*"
	Observation string `json:"observation,omitempty"` // "0,1"
	Array       string `json:"array,omitempty"`       // "0"
	UVRange     string `json:"uvrange,omitempty"`     // "min~max", metres
	Feed        string `json:"feed,omitempty"`        // "0"
	Predicate   string `json:"predicate,omitempty"`   // awk expression over row fields
	DataColumn  string `json:"datacolumn,omitempty"`  // all, data, corrected, model or float_data
}

// IsEverything reports whether the selection restricts nothing, which enables
// the verbatim copy path.
func (s SelectionSpec) IsEverything() bool {
	for _, e := range []string{s.Field, s.Spw, s.Baseline, s.Correlation, s.TimeRange, s.Scan,
		s.Intent, s.Observation, s.Array, s.UVRange, s.Feed, s.Predicate} {
		if e != "" && e != "*" {
			return false
		}
	}
	if dc := strings.ToLower(strings.TrimSpace(s.DataColumn)); dc != "" && dc != "all" {
		return false
	}
	for _, w := range s.Width {
		if w > 1 {
			return false
		}
	}
	return true
}

var dataColumnNames = map[string]string{
	"data":       table.ColData,
	"corrected":  table.ColCorrectedData,
	"model":      table.ColModelData,
	"float_data": table.ColFloatData,
}

// parseDataColumn returns the MAIN data column to keep, or "" for all of them.
func parseDataColumn(expr string) (string, error) {
	tok := strings.ToLower(strings.TrimSpace(expr))
	if tok == "" || tok == "all" {
		return "", nil
	}
	col, ok := dataColumnNames[tok]
	if !ok {
		return "", &UnsupportedSelectionError{Subject: "datacolumn", Rule: fmt.Sprintf("%q is not one of all, data, corrected, model or float_data", expr)}
	}
	return col, nil
}

// idRange is an inclusive integer range.
type idRange struct{ lo, hi int }

// parseRange parses "n" or "a~b".
func parseRange(tok string) (idRange, error) {
	tok = strings.TrimSpace(tok)
	if lo, hi, ok := strings.Cut(tok, "~"); ok {
		a, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return idRange{}, fmt.Errorf("bad range %q", tok)
		}
		b, err := strconv.Atoi(strings.TrimSpace(hi))
		if err != nil {
			return idRange{}, fmt.Errorf("bad range %q", tok)
		}
		if b < a {
			return idRange{}, fmt.Errorf("empty range %q", tok)
		}
		return idRange{a, b}, nil
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return idRange{}, fmt.Errorf("bad id %q", tok)
	}
	return idRange{n, n}, nil
}

func isNumeric(tok string) bool {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return false
	}
	for _, c := range tok {
		if (c < '0' || c > '9') && c != '~' {
			return false
		}
	}
	return true
}

// splitList splits on commas and drops empty items.
func splitList(expr string, sep string) []string {
	var out []string
	for _, item := range strings.Split(expr, sep) {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// resolveIDs turns "0,2~3,NAME*" into ids of a table with the given names.
// names may be nil when the table has no name column.
func resolveIDs(expr string, n int, names []string, subject string) ([]int, error) {
	seen := make(map[int]bool)
	var out []int
	add := func(id int) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, tok := range splitList(expr, ",") {
		if tok == "*" {
			for i := 0; i < n; i++ {
				add(i)
			}
			continue
		}
		if isNumeric(tok) {
			r, err := parseRange(tok)
			if err != nil {
				return nil, &UnsupportedSelectionError{Subject: subject, Rule: err.Error()}
			}
			if r.lo < 0 || r.hi >= n {
				return nil, &UnsupportedSelectionError{Subject: subject, Rule: fmt.Sprintf("id %s out of range [0, %d)", tok, n)}
			}
			for i := r.lo; i <= r.hi; i++ {
				add(i)
			}
			continue
		}
		matched := false
		for i, name := range names {
			if ok, _ := path.Match(tok, name); ok {
				add(i)
				matched = true
			}
		}
		if !matched {
			return nil, &UnsupportedSelectionError{Subject: subject, Rule: fmt.Sprintf("%q matches nothing", tok)}
		}
	}
	return out, nil
}

// parseIntSet parses "1,3~5" into a membership set of values that are not
// table ids (scan numbers, array ids).
func parseIntSet(expr, subject string) (map[int]bool, error) {
	set := make(map[int]bool)
	for _, tok := range splitList(expr, ",") {
		r, err := parseRange(tok)
		if err != nil {
			return nil, &UnsupportedSelectionError{Subject: subject, Rule: err.Error()}
		}
		for i := r.lo; i <= r.hi; i++ {
			set[i] = true
		}
	}
	return set, nil
}

// parseFloatRange parses "a~b" into an inclusive interval.
func parseFloatRange(expr, subject string) (lo, hi float64, err error) {
	a, b, ok := strings.Cut(expr, "~")
	if !ok {
		return 0, 0, &UnsupportedSelectionError{Subject: subject, Rule: fmt.Sprintf("want min~max, got %q", expr)}
	}
	if lo, err = strconv.ParseFloat(strings.TrimSpace(a), 64); err != nil {
		return 0, 0, &UnsupportedSelectionError{Subject: subject, Rule: fmt.Sprintf("bad number %q", a)}
	}
	if hi, err = strconv.ParseFloat(strings.TrimSpace(b), 64); err != nil {
		return 0, 0, &UnsupportedSelectionError{Subject: subject, Rule: fmt.Sprintf("bad number %q", b)}
	}
	if hi < lo {
		return 0, 0, &UnsupportedSelectionError{Subject: subject, Rule: fmt.Sprintf("empty interval %q", expr)}
	}
	return lo, hi, nil
}

// spwTerm is one "spw[:ranges]" item before it is checked against the
// spectral window table.
type spwTerm struct {
	spws   idRange
	all    bool
	ranges []ChannelRange // empty: every channel
}

// parseSpwExpr parses "0:0~63^2;70~80,2,4~5,*".
func parseSpwExpr(expr string) ([]spwTerm, error) {
	var out []spwTerm
	for _, item := range splitList(expr, ",") {
		spwPart, chanPart, hasChans := strings.Cut(item, ":")
		var term spwTerm
		if strings.TrimSpace(spwPart) == "*" {
			term.all = true
		} else {
			r, err := parseRange(spwPart)
			if err != nil {
				return nil, &UnsupportedSelectionError{Subject: "spw", Rule: err.Error()}
			}
			term.spws = r
		}
		if hasChans {
			for _, cr := range splitList(chanPart, ";") {
				rng, stepPart, hasStep := strings.Cut(cr, "^")
				r, err := parseRange(rng)
				if err != nil {
					return nil, &UnsupportedSelectionError{Subject: "spw " + spwPart, Rule: err.Error()}
				}
				step := 1
				if hasStep {
					if step, err = strconv.Atoi(strings.TrimSpace(stepPart)); err != nil || step < 0 {
						return nil, &UnsupportedSelectionError{Subject: "spw " + spwPart, Rule: fmt.Sprintf("bad channel step %q", stepPart)}
					}
				}
				term.ranges = append(term.ranges, ChannelRange{Start: r.lo, End: r.hi, Step: step})
			}
		}
		out = append(out, term)
	}
	return out, nil
}

// antennaRef is one endpoint of a baseline term.
type antennaRef struct {
	tok string
	all bool
}

type baselineTerm struct {
	negate bool
	a, b   antennaRef
	paired bool
}

// parseBaselineExpr parses "0&1;2;!DV05&*".
func parseBaselineExpr(expr string) ([]baselineTerm, error) {
	var out []baselineTerm
	for _, item := range splitList(expr, ";") {
		var t baselineTerm
		if strings.HasPrefix(item, "!") {
			t.negate = true
			item = strings.TrimSpace(item[1:])
		}
		a, b, paired := strings.Cut(item, "&")
		a, b = strings.TrimSpace(a), strings.TrimSpace(b)
		if a == "" || (paired && b == "") {
			return nil, &UnsupportedSelectionError{Subject: "baseline", Rule: fmt.Sprintf("bad term %q", item)}
		}
		t.a = antennaRef{tok: a, all: a == "*"}
		if paired && b != "*" {
			t.paired = true
			t.b = antennaRef{tok: b}
		} else {
			t.b = antennaRef{all: true}
		}
		out = append(out, t)
	}
	return out, nil
}

// corrNames are Stokes/correlation type codes as stored in CORR_TYPE.
var corrNames = map[string]int32{
	"I": 1, "Q": 2, "U": 3, "V": 4,
	"RR": 5, "RL": 6, "LR": 7, "LL": 8,
	"XX": 9, "XY": 10, "YX": 11, "YY": 12,
}

// CorrName returns the label for a CORR_TYPE code.
func CorrName(code int32) string {
	for name, c := range corrNames {
		if c == code {
			return name
		}
	}
	return strconv.Itoa(int(code))
}

func parseCorrExpr(expr string) (map[int32]bool, error) {
	set := make(map[int32]bool)
	for _, tok := range splitList(strings.ReplaceAll(expr, ";", ","), ",") {
		code, ok := corrNames[strings.ToUpper(tok)]
		if !ok {
			return nil, &UnsupportedSelectionError{Subject: "correlation", Rule: fmt.Sprintf("unknown correlation %q", tok)}
		}
		set[code] = true
	}
	return set, nil
}
