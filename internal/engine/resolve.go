package engine

import (
	"fmt"
	"path"
	"sort"

	"mstransform/internal/logger"
	"mstransform/internal/table"
)

// SpwSelection is one channel range of one spectral window together with
// its averaging width.
type SpwSelection struct {
	Spw   int `json:"spw"`
	Start int `json:"start"`
	End   int `json:"end"`
	Step  int `json:"step"`
	Width int `json:"width"`
}

// Range returns the channel range of s.
func (s SpwSelection) Range() ChannelRange {
	return ChannelRange{Start: s.Start, End: s.End, Step: s.Step}
}

// baselineSet is a resolved baseline term; a and b are indexed by antenna id.
type baselineSet struct {
	negate bool
	a, b   []bool
}

func (s baselineSet) matches(a1, a2 int) bool {
	return (s.a[a1] && s.b[a2]) || (s.a[a2] && s.b[a1])
}

// Resolution is a SelectionSpec resolved against one dataset. Nil id
// lists mean the dimension is not restricted.
type Resolution struct {
	Fields       []int
	Spws         []SpwSelection
	DDIs         []int
	Antennas     []int
	Corr         map[int]CorrSelection // by polarization id; absent means all
	States       []int
	Observations []int

	Arrays    map[int]bool
	Scans     map[int]bool
	Feeds     map[int]bool
	TimeRange *[2]float64
	UVRange   *[2]float64
	Predicate string

	// DataColumn is the only MAIN data column kept; empty keeps them all.
	DataColumn string

	Warnings []Warning

	baselines []baselineSet
	nAntennas int
}

// Resolver resolves selections against a source dataset.
type Resolver struct {
	src *table.Dataset
	log logger.Logger
}

func NewResolver(src *table.Dataset, log logger.Logger) *Resolver {
	if log == nil {
		log = logger.NopLogger
	}
	return &Resolver{src: src, log: log}
}

func (r *Resolver) table(name string) (*table.Table, error) {
	t, ok := r.src.Table(name)
	if !ok {
		return nil, &SchemaError{Table: name, Reason: "table is missing"}
	}
	return t, nil
}

// names returns the NAME column of a table, or nil if it has none.
func (r *Resolver) names(t *table.Table) []string {
	names, err := table.Get[string](t, table.ColName)
	if err != nil {
		return nil
	}
	return names
}

func allIDs(n int) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i
	}
	return ids
}

func idSet(ids []int, n int) []bool {
	set := make([]bool, n)
	for _, id := range ids {
		if id >= 0 && id < n {
			set[id] = true
		}
	}
	return set
}

func restricts(expr string) bool {
	return expr != "" && expr != "*"
}

// Resolve turns sel into canonical id sets.
func (r *Resolver) Resolve(sel SelectionSpec) (*Resolution, error) {
	w := &warnings{log: r.log}
	res := &Resolution{Predicate: sel.Predicate}
	dataColumn, err := parseDataColumn(sel.DataColumn)
	if err != nil {
		return nil, err
	}
	res.DataColumn = dataColumn

	// 1. Fields
	fields, err := r.table(table.Field)
	if err != nil {
		return nil, err
	}
	if restricts(sel.Field) {
		ids, err := resolveIDs(sel.Field, fields.NumRows(), r.names(fields), "field")
		if err != nil {
			return nil, err
		}
		sort.Ints(ids)
		res.Fields = ids
	} else {
		res.Fields = allIDs(fields.NumRows())
	}

	// 2. Spectral windows and channels
	if err := r.resolveSpws(sel, res, w); err != nil {
		return nil, err
	}

	// 3. Antennas
	if err := r.resolveBaselines(sel.Baseline, res); err != nil {
		return nil, err
	}

	// 4. Data descriptions
	if err := r.resolveDDIs(sel.Correlation, res, w); err != nil {
		return nil, err
	}

	// 5. Intents, observations and row-level ranges
	if restricts(sel.Intent) {
		states, err := r.table(table.State)
		if err != nil {
			return nil, err
		}
		modes, err := table.Get[string](states, table.ColObsMode)
		if err != nil {
			return nil, schemaErr(table.State, table.ColObsMode, err)
		}
		patterns := splitList(sel.Intent, ",")
		res.States = []int{}
		for id, mode := range modes {
			for _, p := range patterns {
				if ok, _ := path.Match(p, mode); ok {
					res.States = append(res.States, id)
					break
				}
			}
		}
		if len(res.States) == 0 {
			return nil, &NullSelectionError{Reason: fmt.Sprintf("intent %q matches no state", sel.Intent)}
		}
	}
	if restricts(sel.Observation) {
		obs, err := r.table(table.Observation)
		if err != nil {
			return nil, err
		}
		ids, err := resolveIDs(sel.Observation, obs.NumRows(), nil, "observation")
		if err != nil {
			return nil, err
		}
		sort.Ints(ids)
		res.Observations = ids
	}
	if restricts(sel.Array) {
		if res.Arrays, err = parseIntSet(sel.Array, "array"); err != nil {
			return nil, err
		}
	}
	if restricts(sel.Scan) {
		if res.Scans, err = parseIntSet(sel.Scan, "scan"); err != nil {
			return nil, err
		}
	}
	if restricts(sel.Feed) {
		if res.Feeds, err = parseIntSet(sel.Feed, "feed"); err != nil {
			return nil, err
		}
	}
	if restricts(sel.TimeRange) {
		lo, hi, err := parseFloatRange(sel.TimeRange, "timerange")
		if err != nil {
			return nil, err
		}
		res.TimeRange = &[2]float64{lo, hi}
	}
	if restricts(sel.UVRange) {
		lo, hi, err := parseFloatRange(sel.UVRange, "uvrange")
		if err != nil {
			return nil, err
		}
		res.UVRange = &[2]float64{lo, hi}
	}

	res.Warnings = w.list
	return res, nil
}

func (r *Resolver) resolveSpws(sel SelectionSpec, res *Resolution, w *warnings) error {
	spws, err := r.table(table.SpectralWindow)
	if err != nil {
		return err
	}
	numChan, err := table.Get[int32](spws, table.ColNumChan)
	if err != nil {
		return schemaErr(table.SpectralWindow, table.ColNumChan, err)
	}

	expr := sel.Spw
	if expr == "" {
		expr = "*"
	}
	terms, err := parseSpwExpr(expr)
	if err != nil {
		return err
	}

	seen := make(map[SpwSelection]bool)
	for _, term := range terms {
		ids := allIDs(len(numChan))
		if !term.all {
			ids = ids[:0]
			for id := term.spws.lo; id <= term.spws.hi; id++ {
				if id < 0 || id >= len(numChan) {
					return &UnsupportedSelectionError{Subject: fmt.Sprintf("spw %d", id), Rule: "spectral window does not exist"}
				}
				ids = append(ids, id)
			}
		}
		for _, id := range ids {
			nchan := int(numChan[id])
			ranges := term.ranges
			if len(ranges) == 0 {
				ranges = []ChannelRange{{Start: 0, End: nchan - 1, Step: 1}}
			}
			for _, cr := range ranges {
				if cr.Step == 0 {
					cr.Step = 1
				}
				if cr.Start < 0 || cr.End >= nchan || cr.End < cr.Start {
					return &UnsupportedSelectionError{
						Subject: fmt.Sprintf("spw %d", id),
						Rule:    fmt.Sprintf("channel range %d~%d outside [0, %d)", cr.Start, cr.End, nchan),
					}
				}
				s := SpwSelection{Spw: id, Start: cr.Start, End: cr.End, Step: cr.Step}
				if !seen[s] {
					seen[s] = true
					res.Spws = append(res.Spws, s)
				}
			}
		}
	}
	// Widths: none means 1, one is broadcast, otherwise one per range in
	// the order the expression names them.
	if len(sel.Width) > 1 && len(sel.Width) != len(res.Spws) {
		return &UnsupportedSelectionError{
			Subject: "width",
			Rule:    fmt.Sprintf("%d widths given for %d selected spw ranges", len(sel.Width), len(res.Spws)),
		}
	}
	for i := range res.Spws {
		width := 1
		if len(sel.Width) == 1 {
			width = sel.Width[0]
		} else if len(sel.Width) > 1 {
			width = sel.Width[i]
		}
		if width < 0 {
			return &UnsupportedSelectionError{Subject: fmt.Sprintf("spw %d", res.Spws[i].Spw), Rule: fmt.Sprintf("negative width %d", width)}
		}
		if width == 0 {
			w.add(AdjustedSelectionWarning, "spw %d: width 0 treated as 1", res.Spws[i].Spw)
			width = 1
		}
		res.Spws[i].Width = width
	}
	sort.SliceStable(res.Spws, func(i, j int) bool {
		if res.Spws[i].Spw != res.Spws[j].Spw {
			return res.Spws[i].Spw < res.Spws[j].Spw
		}
		return res.Spws[i].Start < res.Spws[j].Start
	})
	return nil
}

func (r *Resolver) resolveBaselines(expr string, res *Resolution) error {
	ants, err := r.table(table.Antenna)
	if err != nil {
		return err
	}
	n := ants.NumRows()
	res.nAntennas = n
	if !restricts(expr) {
		return nil
	}
	terms, err := parseBaselineExpr(expr)
	if err != nil {
		return err
	}
	names := r.names(ants)
	endpoint := func(ref antennaRef) ([]int, error) {
		if ref.all {
			return allIDs(n), nil
		}
		return resolveIDs(ref.tok, n, names, "antenna")
	}

	var selected []int
	positive := false
	for _, t := range terms {
		a, err := endpoint(t.a)
		if err != nil {
			return err
		}
		b, err := endpoint(t.b)
		if err != nil {
			return err
		}
		res.baselines = append(res.baselines, baselineSet{negate: t.negate, a: idSet(a, n), b: idSet(b, n)})
		if t.negate {
			continue
		}
		positive = true
		selected = append(selected, a...)
		selected = append(selected, b...)
	}
	if !positive {
		selected = allIDs(n)
	}
	sort.Ints(selected)
	selected = compactInts(selected)

	if len(selected) == 0 || selected[len(selected)-1] < 0 {
		return &NullSelectionError{Reason: fmt.Sprintf("baseline %q selects no antenna", expr)}
	}
	if len(selected) != n {
		res.Antennas = selected
	}
	return nil
}

func compactInts(s []int) []int {
	out := s[:0]
	for i, v := range s {
		if i == 0 || v != s[i-1] {
			out = append(out, v)
		}
	}
	return out
}

func (r *Resolver) resolveDDIs(corrExpr string, res *Resolution, w *warnings) error {
	dd, err := r.table(table.DataDescription)
	if err != nil {
		return err
	}
	ddSpw, err := table.Get[int32](dd, table.ColSpectralWindowID)
	if err != nil {
		return schemaErr(table.DataDescription, table.ColSpectralWindowID, err)
	}
	ddPol, err := table.Get[int32](dd, table.ColPolarizationID)
	if err != nil {
		return schemaErr(table.DataDescription, table.ColPolarizationID, err)
	}
	pols, err := r.table(table.Polarization)
	if err != nil {
		return err
	}
	corrType, err := table.Get[[]int32](pols, table.ColCorrType)
	if err != nil {
		return schemaErr(table.Polarization, table.ColCorrType, err)
	}

	spwSelected := make(map[int]bool)
	for _, s := range res.Spws {
		spwSelected[s.Spw] = true
	}

	// Correlation side: matching product indices per polarization setup.
	var corrByPol map[int][]int
	if restricts(corrExpr) {
		codes, err := parseCorrExpr(corrExpr)
		if err != nil {
			return err
		}
		corrByPol = make(map[int][]int)
		for p, types := range corrType {
			for i, ct := range types {
				if codes[ct] {
					corrByPol[p] = append(corrByPol[p], i)
				}
			}
		}
		if len(corrByPol) == 0 {
			w.add(DroppedSelectionWarning, "correlation %q matches no polarization setup; keeping all correlations", corrExpr)
			corrByPol = nil
		}
	}

	for ddi := range ddSpw {
		if !spwSelected[int(ddSpw[ddi])] {
			continue
		}
		if corrByPol != nil {
			if _, ok := corrByPol[int(ddPol[ddi])]; !ok {
				continue
			}
		}
		res.DDIs = append(res.DDIs, ddi)
	}

	surviving := make(map[int]bool)
	for _, ddi := range res.DDIs {
		surviving[int(ddSpw[ddi])] = true
	}
	kept := res.Spws[:0]
	dropped := make(map[int]bool)
	for _, s := range res.Spws {
		if surviving[s.Spw] {
			kept = append(kept, s)
			continue
		}
		if !dropped[s.Spw] {
			dropped[s.Spw] = true
			w.add(DroppedSelectionWarning, "spw %d has no data description matching the selection; dropped", s.Spw)
		}
	}
	res.Spws = kept
	if len(res.Spws) == 0 {
		return &NullSelectionError{Reason: "no spectral window survives the selection"}
	}

	if corrByPol != nil {
		res.Corr = make(map[int]CorrSelection)
		for _, ddi := range res.DDIs {
			p := int(ddPol[ddi])
			if _, done := res.Corr[p]; done {
				continue
			}
			cs, err := CorrelationSlice(len(corrType[p]), corrByPol[p])
			if err != nil {
				if u, ok := err.(*UnsupportedSelectionError); ok {
					u.Subject = fmt.Sprintf("polarization %d", p)
				}
				return err
			}
			res.Corr[p] = cs
		}
	}
	return nil
}
