package engine

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"mstransform/internal/logger"
	"mstransform/internal/table"
)

// OutcomeKind records what happened to one table.
type OutcomeKind string

const (
	Copied          OutcomeKind = "copied"
	Rewritten       OutcomeKind = "rewritten"
	SkippedOptional OutcomeKind = "skipped-optional"
	Appended        OutcomeKind = "appended"
)

// TableOutcome is the per-table report of a transform or merge. Partition
// is only set by merges.
type TableOutcome struct {
	Table     string      `json:"table"`
	Kind      OutcomeKind `json:"kind"`
	RowsIn    int         `json:"rows_in"`
	RowsOut   int         `json:"rows_out"`
	Partition int         `json:"partition,omitempty"`
}

// Result is a successful transform.
type Result struct {
	Dataset  *table.Dataset
	Remaps   *Remaps
	Warnings []Warning
	Outcomes []TableOutcome
}

// Options configures an Engine.
type Options struct {
	Logger    logger.Logger
	Workers   int // 0 means runtime.NumCPU()
	Predicate RowEvaluator
}

// Engine runs transforms and merges. It holds no per-call state and is
// safe for concurrent use.
type Engine struct {
	log       logger.Logger
	workers   int
	predicate RowEvaluator
}

func New(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = logger.NopLogger
	}
	return &Engine{log: opts.Logger, workers: opts.Workers, predicate: opts.Predicate}
}

func (e *Engine) numWorkers() int {
	if e.workers > 0 {
		return e.workers
	}
	return runtime.NumCPU()
}

// requiredTables must exist in every transform input.
var requiredTables = func() []string {
	var names []string
	for _, n := range table.Standard {
		if !table.Optional(n) {
			names = append(names, n)
		}
	}
	return names
}()

// Transform applies sel to src and returns the new dataset. src is not
// modified. Any error leaves no output.
func (e *Engine) Transform(ctx context.Context, src *table.Dataset, sel SelectionSpec) (*Result, error) {
	for _, name := range requiredTables {
		if _, ok := src.Table(name); !ok {
			return nil, &SchemaError{Table: name, Reason: "table is missing"}
		}
	}
	main, _ := src.Table(table.Main)

	if sel.IsEverything() {
		return e.copyAll(src, main)
	}

	// 1. Resolve
	res, err := NewResolver(src, e.log).Resolve(sel)
	if err != nil {
		return nil, err
	}
	w := &warnings{list: res.Warnings, log: e.log}

	rows, err := res.SelectRows(main, e.predicate)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &NullSelectionError{Reason: "selection retains no MAIN rows"}
	}
	e.log.Debugf("selected %d of %d MAIN rows", len(rows), main.NumRows())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 2. Channel plans
	spwTbl, _ := src.Table(table.SpectralWindow)
	numChan, err := table.Get[int32](spwTbl, table.ColNumChan)
	if err != nil {
		return nil, schemaErr(table.SpectralWindow, table.ColNumChan, err)
	}
	plans, err := planChannels(res, numChan, w)
	if err != nil {
		return nil, err
	}

	// 3. Remaps
	remaps, in, err := e.buildRemaps(src, res)
	if err != nil {
		return nil, err
	}
	in.numChan = numChan
	in.plans = plans

	// 4. Dimension tables, one goroutine each
	out := table.NewDataset(src.Name)
	for k, v := range src.Keywords {
		out.Keywords[k] = v
	}
	var pointingKeep func(int) bool
	if res.TimeRange != nil {
		if pointingKeep, err = pointingFilter(src, res.TimeRange); err != nil {
			return nil, err
		}
	}
	type slot struct {
		tbl     *table.Table
		outcome TableOutcome
	}
	var (
		mu    sync.Mutex
		slots = make(map[string]slot)
	)
	g, gctx := errgroup.WithContext(ctx)
	run := func(name string, f func(src *table.Table) (*table.Table, error)) {
		s, ok := src.Table(name)
		if !ok {
			mu.Lock()
			slots[name] = slot{outcome: TableOutcome{Table: name, Kind: SkippedOptional}}
			mu.Unlock()
			return
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			t, err := f(s)
			if err != nil {
				return err
			}
			kind := Rewritten
			if isVerbatimSchema(name) {
				kind = Copied
			}
			mu.Lock()
			slots[name] = slot{tbl: t, outcome: TableOutcome{Table: name, Kind: kind, RowsIn: s.NumRows(), RowsOut: t.NumRows()}}
			mu.Unlock()
			return nil
		})
	}

	for _, s := range schemas {
		var keep func(int) bool
		if s.Table == table.Pointing {
			keep = pointingKeep
		}
		run(s.Table, func(t *table.Table) (*table.Table, error) {
			return rewrite(t, s, remaps, nil, keep)
		})
	}
	run(table.SpectralWindow, func(t *table.Table) (*table.Table, error) {
		return rewriteSpectralWindows(t, remaps, plans)
	})
	run(table.Polarization, func(t *table.Table) (*table.Table, error) {
		return rewritePolarizations(t, remaps, res.Corr)
	})
	run(table.Main, func(t *table.Table) (*table.Table, error) {
		return e.rewriteMain(gctx, t, rows, remaps, res.DDIs, in)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// 5. Assemble in source order; optional tables the source lacks are
	// reported, never created.
	result := &Result{Dataset: out, Remaps: remaps}
	names := src.TableNames()
	for _, s := range schemas {
		if _, ok := src.Table(s.Table); !ok {
			names = append(names, s.Table)
		}
	}
	for _, name := range names {
		s, ok := slots[name]
		if !ok {
			t, _ := src.Table(name)
			c := t.Clone()
			out.Put(c)
			result.Outcomes = append(result.Outcomes, TableOutcome{Table: name, Kind: Copied, RowsIn: t.NumRows(), RowsOut: c.NumRows()})
			continue
		}
		if s.tbl != nil {
			out.Put(s.tbl)
		}
		result.Outcomes = append(result.Outcomes, s.outcome)
	}

	if feed, _ := src.Table(table.Feed); feed.NumRows() > 0 && out.NumRows(table.Feed) == 0 {
		return nil, &NullSelectionError{Reason: "no feeds were selected"}
	}

	result.Warnings = w.list
	e.log.Infof("transform of %s: %d MAIN rows, %d spws, %d DDIs, %d warnings",
		src.Name, len(rows), remaps.Spw.Len(), remaps.DDI.Len(), len(result.Warnings))
	return result, nil
}

func isVerbatimSchema(name string) bool {
	for _, s := range schemas {
		if s.Table == name {
			return s.Verbatim
		}
	}
	return false
}

// copyAll is the fast path for a selection that restricts nothing.
func (e *Engine) copyAll(src *table.Dataset, main *table.Table) (*Result, error) {
	if main.NumRows() == 0 {
		return nil, &NullSelectionError{Reason: "selection retains no MAIN rows"}
	}
	out := table.NewDataset(src.Name)
	for k, v := range src.Keywords {
		out.Keywords[k] = v
	}
	result := &Result{Dataset: out}
	for _, name := range src.TableNames() {
		t, _ := src.Table(name)
		out.Put(t.Clone())
		result.Outcomes = append(result.Outcomes, TableOutcome{Table: name, Kind: Copied, RowsIn: t.NumRows(), RowsOut: t.NumRows()})
	}
	for _, s := range schemas {
		if _, ok := src.Table(s.Table); !ok {
			result.Outcomes = append(result.Outcomes, TableOutcome{Table: s.Table, Kind: SkippedOptional})
		}
	}

	count := func(name string) int { return src.NumRows(name) }
	result.Remaps = &Remaps{
		Antenna:      IdentityRemap(DimAntenna, count(table.Antenna)),
		Spw:          IdentityRemap(DimSpw, count(table.SpectralWindow)),
		Polarization: IdentityRemap(DimPolarization, count(table.Polarization)),
		DDI:          IdentityRemap(DimDDI, count(table.DataDescription)),
		Field:        IdentityRemap(DimField, count(table.Field)),
		Source:       IdentityRemap(DimSource, sourceCount(src)),
		State:        IdentityRemap(DimState, count(table.State)),
		Observation:  IdentityRemap(DimObservation, count(table.Observation)),
	}
	e.log.Infof("transform of %s: everything selected, copied %d tables", src.Name, len(src.TableNames()))
	return result, nil
}

// sourceCount is one past the largest SOURCE_ID in use. SOURCE rows repeat
// a source id once per spectral window.
func sourceCount(src *table.Dataset) int {
	n := 0
	if t, ok := src.Table(table.Source); ok {
		if ids, err := table.Get[int32](t, table.ColSourceID); err == nil {
			for _, id := range ids {
				n = max(n, int(id)+1)
			}
		}
	}
	if t, ok := src.Table(table.Field); ok {
		if ids, err := table.Get[int32](t, table.ColSourceID); err == nil {
			for _, id := range ids {
				n = max(n, int(id)+1)
			}
		}
	}
	return n
}

// buildRemaps derives every remap from the resolution.
func (e *Engine) buildRemaps(src *table.Dataset, res *Resolution) (*Remaps, *mainInputs, error) {
	dd, _ := src.Table(table.DataDescription)
	ddSpw, err := table.Get[int32](dd, table.ColSpectralWindowID)
	if err != nil {
		return nil, nil, schemaErr(table.DataDescription, table.ColSpectralWindowID, err)
	}
	ddPol, err := table.Get[int32](dd, table.ColPolarizationID)
	if err != nil {
		return nil, nil, schemaErr(table.DataDescription, table.ColPolarizationID, err)
	}
	pol, _ := src.Table(table.Polarization)
	numCorr, err := table.Get[int32](pol, table.ColNumCorr)
	if err != nil {
		return nil, nil, schemaErr(table.Polarization, table.ColNumCorr, err)
	}

	r := &Remaps{
		DDI:   PositionalRemap(DimDDI, dd.NumRows(), res.DDIs),
		Field: PositionalRemap(DimField, src.NumRows(table.Field), res.Fields),
	}

	nAnt := src.NumRows(table.Antenna)
	if res.Antennas == nil {
		r.Antenna = IdentityRemap(DimAntenna, nAnt)
	} else {
		r.Antenna = ReferencedRemap(DimAntenna, nAnt, res.Antennas)
	}

	var spws, pols []int
	for _, ddi := range res.DDIs {
		spws = append(spws, int(ddSpw[ddi]))
		pols = append(pols, int(ddPol[ddi]))
	}
	r.Spw = ReferencedRemap(DimSpw, src.NumRows(table.SpectralWindow), spws)
	r.Polarization = ReferencedRemap(DimPolarization, pol.NumRows(), pols)

	var sources []int
	field, _ := src.Table(table.Field)
	if field.HasColumn(table.ColSourceID) {
		fieldSrc, err := table.Get[int32](field, table.ColSourceID)
		if err != nil {
			return nil, nil, schemaErr(table.Field, table.ColSourceID, err)
		}
		for _, f := range res.Fields {
			if id := FromStored(fieldSrc[f]); id.Valid {
				sources = append(sources, id.ID)
			}
		}
	}
	r.Source = ReferencedRemap(DimSource, sourceCount(src), sources)

	nState := src.NumRows(table.State)
	if res.States == nil {
		r.State = IdentityRemap(DimState, nState)
	} else {
		r.State = ReferencedRemap(DimState, nState, res.States)
	}
	nObs := src.NumRows(table.Observation)
	if res.Observations == nil {
		r.Observation = IdentityRemap(DimObservation, nObs)
	} else {
		r.Observation = ReferencedRemap(DimObservation, nObs, res.Observations)
	}

	return r, &mainInputs{ddSpw: ddSpw, ddPol: ddPol, numCorr: numCorr, corr: res.Corr, dataColumn: res.DataColumn}, nil
}

// pointingFilter keeps POINTING rows whose TIME falls in the selected range.
func pointingFilter(src *table.Dataset, tr *[2]float64) (func(int) bool, error) {
	t, ok := src.Table(table.Pointing)
	if !ok {
		return nil, nil
	}
	times, err := table.Get[float64](t, table.ColTime)
	if err != nil {
		return nil, schemaErr(table.Pointing, table.ColTime, err)
	}
	return func(row int) bool { return inRange(times[row], tr) }, nil
}
