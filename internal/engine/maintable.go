package engine

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"mstransform/internal/table"
)

// cellPlan says how the data cells of rows with one DDI are reshaped.
type cellPlan struct {
	nchanIn int
	ncorrIn int
	groups  []ChannelGroup // nil keeps every channel
	corr    []int          // nil keeps every correlation
}

func (p *cellPlan) nchanOut() int {
	if p.groups == nil {
		return p.nchanIn
	}
	return len(p.groups)
}

func (p *cellPlan) ncorrOut() int {
	if p.corr == nil {
		return p.ncorrIn
	}
	return len(p.corr)
}

func (p *cellPlan) identity() bool { return p.groups == nil && p.corr == nil }

// mainInputs is what the MAIN pass needs from the dimension tables, keyed
// by old ids.
type mainInputs struct {
	ddSpw   []int32
	ddPol   []int32
	numChan []int32
	numCorr []int32
	plans   map[int]*spwPlan
	corr    map[int]CorrSelection

	dataColumn string // "" keeps every data column
}

func (in *mainInputs) cellPlans(ddis []int) map[int]*cellPlan {
	out := make(map[int]*cellPlan, len(ddis))
	for _, ddi := range ddis {
		spw, pol := int(in.ddSpw[ddi]), int(in.ddPol[ddi])
		p := &cellPlan{nchanIn: int(in.numChan[spw]), ncorrIn: int(in.numCorr[pol])}
		if sp, ok := in.plans[spw]; ok && !sp.verbatim {
			p.groups = sp.groups
		}
		if cs, ok := in.corr[pol]; ok && !cs.Full(p.ncorrIn) {
			p.corr = cs.Indices
		}
		out[ddi] = p
	}
	return out
}

// rewriteMain copies the selected rows, rewrites their keys and averages
// their data cells.
func (e *Engine) rewriteMain(ctx context.Context, src *table.Table, rows []int, remaps *Remaps, ddis []int, in *mainInputs) (*table.Table, error) {
	ddiCol, err := table.Get[int32](src, table.ColDataDescID)
	if err != nil {
		return nil, schemaErr(table.Main, table.ColDataDescID, err)
	}
	out, err := rewrite(src, ForeignKeySchema{Table: table.Main, Keys: mainKeys}, remaps, rows, nil)
	if err != nil {
		return nil, err
	}
	if err := selectDataColumn(out, in.dataColumn); err != nil {
		return nil, err
	}

	plans := in.cellPlans(ddis)
	identity := true
	for _, p := range plans {
		identity = identity && p.identity()
	}
	if identity {
		return out, nil
	}

	var cells []*table.Vector[[]float64]
	for _, name := range table.DataColumns {
		if !out.HasColumn(name) {
			continue
		}
		v, err := table.Vec[[]float64](out, name)
		if err != nil {
			return nil, schemaErr(table.Main, name, err)
		}
		cells = append(cells, v)
	}
	if len(cells) == 0 {
		return out, nil
	}
	var flag *table.Vector[[]bool]
	if out.HasColumn(table.ColFlag) {
		if flag, err = table.Vec[[]bool](out, table.ColFlag); err != nil {
			return nil, schemaErr(table.Main, table.ColFlag, err)
		}
	}
	var perCorr []*table.Vector[[]float64]
	for _, name := range []string{table.ColWeight, table.ColSigma} {
		if !out.HasColumn(name) {
			continue
		}
		v, err := table.Vec[[]float64](out, name)
		if err != nil {
			return nil, schemaErr(table.Main, name, err)
		}
		perCorr = append(perCorr, v)
	}

	// 1. Prefix-sum output offsets so workers fill disjoint cells of one
	// flat buffer per column.
	n := len(rows)
	rowPlan := make([]*cellPlan, n)
	offsets := make([]int, n+1)
	for i, r := range rows {
		p := plans[int(ddiCol[r])]
		rowPlan[i] = p
		offsets[i+1] = offsets[i] + p.nchanOut()*p.ncorrOut()
	}
	flat := make([][]float64, len(cells))
	for c := range cells {
		flat[c] = make([]float64, offsets[n])
	}
	flatFlag := make([]bool, offsets[n])

	// 2. Parallel chunks. Every column averages against the same input
	// flags, so they all write identical output flags.
	numWorkers := e.numWorkers()
	chunkSize := (n + numWorkers - 1) / numWorkers
	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < n; start += chunkSize {
		s, end := start, min(start+chunkSize, n)
		g.Go(func() error {
			for i := s; i < end; i++ {
				if i%4096 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				p := rowPlan[i]
				var fl []bool
				if flag != nil {
					fl = flag.Values[i]
				}
				lo, hi := offsets[i], offsets[i+1]
				for c, col := range cells {
					if err := averageCell(p, col.Values[i], fl, flat[c][lo:hi], flatFlag[lo:hi]); err != nil {
						return &SchemaError{Table: table.Main, Column: col.Name(), Reason: fmt.Sprintf("row %d: %v", rows[i], err)}
					}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// 3. Single writer assembles the columns
	for i := 0; i < n; i++ {
		lo, hi := offsets[i], offsets[i+1]
		for c, col := range cells {
			col.Values[i] = flat[c][lo:hi:hi]
		}
		if flag != nil {
			flag.Values[i] = flatFlag[lo:hi:hi]
		}
		if rowPlan[i].corr != nil {
			for _, v := range perCorr {
				v.Values[i] = sliceCorr(v.Values[i], rowPlan[i].corr)
			}
		}
	}
	return out, nil
}

// selectDataColumn keeps only the named data column of MAIN. CORRECTED_DATA
// and MODEL_DATA are renamed to DATA; FLOAT_DATA keeps its name.
func selectDataColumn(t *table.Table, keep string) error {
	if keep == "" {
		return nil
	}
	if !t.HasColumn(keep) {
		return &SchemaError{Table: table.Main, Column: keep, Reason: "requested data column is missing"}
	}
	for _, name := range table.DataColumns {
		if name != keep {
			t.DropColumn(name)
		}
	}
	if keep == table.ColFloatData || keep == table.ColData {
		return nil
	}
	if err := t.RenameColumn(keep, table.ColData); err != nil {
		return schemaErr(table.Main, keep, err)
	}
	return nil
}

// averageCell writes the reshaped cell of one row into dst/dstFlag. Cells
// are channel-major: sample (c, k) sits at c*ncorr+k. An output sample is
// the mean of its unflagged inputs; when all inputs are flagged it is the
// mean of all of them and stays flagged.
func averageCell(p *cellPlan, in []float64, inFlag []bool, dst []float64, dstFlag []bool) error {
	if len(in) != p.nchanIn*p.ncorrIn {
		return fmt.Errorf("cell has %d samples, want %d channels x %d correlations", len(in), p.nchanIn, p.ncorrIn)
	}
	if inFlag != nil && len(inFlag) != len(in) {
		return fmt.Errorf("flag cell has %d samples, want %d", len(inFlag), len(in))
	}
	ncorr := p.ncorrOut()
	for oc := 0; oc < p.nchanOut(); oc++ {
		chans := []int{oc}
		if p.groups != nil {
			chans = p.groups[oc].Channels
		}
		for ok := 0; ok < ncorr; ok++ {
			k := ok
			if p.corr != nil {
				k = p.corr[ok]
			}
			var sum, sumAll float64
			good := 0
			for _, c := range chans {
				v := in[c*p.ncorrIn+k]
				sumAll += v
				if inFlag == nil || !inFlag[c*p.ncorrIn+k] {
					sum += v
					good++
				}
			}
			j := oc*ncorr + ok
			if good > 0 {
				dst[j] = sum / float64(good)
			} else {
				dst[j] = sumAll / float64(len(chans))
				dstFlag[j] = true
			}
		}
	}
	return nil
}

func sliceCorr(v []float64, idx []int) []float64 {
	out := make([]float64, 0, len(idx))
	for _, i := range idx {
		if i < len(v) {
			out = append(out, v[i])
		}
	}
	return out
}
