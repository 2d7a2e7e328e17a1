package engine

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"mstransform/internal/table"
)

// MergeResult is a successful merge. SpwOffsets[p] and DDIOffsets[p] are
// the row offsets partition p's spectral windows and data descriptions
// were appended at.
type MergeResult struct {
	Dataset    *table.Dataset
	SpwOffsets []int
	DDIOffsets []int
	Outcomes   []TableOutcome
}

// shifted holds one partition's tables with their ids already moved into
// the merged id space.
type shifted struct {
	tables  map[string]*table.Table
	skipped []string
}

// Merge stitches partitions into one dataset. Partition 0 supplies every
// table; later partitions append their spectral windows, data
// descriptions, MAIN rows and the spw-dependent tables.
func (e *Engine) Merge(ctx context.Context, parts []*table.Dataset) (*MergeResult, error) {
	if len(parts) == 0 {
		return nil, errors.New("merge needs at least one partition")
	}

	// 1. Partition 0 is the target
	for _, name := range []string{table.SpectralWindow, table.DataDescription} {
		t, ok := parts[0].Table(name)
		if !ok {
			return nil, &SchemaError{Table: name, Reason: "partition 0 has no such table"}
		}
		if t.NumRows() == 0 {
			return nil, &SchemaError{Table: name, Reason: "partition 0 table is empty"}
		}
	}
	for p := 1; p < len(parts); p++ {
		for _, name := range []string{table.SpectralWindow, table.DataDescription} {
			if _, ok := parts[p].Table(name); !ok {
				return nil, &SchemaError{Table: name, Reason: fmt.Sprintf("partition %d has no such table", p)}
			}
		}
	}

	// 2. Offsets are known up front from row counts
	res := &MergeResult{SpwOffsets: make([]int, len(parts)), DDIOffsets: make([]int, len(parts))}
	nspw, nddi := parts[0].NumRows(table.SpectralWindow), parts[0].NumRows(table.DataDescription)
	for p := 1; p < len(parts); p++ {
		res.SpwOffsets[p], res.DDIOffsets[p] = nspw, nddi
		nspw += parts[p].NumRows(table.SpectralWindow)
		nddi += parts[p].NumRows(table.DataDescription)
	}

	// 3. Shift ids of every later partition concurrently
	prepared := make([]*shifted, len(parts))
	g, gctx := errgroup.WithContext(ctx)
	for p := 1; p < len(parts); p++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s, err := shiftPartition(parts[p], p, res.SpwOffsets[p], res.DDIOffsets[p])
			if err != nil {
				return err
			}
			prepared[p] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// 4. Append sequentially in partition order
	out := table.NewDataset(parts[0].Name)
	for k, v := range parts[0].Keywords {
		out.Keywords[k] = v
	}
	for _, name := range parts[0].TableNames() {
		t, _ := parts[0].Table(name)
		out.Put(t.Clone())
	}
	appended := make(map[string]int)
	for p := 1; p < len(parts); p++ {
		s := prepared[p]
		for _, name := range appendOrder {
			src, ok := s.tables[name]
			if !ok {
				continue
			}
			dst, ok := out.Table(name)
			if !ok {
				dst = src.EmptyClone()
				out.Put(dst)
			}
			if err := dst.AppendRows(src, nil); err != nil {
				return nil, &SchemaError{Table: name, Reason: fmt.Sprintf("partition %d: %v", p, err)}
			}
			appended[name] += src.NumRows()
		}
		for _, name := range s.skipped {
			res.Outcomes = append(res.Outcomes, TableOutcome{Table: name, Kind: SkippedOptional, Partition: p})
		}
		e.log.Debugf("merged partition %d: spw offset %d, ddi offset %d", p, res.SpwOffsets[p], res.DDIOffsets[p])
	}

	for _, name := range out.TableNames() {
		kind := Copied
		if appended[name] > 0 {
			kind = Appended
		}
		res.Outcomes = append(res.Outcomes, TableOutcome{
			Table: name, Kind: kind, RowsIn: parts[0].NumRows(name), RowsOut: out.NumRows(name),
		})
	}
	res.Dataset = out
	e.log.Infof("merged %d partitions: %d spws, %d data descriptions, %d MAIN rows",
		len(parts), nspw, nddi, out.NumRows(table.Main))
	return res, nil
}

// appendOrder lists the tables later partitions contribute.
var appendOrder = append([]string{table.SpectralWindow, table.DataDescription, table.Main}, mergeSpwTables...)

func shiftPartition(part *table.Dataset, p, spwOffset, ddiOffset int) (*shifted, error) {
	s := &shifted{tables: make(map[string]*table.Table)}

	spw, _ := part.Table(table.SpectralWindow)
	s.tables[table.SpectralWindow] = spw.Clone()

	// Data descriptions: the first row lands at offset + its local spw,
	// later rows follow the local deltas.
	dd, _ := part.Table(table.DataDescription)
	ddOut := dd.Clone()
	vec, err := table.Vec[int32](ddOut, table.ColSpectralWindowID)
	if err != nil {
		return nil, schemaErr(table.DataDescription, table.ColSpectralWindowID, err)
	}
	mapped := make([]int32, len(vec.Values))
	for i, local := range vec.Values {
		if local < 0 {
			return nil, &SchemaError{Table: table.DataDescription, Column: table.ColSpectralWindowID,
				Reason: fmt.Sprintf("partition %d row %d has no spectral window", p, i)}
		}
		if i == 0 {
			mapped[i] = int32(spwOffset) + local
		} else {
			mapped[i] = mapped[i-1] + local - vec.Values[i-1]
		}
	}
	if err := ddOut.SetColumn(vec.Derive(mapped)); err != nil {
		return nil, err
	}
	s.tables[table.DataDescription] = ddOut

	if main, ok := part.Table(table.Main); ok {
		m := main.Clone()
		if err := shiftColumn(m, table.ColDataDescID, ddiOffset); err != nil {
			return nil, err
		}
		s.tables[table.Main] = m
	} else {
		s.skipped = append(s.skipped, table.Main)
	}

	for _, name := range mergeSpwTables {
		t, ok := part.Table(name)
		if !ok {
			s.skipped = append(s.skipped, name)
			continue
		}
		c := t.Clone()
		if err := shiftColumn(c, table.ColSpectralWindowID, spwOffset); err != nil {
			return nil, err
		}
		s.tables[name] = c
	}
	return s, nil
}

// shiftColumn adds offset to every present id of col; -1 passes through.
func shiftColumn(t *table.Table, col string, offset int) error {
	vec, err := table.Vec[int32](t, col)
	if err != nil {
		return schemaErr(t.Name, col, err)
	}
	out := make([]int32, len(vec.Values))
	for i, v := range vec.Values {
		id := FromStored(v)
		if id.Valid {
			id.ID += offset
		}
		out[i] = id.Stored()
	}
	return t.SetColumn(vec.Derive(out))
}
