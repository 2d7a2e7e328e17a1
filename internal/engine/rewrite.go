package engine

import (
	"fmt"

	"mstransform/internal/table"
)

// Remaps holds the remap of every dimension for one transform.
type Remaps struct {
	Antenna      *IndexRemap
	Spw          *IndexRemap
	Polarization *IndexRemap
	DDI          *IndexRemap
	Field        *IndexRemap
	Source       *IndexRemap
	State        *IndexRemap
	Observation  *IndexRemap
}

// For returns the remap of dimension d.
func (r *Remaps) For(d Dimension) *IndexRemap {
	switch d {
	case DimAntenna:
		return r.Antenna
	case DimSpw:
		return r.Spw
	case DimPolarization:
		return r.Polarization
	case DimDDI:
		return r.DDI
	case DimField:
		return r.Field
	case DimSource:
		return r.Source
	case DimState:
		return r.State
	case DimObservation:
		return r.Observation
	}
	return nil
}

// rewrite applies s to src. For non-positional tables rows limits the
// candidate rows (nil means all) and keep, if set, is an extra row test.
func rewrite(src *table.Table, s ForeignKeySchema, remaps *Remaps, rows []int, keep func(row int) bool) (*table.Table, error) {
	if s.Verbatim {
		return src.Clone(), nil
	}

	// 1. Rows to keep
	if s.Positional {
		rows = remaps.For(s.Dim).OldIDs()
		for _, id := range rows {
			if id >= src.NumRows() {
				return nil, &SchemaError{Table: src.Name, Reason: fmt.Sprintf("%s id %d has no row (%d rows)", s.Dim, id, src.NumRows())}
			}
		}
	} else {
		if rows == nil {
			rows = allIDs(src.NumRows())
		}
		filters := make([][]int32, len(s.Keys))
		for k, key := range s.Keys {
			if key.Role != Filter {
				continue
			}
			vals, err := keyColumn(src, key)
			if err != nil {
				return nil, err
			}
			filters[k] = vals
		}
		kept := make([]int, 0, len(rows))
	rowLoop:
		for _, row := range rows {
			if keep != nil && !keep(row) {
				continue
			}
			for k, vals := range filters {
				if vals == nil {
					continue
				}
				id := FromStored(vals[row])
				if !id.Valid {
					if s.Keys[k].NullAllowed {
						continue
					}
					continue rowLoop
				}
				if !remaps.For(s.Keys[k].Dim).Used(id.ID) {
					continue rowLoop
				}
			}
			kept = append(kept, row)
		}
		rows = kept
	}

	out := src.Take(rows)

	// 2. Rewrite every key of every kept row
	for _, key := range s.Keys {
		if err := rewriteKey(out, key, remaps.For(key.Dim), rows); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// keyColumn returns the values of key's column, or nil if it is absent
// and allowed to be.
func keyColumn(t *table.Table, key ForeignKey) ([]int32, error) {
	if !t.HasColumn(key.Column) && key.IfPresent {
		return nil, nil
	}
	vals, err := table.Get[int32](t, key.Column)
	if err != nil {
		return nil, schemaErr(t.Name, key.Column, err)
	}
	return vals, nil
}

// rewriteKey maps key in place on out; srcRows[i] is the source row of
// out row i and is only used in fault reports.
func rewriteKey(out *table.Table, key ForeignKey, remap *IndexRemap, srcRows []int) error {
	if !out.HasColumn(key.Column) && key.IfPresent {
		return nil
	}
	vec, err := table.Vec[int32](out, key.Column)
	if err != nil {
		return schemaErr(out.Name, key.Column, err)
	}
	mapped := make([]int32, len(vec.Values))
	for i, v := range vec.Values {
		id := FromStored(v)
		n, ok := remap.MapOptional(id)
		if !ok || (!id.Valid && !key.NullAllowed) {
			return &RemapConsistencyFault{Table: out.Name, Row: srcRows[i], Column: key.Column, Dimension: key.Dim, OldID: int(v)}
		}
		mapped[i] = n.Stored()
	}
	return out.SetColumn(vec.Derive(mapped))
}
