package engine

import (
	"fmt"

	"mstransform/internal/table"
)

// spwPlan is the output channel grid of one retained spectral window.
type spwPlan struct {
	groups   []ChannelGroup
	verbatim bool
}

// planChannels groups the selected channel ranges of every spw. Ranges of
// one spw are concatenated in channel order and must not overlap.
func planChannels(res *Resolution, numChan []int32, w *warnings) (map[int]*spwPlan, error) {
	plans := make(map[int]*spwPlan)
	lastEnd := make(map[int]int)
	for _, s := range res.Spws {
		nchan := int(numChan[s.Spw])
		if end, ok := lastEnd[s.Spw]; ok && s.Start <= end {
			return nil, &UnsupportedSelectionError{
				Subject: fmt.Sprintf("spw %d", s.Spw),
				Rule:    fmt.Sprintf("channel range starting at %d overlaps the previous range ending at %d", s.Start, end),
			}
		}
		lastEnd[s.Spw] = s.End

		groups, err := GroupChannels(nchan, s.Range(), s.Width)
		if err != nil {
			return nil, &UnsupportedSelectionError{Subject: fmt.Sprintf("spw %d", s.Spw), Rule: err.Error()}
		}
		if last := groups[len(groups)-1]; last.Short {
			w.add(ShortChannelWarning, "spw %d: last output channel averages %d of %d channels",
				s.Spw, len(last.Channels), s.Width)
		}
		p, ok := plans[s.Spw]
		if !ok {
			p = &spwPlan{}
			plans[s.Spw] = p
		}
		p.groups = append(p.groups, groups...)
	}
	for spw, p := range plans {
		p.verbatim = isVerbatim(int(numChan[spw]), p.groups)
	}
	return plans, nil
}

// rewriteSpectralWindows keeps the retained spws in new-id order and
// regrids every one whose channels changed.
func rewriteSpectralWindows(src *table.Table, remaps *Remaps, plans map[int]*spwPlan) (*table.Table, error) {
	out, err := rewrite(src, ForeignKeySchema{Table: table.SpectralWindow, Positional: true, Dim: DimSpw}, remaps, nil, nil)
	if err != nil {
		return nil, err
	}

	numChan, err := table.Vec[int32](out, table.ColNumChan)
	if err != nil {
		return nil, schemaErr(table.SpectralWindow, table.ColNumChan, err)
	}
	lists := make(map[string]*table.Vector[[]float64])
	for _, col := range []string{table.ColChanFreq, table.ColChanWidth, table.ColEffectiveBW, table.ColResolution} {
		v, err := table.Vec[[]float64](out, col)
		if err != nil {
			return nil, schemaErr(table.SpectralWindow, col, err)
		}
		lists[col] = v
	}
	refFreq, _ := table.Vec[float64](out, table.ColRefFrequency)
	totalBW, _ := table.Vec[float64](out, table.ColTotalBandwidth)

	for newID, oldID := range remaps.Spw.OldIDs() {
		p, ok := plans[oldID]
		if !ok || p.verbatim {
			continue
		}
		in := Spectrum{
			Freq:        lists[table.ColChanFreq].Values[newID],
			Width:       lists[table.ColChanWidth].Values[newID],
			EffectiveBW: lists[table.ColEffectiveBW].Values[newID],
			Resolution:  lists[table.ColResolution].Values[newID],
		}
		for name, axis := range map[string][]float64{
			table.ColChanFreq: in.Freq, table.ColChanWidth: in.Width,
			table.ColEffectiveBW: in.EffectiveBW, table.ColResolution: in.Resolution,
		} {
			if len(axis) != int(numChan.Values[newID]) {
				return nil, &SchemaError{Table: table.SpectralWindow, Column: name,
					Reason: fmt.Sprintf("spw %d has %d values for %d channels", oldID, len(axis), numChan.Values[newID])}
			}
		}

		g := Regrid(in, p.groups)
		numChan.Values[newID] = int32(len(p.groups))
		lists[table.ColChanFreq].Values[newID] = g.Freq
		lists[table.ColChanWidth].Values[newID] = g.Width
		lists[table.ColEffectiveBW].Values[newID] = g.EffectiveBW
		lists[table.ColResolution].Values[newID] = g.Resolution
		if refFreq != nil {
			refFreq.Values[newID] = g.RefFrequency
		}
		if totalBW != nil {
			totalBW.Values[newID] = g.TotalBandwidth
		}
	}

	if err := rewriteAssocSpws(out, remaps.Spw); err != nil {
		return nil, err
	}
	return out, nil
}

// rewriteAssocSpws drops associations to spws that were not retained and
// renumbers the rest, keeping ASSOC_NATURE parallel.
func rewriteAssocSpws(out *table.Table, spw *IndexRemap) error {
	if !out.HasColumn(table.ColAssocSpwID) {
		return nil
	}
	assoc, err := table.Vec[[]int32](out, table.ColAssocSpwID)
	if err != nil {
		return schemaErr(table.SpectralWindow, table.ColAssocSpwID, err)
	}
	var nature *table.Vector[[]string]
	if out.HasColumn(table.ColAssocNature) {
		if nature, err = table.Vec[[]string](out, table.ColAssocNature); err != nil {
			return schemaErr(table.SpectralWindow, table.ColAssocNature, err)
		}
	}

	for row, ids := range assoc.Values {
		kept := make([]int32, 0, len(ids))
		var keptNature []string
		for k, id := range ids {
			n, ok := spw.Map(int(id))
			if !ok {
				continue
			}
			kept = append(kept, int32(n))
			if nature != nil && k < len(nature.Values[row]) {
				keptNature = append(keptNature, nature.Values[row][k])
			}
		}
		assoc.Values[row] = kept
		if nature != nil {
			if keptNature == nil {
				keptNature = []string{}
			}
			nature.Values[row] = keptNature
		}
	}
	return nil
}
