package engine

import (
	"fmt"

	"mstransform/internal/table"
)

// rewritePolarizations keeps the retained setups and relabels the
// correlation axis of every setup with a correlation subset.
func rewritePolarizations(src *table.Table, remaps *Remaps, corr map[int]CorrSelection) (*table.Table, error) {
	out, err := rewrite(src, ForeignKeySchema{Table: table.Polarization, Positional: true, Dim: DimPolarization}, remaps, nil, nil)
	if err != nil {
		return nil, err
	}
	if len(corr) == 0 {
		return out, nil
	}

	numCorr, err := table.Vec[int32](out, table.ColNumCorr)
	if err != nil {
		return nil, schemaErr(table.Polarization, table.ColNumCorr, err)
	}
	corrType, err := table.Vec[[]int32](out, table.ColCorrType)
	if err != nil {
		return nil, schemaErr(table.Polarization, table.ColCorrType, err)
	}
	corrProduct, err := table.Vec[[]int32](out, table.ColCorrProduct)
	if err != nil {
		return nil, schemaErr(table.Polarization, table.ColCorrProduct, err)
	}

	for newID, oldID := range remaps.Polarization.OldIDs() {
		cs, ok := corr[oldID]
		n := int(numCorr.Values[newID])
		if !ok || cs.Full(n) {
			continue
		}
		if len(corrType.Values[newID]) != n || len(corrProduct.Values[newID]) != 2*n {
			return nil, &SchemaError{Table: table.Polarization,
				Reason: fmt.Sprintf("polarization %d: CORR_TYPE/CORR_PRODUCT do not match NUM_CORR %d", oldID, n)}
		}
		types := make([]int32, len(cs.Indices))
		products := make([]int32, 0, 2*len(cs.Indices))
		for k, i := range cs.Indices {
			types[k] = corrType.Values[newID][i]
			products = append(products, corrProduct.Values[newID][2*i], corrProduct.Values[newID][2*i+1])
		}
		numCorr.Values[newID] = int32(cs.Length)
		corrType.Values[newID] = types
		corrProduct.Values[newID] = products
	}
	return out, nil
}
