package engine

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// Slice is a strided block of correlations: Length products starting at
// Start, Stride apart.
type Slice struct {
	Start  int `json:"start"`
	Length int `json:"length"`
	Stride int `json:"stride"`
}

// CorrSelection is a Slice plus the literal correlation indices it keeps.
type CorrSelection struct {
	Slice
	Indices []int
}

// Full reports whether every one of n correlations is kept.
func (c CorrSelection) Full(n int) bool {
	return c.Start == 0 && c.Length == n && c.Stride == 1
}

// CorrelationSlice expresses subset of n correlations as a Slice. Only the
// full set, a single product or a pair can be expressed; an empty subset
// means the full set.
func CorrelationSlice(n int, subset []int) (CorrSelection, error) {
	idx := slices.Clone(subset)
	slices.Sort(idx)
	idx = slices.Compact(idx)
	for _, i := range idx {
		if i < 0 || i >= n {
			return CorrSelection{}, &UnsupportedSelectionError{
				Subject: "correlation",
				Rule:    fmt.Sprintf("index %d outside [0, %d)", i, n),
			}
		}
	}

	switch {
	case len(idx) == 0 || len(idx) == n:
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return CorrSelection{Slice: Slice{Start: 0, Length: n, Stride: 1}, Indices: all}, nil
	case len(idx) == 1:
		return CorrSelection{Slice: Slice{Start: idx[0], Length: 1, Stride: 2}, Indices: idx}, nil
	case len(idx) == 2:
		return CorrSelection{Slice: Slice{Start: idx[0], Length: 2, Stride: idx[1] - idx[0]}, Indices: idx}, nil
	}
	return CorrSelection{}, &UnsupportedSelectionError{
		Subject: "correlation",
		Rule:    fmt.Sprintf("unsupported correlation selection %v of %d", idx, n),
	}
}
