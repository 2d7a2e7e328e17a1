package engine

import (
	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slices"
)

// Dimension names a remapped id space.
type Dimension int

const (
	DimAntenna Dimension = iota
	DimSpw
	DimPolarization
	DimDDI
	DimField
	DimSource
	DimState
	DimObservation
)

func (d Dimension) String() string {
	switch d {
	case DimAntenna:
		return "antenna"
	case DimSpw:
		return "spw"
	case DimPolarization:
		return "polarization"
	case DimDDI:
		return "data description"
	case DimField:
		return "field"
	case DimSource:
		return "source"
	case DimState:
		return "state"
	case DimObservation:
		return "observation"
	}
	return "unknown"
}

// OptionalID is a foreign key that may be absent. Storage encodes an absent
// key as -1; nothing inside the engine does.
type OptionalID struct {
	ID    int
	Valid bool
}

func Some(id int) OptionalID { return OptionalID{ID: id, Valid: true} }

var None = OptionalID{}

// FromStored decodes a stored foreign key.
func FromStored[T constraints.Signed](v T) OptionalID {
	if v < 0 {
		return None
	}
	return Some(int(v))
}

// Stored encodes the key for storage.
func (o OptionalID) Stored() int32 {
	if !o.Valid {
		return -1
	}
	return int32(o.ID)
}

const unused = -1

// IndexRemap maps old ids of one dimension to new ids. The used image is
// always [0, Len()).
type IndexRemap struct {
	Dim     Dimension
	forward []int
	inverse []int
}

// IdentityRemap maps [0, n) onto itself.
func IdentityRemap(dim Dimension, n int) *IndexRemap {
	fwd := make([]int, n)
	for i := range fwd {
		fwd[i] = i
	}
	inv := make([]int, n)
	copy(inv, fwd)
	return &IndexRemap{Dim: dim, forward: fwd, inverse: inv}
}

// PositionalRemap gives ordered[k] the new id k. Ids outside [0, oldCount)
// and repeats are ignored.
func PositionalRemap(dim Dimension, oldCount int, ordered []int) *IndexRemap {
	r := &IndexRemap{Dim: dim, forward: make([]int, oldCount)}
	for i := range r.forward {
		r.forward[i] = unused
	}
	for _, old := range ordered {
		if old < 0 || old >= oldCount || r.forward[old] != unused {
			continue
		}
		r.forward[old] = len(r.inverse)
		r.inverse = append(r.inverse, old)
	}
	return r
}

// ReferencedRemap assigns new ids in ascending old-id order to every
// referenced id.
func ReferencedRemap(dim Dimension, oldCount int, referenced []int) *IndexRemap {
	ids := slices.Clone(referenced)
	slices.Sort(ids)
	return PositionalRemap(dim, oldCount, slices.Compact(ids))
}

// Map returns the new id for old.
func (r *IndexRemap) Map(old int) (int, bool) {
	if old < 0 || old >= len(r.forward) || r.forward[old] == unused {
		return 0, false
	}
	return r.forward[old], true
}

// MapOptional maps a present key and passes an absent one through.
func (r *IndexRemap) MapOptional(id OptionalID) (OptionalID, bool) {
	if !id.Valid {
		return None, true
	}
	n, ok := r.Map(id.ID)
	if !ok {
		return None, false
	}
	return Some(n), true
}

// Used reports whether old is retained.
func (r *IndexRemap) Used(old int) bool {
	_, ok := r.Map(old)
	return ok
}

// Len is the number of retained ids.
func (r *IndexRemap) Len() int { return len(r.inverse) }

// OldCount is the size of the old id space.
func (r *IndexRemap) OldCount() int { return len(r.forward) }

// OldIDs returns retained old ids indexed by new id.
func (r *IndexRemap) OldIDs() []int { return slices.Clone(r.inverse) }

// IsIdentity reports whether every old id maps to itself.
func (r *IndexRemap) IsIdentity() bool {
	if len(r.inverse) != len(r.forward) {
		return false
	}
	for i, v := range r.forward {
		if v != i {
			return false
		}
	}
	return true
}
