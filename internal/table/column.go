package table

import "fmt"

// Kind identifies the element type of a Column.
type Kind int

const (
	Int32 Kind = iota
	Float64
	String
	Bool
	Int32List
	Float64List
	StringList
	BoolList
)

func (k Kind) String() string {
	switch k {
	case Int32:
		return "int32"
	case Float64:
		return "float64"
	case String:
		return "string"
	case Bool:
		return "bool"
	case Int32List:
		return "list<int32>"
	case Float64List:
		return "list<float64>"
	case StringList:
		return "list<string>"
	case BoolList:
		return "list<bool>"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Column is one named, typed column of a Table.
type Column interface {
	Name() string
	Kind() Kind
	Len() int
	Keywords() map[string]string

	// Take returns a new column holding the given rows, in order.
	Take(rows []int) Column
	// Empty returns a zero-length column with the same name, kind and keywords.
	Empty() Column
	// Renamed returns the column under another name, sharing its values.
	Renamed(name string) Column

	appendFrom(src Column, rows []int) error
	appendZero(n int)
}

// Vector is the struct-of-arrays storage behind every Column kind. List
// kinds hold one slice per row; row slices are shared, never mutated.
type Vector[T any] struct {
	name     string
	kind     Kind
	keywords map[string]string
	Values   []T
}

func newVector[T any](name string, kind Kind, values []T) *Vector[T] {
	if values == nil {
		values = []T{}
	}
	return &Vector[T]{name: name, kind: kind, keywords: map[string]string{}, Values: values}
}

func NewInt32(name string, values []int32) *Vector[int32] {
	return newVector(name, Int32, values)
}

func NewFloat64(name string, values []float64) *Vector[float64] {
	return newVector(name, Float64, values)
}

func NewString(name string, values []string) *Vector[string] {
	return newVector(name, String, values)
}

func NewBool(name string, values []bool) *Vector[bool] {
	return newVector(name, Bool, values)
}

func NewInt32List(name string, values [][]int32) *Vector[[]int32] {
	return newVector(name, Int32List, values)
}

func NewFloat64List(name string, values [][]float64) *Vector[[]float64] {
	return newVector(name, Float64List, values)
}

func NewStringList(name string, values [][]string) *Vector[[]string] {
	return newVector(name, StringList, values)
}

func NewBoolList(name string, values [][]bool) *Vector[[]bool] {
	return newVector(name, BoolList, values)
}

func (v *Vector[T]) Name() string { return v.name }
func (v *Vector[T]) Kind() Kind { return v.kind }
func (v *Vector[T]) Len() int { return len(v.Values) }
func (v *Vector[T]) Keywords() map[string]string { return v.keywords }

// WithKeywords copies kw into the column keywords and returns the column.
func (v *Vector[T]) WithKeywords(kw map[string]string) *Vector[T] {
	for k, val := range kw {
		v.keywords[k] = val
	}
	return v
}

func (v *Vector[T]) Take(rows []int) Column {
	out := make([]T, len(rows))
	for i, r := range rows {
		out[i] = v.Values[r]
	}
	return &Vector[T]{name: v.name, kind: v.kind, keywords: copyKeywords(v.keywords), Values: out}
}

func (v *Vector[T]) Empty() Column {
	return &Vector[T]{name: v.name, kind: v.kind, keywords: copyKeywords(v.keywords), Values: []T{}}
}

func (v *Vector[T]) Renamed(name string) Column {
	return &Vector[T]{name: name, kind: v.kind, keywords: copyKeywords(v.keywords), Values: v.Values}
}

// Derive returns a column with the same name, kind and keywords holding values.
func (v *Vector[T]) Derive(values []T) *Vector[T] {
	return &Vector[T]{name: v.name, kind: v.kind, keywords: copyKeywords(v.keywords), Values: values}
}

func (v *Vector[T]) appendFrom(src Column, rows []int) error {
	s, ok := src.(*Vector[T])
	if !ok || s.kind != v.kind {
		return fmt.Errorf("column %s: cannot append %s to %s", v.name, src.Kind(), v.kind)
	}
	if rows == nil {
		v.Values = append(v.Values, s.Values...)
		return nil
	}
	for _, r := range rows {
		v.Values = append(v.Values, s.Values[r])
	}
	return nil
}

func (v *Vector[T]) appendZero(n int) {
	var zero T
	for i := 0; i < n; i++ {
		v.Values = append(v.Values, zero)
	}
}

func copyKeywords(kw map[string]string) map[string]string {
	out := make(map[string]string, len(kw))
	for k, v := range kw {
		out[k] = v
	}
	return out
}
