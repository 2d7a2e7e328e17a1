package table

import (
	"errors"
	"fmt"
)

var (
	ErrColumnNotFound = errors.New("column not found")
	ErrColumnKind     = errors.New("column has unexpected kind")
)

// Table holds rows column-wise. Columns keep their insertion order.
type Table struct {
	Name     string
	Keywords map[string]string

	columns []Column
	index   map[string]int
	nrow    int
}

// New builds a table from columns of equal length.
func New(name string, cols ...Column) (*Table, error) {
	t := &Table{Name: name, Keywords: map[string]string{}, index: map[string]int{}}
	for i, c := range cols {
		if i == 0 {
			t.nrow = c.Len()
		}
		if err := t.SetColumn(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// MustNew is New for statically known columns.
func MustNew(name string, cols ...Column) *Table {
	t, err := New(name, cols...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table) NumRows() int { return t.nrow }
func (t *Table) Columns() []Column { return t.columns }
func (t *Table) NumColumns() int { return len(t.columns) }
func (t *Table) HasColumn(n string) bool {
	_, ok := t.index[n]
	return ok
}

func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// SetColumn adds c, or replaces the column of the same name.
func (t *Table) SetColumn(c Column) error {
	if len(t.columns) > 0 && c.Len() != t.nrow {
		return fmt.Errorf("table %s: column %s has %d rows, want %d", t.Name, c.Name(), c.Len(), t.nrow)
	}
	if len(t.columns) == 0 {
		t.nrow = c.Len()
	}
	if i, ok := t.index[c.Name()]; ok {
		t.columns[i] = c
		return nil
	}
	t.index[c.Name()] = len(t.columns)
	t.columns = append(t.columns, c)
	return nil
}

// DropColumn removes the named column and reports whether it was present.
func (t *Table) DropColumn(name string) bool {
	i, ok := t.index[name]
	if !ok {
		return false
	}
	t.columns = append(t.columns[:i], t.columns[i+1:]...)
	t.index = make(map[string]int, len(t.columns))
	for j, c := range t.columns {
		t.index[c.Name()] = j
	}
	return true
}

// RenameColumn renames a column in place, keeping its position.
func (t *Table) RenameColumn(from, to string) error {
	i, ok := t.index[from]
	if !ok {
		return fmt.Errorf("%s.%s: %w", t.Name, from, ErrColumnNotFound)
	}
	if from == to {
		return nil
	}
	if _, exists := t.index[to]; exists {
		return fmt.Errorf("table %s: column %s already exists", t.Name, to)
	}
	t.columns[i] = t.columns[i].Renamed(to)
	delete(t.index, from)
	t.index[to] = i
	return nil
}

// Take returns a new table with the same schema holding the given rows.
func (t *Table) Take(rows []int) *Table {
	out := &Table{Name: t.Name, Keywords: copyKeywords(t.Keywords), index: map[string]int{}, nrow: len(rows)}
	for _, c := range t.columns {
		out.index[c.Name()] = len(out.columns)
		out.columns = append(out.columns, c.Take(rows))
	}
	return out
}

// Clone returns a copy of t sharing no column storage with it.
func (t *Table) Clone() *Table {
	rows := make([]int, t.nrow)
	for i := range rows {
		rows[i] = i
	}
	return t.Take(rows)
}

// EmptyClone returns a zero-row table with the same schema and keywords.
func (t *Table) EmptyClone() *Table {
	out := &Table{Name: t.Name, Keywords: copyKeywords(t.Keywords), index: map[string]int{}}
	for _, c := range t.columns {
		out.index[c.Name()] = len(out.columns)
		out.columns = append(out.columns, c.Empty())
	}
	return out
}

// AppendRows appends rows of src (all rows when rows is nil). Columns of t
// missing from src are zero-filled; columns of src unknown to t are ignored.
func (t *Table) AppendRows(src *Table, rows []int) error {
	n := src.NumRows()
	if rows != nil {
		n = len(rows)
	}
	for _, c := range t.columns {
		sc, ok := src.Column(c.Name())
		if !ok {
			c.appendZero(n)
			continue
		}
		if err := c.appendFrom(sc, rows); err != nil {
			return fmt.Errorf("table %s: %w", t.Name, err)
		}
	}
	t.nrow += n
	return nil
}

// Get returns the typed values of the named column.
func Get[T any](t *Table, name string) ([]T, error) {
	c, ok := t.Column(name)
	if !ok {
		return nil, fmt.Errorf("%s.%s: %w", t.Name, name, ErrColumnNotFound)
	}
	v, ok := c.(*Vector[T])
	if !ok {
		return nil, fmt.Errorf("%s.%s is %s: %w", t.Name, name, c.Kind(), ErrColumnKind)
	}
	return v.Values, nil
}

// Vec returns the typed Vector behind the named column.
func Vec[T any](t *Table, name string) (*Vector[T], error) {
	c, ok := t.Column(name)
	if !ok {
		return nil, fmt.Errorf("%s.%s: %w", t.Name, name, ErrColumnNotFound)
	}
	v, ok := c.(*Vector[T])
	if !ok {
		return nil, fmt.Errorf("%s.%s is %s: %w", t.Name, name, c.Kind(), ErrColumnKind)
	}
	return v, nil
}
