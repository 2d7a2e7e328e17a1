package table

// Dataset is a named set of tables: MAIN plus its dimension tables.
type Dataset struct {
	Name     string
	Keywords map[string]string

	tables map[string]*Table
	order  []string
}

func NewDataset(name string) *Dataset {
	return &Dataset{Name: name, Keywords: map[string]string{}, tables: map[string]*Table{}}
}

func (d *Dataset) Table(name string) (*Table, bool) {
	t, ok := d.tables[name]
	return t, ok
}

// Put adds t, or replaces the table of the same name.
func (d *Dataset) Put(t *Table) {
	if _, ok := d.tables[t.Name]; !ok {
		d.order = append(d.order, t.Name)
	}
	d.tables[t.Name] = t
}

// TableNames lists tables in insertion order.
func (d *Dataset) TableNames() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// NumRows returns the row count of the named table, 0 if absent.
func (d *Dataset) NumRows(name string) int {
	if t, ok := d.tables[name]; ok {
		return t.NumRows()
	}
	return 0
}
