package storage

import (
	"fmt"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"

	"mstransform/internal/table"
)

func metadata(kw map[string]string) arrow.Metadata {
	keys := make([]string, 0, len(kw))
	vals := make([]string, 0, len(kw))
	for k, v := range kw {
		keys = append(keys, k)
		vals = append(vals, v)
	}
	return arrow.NewMetadata(keys, vals)
}

func keywords(md arrow.Metadata) map[string]string {
	kw := make(map[string]string, md.Len())
	for i, k := range md.Keys() {
		kw[k] = md.Values()[i]
	}
	return kw
}

// toRecord converts t into a single Arrow record. The caller releases it.
func toRecord(mem memory.Allocator, t *table.Table) (arrow.Record, error) {
	fields := make([]arrow.Field, 0, t.NumColumns())
	cols := make([]arrow.Array, 0, t.NumColumns())
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()
	for _, c := range t.Columns() {
		arr, err := toArray(mem, c)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", t.Name, err)
		}
		cols = append(cols, arr)
		fields = append(fields, arrow.Field{Name: c.Name(), Type: arr.DataType(), Metadata: metadata(c.Keywords())})
	}
	md := metadata(t.Keywords)
	schema := arrow.NewSchema(fields, &md)
	return array.NewRecord(schema, cols, int64(t.NumRows())), nil
}

func toArray(mem memory.Allocator, c table.Column) (arrow.Array, error) {
	switch v := c.(type) {
	case *table.Vector[int32]:
		b := array.NewInt32Builder(mem)
		defer b.Release()
		b.AppendValues(v.Values, nil)
		return b.NewArray(), nil
	case *table.Vector[float64]:
		b := array.NewFloat64Builder(mem)
		defer b.Release()
		b.AppendValues(v.Values, nil)
		return b.NewArray(), nil
	case *table.Vector[string]:
		b := array.NewStringBuilder(mem)
		defer b.Release()
		b.AppendValues(v.Values, nil)
		return b.NewArray(), nil
	case *table.Vector[bool]:
		b := array.NewBooleanBuilder(mem)
		defer b.Release()
		b.AppendValues(v.Values, nil)
		return b.NewArray(), nil
	case *table.Vector[[]int32]:
		b := array.NewListBuilder(mem, arrow.PrimitiveTypes.Int32)
		defer b.Release()
		vb := b.ValueBuilder().(*array.Int32Builder)
		for _, row := range v.Values {
			b.Append(true)
			vb.AppendValues(row, nil)
		}
		return b.NewArray(), nil
	case *table.Vector[[]float64]:
		b := array.NewListBuilder(mem, arrow.PrimitiveTypes.Float64)
		defer b.Release()
		vb := b.ValueBuilder().(*array.Float64Builder)
		for _, row := range v.Values {
			b.Append(true)
			vb.AppendValues(row, nil)
		}
		return b.NewArray(), nil
	case *table.Vector[[]string]:
		b := array.NewListBuilder(mem, arrow.BinaryTypes.String)
		defer b.Release()
		vb := b.ValueBuilder().(*array.StringBuilder)
		for _, row := range v.Values {
			b.Append(true)
			vb.AppendValues(row, nil)
		}
		return b.NewArray(), nil
	case *table.Vector[[]bool]:
		b := array.NewListBuilder(mem, arrow.FixedWidthTypes.Boolean)
		defer b.Release()
		vb := b.ValueBuilder().(*array.BooleanBuilder)
		for _, row := range v.Values {
			b.Append(true)
			vb.AppendValues(row, nil)
		}
		return b.NewArray(), nil
	}
	return nil, fmt.Errorf("column %s: unsupported kind %s", c.Name(), c.Kind())
}

// fromRecord converts one Arrow record back into a table.
func fromRecord(name string, rec arrow.Record) (*table.Table, error) {
	schema := rec.Schema()
	cols := make([]table.Column, 0, rec.NumCols())
	for i, f := range schema.Fields() {
		c, err := fromArray(f.Name, rec.Column(i))
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", name, err)
		}
		cols = append(cols, withKeywords(c, keywords(f.Metadata)))
	}
	t, err := table.New(name, cols...)
	if err != nil {
		return nil, err
	}
	t.Keywords = keywords(schema.Metadata())
	return t, nil
}

func withKeywords(c table.Column, kw map[string]string) table.Column {
	for k, v := range kw {
		c.Keywords()[k] = v
	}
	return c
}

func fromArray(name string, arr arrow.Array) (table.Column, error) {
	switch a := arr.(type) {
	case *array.Int32:
		return table.NewInt32(name, append([]int32{}, a.Int32Values()...)), nil
	case *array.Float64:
		return table.NewFloat64(name, append([]float64{}, a.Float64Values()...)), nil
	case *array.String:
		vals := make([]string, a.Len())
		for i := range vals {
			vals[i] = a.Value(i)
		}
		return table.NewString(name, vals), nil
	case *array.Boolean:
		vals := make([]bool, a.Len())
		for i := range vals {
			vals[i] = a.Value(i)
		}
		return table.NewBool(name, vals), nil
	case *array.List:
		return fromList(name, a)
	}
	return nil, fmt.Errorf("column %s: unsupported arrow type %s", name, arr.DataType())
}

func fromList(name string, a *array.List) (table.Column, error) {
	n := a.Len()
	switch ev := a.ListValues().(type) {
	case *array.Int32:
		vals := ev.Int32Values()
		rows := make([][]int32, n)
		for i := range rows {
			s, e := a.ValueOffsets(i)
			rows[i] = append([]int32{}, vals[s:e]...)
		}
		return table.NewInt32List(name, rows), nil
	case *array.Float64:
		vals := ev.Float64Values()
		rows := make([][]float64, n)
		for i := range rows {
			s, e := a.ValueOffsets(i)
			rows[i] = append([]float64{}, vals[s:e]...)
		}
		return table.NewFloat64List(name, rows), nil
	case *array.String:
		rows := make([][]string, n)
		for i := range rows {
			s, e := a.ValueOffsets(i)
			rows[i] = make([]string, 0, e-s)
			for j := s; j < e; j++ {
				rows[i] = append(rows[i], ev.Value(int(j)))
			}
		}
		return table.NewStringList(name, rows), nil
	case *array.Boolean:
		rows := make([][]bool, n)
		for i := range rows {
			s, e := a.ValueOffsets(i)
			rows[i] = make([]bool, 0, e-s)
			for j := s; j < e; j++ {
				rows[i] = append(rows[i], ev.Value(int(j)))
			}
		}
		return table.NewBoolList(name, rows), nil
	}
	return nil, fmt.Errorf("column %s: unsupported list element type %s", name, a.DataType())
}
