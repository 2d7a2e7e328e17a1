package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *Table {
	t := MustNew(Antenna,
		NewString(ColName, []string{"DV00", "DV01", "DV02"}),
		NewFloat64List("POSITION", [][]float64{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}}),
		NewBool(ColFlagRow, []bool{false, true, false}),
	)
	t.Keywords["UNIT"] = "m"
	return t
}

func TestNewRejectsRaggedColumns(t *testing.T) {
	_, err := New("T", NewInt32("A", []int32{1, 2}), NewInt32("B", []int32{1}))
	require.Error(t, err)

	tab := MustNew("T", NewInt32("A", []int32{1, 2}))
	assert.Error(t, tab.SetColumn(NewInt32("C", []int32{1, 2, 3})))
	require.NoError(t, tab.SetColumn(NewInt32("A", []int32{5, 6})))
	a, _ := Get[int32](tab, "A")
	assert.Equal(t, []int32{5, 6}, a)
	assert.Equal(t, 1, tab.NumColumns())
}

func TestTakeCopiesRowsAndKeywords(t *testing.T) {
	src := sample()
	out := src.Take([]int{2, 0})

	names, err := Get[string](out, ColName)
	require.NoError(t, err)
	assert.Equal(t, []string{"DV02", "DV00"}, names)
	assert.Equal(t, 2, out.NumRows())
	assert.Equal(t, "m", out.Keywords["UNIT"])

	out.Keywords["UNIT"] = "km"
	names[0] = "X"
	assert.Equal(t, "m", src.Keywords["UNIT"])
	srcNames, _ := Get[string](src, ColName)
	assert.Equal(t, "DV02", srcNames[2])
}

func TestCloneAndEmptyClone(t *testing.T) {
	src := sample()
	c := src.Clone()
	assert.Equal(t, src.NumRows(), c.NumRows())

	e := src.EmptyClone()
	assert.Equal(t, 0, e.NumRows())
	assert.Equal(t, src.NumColumns(), e.NumColumns())
	for i, col := range e.Columns() {
		assert.Equal(t, src.Columns()[i].Kind(), col.Kind())
	}
}

func TestAppendRows(t *testing.T) {
	dst := sample()
	src := MustNew(Antenna,
		NewString(ColName, []string{"PM01", "PM02"}),
		NewInt32("EXTRA", []int32{7, 8}),
	)
	require.NoError(t, dst.AppendRows(src, []int{1}))
	assert.Equal(t, 4, dst.NumRows())

	names, _ := Get[string](dst, ColName)
	assert.Equal(t, "PM02", names[3])
	// columns absent from src are zero-filled
	flags, _ := Get[bool](dst, ColFlagRow)
	assert.False(t, flags[3])
	pos, _ := Get[[]float64](dst, "POSITION")
	assert.Nil(t, pos[3])
	assert.False(t, dst.HasColumn("EXTRA"))

	require.NoError(t, dst.AppendRows(src, nil))
	assert.Equal(t, 6, dst.NumRows())

	bad := MustNew(Antenna, NewInt32(ColName, []int32{1}))
	assert.Error(t, dst.AppendRows(bad, nil))
}

func TestGetErrors(t *testing.T) {
	tab := sample()
	_, err := Get[int32](tab, "MISSING")
	assert.ErrorIs(t, err, ErrColumnNotFound)
	_, err = Get[int32](tab, ColName)
	assert.ErrorIs(t, err, ErrColumnKind)
	_, err = Vec[float64](tab, ColName)
	assert.ErrorIs(t, err, ErrColumnKind)

	v, err := Vec[string](tab, ColName)
	require.NoError(t, err)
	assert.Equal(t, String, v.Kind())
}

func TestDataset(t *testing.T) {
	ds := NewDataset("obs")
	ds.Put(sample())
	ds.Put(MustNew(Main, NewInt32(ColAntenna1, []int32{0})))
	ds.Put(MustNew(Antenna, NewString(ColName, []string{"X"})))

	assert.Equal(t, []string{Antenna, Main}, ds.TableNames())
	assert.Equal(t, 1, ds.NumRows(Antenna))
	assert.Equal(t, 0, ds.NumRows(Weather))
	_, ok := ds.Table(Weather)
	assert.False(t, ok)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "list<float64>", Float64List.String())
	assert.Equal(t, "kind(42)", Kind(42).String())
	assert.True(t, Optional(Weather))
	assert.False(t, Optional(Main))
}

func TestDropAndRenameColumn(t *testing.T) {
	tab := sample()
	assert.True(t, tab.DropColumn("POSITION"))
	assert.False(t, tab.DropColumn("POSITION"))
	assert.Equal(t, 2, tab.NumColumns())
	flags, err := Get[bool](tab, ColFlagRow)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true, false}, flags)

	require.NoError(t, tab.RenameColumn(ColName, "STATION"))
	assert.False(t, tab.HasColumn(ColName))
	stations, err := Get[string](tab, "STATION")
	require.NoError(t, err)
	assert.Equal(t, "DV01", stations[1])
	assert.Equal(t, "STATION", tab.Columns()[0].Name())

	assert.ErrorIs(t, tab.RenameColumn("MISSING", "X"), ErrColumnNotFound)
	assert.Error(t, tab.RenameColumn("STATION", ColFlagRow))
}
