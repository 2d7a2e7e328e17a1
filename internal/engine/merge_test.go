package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mstransform/internal/mstest"
	"mstransform/internal/table"
)

func TestMergeOffsetsSpectralWindows(t *testing.T) {
	a := mstest.New(mstest.Options{Name: "a", Spws: []int{8, 8}})
	b := mstest.New(mstest.Options{Name: "b", Spws: []int{4, 4, 4}})

	res, err := New(Options{}).Merge(context.Background(), []*table.Dataset{a, b})
	require.NoError(t, err)
	out := res.Dataset

	assert.Equal(t, []int{0, 2}, res.SpwOffsets)
	assert.Equal(t, []int{0, 2}, res.DDIOffsets)
	assert.Equal(t, []int32{8, 8, 4, 4, 4}, column[int32](t, out, table.SpectralWindow, table.ColNumChan))
	// b's local spw 1 is global 3
	assert.Equal(t, []int32{0, 1, 2, 3, 4}, column[int32](t, out, table.DataDescription, table.ColSpectralWindowID))

	// a: 2 times x 2 fields x 2 DDIs x 6 baselines; b: 3 DDIs
	assert.Equal(t, 48+72, out.NumRows(table.Main))
	ddi := column[int32](t, out, table.Main, table.ColDataDescID)
	for _, d := range ddi[:48] {
		assert.Less(t, d, int32(2))
	}
	for _, d := range ddi[48:] {
		assert.GreaterOrEqual(t, d, int32(2))
	}

	sysSpw := column[int32](t, out, table.SysCal, table.ColSpectralWindowID)
	require.Len(t, sysSpw, 8+12)
	for _, s := range sysSpw[8:] {
		assert.GreaterOrEqual(t, s, int32(2))
	}
	srcSpw := column[int32](t, out, table.Source, table.ColSpectralWindowID)
	assert.Equal(t, []int32{0, 1, 0, 1, 2, 3, 4, 2, 3, 4}, srcSpw)

	// FEED rows apply to every spw and stay that way
	for _, s := range column[int32](t, out, table.Feed, table.ColSpectralWindowID) {
		assert.Equal(t, int32(-1), s)
	}
	assert.Equal(t, 8, out.NumRows(table.Feed))

	// tables other than the spw-dependent ones come from partition 0
	assert.Equal(t, a.NumRows(table.Antenna), out.NumRows(table.Antenna))
	assert.Equal(t, a.NumRows(table.Pointing), out.NumRows(table.Pointing))

	var skipped []string
	for _, o := range res.Outcomes {
		if o.Kind == SkippedOptional {
			assert.Equal(t, 1, o.Partition)
			skipped = append(skipped, o.Table)
		}
	}
	assert.ElementsMatch(t, []string{table.FreqOffset, table.CalDevice, table.SysPower}, skipped)

	// inputs are untouched
	assert.Equal(t, 2, a.NumRows(table.SpectralWindow))
}

func TestMergeDataDescriptionDeltas(t *testing.T) {
	a := mstest.New(mstest.Options{Spws: []int{4}})
	b := mstest.New(mstest.Options{Spws: []int{4, 4, 4}, DDIs: [][2]int{{2, 0}, {0, 0}}})

	res, err := New(Options{}).Merge(context.Background(), []*table.Dataset{a, b})
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 3, 1}, column[int32](t, res.Dataset, table.DataDescription, table.ColSpectralWindowID))
}

func TestMergeSinglePartitionIsCopy(t *testing.T) {
	a := mstest.New(mstest.Options{})
	res, err := New(Options{}).Merge(context.Background(), []*table.Dataset{a})
	require.NoError(t, err)
	for _, name := range a.TableNames() {
		assert.Equal(t, a.NumRows(name), res.Dataset.NumRows(name))
	}
}

func TestMergeRequiresTargetTables(t *testing.T) {
	a := mstest.New(mstest.Options{})
	spw, _ := a.Table(table.SpectralWindow)
	a.Put(spw.EmptyClone())

	_, err := New(Options{}).Merge(context.Background(), []*table.Dataset{a, mstest.New(mstest.Options{})})
	var schema *SchemaError
	require.True(t, errors.As(err, &schema))
	assert.Equal(t, table.SpectralWindow, schema.Table)

	_, err = New(Options{}).Merge(context.Background(), nil)
	require.Error(t, err)
}

func TestMergeAfterTransform(t *testing.T) {
	src := mstest.New(mstest.Options{Spws: []int{8, 8, 8}})
	e := New(Options{})

	var parts []*table.Dataset
	for _, spw := range []string{"0", "1~2"} {
		res, err := e.Transform(context.Background(), src, SelectionSpec{Spw: spw})
		require.NoError(t, err)
		parts = append(parts, res.Dataset)
	}
	merged, err := e.Merge(context.Background(), parts)
	require.NoError(t, err)
	assert.Equal(t, 3, merged.Dataset.NumRows(table.SpectralWindow))
	assert.Equal(t, src.NumRows(table.Main), merged.Dataset.NumRows(table.Main))
}
