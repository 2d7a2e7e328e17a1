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

func TestTransformAveragesEveryDataColumn(t *testing.T) {
	src := mstest.New(mstest.Options{Spws: []int{8}, Corrected: true})
	res := transform(t, src, SelectionSpec{Spw: "0", Width: []int{4}, Correlation: "XX,YY"})
	out := res.Dataset

	data := column[[]float64](t, out, table.Main, table.ColData)
	corrected := column[[]float64](t, out, table.Main, table.ColCorrectedData)
	flags := column[[]bool](t, out, table.Main, table.ColFlag)
	require.Len(t, corrected, len(data))
	for i := range data {
		assert.Equal(t, []float64{15, 18, 55, 58}, data[i])
		assert.Equal(t, []float64{30, 36, 110, 116}, corrected[i])
		assert.Len(t, flags[i], 4)
	}
	assert.Equal(t, []float64{1, 4}, column[[]float64](t, out, table.Main, table.ColWeight)[0])
	assert.Equal(t, []float64{1, 0.25}, column[[]float64](t, out, table.Main, table.ColSigma)[0])
}

func TestTransformDataColumnCorrected(t *testing.T) {
	src := mstest.New(mstest.Options{Spws: []int{8}, Corrected: true})
	res := transform(t, src, SelectionSpec{DataColumn: "corrected"})
	main, _ := res.Dataset.Table(table.Main)

	assert.False(t, main.HasColumn(table.ColCorrectedData))
	data := column[[]float64](t, res.Dataset, table.Main, table.ColData)
	assert.Equal(t, 2*mstest.Sample(3, 1), data[0][3*4+1])
	// the source keeps both columns
	srcMain, _ := src.Table(table.Main)
	assert.True(t, srcMain.HasColumn(table.ColCorrectedData))
	assert.Equal(t, mstest.Sample(3, 1), column[[]float64](t, src, table.Main, table.ColData)[0][3*4+1])

	res = transform(t, src, SelectionSpec{DataColumn: "DATA", Width: []int{2}})
	main, _ = res.Dataset.Table(table.Main)
	assert.False(t, main.HasColumn(table.ColCorrectedData))
	assert.Len(t, column[[]float64](t, res.Dataset, table.Main, table.ColData)[0], 4*4)
}

func TestTransformDataColumnErrors(t *testing.T) {
	src := mstest.New(mstest.Options{Spws: []int{8}})

	_, err := New(Options{}).Transform(context.Background(), src, SelectionSpec{DataColumn: "model"})
	var schema *SchemaError
	require.True(t, errors.As(err, &schema))
	assert.Equal(t, table.ColModelData, schema.Column)

	_, err = New(Options{}).Transform(context.Background(), src, SelectionSpec{DataColumn: "bogus"})
	var unsupported *UnsupportedSelectionError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "datacolumn", unsupported.Subject)
}

func TestSelectionDataColumnRestricts(t *testing.T) {
	assert.True(t, SelectionSpec{DataColumn: "all"}.IsEverything())
	assert.False(t, SelectionSpec{DataColumn: "corrected"}.IsEverything())
}
