package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mstransform/internal/mstest"
	"mstransform/internal/table"
)

func TestWriteOpenRoundTrip(t *testing.T) {
	ds := mstest.New(mstest.Options{Name: "obs1", Spws: []int{8, 4}})
	ds.Keywords["MS_VERSION"] = "2"
	spw, _ := ds.Table(table.SpectralWindow)
	spw.Keywords["UNIT"] = "Hz"
	freq, _ := spw.Column(table.ColChanFreq)
	freq.Keywords()["QuantumUnits"] = "Hz"

	dir := filepath.Join(t.TempDir(), "obs1")
	require.NoError(t, Write(dir, ds))

	got, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, "obs1", got.Name)
	assert.Equal(t, "2", got.Keywords["MS_VERSION"])
	assert.Equal(t, ds.TableNames(), got.TableNames())

	for _, name := range ds.TableNames() {
		want, _ := ds.Table(name)
		have, _ := got.Table(name)
		require.Equal(t, want.NumRows(), have.NumRows(), name)
		require.Equal(t, want.NumColumns(), have.NumColumns(), name)
		for i, c := range want.Columns() {
			h := have.Columns()[i]
			assert.Equal(t, c.Name(), h.Name())
			assert.Equal(t, c.Kind(), h.Kind(), "%s.%s", name, c.Name())
		}
	}

	gotSpw, _ := got.Table(table.SpectralWindow)
	assert.Equal(t, "Hz", gotSpw.Keywords["UNIT"])
	gotFreq, _ := gotSpw.Column(table.ColChanFreq)
	assert.Equal(t, "Hz", gotFreq.Keywords()["QuantumUnits"])

	wantFreq, _ := table.Get[[]float64](spw, table.ColChanFreq)
	haveFreq, _ := table.Get[[]float64](gotSpw, table.ColChanFreq)
	assert.Equal(t, wantFreq, haveFreq)

	wantData, _ := table.Get[[]float64](mustTable(t, ds, table.Main), table.ColData)
	haveData, _ := table.Get[[]float64](mustTable(t, got, table.Main), table.ColData)
	assert.Equal(t, wantData, haveData)

	wantFlag, _ := table.Get[[]bool](mustTable(t, ds, table.Main), table.ColFlag)
	haveFlag, _ := table.Get[[]bool](mustTable(t, got, table.Main), table.ColFlag)
	assert.Equal(t, wantFlag, haveFlag)

	names, _ := table.Get[string](mustTable(t, got, table.Antenna), table.ColName)
	assert.Equal(t, "DV00", names[0])
}

func TestWriteReplacesExisting(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ms")
	require.NoError(t, Write(dir, mstest.New(mstest.Options{Spws: []int{4, 4}})))
	require.NoError(t, Write(dir, mstest.New(mstest.Options{Spws: []int{4}})))

	m, err := ReadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Rows(table.SpectralWindow))

	entries, err := os.ReadDir(filepath.Dir(dir))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSwapDirKeepsPreviousOnFailure(t *testing.T) {
	parent := t.TempDir()
	dir := filepath.Join(parent, "ms")
	require.NoError(t, Write(dir, mstest.New(mstest.Options{Name: "kept"})))

	err := swapDir(filepath.Join(parent, ".ms-missing"), dir)
	require.Error(t, err)

	ds, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, "kept", ds.Name)
	entries, err := os.ReadDir(parent)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestOpenDetectsCorruption(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ms")
	require.NoError(t, Write(dir, mstest.New(mstest.Options{})))

	path := filepath.Join(dir, table.Antenna+tableExt)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	b[len(b)/2] ^= 0xff
	require.NoError(t, os.WriteFile(path, b, 0o644))

	_, err = Open(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum mismatch")
}

func TestOpenNotDataset(t *testing.T) {
	_, err := Open(t.TempDir())
	assert.ErrorIs(t, err, ErrNotDataset)
}

func TestOpenAllAndList(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"b", "a"} {
		require.NoError(t, Write(filepath.Join(root, name), mstest.New(mstest.Options{Name: name})))
	}
	require.NoError(t, os.Mkdir(filepath.Join(root, "junk"), 0o755))

	names, err := List(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)

	dss, err := OpenAll(context.Background(), []string{filepath.Join(root, "b"), filepath.Join(root, "a")})
	require.NoError(t, err)
	require.Len(t, dss, 2)
	assert.Equal(t, "b", dss[0].Name)
	assert.Equal(t, "a", dss[1].Name)

	_, err = OpenAll(context.Background(), []string{filepath.Join(root, "junk")})
	assert.ErrorIs(t, err, ErrNotDataset)
}

func mustTable(t *testing.T, ds *table.Dataset, name string) *table.Table {
	t.Helper()
	tab, ok := ds.Table(name)
	require.True(t, ok, name)
	return tab
}
