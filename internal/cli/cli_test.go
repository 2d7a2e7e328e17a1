package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mstransform/internal/models"
	"mstransform/internal/mstest"
	"mstransform/internal/storage"
	"mstransform/internal/table"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand(strings.NewReader(""), &stdout, &stderr)
	cmd.SetArgs(append(args, "--log-level", "off"))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeSource(t *testing.T, opts mstest.Options) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "src")
	require.NoError(t, storage.Write(dir, mstest.New(opts)))
	return dir
}

func TestSplit(t *testing.T) {
	src := writeSource(t, mstest.Options{Spws: []int{64, 64}})
	out := filepath.Join(t.TempDir(), "out")

	stdout, stderr, err := run(t, "split", src, out, "--spw", "1:0~61", "--width", "4")
	require.NoError(t, err)
	assert.Contains(t, stdout, "wrote "+out)
	assert.Contains(t, stderr, "short-channel-group")

	ds, err := storage.Open(out)
	require.NoError(t, err)
	spw, _ := ds.Table(table.SpectralWindow)
	nchan, _ := table.Get[int32](spw, table.ColNumChan)
	assert.Equal(t, []int32{16}, nchan)
}

func TestSplitSelectionError(t *testing.T) {
	src := writeSource(t, mstest.Options{})
	out := filepath.Join(t.TempDir(), "out")

	_, _, err := run(t, "split", src, out, "--correlation", "XX,XY,YX")
	require.Error(t, err)
	_, err = storage.ReadManifest(out)
	assert.ErrorIs(t, err, storage.ErrNotDataset)
}

func TestSplitDataColumn(t *testing.T) {
	src := writeSource(t, mstest.Options{Spws: []int{8}, Corrected: true})
	out := filepath.Join(t.TempDir(), "out")

	_, _, err := run(t, "split", src, out, "--datacolumn", "corrected")
	require.NoError(t, err)
	ds, err := storage.Open(out)
	require.NoError(t, err)
	main, _ := ds.Table(table.Main)
	assert.False(t, main.HasColumn(table.ColCorrectedData))
	data, _ := table.Get[[]float64](main, table.ColData)
	assert.Equal(t, 2*mstest.Sample(1, 0), data[0][4])
}

func TestMerge(t *testing.T) {
	src := writeSource(t, mstest.Options{Spws: []int{8, 8, 8}})
	tmp := t.TempDir()
	a, b, out := filepath.Join(tmp, "a"), filepath.Join(tmp, "b"), filepath.Join(tmp, "merged")

	_, _, err := run(t, "split", src, a, "--spw", "0~1")
	require.NoError(t, err)
	_, _, err = run(t, "split", src, b, "--spw", "2")
	require.NoError(t, err)

	stdout, _, err := run(t, "merge", out, a, b)
	require.NoError(t, err)
	assert.Contains(t, stdout, b+": spw offset 2, ddi offset 2")

	m, err := storage.ReadManifest(out)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Rows(table.SpectralWindow))

	_, _, err = run(t, "merge", out)
	require.Error(t, err)
}

func TestSummary(t *testing.T) {
	src := writeSource(t, mstest.Options{Name: "obs1"})

	stdout, _, err := run(t, "summary", src)
	require.NoError(t, err)
	assert.Contains(t, stdout, "obs1: 24 rows")
	assert.Contains(t, stdout, "DV00")

	stdout, _, err = run(t, "summary", src, "--json")
	require.NoError(t, err)
	var sum models.DatasetSummary
	require.NoError(t, json.Unmarshal([]byte(stdout), &sum))
	assert.Equal(t, 24, sum.Rows)
}
