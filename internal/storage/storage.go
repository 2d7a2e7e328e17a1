// Package storage persists datasets as a directory of Arrow IPC files, one
// per table, plus a JSON manifest carrying row counts and checksums.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/apache/arrow/go/v18/arrow/ipc"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"mstransform/internal/table"
)

const (
	ManifestFile = "manifest.json"
	tableExt     = ".arrow"
)

var ErrNotDataset = errors.New("not a dataset directory")

type Manifest struct {
	Name     string            `json:"name"`
	Keywords map[string]string `json:"keywords,omitempty"`
	Created  time.Time         `json:"created"`
	Tables   []TableEntry      `json:"tables"`
}

type TableEntry struct {
	Name     string `json:"name"`
	File     string `json:"file"`
	Rows     int    `json:"rows"`
	Checksum string `json:"xxh3"`
}

// Rows returns the row count recorded for the named table, 0 if absent.
func (m *Manifest) Rows(name string) int {
	for _, t := range m.Tables {
		if t.Name == name {
			return t.Rows
		}
	}
	return 0
}

func checksum(sum uint64) string { return fmt.Sprintf("%016x", sum) }

// Write stores ds under dir. Files are written to a sibling temporary
// directory first and renamed into place, replacing any previous dataset.
func Write(dir string, ds *table.Dataset) error {
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", parent)
	}
	tmp, err := os.MkdirTemp(parent, "."+filepath.Base(dir)+"-*")
	if err != nil {
		return errors.Wrap(err, "creating staging directory")
	}
	defer os.RemoveAll(tmp)

	mem := memory.NewGoAllocator()
	m := Manifest{Name: ds.Name, Keywords: ds.Keywords, Created: time.Now().UTC()}
	for _, name := range ds.TableNames() {
		t, _ := ds.Table(name)
		entry, err := writeTable(mem, tmp, t)
		if err != nil {
			return err
		}
		m.Tables = append(m.Tables, entry)
	}

	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding manifest")
	}
	if err := os.WriteFile(filepath.Join(tmp, ManifestFile), b, 0o644); err != nil {
		return errors.Wrap(err, "writing manifest")
	}

	return swapDir(tmp, dir)
}

// swapDir moves tmp to dir. A previous dir is renamed aside and removed only
// once tmp is in place; if that rename fails it is put back.
func swapDir(tmp, dir string) error {
	old := tmp + ".old"
	if err := os.Rename(dir, old); err != nil {
		if !os.IsNotExist(err) {
			return errors.Wrapf(err, "moving %s aside", dir)
		}
		old = ""
	}
	if err := os.Rename(tmp, dir); err != nil {
		if old != "" {
			_ = os.Rename(old, dir)
		}
		return errors.Wrapf(err, "moving dataset into %s", dir)
	}
	if old == "" {
		return nil
	}
	return errors.Wrapf(os.RemoveAll(old), "removing previous %s", dir)
}

func writeTable(mem memory.Allocator, dir string, t *table.Table) (TableEntry, error) {
	entry := TableEntry{Name: t.Name, File: t.Name + tableExt, Rows: t.NumRows()}

	rec, err := toRecord(mem, t)
	if err != nil {
		return entry, err
	}
	defer rec.Release()

	f, err := os.Create(filepath.Join(dir, entry.File))
	if err != nil {
		return entry, errors.Wrapf(err, "creating %s", entry.File)
	}
	defer f.Close()

	h := xxh3.New()
	w, err := ipc.NewFileWriter(io.MultiWriter(f, h), ipc.WithSchema(rec.Schema()), ipc.WithAllocator(mem))
	if err != nil {
		return entry, errors.Wrapf(err, "table %s", t.Name)
	}
	if err := w.Write(rec); err != nil {
		return entry, errors.Wrapf(err, "writing table %s", t.Name)
	}
	if err := w.Close(); err != nil {
		return entry, errors.Wrapf(err, "closing table %s", t.Name)
	}
	entry.Checksum = checksum(h.Sum64())
	return entry, errors.Wrapf(f.Close(), "closing %s", entry.File)
}

// ReadManifest loads the manifest of the dataset in dir.
func ReadManifest(dir string) (*Manifest, error) {
	b, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(ErrNotDataset, dir)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading manifest in %s", dir)
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, errors.Wrapf(err, "decoding manifest in %s", dir)
	}
	return &m, nil
}

// Open loads the dataset in dir, verifying every table file against the
// manifest checksum.
func Open(dir string) (*table.Dataset, error) {
	m, err := ReadManifest(dir)
	if err != nil {
		return nil, err
	}
	mem := memory.NewGoAllocator()
	ds := table.NewDataset(m.Name)
	for k, v := range m.Keywords {
		ds.Keywords[k] = v
	}
	for _, entry := range m.Tables {
		t, err := readTable(mem, dir, entry)
		if err != nil {
			return nil, err
		}
		ds.Put(t)
	}
	return ds, nil
}

func readTable(mem memory.Allocator, dir string, entry TableEntry) (*table.Table, error) {
	b, err := os.ReadFile(filepath.Join(dir, entry.File))
	if err != nil {
		return nil, errors.Wrapf(err, "table %s", entry.Name)
	}
	if got := checksum(xxh3.Hash(b)); got != entry.Checksum {
		return nil, fmt.Errorf("table %s: checksum mismatch: manifest %s, file %s", entry.Name, entry.Checksum, got)
	}

	r, err := ipc.NewFileReader(bytes.NewReader(b), ipc.WithAllocator(mem))
	if err != nil {
		return nil, errors.Wrapf(err, "table %s", entry.Name)
	}
	defer r.Close()

	var out *table.Table
	for i := 0; i < r.NumRecords(); i++ {
		rec, err := r.Record(i)
		if err != nil {
			return nil, errors.Wrapf(err, "table %s: record %d", entry.Name, i)
		}
		t, err := fromRecord(entry.Name, rec)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = t
			continue
		}
		if err := out.AppendRows(t, nil); err != nil {
			return nil, errors.Wrapf(err, "table %s", entry.Name)
		}
	}
	if out == nil {
		return nil, fmt.Errorf("table %s: no record batches", entry.Name)
	}
	if out.NumRows() != entry.Rows {
		return nil, fmt.Errorf("table %s: %d rows, manifest says %d", entry.Name, out.NumRows(), entry.Rows)
	}
	return out, nil
}

// OpenAll loads several datasets concurrently, keeping the order of dirs.
func OpenAll(ctx context.Context, dirs []string) ([]*table.Dataset, error) {
	out := make([]*table.Dataset, len(dirs))
	g, ctx := errgroup.WithContext(ctx)
	for i, dir := range dirs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ds, err := Open(dir)
			if err != nil {
				return err
			}
			out[i] = ds
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// List returns the names of the dataset directories directly under root.
func List(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errors.Wrapf(err, "listing %s", root)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() || e.Name()[0] == '.' {
			continue
		}
		if _, err := os.Stat(filepath.Join(root, e.Name(), ManifestFile)); err == nil {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
