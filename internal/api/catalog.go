package api

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"mstransform/internal/metrics"
	"mstransform/internal/models"
	"mstransform/internal/storage"
	"mstransform/internal/table"
)

var (
	ErrUnknownDataset = errors.New("unknown dataset")
	ErrBadName        = errors.New("dataset names are letters, digits, '.', '_' and '-'")

	nameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
)

// Catalog is the set of datasets stored under one directory, held in memory.
type Catalog struct {
	root string

	mu   sync.RWMutex
	sets map[string]*table.Dataset
}

// LoadCatalog opens every dataset under root, creating root if needed.
func LoadCatalog(ctx context.Context, root string) (*Catalog, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating %s", root)
	}
	names, err := storage.List(root)
	if err != nil {
		return nil, err
	}
	dirs := make([]string, len(names))
	for i, n := range names {
		dirs[i] = filepath.Join(root, n)
	}
	dss, err := storage.OpenAll(ctx, dirs)
	if err != nil {
		return nil, err
	}

	c := &Catalog{root: root, sets: make(map[string]*table.Dataset, len(names))}
	for i, n := range names {
		c.sets[n] = dss[i]
	}
	metrics.Datasets.Set(float64(len(c.sets)))
	return c, nil
}

func (c *Catalog) Get(name string) (*table.Dataset, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ds, ok := c.sets[name]
	if !ok {
		return nil, errors.Wrap(ErrUnknownDataset, name)
	}
	return ds, nil
}

// Save writes ds under name and adds it to the catalog, replacing any
// dataset of the same name.
func (c *Catalog) Save(name string, ds *table.Dataset) error {
	if !nameRe.MatchString(name) {
		return errors.Wrap(ErrBadName, name)
	}
	ds.Name = name
	if err := storage.Write(filepath.Join(c.root, name), ds); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets[name] = ds
	metrics.Datasets.Set(float64(len(c.sets)))
	return nil
}

// Infos lists the catalog sorted by name.
func (c *Catalog) Infos() []models.DatasetInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.DatasetInfo, 0, len(c.sets))
	for name, ds := range c.sets {
		out = append(out, models.DatasetInfo{
			Name:   name,
			Tables: len(ds.TableNames()),
			Rows:   ds.NumRows(table.Main),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
