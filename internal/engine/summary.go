package engine

import (
	"math"
	"sort"
	"sync"

	"mstransform/internal/models"
	"mstransform/internal/table"
)

// Summarize counts MAIN rows per (field, DDI) pair and per antenna, and
// rows per table.
func (e *Engine) Summarize(ds *table.Dataset) (*models.DatasetSummary, error) {
	main, ok := ds.Table(table.Main)
	if !ok {
		return nil, &SchemaError{Table: table.Main, Reason: "table is missing"}
	}
	fieldIDs, err := table.Get[int32](main, table.ColFieldID)
	if err != nil {
		return nil, schemaErr(table.Main, table.ColFieldID, err)
	}
	ddiIDs, err := table.Get[int32](main, table.ColDataDescID)
	if err != nil {
		return nil, schemaErr(table.Main, table.ColDataDescID, err)
	}
	ant1, err := table.Get[int32](main, table.ColAntenna1)
	if err != nil {
		return nil, schemaErr(table.Main, table.ColAntenna1, err)
	}
	ant2, err := table.Get[int32](main, table.ColAntenna2)
	if err != nil {
		return nil, schemaErr(table.Main, table.ColAntenna2, err)
	}
	times, _ := table.Get[float64](main, table.ColTime)

	// 1. Dimensions. Ids past the dimension tables still get a slot.
	numFields := max(ds.NumRows(table.Field), maxStored(fieldIDs)+1)
	numDDIs := max(ds.NumRows(table.DataDescription), maxStored(ddiIDs)+1)
	numAnts := max(ds.NumRows(table.Antenna), maxStored(ant1)+1, maxStored(ant2)+1)

	// 2. Workers
	n := main.NumRows()
	numWorkers := min(e.numWorkers(), max(n, 1))
	chunkSize := n / numWorkers

	// Flattened [field][ddi] -> field*numDDIs + ddi
	matrixSize := numFields * numDDIs

	type partial struct {
		matrix   []int
		antRows  []int
		tmin     float64
		tmax     float64
		hasTimes bool
	}

	results := make(chan *partial, numWorkers)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if i == numWorkers-1 {
			end = n
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			p := &partial{
				matrix:  make([]int, matrixSize),
				antRows: make([]int, numAnts),
				tmin:    math.Inf(1),
				tmax:    math.Inf(-1),
			}
			for j := s; j < e; j++ {
				if f, d := fieldIDs[j], ddiIDs[j]; f >= 0 && d >= 0 {
					p.matrix[int(f)*numDDIs+int(d)]++
				}
				if a := ant1[j]; a >= 0 {
					p.antRows[a]++
				}
				if a := ant2[j]; a >= 0 && a != ant1[j] {
					p.antRows[a]++
				}
				if times != nil {
					p.hasTimes = true
					p.tmin = math.Min(p.tmin, times[j])
					p.tmax = math.Max(p.tmax, times[j])
				}
			}
			results <- p
		}(start, end)
	}

	go func() { wg.Wait(); close(results) }()

	// 3. Reducer
	matrix := make([]int, matrixSize)
	antRows := make([]int, numAnts)
	tmin, tmax := math.Inf(1), math.Inf(-1)
	hasTimes := false
	for p := range results {
		for i, v := range p.matrix {
			matrix[i] += v
		}
		for i, v := range p.antRows {
			antRows[i] += v
		}
		if p.hasTimes {
			hasTimes = true
			tmin = math.Min(tmin, p.tmin)
			tmax = math.Max(tmax, p.tmax)
		}
	}

	// 4. Build result
	out := &models.DatasetSummary{
		Name:     ds.Name,
		Rows:     n,
		FieldDDI: make([]models.FieldDDIRow, 0),
		Antennas: make([]models.AntennaRow, 0),
		Tables:   make([]models.TableRows, 0),
	}
	if hasTimes {
		out.TimeStart, out.TimeEnd = tmin, tmax
	}

	fieldNames := lookupNames(ds, table.Field)
	antNames := lookupNames(ds, table.Antenna)
	var ddSpw []int32
	if dd, ok := ds.Table(table.DataDescription); ok {
		ddSpw, _ = table.Get[int32](dd, table.ColSpectralWindowID)
	}

	for i, rows := range matrix {
		if rows == 0 {
			continue
		}
		f, d := i/numDDIs, i%numDDIs
		row := models.FieldDDIRow{FieldID: f, DDI: d, SpwID: -1, Rows: rows}
		if f < len(fieldNames) {
			row.FieldName = fieldNames[f]
		}
		if d < len(ddSpw) {
			row.SpwID = int(ddSpw[d])
		}
		out.FieldDDI = append(out.FieldDDI, row)
	}
	sort.SliceStable(out.FieldDDI, func(i, j int) bool { return out.FieldDDI[i].Rows > out.FieldDDI[j].Rows })

	for a, rows := range antRows {
		if rows == 0 {
			continue
		}
		row := models.AntennaRow{AntennaID: a, Rows: rows}
		if a < len(antNames) {
			row.Name = antNames[a]
		}
		out.Antennas = append(out.Antennas, row)
	}

	for _, name := range ds.TableNames() {
		out.Tables = append(out.Tables, models.TableRows{Table: name, Rows: ds.NumRows(name)})
	}
	return out, nil
}

func lookupNames(ds *table.Dataset, name string) []string {
	t, ok := ds.Table(name)
	if !ok {
		return nil
	}
	names, _ := table.Get[string](t, table.ColName)
	return names
}

func maxStored(ids []int32) int {
	m := -1
	for _, id := range ids {
		m = max(m, int(id))
	}
	return m
}
