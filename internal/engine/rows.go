package engine

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"mstransform/internal/table"
)

// RowEvaluator evaluates a free-form boolean predicate over the rows of a
// table and returns the matching row indices in ascending order.
type RowEvaluator interface {
	Evaluate(expr string, t *table.Table) ([]int, error)
}

// mainColumns are the MAIN columns row selection reads.
type mainColumns struct {
	ant1, ant2, ddi, field []int32
	state, obs, array      []int32
	scan, feed1, feed2     []int32
	time                   []float64
	uvw                    [][]float64
}

func loadMainColumns(main *table.Table, res *Resolution) (*mainColumns, error) {
	c := &mainColumns{}
	get := func(dst *[]int32, col string, need bool) error {
		if !need {
			return nil
		}
		v, err := table.Get[int32](main, col)
		if err != nil {
			return schemaErr(table.Main, col, err)
		}
		*dst = v
		return nil
	}
	for _, g := range []struct {
		dst  *[]int32
		col  string
		need bool
	}{
		{&c.ant1, table.ColAntenna1, true},
		{&c.ant2, table.ColAntenna2, true},
		{&c.ddi, table.ColDataDescID, true},
		{&c.field, table.ColFieldID, true},
		{&c.state, table.ColStateID, res.States != nil},
		{&c.obs, table.ColObservationID, res.Observations != nil},
		{&c.array, table.ColArrayID, res.Arrays != nil},
		{&c.scan, table.ColScanNumber, res.Scans != nil},
		{&c.feed1, table.ColFeed1, res.Feeds != nil},
		{&c.feed2, table.ColFeed2, res.Feeds != nil},
	} {
		if err := get(g.dst, g.col, g.need); err != nil {
			return nil, err
		}
	}
	var err error
	if res.TimeRange != nil {
		if c.time, err = table.Get[float64](main, table.ColTime); err != nil {
			return nil, schemaErr(table.Main, table.ColTime, err)
		}
	}
	if res.UVRange != nil {
		if c.uvw, err = table.Get[[]float64](main, table.ColUVW); err != nil {
			return nil, schemaErr(table.Main, table.ColUVW, err)
		}
	}
	return c, nil
}

func inSet(set []bool, id int32) bool {
	return id >= 0 && int(id) < len(set) && set[id]
}

// SelectRows returns the MAIN rows the resolution retains, ascending.
func (res *Resolution) SelectRows(main *table.Table, eval RowEvaluator) ([]int, error) {
	c, err := loadMainColumns(main, res)
	if err != nil {
		return nil, err
	}

	fieldOK := idSet(res.Fields, maxID(res.Fields)+1)
	ddiOK := idSet(res.DDIs, maxID(res.DDIs)+1)
	var stateOK, obsOK []bool
	if res.States != nil {
		stateOK = idSet(res.States, maxID(res.States)+1)
	}
	if res.Observations != nil {
		obsOK = idSet(res.Observations, maxID(res.Observations)+1)
	}
	var predOK []bool
	if restricts(res.Predicate) {
		if eval == nil {
			return nil, &UnsupportedSelectionError{Subject: "predicate", Rule: "no predicate evaluator configured"}
		}
		matched, err := eval.Evaluate(res.Predicate, main)
		if err != nil {
			return nil, errors.Wrapf(err, "evaluating predicate %q", res.Predicate)
		}
		predOK = idSet(matched, main.NumRows())
	}

	rows := make([]int, 0, main.NumRows())
	for r := 0; r < main.NumRows(); r++ {
		switch {
		case !inSet(fieldOK, c.field[r]), !inSet(ddiOK, c.ddi[r]):
			continue
		case c.ant1[r] < 0 || c.ant2[r] < 0 || int(c.ant1[r]) >= res.nAntennas || int(c.ant2[r]) >= res.nAntennas:
			return nil, &SchemaError{Table: table.Main, Column: table.ColAntenna1,
				Reason: fmt.Sprintf("row %d references antenna pair (%d, %d) outside [0, %d)", r, c.ant1[r], c.ant2[r], res.nAntennas)}
		case !res.baselineOK(int(c.ant1[r]), int(c.ant2[r])):
			continue
		case stateOK != nil && !inSet(stateOK, c.state[r]):
			continue
		case obsOK != nil && !inSet(obsOK, c.obs[r]):
			continue
		case res.Arrays != nil && !res.Arrays[int(c.array[r])]:
			continue
		case res.Scans != nil && !res.Scans[int(c.scan[r])]:
			continue
		case res.Feeds != nil && (!res.Feeds[int(c.feed1[r])] || !res.Feeds[int(c.feed2[r])]):
			continue
		case res.TimeRange != nil && (c.time[r] < res.TimeRange[0] || c.time[r] > res.TimeRange[1]):
			continue
		case res.UVRange != nil && !inRange(uvDistance(c.uvw[r]), res.UVRange):
			continue
		case predOK != nil && !predOK[r]:
			continue
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// baselineOK is true when some positive term matches the pair (or there
// are none) and no negated term does.
func (res *Resolution) baselineOK(a1, a2 int) bool {
	if len(res.baselines) == 0 {
		return true
	}
	positive, matched := false, false
	for _, b := range res.baselines {
		m := b.matches(a1, a2)
		if b.negate {
			if m {
				return false
			}
			continue
		}
		positive = true
		matched = matched || m
	}
	return matched || !positive
}

func uvDistance(uvw []float64) float64 {
	if len(uvw) < 2 {
		return 0
	}
	return math.Hypot(uvw[0], uvw[1])
}

func inRange(v float64, r *[2]float64) bool {
	return v >= r[0] && v <= r[1]
}

func maxID(ids []int) int {
	m := -1
	for _, id := range ids {
		if id > m {
			m = id
		}
	}
	return m
}
