// Package mstest builds small synthetic datasets for tests.
package mstest

import (
	"fmt"

	"mstransform/internal/table"
)

// Correlation type codes.
const (
	RR int32 = 5
	RL int32 = 6
	LR int32 = 7
	LL int32 = 8
	XX int32 = 9
	XY int32 = 10
	YX int32 = 11
	YY int32 = 12
)

// Options shapes a synthetic dataset. Zero fields take the defaults noted.
type Options struct {
	Name     string
	Antennas int       // 4
	Spws     []int     // channels per spw: {64}
	Pols     [][]int32 // CORR_TYPE per setup: {{XX, XY, YX, YY}}
	DDIs     [][2]int  // (spw, pol) per DDI: every spw with pol 0
	Fields   int       // 2
	Times    int       // 2
	States   []string  // OBS_MODE per state; none means no STATE table

	// Corrected adds CORRECTED_DATA, twice DATA, and SIGMA, 1/WEIGHT.
	Corrected bool
}

func (o *Options) defaults() {
	if o.Name == "" {
		o.Name = "synthetic"
	}
	if o.Antennas == 0 {
		o.Antennas = 4
	}
	if len(o.Spws) == 0 {
		o.Spws = []int{64}
	}
	if len(o.Pols) == 0 {
		o.Pols = [][]int32{{XX, XY, YX, YY}}
	}
	if len(o.DDIs) == 0 {
		for s := range o.Spws {
			o.DDIs = append(o.DDIs, [2]int{s, 0})
		}
	}
	if o.Fields == 0 {
		o.Fields = 2
	}
	if o.Times == 0 {
		o.Times = 2
	}
}

// Sample is the DATA value of channel c, correlation k.
func Sample(c, k int) float64 { return float64(10*c + k) }

// ChanFreq is the centre frequency of channel c of spw s.
func ChanFreq(s, c int) float64 { return 1e9 + float64(s)*1e8 + float64(c)*1e6 }

// New builds a dataset. MAIN holds, for every time, field, DDI and
// cross-correlation baseline, one row in that order.
func New(opts Options) *table.Dataset {
	opts.defaults()
	ds := table.NewDataset(opts.Name)
	ds.Keywords["MS_VERSION"] = "2.0"

	ds.Put(mainTable(opts))
	ds.Put(antennaTable(opts))
	ds.Put(spwTable(opts))
	ds.Put(polTable(opts))
	ds.Put(ddTable(opts))
	ds.Put(fieldTable(opts))
	ds.Put(sourceTable(opts))
	ds.Put(table.MustNew(table.Observation,
		table.NewString("TELESCOPE_NAME", []string{"ALMA"}),
		table.NewString("OBSERVER", []string{"tester"}),
	))
	if len(opts.States) > 0 {
		ds.Put(table.MustNew(table.State,
			table.NewString(table.ColObsMode, opts.States),
			table.NewBool(table.ColFlagRow, make([]bool, len(opts.States))),
		))
	}
	ds.Put(feedTable(opts))
	ds.Put(weatherTable(opts))
	ds.Put(pointingTable(opts))
	ds.Put(sysCalTable(opts))
	ds.Put(table.MustNew(table.History,
		table.NewFloat64(table.ColTime, []float64{0}),
		table.NewString("MESSAGE", []string{"created"}),
	))
	return ds
}

// Time is the TIME of step t.
func Time(t int) float64 { return 1000 + 10*float64(t) }

func mainTable(o Options) *table.Table {
	var (
		time              []float64
		ant1, ant2        []int32
		ddi, field, state []int32
		obs, array, scan  []int32
		feed1, feed2      []int32
		uvw, data, weight [][]float64
		flag              [][]bool
	)
	for t := 0; t < o.Times; t++ {
		for f := 0; f < o.Fields; f++ {
			for d, dd := range o.DDIs {
				nchan := o.Spws[dd[0]]
				ncorr := len(o.Pols[dd[1]])
				for a1 := 0; a1 < o.Antennas; a1++ {
					for a2 := a1 + 1; a2 < o.Antennas; a2++ {
						time = append(time, Time(t))
						ant1 = append(ant1, int32(a1))
						ant2 = append(ant2, int32(a2))
						ddi = append(ddi, int32(d))
						field = append(field, int32(f))
						st := int32(-1)
						if len(o.States) > 0 {
							st = int32(f % len(o.States))
						}
						state = append(state, st)
						obs = append(obs, 0)
						array = append(array, 0)
						scan = append(scan, int32(t+1))
						feed1 = append(feed1, 0)
						feed2 = append(feed2, 0)
						uvw = append(uvw, []float64{100 * float64(a2-a1), 0, 0})

						cell := make([]float64, nchan*ncorr)
						for c := 0; c < nchan; c++ {
							for k := 0; k < ncorr; k++ {
								cell[c*ncorr+k] = Sample(c, k)
							}
						}
						data = append(data, cell)
						flag = append(flag, make([]bool, nchan*ncorr))
						w := make([]float64, ncorr)
						for k := range w {
							w[k] = 1 + float64(k)
						}
						weight = append(weight, w)
					}
				}
			}
		}
	}
	main := table.MustNew(table.Main,
		table.NewFloat64(table.ColTime, time),
		table.NewInt32(table.ColAntenna1, ant1),
		table.NewInt32(table.ColAntenna2, ant2),
		table.NewInt32(table.ColDataDescID, ddi),
		table.NewInt32(table.ColFieldID, field),
		table.NewInt32(table.ColStateID, state),
		table.NewInt32(table.ColObservationID, obs),
		table.NewInt32(table.ColArrayID, array),
		table.NewInt32(table.ColScanNumber, scan),
		table.NewInt32(table.ColFeed1, feed1),
		table.NewInt32(table.ColFeed2, feed2),
		table.NewFloat64List(table.ColUVW, uvw).WithKeywords(map[string]string{"QuantumUnits": "m"}),
		table.NewFloat64List(table.ColData, data),
		table.NewBoolList(table.ColFlag, flag),
		table.NewFloat64List(table.ColWeight, weight),
	)
	if o.Corrected {
		corrected := make([][]float64, len(data))
		sigma := make([][]float64, len(weight))
		for i := range data {
			for _, v := range data[i] {
				corrected[i] = append(corrected[i], 2*v)
			}
			for _, w := range weight[i] {
				sigma[i] = append(sigma[i], 1/w)
			}
		}
		_ = main.SetColumn(table.NewFloat64List(table.ColCorrectedData, corrected))
		_ = main.SetColumn(table.NewFloat64List(table.ColSigma, sigma))
	}
	return main
}

func antennaTable(o Options) *table.Table {
	names := make([]string, o.Antennas)
	stations := make([]string, o.Antennas)
	for a := range names {
		names[a] = fmt.Sprintf("DV%02d", a)
		stations[a] = fmt.Sprintf("A%03d", a)
	}
	return table.MustNew(table.Antenna,
		table.NewString(table.ColName, names),
		table.NewString("STATION", stations),
	)
}

func spwTable(o Options) *table.Table {
	n := len(o.Spws)
	numChan := make([]int32, n)
	names := make([]string, n)
	freq, width, ebw, res := make([][]float64, n), make([][]float64, n), make([][]float64, n), make([][]float64, n)
	refFreq, totalBW := make([]float64, n), make([]float64, n)
	assoc := make([][]int32, n)
	nature := make([][]string, n)
	for s, nchan := range o.Spws {
		numChan[s] = int32(nchan)
		names[s] = fmt.Sprintf("SPW%d", s)
		for c := 0; c < nchan; c++ {
			freq[s] = append(freq[s], ChanFreq(s, c))
			width[s] = append(width[s], 1e6)
			ebw[s] = append(ebw[s], 1e6)
			res[s] = append(res[s], 1e6)
		}
		refFreq[s] = ChanFreq(s, 0)
		totalBW[s] = float64(nchan) * 1e6
		assoc[s] = []int32{}
		nature[s] = []string{}
	}
	return table.MustNew(table.SpectralWindow,
		table.NewInt32(table.ColNumChan, numChan),
		table.NewString(table.ColName, names),
		table.NewFloat64List(table.ColChanFreq, freq).WithKeywords(map[string]string{"QuantumUnits": "Hz"}),
		table.NewFloat64List(table.ColChanWidth, width),
		table.NewFloat64List(table.ColEffectiveBW, ebw),
		table.NewFloat64List(table.ColResolution, res),
		table.NewFloat64(table.ColRefFrequency, refFreq),
		table.NewFloat64(table.ColTotalBandwidth, totalBW),
		table.NewInt32List(table.ColAssocSpwID, assoc),
		table.NewStringList(table.ColAssocNature, nature),
	)
}

func polTable(o Options) *table.Table {
	n := len(o.Pols)
	numCorr := make([]int32, n)
	products := make([][]int32, n)
	for p, types := range o.Pols {
		numCorr[p] = int32(len(types))
		for k := range types {
			// receptor pairs (0,0) (0,1) (1,0) (1,1) for four products
			products[p] = append(products[p], int32(k/2), int32(k%2))
		}
	}
	return table.MustNew(table.Polarization,
		table.NewInt32(table.ColNumCorr, numCorr),
		table.NewInt32List(table.ColCorrType, o.Pols),
		table.NewInt32List(table.ColCorrProduct, products),
	)
}

func ddTable(o Options) *table.Table {
	n := len(o.DDIs)
	spw, pol := make([]int32, n), make([]int32, n)
	for d, dd := range o.DDIs {
		spw[d], pol[d] = int32(dd[0]), int32(dd[1])
	}
	return table.MustNew(table.DataDescription,
		table.NewInt32(table.ColSpectralWindowID, spw),
		table.NewInt32(table.ColPolarizationID, pol),
		table.NewBool(table.ColFlagRow, make([]bool, n)),
	)
}

func fieldTable(o Options) *table.Table {
	names := make([]string, o.Fields)
	src := make([]int32, o.Fields)
	for f := range names {
		names[f] = fmt.Sprintf("F%d", f)
		src[f] = int32(f)
	}
	names[0] = "3C286"
	return table.MustNew(table.Field,
		table.NewString(table.ColName, names),
		table.NewInt32(table.ColSourceID, src),
	)
}

func sourceTable(o Options) *table.Table {
	var ids, spws []int32
	var names []string
	for f := 0; f < o.Fields; f++ {
		for s := range o.Spws {
			ids = append(ids, int32(f))
			spws = append(spws, int32(s))
			names = append(names, fmt.Sprintf("SRC%d", f))
		}
	}
	return table.MustNew(table.Source,
		table.NewInt32(table.ColSourceID, ids),
		table.NewInt32(table.ColSpectralWindowID, spws),
		table.NewString(table.ColName, names),
	)
}

func feedTable(o Options) *table.Table {
	ants := make([]int32, o.Antennas)
	spws := make([]int32, o.Antennas)
	feeds := make([]int32, o.Antennas)
	for a := range ants {
		ants[a] = int32(a)
		spws[a] = -1
	}
	return table.MustNew(table.Feed,
		table.NewInt32(table.ColAntennaID, ants),
		table.NewInt32(table.ColFeedID, feeds),
		table.NewInt32(table.ColSpectralWindowID, spws),
	)
}

func weatherTable(o Options) *table.Table {
	times := make([]float64, o.Times)
	ants := make([]int32, o.Times)
	temp := make([]float64, o.Times)
	for t := range times {
		times[t] = Time(t)
		ants[t] = -1
		temp[t] = 270 + float64(t)
	}
	return table.MustNew(table.Weather,
		table.NewFloat64(table.ColTime, times),
		table.NewInt32(table.ColAntennaID, ants),
		table.NewFloat64("TEMPERATURE", temp),
	)
}

func pointingTable(o Options) *table.Table {
	var ants []int32
	var times []float64
	var dirs [][]float64
	for t := 0; t < o.Times; t++ {
		for a := 0; a < o.Antennas; a++ {
			ants = append(ants, int32(a))
			times = append(times, Time(t))
			dirs = append(dirs, []float64{0.1 * float64(a), 0.2})
		}
	}
	return table.MustNew(table.Pointing,
		table.NewInt32(table.ColAntennaID, ants),
		table.NewFloat64(table.ColTime, times),
		table.NewFloat64List("DIRECTION", dirs),
	)
}

func sysCalTable(o Options) *table.Table {
	var ants, spws []int32
	var tsys []float64
	for a := 0; a < o.Antennas; a++ {
		for s := range o.Spws {
			ants = append(ants, int32(a))
			spws = append(spws, int32(s))
			tsys = append(tsys, 50+float64(a))
		}
	}
	return table.MustNew(table.SysCal,
		table.NewInt32(table.ColAntennaID, ants),
		table.NewInt32(table.ColSpectralWindowID, spws),
		table.NewFloat64("TSYS", tsys),
	)
}

// Baselines is the number of cross-correlation baselines of n antennas.
func Baselines(n int) int { return n * (n - 1) / 2 }
