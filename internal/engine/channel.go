package engine

import (
	"fmt"
	"math"
)

// ChannelRange is an inclusive channel range sampled every Step channels.
type ChannelRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
	Step  int `json:"step"`
}

// ChannelGroup is one output channel: the input channels averaged into it.
type ChannelGroup struct {
	Channels []int
	Short    bool
}

// GroupChannels splits r into output channels of width input samples each.
// The span of a group is step*width channels; a last span running past
// r.End is clamped and marked Short.
func GroupChannels(nInput int, r ChannelRange, width int) ([]ChannelGroup, error) {
	if r.Step <= 0 {
		r.Step = 1
	}
	if width <= 0 {
		width = 1
	}
	if r.Start < 0 || r.End < r.Start || r.End >= nInput {
		return nil, fmt.Errorf("channel range %d~%d outside [0, %d)", r.Start, r.End, nInput)
	}

	span := r.Step * width
	n := 1 + (r.End-r.Start)/span
	groups := make([]ChannelGroup, 0, n)
	for g := 0; g < n; g++ {
		first := r.Start + g*span
		last := first + span - r.Step
		short := false
		if last > r.End {
			last = r.End
			short = true
		}
		chans := make([]int, 0, width)
		for c := first; c <= last; c += r.Step {
			chans = append(chans, c)
		}
		groups = append(groups, ChannelGroup{Channels: chans, Short: short})
	}
	return groups, nil
}

// isVerbatim reports whether groups reproduce all nInput channels unchanged.
func isVerbatim(nInput int, groups []ChannelGroup) bool {
	if len(groups) != nInput {
		return false
	}
	for i, g := range groups {
		if len(g.Channels) != 1 || g.Channels[0] != i {
			return false
		}
	}
	return true
}

// Spectrum is the channel axis of one SPECTRAL_WINDOW row.
type Spectrum struct {
	Freq        []float64
	Width       []float64
	EffectiveBW []float64
	Resolution  []float64

	RefFrequency   float64
	TotalBandwidth float64
}

// Regrid computes the output spectral axis for groups over in.
func Regrid(in Spectrum, groups []ChannelGroup) Spectrum {
	out := Spectrum{
		Freq:        make([]float64, len(groups)),
		Width:       make([]float64, len(groups)),
		EffectiveBW: make([]float64, len(groups)),
		Resolution:  make([]float64, len(groups)),
	}
	// the axis direction is a property of the whole window, not of a group
	descending := len(in.Freq) > 1 && in.Freq[len(in.Freq)-1] < in.Freq[0]
	for i, g := range groups {
		first := g.Channels[0]
		last := g.Channels[len(g.Channels)-1]

		out.Freq[i] = 0.5 * (in.Freq[first] + in.Freq[last])

		sep := math.Abs(in.Freq[last] - in.Freq[first])
		w := sep + 0.5*math.Abs(in.Width[first]+in.Width[last])
		if descending {
			w = -w
		}
		out.Width[i] = w
		out.Resolution[i] = 0.5*(in.Resolution[first]+in.Resolution[last]) + sep

		for _, c := range g.Channels {
			out.EffectiveBW[i] += in.EffectiveBW[c]
		}
		out.TotalBandwidth += math.Abs(w)
	}
	if n := len(out.Freq); n > 0 {
		out.RefFrequency = math.Min(out.Freq[0], out.Freq[n-1])
	}
	return out
}
