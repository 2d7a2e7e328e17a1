package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupChannelsFullRange(t *testing.T) {
	groups, err := GroupChannels(64, ChannelRange{Start: 0, End: 63, Step: 1}, 4)
	require.NoError(t, err)
	require.Len(t, groups, 16)
	for i, g := range groups {
		assert.Equal(t, []int{4 * i, 4*i + 1, 4*i + 2, 4*i + 3}, g.Channels)
		assert.False(t, g.Short)
	}
}

func TestGroupChannelsShortLastGroup(t *testing.T) {
	groups, err := GroupChannels(64, ChannelRange{Start: 0, End: 61, Step: 1}, 4)
	require.NoError(t, err)
	require.Len(t, groups, 16)
	last := groups[15]
	assert.True(t, last.Short)
	assert.Equal(t, []int{60, 61}, last.Channels)
	assert.False(t, groups[14].Short)
}

func TestGroupChannelsStep(t *testing.T) {
	groups, err := GroupChannels(16, ChannelRange{Start: 1, End: 12, Step: 2}, 2)
	require.NoError(t, err)
	// spans of 4 channels starting at 1, 5, 9
	require.Len(t, groups, 3)
	assert.Equal(t, []int{1, 3}, groups[0].Channels)
	assert.Equal(t, []int{5, 7}, groups[1].Channels)
	assert.Equal(t, []int{9, 11}, groups[2].Channels)
}

func TestGroupChannelsDefaults(t *testing.T) {
	groups, err := GroupChannels(4, ChannelRange{Start: 0, End: 3, Step: 0}, 0)
	require.NoError(t, err)
	assert.True(t, isVerbatim(4, groups))
}

func TestGroupChannelsInvalidRange(t *testing.T) {
	_, err := GroupChannels(64, ChannelRange{Start: 0, End: 64, Step: 1}, 1)
	require.Error(t, err)
	_, err = GroupChannels(64, ChannelRange{Start: 10, End: 5, Step: 1}, 1)
	require.Error(t, err)
}

func TestRegrid(t *testing.T) {
	in := Spectrum{}
	for c := 0; c < 8; c++ {
		in.Freq = append(in.Freq, 100+float64(c))
		in.Width = append(in.Width, 1)
		in.EffectiveBW = append(in.EffectiveBW, 1)
		in.Resolution = append(in.Resolution, 1)
	}
	groups, err := GroupChannels(8, ChannelRange{Start: 0, End: 6, Step: 1}, 4)
	require.NoError(t, err)

	out := Regrid(in, groups)
	require.Len(t, out.Freq, 2)
	assert.Equal(t, 101.5, out.Freq[0])
	assert.Equal(t, 4.0, out.Width[0])
	assert.Equal(t, 4.0, out.Resolution[0])
	assert.Equal(t, 4.0, out.EffectiveBW[0])

	// short group: channels 4..6
	assert.Equal(t, 105.0, out.Freq[1])
	assert.Equal(t, 3.0, out.Width[1])
	assert.Equal(t, 3.0, out.EffectiveBW[1])
	assert.Equal(t, 7.0, out.TotalBandwidth)
	assert.Equal(t, 101.5, out.RefFrequency)
}

func TestRegridDescending(t *testing.T) {
	in := Spectrum{
		Freq:        []float64{110, 109, 108, 107},
		Width:       []float64{-1, -1, -1, -1},
		EffectiveBW: []float64{1, 1, 1, 1},
		Resolution:  []float64{1, 1, 1, 1},
	}
	groups, err := GroupChannels(4, ChannelRange{Start: 0, End: 3, Step: 1}, 2)
	require.NoError(t, err)

	out := Regrid(in, groups)
	assert.Equal(t, []float64{109.5, 107.5}, out.Freq)
	assert.Equal(t, []float64{-2, -2}, out.Width)
	assert.Equal(t, 4.0, out.TotalBandwidth)
	assert.Equal(t, 107.5, out.RefFrequency)
}

func TestRegridDescendingSingleChannelGroups(t *testing.T) {
	in := Spectrum{
		Freq:        []float64{110, 109, 108, 107},
		Width:       []float64{-1, -1, -1, -1},
		EffectiveBW: []float64{1, 1, 1, 1},
		Resolution:  []float64{1, 1, 1, 1},
	}
	// step 2, width 1: every group holds one channel
	groups, err := GroupChannels(4, ChannelRange{Start: 0, End: 3, Step: 2}, 1)
	require.NoError(t, err)
	out := Regrid(in, groups)
	assert.Equal(t, []float64{110, 108}, out.Freq)
	assert.Equal(t, []float64{-1, -1}, out.Width)

	// width 2 ending on channel 2: the trailing group is short, one channel
	groups, err = GroupChannels(4, ChannelRange{Start: 0, End: 2, Step: 1}, 2)
	require.NoError(t, err)
	require.True(t, groups[1].Short)
	out = Regrid(in, groups)
	assert.Equal(t, []float64{-2, -1}, out.Width)
	assert.Equal(t, 3.0, out.TotalBandwidth)
}
