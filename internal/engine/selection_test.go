package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsEverything(t *testing.T) {
	assert.True(t, SelectionSpec{}.IsEverything())
	assert.True(t, SelectionSpec{Spw: "*", Field: "*", Width: []int{1}}.IsEverything())
	assert.False(t, SelectionSpec{Field: "0"}.IsEverything())
	assert.False(t, SelectionSpec{Width: []int{2}}.IsEverything())
	assert.False(t, SelectionSpec{Predicate: "SCAN_NUMBER == 1"}.IsEverything())
}

func TestParseSpwExpr(t *testing.T) {
	terms, err := parseSpwExpr("0:0~63^2;70~80, 2~3, *")
	require.NoError(t, err)
	require.Len(t, terms, 3)

	assert.Equal(t, idRange{0, 0}, terms[0].spws)
	assert.Equal(t, []ChannelRange{{0, 63, 2}, {70, 80, 1}}, terms[0].ranges)
	assert.Equal(t, idRange{2, 3}, terms[1].spws)
	assert.Empty(t, terms[1].ranges)
	assert.True(t, terms[2].all)

	_, err = parseSpwExpr("0:5~a")
	var unsupported *UnsupportedSelectionError
	require.True(t, errors.As(err, &unsupported))
}

func TestParseBaselineExpr(t *testing.T) {
	terms, err := parseBaselineExpr("0&1; 2; !DV05&*")
	require.NoError(t, err)
	require.Len(t, terms, 3)

	assert.Equal(t, baselineTerm{a: antennaRef{tok: "0"}, b: antennaRef{tok: "1"}, paired: true}, terms[0])
	assert.Equal(t, baselineTerm{a: antennaRef{tok: "2"}, b: antennaRef{all: true}}, terms[1])
	assert.True(t, terms[2].negate)
	assert.True(t, terms[2].b.all)

	_, err = parseBaselineExpr("0&")
	require.Error(t, err)
}

func TestResolveIDs(t *testing.T) {
	names := []string{"3C286", "J1924-2914", "3C279"}
	ids, err := resolveIDs("3C*,1", 3, names, "field")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 1}, ids)

	ids, err = resolveIDs("0~1", 3, names, "field")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, ids)

	_, err = resolveIDs("5", 3, names, "field")
	require.ErrorContains(t, err, "field")
	_, err = resolveIDs("NGC*", 3, names, "field")
	require.ErrorContains(t, err, "matches nothing")
}

func TestParseCorrExpr(t *testing.T) {
	set, err := parseCorrExpr("xx, YY")
	require.NoError(t, err)
	assert.Equal(t, map[int32]bool{9: true, 12: true}, set)

	_, err = parseCorrExpr("ZZ")
	require.Error(t, err)
	assert.Equal(t, "RL", CorrName(6))
}

func TestParseFloatRange(t *testing.T) {
	lo, hi, err := parseFloatRange("10.5~20", "uvrange")
	require.NoError(t, err)
	assert.Equal(t, 10.5, lo)
	assert.Equal(t, 20.0, hi)

	_, _, err = parseFloatRange("20~10", "uvrange")
	require.Error(t, err)
}
