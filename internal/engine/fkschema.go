package engine

import "mstransform/internal/table"

// Role says what a foreign key does to its row.
type Role int

const (
	// Filter drops rows whose key is not retained, then rewrites the key.
	Filter Role = iota
	// Rewrite maps the key; an unmapped key on a kept row is a fault.
	Rewrite
)

// ForeignKey describes one int32 key column.
type ForeignKey struct {
	Column      string
	Dim         Dimension
	Role        Role
	NullAllowed bool // -1 passes through untouched
	IfPresent   bool // the column may be absent
}

// ForeignKeySchema drives the generic rewrite of one table.
type ForeignKeySchema struct {
	Table string
	// Positional tables are indexed by their own id: row i is id i of Dim.
	Positional bool
	Dim        Dimension
	Keys       []ForeignKey
	// Verbatim tables are copied unchanged.
	Verbatim bool
}

// schemas lists the dimension tables rewritten by the generic engine.
// SPECTRAL_WINDOW, POLARIZATION and MAIN have their own passes on top.
var schemas = []ForeignKeySchema{
	{Table: table.Antenna, Positional: true, Dim: DimAntenna},
	{Table: table.Field, Positional: true, Dim: DimField, Keys: []ForeignKey{
		{Column: table.ColSourceID, Dim: DimSource, Role: Rewrite, NullAllowed: true, IfPresent: true},
	}},
	{Table: table.DataDescription, Positional: true, Dim: DimDDI, Keys: []ForeignKey{
		{Column: table.ColSpectralWindowID, Dim: DimSpw, Role: Rewrite},
		{Column: table.ColPolarizationID, Dim: DimPolarization, Role: Rewrite},
	}},
	{Table: table.State, Positional: true, Dim: DimState},
	{Table: table.Observation, Positional: true, Dim: DimObservation},
	{Table: table.Source, Keys: []ForeignKey{
		{Column: table.ColSourceID, Dim: DimSource, Role: Filter},
		{Column: table.ColSpectralWindowID, Dim: DimSpw, Role: Filter, NullAllowed: true},
	}},
	{Table: table.Feed, Keys: antennaSpwKeys},
	{Table: table.SysCal, Keys: antennaSpwKeys},
	{Table: table.CalDevice, Keys: antennaSpwKeys},
	{Table: table.SysPower, Keys: antennaSpwKeys},
	{Table: table.FreqOffset, Keys: []ForeignKey{
		{Column: table.ColAntenna1, Dim: DimAntenna, Role: Filter},
		{Column: table.ColAntenna2, Dim: DimAntenna, Role: Filter},
		{Column: table.ColSpectralWindowID, Dim: DimSpw, Role: Filter},
	}},
	{Table: table.Weather, Keys: []ForeignKey{
		{Column: table.ColAntennaID, Dim: DimAntenna, Role: Filter, NullAllowed: true, IfPresent: true},
	}},
	{Table: table.Pointing, Keys: []ForeignKey{
		{Column: table.ColAntennaID, Dim: DimAntenna, Role: Filter},
	}},
	{Table: table.Processor, Verbatim: true},
	{Table: table.History, Verbatim: true},
	{Table: table.FlagCmd, Verbatim: true},
}

var antennaSpwKeys = []ForeignKey{
	{Column: table.ColAntennaID, Dim: DimAntenna, Role: Filter},
	{Column: table.ColSpectralWindowID, Dim: DimSpw, Role: Filter, NullAllowed: true},
}

// mainKeys rewrites MAIN after row selection.
var mainKeys = []ForeignKey{
	{Column: table.ColAntenna1, Dim: DimAntenna, Role: Rewrite},
	{Column: table.ColAntenna2, Dim: DimAntenna, Role: Rewrite},
	{Column: table.ColDataDescID, Dim: DimDDI, Role: Rewrite},
	{Column: table.ColFieldID, Dim: DimField, Role: Rewrite},
	{Column: table.ColStateID, Dim: DimState, Role: Rewrite, NullAllowed: true, IfPresent: true},
	{Column: table.ColObservationID, Dim: DimObservation, Role: Rewrite, IfPresent: true},
}

// mergeSpwTables carry a SPECTRAL_WINDOW_ID shifted by partition merge.
var mergeSpwTables = []string{table.Feed, table.Source, table.SysCal, table.FreqOffset, table.CalDevice, table.SysPower}
