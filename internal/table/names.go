package table

// Table names.
const (
	Main            = "MAIN"
	Antenna         = "ANTENNA"
	SpectralWindow  = "SPECTRAL_WINDOW"
	Polarization    = "POLARIZATION"
	DataDescription = "DATA_DESCRIPTION"
	Field           = "FIELD"
	Source          = "SOURCE"
	Observation     = "OBSERVATION"
	State           = "STATE"
	Feed            = "FEED"
	Weather         = "WEATHER"
	SysCal          = "SYSCAL"
	Pointing        = "POINTING"
	FreqOffset      = "FREQ_OFFSET"
	CalDevice       = "CALDEVICE"
	SysPower        = "SYSPOWER"
	Processor       = "PROCESSOR"
	History         = "HISTORY"
	FlagCmd         = "FLAG_CMD"
)

// Column names shared by several tables.
const (
	ColTime             = "TIME"
	ColInterval         = "INTERVAL"
	ColName             = "NAME"
	ColFlagRow          = "FLAG_ROW"
	ColAntennaID        = "ANTENNA_ID"
	ColAntenna1         = "ANTENNA1"
	ColAntenna2         = "ANTENNA2"
	ColFeedID           = "FEED_ID"
	ColFeed1            = "FEED1"
	ColFeed2            = "FEED2"
	ColSpectralWindowID = "SPECTRAL_WINDOW_ID"
	ColPolarizationID   = "POLARIZATION_ID"
	ColDataDescID       = "DATA_DESC_ID"
	ColFieldID          = "FIELD_ID"
	ColSourceID         = "SOURCE_ID"
	ColStateID          = "STATE_ID"
	ColObservationID    = "OBSERVATION_ID"
	ColArrayID          = "ARRAY_ID"
	ColScanNumber       = "SCAN_NUMBER"
	ColProcessorID      = "PROCESSOR_ID"
	ColUVW              = "UVW"
	ColData             = "DATA"
	ColFlag             = "FLAG"
	ColWeight           = "WEIGHT"
	ColSigma            = "SIGMA"
	ColCorrectedData    = "CORRECTED_DATA"
	ColModelData        = "MODEL_DATA"
	ColFloatData        = "FLOAT_DATA"

	ColNumChan        = "NUM_CHAN"
	ColChanFreq       = "CHAN_FREQ"
	ColChanWidth      = "CHAN_WIDTH"
	ColEffectiveBW    = "EFFECTIVE_BW"
	ColResolution     = "RESOLUTION"
	ColRefFrequency   = "REF_FREQUENCY"
	ColTotalBandwidth = "TOTAL_BANDWIDTH"
	ColAssocSpwID     = "ASSOC_SPW_ID"
	ColAssocNature    = "ASSOC_NATURE"

	ColNumCorr     = "NUM_CORR"
	ColCorrType    = "CORR_TYPE"
	ColCorrProduct = "CORR_PRODUCT"

	ColObsMode = "OBS_MODE"
)

// DataColumns are the MAIN cell columns shaped [channel][correlation].
var DataColumns = []string{ColData, ColCorrectedData, ColModelData, ColFloatData}

// Standard lists the tables of a dataset, MAIN first.
var Standard = []string{
	Main, Antenna, SpectralWindow, Polarization, DataDescription, Field, Source,
	Observation, State, Feed, Weather, SysCal, Pointing, FreqOffset, CalDevice,
	SysPower, Processor, History, FlagCmd,
}

// Optional reports whether a dataset may legitimately lack the table.
func Optional(name string) bool {
	switch name {
	case Source, Weather, SysCal, Pointing, FreqOffset, CalDevice, SysPower, State, FlagCmd, History, Processor:
		return true
	}
	return false
}
