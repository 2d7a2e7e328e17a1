package models

type DatasetSummary struct {
	Name      string        `json:"name"`
	Rows      int           `json:"rows"`
	TimeStart float64       `json:"time_start"`
	TimeEnd   float64       `json:"time_end"`
	FieldDDI  []FieldDDIRow `json:"field_ddi"`
	Antennas  []AntennaRow  `json:"antennas"`
	Tables    []TableRows   `json:"tables"`
}

type FieldDDIRow struct {
	FieldID   int    `json:"field_id"`
	FieldName string `json:"field_name,omitempty"`
	DDI       int    `json:"data_desc_id"`
	SpwID     int    `json:"spw_id"`
	Rows      int    `json:"rows"`
}

type AntennaRow struct {
	AntennaID int    `json:"antenna_id"`
	Name      string `json:"name,omitempty"`
	Rows      int    `json:"rows"`
}

type TableRows struct {
	Table string `json:"table"`
	Rows  int    `json:"rows"`
}

type DatasetInfo struct {
	Name   string `json:"name"`
	Tables int    `json:"tables"`
	Rows   int    `json:"rows"`
}

type Page[T any] struct {
	Data   []T `json:"data"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}
