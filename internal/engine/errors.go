package engine

import "fmt"

// NullSelectionError means the resolved selection retains nothing usable.
type NullSelectionError struct {
	Reason string
}

func (e *NullSelectionError) Error() string {
	return "null selection: " + e.Reason
}

// UnsupportedSelectionError is a selection the engine cannot express, such
// as a correlation subset without a constant stride.
type UnsupportedSelectionError struct {
	Subject string // e.g. "spw 3", "polarization 1", "width"
	Rule    string
}

func (e *UnsupportedSelectionError) Error() string {
	if e.Subject == "" {
		return "unsupported selection: " + e.Rule
	}
	return fmt.Sprintf("unsupported selection for %s: %s", e.Subject, e.Rule)
}

// SchemaError reports a table or column the input lacks or holds in the
// wrong shape.
type SchemaError struct {
	Table  string
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("schema error in %s: %s", e.Table, e.Reason)
	}
	return fmt.Sprintf("schema error in %s.%s: %s", e.Table, e.Column, e.Reason)
}

// RemapConsistencyFault is an internal invariant violation: a retained row
// references an id the remap marks unused. It indicates an engine bug.
type RemapConsistencyFault struct {
	Table     string
	Row       int
	Column    string
	Dimension Dimension
	OldID     int
}

func (e *RemapConsistencyFault) Error() string {
	return fmt.Sprintf("remap consistency fault: %s row %d column %s references %s id %d, which is not retained",
		e.Table, e.Row, e.Column, e.Dimension, e.OldID)
}

// WarningKind classifies non-fatal findings.
type WarningKind string

const (
	DroppedSelectionWarning  WarningKind = "dropped-selection"
	ShortChannelWarning      WarningKind = "short-channel-group"
	AdjustedSelectionWarning WarningKind = "adjusted-selection"
)

// Warning is surfaced to the caller alongside a successful result.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	return string(w.Kind) + ": " + w.Message
}

// warnings accumulates Warnings and mirrors them to the logger.
type warnings struct {
	list []Warning
	log  interface {
		Warnf(format string, v ...interface{})
	}
}

func (w *warnings) add(kind WarningKind, format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	w.list = append(w.list, Warning{Kind: kind, Message: msg})
	if w.log != nil {
		w.log.Warnf("%s", msg)
	}
}

func schemaErr(tbl, col string, err error) error {
	return &SchemaError{Table: tbl, Column: col, Reason: err.Error()}
}
