package catalog

import (
	"fmt"
	"strconv"
)

// Operation names the engine stage that produced an error.
type Operation string

const (
	OpClassification Operation = "classification"
	OpBinning        Operation = "binning"
	OpIngestion      Operation = "ingestion"
)

// ConfigurationError is returned when a rule set, an axis or a preset references something the
// catalog does not provide, or is malformed. The offending column is named when one is involved,
// so the caller can correct the configuration instead of chasing a mask-shape failure.
type ConfigurationError struct {
	// Op: stage that rejected the configuration.
	Op Operation
	// Column: offending column, empty when the error is not tied to one.
	Column string
	// Reason: human readable description.
	Reason string
}

// Error returns the textual description of the error.
func (e *ConfigurationError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("%s: column %q: %s", e.Op, e.Column, e.Reason)
}

// NewConfigurationError creates a ConfigurationError for the given stage and column.
func NewConfigurationError(op Operation, column, reason string) *ConfigurationError {
	return &ConfigurationError{Op: op, Column: column, Reason: reason}
}

// DataError is returned when a compared column holds a non-finite value and no explicit
// replacement was configured for it.
type DataError struct {
	Op     Operation
	Column string
	// Row: zero-based index of the first offending record.
	Row   int
	Value float64
}

// Error returns the textual description of the error.
func (e *DataError) Error() string {
	return fmt.Sprintf("%s: column %q: non-finite value %s at row %d (configure a replacement)",
		e.Op, e.Column, strconv.FormatFloat(e.Value, 'g', -1, 64), e.Row)
}

// NewDataError creates a DataError for the first non-finite value found in column.
func NewDataError(op Operation, column string, row int, value float64) *DataError {
	return &DataError{Op: op, Column: column, Row: row, Value: value}
}
