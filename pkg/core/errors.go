package core

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Detailed errors below unwrap to one of these so callers can
// branch with errors.Is.
var (
	ErrUnknownAntenna          = errors.New("unknown antenna")
	ErrUnknownPolarization     = errors.New("unknown polarization")
	ErrUnsupportedPolarization = errors.New("unsupported polarization setup")
	ErrInvalidTimeRange        = errors.New("invalid time range")
	ErrInvalidThreshold        = errors.New("invalid threshold")
	ErrSourceNotFound          = errors.New("source not found")
	ErrUnknownScan             = errors.New("unknown scan")
	ErrUnknownTransform        = errors.New("unknown transform")
	ErrTableAccess             = errors.New("table access failed")
)

// UnknownAntennaError is returned when an antenna name does not resolve
// against the ANTENNA subtable.
type UnknownAntennaError struct {
	Name      string
	Available []string
}

func (e *UnknownAntennaError) Error() string {
	return fmt.Sprintf("antenna %q not found in dataset\nAvailable antennas: %s", e.Name, strings.Join(e.Available, ", "))
}

func (e *UnknownAntennaError) Unwrap() error { return ErrUnknownAntenna }

// UnknownPolarizationError is returned when a hand letter is not part of the
// dataset's polarization convention.
type UnknownPolarizationError struct {
	Pol       string
	Available []string
}

func (e *UnknownPolarizationError) Error() string {
	return fmt.Sprintf("polarization %q not available (dataset has %s)", e.Pol, strings.Join(e.Available, ", "))
}

func (e *UnknownPolarizationError) Unwrap() error { return ErrUnknownPolarization }

// UnsupportedPolarizationError reports a CORR_TYPE list that mixes
// conventions or contains non-correlation Stokes codes.
type UnsupportedPolarizationError struct {
	Labels []Stokes
	Reason string
}

func (e *UnsupportedPolarizationError) Error() string {
	names := make([]string, len(e.Labels))
	for i, s := range e.Labels {
		names[i] = s.String()
	}
	return fmt.Sprintf("unsupported polarization setup [%s]: %s", strings.Join(names, " "), e.Reason)
}

func (e *UnsupportedPolarizationError) Unwrap() error { return ErrUnsupportedPolarization }

// InvalidTimeRangeError is returned when a window ends before it starts.
type InvalidTimeRangeError struct {
	Start, End float64
}

func (e *InvalidTimeRangeError) Error() string {
	return fmt.Sprintf("invalid time range: end %s is before start %s",
		FormatMJDSeconds(e.End), FormatMJDSeconds(e.Start))
}

func (e *InvalidTimeRangeError) Unwrap() error { return ErrInvalidTimeRange }

// InvalidThresholdError is returned for weight thresholds outside [0, 1].
type InvalidThresholdError struct {
	Value float64
}

func (e *InvalidThresholdError) Error() string {
	return fmt.Sprintf("invalid threshold %g: must be within [0, 1]", e.Value)
}

func (e *InvalidThresholdError) Unwrap() error { return ErrInvalidThreshold }

// SourceNotFoundError is returned when a FIELD name cannot be found.
type SourceNotFoundError struct {
	Name      string
	Available []string
}

func (e *SourceNotFoundError) Error() string {
	return fmt.Sprintf("source %q not found\nAvailable sources: %s", e.Name, strings.Join(e.Available, ", "))
}

func (e *SourceNotFoundError) Unwrap() error { return ErrSourceNotFound }

// UnknownScanError is returned when a named scan is not present in the SCAN subtable.
type UnknownScanError struct {
	Name      string
	Available []string
}

func (e *UnknownScanError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("scan %q not found: dataset has no named scans", e.Name)
	}
	return fmt.Sprintf("scan %q not found\nAvailable scans: %s", e.Name, strings.Join(e.Available, ", "))
}

func (e *UnknownScanError) Unwrap() error { return ErrUnknownScan }

// UnknownTransformError is returned for names missing from the transform registry.
type UnknownTransformError struct {
	Name      string
	Available []string
}

func (e *UnknownTransformError) Error() string {
	return fmt.Sprintf("unknown transform %q\nAvailable transforms: %v", e.Name, e.Available)
}

func (e *UnknownTransformError) Unwrap() error { return ErrUnknownTransform }

// TableAccessError wraps any failure reported by a table store.
// It matches both ErrTableAccess and the underlying cause.
type TableAccessError struct {
	Op     string
	Path   string
	Column string
	Err    error
}

func (e *TableAccessError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s %s column %s: %v", e.Op, e.Path, e.Column, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *TableAccessError) Unwrap() []error { return []error{ErrTableAccess, e.Err} }

// NewTableAccessError wraps err unless it already is a TableAccessError.
func NewTableAccessError(op, path, column string, err error) error {
	if err == nil {
		return nil
	}
	var tae *TableAccessError
	if errors.As(err, &tae) {
		return err
	}
	return &TableAccessError{Op: op, Path: path, Column: column, Err: err}
}
