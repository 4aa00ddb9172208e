// Package fault holds the sentinel errors shared by probes, classifiers and
// indicator drivers. Callers wrap them with fmt.Errorf("...: %w") and test
// with errors.Is.
package fault

import "errors"

// Probe errors
var (
	ErrProbeUnavailable = errors.New("probe tool not available")
	ErrDeviceAbsent     = errors.New("device not present")
	ErrParseAmbiguous   = errors.New("probe output could not be interpreted")
)

// Indicator errors
var (
	ErrIndicatorWriteFailed = errors.New("indicator write failed")
	ErrUnknownIndicator     = errors.New("unknown indicator")
)

// Configuration errors
var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrInvalidColor  = errors.New("invalid color")
)
