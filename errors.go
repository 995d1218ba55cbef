package gridder

import (
	"errors"
	"fmt"
)

var (
	ErrColumnNotFound        = errors.New("column not found")
	ErrColumnIndexOutOfRange = errors.New("column index out of range")
	ErrEmptyDataset          = errors.New("no valid data points after removing missing values")
	ErrInvalidCellSize       = errors.New("cell size must be a positive finite number")
	ErrDegenerateAxis        = errors.New("degenerate axis: all samples share the same coordinate")
	ErrInterpolationFailed   = errors.New("interpolation failed")
	ErrWrite                 = errors.New("write error")
	ErrOutputDir             = errors.New("output directory unusable")
	ErrUnknownMethod         = errors.New("unknown interpolation method")
)

type Stage string

const (
	StageLoad        Stage = "load"
	StageGrid        Stage = "grid"
	StageInterpolate Stage = "interpolate"
	StageSerialize   Stage = "serialize"
)

// StageError names the file and pipeline stage a failure came from.
type StageError struct {
	File  string
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.File, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// InterpolationError wraps a numerical failure of one method.
type InterpolationError struct {
	Method Method
	Err    error
}

func (e *InterpolationError) Error() string {
	return fmt.Sprintf("%s interpolation failed: %v", e.Method, e.Err)
}

func (e *InterpolationError) Unwrap() []error {
	return []error{ErrInterpolationFailed, e.Err}
}

func interpolationFailed(m Method, format string, args ...interface{}) error {
	return &InterpolationError{Method: m, Err: fmt.Errorf(format, args...)}
}
