package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/roach88/lps/internal/ir"
)

// ConfigurationError reports an engine parameter that cannot be applied.
type ConfigurationError struct {
	// Code identifies the error category.
	Code ConfigErrorCode

	// Param names the parameter or operation.
	Param string

	// Message is a human-readable description.
	Message string
}

// ConfigErrorCode categorizes configuration errors.
type ConfigErrorCode string

const (
	// ErrCodeWhileRunning indicates a parameter change after Run started.
	ErrCodeWhileRunning ConfigErrorCode = "UPDATE_WHILE_RUNNING"

	// ErrCodeInvalidValue indicates a non-positive or malformed value.
	ErrCodeInvalidValue ConfigErrorCode = "INVALID_VALUE"

	// ErrCodeAlreadyLoaded indicates a second call to Load.
	ErrCodeAlreadyLoaded ConfigErrorCode = "ALREADY_LOADED"
)

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Param, e.Message)
}

// IsConfigurationError reports whether err is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

func errWhileRunning(param string) *ConfigurationError {
	return &ConfigurationError{Code: ErrCodeWhileRunning, Param: param, Message: "cannot be changed while the engine is running"}
}

func errInvalidValue(param string, v any) *ConfigurationError {
	return &ConfigurationError{Code: ErrCodeInvalidValue, Param: param, Message: fmt.Sprintf("must be a positive integer, got %v", v)}
}

// SchedulingError reports an observation that cannot be scheduled.
type SchedulingError struct {
	Code        SchedulingErrorCode
	Observation ir.Term
	Start       int64
	End         int64
	Now         int64
}

// SchedulingErrorCode categorizes scheduling errors.
type SchedulingErrorCode string

const (
	// ErrCodeStartInPast indicates a start time before the current time.
	ErrCodeStartInPast SchedulingErrorCode = "START_IN_PAST"

	// ErrCodeEmptyWindow indicates an end time not after the start time.
	ErrCodeEmptyWindow SchedulingErrorCode = "EMPTY_WINDOW"

	// ErrCodeBadObservation indicates a non-ground or malformed observation.
	ErrCodeBadObservation SchedulingErrorCode = "BAD_OBSERVATION"
)

func (e *SchedulingError) Error() string {
	switch e.Code {
	case ErrCodeStartInPast:
		return fmt.Sprintf("%s: observation %s at %d is before current time %d", e.Code, e.Observation, e.Start, e.Now)
	case ErrCodeEmptyWindow:
		return fmt.Sprintf("%s: observation %s window [%d, %d] is empty", e.Code, e.Observation, e.Start, e.End)
	default:
		return fmt.Sprintf("%s: observation %s cannot be scheduled", e.Code, e.Observation)
	}
}

// IsSchedulingError reports whether err is a SchedulingError.
func IsSchedulingError(err error) bool {
	var se *SchedulingError
	return errors.As(err, &se)
}

// CycleOverrunError is returned when a cycle is started while the previous
// one has not finished. The engine halts when it happens.
type CycleOverrunError struct {
	Time     int64
	Interval time.Duration
}

func (e *CycleOverrunError) Error() string {
	return fmt.Sprintf("CYCLE_OVERRUN: cycle at time %d exceeded the cycle interval of %s", e.Time, e.Interval)
}

// IsCycleOverrun reports whether err is a CycleOverrunError.
func IsCycleOverrun(err error) bool {
	var oe *CycleOverrunError
	return errors.As(err, &oe)
}
