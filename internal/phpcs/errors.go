package phpcs

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed run.
type ErrorKind uint8

const (
	// KindSpawnFailure: the executable could not be started or timed out.
	KindSpawnFailure ErrorKind = iota + 1
	// KindProcessingError: the tool ran but could not process the input.
	KindProcessingError
	// KindDisabledStandard: the active ruleset disables the current mode.
	KindDisabledStandard
	// KindMalformedReport: stdout was not a JSON report.
	KindMalformedReport
	// KindPartialFix: the fixer changed only part of what it should have.
	KindPartialFix
	// KindFixConflict: the fixer's status and its output disagree.
	KindFixConflict
)

// String returns the string representation of ErrorKind.
func (k ErrorKind) String() string {
	switch k {
	case KindSpawnFailure:
		return "SpawnFailure"
	case KindProcessingError:
		return "ProcessingError"
	case KindDisabledStandard:
		return "DisabledStandardForMode"
	case KindMalformedReport:
		return "MalformedReport"
	case KindPartialFix:
		return "PartialFix"
	case KindFixConflict:
		return "FixConflict"
	default:
		return "unknown"
	}
}

var (
	ErrSpawnFailure     = errors.New("phpcs: spawn failure")
	ErrProcessingError  = errors.New("phpcs: processing error")
	ErrDisabledStandard = errors.New("phpcs: standard disabled for mode")
	ErrMalformedReport  = errors.New("phpcs: malformed report")
	ErrPartialFix       = errors.New("phpcs: partial fix")
	ErrFixConflict      = errors.New("phpcs: fix conflict")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindSpawnFailure:
		return ErrSpawnFailure
	case KindProcessingError:
		return ErrProcessingError
	case KindDisabledStandard:
		return ErrDisabledStandard
	case KindMalformedReport:
		return ErrMalformedReport
	case KindPartialFix:
		return ErrPartialFix
	case KindFixConflict:
		return ErrFixConflict
	}
	return nil
}

// Error is a run failure. Error() returns only the user-facing message;
// Output holds raw tool output for logs and Err the low-level cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Output  string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// Unwrap returns the low-level cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches the sentinel for the error's kind. A disabled standard is also
// a processing error.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	if target == e.Kind.sentinel() {
		return true
	}
	return e.Kind == KindDisabledStandard && target == ErrProcessingError
}

// Detail returns the message followed by the raw output, for logs.
func (e *Error) Detail() string {
	if e == nil {
		return ""
	}
	if e.Output == "" {
		return e.Message
	}
	return fmt.Sprintf("%s\n%s", e.Message, e.Output)
}

// KindOf returns the kind of a *Error anywhere in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
