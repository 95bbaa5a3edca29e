package phpcs

import (
	"fmt"
	"strconv"
)

// Mode selects which tool's conventions apply.
type Mode uint8

const (
	// ModeValidate is a phpcs run that reports findings.
	ModeValidate Mode = iota + 1
	// ModeFix is a phpcbf run that rewrites the document.
	ModeFix
)

// String returns the string representation of Mode.
func (m Mode) String() string {
	switch m {
	case ModeValidate:
		return "validate"
	case ModeFix:
		return "fix"
	default:
		return "unknown"
	}
}

// Tool returns the name of the executable that runs in this mode.
func (m Mode) Tool() string {
	if m == ModeFix {
		return "phpcbf"
	}
	return "phpcs"
}

// Generation is the exit-code convention of a tool release line.
type Generation uint8

const (
	// GenerationUnknown means the version could not be determined.
	GenerationUnknown Generation = iota
	// GenerationLegacy covers the 3.x line and older.
	GenerationLegacy
	// GenerationCurrent covers 4.x and newer.
	GenerationCurrent
)

// String returns the string representation of Generation.
func (g Generation) String() string {
	switch g {
	case GenerationLegacy:
		return "legacy"
	case GenerationCurrent:
		return "current"
	default:
		return "unknown"
	}
}

// Status is the normalized outcome vocabulary shared by both generations.
type Status uint8

const (
	StatusNoErrors Status = iota + 1
	StatusAutoFixable
	StatusNonAutoFixable
	StatusMixedFixable
	StatusFixFailedSomeFiles
	StatusFixFailedSomeErrors
	StatusFixFailedMixed
	StatusProcessingError
	// StatusNoStatus means the process produced no exit code.
	StatusNoStatus
	// StatusUnknown is a code outside every table.
	StatusUnknown
)

// String returns the string representation of Status.
func (s Status) String() string {
	switch s {
	case StatusNoErrors:
		return "NoErrors"
	case StatusAutoFixable:
		return "AutoFixable"
	case StatusNonAutoFixable:
		return "NonAutoFixable"
	case StatusMixedFixable:
		return "MixedFixable"
	case StatusFixFailedSomeFiles:
		return "FixFailedSomeFiles"
	case StatusFixFailedSomeErrors:
		return "FixFailedSomeErrors"
	case StatusFixFailedMixed:
		return "FixFailedMixed"
	case StatusProcessingError:
		return "ProcessingError"
	case StatusNoStatus:
		return "NoStatus"
	case StatusUnknown:
		return "Unknown"
	default:
		return "invalid"
	}
}

// ExitCode is a process exit status that may be absent.
// The zero value is NoExitStatus.
type ExitCode struct {
	value int
	known bool
}

// NoExitStatus is the exit code of a process that never reported one
// (spawn failure, killed by a signal).
var NoExitStatus = ExitCode{}

// Code wraps a reported exit code.
func Code(n int) ExitCode {
	return ExitCode{value: n, known: true}
}

// Value returns the code and whether one was reported.
func (c ExitCode) Value() (int, bool) {
	return c.value, c.known
}

// String returns the code or "none".
func (c ExitCode) String() string {
	if !c.known {
		return "none"
	}
	return strconv.Itoa(c.value)
}

// NormalizedStatus is an exit code after version-aware translation.
type NormalizedStatus struct {
	Status  Status
	Code    ExitCode
	Message string
	// Unmapped is set when the tool version was unknown and the raw code
	// was passed through without translation.
	Unmapped bool
}

// exitTable maps a generation's numeric codes for one mode.
type exitTable map[int]Status

// Legacy phpcbf reuses 1 and 2 with a meaning of its own.
var (
	legacyValidateTable = exitTable{
		0: StatusNoErrors,
		1: StatusNonAutoFixable,
		2: StatusAutoFixable,
		3: StatusProcessingError,
	}
	legacyFixTable = exitTable{
		0: StatusNoErrors,
		1: StatusNoErrors,
		2: StatusFixFailedSomeErrors,
		3: StatusProcessingError,
	}
	currentTable = exitTable{
		0:  StatusNoErrors,
		1:  StatusAutoFixable,
		2:  StatusNonAutoFixable,
		3:  StatusMixedFixable,
		4:  StatusFixFailedSomeFiles,
		5:  StatusFixFailedSomeErrors,
		6:  StatusFixFailedMixed,
		7:  StatusFixFailedMixed,
		16: StatusProcessingError,
		64: StatusProcessingError,
	}
)

type tableKey struct {
	gen  Generation
	mode Mode
}

// exitTables holds every legal (generation, mode) pair. An unknown
// generation has no table and passes through the current vocabulary.
var exitTables = map[tableKey]exitTable{
	{GenerationLegacy, ModeValidate}:  legacyValidateTable,
	{GenerationLegacy, ModeFix}:       legacyFixTable,
	{GenerationCurrent, ModeValidate}: currentTable,
	{GenerationCurrent, ModeFix}:      currentTable,
}

// Translate maps a raw exit code to the normalized vocabulary.
func Translate(code ExitCode, gen Generation, mode Mode) NormalizedStatus {
	out := NormalizedStatus{Code: code}
	n, ok := code.Value()
	if !ok {
		out.Status = StatusNoStatus
		out.Message = statusMessage(mode, StatusNoStatus, code)
		return out
	}
	table, ok := exitTables[tableKey{gen, mode}]
	if !ok {
		table = currentTable
		out.Unmapped = true
	}
	status, ok := table[n]
	if !ok {
		status = StatusUnknown
	}
	out.Status = status
	out.Message = statusMessage(mode, status, code)
	return out
}

var validateMessages = map[Status]string{
	StatusNoErrors:            "No errors found.",
	StatusAutoFixable:         "Errors found that phpcbf can fix automatically.",
	StatusNonAutoFixable:      "Errors found that cannot be fixed automatically.",
	StatusMixedFixable:        "Errors found, some of which phpcbf can fix automatically.",
	StatusFixFailedSomeFiles:  "phpcs reported that fixing failed for some files.",
	StatusFixFailedSomeErrors: "phpcs reported that some errors could not be fixed.",
	StatusFixFailedMixed:      "phpcs reported that fixing failed for some files and errors.",
	StatusProcessingError:     "phpcs encountered a processing error.",
	StatusNoStatus:            "phpcs exited without a status.",
}

// The fixer has its own wording for a missing status: it is reported as an
// internal error, while the validator treats it as a silent no-op.
var fixMessages = map[Status]string{
	StatusNoErrors:            "No fixable errors were found.",
	StatusAutoFixable:         "Fixable errors remain after running phpcbf.",
	StatusNonAutoFixable:      "The remaining errors cannot be fixed automatically.",
	StatusMixedFixable:        "Fixable and non-fixable errors remain after running phpcbf.",
	StatusFixFailedSomeFiles:  "phpcbf failed to fix some files.",
	StatusFixFailedSomeErrors: "phpcbf failed to fix some of the errors.",
	StatusFixFailedMixed:      "phpcbf failed to fix some files and some errors.",
	StatusProcessingError:     "phpcbf encountered a processing error.",
	StatusNoStatus:            "phpcbf stopped without an exit status; it may have been killed or timed out.",
}

func statusMessage(mode Mode, status Status, code ExitCode) string {
	if status == StatusUnknown {
		return fmt.Sprintf("%s exited with unexpected code %s.", mode.Tool(), code)
	}
	table := validateMessages
	if mode == ModeFix {
		table = fixMessages
	}
	return table[status]
}

// IsPartialFix reports whether the status means the fixer changed some but
// not all of what it was asked to fix.
func (s Status) IsPartialFix() bool {
	switch s {
	case StatusAutoFixable, StatusMixedFixable,
		StatusFixFailedSomeFiles, StatusFixFailedSomeErrors, StatusFixFailedMixed:
		return true
	}
	return false
}

// IsPartialFixOrNonFixable reports whether the fixer ran to completion with
// a result worth inspecting, even if not everything was fixed.
func (s Status) IsPartialFixOrNonFixable() bool {
	return s == StatusNonAutoFixable || s.IsPartialFix()
}
