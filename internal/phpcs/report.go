package phpcs

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"fortio.org/safecast"
	"golang.org/x/text/unicode/norm"
)

// Severity of a finding. Values match LSP DiagnosticSeverity.
type Severity uint8

const (
	SeverityError   Severity = 1
	SeverityWarning Severity = 2
)

// String returns the string representation of Severity.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// SeverityFromType maps the report's message type. Anything but ERROR is a
// warning.
func SeverityFromType(t string) Severity {
	if strings.EqualFold(strings.TrimSpace(t), "ERROR") {
		return SeverityError
	}
	return SeverityWarning
}

// Finding is one reported issue. Line and Column are 0-based.
type Finding struct {
	Line     uint32
	Column   uint32
	Severity Severity
	// Message is the tool's text; Display adds the optional source and
	// fixability suffixes.
	Message string
	Display string
	Source  string
	Fixable bool
}

// ReportOptions controls how findings are displayed.
type ReportOptions struct {
	ShowSources bool
	ShowFixable bool
}

type jsonReport struct {
	Totals struct {
		Errors   int `json:"errors"`
		Warnings int `json:"warnings"`
		Fixable  int `json:"fixable"`
	} `json:"totals"`
	Files map[string]jsonFile `json:"files"`
}

type jsonFile struct {
	Errors   int           `json:"errors"`
	Warnings int           `json:"warnings"`
	Messages []jsonMessage `json:"messages"`
}

type jsonMessage struct {
	Message  string `json:"message"`
	Source   string `json:"source"`
	Severity int    `json:"severity"`
	Fixable  bool   `json:"fixable"`
	Type     string `json:"type"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
}

const maxPrealloc = 512

const reportStart = `{"totals"`

// maxEchoedOutput caps how much raw output a malformed-report message quotes.
const maxEchoedOutput = 500

// ParseReport decodes a phpcs JSON report. Empty output is an empty report.
// PHP notices printed ahead of the report are skipped.
func ParseReport(stdout string, opts ReportOptions) ([]Finding, error) {
	text := strings.TrimSpace(stdout)
	if text == "" {
		return []Finding{}, nil
	}
	if !strings.HasPrefix(text, "{") {
		idx := strings.Index(text, reportStart)
		if idx < 0 {
			return nil, malformedReport(stdout, nil)
		}
		text = text[idx:]
	}
	var report jsonReport
	if err := json.Unmarshal([]byte(text), &report); err != nil {
		return nil, malformedReport(stdout, err)
	}

	paths := make([]string, 0, len(report.Files))
	for path := range report.Files {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	if report.Totals.Errors < 0 || report.Totals.Warnings < 0 {
		return nil, malformedReport(stdout, errNegativeTotals)
	}
	findings := make([]Finding, 0, findingsCap(report.Totals.Errors, report.Totals.Warnings))
	for _, path := range paths {
		for _, msg := range report.Files[path].Messages {
			findings = append(findings, newFinding(msg, opts))
		}
	}
	return findings, nil
}

func newFinding(msg jsonMessage, opts ReportOptions) Finding {
	text := norm.NFC.String(msg.Message)
	display := text
	if opts.ShowSources && msg.Source != "" {
		display += " (" + msg.Source + ")"
	}
	if opts.ShowFixable && msg.Fixable {
		display += " [fixable]"
	}
	return Finding{
		Line:     zeroBased(msg.Line),
		Column:   zeroBased(msg.Column),
		Severity: SeverityFromType(msg.Type),
		Message:  text,
		Display:  display,
		Source:   msg.Source,
		Fixable:  msg.Fixable,
	}
}

func zeroBased(n int) uint32 {
	if n <= 1 {
		return 0
	}
	v, err := safecast.Conv[uint32](n - 1)
	if err != nil {
		return math.MaxUint32
	}
	return v
}

var errNegativeTotals = errors.New("negative totals")

// findingsCap sizes the result from the report's totals, which are only a
// hint and must not drive a large allocation.
func findingsCap(errs, warnings int) int {
	return min(errs, maxPrealloc) + min(warnings, maxPrealloc)
}

func malformedReport(stdout string, cause error) *Error {
	echo := strings.TrimSpace(stdout)
	if len(echo) > maxEchoedOutput {
		echo = echo[:maxEchoedOutput] + "..."
	}
	return &Error{
		Kind:    KindMalformedReport,
		Message: fmt.Sprintf("phpcs did not return a valid JSON report: %s", echo),
		Output:  stdout,
		Err:     cause,
	}
}
