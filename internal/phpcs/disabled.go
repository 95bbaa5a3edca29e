package phpcs

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/afero"

	"phpsniff/internal/trace"
)

// noSniffsText is what both generations print when a ruleset leaves
// nothing to run. Legacy releases print it on stdout, current ones on
// stderr.
const noSniffsText = "No sniffs were registered"

var modeOnlyAttr = map[Mode]*regexp.Regexp{
	ModeValidate: regexp.MustCompile(`phpcs-only\s*=\s*["']true["']`),
	ModeFix:      regexp.MustCompile(`phpcbf-only\s*=\s*["']true["']`),
}

var modeOnlyName = map[Mode]string{
	ModeValidate: `phpcs-only="true"`,
	ModeFix:      `phpcbf-only="true"`,
}

var usageHint = regexp.MustCompile(`(?m)^\s*Run "[^"]*--help" for usage information\.?\s*$`)

// Detector decides whether a failure is explained by the active ruleset
// being restricted by its mode-only attributes.
type Detector struct {
	fs     afero.Fs
	tracer trace.Tracer
}

// NewDetector returns a Detector that reads rulesets from fs.
func NewDetector(fs afero.Fs, tracer trace.Tracer) *Detector {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if tracer == nil {
		tracer = trace.Nop
	}
	return &Detector{fs: fs, tracer: tracer}
}

// IsDisabledFor reports whether the ruleset at standardPath carries the
// mode-only attribute for mode and the tool output says no sniffs were
// registered. A missing or unreadable ruleset yields false.
func (d *Detector) IsDisabledFor(standardPath string, mode Mode, stdout, stderr string) bool {
	if standardPath == "" {
		return false
	}
	if !strings.Contains(stdout, noSniffsText) && !strings.Contains(stderr, noSniffsText) {
		return false
	}
	attr, ok := modeOnlyAttr[mode]
	if !ok {
		return false
	}
	content, err := afero.ReadFile(d.fs, standardPath)
	if err != nil {
		trace.Warn(d.tracer, trace.ScopeProcess, "ruleset read", fmt.Sprintf("%s: %v", standardPath, err))
		return false
	}
	return attr.Match(content)
}

// BuildDisabledMessage explains that the standard disables mode, quoting
// the tool's own error without its usage hint.
func BuildDisabledMessage(standardPath string, mode Mode, stdout, stderr string) string {
	detail := toolErrorText(stdout, stderr)
	msg := fmt.Sprintf("%s is disabled by the standard %q (%s).",
		mode.Tool(), filepath.Base(standardPath), modeOnlyName[mode])
	if detail == "" {
		return msg
	}
	return msg + " " + detail
}

func toolErrorText(stdout, stderr string) string {
	source := stderr
	if !strings.Contains(source, noSniffsText) {
		source = stdout
	}
	source = usageHint.ReplaceAllString(source, "")
	return strings.Join(strings.Fields(source), " ")
}
