package phpcs

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/afero"

	"phpsniff/internal/trace"
)

// Engine runs the validator and fixer and interprets their results.
type Engine struct {
	runner   Runner
	versions *VersionCache
	detector *Detector
}

// Options configures an Engine. Zero fields get defaults.
type Options struct {
	Runner    Runner
	Versions  *VersionCache
	FS        afero.Fs
	DiskCache *DiskVersionCache
	Tracer    trace.Tracer
}

// NewEngine builds an Engine.
func NewEngine(opts Options) *Engine {
	runner := opts.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	versions := opts.Versions
	if versions == nil {
		versions = NewVersionCache(runner, opts.DiskCache)
	}
	return &Engine{
		runner:   runner,
		versions: versions,
		detector: NewDetector(opts.FS, opts.Tracer),
	}
}

// Request is one document run.
type Request struct {
	Path     string
	Text     string
	Standard string
	Tool     Tool
	Report   ReportOptions
}

// ValidationResult is the outcome of Validate.
type ValidationResult struct {
	Findings []Finding
	// Parsed is set when a report was decoded, even if the run also
	// returned an error.
	Parsed bool
	Status NormalizedStatus
	// Cancelled runs must not be published.
	Cancelled bool
}

// Validate runs phpcs on req.Text. Cancellation is not an error: the
// result has Cancelled set and nil error.
func (e *Engine) Validate(ctx context.Context, req Request) (ValidationResult, error) {
	gen := e.generation(ctx, req.Tool)
	inv := req.Tool.invocation(ValidatorArgs(req.Standard, req.Path, req.Tool.ExtraArgs), req.Text)
	raw := e.runner.Run(ctx, inv)

	var out ValidationResult
	if raw.Cancelled || ctx.Err() != nil {
		out.Cancelled = true
		return out, nil
	}
	if raw.SpawnErr != nil {
		return out, spawnFailure(ModeValidate, req.Tool, raw)
	}

	out.Status = Translate(raw.Exit, gen, ModeValidate)
	switch out.Status.Status {
	case StatusNoStatus:
		if e.detector.IsDisabledFor(req.Standard, ModeValidate, raw.Stdout, raw.Stderr) {
			return out, e.disabledError(req.Standard, ModeValidate, raw)
		}
		return out, nil
	case StatusProcessingError, StatusUnknown:
		if e.detector.IsDisabledFor(req.Standard, ModeValidate, raw.Stdout, raw.Stderr) {
			return out, e.disabledError(req.Standard, ModeValidate, raw)
		}
		if findings, err := ParseReport(raw.Stdout, req.Report); err == nil && strings.TrimSpace(raw.Stdout) != "" {
			out.Findings = findings
			out.Parsed = true
		}
		return out, processingError(out.Status, raw)
	}

	findings, err := ParseReport(raw.Stdout, req.Report)
	if err != nil {
		return out, err
	}
	out.Findings = findings
	out.Parsed = true
	return out, nil
}

// Fix runs phpcbf on req.Text and reconciles the result. The only error
// returned is ctx's; tool failures are FixFailure outcomes.
func (e *Engine) Fix(ctx context.Context, req Request) (FixOutcome, error) {
	gen := e.generation(ctx, req.Tool)
	inv := req.Tool.invocation(FixerArgs(req.Standard, req.Path, req.Tool.ExtraArgs), req.Text)
	raw := e.runner.Run(ctx, inv)
	if raw.Cancelled || ctx.Err() != nil {
		return FixOutcome{}, ctx.Err()
	}
	if raw.SpawnErr != nil {
		err := spawnFailure(ModeFix, req.Tool, raw)
		return FixOutcome{Kind: FixFailure, Message: err.Message, Err: err}, nil
	}

	in := FixInput{
		Status:   Translate(raw.Exit, gen, ModeFix),
		Original: req.Text,
		Fixed:    raw.Stdout,
		Stderr:   raw.Stderr,
	}
	if in.Status.Status != StatusNoErrors && !in.Status.Status.IsPartialFixOrNonFixable() {
		in.Disabled = e.detector.IsDisabledFor(req.Standard, ModeFix, raw.Stdout, raw.Stderr)
		if in.Disabled {
			in.DisabledMessage = BuildDisabledMessage(req.Standard, ModeFix, raw.Stdout, raw.Stderr)
		}
	}
	return Reconcile(in), nil
}

// Version returns the detected version of tool.
func (e *Engine) Version(ctx context.Context, tool Tool) (Version, error) {
	return e.versions.Lookup(ctx, tool)
}

// InvalidateVersions drops cached version probes.
func (e *Engine) InvalidateVersions() {
	e.versions.Invalidate()
}

// generation resolves the tool's exit-code convention. A failed probe
// yields GenerationUnknown and the run proceeds best-effort.
func (e *Engine) generation(ctx context.Context, tool Tool) Generation {
	v, err := e.versions.Lookup(ctx, tool)
	if err != nil {
		trace.Warn(trace.FromContext(ctx), trace.ScopeProcess, "version", err.Error())
		return GenerationUnknown
	}
	return v.Generation
}

func (e *Engine) disabledError(standard string, mode Mode, raw RawResult) *Error {
	return &Error{
		Kind:    KindDisabledStandard,
		Message: BuildDisabledMessage(standard, mode, raw.Stdout, raw.Stderr),
		Output:  raw.Stderr,
	}
}

func spawnFailure(mode Mode, tool Tool, raw RawResult) *Error {
	return &Error{
		Kind:    KindSpawnFailure,
		Message: fmt.Sprintf("Unable to run %s (%s): %v", mode.Tool(), tool.Executable, raw.SpawnErr),
		Output:  raw.Stderr,
		Err:     raw.SpawnErr,
	}
}

func processingError(status NormalizedStatus, raw RawResult) *Error {
	msg := status.Message
	detail := strings.TrimSpace(raw.Stderr)
	if detail == "" && !strings.Contains(raw.Stdout, reportStart) {
		detail = strings.TrimSpace(raw.Stdout)
	}
	if detail != "" {
		msg += " " + collapse(detail)
	}
	return &Error{Kind: KindProcessingError, Message: msg, Output: raw.Stderr + raw.Stdout}
}
