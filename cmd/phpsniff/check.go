package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"phpsniff/internal/phpcs"
	"phpsniff/internal/ui"
)

var checkCmd = &cobra.Command{
	Use:          "check [flags] [file.php|directory]...",
	Short:        "Validate PHP files with phpcs",
	Long:         "Run phpcs over files and directories in parallel and print its findings. Exits with status 1 when any error is reported.",
	SilenceUsage: true,
	RunE:         runCheck,
}

func init() {
	addToolFlags(checkCmd)
	checkCmd.Flags().IntP("jobs", "j", runtime.GOMAXPROCS(0), "number of files validated concurrently")
	checkCmd.Flags().Var(&checkUI, "ui", "progress view")
	checkCmd.Flags().Bool("warnings", true, "print warnings as well as errors")
}

var checkUI = uiModeAuto

// fileResult is the outcome of validating one file.
type fileResult struct {
	path     string
	findings []phpcs.Finding
	err      error
}

func runCheck(cmd *cobra.Command, args []string) error {
	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	targets := args
	if len(targets) == 0 {
		targets = []string{"."}
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return err
	}
	if jobs < 1 {
		return fmt.Errorf("--jobs must be at least 1")
	}
	showWarnings, err := cmd.Flags().GetBool("warnings")
	if err != nil {
		return err
	}

	ws, err := openWorkspace(cmd, targets[0])
	if err != nil {
		return err
	}
	if !ws.resource.ValidatorEnabled {
		if !quiet(cmd) {
			fmt.Fprintln(cmd.ErrOrStderr(), "phpcs is disabled by configuration")
		}
		return nil
	}

	all, err := collectPHPFiles(targets)
	if err != nil {
		return err
	}
	files := all[:0]
	for _, f := range all {
		if !ws.resource.Ignored(f) {
			files = append(files, f)
		}
	}
	if len(files) == 0 {
		if !quiet(cmd) {
			fmt.Fprintln(cmd.ErrOrStderr(), "no PHP files to check")
		}
		return nil
	}

	results := make([]fileResult, len(files))
	work := func(ctx context.Context, sink ui.ProgressSink) error {
		return checkFiles(ctx, ws, files, jobs, results, sink)
	}

	if checkUI.useProgressView(quiet(cmd), len(files)) {
		display := make([]string, len(files))
		for i, f := range files {
			display[i] = displayPath(f, ws.root)
		}
		err = runWithUI(cmd.Context(), "checking", display, func(ctx context.Context, sink ui.ProgressSink) error {
			return work(ctx, relativeSink{base: ws.root, next: sink})
		})
	} else {
		err = work(cmd.Context(), ui.NopSink{})
	}
	if err != nil {
		return err
	}

	failed := printResults(cmd.OutOrStdout(), results, ws.root, showWarnings)
	if failed {
		return errFindings
	}
	return nil
}

// checkFiles validates files with at most jobs runs in flight. Tool
// failures are recorded per file; only cancellation stops the group.
func checkFiles(ctx context.Context, ws *workspace, files []string, jobs int, results []fileResult, sink ui.ProgressSink) error {
	tool := ws.resource.ValidatorTool()
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, file := range files {
		sink.OnEvent(ui.Event{File: file, Status: ui.StatusQueued})
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			sink.OnEvent(ui.Event{File: file, Status: ui.StatusChecking})
			res := checkFile(ctx, ws, file, tool)
			if res.err == nil && ctx.Err() != nil {
				return ctx.Err()
			}
			results[i] = res

			ev := ui.Event{File: file, Findings: len(res.findings), Err: res.err, Elapsed: elapsedSince(start)}
			switch {
			case res.err != nil:
				ev.Status = ui.StatusError
			case len(res.findings) > 0:
				ev.Status = ui.StatusIssues
			default:
				ev.Status = ui.StatusClean
			}
			sink.OnEvent(ev)
			return nil
		})
	}
	return g.Wait()
}

func checkFile(ctx context.Context, ws *workspace, file string, tool phpcs.Tool) fileResult {
	res := fileResult{path: file}
	data, err := os.ReadFile(file)
	if err != nil {
		res.err = err
		return res
	}
	req, err := ws.request(file, string(data), tool)
	if err != nil {
		res.err = err
		return res
	}
	out, err := ws.engine.Validate(ctx, req)
	if out.Cancelled {
		return res
	}
	res.findings = out.Findings
	res.err = err
	return res
}

// printResults writes findings in path:line:col form and reports whether
// anything counts as a failure.
func printResults(w io.Writer, results []fileResult, base string, showWarnings bool) bool {
	failed := false
	for _, res := range results {
		name := displayPath(res.path, base)
		if res.err != nil {
			failed = true
			fmt.Fprintf(w, "%s: %s %v\n", name, color.RedString("error:"), res.err)
		}
		for _, f := range res.findings {
			if f.Severity == phpcs.SeverityError {
				failed = true
			} else if !showWarnings {
				continue
			}
			fmt.Fprintf(w, "%s:%d:%d: %s %s\n", name, f.Line+1, f.Column+1, severityLabel(f.Severity), f.Display)
		}
	}
	return failed
}

func severityLabel(s phpcs.Severity) string {
	if s == phpcs.SeverityError {
		return color.New(color.FgRed, color.Bold).Sprint("error:")
	}
	return color.New(color.FgYellow, color.Bold).Sprint("warning:")
}

// relativeSink rewrites event paths to the names shown in the progress view.
type relativeSink struct {
	base string
	next ui.ProgressSink
}

func (s relativeSink) OnEvent(ev ui.Event) {
	ev.File = displayPath(ev.File, s.base)
	s.next.OnEvent(ev)
}
