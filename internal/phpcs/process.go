package phpcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"phpsniff/internal/trace"
)

// ErrTimeout is the cause attached to a run that exceeded its timeout.
var ErrTimeout = errors.New("timed out")

// RawResult is what one invocation produced.
type RawResult struct {
	Exit   ExitCode
	Stdout string
	Stderr string
	// SpawnErr is set when the process could not be started or was
	// stopped by its timeout. Exit is NoExitStatus in that case.
	SpawnErr error
	// Cancelled is set when the caller's context ended before exit.
	Cancelled bool
	Duration  time.Duration
}

// Runner executes an invocation. Run must not block past ctx's end for
// longer than it takes the process to die.
type Runner interface {
	Run(ctx context.Context, inv Invocation) RawResult
}

// ExecRunner runs invocations with os/exec.
type ExecRunner struct{}

// Run spawns the process, feeds Stdin and collects both streams. A
// cancelled ctx kills the process; its output is still returned.
func (ExecRunner) Run(ctx context.Context, inv Invocation) RawResult {
	span := trace.Begin(trace.FromContext(ctx), trace.ScopeProcess, inv.Executable, 0)
	span.WithExtra("args", strings.Join(inv.Args, " "))

	runCtx := ctx
	if inv.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, inv.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, inv.Executable, inv.Args...)
	cmd.Dir = inv.Dir
	if len(inv.Env) > 0 {
		cmd.Env = append(os.Environ(), inv.Env...)
	}
	cmd.Stdin = strings.NewReader(inv.Stdin)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := RawResult{
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		Cancelled: ctx.Err() != nil,
		Duration:  time.Since(start),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		res.Exit = Code(0)
	case res.Cancelled:
		res.Exit = NoExitStatus
	case runCtx.Err() == context.DeadlineExceeded:
		res.Exit = NoExitStatus
		res.SpawnErr = fmt.Errorf("%s %w after %s", inv.Executable, ErrTimeout, inv.Timeout)
	case errors.As(err, &exitErr):
		// A negative code means the process was killed by a signal.
		if code := exitErr.ExitCode(); code >= 0 {
			res.Exit = Code(code)
		}
	default:
		res.SpawnErr = err
	}

	span.WithExtra("exit", res.Exit.String())
	if res.Cancelled {
		span.WithExtra("cancelled", strconv.FormatBool(true))
	}
	if res.SpawnErr != nil {
		span.End(res.SpawnErr.Error())
	} else {
		span.End("")
	}
	return res
}
