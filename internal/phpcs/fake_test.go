package phpcs

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
)

// scriptRunner answers --version probes and delegates every other call.
type scriptRunner struct {
	version string
	probes  atomic.Int32
	run     func(ctx context.Context, inv Invocation) RawResult

	mu    sync.Mutex
	calls []Invocation
}

func (r *scriptRunner) Run(ctx context.Context, inv Invocation) RawResult {
	if len(inv.Args) == 1 && inv.Args[0] == "--version" {
		r.probes.Add(1)
		if r.version == "" {
			return RawResult{Exit: Code(0), Stdout: "garbage"}
		}
		return RawResult{Exit: Code(0), Stdout: "PHP_CodeSniffer version " + r.version + " (stable) by Squiz"}
	}
	r.mu.Lock()
	r.calls = append(r.calls, inv)
	r.mu.Unlock()
	if r.run == nil {
		return RawResult{Exit: Code(0)}
	}
	return r.run(ctx, inv)
}

func (r *scriptRunner) lastArgs() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return ""
	}
	return strings.Join(r.calls[len(r.calls)-1].Args, " ")
}
