// Package trace provides leveled event tracing for phpsniff.
//
// The language server and the CLI emit events while scheduling validation
// runs and spawning phpcs/phpcbf: span begin/end pairs time an operation,
// point events carry leveled messages.
//
// # Usage
//
//	phpsniff lsp --trace=/tmp/phpsniff.log --trace-level=detail
//
// # Levels
//
//   - LevelOff: No tracing
//   - LevelError: Only errors and warnings
//   - LevelInfo: Server-level events plus errors and warnings
//   - LevelDetail: Per-document scheduling events
//   - LevelDebug: Everything including subprocess invocations
//
// # Scopes
//
//   - ScopeServer: lifecycle, configuration, workspace folders
//   - ScopeDocument: per-document jobs (debounce, publish, cancel)
//   - ScopeProcess: individual phpcs/phpcbf invocations
//
// # Context Propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopeProcess, "phpcs", 0)
//	defer span.End("")
package trace
