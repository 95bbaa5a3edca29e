package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"phpsniff/internal/config"
	"phpsniff/internal/phpcs"
	"phpsniff/internal/trace"
)

// Options wires a Scheduler to its collaborators. Every field but Tracer
// is required.
type Options struct {
	Config    ConfigSource
	Standards StandardResolver
	Documents DocumentSource
	Engine    Engine
	Publisher Publisher
	Notifier  Notifier
	Tracer    trace.Tracer
}

// Scheduler runs at most one validation per document at a time. A newer
// trigger cancels and replaces the running job; results of a replaced or
// cancelled job are never published.
type Scheduler struct {
	cfg       ConfigSource
	standards StandardResolver
	docs      DocumentSource
	engine    Engine
	pub       Publisher
	notify    Notifier
	tracer    trace.Tracer

	base context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu     sync.Mutex
	closed bool
	seq    uint64
	open   map[DocumentID]struct{}
	jobs   map[DocumentID]*job
	timers map[DocumentID]*debounce
	warned map[string]struct{}
}

type job struct {
	seq    uint64
	ctx    context.Context
	cancel context.CancelFunc
}

type debounce struct {
	seq   uint64
	timer *time.Timer
}

// New returns a running Scheduler.
func New(opts Options) *Scheduler {
	tracer := opts.Tracer
	if tracer == nil {
		tracer = trace.Nop
	}
	base, stop := context.WithCancel(trace.WithTracer(context.Background(), tracer))
	return &Scheduler{
		cfg:       opts.Config,
		standards: opts.Standards,
		docs:      opts.Documents,
		engine:    opts.Engine,
		pub:       opts.Publisher,
		notify:    opts.Notifier,
		tracer:    tracer,
		base:      base,
		stop:      stop,
		open:      make(map[DocumentID]struct{}),
		jobs:      make(map[DocumentID]*job),
		timers:    make(map[DocumentID]*debounce),
		warned:    make(map[string]struct{}),
	}
}

// Open starts validating a newly opened document.
func (s *Scheduler) Open(id DocumentID) {
	s.mu.Lock()
	s.open[id] = struct{}{}
	s.mu.Unlock()
	s.start(id, "open")
}

// Save validates immediately.
func (s *Scheduler) Save(id DocumentID) {
	s.start(id, "save")
}

// Edit restarts the debounce timer in onType mode. In onSave mode it only
// drops a pending timer.
func (s *Scheduler) Edit(id DocumentID) {
	res, err := s.cfg.Resource(id.Folder)
	if err != nil {
		trace.Error(s.tracer, trace.ScopeDocument, "config", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.stopTimerLocked(id)
	if res.Mode != config.ModeOnType {
		return
	}
	s.seq++
	d := &debounce{seq: s.seq}
	d.timer = time.AfterFunc(res.Delay, func() { s.fire(id, d.seq) })
	s.timers[id] = d
}

func (s *Scheduler) fire(id DocumentID, seq uint64) {
	s.mu.Lock()
	d, ok := s.timers[id]
	if !ok || d.seq != seq {
		s.mu.Unlock()
		return
	}
	delete(s.timers, id)
	s.mu.Unlock()
	s.start(id, "edit")
}

// Close cancels any work for the document and clears its diagnostics.
func (s *Scheduler) Close(id DocumentID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.open, id)
	s.stopTimerLocked(id)
	if j, ok := s.jobs[id]; ok {
		j.cancel()
		delete(s.jobs, id)
	}
	s.pub.Clear(id.URI)
}

// Refresh drops cached configuration and tool versions and revalidates
// every open document.
func (s *Scheduler) Refresh() {
	s.cfg.Invalidate()
	s.engine.InvalidateVersions()

	s.mu.Lock()
	ids := make([]DocumentID, 0, len(s.open))
	for id := range s.open {
		s.stopTimerLocked(id)
		ids = append(ids, id)
	}
	s.mu.Unlock()

	trace.Point(s.tracer, trace.ScopeServer, "refresh", fmt.Sprintf("%d documents", len(ids)))
	for _, id := range ids {
		s.start(id, "refresh")
	}
}

// Shutdown cancels all work and waits for running jobs to return.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	s.closed = true
	for id, j := range s.jobs {
		j.cancel()
		delete(s.jobs, id)
	}
	for id := range s.timers {
		s.stopTimerLocked(id)
	}
	s.mu.Unlock()
	s.stop()
	s.wg.Wait()
}

// Pending reports whether a job or timer exists for id.
func (s *Scheduler) Pending(id DocumentID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, hasJob := s.jobs[id]
	_, hasTimer := s.timers[id]
	return hasJob || hasTimer
}

func (s *Scheduler) stopTimerLocked(id DocumentID) {
	if d, ok := s.timers[id]; ok {
		d.timer.Stop()
		delete(s.timers, id)
	}
}

// start cancels the document's current job and launches a replacement.
func (s *Scheduler) start(id DocumentID, trigger string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if prev, ok := s.jobs[id]; ok {
		prev.cancel()
	}
	s.stopTimerLocked(id)
	ctx, cancel := context.WithCancel(s.base)
	s.seq++
	j := &job{seq: s.seq, ctx: ctx, cancel: cancel}
	s.jobs[id] = j
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run(id, j, trigger)
}

// effect runs fn under the lock if j is still the document's current job
// and has not been cancelled.
func (s *Scheduler) effect(id DocumentID, j *job, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.jobs[id]; !ok || cur != j || j.ctx.Err() != nil {
		return false
	}
	fn()
	return true
}

func (s *Scheduler) run(id DocumentID, j *job, trigger string) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		if cur, ok := s.jobs[id]; ok && cur == j {
			delete(s.jobs, id)
		}
		s.mu.Unlock()
		j.cancel()
	}()

	span := trace.Begin(s.tracer, trace.ScopeDocument, "validate", 0).
		WithExtra("uri", id.URI).
		WithExtra("trigger", trigger)
	detail := "done"
	defer func() { span.End(detail) }()

	res, err := s.cfg.Resource(id.Folder)
	if err != nil {
		detail = "config error"
		s.effect(id, j, func() { s.fail("Invalid phpsniff configuration: " + err.Error()) })
		return
	}
	if !res.ValidatorEnabled {
		detail = "disabled"
		s.effect(id, j, func() { s.pub.Clear(id.URI) })
		return
	}
	path, text, ok := s.docs.Document(id.URI)
	if !ok {
		detail = "not open"
		return
	}
	if res.Ignored(path) {
		detail = "ignored"
		s.effect(id, j, func() { s.pub.Clear(id.URI) })
		return
	}
	standard, err := s.standards.ResolveStandard(path, res)
	if err != nil {
		detail = "standard error"
		s.effect(id, j, func() { s.fail("Unable to resolve the coding standard: " + err.Error()) })
		return
	}

	result, err := s.engine.Validate(j.ctx, phpcs.Request{
		Path:     path,
		Text:     text,
		Standard: standard,
		Tool:     res.ValidatorTool(),
		Report:   res.ReportOptions(),
	})
	if result.Cancelled {
		detail = "cancelled"
		return
	}
	published := s.effect(id, j, func() {
		if result.Status.Unmapped {
			s.warnUnmapped(res.ValidatorPath)
		}
		if err != nil {
			if result.Parsed && len(result.Findings) == 0 {
				s.pub.Clear(id.URI)
			}
			s.fail(err.Error())
			return
		}
		if result.Parsed {
			s.pub.Publish(id.URI, result.Findings)
		}
	})
	switch {
	case !published:
		detail = "superseded"
	case err != nil:
		detail = failureDetail(err)
	default:
		detail = fmt.Sprintf("%d findings", len(result.Findings))
	}
}

// Fix runs the fixer on the document's current text. Failures and partial
// fixes are also shown to the user.
func (s *Scheduler) Fix(ctx context.Context, id DocumentID) (phpcs.FixOutcome, error) {
	res, err := s.cfg.Resource(id.Folder)
	if err != nil {
		return phpcs.FixOutcome{}, err
	}
	if !res.FixerEnabled {
		return phpcs.FixOutcome{Kind: phpcs.FixNoChange, Message: "phpcbf is disabled."}, nil
	}
	path, text, ok := s.docs.Document(id.URI)
	if !ok {
		return phpcs.FixOutcome{}, fmt.Errorf("document %s is not open", id.URI)
	}
	standard, err := s.standards.ResolveStandard(path, res)
	if err != nil {
		return phpcs.FixOutcome{}, err
	}

	span := trace.Begin(s.tracer, trace.ScopeDocument, "fix", 0).WithExtra("uri", id.URI)
	out, err := s.engine.Fix(trace.WithTracer(ctx, s.tracer), phpcs.Request{
		Path:     path,
		Text:     text,
		Standard: standard,
		Tool:     res.FixerTool(),
	})
	if err != nil {
		span.End("cancelled")
		return out, err
	}
	span.End(out.Kind.String())

	if out.Status.Unmapped {
		s.mu.Lock()
		s.warnUnmapped(res.FixerPath)
		s.mu.Unlock()
	}
	switch {
	case out.Kind == phpcs.FixFailure:
		s.fail(out.Message)
	case out.Warning != nil:
		s.notify.Notify(MessageWarning, out.Warning.Error())
	}
	return out, nil
}

func (s *Scheduler) fail(message string) {
	trace.Warn(s.tracer, trace.ScopeDocument, "failure", message)
	s.notify.Notify(MessageError, message)
}

// warnUnmapped reports, once per executable, that exit codes are being
// read without knowing the tool version. Caller holds s.mu.
func (s *Scheduler) warnUnmapped(executable string) {
	if _, ok := s.warned[executable]; ok {
		return
	}
	s.warned[executable] = struct{}{}
	msg := fmt.Sprintf("Could not determine the version of %s; exit codes are interpreted best-effort.", executable)
	trace.Warn(s.tracer, trace.ScopeServer, "translator unavailable", msg)
	s.notify.Notify(MessageWarning, msg)
}

func failureDetail(err error) string {
	if kind, ok := phpcs.KindOf(err); ok {
		return kind.String()
	}
	if errors.Is(err, context.Canceled) {
		return "cancelled"
	}
	return "error"
}
