package scheduler

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"phpsniff/internal/config"
	"phpsniff/internal/phpcs"
)

type fakeConfig struct {
	mu          sync.Mutex
	res         config.Resource
	invalidated int
}

func newFakeConfig(mode config.Mode) *fakeConfig {
	r := config.Default()
	r.Mode = mode
	r.Delay = 30 * time.Millisecond
	return &fakeConfig{res: r}
}

func (c *fakeConfig) Resource(string) (config.Resource, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.res, nil
}

func (c *fakeConfig) Invalidate() {
	c.mu.Lock()
	c.invalidated++
	c.mu.Unlock()
}

func (c *fakeConfig) set(fn func(r *config.Resource)) {
	c.mu.Lock()
	fn(&c.res)
	c.mu.Unlock()
}

type noStandard struct{}

func (noStandard) ResolveStandard(string, config.Resource) (string, error) { return "", nil }

type fakeDocs struct{}

func (fakeDocs) Document(uri string) (string, string, bool) {
	return strings.TrimPrefix(uri, "file://"), "<?php\n", true
}

type fakeEngine struct {
	runs        atomic.Int32
	invalidated atomic.Int32
	validate    func(ctx context.Context, n int32) (phpcs.ValidationResult, error)
	fix         func(ctx context.Context) (phpcs.FixOutcome, error)
}

func (e *fakeEngine) Validate(ctx context.Context, _ phpcs.Request) (phpcs.ValidationResult, error) {
	n := e.runs.Add(1)
	if e.validate == nil {
		return phpcs.ValidationResult{Parsed: true, Findings: []phpcs.Finding{}}, nil
	}
	return e.validate(ctx, n)
}

func (e *fakeEngine) Fix(ctx context.Context, _ phpcs.Request) (phpcs.FixOutcome, error) {
	return e.fix(ctx)
}

func (e *fakeEngine) InvalidateVersions() { e.invalidated.Add(1) }

type publishEvent struct {
	uri      string
	findings []phpcs.Finding
	cleared  bool
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishEvent
	state  map[string][]phpcs.Finding
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{state: make(map[string][]phpcs.Finding)}
}

func (p *recordingPublisher) Publish(uri string, findings []phpcs.Finding) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishEvent{uri: uri, findings: findings})
	p.state[uri] = findings
}

func (p *recordingPublisher) Clear(uri string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishEvent{uri: uri, cleared: true})
	delete(p.state, uri)
}

func (p *recordingPublisher) snapshot() ([]publishEvent, map[string][]phpcs.Finding) {
	p.mu.Lock()
	defer p.mu.Unlock()
	state := make(map[string][]phpcs.Finding, len(p.state))
	for k, v := range p.state {
		state[k] = v
	}
	return append([]publishEvent(nil), p.events...), state
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	levels   []MessageLevel
}

func (n *recordingNotifier) Notify(level MessageLevel, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.levels = append(n.levels, level)
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

type harness struct {
	sched  *Scheduler
	cfg    *fakeConfig
	engine *fakeEngine
	pub    *recordingPublisher
	notes  *recordingNotifier
}

func newHarness(t *testing.T, mode config.Mode, engine *fakeEngine) *harness {
	t.Helper()
	h := &harness{
		cfg:    newFakeConfig(mode),
		engine: engine,
		pub:    newRecordingPublisher(),
		notes:  &recordingNotifier{},
	}
	h.sched = New(Options{
		Config:    h.cfg,
		Standards: noStandard{},
		Documents: fakeDocs{},
		Engine:    engine,
		Publisher: h.pub,
		Notifier:  h.notes,
	})
	t.Cleanup(h.sched.Shutdown)
	return h
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func (h *harness) idle(t *testing.T, id DocumentID) {
	t.Helper()
	waitFor(t, "scheduler idle", func() bool { return !h.sched.Pending(id) })
}

func finding(msg string) phpcs.Finding {
	return phpcs.Finding{Line: 1, Column: 2, Severity: phpcs.SeverityError, Message: msg, Display: msg}
}
