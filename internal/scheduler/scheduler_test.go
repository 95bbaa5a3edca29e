package scheduler

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"phpsniff/internal/config"
	"phpsniff/internal/phpcs"
)

var doc = DocumentID{URI: "file:///ws/a.php", Folder: "/ws"}

func TestNewerTriggerCancelsOlderJob(t *testing.T) {
	started := make(chan struct{})
	engine := &fakeEngine{validate: func(ctx context.Context, n int32) (phpcs.ValidationResult, error) {
		if n == 1 {
			close(started)
			<-ctx.Done()
			// A late result from a killed process must never surface.
			return phpcs.ValidationResult{Parsed: true, Findings: []phpcs.Finding{finding("stale")}}, nil
		}
		return phpcs.ValidationResult{Parsed: true, Findings: []phpcs.Finding{finding("fresh")}}, nil
	}}
	h := newHarness(t, config.ModeOnSave, engine)

	h.sched.Open(doc)
	<-started
	h.sched.Save(doc)
	h.idle(t, doc)

	events, state := h.pub.snapshot()
	if len(events) != 1 {
		t.Fatalf("expected exactly one publish, got %d", len(events))
	}
	if got := state[doc.URI]; len(got) != 1 || got[0].Message != "fresh" {
		t.Fatalf("published %+v", got)
	}
}

func TestDebounceCoalescesEdits(t *testing.T) {
	engine := &fakeEngine{}
	h := newHarness(t, config.ModeOnType, engine)

	for range 3 {
		h.sched.Edit(doc)
		time.Sleep(5 * time.Millisecond)
	}
	waitFor(t, "debounced run", func() bool { return engine.runs.Load() == 1 })
	h.idle(t, doc)
	time.Sleep(60 * time.Millisecond)
	if got := engine.runs.Load(); got != 1 {
		t.Fatalf("expected one run for three edits, got %d", got)
	}
}

func TestOnSaveIgnoresEdits(t *testing.T) {
	engine := &fakeEngine{}
	h := newHarness(t, config.ModeOnSave, engine)

	for range 3 {
		h.sched.Edit(doc)
	}
	time.Sleep(80 * time.Millisecond)
	if got := engine.runs.Load(); got != 0 {
		t.Fatalf("edits in onSave mode started %d runs", got)
	}
	if h.sched.Pending(doc) {
		t.Fatalf("no timer should be pending in onSave mode")
	}
}

func TestSaveCancelsPendingDebounce(t *testing.T) {
	engine := &fakeEngine{}
	h := newHarness(t, config.ModeOnType, engine)
	h.cfg.set(func(r *config.Resource) { r.Delay = 100 * time.Millisecond })

	h.sched.Edit(doc)
	h.sched.Save(doc)
	h.idle(t, doc)
	time.Sleep(150 * time.Millisecond)
	if got := engine.runs.Load(); got != 1 {
		t.Fatalf("expected only the save run, got %d", got)
	}
}

func TestPublishIsIdempotent(t *testing.T) {
	engine := &fakeEngine{validate: func(context.Context, int32) (phpcs.ValidationResult, error) {
		return phpcs.ValidationResult{Parsed: true, Findings: []phpcs.Finding{finding("a"), finding("b")}}, nil
	}}
	h := newHarness(t, config.ModeOnSave, engine)

	h.sched.Save(doc)
	h.idle(t, doc)
	_, first := h.pub.snapshot()
	h.sched.Save(doc)
	h.idle(t, doc)
	events, second := h.pub.snapshot()

	if len(events) != 2 {
		t.Fatalf("expected two publishes, got %d", len(events))
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("republishing changed the set: %+v vs %+v", first, second)
	}
	if len(second[doc.URI]) != 2 {
		t.Fatalf("findings merged or dropped: %+v", second[doc.URI])
	}
}

func TestCloseClearsAndCancels(t *testing.T) {
	started := make(chan struct{})
	engine := &fakeEngine{validate: func(ctx context.Context, _ int32) (phpcs.ValidationResult, error) {
		close(started)
		<-ctx.Done()
		return phpcs.ValidationResult{Parsed: true, Findings: []phpcs.Finding{finding("late")}}, nil
	}}
	h := newHarness(t, config.ModeOnSave, engine)

	h.sched.Open(doc)
	<-started
	h.sched.Close(doc)
	h.idle(t, doc)

	events, state := h.pub.snapshot()
	if len(events) != 1 || !events[0].cleared {
		t.Fatalf("expected a single clear, got %+v", events)
	}
	if _, ok := state[doc.URI]; ok {
		t.Fatalf("diagnostics survived close")
	}
}

func TestFailedRunKeepsDiagnostics(t *testing.T) {
	engine := &fakeEngine{validate: func(_ context.Context, n int32) (phpcs.ValidationResult, error) {
		if n == 1 {
			return phpcs.ValidationResult{Parsed: true, Findings: []phpcs.Finding{finding("kept")}}, nil
		}
		return phpcs.ValidationResult{}, &phpcs.Error{Kind: phpcs.KindMalformedReport, Message: "phpcs did not return a valid JSON report"}
	}}
	h := newHarness(t, config.ModeOnSave, engine)

	h.sched.Save(doc)
	h.idle(t, doc)
	h.sched.Save(doc)
	h.idle(t, doc)

	_, state := h.pub.snapshot()
	if got := state[doc.URI]; len(got) != 1 || got[0].Message != "kept" {
		t.Fatalf("diagnostics changed after failure: %+v", got)
	}
	if h.notes.count() != 1 {
		t.Fatalf("expected one user message, got %d", h.notes.count())
	}
}

func TestDisabledStandardShowsMessageAndKeepsDiagnostics(t *testing.T) {
	const msg = "The phpcs.xml standard is restricted to phpcbf and registers no sniffs for phpcs."
	engine := &fakeEngine{validate: func(_ context.Context, n int32) (phpcs.ValidationResult, error) {
		if n == 1 {
			return phpcs.ValidationResult{Parsed: true, Findings: []phpcs.Finding{finding("kept")}}, nil
		}
		return phpcs.ValidationResult{}, &phpcs.Error{Kind: phpcs.KindDisabledStandard, Message: msg}
	}}
	h := newHarness(t, config.ModeOnSave, engine)

	h.sched.Save(doc)
	h.idle(t, doc)
	h.sched.Save(doc)
	h.idle(t, doc)

	_, state := h.pub.snapshot()
	if got := state[doc.URI]; len(got) != 1 || got[0].Message != "kept" {
		t.Fatalf("diagnostics changed for disabled standard: %+v", got)
	}
	h.notes.mu.Lock()
	defer h.notes.mu.Unlock()
	if len(h.notes.messages) != 1 || h.notes.messages[0] != msg {
		t.Fatalf("expected the disabled-standard message, got %q", h.notes.messages)
	}
	if h.notes.levels[0] != MessageError {
		t.Fatalf("level = %v, want error", h.notes.levels[0])
	}
}

func TestFailedRunWithEmptyReportClears(t *testing.T) {
	engine := &fakeEngine{validate: func(_ context.Context, n int32) (phpcs.ValidationResult, error) {
		if n == 1 {
			return phpcs.ValidationResult{Parsed: true, Findings: []phpcs.Finding{finding("old")}}, nil
		}
		return phpcs.ValidationResult{Parsed: true, Findings: []phpcs.Finding{}},
			&phpcs.Error{Kind: phpcs.KindProcessingError, Message: "phpcs encountered a processing error."}
	}}
	h := newHarness(t, config.ModeOnSave, engine)

	h.sched.Save(doc)
	h.idle(t, doc)
	h.sched.Save(doc)
	h.idle(t, doc)

	if _, state := h.pub.snapshot(); len(state) != 0 {
		t.Fatalf("expected cleared diagnostics, got %+v", state)
	}
}

func TestDisabledValidatorClears(t *testing.T) {
	engine := &fakeEngine{}
	h := newHarness(t, config.ModeOnSave, engine)
	h.cfg.set(func(r *config.Resource) { r.ValidatorEnabled = false })

	h.sched.Open(doc)
	h.idle(t, doc)
	if engine.runs.Load() != 0 {
		t.Fatalf("disabled validator must not run")
	}
	events, _ := h.pub.snapshot()
	if len(events) != 1 || !events[0].cleared {
		t.Fatalf("expected a clear, got %+v", events)
	}
}

func TestRefreshRevalidatesOpenDocuments(t *testing.T) {
	engine := &fakeEngine{}
	h := newHarness(t, config.ModeOnSave, engine)
	other := DocumentID{URI: "file:///ws/b.php", Folder: "/ws"}

	h.sched.Open(doc)
	h.sched.Open(other)
	h.idle(t, doc)
	h.idle(t, other)
	h.sched.Close(other)

	h.sched.Refresh()
	h.idle(t, doc)
	if got := engine.runs.Load(); got != 3 {
		t.Fatalf("expected 3 runs, got %d", got)
	}
	if engine.invalidated.Load() != 1 || h.cfg.invalidated != 1 {
		t.Fatalf("caches not invalidated")
	}
}

func TestUnmappedStatusWarnsOnce(t *testing.T) {
	engine := &fakeEngine{validate: func(context.Context, int32) (phpcs.ValidationResult, error) {
		return phpcs.ValidationResult{Parsed: true, Status: phpcs.NormalizedStatus{Unmapped: true}}, nil
	}}
	h := newHarness(t, config.ModeOnSave, engine)
	for range 2 {
		h.sched.Save(doc)
		h.idle(t, doc)
	}
	if h.notes.count() != 1 || h.notes.levels[0] != MessageWarning {
		t.Fatalf("expected one warning, got %v", h.notes.messages)
	}
}

func TestFixReportsFailure(t *testing.T) {
	engine := &fakeEngine{fix: func(context.Context) (phpcs.FixOutcome, error) {
		return phpcs.FixOutcome{Kind: phpcs.FixFailure, Message: "phpcbf failed", Err: errors.New("phpcbf failed")}, nil
	}}
	h := newHarness(t, config.ModeOnSave, engine)

	out, err := h.sched.Fix(context.Background(), doc)
	if err != nil {
		t.Fatalf("fix: %v", err)
	}
	if out.Kind != phpcs.FixFailure || h.notes.count() != 1 {
		t.Fatalf("got %s with %d messages", out.Kind, h.notes.count())
	}

	h.cfg.set(func(r *config.Resource) { r.FixerEnabled = false })
	out, err = h.sched.Fix(context.Background(), doc)
	if err != nil || out.Kind != phpcs.FixNoChange {
		t.Fatalf("disabled fixer: %s %v", out.Kind, err)
	}
}

func TestShutdownStopsEverything(t *testing.T) {
	started := make(chan struct{})
	engine := &fakeEngine{validate: func(ctx context.Context, _ int32) (phpcs.ValidationResult, error) {
		close(started)
		<-ctx.Done()
		return phpcs.ValidationResult{Cancelled: true}, nil
	}}
	h := newHarness(t, config.ModeOnType, engine)
	h.sched.Open(doc)
	<-started
	h.sched.Edit(DocumentID{URI: "file:///ws/c.php"})
	h.sched.Shutdown()

	h.sched.Save(doc)
	if h.sched.Pending(doc) {
		t.Fatalf("scheduler accepted work after shutdown")
	}
}
