package ui

import "time"

// Status captures where a file is in a check run.
type Status string

const (
	// StatusQueued indicates the file is waiting for a worker.
	StatusQueued Status = "queued"
	// StatusChecking indicates the validator is running.
	StatusChecking Status = "checking"
	// StatusFixing indicates the fixer is running.
	StatusFixing Status = "fixing"
	// StatusClean indicates no findings.
	StatusClean Status = "clean"
	// StatusIssues indicates findings were reported.
	StatusIssues Status = "issues"
	// StatusError indicates the tool failed.
	StatusError Status = "error"
)

// Finished reports whether s is terminal.
func (s Status) Finished() bool {
	return s == StatusClean || s == StatusIssues || s == StatusError
}

// Event reports progress for one file.
type Event struct {
	File     string
	Status   Status
	Findings int
	Err      error
	Elapsed  time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

// OnEvent implements ProgressSink.
func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// NopSink drops events.
type NopSink struct{}

// OnEvent implements ProgressSink.
func (NopSink) OnEvent(Event) {}
