package ui

import (
	"strings"
	"testing"
)

func TestProgressModelCountsFinishedFiles(t *testing.T) {
	events := make(chan Event)
	m := NewProgressModel("checking", []string{"a.php", "b.php"}, events).(*progressModel)

	m.applyEvent(Event{File: "a.php", Status: StatusChecking})
	m.applyEvent(Event{File: "a.php", Status: StatusIssues, Findings: 3})
	m.applyEvent(Event{File: "b.php", Status: StatusClean})
	m.applyEvent(Event{File: "unknown.php", Status: StatusError})

	if m.finished != 2 || m.findings != 3 {
		t.Fatalf("finished=%d findings=%d", m.finished, m.findings)
	}
	view := m.View()
	if !strings.Contains(view, "(2/2, 3 findings)") {
		t.Fatalf("header missing counts:\n%s", view)
	}
	if !strings.Contains(view, "a.php (3)") {
		t.Fatalf("issue count missing:\n%s", view)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("src/very/long/path/File.php", 12); got != "src/very/..." {
		t.Fatalf("got %q", got)
	}
	if got := truncate("short.php", 20); got != "short.php" {
		t.Fatalf("got %q", got)
	}
}
