package phpcs

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
)

const fixOnlyRuleset = `<?xml version="1.0"?>
<ruleset name="Project">
  <rule ref="PSR12" phpcbf-only="true"/>
</ruleset>
`

const noSniffsStderr = "ERROR: No sniffs were registered.\n\nRun \"phpcbf --help\" for usage information\n"

func memRuleset(t *testing.T, path, content string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, path, []byte(content), 0o644); err != nil {
		t.Fatalf("write ruleset: %v", err)
	}
	return fs
}

func TestDetectorFixOnlyRuleset(t *testing.T) {
	d := NewDetector(memRuleset(t, "/proj/phpcs.xml", fixOnlyRuleset), nil)

	if !d.IsDisabledFor("/proj/phpcs.xml", ModeFix, "", noSniffsStderr) {
		t.Fatalf("fix mode: expected disabled")
	}
	if d.IsDisabledFor("/proj/phpcs.xml", ModeValidate, "", noSniffsStderr) {
		t.Fatalf("validate mode: expected not disabled")
	}
}

func TestDetectorNeedsNoSniffsText(t *testing.T) {
	d := NewDetector(memRuleset(t, "/proj/phpcs.xml", fixOnlyRuleset), nil)
	if d.IsDisabledFor("/proj/phpcs.xml", ModeFix, "", "PHP Fatal error") {
		t.Fatalf("expected false without the no-sniffs text")
	}
	// Legacy releases print it on stdout.
	if !d.IsDisabledFor("/proj/phpcs.xml", ModeFix, "No sniffs were registered", "") {
		t.Fatalf("expected true with text on stdout")
	}
}

func TestDetectorMissingRuleset(t *testing.T) {
	d := NewDetector(afero.NewMemMapFs(), nil)
	if d.IsDisabledFor("/nope/phpcs.xml", ModeFix, "", noSniffsStderr) {
		t.Fatalf("missing ruleset must yield false")
	}
	if d.IsDisabledFor("", ModeFix, "", noSniffsStderr) {
		t.Fatalf("empty path must yield false")
	}
}

func TestBuildDisabledMessageStripsUsageHint(t *testing.T) {
	msg := BuildDisabledMessage("/proj/phpcs.xml", ModeFix, "", noSniffsStderr)
	if strings.Contains(msg, "--help") {
		t.Fatalf("usage hint not stripped: %q", msg)
	}
	for _, want := range []string{"phpcbf", `"phpcs.xml"`, `phpcbf-only="true"`, "No sniffs were registered"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message %q missing %q", msg, want)
		}
	}
}
