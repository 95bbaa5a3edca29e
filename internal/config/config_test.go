package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
}

func TestParseSettingsEnvelope(t *testing.T) {
	raw := json.RawMessage(`{"phpsniff":{"validatorPath":"vendor/bin/phpcs","snifferMode":"onType","snifferTypeDelay":100}}`)
	s, err := ParseSettings(raw)
	require.NoError(t, err)

	r := Default()
	require.NoError(t, s.Apply(&r))
	require.Equal(t, "vendor/bin/phpcs", r.ValidatorPath)
	require.Equal(t, "phpcbf", r.FixerPath)
	require.Equal(t, ModeOnType, r.Mode)
	require.Equal(t, 100*time.Millisecond, r.Delay)
}

func TestParseSettingsBare(t *testing.T) {
	s, err := ParseSettings(json.RawMessage(`{"enable":false}`))
	require.NoError(t, err)
	r := Default()
	require.NoError(t, s.Apply(&r))
	require.False(t, r.ValidatorEnabled)
	require.True(t, r.FixerEnabled)
}

func TestSettingsRejectsUnknownMode(t *testing.T) {
	s, err := ParseSettings(json.RawMessage(`{"phpsniff":{"snifferMode":"always"}}`))
	require.NoError(t, err)
	r := Default()
	require.Error(t, s.Apply(&r))
}

func TestStorePrecedence(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/ws/app/phpsniff.toml", `
[validator]
args = ["--extensions=php"]

[standard]
name = "ruleset/custom.xml"

[run]
mode = "onType"
delay = "400ms"
ignore = ["vendor"]
`)
	store := NewStore(fs)
	store.SetFolders([]string{"/ws/app"})
	mode := "onSave"
	std := "PSR2"
	store.SetSettings(Settings{SnifferMode: &mode, Standard: &std, ShowSources: ptr(true)})

	r, err := store.Resource("/ws/app")
	require.NoError(t, err)
	require.Equal(t, ModeOnType, r.Mode)
	require.Equal(t, 400*time.Millisecond, r.Delay)
	require.Equal(t, "ruleset/custom.xml", r.Standard)
	require.True(t, r.ShowSources)
	require.Equal(t, []string{"--extensions=php"}, r.ValidatorArgs)
	require.Equal(t, []string{"/ws/app/phpsniff.toml"}, r.Source)

	got, err := store.ResolveStandard("/ws/app/src/a.php", r)
	require.NoError(t, err)
	require.Equal(t, filepath.Clean("/ws/app/ruleset/custom.xml"), got)
	require.True(t, r.Ignored("/ws/app/vendor/lib/x.php"))
	require.False(t, r.Ignored("/ws/app/src/a.php"))
}

func TestStoreSnapshotsAreCopies(t *testing.T) {
	store := NewStore(afero.NewMemMapFs())
	store.SetSettings(Settings{IgnorePatterns: []string{"*.tpl.php"}})
	r, err := store.Resource("")
	require.NoError(t, err)
	r.Ignore[0] = "mutated"

	again, err := store.Resource("")
	require.NoError(t, err)
	require.Equal(t, "*.tpl.php", again.Ignore[0])
}

func TestStoreRejectsBadFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/ws/phpsniff.toml", "[run]\nspeed = 3\n")
	store := NewStore(fs)
	_, err := store.Resource("/ws")
	require.ErrorContains(t, err, "unknown keys")
}

func TestFolderForLongestRoot(t *testing.T) {
	store := NewStore(afero.NewMemMapFs())
	store.SetFolders([]string{"/ws", "/ws/packages/api", "/other"})
	require.Equal(t, "/ws/packages/api", store.FolderFor("/ws/packages/api/src/a.php"))
	require.Equal(t, "/ws", store.FolderFor("/ws/packages/apiary/a.php"))
	require.Equal(t, "", store.FolderFor("/elsewhere/a.php"))

	store.UpdateFolders(nil, []string{"/ws/packages/api"})
	require.Equal(t, "/ws", store.FolderFor("/ws/packages/api/src/a.php"))
}

func TestResolveStandardAutoSearch(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/ws/phpcs.xml.dist", "<ruleset/>")
	writeFile(t, fs, "/ws/lib/.phpcs.xml", "<ruleset/>")
	writeFile(t, fs, "/phpcs.xml", "<ruleset/>")

	r := Default()
	r.Folder = "/ws"

	got, err := ResolveStandard(fs, "/ws/lib/deep/a.php", r)
	require.NoError(t, err)
	require.Equal(t, "/ws/lib/.phpcs.xml", got)

	got, err = ResolveStandard(fs, "/ws/src/a.php", r)
	require.NoError(t, err)
	require.Equal(t, "/ws/phpcs.xml.dist", got)

	// The search stops at the folder root.
	fs2 := afero.NewMemMapFs()
	writeFile(t, fs2, "/phpcs.xml", "<ruleset/>")
	got, err = ResolveStandard(fs2, "/ws/src/a.php", r)
	require.NoError(t, err)
	require.Equal(t, "", got)

	r.AutoRulesetSearch = false
	got, err = ResolveStandard(fs, "/ws/lib/a.php", r)
	require.NoError(t, err)
	require.Equal(t, "", got)

	r.Standard = "PSR12"
	got, err = ResolveStandard(fs, "/ws/lib/a.php", r)
	require.NoError(t, err)
	require.Equal(t, "PSR12", got)
}

func TestFindFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/proj/phpsniff.toml", "")
	path, ok, err := FindFile(fs, "/proj/src/app", "")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "/proj/phpsniff.toml", path)

	_, ok, err = FindFile(fs, "/proj/src/app", "/proj/src")
	require.NoError(t, err)
	require.False(t, ok)
}

func ptr[T any](v T) *T { return &v }

// gatedFs blocks the first Stat until release is closed.
type gatedFs struct {
	afero.Fs
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (f *gatedFs) Stat(name string) (os.FileInfo, error) {
	f.once.Do(func() {
		close(f.entered)
		<-f.release
	})
	return f.Fs.Stat(name)
}

func TestStoreDoesNotCacheSnapshotBuiltBeforeSettingsChange(t *testing.T) {
	fs := &gatedFs{Fs: afero.NewMemMapFs(), entered: make(chan struct{}), release: make(chan struct{})}
	store := NewStore(fs)
	store.SetFolders([]string{"/ws"})

	done := make(chan Resource, 1)
	go func() {
		r, err := store.Resource("/ws")
		if err != nil {
			t.Errorf("Resource: %v", err)
		}
		done <- r
	}()

	<-fs.entered
	store.SetSettings(Settings{Standard: ptr("PSR12")})
	close(fs.release)
	old := <-done
	require.Equal(t, "", old.Standard)

	r, err := store.Resource("/ws")
	require.NoError(t, err)
	require.Equal(t, "PSR12", r.Standard)
}
