package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/afero"
)

// FileName is the per-folder configuration file.
const FileName = "phpsniff.toml"

// File is the decoded phpsniff.toml.
type File struct {
	Validator toolSection     `toml:"validator"`
	Fixer     toolSection     `toml:"fixer"`
	Report    reportSection   `toml:"report"`
	Standard  standardSection `toml:"standard"`
	Run       runSection      `toml:"run"`
}

type toolSection struct {
	Path   *string  `toml:"path"`
	Args   []string `toml:"args"`
	Enable *bool    `toml:"enable"`
}

type reportSection struct {
	ShowSources *bool `toml:"show_sources"`
	ShowFixable *bool `toml:"show_fixable"`
}

type standardSection struct {
	Name       *string  `toml:"name"`
	AutoSearch *bool    `toml:"auto_search"`
	Allowed    []string `toml:"allowed"`
}

type runSection struct {
	Mode    *string  `toml:"mode"`
	Delay   *string  `toml:"delay"`
	Timeout *string  `toml:"timeout"`
	Cwd     *string  `toml:"cwd"`
	Ignore  []string `toml:"ignore"`
}

// LoadFile decodes a phpsniff.toml. Unknown keys are an error.
func LoadFile(fs afero.Fs, path string) (File, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return File{}, err
	}
	var f File
	meta, err := toml.Decode(string(data), &f)
	if err != nil {
		return File{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return File{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if f.Run.Mode != nil && !Mode(*f.Run.Mode).Valid() {
		return File{}, fmt.Errorf("%s: [run].mode must be %q or %q", path, ModeOnSave, ModeOnType)
	}
	return f, nil
}

// Apply overlays f onto r. Relative paths stay relative; they are resolved
// against the folder when used.
func (f File) Apply(r *Resource) error {
	setString(&r.ValidatorPath, f.Validator.Path)
	setBool(&r.ValidatorEnabled, f.Validator.Enable)
	if f.Validator.Args != nil {
		r.ValidatorArgs = append([]string(nil), f.Validator.Args...)
	}
	setString(&r.FixerPath, f.Fixer.Path)
	setBool(&r.FixerEnabled, f.Fixer.Enable)
	if f.Fixer.Args != nil {
		r.FixerArgs = append([]string(nil), f.Fixer.Args...)
	}
	setBool(&r.ShowSources, f.Report.ShowSources)
	setBool(&r.ShowFixable, f.Report.ShowFixable)
	setString(&r.Standard, f.Standard.Name)
	setBool(&r.AutoRulesetSearch, f.Standard.AutoSearch)
	if f.Standard.Allowed != nil {
		r.AllowedRulesets = append([]string(nil), f.Standard.Allowed...)
	}
	if f.Run.Mode != nil {
		r.Mode = Mode(*f.Run.Mode)
	}
	if err := setDuration(&r.Delay, f.Run.Delay, "[run].delay"); err != nil {
		return err
	}
	if err := setDuration(&r.Timeout, f.Run.Timeout, "[run].timeout"); err != nil {
		return err
	}
	setString(&r.Cwd, f.Run.Cwd)
	if f.Run.Ignore != nil {
		r.Ignore = append([]string(nil), f.Run.Ignore...)
	}
	return nil
}

func setDuration(dst *time.Duration, v *string, key string) error {
	if v == nil {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(*v))
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return fmt.Errorf("%s: negative duration %s", key, d)
	}
	*dst = d
	return nil
}

// FindFile walks from startDir up to stopDir (inclusive) looking for
// phpsniff.toml. An empty stopDir walks to the filesystem root.
func FindFile(fs afero.Fs, startDir, stopDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	if stopDir != "" {
		if stopDir, err = filepath.Abs(stopDir); err != nil {
			return "", false, fmt.Errorf("failed to resolve stop directory: %w", err)
		}
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := fs.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if dir == stopDir || parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}
