package config

import (
	"path"
	"path/filepath"
	"strings"
	"time"

	"phpsniff/internal/phpcs"
)

// Mode selects when documents are validated.
type Mode string

const (
	// ModeOnSave validates on open and save only.
	ModeOnSave Mode = "onSave"
	// ModeOnType also validates after edits, once the delay has passed.
	ModeOnType Mode = "onType"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeOnSave || m == ModeOnType
}

// DefaultRulesetNames are searched, in order, when auto ruleset search is on.
var DefaultRulesetNames = []string{
	".phpcs.xml",
	"phpcs.xml",
	".phpcs.xml.dist",
	"phpcs.xml.dist",
	"ruleset.xml",
}

// Resource is the effective configuration of one workspace folder. It is a
// snapshot: callers get a copy and never see later changes.
type Resource struct {
	ValidatorPath     string
	FixerPath         string
	ValidatorArgs     []string
	FixerArgs         []string
	Cwd               string
	ValidatorEnabled  bool
	FixerEnabled      bool
	ShowSources       bool
	ShowFixable       bool
	Standard          string
	AutoRulesetSearch bool
	AllowedRulesets   []string
	Mode              Mode
	Delay             time.Duration
	Timeout           time.Duration
	Ignore            []string

	// Folder is the workspace folder root the snapshot belongs to.
	Folder string
	// Source names the files that contributed, for logs.
	Source []string
}

// Default returns the built-in configuration.
func Default() Resource {
	return Resource{
		ValidatorPath:     "phpcs",
		FixerPath:         "phpcbf",
		ValidatorEnabled:  true,
		FixerEnabled:      true,
		AutoRulesetSearch: true,
		AllowedRulesets:   append([]string(nil), DefaultRulesetNames...),
		Mode:              ModeOnSave,
		Delay:             250 * time.Millisecond,
		Timeout:           30 * time.Second,
	}
}

func (r Resource) clone() Resource {
	r.ValidatorArgs = append([]string(nil), r.ValidatorArgs...)
	r.FixerArgs = append([]string(nil), r.FixerArgs...)
	r.AllowedRulesets = append([]string(nil), r.AllowedRulesets...)
	r.Ignore = append([]string(nil), r.Ignore...)
	r.Source = append([]string(nil), r.Source...)
	return r
}

// WorkDir is the directory tools run in: Cwd resolved against the folder,
// or the folder itself.
func (r Resource) WorkDir() string {
	if r.Cwd == "" {
		return r.Folder
	}
	if filepath.IsAbs(r.Cwd) || r.Folder == "" {
		return r.Cwd
	}
	return filepath.Join(r.Folder, r.Cwd)
}

// ValidatorTool describes the phpcs executable.
func (r Resource) ValidatorTool() phpcs.Tool {
	return phpcs.Tool{
		Executable: r.ValidatorPath,
		ExtraArgs:  append([]string(nil), r.ValidatorArgs...),
		Dir:        r.WorkDir(),
		Timeout:    r.Timeout,
	}
}

// FixerTool describes the phpcbf executable.
func (r Resource) FixerTool() phpcs.Tool {
	return phpcs.Tool{
		Executable: r.FixerPath,
		ExtraArgs:  append([]string(nil), r.FixerArgs...),
		Dir:        r.WorkDir(),
		Timeout:    r.Timeout,
	}
}

// ReportOptions returns the display flags for the report parser.
func (r Resource) ReportOptions() phpcs.ReportOptions {
	return phpcs.ReportOptions{ShowSources: r.ShowSources, ShowFixable: r.ShowFixable}
}

// Ignored reports whether docPath matches one of the ignore patterns.
// Patterns use path.Match syntax against the folder-relative slash path;
// a pattern matching a leading directory ignores everything below it.
func (r Resource) Ignored(docPath string) bool {
	if len(r.Ignore) == 0 {
		return false
	}
	rel := docPath
	if r.Folder != "" {
		if p, err := filepath.Rel(r.Folder, docPath); err == nil && !strings.HasPrefix(p, "..") {
			rel = p
		}
	}
	rel = filepath.ToSlash(rel)
	parts := strings.Split(rel, "/")
	for _, pattern := range r.Ignore {
		pattern = strings.TrimSuffix(filepath.ToSlash(pattern), "/")
		if ok, _ := path.Match(pattern, path.Base(rel)); ok {
			return true
		}
		for i := 1; i <= len(parts); i++ {
			if ok, _ := path.Match(pattern, strings.Join(parts[:i], "/")); ok {
				return true
			}
		}
	}
	return false
}
