package config

import (
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ResolveStandard picks the --standard value for docPath.
//
// An explicit standard wins. Path-like values (containing a separator or
// ending in .xml) are resolved against the folder; bare names such as
// "PSR12" pass through. Otherwise, with auto search on, the directories
// from the document up to the folder root are searched for the allowed
// ruleset names. "" means let the tool use its own default.
func ResolveStandard(fs afero.Fs, docPath string, r Resource) (string, error) {
	if std := strings.TrimSpace(r.Standard); std != "" {
		if !isPathLike(std) {
			return std, nil
		}
		if !filepath.IsAbs(std) && r.Folder != "" {
			std = filepath.Join(r.Folder, std)
		}
		return filepath.Clean(std), nil
	}
	if !r.AutoRulesetSearch || docPath == "" {
		return "", nil
	}
	names := r.AllowedRulesets
	if len(names) == 0 {
		names = DefaultRulesetNames
	}
	dir := filepath.Dir(filepath.Clean(docPath))
	stop := ""
	if r.Folder != "" && within(dir, filepath.Clean(r.Folder)) {
		stop = filepath.Clean(r.Folder)
	}
	for {
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			ok, err := afero.Exists(fs, candidate)
			if err != nil {
				return "", err
			}
			if ok {
				return candidate, nil
			}
		}
		parent := filepath.Dir(dir)
		if dir == stop || parent == dir {
			break
		}
		dir = parent
	}
	return "", nil
}

func isPathLike(s string) bool {
	return strings.ContainsAny(s, `/\`) || strings.EqualFold(filepath.Ext(s), ".xml")
}
