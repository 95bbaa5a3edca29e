package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"phpsniff/internal/config"
	"phpsniff/internal/phpcs"
	"phpsniff/internal/trace"
)

// workspace is the CLI's view of one project: the folder holding the
// nearest phpsniff.toml (or the working directory) and its configuration.
type workspace struct {
	root     string
	store    *config.Store
	resource config.Resource
	engine   *phpcs.Engine
}

func addToolFlags(cmd *cobra.Command) {
	cmd.Flags().String("standard", "", "coding standard name or ruleset path")
	cmd.Flags().String("phpcs", "", "phpcs executable")
	cmd.Flags().String("phpcbf", "", "phpcbf executable")
	cmd.Flags().Duration("timeout", 0, "per-file tool timeout")
	cmd.Flags().Bool("no-cache", false, "do not persist tool version probes")
}

// openWorkspace locates the configuration for target and applies flag
// overrides on top of it.
func openWorkspace(cmd *cobra.Command, target string) (*workspace, error) {
	fs := afero.NewOsFs()
	start, err := filepath.Abs(target)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", target, err)
	}
	if info, err := os.Stat(start); err == nil && !info.IsDir() {
		start = filepath.Dir(start)
	}

	root, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	if file, ok, err := config.FindFile(fs, start, ""); err != nil {
		return nil, err
	} else if ok {
		root = filepath.Dir(file)
	}

	store := config.NewStore(fs)
	store.SetFolders([]string{root})
	res, err := store.Resource(root)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := applyToolFlags(cmd, &res); err != nil {
		return nil, err
	}

	noCache, _ := cmd.Flags().GetBool("no-cache")
	var disk *phpcs.DiskVersionCache
	if !noCache {
		// A broken cache directory only costs a version spawn.
		disk, _ = phpcs.OpenDiskVersionCache("phpsniff")
	}
	engine := phpcs.NewEngine(phpcs.Options{
		FS:        fs,
		DiskCache: disk,
		Tracer:    trace.FromContext(cmd.Context()),
	})
	return &workspace{root: root, store: store, resource: res, engine: engine}, nil
}

func applyToolFlags(cmd *cobra.Command, r *config.Resource) error {
	if v, _ := cmd.Flags().GetString("standard"); v != "" {
		r.Standard = v
	}
	if v, _ := cmd.Flags().GetString("phpcs"); v != "" {
		r.ValidatorPath = v
	}
	if v, _ := cmd.Flags().GetString("phpcbf"); v != "" {
		r.FixerPath = v
	}
	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return err
	}
	if timeout < 0 {
		return fmt.Errorf("--timeout must not be negative")
	}
	if timeout > 0 {
		r.Timeout = timeout
	}
	return nil
}

// request builds the engine request for a file already read from disk.
func (w *workspace) request(path, text string, tool phpcs.Tool) (phpcs.Request, error) {
	standard, err := w.store.ResolveStandard(path, w.resource)
	if err != nil {
		return phpcs.Request{}, err
	}
	return phpcs.Request{
		Path:     path,
		Text:     text,
		Standard: standard,
		Tool:     tool,
		Report:   w.resource.ReportOptions(),
	}, nil
}

func elapsedSince(start time.Time) time.Duration {
	return time.Since(start).Round(time.Millisecond)
}
