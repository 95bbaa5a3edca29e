package phpcs

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/mod/semver"
	"golang.org/x/sync/singleflight"

	"phpsniff/internal/trace"
)

// ErrVersionUnknown is returned when --version output has no version.
var ErrVersionUnknown = errors.New("phpcs: version not recognised")

// versionProbeTimeout bounds a --version run.
const versionProbeTimeout = 10 * time.Second

var versionPattern = regexp.MustCompile(`version\s+v?(\d+(?:\.\d+){0,2}(?:-[0-9A-Za-z.-]+)?)`)

// Version is a parsed tool version.
type Version struct {
	Raw        string
	Semver     string
	Major      int
	Generation Generation
}

// ParseVersion extracts the version from `phpcs --version` output, e.g.
// "PHP_CodeSniffer version 3.7.2 (stable) by Squiz and PHPCSStandards".
func ParseVersion(output string) (Version, error) {
	m := versionPattern.FindStringSubmatch(output)
	if m == nil {
		return Version{Raw: output}, ErrVersionUnknown
	}
	v := "v" + m[1]
	if !semver.IsValid(v) {
		return Version{Raw: output}, ErrVersionUnknown
	}
	var major int
	if _, err := fmt.Sscanf(semver.Major(v), "v%d", &major); err != nil {
		return Version{Raw: output}, ErrVersionUnknown
	}
	gen := GenerationCurrent
	if major <= 3 {
		gen = GenerationLegacy
	}
	return Version{
		Raw:        strings.TrimSpace(output),
		Semver:     semver.Canonical(v),
		Major:      major,
		Generation: gen,
	}, nil
}

// VersionCache probes each executable once per session. Concurrent lookups
// of the same executable share one probe.
type VersionCache struct {
	runner Runner
	disk   *DiskVersionCache

	mu      sync.Mutex
	entries map[string]Version
	group   singleflight.Group
}

// NewVersionCache returns a cache that probes with runner. disk may be nil.
func NewVersionCache(runner Runner, disk *DiskVersionCache) *VersionCache {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &VersionCache{runner: runner, disk: disk, entries: make(map[string]Version)}
}

// Lookup returns the version of tool's executable. The probe is detached
// from ctx's cancellation so a superseded job does not poison the cache.
func (c *VersionCache) Lookup(ctx context.Context, tool Tool) (Version, error) {
	key := tool.Executable
	c.mu.Lock()
	if v, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	res, err, _ := c.group.Do(key, func() (any, error) {
		c.mu.Lock()
		if v, ok := c.entries[key]; ok {
			c.mu.Unlock()
			return v, nil
		}
		c.mu.Unlock()

		v, err := c.probe(ctx, tool)
		if err != nil {
			return v, err
		}
		c.mu.Lock()
		c.entries[key] = v
		c.mu.Unlock()
		return v, nil
	})
	v, ok := res.(Version)
	if !ok {
		return Version{}, fmt.Errorf("unexpected type from version probe: %T", res)
	}
	return v, err
}

func (c *VersionCache) probe(ctx context.Context, tool Tool) (Version, error) {
	tracer := trace.FromContext(ctx)
	if raw, ok, err := c.disk.Get(tool.Executable); err != nil {
		trace.Warn(tracer, trace.ScopeProcess, "version cache", err.Error())
	} else if ok {
		if v, err := ParseVersion(raw); err == nil {
			return v, nil
		}
	}

	probeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), versionProbeTimeout)
	defer cancel()
	inv := tool.invocation([]string{"--version"}, "")
	inv.Timeout = 0
	res := c.runner.Run(probeCtx, inv)
	if res.SpawnErr != nil {
		return Version{}, fmt.Errorf("probe %s version: %w", tool.Executable, res.SpawnErr)
	}
	out := res.Stdout
	if strings.TrimSpace(out) == "" {
		out = res.Stderr
	}
	v, err := ParseVersion(out)
	if err != nil {
		return v, fmt.Errorf("probe %s version: %w", tool.Executable, err)
	}
	if err := c.disk.Put(tool.Executable, out); err != nil {
		trace.Warn(tracer, trace.ScopeProcess, "version cache", err.Error())
	}
	trace.Point(tracer, trace.ScopeProcess, "version", fmt.Sprintf("%s %s (%s)", tool.Executable, v.Semver, v.Generation))
	return v, nil
}

// Invalidate forgets every in-memory probe.
func (c *VersionCache) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]Version)
	c.mu.Unlock()
}
