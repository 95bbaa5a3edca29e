package phpcs

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// Current schema version - increment when versionPayload changes.
const versionCacheSchema uint16 = 1

// DiskVersionCache persists version probes across server restarts. Entries
// are keyed by the executable's resolved path, size and mtime, so replacing
// the executable invalidates them. Safe for concurrent use; a nil cache is
// a no-op.
type DiskVersionCache struct {
	mu  sync.RWMutex
	dir string
}

type versionPayload struct {
	Schema     uint16
	Executable string
	Size       int64
	ModTime    int64
	Raw        string
}

// OpenDiskVersionCache returns a cache under $XDG_CACHE_HOME/<app>/versions.
func OpenDiskVersionCache(app string) (*DiskVersionCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return NewDiskVersionCache(filepath.Join(base, app, "versions"))
}

// NewDiskVersionCache returns a cache rooted at dir, creating it.
func NewDiskVersionCache(dir string) (*DiskVersionCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskVersionCache{dir: dir}, nil
}

type executableKey struct {
	path    string
	size    int64
	modTime int64
}

func statExecutable(executable string) (executableKey, error) {
	resolved, err := exec.LookPath(executable)
	if err != nil {
		return executableKey{}, err
	}
	if abs, absErr := filepath.Abs(resolved); absErr == nil {
		resolved = abs
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return executableKey{}, err
	}
	return executableKey{path: resolved, size: info.Size(), modTime: info.ModTime().UnixNano()}, nil
}

func (c *DiskVersionCache) pathFor(key executableKey) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s\x00%d\x00%d", key.path, key.size, key.modTime)))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".mp")
}

// Get returns the cached --version output for executable.
func (c *DiskVersionCache) Get(executable string) (string, bool, error) {
	if c == nil {
		return "", false, nil
	}
	key, err := statExecutable(executable)
	if err != nil {
		return "", false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	defer f.Close()

	var payload versionPayload
	if err := msgpack.NewDecoder(f).Decode(&payload); err != nil {
		return "", false, err
	}
	if payload.Schema != versionCacheSchema || payload.Executable != key.path ||
		payload.Size != key.size || payload.ModTime != key.modTime {
		return "", false, nil
	}
	return payload.Raw, true, nil
}

// Put records raw --version output for executable.
func (c *DiskVersionCache) Put(executable, raw string) error {
	if c == nil {
		return nil
	}
	key, err := statExecutable(executable)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	f, err := os.CreateTemp(c.dir, "tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	payload := versionPayload{
		Schema:     versionCacheSchema,
		Executable: key.path,
		Size:       key.size,
		ModTime:    key.modTime,
		Raw:        raw,
	}
	if err := msgpack.NewEncoder(f).Encode(&payload); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// DropAll removes every entry.
func (c *DiskVersionCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.RemoveAll(c.dir); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0o755)
}
