package config

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// Store builds and caches Resource snapshots per workspace folder.
// Precedence: defaults < client settings < folder phpsniff.toml.
type Store struct {
	fs afero.Fs

	mu       sync.Mutex
	settings Settings
	folders  []string
	cache    map[string]Resource
	// gen changes whenever cached snapshots become stale. A snapshot built
	// under an older gen is returned but not cached.
	gen uint64
}

// NewStore returns an empty Store reading files from fs.
func NewStore(fs afero.Fs) *Store {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Store{fs: fs, cache: make(map[string]Resource)}
}

// Fs returns the filesystem the store reads from.
func (s *Store) Fs() afero.Fs {
	return s.fs
}

// SetSettings replaces the client settings and drops cached snapshots.
func (s *Store) SetSettings(settings Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	s.resetLocked()
}

// SetFolders replaces the workspace folder set.
func (s *Store) SetFolders(roots []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folders = s.folders[:0]
	for _, root := range roots {
		s.folders = appendFolder(s.folders, root)
	}
	s.resetLocked()
}

// UpdateFolders adds and removes folder roots.
func (s *Store) UpdateFolders(added, removed []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, root := range removed {
		root = filepath.Clean(root)
		for i, f := range s.folders {
			if f == root {
				s.folders = append(s.folders[:i], s.folders[i+1:]...)
				break
			}
		}
	}
	for _, root := range added {
		s.folders = appendFolder(s.folders, root)
	}
	s.resetLocked()
}

func appendFolder(folders []string, root string) []string {
	if root == "" {
		return folders
	}
	root = filepath.Clean(root)
	for _, f := range folders {
		if f == root {
			return folders
		}
	}
	return append(folders, root)
}

// Folders returns the folder roots, sorted.
func (s *Store) Folders() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]string(nil), s.folders...)
	sort.Strings(out)
	return out
}

// FolderFor returns the folder with the longest root containing docPath,
// or "" when no folder does.
func (s *Store) FolderFor(docPath string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	docPath = filepath.Clean(docPath)
	best := ""
	for _, root := range s.folders {
		if !within(docPath, root) {
			continue
		}
		if len(root) > len(best) {
			best = root
		}
	}
	return best
}

func within(p, root string) bool {
	if p == root {
		return true
	}
	if !strings.HasSuffix(root, string(filepath.Separator)) {
		root += string(filepath.Separator)
	}
	return strings.HasPrefix(p, root)
}

// Resource returns the snapshot for folder. An empty folder yields the
// defaults overlaid with client settings.
func (s *Store) Resource(folder string) (Resource, error) {
	s.mu.Lock()
	if r, ok := s.cache[folder]; ok {
		s.mu.Unlock()
		return r.clone(), nil
	}
	settings := s.settings
	gen := s.gen
	s.mu.Unlock()

	r := Default()
	r.Folder = folder
	if err := settings.Apply(&r); err != nil {
		return Resource{}, err
	}
	if folder != "" {
		path := filepath.Join(folder, FileName)
		if ok, err := afero.Exists(s.fs, path); err != nil {
			return Resource{}, err
		} else if ok {
			f, err := LoadFile(s.fs, path)
			if err != nil {
				return Resource{}, err
			}
			if err := f.Apply(&r); err != nil {
				return Resource{}, err
			}
			r.Source = append(r.Source, path)
		}
	}

	s.mu.Lock()
	if s.gen == gen {
		s.cache[folder] = r
	}
	s.mu.Unlock()
	return r.clone(), nil
}

// Invalidate drops every cached snapshot.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()
}

func (s *Store) resetLocked() {
	s.gen++
	s.cache = make(map[string]Resource)
}

// ResolveStandard resolves the standard for docPath using the store's fs.
func (s *Store) ResolveStandard(docPath string, r Resource) (string, error) {
	return ResolveStandard(s.fs, docPath, r)
}
