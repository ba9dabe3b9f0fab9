// Package session persists the most-recently-opened log source per
// project-root context (spec.md §6's "session file of most-recently-opened
// source names"), so reopening the viewer in the same directory resumes
// where the user left off. Grounded on original_source/src/session.rs,
// re-expressed as TOML rather than JSON per SPEC_FULL.md §3.1.
package session

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// MaxContexts bounds the number of project contexts retained, preventing
// unbounded growth of the session file over the life of a machine.
const MaxContexts = 100

// GlobalKey is the context key used when no project root is given.
const GlobalKey = "__global__"

type contextEntry struct {
	LastSource string `toml:"last_source"`
}

type file struct {
	Contexts map[string]contextEntry `toml:"contexts"`
}

// Store reads and writes the session file at a fixed path.
type Store struct {
	path string
}

// Open returns a Store backed by path, which need not exist yet: the
// first Save creates it (and its parent directory).
func Open(path string) *Store {
	return &Store{path: path}
}

// DefaultPath returns the session file path under dir (typically
// $XDG_STATE_HOME/ltix).
func DefaultPath(dir string) string {
	return filepath.Join(dir, "session.toml")
}

// contextKey maps an optional project root to its session file key.
func contextKey(projectRoot string) string {
	if projectRoot == "" {
		return GlobalKey
	}
	return projectRoot
}

// LastSource returns the last source opened under projectRoot ("" for
// the global context), or "" if none is recorded or the session file is
// missing/unreadable.
func (s *Store) LastSource(projectRoot string) string {
	f, err := s.load()
	if err != nil {
		return ""
	}
	return f.Contexts[contextKey(projectRoot)].LastSource
}

// SaveLastSource records name as the last-opened source for projectRoot,
// capping the total number of retained contexts at MaxContexts by
// evicting arbitrary entries once the cap is exceeded (map iteration
// order is unspecified, matching the original's own "arbitrary but
// bounded" eviction).
func (s *Store) SaveLastSource(projectRoot, name string) error {
	f, err := s.load()
	if err != nil {
		f = file{Contexts: make(map[string]contextEntry)}
	}
	if f.Contexts == nil {
		f.Contexts = make(map[string]contextEntry)
	}

	f.Contexts[contextKey(projectRoot)] = contextEntry{LastSource: name}

	if excess := len(f.Contexts) - MaxContexts; excess > 0 {
		for k := range f.Contexts {
			if excess <= 0 {
				break
			}
			delete(f.Contexts, k)
			excess--
		}
	}

	return s.write(f)
}

func (s *Store) load() (file, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return file{}, err
	}
	var f file
	if err := toml.Unmarshal(data, &f); err != nil {
		return file{}, err
	}
	return f, nil
}

// write persists f atomically: a temp file written alongside path, then
// renamed over it, so a concurrent LastSource never observes a partial
// write.
func (s *Store) write(f file) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	data, err := toml.Marshal(f)
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
