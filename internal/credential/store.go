// Package credential holds the completion API key.
//
// A Store is constructed once at startup and passed to the components that
// need it. An empty key is a normal state: callers fall back to direct
// catalog search instead of calling the completion API.
package credential

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Key is the persisted field name for the completion API key.
const Key = "perplexity_api_key"

// ErrReadOnly is returned by Set on stores that cannot be modified.
var ErrReadOnly = errors.New("credential: store is read-only")

// Store provides access to a single API key.
type Store interface {
	Get() string
	Set(key string) error
	Has() bool
}

// FileStore persists the key as YAML. The file is read lazily on first access.
type FileStore struct {
	path string

	once    sync.Once
	loadErr error

	mu  sync.RWMutex
	key string
}

// NewFileStore returns a store backed by path. Nothing is read until first use.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Get returns the stored key, or "" when none is configured.
func (s *FileStore) Get() string {
	s.hydrate()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key
}

// Has reports whether a key is configured.
func (s *FileStore) Has() bool {
	return s.Get() != ""
}

// Set stores and persists the key. An empty key clears it.
func (s *FileStore) Set(key string) error {
	s.hydrate()
	key = strings.TrimSpace(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if key == "" {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove credential file: %w", err)
		}
		s.key = ""
		return nil
	}

	data, err := yaml.Marshal(map[string]string{Key: key})
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create credential dir: %w", err)
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	s.key = key
	return nil
}

// writeFileAtomic writes data to a 0600 temp file next to path and renames
// it into place, so readers see either the old file or the new one.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	defer os.Remove(name) // no-op after a successful rename

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(name, path)
}

// LoadErr returns the error from the initial read, if any. A missing file
// is not an error.
func (s *FileStore) LoadErr() error {
	s.hydrate()
	return s.loadErr
}

func (s *FileStore) hydrate() {
	s.once.Do(func() {
		data, err := os.ReadFile(s.path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				s.loadErr = fmt.Errorf("failed to read credential file: %w", err)
			}
			return
		}
		var doc map[string]string
		if err := yaml.Unmarshal(data, &doc); err != nil {
			s.loadErr = fmt.Errorf("failed to parse credential file: %w", err)
			return
		}
		s.mu.Lock()
		s.key = strings.TrimSpace(doc[Key])
		s.mu.Unlock()
	})
}

// MemoryStore keeps the key in memory only.
type MemoryStore struct {
	mu  sync.RWMutex
	key string
}

// NewMemoryStore returns a store seeded with key.
func NewMemoryStore(key string) *MemoryStore {
	return &MemoryStore{key: strings.TrimSpace(key)}
}

func (s *MemoryStore) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key
}

func (s *MemoryStore) Set(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = strings.TrimSpace(key)
	return nil
}

func (s *MemoryStore) Has() bool { return s.Get() != "" }

// Static is a read-only key, typically resolved from config.
type Static string

func (s Static) Get() string        { return string(s) }
func (s Static) Has() bool          { return s != "" }
func (s Static) Set(_ string) error { return ErrReadOnly }

// Fallback returns a store that reads primary first and falls back to
// secondary when primary is empty. Writes go to primary.
func Fallback(primary, secondary Store) Store {
	return fallback{primary: primary, secondary: secondary}
}

type fallback struct {
	primary, secondary Store
}

func (f fallback) Get() string {
	if k := f.primary.Get(); k != "" {
		return k
	}
	return f.secondary.Get()
}

func (f fallback) Has() bool            { return f.Get() != "" }
func (f fallback) Set(key string) error { return f.primary.Set(key) }
