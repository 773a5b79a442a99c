package history

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// SessionStorage is the session-scoped key-value store a widget session
// persists its snapshot into. It mirrors the browser sessionStorage contract:
// a single opaque blob under a fixed key, no versioning, no transactions.
type SessionStorage interface {
	// Get returns the stored value for key, or ok=false when absent.
	Get(key string) (value []byte, ok bool)
	// Set stores value under key, replacing any previous value.
	Set(key string, value []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
}

// MemoryStorage is an in-memory SessionStorage. It is the default for
// server-hosted widget sessions, whose lifetime matches the connection.
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStorage creates an empty in-memory session store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string][]byte)}
}

func (ms *MemoryStorage) Get(key string) ([]byte, bool) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	value, ok := ms.data[key]
	return value, ok
}

func (ms *MemoryStorage) Set(key string, value []byte) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	stored := make([]byte, len(value))
	copy(stored, value)
	ms.data[key] = stored
	return nil
}

func (ms *MemoryStorage) Delete(key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.data, key)
	return nil
}

// FileStorage persists each key as a file under a directory. Used when a
// session should survive a server restart, e.g. in local development.
type FileStorage struct {
	dir string
}

// NewFileStorage creates a file-backed session store rooted at dir.
func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &FileStorage{dir: dir}, nil
}

func (fs *FileStorage) path(key string) string {
	return filepath.Join(fs.dir, key+".json")
}

func (fs *FileStorage) Get(key string) ([]byte, bool) {
	data, err := os.ReadFile(fs.path(key))
	if err != nil {
		return nil, false
	}
	return data, true
}

func (fs *FileStorage) Set(key string, value []byte) error {
	if err := os.WriteFile(fs.path(key), value, 0644); err != nil {
		return fmt.Errorf("failed to write session snapshot: %w", err)
	}
	return nil
}

func (fs *FileStorage) Delete(key string) error {
	err := os.Remove(fs.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session snapshot: %w", err)
	}
	return nil
}
