package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"dymgr/internal/fileutil"
)

// FileStore writes the credential slot to a JSON file on disk.
type FileStore struct {
	mu   sync.Mutex
	path string
	key  string
	lock *flock.Flock
}

// NewFileStore builds a FileStore rooted at the provided path. The token lives
// under key inside the document.
func NewFileStore(path, key string) *FileStore {
	return &FileStore{
		path: path,
		key:  normalizeKey(key),
		lock: flock.New(path + ".lock"),
	}
}

// Path reports the JSON document location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the token from disk. A missing file resolves to an empty slot.
func (s *FileStore) Load() (string, error) {
	if err := s.acquire(false); err != nil {
		return "", err
	}
	defer s.release()

	entries, err := s.read()
	if err != nil {
		return "", err
	}
	return entries[s.key], nil
}

// Save persists the token with restricted permissions.
func (s *FileStore) Save(token string) error {
	if err := s.acquire(true); err != nil {
		return err
	}
	defer s.release()

	entries, err := s.read()
	if err != nil {
		return err
	}
	entries[s.key] = token
	return s.write(entries)
}

// Remove drops the token. The file is deleted once no keys remain.
func (s *FileStore) Remove() error {
	if err := s.acquire(true); err != nil {
		return err
	}
	defer s.release()

	entries, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := entries[s.key]; !ok {
		return nil
	}
	delete(entries, s.key)
	if len(entries) > 0 {
		return s.write(entries)
	}
	if err := fileutil.RemoveIfExists(s.path); err != nil {
		return fmt.Errorf("remove credential file: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error {
	return s.lock.Close()
}

func (s *FileStore) acquire(exclusive bool) error {
	s.mu.Lock()
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("ensure credential directory: %w", err)
	}
	var err error
	if exclusive {
		err = s.lock.Lock()
	} else {
		err = s.lock.RLock()
	}
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("lock credential file: %w", err)
	}
	return nil
}

func (s *FileStore) release() {
	_ = s.lock.Unlock()
	s.mu.Unlock()
}

func (s *FileStore) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read credential file: %w", err)
	}

	entries := map[string]string{}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode credential file: %w", err)
	}
	if entries == nil {
		// A literal null document decodes to a nil map.
		entries = map[string]string{}
	}
	return entries, nil
}

func (s *FileStore) write(entries map[string]string) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credential file: %w", err)
	}

	if err := fileutil.WriteFileAtomic(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write credential file: %w", err)
	}
	return nil
}
