package credential

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"dymgr/internal/config"
)

// DefaultKey is the fixed name the bearer token is stored under.
const DefaultKey = "token"

// Store abstracts persistence for the bearer credential.
type Store interface {
	// Load returns the persisted token or "" when the slot is empty.
	Load() (string, error)
	// Save replaces the persisted token.
	Save(token string) error
	// Remove clears the slot. Removing an empty slot succeeds.
	Remove() error
	Close() error
}

// Open builds the credential store selected by session.credential_backend.
func Open(cfg *config.Config) (Store, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	key := cfg.Session.CredentialKey
	switch cfg.Session.CredentialBackend {
	case config.BackendSQLite:
		return OpenSQLite(cfg.CredentialDBPath(), key)
	case config.BackendFile, "":
		return NewFileStore(cfg.CredentialFilePath(), key), nil
	default:
		return nil, fmt.Errorf("unsupported credential backend %q", cfg.Session.CredentialBackend)
	}
}

// Seed writes token into store only when the slot is empty. It reports whether
// a write happened.
func Seed(store Store, token string) (bool, error) {
	token = strings.TrimSpace(token)
	if store == nil || token == "" {
		return false, nil
	}
	current, err := store.Load()
	if err != nil {
		return false, err
	}
	if current != "" {
		return false, nil
	}
	if err := store.Save(token); err != nil {
		return false, err
	}
	return true, nil
}

// MemoryStore keeps the token in process memory. It backs tests and callers
// that must not touch disk.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

// NewMemoryStore returns a MemoryStore seeded with token ("" for empty).
func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: token}
}

func (m *MemoryStore) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryStore) Save(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryStore) Remove() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

func (m *MemoryStore) Close() error { return nil }

func normalizeKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return DefaultKey
	}
	return key
}
