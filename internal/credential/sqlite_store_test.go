package credential

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.db")
	store, err := OpenSQLite(path, DefaultKey)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	if got, err := store.Load(); err != nil || got != "" {
		t.Fatalf("expected empty slot, got %q %v", got, err)
	}
	if err := store.Save("first"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save("second"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if got, err := store.Load(); err != nil || got != "second" {
		t.Fatalf("expected overwritten token, got %q %v", got, err)
	}
	if err := store.Remove(); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := store.Remove(); err != nil {
		t.Fatalf("second remove: %v", err)
	}
	if got, err := store.Load(); err != nil || got != "" {
		t.Fatalf("expected empty slot after remove, got %q %v", got, err)
	}
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.db")
	store, err := OpenSQLite(path, "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Save("tok-abc"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := OpenSQLite(path, DefaultKey)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if got, err := reopened.Load(); err != nil || got != "tok-abc" {
		t.Fatalf("expected persisted token, got %q %v", got, err)
	}
}

func TestSQLiteStoreKeepsTokenFilesPrivate(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenSQLite(filepath.Join(dir, "credentials.db"), DefaultKey)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	const token = "secret-token-xyz"
	if err := store.Save(token); err != nil {
		t.Fatalf("save: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat %s: %v", entry.Name(), err)
		}
		if entry.Name() != "credentials.db" {
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("read %s: %v", entry.Name(), err)
			}
			if !bytes.Contains(data, []byte(token)) {
				continue
			}
		}
		if perm := info.Mode().Perm(); perm&0o077 != 0 {
			t.Fatalf("%s has mode %v; token files must be owner-only", entry.Name(), perm)
		}
	}
}
