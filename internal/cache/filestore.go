package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileStore persists one JSON entry file per fingerprint under Dir.
type FileStore struct {
	Dir string
	// StrictPerms, when true, enforces 0700 on the cache directory and 0600
	// on entry files for at-rest protection via restricted permissions.
	StrictPerms bool
}

func (s *FileStore) ensureDir() error {
	if s == nil || s.Dir == "" {
		return errors.New("cache dir not configured")
	}
	perm := os.FileMode(0o755)
	if s.StrictPerms {
		perm = 0o700
	}
	if err := os.MkdirAll(s.Dir, perm); err != nil {
		return err
	}
	// If the directory already existed with looser perms, tighten them.
	if s.StrictPerms {
		if info, err := os.Stat(s.Dir); err == nil && info.Mode()&0o777 != 0o700 {
			_ = os.Chmod(s.Dir, 0o700)
		}
	}
	return nil
}

// pathFor hashes the fingerprint again for the file name: fingerprints are
// caller-supplied strings and must not reach the filesystem verbatim.
func (s *FileStore) pathFor(fingerprint string) string {
	h := sha256.Sum256([]byte(fingerprint))
	return filepath.Join(s.Dir, hex.EncodeToString(h[:])+".json")
}

func (s *FileStore) Get(_ context.Context, fingerprint string) (*Entry, bool, error) {
	if err := s.ensureDir(); err != nil {
		return nil, false, err
	}
	p := s.pathFor(fingerprint)
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, false, nil
	}
	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		// Treat a corrupt entry as a miss; the next Put overwrites it.
		return nil, false, nil
	}
	// Touch mtime on access for LRU eviction purposes.
	now := time.Now()
	_ = os.Chtimes(p, now, now)
	return &e, true, nil
}

func (s *FileStore) Put(_ context.Context, fingerprint string, e *Entry) error {
	if err := s.ensureDir(); err != nil {
		return err
	}
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	mode := os.FileMode(0o644)
	if s.StrictPerms {
		mode = 0o600
	}
	return os.WriteFile(s.pathFor(fingerprint), b, mode)
}
