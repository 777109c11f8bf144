package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"linepatch/internal/textfile"
)

// ErrDrifted is returned on restore when a file no longer matches the
// content the recorded run produced.
var ErrDrifted = errors.New("file changed since the recorded run")

// Store collects backups during a run and commits them as one manifest.
// Record and WriteBackup are safe for concurrent use.
type Store struct {
	dir string

	mu      sync.Mutex
	pending []Entry
}

// NewStore returns a store rooted at dir. The directory is created
// lazily on the first backup write.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// ManifestPath returns where this store keeps its manifest.
func (s *Store) ManifestPath() string {
	return filepath.Join(s.dir, ManifestFilename)
}

// WriteBackup snapshots content into the backup directory and returns
// the snapshot path. The name carries a nanosecond stamp so repeated
// runs against the same file do not collide.
func (s *Store) WriteBackup(path string, content []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("create backup directory %s: %w", s.dir, err)
	}

	name := fmt.Sprintf("%s.%d.bak", filepath.Base(path), time.Now().UnixNano())
	backupPath := filepath.Join(s.dir, name)
	if err := os.WriteFile(backupPath, content, 0600); err != nil {
		return "", fmt.Errorf("write backup %s: %w", backupPath, err)
	}
	return backupPath, nil
}

// Record queues a manifest entry for the next Commit.
func (s *Store) Record(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, e)
}

// Commit writes the queued entries as a fresh manifest. A run that
// changed nothing queues nothing and leaves any previous manifest in
// place, so the last real run stays restorable.
func (s *Store) Commit() error {
	s.mu.Lock()
	entries := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(entries) == 0 {
		return nil
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	m := NewManifest()
	m.Entries = entries
	return m.Save(s.ManifestPath())
}

// Restore puts every file from the recorded manifest back to its
// pre-run content. Each entry is verified against its recorded hashes
// first; a file that drifted since the run is left alone and reported
// in failed. When every entry restores cleanly the snapshots and the
// manifest are removed.
func (s *Store) Restore() (restored, failed []string, err error) {
	m, err := LoadManifest(s.ManifestPath())
	if err != nil {
		return nil, nil, err
	}

	var errs []error
	for _, e := range m.Entries {
		if err := restoreEntry(e); err != nil {
			failed = append(failed, e.Path)
			errs = append(errs, fmt.Errorf("%s: %w", e.Path, err))
			continue
		}
		restored = append(restored, e.Path)
	}

	if len(errs) > 0 {
		return restored, failed, errors.Join(errs...)
	}

	for _, e := range m.Entries {
		os.Remove(e.BackupPath)
	}
	if err := os.Remove(s.ManifestPath()); err != nil {
		return restored, nil, fmt.Errorf("remove manifest: %w", err)
	}
	return restored, nil, nil
}

func restoreEntry(e Entry) error {
	current, err := os.ReadFile(e.Path)
	if err != nil {
		return err
	}
	if Hash(current) != e.NewSHA256 {
		return ErrDrifted
	}

	original, err := os.ReadFile(e.BackupPath)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}
	if Hash(original) != e.OldSHA256 {
		return fmt.Errorf("backup %s is corrupt", e.BackupPath)
	}

	return textfile.WriteAtomic(e.Path, original, e.Mode)
}

// Hash returns the hex SHA-256 of b.
func Hash(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
