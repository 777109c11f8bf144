// Package backup snapshots files before they are patched and restores
// them from a recorded manifest.
package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// ManifestVersion is written into every manifest so the format can
// evolve without breaking older runs.
const ManifestVersion = 1

// ManifestFilename is the manifest file name inside the backup directory.
const ManifestFilename = "manifest.json"

// ErrNoManifest is returned when no manifest exists to restore from.
var ErrNoManifest = errors.New("no run manifest found")

// Entry records one patched file: where it lives, where its snapshot
// went, and the content hashes on both sides of the run.
type Entry struct {
	Path         string      `json:"path"`
	BackupPath   string      `json:"backup_path"`
	Mode         fs.FileMode `json:"mode"`
	OldSHA256    string      `json:"old_sha256"`
	NewSHA256    string      `json:"new_sha256"`
	RulesApplied int         `json:"rules_applied"`
}

// Manifest describes the most recent run that changed files.
type Manifest struct {
	Version int       `json:"version"`
	RunAt   time.Time `json:"run_at"`
	Entries []Entry   `json:"entries"`
}

// NewManifest returns an empty manifest stamped with the current time.
func NewManifest() *Manifest {
	return &Manifest{
		Version: ManifestVersion,
		RunAt:   time.Now().UTC(),
		Entries: []Entry{},
	}
}

// LoadManifest reads the manifest at path. A missing file maps to
// ErrNoManifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoManifest
		}
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return &m, nil
}

// Save writes the manifest to path, creating the parent directory if
// needed. The write goes through a temp file so a crash cannot leave a
// half-written manifest behind.
func (m *Manifest) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create backup directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ManifestFilename+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp manifest: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace manifest %s: %w", path, err)
	}
	return nil
}
