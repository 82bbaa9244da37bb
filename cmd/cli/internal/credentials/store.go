package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/hrms/internal/models"
	"github.com/wolfeidau/hrms/internal/session"
)

// Sentinel errors
var (
	// ErrInvalidSnapshot is returned when the snapshot file can't be parsed.
	ErrInvalidSnapshot = errors.New("invalid session snapshot")

	// ErrUnsupportedVersion is returned for files written by a newer CLI.
	ErrUnsupportedVersion = errors.New("unsupported session snapshot version")
)

const (
	snapshotFile    = "session.json"
	snapshotVersion = 1
)

// snapshotDoc is the on-disk layout of session.json.
type snapshotDoc struct {
	Version int              `json:"version"`
	User    *models.Identity `json:"user"`
	SavedAt time.Time        `json:"saved_at"`
}

// Store persists the last known identity between CLI invocations.
type Store struct {
	baseDir string
}

var _ session.Snapshot = (*Store)(nil)

// NewStore creates a new snapshot store.
// If baseDir is empty, uses ~/.hrms/
func NewStore(baseDir string) (*Store, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".hrms")
	}

	// Create directory with 0700 permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	log.Debug().Str("baseDir", baseDir).Msg("session store initialized")

	return &Store{baseDir: baseDir}, nil
}

// Dir returns the directory holding the state files.
func (s *Store) Dir() string {
	return s.baseDir
}

// Load returns the saved identity, or nil when nothing is saved.
func (s *Store) Load() (*models.Identity, error) {
	data, err := os.ReadFile(s.path())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session snapshot: %w", err)
	}

	var doc snapshotDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if doc.Version != snapshotVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)
	}
	if doc.User == nil {
		return nil, nil
	}
	if !doc.User.Complete() {
		return nil, fmt.Errorf("%w: identity is missing id or role", ErrInvalidSnapshot)
	}

	return doc.User, nil
}

// Save replaces the saved identity.
func (s *Store) Save(identity *models.Identity) error {
	if identity == nil {
		return s.Clear()
	}

	doc := snapshotDoc{
		Version: snapshotVersion,
		User:    identity,
		SavedAt: time.Now().UTC(),
	}
	if err := writeJSON(s.path(), doc); err != nil {
		return err
	}

	log.Debug().Str("user", identity.Email).Msg("session snapshot saved")

	return nil
}

// Clear removes the saved identity. Clearing an empty store is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove session snapshot: %w", err)
	}
	return nil
}

func (s *Store) path() string {
	return filepath.Join(s.baseDir, snapshotFile)
}

// writeJSON writes v to path atomically with 0600 permissions.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}

	// Write to temp file first
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}

	// Atomic rename
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save %s: %w", filepath.Base(path), err)
	}

	return nil
}
