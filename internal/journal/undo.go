package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// undoLogVersion is bumped whenever the on-disk layout changes
const undoLogVersion = 1

// MoveRecord is one completed move of an organize run
type MoveRecord struct {
	From     string `json:"from"` // original path
	To       string `json:"to"`   // path the file was moved to
	Category string `json:"category,omitempty"`
}

// UndoLog holds the moves of the most recent organize run
type UndoLog struct {
	Version     int          `json:"version"`
	RunID       string       `json:"run_id"`
	Folder      string       `json:"folder"`
	CreatedAt   time.Time    `json:"created_at"`
	CreatedDirs []string     `json:"created_dirs,omitempty"`
	Moves       []MoveRecord `json:"moves"`
}

// Empty reports whether the log has nothing to undo
func (l *UndoLog) Empty() bool {
	return l == nil || len(l.Moves) == 0
}

// UndoStore persists the undo log as a single JSON file
type UndoStore struct {
	fs   afero.Fs
	path string
}

// NewUndoStore creates a store for the undo log at path
func NewUndoStore(fsys afero.Fs, path string) *UndoStore {
	return &UndoStore{fs: fsys, path: path}
}

// Path returns the location of the undo log
func (s *UndoStore) Path() string {
	return s.path
}

// Begin starts a new undo log for a run, replacing any previous one
func (s *UndoStore) Begin(runID, folder string) (*UndoLog, error) {
	log := &UndoLog{
		Version:   undoLogVersion,
		RunID:     runID,
		Folder:    folder,
		CreatedAt: time.Now().UTC(),
		Moves:     []MoveRecord{},
	}
	if err := s.Save(log); err != nil {
		return nil, err
	}
	return log, nil
}

// Load reads the undo log. A missing file yields an empty log.
func (s *UndoStore) Load() (*UndoLog, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &UndoLog{}, nil
		}
		return nil, fmt.Errorf("failed to read undo log: %w", err)
	}

	var log UndoLog
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("failed to parse undo log: %w", err)
	}
	if log.Version > undoLogVersion {
		return nil, fmt.Errorf("undo log version %d is newer than supported version %d", log.Version, undoLogVersion)
	}

	return &log, nil
}

// Save persists the log atomically by writing a temp file next to it and
// renaming it into place
func (s *UndoStore) Save(log *UndoLog) error {
	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create undo log directory: %w", err)
	}

	tmpFile, err := afero.TempFile(s.fs, dir, ".undo-tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp undo log: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = s.fs.Remove(tmpPath)
	}() // cleanup on error

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to write undo log: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to sync undo log: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}

	if err := s.fs.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to replace undo log: %w", err)
	}
	return nil
}

// Clear deletes the undo log. Clearing a missing log is not an error.
func (s *UndoStore) Clear() error {
	if err := s.fs.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to clear undo log: %w", err)
	}
	return nil
}
