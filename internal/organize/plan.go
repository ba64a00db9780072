package organize

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"
)

const (
	reasonIgnored   = "matches ignore pattern"
	reasonStateFile = "dlsort state file"
)

// Scan lists the regular files directly inside folder in lexicographic
// order. Subdirectories (including category folders) and symlinks are not
// returned. Ignored files and dlsort's own state files are reported as
// skipped. A relative folder is resolved against the working directory.
func (e *Engine) Scan(folder string) ([]FileEntry, []SkippedEntry, error) {
	folder, err := absFolder(folder)
	if err != nil {
		return nil, nil, err
	}

	info, err := e.fs.Stat(folder)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", ErrFolderNotFound, folder)
		}
		return nil, nil, fmt.Errorf("failed to stat folder: %w", err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("%w: %s is not a directory", ErrFolderNotFound, folder)
	}

	// ReadDir returns entries sorted by name
	infos, err := afero.ReadDir(e.fs, folder)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read folder: %w", err)
	}

	var files []FileEntry
	var skipped []SkippedEntry
	for _, fi := range infos {
		if !fi.Mode().IsRegular() {
			continue
		}

		path := filepath.Join(folder, fi.Name())
		switch {
		case e.isStateFile(path):
			skipped = append(skipped, SkippedEntry{Path: path, Reason: reasonStateFile})
		case e.cfg.IsIgnored(fi.Name()):
			skipped = append(skipped, SkippedEntry{Path: path, Reason: reasonIgnored})
		default:
			files = append(files, FileEntry{Path: path, Name: fi.Name(), Size: fi.Size()})
		}
	}

	e.logger.Debug("scanned folder", "folder", folder, "files", len(files), "skipped", len(skipped))
	return files, skipped, nil
}

// BuildPlan computes the moves that would organize folder. It never
// modifies the filesystem.
func (e *Engine) BuildPlan(folder string) (*Plan, error) {
	folder, err := absFolder(folder)
	if err != nil {
		return nil, err
	}

	files, skipped, err := e.Scan(folder)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		Folder:  folder,
		Moves:   make([]PlannedMove, 0, len(files)),
		Skipped: skipped,
	}

	for _, f := range files {
		cat := e.table.Classify(f.Name)
		dest := filepath.Join(folder, cat, f.Name)

		exists, err := afero.Exists(e.fs, dest)
		if err != nil {
			return nil, fmt.Errorf("failed to check destination %s: %w", dest, err)
		}

		plan.Moves = append(plan.Moves, PlannedMove{
			Source:      f.Path,
			Destination: dest,
			Category:    cat,
			Size:        f.Size,
			Conflict:    exists,
		})
	}

	return plan, nil
}

// isStateFile reports whether path is one of dlsort's own log or lock files
func (e *Engine) isStateFile(path string) bool {
	for _, p := range []string{e.cfg.UndoLogPath(), e.cfg.OperationLogPath(), e.cfg.LockPath()} {
		if samePath(path, p) {
			return true
		}
	}
	return false
}

func absFolder(folder string) (string, error) {
	abs, err := filepath.Abs(folder)
	if err != nil {
		return "", fmt.Errorf("failed to resolve folder %s: %w", folder, err)
	}
	return abs, nil
}
