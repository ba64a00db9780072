package organize

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/schaermu/dlsort/internal/journal"
)

// UndoLast moves every file of the last organize run back to where it came
// from, in the order the moves were made. Records that cannot be restored
// are reported in UndoResult.Failed. Afterwards the undo log is cleared and
// empty category folders created by the run are removed. If the log cannot
// be cleared, the partial result is returned together with the error.
func (e *Engine) UndoLast() (*UndoResult, error) {
	log, err := e.undo.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load undo log: %w", err)
	}
	if log.Empty() {
		return nil, ErrNoUndoAvailable
	}

	e.logger.Info("starting undo",
		"folder", log.Folder,
		"run_id", log.RunID,
		"moves", len(log.Moves))

	result := &UndoResult{Folder: log.Folder, RunID: log.RunID}
	e.oplog.Info("undo started",
		"folder", log.Folder,
		"run_id", log.RunID,
		"files", len(log.Moves))

	for i, rec := range log.Moves {
		e.restore(log.Folder, rec, result)
		e.progress(i+1, len(log.Moves))
	}

	if err := e.undo.Clear(); err != nil {
		e.oplog.Error("undo log not cleared",
			"folder", log.Folder,
			"run_id", log.RunID,
			"restored", len(result.Restored),
			"failed", len(result.Failed),
			"error", err)
		return result, err
	}

	result.RemovedDirs = e.removeEmptyDirs(log.CreatedDirs)

	e.oplog.Info("undo finished",
		"folder", log.Folder,
		"run_id", log.RunID,
		"restored", len(result.Restored),
		"failed", len(result.Failed))
	e.logger.Info("undo completed",
		"restored", len(result.Restored),
		"failed", len(result.Failed),
		"removed_dirs", len(result.RemovedDirs))

	return result, nil
}

func (e *Engine) restore(folder string, rec journal.MoveRecord, result *UndoResult) {
	exists, err := afero.Exists(e.fs, rec.To)
	if err != nil {
		e.fail(&result.Failed, "restore", rec.To, err)
		return
	}
	if !exists {
		e.fail(&result.Failed, "restore", rec.To, fmt.Errorf("organized file no longer exists: %w", fs.ErrNotExist))
		return
	}

	origDir := filepath.Dir(rec.From)
	if _, err := e.fs.Stat(origDir); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			e.fail(&result.Failed, "restore", rec.To, err)
			return
		}
		// only the organized folder itself is ever recreated
		if !samePath(origDir, folder) {
			e.fail(&result.Failed, "restore", rec.To, fmt.Errorf("original folder %s no longer exists", origDir))
			return
		}
		if err := e.fs.MkdirAll(origDir, 0755); err != nil {
			e.fail(&result.Failed, "restore", rec.To, fmt.Errorf("failed to recreate folder: %w", err))
			return
		}
	}

	dest, err := EnsureUniquePath(e.fs, rec.From)
	if err != nil {
		e.fail(&result.Failed, "restore", rec.To, err)
		return
	}

	if err := e.fs.Rename(rec.To, dest); err != nil {
		e.fail(&result.Failed, "restore", rec.To, err)
		return
	}

	result.Restored = append(result.Restored, journal.MoveRecord{From: rec.To, To: dest, Category: rec.Category})
	if dest != rec.From {
		e.oplog.Warn("restored file under new name",
			"from", rec.To,
			"to", dest,
			"original", rec.From)
		return
	}
	e.oplog.Info("restored file",
		"from", rec.To,
		"to", dest)
}

// removeEmptyDirs deletes the given category folders if they are empty and
// returns the ones removed
func (e *Engine) removeEmptyDirs(dirs []string) []string {
	var removed []string
	for i := len(dirs) - 1; i >= 0; i-- {
		dir := dirs[i]
		if !e.table.IsCategory(filepath.Base(dir)) {
			continue
		}
		empty, err := afero.IsEmpty(e.fs, dir)
		if err != nil || !empty {
			continue
		}
		if err := e.fs.Remove(dir); err != nil {
			e.logger.Warn("failed to remove category folder", "path", dir, "error", err)
			continue
		}
		e.oplog.Info("removed folder", "path", dir)
		removed = append(removed, dir)
	}
	return removed
}
