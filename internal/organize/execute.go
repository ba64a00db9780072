package organize

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/schaermu/dlsort/internal/config"
	"github.com/schaermu/dlsort/internal/journal"
)

// Execute applies plan. A new undo log replaces the previous one before the
// first move; every successful move is persisted to it immediately. A file
// that cannot be moved is reported in Result.Failed and the run continues.
// An empty plan leaves the previous undo log untouched.
func (e *Engine) Execute(plan *Plan) (*Result, error) {
	result := &Result{Folder: plan.Folder}
	if plan.Empty() {
		return result, nil
	}

	log, err := e.undo.Begin(e.newRunID(), plan.Folder)
	if err != nil {
		return nil, fmt.Errorf("failed to start undo log: %w", err)
	}
	result.RunID = log.RunID

	e.oplog.Info("organize started",
		"folder", plan.Folder,
		"run_id", log.RunID,
		"files", len(plan.Moves))

	for i, mv := range plan.Moves {
		e.executeMove(log, mv, result)
		e.progress(i+1, len(plan.Moves))
	}

	e.oplog.Info("organize finished",
		"folder", plan.Folder,
		"run_id", log.RunID,
		"moved", len(result.Moved),
		"skipped", len(result.Skipped),
		"failed", len(result.Failed))

	return result, nil
}

func (e *Engine) executeMove(log *journal.UndoLog, mv PlannedMove, result *Result) {
	dir := filepath.Dir(mv.Destination)
	created, err := ensureDir(e.fs, dir)
	if err != nil {
		e.fail(&result.Failed, "mkdir", mv.Source, fmt.Errorf("failed to create category folder: %w", err))
		return
	}
	if created {
		log.CreatedDirs = append(log.CreatedDirs, dir)
		e.logger.Debug("created category folder", "path", dir)
	}

	dest := mv.Destination
	free, err := isFree(e.fs, dest)
	if err != nil {
		e.fail(&result.Failed, "move", mv.Source, err)
		return
	}
	if !free {
		if e.cfg.Organize.OnConflict == config.ConflictSkip {
			result.Skipped = append(result.Skipped, mv)
			e.oplog.Warn("skipped file",
				"from", mv.Source,
				"to", dest,
				"reason", "destination exists")
			return
		}
		if dest, err = EnsureUniquePath(e.fs, dest); err != nil {
			e.fail(&result.Failed, "move", mv.Source, err)
			return
		}
	}

	if err := e.fs.Rename(mv.Source, dest); err != nil {
		e.fail(&result.Failed, "move", mv.Source, err)
		return
	}

	record := journal.MoveRecord{From: mv.Source, To: dest, Category: mv.Category}
	log.Moves = append(log.Moves, record)
	if err := e.undo.Save(log); err != nil {
		// an unrecorded move could never be undone, so put the file back
		log.Moves = log.Moves[:len(log.Moves)-1]
		err = fmt.Errorf("failed to record move: %w", err)
		if rbErr := e.fs.Rename(dest, mv.Source); rbErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to roll back move to %s: %w", dest, rbErr))
		}
		e.fail(&result.Failed, "record", mv.Source, err)
		return
	}

	result.Moved = append(result.Moved, record)
	e.oplog.Info("moved file",
		"from", mv.Source,
		"to", dest,
		"category", mv.Category)
}

// fail records a per-file failure in the operation log and in failed
func (e *Engine) fail(failed *[]*MoveError, op, path string, err error) {
	msg := "move failed"
	if op == "restore" {
		msg = "undo failed"
	}
	*failed = append(*failed, &MoveError{Op: op, Path: path, Err: err})
	e.oplog.Error(msg,
		"op", op,
		"path", path,
		"error", err)
	e.logger.Warn(msg, "op", op, "path", path, "error", err)
}
