package organize

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/schaermu/dlsort/internal/category"
	"github.com/schaermu/dlsort/internal/config"
	"github.com/schaermu/dlsort/internal/journal"
)

// Engine plans, executes and undoes organize runs
type Engine struct {
	cfg        *config.Config
	fs         afero.Fs
	table      *category.Table
	undo       *journal.UndoStore
	oplog      *journal.OperationLog
	logger     *slog.Logger
	dryRun     bool
	onProgress ProgressFunc
	newRunID   func() string
}

// NewEngine creates a new organize engine
func NewEngine(cfg *config.Config, fsys afero.Fs, table *category.Table, undo *journal.UndoStore, oplog *journal.OperationLog, logger *slog.Logger, dryRun bool) *Engine {
	return &Engine{
		cfg:      cfg,
		fs:       fsys,
		table:    table,
		undo:     undo,
		oplog:    oplog,
		logger:   logger,
		dryRun:   dryRun,
		newRunID: uuid.NewString,
	}
}

// SetProgressCallback registers fn to be called as moves are processed
func (e *Engine) SetProgressCallback(fn ProgressFunc) {
	e.onProgress = fn
}

// Run builds a plan for folder and executes it unless the engine is in
// dry-run mode. The returned result is nil when nothing was executed.
func (e *Engine) Run(folder string) (*Plan, *Result, error) {
	e.logger.Info("starting organize",
		"folder", folder,
		"dry_run", e.dryRun)

	plan, err := e.BuildPlan(folder)
	if err != nil {
		return nil, nil, err
	}

	e.logger.Info("organize plan",
		"moves", len(plan.Moves),
		"skipped", len(plan.Skipped))

	if plan.Empty() {
		e.logger.Info("nothing to organize")
		return plan, nil, nil
	}

	// check for dry-run mode
	if e.dryRun {
		e.logPlanDetails(plan)
		e.logger.Info("dry-run complete, no changes applied")
		return plan, nil, nil
	}

	result, err := e.Execute(plan)
	if err != nil {
		return plan, nil, fmt.Errorf("failed to execute organize plan: %w", err)
	}

	e.logger.Info("organize completed",
		"moved", len(result.Moved),
		"skipped", len(result.Skipped),
		"failed", len(result.Failed))
	return plan, result, nil
}

// logPlanDetails logs detailed plan information for dry-run
func (e *Engine) logPlanDetails(plan *Plan) {
	for _, mv := range plan.Moves {
		e.logger.Info("[dry-run] would move",
			"source", mv.Source,
			"dest", mv.Destination,
			"category", mv.Category,
			"conflict", mv.Conflict)
	}
	for _, s := range plan.Skipped {
		e.logger.Debug("[dry-run] would skip", "path", s.Path, "reason", s.Reason)
	}
}

func (e *Engine) progress(done, total int) {
	if e.onProgress != nil {
		e.onProgress(done, total)
	}
}
