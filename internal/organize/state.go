package organize

import "github.com/schaermu/dlsort/internal/journal"

// FileEntry is a regular file observed directly inside the target folder
type FileEntry struct {
	Path string // absolute path
	Name string // base name
	Size int64
}

// SkippedEntry is a direct child of the target folder that is not planned
type SkippedEntry struct {
	Path   string
	Reason string
}

// PlannedMove moves one file into its category folder
type PlannedMove struct {
	Source      string // absolute path in target folder
	Destination string // target/category/name
	Category    string
	Size        int64
	Conflict    bool // destination existed when the plan was built
}

// Plan represents the moves of one organize run, ordered by file name
type Plan struct {
	Folder  string
	Moves   []PlannedMove
	Skipped []SkippedEntry
}

// Empty reports whether the plan has nothing to move
func (p *Plan) Empty() bool {
	return p == nil || len(p.Moves) == 0
}

// TotalSize is the sum of all planned file sizes in bytes
func (p *Plan) TotalSize() int64 {
	var total int64
	for _, mv := range p.Moves {
		total += mv.Size
	}
	return total
}

// Result is the outcome of executing a plan
type Result struct {
	Folder  string
	RunID   string
	Moved   []journal.MoveRecord
	Skipped []PlannedMove // left in place because the destination existed
	Failed  []*MoveError
}

// MovedCount returns the number of files moved
func (r *Result) MovedCount() int {
	return len(r.Moved)
}

// UndoResult is the outcome of undoing the last run
type UndoResult struct {
	Folder      string
	RunID       string
	Restored    []journal.MoveRecord // From is the organized path, To the restored path
	Failed      []*MoveError
	RemovedDirs []string
}

// RestoredCount returns the number of files moved back
func (r *UndoResult) RestoredCount() int {
	return len(r.Restored)
}

// ProgressFunc is called after each planned move or undo record is processed
type ProgressFunc func(done, total int)
