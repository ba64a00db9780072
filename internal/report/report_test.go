package report

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/schaermu/dlsort/internal/category"
	"github.com/schaermu/dlsort/internal/journal"
	"github.com/schaermu/dlsort/internal/organize"
)

func TestFormatPlan(t *testing.T) {
	plan := &organize.Plan{
		Folder: "/dl",
		Moves: []organize.PlannedMove{
			{Source: "/dl/notes.txt", Destination: "/dl/Documents/notes.txt", Category: "Documents", Size: 2048},
			{Source: "/dl/photo.JPG", Destination: "/dl/Images/photo.JPG", Category: "Images", Size: 1000, Conflict: true},
			{Source: "/dl/report.pdf", Destination: "/dl/Documents/report.pdf", Category: "Documents", Size: 10},
		},
		Skipped: []organize.SkippedEntry{{Path: "/dl/movie.part", Reason: "matches ignore pattern"}},
	}

	out := FormatPlan(plan)

	assert.Contains(t, out, "Preview: 3 files (3.1 kB) in /dl")
	assert.Contains(t, out, "Documents/ (2)")
	assert.Contains(t, out, "Images/ (1)")
	assert.Contains(t, out, "notes.txt")
	assert.Contains(t, out, "2.0 kB")
	assert.Contains(t, out, "(name exists)")
	assert.Contains(t, out, "Ignored: 1")
	assert.Contains(t, out, "movie.part")
	assert.Less(t, strings.Index(out, "Documents/"), strings.Index(out, "Images/"))
}

func TestFormatPlan_Empty(t *testing.T) {
	out := FormatPlan(&organize.Plan{Folder: "/dl"})
	assert.Contains(t, out, "Nothing to organize in /dl")
}

func TestFormatResult(t *testing.T) {
	result := &organize.Result{
		Folder: "/dl",
		Moved: []journal.MoveRecord{
			{From: "/dl/notes.txt", To: "/dl/Documents/notes (1).txt", Category: "Documents"},
		},
		Skipped: []organize.PlannedMove{{Source: "/dl/a.txt"}},
		Failed: []*organize.MoveError{
			{Op: "move", Path: "/dl/locked.pdf", Err: errors.New("permission denied")},
		},
	}

	out := FormatResult(result)

	assert.Contains(t, out, "Organized 1 files in /dl")
	assert.Contains(t, out, "notes.txt -> Documents/notes (1).txt")
	assert.Contains(t, out, "Skipped (name exists):")
	assert.Contains(t, out, "locked.pdf: permission denied")
}

func TestFormatUndo(t *testing.T) {
	result := &organize.UndoResult{
		Folder: "/dl",
		Restored: []journal.MoveRecord{
			{From: "/dl/Images/photo.JPG", To: "/dl/photo.JPG"},
		},
		RemovedDirs: []string{"/dl/Images"},
	}

	out := FormatUndo(result)

	assert.Contains(t, out, "Restored 1 files in /dl")
	assert.Contains(t, out, "Images/photo.JPG -> photo.JPG")
	assert.Contains(t, out, "Removed empty folders:")
	assert.NotContains(t, out, "Failed:")
}

func TestFormatCategories(t *testing.T) {
	out := FormatCategories(category.Default())

	assert.Contains(t, out, "Categories")
	assert.Contains(t, out, ".jpeg .jpg")
	assert.Contains(t, out, "(everything else)")
}

func TestRelTo(t *testing.T) {
	assert.Equal(t, "Images/a.png", relTo("/dl", "/dl/Images/a.png"))
	assert.Equal(t, "/other/a.png", relTo("/dl", "/other/a.png"))
}
