// Package report renders plans and run outcomes for the terminal.
package report

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/schaermu/dlsort/internal/category"
	"github.com/schaermu/dlsort/internal/organize"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	categoryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("81"))
	renamedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	skippedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("204"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("197"))
	dimStyle      = lipgloss.NewStyle().Faint(true)
)

// FormatPlan renders a preview of plan grouped by category
func FormatPlan(plan *organize.Plan) string {
	var b strings.Builder

	if plan.Empty() {
		b.WriteString(headerStyle.Render("Nothing to organize in "+plan.Folder) + "\n")
		return b.String()
	}

	b.WriteString(headerStyle.Render(fmt.Sprintf("Preview: %d files (%s) in %s",
		len(plan.Moves), humanize.Bytes(uint64(plan.TotalSize())), plan.Folder)) + "\n\n")

	groups := make(map[string][]organize.PlannedMove)
	var names []string
	for _, mv := range plan.Moves {
		if _, ok := groups[mv.Category]; !ok {
			names = append(names, mv.Category)
		}
		groups[mv.Category] = append(groups[mv.Category], mv)
	}
	sort.Strings(names)

	for _, name := range names {
		moves := groups[name]
		b.WriteString(categoryStyle.Render(fmt.Sprintf("%s/ (%d)", name, len(moves))) + "\n")
		for _, mv := range moves {
			line := fmt.Sprintf("  %s  %s", filepath.Base(mv.Source), dimStyle.Render(humanize.Bytes(uint64(mv.Size))))
			if mv.Conflict {
				line += "  " + renamedStyle.Render("(name exists)")
			}
			b.WriteString(line + "\n")
		}
	}

	if len(plan.Skipped) > 0 {
		b.WriteString("\n" + skippedStyle.Render(fmt.Sprintf("Ignored: %d", len(plan.Skipped))) + "\n")
		for _, s := range plan.Skipped {
			b.WriteString(fmt.Sprintf("  %s  %s\n", filepath.Base(s.Path), dimStyle.Render(s.Reason)))
		}
	}

	return b.String()
}

// FormatResult renders the outcome of an organize run
func FormatResult(result *organize.Result) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("Organized %d files in %s", result.MovedCount(), result.Folder)) + "\n\n")

	if len(result.Moved) > 0 {
		b.WriteString(successStyle.Render("Moved:") + "\n")
		for _, rec := range result.Moved {
			b.WriteString(fmt.Sprintf("  %s -> %s\n", filepath.Base(rec.From), relTo(result.Folder, rec.To)))
		}
	}
	if len(result.Skipped) > 0 {
		b.WriteString(skippedStyle.Render("Skipped (name exists):") + "\n")
		for _, mv := range result.Skipped {
			b.WriteString(fmt.Sprintf("  %s\n", filepath.Base(mv.Source)))
		}
	}
	renderFailures(&b, result.Failed)

	return b.String()
}

// FormatUndo renders the outcome of an undo
func FormatUndo(result *organize.UndoResult) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("Restored %d files in %s", result.RestoredCount(), result.Folder)) + "\n\n")

	if len(result.Restored) > 0 {
		b.WriteString(successStyle.Render("Restored:") + "\n")
		for _, rec := range result.Restored {
			b.WriteString(fmt.Sprintf("  %s -> %s\n", relTo(result.Folder, rec.From), filepath.Base(rec.To)))
		}
	}
	if len(result.RemovedDirs) > 0 {
		b.WriteString(dimStyle.Render("Removed empty folders:") + "\n")
		for _, dir := range result.RemovedDirs {
			b.WriteString(fmt.Sprintf("  %s\n", relTo(result.Folder, dir)))
		}
	}
	renderFailures(&b, result.Failed)

	return b.String()
}

// FormatCategories renders the effective category table
func FormatCategories(table *category.Table) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Categories") + "\n")

	width := 0
	for _, name := range table.Names() {
		if len(name) > width {
			width = len(name)
		}
	}

	for _, name := range table.Names() {
		exts := strings.Join(table.Extensions(name), " ")
		if name == category.Others {
			exts = dimStyle.Render("(everything else)")
		}
		b.WriteString(fmt.Sprintf("  %s  %s\n", categoryStyle.Render(fmt.Sprintf("%-*s", width, name)), exts))
	}

	return b.String()
}

func renderFailures(b *strings.Builder, failed []*organize.MoveError) {
	if len(failed) == 0 {
		return
	}
	b.WriteString(errorStyle.Render("Failed:") + "\n")
	for _, err := range failed {
		fmt.Fprintf(b, "  %s: %v\n", filepath.Base(err.Path), err.Err)
	}
}

func relTo(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}
