package organize

import (
	"os"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schaermu/dlsort/internal/journal"
)

func TestUndoLast_NoRun(t *testing.T) {
	f := newFixture(t, afero.NewMemMapFs(), false)

	_, err := f.engine.UndoLast()
	assert.ErrorIs(t, err, ErrNoUndoAvailable)
}

func TestUndoLast_RoundTrip(t *testing.T) {
	f := newFixture(t, afero.NewMemMapFs(), false)
	seedScenario(t, f.fs)
	before := fileNames(t, f.fs, testFolder)

	_, _, err := f.engine.Run(testFolder)
	require.NoError(t, err)

	result, err := f.engine.UndoLast()
	require.NoError(t, err)
	assert.Equal(t, 4, result.RestoredCount())
	assert.Empty(t, result.Failed)
	assert.Equal(t, "run-1", result.RunID)
	assert.Len(t, result.RemovedDirs, 4)

	assert.Equal(t, before, fileNames(t, f.fs, testFolder))
	for _, dir := range []string{"Images", "Documents", "Archives", "Code"} {
		exists, err := afero.Exists(f.fs, "/dl/"+dir)
		require.NoError(t, err)
		assert.False(t, exists, dir)
	}

	exists, err := afero.Exists(f.fs, f.cfg.UndoLogPath())
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = f.engine.UndoLast()
	assert.ErrorIs(t, err, ErrNoUndoAvailable)
}

func TestUndoLast_KeepsPreexistingCategoryFolders(t *testing.T) {
	f := newFixture(t, afero.NewMemMapFs(), false)
	require.NoError(t, f.fs.MkdirAll("/dl/Documents", 0755))
	writeFile(t, f.fs, "/dl/notes.txt", "x")

	_, _, err := f.engine.Run(testFolder)
	require.NoError(t, err)

	result, err := f.engine.UndoLast()
	require.NoError(t, err)
	assert.Empty(t, result.RemovedDirs)

	exists, err := afero.DirExists(f.fs, "/dl/Documents")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUndoLast_MissingFileIsSkipped(t *testing.T) {
	f := newFixture(t, afero.NewMemMapFs(), false)
	seedScenario(t, f.fs)

	_, _, err := f.engine.Run(testFolder)
	require.NoError(t, err)
	require.NoError(t, f.fs.Remove("/dl/Code/script.py"))

	result, err := f.engine.UndoLast()
	require.NoError(t, err)
	assert.Equal(t, 3, result.RestoredCount())
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "/dl/Code/script.py", result.Failed[0].Path)
	assert.ErrorIs(t, result.Failed[0], ErrMoveFailed)
	assert.Contains(t, f.oplog.String(), `msg="undo failed"`)

	assert.ElementsMatch(t, []string{"archive.tar.gz", "notes.txt", "photo.JPG"}, fileNames(t, f.fs, testFolder))

	_, err = f.engine.UndoLast()
	assert.ErrorIs(t, err, ErrNoUndoAvailable)
}

func TestUndoLast_OriginalPathOccupied(t *testing.T) {
	f := newFixture(t, afero.NewMemMapFs(), false)
	writeFile(t, f.fs, "/dl/notes.txt", "organized")

	_, _, err := f.engine.Run(testFolder)
	require.NoError(t, err)
	writeFile(t, f.fs, "/dl/notes.txt", "downloaded later")

	result, err := f.engine.UndoLast()
	require.NoError(t, err)
	require.Equal(t, 1, result.RestoredCount())
	assert.Equal(t, "/dl/notes (1).txt", result.Restored[0].To)

	data, err := afero.ReadFile(f.fs, "/dl/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "downloaded later", string(data))
	data, err = afero.ReadFile(f.fs, "/dl/notes (1).txt")
	require.NoError(t, err)
	assert.Equal(t, "organized", string(data))
}

func TestUndoLast_RecreatesOnlyTargetFolder(t *testing.T) {
	f := newFixture(t, afero.NewMemMapFs(), false)
	writeFile(t, f.fs, "/elsewhere/a.txt", "a")
	writeFile(t, f.fs, "/elsewhere/b.txt", "b")

	log, err := f.undo.Begin("run-x", "/gone")
	require.NoError(t, err)
	log.Moves = []journal.MoveRecord{
		{From: "/gone/a.txt", To: "/elsewhere/a.txt", Category: "Documents"},
		{From: "/gone/nested/b.txt", To: "/elsewhere/b.txt", Category: "Documents"},
	}
	require.NoError(t, f.undo.Save(log))

	result, err := f.engine.UndoLast()
	require.NoError(t, err)

	require.Equal(t, 1, result.RestoredCount())
	assert.Equal(t, "/gone/a.txt", result.Restored[0].To)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "/elsewhere/b.txt", result.Failed[0].Path)

	exists, err := afero.Exists(f.fs, "/gone/nested")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUndoLast_ReplaysInInsertionOrder(t *testing.T) {
	f := newFixture(t, afero.NewMemMapFs(), false)
	seedScenario(t, f.fs)

	_, run, err := f.engine.Run(testFolder)
	require.NoError(t, err)

	result, err := f.engine.UndoLast()
	require.NoError(t, err)
	require.Len(t, result.Restored, len(run.Moved))
	for i, rec := range run.Moved {
		assert.Equal(t, rec.To, result.Restored[i].From)
		assert.Equal(t, rec.From, result.Restored[i].To)
	}
}

func TestUndoLast_ClearFailureKeepsResult(t *testing.T) {
	fsys := &failingFs{Fs: afero.NewMemMapFs()}
	f := newFixture(t, fsys, false)
	seedScenario(t, f.fs)

	_, _, err := f.engine.Run(testFolder)
	require.NoError(t, err)

	fsys.removeErr = map[string]error{f.cfg.UndoLogPath(): os.ErrPermission}

	result, err := f.engine.UndoLast()
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrPermission)
	require.NotNil(t, result)
	assert.Equal(t, 4, result.RestoredCount())

	exists, err := afero.Exists(f.fs, "/dl/photo.JPG")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Contains(t, f.oplog.String(), "undo log not cleared")
}
