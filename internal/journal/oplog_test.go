package journal

import (
	"bytes"
	"fmt"
	"regexp"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationLog_Format(t *testing.T) {
	var buf bytes.Buffer
	oplog := NewOperationLog(&buf)

	oplog.Info("moved file", "from", "/dl/a.txt", "to", "/dl/Documents/a.txt")

	line := buf.String()
	assert.Regexp(t, regexp.MustCompile(`^time="\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}" level=INFO msg="moved file"`), line)
	assert.Contains(t, line, "from=/dl/a.txt")
	assert.Contains(t, line, "to=/dl/Documents/a.txt")
}

func TestOperationLog_Levels(t *testing.T) {
	var buf bytes.Buffer
	oplog := NewOperationLog(&buf)

	oplog.Warn("skipped file", "path", "/dl/a.txt")
	oplog.Error("move failed", "path", "/dl/b.txt")

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "level=ERROR")
}

func TestOpenOperationLog_Appends(t *testing.T) {
	fsys := afero.NewMemMapFs()
	path := "/state/operations.log"

	first, err := OpenOperationLog(fsys, path)
	require.NoError(t, err)
	first.Info("first run")
	require.NoError(t, first.Close())

	second, err := OpenOperationLog(fsys, path)
	require.NoError(t, err)
	second.Info("second run")
	require.NoError(t, second.Close())

	lines, err := Tail(fsys, path, 0)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `msg="first run"`)
	assert.Contains(t, lines[1], `msg="second run"`)
}

func TestOperationLog_CloseTwice(t *testing.T) {
	oplog, err := OpenOperationLog(afero.NewMemMapFs(), "/state/operations.log")
	require.NoError(t, err)

	assert.NoError(t, oplog.Close())
	assert.NoError(t, oplog.Close())
	assert.NoError(t, Discard().Close())
}

func TestTail(t *testing.T) {
	fsys := afero.NewMemMapFs()
	path := "/state/operations.log"

	var content bytes.Buffer
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(&content, "line %d\n", i)
	}
	require.NoError(t, afero.WriteFile(fsys, path, content.Bytes(), 0644))

	tests := []struct {
		name string
		n    int
		want []string
	}{
		{"last two", 2, []string{"line 4", "line 5"}},
		{"more than available", 10, []string{"line 1", "line 2", "line 3", "line 4", "line 5"}},
		{"all", 0, []string{"line 1", "line 2", "line 3", "line 4", "line 5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines, err := Tail(fsys, path, tt.n)
			require.NoError(t, err)
			assert.Equal(t, tt.want, lines)
		})
	}
}

func TestTail_MissingLog(t *testing.T) {
	lines, err := Tail(afero.NewMemMapFs(), "/state/operations.log", 5)
	require.NoError(t, err)
	assert.Empty(t, lines)
}
