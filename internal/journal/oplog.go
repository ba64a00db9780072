package journal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// TimeFormat is the timestamp layout of operation log lines
const TimeFormat = "2006-01-02 15:04:05"

// OperationLog is the append-only, human-readable record of every move,
// skip, failure and undo. Each line is a slog text record.
type OperationLog struct {
	logger *slog.Logger
	closer io.Closer
}

// syncWriter flushes the underlying file after every record so that a crash
// never loses a line that was already reported
type syncWriter struct {
	f afero.File
}

func (w syncWriter) Write(p []byte) (int, error) {
	n, err := w.f.Write(p)
	if err != nil {
		return n, err
	}
	return n, w.f.Sync()
}

// NewOperationLog writes operation records to w
func NewOperationLog(w io.Writer) *OperationLog {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.String(slog.TimeKey, a.Value.Time().Format(TimeFormat))
			}
			return a
		},
	})
	return &OperationLog{logger: slog.New(handler)}
}

// OpenOperationLog opens (creating if needed) the log file at path for
// appending. Existing content is never truncated.
func OpenOperationLog(fsys afero.Fs, path string) (*OperationLog, error) {
	if err := fsys.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := fsys.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open operation log: %w", err)
	}

	l := NewOperationLog(syncWriter{f: f})
	l.closer = f
	return l, nil
}

// Discard returns an operation log that drops every record
func Discard() *OperationLog {
	return NewOperationLog(io.Discard)
}

// Info records a successful action
func (l *OperationLog) Info(msg string, args ...any) {
	l.logger.Info(msg, args...)
}

// Warn records an action that was skipped
func (l *OperationLog) Warn(msg string, args ...any) {
	l.logger.Warn(msg, args...)
}

// Error records a failed action
func (l *OperationLog) Error(msg string, args ...any) {
	l.logger.Error(msg, args...)
}

// Close closes the underlying file, if any
func (l *OperationLog) Close() error {
	if l.closer == nil {
		return nil
	}
	err := l.closer.Close()
	l.closer = nil
	return err
}

// Tail returns the last n lines of the log at path. n <= 0 returns every
// line. A missing log yields no lines.
func Tail(fsys afero.Fs, path string, n int) ([]string, error) {
	f, err := fsys.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open operation log: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if n > 0 && len(lines) > n {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read operation log: %w", err)
	}

	return lines, nil
}
