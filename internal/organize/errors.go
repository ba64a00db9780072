package organize

import (
	"errors"
	"fmt"
)

// Sentinel errors reported to the caller.
var (
	ErrFolderNotFound  = errors.New("folder not found")
	ErrNoUndoAvailable = errors.New("no undo available")
	ErrMoveFailed      = errors.New("move failed")
)

// MoveError describes a single file that could not be moved during an
// organize or undo run. It matches ErrMoveFailed.
type MoveError struct {
	Op   string // "mkdir", "move", "record", "restore"
	Path string // file the operation was applied to
	Err  error  // underlying error
}

func (e *MoveError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *MoveError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrMoveFailed.
func (e *MoveError) Is(target error) bool {
	return target == ErrMoveFailed
}
