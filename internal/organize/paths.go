package organize

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// maxUniqueSuffix bounds the " (n)" suffix search
const maxUniqueSuffix = 9999

// EnsureUniquePath returns path if nothing exists there, otherwise the first
// free "name (n).ext" sibling
func EnsureUniquePath(fsys afero.Fs, path string) (string, error) {
	free, err := isFree(fsys, path)
	if err != nil {
		return "", err
	}
	if free {
		return path, nil
	}

	ext := filepath.Ext(path)
	base := strings.TrimSuffix(filepath.Base(path), ext)
	dir := filepath.Dir(path)
	for i := 1; i <= maxUniqueSuffix; i++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", base, i, ext))
		free, err := isFree(fsys, candidate)
		if err != nil {
			return "", err
		}
		if free {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("cannot resolve unique name for %s", path)
}

func isFree(fsys afero.Fs, path string) (bool, error) {
	_, err := fsys.Stat(path)
	if err == nil {
		return false, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}
	return false, err
}

// ensureDir creates dir if it is missing and reports whether it did
func ensureDir(fsys afero.Fs, dir string) (bool, error) {
	info, err := fsys.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return false, fmt.Errorf("%s exists and is not a directory", dir)
		}
		return false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return false, err
	}
	return true, nil
}

func samePath(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}
