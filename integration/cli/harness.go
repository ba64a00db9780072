//go:build integration

package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/schaermu/dlsort/internal/testutil"
)

const defaultTimeout = 2 * time.Minute

// Harness builds the dlsort binary and runs it against a private downloads
// folder and state directory
type Harness struct {
	t          *testing.T
	binary     string
	TargetDir  string
	StateDir   string
	ConfigPath string
}

// NewHarness creates a harness with a fresh target folder, state directory
// and config file
func NewHarness(t *testing.T) *Harness {
	t.Helper()

	root := t.TempDir()
	h := &Harness{
		t:          t,
		binary:     filepath.Join(root, "bin", "dlsort"),
		TargetDir:  filepath.Join(root, "Downloads"),
		StateDir:   filepath.Join(root, "state"),
		ConfigPath: filepath.Join(root, "config.yaml"),
	}

	if err := os.MkdirAll(h.TargetDir, 0755); err != nil {
		t.Fatalf("create target dir: %v", err)
	}

	config := fmt.Sprintf("paths:\n  target_dir: %q\n  state_dir: %q\n", h.TargetDir, h.StateDir)
	if err := os.WriteFile(h.ConfigPath, []byte(config), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return h
}

// BuildBinary compiles ./cmd/dlsort into the harness directory
func (h *Harness) BuildBinary(ctx context.Context) error {
	h.t.Helper()

	projectRoot, err := testutil.FindProjectRoot()
	if err != nil {
		return fmt.Errorf("get project root: %w", err)
	}

	cmd := exec.CommandContext(ctx, "go", "build", "-o", h.binary, "./cmd/dlsort")
	cmd.Dir = projectRoot
	cmd.Stdout = &testWriter{t: h.t, prefix: "[build] "}
	cmd.Stderr = &testWriter{t: h.t, prefix: "[build] "}

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("go build: %w", err)
	}

	h.t.Logf("Binary built at %s", h.binary)
	return nil
}

// Run executes dlsort with the harness config and returns stdout, stderr and
// the exit code
func (h *Harness) Run(ctx context.Context, args ...string) (string, string, int, error) {
	h.t.Helper()

	args = append([]string{"--config", h.ConfigPath}, args...)
	cmd := exec.CommandContext(ctx, h.binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return "", "", 0, fmt.Errorf("exec failed: %w", err)
		}
		exitCode = exitErr.ExitCode()
	}

	return stdout.String(), stderr.String(), exitCode, nil
}

// MustRun executes dlsort and fails the test if it returns non-zero
func (h *Harness) MustRun(ctx context.Context, args ...string) string {
	h.t.Helper()
	stdout, stderr, exitCode, err := h.Run(ctx, args...)
	if err != nil {
		h.t.Fatalf("run failed: %v", err)
	}
	if exitCode != 0 {
		h.t.Fatalf("command failed with exit code %d\nstdout: %s\nstderr: %s\nargs: %v",
			exitCode, stdout, stderr, args)
	}
	return stdout
}

// FileExists checks if a regular file exists below the target folder
func (h *Harness) FileExists(rel string) bool {
	info, err := os.Stat(filepath.Join(h.TargetDir, rel))
	return err == nil && info.Mode().IsRegular()
}

// testWriter wraps test logging for command output
type testWriter struct {
	t      *testing.T
	prefix string
}

func (w *testWriter) Write(p []byte) (n int, err error) {
	for _, line := range strings.Split(string(p), "\n") {
		if line != "" {
			w.t.Log(w.prefix + line)
		}
	}
	return len(p), nil
}
