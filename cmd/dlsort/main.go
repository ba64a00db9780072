package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/schaermu/dlsort/internal/category"
	"github.com/schaermu/dlsort/internal/config"
	"github.com/schaermu/dlsort/internal/instance"
	"github.com/schaermu/dlsort/internal/journal"
	"github.com/schaermu/dlsort/internal/organize"
	"github.com/schaermu/dlsort/internal/report"
	"github.com/schaermu/dlsort/internal/watch"
)

var (
	// Set by goreleaser
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile   string
	logLevel  string
	logFormat string
	quiet     bool

	// Command flags
	folder    string
	preview   bool
	undo      bool
	tailLines int
)

// Exit codes
const (
	exitFailure         = 1
	exitFolderNotFound  = 2
	exitNoUndoAvailable = 3
	exitLocked          = 4
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "dlsort",
	Short: "Sort a downloads folder into category subfolders",
	Long: `dlsort moves every file directly inside a folder (by default ~/Downloads)
into a subfolder named after its category: Images, Documents, Videos, Audio,
Archives, Code or Others.

Use --preview to see what would happen without touching anything, and --undo
to move the files of the last run back where they came from.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runOrganize,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Organize new files as they arrive",
	Long: `Watch organizes the folder once and then keeps running, organizing new
files shortly after they appear. Partial downloads and other ignored files are
left alone until they are complete.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Print the effective category table",
	Args:  cobra.NoArgs,
	RunE:  runCategories,
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Print the most recent operation log entries",
	Args:  cobra.NoArgs,
	RunE:  runLog,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "dlsort %s\n", version)
		_, _ = fmt.Fprintf(out, "  commit: %s\n", commit)
		_, _ = fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/dlsort/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress progress and summary output")

	// Organize flags
	rootCmd.Flags().StringVar(&folder, "folder", "", "folder to organize (default is paths.target_dir or ~/Downloads)")
	rootCmd.Flags().BoolVar(&preview, "preview", false, "show what would be moved without making changes")
	rootCmd.Flags().BoolVar(&undo, "undo", false, "undo the last organize run")
	rootCmd.MarkFlagsMutuallyExclusive("preview", "undo")

	watchCmd.Flags().StringVar(&folder, "folder", "", "folder to watch (default is paths.target_dir or ~/Downloads)")
	logCmd.Flags().IntVarP(&tailLines, "lines", "n", 20, "number of entries to print (0 prints all)")

	// Add commands
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(categoriesCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(versionCmd)
}

// exitCode maps an error returned by a command to the process exit code
func exitCode(err error) int {
	switch {
	case errors.Is(err, organize.ErrFolderNotFound):
		return exitFolderNotFound
	case errors.Is(err, organize.ErrNoUndoAvailable):
		return exitNoUndoAvailable
	case errors.Is(err, instance.ErrLocked):
		return exitLocked
	default:
		return exitFailure
	}
}

// session bundles everything a command needs to drive the engine
type session struct {
	cfg    *config.Config
	fs     afero.Fs
	table  *category.Table
	oplog  *journal.OperationLog
	lock   *instance.Lock
	logger *slog.Logger
}

// openSession loads the configuration and, unless readOnly is set, takes the
// instance lock and opens the operation log
func openSession(logger *slog.Logger, readOnly bool) (*session, error) {
	cfg, err := loadConfig(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	table, err := cfg.CategoryTable()
	if err != nil {
		return nil, fmt.Errorf("failed to build category table: %w", err)
	}

	s := &session{
		cfg:    cfg,
		fs:     afero.NewOsFs(),
		table:  table,
		logger: logger,
	}

	if readOnly {
		s.oplog = journal.Discard()
		return s, nil
	}

	s.lock, err = instance.Acquire(cfg.LockPath())
	if err != nil {
		return nil, err
	}

	s.oplog, err = journal.OpenOperationLog(s.fs, cfg.OperationLogPath())
	if err != nil {
		_ = s.lock.Release()
		return nil, err
	}

	return s, nil
}

func (s *session) engine(dryRun bool) *organize.Engine {
	undoStore := journal.NewUndoStore(s.fs, s.cfg.UndoLogPath())
	return organize.NewEngine(s.cfg, s.fs, s.table, undoStore, s.oplog, s.logger, dryRun)
}

func (s *session) Close() {
	if err := s.oplog.Close(); err != nil {
		s.logger.Warn("failed to close operation log", "error", err)
	}
	if s.lock != nil {
		if err := s.lock.Release(); err != nil {
			s.logger.Warn("failed to release lock", "error", err)
		}
	}
}

func runOrganize(cmd *cobra.Command, args []string) error {
	logger := setupLogger()
	if undo {
		return runUndo(cmd, logger)
	}

	s, err := openSession(logger, preview)
	if err != nil {
		return err
	}
	defer s.Close()

	engine := s.engine(preview)

	var bar *progressbar.ProgressBar
	if !quiet {
		engine.SetProgressCallback(func(done, total int) {
			if bar == nil {
				bar = progressbar.Default(int64(total), "Organizing")
			}
			_ = bar.Set(done)
		})
	}

	plan, result, err := engine.Run(s.cfg.Paths.TargetDir)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		logger.Error("organize failed", "error", err)
		return err
	}

	if quiet {
		return nil
	}
	if result == nil {
		_, _ = fmt.Fprint(cmd.OutOrStdout(), report.FormatPlan(plan))
		return nil
	}
	_, _ = fmt.Fprint(cmd.OutOrStdout(), report.FormatResult(result))
	return nil
}

func runUndo(cmd *cobra.Command, logger *slog.Logger) error {
	s, err := openSession(logger, false)
	if err != nil {
		return err
	}
	defer s.Close()

	result, err := s.engine(false).UndoLast()
	if result != nil && !quiet {
		_, _ = fmt.Fprint(cmd.OutOrStdout(), report.FormatUndo(result))
	}
	if err != nil {
		if !errors.Is(err, organize.ErrNoUndoAvailable) {
			logger.Error("undo failed", "error", err)
		}
		return err
	}
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	logger := setupLogger()

	s, err := openSession(logger, false)
	if err != nil {
		return err
	}
	defer s.Close()

	target := s.cfg.Paths.TargetDir
	engine := s.engine(false)
	out := cmd.OutOrStdout()

	run := func() {
		_, result, err := engine.Run(target)
		if err != nil {
			logger.Error("organize failed", "error", err)
			return
		}
		if result != nil && !quiet {
			_, _ = fmt.Fprint(out, report.FormatResult(result))
		}
	}

	filter := func(path string) bool {
		if s.cfg.IsIgnored(filepath.Base(path)) {
			return false
		}
		return filepath.Dir(path) != s.cfg.Paths.StateDir
	}

	if !quiet {
		_, _ = fmt.Fprintf(out, "watching %s (press Ctrl+C to stop)\n", target)
	}

	w := watch.New(target, s.cfg.Watch.Debounce, run, filter, logger)
	if err := w.Start(ctx); err != nil {
		if _, statErr := os.Stat(target); errors.Is(statErr, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", organize.ErrFolderNotFound, target)
		}
		return err
	}
	return nil
}

func runCategories(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := loadConfig(logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	table, err := cfg.CategoryTable()
	if err != nil {
		return err
	}

	_, _ = fmt.Fprint(cmd.OutOrStdout(), report.FormatCategories(table))
	return nil
}

func runLog(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := loadConfig(logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	lines, err := journal.Tail(afero.NewOsFs(), cfg.OperationLogPath(), tailLines)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(lines) == 0 && !quiet {
		_, _ = fmt.Fprintf(out, "operation log %s is empty\n", cfg.OperationLogPath())
		return nil
	}
	for _, line := range lines {
		_, _ = fmt.Fprintln(out, line)
	}
	return nil
}

func setupLogger() *slog.Logger {
	// Parse log level
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}

	// Create handler based on format
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if logFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

func loadConfig(logger *slog.Logger) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)

	// An explicit config file must exist, the default one is optional
	if cfgFile != "" {
		logger.Info("loading configuration", "path", cfgFile)
		cfg, err = config.Load(cfgFile)
	} else {
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", homeErr)
		}
		configPath := fmt.Sprintf("%s/.config/dlsort/config.yaml", home)
		logger.Info("loading configuration", "path", configPath)
		cfg, err = config.LoadOrDefault(configPath)
	}
	if err != nil {
		return nil, err
	}

	if folder != "" {
		target, err := config.ExpandPath(folder)
		if err != nil {
			return nil, err
		}
		cfg.Paths.TargetDir = target
	}

	logger.Debug("configuration loaded",
		"target_dir", cfg.Paths.TargetDir,
		"state_dir", cfg.Paths.StateDir,
		"on_conflict", cfg.Organize.OnConflict)

	return cfg, nil
}

func setupSignalHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	return ctx, cancel
}
