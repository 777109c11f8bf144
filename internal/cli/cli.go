// Package cli wires the linepatch commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"linepatch/internal/backup"
	"linepatch/internal/config"
	"linepatch/internal/engine"
	"linepatch/internal/patch"
	"linepatch/internal/ui"
)

// Execute runs the CLI application.
func Execute() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	rootCmd := &cobra.Command{
		Use:   "linepatch",
		Short: "Anchored line patching for text files",
		Long: `linepatch splices lines into text files around anchor lines.
Rules come from a YAML patch set or can be given inline with flags.
Every run that changes files records a manifest, so the last run can
be undone.`,
		SilenceUsage: true,
	}

	registerGlobalFlags(rootCmd)
	rootCmd.AddCommand(applyCmd())
	rootCmd.AddCommand(undoCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func registerGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	cmd.PersistentFlags().Duration("lock-timeout", 5*time.Second, "How long to wait for a file lock")
	cmd.PersistentFlags().Int("max-file-size", 10, "Maximum target file size in MB")
	cmd.PersistentFlags().Int("workers", 4, "Number of files to patch concurrently")
	cmd.PersistentFlags().String("backup-dir", ".linepatch", "Directory for backups and the run manifest")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
}

func applyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply a patch set to its target files",
		Long: `Apply splices lines into target files around anchor lines. Rules come
from a YAML patch set (--file, '-' for stdin) or from flags describing
a single rule against one target. Each rule edits the first line its
anchor matches; files where nothing matches are left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd)
		},
	}

	cmd.Flags().StringP("file", "f", "", "Patch set file ('-' reads from stdin)")
	cmd.Flags().String("target", "", "Target file for an inline rule")
	cmd.Flags().String("match", "", "Anchor line for an inline rule")
	cmd.Flags().String("match-mode", patch.ModeExact, "Anchor matching mode (exact, contains, regexp)")
	cmd.Flags().Bool("ignore-space", false, "Ignore whitespace differences when matching")
	cmd.Flags().StringArray("insert-before", nil, "Line to insert before the anchor (repeatable)")
	cmd.Flags().StringArray("insert-after", nil, "Line to insert after the anchor (repeatable)")
	cmd.Flags().String("replace", "", "Replacement for the anchor line")
	cmd.Flags().Bool("delete-line", false, "Delete the anchor line")
	cmd.Flags().Bool("dry-run", false, "Show the diff without writing")
	cmd.Flags().Bool("strict", false, "Fail when no rule matches")

	return cmd
}

func undoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Restore files from the last recorded run",
		Long: `Undo puts every file from the last recorded run back to its pre-run
content. Files edited since the run are left alone and reported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUndo(cmd)
		},
	}
}

// runApply handles the `apply` command.
func runApply(cmd *cobra.Command) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	set, err := loadPatchSet(cmd)
	if err != nil {
		return err
	}
	if err := set.Validate(); err != nil {
		return err
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	strict, _ := cmd.Flags().GetBool("strict")

	log.Debug().Int("targets", len(set.Targets)).Msg("Patch set loaded")

	store := backup.NewStore(cfg.BackupDir)
	runner := engine.New(engine.Options{
		DryRun:      dryRun,
		Strict:      strict,
		Workers:     cfg.Workers,
		LockTimeout: cfg.LockTimeout,
		MaxFileSize: cfg.MaxFileSizeBytes(),
	}, store)

	results, runErr := runner.Run(ctx, set)

	if dryRun {
		for _, r := range results {
			if r.Diff != "" {
				fmt.Print(r.Diff)
			}
		}
	}
	ui.PrintRunSummary(results, dryRun)

	if runErr != nil {
		return runErr
	}
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}

// runUndo handles the `undo` command.
func runUndo(cmd *cobra.Command) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	store := backup.NewStore(cfg.BackupDir)
	restored, failed, err := store.Restore()
	if errors.Is(err, backup.ErrNoManifest) {
		return fmt.Errorf("nothing to undo: no run recorded in %s", cfg.BackupDir)
	}

	ui.PrintUndoSummary(restored, failed)
	return err
}

// loadSettings resolves configuration and applies the log level and
// color preferences.
func loadSettings(cmd *cobra.Command) (*config.Settings, error) {
	cfg, err := config.LoadWithFlags(cmd.Root().PersistentFlags())
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	zerolog.SetGlobalLevel(level)

	if cfg.NoColor {
		color.NoColor = true
	}
	return cfg, nil
}

// loadPatchSet builds the patch set from --file or the inline rule flags.
func loadPatchSet(cmd *cobra.Command) (*patch.Set, error) {
	file, _ := cmd.Flags().GetString("file")
	target, _ := cmd.Flags().GetString("target")

	switch {
	case file != "" && target != "":
		return nil, fmt.Errorf("--file and --target are mutually exclusive")
	case file == "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read patch set from stdin: %w", err)
		}
		return patch.Parse(data)
	case file != "":
		return patch.LoadFile(file)
	case target != "":
		return inlineSet(cmd, target)
	default:
		return nil, fmt.Errorf("either --file or --target is required")
	}
}

// inlineSet builds a single-rule patch set from the apply flags.
func inlineSet(cmd *cobra.Command, target string) (*patch.Set, error) {
	match, _ := cmd.Flags().GetString("match")
	mode, _ := cmd.Flags().GetString("match-mode")
	ignoreSpace, _ := cmd.Flags().GetBool("ignore-space")
	insertBefore, _ := cmd.Flags().GetStringArray("insert-before")
	insertAfter, _ := cmd.Flags().GetStringArray("insert-after")
	deleteLine, _ := cmd.Flags().GetBool("delete-line")

	rule := patch.Rule{
		Anchor: patch.Anchor{
			Match:       match,
			Mode:        mode,
			IgnoreSpace: ignoreSpace,
		},
		InsertBefore: insertBefore,
		InsertAfter:  insertAfter,
		Delete:       deleteLine,
	}
	if cmd.Flags().Changed("replace") {
		replace, _ := cmd.Flags().GetString("replace")
		rule.ReplaceWith = &replace
	}

	return &patch.Set{Targets: []patch.Target{{Path: target, Rules: []patch.Rule{rule}}}}, nil
}

// setupContext creates a cancellable context with signal handling.
func setupContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Warn().Msg("Received shutdown signal, cancelling...")
		cancel()
	}()

	return ctx, cancel
}
