// Package ui prints user-facing status lines. Everything goes to
// stderr so stdout stays clean for diff output.
package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"linepatch/internal/engine"
)

var (
	HeaderColor  = color.New(color.FgBlue, color.Bold)
	InfoColor    = color.New(color.FgCyan)
	SuccessColor = color.New(color.FgGreen)
	WarningColor = color.New(color.FgYellow)
	ErrorColor   = color.New(color.FgRed)
)

func Header(format string, a ...interface{}) {
	HeaderColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Info(format string, a ...interface{}) {
	InfoColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Success(format string, a ...interface{}) {
	SuccessColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Warning(format string, a ...interface{}) {
	WarningColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Error(format string, a ...interface{}) {
	ErrorColor.Fprintf(os.Stderr, format+"\n", a...)
}

// PrintRunSummary reports the outcome of a patch run, one line per
// target plus a totals line.
func PrintRunSummary(results []engine.FileResult, dryRun bool) {
	Header("\n--- Patch Summary ---")

	var changed, failed int
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
			Error("failed %s: %v", r.Path, r.Err)
		case r.Changed && dryRun:
			changed++
			Info("would patch %s (%d of %d rules)", r.Path, r.Applied(), len(r.Results))
		case r.Changed:
			changed++
			Success("patched %s (%d of %d rules)", r.Path, r.Applied(), len(r.Results))
		case r.Applied() > 0:
			Info("already patched %s (%d rules matched, content unchanged)", r.Path, r.Applied())
		default:
			Warning("no rules matched %s", r.Path)
		}
	}

	switch {
	case failed > 0:
		Error("%d of %d file(s) failed", failed, len(results))
	case dryRun:
		Info("%d of %d file(s) would change", changed, len(results))
	default:
		Header("%d of %d file(s) patched", changed, len(results))
	}
}

// PrintUndoSummary reports the outcome of restoring a recorded run.
func PrintUndoSummary(restored, failed []string) {
	Header("\n--- Undo Summary ---")

	if len(restored) == 0 && len(failed) == 0 {
		Info("No files were restored.")
		return
	}
	if len(restored) > 0 {
		Success("Restored %d file(s):", len(restored))
		for _, f := range restored {
			fmt.Fprintf(os.Stderr, "  - %s\n", f)
		}
	}
	if len(failed) > 0 {
		Error("Failed to restore %d file(s):", len(failed))
		for _, f := range failed {
			fmt.Fprintf(os.Stderr, "  - %s\n", f)
		}
	}
}
