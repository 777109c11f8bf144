// Package engine runs patch sets against their target files.
package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"linepatch/internal/backup"
	"linepatch/internal/diffview"
	"linepatch/internal/lock"
	"linepatch/internal/patch"
	"linepatch/internal/textfile"
	"linepatch/internal/worker"
)

// ErrNoRulesApplied is returned by strict runs where nothing matched.
var ErrNoRulesApplied = errors.New("no rules applied")

// Options controls a run.
type Options struct {
	DryRun      bool
	Strict      bool
	Workers     int
	LockTimeout time.Duration
	MaxFileSize int64
}

// FileResult is the outcome for one target file.
type FileResult struct {
	Path    string
	Results []patch.RuleResult
	Changed bool
	Diff    string
	Err     error
}

// Applied returns how many rules matched this file.
func (r *FileResult) Applied() int { return patch.Applied(r.Results) }

// Runner applies patch sets. Targets are processed concurrently, one
// worker per file at most.
type Runner struct {
	opts  Options
	store *backup.Store
}

// New creates a runner that records backups in store.
func New(opts Options, store *backup.Store) *Runner {
	return &Runner{opts: opts, store: store}
}

// Run processes every target in the set and returns per-file results
// in target order. Individual file failures land in FileResult.Err and
// do not stop the other targets. The returned error covers run-level
// conditions: manifest commit failure, cancellation, or a strict run
// where no rule matched anywhere.
func (r *Runner) Run(ctx context.Context, set *patch.Set) ([]FileResult, error) {
	pool := worker.NewPool(r.opts.Workers, r.processTarget)
	outcomes := pool.Execute(ctx, set.Targets)

	results := make([]FileResult, len(outcomes))
	applied := 0
	for i, o := range outcomes {
		res := o.Value
		if res.Path == "" {
			res.Path = o.Input.Path
		}
		if o.Err != nil && res.Err == nil {
			res.Err = o.Err
		}
		applied += res.Applied()
		results[i] = res
	}

	if !r.opts.DryRun {
		if err := r.store.Commit(); err != nil {
			return results, fmt.Errorf("record run manifest: %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}
	if r.opts.Strict && applied == 0 {
		return results, ErrNoRulesApplied
	}
	return results, nil
}

// processTarget patches one file. File-level failures are reported in
// the result, not as an error, so one bad target cannot abort the run.
func (r *Runner) processTarget(ctx context.Context, t patch.Target) (FileResult, error) {
	res := FileResult{Path: t.Path}

	guard, err := lock.Acquire(ctx, t.Path, r.opts.LockTimeout)
	if err != nil {
		res.Err = err
		return res, nil
	}
	defer guard.Release()

	doc, err := textfile.Load(t.Path, r.opts.MaxFileSize)
	if err != nil {
		res.Err = err
		return res, nil
	}

	newLines, ruleResults, err := patch.Apply(doc.Lines, t.Rules)
	if err != nil {
		res.Err = fmt.Errorf("%s: %w", t.Path, err)
		return res, nil
	}
	res.Results = ruleResults

	if patch.Applied(ruleResults) == 0 {
		log.Debug().Str("path", t.Path).Msg("no rules matched")
		return res, nil
	}

	doc.Lines = newLines
	rendered := doc.Render()
	if bytes.Equal(rendered, doc.Bytes()) {
		log.Debug().Str("path", t.Path).Msg("content unchanged after edits")
		return res, nil
	}

	if r.opts.DryRun {
		res.Changed = true
		res.Diff = diffview.Unified(t.Path, string(doc.Bytes()), string(rendered))
		return res, nil
	}

	backupPath, err := r.store.WriteBackup(t.Path, doc.Bytes())
	if err != nil {
		res.Err = err
		return res, nil
	}
	if err := textfile.WriteAtomic(t.Path, rendered, doc.Mode); err != nil {
		res.Err = err
		return res, nil
	}
	res.Changed = true

	r.store.Record(backup.Entry{
		Path:         t.Path,
		BackupPath:   backupPath,
		Mode:         doc.Mode,
		OldSHA256:    backup.Hash(doc.Bytes()),
		NewSHA256:    backup.Hash(rendered),
		RulesApplied: patch.Applied(ruleResults),
	})
	log.Info().
		Str("path", t.Path).
		Int("rules", patch.Applied(ruleResults)).
		Msg("file patched")
	return res, nil
}
