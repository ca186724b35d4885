// Package worker drives one independent instance of the workload loop:
// rescan once at startup, then forever sleep a random interval, pick and
// execute one action, and fold its effect into the local snapshot. Any
// failure during a tick is answered with a full rescan rather than a
// crash.
//
// Several workers may run against the same root with no shared state and
// no locking; each tolerates targets vanishing under it and resynchronizes
// through its own rescans. Ceiling overshoot under multiple workers is
// expected and accepted.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/jamesainslie/churn/pkg/churn/action"
	"github.com/jamesainslie/churn/pkg/churn/logging"
	"github.com/jamesainslie/churn/pkg/churn/namegen"
	"github.com/jamesainslie/churn/pkg/churn/tree"
	"github.com/jamesainslie/churn/pkg/churn/types"
)

// lowSpaceBytes is the volume headroom below which the worker warns after
// a rescan. The configured byte ceiling remains the authoritative limit.
const lowSpaceBytes = 256 * types.MiB

// Options configures a worker.
type Options struct {
	// Root is the directory tree the worker mutates.
	Root string

	// Probabilities is the per-tick action mix.
	Probabilities types.Probabilities

	// Limits holds the directory-count and byte-usage ceilings.
	Limits types.Limits

	// MaxSleep bounds the random sleep between ticks.
	MaxSleep time.Duration

	// Progress receives the one-line-per-action stream. Defaults to
	// os.Stdout.
	Progress io.Writer

	// Diag receives rescan summary lines. Defaults to os.Stderr.
	Diag io.Writer

	// Stats receives the worker's counters; shared between workers under
	// a supervisor. A private instance is created when nil.
	Stats *Stats

	// Rand is the worker's private random source. Seeded from the OS
	// entropy pool when nil.
	Rand *rand.Rand
}

// Validate applies defaults for unset fields.
func (o *Options) Validate() error {
	if o.Root == "" {
		return errors.New("worker root must be set")
	}
	if o.MaxSleep <= 0 {
		o.MaxSleep = 10 * time.Second
	}
	if o.Progress == nil {
		o.Progress = os.Stdout
	}
	if o.Diag == nil {
		o.Diag = os.Stderr
	}
	if o.Stats == nil {
		o.Stats = &Stats{}
	}
	if o.Rand == nil {
		o.Rand = namegen.NewRand()
	}
	return nil
}

// Worker is one instance of the workload loop. It owns its snapshot and
// random source outright; nothing here is safe for concurrent use.
type Worker struct {
	id   string
	opts Options
	snap *tree.Snapshot
	log  *logging.Logger
}

// New creates a worker. Options are validated and defaults applied.
func New(opts Options) (*Worker, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	return &Worker{
		id:   id,
		opts: opts,
		log:  logging.Get("worker").With("id", id[:8]),
	}, nil
}

// ID returns the worker's unique identifier.
func (w *Worker) ID() string {
	return w.id
}

// Run executes the loop until ctx is cancelled. A nil return means the
// worker was asked to stop; a non-nil return is a structural failure the
// worker cannot recover from (a foreign entry in the tree, or a root so
// broken that rescanning itself fails).
func (w *Worker) Run(ctx context.Context) error {
	if err := w.rescan(); err != nil {
		return fmt.Errorf("initial scan: %w", err)
	}
	w.log.Info("worker started", "root", w.opts.Root)

	for {
		if err := w.sleep(ctx); err != nil {
			// Supervisor gone or shutdown requested; stop without
			// further cleanup.
			w.log.Info("worker stopping", "reason", ctx.Err())
			return nil
		}

		w.opts.Stats.ticks.Add(1)

		if err := w.tick(); err != nil {
			if errors.Is(err, tree.ErrForeignEntry) {
				return err
			}

			// Recoverable: log it, rebuild the snapshot, move on.
			w.log.Error("action failed, rescanning", "error", err)
			w.opts.Stats.recoveries.Add(1)
			if err := w.rescan(); err != nil {
				return fmt.Errorf("recovery scan: %w", err)
			}
		}
	}
}

// sleep waits a uniform random duration up to MaxSleep, returning early
// with ctx.Err() when cancelled.
func (w *Worker) sleep(ctx context.Context) error {
	d := time.Duration(w.opts.Rand.Int63n(int64(w.opts.MaxSleep)))
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}
	// The liveness check proper: a cancelled context observed on waking
	// means the supervisor is gone.
	return ctx.Err()
}

// tick performs one select+execute+apply cycle.
func (w *Worker) tick() error {
	dir, hasDir, err := w.pickDir()
	if err != nil {
		return err
	}

	file, hasFile, err := tree.PickFile(w.opts.Root, w.snap, w.opts.Rand)
	if err != nil {
		return err
	}

	act := action.Select(w.opts.Rand, w.opts.Probabilities, w.snap, w.opts.Limits, hasDir, hasFile)

	res, err := w.execute(act, dir, file)
	if err != nil {
		return fmt.Errorf("%s: %w", act, err)
	}

	w.opts.Stats.record(act, res.Delta)
	fmt.Fprintf(w.opts.Progress, "%s,  %s\n", describe(act), res.Path)

	if res.Delta.NeedRescan {
		return w.rescan()
	}

	w.snap.Apply(res.Delta)
	if res.Delta.Dirs > 0 {
		w.snap.AddDir(res.Path)
	}
	return nil
}

// pickDir samples a known directory. A stale pick (raced away by another
// worker) triggers a rescan and one retry, per the recovery protocol.
func (w *Worker) pickDir() (string, bool, error) {
	dir, ok, err := tree.PickDir(w.opts.Root, w.snap, w.opts.Rand)
	if !errors.Is(err, tree.ErrStale) {
		return dir, ok, err
	}

	w.log.Debug("stale directory pick, rescanning")
	if err := w.rescan(); err != nil {
		return "", false, err
	}
	return tree.PickDir(w.opts.Root, w.snap, w.opts.Rand)
}

// execute dispatches to the chosen executor with the picked operands.
func (w *Worker) execute(act types.Action, dir, file string) (action.Result, error) {
	switch act {
	case types.ActionMkdir:
		return action.MakeDir(w.opts.Root, w.mkdirParent(), w.opts.Rand)
	case types.ActionRmdir:
		return action.RemoveDirTree(w.opts.Root, dir)
	case types.ActionMkfile:
		return action.MakeFile(w.opts.Root, dir, w.opts.Rand)
	case types.ActionRmfile:
		return action.RemoveFile(w.opts.Root, file)
	case types.ActionAppend:
		return action.AppendFile(w.opts.Root, file, w.opts.Rand)
	case types.ActionRewrite:
		return action.RewriteFile(w.opts.Root, file, w.opts.Rand)
	default:
		return action.Result{}, fmt.Errorf("unknown action %d", act)
	}
}

// mkdirParent picks uniformly among the known directories and the root
// itself, so the tree grows in breadth as well as depth.
func (w *Worker) mkdirParent() string {
	n := len(w.snap.Dirs)
	if i := w.opts.Rand.Intn(n + 1); i < n {
		return w.snap.Dirs[i]
	}
	return "" // the root
}

// rescan rebuilds the snapshot from a full walk and reports the result on
// the diagnostic stream.
func (w *Worker) rescan() error {
	snap, err := tree.Rescan(w.opts.Root)
	if err != nil {
		return err
	}
	w.snap = snap
	fmt.Fprintln(w.opts.Diag, snap.Summary())

	if free, err := tree.Headroom(w.opts.Root); err == nil && free >= 0 && free < lowSpaceBytes {
		w.log.Warn("volume nearly full",
			"free", types.FormatSize(free),
			"usage", types.FormatSize(w.snap.DiskUsage))
	}
	return nil
}

// describe renders the action half of the progress line.
func describe(a types.Action) string {
	switch a {
	case types.ActionMkdir:
		return "created dir"
	case types.ActionRmdir:
		return "removed tree"
	case types.ActionMkfile:
		return "created file"
	case types.ActionRmfile:
		return "removed file"
	case types.ActionAppend:
		return "appended to file"
	case types.ActionRewrite:
		return "rewrote file"
	default:
		return a.String()
	}
}
