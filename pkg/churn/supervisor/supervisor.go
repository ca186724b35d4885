// Package supervisor launches and tends a set of workers sharing one
// workload root. Worker slots are replenished when their occupant exits;
// the supervisor itself runs until cancelled from outside. Workers detect
// supervisor shutdown through context cancellation, checked once per tick
// when they wake from sleep.
package supervisor

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jamesainslie/churn/pkg/churn/logging"
	"github.com/jamesainslie/churn/pkg/churn/tree"
	"github.com/jamesainslie/churn/pkg/churn/worker"
)

// ErrRootLost reports that the workload root itself disappeared while the
// supervisor was running. Workers cannot make progress against a missing
// root, so the whole run stops.
var ErrRootLost = errors.New("workload root removed")

// restartDelay spaces out slot replenishment so a persistently failing
// worker does not spin.
const restartDelay = time.Second

// Options configures a supervisor.
type Options struct {
	// Workers is the number of slots to keep filled.
	Workers int

	// Worker is the option template each launched worker starts from.
	// Stats is shared across all workers; Rand is cleared so every
	// worker seeds its own source.
	Worker worker.Options

	// GuardRoot watches for external removal of the root and aborts the
	// run when it happens.
	GuardRoot bool
}

// Supervisor keeps N worker slots filled against one root.
type Supervisor struct {
	opts  Options
	stats *worker.Stats
	log   *logging.Logger
}

// New creates a supervisor. The worker template is validated once here so
// misconfiguration surfaces before any slot starts.
func New(opts Options) (*Supervisor, error) {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if err := opts.Worker.Validate(); err != nil {
		return nil, err
	}
	if opts.Worker.Stats == nil {
		opts.Worker.Stats = &worker.Stats{}
	}

	return &Supervisor{
		opts:  opts,
		stats: opts.Worker.Stats,
		log:   logging.Get("supervisor"),
	}, nil
}

// Stats returns a point-in-time view of the aggregated worker counters.
func (s *Supervisor) Stats() worker.StatsView {
	return s.stats.View()
}

// Run fills the worker slots and keeps them filled until ctx is
// cancelled. It returns nil on cancellation, ErrRootLost if the guarded
// root vanished, or the first structural worker failure.
func (s *Supervisor) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// A structural failure in any slot takes the whole run down.
	var (
		failMu sync.Mutex
		fail   error
	)
	abort := func(err error) {
		failMu.Lock()
		if fail == nil {
			fail = err
		}
		failMu.Unlock()
		cancel()
	}

	if s.opts.GuardRoot {
		stop, err := s.guardRoot(ctx, abort)
		if err != nil {
			return err
		}
		defer stop()
	}

	s.log.Info("starting workers", "count", s.opts.Workers, "root", s.opts.Worker.Root)

	var wg sync.WaitGroup
	for slot := 0; slot < s.opts.Workers; slot++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			s.runSlot(ctx, slot, abort)
		}(slot)
	}
	wg.Wait()

	failMu.Lock()
	defer failMu.Unlock()
	return fail
}

// runSlot keeps one slot occupied: launch a worker, and when it exits
// without being cancelled, launch a replacement.
func (s *Supervisor) runSlot(ctx context.Context, slot int, abort func(error)) {
	for {
		opts := s.opts.Worker
		opts.Rand = nil // each worker seeds its own source

		w, err := worker.New(opts)
		if err != nil {
			abort(err)
			return
		}

		err = w.Run(ctx)
		if ctx.Err() != nil {
			return
		}

		if errors.Is(err, tree.ErrForeignEntry) {
			// Tree topology is no longer trustworthy; continuing any
			// worker would be unsafe.
			s.log.Error("structural failure, stopping all workers", "slot", slot, "error", err)
			abort(err)
			return
		}

		s.log.Warn("worker exited, replenishing slot", "slot", slot, "error", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(restartDelay):
		}
	}
}

// guardRoot watches the root's parent directory and aborts the run if the
// root itself is removed or renamed away.
func (s *Supervisor) guardRoot(ctx context.Context, abort func(error)) (func(), error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	root, err := filepath.Abs(s.opts.Worker.Root)
	if err != nil {
		_ = fsw.Close()
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(root)); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-fsw.Events:
				if !ok {
					return
				}
				if ev.Name == root && ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
					s.log.Error("workload root removed from outside", "root", root)
					abort(ErrRootLost)
					return
				}
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				s.log.Warn("root watcher error", "error", err)
			}
		}
	}()

	return func() { _ = fsw.Close() }, nil
}
