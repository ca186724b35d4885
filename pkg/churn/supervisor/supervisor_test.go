package supervisor

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/jamesainslie/churn/pkg/churn/types"
	"github.com/jamesainslie/churn/pkg/churn/worker"
)

// io.Discard is safe for concurrent writers, unlike a bytes.Buffer shared
// across worker slots.
func testWorkerOptions(t *testing.T, root string) worker.Options {
	t.Helper()
	return worker.Options{
		Root:          root,
		Probabilities: types.Probabilities{Mkfile: 0.4, Append: 0.3},
		Limits:        types.Limits{MaxDirs: 100, MaxBytes: types.GiB},
		MaxSleep:      time.Millisecond,
		Progress:      io.Discard,
		Diag:          io.Discard,
	}
}

func TestNewDefaultsWorkerCount(t *testing.T) {
	s, err := New(Options{Worker: testWorkerOptions(t, t.TempDir())})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if s.opts.Workers != 1 {
		t.Errorf("Workers = %d, want 1", s.opts.Workers)
	}
}

func TestNewRejectsBadWorkerOptions(t *testing.T) {
	if _, err := New(Options{Worker: worker.Options{}}); err == nil {
		t.Error("worker template without a root should be rejected")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	s, err := New(Options{
		Workers: 3,
		Worker:  testWorkerOptions(t, t.TempDir()),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// Let the workers do some ticks.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v on cancel, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not stop after cancel")
	}

	if s.Stats().Ticks == 0 {
		t.Error("no ticks recorded across three workers")
	}
}

func TestGuardRootAbortsWhenRootRemoved(t *testing.T) {
	parent := t.TempDir()
	root := parent + "/tree"
	if err := os.Mkdir(root, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	s, err := New(Options{
		Workers:   1,
		Worker:    testWorkerOptions(t, root),
		GuardRoot: true,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	if err := os.RemoveAll(root); err != nil {
		t.Fatalf("removing root: %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, ErrRootLost) {
			t.Errorf("Run returned %v, want ErrRootLost", err)
		}
	case <-time.After(8 * time.Second):
		t.Fatal("supervisor did not notice root removal")
	}
}
