package action

import (
	"math/rand"
	"testing"

	"github.com/jamesainslie/churn/pkg/churn/tree"
	"github.com/jamesainslie/churn/pkg/churn/types"
)

var defaultProbs = types.Probabilities{
	Mkdir:  0.02,
	Rmdir:  0.005,
	Mkfile: 0.2,
	Rmfile: 0.07,
	Append: 0.3,
}

var looseLimits = types.Limits{MaxDirs: 8000, MaxBytes: 10 * types.GiB}

// With no directory candidate, mkdir must win every draw.
func TestSelectForcesMkdirWithoutDirs(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	snap := &tree.Snapshot{}

	for i := 0; i < 1000; i++ {
		got := Select(rng, defaultProbs, snap, looseLimits, false, false)
		if got != types.ActionMkdir {
			t.Fatalf("draw %d: got %v, want mkdir", i, got)
		}
	}
}

// Directory count above the ceiling must force rmdir on every draw.
func TestSelectForcesRmdirOverCeiling(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	snap := &tree.Snapshot{Dirs: []string{"a", "b", "c", "d", "e", "f"}}
	limits := types.Limits{MaxDirs: 5, MaxBytes: 10 * types.GiB}

	for i := 0; i < 1000; i++ {
		got := Select(rng, defaultProbs, snap, limits, true, true)
		if got != types.ActionRmdir {
			t.Fatalf("draw %d: got %v, want rmdir", i, got)
		}
	}
}

// Disk usage above the ceiling forces rmfile, unless the rmdir override
// fires first in priority order.
func TestSelectForcesRmfileOverUsage(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	snap := &tree.Snapshot{Dirs: []string{"a"}, DiskUsage: 11 * types.GiB}

	for i := 0; i < 1000; i++ {
		got := Select(rng, defaultProbs, snap, looseLimits, true, true)
		if got != types.ActionRmfile {
			t.Fatalf("draw %d: got %v, want rmfile", i, got)
		}
	}
}

func TestSelectRmdirOverridePrecedesRmfile(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	snap := &tree.Snapshot{
		Dirs:      []string{"a", "b", "c", "d", "e", "f"},
		DiskUsage: 11 * types.GiB,
	}
	limits := types.Limits{MaxDirs: 5, MaxBytes: 10 * types.GiB}

	for i := 0; i < 1000; i++ {
		got := Select(rng, defaultProbs, snap, limits, true, true)
		if got != types.ActionRmdir {
			t.Fatalf("draw %d: got %v, want rmdir to take priority", i, got)
		}
	}
}

// With no candidate file, the file-targeting actions are unreachable and
// mkfile is forced unless an earlier step claims the draw.
func TestSelectForcesMkfileWithoutFiles(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	snap := &tree.Snapshot{Dirs: []string{"a"}}
	probs := types.Probabilities{} // no mass on mkdir or rmdir

	for i := 0; i < 1000; i++ {
		got := Select(rng, probs, snap, looseLimits, true, false)
		if got != types.ActionMkfile {
			t.Fatalf("draw %d: got %v, want mkfile", i, got)
		}
	}
}

// Zero explicit probabilities leave all mass on the rewrite fallback.
func TestSelectRewriteFallback(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	snap := &tree.Snapshot{Dirs: []string{"a"}}

	for i := 0; i < 1000; i++ {
		got := Select(rng, types.Probabilities{}, snap, looseLimits, true, true)
		if got != types.ActionRewrite {
			t.Fatalf("draw %d: got %v, want rewrite", i, got)
		}
	}
}

// Under normal conditions the realized mix should track the configured
// weights. Loose tolerances keep this robust against seed choice.
func TestSelectApproximatesConfiguredMix(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	snap := &tree.Snapshot{Dirs: []string{"a"}}

	const draws = 100000
	counts := make(map[types.Action]int)
	for i := 0; i < draws; i++ {
		counts[Select(rng, defaultProbs, snap, looseLimits, true, true)]++
	}

	check := func(a types.Action, want float64) {
		got := float64(counts[a]) / draws
		if got < want-0.02 || got > want+0.02 {
			t.Errorf("%v frequency = %.4f, want about %.4f", a, got, want)
		}
	}
	check(types.ActionMkdir, defaultProbs.Mkdir)
	check(types.ActionRmdir, defaultProbs.Rmdir)
	check(types.ActionMkfile, defaultProbs.Mkfile)
	check(types.ActionRmfile, defaultProbs.Rmfile)
	check(types.ActionAppend, defaultProbs.Append)
	check(types.ActionRewrite, defaultProbs.Rewrite())
}
