// Package action chooses and executes the tree mutations that make up the
// workload: directory create/remove, file create/remove, append, and
// rewrite.
//
// Selection follows a weighted random draw, but resource-limit enforcement
// and prerequisite availability take priority over the statistical mix:
// the configured probabilities are a target distribution under normal
// conditions, not a guarantee.
package action

import (
	"math/rand"

	"github.com/jamesainslie/churn/pkg/churn/tree"
	"github.com/jamesainslie/churn/pkg/churn/types"
)

// Select picks the action for this tick. hasDir and hasFile report whether
// the caller's candidate picks succeeded; a missing candidate forces the
// corresponding create action, and an exceeded ceiling forces the
// corresponding removal.
//
// The evaluation order is fixed: mkdir, rmdir, mkfile, rmfile, append,
// with rewrite as the fallback absorbing the remaining probability mass.
func Select(rng *rand.Rand, probs types.Probabilities, snap *tree.Snapshot, limits types.Limits, hasDir, hasFile bool) types.Action {
	r := rng.Float64()

	// A tree with no directories gives rmdir nothing to remove; grow first.
	if !hasDir {
		return types.ActionMkdir
	}
	if r -= probs.Mkdir; r < 0 {
		return types.ActionMkdir
	}

	if len(snap.Dirs) > limits.MaxDirs {
		return types.ActionRmdir
	}
	if r -= probs.Rmdir; r < 0 {
		return types.ActionRmdir
	}

	// No candidate file means the file-targeting actions below would all
	// miss; create one instead.
	if !hasFile {
		return types.ActionMkfile
	}
	if r -= probs.Mkfile; r < 0 {
		return types.ActionMkfile
	}

	if snap.DiskUsage > limits.MaxBytes {
		return types.ActionRmfile
	}
	if r -= probs.Rmfile; r < 0 {
		return types.ActionRmfile
	}

	if r -= probs.Append; r < 0 {
		return types.ActionAppend
	}

	return types.ActionRewrite
}
