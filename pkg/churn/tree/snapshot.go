// Package tree maintains a per-worker in-memory approximation of the
// directory tree under the workload root: the known set of directories,
// the regular-file count, and the total byte usage.
//
// A snapshot is rebuilt wholesale by Rescan and nudged between rescans by
// applying the incremental effect of each completed action. Counts are
// exact under a single worker and drift under concurrent workers; the
// worker loop reconciles by rescanning whenever an action fails.
package tree

import (
	"math/rand"

	"github.com/jamesainslie/churn/pkg/churn/types"
)

// Snapshot is one worker's view of the tree. It is owned by exactly one
// worker and never shared, so no locking is needed.
type Snapshot struct {
	// Dirs holds every known directory as a path relative to the root.
	// The root itself is not listed.
	Dirs []string

	// FileCount is the number of regular files below the root.
	FileCount int64

	// DiskUsage is the sum of regular-file sizes in bytes.
	DiskUsage int64
}

// Apply folds the effect of one successful action into the snapshot.
// It must not be called for an action that reported an error, and it must
// not be called with a delta whose NeedRescan flag is set.
func (s *Snapshot) Apply(d types.Delta) {
	s.FileCount += d.Files
	s.DiskUsage += d.Bytes
}

// AddDir records a newly created directory without rescanning.
func (s *Snapshot) AddDir(rel string) {
	s.Dirs = append(s.Dirs, rel)
}

// RandomDir returns a uniformly chosen known directory, relative to the
// root. The second return is false when no directories are known.
func (s *Snapshot) RandomDir(rng *rand.Rand) (string, bool) {
	if len(s.Dirs) == 0 {
		return "", false
	}
	return s.Dirs[rng.Intn(len(s.Dirs))], true
}
