package tree

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
)

// pickRetries bounds how many directories PickFile samples before
// concluding the tree is currently directory-heavy and file-sparse.
// Its role is bounding worst-case selection latency, not correctness.
const pickRetries = 15

// ErrStale signals that a directory chosen from the snapshot no longer
// exists on disk: another worker removed it since the last rescan. The
// caller should rescan and retry the pick once.
var ErrStale = errors.New("picked directory no longer exists")

// PickDir selects a directory uniformly among the known directories and
// verifies it still exists on disk. The boolean is false when the
// snapshot knows no directories at all; ErrStale reports a pick that was
// raced away by another worker.
func PickDir(root string, snap *Snapshot, rng *rand.Rand) (string, bool, error) {
	rel, ok := snap.RandomDir(rng)
	if !ok {
		return "", false, nil
	}

	info, err := os.Stat(filepath.Join(root, rel))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, ErrStale
		}
		return "", false, err
	}
	if !info.IsDir() {
		// A file now sits where a directory used to be.
		return "", false, ErrStale
	}

	return rel, true, nil
}

// PickFile selects a random known file: it samples a random directory
// (the root included), lists its immediate regular files, and returns a
// random one as a path relative to root. Empty directories are retried
// against a fresh sample up to pickRetries times; running out of retries
// means "no candidate file right now" and is reported as ok=false, not
// as an error.
func PickFile(root string, snap *Snapshot, rng *rand.Rand) (string, bool, error) {
	for attempt := 0; attempt < pickRetries; attempt++ {
		// Index len(Dirs) stands for the root itself.
		dir := ""
		if n := len(snap.Dirs); n > 0 {
			if i := rng.Intn(n + 1); i < n {
				dir = snap.Dirs[i]
			}
		}

		names, err := ListFiles(root, dir)
		if err != nil {
			if os.IsNotExist(err) {
				// Directory raced away; sample another one.
				continue
			}
			return "", false, err
		}
		if len(names) == 0 {
			continue
		}

		return filepath.Join(dir, names[rng.Intn(len(names))]), true, nil
	}

	return "", false, nil
}
