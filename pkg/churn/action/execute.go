package action

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/jamesainslie/churn/pkg/churn/namegen"
	"github.com/jamesainslie/churn/pkg/churn/types"
)

// Body-generation bounds for mkfile, append, and rewrite. Chunk counts
// are randomized per action, so file sizes are roughly uniform up to
// maxChunks*chunkSize.
const (
	chunkSize = 1024
	maxChunks = 64
)

// ErrVanished reports that an action's target disappeared between pick
// and execution, removed by a racing worker. The caller recovers by
// rescanning; this is expected under multi-worker operation.
var ErrVanished = errors.New("target vanished")

// ErrEscape reports an operand that would resolve outside the workload
// root. Operands come from the worker's own snapshot, so this indicates
// a bug rather than a runtime condition.
var ErrEscape = errors.New("path escapes workload root")

// Result is what an executor hands back to the worker loop: the
// incremental effect to apply, and the path (relative to root) or status
// text for the progress line.
type Result struct {
	Delta types.Delta
	Path  string
}

// underRoot resolves rel against root and rejects any operand that would
// land outside the tree.
func underRoot(root, rel string) (string, error) {
	p := filepath.Join(root, rel)
	if p != root && !strings.HasPrefix(p, root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrEscape, rel)
	}
	return p, nil
}

// randBody returns 1..chunks chunks of pseudo-random text.
func randBody(rng *rand.Rand, chunks int) []byte {
	if chunks < 1 {
		chunks = 1
	}
	n := 1 + rng.Intn(chunks)
	body := make([]byte, 0, n*chunkSize)
	for i := 0; i < n; i++ {
		body = append(body, namegen.Token(rng, chunkSize-1)...)
		body = append(body, '\n')
	}
	return body
}

// MakeDir creates a freshly named subdirectory of parent (empty string
// means the root itself). Name collisions and create failures are
// tolerated: they are rare, harmless, and not worth detecting up front,
// so the result simply carries a zero delta.
func MakeDir(root, parent string, rng *rand.Rand) (Result, error) {
	rel := filepath.Join(parent, namegen.Name(rng))
	abs, err := underRoot(root, rel)
	if err != nil {
		return Result{}, err
	}

	if err := os.Mkdir(abs, 0o755); err != nil {
		return Result{Path: "skipped"}, nil
	}

	return Result{
		Delta: types.Delta{Dirs: 1},
		Path:  rel,
	}, nil
}

// RemoveDirTree recursively deletes dir and everything under it. The
// number of removed files and bytes is unknown, so the delta demands a
// full rescan instead of guessing.
func RemoveDirTree(root, dir string) (Result, error) {
	abs, err := underRoot(root, dir)
	if err != nil {
		return Result{}, err
	}
	if abs == root {
		return Result{}, fmt.Errorf("%w: refusing to remove the root", ErrEscape)
	}

	if err := os.RemoveAll(abs); err != nil {
		return Result{}, fmt.Errorf("removing %s: %w", dir, err)
	}

	return Result{
		Delta: types.Delta{NeedRescan: true},
		Path:  dir,
	}, nil
}

// MakeFile creates a freshly named file in dir and fills it with a
// random number of text chunks.
func MakeFile(root, dir string, rng *rand.Rand) (Result, error) {
	rel := filepath.Join(dir, namegen.Name(rng))
	abs, err := underRoot(root, rel)
	if err != nil {
		return Result{}, err
	}

	body := randBody(rng, maxChunks)
	if err := os.WriteFile(abs, body, 0o644); err != nil {
		if os.IsNotExist(err) {
			// The parent directory was removed under us.
			return Result{}, fmt.Errorf("creating %s: %w", rel, ErrVanished)
		}
		return Result{}, fmt.Errorf("creating %s: %w", rel, err)
	}

	return Result{
		Delta: types.Delta{Files: 1, Bytes: int64(len(body))},
		Path:  rel,
	}, nil
}

// RemoveFile records the file's size and deletes it.
func RemoveFile(root, rel string) (Result, error) {
	abs, err := underRoot(root, rel)
	if err != nil {
		return Result{}, err
	}

	info, err := os.Lstat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{}, fmt.Errorf("removing %s: %w", rel, ErrVanished)
		}
		return Result{}, fmt.Errorf("stat %s: %w", rel, err)
	}

	if err := os.Remove(abs); err != nil {
		if os.IsNotExist(err) {
			return Result{}, fmt.Errorf("removing %s: %w", rel, ErrVanished)
		}
		return Result{}, fmt.Errorf("removing %s: %w", rel, err)
	}

	return Result{
		Delta: types.Delta{Files: -1, Bytes: -info.Size()},
		Path:  rel,
	}, nil
}

// AppendFile appends a bounded random amount of text to an existing file.
func AppendFile(root, rel string, rng *rand.Rand) (Result, error) {
	abs, err := underRoot(root, rel)
	if err != nil {
		return Result{}, err
	}

	f, err := os.OpenFile(abs, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{}, fmt.Errorf("appending to %s: %w", rel, ErrVanished)
		}
		return Result{}, fmt.Errorf("appending to %s: %w", rel, err)
	}

	body := randBody(rng, maxChunks)
	n, err := f.Write(body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		// Bytes may have reached the file before the failure; let the
		// rescan sort the accounting out.
		return Result{}, fmt.Errorf("appending to %s: %w", rel, err)
	}

	return Result{
		Delta: types.Delta{Bytes: int64(n)},
		Path:  rel,
	}, nil
}

// RewriteFile replaces a file's contents with a similar-sized body. The
// replacement is written to a scratch sibling and renamed over the
// original in one step, so an interrupted rewrite never leaves a
// half-written file under the real name.
func RewriteFile(root, rel string, rng *rand.Rand) (Result, error) {
	abs, err := underRoot(root, rel)
	if err != nil {
		return Result{}, err
	}

	info, err := os.Lstat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{}, fmt.Errorf("rewriting %s: %w", rel, ErrVanished)
		}
		return Result{}, fmt.Errorf("stat %s: %w", rel, err)
	}
	before := info.Size()

	// Aim for a body on the same scale as the original.
	chunks := int(before/chunkSize) + 1
	if chunks > maxChunks {
		chunks = maxChunks
	}
	body := randBody(rng, chunks)

	tmp := abs + namegen.TempSuffix
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return Result{}, fmt.Errorf("rewriting %s: %w", rel, err)
	}

	if err := os.Rename(tmp, abs); err != nil {
		_ = os.Remove(tmp)
		return Result{}, fmt.Errorf("rewriting %s: %w", rel, err)
	}

	return Result{
		Delta: types.Delta{Bytes: int64(len(body)) - before},
		Path:  rel,
	}, nil
}
