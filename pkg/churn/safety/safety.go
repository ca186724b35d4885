// Package safety validates the workload root before any worker touches
// it. The generator creates and deletes aggressively inside the root, so
// pointing it at a shallow or system-critical path must fail fast rather
// than be discovered through damage.
package safety

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// minDepth is the minimum number of path segments the root must sit
// below the filesystem root. It keeps a mistyped --root from landing on
// something like /home or /var.
const minDepth = 3

// protectedPaths are trees the root may never equal or contain.
var protectedPaths = []string{
	"/bin",
	"/sbin",
	"/usr",
	"/lib",
	"/lib64",
	"/etc",
	"/boot",
	"/sys",
	"/proc",
	"/dev",
	"/root",
}

var (
	// ErrUnsafeRoot reports a root that fails a safety check.
	ErrUnsafeRoot = errors.New("unsafe workload root")

	// ErrNotDirectory reports a root path occupied by a non-directory.
	ErrNotDirectory = errors.New("workload root is not a directory")
)

// ValidateRoot checks that path is an acceptable workload root and
// returns its absolute form. When create is true a missing root is
// created with its parents; otherwise it must already exist.
func ValidateRoot(path string, create bool) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrUnsafeRoot)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving root: %w", err)
	}
	abs = filepath.Clean(abs)

	if abs == string(filepath.Separator) {
		return "", fmt.Errorf("%w: refusing the filesystem root", ErrUnsafeRoot)
	}
	if depth(abs) < minDepth {
		return "", fmt.Errorf("%w: %s is too close to the filesystem root (need at least %d path segments)",
			ErrUnsafeRoot, abs, minDepth)
	}
	for _, p := range protectedPaths {
		if abs == p || strings.HasPrefix(abs, p+string(filepath.Separator)) {
			return "", fmt.Errorf("%w: %s is under protected path %s", ErrUnsafeRoot, abs, p)
		}
		if strings.HasPrefix(p, abs+string(filepath.Separator)) {
			return "", fmt.Errorf("%w: %s contains protected path %s", ErrUnsafeRoot, abs, p)
		}
	}

	info, err := os.Stat(abs)
	switch {
	case err == nil:
		if !info.IsDir() {
			return "", fmt.Errorf("%w: %s", ErrNotDirectory, abs)
		}
	case os.IsNotExist(err):
		if !create {
			return "", fmt.Errorf("workload root %s does not exist", abs)
		}
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return "", fmt.Errorf("creating workload root: %w", err)
		}
	default:
		return "", fmt.Errorf("stat workload root: %w", err)
	}

	if !writable(abs) {
		return "", fmt.Errorf("%w: %s is not writable", ErrUnsafeRoot, abs)
	}
	return abs, nil
}

// depth counts the path segments of an absolute, cleaned path.
func depth(abs string) int {
	trimmed := strings.Trim(abs, string(filepath.Separator))
	if trimmed == "" {
		return 0
	}
	return strings.Count(trimmed, string(filepath.Separator)) + 1
}

// writable probes the directory by creating and removing a scratch file.
func writable(dir string) bool {
	probe := filepath.Join(dir, fmt.Sprintf(".churn-probe-%d", os.Getpid()))
	f, err := os.Create(probe)
	if err != nil {
		return false
	}
	_ = f.Close()
	_ = os.Remove(probe)
	return true
}
