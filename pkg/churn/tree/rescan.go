package tree

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"

	"github.com/jamesainslie/churn/pkg/churn/namegen"
)

// ErrForeignEntry signals a filesystem entry type the workload never
// creates, such as a symbolic link. The tree has been tampered with from
// outside and its topology can no longer be trusted.
var ErrForeignEntry = errors.New("foreign entry in workload tree")

// Rescan walks the whole tree under root and builds a fresh snapshot.
// The result fully replaces any prior snapshot; a rescan is never merged
// into existing state.
//
// Symbolic links and other non-regular entries abort the walk with
// ErrForeignEntry. Rewrite scratch files are counted like any other
// regular file; they occupy real disk space even if a racing worker is
// about to rename them away.
func Rescan(root string) (*Snapshot, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}

	var (
		fileCount atomic.Int64
		diskUsage atomic.Int64
		dirsMu    sync.Mutex
		dirs      []string
	)

	conf := fastwalk.Config{
		Follow: false, // Symlinks are foreign entries, never traversed.
	}

	err = fastwalk.Walk(&conf, absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walking %s: %w", path, err)
		}

		if path == absRoot {
			return nil
		}

		switch {
		case d.IsDir():
			rel := strings.TrimPrefix(path, absRoot+string(filepath.Separator))
			dirsMu.Lock()
			dirs = append(dirs, rel)
			dirsMu.Unlock()
		case d.Type().IsRegular():
			info, err := d.Info()
			if err != nil {
				// Vanished mid-walk under a racing worker; skip it.
				if os.IsNotExist(err) {
					return nil
				}
				return fmt.Errorf("stat %s: %w", path, err)
			}
			fileCount.Add(1)
			diskUsage.Add(info.Size())
		default:
			return fmt.Errorf("%w: %s (%s)", ErrForeignEntry, path, d.Type())
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		Dirs:      dirs,
		FileCount: fileCount.Load(),
		DiskUsage: diskUsage.Load(),
	}, nil
}

// Summary renders the rescan summary line written to stderr after every
// rebuild: "(N dirs, N bytes in N files)".
func (s *Snapshot) Summary() string {
	return fmt.Sprintf("(%d dirs, %d bytes in %d files)", len(s.Dirs), s.DiskUsage, s.FileCount)
}

// ListFiles returns the names of the immediate regular files in dir
// (relative to root; empty string means the root itself), excluding
// rewrite scratch files.
func ListFiles(root, dir string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(root, dir))
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if namegen.IsTemp(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}
