package tree

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/jamesainslie/churn/pkg/churn/namegen"
	"github.com/jamesainslie/churn/pkg/churn/types"
)

// buildTree creates a small known tree:
//
//	root/
//	  a.txt (100 bytes)
//	  sub/
//	    b.txt (250 bytes)
//	    nested/
//	      c.txt (50 bytes)
//	  empty/
func buildTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	for _, dir := range []string{
		filepath.Join(root, "sub", "nested"),
		filepath.Join(root, "empty"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	files := []struct {
		path string
		size int
	}{
		{filepath.Join(root, "a.txt"), 100},
		{filepath.Join(root, "sub", "b.txt"), 250},
		{filepath.Join(root, "sub", "nested", "c.txt"), 50},
	}
	for _, f := range files {
		if err := os.WriteFile(f.path, make([]byte, f.size), 0o644); err != nil {
			t.Fatalf("write %s: %v", f.path, err)
		}
	}

	return root
}

func TestRescan(t *testing.T) {
	root := buildTree(t)

	snap, err := Rescan(root)
	if err != nil {
		t.Fatalf("Rescan failed: %v", err)
	}

	if snap.FileCount != 3 {
		t.Errorf("FileCount = %d, want 3", snap.FileCount)
	}
	if snap.DiskUsage != 400 {
		t.Errorf("DiskUsage = %d, want 400", snap.DiskUsage)
	}

	got := append([]string(nil), snap.Dirs...)
	sort.Strings(got)
	want := []string{"empty", "sub", filepath.Join("sub", "nested")}
	if len(got) != len(want) {
		t.Fatalf("Dirs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Dirs[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	for _, d := range got {
		if filepath.IsAbs(d) {
			t.Errorf("directory %q should be relative to root", d)
		}
	}
}

// Rescanning twice with no intervening mutation must yield identical values.
func TestRescanIdempotent(t *testing.T) {
	root := buildTree(t)

	first, err := Rescan(root)
	if err != nil {
		t.Fatalf("first Rescan: %v", err)
	}
	second, err := Rescan(root)
	if err != nil {
		t.Fatalf("second Rescan: %v", err)
	}

	if first.FileCount != second.FileCount || first.DiskUsage != second.DiskUsage {
		t.Errorf("counts differ: (%d, %d) vs (%d, %d)",
			first.FileCount, first.DiskUsage, second.FileCount, second.DiskUsage)
	}
	if len(first.Dirs) != len(second.Dirs) {
		t.Errorf("dir counts differ: %d vs %d", len(first.Dirs), len(second.Dirs))
	}
}

func TestRescanRejectsSymlink(t *testing.T) {
	root := buildTree(t)
	if err := os.Symlink(filepath.Join(root, "a.txt"), filepath.Join(root, "link")); err != nil {
		t.Skipf("symlinks not supported here: %v", err)
	}

	_, err := Rescan(root)
	if !errors.Is(err, ErrForeignEntry) {
		t.Errorf("Rescan error = %v, want ErrForeignEntry", err)
	}
}

func TestRescanEmptyRoot(t *testing.T) {
	snap, err := Rescan(t.TempDir())
	if err != nil {
		t.Fatalf("Rescan failed: %v", err)
	}
	if len(snap.Dirs) != 0 || snap.FileCount != 0 || snap.DiskUsage != 0 {
		t.Errorf("empty root snapshot not zero: %+v", snap)
	}
}

// Applying the deltas of a sequence of actions must land on the same
// counts a fresh rescan reports.
func TestApplyMatchesRescan(t *testing.T) {
	root := buildTree(t)

	snap, err := Rescan(root)
	if err != nil {
		t.Fatalf("Rescan failed: %v", err)
	}

	// Create a 500-byte file.
	if err := os.WriteFile(filepath.Join(root, "sub", "new.txt"), make([]byte, 500), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	snap.Apply(types.Delta{Files: 1, Bytes: 500})

	// Append 2048 bytes to a.txt (Scenario C shape).
	f, err := os.OpenFile(filepath.Join(root, "a.txt"), os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.Write(make([]byte, 2048)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	snap.Apply(types.Delta{Bytes: 2048})

	// Remove c.txt.
	if err := os.Remove(filepath.Join(root, "sub", "nested", "c.txt")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	snap.Apply(types.Delta{Files: -1, Bytes: -50})

	fresh, err := Rescan(root)
	if err != nil {
		t.Fatalf("fresh Rescan failed: %v", err)
	}

	if snap.FileCount != fresh.FileCount {
		t.Errorf("FileCount drifted: applied %d, rescan %d", snap.FileCount, fresh.FileCount)
	}
	if snap.DiskUsage != fresh.DiskUsage {
		t.Errorf("DiskUsage drifted: applied %d, rescan %d", snap.DiskUsage, fresh.DiskUsage)
	}
}

func TestApplyAppendDelta(t *testing.T) {
	snap := &Snapshot{FileCount: 1, DiskUsage: 10000}
	snap.Apply(types.Delta{Bytes: 2048})

	if snap.DiskUsage != 12048 {
		t.Errorf("DiskUsage = %d, want 12048", snap.DiskUsage)
	}
	if snap.FileCount != 1 {
		t.Errorf("FileCount changed on append: %d", snap.FileCount)
	}
}

func TestSummaryFormat(t *testing.T) {
	snap := &Snapshot{Dirs: []string{"a", "b"}, FileCount: 3, DiskUsage: 400}
	want := "(2 dirs, 400 bytes in 3 files)"
	if got := snap.Summary(); got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
}

func TestPickDirNoneKnown(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	_, ok, err := PickDir(t.TempDir(), &Snapshot{}, rng)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("PickDir reported a directory from an empty snapshot")
	}
}

func TestPickDirStale(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	snap := &Snapshot{Dirs: []string{"vanished"}}

	_, _, err := PickDir(t.TempDir(), snap, rng)
	if !errors.Is(err, ErrStale) {
		t.Errorf("PickDir error = %v, want ErrStale", err)
	}
}

func TestPickDirReturnsExisting(t *testing.T) {
	root := buildTree(t)
	rng := rand.New(rand.NewSource(1))
	snap := &Snapshot{Dirs: []string{"sub"}}

	dir, ok, err := PickDir(root, snap, rng)
	if err != nil || !ok {
		t.Fatalf("PickDir = (%q, %v, %v)", dir, ok, err)
	}
	if dir != "sub" {
		t.Errorf("PickDir = %q, want sub", dir)
	}
}

func TestPickFile(t *testing.T) {
	root := buildTree(t)
	rng := rand.New(rand.NewSource(1))
	snap, err := Rescan(root)
	if err != nil {
		t.Fatalf("Rescan failed: %v", err)
	}

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		path, ok, err := PickFile(root, snap, rng)
		if err != nil {
			t.Fatalf("PickFile failed: %v", err)
		}
		if !ok {
			continue
		}
		if filepath.IsAbs(path) {
			t.Fatalf("PickFile returned absolute path %q", path)
		}
		if strings.Contains(path, "..") {
			t.Fatalf("PickFile returned traversal path %q", path)
		}
		if _, err := os.Stat(filepath.Join(root, path)); err != nil {
			t.Fatalf("picked file does not exist: %v", err)
		}
		seen[path] = true
	}
	if len(seen) == 0 {
		t.Fatal("PickFile never found a file in a tree with three files")
	}
}

func TestPickFileSkipsTempNames(t *testing.T) {
	root := t.TempDir()
	scratch := "doomed" + namegen.TempSuffix
	if err := os.WriteFile(filepath.Join(root, scratch), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	rng := rand.New(rand.NewSource(1))
	_, ok, err := PickFile(root, &Snapshot{}, rng)
	if err != nil {
		t.Fatalf("PickFile failed: %v", err)
	}
	if ok {
		t.Error("PickFile returned a rewrite scratch file")
	}
}

func TestPickFileExhaustsOnFileSparseTree(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "only", "dirs", "here"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	snap, err := Rescan(root)
	if err != nil {
		t.Fatalf("Rescan failed: %v", err)
	}

	rng := rand.New(rand.NewSource(1))
	_, ok, err := PickFile(root, snap, rng)
	if err != nil {
		t.Fatalf("exhaustion must not be an error, got %v", err)
	}
	if ok {
		t.Error("PickFile found a file in a fileless tree")
	}
}

func TestListFilesExcludesDirsAndTemps(t *testing.T) {
	root := buildTree(t)
	if err := os.WriteFile(filepath.Join(root, "sub", "w"+namegen.TempSuffix), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	names, err := ListFiles(root, "sub")
	if err != nil {
		t.Fatalf("ListFiles failed: %v", err)
	}
	if len(names) != 1 || names[0] != "b.txt" {
		t.Errorf("ListFiles = %v, want [b.txt]", names)
	}
}

func TestHeadroom(t *testing.T) {
	free, err := Headroom(t.TempDir())
	if err != nil {
		t.Fatalf("Headroom failed: %v", err)
	}
	if free == 0 {
		t.Error("Headroom reported zero free bytes on a writable temp dir")
	}
}
