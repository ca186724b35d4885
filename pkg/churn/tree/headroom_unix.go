//go:build unix

package tree

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Headroom reports the free bytes available to unprivileged users on the
// volume holding path. The byte ceiling in the worker's limits is the
// authoritative bound; this is only used to warn when the volume itself
// is close to full.
func Headroom(path string) (int64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	return int64(st.Bavail) * int64(st.Bsize), nil
}
