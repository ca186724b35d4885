//go:build !unix

package tree

// Headroom is not implemented on this platform; callers treat a negative
// value as "unknown" and skip the low-space warning.
func Headroom(path string) (int64, error) {
	return -1, nil
}
