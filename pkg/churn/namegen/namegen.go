// Package namegen generates random names for directories and files created
// by the workload. Generated names are never checked for uniqueness before
// use; collisions are rare enough that the executors simply tolerate the
// resulting create failure.
package namegen

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"strings"
)

// alphabet is the fixed character set all generated names draw from.
const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// TokenLength is the length of generated directory and file names.
const TokenLength = 12

// TempSuffix marks a rewrite scratch file. Files carrying it are internal
// to an in-flight rewrite and are excluded from target selection.
const TempSuffix = ".churn-tmp"

// Token returns a random name of length n drawn from the fixed alphabet.
func Token(rng *rand.Rand, n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(alphabet[rng.Intn(len(alphabet))])
	}
	return b.String()
}

// Name returns a random name of the standard token length.
func Name(rng *rand.Rand) string {
	return Token(rng, TokenLength)
}

// IsTemp reports whether name is a rewrite scratch file.
func IsTemp(name string) bool {
	return strings.HasSuffix(name, TempSuffix)
}

// NewRand returns a math/rand source seeded from the OS entropy pool, so
// concurrent workers do not share a sequence. Each worker owns one; the
// returned source is not safe for concurrent use.
func NewRand() *rand.Rand {
	var seed [8]byte
	if _, err := crand.Read(seed[:]); err != nil {
		// Entropy pool failures are effectively impossible on supported
		// platforms; a zero seed still produces a working generator.
		return rand.New(rand.NewSource(0))
	}
	return rand.New(rand.NewSource(int64(binary.LittleEndian.Uint64(seed[:]))))
}
