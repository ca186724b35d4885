// Package types provides core data types for the churn workload generator.
// It defines the action vocabulary, the incremental effect of a completed
// action, resource ceilings, and utilities for parsing and formatting byte
// sizes.
package types

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Size constants for binary (IEC) units.
const (
	KiB int64 = 1024
	MiB int64 = 1024 * KiB
	GiB int64 = 1024 * MiB
	TiB int64 = 1024 * GiB
)

// Action identifies one of the six tree mutations a worker can perform.
type Action int

// The full action vocabulary. ActionRewrite is the fallback that absorbs
// all probability mass not claimed by the other five.
const (
	ActionMkdir Action = iota
	ActionRmdir
	ActionMkfile
	ActionRmfile
	ActionAppend
	ActionRewrite
)

// String returns a short human-readable name for the action.
func (a Action) String() string {
	switch a {
	case ActionMkdir:
		return "mkdir"
	case ActionRmdir:
		return "rmdir"
	case ActionMkfile:
		return "mkfile"
	case ActionRmfile:
		return "rmfile"
	case ActionAppend:
		return "append"
	case ActionRewrite:
		return "rewrite"
	default:
		return "unknown"
	}
}

// Delta is the incremental effect of one completed action on a tree
// snapshot. A delta with NeedRescan set carries no counts; the action
// removed an unknown number of entries and the snapshot must be rebuilt.
type Delta struct {
	// Files is the change in regular file count (+1, -1, or 0).
	Files int64

	// Bytes is the change in total disk usage.
	Bytes int64

	// Dirs is the change in directory count (+1 or 0; directory removal
	// always sets NeedRescan instead).
	Dirs int64

	// NeedRescan indicates the effect cannot be expressed incrementally.
	NeedRescan bool
}

// Probabilities holds the configured weight of each explicit action.
// The rewrite action takes the remaining probability mass.
type Probabilities struct {
	Mkdir  float64 `json:"mkdir"`
	Rmdir  float64 `json:"rmdir"`
	Mkfile float64 `json:"mkfile"`
	Rmfile float64 `json:"rmfile"`
	Append float64 `json:"append"`
}

// ErrInvalidProbability indicates a probability outside [0,1] or a sum
// reaching 1, which would leave nothing for the rewrite fallback.
var ErrInvalidProbability = errors.New("invalid probability")

// Validate checks that each probability is in [0,1] and that their sum is
// strictly less than 1.
func (p Probabilities) Validate() error {
	for _, v := range []struct {
		name string
		val  float64
	}{
		{"mkdir", p.Mkdir},
		{"rmdir", p.Rmdir},
		{"mkfile", p.Mkfile},
		{"rmfile", p.Rmfile},
		{"append", p.Append},
	} {
		if v.val < 0 || v.val > 1 {
			return fmt.Errorf("%w: %s=%v not in [0,1]", ErrInvalidProbability, v.name, v.val)
		}
	}
	if sum := p.Mkdir + p.Rmdir + p.Mkfile + p.Rmfile + p.Append; sum >= 1 {
		return fmt.Errorf("%w: sum %v must be < 1", ErrInvalidProbability, sum)
	}
	return nil
}

// Rewrite returns the probability mass left for the rewrite action.
func (p Probabilities) Rewrite() float64 {
	return 1 - (p.Mkdir + p.Rmdir + p.Mkfile + p.Rmfile + p.Append)
}

// Limits holds the resource ceilings enforced by the action selector.
// Both are per-worker views and approximate under multi-worker operation.
type Limits struct {
	// MaxDirs is the directory-count ceiling. Exceeding it forces
	// directory removal.
	MaxDirs int

	// MaxBytes is the disk-usage ceiling in bytes. Exceeding it forces
	// file removal.
	MaxBytes int64
}

// sizePattern matches size strings like "100M", "2G", "500K", "1.5GB", etc.
var sizePattern = regexp.MustCompile(`(?i)^\s*([0-9]+(?:\.[0-9]+)?)\s*([KMGT]?(?:i?B)?)\s*$`)

// ErrInvalidSize indicates that the size string could not be parsed.
var ErrInvalidSize = errors.New("invalid size format")

// ErrNegativeSize indicates that a negative size value was provided.
var ErrNegativeSize = errors.New("size cannot be negative")

// ParseSize parses a human-readable size string and returns the size in
// bytes. It supports plain bytes ("1024"), and K/M/G/T suffixes with
// optional B or iB ("10G", "512MiB"). Decimal values are truncated to the
// nearest byte.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidSize)
	}

	if strings.HasPrefix(s, "-") {
		return 0, ErrNegativeSize
	}

	matches := sizePattern.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	suffix := strings.ToUpper(matches[2])
	suffix = strings.TrimSuffix(suffix, "IB")
	suffix = strings.TrimSuffix(suffix, "B")

	var multiplier int64
	switch suffix {
	case "":
		multiplier = 1
	case "K":
		multiplier = KiB
	case "M":
		multiplier = MiB
	case "G":
		multiplier = GiB
	case "T":
		multiplier = TiB
	default:
		return 0, fmt.Errorf("%w: unknown suffix %q", ErrInvalidSize, suffix)
	}

	return int64(value * float64(multiplier)), nil
}

// FormatSize converts a size in bytes to a human-readable string using
// binary (IEC) units, for consistency with common filesystem tools.
func FormatSize(bytes int64) string {
	return humanize.IBytes(uint64(bytes))
}
