// Package config provides configuration management for the churn workload
// generator.
package config

import "time"

// Default configuration values for churn.
const (
	// DefaultRoot is the directory tree the workload mutates when none is
	// specified.
	DefaultRoot = "/var/tmp/churn/data"

	// DefaultMaxDirs is the directory-count ceiling.
	DefaultMaxDirs = 8000

	// DefaultMaxBytes is the disk-usage ceiling.
	DefaultMaxBytes = "10G"

	// DefaultWorkers is the number of concurrent workers.
	DefaultWorkers = 1

	// DefaultMaxSleep bounds the random per-tick sleep.
	DefaultMaxSleep = 10 * time.Second

	// DefaultIsolate controls whether the process confines its filesystem
	// view to the root before starting.
	DefaultIsolate = true

	// DefaultRetentionDays is how long journal records are kept.
	DefaultRetentionDays = 30
)

// Default action probabilities. The rewrite action takes the remainder
// (0.405 with these values).
const (
	DefaultProbMkdir  = 0.02
	DefaultProbRmdir  = 0.005
	DefaultProbMkfile = 0.2
	DefaultProbRmfile = 0.07
	DefaultProbAppend = 0.3
)
