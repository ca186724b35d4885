package main

import (
	"fmt"

	"github.com/jamesainslie/churn/pkg/churn/config"
	"github.com/jamesainslie/churn/pkg/churn/types"
	"github.com/jamesainslie/churn/pkg/churn/worker"
)

// buildWorkerOptions translates the effective configuration into the
// worker option template the supervisor hands to every slot.
func buildWorkerOptions(cfg *config.Config, root string) (worker.Options, error) {
	probs := types.Probabilities{
		Mkdir:  cfg.Probabilities.Mkdir,
		Rmdir:  cfg.Probabilities.Rmdir,
		Mkfile: cfg.Probabilities.Mkfile,
		Rmfile: cfg.Probabilities.Rmfile,
		Append: cfg.Probabilities.Append,
	}
	if err := probs.Validate(); err != nil {
		return worker.Options{}, err
	}

	if cfg.MaxDirs < 1 {
		return worker.Options{}, fmt.Errorf("max-dirs must be at least 1, got %d", cfg.MaxDirs)
	}

	maxBytes, err := types.ParseSize(cfg.MaxBytes)
	if err != nil {
		return worker.Options{}, fmt.Errorf("invalid max-bytes %q: %w", cfg.MaxBytes, err)
	}
	if maxBytes < 1 {
		return worker.Options{}, fmt.Errorf("max-bytes must be positive, got %q", cfg.MaxBytes)
	}

	maxSleep := cfg.MaxSleep
	if maxSleep <= 0 {
		maxSleep = config.DefaultMaxSleep
	}

	return worker.Options{
		Root:          root,
		Probabilities: probs,
		Limits:        types.Limits{MaxDirs: cfg.MaxDirs, MaxBytes: maxBytes},
		MaxSleep:      maxSleep,
	}, nil
}
