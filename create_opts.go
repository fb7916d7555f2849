package tac

import "log/slog"

// createConfig holds configuration for archive creation.
type createConfig struct {
	logger         *slog.Logger
	seed           uint32
	seedSet        bool
	workers        int
	skipUnreadable bool
}

// CreateOption configures archive creation.
type CreateOption func(*createConfig)

// CreateWithLogger sets the logger used during packing. Without it,
// logging is discarded.
func CreateWithLogger(logger *slog.Logger) CreateOption {
	return func(cfg *createConfig) {
		cfg.logger = logger
	}
}

// CreateWithSeed pins the archive's hash seed instead of drawing a random
// one. Same tree, same seed, same bytes out — useful for reproducible
// builds and tests.
func CreateWithSeed(seed uint32) CreateOption {
	return func(cfg *createConfig) {
		cfg.seed = seed
		cfg.seedSet = true
	}
}

// CreateWithWorkers sets how many files are read, compressed, and hashed
// concurrently. Values below 1 mean sequential. The archive layout is
// identical regardless of worker count; enumeration order fixes it.
func CreateWithWorkers(n int) CreateOption {
	return func(cfg *createConfig) {
		cfg.workers = n
	}
}

// CreateWithSkipUnreadable drops files that fail to read, logging a
// warning, instead of aborting the whole run.
func CreateWithSkipUnreadable(skip bool) CreateOption {
	return func(cfg *createConfig) {
		cfg.skipUnreadable = skip
	}
}
