// Package worker consumes scoring jobs from Pub/Sub and publishes their
// results.
package worker

import (
	"time"
)

// Job types accepted on the subscription.
const (
	JobTypeRouteDifficulty = "route_difficulty"
	JobTypeDifficultyBatch = "difficulty_batch"
)

// Config holds processing limits for the worker.
type Config struct {
	// Concurrency is the number of batch items scored at once.
	// Default: 3
	Concurrency int

	// JobTimeout bounds a single route_difficulty job and each batch item.
	// Default: 2 minutes
	JobTimeout time.Duration

	// MaxBatchItems rejects batches larger than this.
	// Default: 100
	MaxBatchItems int
}

// DefaultConfig returns the default worker configuration.
func DefaultConfig() Config {
	return Config{
		Concurrency:   3,
		JobTimeout:    2 * time.Minute,
		MaxBatchItems: 100,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = def.JobTimeout
	}
	if c.MaxBatchItems <= 0 {
		c.MaxBatchItems = def.MaxBatchItems
	}
	return c
}
