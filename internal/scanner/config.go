package scanner

import "time"

// Config tunes the scanner pipeline's concurrency, batching, and retry
// behavior (spec's PARSING_CONCURRENCY, BATCH_PROCESSING_CONCURRENCY,
// batchSegmentThreshold, MAX_PENDING_BATCHES, MAX_BATCH_RETRIES,
// INITIAL_RETRY_DELAY_MS).
type Config struct {
	ParsingConcurrency         int
	BatchProcessingConcurrency int

	BatchSegmentThreshold int
	MaxPendingBatches     int

	MaxBatchRetries   int
	InitialRetryDelay time.Duration

	MaxFileSizeBytes int64

	// GraphBreakerThreshold is the number of consecutive graph-write
	// failures that trip the pipeline-side breaker.
	GraphBreakerThreshold int
	// GraphBreakerCooldown is how long graph writes are skipped once
	// tripped, while vector+BM25 writes continue.
	GraphBreakerCooldown time.Duration
}

// DefaultConfig returns the pipeline's default tuning.
func DefaultConfig() Config {
	return Config{
		ParsingConcurrency:         8,
		BatchProcessingConcurrency: 4,
		BatchSegmentThreshold:      100,
		MaxPendingBatches:          4,
		MaxBatchRetries:            3,
		InitialRetryDelay:          500 * time.Millisecond,
		MaxFileSizeBytes:           5 * 1024 * 1024,
		GraphBreakerThreshold:      3,
		GraphBreakerCooldown:       5 * time.Minute,
	}
}
