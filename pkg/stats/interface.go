package stats

import "time"

// Provider defines the interface for components that provide statistics
type Provider interface {
	// GetStats returns all statistics
	GetStats() map[string]interface{}

	// GetStatsFiltered returns statistics filtered by prefix
	GetStatsFiltered(prefix string) map[string]interface{}
}

// Collector interface defines methods for collecting statistics
type Collector interface {
	Provider

	// TrackOperation records a single operation
	TrackOperation(op OperationType)

	// TrackOperationWithLatency records an operation with its latency
	TrackOperationWithLatency(op OperationType, latencyNs uint64)

	// TrackError increments the counter for the specified error kind
	TrackError(errorType string)

	// TrackCacheHit records a lookup answered from the index
	TrackCacheHit()

	// TrackCacheMiss records a lookup that had to walk the file
	TrackCacheMiss()

	// TrackDecode records one record decoded from disk and its span in bytes
	TrackDecode(span uint64)

	// TrackIndexSize records how many heights are currently indexed
	TrackIndexSize(n uint64)

	// StartLocate marks the beginning of the chain start scan
	StartLocate() time.Time

	// FinishLocate records where the chain starts and how long finding it took
	FinishLocate(startTime time.Time, chainStart int64)
}

// Ensure AtomicCollector implements the Collector interface
var _ Collector = (*AtomicCollector)(nil)
