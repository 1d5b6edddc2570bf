package stats

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// OperationType defines the type of operation being tracked
type OperationType string

// Operation types tracked by the chain index
const (
	OpLookup OperationType = "lookup"
	OpDecode OperationType = "decode"
	OpLocate OperationType = "locate"
	OpRange  OperationType = "range"
)

// AtomicCollector provides statistics collection with minimal contention
// using atomic operations for thread safety
type AtomicCollector struct {
	// Operation counters using atomic values
	counts   map[OperationType]*atomic.Uint64
	countsMu sync.RWMutex // Only used when creating new counter entries

	lastOpTime   map[OperationType]time.Time
	lastOpTimeMu sync.RWMutex

	// Index usage
	cacheHits     atomic.Uint64
	cacheMisses   atomic.Uint64
	recordsRead   atomic.Uint64
	totalBytes    atomic.Uint64
	indexedHeight atomic.Uint64

	// Error tracking
	errors   map[string]*atomic.Uint64
	errorsMu sync.RWMutex

	locateStats LocateStats

	latencies   map[OperationType]*LatencyTracker
	latenciesMu sync.RWMutex
}

// LocateStats tracks the one-time chain start scan
type LocateStats struct {
	ChainStart     atomic.Int64
	LocateDuration atomic.Int64 // nanoseconds
	Located        atomic.Bool
}

// LatencyTracker maintains running statistics about operation latencies
type LatencyTracker struct {
	count atomic.Uint64
	sum   atomic.Uint64 // sum in nanoseconds
	max   atomic.Uint64
	min   atomic.Uint64 // 0 until the first sample
}

// NewAtomicCollector creates a new atomic statistics collector
func NewAtomicCollector() *AtomicCollector {
	return &AtomicCollector{
		counts:     make(map[OperationType]*atomic.Uint64),
		lastOpTime: make(map[OperationType]time.Time),
		errors:     make(map[string]*atomic.Uint64),
		latencies:  make(map[OperationType]*LatencyTracker),
	}
}

// TrackOperation increments the counter for the specified operation type
func (c *AtomicCollector) TrackOperation(op OperationType) {
	c.getOrCreateCounter(op).Add(1)

	c.lastOpTimeMu.Lock()
	c.lastOpTime[op] = time.Now()
	c.lastOpTimeMu.Unlock()
}

// TrackOperationWithLatency records latency for an operation already counted
// with TrackOperation
func (c *AtomicCollector) TrackOperationWithLatency(op OperationType, latencyNs uint64) {
	tracker := c.getOrCreateLatencyTracker(op)
	tracker.count.Add(1)
	tracker.sum.Add(latencyNs)

	for {
		current := tracker.max.Load()
		if latencyNs <= current {
			break
		}
		if tracker.max.CompareAndSwap(current, latencyNs) {
			break
		}
	}

	for {
		current := tracker.min.Load()
		if current != 0 && latencyNs >= current {
			break
		}
		if tracker.min.CompareAndSwap(current, latencyNs) {
			break
		}
	}
}

// TrackError increments the counter for the specified error kind
func (c *AtomicCollector) TrackError(errorType string) {
	c.errorsMu.RLock()
	counter, exists := c.errors[errorType]
	c.errorsMu.RUnlock()

	if !exists {
		c.errorsMu.Lock()
		if counter, exists = c.errors[errorType]; !exists {
			counter = &atomic.Uint64{}
			c.errors[errorType] = counter
		}
		c.errorsMu.Unlock()
	}

	counter.Add(1)
}

// TrackCacheHit records a lookup answered from the index
func (c *AtomicCollector) TrackCacheHit() {
	c.cacheHits.Add(1)
}

// TrackCacheMiss records a lookup that had to walk the file
func (c *AtomicCollector) TrackCacheMiss() {
	c.cacheMisses.Add(1)
}

// TrackDecode records one record decoded from disk
func (c *AtomicCollector) TrackDecode(span uint64) {
	c.recordsRead.Add(1)
	c.totalBytes.Add(span)
}

// TrackIndexSize records how many heights are indexed
func (c *AtomicCollector) TrackIndexSize(n uint64) {
	c.indexedHeight.Store(n)
}

// StartLocate marks the beginning of the chain start scan
func (c *AtomicCollector) StartLocate() time.Time {
	c.locateStats.Located.Store(false)
	c.locateStats.ChainStart.Store(0)
	c.locateStats.LocateDuration.Store(0)
	return time.Now()
}

// FinishLocate records the discovered chain start
func (c *AtomicCollector) FinishLocate(startTime time.Time, chainStart int64) {
	c.locateStats.ChainStart.Store(chainStart)
	c.locateStats.LocateDuration.Store(time.Since(startTime).Nanoseconds())
	c.locateStats.Located.Store(true)
}

// GetStats returns all statistics as a map
func (c *AtomicCollector) GetStats() map[string]interface{} {
	stats := make(map[string]interface{})

	c.countsMu.RLock()
	for op, counter := range c.counts {
		stats[string(op)+"_ops"] = counter.Load()
	}
	c.countsMu.RUnlock()

	c.lastOpTimeMu.RLock()
	for op, timestamp := range c.lastOpTime {
		stats["last_"+string(op)+"_time"] = timestamp.UnixNano()
	}
	c.lastOpTimeMu.RUnlock()

	stats["cache_hits"] = c.cacheHits.Load()
	stats["cache_misses"] = c.cacheMisses.Load()
	stats["records_decoded"] = c.recordsRead.Load()
	stats["total_bytes_read"] = c.totalBytes.Load()
	stats["indexed_heights"] = c.indexedHeight.Load()

	c.errorsMu.RLock()
	errorStats := make(map[string]uint64)
	for errType, counter := range c.errors {
		errorStats[errType] = counter.Load()
	}
	c.errorsMu.RUnlock()
	stats["errors"] = errorStats

	if c.locateStats.Located.Load() {
		stats["locate"] = map[string]interface{}{
			"chain_start":        c.locateStats.ChainStart.Load(),
			"locate_duration_ns": c.locateStats.LocateDuration.Load(),
		}
	}

	c.latenciesMu.RLock()
	for op, tracker := range c.latencies {
		count := tracker.count.Load()
		if count == 0 {
			continue
		}

		latencyStats := map[string]interface{}{
			"count":  count,
			"avg_ns": tracker.sum.Load() / count,
		}
		if min := tracker.min.Load(); min != 0 {
			latencyStats["min_ns"] = min
		}
		if max := tracker.max.Load(); max != 0 {
			latencyStats["max_ns"] = max
		}

		stats[string(op)+"_latency"] = latencyStats
	}
	c.latenciesMu.RUnlock()

	return stats
}

// GetStatsFiltered returns statistics whose key starts with prefix
func (c *AtomicCollector) GetStatsFiltered(prefix string) map[string]interface{} {
	allStats := c.GetStats()
	filtered := make(map[string]interface{})

	for key, value := range allStats {
		if strings.HasPrefix(key, prefix) {
			filtered[key] = value
		}
	}

	return filtered
}

func (c *AtomicCollector) getOrCreateCounter(op OperationType) *atomic.Uint64 {
	c.countsMu.RLock()
	counter, exists := c.counts[op]
	c.countsMu.RUnlock()

	if !exists {
		c.countsMu.Lock()
		if counter, exists = c.counts[op]; !exists {
			counter = &atomic.Uint64{}
			c.counts[op] = counter
		}
		c.countsMu.Unlock()
	}

	return counter
}

func (c *AtomicCollector) getOrCreateLatencyTracker(op OperationType) *LatencyTracker {
	c.latenciesMu.RLock()
	tracker, exists := c.latencies[op]
	c.latenciesMu.RUnlock()

	if !exists {
		c.latenciesMu.Lock()
		if tracker, exists = c.latencies[op]; !exists {
			tracker = &LatencyTracker{}
			c.latencies[op] = tracker
		}
		c.latenciesMu.Unlock()
	}

	return tracker
}
