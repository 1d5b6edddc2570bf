package stats

import (
	"sync"
	"testing"
	"time"
)

func TestCollector_TrackOperation(t *testing.T) {
	collector := NewAtomicCollector()

	collector.TrackOperation(OpLookup)
	collector.TrackOperation(OpLookup)
	collector.TrackOperation(OpDecode)

	stats := collector.GetStats()

	if stats["lookup_ops"].(uint64) != 2 {
		t.Errorf("Expected 2 lookup operations, got %v", stats["lookup_ops"])
	}

	if stats["decode_ops"].(uint64) != 1 {
		t.Errorf("Expected 1 decode operation, got %v", stats["decode_ops"])
	}

	if _, exists := stats["last_lookup_time"]; !exists {
		t.Errorf("Expected last_lookup_time to exist in stats")
	}
}

func TestCollector_TrackOperationWithLatency(t *testing.T) {
	collector := NewAtomicCollector()

	collector.TrackOperationWithLatency(OpLookup, 100)
	collector.TrackOperationWithLatency(OpLookup, 300)
	collector.TrackOperationWithLatency(OpLookup, 200)

	stats := collector.GetStats()

	latencyStats, ok := stats["lookup_latency"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected lookup_latency to be a map, got %T", stats["lookup_latency"])
	}

	if count := latencyStats["count"].(uint64); count != 3 {
		t.Errorf("Expected 3 latency records, got %v", count)
	}

	if avg := latencyStats["avg_ns"].(uint64); avg != 200 {
		t.Errorf("Expected average latency 200ns, got %v", avg)
	}

	if min := latencyStats["min_ns"].(uint64); min != 100 {
		t.Errorf("Expected min latency 100ns, got %v", min)
	}

	if max := latencyStats["max_ns"].(uint64); max != 300 {
		t.Errorf("Expected max latency 300ns, got %v", max)
	}

	if _, exists := stats["lookup_ops"]; exists {
		t.Errorf("Latency tracking should not count operations on its own")
	}
}

func TestCollector_CacheAndDecode(t *testing.T) {
	collector := NewAtomicCollector()

	collector.TrackCacheMiss()
	collector.TrackDecode(92)
	collector.TrackDecode(200)
	collector.TrackCacheHit()
	collector.TrackCacheHit()
	collector.TrackIndexSize(2)

	stats := collector.GetStats()

	if hits := stats["cache_hits"].(uint64); hits != 2 {
		t.Errorf("Expected 2 cache hits, got %v", hits)
	}
	if misses := stats["cache_misses"].(uint64); misses != 1 {
		t.Errorf("Expected 1 cache miss, got %v", misses)
	}
	if n := stats["records_decoded"].(uint64); n != 2 {
		t.Errorf("Expected 2 records decoded, got %v", n)
	}
	if n := stats["total_bytes_read"].(uint64); n != 292 {
		t.Errorf("Expected 292 bytes read, got %v", n)
	}
	if n := stats["indexed_heights"].(uint64); n != 2 {
		t.Errorf("Expected 2 indexed heights, got %v", n)
	}
}

func TestCollector_Locate(t *testing.T) {
	collector := NewAtomicCollector()

	if _, exists := collector.GetStats()["locate"]; exists {
		t.Errorf("Did not expect locate stats before a scan")
	}

	start := collector.StartLocate()
	time.Sleep(time.Millisecond)
	collector.FinishLocate(start, 8)

	locate, ok := collector.GetStats()["locate"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected locate stats map")
	}
	if off := locate["chain_start"].(int64); off != 8 {
		t.Errorf("Expected chain start 8, got %v", off)
	}
	if d := locate["locate_duration_ns"].(int64); d <= 0 {
		t.Errorf("Expected positive locate duration, got %v", d)
	}
}

func TestCollector_ConcurrentAccess(t *testing.T) {
	collector := NewAtomicCollector()
	const numGoroutines = 10
	const opsPerGoroutine = 900

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()

			for j := 0; j < opsPerGoroutine; j++ {
				switch j % 3 {
				case 0:
					collector.TrackOperation(OpLookup)
				case 1:
					collector.TrackCacheHit()
				case 2:
					collector.TrackError("invalid_marker")
				}
			}
		}()
	}

	wg.Wait()

	stats := collector.GetStats()
	expected := uint64(numGoroutines * opsPerGoroutine / 3)

	if ops := stats["lookup_ops"].(uint64); ops != expected {
		t.Errorf("Expected %d lookup operations, got %v", expected, ops)
	}
	if hits := stats["cache_hits"].(uint64); hits != expected {
		t.Errorf("Expected %d cache hits, got %v", expected, hits)
	}
	errs := stats["errors"].(map[string]uint64)
	if errs["invalid_marker"] != expected {
		t.Errorf("Expected %d invalid_marker errors, got %v", expected, errs["invalid_marker"])
	}
}

func TestCollector_GetStatsFiltered(t *testing.T) {
	collector := NewAtomicCollector()

	collector.TrackOperation(OpLookup)
	collector.TrackOperation(OpDecode)
	collector.TrackCacheHit()
	collector.TrackError("truncated_read")

	cacheStats := collector.GetStatsFiltered("cache")
	if _, exists := cacheStats["cache_hits"]; !exists {
		t.Errorf("Expected cache_hits in filtered stats")
	}
	if _, exists := cacheStats["lookup_ops"]; exists {
		t.Errorf("Did not expect lookup_ops in cache-filtered stats")
	}

	errorStats := collector.GetStatsFiltered("error")
	if _, exists := errorStats["errors"]; !exists {
		t.Errorf("Expected errors in error-filtered stats")
	}

	if all := collector.GetStatsFiltered(""); len(all) != len(collector.GetStats()) {
		t.Errorf("Empty prefix should return every stat")
	}
}
