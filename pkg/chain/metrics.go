// ABOUTME: Chain index telemetry metrics interface and implementation for lookups, decodes, and corruption
// ABOUTME: Provides instrumentation for cache hits, walk lengths, chain start location, and bytes decoded

package chain

import (
	"context"
	"time"

	"github.com/KevoDB/blkview/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// ChainMetrics defines the interface for chain index telemetry operations.
// All metrics are optional - implementations can safely be no-op.
type ChainMetrics interface {
	telemetry.ComponentMetrics

	// RecordLookup records a height lookup, whether it was served from the
	// index and how many records were decoded to answer it.
	RecordLookup(ctx context.Context, duration time.Duration, cacheHit bool, walked int, err error)

	// RecordDecode records one record decoded from the file.
	RecordDecode(ctx context.Context, span int64)

	// RecordCorruption records a record that could not be decoded.
	RecordCorruption(ctx context.Context, reason string, offset int64)

	// RecordLocate records the chain start scan.
	RecordLocate(ctx context.Context, duration time.Duration, chainStart int64, found bool)
}

// chainMetrics implements ChainMetrics using the telemetry interface.
type chainMetrics struct {
	tel telemetry.Telemetry
}

// NewChainMetrics creates a new chain metrics implementation.
// If tel is nil, returns a no-op implementation.
func NewChainMetrics(tel telemetry.Telemetry) ChainMetrics {
	if tel == nil {
		return &noopChainMetrics{}
	}
	return &chainMetrics{tel: tel}
}

// NewNoopChainMetrics creates a no-op chain metrics implementation for testing.
func NewNoopChainMetrics() ChainMetrics {
	return &noopChainMetrics{}
}

// RecordLookup records lookup metrics.
func (m *chainMetrics) RecordLookup(ctx context.Context, duration time.Duration, cacheHit bool, walked int, err error) {
	status := telemetry.StatusSuccess
	if err != nil {
		status = telemetry.StatusError
	}

	m.tel.RecordHistogram(ctx, "blkview.chain.lookup.duration", duration.Seconds(),
		attribute.String(telemetry.AttrComponent, telemetry.ComponentChain),
		attribute.String(telemetry.AttrOperationType, telemetry.OpTypeLookup),
		attribute.Bool(telemetry.AttrCacheHit, cacheHit),
	)

	m.tel.RecordCounter(ctx, "blkview.chain.lookups.total", 1,
		attribute.String(telemetry.AttrComponent, telemetry.ComponentChain),
		attribute.Bool(telemetry.AttrCacheHit, cacheHit),
		attribute.String(telemetry.AttrStatus, status),
	)

	if !cacheHit {
		m.tel.RecordHistogram(ctx, "blkview.chain.walk.length", float64(walked),
			attribute.String(telemetry.AttrComponent, telemetry.ComponentChain),
		)
	}
}

// RecordDecode records a decoded record.
func (m *chainMetrics) RecordDecode(ctx context.Context, span int64) {
	m.tel.RecordCounter(ctx, "blkview.codec.decodes.total", 1,
		attribute.String(telemetry.AttrComponent, telemetry.ComponentCodec),
		attribute.String(telemetry.AttrOperationType, telemetry.OpTypeDecode),
	)

	telemetry.RecordBytes(ctx, m.tel, "blkview.codec.decode.bytes", span,
		attribute.String(telemetry.AttrComponent, telemetry.ComponentCodec),
	)
}

// RecordCorruption records an undecodable record.
func (m *chainMetrics) RecordCorruption(ctx context.Context, reason string, offset int64) {
	m.tel.RecordCounter(ctx, "blkview.codec.corruption.count", 1,
		attribute.String(telemetry.AttrComponent, telemetry.ComponentCodec),
		attribute.String(telemetry.AttrReason, reason),
		attribute.Int64(telemetry.AttrOffset, offset),
	)
}

// RecordLocate records the chain start scan.
func (m *chainMetrics) RecordLocate(ctx context.Context, duration time.Duration, chainStart int64, found bool) {
	status := telemetry.StatusSuccess
	if !found {
		status = telemetry.StatusError
	}

	m.tel.RecordHistogram(ctx, "blkview.locator.duration", duration.Seconds(),
		attribute.String(telemetry.AttrComponent, telemetry.ComponentLocator),
		attribute.String(telemetry.AttrOperationType, telemetry.OpTypeLocate),
		attribute.String(telemetry.AttrStatus, status),
	)

	if found {
		m.tel.RecordHistogram(ctx, "blkview.locator.chain_start", float64(chainStart),
			attribute.String(telemetry.AttrComponent, telemetry.ComponentLocator),
		)
	}
}

// Close releases any resources held by the metrics implementation.
func (m *chainMetrics) Close() error {
	return nil
}

// noopChainMetrics provides a no-operation implementation for testing or disabled telemetry.
type noopChainMetrics struct{}

// RecordLookup is a no-op.
func (n *noopChainMetrics) RecordLookup(ctx context.Context, duration time.Duration, cacheHit bool, walked int, err error) {
}

// RecordDecode is a no-op.
func (n *noopChainMetrics) RecordDecode(ctx context.Context, span int64) {}

// RecordCorruption is a no-op.
func (n *noopChainMetrics) RecordCorruption(ctx context.Context, reason string, offset int64) {}

// RecordLocate is a no-op.
func (n *noopChainMetrics) RecordLocate(ctx context.Context, duration time.Duration, chainStart int64, found bool) {
}

// Close is a no-op.
func (n *noopChainMetrics) Close() error {
	return nil
}
