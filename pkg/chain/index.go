// Package chain builds a height index over a chain file as records are
// decoded, so each record is read from disk at most once.
//
// An Index is not safe for concurrent use. Wrap it with NewSynchronized
// when it must be shared between goroutines.
package chain

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/KevoDB/blkview/pkg/block"
	"github.com/KevoDB/blkview/pkg/common/log"
	"github.com/KevoDB/blkview/pkg/config"
	"github.com/KevoDB/blkview/pkg/locator"
	"github.com/KevoDB/blkview/pkg/source"
	"github.com/KevoDB/blkview/pkg/stats"
	"github.com/KevoDB/blkview/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type entry struct {
	offset int64
	block  *block.Block
}

// Index maps heights to decoded records. Heights are assigned in file
// order starting at 0 for the record at the chain start.
type Index struct {
	src        source.Source
	decoder    *block.Decoder
	chainStart int64

	entries map[uint64]entry
	tip     uint64
	hasTip  bool

	logger  log.Logger
	tel     telemetry.Telemetry
	metrics ChainMetrics
	stats   stats.Collector

	closed atomic.Bool
}

type options struct {
	logger log.Logger
	tel    telemetry.Telemetry
	stats  stats.Collector
}

// Option configures an Index
type Option func(*options)

// WithLogger sets the logger used by the index
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTelemetry records metrics and spans through tel
func WithTelemetry(tel telemetry.Telemetry) Option {
	return func(o *options) {
		o.tel = tel
	}
}

// WithStats sets the statistics collector
func WithStats(collector stats.Collector) Option {
	return func(o *options) {
		o.stats = collector
	}
}

// Open opens the chain file at path and locates the chain start.
// A nil cfg uses the defaults.
func Open(path string, cfg *config.Config, opts ...Option) (*Index, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	src, err := source.Open(path, source.Mode(cfg.ReadMode))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFileUnopenable, err)
	}

	idx, err := New(src, cfg, opts...)
	if err != nil {
		src.Close()
		return nil, err
	}
	return idx, nil
}

// New builds an index over an already open source. The index takes
// ownership of src and closes it on Close.
func New(src source.Source, cfg *config.Config, opts ...Option) (*Index, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.GetDefaultLogger()
	}
	if o.tel == nil {
		o.tel = telemetry.NewNoop()
	}
	if o.stats == nil {
		o.stats = stats.NewAtomicCollector()
	}

	decoder, err := cfg.Decoder()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}

	idx := &Index{
		src:     src,
		decoder: decoder,
		entries: make(map[uint64]entry),
		logger:  o.logger.WithField("component", "chain"),
		tel:     o.tel,
		metrics: NewChainMetrics(o.tel),
		stats:   o.stats,
	}

	if err := idx.locate(cfg.MaxLeadingBytes); err != nil {
		return nil, err
	}
	return idx, nil
}

func (idx *Index) locate(limit int64) error {
	ctx, span := idx.tel.StartSpan(context.Background(), "chain.locate")
	defer span.End()

	idx.stats.TrackOperation(stats.OpLocate)
	start := idx.stats.StartLocate()

	off, err := locator.Find(idx.src, idx.decoder.Magic, limit)
	idx.metrics.RecordLocate(ctx, time.Since(start), off, err == nil)
	if err != nil {
		idx.stats.TrackError("locate_error")
		span.RecordError(err)
		return err
	}

	idx.chainStart = off
	idx.stats.FinishLocate(start, off)
	span.SetAttributes(attribute.Int64(telemetry.AttrOffset, off))

	idx.logger.WithFields(map[string]interface{}{
		"chain_start": off,
		"magic":       idx.decoder.Magic.String(),
		"file_size":   idx.src.Size(),
	}).Info("chain start located")
	return nil
}

// Lookup returns the record at height, decoding forward from the nearest
// indexed height below it when it is not indexed yet. The returned block
// is a copy the caller may keep or modify.
func (idx *Index) Lookup(height uint64) (*block.Block, error) {
	if idx.closed.Load() {
		return nil, ErrIndexClosed
	}

	ctx, span := idx.tel.StartSpan(context.Background(), "chain.lookup",
		attribute.Int64(telemetry.AttrHeight, int64(height)))
	defer span.End()

	idx.stats.TrackOperation(stats.OpLookup)
	start := time.Now()

	blk, hit, walked, err := idx.lookup(ctx, height)

	elapsed := time.Since(start)
	idx.stats.TrackOperationWithLatency(stats.OpLookup, uint64(elapsed.Nanoseconds()))
	idx.metrics.RecordLookup(ctx, elapsed, hit, walked, err)
	span.SetAttributes(
		attribute.Bool(telemetry.AttrCacheHit, hit),
		attribute.Int(telemetry.AttrWalkLength, walked),
	)

	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return blk, nil
}

func (idx *Index) lookup(ctx context.Context, height uint64) (*block.Block, bool, int, error) {
	if e, ok := idx.entries[height]; ok {
		idx.stats.TrackCacheHit()
		return e.block.Clone(), true, 0, nil
	}
	idx.stats.TrackCacheMiss()

	h, off := idx.resumePoint(height)
	idx.logger.WithFields(map[string]interface{}{
		"height": height,
		"from":   h,
		"offset": off,
	}).Debug("walking chain")

	walked := 0
	for ; ; h++ {
		blk, span, err := idx.decoder.ReadAt(idx.src, off)
		if err != nil {
			if errors.Is(err, block.ErrEndOfChain) {
				return nil, false, walked, idx.notFound(height)
			}
			kind := errorKind(err)
			idx.stats.TrackError(kind)
			idx.metrics.RecordCorruption(ctx, kind, off)
			idx.logger.WithFields(map[string]interface{}{
				"height": h,
				"offset": off,
				"error":  err,
			}).Warn("record decode failed")
			return nil, false, walked, fmt.Errorf("height %d: %w", h, err)
		}

		idx.insert(ctx, h, off, blk, span)
		walked++

		if h == height {
			return blk.Clone(), false, walked, nil
		}
		off += span
	}
}

// resumePoint returns the height and offset a walk towards height starts
// at: just past the nearest indexed height below it, or the chain start.
func (idx *Index) resumePoint(height uint64) (uint64, int64) {
	if !idx.hasTip || height == 0 {
		return 0, idx.chainStart
	}

	// Nothing above the tip is ever indexed.
	h := height - 1
	if h > idx.tip {
		h = idx.tip
	}
	for {
		if e, ok := idx.entries[h]; ok {
			return h + 1, e.offset + e.block.Span()
		}
		if h == 0 {
			return 0, idx.chainStart
		}
		h--
	}
}

func (idx *Index) insert(ctx context.Context, height uint64, off int64, blk *block.Block, span int64) {
	if _, exists := idx.entries[height]; exists {
		return
	}
	idx.entries[height] = entry{offset: off, block: blk}
	if !idx.hasTip || height > idx.tip {
		idx.tip = height
		idx.hasTip = true
	}

	idx.stats.TrackOperation(stats.OpDecode)
	idx.stats.TrackDecode(uint64(span))
	idx.stats.TrackIndexSize(uint64(len(idx.entries)))
	idx.metrics.RecordDecode(ctx, span)
}

func (idx *Index) notFound(height uint64) error {
	if !idx.hasTip {
		return fmt.Errorf("%w: %d (chain has no records)", ErrHeightNotFound, height)
	}
	return fmt.Errorf("%w: %d (chain ends at height %d)", ErrHeightNotFound, height, idx.tip)
}

// ChainStart returns the offset of the record at height 0
func (idx *Index) ChainStart() int64 {
	return idx.chainStart
}

// Tip returns the highest indexed height. ok is false until a record has
// been decoded.
func (idx *Index) Tip() (height uint64, ok bool) {
	return idx.tip, idx.hasTip
}

// Offset returns the file offset of an indexed height
func (idx *Index) Offset(height uint64) (int64, bool) {
	e, ok := idx.entries[height]
	return e.offset, ok
}

// Len returns the number of indexed heights
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Stats returns the collector statistics plus the index state
func (idx *Index) Stats() map[string]interface{} {
	s := idx.stats.GetStats()
	s["chain_start"] = idx.chainStart
	s["indexed_heights"] = uint64(len(idx.entries))
	if idx.hasTip {
		s["tip"] = idx.tip
	}
	s["closed"] = idx.closed.Load()
	return s
}

// Close releases the underlying source. Closing twice is a no-op.
func (idx *Index) Close() error {
	if idx.closed.Swap(true) {
		return nil
	}

	err := idx.src.Close()
	if err != nil {
		idx.stats.TrackError("close_error")
	}
	return errors.Join(err, idx.metrics.Close())
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, block.ErrInvalidMarker):
		return "invalid_marker"
	case errors.Is(err, block.ErrTruncatedRead):
		return "truncated_read"
	case errors.Is(err, block.ErrMalformedLength):
		return "malformed_length"
	case errors.Is(err, block.ErrMalformedPayload):
		return "malformed_payload"
	default:
		return "read_error"
	}
}
