package chain

import (
	"errors"
	"fmt"
	"math"

	"github.com/KevoDB/blkview/pkg/block"
	"github.com/KevoDB/blkview/pkg/stats"
)

// RangeToEnd as the upper bound of Range walks until the chain ends
const RangeToEnd uint64 = math.MaxUint64

// Range calls fn for every height from from to to inclusive, in ascending
// order. With to set to RangeToEnd the walk stops without error at the end
// of the chain. An error from fn stops the walk and is returned.
func (idx *Index) Range(from, to uint64, fn func(height uint64, b *block.Block) error) error {
	if idx.closed.Load() {
		return ErrIndexClosed
	}
	if from > to {
		return fmt.Errorf("%w: %d > %d", ErrInvalidRange, from, to)
	}

	idx.stats.TrackOperation(stats.OpRange)

	for h := from; ; h++ {
		blk, err := idx.Lookup(h)
		if err != nil {
			if to == RangeToEnd && errors.Is(err, ErrHeightNotFound) {
				return nil
			}
			return err
		}
		if err := fn(h, blk); err != nil {
			return err
		}
		if h == to {
			return nil
		}
	}
}
