package chain

import (
	"sync"

	"github.com/KevoDB/blkview/pkg/block"
)

// Synchronized serializes access to an Index so it can be shared between
// goroutines.
type Synchronized struct {
	mu  sync.Mutex
	idx *Index
}

// NewSynchronized wraps idx. The caller must stop using idx directly.
func NewSynchronized(idx *Index) *Synchronized {
	return &Synchronized{idx: idx}
}

// Lookup is Index.Lookup under the lock
func (s *Synchronized) Lookup(height uint64) (*block.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idx.Lookup(height)
}

// Range holds the lock for the whole walk. fn must not call back into s.
func (s *Synchronized) Range(from, to uint64, fn func(height uint64, b *block.Block) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idx.Range(from, to, fn)
}

// ChainStart returns the offset of the record at height 0
func (s *Synchronized) ChainStart() int64 {
	return s.idx.ChainStart()
}

// Tip returns the highest indexed height
func (s *Synchronized) Tip() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idx.Tip()
}

// Offset returns the file offset of an indexed height
func (s *Synchronized) Offset(height uint64) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idx.Offset(height)
}

// Len returns the number of indexed heights
func (s *Synchronized) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idx.Len()
}

// Stats returns the index statistics
func (s *Synchronized) Stats() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idx.Stats()
}

// Close closes the wrapped index
func (s *Synchronized) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idx.Close()
}
