// Package locator finds where the first record of a chain file begins.
package locator

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/KevoDB/blkview/pkg/block"
)

// ErrMarkerNotFound is returned when no record marker occurs in the probed range
var ErrMarkerNotFound = errors.New("record marker not found")

// windowSize is how many bytes are read per probe window
const windowSize = 64 * 1024

// Find returns the smallest offset at which magic occurs in r. The match is
// byte-granular, so any amount of leading garbage is tolerated. A positive
// limit bounds the number of leading bytes that may precede the marker.
func Find(r io.ReaderAt, magic block.Magic, limit int64) (int64, error) {
	return find(r, magic, limit, windowSize)
}

func find(r io.ReaderAt, magic block.Magic, limit int64, size int) (int64, error) {
	// Consecutive windows overlap by len(magic)-1 so a marker spanning a
	// boundary is still seen whole in the next window.
	overlap := int64(block.MagicSize - 1)
	buf := make([]byte, size)

	var base int64
	for {
		n, err := r.ReadAt(buf, base)
		if n > 0 {
			if i := bytes.Index(buf[:n], magic[:]); i >= 0 {
				off := base + int64(i)
				if limit > 0 && off > limit {
					return 0, fmt.Errorf("%w within the first %d bytes", ErrMarkerNotFound, limit)
				}
				return off, nil
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return 0, fmt.Errorf("%w: reached end of file at %d", ErrMarkerNotFound, base+int64(n))
			}
			return 0, fmt.Errorf("failed to read at offset %d: %w", base, err)
		}

		if int64(n) <= overlap {
			// A reader that returns tiny reads without error would never advance
			return 0, fmt.Errorf("%w: short read at offset %d", ErrMarkerNotFound, base)
		}
		base += int64(n) - overlap

		if limit > 0 && base > limit {
			return 0, fmt.Errorf("%w within the first %d bytes", ErrMarkerNotFound, limit)
		}
	}
}
