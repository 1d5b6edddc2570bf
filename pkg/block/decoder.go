package block

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Decoder reads single records from a positioned byte source.
type Decoder struct {
	// Magic is the marker every record must start with
	Magic Magic
	// MaxPayloadSize rejects larger declared sizes before allocating. Zero disables the check.
	MaxPayloadSize uint32
	// ZeroFillIsEnd treats an all-zero prefix as the end of the chain.
	// Block files are commonly pre-allocated and zero-filled past the last record.
	ZeroFillIsEnd bool
}

// NewDecoder creates a Decoder for the given marker with no size limit
func NewDecoder(magic Magic) *Decoder {
	return &Decoder{Magic: magic}
}

// ReadAt decodes the record starting at off and returns it together with
// the number of bytes it occupies, so the next record starts at off+span.
func (d *Decoder) ReadAt(r io.ReaderAt, off int64) (*Block, int64, error) {
	var prefix [PrefixSize]byte
	n, err := readFullAt(r, prefix[:], off)
	if err != nil {
		if errors.Is(err, io.EOF) {
			if n == 0 {
				return nil, 0, fmt.Errorf("%w at offset %d", ErrEndOfChain, off)
			}
			return nil, 0, fmt.Errorf("%w: prefix at offset %d has %d of %d bytes",
				ErrTruncatedRead, off, n, PrefixSize)
		}
		return nil, 0, fmt.Errorf("failed to read record prefix at offset %d: %w", off, err)
	}

	var magic Magic
	copy(magic[:], prefix[0:4])
	size := binary.LittleEndian.Uint32(prefix[4:8])

	if magic != d.Magic {
		if d.ZeroFillIsEnd && magic == (Magic{}) && size == 0 {
			return nil, 0, fmt.Errorf("%w at offset %d (zero fill)", ErrEndOfChain, off)
		}
		return nil, 0, fmt.Errorf("%w at offset %d: found %s, expected %s",
			ErrInvalidMarker, off, magic, d.Magic)
	}

	if d.MaxPayloadSize > 0 && size > d.MaxPayloadSize {
		return nil, 0, fmt.Errorf("%w: %d bytes at offset %d exceeds limit %d",
			ErrMalformedLength, size, off, d.MaxPayloadSize)
	}

	payload := make([]byte, size)
	n, err = readFullAt(r, payload, off+PrefixSize)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, fmt.Errorf("%w: payload at offset %d has %d of %d bytes",
				ErrTruncatedRead, off, n, size)
		}
		return nil, 0, fmt.Errorf("failed to read payload at offset %d: %w", off, err)
	}

	body, err := DecodeBody(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("record at offset %d: %w", off, err)
	}

	return &Block{
		Magic: magic,
		Size:  size,
		Body:  body,
	}, PrefixSize + int64(size), nil
}

// readFullAt fills buf from off. A short read is reported as io.EOF along
// with the number of bytes that were available.
func readFullAt(r io.ReaderAt, buf []byte, off int64) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	n, err := r.ReadAt(buf, off)
	if n == len(buf) {
		return n, nil
	}
	if err == nil || errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	return n, err
}
