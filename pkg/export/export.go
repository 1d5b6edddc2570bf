// Package export writes ranges of records to compressed streams and reads
// them back. A decompressed export is itself a valid chain file that
// starts directly with a record.
package export

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/KevoDB/blkview/pkg/block"
)

// ErrWriterClosed is returned when writing to a closed Writer
var ErrWriterClosed = errors.New("export writer is closed")

// Writer appends records in their on-disk layout to a compressed stream
type Writer struct {
	w      io.WriteCloser
	count  int
	bytes  int64
	closed bool
}

// NewWriter creates a Writer that compresses into w. Closing the Writer
// flushes the stream but does not close w.
func NewWriter(w io.Writer, codec Codec) (*Writer, error) {
	cw, err := newCompressWriter(w, codec)
	if err != nil {
		return nil, err
	}
	return &Writer{w: cw}, nil
}

// Write appends one record
func (w *Writer) Write(b *block.Block) error {
	if w.closed {
		return ErrWriterClosed
	}

	data := b.Encode()
	n, err := w.w.Write(data)
	w.bytes += int64(n)
	if err != nil {
		return fmt.Errorf("failed to write record %d: %w", w.count, err)
	}
	w.count++
	return nil
}

// Count returns the number of records written
func (w *Writer) Count() int {
	return w.count
}

// Bytes returns the uncompressed size written so far
func (w *Writer) Bytes() int64 {
	return w.bytes
}

// Close flushes the compressed stream
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.w.Close()
}

// Reader iterates the records of an export stream
type Reader struct {
	r     io.ReadCloser
	magic block.Magic
	count int

	// MaxPayloadSize rejects larger declared sizes before allocating. Zero disables the check.
	MaxPayloadSize uint32
}

// NewReader creates a Reader that decompresses r. Every record must carry
// the marker of the first one.
func NewReader(r io.Reader, codec Codec) (*Reader, error) {
	rc, err := newCompressReader(r, codec)
	if err != nil {
		return nil, err
	}
	return &Reader{r: rc}, nil
}

// Next returns the next record, or io.EOF after the last one
func (r *Reader) Next() (*block.Block, error) {
	var prefix [block.PrefixSize]byte
	n, err := io.ReadFull(r.r, prefix[:])
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: record %d prefix has %d of %d bytes",
				block.ErrTruncatedRead, r.count, n, block.PrefixSize)
		}
		return nil, fmt.Errorf("failed to read record %d: %w", r.count, err)
	}

	var magic block.Magic
	copy(magic[:], prefix[:block.MagicSize])
	if r.count == 0 {
		r.magic = magic
	} else if magic != r.magic {
		return nil, fmt.Errorf("%w: record %d: found %s, expected %s",
			block.ErrInvalidMarker, r.count, magic, r.magic)
	}

	size := binary.LittleEndian.Uint32(prefix[block.MagicSize:])
	if r.MaxPayloadSize > 0 && size > r.MaxPayloadSize {
		return nil, fmt.Errorf("%w: record %d declares %d bytes, limit %d",
			block.ErrMalformedLength, r.count, size, r.MaxPayloadSize)
	}

	payload := make([]byte, size)
	if n, err := io.ReadFull(r.r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: record %d payload has %d of %d bytes",
				block.ErrTruncatedRead, r.count, n, size)
		}
		return nil, fmt.Errorf("failed to read record %d: %w", r.count, err)
	}

	body, err := block.DecodeBody(payload)
	if err != nil {
		return nil, fmt.Errorf("record %d: %w", r.count, err)
	}

	r.count++
	return &block.Block{Magic: magic, Size: size, Body: body}, nil
}

// Count returns the number of records read so far
func (r *Reader) Count() int {
	return r.count
}

// Close releases the decompressor
func (r *Reader) Close() error {
	return r.r.Close()
}

// Decompress reads a whole export stream into memory, ready to be
// indexed as a chain file.
func Decompress(r io.Reader, codec Codec) ([]byte, error) {
	rc, err := newCompressReader(r, codec)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rc); err != nil {
		return nil, fmt.Errorf("failed to decompress %s stream: %w", codec, err)
	}
	return buf.Bytes(), nil
}
