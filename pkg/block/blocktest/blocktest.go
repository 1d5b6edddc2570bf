// Package blocktest builds synthetic chain files for tests.
package blocktest

import (
	"bytes"
	"encoding/binary"

	"github.com/KevoDB/blkview/pkg/block"
)

// Body returns a deterministic body for the record at height i. The raw
// entry length varies with i so record spans differ along the chain.
func Body(i int) block.Body {
	h := block.Header{
		Version: int32(i + 1),
		Time:    uint32(1231006505 + i*600),
		NBits:   0x1d00ffff,
		Nonce:   uint32(i * 7919),
	}
	binary.LittleEndian.PutUint64(h.PrevBlockHash[:8], uint64(i))
	binary.LittleEndian.PutUint64(h.MerkleHash[24:], uint64(i)*31)

	raw := make([]byte, (i*13)%97)
	for j := range raw {
		raw[j] = byte(i + j)
	}

	return block.Body{
		Header:     h,
		EntryCount: uint32(i % 5),
		RawEntries: raw,
	}
}

// Builder assembles a chain file in memory.
type Builder struct {
	buf     bytes.Buffer
	magic   block.Magic
	offsets []int64
}

// NewBuilder creates a Builder that writes records with the given marker
func NewBuilder(magic block.Magic) *Builder {
	return &Builder{magic: magic}
}

// Junk appends n bytes that never contain the marker's first byte
func (b *Builder) Junk(n int) *Builder {
	filler := b.magic[0] ^ 0xff
	for i := 0; i < n; i++ {
		b.buf.WriteByte(filler)
	}
	return b
}

// Records appends n records built with Body, continuing from the current count
func (b *Builder) Records(n int) *Builder {
	start := len(b.offsets)
	for i := start; i < start+n; i++ {
		b.Block(block.NewBlock(b.magic, Body(i)))
	}
	return b
}

// Block appends one already built record
func (b *Builder) Block(blk *block.Block) *Builder {
	b.offsets = append(b.offsets, int64(b.buf.Len()))
	b.buf.Write(blk.Encode())
	return b
}

// Raw appends arbitrary bytes
func (b *Builder) Raw(p []byte) *Builder {
	b.buf.Write(p)
	return b
}

// Offsets returns the start offset of every record appended so far
func (b *Builder) Offsets() []int64 {
	return append([]int64(nil), b.offsets...)
}

// Bytes returns a copy of the file contents
func (b *Builder) Bytes() []byte {
	return append([]byte(nil), b.buf.Bytes()...)
}

// Chain returns junk leading bytes followed by n records
func Chain(magic block.Magic, junk, n int) []byte {
	return NewBuilder(magic).Junk(junk).Records(n).Bytes()
}
