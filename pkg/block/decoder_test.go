package block_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/KevoDB/blkview/pkg/block"
	"github.com/KevoDB/blkview/pkg/block/blocktest"
)

func minimalRecord(magic block.Magic) []byte {
	blk := block.NewBlock(magic, block.Body{Header: block.Header{Version: 1}})
	return blk.Encode()
}

func TestDecoderMinimalRecordAfterJunk(t *testing.T) {
	data := append([]byte{0, 1, 2, 3}, minimalRecord(block.MainnetMagic)...)

	dec := block.NewDecoder(block.MainnetMagic)
	blk, span, err := dec.ReadAt(bytes.NewReader(data), 4)
	if err != nil {
		t.Fatalf("Failed to decode record: %v", err)
	}

	if blk.Size != 84 {
		t.Errorf("Expected size 84, got %d", blk.Size)
	}
	if blk.Body.EntryCount != 0 {
		t.Errorf("Expected entry count 0, got %d", blk.Body.EntryCount)
	}
	if blk.Body.Header.Version != 1 {
		t.Errorf("Expected version 1, got %d", blk.Body.Header.Version)
	}
	if len(blk.Body.RawEntries) != 0 {
		t.Errorf("Expected empty raw entries, got %d bytes", len(blk.Body.RawEntries))
	}
	if span != 92 {
		t.Errorf("Expected span 92, got %d", span)
	}
	if blk.Span() != span {
		t.Errorf("Block.Span() = %d, decoder reported %d", blk.Span(), span)
	}
}

func TestDecoderChainContinuity(t *testing.T) {
	const count = 12
	builder := blocktest.NewBuilder(block.MainnetMagic).Junk(7).Records(count)
	data := builder.Bytes()
	offsets := builder.Offsets()
	r := bytes.NewReader(data)

	dec := block.NewDecoder(block.MainnetMagic)
	off := offsets[0]
	for i := 0; i < count; i++ {
		if off != offsets[i] {
			t.Fatalf("Record %d: computed offset %d, actual start %d", i, off, offsets[i])
		}

		blk, span, err := dec.ReadAt(r, off)
		if err != nil {
			t.Fatalf("Record %d: decode failed: %v", i, err)
		}

		want := blocktest.Body(i)
		if blk.Body.Header != want.Header {
			t.Errorf("Record %d: header mismatch: got %+v, want %+v", i, blk.Body.Header, want.Header)
		}
		if blk.Body.EntryCount != want.EntryCount {
			t.Errorf("Record %d: entry count %d, want %d", i, blk.Body.EntryCount, want.EntryCount)
		}
		if !bytes.Equal(blk.Body.RawEntries, want.RawEntries) {
			t.Errorf("Record %d: raw entries mismatch", i)
		}
		if span != 8+int64(blk.Size) {
			t.Errorf("Record %d: span %d, want %d", i, span, 8+int64(blk.Size))
		}

		off += span
	}

	if off != int64(len(data)) {
		t.Errorf("Expected walk to end at %d, ended at %d", len(data), off)
	}

	if _, _, err := dec.ReadAt(r, off); !errors.Is(err, block.ErrEndOfChain) {
		t.Errorf("Expected ErrEndOfChain past the last record, got %v", err)
	}
}

func TestDecoderFlippedMarkerBit(t *testing.T) {
	dec := block.NewDecoder(block.MainnetMagic)

	for bit := 0; bit < 32; bit++ {
		data := minimalRecord(block.MainnetMagic)
		data[bit/8] ^= 1 << (bit % 8)

		blk, _, err := dec.ReadAt(bytes.NewReader(data), 0)
		if !errors.Is(err, block.ErrInvalidMarker) {
			t.Errorf("Bit %d: expected ErrInvalidMarker, got %v", bit, err)
		}
		if blk != nil {
			t.Errorf("Bit %d: expected no block on invalid marker", bit)
		}
	}
}

func TestDecoderPayloadPastEOF(t *testing.T) {
	data := minimalRecord(block.MainnetMagic)
	// Declare 16 bytes more than the file holds
	binary.LittleEndian.PutUint32(data[4:8], 84+16)

	dec := block.NewDecoder(block.MainnetMagic)
	blk, _, err := dec.ReadAt(bytes.NewReader(data), 0)
	if !errors.Is(err, block.ErrTruncatedRead) {
		t.Fatalf("Expected ErrTruncatedRead, got %v", err)
	}
	if blk != nil {
		t.Errorf("Expected no partial block, got %+v", blk)
	}
}

func TestDecoderShortPrefix(t *testing.T) {
	data := minimalRecord(block.MainnetMagic)[:5]

	dec := block.NewDecoder(block.MainnetMagic)
	_, _, err := dec.ReadAt(bytes.NewReader(data), 0)
	if !errors.Is(err, block.ErrTruncatedRead) {
		t.Fatalf("Expected ErrTruncatedRead, got %v", err)
	}
}

func TestDecoderPayloadBelowFixedSize(t *testing.T) {
	var data []byte
	data = append(data, block.MainnetMagic[:]...)
	data = binary.LittleEndian.AppendUint32(data, 10)
	data = append(data, make([]byte, 10)...)

	dec := block.NewDecoder(block.MainnetMagic)
	_, _, err := dec.ReadAt(bytes.NewReader(data), 0)
	if !errors.Is(err, block.ErrMalformedPayload) {
		t.Fatalf("Expected ErrMalformedPayload, got %v", err)
	}
}

func TestDecoderMaxPayloadSize(t *testing.T) {
	data := blocktest.Chain(block.MainnetMagic, 0, 1)

	dec := block.NewDecoder(block.MainnetMagic)
	dec.MaxPayloadSize = 50

	_, _, err := dec.ReadAt(bytes.NewReader(data), 0)
	if !errors.Is(err, block.ErrMalformedLength) {
		t.Fatalf("Expected ErrMalformedLength, got %v", err)
	}
}

func TestDecoderZeroFill(t *testing.T) {
	data := append(blocktest.Chain(block.MainnetMagic, 0, 1), make([]byte, 64)...)
	first := blocktest.Chain(block.MainnetMagic, 0, 1)
	end := int64(len(first))

	dec := block.NewDecoder(block.MainnetMagic)
	if _, _, err := dec.ReadAt(bytes.NewReader(data), end); !errors.Is(err, block.ErrInvalidMarker) {
		t.Errorf("Without ZeroFillIsEnd expected ErrInvalidMarker, got %v", err)
	}

	dec.ZeroFillIsEnd = true
	if _, _, err := dec.ReadAt(bytes.NewReader(data), end); !errors.Is(err, block.ErrEndOfChain) {
		t.Errorf("With ZeroFillIsEnd expected ErrEndOfChain, got %v", err)
	}
}

func TestDecoderOtherMagic(t *testing.T) {
	data := blocktest.Chain(block.TestnetMagic, 0, 2)

	if _, _, err := block.NewDecoder(block.MainnetMagic).ReadAt(bytes.NewReader(data), 0); !errors.Is(err, block.ErrInvalidMarker) {
		t.Errorf("Expected mainnet decoder to reject testnet record, got %v", err)
	}

	blk, _, err := block.NewDecoder(block.TestnetMagic).ReadAt(bytes.NewReader(data), 0)
	if err != nil {
		t.Fatalf("Failed to decode testnet record: %v", err)
	}
	if blk.Magic != block.TestnetMagic {
		t.Errorf("Expected testnet magic, got %s", blk.Magic)
	}
}
