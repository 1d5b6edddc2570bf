package block_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/KevoDB/blkview/pkg/block"
	"github.com/KevoDB/blkview/pkg/block/blocktest"
)

func TestHeaderLayout(t *testing.T) {
	h := block.Header{
		Version: -2,
		Time:    0x01020304,
		NBits:   0x1d00ffff,
		Nonce:   0xdeadbeef,
	}
	h.PrevBlockHash[0] = 0xaa
	h.MerkleHash[31] = 0xbb

	encoded := h.Encode()
	if len(encoded) != block.HeaderSize {
		t.Fatalf("Encoded header size is %d, expected %d", len(encoded), block.HeaderSize)
	}

	// Spot-check field positions against the on-disk layout
	if !bytes.Equal(encoded[0:4], []byte{0xfe, 0xff, 0xff, 0xff}) {
		t.Errorf("Version bytes: %x", encoded[0:4])
	}
	if encoded[4] != 0xaa {
		t.Errorf("PrevBlockHash should start at byte 4, got %x", encoded[4])
	}
	if encoded[67] != 0xbb {
		t.Errorf("MerkleHash should end at byte 67, got %x", encoded[67])
	}
	if !bytes.Equal(encoded[68:72], []byte{0x04, 0x03, 0x02, 0x01}) {
		t.Errorf("Time bytes: %x", encoded[68:72])
	}
	if !bytes.Equal(encoded[76:80], []byte{0xef, 0xbe, 0xad, 0xde}) {
		t.Errorf("Nonce bytes: %x", encoded[76:80])
	}

	decoded, err := block.DecodeHeader(encoded)
	if err != nil {
		t.Fatalf("Failed to decode header: %v", err)
	}
	if decoded != h {
		t.Errorf("Header mismatch: got %+v, expected %+v", decoded, h)
	}
}

func TestDecodeHeaderTooShort(t *testing.T) {
	_, err := block.DecodeHeader(make([]byte, block.HeaderSize-1))
	if !errors.Is(err, block.ErrMalformedPayload) {
		t.Errorf("Expected ErrMalformedPayload, got %v", err)
	}
}

func TestDecodeBodyCopiesEntries(t *testing.T) {
	want := blocktest.Body(9)
	payload := want.Encode()

	body, err := block.DecodeBody(payload)
	if err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if !bytes.Equal(body.RawEntries, want.RawEntries) {
		t.Fatalf("Raw entries mismatch")
	}

	// Mutating the source must not affect the decoded body
	for i := range payload {
		payload[i] = 0
	}
	if !bytes.Equal(body.RawEntries, want.RawEntries) {
		t.Errorf("Decoded body aliases the payload buffer")
	}
}

func TestBlockEncodeSize(t *testing.T) {
	body := blocktest.Body(3)
	blk := block.NewBlock(block.MainnetMagic, body)

	if int(blk.Size) != block.FixedBodySize+len(body.RawEntries) {
		t.Errorf("Expected size %d, got %d", block.FixedBodySize+len(body.RawEntries), blk.Size)
	}
	if len(blk.Encode()) != int(blk.Span()) {
		t.Errorf("Encoded length %d does not match span %d", len(blk.Encode()), blk.Span())
	}
}

func TestBlockClone(t *testing.T) {
	blk := block.NewBlock(block.MainnetMagic, blocktest.Body(5))
	clone := blk.Clone()

	clone.Body.RawEntries[0] ^= 0xff
	clone.Body.Header.Nonce++

	if blk.Body.RawEntries[0] == clone.Body.RawEntries[0] {
		t.Errorf("Clone shares raw entry memory with the original")
	}
	if blk.Body.Header.Nonce == clone.Body.Header.Nonce {
		t.Errorf("Clone shares header with the original")
	}
}

func TestMagicForNetwork(t *testing.T) {
	tests := []struct {
		name string
		want block.Magic
	}{
		{"mainnet", block.MainnetMagic},
		{"Testnet", block.TestnetMagic},
		{"regtest", block.RegtestMagic},
		{"signet", block.SignetMagic},
	}

	for _, tt := range tests {
		got, err := block.MagicForNetwork(tt.name)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s: got %s, want %s", tt.name, got, tt.want)
		}
	}

	if _, err := block.MagicForNetwork("litecoin"); !errors.Is(err, block.ErrUnknownNetwork) {
		t.Errorf("Expected ErrUnknownNetwork, got %v", err)
	}
}

func TestParseMagic(t *testing.T) {
	m, err := block.ParseMagic("f9beb4d9")
	if err != nil {
		t.Fatalf("Failed to parse magic: %v", err)
	}
	if m != block.MainnetMagic {
		t.Errorf("Expected mainnet magic, got %s", m)
	}

	for _, bad := range []string{"", "f9beb4", "f9beb4d9aa", "zzzzzzzz"} {
		if _, err := block.ParseMagic(bad); err == nil {
			t.Errorf("Expected error parsing %q", bad)
		}
	}
}
