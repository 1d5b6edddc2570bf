// Package display renders decoded records for people and for tools.
package display

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/KevoDB/blkview/pkg/block"
	"github.com/cespare/xxhash/v2"
)

// HashString renders each byte as lowercase hex without zero padding,
// in array order, so 0x05 becomes "5". The result is not reversible.
func HashString(h [block.HashSize]byte) string {
	var sb strings.Builder
	sb.Grow(2 * len(h))
	for _, b := range h {
		sb.WriteString(strconv.FormatUint(uint64(b), 16))
	}
	return sb.String()
}

// Fingerprint returns the xxhash64 of the opaque entry bytes
func Fingerprint(b *block.Block) uint64 {
	return xxhash.Sum64(b.Body.RawEntries)
}

// FormatHeader lists the header fields one per line
func FormatHeader(h block.Header) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Block version: %d\n", h.Version)
	fmt.Fprintf(&sb, "Previous block hash: %s\n", HashString(h.PrevBlockHash))
	fmt.Fprintf(&sb, "Merkle hash: %s\n", HashString(h.MerkleHash))
	fmt.Fprintf(&sb, "time: %d\n", h.Time)
	fmt.Fprintf(&sb, "nbits: %d\n", h.NBits)
	fmt.Fprintf(&sb, "nonce: %d\n", h.Nonce)
	return sb.String()
}

// FormatBlock renders a record with its position, sizes and header
func FormatBlock(height uint64, offset int64, b *block.Block) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Block %d header:\n", height)
	fmt.Fprintf(&sb, "offset: %d\n", offset)
	fmt.Fprintf(&sb, "size: %d\n", b.Size)
	fmt.Fprintf(&sb, "entry count: %d\n", b.Body.EntryCount)
	fmt.Fprintf(&sb, "raw entries: %d bytes (xxhash64 %016x)\n", len(b.Body.RawEntries), Fingerprint(b))
	sb.WriteString(FormatHeader(b.Body.Header))
	return sb.String()
}

// Summary is a single line for listings
func Summary(height uint64, offset int64, b *block.Block) string {
	return fmt.Sprintf("%d\toffset=%d\tsize=%d\tentries=%d\ttime=%s",
		height, offset, b.Size, b.Body.EntryCount,
		time.Unix(int64(b.Body.Header.Time), 0).UTC().Format(time.RFC3339))
}

// View is the machine-readable form of a record
type View struct {
	Height        uint64 `json:"height"`
	Offset        int64  `json:"offset"`
	Magic         string `json:"magic"`
	Size          uint32 `json:"size"`
	Version       int32  `json:"version"`
	PrevBlockHash string `json:"prev_block_hash"`
	MerkleHash    string `json:"merkle_hash"`
	Time          uint32 `json:"time"`
	NBits         uint32 `json:"nbits"`
	Nonce         uint32 `json:"nonce"`
	EntryCount    uint32 `json:"entry_count"`
	RawEntries    int    `json:"raw_entries_len"`
	Fingerprint   string `json:"raw_entries_xxhash64"`
}

// NewView builds the machine-readable form of a record
func NewView(height uint64, offset int64, b *block.Block) View {
	h := b.Body.Header
	return View{
		Height:        height,
		Offset:        offset,
		Magic:         b.Magic.String(),
		Size:          b.Size,
		Version:       h.Version,
		PrevBlockHash: HashString(h.PrevBlockHash),
		MerkleHash:    HashString(h.MerkleHash),
		Time:          h.Time,
		NBits:         h.NBits,
		Nonce:         h.Nonce,
		EntryCount:    b.Body.EntryCount,
		RawEntries:    len(b.Body.RawEntries),
		Fingerprint:   fmt.Sprintf("%016x", Fingerprint(b)),
	}
}

// JSON encodes the record view
func JSON(height uint64, offset int64, b *block.Block) ([]byte, error) {
	return json.Marshal(NewView(height, offset, b))
}
