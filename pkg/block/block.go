// Package block defines the on-disk layout of a chain record and the codec
// that moves records between bytes and structured form.
package block

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	// MagicSize is the length of the record marker
	MagicSize = 4
	// PrefixSize is the marker plus the little-endian payload size
	PrefixSize = 8
	// HashSize is the length of each opaque hash in the header
	HashSize = 32
	// HeaderSize is the fixed size of an encoded Header
	HeaderSize = 80
	// FixedBodySize is the header plus the entry count
	FixedBodySize = HeaderSize + 4
)

var (
	// ErrInvalidMarker is returned when a record does not start with the expected magic
	ErrInvalidMarker = errors.New("invalid record marker")
	// ErrTruncatedRead is returned when the file ends before a declared record does
	ErrTruncatedRead = errors.New("truncated record")
	// ErrMalformedLength is returned when a declared payload size cannot be honored
	ErrMalformedLength = errors.New("malformed payload length")
	// ErrMalformedPayload is returned when a payload is shorter than its fixed portion
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrEndOfChain is returned when no record starts at the requested offset
	ErrEndOfChain = errors.New("end of chain")
	// ErrUnknownNetwork is returned for a network name with no known magic
	ErrUnknownNetwork = errors.New("unknown network")
)

// Magic is the 4-byte marker that prefixes every record.
type Magic [MagicSize]byte

// Well-known markers, byte-for-byte as they appear on disk.
var (
	MainnetMagic = Magic{0xf9, 0xbe, 0xb4, 0xd9}
	TestnetMagic = Magic{0x0b, 0x11, 0x09, 0x07}
	RegtestMagic = Magic{0xfa, 0xbf, 0xb5, 0xda}
	SignetMagic  = Magic{0x0a, 0x03, 0xcf, 0x40}
)

var networks = map[string]Magic{
	"mainnet": MainnetMagic,
	"testnet": TestnetMagic,
	"regtest": RegtestMagic,
	"signet":  SignetMagic,
}

// MagicForNetwork resolves a network name to its record marker.
func MagicForNetwork(name string) (Magic, error) {
	m, ok := networks[strings.ToLower(name)]
	if !ok {
		return Magic{}, fmt.Errorf("%w: %q", ErrUnknownNetwork, name)
	}
	return m, nil
}

// ParseMagic decodes an 8-character hex string into a Magic.
func ParseMagic(s string) (Magic, error) {
	var m Magic
	raw, err := hex.DecodeString(s)
	if err != nil {
		return m, fmt.Errorf("invalid magic %q: %w", s, err)
	}
	if len(raw) != MagicSize {
		return m, fmt.Errorf("invalid magic %q: want %d bytes, got %d", s, MagicSize, len(raw))
	}
	copy(m[:], raw)
	return m, nil
}

// String returns the marker as hex
func (m Magic) String() string {
	return hex.EncodeToString(m[:])
}

// Header is the fixed 80-byte record header. No field is validated.
type Header struct {
	Version       int32
	PrevBlockHash [HashSize]byte
	MerkleHash    [HashSize]byte
	Time          uint32
	NBits         uint32
	Nonce         uint32
}

// Body is the record payload: header, entry count and the undecoded entries.
type Body struct {
	Header     Header
	EntryCount uint32
	RawEntries []byte
}

// Block is one decoded record.
type Block struct {
	Magic Magic
	// Size is the declared payload length
	Size uint32
	Body Body
}

// Span returns the number of bytes the record occupies on disk
func (b *Block) Span() int64 {
	return PrefixSize + int64(b.Size)
}

// Clone returns a deep copy that shares no memory with b
func (b *Block) Clone() *Block {
	c := *b
	if b.Body.RawEntries != nil {
		c.Body.RawEntries = make([]byte, len(b.Body.RawEntries))
		copy(c.Body.RawEntries, b.Body.RawEntries)
	}
	return &c
}
