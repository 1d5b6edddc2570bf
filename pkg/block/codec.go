package block

import (
	"encoding/binary"
	"fmt"
)

// Header layout, all integers little-endian:
// - Version (4 bytes, signed)
// - PrevBlockHash (32 bytes)
// - MerkleHash (32 bytes)
// - Time (4 bytes)
// - NBits (4 bytes)
// - Nonce (4 bytes)

// DecodeHeader parses a header from the first HeaderSize bytes of data
func DecodeHeader(data []byte) (Header, error) {
	var h Header
	if len(data) < HeaderSize {
		return h, fmt.Errorf("%w: header needs %d bytes, got %d",
			ErrMalformedPayload, HeaderSize, len(data))
	}

	h.Version = int32(binary.LittleEndian.Uint32(data[0:4]))
	copy(h.PrevBlockHash[:], data[4:36])
	copy(h.MerkleHash[:], data[36:68])
	h.Time = binary.LittleEndian.Uint32(data[68:72])
	h.NBits = binary.LittleEndian.Uint32(data[72:76])
	h.Nonce = binary.LittleEndian.Uint32(data[76:80])

	return h, nil
}

// Encode serializes the header to its fixed 80-byte form
func (h *Header) Encode() []byte {
	result := make([]byte, HeaderSize)
	h.encodeTo(result)
	return result
}

func (h *Header) encodeTo(dst []byte) {
	binary.LittleEndian.PutUint32(dst[0:4], uint32(h.Version))
	copy(dst[4:36], h.PrevBlockHash[:])
	copy(dst[36:68], h.MerkleHash[:])
	binary.LittleEndian.PutUint32(dst[68:72], h.Time)
	binary.LittleEndian.PutUint32(dst[72:76], h.NBits)
	binary.LittleEndian.PutUint32(dst[76:80], h.Nonce)
}

// DecodeBody parses a full payload. The trailing entry bytes are copied, so
// payload may be reused by the caller afterwards.
func DecodeBody(payload []byte) (Body, error) {
	var body Body
	if len(payload) < FixedBodySize {
		return body, fmt.Errorf("%w: payload needs at least %d bytes, got %d",
			ErrMalformedPayload, FixedBodySize, len(payload))
	}

	header, err := DecodeHeader(payload[:HeaderSize])
	if err != nil {
		return body, err
	}
	body.Header = header
	body.EntryCount = binary.LittleEndian.Uint32(payload[HeaderSize:FixedBodySize])

	rest := payload[FixedBodySize:]
	body.RawEntries = make([]byte, len(rest))
	copy(body.RawEntries, rest)

	return body, nil
}

// EncodedLen returns the payload length Encode produces
func (b *Body) EncodedLen() int {
	return FixedBodySize + len(b.RawEntries)
}

// Encode serializes the body into a payload
func (b *Body) Encode() []byte {
	result := make([]byte, b.EncodedLen())
	b.Header.encodeTo(result[:HeaderSize])
	binary.LittleEndian.PutUint32(result[HeaderSize:FixedBodySize], b.EntryCount)
	copy(result[FixedBodySize:], b.RawEntries)
	return result
}

// NewBlock wraps a body in a record using the given marker. Size is set
// from the encoded body length.
func NewBlock(magic Magic, body Body) *Block {
	return &Block{
		Magic: magic,
		Size:  uint32(body.EncodedLen()),
		Body:  body,
	}
}

// Encode serializes the record exactly as it appears on disk. The size
// field is written from b.Size, which lets callers produce records whose
// declared length disagrees with the body.
func (b *Block) Encode() []byte {
	payload := b.Body.Encode()
	result := make([]byte, PrefixSize+len(payload))
	copy(result[0:4], b.Magic[:])
	binary.LittleEndian.PutUint32(result[4:8], b.Size)
	copy(result[PrefixSize:], payload)
	return result
}
