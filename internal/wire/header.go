package wire

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// HeaderPrefixBytes is the length of the fixed portion of a block header,
// i.e. everything that is double-SHA256'd to produce the block hash.
const HeaderPrefixBytes = 80

// BlockHeader is the 80-byte fixed header plus its trailing VLI txn_count.
// This node never stores or relays the transactions themselves (spec
// Non-goal), only the count that follows the header on the wire.
type BlockHeader struct {
	Version       int32
	PrevBlockHash [32]byte
	MerkleRoot    [32]byte
	Timestamp     uint32
	Bits          uint32
	Nonce         uint32
	TxnCount      uint64
}

// Len returns the encoded length of h (80 fixed bytes + the VLI txn_count).
func (h BlockHeader) Len() int {
	return HeaderPrefixBytes + VarIntLen(h.TxnCount)
}

// EncodePrefix returns the 80-byte fixed prefix only — the part that is
// hashed to produce the block identifier.
func (h BlockHeader) EncodePrefix() [HeaderPrefixBytes]byte {
	var out [HeaderPrefixBytes]byte
	binary.LittleEndian.PutUint32(out[0:4], uint32(h.Version))
	copy(out[4:36], h.PrevBlockHash[:])
	copy(out[36:68], h.MerkleRoot[:])
	binary.LittleEndian.PutUint32(out[68:72], h.Timestamp)
	binary.LittleEndian.PutUint32(out[72:76], h.Bits)
	binary.LittleEndian.PutUint32(out[76:80], h.Nonce)
	return out
}

// Encode returns the full wire encoding: the 80-byte prefix followed by the
// VLI-encoded txn_count.
func (h BlockHeader) Encode() []byte {
	prefix := h.EncodePrefix()
	out := make([]byte, 0, h.Len())
	out = append(out, prefix[:]...)
	out = AppendVarInt(out, h.TxnCount)
	return out
}

// Hash computes the block identifier: double-SHA256 of the 80-byte prefix.
// This is purely an identity hash — this node performs no proof-of-work
// verification against it (spec Non-goal).
func (h BlockHeader) Hash() [32]byte {
	prefix := h.EncodePrefix()
	first := sha256.Sum256(prefix[:])
	return sha256.Sum256(first[:])
}

// DecodeBlockHeader parses one header (80-byte prefix + VLI txn_count) from
// the front of b, returning the header and the number of bytes consumed.
func DecodeBlockHeader(b []byte) (BlockHeader, int, error) {
	if len(b) < HeaderPrefixBytes {
		return BlockHeader{}, 0, fmt.Errorf("wire: header: truncated prefix")
	}
	var h BlockHeader
	h.Version = int32(binary.LittleEndian.Uint32(b[0:4]))
	copy(h.PrevBlockHash[:], b[4:36])
	copy(h.MerkleRoot[:], b[36:68])
	h.Timestamp = binary.LittleEndian.Uint32(b[68:72])
	h.Bits = binary.LittleEndian.Uint32(b[72:76])
	h.Nonce = binary.LittleEndian.Uint32(b[76:80])

	count, used, err := DecodeVarInt(b[HeaderPrefixBytes:])
	if err != nil {
		return BlockHeader{}, 0, fmt.Errorf("wire: header: txn_count: %w", err)
	}
	h.TxnCount = count
	return h, HeaderPrefixBytes + used, nil
}

// DecodeHeaders parses count consecutive headers starting at the front of b.
func DecodeHeaders(b []byte, count int) ([]BlockHeader, int, error) {
	out := make([]BlockHeader, 0, count)
	off := 0
	for i := 0; i < count; i++ {
		h, used, err := DecodeBlockHeader(b[off:])
		if err != nil {
			return nil, 0, err
		}
		out = append(out, h)
		off += used
	}
	return out, off, nil
}

// EncodeHeaders concatenates the raw encodings of hdrs in order — this is
// exactly the on-disk format of the persisted header log as well as the
// `headers` message body (minus its leading count).
func EncodeHeaders(hdrs []BlockHeader) []byte {
	total := 0
	for _, h := range hdrs {
		total += h.Len()
	}
	out := make([]byte, 0, total)
	for _, h := range hdrs {
		out = append(out, h.Encode()...)
	}
	return out
}
