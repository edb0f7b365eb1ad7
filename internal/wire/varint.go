package wire

import (
	"encoding/binary"
	"fmt"
)

// EncodeVarInt writes n in its canonical (shortest) form.
func EncodeVarInt(n uint64) []byte {
	switch {
	case n < 0xfd:
		return []byte{byte(n)}
	case n <= 0xffff:
		out := make([]byte, 3)
		out[0] = 0xfd
		binary.LittleEndian.PutUint16(out[1:], uint16(n))
		return out
	case n <= 0xffffffff:
		out := make([]byte, 5)
		out[0] = 0xfe
		binary.LittleEndian.PutUint32(out[1:], uint32(n))
		return out
	default:
		out := make([]byte, 9)
		out[0] = 0xff
		binary.LittleEndian.PutUint64(out[1:], n)
		return out
	}
}

// AppendVarInt appends the canonical encoding of n to dst.
func AppendVarInt(dst []byte, n uint64) []byte {
	return append(dst, EncodeVarInt(n)...)
}

// DecodeVarInt reads one VLI value from the front of b.
//
// Unlike a consensus-layer CompactSize decoder, this accepts any encoded
// form — including non-canonical ones where a smaller tag would have
// sufficed. A header-relay codec has no consensus rule to enforce here;
// rejecting a peer over a non-minimal count would only make the node more
// fragile without protecting anything.
func DecodeVarInt(b []byte) (uint64, int, error) {
	if len(b) < 1 {
		return 0, 0, fmt.Errorf("wire: varint: empty input")
	}
	tag := b[0]
	switch {
	case tag < 0xfd:
		return uint64(tag), 1, nil
	case tag == 0xfd:
		if len(b) < 3 {
			return 0, 0, fmt.Errorf("wire: varint: truncated 0xfd form")
		}
		return uint64(binary.LittleEndian.Uint16(b[1:3])), 3, nil
	case tag == 0xfe:
		if len(b) < 5 {
			return 0, 0, fmt.Errorf("wire: varint: truncated 0xfe form")
		}
		return uint64(binary.LittleEndian.Uint32(b[1:5])), 5, nil
	default: // 0xff
		if len(b) < 9 {
			return 0, 0, fmt.Errorf("wire: varint: truncated 0xff form")
		}
		return binary.LittleEndian.Uint64(b[1:9]), 9, nil
	}
}

// VarIntLen returns the canonical encoded length of n, without encoding it.
func VarIntLen(n uint64) int {
	switch {
	case n < 0xfd:
		return 1
	case n <= 0xffff:
		return 3
	case n <= 0xffffffff:
		return 5
	default:
		return 9
	}
}
