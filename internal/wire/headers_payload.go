package wire

import (
	"encoding/binary"
	"fmt"
)

const (
	MaxHeadersPerMsg = 2_000
	MaxLocatorHashes = 64
)

// GetHeadersPayload / GetBlocksPayload share the same wire shape: a protocol
// version, a block locator (tip-to-genesis sparse hash list), and a stop
// hash. getblocks exists on the wire for completeness when talking to peers
// that prefer it; this node always issues getheaders.
type GetHeadersPayload struct {
	Version      uint32
	BlockLocator [][32]byte
	HashStop     [32]byte
}

func EncodeGetHeadersPayload(p GetHeadersPayload) ([]byte, error) {
	if len(p.BlockLocator) == 0 || len(p.BlockLocator) > MaxLocatorHashes {
		return nil, fmt.Errorf("wire: getheaders: invalid locator length")
	}
	out := make([]byte, 0, 4+9+len(p.BlockLocator)*32+32)
	var ver [4]byte
	binary.LittleEndian.PutUint32(ver[:], p.Version)
	out = append(out, ver[:]...)
	out = AppendVarInt(out, uint64(len(p.BlockLocator)))
	for _, h := range p.BlockLocator {
		out = append(out, h[:]...)
	}
	out = append(out, p.HashStop[:]...)
	return out, nil
}

func DecodeGetHeadersPayload(b []byte) (*GetHeadersPayload, error) {
	if len(b) < 4+1+32 {
		return nil, fmt.Errorf("wire: getheaders: short payload")
	}
	ver := binary.LittleEndian.Uint32(b[:4])
	hashCountU64, used, err := DecodeVarInt(b[4:])
	if err != nil {
		return nil, fmt.Errorf("wire: getheaders: hash_count: %w", err)
	}
	if hashCountU64 < 1 || hashCountU64 > MaxLocatorHashes {
		return nil, fmt.Errorf("wire: getheaders: invalid hash_count")
	}
	hashCount := int(hashCountU64)
	need := 4 + used + hashCount*32 + 32
	if len(b) != need {
		return nil, fmt.Errorf("wire: getheaders: length mismatch")
	}
	off := 4 + used
	loc := make([][32]byte, 0, hashCount)
	for i := 0; i < hashCount; i++ {
		var h [32]byte
		copy(h[:], b[off:off+32])
		loc = append(loc, h)
		off += 32
	}
	var stop [32]byte
	copy(stop[:], b[off:off+32])
	return &GetHeadersPayload{Version: ver, BlockLocator: loc, HashStop: stop}, nil
}

func EncodeHeadersPayload(hdrs []BlockHeader) ([]byte, error) {
	if len(hdrs) > MaxHeadersPerMsg {
		return nil, fmt.Errorf("wire: headers: too many headers")
	}
	out := AppendVarInt(nil, uint64(len(hdrs)))
	out = append(out, EncodeHeaders(hdrs)...)
	return out, nil
}

func DecodeHeadersPayload(b []byte) ([]BlockHeader, error) {
	countU64, used, err := DecodeVarInt(b)
	if err != nil {
		return nil, fmt.Errorf("wire: headers: count: %w", err)
	}
	if countU64 > MaxHeadersPerMsg {
		return nil, fmt.Errorf("wire: headers: count exceeds MaxHeadersPerMsg")
	}
	hdrs, used2, err := DecodeHeaders(b[used:], int(countU64))
	if err != nil {
		return nil, fmt.Errorf("wire: headers: %w", err)
	}
	if used+used2 != len(b) {
		return nil, fmt.Errorf("wire: headers: trailing bytes")
	}
	return hdrs, nil
}
