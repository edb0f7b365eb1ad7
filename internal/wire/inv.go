package wire

import (
	"encoding/binary"
	"fmt"
)

const MaxInvEntries = 50_000

// InvVector is one entry of an `inv`, `getdata`, or `notfound` list. This
// node only ever produces/consumes `inv` (to learn about new block hashes);
// it never sends getdata, since block bodies are out of scope.
type InvVector struct {
	Type uint32
	Hash [32]byte
}

func EncodeInvPayload(vecs []InvVector) ([]byte, error) {
	if len(vecs) > MaxInvEntries {
		return nil, fmt.Errorf("wire: inv: too many entries")
	}
	out := AppendVarInt(nil, uint64(len(vecs)))
	var tmp4 [4]byte
	for _, v := range vecs {
		binary.LittleEndian.PutUint32(tmp4[:], v.Type)
		out = append(out, tmp4[:]...)
		out = append(out, v.Hash[:]...)
	}
	return out, nil
}

func DecodeInvPayload(b []byte) ([]InvVector, error) {
	countU64, used, err := DecodeVarInt(b)
	if err != nil {
		return nil, fmt.Errorf("wire: inv: count: %w", err)
	}
	if countU64 > MaxInvEntries {
		return nil, fmt.Errorf("wire: inv: count exceeds MaxInvEntries")
	}
	count := int(countU64)
	off := used
	if len(b) != off+count*(4+32) {
		return nil, fmt.Errorf("wire: inv: length mismatch")
	}
	out := make([]InvVector, 0, count)
	for i := 0; i < count; i++ {
		t := binary.LittleEndian.Uint32(b[off : off+4])
		if t > 4 {
			return nil, fmt.Errorf("wire: inv: entry %d: invalid type %d", i, t)
		}
		off += 4
		var h [32]byte
		copy(h[:], b[off:off+32])
		off += 32
		out = append(out, InvVector{Type: t, Hash: h})
	}
	return out, nil
}
