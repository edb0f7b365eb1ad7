package wire

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

// MaxUserAgentBytes bounds the version payload's user_agent string so a
// malicious peer can't force a large allocation before validation.
const MaxUserAgentBytes = 256

// VersionPayload is the first message exchanged on every session.
type VersionPayload struct {
	Version     int32
	Services    uint64
	Timestamp   int64
	AddrRecv    NetAddr
	AddrFrom    NetAddr
	Nonce       uint64
	UserAgent   string
	StartHeight int32
	Relay       bool
}

func EncodeVersionPayload(v VersionPayload) ([]byte, error) {
	if len(v.UserAgent) > MaxUserAgentBytes {
		return nil, fmt.Errorf("wire: version: user_agent too long")
	}
	if !utf8.ValidString(v.UserAgent) {
		return nil, fmt.Errorf("wire: version: user_agent must be UTF-8")
	}

	out := make([]byte, 0, 4+8+8+netAddrLen*2+8+9+len(v.UserAgent)+4+1)
	var tmp4 [4]byte
	var tmp8 [8]byte

	binary.LittleEndian.PutUint32(tmp4[:], uint32(v.Version))
	out = append(out, tmp4[:]...)
	binary.LittleEndian.PutUint64(tmp8[:], v.Services)
	out = append(out, tmp8[:]...)
	binary.LittleEndian.PutUint64(tmp8[:], uint64(v.Timestamp))
	out = append(out, tmp8[:]...)
	out = append(out, encodeNetAddr(v.AddrRecv)...)
	out = append(out, encodeNetAddr(v.AddrFrom)...)
	binary.LittleEndian.PutUint64(tmp8[:], v.Nonce)
	out = append(out, tmp8[:]...)
	out = AppendVarInt(out, uint64(len(v.UserAgent)))
	out = append(out, v.UserAgent...)
	binary.LittleEndian.PutUint32(tmp4[:], uint32(v.StartHeight))
	out = append(out, tmp4[:]...)
	if v.Relay {
		out = append(out, 1)
	} else {
		out = append(out, 0)
	}
	return out, nil
}

func DecodeVersionPayload(b []byte) (*VersionPayload, error) {
	const fixed = 4 + 8 + 8 + netAddrLen*2 + 8
	if len(b) < fixed {
		return nil, fmt.Errorf("wire: version: truncated")
	}
	off := 0
	version := int32(binary.LittleEndian.Uint32(b[off : off+4]))
	off += 4
	services := binary.LittleEndian.Uint64(b[off : off+8])
	off += 8
	timestamp := int64(binary.LittleEndian.Uint64(b[off : off+8]))
	off += 8
	addrRecv, err := decodeNetAddr(b[off:])
	if err != nil {
		return nil, fmt.Errorf("wire: version: addr_recv: %w", err)
	}
	off += netAddrLen
	addrFrom, err := decodeNetAddr(b[off:])
	if err != nil {
		return nil, fmt.Errorf("wire: version: addr_from: %w", err)
	}
	off += netAddrLen
	nonce := binary.LittleEndian.Uint64(b[off : off+8])
	off += 8

	uaLenU64, used, err := DecodeVarInt(b[off:])
	if err != nil {
		return nil, fmt.Errorf("wire: version: user_agent_len: %w", err)
	}
	off += used
	if uaLenU64 > MaxUserAgentBytes {
		return nil, fmt.Errorf("wire: version: user_agent_len exceeds limit")
	}
	uaLen := int(uaLenU64)
	if len(b) < off+uaLen+4+1 {
		return nil, fmt.Errorf("wire: version: truncated user_agent/tail")
	}
	uaBytes := b[off : off+uaLen]
	off += uaLen
	if !utf8.Valid(uaBytes) {
		return nil, fmt.Errorf("wire: version: user_agent must be UTF-8")
	}
	startHeight := int32(binary.LittleEndian.Uint32(b[off : off+4]))
	off += 4
	relayByte := b[off]
	off++
	if relayByte > 1 {
		return nil, fmt.Errorf("wire: version: relay must be 0 or 1")
	}
	if off != len(b) {
		return nil, fmt.Errorf("wire: version: trailing bytes")
	}

	return &VersionPayload{
		Version:     version,
		Services:    services,
		Timestamp:   timestamp,
		AddrRecv:    addrRecv,
		AddrFrom:    addrFrom,
		Nonce:       nonce,
		UserAgent:   string(uaBytes),
		StartHeight: startHeight,
		Relay:       relayByte == 1,
	}, nil
}

// PingPayload / PongPayload carry only a liveness nonce.
type PingPayload struct{ Nonce uint64 }
type PongPayload struct{ Nonce uint64 }

func EncodePingPayload(p PingPayload) []byte {
	var out [8]byte
	binary.LittleEndian.PutUint64(out[:], p.Nonce)
	return out[:]
}

func DecodePingPayload(b []byte) (PingPayload, error) {
	if len(b) != 8 {
		return PingPayload{}, fmt.Errorf("wire: ping: invalid payload length")
	}
	return PingPayload{Nonce: binary.LittleEndian.Uint64(b)}, nil
}

func EncodePongPayload(p PongPayload) []byte {
	return EncodePingPayload(PingPayload{Nonce: p.Nonce})
}

func DecodePongPayload(b []byte) (PongPayload, error) {
	p, err := DecodePingPayload(b)
	if err != nil {
		return PongPayload{}, fmt.Errorf("wire: pong: %w", err)
	}
	return PongPayload{Nonce: p.Nonce}, nil
}

// SendCmpctPayload announces compact-block relay support; this node never
// relays compact blocks (no block bodies), so it only decodes and discards it.
type SendCmpctPayload struct {
	Announce bool
	Version  uint64
}

func DecodeSendCmpctPayload(b []byte) (SendCmpctPayload, error) {
	if len(b) != 9 {
		return SendCmpctPayload{}, fmt.Errorf("wire: sendcmpct: invalid payload length")
	}
	if b[0] > 1 {
		return SendCmpctPayload{}, fmt.Errorf("wire: sendcmpct: announce must be 0 or 1")
	}
	return SendCmpctPayload{Announce: b[0] == 1, Version: binary.LittleEndian.Uint64(b[1:9])}, nil
}

func EncodeSendCmpctPayload(p SendCmpctPayload) []byte {
	out := make([]byte, 9)
	if p.Announce {
		out[0] = 1
	}
	binary.LittleEndian.PutUint64(out[1:9], p.Version)
	return out
}

// FeeFilterPayload announces a minimum relay fee; this node has no mempool
// or fee policy, so it only needs to be able to decode and ignore it.
type FeeFilterPayload struct{ FeeRateSatPerKB int64 }

func DecodeFeeFilterPayload(b []byte) (FeeFilterPayload, error) {
	if len(b) != 8 {
		return FeeFilterPayload{}, fmt.Errorf("wire: feefilter: invalid payload length")
	}
	return FeeFilterPayload{FeeRateSatPerKB: int64(binary.LittleEndian.Uint64(b))}, nil
}

// AddrEntry is one timestamped address record inside an `addr` payload.
type AddrEntry struct {
	Timestamp uint32
	Addr      NetAddr
}

const MaxAddrEntries = 1000

func DecodeAddrPayload(b []byte) ([]AddrEntry, error) {
	countU64, used, err := DecodeVarInt(b)
	if err != nil {
		return nil, fmt.Errorf("wire: addr: count: %w", err)
	}
	if countU64 > MaxAddrEntries {
		return nil, fmt.Errorf("wire: addr: count exceeds MaxAddrEntries")
	}
	count := int(countU64)
	off := used
	const entryLen = 4 + netAddrLen
	if len(b) != off+count*entryLen {
		return nil, fmt.Errorf("wire: addr: length mismatch")
	}
	out := make([]AddrEntry, 0, count)
	for i := 0; i < count; i++ {
		ts := binary.LittleEndian.Uint32(b[off : off+4])
		off += 4
		na, err := decodeNetAddr(b[off:])
		if err != nil {
			return nil, err
		}
		off += netAddrLen
		out = append(out, AddrEntry{Timestamp: ts, Addr: na})
	}
	return out, nil
}

func EncodeAddrPayload(entries []AddrEntry) ([]byte, error) {
	if len(entries) > MaxAddrEntries {
		return nil, fmt.Errorf("wire: addr: too many entries")
	}
	out := AppendVarInt(nil, uint64(len(entries)))
	var tmp4 [4]byte
	for _, e := range entries {
		binary.LittleEndian.PutUint32(tmp4[:], e.Timestamp)
		out = append(out, tmp4[:]...)
		out = append(out, encodeNetAddr(e.Addr)...)
	}
	return out, nil
}
