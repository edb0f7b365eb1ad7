package peer

import (
	"fmt"
	"math/rand/v2"
	"net"
	"time"

	"github.com/DanielSidhion/kaliko/internal/wire"
)

// RequiredProtocolVersion is the only version.version a peer may present;
// anything else terminates the session. The data model calls this out as a
// hard requirement rather than a negotiated minimum.
const RequiredProtocolVersion = 70015

const handshakeTimeout = 10 * time.Second

// handshakeResult carries what the rest of the session needs once the
// version/verack exchange completes.
type handshakeResult struct {
	PeerVersion wire.VersionPayload
}

// doHandshake runs the fixed send-version / recv-version / recv-verack /
// send-verack sequence. The version it sends carries the current time and
// a freshly drawn random nonce. Any deviation — wrong protocol version, messages
// out of order, a second version, a reject — terminates the session; there
// is no renegotiation.
func doHandshake(conn net.Conn, magic uint32, ours wire.VersionPayload) (*handshakeResult, error) {
	ours.Version = RequiredProtocolVersion
	ours.Timestamp = time.Now().Unix()
	ours.Nonce = rand.Uint64()
	payload, err := wire.EncodeVersionPayload(ours)
	if err != nil {
		return nil, fmt.Errorf("peer: handshake: encode version: %w", err)
	}
	if err := wire.WriteMessage(conn, magic, wire.CmdVersion, payload); err != nil {
		return nil, fmt.Errorf("peer: handshake: send version: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	msg, rerr := wire.ReadMessage(conn, magic)
	if rerr != nil {
		return nil, fmt.Errorf("peer: handshake: recv version: %w", rerr)
	}
	if msg.Command != wire.CmdVersion {
		return nil, fmt.Errorf("peer: handshake: expected version, got %q", msg.Command)
	}
	peerVersion, err := wire.DecodeVersionPayload(msg.Payload)
	if err != nil {
		return nil, fmt.Errorf("peer: handshake: decode version: %w", err)
	}
	if peerVersion.Version != RequiredProtocolVersion {
		return nil, fmt.Errorf("peer: handshake: unsupported protocol version %d", peerVersion.Version)
	}

	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	msg, rerr = wire.ReadMessage(conn, magic)
	if rerr != nil {
		return nil, fmt.Errorf("peer: handshake: recv verack: %w", rerr)
	}
	if msg.Command != wire.CmdVerack {
		return nil, fmt.Errorf("peer: handshake: expected verack, got %q", msg.Command)
	}
	if len(msg.Payload) != 0 {
		return nil, fmt.Errorf("peer: handshake: verack payload must be empty")
	}

	if err := wire.WriteMessage(conn, magic, wire.CmdVerack, nil); err != nil {
		return nil, fmt.Errorf("peer: handshake: send verack: %w", err)
	}

	_ = conn.SetReadDeadline(time.Time{})
	return &handshakeResult{PeerVersion: *peerVersion}, nil
}
