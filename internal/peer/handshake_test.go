package peer

import (
	"net"
	"testing"
	"time"

	"github.com/DanielSidhion/kaliko/internal/wire"
)

func versionFor(height int32) wire.VersionPayload {
	return wire.VersionPayload{
		Version:     RequiredProtocolVersion,
		Services:    0,
		Timestamp:   time.Now().Unix(),
		Nonce:       1,
		UserAgent:   "/test:0.0.0/",
		StartHeight: height,
	}
}

// remoteRespond plays the other half of the handshake over conn: read the
// version we sent, reply with its own version (at peerVersion), then
// exchange verack in the fixed order doHandshake expects.
func remoteRespond(t *testing.T, conn net.Conn, magic uint32, peerVersion int32) {
	t.Helper()
	msg, rerr := wire.ReadMessage(conn, magic)
	if rerr != nil {
		t.Errorf("remote: read version: %v", rerr)
		return
	}
	if msg.Command != wire.CmdVersion {
		t.Errorf("remote: expected version, got %q", msg.Command)
		return
	}

	payload, err := wire.EncodeVersionPayload(versionFor(1000))
	if err != nil {
		t.Errorf("remote: encode version: %v", err)
		return
	}
	if peerVersion != 0 {
		// Overwrite just the version field so the test can inject a bad one.
		payload, err = wire.EncodeVersionPayload(wire.VersionPayload{
			Version:     peerVersion,
			UserAgent:   "/test:0.0.0/",
			StartHeight: 1000,
		})
		if err != nil {
			t.Errorf("remote: encode version: %v", err)
			return
		}
	}
	if err := wire.WriteMessage(conn, magic, wire.CmdVersion, payload); err != nil {
		t.Errorf("remote: send version: %v", err)
		return
	}

	if peerVersion != 0 && peerVersion != RequiredProtocolVersion {
		// doHandshake will bail before sending verack; nothing more to do.
		return
	}

	if err := wire.WriteMessage(conn, magic, wire.CmdVerack, nil); err != nil {
		t.Errorf("remote: send verack: %v", err)
		return
	}
	ack, rerr := wire.ReadMessage(conn, magic)
	if rerr != nil {
		t.Errorf("remote: read verack: %v", rerr)
		return
	}
	if ack.Command != wire.CmdVerack {
		t.Errorf("remote: expected verack, got %q", ack.Command)
	}
}

func TestDoHandshakeSucceeds(t *testing.T) {
	const magic = uint32(0xD9B4BEF9)
	local, remote := net.Pipe()
	defer local.Close()
	defer remote.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		remoteRespond(t, remote, magic, RequiredProtocolVersion)
	}()

	result, err := doHandshake(local, magic, versionFor(1))
	if err != nil {
		t.Fatalf("doHandshake: %v", err)
	}
	if result.PeerVersion.StartHeight != 1000 {
		t.Fatalf("got StartHeight %d, want 1000", result.PeerVersion.StartHeight)
	}
	<-done
}

// TestDoHandshakeRejectsWrongProtocolVersion is spec.md ยง8 scenario 3: a
// peer presenting anything other than RequiredProtocolVersion must fail the
// handshake rather than be negotiated down or up.
func TestDoHandshakeRejectsWrongProtocolVersion(t *testing.T) {
	const magic = uint32(0xD9B4BEF9)
	local, remote := net.Pipe()
	defer local.Close()
	defer remote.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		remoteRespond(t, remote, magic, 70014)
	}()

	_, err := doHandshake(local, magic, versionFor(1))
	if err == nil {
		t.Fatal("expected handshake failure for unsupported protocol version")
	}
	<-done
}
