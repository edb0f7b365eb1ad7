package wire

import "testing"

func TestVersionPayloadRoundTrip(t *testing.T) {
	v := VersionPayload{
		Version:     70015,
		Services:    0,
		Timestamp:   1700000000,
		AddrRecv:    NetAddr{Services: 1, Port: 8333},
		AddrFrom:    NetAddr{Services: 2, Port: 18333},
		Nonce:       0x0123456789ABCDEF,
		UserAgent:   "/kaliko:0.1.0/",
		StartHeight: 42,
		Relay:       true,
	}
	enc, err := EncodeVersionPayload(v)
	if err != nil {
		t.Fatalf("EncodeVersionPayload: %v", err)
	}
	got, err := DecodeVersionPayload(enc)
	if err != nil {
		t.Fatalf("DecodeVersionPayload: %v", err)
	}
	if *got != v {
		t.Fatalf("round trip mismatch: got %+v, want %+v", *got, v)
	}
}

func TestVersionPayloadRejectsOversizedUserAgent(t *testing.T) {
	ua := make([]byte, MaxUserAgentBytes+1)
	for i := range ua {
		ua[i] = 'a'
	}
	_, err := EncodeVersionPayload(VersionPayload{UserAgent: string(ua)})
	if err == nil {
		t.Fatal("expected error for oversized user_agent")
	}
}

func TestPingPongRoundTrip(t *testing.T) {
	const nonce = uint64(0x0123456789ABCDEF)
	ping := EncodePingPayload(PingPayload{Nonce: nonce})
	got, err := DecodePingPayload(ping)
	if err != nil {
		t.Fatalf("DecodePingPayload: %v", err)
	}
	if got.Nonce != nonce {
		t.Fatalf("got nonce %x, want %x", got.Nonce, nonce)
	}

	pong := EncodePongPayload(PongPayload{Nonce: nonce})
	gotPong, err := DecodePongPayload(pong)
	if err != nil {
		t.Fatalf("DecodePongPayload: %v", err)
	}
	if gotPong.Nonce != nonce {
		t.Fatalf("got nonce %x, want %x", gotPong.Nonce, nonce)
	}
}

func TestDecodePingPayloadRejectsWrongLength(t *testing.T) {
	if _, err := DecodePingPayload([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for short ping payload")
	}
}

func TestAddrPayloadRoundTrip(t *testing.T) {
	entries := []AddrEntry{
		{Timestamp: 1, Addr: NetAddr{Services: 1, Port: 8333}},
		{Timestamp: 2, Addr: NetAddr{Services: 2, Port: 18333}},
	}
	enc, err := EncodeAddrPayload(entries)
	if err != nil {
		t.Fatalf("EncodeAddrPayload: %v", err)
	}
	got, err := DecodeAddrPayload(enc)
	if err != nil {
		t.Fatalf("DecodeAddrPayload: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("got %d entries, want %d", len(got), len(entries))
	}
	for i := range entries {
		if got[i] != entries[i] {
			t.Errorf("entry %d: got %+v, want %+v", i, got[i], entries[i])
		}
	}
}

func TestSendCmpctPayloadRoundTrip(t *testing.T) {
	p := SendCmpctPayload{Announce: true, Version: 2}
	enc := EncodeSendCmpctPayload(p)
	got, err := DecodeSendCmpctPayload(enc)
	if err != nil {
		t.Fatalf("DecodeSendCmpctPayload: %v", err)
	}
	if got != p {
		t.Fatalf("got %+v, want %+v", got, p)
	}
}

func TestFeeFilterPayload(t *testing.T) {
	enc := EncodePingPayload(PingPayload{Nonce: 1000})
	got, err := DecodeFeeFilterPayload(enc)
	if err != nil {
		t.Fatalf("DecodeFeeFilterPayload: %v", err)
	}
	if got.FeeRateSatPerKB != 1000 {
		t.Fatalf("got %d, want 1000", got.FeeRateSatPerKB)
	}
}
