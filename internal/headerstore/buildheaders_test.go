package headerstore

import (
	"testing"

	"github.com/DanielSidhion/kaliko/internal/bus"
	"github.com/DanielSidhion/kaliko/internal/wire"
)

func mkHeader(prev [32]byte, nonce uint32) wire.BlockHeader {
	return wire.BlockHeader{
		Version:       1,
		PrevBlockHash: prev,
		MerkleRoot:    [32]byte{byte(nonce)},
		Timestamp:     1000 + nonce,
		Bits:          0x1d00ffff,
		Nonce:         nonce,
	}
}

func openTestStore(t *testing.T) (*Store, chan bus.Event) {
	t.Helper()
	out := make(chan bus.Event, 64)
	genesis := mkHeader([32]byte{}, 0)
	s, err := Open(t.TempDir(), genesis, out)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, out
}

// chainFrom builds n headers chained from prevTip, returning the extended
// slice and its new tip hash.
func chainFrom(prevTip [32]byte, n int, nonceBase uint32) ([]wire.BlockHeader, [32]byte) {
	var out []wire.BlockHeader
	tip := prevTip
	for i := 0; i < n; i++ {
		h := mkHeader(tip, nonceBase+uint32(i))
		out = append(out, h)
		tip = h.Hash()
	}
	return out, tip
}

// TestReorgLongerBranchDisplacesTailIntoSplit is spec.md ยง8 scenario 5: main
// chain [G,A,B,C], an incoming batch [X,Y,Z] attaches at A and is longer
// than the [B,C] tail it displaces, so main becomes [G,A,X,Y,Z] and [B,C]
// is tracked as a split.
func TestReorgLongerBranchDisplacesTailIntoSplit(t *testing.T) {
	s, out := openTestStore(t)

	genesisHash := s.main[0].hash
	abc, _ := chainFrom(genesisHash, 3, 10) // A, B, C
	s.ingest("peer-1", abc)
	if s.TipHeight() != 3 {
		t.Fatalf("after A,B,C: tip height = %d, want 3", s.TipHeight())
	}
	aHash := abc[0].Hash()
	bHash := abc[1].Hash()
	cHash := abc[2].Hash()

	xyz, _ := chainFrom(aHash, 3, 100) // X, Y, Z attach at A
	s.ingest("peer-2", xyz)

	if s.TipHeight() != 4 {
		t.Fatalf("after reorg: tip height = %d, want 4 (G,A,X,Y,Z)", s.TipHeight())
	}
	if s.main[1].hash != aHash {
		t.Fatalf("height 1 should still be A")
	}
	if s.main[2].hash != xyz[0].Hash() || s.main[3].hash != xyz[1].Hash() || s.main[4].hash != xyz[2].Hash() {
		t.Fatalf("main chain tail does not match incoming branch")
	}

	oldTip := cHash
	sp, ok := s.splits[oldTip]
	if !ok {
		t.Fatalf("expected [B,C] tail to be tracked as a split keyed by C's hash")
	}
	if sp.length() != 2 || sp.headers[0].Hash() != bHash || sp.headers[1].Hash() != cHash {
		t.Fatalf("split contents mismatch: %+v", sp)
	}

	select {
	case ev := <-out:
		if ev.Kind != bus.NewHeadersAvailable {
			t.Fatalf("got event kind %v, want NewHeadersAvailable", ev.Kind)
		}
		if ev.PeerID != "peer-1" {
			t.Fatalf("NewHeadersAvailable.PeerID = %q, want %q (the peer whose batch was ingested)", ev.PeerID, "peer-1")
		}
	default:
		t.Fatal("expected a NewHeadersAvailable event from the A,B,C ingest")
	}
}

// TestNewHeadersAvailableDrivesAnotherGetHeaders is the sync-drain loop from
// spec.md ยง4.5: after a batch lands on the main chain, the store must ask
// the same peer for more rather than stopping after one capped batch.
func TestNewHeadersAvailableDrivesAnotherGetHeaders(t *testing.T) {
	s, out := openTestStore(t)

	genesisHash := s.main[0].hash
	abc, tip := chainFrom(genesisHash, 3, 10)
	s.ingest("peer-1", abc)

	select {
	case ev := <-out:
		if ev.Kind != bus.NewHeadersAvailable {
			t.Fatalf("got event kind %v, want NewHeadersAvailable", ev.Kind)
		}
	default:
		t.Fatal("expected a NewHeadersAvailable event from the ingest")
	}

	s.handleEvent(bus.Event{Kind: bus.NewHeadersAvailable, PeerID: "peer-1"})

	select {
	case ev := <-out:
		if ev.Kind != bus.RequestHeadersFromPeer || ev.PeerID != "peer-1" {
			t.Fatalf("got event %+v, want RequestHeadersFromPeer addressed to peer-1", ev)
		}
		if len(ev.BlockLocator) == 0 || ev.BlockLocator[0] != tip {
			t.Fatalf("drain request locator does not start at the new tip")
		}
	default:
		t.Fatal("expected NewHeadersAvailable to re-issue RequestHeadersFromPeer against the same peer")
	}
}

func TestIngestShorterBranchIsDiscarded(t *testing.T) {
	s, _ := openTestStore(t)
	genesisHash := s.main[0].hash

	abc, _ := chainFrom(genesisHash, 3, 10)
	s.ingest("peer-1", abc)
	aHash := abc[0].Hash()

	short, _ := chainFrom(aHash, 1, 200) // only one header, shorter than the two-header [B,C] tail
	s.ingest("peer-2", short)

	if s.TipHeight() != 3 {
		t.Fatalf("tip height = %d, want 3 (shorter branch must be discarded)", s.TipHeight())
	}
	if _, ok := s.splits[short[0].Hash()]; ok {
		t.Fatal("a strictly shorter branch must not be tracked as a split")
	}
}

func TestIngestEqualLengthBranchIsTrackedNotAdopted(t *testing.T) {
	s, _ := openTestStore(t)
	genesisHash := s.main[0].hash

	abc, _ := chainFrom(genesisHash, 3, 10)
	s.ingest("peer-1", abc)
	aHash := abc[0].Hash()
	mainTipBefore := s.knownTip

	tie, _ := chainFrom(aHash, 2, 200) // same length as the displaced [B,C] tail
	s.ingest("peer-2", tie)

	if s.knownTip != mainTipBefore {
		t.Fatal("an equal-length branch must not replace the existing main chain")
	}
	if _, ok := s.splits[tie[len(tie)-1].Hash()]; !ok {
		t.Fatal("an equal-length branch must still be tracked as a split")
	}
}

func TestIngestRejectsBrokenInternalChain(t *testing.T) {
	s, out := openTestStore(t)
	genesisHash := s.main[0].hash

	broken := []wire.BlockHeader{
		mkHeader(genesisHash, 1),
		mkHeader([32]byte{0xFF}, 2), // does not chain from the previous header
	}
	s.ingest("peer-1", broken)

	if s.TipHeight() != 0 {
		t.Fatalf("tip height = %d, want 0 (broken batch must be rejected)", s.TipHeight())
	}
	select {
	case ev := <-out:
		t.Fatalf("rejected batch must not publish an event, got %+v", ev)
	default:
	}
}
