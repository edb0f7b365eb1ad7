package headerstore

import "testing"

func TestLocatorHeightsEmptyChain(t *testing.T) {
	got := locatorHeights(-1)
	if got != nil {
		t.Fatalf("locatorHeights(-1) = %v, want nil", got)
	}
}

func TestLocatorHeightsShortChainEndsAtGenesis(t *testing.T) {
	got := locatorHeights(3)
	want := []int{3, 2, 1, 0}
	if !intSliceEqual(got, want) {
		t.Fatalf("locatorHeights(3) = %v, want %v", got, want)
	}
}

// TestLocatorHeightsLongChain checks the last-ten-then-exponential shape and
// that genesis (height 0) is always the final entry.
func TestLocatorHeightsLongChain(t *testing.T) {
	got := locatorHeights(100)
	if len(got) < 10 {
		t.Fatalf("expected at least 10 linear entries, got %v", got)
	}
	for i := 0; i < 10; i++ {
		if got[i] != 100-i {
			t.Fatalf("entry %d = %d, want %d (last ten heights in reverse)", i, got[i], 100-i)
		}
	}
	if got[len(got)-1] != 0 {
		t.Fatalf("locator must always end at genesis, got %v", got)
	}
	for i := 10; i < len(got)-1; i++ {
		if got[i] <= got[i+1] {
			t.Fatalf("locator heights must strictly decrease: %v", got)
		}
	}
}

func TestLocateAncestorFindsHighestMatch(t *testing.T) {
	s, _ := openTestStore(t)
	genesisHash := s.main[0].hash
	abc, _ := chainFrom(genesisHash, 3, 10)
	s.ingest("peer-1", abc)

	bHash := abc[1].Hash()
	height, ok := s.locateAncestor([][32]byte{bHash, genesisHash})
	if !ok || height != 2 {
		t.Fatalf("locateAncestor = (%d, %v), want (2, true)", height, ok)
	}
}

func TestLocateAncestorNoMatch(t *testing.T) {
	s, _ := openTestStore(t)
	_, ok := s.locateAncestor([][32]byte{{0xFF}})
	if ok {
		t.Fatal("expected no match for an unknown locator")
	}
}

func intSliceEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
