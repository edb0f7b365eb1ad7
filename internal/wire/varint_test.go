package wire

import "testing"

func TestVarIntEncodeBoundaries(t *testing.T) {
	cases := []struct {
		n    uint64
		want []byte
	}{
		{0, []byte{0x00}},
		{252, []byte{0xFC}},
		{253, []byte{0xFD, 0xFD, 0x00}},
		{65535, []byte{0xFD, 0xFF, 0xFF}},
		{65536, []byte{0xFE, 0x00, 0x00, 0x01, 0x00}},
	}
	for _, c := range cases {
		got := EncodeVarInt(c.n)
		if string(got) != string(c.want) {
			t.Errorf("EncodeVarInt(%d) = % x, want % x", c.n, got, c.want)
		}
		if len(got) != VarIntLen(c.n) {
			t.Errorf("VarIntLen(%d) = %d, want %d", c.n, VarIntLen(c.n), len(got))
		}
	}
}

func TestVarIntDecodeRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 0xfc, 0xfd, 0xffff, 0x10000, 0xffffffff, 0x100000000, ^uint64(0)}
	for _, n := range values {
		enc := EncodeVarInt(n)
		got, used, err := DecodeVarInt(enc)
		if err != nil {
			t.Fatalf("DecodeVarInt(%v): %v", enc, err)
		}
		if got != n || used != len(enc) {
			t.Errorf("DecodeVarInt round trip for %d: got %d (used %d), want %d (used %d)", n, got, used, n, len(enc))
		}
	}
}

// DecodeVarInt must accept any legal encoding of n, not just the canonical
// one — unlike a consensus-layer CompactSize decoder, there is no fee or
// signature hash riding on this codec's strictness.
func TestVarIntDecodeAcceptsNonCanonicalForms(t *testing.T) {
	cases := []struct {
		name string
		enc  []byte
		want uint64
	}{
		{"0xfd form encoding a value that fits in one byte", []byte{0xfd, 0x05, 0x00}, 5},
		{"0xfe form encoding a value that fits in one byte", []byte{0xfe, 0x05, 0x00, 0x00, 0x00}, 5},
		{"0xff form encoding a value that fits in one byte", []byte{0xff, 0x05, 0, 0, 0, 0, 0, 0, 0}, 5},
	}
	for _, c := range cases {
		got, used, err := DecodeVarInt(c.enc)
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		if got != c.want || used != len(c.enc) {
			t.Errorf("%s: got %d (used %d), want %d (used %d)", c.name, got, used, c.want, len(c.enc))
		}
	}
}

func TestVarIntDecodeTruncated(t *testing.T) {
	cases := [][]byte{
		{},
		{0xfd, 0x01},
		{0xfe, 0x01, 0x02},
		{0xff, 0x01, 0x02, 0x03},
	}
	for _, enc := range cases {
		if _, _, err := DecodeVarInt(enc); err == nil {
			t.Errorf("DecodeVarInt(% x): expected error, got none", enc)
		}
	}
}
