// Package chainparams holds the small set of network-identifying constants
// a header-relay node needs: the magic bytes that open every envelope, and
// the genesis header each chain's ledger is seeded with.
package chainparams

import (
	"encoding/hex"

	"github.com/DanielSidhion/kaliko/internal/wire"
)

// Network magics, matching the values real Bitcoin-family nodes use so this
// client can talk to real peers on these networks.
const (
	MagicMainnet  uint32 = 0xD9B4BEF9
	MagicTestnet  uint32 = 0xDAB5BFFA
	MagicTestnet3 uint32 = 0x0709110B
	MagicNamecoin uint32 = 0xFEB4BEF9
)

// Params bundles the magic and genesis header for one network.
type Params struct {
	Name    string
	Magic   uint32
	Genesis wire.BlockHeader
}

var byName = map[string]Params{
	"mainnet":  Mainnet,
	"testnet":  Testnet,
	"testnet3": Testnet3,
	"namecoin": Namecoin,
}

// Lookup resolves a network name (mainnet, testnet, testnet3, namecoin) to
// its Params.
func Lookup(name string) (Params, bool) {
	p, ok := byName[name]
	return p, ok
}

// hexHash decodes a big-endian display hash (the conventional way block
// hashes are quoted) into the little-endian byte order used on the wire.
func hexHash(h string) [32]byte {
	var out [32]byte
	decoded, err := hex.DecodeString(h)
	if err != nil {
		panic("chainparams: invalid genesis hash literal: " + err.Error())
	}
	copy(out[:], reversed(decoded))
	return out
}

// Genesis headers are quoted from the respective network's well-known
// block 0. prev_block is the zero hash by construction.
var Mainnet = Params{
	Name:  "mainnet",
	Magic: MagicMainnet,
	Genesis: wire.BlockHeader{
		Version:       1,
		PrevBlockHash: [32]byte{},
		MerkleRoot:    hexHash("4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b"),
		Timestamp:     1231006505,
		Bits:          0x1d00ffff,
		Nonce:         2083236893,
		TxnCount:      1,
	},
}

var Testnet = Params{
	Name:  "testnet",
	Magic: MagicTestnet,
	Genesis: wire.BlockHeader{
		Version:       1,
		PrevBlockHash: [32]byte{},
		MerkleRoot:    hexHash("4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b"),
		Timestamp:     1296688602,
		Bits:          0x1d07fff8,
		Nonce:         384568319,
		TxnCount:      1,
	},
}

var Testnet3 = Params{
	Name:  "testnet3",
	Magic: MagicTestnet3,
	Genesis: wire.BlockHeader{
		Version:       1,
		PrevBlockHash: [32]byte{},
		MerkleRoot:    hexHash("4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b"),
		Timestamp:     1296688602,
		Bits:          0x1d00ffff,
		Nonce:         414098458,
		TxnCount:      1,
	},
}

var Namecoin = Params{
	Name:  "namecoin",
	Magic: MagicNamecoin,
	Genesis: wire.BlockHeader{
		Version:       1,
		PrevBlockHash: [32]byte{},
		MerkleRoot:    hexHash("041c62dbd9068c89a449525e3cd5ac61add628ac36227c9b43e1dab395dff3b9"),
		Timestamp:     1303000001,
		Bits:          0x1c007fff,
		Nonce:         0xa21ea192,
		TxnCount:      1,
	},
}

func reversed(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}
