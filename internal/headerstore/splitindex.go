package headerstore

import (
	"encoding/binary"
	"fmt"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/DanielSidhion/kaliko/internal/wire"
)

// The flat header log only ever records the main chain — a tracked split
// has no place in a format that is, by design, a plain ordered
// concatenation. bbolt gives tracked splits a durable home of their own so
// a restart doesn't forget a fork that might still overtake the main chain
// with one more headers message.
var splitsBucket = []byte("splits")

const splitIndexFileName = "splits.bbolt"

type splitIndex struct {
	db *bolt.DB
}

func openSplitIndex(dataDir string) (*splitIndex, map[[32]byte]*split, error) {
	path := filepath.Join(dataDir, splitIndexFileName)
	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, nil, fmt.Errorf("headerstore: open split index: %w", err)
	}

	loaded := make(map[[32]byte]*split)
	err = db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(splitsBucket)
		if err != nil {
			return err
		}
		return b.ForEach(func(k, v []byte) error {
			sp, err := decodeSplit(v)
			if err != nil {
				return err
			}
			var tip [32]byte
			copy(tip[:], k)
			loaded[tip] = sp
			return nil
		})
	})
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("headerstore: load split index: %w", err)
	}
	return &splitIndex{db: db}, loaded, nil
}

func (si *splitIndex) put(tip [32]byte, sp *split) error {
	return si.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(splitsBucket).Put(tip[:], encodeSplit(sp))
	})
}

func (si *splitIndex) delete(tip [32]byte) error {
	return si.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(splitsBucket).Delete(tip[:])
	})
}

func (si *splitIndex) close() error {
	return si.db.Close()
}

func encodeSplit(sp *split) []byte {
	out := make([]byte, 0, 8+4+len(sp.headers)*96)
	var tmp4, tmp8 [8]byte
	binary.LittleEndian.PutUint64(tmp8[:], uint64(sp.attachHeight))
	out = append(out, tmp8[:]...)
	binary.LittleEndian.PutUint32(tmp4[:4], uint32(len(sp.headers)))
	out = append(out, tmp4[:4]...)
	out = append(out, wire.EncodeHeaders(sp.headers)...)
	return out
}

func decodeSplit(b []byte) (*split, error) {
	if len(b) < 12 {
		return nil, fmt.Errorf("headerstore: split index: truncated record")
	}
	attach := int(binary.LittleEndian.Uint64(b[0:8]))
	count := int(binary.LittleEndian.Uint32(b[8:12]))
	hdrs, _, err := wire.DecodeHeaders(b[12:], count)
	if err != nil {
		return nil, fmt.Errorf("headerstore: split index: %w", err)
	}
	return &split{attachHeight: attach, headers: hdrs}, nil
}
