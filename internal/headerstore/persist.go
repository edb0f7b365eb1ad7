package headerstore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/DanielSidhion/kaliko/internal/wire"
)

const logFileName = "headers.dat"

// log is the flat, append-only header file: a raw concatenation of
// wire.BlockHeader encodings in main-chain order, genesis first. It is the
// sole source of truth for the main chain. Tracked splits are not in it;
// they live only in the split index (splitindex.go).
type log struct {
	f *os.File
}

type logRecord struct {
	header wire.BlockHeader
	offset int64
}

func openLog(dataDir string) (*log, []logRecord, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("headerstore: mkdir: %w", err)
	}
	path := filepath.Join(dataDir, logFileName)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("headerstore: open %s: %w", path, err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("headerstore: read %s: %w", path, err)
	}

	var records []logRecord
	off := int64(0)
	buf := raw
	for len(buf) > 0 {
		h, used, err := wire.DecodeBlockHeader(buf)
		if err != nil {
			// A partially-written trailing record from a crash mid-append:
			// truncate it away rather than fail startup, and treat the log
			// as ending at the last complete record (genesis-only if that
			// was the very first write).
			if truncErr := f.Truncate(off); truncErr != nil {
				f.Close()
				return nil, nil, fmt.Errorf("headerstore: truncate torn write: %w", truncErr)
			}
			break
		}
		records = append(records, logRecord{header: h, offset: off})
		off += int64(used)
		buf = buf[used:]
	}

	return &log{f: f}, records, nil
}

// append writes h's encoding at the current end of file, fsyncing before
// returning so a crash right after never leaves a record whose existence
// an in-memory Store believes in but the disk doesn't have.
func (l *log) append(h wire.BlockHeader) (int64, error) {
	off, err := l.f.Seek(0, os.SEEK_END)
	if err != nil {
		return 0, err
	}
	if _, err := l.f.Write(h.Encode()); err != nil {
		return 0, err
	}
	if err := l.f.Sync(); err != nil {
		return 0, err
	}
	return off, nil
}

// truncate discards everything at or after byte offset off — used when a
// reorg displaces the tail of the main chain.
func (l *log) truncate(off int64) error {
	if err := l.f.Truncate(off); err != nil {
		return err
	}
	return l.f.Sync()
}

// truncateTo discards every main-chain entry above height, both in memory
// and on disk.
func (s *Store) truncateTo(height int) error {
	if height >= len(s.main)-1 {
		return nil
	}
	cutOffset := s.main[height+1].offset
	if err := s.persist.truncate(cutOffset); err != nil {
		return err
	}
	for _, e := range s.main[height+1:] {
		delete(s.byHash, e.hash)
	}
	s.main = s.main[:height+1]
	s.knownTip = s.main[len(s.main)-1].hash
	return nil
}

// appendBranch persists and adopts branch as the new main-chain tail.
func (s *Store) appendBranch(branch []wire.BlockHeader) error {
	for _, h := range branch {
		off, err := s.persist.append(h)
		if err != nil {
			return err
		}
		hash := h.Hash()
		s.main = append(s.main, entry{header: h, hash: hash, offset: off})
		s.byHash[hash] = len(s.main) - 1
	}
	s.knownTip = s.main[len(s.main)-1].hash
	return nil
}
