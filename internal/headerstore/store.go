// Package headerstore implements the header-chain ledger (C5): the
// append-only main chain, its tracked forks, and the replay/locator logic
// the peer manager needs to keep pulling headers forward. Like every other
// component it runs on its own goroutine and is reached only through the
// bus.
package headerstore

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/DanielSidhion/kaliko/internal/bus"
	"github.com/DanielSidhion/kaliko/internal/logging"
	"github.com/DanielSidhion/kaliko/internal/wire"
)

// entry is one main-chain position: its header, its hash (cached, since
// Hash() re-hashes the 80-byte prefix), and its byte offset in the
// persisted log (for reorg truncation).
type entry struct {
	header wire.BlockHeader
	hash   [32]byte
	offset int64
}

// split is a tracked, non-main-chain branch: the height in the main chain
// its first header attaches to, and the headers from there forward. Splits
// are keyed by their current tip hash so redundant re-ingestion of the same
// branch is naturally idempotent — exactly the Open Question's resolution.
type split struct {
	attachHeight int
	headers      []wire.BlockHeader
}

func (s *split) tipHash() [32]byte {
	if len(s.headers) == 0 {
		return [32]byte{}
	}
	return s.headers[len(s.headers)-1].Hash()
}

func (s *split) length() int { return len(s.headers) }

// Store is the C5 actor.
type Store struct {
	in  chan bus.Event
	out chan<- bus.Event

	persist  *log
	splitIdx *splitIndex

	main     []entry
	byHash   map[[32]byte]int // hash -> height, main chain only
	splits   map[[32]byte]*split
	knownTip [32]byte
}

// Open replays the persisted header log (if any) and returns a ready Store
// seeded at genesis when the log is empty.
func Open(dataDir string, genesis wire.BlockHeader, out chan<- bus.Event) (*Store, error) {
	l, existing, err := openLog(dataDir)
	if err != nil {
		return nil, fmt.Errorf("headerstore: open log: %w", err)
	}

	si, loadedSplits, err := openSplitIndex(dataDir)
	if err != nil {
		return nil, err
	}

	s := &Store{
		in:       make(chan bus.Event, 256),
		out:      out,
		persist:  l,
		splitIdx: si,
		byHash:   make(map[[32]byte]int),
		splits:   loadedSplits,
	}

	if len(existing) == 0 {
		if err := s.appendGenesis(genesis); err != nil {
			return nil, err
		}
		return s, nil
	}

	for _, rec := range existing {
		h := rec.header.Hash()
		s.main = append(s.main, entry{header: rec.header, hash: h, offset: rec.offset})
		s.byHash[h] = len(s.main) - 1
	}
	s.knownTip = s.main[len(s.main)-1].hash
	return s, nil
}

func (s *Store) appendGenesis(genesis wire.BlockHeader) error {
	off, err := s.persist.append(genesis)
	if err != nil {
		return fmt.Errorf("headerstore: write genesis: %w", err)
	}
	h := genesis.Hash()
	s.main = append(s.main, entry{header: genesis, hash: h, offset: off})
	s.byHash[h] = 0
	s.knownTip = h
	return nil
}

// In returns the channel this store expects subscribed events delivered on.
func (s *Store) In() chan<- bus.Event { return s.in }

// Close releases the store's file handles. Call once after Run's context
// has been cancelled and the goroutine has returned.
func (s *Store) Close() error {
	if err := s.persist.f.Close(); err != nil {
		return err
	}
	return s.splitIdx.close()
}

// TipHeight returns the current main-chain height (genesis is height 0).
func (s *Store) TipHeight() int { return len(s.main) - 1 }

// Run services the store's event loop until ctx is cancelled.
func (s *Store) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.in:
			s.handleEvent(ev)
		}
	}
}

func (s *Store) handleEvent(ev bus.Event) {
	switch ev.Kind {
	case bus.NetworkMessage:
		switch ev.Command {
		case wire.CmdHeaders:
			hdrs, err := wire.DecodeHeadersPayload(ev.Payload)
			if err != nil {
				logging.Debug("dropping malformed headers message", zap.String("peer", ev.PeerID), zap.Error(err))
				return
			}
			s.ingest(ev.PeerID, hdrs)
		case wire.CmdGetHeaders:
			req, err := wire.DecodeGetHeadersPayload(ev.Payload)
			if err != nil {
				return
			}
			s.respondGetHeaders(ev.PeerID, req)
		case wire.CmdInv:
			vecs, err := wire.DecodeInvPayload(ev.Payload)
			if err != nil {
				return
			}
			s.maybeRequestFromInv(ev.PeerID, vecs)
		}

	case bus.PeerAnnouncedHeight:
		if int(ev.Height) > s.TipHeight() {
			s.requestHeaders(ev.PeerID)
		}

	case bus.NewHeadersAvailable:
		// A batch just landed on the main chain; re-issue getheaders from
		// the locator rebuilt at the new tip to drain the peer until it
		// answers with an empty headers payload (spec's sync-drain loop).
		s.requestHeaders(ev.PeerID)
	}
}

// requestHeaders asks one peer to send headers starting from our current
// locator.
func (s *Store) requestHeaders(peerID string) {
	s.out <- bus.Event{
		Kind:         bus.RequestHeadersFromPeer,
		PeerID:       peerID,
		BlockLocator: s.buildLocator(),
		HashStop:     [32]byte{},
	}
}

func (s *Store) maybeRequestFromInv(peerID string, vecs []wire.InvVector) {
	for _, v := range vecs {
		if v.Type == wire.InvTypeBlock {
			if _, known := s.byHash[v.Hash]; known {
				continue
			}
			if _, known := s.splits[v.Hash]; known {
				continue
			}
			s.requestHeaders(peerID)
			return
		}
	}
}

func (s *Store) respondGetHeaders(peerID string, req *wire.GetHeadersPayload) {
	attachHeight, ok := s.locateAncestor(req.BlockLocator)
	if !ok {
		return
	}
	var out []wire.BlockHeader
	for h := attachHeight + 1; h < len(s.main) && len(out) < wire.MaxHeadersPerMsg; h++ {
		if req.HashStop != ([32]byte{}) && s.main[h].hash == req.HashStop {
			out = append(out, s.main[h].header)
			break
		}
		out = append(out, s.main[h].header)
	}
	s.out <- bus.Event{Kind: bus.SendHeadersToPeer, PeerID: peerID, Headers: out}
}
