package headerstore

import (
	"go.uber.org/zap"

	"github.com/DanielSidhion/kaliko/internal/bus"
	"github.com/DanielSidhion/kaliko/internal/logging"
	"github.com/DanielSidhion/kaliko/internal/wire"
)

// ingest is the entry point for an unsolicited or requested `headers`
// message: it validates internal chaining, locates where the batch
// attaches, and applies the fork-resolution rules before publishing
// NewHeadersAvailable (and possibly asking for more via the caller).
func (s *Store) ingest(peerID string, hdrs []wire.BlockHeader) {
	if len(hdrs) == 0 {
		return
	}
	if !validInternalChain(hdrs) {
		logging.Debug("rejecting headers batch: broken internal chaining", zap.String("peer", peerID))
		return
	}

	tip := hdrs[len(hdrs)-1].Hash()
	if _, ok := s.splits[tip]; ok {
		// Already tracked under this exact tip: re-ingestion is a no-op.
		return
	}
	if height, ok := s.byHash[tip]; ok && height == len(s.main)-1 {
		// Already our main-chain tip.
		return
	}

	parent := hdrs[0].PrevBlockHash

	if attachHeight, ok := s.byHash[parent]; ok {
		s.applyAgainstMainChain(peerID, attachHeight, hdrs)
		return
	}

	for tipHash, sp := range s.splits {
		if tipHash == parent {
			extended := append(append([]wire.BlockHeader(nil), sp.headers...), hdrs...)
			s.applyAgainstMainChain(peerID, sp.attachHeight, extended)
			s.forgetSplit(tipHash)
			return
		}
	}

	logging.Debug("dropping headers batch: unknown ancestor", zap.String("peer", peerID))
}

func (s *Store) rememberSplit(tip [32]byte, sp *split) {
	s.splits[tip] = sp
	if err := s.splitIdx.put(tip, sp); err != nil {
		logging.Error("failed to persist tracked split", zap.Error(err))
	}
}

func (s *Store) forgetSplit(tip [32]byte) {
	delete(s.splits, tip)
	if err := s.splitIdx.delete(tip); err != nil {
		logging.Error("failed to remove tracked split", zap.Error(err))
	}
}

// validInternalChain checks that each header in hdrs (after the first)
// chains to the one before it.
func validInternalChain(hdrs []wire.BlockHeader) bool {
	for i := 1; i < len(hdrs); i++ {
		if hdrs[i].PrevBlockHash != hdrs[i-1].Hash() {
			return false
		}
	}
	return true
}

// applyAgainstMainChain resolves a branch (whose first header attaches at
// attachHeight in the main chain) against the current main-chain tail.
//
//   - branch longer than the displaced tail: truncate main chain to
//     attachHeight, append branch, and the displaced tail (if any) becomes
//     a newly tracked split keyed by its own former tip hash.
//   - branch exactly as long as the displaced tail: neither chain is
//     discarded; the branch is tracked as a split (the main chain is
//     already at least as good and is left in place).
//   - branch shorter than the displaced tail: discarded outright — it can
//     never become the best chain without more headers, and tracking it
//     buys nothing the attach-point lookup can't reconstruct later.
func (s *Store) applyAgainstMainChain(peerID string, attachHeight int, branch []wire.BlockHeader) {
	displaced := len(s.main) - 1 - attachHeight

	switch {
	case len(branch) > displaced:
		var displacedTail []entry
		if displaced > 0 {
			displacedTail = append([]entry(nil), s.main[attachHeight+1:]...)
		}

		if err := s.truncateTo(attachHeight); err != nil {
			logging.Error("failed to truncate header log during reorg", zap.Error(err))
			return
		}
		if err := s.appendBranch(branch); err != nil {
			logging.Error("failed to persist header branch", zap.Error(err))
			return
		}

		if len(displacedTail) > 0 {
			oldHeaders := make([]wire.BlockHeader, len(displacedTail))
			for i, e := range displacedTail {
				oldHeaders[i] = e.header
			}
			oldTip := oldHeaders[len(oldHeaders)-1].Hash()
			s.rememberSplit(oldTip, &split{attachHeight: attachHeight, headers: oldHeaders})
		}

		s.out <- bus.Event{Kind: bus.NewHeadersAvailable, PeerID: peerID, Headers: branch}

	case len(branch) == displaced:
		tip := branch[len(branch)-1].Hash()
		s.rememberSplit(tip, &split{attachHeight: attachHeight, headers: branch})

	default:
		// Strictly shorter than what we already have past attachHeight: drop.
	}
}
