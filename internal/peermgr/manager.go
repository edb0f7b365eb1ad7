// Package peermgr implements the fleet controller (C4): it owns the active
// and candidate peer sets on a single goroutine, dials new connections,
// and is the only component that holds a send handle onto a running
// session's control channel.
package peermgr

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/DanielSidhion/kaliko/internal/bus"
	"github.com/DanielSidhion/kaliko/internal/logging"
	"github.com/DanielSidhion/kaliko/internal/peer"
	"github.com/DanielSidhion/kaliko/internal/wire"
)

// Config parameterizes a Manager.
type Config struct {
	Magic             uint32
	OurVersion        wire.VersionPayload
	MaxActivePeers    int
	MaxCandidatePeers int
	DialTimeout       time.Duration
	IdleTimeout       time.Duration
}

type peerState struct {
	addr        string
	control     chan bus.Event
	cancel      context.CancelFunc
	established bool
	version     wire.VersionPayload
}

// Manager is the C4 actor. Construct with New and run its loop with Run;
// every field below is touched only from the Run goroutine.
type Manager struct {
	cfg Config
	in  chan bus.Event
	out chan<- bus.Event

	limiters map[string]*rate.Limiter

	active     map[string]*peerState
	activeAddr map[string]struct{}
	candidates []string
	candSeen   map[string]struct{}

	nextID uint64
}

// New constructs a Manager. in is the channel the dispatcher fans
// subscribed events into; out is the dispatcher's shared input, used to
// publish events the manager itself originates.
func New(cfg Config, out chan<- bus.Event) *Manager {
	return &Manager{
		cfg:        cfg,
		in:         make(chan bus.Event, 256),
		out:        out,
		limiters:   make(map[string]*rate.Limiter),
		active:     make(map[string]*peerState),
		activeAddr: make(map[string]struct{}),
		candSeen:   make(map[string]struct{}),
	}
}

// In returns the channel this manager expects the dispatcher to deliver
// its subscribed events on.
func (m *Manager) In() chan<- bus.Event { return m.in }

// Seed adds the initial seed-list addresses as dial candidates.
func (m *Manager) Seed(addrs []string) {
	for _, a := range addrs {
		m.addCandidate(a)
	}
}

// Run services the manager's event loop until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	m.drainCandidates(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-m.in:
			m.handleEvent(ctx, ev)
		case <-ticker.C:
			m.drainCandidates(ctx)
		}
	}
}

func (m *Manager) handleEvent(ctx context.Context, ev bus.Event) {
	switch ev.Kind {
	case bus.StartPeerConnection:
		m.addCandidate(ev.Addr)
		m.drainCandidates(ctx)

	case bus.PeerConnectionEstablished:
		// The session's control channel was already registered at dial
		// time (dial() pre-allocates m.active[id] before the session can
		// possibly reach Established); this is where the manager actually
		// records the handshake outcome the event is documented to carry,
		// completing the connecting->active transition with real data
		// instead of silently relying on the pre-registration.
		if st, ok := m.active[ev.PeerID]; ok {
			st.established = true
			st.version = ev.PeerVersion
			logging.Debug("peer handshake recorded",
				zap.String("peer", ev.PeerID),
				zap.Int32("version", ev.PeerVersion.Version),
				zap.Int32("start_height", ev.PeerVersion.StartHeight))
		}

	case bus.PeerConnectionDestroyed, bus.PeerUnavailable:
		if st, ok := m.active[ev.PeerID]; ok {
			delete(m.active, ev.PeerID)
			delete(m.activeAddr, st.addr)
			close(st.control)
		}
		if ev.Err != nil {
			logging.Debug("peer session ended", zap.String("peer", ev.PeerID), zap.Error(ev.Err))
		}
		m.drainCandidates(ctx)

	case bus.NetworkMessage:
		if ev.Command == wire.CmdAddr {
			entries, err := wire.DecodeAddrPayload(ev.Payload)
			if err != nil {
				return
			}
			for _, e := range entries {
				m.addCandidate(e.Addr.String())
			}
			m.drainCandidates(ctx)
		}

	case bus.RequestHeadersFromPeer:
		st, ok := m.active[ev.PeerID]
		if !ok {
			return
		}
		select {
		case st.control <- bus.Event{
			Kind:         bus.SendGetHeaders,
			BlockLocator: ev.BlockLocator,
			HashStop:     ev.HashStop,
		}:
		default:
			logging.Warn("control channel full, dropping getheaders request", zap.String("peer", ev.PeerID))
		}

	case bus.SendHeadersToPeer:
		st, ok := m.active[ev.PeerID]
		if !ok {
			return
		}
		select {
		case st.control <- bus.Event{Kind: bus.SendHeaders, Headers: ev.Headers}:
		default:
			logging.Warn("control channel full, dropping headers response", zap.String("peer", ev.PeerID))
		}
	}
}

func (m *Manager) addCandidate(addr string) {
	if addr == "" {
		return
	}
	if _, ok := m.candSeen[addr]; ok {
		return
	}
	if _, ok := m.activeAddr[addr]; ok {
		return
	}
	if len(m.candidates) >= m.cfg.MaxCandidatePeers {
		// Oldest-eviction: drop the head to make room, matching a FIFO
		// queue's natural replacement policy under overflow.
		oldest := m.candidates[0]
		m.candidates = m.candidates[1:]
		delete(m.candSeen, oldest)
	}
	m.candidates = append(m.candidates, addr)
	m.candSeen[addr] = struct{}{}
}

// drainCandidates makes at most one pass over the candidates queued as of
// entry, dialing until the active cap is reached. Bounding the pass to the
// snapshot length (rather than looping until the queue empties) matters
// because a rate-limited dial re-queues its address at the back of the
// list: without the bound, a single rate-limited candidate with nothing
// else to dial would spin this goroutine forever instead of waiting for
// the next idle tick.
func (m *Manager) drainCandidates(ctx context.Context) {
	n := len(m.candidates)
	for i := 0; i < n && len(m.active) < m.cfg.MaxActivePeers && len(m.candidates) > 0; i++ {
		addr := m.candidates[0]
		m.candidates = m.candidates[1:]
		delete(m.candSeen, addr)
		m.dial(ctx, addr)
	}
}

func (m *Manager) limiterFor(host string) *rate.Limiter {
	l, ok := m.limiters[host]
	if !ok {
		// One connection attempt every two seconds per remote host, with
		// a small burst allowance — enough to tolerate a flapping peer
		// without letting an addr-flood turn into a dial storm.
		l = rate.NewLimiter(rate.Every(2*time.Second), 3)
		m.limiters[host] = l
	}
	return l
}

func (m *Manager) dial(ctx context.Context, addr string) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		m.publishUnavailable(addr, fmt.Errorf("peermgr: bad address: %w", err))
		return
	}
	if !m.limiterFor(host).Allow() {
		m.addCandidate(addr)
		return
	}

	id := fmt.Sprintf("peer-%d", atomic.AddUint64(&m.nextID, 1))
	control := make(chan bus.Event, 8)
	sessionCtx, cancel := context.WithCancel(ctx)
	m.active[id] = &peerState{addr: addr, control: control, cancel: cancel}
	m.activeAddr[addr] = struct{}{}

	go func() {
		dialer := net.Dialer{Timeout: m.cfg.DialTimeout}
		conn, err := dialer.DialContext(sessionCtx, "tcp", addr)
		if err != nil {
			cancel()
			// m.active is only ever mutated from the Run goroutine; route
			// the failure back through the bus instead of touching it here.
			m.out <- bus.Event{Kind: bus.PeerUnavailable, PeerID: id, Addr: addr, Err: err}
			return
		}
		s := peer.New(id, conn, peer.Config{
			Magic:       m.cfg.Magic,
			OurVersion:  m.cfg.OurVersion,
			IdleTimeout: m.cfg.IdleTimeout,
		}, m.out, control)
		s.Run(sessionCtx)
	}()
}

func (m *Manager) publishUnavailable(addr string, err error) {
	m.out <- bus.Event{Kind: bus.PeerUnavailable, Addr: addr, Err: err}
}
