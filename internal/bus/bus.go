// Package bus defines the typed messages that flow between the peer
// sessions, the peer manager, and the header store, and a small dispatcher
// that owns the channel each of those components publishes to.
//
// No component shares mutable state with another: every cross-component
// interaction is one of the Event values below, delivered over a channel.
package bus

import (
	"net"

	"github.com/DanielSidhion/kaliko/internal/wire"
)

// Event is the single envelope type carried on the bus. Which of the fields
// below are meaningful depends on Kind.
type Event struct {
	Kind Kind

	// Peer identity, set on every peer-originated event.
	PeerID string

	// StartPeerConnection / candidate management.
	Addr string

	// PeerConnectionEstablished.
	Conn        net.Conn
	PeerVersion wire.VersionPayload

	// PeerAnnouncedHeight.
	Height int32

	// PeerUnavailable / PeerConnectionDestroyed.
	Err error

	// NetworkMessage: a frame the session chose to forward rather than
	// absorb locally.
	Command string
	Payload []byte

	// NewHeadersAvailable / RequestHeadersFromPeer.
	Headers      []wire.BlockHeader
	BlockLocator [][32]byte
	HashStop     [32]byte
}

// Kind discriminates the Event union.
type Kind int

const (
	// StartPeerConnection asks the manager's dial loop to attempt addr.
	StartPeerConnection Kind = iota
	// PeerConnectionEstablished reports a completed handshake; the manager
	// now owns the session's control channel keyed by PeerID.
	PeerConnectionEstablished
	// PeerUnavailable reports a peer that never reached Established: a
	// failed dial attempt or a failed handshake.
	PeerUnavailable
	// PeerConnectionDestroyed reports a session that has stopped, whether
	// cleanly or with Err set.
	PeerConnectionDestroyed
	// PeerAnnouncedHeight carries the StartHeight from a peer's version
	// message, used to decide whether to request headers from it.
	PeerAnnouncedHeight
	// NetworkMessage is a forwarded, not-locally-absorbed frame: addr,
	// inv, getblocks, getheaders, headers.
	NetworkMessage
	// NewHeadersAvailable reports that the header store adopted new
	// headers onto its main chain. A branch that is only tracked as a
	// split does not produce this event.
	NewHeadersAvailable
	// RequestHeadersFromPeer asks a specific session to send a getheaders
	// message built from the store's current locator.
	RequestHeadersFromPeer
	// SendGetHeaders is the control-channel counterpart of
	// RequestHeadersFromPeer, addressed directly to one session.
	SendGetHeaders
	// SendHeadersToPeer asks the manager to deliver a `headers` response
	// (built by the store in answer to a peer's getheaders) to PeerID.
	SendHeadersToPeer
	// SendHeaders is the control-channel counterpart of SendHeadersToPeer.
	SendHeaders
)

// ControlChannel is the directed, per-session channel a manager uses to
// push requests (e.g. SendGetHeaders) into one running session, as opposed
// to the shared Events channel every session publishes onto.
type ControlChannel chan Event

// Dispatcher owns the single shared channel every component publishes
// Events onto, and fans each Event out to the subscribers registered for
// its Kind. It runs on its own goroutine, started by Run.
type Dispatcher struct {
	in          chan Event
	subscribers map[Kind][]chan<- Event
}

// NewDispatcher creates a Dispatcher with the given inbound buffer size.
func NewDispatcher(buffer int) *Dispatcher {
	return &Dispatcher{
		in:          make(chan Event, buffer),
		subscribers: make(map[Kind][]chan<- Event),
	}
}

// In returns the channel every producer (sessions, manager, store) sends
// Events on.
func (d *Dispatcher) In() chan<- Event { return d.in }

// Subscribe registers ch to receive every Event of the given Kind. Must be
// called before Run starts draining d.In().
func (d *Dispatcher) Subscribe(kind Kind, ch chan<- Event) {
	d.subscribers[kind] = append(d.subscribers[kind], ch)
}

// Run drains events until in is closed, fanning each one out to its
// Kind's subscribers. It blocks, so callers run it on its own goroutine.
func (d *Dispatcher) Run() {
	for ev := range d.in {
		for _, sub := range d.subscribers[ev.Kind] {
			sub <- ev
		}
	}
}
