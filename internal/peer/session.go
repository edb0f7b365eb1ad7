// Package peer implements the per-connection session actor (C3): one
// goroutine pair per peer, handshake to Established, then absorbing
// keepalive/negotiation chatter locally while forwarding everything else
// onto the shared event bus. No session ever touches another session's
// state; everything crosses goroutine boundaries as a bus.Event.
package peer

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/DanielSidhion/kaliko/internal/bus"
	"github.com/DanielSidhion/kaliko/internal/logging"
	"github.com/DanielSidhion/kaliko/internal/wire"
)

// Config parameterizes a Session.
type Config struct {
	Magic      uint32
	OurVersion wire.VersionPayload
	// IdleTimeout, if non-zero, is applied as a read deadline per message
	// so a peer that goes silent doesn't pin the goroutine forever.
	IdleTimeout time.Duration
}

// Session runs the lifecycle for one TCP connection: Dialing is the caller
// dialing conn before constructing the Session; Handshake and Established
// happen inside Run.
type Session struct {
	ID      string
	conn    net.Conn
	cfg     Config
	events  chan<- bus.Event
	control <-chan bus.Event

	ban score
}

// New constructs a Session for an already-connected conn. events is the
// shared channel every session publishes onto; control is this session's
// own directed inbound channel, held by the manager.
func New(id string, conn net.Conn, cfg Config, events chan<- bus.Event, control <-chan bus.Event) *Session {
	return &Session{ID: id, conn: conn, cfg: cfg, events: events, control: control}
}

// Run performs the handshake and then services the Established event loop
// until ctx is cancelled or the connection fails. Before returning it emits
// exactly one terminal event: PeerUnavailable if the handshake failed,
// otherwise PeerConnectionDestroyed (with Err set on failure).
func (s *Session) Run(ctx context.Context) {
	defer s.conn.Close()

	result, err := doHandshake(s.conn, s.cfg.Magic, s.cfg.OurVersion)
	if err != nil {
		// A handshake that never completes is treated the same as a dial
		// that never connects: the session never reached Established, so it
		// is reported as PeerUnavailable rather than PeerConnectionDestroyed.
		logging.Debug("peer handshake failed", zap.String("peer", s.ID), zap.Error(err))
		s.emit(bus.Event{Kind: bus.PeerUnavailable, PeerID: s.ID, Err: err})
		return
	}

	logging.Info("peer established",
		zap.String("peer", s.ID),
		zap.Int32("start_height", result.PeerVersion.StartHeight))
	s.emit(bus.Event{
		Kind:        bus.PeerConnectionEstablished,
		PeerID:      s.ID,
		Conn:        s.conn,
		PeerVersion: result.PeerVersion,
	})
	s.emit(bus.Event{Kind: bus.PeerAnnouncedHeight, PeerID: s.ID, Height: result.PeerVersion.StartHeight})

	msgCh := make(chan *wire.Message)
	errCh := make(chan error, 1)
	go s.readLoop(msgCh, errCh)

	for {
		select {
		case <-ctx.Done():
			s.emit(bus.Event{Kind: bus.PeerConnectionDestroyed, PeerID: s.ID, Err: ctx.Err()})
			return

		case req, ok := <-s.control:
			if !ok {
				s.emit(bus.Event{Kind: bus.PeerConnectionDestroyed, PeerID: s.ID})
				return
			}
			if err := s.handleControl(req); err != nil {
				s.emit(bus.Event{Kind: bus.PeerConnectionDestroyed, PeerID: s.ID, Err: err})
				return
			}

		case err := <-errCh:
			s.emit(bus.Event{Kind: bus.PeerConnectionDestroyed, PeerID: s.ID, Err: err})
			return

		case msg := <-msgCh:
			if err := s.handleMessage(msg); err != nil {
				s.emit(bus.Event{Kind: bus.PeerConnectionDestroyed, PeerID: s.ID, Err: err})
				return
			}
		}
	}
}

func (s *Session) emit(ev bus.Event) {
	s.events <- ev
}

// readLoop is the blocking half of the reactor: it only ever reads frames
// and hands them to the select loop in Run, never writes, so a slow writer
// on the other side can never starve reads (and vice versa).
func (s *Session) readLoop(msgCh chan<- *wire.Message, errCh chan<- error) {
	for {
		if s.cfg.IdleTimeout > 0 {
			_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout))
		}
		msg, rerr := wire.ReadMessage(s.conn, s.cfg.Magic)
		if rerr != nil {
			now := time.Now()
			if !rerr.Disconnect {
				s.ban.add(now, 10)
				if s.ban.shouldDisconnect(now) {
					errCh <- fmt.Errorf("peer: too many malformed messages: %w", rerr)
					return
				}
				continue
			}
			errCh <- rerr
			return
		}
		msgCh <- msg
	}
}

func (s *Session) handleControl(req bus.Event) error {
	switch req.Kind {
	case bus.SendGetHeaders:
		payload, err := wire.EncodeGetHeadersPayload(wire.GetHeadersPayload{
			Version:      RequiredProtocolVersion,
			BlockLocator: req.BlockLocator,
			HashStop:     req.HashStop,
		})
		if err != nil {
			return fmt.Errorf("peer: encode getheaders: %w", err)
		}
		return wire.WriteMessage(s.conn, s.cfg.Magic, wire.CmdGetHeaders, payload)

	case bus.SendHeaders:
		payload, err := wire.EncodeHeadersPayload(req.Headers)
		if err != nil {
			return fmt.Errorf("peer: encode headers: %w", err)
		}
		return wire.WriteMessage(s.conn, s.cfg.Magic, wire.CmdHeaders, payload)

	default:
		// Unrecognized control requests are a programming error in the
		// manager, not a peer misbehavior; surface it as a hard failure.
		return fmt.Errorf("peer: unknown control event kind %v", req.Kind)
	}
}

// handleMessage absorbs keepalive/negotiation chatter locally and forwards
// everything else as a NetworkMessage for the manager/store to interpret.
func (s *Session) handleMessage(msg *wire.Message) error {
	switch msg.Command {
	case wire.CmdPing:
		ping, err := wire.DecodePingPayload(msg.Payload)
		if err != nil {
			s.ban.add(time.Now(), 10)
			return nil
		}
		return wire.WriteMessage(s.conn, s.cfg.Magic, wire.CmdPong, wire.EncodePongPayload(wire.PongPayload{Nonce: ping.Nonce}))

	case wire.CmdPong:
		if _, err := wire.DecodePongPayload(msg.Payload); err != nil {
			s.ban.add(time.Now(), 10)
		}
		return nil

	case wire.CmdFeeFilter:
		if _, err := wire.DecodeFeeFilterPayload(msg.Payload); err != nil {
			s.ban.add(time.Now(), 10)
		}
		// No mempool/fee policy; the value has nowhere to live.
		return nil

	case wire.CmdSendHeaders:
		// Negotiation-only signal this node doesn't act on: it always pulls
		// headers via getheaders rather than accepting unsolicited pushes.
		return nil

	case wire.CmdSendCmpct:
		if _, err := wire.DecodeSendCmpctPayload(msg.Payload); err != nil {
			s.ban.add(time.Now(), 10)
		}
		// Never relays compact blocks (no block bodies); the payload is
		// decoded only to validate it, and the announced values are not kept.
		return nil

	case wire.CmdAddr, wire.CmdInv, wire.CmdGetHeaders, wire.CmdGetBlocks, wire.CmdHeaders:
		s.emit(bus.Event{
			Kind:    bus.NetworkMessage,
			PeerID:  s.ID,
			Command: msg.Command,
			Payload: msg.Payload,
		})
		return nil

	default:
		// Unrecognized command: envelope already framed it correctly,
		// there's simply nothing registered to interpret the payload.
		return nil
	}
}
