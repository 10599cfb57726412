// Copyright 2024 The corenet Authors
// This file is part of the corenet library.
//
// The corenet library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The corenet library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the corenet library. If not, see <http://www.gnu.org/licenses/>.

// Package p2p implements the session lifecycle & protocol multiplexer, and
// the devp2p "p2p" capability handshake handler. It owns live peer
// sessions and routes frames to per-capability sub-protocol handlers.
package p2p

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ethnode/corenet/internal/log"
	"github.com/ethnode/corenet/p2p/enode"
	"github.com/ethnode/corenet/p2p/nodestats"
)

// Direction is whether the session was dialed out or accepted inbound.
type Direction int

const (
	Outbound Direction = iota
	Inbound
)

// State is the session lifecycle state machine. The zero value is New;
// states only move forward, except that BestStateReached latches the
// maximum ever observed.
type State int

const (
	StateNew State = iota
	StateHandshakeComplete
	StateInitialized
	StateDisconnectRequested
	StateDisconnecting
	StateDisconnected
)

// Handler is a per-(session, protocol) sub-protocol implementation,
// constructed by a HandlerFactory once the session reaches Initialized.
type Handler interface {
	// HandleMsg processes one inbound frame whose packet-id already had
	// the protocol's base subtracted.
	HandleMsg(msg Msg) error
	// Close disposes the handler on disconnect.
	Close()
}

// HandlerFactory builds a Handler for code, given the owning session and
// the negotiated version of that capability.
type HandlerFactory func(s *Session, version uint) (Handler, error)

type packetSpace struct {
	start uint64
	size  uint64
	code  string
}

// SessionID uniquely identifies one TCP connection's session record.
type SessionID string

func newSessionID() SessionID { return SessionID(uuid.NewString()) }

// Session is the mutable per-connection record.
type Session struct {
	ID        SessionID
	Direction Direction

	mu               sync.Mutex
	state            State
	bestStateReached State

	peer          *Peer
	p2pVersion    uint
	snappyEnabled bool
	listenPort    int // 0 until learned from Hello (inbound only)

	handlers     map[string]Handler
	spaces       []packetSpace
	disconnected bool
	disconnectOn sync.Once

	rw     MsgReadWriter
	mux    *Multiplexer
	log    log.Logger
	p2pHdl *p2pHandler
}

const p2pBaseSpace = 16 // p2p occupies ids 0..15 unconditionally

func newSession(mux *Multiplexer, dir Direction, rw MsgReadWriter, local LocalInfo) *Session {
	s := &Session{
		ID:        newSessionID(),
		Direction: dir,
		rw:        rw,
		mux:       mux,
		handlers:  make(map[string]Handler),
		log:       mux.log,
	}
	s.p2pHdl = newP2PHandler(s, local)
	return s
}

// State returns the session's current state under lock.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// BestStateReached returns the maximum state this session has ever been in,
// which never regresses even once the session transitions onward.
func (s *Session) BestStateReached() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bestStateReached
}

// setState moves the session forward. The state sequence is monotonic: a
// state smaller than the current one is ignored.
func (s *Session) setState(next State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if next > s.state {
		s.state = next
	}
	if next > s.bestStateReached {
		s.bestStateReached = next
	}
}

func (s *Session) Peer() *Peer { return s.peer }

// Send writes an RLP-encoded frame on behalf of a handler. Outbound frames
// are serialized per session; MsgReadWriter implementations used in
// production (see transport.go) already serialize writes, so this is a
// direct passthrough.
func (s *Session) Send(code uint64, data interface{}) error {
	return Send(s.rw, code, data)
}

// registerHandlerSpace installs handler under code, assigning it the next
// packet-id space (allocating spaces in the order capabilities were
// agreed). Must only be called while the session is Initialized, and is a
// no-op if the code is already installed (idempotent: at most one handler
// per (session, protocol_code)).
func (s *Session) registerHandlerSpace(code string, size uint64, h Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInitialized {
		return fmt.Errorf("p2p: handler for %q installed outside Initialized state", code)
	}
	if _, ok := s.handlers[code]; ok {
		return nil // idempotent
	}
	start := uint64(p2pBaseSpace)
	for _, sp := range s.spaces {
		if sp.start+sp.size > start {
			start = sp.start + sp.size
		}
	}
	s.handlers[code] = h
	s.spaces = append(s.spaces, packetSpace{start: start, size: size, code: code})
	return nil
}

// dispatch routes an inbound frame by absolute packet-id to its owning
// handler.
func (s *Session) dispatch(msg Msg) error {
	s.mu.Lock()
	var target Handler
	var base uint64
	if msg.Code < p2pBaseSpace {
		target = s.p2pHdl
		base = 0
	} else {
		for _, sp := range s.spaces {
			if msg.Code >= sp.start && msg.Code < sp.start+sp.size {
				target = s.handlers[sp.code]
				base = sp.start
				break
			}
		}
	}
	s.mu.Unlock()

	if target == nil {
		return fmt.Errorf("p2p: no handler for packet id %d", msg.Code)
	}
	msg.Code -= base
	if err := target.HandleMsg(msg); err != nil {
		// A handler error disconnects with DiscSubprotocolError, logged but
		// not returned above the multiplexer.
		s.log.Error("p2p: handler panic-equivalent failure", "session", s.ID, "err", err)
		s.Disconnect(DiscSubprotocolError, err.Error())
		return nil
	}
	return nil
}

// Disconnect requests termination of the session, recorded as locally
// initiated. Safe to call more than once; subsequent calls are no-ops.
func (s *Session) Disconnect(reason DiscReason, details string) {
	s.disconnect(nodestats.Local, reason, details)
}

// disconnectRemote is used when the teardown was triggered by the remote's
// own Disc frame, so node-stats records the correct initiator.
func (s *Session) disconnectRemote(reason DiscReason, details string) {
	s.disconnect(nodestats.Remote, reason, details)
}

func (s *Session) disconnect(dir nodestats.DisconnectDirection, reason DiscReason, details string) {
	s.disconnectOn.Do(func() {
		s.setState(StateDisconnectRequested)
		s.log.Info("p2p: disconnect requested", "session", s.ID, "reason", reason, "details", details)
		s.teardown(dir, reason)
	})
}

func (s *Session) teardown(dir nodestats.DisconnectDirection, reason DiscReason) {
	s.setState(StateDisconnecting)

	s.mu.Lock()
	handlers := make([]Handler, 0, len(s.handlers))
	for _, h := range s.handlers {
		handlers = append(handlers, h)
	}
	s.mu.Unlock()
	for _, h := range handlers {
		h.Close()
	}

	if closer, ok := s.rw.(interface{ Close() error }); ok {
		_ = closer.Close()
	}

	s.setState(StateDisconnected)
	if s.peer != nil {
		s.mux.nodeStats.Get(s.peer.ID()).AddDisconnect(dir, reason.Tag())
	}
	s.mux.removeSession(s.ID)
}

var ErrProtocolAlreadyRegistered = errors.New("p2p: protocol already registered")

// Multiplexer owns live peer sessions and the open registry of protocol
// factories.
type Multiplexer struct {
	mu          sync.RWMutex
	factories   map[string]HandlerFactory
	lengths     map[string]uint64 // packet-id space size per protocol code
	localCaps   []Cap
	sessions    map[SessionID]*Session
	nodeStats   *nodestats.Map
	discovery   Discovery
	onP2PInit   []func(*Session)
	log         log.Logger
}

// Discovery is the narrow external collaborator the multiplexer feeds
// newly learned nodes to.
type Discovery interface {
	AddNodeToDiscovery(n *enode.Node)
}

type noopDiscovery struct{}

func (noopDiscovery) AddNodeToDiscovery(*enode.Node) {}

func NewMultiplexer(nodeStats *nodestats.Map, discovery Discovery, logger log.Logger) *Multiplexer {
	if discovery == nil {
		discovery = noopDiscovery{}
	}
	if logger == nil {
		logger = log.Root()
	}
	return &Multiplexer{
		factories: make(map[string]HandlerFactory),
		lengths:   make(map[string]uint64),
		sessions:  make(map[SessionID]*Session),
		nodeStats: nodeStats,
		discovery: discovery,
		log:       logger,
	}
}

// RegisterProtocol installs a factory for code, failing if code is already
// registered.
func (m *Multiplexer) RegisterProtocol(code string, length uint64, factory HandlerFactory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.factories[code]; ok {
		return ErrProtocolAlreadyRegistered
	}
	m.factories[code] = factory
	m.lengths[code] = length
	return nil
}

// AddSupportedCapability adds cap to the locally advertised capability set.
func (m *Multiplexer) AddSupportedCapability(cap Cap) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.localCaps {
		if c == cap {
			return
		}
	}
	m.localCaps = append(m.localCaps, cap)
}

// SendNewCapability broadcasts an add-capability control message to every
// session that hasn't already agreed cap.
func (m *Multiplexer) SendNewCapability(cap Cap) {
	m.AddSupportedCapability(cap)
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	for _, s := range sessions {
		s.mu.Lock()
		_, agreed := s.handlers[cap.Name]
		s.mu.Unlock()
		if agreed {
			continue
		}
		_ = s.Send(addCapabilityMsgCode, addCapabilityMsg{Name: cap.Name, Version: uint64(cap.Version)})
	}
}

// OnP2PInitialized registers a callback fired once a session's p2p
// handshake completes.
func (m *Multiplexer) OnP2PInitialized(fn func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onP2PInit = append(m.onP2PInit, fn)
}

func (m *Multiplexer) fireP2PInitialized(s *Session) {
	m.mu.RLock()
	cbs := append([]func(*Session){}, m.onP2PInit...)
	m.mu.RUnlock()
	for _, cb := range cbs {
		cb(s)
	}
}

func (m *Multiplexer) removeSession(id SessionID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Sessions returns a snapshot of the live session table.
func (m *Multiplexer) Sessions() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}
