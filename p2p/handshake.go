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

package p2p

import (
	"fmt"

	"github.com/ethnode/corenet/p2p/enode"
)

// Wire message codes occupied within the p2p protocol's fixed 0..15 space.
const (
	helloMsgCode         = 0x00
	discMsgCode          = 0x01
	pingMsgCode          = 0x02
	pongMsgCode          = 0x03
	addCapabilityMsgCode = 0x04
)

const snappyMinVersion = 5

// capMsg is the wire form of a Cap entry: [code, version].
type capMsg struct {
	Name    string
	Version uint64
}

// helloMsg is the RLP list [protocol_version, client_id, capabilities,
// listen_port, node_id].
type helloMsg struct {
	ProtocolVersion uint64
	ClientID        string
	Caps            []capMsg
	ListenPort      uint64
	NodeID          [64]byte
}

type discMsg struct {
	Reason uint64
}

type addCapabilityMsg struct {
	Name    string
	Version uint64
}

// LocalInfo is what the handshake advertises about us.
type LocalInfo struct {
	NodeID     enode.ID
	ClientID   string
	ListenPort int
}

// p2pHandler is the always-first, never-removed handler for the "p2p"
// protocol itself: Hello/Disc/Ping/Pong and the add-capability control
// message. It is constructed directly by newSession, bypassing the
// Initialized-only handler registration gate that applies to every other
// sub-protocol: the p2p handler is always instantiated first.
type p2pHandler struct {
	s     *Session
	local LocalInfo
}

func newP2PHandler(s *Session, local LocalInfo) *p2pHandler {
	return &p2pHandler{s: s, local: local}
}

func (h *p2pHandler) Close() {}

func (h *p2pHandler) HandleMsg(msg Msg) error {
	s := h.s
	switch msg.Code {
	case helloMsgCode:
		var hello helloMsg
		if err := msg.Decode(&hello); err != nil {
			s.Disconnect(DiscProtocolError, "malformed hello")
			return nil
		}
		return s.onHello(hello)

	case discMsgCode:
		var d discMsg
		_ = msg.Decode(&d)
		s.disconnectRemote(DiscReason(d.Reason), "remote requested disconnect")
		return nil

	case pingMsgCode:
		return s.Send(pongMsgCode, []byte{})

	case pongMsgCode:
		return nil

	case addCapabilityMsgCode:
		var m addCapabilityMsg
		if err := msg.Decode(&m); err != nil {
			return nil
		}
		return s.mux.installHandlerIfAgreed(s, Cap{Name: m.Name, Version: uint(m.Version)})

	default:
		return fmt.Errorf("p2p: unknown p2p-space packet id %d", msg.Code)
	}
}

// SendHello writes our own Hello frame, which is always sent before any
// other traffic on a fresh session.
func (s *Session) SendHello(local LocalInfo) error {
	caps := make([]capMsg, 0, len(s.mux.localCapsSnapshot()))
	for _, c := range sortCaps(s.mux.localCapsSnapshot()) {
		caps = append(caps, capMsg{Name: c.Name, Version: uint64(c.Version)})
	}
	return s.Send(helloMsgCode, helloMsg{
		ProtocolVersion: uint64(maxLocalP2PVersion(s.mux.localCapsSnapshot())),
		ClientID:        local.ClientID,
		Caps:            caps,
		ListenPort:      uint64(local.ListenPort),
		NodeID:          local.NodeID,
	})
}

// ownP2PVersion is advertised in Hello's protocol_version field; this
// module implements up to p2p/5 (the version that turns snappy on).
const ownP2PVersion = 5

func maxLocalP2PVersion([]Cap) uint64 { return ownP2PVersion }

func (m *Multiplexer) localCapsSnapshot() []Cap {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Cap(nil), m.localCaps...)
}

// onHello implements the New → HandshakeComplete → Initialized transitions.
func (s *Session) onHello(hello helloMsg) error {
	if s.State() != StateNew {
		s.Disconnect(DiscProtocolError, "unexpected hello")
		return nil
	}
	var remoteCaps []Cap
	for _, c := range hello.Caps {
		remoteCaps = append(remoteCaps, Cap{Name: c.Name, Version: uint(c.Version)})
	}
	s.mu.Lock()
	s.peer = NewPeer(hello.NodeID, hello.ClientID, remoteCaps)
	s.peer.inbound = s.Direction == Inbound
	s.p2pVersion = uint(hello.ProtocolVersion)
	s.snappyEnabled = hello.ProtocolVersion >= snappyMinVersion
	s.mu.Unlock()

	if s.snappyEnabled {
		if t, ok := s.rw.(interface{ EnableSnappy() }); ok {
			t.EnableSnappy()
		}
	}

	s.setState(StateHandshakeComplete)
	s.mux.fireP2PInitialized(s)

	// Listen-port discovery: inbound sessions don't know the remote's
	// advertised listen port until Hello.
	if s.Direction == Inbound && hello.ListenPort != 0 {
		s.mu.Lock()
		changed := s.listenPort != 0 && s.listenPort != int(hello.ListenPort)
		s.listenPort = int(hello.ListenPort)
		peer := s.peer
		s.mu.Unlock()
		if changed {
			s.mux.discovery.AddNodeToDiscovery(enode.New(peer.ID(), "", int(hello.ListenPort)))
		}
	}

	agreed := negotiateCapabilities(s.mux.localCapsSnapshot(), remoteCaps)
	if len(agreed) == 0 {
		s.Disconnect(DiscUselessPeer, "no common capabilities")
		return nil
	}
	s.setState(StateInitialized)
	for _, cap := range agreed {
		if err := s.mux.installHandlerIfAgreed(s, cap); err != nil {
			s.Disconnect(DiscSubprotocolError, err.Error())
			return nil
		}
	}
	return nil
}

// installHandlerIfAgreed instantiates and installs the handler for cap if
// it is among our registered factories and not already installed. Used
// both for the initial capability intersection and for late-arriving
// add-capability control messages.
func (m *Multiplexer) installHandlerIfAgreed(s *Session, cap Cap) error {
	m.mu.RLock()
	factory, ok := m.factories[cap.Name]
	length := m.lengths[cap.Name]
	m.mu.RUnlock()
	if !ok {
		return nil // no local factory for this protocol code; ignore
	}
	if s.State() != StateInitialized {
		return nil
	}
	s.mu.Lock()
	_, installed := s.handlers[cap.Name]
	s.mu.Unlock()
	if installed {
		return nil
	}
	h, err := factory(s, cap.Version)
	if err != nil {
		return err
	}
	return s.registerHandlerSpace(cap.Name, length, h)
}

// Accept registers an inbound (or outbound, after dialing) raw transport as
// a new Session, sends our Hello, and starts the read loop. It returns once
// the session has terminated.
func (m *Multiplexer) Accept(rw MsgReadWriter, dir Direction, local LocalInfo) error {
	s := newSession(m, dir, rw, local)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	// Our Hello is written concurrently with reading the remote's, so two
	// sessions on a synchronous pipe don't block each other's first write.
	helloSent := make(chan error, 1)
	go func() { helloSent <- s.SendHello(local) }()
	for {
		msg, err := rw.ReadMsg()
		if err != nil {
			s.Disconnect(DiscNetworkError, err.Error())
			return err
		}
		if helloSent != nil {
			// Our Hello must be on the wire before the remote's is handled,
			// since onHello may switch the transport to snappy.
			if err := <-helloSent; err != nil {
				s.Disconnect(DiscNetworkError, err.Error())
				return err
			}
			helloSent = nil
		}
		if s.State() == StateNew && msg.Code != helloMsgCode {
			s.Disconnect(DiscProtocolError, "expected hello")
			return fmt.Errorf("p2p: expected hello, got code %d", msg.Code)
		}
		if err := s.dispatch(msg); err != nil {
			return err
		}
		if s.State() >= StateDisconnecting {
			return nil
		}
	}
}
