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

// Peer is the lightweight remote-identity descriptor handed to a
// sub-protocol handler at construction time: node id, client id and
// capability list learned during the p2p handshake. It carries no message
// transport itself — a sub-protocol handler is given its own
// MsgReadWriter separately (see Session).
type Peer struct {
	id      enode.ID
	name    string
	caps    []Cap
	inbound bool
}

// NewPeer constructs a Peer identity descriptor.
func NewPeer(id enode.ID, name string, caps []Cap) *Peer {
	return &Peer{id: id, name: name, caps: caps}
}

func (p *Peer) ID() enode.ID    { return p.id }
func (p *Peer) Name() string    { return p.name }
func (p *Peer) Caps() []Cap     { return p.caps }
func (p *Peer) Inbound() bool   { return p.inbound }

func (p *Peer) String() string {
	return fmt.Sprintf("Peer(%s %x)", p.name, p.id[:8])
}
