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

// Package enode holds the peer identity triple: a 64-byte secp256k1 public
// key (ID), a host and a port. Two nodes are the same iff their ID matches.
package enode

import "fmt"

// ID is the 64-byte uncompressed secp256k1 public key identifying a peer.
type ID [64]byte

func (id ID) String() string {
	return fmt.Sprintf("%x", id[:8])
}

// Node is the identity triple (NodeId, Host, Port), plus the TCP port
// actually observed for inbound connections — which may differ from the
// advertised listen port until the p2p Hello handshake completes.
type Node struct {
	ID   ID
	IP   string
	Port int // advertised/validated listen port

	// TCPPort is the source port of the physical TCP connection; for
	// inbound sessions it differs from Port until Hello arrives.
	TCPPort int
}

func New(id ID, ip string, port int) *Node {
	return &Node{ID: id, IP: ip, Port: port}
}

// Equal reports whether two nodes share the same identity: identity is
// determined by NodeId alone.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	return n.ID == other.ID
}

func (n *Node) String() string {
	return fmt.Sprintf("enode://%x@%s:%d", n.ID[:8], n.IP, n.Port)
}
