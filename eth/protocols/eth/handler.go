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

package eth

import (
	"fmt"
	"math/big"

	"github.com/ethnode/corenet/common"
	"github.com/ethnode/corenet/forkid"
	"github.com/ethnode/corenet/internal/log"
	"github.com/ethnode/corenet/p2p/enode"
)

// Packet is any decoded message value Handle hands up to the Backend once
// it falls outside the request/response correlator's scope (gossip:
// Transactions, NewPooledTransactionHashes, NewBlock, NewBlockHashes).
type Packet interface{}

// Handler is the per-peer goroutine entrypoint a Backend runs under
// RunPeer.
type Handler func(peer *Peer) error

// ChainReader is the narrow view onto chain state this protocol family
// needs: its own head/genesis/fork-id, for the Status handshake and
// header/body/receipt lookups for serving requests.
type ChainReader interface {
	NetworkID() uint64
	GenesisHash() common.Hash
	CurrentHead() (hash common.Hash, number uint64, td *big.Int)
	ForkID() forkid.ID
	ValidateForkID(remote forkid.ID) error
	GetHeaders(origin GetBlockHeadersPacket) []*BlockHeader
	GetBodies(hashes []common.Hash) []*BlockBody
	GetReceipts(hashes []common.Hash) [][]*Receipt
}

// TxPool is the narrow transaction-pool collaborator: enough to answer
// GetPooledTransactions and to learn about newly announced hashes.
type TxPool interface {
	Has(hash common.Hash) bool
	Get(hash common.Hash) []byte // pre-encoded transaction, nil if absent
	AddRemote(encoded []byte) error
}

// Backend is everything a running eth-protocol session needs from the rest
// of the node.
type Backend interface {
	Chain() ChainReader
	TxPool() TxPool
	RunPeer(peer *Peer, handler Handler) error
	PeerInfo(id enode.ID) interface{}
	AcceptTxs() bool
	Handle(peer *Peer, packet Packet) error
}

// Handle drives one peer's session to completion: performs the Status
// handshake, then alternates between the inline fast path (gossip,
// Status-class control messages) and the bounded backpressure queue for
// heavy correlated request/response traffic.
func Handle(backend Backend, peer *Peer) error {
	chain := backend.Chain()
	head, _, td := chain.CurrentHead()
	err := peer.Handshake(chain.NetworkID(), td, head, chain.GenesisHash(), chain.ForkID(), chain.ValidateForkID)
	if err != nil {
		return err
	}

	dispatcher := newDispatcher(backend, peer)
	defer dispatcher.close()

	for {
		msg, err := peer.rw.ReadMsg()
		if err != nil {
			peer.cancelAll()
			return err
		}
		if msg.Size > maxMessageSize {
			peer.cancelAll()
			return fmt.Errorf("%w: %d > %d", errMsgTooLarge, msg.Size, maxMessageSize)
		}
		if isHeavy(msg.Code) {
			if err := dispatcher.enqueue(msg); err != nil {
				log.Root().Warn("eth: disconnecting spammy peer", "peer", peer.ID(), "err", err)
				peer.cancelAll()
				return err
			}
			continue
		}
		if err := handleInline(backend, peer, msg); err != nil {
			peer.cancelAll()
			return err
		}
	}
}

const maxMessageSize = 10 * 1024 * 1024

func isHeavy(code uint64) bool {
	switch code {
	case GetBlockHeadersMsg, BlockHeadersMsg,
		GetBlockBodiesMsg, BlockBodiesMsg,
		GetReceiptsMsg, ReceiptsMsg,
		GetNodeDataMsg, NodeDataMsg,
		GetPooledTransactionsMsg, PooledTransactionsMsg:
		return true
	default:
		return false
	}
}
