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
	"math/big"

	"github.com/ethnode/corenet/common"
	"github.com/ethnode/corenet/p2p"
	"github.com/ethnode/corenet/rlp"
)

// handleInline processes a "light" message directly on the session's read
// goroutine: Status-class control frames and gossip never touch the
// backpressure queue.
func handleInline(backend Backend, peer *Peer, msg p2p.Msg) error {
	switch msg.Code {
	case StatusMsg:
		return msg.Discard() // already consumed by Handshake; a second Status is a protocol quirk, not an error

	case TransactionsMsg:
		var txs TransactionsPacket
		if err := msg.Decode(&txs); err != nil {
			return err
		}
		if !backend.AcceptTxs() {
			return nil
		}
		for _, tx := range txs {
			_ = backend.Handle(peer, tx)
		}
		return nil

	case NewPooledTransactionHashesMsg:
		var hashes NewPooledTransactionHashesPacket
		if err := msg.Decode(&hashes); err != nil {
			return err
		}
		for _, h := range hashes {
			peer.MarkTransaction(h)
		}
		return backend.Handle(peer, hashes)

	case NewBlockHashesMsg:
		var ann NewBlockHashesPacket
		if err := msg.Decode(&ann); err != nil {
			return err
		}
		for _, a := range ann {
			peer.MarkBlock(a.Hash)
		}
		return backend.Handle(peer, ann)

	case NewBlockMsg:
		var block NewBlockPacket
		if err := msg.Decode(&block); err != nil {
			return err
		}
		return backend.Handle(peer, block)

	default:
		return msg.Discard()
	}
}

// BroadcastTransactions announces txs to peer, skipping any hash it has
// already marked known, then marks them known so a later broadcast round
// doesn't repeat.
func (p *Peer) BroadcastTransactions(hashes []common.Hash, encoded []rlp.RawValue) error {
	var fresh TransactionsPacket
	var freshHashes []common.Hash
	for i, h := range hashes {
		if p.knownTxs.Contains(h) {
			continue
		}
		fresh = append(fresh, encoded[i])
		freshHashes = append(freshHashes, h)
	}
	if len(fresh) == 0 {
		return nil
	}
	p.knownTxs.Add(freshHashes...)
	return p2p.Send(p.rw, TransactionsMsg, fresh)
}

// AnnounceBlock sends a NewBlock gossip frame for a block peer hasn't seen,
// skipping it entirely if already known.
func (p *Peer) AnnounceBlock(hash common.Hash, encoded rlp.RawValue, td *big.Int) error {
	if p.knownBlocks.Contains(hash) {
		return nil
	}
	p.knownBlocks.Add(hash)
	return p2p.Send(p.rw, NewBlockMsg, &NewBlockPacket{Block: encoded, TD: td})
}
