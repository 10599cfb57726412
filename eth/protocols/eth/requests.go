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
	"github.com/ethnode/corenet/common"
	"github.com/ethnode/corenet/p2p"
	"github.com/ethnode/corenet/p2p/nodestats"
)

// RequestHeadersByHash sends a GetBlockHeaders query rooted at origin and
// returns a channel that resolves with the eventual BlockHeadersPacket.BlockHeadersRequest
// (or nil, on peer teardown) once the correlator matches the response.
func (p *Peer) RequestHeadersByHash(origin common.Hash, amount, skip uint64, reverse bool) (uint64, chan interface{}, error) {
	return p.requestHeaders(HashOrNumber{Hash: origin}, amount, skip, reverse)
}

// RequestHeadersByNumber is RequestHeadersByHash's number-rooted twin.
func (p *Peer) RequestHeadersByNumber(origin uint64, amount, skip uint64, reverse bool) (uint64, chan interface{}, error) {
	return p.requestHeaders(HashOrNumber{Number: origin}, amount, skip, reverse)
}

func (p *Peer) requestHeaders(origin HashOrNumber, amount, skip uint64, reverse bool) (uint64, chan interface{}, error) {
	id := p.nextRequestID()
	ch := p.register(id, nodestats.Headers)
	req := &GetBlockHeadersPacket66{
		RequestId: id,
		GetBlockHeadersPacket: &GetBlockHeadersPacket{
			Origin:  origin,
			Amount:  amount,
			Skip:    skip,
			Reverse: reverse,
		},
	}
	if err := p2p.Send(p.rw, GetBlockHeadersMsg, req); err != nil {
		p.fulfil(id, nil)
		return 0, nil, err
	}
	return id, ch, nil
}

// RequestBodies sends a GetBlockBodies query for hashes.
func (p *Peer) RequestBodies(hashes []common.Hash) (uint64, chan interface{}, error) {
	id := p.nextRequestID()
	ch := p.register(id, nodestats.Bodies)
	req := &GetBlockBodiesPacket66{
		RequestId:            id,
		GetBlockBodiesPacket: GetBlockBodiesPacket{GetBlockBodiesRequest: hashes},
	}
	if err := p2p.Send(p.rw, GetBlockBodiesMsg, req); err != nil {
		p.fulfil(id, nil)
		return 0, nil, err
	}
	return id, ch, nil
}

// RequestReceipts sends a GetReceipts query for hashes.
func (p *Peer) RequestReceipts(hashes []common.Hash) (uint64, chan interface{}, error) {
	id := p.nextRequestID()
	ch := p.register(id, nodestats.Receipts)
	req := &GetReceiptsPacket66{
		RequestId:        id,
		GetReceiptsPacket: GetReceiptsPacket{GetReceiptsRequest: hashes},
	}
	if err := p2p.Send(p.rw, GetReceiptsMsg, req); err != nil {
		p.fulfil(id, nil)
		return 0, nil, err
	}
	return id, ch, nil
}

// RequestNodeData sends a GetNodeData query for hashes.
func (p *Peer) RequestNodeData(hashes []common.Hash) (uint64, chan interface{}, error) {
	id := p.nextRequestID()
	ch := p.register(id, nodestats.NodeData)
	req := &GetNodeDataPacket66{
		RequestId:         id,
		GetNodeDataPacket: GetNodeDataPacket{GetNodeDataRequest: hashes},
	}
	if err := p2p.Send(p.rw, GetNodeDataMsg, req); err != nil {
		p.fulfil(id, nil)
		return 0, nil, err
	}
	return id, ch, nil
}

// RequestPooledTransactions sends a GetPooledTransactions query for hashes.
func (p *Peer) RequestPooledTransactions(hashes []common.Hash) (uint64, chan interface{}, error) {
	id := p.nextRequestID()
	ch := p.register(id, nodestats.Bodies)
	req := &GetPooledTransactionsPacket66{
		RequestId:                   id,
		GetPooledTransactionsPacket: GetPooledTransactionsPacket{GetPooledTransactionsRequest: hashes},
	}
	if err := p2p.Send(p.rw, GetPooledTransactionsMsg, req); err != nil {
		p.fulfil(id, nil)
		return 0, nil, err
	}
	return id, ch, nil
}

// AnnounceTxHashes sends a NewPooledTransactionHashes announcement for
// hashes not already known to peer, marking them known afterwards.
func (p *Peer) AnnounceTxHashes(hashes []common.Hash) error {
	var fresh NewPooledTransactionHashesPacket
	for _, h := range hashes {
		if !p.knownTxs.Contains(h) {
			fresh = append(fresh, h)
		}
	}
	if len(fresh) == 0 {
		return nil
	}
	p.knownTxs.Add(fresh...)
	return p2p.Send(p.rw, NewPooledTransactionHashesMsg, fresh)
}
