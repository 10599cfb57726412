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
	"sync"

	"github.com/ethnode/corenet/internal/log"
	"github.com/ethnode/corenet/p2p"
	"github.com/ethnode/corenet/rlp"
)

// queueCapacity and workerCount implement the backpressure queue: a bounded
// channel of capacity 32, fed by the session's read loop and drained by
// exactly two worker goroutines. Decoding only ever happens
// inside a worker, so a slow deserialization can never block the session's
// network read loop.
const (
	queueCapacity = 32
	workerCount   = 2
)

// dispatcher owns the bounded queue of heavy eth/66 messages for one peer.
type dispatcher struct {
	peer    *Peer
	backend Backend

	queue chan p2p.Msg

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

func newDispatcher(backend Backend, peer *Peer) *dispatcher {
	d := &dispatcher{
		peer:    peer,
		backend: backend,
		queue:   make(chan p2p.Msg, queueCapacity),
		done:    make(chan struct{}),
	}
	for i := 0; i < workerCount; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// enqueue pushes msg onto the bounded queue. A full queue never blocks the
// caller — it returns errIncomingQueueFull, which the
// caller (Handle's read loop) turns into a session disconnect. This is the
// mechanism behind the "Spammy peer disconnect" end-to-end scenario: 33
// pooled-tx bundles against a 32-capacity queue fail on the 33rd enqueue.
func (d *dispatcher) enqueue(msg p2p.Msg) error {
	select {
	case d.queue <- msg:
		return nil
	default:
		return errIncomingQueueFull
	}
}

func (d *dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case msg := <-d.queue:
			if err := d.process(msg); err != nil {
				log.Root().Debug("eth: dropping malformed heavy message", "code", msg.Code, "err", err)
			}
		case <-d.done:
			return
		}
	}
}

func (d *dispatcher) close() {
	d.closeOnce.Do(func() { close(d.done) })
	d.wg.Wait()
}

// process decodes msg inside the worker and, for a response, completes the
// matching correlator slot and records a node-stats transfer-speed sample
// (payload_size / elapsed_ms).
func (d *dispatcher) process(msg p2p.Msg) error {
	switch msg.Code {
	case GetBlockHeadersMsg:
		var req GetBlockHeadersPacket66
		if err := msg.Decode(&req); err != nil {
			return err
		}
		headers := d.backend.Chain().GetHeaders(*req.GetBlockHeadersPacket)
		return p2p.Send(d.peer.rw, BlockHeadersMsg, &BlockHeadersPacket66{
			RequestId:          req.RequestId,
			BlockHeadersPacket: BlockHeadersPacket{BlockHeadersRequest: headers},
		})

	case BlockHeadersMsg:
		var resp BlockHeadersPacket66
		if err := msg.Decode(&resp); err != nil {
			return err
		}
		d.complete(resp.RequestId, msg.Size, resp.BlockHeadersRequest)
		return nil

	case GetBlockBodiesMsg:
		var req GetBlockBodiesPacket66
		if err := msg.Decode(&req); err != nil {
			return err
		}
		bodies := d.backend.Chain().GetBodies(req.GetBlockBodiesRequest)
		return p2p.Send(d.peer.rw, BlockBodiesMsg, &BlockBodiesPacket66{
			RequestId:         req.RequestId,
			BlockBodiesPacket: BlockBodiesPacket{BlockBodiesResponse: bodies},
		})

	case BlockBodiesMsg:
		var resp BlockBodiesPacket66
		if err := msg.Decode(&resp); err != nil {
			return err
		}
		d.complete(resp.RequestId, msg.Size, resp.BlockBodiesResponse)
		return nil

	case GetReceiptsMsg:
		var req GetReceiptsPacket66
		if err := msg.Decode(&req); err != nil {
			return err
		}
		receipts := d.backend.Chain().GetReceipts(req.GetReceiptsRequest)
		return p2p.Send(d.peer.rw, ReceiptsMsg, &ReceiptsPacket66{
			RequestId:      req.RequestId,
			ReceiptsPacket: ReceiptsPacket{ReceiptsResponse: receipts},
		})

	case ReceiptsMsg:
		var resp ReceiptsPacket66
		if err := msg.Decode(&resp); err != nil {
			return err
		}
		d.complete(resp.RequestId, msg.Size, resp.ReceiptsResponse)
		return nil

	case GetNodeDataMsg:
		var req GetNodeDataPacket66
		return msg.Decode(&req) // served by a SnapServer-style collaborator in the full node; framing only here

	case NodeDataMsg:
		var resp NodeDataPacket66
		if err := msg.Decode(&resp); err != nil {
			return err
		}
		d.complete(resp.RequestId, msg.Size, resp.NodeDataResponse)
		return nil

	case GetPooledTransactionsMsg:
		var req GetPooledTransactionsPacket66
		if err := msg.Decode(&req); err != nil {
			return err
		}
		var txs []rlp.RawValue
		for _, h := range req.GetPooledTransactionsRequest {
			if enc := d.backend.TxPool().Get(h); enc != nil {
				txs = append(txs, rlp.RawValue(enc))
			}
		}
		return p2p.Send(d.peer.rw, PooledTransactionsMsg, &PooledTransactionsPacket66{
			RequestId:                req.RequestId,
			PooledTransactionsPacket: PooledTransactionsPacket{PooledTransactionsResponse: txs},
		})

	case PooledTransactionsMsg:
		var resp PooledTransactionsPacket66
		if err := msg.Decode(&resp); err != nil {
			return err
		}
		d.complete(resp.RequestId, msg.Size, resp.PooledTransactionsResponse)
		return nil

	default:
		return msg.Discard()
	}
}

// complete resolves the correlator slot for requestID if one is pending,
// and folds the response's bytes-per-millisecond transfer speed into
// node-stats' rolling average for the request's kind.
func (d *dispatcher) complete(requestID uint64, payloadSize uint32, payload interface{}) {
	kind, elapsedMs, ok := d.peer.completeTiming(requestID)
	if !d.peer.fulfil(requestID, payload) || !ok {
		return
	}
	d.peer.stats.AddTransferSpeed(kind, uint64(payloadSize)/elapsedMs)
}
