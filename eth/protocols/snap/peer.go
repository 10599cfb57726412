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

package snap

import (
	"fmt"
	"sync"
	"time"

	"github.com/ethnode/corenet/p2p"
)

// fifoRequest is one outstanding request awaiting its response. snap/1
// carries no explicit request id, so responses are matched to requests in
// submission order, one FIFO queue per message kind.
type fifoRequest struct {
	startingLimit uint64
	sentAt        time.Time
	response      chan interface{}
}

// fifoQueue is a single message kind's in-order pending-request list.
type fifoQueue struct {
	mu    sync.Mutex
	items []*fifoRequest
}

func (q *fifoQueue) push(r *fifoRequest) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, r)
}

func (q *fifoQueue) pop() (*fifoRequest, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	r := q.items[0]
	q.items = q.items[1:]
	return r, true
}

func (q *fifoQueue) cancelAll() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, r := range q.items {
		close(r.response)
	}
	q.items = nil
}

// Peer wraps a multiplexer session with the snap/1 protocol's own state:
// the adaptive byte-budget controller and the four FIFO correlator queues,
// one per request kind.
type Peer struct {
	*p2p.Peer
	rw      p2p.MsgReadWriter
	version uint

	budget *Budget

	accountRangeQ  fifoQueue
	storageRangesQ fifoQueue
	byteCodesQ     fifoQueue
	trieNodesQ     fifoQueue
}

// NewPeer constructs a snap-protocol peer descriptor around a negotiated
// session, mirroring eth.NewPeer's shape.
func NewPeer(version uint, p *p2p.Peer, rw p2p.MsgReadWriter) *Peer {
	return &Peer{
		Peer:    p,
		rw:      rw,
		version: version,
		budget:  NewBudget(),
	}
}

func (p *Peer) Version() uint { return p.version }

// cancelAll resolves every outstanding request on every queue, used on
// session teardown so no caller blocks on a response that will never come.
func (p *Peer) cancelAll() {
	p.accountRangeQ.cancelAll()
	p.storageRangesQ.cancelAll()
	p.byteCodesQ.cancelAll()
	p.trieNodesQ.cancelAll()
}

func (p *Peer) String() string {
	return fmt.Sprintf("Peer(snap/%d %s)", p.version, p.Peer.String())
}
