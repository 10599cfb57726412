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
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ethnode/corenet/common"
	"github.com/ethnode/corenet/p2p"
	"github.com/ethnode/corenet/p2p/nodestats"
)

// maxKnownHashes/maxKnownTxs bound the per-peer dedup caches, so we never
// re-announce something the peer already told us about, without growing
// these sets without bound.
const (
	maxKnownHashes = 32768
	maxKnownTxs    = 32768
)

// knownCache is a capacity-bounded set: the newest maxSize entries are kept,
// oldest evicted first. An LRU cache's eviction order combined with plain
// set semantics (membership + cardinality).
type knownCache struct {
	mu  sync.Mutex
	lru *lru.Cache[common.Hash, struct{}]
}

func newKnownCache(maxSize int) *knownCache {
	c, _ := lru.New[common.Hash, struct{}](maxSize)
	return &knownCache{lru: c}
}

func (k *knownCache) Add(hashes ...common.Hash) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, h := range hashes {
		k.lru.Add(h, struct{}{})
	}
}

func (k *knownCache) Contains(h common.Hash) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.lru.Contains(h)
}

func (k *knownCache) Cardinality() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.lru.Len()
}

// pending is one outstanding correlated request/response pair (eth/66+):
// a dictionary entry keyed by request id.
type pending struct {
	kind     nodestats.TransferKind
	sentAt   int64 // unix nano, set by register when the request is registered
	response chan interface{}
}

// Peer wraps a multiplexer session with the eth sub-protocol's own state:
// negotiated version, advertised head/TD, the fork-id validator, the
// request-id correlator, and the dedup caches for gossip.
type Peer struct {
	*p2p.Peer
	rw      p2p.MsgReadWriter
	version uint

	mu   sync.RWMutex
	head common.Hash
	td   *big.Int

	knownBlocks *knownCache
	knownTxs    *knownCache

	reqMu   sync.Mutex
	nextID  uint64
	pending map[uint64]*pending

	stats *nodestats.Entry

	txAnnounces mapset.Set[common.Hash]
}

// NewPeer constructs an eth-protocol peer descriptor around a negotiated
// session (txpool plumbing lives one layer up, in the Backend).
func NewPeer(version uint, p *p2p.Peer, rw p2p.MsgReadWriter, stats *nodestats.Entry) *Peer {
	return &Peer{
		Peer:        p,
		rw:          rw,
		version:     version,
		knownBlocks: newKnownCache(maxKnownHashes),
		knownTxs:    newKnownCache(maxKnownTxs),
		pending:     make(map[uint64]*pending),
		stats:       stats,
		txAnnounces: mapset.NewSet[common.Hash](),
	}
}

func (p *Peer) Version() uint { return p.version }

func (p *Peer) Head() (common.Hash, *big.Int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.head, p.td
}

func (p *Peer) SetHead(hash common.Hash, td *big.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.head, p.td = hash, td
}

// MarkBlock records hash as known to the peer so a future block broadcast
// can skip it.
func (p *Peer) MarkBlock(hash common.Hash) { p.knownBlocks.Add(hash) }

// MarkTransaction records hash as known to the peer.
func (p *Peer) MarkTransaction(hash common.Hash) { p.knownTxs.Add(hash) }

// nextRequestID allocates a fresh, session-monotonic, non-zero request id.
func (p *Peer) nextRequestID() uint64 {
	p.reqMu.Lock()
	defer p.reqMu.Unlock()
	p.nextID++
	return p.nextID
}

// register installs a pending correlator entry before the request frame is
// written, so a response racing the send still finds its slot.
func (p *Peer) register(id uint64, kind nodestats.TransferKind) chan interface{} {
	ch := make(chan interface{}, 1)
	p.reqMu.Lock()
	p.pending[id] = &pending{kind: kind, sentAt: time.Now().UnixNano(), response: ch}
	p.reqMu.Unlock()
	return ch
}

// fulfil matches an inbound response to its pending request_id, completing
// and removing the slot. Unknown/duplicate ids are dropped, reported back
// to the caller via the boolean.
func (p *Peer) fulfil(id uint64, payload interface{}) bool {
	p.reqMu.Lock()
	entry, ok := p.pending[id]
	if ok {
		delete(p.pending, id)
	}
	p.reqMu.Unlock()
	if !ok {
		return false
	}
	entry.response <- payload
	return true
}

// completeTiming looks up the pending slot for id (if any) without removing
// it and reports how long it has been outstanding, so a caller can fold that
// duration into node-stats before fulfil removes the slot.
func (p *Peer) completeTiming(id uint64) (kind nodestats.TransferKind, elapsedMs uint64, ok bool) {
	p.reqMu.Lock()
	entry, present := p.pending[id]
	p.reqMu.Unlock()
	if !present {
		return 0, 0, false
	}
	elapsed := time.Since(time.Unix(0, entry.sentAt)).Milliseconds()
	if elapsed <= 0 {
		elapsed = 1
	}
	return entry.kind, uint64(elapsed), true
}

// cancelAll resolves every outstanding correlator slot with nil, used on
// peer teardown so no caller blocks forever on a response that will never
// arrive.
func (p *Peer) cancelAll() {
	p.reqMu.Lock()
	defer p.reqMu.Unlock()
	for id, entry := range p.pending {
		close(entry.response)
		delete(p.pending, id)
	}
}

func (p *Peer) String() string {
	return fmt.Sprintf("Peer(eth/%d %s)", p.version, p.Peer.String())
}
