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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethnode/corenet/common"
	"github.com/ethnode/corenet/p2p"
	"github.com/ethnode/corenet/p2p/enode"
	"github.com/ethnode/corenet/p2p/nodestats"
)

func TestKnownCacheDedup(t *testing.T) {
	c := newKnownCache(4)
	h := common.BytesToHash([]byte("a"))
	require.False(t, c.Contains(h))
	c.Add(h)
	require.True(t, c.Contains(h))
	require.Equal(t, 1, c.Cardinality())
}

func TestKnownCacheEvictsOldestPastCapacity(t *testing.T) {
	c := newKnownCache(2)
	h1 := common.BytesToHash([]byte("1"))
	h2 := common.BytesToHash([]byte("2"))
	h3 := common.BytesToHash([]byte("3"))
	c.Add(h1)
	c.Add(h2)
	c.Add(h3)
	require.LessOrEqual(t, c.Cardinality(), 2)
	require.True(t, c.Contains(h3))
}

func TestNextRequestIDIsMonotonicAndNonzero(t *testing.T) {
	p := &Peer{pending: make(map[uint64]*pending)}
	seen := make(map[uint64]bool)
	for i := 0; i < 100; i++ {
		id := p.nextRequestID()
		require.NotZero(t, id)
		require.False(t, seen[id], "request ids must not repeat within a session")
		seen[id] = true
	}
}

func TestFulfilMatchesRegisteredRequestID(t *testing.T) {
	p := &Peer{pending: make(map[uint64]*pending)}
	id := p.nextRequestID()
	ch := p.register(id, nodestats.Headers)

	ok := p.fulfil(id, "payload")
	require.True(t, ok)
	require.Equal(t, "payload", <-ch)
}

func TestFulfilRejectsUnknownRequestID(t *testing.T) {
	p := &Peer{pending: make(map[uint64]*pending)}
	require.False(t, p.fulfil(999, "nope"))
}

func TestFulfilIsOneShot(t *testing.T) {
	p := &Peer{pending: make(map[uint64]*pending)}
	id := p.nextRequestID()
	p.register(id, nodestats.Headers)

	require.True(t, p.fulfil(id, 1))
	require.False(t, p.fulfil(id, 2), "a request id must not be fulfilled twice")
}

func TestCompleteTimingReportsElapsed(t *testing.T) {
	p := &Peer{pending: make(map[uint64]*pending)}
	id := p.nextRequestID()
	p.register(id, nodestats.Bodies)

	kind, elapsed, ok := p.completeTiming(id)
	require.True(t, ok)
	require.Equal(t, nodestats.Bodies, kind)
	require.GreaterOrEqual(t, elapsed, uint64(1))
}

func TestCancelAllResolvesOutstandingRequests(t *testing.T) {
	p := &Peer{pending: make(map[uint64]*pending)}
	id1 := p.nextRequestID()
	id2 := p.nextRequestID()
	ch1 := p.register(id1, nodestats.Headers)
	ch2 := p.register(id2, nodestats.Bodies)

	p.cancelAll()

	_, ok1 := <-ch1
	_, ok2 := <-ch2
	require.False(t, ok1)
	require.False(t, ok2)
}

func TestMarkBlockAndMarkTransactionDedup(t *testing.T) {
	p := NewPeer(ETH66, nil, nil, nil)
	h := common.BytesToHash([]byte("block"))
	require.False(t, p.knownBlocks.Contains(h))
	p.MarkBlock(h)
	require.True(t, p.knownBlocks.Contains(h))

	tx := common.BytesToHash([]byte("tx"))
	p.MarkTransaction(tx)
	require.True(t, p.knownTxs.Contains(tx))
}

func TestPeerStringIncludesVersion(t *testing.T) {
	var id enode.ID
	id[0] = 7
	p := NewPeer(ETH66, p2p.NewPeer(id, "x", nil), nil, nil)
	require.Contains(t, p.String(), "eth/66")
}
