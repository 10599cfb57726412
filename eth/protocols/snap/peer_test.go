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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethnode/corenet/p2p"
	"github.com/ethnode/corenet/p2p/enode"
)

func TestFifoQueueMatchesInSubmissionOrder(t *testing.T) {
	var q fifoQueue
	r1 := &fifoRequest{startingLimit: 1, response: make(chan interface{}, 1)}
	r2 := &fifoRequest{startingLimit: 2, response: make(chan interface{}, 1)}
	q.push(r1)
	q.push(r2)

	got1, ok := q.pop()
	require.True(t, ok)
	require.Same(t, r1, got1)

	got2, ok := q.pop()
	require.True(t, ok)
	require.Same(t, r2, got2)

	_, ok = q.pop()
	require.False(t, ok)
}

func TestFifoQueuePopOnEmptyFails(t *testing.T) {
	var q fifoQueue
	_, ok := q.pop()
	require.False(t, ok)
}

func TestFifoQueueCancelAllClosesEveryPending(t *testing.T) {
	var q fifoQueue
	ch1 := make(chan interface{})
	ch2 := make(chan interface{})
	q.push(&fifoRequest{response: ch1})
	q.push(&fifoRequest{response: ch2})

	q.cancelAll()

	_, ok1 := <-ch1
	_, ok2 := <-ch2
	require.False(t, ok1)
	require.False(t, ok2)

	_, ok := q.pop()
	require.False(t, ok, "cancelAll must drain the queue, not just close the channels")
}

func TestPeerCancelAllCoversEveryQueue(t *testing.T) {
	var id enode.ID
	id[0] = 1
	p := NewPeer(SNAP1, p2p.NewPeer(id, "x", nil), nil)

	chans := make([]chan interface{}, 0, 4)
	for _, q := range []*fifoQueue{&p.accountRangeQ, &p.storageRangesQ, &p.byteCodesQ, &p.trieNodesQ} {
		ch := make(chan interface{})
		q.push(&fifoRequest{response: ch})
		chans = append(chans, ch)
	}

	p.cancelAll()
	for _, ch := range chans {
		_, ok := <-ch
		require.False(t, ok)
	}
}

func TestPeerStringIncludesVersion(t *testing.T) {
	var id enode.ID
	id[0] = 2
	p := NewPeer(SNAP1, p2p.NewPeer(id, "x", nil), nil)
	require.Contains(t, p.String(), "snap/1")
}
