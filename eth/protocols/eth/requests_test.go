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
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ethnode/corenet/common"
	"github.com/ethnode/corenet/p2p"
)

func TestRequestHeadersByHashRoundTripsThroughCorrelator(t *testing.T) {
	a, b := p2p.MsgPipe()
	defer func() { a.Close(); b.Close() }()

	peer := newTestPeer(ETH66, a)
	origin := common.BytesToHash([]byte("origin"))

	id, ch, err := peer.RequestHeadersByHash(origin, 5, 0, false)
	require.NoError(t, err)
	require.NotZero(t, id)

	msg, err := b.ReadMsg()
	require.NoError(t, err)
	require.Equal(t, uint64(GetBlockHeadersMsg), msg.Code)

	var got GetBlockHeadersPacket66
	require.NoError(t, msg.Decode(&got))
	require.Equal(t, id, got.RequestId)
	require.Equal(t, origin, got.Origin.Hash)
	require.Equal(t, uint64(5), got.Amount)

	require.True(t, peer.fulfil(id, "simulated response"))
	select {
	case payload := <-ch:
		require.Equal(t, "simulated response", payload)
	case <-time.After(time.Second):
		t.Fatal("request never reached the correlator")
	}
}

func TestAnnounceTxHashesSkipsKnown(t *testing.T) {
	a, b := p2p.MsgPipe()
	defer func() { a.Close(); b.Close() }()

	peer := newTestPeer(ETH66, a)
	known := common.BytesToHash([]byte("known"))
	fresh := common.BytesToHash([]byte("fresh"))
	peer.MarkTransaction(known)

	require.NoError(t, peer.AnnounceTxHashes([]common.Hash{known, fresh}))

	msg, err := b.ReadMsg()
	require.NoError(t, err)
	require.Equal(t, uint64(NewPooledTransactionHashesMsg), msg.Code)

	var got NewPooledTransactionHashesPacket
	require.NoError(t, msg.Decode(&got))
	require.Equal(t, []common.Hash{fresh}, []common.Hash(got))
}
