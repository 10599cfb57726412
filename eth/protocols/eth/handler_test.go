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
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ethnode/corenet/common"
	"github.com/ethnode/corenet/p2p"
	"github.com/ethnode/corenet/p2p/enode"
	"github.com/ethnode/corenet/p2p/nodestats"
)

// messageCodeSets is every code named in protocol.go, used to check isHeavy
// and handleInline partition the space without overlap or gaps.
var messageCodeSets = []uint64{
	StatusMsg, NewBlockHashesMsg, TransactionsMsg, GetBlockHeadersMsg,
	BlockHeadersMsg, GetBlockBodiesMsg, BlockBodiesMsg, NewBlockMsg,
	NewPooledTransactionHashesMsg, GetPooledTransactionsMsg, PooledTransactionsMsg,
	GetNodeDataMsg, NodeDataMsg, GetReceiptsMsg, ReceiptsMsg,
}

func TestIsHeavyAndInlineMessagesArePartitioned(t *testing.T) {
	inline := map[uint64]bool{
		StatusMsg: true, TransactionsMsg: true, NewPooledTransactionHashesMsg: true,
		NewBlockHashesMsg: true, NewBlockMsg: true,
	}
	for _, code := range messageCodeSets {
		if isHeavy(code) {
			require.False(t, inline[code], "code %#x claimed by both isHeavy and the inline set", code)
		} else {
			require.True(t, inline[code], "code %#x handled by neither isHeavy nor the inline set", code)
		}
	}
}

func TestHandleRunsHandshakeThenReturnsReadError(t *testing.T) {
	a, b := p2p.MsgPipe()

	var id enode.ID
	id[0] = 4
	peer := NewPeer(ETH66, p2p.NewPeer(id, "remote", nil), a, nodestats.NewEntry(nodestats.DefaultConfig()))
	backend := &fakeBackend{
		chain: &fakeChain{},
		pool:  &fakeTxPool{byHash: map[common.Hash][]byte{}},
	}

	done := make(chan error, 1)
	go func() { done <- Handle(backend, peer) }()

	// drive the remote side of the handshake: read our Status, answer with one.
	status, err := b.ReadMsg()
	require.NoError(t, err)
	require.Equal(t, uint64(StatusMsg), status.Code)
	require.NoError(t, p2p.Send(b, StatusMsg, &StatusPacket{ProtocolVersion: ETH66, NetworkID: testNetworkID, Genesis: testGenesis}))

	// the remote hangs up; Handle's read loop should surface that as its
	// own return value rather than hang forever.
	require.NoError(t, b.Close())

	select {
	case err := <-done:
		require.Error(t, err)
		require.True(t, err == io.ErrClosedPipe || err != nil)
	case <-time.After(2 * time.Second):
		t.Fatal("Handle did not return after its peer closed the pipe")
	}
	a.Close()
}
