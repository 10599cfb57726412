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
	"bytes"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ethnode/corenet/common"
	"github.com/ethnode/corenet/forkid"
	"github.com/ethnode/corenet/p2p"
	"github.com/ethnode/corenet/p2p/enode"
	"github.com/ethnode/corenet/p2p/nodestats"
	"github.com/ethnode/corenet/rlp"
)

// fakeChain/fakeTxPool/fakeBackend give the dispatcher just enough of a
// Backend to serve one request of each kind.
type fakeChain struct {
	headers []*BlockHeader
}

func (c *fakeChain) NetworkID() uint64       { return testNetworkID }
func (c *fakeChain) GenesisHash() common.Hash { return testGenesis }
func (c *fakeChain) CurrentHead() (common.Hash, uint64, *big.Int) {
	return common.Hash{}, 0, big.NewInt(0)
}
func (c *fakeChain) ForkID() forkid.ID                    { return forkid.ID{} }
func (c *fakeChain) ValidateForkID(forkid.ID) error       { return nil }
func (c *fakeChain) GetHeaders(GetBlockHeadersPacket) []*BlockHeader { return c.headers }
func (c *fakeChain) GetBodies(hashes []common.Hash) []*BlockBody {
	bodies := make([]*BlockBody, len(hashes))
	for i := range hashes {
		bodies[i] = &BlockBody{}
	}
	return bodies
}
func (c *fakeChain) GetReceipts(hashes []common.Hash) [][]*Receipt {
	return make([][]*Receipt, len(hashes))
}

type fakeTxPool struct {
	byHash map[common.Hash][]byte
}

func (p *fakeTxPool) Has(hash common.Hash) bool     { _, ok := p.byHash[hash]; return ok }
func (p *fakeTxPool) Get(hash common.Hash) []byte   { return p.byHash[hash] }
func (p *fakeTxPool) AddRemote(encoded []byte) error { return nil }

type fakeBackend struct {
	chain *fakeChain
	pool  *fakeTxPool
}

func (b *fakeBackend) Chain() ChainReader                                { return b.chain }
func (b *fakeBackend) TxPool() TxPool                                    { return b.pool }
func (b *fakeBackend) RunPeer(peer *Peer, handler Handler) error         { return handler(peer) }
func (b *fakeBackend) PeerInfo(id enode.ID) interface{}                  { return nil }
func (b *fakeBackend) AcceptTxs() bool                                   { return true }
func (b *fakeBackend) Handle(peer *Peer, packet Packet) error            { return nil }

func TestEnqueueFailsOnTheThirtyThirdMessage(t *testing.T) {
	d := &dispatcher{queue: make(chan p2p.Msg, queueCapacity)}
	for i := 0; i < queueCapacity; i++ {
		require.NoError(t, d.enqueue(p2p.Msg{}), "message %d should fit in the bounded queue", i)
	}
	err := d.enqueue(p2p.Msg{})
	require.ErrorIs(t, err, errIncomingQueueFull)
}

func TestEnqueueNeverBlocks(t *testing.T) {
	d := &dispatcher{queue: make(chan p2p.Msg, 1)}
	require.NoError(t, d.enqueue(p2p.Msg{}))

	done := make(chan struct{})
	go func() {
		d.enqueue(p2p.Msg{})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("enqueue blocked on a full queue instead of returning an error")
	}
}

func encodeMsg(code uint64, val interface{}) p2p.Msg {
	payload, err := rlp.EncodeToBytes(val)
	if err != nil {
		panic(err)
	}
	return p2p.Msg{Code: code, Size: uint32(len(payload)), Payload: bytes.NewReader(payload)}
}

func TestDispatcherServesGetBlockHeaders(t *testing.T) {
	a, b := p2p.MsgPipe()
	defer func() { a.Close(); b.Close() }()

	var id enode.ID
	id[0] = 9
	peer := NewPeer(ETH66, p2p.NewPeer(id, "x", nil), a, nil)
	backend := &fakeBackend{
		chain: &fakeChain{headers: []*BlockHeader{{Number: big.NewInt(1)}}},
		pool:  &fakeTxPool{byHash: map[common.Hash][]byte{}},
	}
	d := newDispatcher(backend, peer)
	defer d.close()

	req := encodeMsg(GetBlockHeadersMsg, &GetBlockHeadersPacket66{
		RequestId:             7,
		GetBlockHeadersPacket: &GetBlockHeadersPacket{Origin: HashOrNumber{Number: 1}, Amount: 1},
	})
	require.NoError(t, d.enqueue(req))

	resp, err := b.ReadMsg()
	require.NoError(t, err)
	require.Equal(t, uint64(BlockHeadersMsg), resp.Code)

	var got BlockHeadersPacket66
	require.NoError(t, resp.Decode(&got))
	require.Equal(t, uint64(7), got.RequestId)
	require.Len(t, got.BlockHeadersRequest, 1)
}

func TestDispatcherCompletesCorrelatedResponse(t *testing.T) {
	a, b := p2p.MsgPipe()
	defer func() { a.Close(); b.Close() }()

	var id enode.ID
	id[0] = 3
	peer := NewPeer(ETH66, p2p.NewPeer(id, "x", nil), a, nodestats.NewEntry(nodestats.DefaultConfig()))
	backend := &fakeBackend{chain: &fakeChain{}, pool: &fakeTxPool{byHash: map[common.Hash][]byte{}}}
	d := newDispatcher(backend, peer)
	defer d.close()

	reqID := peer.nextRequestID()
	ch := peer.register(reqID, 0)

	resp := encodeMsg(BlockHeadersMsg, &BlockHeadersPacket66{
		RequestId:          reqID,
		BlockHeadersPacket: BlockHeadersPacket{BlockHeadersRequest: []*BlockHeader{{Number: big.NewInt(5)}}},
	})
	require.NoError(t, d.enqueue(resp))

	select {
	case payload := <-ch:
		headers, ok := payload.([]*BlockHeader)
		require.True(t, ok)
		require.Len(t, headers, 1)
	case <-time.After(time.Second):
		t.Fatal("response never reached the correlator")
	}
}
