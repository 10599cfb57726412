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

	"github.com/ethnode/corenet/common"
	"github.com/ethnode/corenet/rlp"
)

func TestGetAccountRangePacketEncodeDecode(t *testing.T) {
	want := &GetAccountRangePacket{
		RootHash: common.BytesToHash([]byte("root")),
		Origin:   common.Hash{},
		Limit:    common.BytesToHash([]byte{0xff}),
		Bytes:    500_000,
	}
	enc, err := rlp.EncodeToBytes(want)
	require.NoError(t, err)

	got := new(GetAccountRangePacket)
	require.NoError(t, rlp.DecodeBytes(enc, got))
	require.Equal(t, want, got)
}

func TestAccountRangePacketEncodeDecode(t *testing.T) {
	want := &AccountRangePacket{
		Accounts: []*AccountData{
			{Hash: common.BytesToHash([]byte("a1")), Body: []byte{1, 2, 3}},
			{Hash: common.BytesToHash([]byte("a2")), Body: []byte{4, 5}},
		},
		Proof: [][]byte{{0xaa}, {0xbb, 0xcc}},
	}
	enc, err := rlp.EncodeToBytes(want)
	require.NoError(t, err)

	got := new(AccountRangePacket)
	require.NoError(t, rlp.DecodeBytes(enc, got))
	require.Equal(t, want, got)
}

func TestGetStorageRangesPacketEncodeDecode(t *testing.T) {
	want := &GetStorageRangesPacket{
		RootHash: common.BytesToHash([]byte("root")),
		Accounts: []common.Hash{common.BytesToHash([]byte("acct1"))},
		Origin:   []byte{0x00},
		Limit:    []byte{0xff, 0xff},
		Bytes:    123,
	}
	enc, err := rlp.EncodeToBytes(want)
	require.NoError(t, err)

	got := new(GetStorageRangesPacket)
	require.NoError(t, rlp.DecodeBytes(enc, got))
	require.Equal(t, want, got)
}

func TestByteCodesPacketEncodeDecode(t *testing.T) {
	want := &ByteCodesPacket{Codes: [][]byte{{0x60, 0x60}, {}}}
	enc, err := rlp.EncodeToBytes(want)
	require.NoError(t, err)

	got := new(ByteCodesPacket)
	require.NoError(t, rlp.DecodeBytes(enc, got))
	require.Len(t, got.Codes, 2)
	require.Equal(t, want.Codes[0], got.Codes[0])
}

func TestTrieNodePathSetEncodeDecode(t *testing.T) {
	want := &GetTrieNodesPacket{
		RootHash: common.BytesToHash([]byte("root")),
		Paths: []TrieNodePathSet{
			{{0x01}, {0x02, 0x03}},
			{{0x04}},
		},
		Bytes: 1000,
	}
	enc, err := rlp.EncodeToBytes(want)
	require.NoError(t, err)

	got := new(GetTrieNodesPacket)
	require.NoError(t, rlp.DecodeBytes(enc, got))
	require.Equal(t, want, got)
}

func TestProtocolLengthKnownVersionOnly(t *testing.T) {
	require.Equal(t, uint64(protocolLength), ProtocolLength(SNAP1))
	require.Zero(t, ProtocolLength(99))
}
