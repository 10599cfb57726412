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

// Package snap implements the snap/1 state-sync sub-protocol, its four
// request/response pairs, and the per-peer adaptive byte-budget controller
// that sizes our own outgoing requests.
package snap

import (
	"errors"

	"github.com/ethnode/corenet/common"
)

const Name = "snap"

const SNAP1 = 1

var ProtocolVersions = []uint{SNAP1}

// protocolLength is the packet-id space reserved for snap/1.
const protocolLength = 8

func ProtocolLength(version uint) uint64 {
	if version == SNAP1 {
		return protocolLength
	}
	return 0
}

// Packet codes for the four request/response pairs. snap/1 messages carry
// no explicit request_id here; requests and responses match FIFO, one
// queue per message kind.
const (
	GetAccountRangeMsg  = 0x00
	AccountRangeMsg     = 0x01
	GetStorageRangesMsg = 0x02
	StorageRangesMsg    = 0x03
	GetByteCodesMsg     = 0x04
	ByteCodesMsg        = 0x05
	GetTrieNodesMsg     = 0x06
	TrieNodesMsg        = 0x07
)

var (
	errUnsolicitedResponse = errors.New("snap: response has no matching pending request")
	errDecode              = errors.New("snap: failed to decode message")
)

// AccountData is one leaf in an account-range response: the hash of the
// account's trie key and its RLP-encoded account body.
type AccountData struct {
	Hash common.Hash
	Body []byte
}

// GetAccountRangePacket requests up to Bytes worth of consecutive accounts
// in [Origin, Limit] from the trie rooted at RootHash.
type GetAccountRangePacket struct {
	RootHash common.Hash
	Origin   common.Hash
	Limit    common.Hash
	Bytes    uint64
}

// AccountRangePacket carries the accounts found plus a Merkle proof of the
// range's boundaries.
type AccountRangePacket struct {
	Accounts []*AccountData
	Proof    [][]byte
}

// StorageData is one leaf of a storage-range response.
type StorageData struct {
	Hash common.Hash
	Body []byte
}

// GetStorageRangesPacket requests storage slots for each of Accounts, in
// [Origin, Limit], from the state trie rooted at RootHash.
type GetStorageRangesPacket struct {
	RootHash common.Hash
	Accounts []common.Hash
	Origin   []byte
	Limit    []byte
	Bytes    uint64
}

// StorageRangesPacket carries one slot slice per requested account, plus a
// shared proof for the last account's boundary (empty for complete ranges).
type StorageRangesPacket struct {
	Slots [][]*StorageData
	Proof [][]byte
}

// GetByteCodesPacket requests raw contract bytecode for Hashes.
type GetByteCodesPacket struct {
	Hashes []common.Hash
	Bytes  uint64
}

type ByteCodesPacket struct {
	Codes [][]byte
}

// TrieNodePathSet names one trie node by the path-compressed key segments
// leading to it: Paths[0] is the account-trie path, the remainder (if any)
// descend into that account's storage trie.
type TrieNodePathSet [][]byte

type GetTrieNodesPacket struct {
	RootHash common.Hash
	Paths    []TrieNodePathSet
	Bytes    uint64
}

type TrieNodesPacket struct {
	Nodes [][]byte
}
