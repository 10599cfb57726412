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
	"time"

	"github.com/ethnode/corenet/common"
	"github.com/ethnode/corenet/internal/log"
	"github.com/ethnode/corenet/p2p"
)

// Handler is the per-peer goroutine entrypoint a Backend runs under RunPeer.
type Handler func(peer *Peer) error

// SnapServer fulfills the four snap/1 request kinds against local state.
// Handle's role is message framing, not trie traversal — that's delegated
// to this collaborator.
type SnapServer interface {
	AccountRange(root, origin, limit common.Hash, bytes uint64) (accounts []*AccountData, proof [][]byte, err error)
	StorageRanges(root common.Hash, accounts []common.Hash, origin, limit []byte, bytes uint64) (slots [][]*StorageData, proof [][]byte, err error)
	ByteCodes(hashes []common.Hash, bytes uint64) (codes [][]byte, err error)
	TrieNodes(root common.Hash, paths []TrieNodePathSet, bytes uint64) (nodes [][]byte, err error)
}

// Backend is everything a running snap-protocol session needs from the rest
// of the node.
type Backend interface {
	Server() SnapServer
	RunPeer(peer *Peer, handler Handler) error
}

// Handle drives one peer's snap/1 session to completion: server-side
// requests are framed straight through to the SnapServer collaborator;
// responses to our own outstanding requests are matched FIFO per kind and
// folded into the peer's adaptive byte budget.
func Handle(backend Backend, peer *Peer) error {
	defer peer.cancelAll()
	for {
		msg, err := peer.rw.ReadMsg()
		if err != nil {
			return err
		}
		if err := handle(backend, peer, msg); err != nil {
			return err
		}
	}
}

func handle(backend Backend, peer *Peer, msg p2p.Msg) error {
	switch msg.Code {
	case GetAccountRangeMsg:
		var req GetAccountRangePacket
		if err := msg.Decode(&req); err != nil {
			return err
		}
		accounts, proof, err := backend.Server().AccountRange(req.RootHash, req.Origin, req.Limit, req.Bytes)
		if err != nil {
			log.Root().Debug("snap: account range request failed", "err", err)
			accounts, proof = nil, nil
		}
		return p2p.Send(peer.rw, AccountRangeMsg, &AccountRangePacket{Accounts: accounts, Proof: proof})

	case AccountRangeMsg:
		req, ok := peer.accountRangeQ.pop()
		if !ok {
			return errUnsolicitedResponse
		}
		var resp AccountRangePacket
		if err := msg.Decode(&resp); err != nil {
			peer.budget.Failure()
			return err
		}
		peer.budget.Success(req.startingLimit, time.Since(req.sentAt))
		req.response <- &resp
		return nil

	case GetStorageRangesMsg:
		var req GetStorageRangesPacket
		if err := msg.Decode(&req); err != nil {
			return err
		}
		slots, proof, err := backend.Server().StorageRanges(req.RootHash, req.Accounts, req.Origin, req.Limit, req.Bytes)
		if err != nil {
			log.Root().Debug("snap: storage ranges request failed", "err", err)
			slots, proof = nil, nil
		}
		return p2p.Send(peer.rw, StorageRangesMsg, &StorageRangesPacket{Slots: slots, Proof: proof})

	case StorageRangesMsg:
		req, ok := peer.storageRangesQ.pop()
		if !ok {
			return errUnsolicitedResponse
		}
		var resp StorageRangesPacket
		if err := msg.Decode(&resp); err != nil {
			peer.budget.Failure()
			return err
		}
		peer.budget.Success(req.startingLimit, time.Since(req.sentAt))
		req.response <- &resp
		return nil

	case GetByteCodesMsg:
		var req GetByteCodesPacket
		if err := msg.Decode(&req); err != nil {
			return err
		}
		codes, err := backend.Server().ByteCodes(req.Hashes, req.Bytes)
		if err != nil {
			log.Root().Debug("snap: byte codes request failed", "err", err)
			codes = nil
		}
		return p2p.Send(peer.rw, ByteCodesMsg, &ByteCodesPacket{Codes: codes})

	case ByteCodesMsg:
		req, ok := peer.byteCodesQ.pop()
		if !ok {
			return errUnsolicitedResponse
		}
		var resp ByteCodesPacket
		if err := msg.Decode(&resp); err != nil {
			peer.budget.Failure()
			return err
		}
		peer.budget.Success(req.startingLimit, time.Since(req.sentAt))
		req.response <- &resp
		return nil

	case GetTrieNodesMsg:
		var req GetTrieNodesPacket
		if err := msg.Decode(&req); err != nil {
			return err
		}
		nodes, err := backend.Server().TrieNodes(req.RootHash, req.Paths, req.Bytes)
		if err != nil {
			log.Root().Debug("snap: trie nodes request failed", "err", err)
			nodes = nil
		}
		return p2p.Send(peer.rw, TrieNodesMsg, &TrieNodesPacket{Nodes: nodes})

	case TrieNodesMsg:
		req, ok := peer.trieNodesQ.pop()
		if !ok {
			return errUnsolicitedResponse
		}
		var resp TrieNodesPacket
		if err := msg.Decode(&resp); err != nil {
			peer.budget.Failure()
			return err
		}
		peer.budget.Success(req.startingLimit, time.Since(req.sentAt))
		req.response <- &resp
		return nil

	default:
		return msg.Discard()
	}
}
