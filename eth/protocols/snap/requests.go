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
	"github.com/ethnode/corenet/p2p"
)

// RequestAccountRange issues a GetAccountRange query sized by the peer's
// current byte budget, and returns a channel that resolves with the
// eventual AccountRangePacket once the FIFO correlator matches the
// response.
func (p *Peer) RequestAccountRange(root, origin, limit common.Hash) (chan interface{}, error) {
	startingLimit := p.budget.Start()
	ch := make(chan interface{}, 1)
	p.accountRangeQ.push(&fifoRequest{startingLimit: startingLimit, sentAt: time.Now(), response: ch})

	if err := p2p.Send(p.rw, GetAccountRangeMsg, &GetAccountRangePacket{
		RootHash: root, Origin: origin, Limit: limit, Bytes: startingLimit,
	}); err != nil {
		p.budget.Failure()
		return nil, err
	}
	return ch, nil
}

// RequestStorageRanges issues a GetStorageRanges query for accounts.
func (p *Peer) RequestStorageRanges(root common.Hash, accounts []common.Hash, origin, limit []byte) (chan interface{}, error) {
	startingLimit := p.budget.Start()
	ch := make(chan interface{}, 1)
	p.storageRangesQ.push(&fifoRequest{startingLimit: startingLimit, sentAt: time.Now(), response: ch})

	if err := p2p.Send(p.rw, GetStorageRangesMsg, &GetStorageRangesPacket{
		RootHash: root, Accounts: accounts, Origin: origin, Limit: limit, Bytes: startingLimit,
	}); err != nil {
		p.budget.Failure()
		return nil, err
	}
	return ch, nil
}

// RequestByteCodes issues a GetByteCodes query for hashes.
func (p *Peer) RequestByteCodes(hashes []common.Hash) (chan interface{}, error) {
	startingLimit := p.budget.Start()
	ch := make(chan interface{}, 1)
	p.byteCodesQ.push(&fifoRequest{startingLimit: startingLimit, sentAt: time.Now(), response: ch})

	if err := p2p.Send(p.rw, GetByteCodesMsg, &GetByteCodesPacket{Hashes: hashes, Bytes: startingLimit}); err != nil {
		p.budget.Failure()
		return nil, err
	}
	return ch, nil
}

// RequestTrieNodes issues a GetTrieNodes query for paths in the trie rooted
// at root.
func (p *Peer) RequestTrieNodes(root common.Hash, paths []TrieNodePathSet) (chan interface{}, error) {
	startingLimit := p.budget.Start()
	ch := make(chan interface{}, 1)
	p.trieNodesQ.push(&fifoRequest{startingLimit: startingLimit, sentAt: time.Now(), response: ch})

	if err := p2p.Send(p.rw, GetTrieNodesMsg, &GetTrieNodesPacket{RootHash: root, Paths: paths, Bytes: startingLimit}); err != nil {
		p.budget.Failure()
		return nil, err
	}
	return ch, nil
}
