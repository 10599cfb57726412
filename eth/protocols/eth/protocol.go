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

// Package eth implements the eth/62-66 sub-protocol family, including
// eth/66's request-id correlation layer and the bounded backpressure queue
// that protects the session's read loop from a slow or malicious peer.
package eth

import (
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/ethnode/corenet/common"
	"github.com/ethnode/corenet/forkid"
	"github.com/ethnode/corenet/rlp"
)

// Name is the protocol code under which this family registers with the
// multiplexer.
const Name = "eth"

// Supported protocol versions, oldest first. Each version's handler
// inherits the previous version's message handling.
const (
	ETH62 = 62
	ETH63 = 63
	ETH64 = 64
	ETH65 = 65
	ETH66 = 66
)

var ProtocolVersions = []uint{ETH62, ETH63, ETH64, ETH65, ETH66}

// protocolLengths is the packet-id space size reserved per version; the
// multiplexer uses the highest version's length since a session only ever
// negotiates one version.
var protocolLengths = map[uint]uint64{
	ETH62: 8,
	ETH63: 17,
	ETH64: 17,
	ETH65: 18,
	ETH66: 18,
}

// ProtocolLength returns the reserved packet-id space for version.
func ProtocolLength(version uint) uint64 { return protocolLengths[version] }

// Packet codes. eth/66 wraps every correlated message in a
// [request_id, payload] envelope but keeps the same numeric code.
const (
	StatusMsg                     = 0x00
	NewBlockHashesMsg             = 0x01
	TransactionsMsg               = 0x02
	GetBlockHeadersMsg            = 0x03
	BlockHeadersMsg               = 0x04
	GetBlockBodiesMsg             = 0x05
	BlockBodiesMsg                = 0x06
	NewBlockMsg                   = 0x07
	NewPooledTransactionHashesMsg = 0x08
	GetPooledTransactionsMsg      = 0x09
	PooledTransactionsMsg         = 0x0a
	GetNodeDataMsg                = 0x0d
	NodeDataMsg                   = 0x0e
	GetReceiptsMsg                = 0x0f
	ReceiptsMsg                   = 0x10
)

var (
	errNoStatusMsg             = errors.New("eth: first message must be Status")
	errProtocolVersionMismatch = errors.New("eth: protocol version mismatch")
	errNetworkIDMismatch       = errors.New("eth: network id mismatch")
	errGenesisMismatch         = errors.New("eth: genesis hash mismatch")
	errForkIDRejected          = errors.New("eth: fork id rejected")
	errMsgTooLarge             = errors.New("eth: message too large")
	errDecode                  = errors.New("eth: failed to decode message")
	errIncomingQueueFull       = errors.New("eth: incoming message queue full")
)

// StatusPacket is the one-shot handshake message, extended with a fork-id
// from eth/64 onward.
type StatusPacket struct {
	ProtocolVersion uint32
	NetworkID       uint64
	TD              *big.Int
	Head            common.Hash
	Genesis         common.Hash
	ForkID          forkid.ID
}

// HashOrNumber is the union field used by GetBlockHeadersPacket's Origin:
// either a 32-byte block hash or a block number, never both.
type HashOrNumber struct {
	Hash   common.Hash
	Number uint64
}

// EncodeRLP writes the hash if set, else the number.
func (hn HashOrNumber) EncodeRLP(w io.Writer) error {
	if hn.Hash != (common.Hash{}) {
		return rlp.Encode(w, hn.Hash)
	}
	return rlp.Encode(w, hn.Number)
}

// DecodeRLP distinguishes hash (32-byte string) from number (anything else)
// by content length.
func (hn *HashOrNumber) DecodeRLP(item []byte) error {
	content, _, err := stringContent(item)
	if err != nil {
		return err
	}
	if len(content) == common.HashLength {
		var h common.Hash
		copy(h[:], content)
		*hn = HashOrNumber{Hash: h}
		return nil
	}
	var n uint64
	if err := rlp.DecodeBytes(item, &n); err != nil {
		return fmt.Errorf("%w: origin", errDecode)
	}
	*hn = HashOrNumber{Number: n}
	return nil
}

// stringContent extracts a byte-string RLP item's content, the minimum
// header parsing HashOrNumber's union decode needs without reaching into
// the rlp package's internals.
func stringContent(item []byte) (content []byte, rest []byte, err error) {
	if len(item) == 0 {
		return nil, nil, errDecode
	}
	b := item[0]
	switch {
	case b <= 0x7f:
		return item[0:1], item[1:], nil
	case b <= 0xb7:
		n := int(b - 0x80)
		if len(item) < 1+n {
			return nil, nil, errDecode
		}
		return item[1 : 1+n], item[1+n:], nil
	case b <= 0xbf:
		lenOfLen := int(b - 0xb7)
		if len(item) < 1+lenOfLen {
			return nil, nil, errDecode
		}
		n := 0
		for _, d := range item[1 : 1+lenOfLen] {
			n = n<<8 | int(d)
		}
		start := 1 + lenOfLen
		if len(item) < start+n {
			return nil, nil, errDecode
		}
		return item[start : start+n], item[start+n:], nil
	default:
		return nil, nil, fmt.Errorf("%w: expected string, got list", errDecode)
	}
}

// GetBlockHeadersPacket is the eth/62 query; eth/66 wraps it in
// GetBlockHeadersPacket66 below.
type GetBlockHeadersPacket struct {
	Origin  HashOrNumber
	Amount  uint64
	Skip    uint64
	Reverse bool
}

type GetBlockHeadersPacket66 struct {
	RequestId uint64
	*GetBlockHeadersPacket
}

// BlockHeader is the minimal header shape this subsystem cares about:
// enough to identify a block and chain its parent, without the full
// consensus field set needed for block validation.
type BlockHeader struct {
	ParentHash common.Hash
	Number     *big.Int
	Hash       common.Hash `rlp:"-"`
}

type BlockHeadersPacket struct {
	BlockHeadersRequest []*BlockHeader
}

type BlockHeadersPacket66 struct {
	RequestId uint64
	BlockHeadersPacket
}

type GetBlockBodiesPacket struct {
	GetBlockBodiesRequest []common.Hash
}

type GetBlockBodiesPacket66 struct {
	RequestId uint64
	GetBlockBodiesPacket
}

// BlockBody is a placeholder payload: the transaction/uncle trie content is
// out of this subsystem's scope, so a body is carried opaquely as
// pre-encoded RLP for framing purposes only.
type BlockBody struct {
	Transactions rlp.RawValue
	Uncles       rlp.RawValue
}

type BlockBodiesPacket struct {
	BlockBodiesResponse []*BlockBody
}

type BlockBodiesPacket66 struct {
	RequestId uint64
	BlockBodiesPacket
}

type GetReceiptsPacket struct {
	GetReceiptsRequest []common.Hash
}

type GetReceiptsPacket66 struct {
	RequestId uint64
	GetReceiptsPacket
}

// Receipt is carried opaquely; this subsystem only frames and correlates
// receipts, it does not interpret their contents.
type Receipt struct {
	GasUsed uint64
	Logs    rlp.RawValue
}

type ReceiptsPacket struct {
	ReceiptsResponse [][]*Receipt
}

type ReceiptsPacket66 struct {
	RequestId uint64
	ReceiptsPacket
}

type GetNodeDataPacket struct {
	GetNodeDataRequest []common.Hash
}

type GetNodeDataPacket66 struct {
	RequestId uint64
	GetNodeDataPacket
}

type NodeDataPacket struct {
	NodeDataResponse [][]byte
}

type NodeDataPacket66 struct {
	RequestId uint64
	NodeDataPacket
}

type NewBlockHashesPacket []struct {
	Hash   common.Hash
	Number uint64
}

type TransactionsPacket []rlp.RawValue

type NewPooledTransactionHashesPacket []common.Hash

type GetPooledTransactionsPacket struct {
	GetPooledTransactionsRequest []common.Hash
}

type GetPooledTransactionsPacket66 struct {
	RequestId uint64
	GetPooledTransactionsPacket
}

type PooledTransactionsPacket struct {
	PooledTransactionsResponse []rlp.RawValue
}

type PooledTransactionsPacket66 struct {
	RequestId uint64
	PooledTransactionsPacket
}

type NewBlockPacket struct {
	Block rlp.RawValue
	TD    *big.Int
}
