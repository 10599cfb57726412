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

// Package types holds the minimal header/transaction/block shapes the
// gas-price oracle and engine-capability handler need. This is deliberately
// not a full consensus type set: no state root, no receipts trie, no
// signature recovery — those belong to a full execution engine, not to
// sampling recent gas prices or reconciling engine-API capabilities.
package types

import (
	"github.com/holiman/uint256"

	"github.com/ethnode/corenet/common"
)

// Transaction type tags, matching the wire values used by the real London
// and post-London tx envelopes.
const (
	LegacyTxType     = 0
	DynamicFeeTxType = 2
)

// Transaction is the minimal per-tx view the gas-price oracle samples:
// enough to compute an effective gas price and to identify whether the
// sender is the block's own beneficiary.
type Transaction struct {
	Hash      common.Hash
	Type      uint8
	From      common.Address
	GasPrice  *uint256.Int // legacy envelope
	GasFeeCap *uint256.Int // 1559 envelope
	GasTipCap *uint256.Int // 1559 envelope
}

// EffectiveGasTip returns what the transaction actually pays the miner,
// given the block's base fee. For a legacy transaction the entire GasPrice
// above base fee is the tip; for a 1559 transaction it's GasTipCap, capped
// by whatever GasFeeCap leaves over base fee. baseFee nil means a
// pre-London block, where GasPrice is paid in full.
func (tx *Transaction) EffectiveGasTip(baseFee *uint256.Int) *uint256.Int {
	if tx.Type == LegacyTxType {
		if baseFee == nil {
			return new(uint256.Int).Set(tx.GasPrice)
		}
		if tx.GasPrice.Cmp(baseFee) < 0 {
			return new(uint256.Int)
		}
		return new(uint256.Int).Sub(tx.GasPrice, baseFee)
	}
	if baseFee == nil {
		return new(uint256.Int).Set(tx.GasTipCap)
	}
	headroom := new(uint256.Int)
	if tx.GasFeeCap.Cmp(baseFee) > 0 {
		headroom.Sub(tx.GasFeeCap, baseFee)
	}
	if tx.GasTipCap.Cmp(headroom) < 0 {
		return new(uint256.Int).Set(tx.GasTipCap)
	}
	return headroom
}

// Header is the minimal per-block metadata the oracle needs: its number
// (to walk backwards from), its beneficiary (to filter self-paid
// transactions) and its base fee (nil before the fee-market fork, which
// also tells the oracle whether to exclude 1559-typed transactions).
type Header struct {
	Hash        common.Hash
	Number      uint64
	Beneficiary common.Address
	BaseFee     *uint256.Int // nil pre-London
}

// Block pairs a header with the transactions it contains, in inclusion
// order.
type Block struct {
	Header       *Header
	Transactions []*Transaction
}
