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

// Package gasprice suggests a gas price for new transactions by sampling
// recent blocks, in the shape of the node's own suggested-tip-cap oracle.
package gasprice

import (
	"errors"
	"sort"
	"sync"

	"github.com/holiman/uint256"

	"github.com/ethnode/corenet/common"
	"github.com/ethnode/corenet/core/types"
	"github.com/ethnode/corenet/internal/log"
)

const GWei = 1_000_000_000

// ErrNoHead is returned when the backend cannot even report a current
// header — there's nothing to sample from.
var ErrNoHead = errors.New("gasprice: no current head")

// Config tunes the oracle's sampling window and the fraction of the
// distribution it reports.
type Config struct {
	Blocks          int // how many recent blocks to walk back over
	TxsPerBlock     int // samples accepted from any one block
	SampleThreshold int // stop walking once samples plus blocks still allowed reach this
	Percentile      int // 0-100, the percentile returned from the sorted sample pool
	IgnorePrice     *uint256.Int
	MaxPrice        *uint256.Int
	Default         *uint256.Int // returned when a block contributes zero samples
}

// DefaultConfig mirrors the node's built-in defaults.
func DefaultConfig() Config {
	return Config{
		Blocks:          20,
		TxsPerBlock:     3,
		SampleThreshold: 40,
		Percentile:      60,
		IgnorePrice:     uint256.NewInt(0),
		MaxPrice:        uint256.NewInt(500 * GWei),
		Default:         uint256.NewInt(1 * GWei),
	}
}

// Backend is the narrow chain view the oracle samples from.
type Backend interface {
	CurrentHeader() (*types.Header, error)
	BlockByNumber(number uint64) (*types.Block, error)
}

// Oracle estimates a reasonable tip to attach to a new transaction by
// sampling recent blocks' accepted transactions and returning a percentile
// of what it saw, capped at a configured ceiling. Results are cached per
// head block hash, so repeated calls against an unchanged chain head are
// free.
type Oracle struct {
	backend Backend
	cfg     Config

	cacheMu   sync.Mutex
	lastHead  common.Hash
	lastPrice *uint256.Int
}

// NewOracle constructs an Oracle, filling in any zero-valued Config field
// from DefaultConfig.
func NewOracle(backend Backend, cfg Config) *Oracle {
	def := DefaultConfig()
	if cfg.Blocks <= 0 {
		cfg.Blocks = def.Blocks
	}
	if cfg.TxsPerBlock <= 0 {
		cfg.TxsPerBlock = def.TxsPerBlock
	}
	if cfg.SampleThreshold <= 0 {
		cfg.SampleThreshold = def.SampleThreshold
	}
	if cfg.Percentile <= 0 {
		cfg.Percentile = def.Percentile
	}
	if cfg.IgnorePrice == nil {
		cfg.IgnorePrice = def.IgnorePrice
	}
	if cfg.MaxPrice == nil {
		cfg.MaxPrice = def.MaxPrice
	}
	if cfg.Default == nil {
		cfg.Default = def.Default
	}
	return &Oracle{backend: backend, cfg: cfg}
}

// SuggestTipCap walks back over recent blocks, as described on Oracle,
// returning the suggested tip cap. A missing head or genesis is reported
// as an error, never a panic.
func (o *Oracle) SuggestTipCap() (*uint256.Int, error) {
	head, err := o.backend.CurrentHeader()
	if err != nil || head == nil {
		return nil, ErrNoHead
	}

	o.cacheMu.Lock()
	if head.Hash == o.lastHead && o.lastPrice != nil {
		cached := new(uint256.Int).Set(o.lastPrice)
		o.cacheMu.Unlock()
		return cached, nil
	}
	o.cacheMu.Unlock()

	var samples []*uint256.Int
	number := head.Number
	remainingBlocks := o.cfg.Blocks
	for remainingBlocks > 0 && number > 0 {
		block, err := o.backend.BlockByNumber(number)
		if err != nil || block == nil {
			return nil, ErrNoHead
		}
		number--
		remainingBlocks--

		accepted := sampleBlock(block, o.cfg.TxsPerBlock, o.cfg.IgnorePrice)
		if len(accepted) == 0 {
			accepted = []*uint256.Int{o.cfg.Default}
		}
		samples = append(samples, accepted...)

		if len(samples)+remainingBlocks >= o.cfg.SampleThreshold {
			break
		}
	}

	price := new(uint256.Int).Set(o.cfg.Default)
	if len(samples) > 0 {
		sort.Slice(samples, func(i, j int) bool { return samples[i].Cmp(samples[j]) < 0 })
		idx := (len(samples) - 1) * o.cfg.Percentile / 100
		price = samples[idx]
	}
	if price.Cmp(o.cfg.MaxPrice) > 0 {
		price = o.cfg.MaxPrice
	}

	o.cacheMu.Lock()
	o.lastHead = head.Hash
	o.lastPrice = price
	o.cacheMu.Unlock()

	log.Root().Debug("gasprice: suggested tip cap", "head", head.Hash, "samples", len(samples), "price", price)
	return new(uint256.Int).Set(price), nil
}

// sampleBlock returns up to limit accepted gas-price samples from a block:
// transactions are considered lowest-tip first, after excluding below-floor
// prices, the beneficiary's own transactions, and (pre-London) 1559-typed
// transactions.
func sampleBlock(block *types.Block, limit int, ignoreUnder *uint256.Int) []*uint256.Int {
	preLondon := block.Header.BaseFee == nil

	type priced struct {
		tx  *types.Transaction
		tip *uint256.Int
	}
	ordered := make([]priced, 0, len(block.Transactions))
	for _, tx := range block.Transactions {
		ordered = append(ordered, priced{tx: tx, tip: tx.EffectiveGasTip(block.Header.BaseFee)})
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].tip.Cmp(ordered[j].tip) < 0 })

	var accepted []*uint256.Int
	for _, p := range ordered {
		if len(accepted) >= limit {
			break
		}
		if preLondon && p.tx.Type == types.DynamicFeeTxType {
			continue
		}
		if p.tx.From == block.Header.Beneficiary {
			continue
		}
		if p.tip.Cmp(ignoreUnder) < 0 {
			continue
		}
		accepted = append(accepted, p.tip)
	}
	return accepted
}
