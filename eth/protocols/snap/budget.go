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
	"sync"
	"time"
)

// Byte-budget bounds and latency thresholds for the adaptive request sizer.
const (
	MinByteLimit = 20_000
	MaxByteLimit = 2_000_000

	LowerLatency = 1 * time.Second
	UpperLatency = 2 * time.Second
)

// Budget tracks one peer's adaptive response-size request. A request
// snapshots the limit at issuance via Start, and the limit is adjusted
// against that snapshot on completion — never against
// whatever the live value has become in the meantime — so two requests in
// flight at once can't compound each other's doubling.
type Budget struct {
	mu    sync.Mutex
	limit uint64
}

// NewBudget starts a fresh peer at the floor: conservative by default,
// growing only once requests are observed to succeed quickly.
func NewBudget() *Budget {
	return &Budget{limit: MinByteLimit}
}

// Start snapshots the current limit: the value to request with, and the
// anchor the eventual Success/Failure adjustment is computed against.
func (b *Budget) Start() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.limit
}

// Current reports the live limit; it is always between MinByteLimit and
// MaxByteLimit inclusive.
func (b *Budget) Current() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.limit
}

// Success applies the elapsed-latency adjustment rule against startingLimit
// (the value Start returned for this request).
func (b *Budget) Success(startingLimit uint64, elapsed time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case elapsed < LowerLatency:
		b.limit = min64(startingLimit*2, MaxByteLimit)
	case elapsed > UpperLatency && startingLimit > MinByteLimit:
		b.limit = startingLimit / 2
		if b.limit < MinByteLimit {
			b.limit = MinByteLimit
		}
	}
}

// Failure resets the limit to the floor on a failed or errored request.
func (b *Budget) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.limit = MinByteLimit
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
