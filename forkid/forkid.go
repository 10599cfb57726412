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

// Package forkid computes and validates the Ethereum fork-id, a CRC32
// chain over the genesis hash and successive hard-fork activation values
// (EIP-2124).
package forkid

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"sort"
)

// ID is the 4-byte fork hash plus the activation of the next unknown fork
// (0 if none is known).
type ID struct {
	Hash [4]byte
	Next uint64
}

var (
	// ErrRemoteStale is returned when the remote is on a fork-hash we have
	// already passed but disagrees about what comes after it.
	ErrRemoteStale = errors.New("forkid: remote needs software update")
	// ErrLocalIncompatibleOrStale is returned when neither side recognizes
	// the other's fork-hash as a past, present or future point on its own
	// chain.
	ErrLocalIncompatibleOrStale = errors.New("forkid: local is incompatible or needs update")
)

// entry is one point in the precomputed fork table: the ForkId observers
// should advertise at or after Activation, and the activation of whatever
// comes next.
type entry struct {
	activation uint64 // block number or timestamp, whichever this is
	id         ID
}

// Table is the precomputed, strictly ordered fork-activation table for one
// chain, built once from genesis hash + transition activations.
type Table struct {
	genesis uint64 // always 0, kept for readability at call sites
	entries []entry
}

// NewTable builds the fork-activation table: entry 0 is genesis
// (activation 0); each subsequent entry is the next transition, in the
// order block-number transitions ascending then timestamp transitions
// ascending. Both input slices must already be sorted that way by the
// caller.
func NewTable(genesisHash [32]byte, blockActivations, timeActivations []uint64) *Table {
	hash := crc32.ChecksumIEEE(genesisHash[:])
	t := &Table{entries: []entry{{activation: 0, id: ID{Hash: toBytes4(hash), Next: 0}}}}

	activations := append(append([]uint64{}, blockActivations...), timeActivations...)
	// Both input slices are individually ascending already; here we only
	// need to drop duplicates/zeros, never re-sort across the two.
	var ordered []uint64
	for _, a := range activations {
		if a == 0 {
			continue // implicit genesis entry already covers activation 0
		}
		if len(ordered) > 0 && ordered[len(ordered)-1] == a {
			continue
		}
		ordered = append(ordered, a)
	}
	for i, a := range ordered {
		hash = crc32.Update(hash, crc32.IEEETable, encode8(a))
		next := uint64(0)
		if i+1 < len(ordered) {
			next = ordered[i+1]
		}
		t.entries = append(t.entries, entry{activation: a, id: ID{Hash: toBytes4(hash), Next: next}})
	}
	return t
}

func encode8(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

func toBytes4(v uint32) [4]byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return b
}

// At returns the ForkId an observer positioned at (headNumber, headTime)
// should advertise: binary search for the first entry whose activation is
// strictly greater than the head, then take the previous entry.
func (t *Table) At(headNumber, headTime uint64) ID {
	head := headNumber
	if headTime > 0 {
		head = headTime
	}
	idx := sort.Search(len(t.entries), func(i int) bool {
		return t.entries[i].activation > head
	})
	if idx == 0 {
		return t.entries[0].id
	}
	return t.entries[idx-1].id
}

// index of the local entry, used internally by Validate.
func (t *Table) indexAt(headNumber, headTime uint64) int {
	head := headNumber
	if headTime > 0 {
		head = headTime
	}
	idx := sort.Search(len(t.entries), func(i int) bool {
		return t.entries[i].activation > head
	})
	if idx == 0 {
		return 0
	}
	return idx - 1
}

// Validate checks a remote ForkId observed on a Status message against our
// own fork table. headKnown must be false only during
// bootstrapping, before our own head is established, in which case
// Validate unconditionally returns nil (Valid).
func (t *Table) Validate(headNumber, headTime uint64, headKnown bool, remote ID) error {
	if !headKnown {
		return nil
	}
	localIdx := t.indexAt(headNumber, headTime)
	local := t.entries[localIdx]

	if remote.Hash == local.id.Hash {
		if remote.Next > 0 && t.crossedActivation(headNumber, headTime, remote.Next) {
			return ErrLocalIncompatibleOrStale
		}
		return nil
	}
	// Past fork-hash: every entry strictly before our current one.
	for i := 0; i < localIdx; i++ {
		if t.entries[i].id.Hash == remote.Hash {
			wantNext := uint64(0)
			if i+1 < len(t.entries) {
				wantNext = t.entries[i+1].activation
			}
			if remote.Next == wantNext {
				return nil
			}
			return ErrRemoteStale
		}
	}
	// Future fork-hash: every entry strictly after our current one.
	for i := localIdx + 1; i < len(t.entries); i++ {
		if t.entries[i].id.Hash == remote.Hash {
			return nil
		}
	}
	return ErrLocalIncompatibleOrStale
}

func (t *Table) crossedActivation(headNumber, headTime, activation uint64) bool {
	head := headNumber
	if headTime > 0 {
		head = headTime
	}
	return head >= activation
}
