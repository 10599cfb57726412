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

// Package txpool carries the nonce reservation service: per-sender
// serialized nonce allocation with commit/rollback.
//
// A naive design that holds the per-address mutex across arbitrary caller
// code between reserve and commit deadlocks if the caller errs without
// releasing. We avoid that by making the lock's only release paths Commit
// and Rollback on a Reservation value returned from Reserve, and
// documenting that a caller must defer one of them on every code path
// (a Reservation released by neither keeps the lock held) — a scoped-handle
// discipline rather than switching to optimistic CAS allocation.
package txpool

import (
	"sort"
	"sync"

	"github.com/ethnode/corenet/common"
)

// noncer is the per-address nonce-allocation state.
type noncer struct {
	mu            sync.Mutex
	currentNonce  uint64
	reservedNonce *uint64
	used          map[uint64]struct{}
}

// Manager owns one noncer per sender address.
type Manager struct {
	mu       sync.Mutex
	accounts map[common.Address]*noncer
}

func NewManager() *Manager {
	return &Manager{accounts: make(map[common.Address]*noncer)}
}

func (m *Manager) account(addr common.Address) *noncer {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.accounts[addr]
	if !ok {
		n = &noncer{used: make(map[uint64]struct{})}
		m.accounts[addr] = n
	}
	return n
}

// Reservation is the handle returned by Reserve. Exactly one of Commit or
// Rollback must be called to release the per-address lock; a Reservation
// that is dropped without either must behave as Rollback (the caller is
// responsible for that via defer — see the package doc).
//
// TxWithNonceReceived is a method on the held Reservation, not a second
// Manager-level lock acquisition: one mutex is held across reserve →
// tx-accepted → commit/rollback from the same caller. We keep that call
// shape — record-then-release on the same handle — without ever
// re-entering the lock, which is what makes a naive version of this
// sequence deadlock-prone if a caller errs between calls.
type Reservation struct {
	n         *noncer
	addr      common.Address
	nonce     uint64
	submitted *uint64 // set by TxWithNonceReceived, promoted to used on Commit
	released  bool
}

// Nonce is the address's allocated nonce for this reservation.
func (r *Reservation) Nonce() uint64 { return r.nonce }

// TxWithNonceReceived records that the caller actually submitted a
// transaction carrying nonce (normally but not necessarily r.Nonce()),
// marking it for promotion into used_nonces on Commit. It does not touch
// the lock — the Reservation already holds it.
func (r *Reservation) TxWithNonceReceived(nonce uint64) {
	if r.released {
		panic("txpool: TxWithNonceReceived on a released reservation")
	}
	r.submitted = &nonce
}

// Commit advances current_nonce past the contiguous run of used nonces
// starting at the reserved nonce (including the reserved nonce itself, or
// whatever nonce TxWithNonceReceived recorded, now added to used_nonces)
// and releases the lock.
func (r *Reservation) Commit() {
	if r.released {
		panic("txpool: double release of nonce reservation")
	}
	r.released = true
	defer r.n.mu.Unlock()

	used := r.nonce
	if r.submitted != nil {
		used = *r.submitted
	}
	r.n.used[used] = struct{}{}
	r.n.reservedNonce = nil

	next := r.n.currentNonce
	for {
		if _, ok := r.n.used[next]; !ok {
			break
		}
		next++
	}
	r.n.currentNonce = next
}

// Rollback releases the lock without advancing current_nonce or recording
// any nonce as used.
func (r *Reservation) Rollback() {
	if r.released {
		panic("txpool: double release of nonce reservation")
	}
	r.released = true
	r.n.reservedNonce = nil
	r.n.mu.Unlock()
}

// Reserve blocks until any outstanding reservation for addr is released,
// then snapshots current_nonce as the caller's allocated nonce. Reservations
// on the same address are mutually exclusive.
func (m *Manager) Reserve(addr common.Address) *Reservation {
	n := m.account(addr)
	n.mu.Lock()
	nonce := n.currentNonce
	n.reservedNonce = &nonce
	return &Reservation{n: n, addr: addr, nonce: nonce}
}

// usedSorted returns the used-nonce set in ascending order, for diagnostics
// and tests.
func (n *noncer) usedSorted() []uint64 {
	out := make([]uint64, 0, len(n.used))
	for k := range n.used {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
