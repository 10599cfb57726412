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

package txpool

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ethnode/corenet/common"
)

var addrA = common.BytesToAddress([]byte{0xaa})

func TestReserveCommitAdvancesNonce(t *testing.T) {
	m := NewManager()

	r := m.Reserve(addrA)
	require.Equal(t, uint64(0), r.Nonce())
	r.Commit()

	r2 := m.Reserve(addrA)
	require.Equal(t, uint64(1), r2.Nonce())
	r2.Rollback()

	// Rollback must not advance current_nonce.
	r3 := m.Reserve(addrA)
	require.Equal(t, uint64(1), r3.Nonce())
	r3.Commit()
}

func TestConcurrentReservationsAreMutuallyExclusive(t *testing.T) {
	m := NewManager()
	first := m.Reserve(addrA)

	var secondStarted, secondDone sync.WaitGroup
	secondStarted.Add(1)
	secondDone.Add(1)

	var secondNonce uint64
	go func() {
		secondStarted.Done()
		r := m.Reserve(addrA) // must block until first.Commit()
		secondNonce = r.Nonce()
		r.Commit()
		secondDone.Done()
	}()

	secondStarted.Wait()
	time.Sleep(20 * time.Millisecond) // give the goroutine a chance to (wrongly) proceed
	first.Commit()
	secondDone.Wait()

	require.Equal(t, uint64(1), secondNonce, "second reservation must observe the nonce after the first committed")
}

func TestTxWithNonceReceivedPromotesSubmittedNonce(t *testing.T) {
	m := NewManager()
	r := m.Reserve(addrA)
	r.TxWithNonceReceived(r.Nonce())
	r.Commit()

	r2 := m.Reserve(addrA)
	require.Equal(t, uint64(1), r2.Nonce())
	r2.Rollback()
}

func TestDoubleCommitPanics(t *testing.T) {
	m := NewManager()
	r := m.Reserve(addrA)
	r.Commit()
	require.Panics(t, func() { r.Commit() })
}
