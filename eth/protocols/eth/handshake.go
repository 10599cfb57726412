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

package eth

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethnode/corenet/common"
	"github.com/ethnode/corenet/forkid"
	"github.com/ethnode/corenet/p2p"
)

// handshakeTimeout bounds how long Handshake waits for the remote's Status
// frame before giving up.
const handshakeTimeout = 5 * time.Second

// Handshake performs the one-shot Status exchange: writes our own Status
// and blocks for the remote's, validating protocol/network/genesis
// agreement and, from eth/64 on, the fork-id.
func (p *Peer) Handshake(network uint64, td *big.Int, head, genesis common.Hash, forkID forkid.ID, validate func(forkid.ID) error) error {
	errc := make(chan error, 2)
	var status StatusPacket

	go func() {
		errc <- p2p.Send(p.rw, StatusMsg, &StatusPacket{
			ProtocolVersion: uint32(p.version),
			NetworkID:       network,
			TD:              td,
			Head:            head,
			Genesis:         genesis,
			ForkID:          forkID,
		})
	}()
	go func() {
		errc <- p.readStatus(network, &status, genesis, validate)
	}()

	timer := time.NewTimer(handshakeTimeout)
	defer timer.Stop()
	for i := 0; i < 2; i++ {
		select {
		case err := <-errc:
			if err != nil {
				return err
			}
		case <-timer.C:
			return fmt.Errorf("eth: handshake timed out")
		}
	}
	p.SetHead(status.Head, status.TD)
	return nil
}

func (p *Peer) readStatus(network uint64, status *StatusPacket, genesis common.Hash, validate func(forkid.ID) error) error {
	msg, err := p.rw.ReadMsg()
	if err != nil {
		return err
	}
	if msg.Code != StatusMsg {
		return fmt.Errorf("%w: first message has code %d", errNoStatusMsg, msg.Code)
	}
	if err := msg.Decode(status); err != nil {
		return fmt.Errorf("%w: %v", errDecode, err)
	}
	if uint(status.ProtocolVersion) != p.version {
		return fmt.Errorf("%w: %d (want %d)", errProtocolVersionMismatch, status.ProtocolVersion, p.version)
	}
	if status.NetworkID != network {
		return fmt.Errorf("%w: %d (want %d)", errNetworkIDMismatch, status.NetworkID, network)
	}
	if status.Genesis != genesis {
		return fmt.Errorf("%w: %x (want %x)", errGenesisMismatch, status.Genesis, genesis)
	}
	if validate != nil && p.version >= ETH64 {
		if err := validate(status.ForkID); err != nil {
			return fmt.Errorf("%w: %v", errForkIDRejected, err)
		}
	}
	return nil
}
