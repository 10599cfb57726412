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

package p2p

import (
	"bytes"
	"io"
	"sync"
	"time"

	"github.com/ethnode/corenet/rlp"
)

// Msg is a devp2p frame: a numeric packet-id in a per-protocol space, its
// encoded size and payload.
type Msg struct {
	Code       uint64
	Size       uint32
	Payload    io.Reader
	ReceivedAt time.Time
}

// Decode parses m's RLP payload into val.
func (m Msg) Decode(val interface{}) error {
	return rlp.Decode(io.LimitReader(m.Payload, int64(m.Size)), val)
}

// Discard drains the payload so the underlying connection can be reused for
// the next frame even if the handler doesn't care about this message's body.
func (m Msg) Discard() error {
	_, err := io.Copy(io.Discard, m.Payload)
	return err
}

// MsgReader / MsgWriter / MsgReadWriter are the minimal read/write surface
// a sub-protocol handler needs over its session's message stream.
type MsgReader interface {
	ReadMsg() (Msg, error)
}

type MsgWriter interface {
	WriteMsg(Msg) error
}

type MsgReadWriter interface {
	MsgReader
	MsgWriter
}

// Send RLP-encodes data and writes it as the payload of a Msg with the given
// code.
func Send(w MsgWriter, code uint64, data interface{}) error {
	payload, err := rlp.EncodeToBytes(data)
	if err != nil {
		return err
	}
	return w.WriteMsg(Msg{Code: code, Size: uint32(len(payload)), Payload: bytes.NewReader(payload)})
}

// MsgPipeRW is one end of an in-memory, synchronous Msg pipe.
type MsgPipeRW struct {
	w       chan<- Msg
	r       <-chan Msg
	closing chan struct{}
	closed  *int32
	mu      sync.Mutex
}

// MsgPipe creates a message pipe with two ends (app, net), used to
// simulate a remote connection in tests without a real socket.
func MsgPipe() (*MsgPipeRW, *MsgPipeRW) {
	var (
		c1, c2  = make(chan Msg), make(chan Msg)
		closing = make(chan struct{})
		closed  int32
	)
	a := &MsgPipeRW{w: c1, r: c2, closing: closing, closed: &closed}
	b := &MsgPipeRW{w: c2, r: c1, closing: closing, closed: &closed}
	return a, b
}

func (p *MsgPipeRW) WriteMsg(msg Msg) error {
	if msg.Size > 0 {
		buf := make([]byte, msg.Size)
		if _, err := io.ReadFull(msg.Payload, buf); err != nil {
			return err
		}
		msg.Payload = bytes.NewReader(buf)
	} else {
		msg.Payload = bytes.NewReader(nil)
	}
	select {
	case p.w <- msg:
		return nil
	case <-p.closing:
		return io.ErrClosedPipe
	}
}

func (p *MsgPipeRW) ReadMsg() (Msg, error) {
	select {
	case msg := <-p.r:
		return msg, nil
	case <-p.closing:
		return Msg{}, io.ErrClosedPipe
	}
}

func (p *MsgPipeRW) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	select {
	case <-p.closing:
	default:
		close(p.closing)
	}
	return nil
}
