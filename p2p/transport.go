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
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/golang/snappy"
)

// frameRW is the production MsgReadWriter: length-prefixed frames over a raw
// connection, with snappy compression applied once the negotiated p2p
// version enables it (payload compression toggles on once both sides'
// Hello exchange settles on p2p/5 or later).
//
// Wire format per frame: a 4-byte big-endian code, a 4-byte big-endian
// length, then that many payload bytes. This is deliberately simpler than
// RLPx's own frame-header/MAC scheme — encryption and authentication of the
// session are out of scope here, so frameRW only owns the compression and
// length-framing concerns the sub-protocol handlers depend on.
type frameRW struct {
	conn io.ReadWriteCloser

	wmu     sync.Mutex
	snappy  bool // guarded by wmu
}

// NewTransport wraps conn as a MsgReadWriter. Compression should be
// switched on via EnableSnappy once the p2p handshake settles on a version
// that supports it; frames written or read before that point are raw.
func NewTransport(conn io.ReadWriteCloser) *frameRW {
	return &frameRW{conn: conn}
}

// EnableSnappy turns on payload compression for subsequent frames. Only the
// session's own onHello call site does this, after both Hello messages have
// been exchanged in the clear.
func (t *frameRW) EnableSnappy() {
	t.wmu.Lock()
	defer t.wmu.Unlock()
	t.snappy = true
}

func (t *frameRW) WriteMsg(msg Msg) error {
	payload, err := io.ReadAll(io.LimitReader(msg.Payload, int64(msg.Size)))
	if err != nil {
		return err
	}

	t.wmu.Lock()
	useSnappy := t.snappy
	t.wmu.Unlock()
	if useSnappy {
		payload = snappy.Encode(nil, payload)
	}

	var header [8]byte
	binary.BigEndian.PutUint32(header[0:4], uint32(msg.Code))
	binary.BigEndian.PutUint32(header[4:8], uint32(len(payload)))

	t.wmu.Lock()
	defer t.wmu.Unlock()
	if _, err := t.conn.Write(header[:]); err != nil {
		return err
	}
	_, err = t.conn.Write(payload)
	return err
}

const maxFrameSize = 32 * 1024 * 1024 // guards against a malformed length field driving an unbounded allocation

func (t *frameRW) ReadMsg() (Msg, error) {
	var header [8]byte
	if _, err := io.ReadFull(t.conn, header[:]); err != nil {
		return Msg{}, err
	}
	code := binary.BigEndian.Uint32(header[0:4])
	size := binary.BigEndian.Uint32(header[4:8])
	if size > maxFrameSize {
		return Msg{}, fmt.Errorf("p2p: frame size %d exceeds maximum", size)
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(t.conn, buf); err != nil {
		return Msg{}, err
	}

	t.wmu.Lock()
	useSnappy := t.snappy
	t.wmu.Unlock()
	if useSnappy {
		decoded, err := snappy.Decode(nil, buf)
		if err != nil {
			return Msg{}, fmt.Errorf("p2p: snappy decode: %w", err)
		}
		buf = decoded
	}

	return Msg{
		Code:       uint64(code),
		Size:       uint32(len(buf)),
		Payload:    bytes.NewReader(buf),
		ReceivedAt: time.Now(),
	}, nil
}

func (t *frameRW) Close() error {
	return t.conn.Close()
}
