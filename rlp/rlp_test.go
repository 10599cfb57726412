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

package rlp

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type simpleMsg struct {
	A uint64
	B []byte
	C string
	D [4]byte
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := simpleMsg{A: 12345, B: []byte{1, 2, 3}, C: "hello", D: [4]byte{9, 8, 7, 6}}
	enc, err := EncodeToBytes(&in)
	require.NoError(t, err)

	var out simpleMsg
	require.NoError(t, DecodeBytes(enc, &out))
	require.Equal(t, in, out)
}

func TestEncodeDecodeNestedList(t *testing.T) {
	type inner struct {
		X uint64
		Y uint64
	}
	type outer struct {
		Items []inner
		Tag   string
	}
	in := outer{Items: []inner{{1, 2}, {3, 4}, {5, 6}}, Tag: "eth/66"}

	enc, err := EncodeToBytes(&in)
	require.NoError(t, err)

	var out outer
	require.NoError(t, DecodeBytes(enc, &out))
	require.Equal(t, in, out)
}

func TestRoundTripLawProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		in := simpleMsg{
			A: rapid.Uint64().Draw(t, "A"),
			B: rapid.SliceOfN(rapid.Byte(), 0, 32).Draw(t, "B"),
			C: rapid.StringN(0, 16, -1).Draw(t, "C"),
		}
		for i := range in.D {
			in.D[i] = rapid.Byte().Draw(t, "Dbyte")
		}
		enc, err := EncodeToBytes(&in)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		var out simpleMsg
		if err := DecodeBytes(enc, &out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if in.A != out.A || in.C != out.C || in.D != out.D || string(in.B) != string(out.B) {
			t.Fatalf("round trip mismatch: in=%+v out=%+v", in, out)
		}
	})
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	enc, err := EncodeToBytes(uint64(7))
	require.NoError(t, err)
	enc = append(enc, 0x01)

	var out uint64
	require.ErrorIs(t, DecodeBytes(enc, &out), ErrMoreThanOneValue)
}
