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
	"bytes"
	"fmt"
	"io"
	"math/big"
	"reflect"
)

var bigIntType = reflect.TypeOf(big.Int{})

// Encoder is implemented by types that know how to encode themselves as RLP.
type Encoder interface {
	EncodeRLP(io.Writer) error
}

// RawValue represents a pre-encoded RLP value that is emitted verbatim.
type RawValue []byte

func (r RawValue) EncodeRLP(w io.Writer) error {
	_, err := w.Write(r)
	return err
}

// EncodeToBytes returns the RLP encoding of val.
func EncodeToBytes(val interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, val); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode writes the RLP encoding of val to w.
func Encode(w io.Writer, val interface{}) error {
	if enc, ok := val.(Encoder); ok {
		return enc.EncodeRLP(w)
	}
	rv := reflect.ValueOf(val)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return encodeNil(w, rv.Type().Elem())
		}
		rv = rv.Elem()
	}
	return encodeValue(w, rv)
}

func encodeNil(w io.Writer, t reflect.Type) error {
	if t == bigIntType {
		_, err := w.Write([]byte{0x80})
		return err
	}
	switch t.Kind() {
	case reflect.Struct, reflect.Slice, reflect.Array:
		if t.Kind() == reflect.Array && t.Elem().Kind() == reflect.Uint8 {
			_, err := w.Write([]byte{0x80})
			return err
		}
		_, err := w.Write([]byte{0xc0})
		return err
	default:
		_, err := w.Write([]byte{0x80})
		return err
	}
}

func encodeValue(w io.Writer, rv reflect.Value) error {
	switch rv.Kind() {
	case reflect.Bool:
		if rv.Bool() {
			_, err := w.Write([]byte{0x01})
			return err
		}
		_, err := w.Write([]byte{0x80})
		return err

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return encodeUint(w, rv.Uint())

	case reflect.String:
		return encodeBytes(w, []byte(rv.String()))

	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return encodeBytes(w, rv.Bytes())
		}
		return encodeList(w, rv)

	case reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(b), rv)
			return encodeBytes(w, b)
		}
		return encodeList(w, rv)

	case reflect.Struct:
		if rv.Type() == bigIntType {
			return encodeBigInt(w, rv)
		}
		return encodeStruct(w, rv)

	case reflect.Ptr:
		if rv.IsNil() {
			return encodeNil(w, rv.Type().Elem())
		}
		return encodeValue(w, rv.Elem())

	case reflect.Interface:
		if rv.IsNil() {
			_, err := w.Write([]byte{0xc0})
			return err
		}
		return Encode(w, rv.Interface())

	default:
		return fmt.Errorf("rlp: unsupported type %s", rv.Type())
	}
}

// encodeBigInt writes the minimal big-endian byte-string encoding of a
// math/big.Int struct value, special-cased since its fields are
// unexported and invisible to the generic reflect-based struct encoder
// (used for total difficulty and block numbers throughout the eth wire
// protocol).
func encodeBigInt(w io.Writer, rv reflect.Value) error {
	tmp := reflect.New(bigIntType).Elem()
	tmp.Set(rv)
	b := tmp.Addr().Interface().(*big.Int)
	if b.Sign() < 0 {
		return fmt.Errorf("rlp: cannot encode negative big.Int")
	}
	return encodeBytes(w, b.Bytes())
}

func encodeUint(w io.Writer, i uint64) error {
	if i == 0 {
		_, err := w.Write([]byte{0x80})
		return err
	}
	if i <= strSingleByteMax {
		_, err := w.Write([]byte{byte(i)})
		return err
	}
	b := encodeUintBytes(i)
	return encodeBytes(w, b)
}

func encodeBytes(w io.Writer, b []byte) error {
	if len(b) == 1 && b[0] <= strSingleByteMax {
		_, err := w.Write(b)
		return err
	}
	head := make([]byte, headSize(false, uint64(len(b))))
	putHead(head, false, uint64(len(b)))
	if _, err := w.Write(head); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// encodeList encodes each element of a slice/array into a buffer first (so
// the aggregate length is known), then emits the list header + payload.
func encodeList(w io.Writer, rv reflect.Value) error {
	var buf bytes.Buffer
	for i := 0; i < rv.Len(); i++ {
		if err := Encode(&buf, rv.Index(i).Interface()); err != nil {
			return err
		}
	}
	return writeListPayload(w, buf.Bytes())
}

func encodeStruct(w io.Writer, rv reflect.Value) error {
	var buf bytes.Buffer
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" { // unexported
			continue
		}
		tag := f.Tag.Get("rlp")
		if tag == "-" {
			continue
		}
		if err := Encode(&buf, rv.Field(i).Interface()); err != nil {
			return fmt.Errorf("rlp: field %s: %w", f.Name, err)
		}
	}
	return writeListPayload(w, buf.Bytes())
}

func writeListPayload(w io.Writer, payload []byte) error {
	head := make([]byte, headSize(true, uint64(len(payload))))
	putHead(head, true, uint64(len(payload)))
	if _, err := w.Write(head); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}
