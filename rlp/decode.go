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
	"encoding/binary"
	"fmt"
	"io"
	"math/big"
	"reflect"
)

// Decoder is implemented by types that know how to decode themselves from a
// single RLP item's raw bytes (the item including its header).
type Decoder interface {
	DecodeRLP(item []byte) error
}

// DecodeBytes parses RLP-encoded data and stores the result into val, which
// must be a non-nil pointer. The whole of data must be consumed by exactly
// one value.
func DecodeBytes(data []byte, val interface{}) error {
	rv := reflect.ValueOf(val)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("rlp: Decode requires a non-nil pointer, got %T", val)
	}
	rest, err := decodeValue(data, rv.Elem())
	if err != nil {
		return err
	}
	if len(rest) != 0 {
		return ErrMoreThanOneValue
	}
	return nil
}

// Decode reads exactly one RLP value from r and decodes it into val. It
// buffers r fully; callers bound the frame size upstream (p2p message
// framing already carries an explicit size).
func Decode(r io.Reader, val interface{}) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return DecodeBytes(data, val)
}

// splitItem returns the item kind's content bytes and the remainder of buf
// following the item.
func splitItem(buf []byte) (content []byte, isList bool, rest []byte, err error) {
	if len(buf) == 0 {
		return nil, false, nil, io.ErrUnexpectedEOF
	}
	b := buf[0]
	switch {
	case b <= strSingleByteMax:
		return buf[0:1], false, buf[1:], nil
	case b <= strShortMax:
		n := int(b - 0x80)
		if len(buf) < 1+n {
			return nil, false, nil, ErrValueTooLarge
		}
		if n == 1 && buf[1] <= strSingleByteMax {
			return nil, false, nil, ErrCanonSize
		}
		return buf[1 : 1+n], false, buf[1+n:], nil
	case b <= strLongMax:
		lenOfLen := int(b - strShortMax)
		if len(buf) < 1+lenOfLen {
			return nil, false, nil, ErrValueTooLarge
		}
		n, err := readSize(buf[1 : 1+lenOfLen])
		if err != nil {
			return nil, false, nil, err
		}
		start := 1 + lenOfLen
		if len(buf) < start+n {
			return nil, false, nil, ErrValueTooLarge
		}
		return buf[start : start+n], false, buf[start+n:], nil
	case b <= listShortMax:
		n := int(b - 0xc0)
		if len(buf) < 1+n {
			return nil, false, nil, ErrValueTooLarge
		}
		return buf[1 : 1+n], true, buf[1+n:], nil
	default:
		lenOfLen := int(b - listShortMax)
		if len(buf) < 1+lenOfLen {
			return nil, false, nil, ErrValueTooLarge
		}
		n, err := readSize(buf[1 : 1+lenOfLen])
		if err != nil {
			return nil, false, nil, err
		}
		start := 1 + lenOfLen
		if len(buf) < start+n {
			return nil, false, nil, ErrValueTooLarge
		}
		return buf[start : start+n], true, buf[start+n:], nil
	}
}

func readSize(b []byte) (int, error) {
	if len(b) > 8 {
		return 0, ErrValueTooLarge
	}
	if b[0] == 0 {
		return 0, ErrCanonSize
	}
	var padded [8]byte
	copy(padded[8-len(b):], b)
	n := binary.BigEndian.Uint64(padded[:])
	if n < 56 {
		return 0, ErrCanonSize
	}
	return int(n), nil
}

func decodeValue(buf []byte, rv reflect.Value) (rest []byte, err error) {
	if rv.CanAddr() {
		if dec, ok := rv.Addr().Interface().(Decoder); ok {
			_, _, rest, err := splitItem(buf)
			if err != nil {
				return nil, err
			}
			item := buf[:len(buf)-len(rest)]
			return rest, dec.DecodeRLP(item)
		}
	}
	if rv.Type() == reflect.TypeOf(RawValue(nil)) {
		// RawValue keeps the whole encoded item, header included.
		_, _, rest, err := splitItem(buf)
		if err != nil {
			return nil, err
		}
		rv.SetBytes(append([]byte(nil), buf[:len(buf)-len(rest)]...))
		return rest, nil
	}
	switch rv.Kind() {
	case reflect.Bool:
		content, isList, rest, err := splitItem(buf)
		if err != nil {
			return nil, err
		}
		if isList {
			return nil, ErrExpectedString
		}
		switch len(content) {
		case 0:
			rv.SetBool(false)
		case 1:
			if content[0] != 1 {
				return nil, fmt.Errorf("rlp: invalid bool byte %#x", content[0])
			}
			rv.SetBool(true)
		default:
			return nil, fmt.Errorf("rlp: invalid bool encoding")
		}
		return rest, nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		content, isList, rest, err := splitItem(buf)
		if err != nil {
			return nil, err
		}
		if isList {
			return nil, ErrExpectedString
		}
		if len(content) > 8 {
			return nil, ErrValueTooLarge
		}
		if len(content) > 0 && content[0] == 0 {
			return nil, ErrCanonInt
		}
		var v uint64
		for _, b := range content {
			v = v<<8 | uint64(b)
		}
		rv.SetUint(v)
		return rest, nil

	case reflect.String:
		content, isList, rest, err := splitItem(buf)
		if err != nil {
			return nil, err
		}
		if isList {
			return nil, ErrExpectedString
		}
		rv.SetString(string(content))
		return rest, nil

	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			content, isList, rest, err := splitItem(buf)
			if err != nil {
				return nil, err
			}
			if isList {
				return nil, ErrExpectedString
			}
			b := make([]byte, len(content))
			copy(b, content)
			rv.SetBytes(b)
			return rest, nil
		}
		content, isList, rest, err := splitItem(buf)
		if err != nil {
			return nil, err
		}
		if !isList {
			return nil, ErrExpectedList
		}
		slice := reflect.MakeSlice(rv.Type(), 0, 0)
		for len(content) > 0 {
			elem := reflect.New(rv.Type().Elem()).Elem()
			content, err = decodeValue(content, elem)
			if err != nil {
				return nil, err
			}
			slice = reflect.Append(slice, elem)
		}
		rv.Set(slice)
		return rest, nil

	case reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			content, isList, rest, err := splitItem(buf)
			if err != nil {
				return nil, err
			}
			if isList {
				return nil, ErrExpectedString
			}
			if len(content) != rv.Len() {
				return nil, fmt.Errorf("rlp: byte array length mismatch: have %d want %d", len(content), rv.Len())
			}
			reflect.Copy(rv, reflect.ValueOf(content))
			return rest, nil
		}
		content, isList, rest, err := splitItem(buf)
		if err != nil {
			return nil, err
		}
		if !isList {
			return nil, ErrExpectedList
		}
		for i := 0; i < rv.Len(); i++ {
			content, err = decodeValue(content, rv.Index(i))
			if err != nil {
				return nil, err
			}
		}
		return rest, nil

	case reflect.Struct:
		if rv.Type() == bigIntType {
			content, isList, rest, err := splitItem(buf)
			if err != nil {
				return nil, err
			}
			if isList {
				return nil, ErrExpectedString
			}
			if len(content) > 0 && content[0] == 0 {
				return nil, ErrCanonInt
			}
			rv.Set(reflect.ValueOf(*new(big.Int).SetBytes(content)))
			return rest, nil
		}
		content, isList, rest, err := splitItem(buf)
		if err != nil {
			return nil, err
		}
		if !isList {
			return nil, ErrExpectedList
		}
		t := rv.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.PkgPath != "" {
				continue
			}
			if f.Tag.Get("rlp") == "-" {
				continue
			}
			content, err = decodeValue(content, rv.Field(i))
			if err != nil {
				return nil, fmt.Errorf("rlp: field %s: %w", f.Name, err)
			}
		}
		return rest, nil

	case reflect.Ptr:
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		return decodeValue(buf, rv.Elem())

	case reflect.Interface:
		return nil, fmt.Errorf("rlp: cannot decode into interface value")

	default:
		return nil, fmt.Errorf("rlp: unsupported type %s", rv.Type())
	}
}
