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

// Package rlp implements the Recursive Length Prefix encoding used by every
// wire message in the p2p, eth and snap protocols: a byte string is
// prefixed 0x00-0x7f (single byte, self-encoding), 0x80+len (len<56 short
// string), 0xb7+lenOfLen followed by length (long string); a list is the same
// scheme shifted by 0xc0/0xf7.
package rlp

import "errors"

const (
	strSingleByteMax = 0x7f
	strShortMax       = 0xb7
	strLongMax        = 0xbf
	listShortMax      = 0xf7
	listLongMax       = 0xff
)

var (
	ErrExpectedString = errors.New("rlp: expected string or byte")
	ErrExpectedList   = errors.New("rlp: expected list")
	ErrCanonSize      = errors.New("rlp: non-canonical size information")
	ErrCanonInt       = errors.New("rlp: non-canonical integer format")
	ErrElemTooLarge   = errors.New("rlp: element is larger than containing list")
	ErrValueTooLarge  = errors.New("rlp: value size exceeds available input")
	ErrMoreThanOneValue = errors.New("rlp: input contains more than one value")
)

// putHead writes the header for a byte string or list of the given size into
// buf, returning the number of bytes written. isList selects the 0xc0 base.
func putHead(buf []byte, isList bool, size uint64) int {
	offset := byte(0x80)
	longOffset := byte(0xb7)
	if isList {
		offset = 0xc0
		longOffset = 0xf7
	}
	if size == 1 && !isList {
		// caller handles single-byte optimization itself; putHead is only
		// used for strings of len != 1 or lists.
	}
	if size < 56 {
		buf[0] = offset + byte(size)
		return 1
	}
	sizeBytes := encodeUintBytes(size)
	buf[0] = longOffset + byte(len(sizeBytes))
	copy(buf[1:], sizeBytes)
	return 1 + len(sizeBytes)
}

func headSize(isList bool, size uint64) int {
	if size < 56 {
		return 1
	}
	return 1 + len(encodeUintBytes(size))
}

func encodeUintBytes(i uint64) []byte {
	if i == 0 {
		return nil
	}
	var b [8]byte
	n := 8
	for n > 0 {
		n--
		b[n] = byte(i)
		i >>= 8
		if i == 0 {
			break
		}
	}
	return append([]byte(nil), b[n:]...)
}
