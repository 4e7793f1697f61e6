// Copyright (c) 2020 Siemens AG
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
// the Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
// FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
// COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
// IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
// CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
//
// Author(s): Jonas Plum

package esedbtest

import (
	"encoding/binary"
	"math"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/unicode"
)

// Bit encodes a boolean column.
func Bit(v bool) []byte {
	if v {
		return []byte{0xff}
	}
	return []byte{0}
}

// Short encodes a signed 16 bit column.
func Short(v int16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, uint16(v))
	return b
}

// UShort encodes an unsigned 16 bit column.
func UShort(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

// Long encodes a signed 32 bit column.
func Long(v int32) []byte {
	return ULong(uint32(v))
}

// ULong encodes an unsigned 32 bit column.
func ULong(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

// LongLong encodes a signed 64 bit column, also used for currency.
func LongLong(v int64) []byte {
	return ULongLong(uint64(v))
}

// ULongLong encodes an unsigned 64 bit column.
func ULongLong(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

// Single encodes a 32 bit float column.
func Single(v float32) []byte {
	return ULong(math.Float32bits(v))
}

// Double encodes a 64 bit float column. DateTime columns hold the number of
// days since 1899-12-30 as double.
func Double(v float64) []byte {
	return ULongLong(math.Float64bits(v))
}

// GUID encodes a GUID column in the mixed endian Windows layout.
func GUID(s string) []byte {
	u := uuid.MustParse(s)
	b := make([]byte, 16)
	copy(b, u[:])
	b[0], b[1], b[2], b[3] = u[3], u[2], u[1], u[0]
	b[4], b[5] = u[5], u[4]
	b[6], b[7] = u[7], u[6]
	return b
}

// UTF16 encodes a text column with the Unicode code page.
func UTF16(s string) []byte {
	b, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder().Bytes([]byte(s))
	if err != nil {
		panic(err)
	}
	return b
}
