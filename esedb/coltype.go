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

package esedb

import "fmt"

// ColumnType is the physical ESE column type (JET_coltyp).
type ColumnType uint32

// Column types known to the reader.
const (
	TypeNull             ColumnType = 0
	TypeBit              ColumnType = 1
	TypeUnsignedByte     ColumnType = 2
	TypeShort            ColumnType = 3
	TypeLong             ColumnType = 4
	TypeCurrency         ColumnType = 5
	TypeSingle           ColumnType = 6
	TypeDouble           ColumnType = 7
	TypeDateTime         ColumnType = 8
	TypeBinary           ColumnType = 9
	TypeText             ColumnType = 10
	TypeLongBinary       ColumnType = 11
	TypeLongText         ColumnType = 12
	TypeUnsignedLong     ColumnType = 14
	TypeLongLong         ColumnType = 15
	TypeGUID             ColumnType = 16
	TypeUnsignedShort    ColumnType = 17
	TypeUnsignedLongLong ColumnType = 18
)

var columnTypeNames = map[ColumnType]string{
	TypeNull:             "Null",
	TypeBit:              "Bit",
	TypeUnsignedByte:     "Byte",
	TypeShort:            "Short",
	TypeLong:             "Long",
	TypeCurrency:         "Currency",
	TypeSingle:           "Single",
	TypeDouble:           "Double",
	TypeDateTime:         "DateTime",
	TypeBinary:           "Binary",
	TypeText:             "Text",
	TypeLongBinary:       "LongBinary",
	TypeLongText:         "LongText",
	TypeUnsignedLong:     "ULong",
	TypeLongLong:         "LongLong",
	TypeGUID:             "Guid",
	TypeUnsignedShort:    "UShort",
	TypeUnsignedLongLong: "ULongLong",
}

func (t ColumnType) String() string {
	if name, ok := columnTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ColumnType(%d)", uint32(t))
}

// Valid reports whether the type is one the record decoder can handle.
func (t ColumnType) Valid() bool {
	_, ok := columnTypeNames[t]
	return ok
}

// Size returns the storage width of fixed size types and 0 for all others.
func (t ColumnType) Size() int {
	switch t {
	case TypeBit, TypeUnsignedByte:
		return 1
	case TypeShort, TypeUnsignedShort:
		return 2
	case TypeLong, TypeUnsignedLong, TypeSingle:
		return 4
	case TypeCurrency, TypeDouble, TypeDateTime, TypeLongLong, TypeUnsignedLongLong:
		return 8
	case TypeGUID:
		return 16
	}
	return 0
}

// CodePage of text columns.
type CodePage uint32

// Code pages used by ESE text columns.
const (
	CodePageUnicode CodePage = 1200
	CodePageWestern CodePage = 1252
	CodePageASCII   CodePage = 20127
)
