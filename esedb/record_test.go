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

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordTable() *Table {
	t := &Table{
		Name: "t",
		Columns: []*Column{
			{Name: "id", ID: 1, Type: TypeLong},
			{Name: "flags", ID: 2, Type: TypeShort},
			{Name: "name", ID: 128, Type: TypeText},
			{Name: "blob", ID: 129, Type: TypeBinary},
			{Name: "note", ID: 256, Type: TypeLongText},
		},
	}
	t.layout()
	return t
}

func TestParseRecord(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    Record
		wantErr bool
	}{
		{
			"all parts",
			[]byte{
				2, 129, 11, 0, // header
				7, 0, 0, 0, 5, 0, // fixed
				0x02,          // null bitmap
				3, 0, 3, 0x80, // variable ends
				'a', 'b', 'c',
				0, 1, 4, 0x40, // tagged array
				1, 'x', 'y',
			},
			Record{
				1:   {Data: []byte{7, 0, 0, 0}},
				128: {Data: []byte("abc")},
				256: {Data: []byte("xy"), Flags: TaggedVariableSize},
			},
			false,
		},
		{
			"fixed only",
			[]byte{1, 127, 9, 0, 1, 2, 3, 4, 0},
			Record{1: {Data: []byte{1, 2, 3, 4}}},
			false,
		},
		{
			"unknown tagged column",
			[]byte{0, 127, 4, 0, 0, 2, 4, 0, 'q'},
			Record{},
			false,
		},
		{"truncated", []byte{1, 2}, nil, true},
		{"variable offset beyond record", []byte{0, 127, 90, 0}, nil, true},
		{"variable ends beyond record", []byte{0, 200, 4, 0, 1, 0}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseRecord(tt.data, recordTable(), false)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseRecord() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrCorruptRecord))
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRecord_DamagedColumn(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		damaged []uint32
	}{
		{"fixed beyond fixed area", []byte{2, 127, 7, 0, 1, 2, 0}, []uint32{1, 2}},
		{"variable end beyond record", []byte{0, 128, 4, 0, 0xff, 0, 'a'}, []uint32{128}},
		{"tagged beyond record", []byte{0, 127, 4, 0, 0, 1, 8, 0, 44, 1, 40, 0, 'x'}, []uint32{256}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseRecord(tt.data, recordTable(), false)
			require.NoError(t, err)
			require.Len(t, got, len(tt.damaged))
			for _, id := range tt.damaged {
				assert.Nil(t, got[id].Data)
				assert.True(t, errors.Is(got[id].Err, ErrCorruptRecord))
			}
		})
	}
}

func TestParseRecord_LargeTagged(t *testing.T) {
	data := []byte{
		0, 127, 4, 0,
		0, 1, 4, 0,
		0, 'x',
	}
	got, err := parseRecord(data, recordTable(), true)
	require.NoError(t, err)
	assert.Equal(t, Record{256: {Data: []byte("x")}}, got)
}

func TestFirstValue(t *testing.T) {
	tests := []struct {
		name          string
		data          []byte
		want          string
		wantSeparated bool
		wantErr       bool
	}{
		{"two values", []byte{4, 0, 6, 0, 'a', 'b', 'c'}, "ab", false, false},
		{"single value", []byte{2, 0, 'a', 'b'}, "ab", false, false},
		{"separated", []byte{4, 0x80, 8, 0, 1, 0, 0, 0, 2, 0, 0, 0}, "\x01\x00\x00\x00", true, false},
		{"empty", []byte{}, "", false, true},
		{"offset beyond data", []byte{40, 0}, "", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, separated, err := firstValue(tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("firstValue() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			assert.Equal(t, tt.want, string(got))
			assert.Equal(t, tt.wantSeparated, separated)
		})
	}
}

func TestLongValues_Get(t *testing.T) {
	lv := &longValues{chunks: map[string][]longValueChunk{
		"00000001": {{offset: 0, data: []byte("ab")}, {offset: 2, data: []byte("cd")}},
		"00000002": {{offset: 0, data: []byte("ab")}, {offset: 4, data: []byte("cd")}},
	}}

	got, err := lv.get([]byte{1, 0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, "abcd", string(got))

	_, err = lv.get([]byte{2, 0, 0, 0})
	assert.True(t, errors.Is(err, ErrLongValueNotFound))

	_, err = lv.get([]byte{3, 0, 0, 0})
	assert.True(t, errors.Is(err, ErrLongValueNotFound))

	_, err = lv.get([]byte{3, 0})
	assert.True(t, errors.Is(err, ErrCorruptRecord))
}
