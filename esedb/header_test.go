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
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func header(signature, version, revision, pageSize, state uint32) []byte {
	b := make([]byte, headerReadSize)
	binary.LittleEndian.PutUint32(b[4:], signature)
	binary.LittleEndian.PutUint32(b[8:], version)
	binary.LittleEndian.PutUint32(b[52:], state)
	binary.LittleEndian.PutUint32(b[232:], revision)
	binary.LittleEndian.PutUint32(b[236:], pageSize)
	return b
}

func TestReadHeader(t *testing.T) {
	tests := []struct {
		name      string
		data      []byte
		wantLarge bool
		wantErr   error
	}{
		{"small pages", header(fileSignature, 0x620, 0x14, 8192, StateCleanShutdown), false, nil},
		{"large pages", header(fileSignature, 0x620, 0x14, 32768, StateCleanShutdown), true, nil},
		{"old revision", header(fileSignature, 0x620, 0x0c, 32768, StateCleanShutdown), false, nil},
		{"bad signature", header(0x12345678, 0x620, 0x14, 8192, StateCleanShutdown), false, ErrNotESEDatabase},
		{"bad page size", header(fileSignature, 0x620, 0x14, 1000, StateCleanShutdown), false, ErrNotESEDatabase},
		{"short", make([]byte, 100), false, ErrIO},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := readHeader(bytes.NewReader(tt.data))
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "readHeader() error = %v, want %v", err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantLarge, h.largePages())
		})
	}
}

func TestHeader_CheckState(t *testing.T) {
	tests := []struct {
		state   uint32
		name    string
		wantErr bool
	}{
		{StateJustCreated, "just created", false},
		{StateDirtyShutdown, "dirty shutdown", true},
		{StateCleanShutdown, "clean shutdown", false},
		{StateBeingConverted, "being converted", true},
		{StateForceDetach, "force detach", false},
		{42, "unknown", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &Header{State: tt.state}
			assert.Equal(t, tt.name, h.StateName())
			err := h.CheckState()
			assert.Equal(t, tt.wantErr, errors.Is(err, ErrDirtyDatabase))
		})
	}
}
