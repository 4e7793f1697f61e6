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
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

const headerReadSize = 512

// Header holds the fields of the database file header the reader relies on.
type Header struct {
	Signature          uint32
	FormatVersion      uint32
	FileType           uint32
	State              uint32
	LastObjectID       uint32
	WindowsMajor       uint32
	WindowsMinor       uint32
	WindowsBuild       uint32
	WindowsServicePack uint32
	FormatRevision     uint32
	PageSize           uint32
	RepairCount        uint32
}

func readHeader(r io.ReaderAt) (*Header, error) {
	b := make([]byte, headerReadSize)
	n, err := r.ReadAt(b, 0)
	if n < headerReadSize {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return nil, errors.Wrapf(ErrIO, "read file header: %s", err)
	}
	return parseHeader(b)
}

func parseHeader(b []byte) (*Header, error) {
	le := binary.LittleEndian
	h := &Header{
		Signature:          le.Uint32(b[4:]),
		FormatVersion:      le.Uint32(b[8:]),
		FileType:           le.Uint32(b[12:]),
		State:              le.Uint32(b[52:]),
		LastObjectID:       le.Uint32(b[212:]),
		WindowsMajor:       le.Uint32(b[216:]),
		WindowsMinor:       le.Uint32(b[220:]),
		WindowsBuild:       le.Uint32(b[224:]),
		WindowsServicePack: le.Uint32(b[228:]),
		FormatRevision:     le.Uint32(b[232:]),
		PageSize:           le.Uint32(b[236:]),
		RepairCount:        le.Uint32(b[240:]),
	}
	if h.Signature != fileSignature {
		return nil, errors.Wrapf(ErrNotESEDatabase, "signature is 0x%08x", h.Signature)
	}
	switch h.PageSize {
	case 2048, 4096, 8192, 16384, 32768:
	default:
		return nil, errors.Wrapf(ErrNotESEDatabase, "invalid page size %d", h.PageSize)
	}
	return h, nil
}

// CheckState fails for databases that need log replay before they can be read.
func (h *Header) CheckState() error {
	switch h.State {
	case StateDirtyShutdown, StateBeingConverted:
		return errors.Wrapf(ErrDirtyDatabase, "state %s", h.StateName())
	}
	return nil
}

// StateName returns a readable name of the database state.
func (h *Header) StateName() string {
	switch h.State {
	case StateJustCreated:
		return "just created"
	case StateDirtyShutdown:
		return "dirty shutdown"
	case StateCleanShutdown:
		return "clean shutdown"
	case StateBeingConverted:
		return "being converted"
	case StateForceDetach:
		return "force detach"
	}
	return "unknown"
}

// largePages reports whether pages use the extended header and 15 bit tag offsets.
func (h *Header) largePages() bool {
	return h.FormatVersion == formatVersion && h.FormatRevision >= largePageRevision && h.PageSize > 8192
}
