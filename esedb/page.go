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

// Page is a single database page. Page numbers start at 1, the file header
// and its shadow copy occupy the first two page slots of the file.
type Page struct {
	Number         uint32
	Previous       uint32
	Next           uint32
	FatherDataPage uint32
	Flags          uint32
	TagCount       int

	data       []byte
	headerSize int
	large      bool
}

// Tag is the raw content of a page tag.
type Tag struct {
	Flags uint16
	Data  []byte
}

// Entry is a B-tree node with its key expanded by the page's common key.
type Entry struct {
	Flags uint16
	Key   []byte
	Data  []byte
}

// IsLeaf reports whether the page is a leaf page.
func (p *Page) IsLeaf() bool { return p.Flags&PageFlagLeaf != 0 }

// IsRoot reports whether the page is the root of its tree.
func (p *Page) IsRoot() bool { return p.Flags&PageFlagRoot != 0 }

// Tag returns the tag with index i. Tag 0 holds the page's common key, the
// nodes start at index 1.
func (p *Page) Tag(i int) (Tag, error) {
	if i < 0 || i >= p.TagCount {
		return Tag{}, errors.Wrapf(ErrCorruptPage, "page %d: tag %d out of range (%d tags)", p.Number, i, p.TagCount)
	}
	le := binary.LittleEndian
	pos := len(p.data) - 4*(i+1)
	rawSize := le.Uint16(p.data[pos:])
	rawOffset := le.Uint16(p.data[pos+2:])

	var size, offset int
	var flags uint16
	if p.large {
		size = int(rawSize & 0x7fff)
		offset = int(rawOffset & 0x7fff)
	} else {
		size = int(rawSize & 0x1fff)
		offset = int(rawOffset & 0x1fff)
		flags = (rawOffset & 0xe000) >> 13
	}

	start := p.headerSize + offset
	if start+size > len(p.data)-4*p.TagCount {
		return Tag{}, errors.Wrapf(ErrCorruptPage, "page %d: tag %d exceeds data area", p.Number, i)
	}
	data := p.data[start : start+size]
	if p.large && size >= 2 {
		data = append([]byte{}, data...)
		flags = uint16(data[1] >> 5)
		data[1] &= 0x1f
	}
	return Tag{Flags: flags, Data: data}, nil
}

// Entry parses the node at tag index i (i >= 1).
func (p *Page) Entry(i int) (*Entry, error) {
	tag, err := p.Tag(i)
	if err != nil {
		return nil, err
	}
	le := binary.LittleEndian
	data := tag.Data
	commonSize := 0
	if tag.Flags&TagFlagCommon != 0 {
		if len(data) < 2 {
			return nil, errors.Wrapf(ErrCorruptPage, "page %d: tag %d too short", p.Number, i)
		}
		commonSize = int(le.Uint16(data))
		data = data[2:]
	}
	if len(data) < 2 {
		return nil, errors.Wrapf(ErrCorruptPage, "page %d: tag %d too short", p.Number, i)
	}
	localSize := int(le.Uint16(data))
	data = data[2:]
	if localSize > len(data) {
		return nil, errors.Wrapf(ErrCorruptPage, "page %d: tag %d key exceeds node", p.Number, i)
	}

	key := make([]byte, 0, commonSize+localSize)
	if commonSize > 0 {
		common, err := p.Tag(0)
		if err != nil {
			return nil, err
		}
		if commonSize > len(common.Data) {
			return nil, errors.Wrapf(ErrCorruptPage, "page %d: tag %d common key size %d exceeds %d", p.Number, i, commonSize, len(common.Data))
		}
		key = append(key, common.Data[:commonSize]...)
	}
	key = append(key, data[:localSize]...)
	return &Entry{Flags: tag.Flags, Key: key, Data: data[localSize:]}, nil
}

// ChildPage returns the child page number of a branch entry.
func (e *Entry) ChildPage() (uint32, error) {
	if len(e.Data) < 4 {
		return 0, errors.Wrap(ErrCorruptPage, "branch entry without child page")
	}
	return binary.LittleEndian.Uint32(e.Data), nil
}

// pageReader reads fixed size pages from the database file. Pages are not
// cached.
type pageReader struct {
	r         io.ReaderAt
	header    *Header
	pageCount uint32
}

func newPageReader(r io.ReaderAt, size int64, header *Header) *pageReader {
	// the header and its shadow copy precede page 1
	pages := size/int64(header.PageSize) - 2
	if pages < 0 {
		pages = 0
	}
	return &pageReader{r: r, header: header, pageCount: uint32(pages)}
}

// ReadPage reads and parses the page with the given number.
func (pr *pageReader) ReadPage(number uint32) (*Page, error) {
	if number == 0 || number > pr.pageCount {
		return nil, errors.Wrapf(ErrIO, "page %d out of range (1-%d)", number, pr.pageCount)
	}
	pageSize := int64(pr.header.PageSize)
	data := make([]byte, pageSize)
	n, err := pr.r.ReadAt(data, (int64(number)+1)*pageSize)
	if int64(n) < pageSize {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return nil, errors.Wrapf(ErrIO, "page %d: %s", number, err)
	}
	return parsePage(number, data, pr.header.largePages())
}

func parsePage(number uint32, data []byte, large bool) (*Page, error) {
	le := binary.LittleEndian
	p := &Page{
		Number:         number,
		Previous:       le.Uint32(data[16:]),
		Next:           le.Uint32(data[20:]),
		FatherDataPage: le.Uint32(data[24:]),
		TagCount:       int(le.Uint16(data[34:])),
		Flags:          le.Uint32(data[36:]),
		data:           data,
		headerSize:     pageHeaderSize,
		large:          large,
	}
	if large {
		p.headerSize = largePageHeaderSize
	}
	if p.headerSize+4*p.TagCount > len(data) {
		return nil, errors.Wrapf(ErrCorruptPage, "page %d: %d tags do not fit", number, p.TagCount)
	}
	return p, nil
}
