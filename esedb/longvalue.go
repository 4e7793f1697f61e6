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
	"encoding/hex"
	"io"
	"sort"

	"github.com/pkg/errors"
)

type longValueChunk struct {
	offset uint32
	data   []byte
}

// longValues holds the separated values of a table. Keys of the long value
// tree are the big endian long value id, followed by the big endian offset
// for each data chunk.
type longValues struct {
	chunks map[string][]longValueChunk
}

func loadLongValues(pages *pageReader, root uint32) (*longValues, error) {
	lv := &longValues{chunks: map[string][]longValueChunk{}}
	walker, err := newTreeWalker(pages, root)
	if err != nil {
		return nil, err
	}

	idSize := 0
	for {
		entry, err := walker.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if idSize == 0 {
			// the first entry is always the root of a long value
			idSize = len(entry.Key)
			if idSize != 4 && idSize != 8 {
				return nil, errors.Wrapf(ErrCorruptPage, "page %d: long value key of %d bytes", walker.PageNumber(), idSize)
			}
		}
		switch len(entry.Key) {
		case idSize:
		case idSize + 4:
			id := hex.EncodeToString(entry.Key[:idSize])
			lv.chunks[id] = append(lv.chunks[id], longValueChunk{
				offset: binary.BigEndian.Uint32(entry.Key[idSize:]),
				data:   entry.Data,
			})
		default:
			return nil, errors.Wrapf(ErrCorruptPage, "page %d: long value key of %d bytes", walker.PageNumber(), len(entry.Key))
		}
	}

	for _, chunks := range lv.chunks {
		sort.Slice(chunks, func(i, j int) bool { return chunks[i].offset < chunks[j].offset })
	}
	return lv, nil
}

// get returns the value referenced by the little endian id stored in a record.
func (lv *longValues) get(ref []byte) ([]byte, error) {
	if len(ref) != 4 && len(ref) != 8 {
		return nil, errors.Wrapf(ErrCorruptRecord, "long value reference of %d bytes", len(ref))
	}
	id := make([]byte, len(ref))
	for i := range ref {
		id[i] = ref[len(ref)-1-i]
	}

	chunks, ok := lv.chunks[hex.EncodeToString(id)]
	if !ok {
		return nil, errors.Wrapf(ErrLongValueNotFound, "id %x", id)
	}
	var buf bytes.Buffer
	for _, chunk := range chunks {
		if int(chunk.offset) != buf.Len() {
			return nil, errors.Wrapf(ErrLongValueNotFound, "id %x: gap at offset %d", id, buf.Len())
		}
		buf.Write(chunk.data)
	}
	return buf.Bytes(), nil
}
