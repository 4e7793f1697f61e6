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
	"sort"

	"github.com/pkg/errors"
)

// Column is a column definition from the catalog.
type Column struct {
	Name     string
	ID       uint32
	Type     ColumnType
	Size     uint32
	CodePage CodePage
	Flags    uint32
}

// IsFixed reports whether the column is stored in the fixed data area.
func (c *Column) IsFixed() bool { return c.ID < firstVariableColumn }

// IsVariable reports whether the column is stored in the variable data area.
func (c *Column) IsVariable() bool {
	return c.ID >= firstVariableColumn && c.ID < firstTaggedColumn
}

// IsTagged reports whether the column is stored in the tagged data area.
func (c *Column) IsTagged() bool { return c.ID >= firstTaggedColumn }

func (c *Column) storageSize() int {
	if c.Size > 0 {
		return int(c.Size)
	}
	return c.Type.Size()
}

// Value is the raw content of a single column. Err is set if the value
// exists but could not be read, e.g. compressed or missing long values.
type Value struct {
	Data  []byte
	Flags byte
	Err   error
}

// Record maps column ids to raw values, null columns are absent.
type Record map[uint32]Value

// Table is a table definition from the catalog.
type Table struct {
	Name          string
	ObjectID      uint32
	RootPage      uint32
	LongValueRoot uint32
	Columns       []*Column

	fixedOffsets map[uint32]int
}

// Column returns the column with the given name or nil.
func (t *Table) Column(name string) *Column {
	for _, column := range t.Columns {
		if column.Name == name {
			return column
		}
	}
	return nil
}

// layout computes the offsets of the fixed columns in the fixed data area.
func (t *Table) layout() {
	var fixed []*Column
	for _, column := range t.Columns {
		if column.IsFixed() {
			fixed = append(fixed, column)
		}
	}
	sort.Slice(fixed, func(i, j int) bool { return fixed[i].ID < fixed[j].ID })

	t.fixedOffsets = map[uint32]int{}
	offset := 4
	for _, column := range fixed {
		t.fixedOffsets[column.ID] = offset
		offset += column.storageSize()
	}
}

func parseRecord(data []byte, table *Table, large bool) (Record, error) { // nolint:gocyclo,funlen
	le := binary.LittleEndian
	if len(data) < 4 {
		return nil, errors.Wrapf(ErrCorruptRecord, "record of %d bytes", len(data))
	}
	lastFixed := uint32(data[0])
	lastVariable := uint32(data[1])
	variableOffset := int(le.Uint16(data[2:]))
	if variableOffset > len(data) {
		return nil, errors.Wrapf(ErrCorruptRecord, "variable data offset %d exceeds record of %d bytes", variableOffset, len(data))
	}

	record := Record{}

	// fixed columns, followed by the null bitmap
	bitmapStart := variableOffset - int(lastFixed+7)/8
	if bitmapStart < 4 {
		return nil, errors.Wrapf(ErrCorruptRecord, "null bitmap at %d", bitmapStart)
	}
	variableCount := 0
	if lastVariable >= firstVariableColumn {
		variableCount = int(lastVariable - firstVariableColumn + 1)
	}
	variableData := variableOffset + 2*variableCount
	if variableData > len(data) {
		return nil, errors.Wrapf(ErrCorruptRecord, "%d variable columns exceed record", variableCount)
	}
	ends := make([]int, variableCount)
	nulls := make([]bool, variableCount)
	for i := range ends {
		raw := le.Uint16(data[variableOffset+2*i:])
		ends[i] = int(raw & 0x7fff)
		nulls[i] = raw&0x8000 != 0
	}

	for _, column := range table.Columns {
		switch {
		case column.IsFixed():
			if column.ID > lastFixed {
				continue
			}
			bit := column.ID - 1
			if data[bitmapStart+int(bit/8)]&(1<<(bit%8)) != 0 {
				continue
			}
			offset, ok := table.fixedOffsets[column.ID]
			if !ok {
				continue
			}
			end := offset + column.storageSize()
			if end > bitmapStart {
				record[column.ID] = Value{Err: errors.Wrapf(ErrCorruptRecord, "fixed column %s exceeds fixed data area", column.Name)}
				continue
			}
			record[column.ID] = Value{Data: data[offset:end]}
		case column.IsVariable():
			if column.ID > lastVariable {
				continue
			}
			i := int(column.ID - firstVariableColumn)
			if nulls[i] {
				continue
			}
			start := 0
			if i > 0 {
				start = ends[i-1]
			}
			if start > ends[i] || variableData+ends[i] > len(data) {
				record[column.ID] = Value{Err: errors.Wrapf(ErrCorruptRecord, "variable column %s exceeds record", column.Name)}
				continue
			}
			record[column.ID] = Value{Data: data[variableData+start : variableData+ends[i]]}
		}
	}

	// a damaged last variable offset hides the tagged data
	taggedStart := variableData
	if variableCount > 0 {
		taggedStart += ends[variableCount-1]
	}
	if taggedStart >= len(data) {
		return record, nil
	}
	return record, parseTagged(data[taggedStart:], table, large, record)
}

type taggedItem struct {
	id       uint32
	offset   int
	hasFlags bool
}

func parseTagged(data []byte, table *Table, large bool, record Record) error {
	le := binary.LittleEndian
	mask := uint16(0x3fff)
	if large {
		mask = 0x7fff
	}
	if len(data) < 4 {
		return errors.Wrap(ErrCorruptRecord, "truncated tagged data")
	}
	arraySize := int(le.Uint16(data[2:]) & mask)
	if arraySize > len(data) || arraySize%4 != 0 {
		return errors.Wrapf(ErrCorruptRecord, "tagged array of %d bytes", arraySize)
	}

	var items []taggedItem
	for i := 0; i < arraySize; i += 4 {
		raw := le.Uint16(data[i+2:])
		items = append(items, taggedItem{
			id:       uint32(le.Uint16(data[i:])),
			offset:   int(raw & mask),
			hasFlags: large || raw&0x4000 != 0,
		})
	}

	ids := map[uint32]bool{}
	for _, column := range table.Columns {
		if column.IsTagged() {
			ids[column.ID] = true
		}
	}

	for i, item := range items {
		end := len(data)
		if i+1 < len(items) {
			end = items[i+1].offset
		}
		if !ids[item.id] {
			continue
		}
		if item.offset > end || end > len(data) {
			record[item.id] = Value{Err: errors.Wrapf(ErrCorruptRecord, "tagged column %d exceeds record", item.id)}
			continue
		}
		value := Value{Data: data[item.offset:end]}
		if item.hasFlags && len(value.Data) > 0 {
			value.Flags = value.Data[0]
			value.Data = value.Data[1:]
		}
		record[item.id] = value
	}
	return nil
}

// firstValue extracts the first value of a multi valued column. The second
// return value reports whether that value is stored in the long value tree.
func firstValue(data []byte) ([]byte, bool, error) {
	le := binary.LittleEndian
	if len(data) < 2 {
		return nil, false, errors.Wrap(ErrCorruptRecord, "truncated multi value")
	}
	first := le.Uint16(data)
	start := int(first & 0x7fff)
	count := start / 2
	if count == 0 || start > len(data) {
		return nil, false, errors.Wrap(ErrCorruptRecord, "invalid multi value offsets")
	}
	end := len(data)
	if count > 1 {
		end = int(le.Uint16(data[2:]) & 0x7fff)
	}
	if end < start || end > len(data) {
		return nil, false, errors.Wrap(ErrCorruptRecord, "invalid multi value offsets")
	}
	return data[start:end], first&0x8000 != 0, nil
}
