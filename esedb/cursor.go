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
	"github.com/pkg/errors"
)

// ErrCompressedValue is set on values stored in a compressed format.
var ErrCompressedValue = errors.New("compressed values are not supported")

// Cursor iterates the records of a table in storage order. It is forward
// only and holds no resources besides the database it was opened on.
type Cursor struct {
	db         *Database
	table      *Table
	walker     *treeWalker
	longValues *longValues
}

// Table returns the definition of the table the cursor iterates.
func (c *Cursor) Table() *Table {
	return c.table
}

// Next returns the next record or io.EOF after the last record.
func (c *Cursor) Next() (Record, error) {
	if c.walker == nil {
		return nil, errors.New("cursor closed")
	}
	entry, err := c.walker.Next()
	if err != nil {
		return nil, err
	}
	record, err := parseRecord(entry.Data, c.table, c.db.header.largePages())
	if err != nil {
		return nil, errors.Wrapf(err, "table %s page %d", c.table.Name, c.walker.PageNumber())
	}
	for id, value := range record {
		if value.Flags == 0 {
			continue
		}
		if value.Flags&TaggedLongValue != 0 || value.Flags&TaggedMultiValue != 0 {
			// a broken long value tree fails the whole table, missing values only the column
			if err := c.loadLongValues(); err != nil {
				return nil, errors.Wrapf(err, "table %s long values", c.table.Name)
			}
		}
		record[id] = c.resolve(value)
	}
	return record, nil
}

// resolve replaces separated and multi valued data by the actual value.
func (c *Cursor) resolve(value Value) Value {
	if value.Flags&TaggedCompressed != 0 {
		value.Err = ErrCompressedValue
		return value
	}
	if value.Flags&TaggedLongValue != 0 {
		value.Data, value.Err = c.longValue(value.Data)
		if value.Err != nil {
			return value
		}
	}
	if value.Flags&TaggedMultiValue != 0 {
		first, separated, err := firstValue(value.Data)
		if err != nil {
			value.Err = err
			return value
		}
		value.Data = first
		if separated {
			value.Data, value.Err = c.longValue(first)
		}
	}
	return value
}

func (c *Cursor) loadLongValues() error {
	if c.longValues != nil || c.table.LongValueRoot == 0 {
		return nil
	}
	lv, err := loadLongValues(c.db.pages, c.table.LongValueRoot)
	if err != nil {
		return err
	}
	c.longValues = lv
	return nil
}

func (c *Cursor) longValue(ref []byte) ([]byte, error) {
	if c.longValues == nil {
		return nil, errors.Wrapf(ErrLongValueNotFound, "table %s has no long value tree", c.table.Name)
	}
	return c.longValues.get(ref)
}

// Close releases the in-memory state of the cursor.
func (c *Cursor) Close() error {
	c.walker = nil
	c.longValues = nil
	return nil
}
