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

// catalogTable describes the leading columns of MSysObjects. The remaining
// columns are not needed to resolve tables and their columns.
var catalogTable = func() *Table {
	t := &Table{
		Name:     "MSysObjects",
		RootPage: CatalogPage,
		Columns: []*Column{
			{Name: "ObjidTable", ID: 1, Type: TypeLong},
			{Name: "Type", ID: 2, Type: TypeShort},
			{Name: "Id", ID: 3, Type: TypeLong},
			{Name: "ColtypOrPgnoFDP", ID: 4, Type: TypeLong},
			{Name: "SpaceUsage", ID: 5, Type: TypeLong},
			{Name: "Flags", ID: 6, Type: TypeLong},
			{Name: "PagesOrLocale", ID: 7, Type: TypeLong},
			{Name: "Name", ID: 128, Type: TypeText, CodePage: CodePageASCII},
		},
	}
	t.layout()
	return t
}()

type catalogEntry struct {
	objidTable  uint32
	kind        uint16
	id          uint32
	coltypOrFDP uint32
	spaceUsage  uint32
	flags       uint32
	locale      uint32
	name        string
}

func parseCatalogEntry(record Record) (*catalogEntry, error) {
	u32 := func(id uint32) uint32 {
		if v, ok := record[id]; ok && len(v.Data) == 4 {
			return binary.LittleEndian.Uint32(v.Data)
		}
		return 0
	}
	for _, id := range []uint32{1, 2, 3, 128} {
		if _, ok := record[id]; !ok {
			return nil, errors.Wrapf(ErrCatalogCorrupt, "missing column %d", id)
		}
	}
	return &catalogEntry{
		objidTable:  u32(1),
		kind:        binary.LittleEndian.Uint16(record[2].Data),
		id:          u32(3),
		coltypOrFDP: u32(4),
		spaceUsage:  u32(5),
		flags:       u32(6),
		locale:      u32(7),
		name:        string(record[128].Data),
	}, nil
}

// readCatalog walks MSysObjects and groups the column definitions under
// their tables in catalog order.
func readCatalog(pages *pageReader) ([]*Table, error) { // nolint:gocyclo
	walker, err := newTreeWalker(pages, CatalogPage)
	if err != nil {
		return nil, errors.Wrap(err, "catalog")
	}

	var tables []*Table
	byID := map[uint32]*Table{}
	for {
		node, err := walker.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "catalog")
		}
		record, err := parseRecord(node.Data, catalogTable, pages.header.largePages())
		if err != nil {
			return nil, errors.Wrapf(ErrCatalogCorrupt, "page %d: %s", walker.PageNumber(), err)
		}
		entry, err := parseCatalogEntry(record)
		if err != nil {
			return nil, errors.Wrapf(err, "page %d", walker.PageNumber())
		}

		switch entry.kind {
		case catalogTypeTable:
			table := &Table{Name: entry.name, ObjectID: entry.id, RootPage: entry.coltypOrFDP}
			tables = append(tables, table)
			byID[entry.id] = table
		case catalogTypeColumn:
			table, ok := byID[entry.objidTable]
			if !ok {
				return nil, errors.Wrapf(ErrCatalogCorrupt, "column %s references unknown table %d", entry.name, entry.objidTable)
			}
			columnType := ColumnType(entry.coltypOrFDP)
			if !columnType.Valid() {
				return nil, errors.Wrapf(ErrUnsupportedType, "table %s column %s has type %d", table.Name, entry.name, entry.coltypOrFDP)
			}
			table.Columns = append(table.Columns, &Column{
				Name:     entry.name,
				ID:       entry.id,
				Type:     columnType,
				Size:     entry.spaceUsage,
				CodePage: CodePage(entry.locale),
				Flags:    entry.flags,
			})
		case catalogTypeLongValue:
			table, ok := byID[entry.objidTable]
			if !ok {
				return nil, errors.Wrapf(ErrCatalogCorrupt, "long value tree %s references unknown table %d", entry.name, entry.objidTable)
			}
			table.LongValueRoot = entry.coltypOrFDP
		case catalogTypeIndex, catalogTypeCallback:
		}
	}

	for _, table := range tables {
		table.layout()
	}
	return tables, nil
}
