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

// Package esedbtest writes small ESE database images for tests.
package esedbtest

import (
	"encoding/binary"
	"sort"

	"github.com/dsnet/golib/memfile"
	"github.com/pkg/errors"

	"github.com/forensicanalysis/dumpntds/esedb"
)

const longValueChunkSize = 512

// Column describes a column of a synthetic table. Fixed columns (ids below
// 128) must be numbered consecutively from 1.
type Column struct {
	Name     string
	ID       uint32
	Type     esedb.ColumnType
	Size     uint32
	CodePage esedb.CodePage
}

// Cell is the stored content of a column in a row.
type Cell struct {
	Data       []byte
	Separated  bool
	Multi      [][]byte
	Compressed bool
}

// Raw stores b inline.
func Raw(b []byte) Cell { return Cell{Data: b} }

// Separated stores b in the long value tree of the table.
func Separated(b []byte) Cell { return Cell{Data: b, Separated: true} }

// Multi stores a multi valued tagged column.
func Multi(values ...[]byte) Cell { return Cell{Multi: values} }

// Compressed stores b with the compressed flag set.
func Compressed(b []byte) Cell { return Cell{Data: b, Compressed: true} }

// Row maps column ids to cells, absent columns are null.
type Row map[uint32]Cell

// Table is a synthetic table.
type Table struct {
	Name        string
	Columns     []Column
	Rows        []Row
	RowsPerPage int
	Deleted     []int
}

// CatalogEntry is an additional raw MSysObjects record.
type CatalogEntry struct {
	ObjidTable  uint32
	Type        uint16
	ID          uint32
	ColtypOrFDP uint32
	SpaceUsage  uint32
	Locale      uint32
	Name        string
}

// Options control the database file format.
type Options struct {
	PageSize uint32
	Revision uint32
	State    uint32
	Catalog  []CatalogEntry
}

type node struct {
	key   []byte
	data  []byte
	flags uint16
}

type builder struct {
	opts  Options
	file  *memfile.File
	next  uint32
	large bool
}

// Build writes the tables into a new database image.
func Build(opts Options, tables ...Table) (*memfile.File, error) {
	if opts.PageSize == 0 {
		opts.PageSize = 8192
	}
	if opts.Revision == 0 {
		opts.Revision = 0x14
	}
	if opts.State == 0 {
		opts.State = esedb.StateCleanShutdown
	}
	b := &builder{
		opts:  opts,
		file:  memfile.New(make([]byte, 0)),
		next:  esedb.CatalogPage + 1,
		large: opts.Revision >= 0x11 && opts.PageSize > 8192,
	}

	var catalog []CatalogEntry
	for i, table := range tables {
		objid := uint32(100 + i)
		entries, err := b.writeTable(objid, table)
		if err != nil {
			return nil, errors.Wrap(err, table.Name)
		}
		catalog = append(catalog, entries...)
	}
	catalog = append(catalog, opts.Catalog...)

	var nodes []node
	for i, entry := range catalog {
		data, err := encodeRecord(catalogColumns, catalogRow(entry), nil, b.large)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node{key: key(uint32(i)), data: data})
	}
	if err := b.writeTree(esedb.CatalogPage, 2, nodes, 0, 0); err != nil {
		return nil, errors.Wrap(err, "catalog")
	}

	for page := uint32(1); page < esedb.CatalogPage; page++ {
		if err := b.writePage(page, 1, esedb.PageFlagRoot|esedb.PageFlagLeaf, 0, 0, nil); err != nil {
			return nil, err
		}
	}
	b.writeHeader()
	return b.file, nil
}

func (b *builder) allocate() uint32 {
	page := b.next
	b.next++
	return page
}

func (b *builder) writeTable(objid uint32, table Table) ([]CatalogEntry, error) {
	lv := &longValueWriter{}
	deleted := map[int]bool{}
	for _, i := range table.Deleted {
		deleted[i] = true
	}

	var nodes []node
	for i, row := range table.Rows {
		data, err := encodeRecord(table.Columns, row, lv, b.large)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", i)
		}
		n := node{key: key(uint32(i)), data: data}
		if deleted[i] {
			n.flags = esedb.TagFlagDefunct
		}
		nodes = append(nodes, n)
	}

	root := b.allocate()
	if err := b.writeTree(root, objid, nodes, table.RowsPerPage, 0); err != nil {
		return nil, err
	}
	entries := []CatalogEntry{{ObjidTable: objid, Type: 1, ID: objid, ColtypOrFDP: root, Name: table.Name}}
	for _, column := range table.Columns {
		entries = append(entries, CatalogEntry{
			ObjidTable:  objid,
			Type:        2,
			ID:          column.ID,
			ColtypOrFDP: uint32(column.Type),
			SpaceUsage:  columnSize(column),
			Locale:      uint32(column.CodePage),
			Name:        column.Name,
		})
	}

	if len(lv.nodes) > 0 {
		lvRoot := b.allocate()
		if err := b.writeTree(lvRoot, objid, lv.nodes, table.RowsPerPage, esedb.PageFlagLongValue); err != nil {
			return nil, err
		}
		entries = append(entries, CatalogEntry{ObjidTable: objid, Type: 4, ID: objid + 1000, ColtypOrFDP: lvRoot, Name: "LV"})
	}
	return entries, nil
}

// writeTree writes a single leaf page, or a branch root page with perPage
// entries on each leaf.
func (b *builder) writeTree(root, objid uint32, nodes []node, perPage int, flags uint32) error {
	if perPage <= 0 || len(nodes) <= perPage {
		return b.writePage(root, objid, esedb.PageFlagRoot|esedb.PageFlagLeaf|flags, 0, 0, nodes)
	}

	var leaves [][]node
	for start := 0; start < len(nodes); start += perPage {
		end := start + perPage
		if end > len(nodes) {
			end = len(nodes)
		}
		leaves = append(leaves, nodes[start:end])
	}
	pages := make([]uint32, len(leaves))
	for i := range leaves {
		pages[i] = b.allocate()
	}

	var branches []node
	for i, leaf := range leaves {
		var prev, next uint32
		if i > 0 {
			prev = pages[i-1]
		}
		if i+1 < len(pages) {
			next = pages[i+1]
		}
		if err := b.writePage(pages[i], objid, esedb.PageFlagLeaf|flags, prev, next, leaf); err != nil {
			return err
		}
		child := make([]byte, 4)
		binary.LittleEndian.PutUint32(child, pages[i])
		branches = append(branches, node{key: leaf[len(leaf)-1].key, data: child})
	}
	return b.writePage(root, objid, esedb.PageFlagRoot|esedb.PageFlagParent|flags, 0, 0, branches)
}

func (b *builder) writePage(number, objid, flags, prev, next uint32, nodes []node) error {
	le := binary.LittleEndian
	pageSize := int(b.opts.PageSize)
	headerSize := 40
	if b.large {
		headerSize = 80
	}
	page := make([]byte, pageSize)

	le.PutUint32(page[16:], prev)
	le.PutUint32(page[20:], next)
	le.PutUint32(page[24:], objid)
	le.PutUint16(page[34:], uint16(len(nodes)+1))
	le.PutUint32(page[36:], flags)

	total := 0
	for _, n := range nodes {
		total += 2 + len(n.key) + len(n.data)
	}
	if headerSize+total > pageSize-4*(len(nodes)+1) {
		return errors.Errorf("page %d: %d nodes do not fit", number, len(nodes))
	}

	offset := 0
	for i, n := range nodes {
		data := make([]byte, 2, 2+len(n.key)+len(n.data))
		le.PutUint16(data, uint16(len(n.key)))
		data = append(data, n.key...)
		data = append(data, n.data...)

		tagPos := pageSize - 4*(i+2)
		copy(page[headerSize+offset:], data)
		if b.large {
			page[headerSize+offset+1] |= byte(n.flags << 5)
			le.PutUint16(page[tagPos:], uint16(len(data)))
			le.PutUint16(page[tagPos+2:], uint16(offset))
		} else {
			le.PutUint16(page[tagPos:], uint16(len(data)))
			le.PutUint16(page[tagPos+2:], uint16(offset)|n.flags<<13)
		}
		offset += len(data)
	}
	le.PutUint16(page[32:], uint16(offset))

	_, err := b.file.WriteAt(page, int64(number+1)*int64(pageSize))
	return err
}

func (b *builder) writeHeader() {
	le := binary.LittleEndian
	header := make([]byte, b.opts.PageSize)
	le.PutUint32(header[4:], 0x89abcdef)
	le.PutUint32(header[8:], 0x620)
	le.PutUint32(header[52:], b.opts.State)
	le.PutUint32(header[232:], b.opts.Revision)
	le.PutUint32(header[236:], b.opts.PageSize)
	b.file.WriteAt(header, 0)                      // nolint:errcheck
	b.file.WriteAt(header, int64(b.opts.PageSize)) // nolint:errcheck
}

func key(i uint32) []byte {
	k := make([]byte, 4)
	binary.BigEndian.PutUint32(k, i)
	return k
}

func columnSize(column Column) uint32 {
	if column.Size > 0 {
		return column.Size
	}
	return uint32(column.Type.Size())
}

var catalogColumns = []Column{
	{Name: "ObjidTable", ID: 1, Type: esedb.TypeLong},
	{Name: "Type", ID: 2, Type: esedb.TypeShort},
	{Name: "Id", ID: 3, Type: esedb.TypeLong},
	{Name: "ColtypOrPgnoFDP", ID: 4, Type: esedb.TypeLong},
	{Name: "SpaceUsage", ID: 5, Type: esedb.TypeLong},
	{Name: "Flags", ID: 6, Type: esedb.TypeLong},
	{Name: "PagesOrLocale", ID: 7, Type: esedb.TypeLong},
	{Name: "Name", ID: 128, Type: esedb.TypeText, CodePage: esedb.CodePageASCII},
}

func catalogRow(entry CatalogEntry) Row {
	return Row{
		1:   Raw(Long(int32(entry.ObjidTable))),
		2:   Raw(Short(int16(entry.Type))),
		3:   Raw(Long(int32(entry.ID))),
		4:   Raw(Long(int32(entry.ColtypOrFDP))),
		5:   Raw(Long(int32(entry.SpaceUsage))),
		6:   Raw(Long(0)),
		7:   Raw(Long(int32(entry.Locale))),
		128: Raw([]byte(entry.Name)),
	}
}

type longValueWriter struct {
	nextID uint32
	nodes  []node
}

// add stores b and returns the little endian reference kept in the record.
func (lv *longValueWriter) add(b []byte) []byte {
	lv.nextID++
	id := make([]byte, 4)
	binary.BigEndian.PutUint32(id, lv.nextID)

	root := make([]byte, 8)
	binary.LittleEndian.PutUint32(root, 1)
	binary.LittleEndian.PutUint32(root[4:], uint32(len(b)))
	lv.nodes = append(lv.nodes, node{key: id, data: root})
	for offset := 0; offset < len(b); offset += longValueChunkSize {
		end := offset + longValueChunkSize
		if end > len(b) {
			end = len(b)
		}
		k := make([]byte, 8)
		copy(k, id)
		binary.BigEndian.PutUint32(k[4:], uint32(offset))
		lv.nodes = append(lv.nodes, node{key: k, data: b[offset:end]})
	}

	ref := make([]byte, 4)
	binary.LittleEndian.PutUint32(ref, lv.nextID)
	return ref
}

// encodeRecord lays out a record. Tagged values carry a flag byte if they
// have flags, or always on large pages.
func encodeRecord(columns []Column, row Row, lv *longValueWriter, large bool) ([]byte, error) { // nolint:gocyclo,funlen
	le := binary.LittleEndian
	sorted := append([]Column{}, columns...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var fixed, variable, tagged []Column
	for _, column := range sorted {
		switch {
		case column.ID < 128:
			if column.ID != uint32(len(fixed)+1) {
				return nil, errors.Errorf("fixed column %s has id %d", column.Name, column.ID)
			}
			fixed = append(fixed, column)
		case column.ID < 256:
			variable = append(variable, column)
		default:
			tagged = append(tagged, column)
		}
	}

	lastFixed := 0
	for _, column := range fixed {
		if _, ok := row[column.ID]; ok {
			lastFixed = int(column.ID)
		}
	}
	lastVariable := 127
	for _, column := range variable {
		if _, ok := row[column.ID]; ok {
			lastVariable = int(column.ID)
		}
	}

	record := make([]byte, 4)
	bitmap := make([]byte, (lastFixed+7)/8)
	for _, column := range fixed[:lastFixed] {
		size := int(columnSize(column))
		cell, ok := row[column.ID]
		if !ok {
			bit := column.ID - 1
			bitmap[bit/8] |= 1 << (bit % 8)
			record = append(record, make([]byte, size)...)
			continue
		}
		if len(cell.Data) != size {
			return nil, errors.Errorf("fixed column %s needs %d bytes, got %d", column.Name, size, len(cell.Data))
		}
		record = append(record, cell.Data...)
	}
	record = append(record, bitmap...)
	variableOffset := len(record)

	byID := map[uint32]bool{}
	for _, column := range variable {
		byID[column.ID] = true
	}
	offsets := make([]byte, 2*(lastVariable-127))
	var data []byte
	for id := 128; id <= lastVariable; id++ {
		raw := uint16(len(data))
		if cell, ok := row[uint32(id)]; ok && byID[uint32(id)] {
			data = append(data, cell.Data...)
			raw = uint16(len(data))
		} else {
			raw |= 0x8000
		}
		le.PutUint16(offsets[2*(id-128):], raw)
	}
	record = append(record, offsets...)
	record = append(record, data...)

	var items [][]byte
	var ids []uint32
	for _, column := range tagged {
		cell, ok := row[column.ID]
		if !ok {
			continue
		}
		var flags byte
		value := cell.Data
		switch {
		case cell.Multi != nil:
			flags = esedb.TaggedMultiValue
			value = encodeMulti(cell.Multi)
		case cell.Separated:
			if lv == nil {
				return nil, errors.Errorf("column %s can not be separated", column.Name)
			}
			flags = esedb.TaggedLongValue
			value = lv.add(cell.Data)
		case cell.Compressed:
			flags = esedb.TaggedCompressed
		}
		items = append(items, append([]byte{flags}, value...))
		ids = append(ids, column.ID)
	}
	if len(items) > 0 {
		array := make([]byte, 4*len(items))
		var tagData []byte
		for i, item := range items {
			raw := uint16(len(array) + len(tagData))
			switch {
			case large:
			case item[0] != 0:
				raw |= 0x4000
			default:
				item = item[1:]
			}
			le.PutUint16(array[4*i:], uint16(ids[i]))
			le.PutUint16(array[4*i+2:], raw)
			tagData = append(tagData, item...)
		}
		record = append(record, array...)
		record = append(record, tagData...)
	}

	record[0] = byte(lastFixed)
	record[1] = byte(lastVariable)
	le.PutUint16(record[2:], uint16(variableOffset))
	return record, nil
}

func encodeMulti(values [][]byte) []byte {
	offsets := make([]byte, 2*len(values))
	var data []byte
	for i, value := range values {
		binary.LittleEndian.PutUint16(offsets[2*i:], uint16(len(offsets)+len(data)))
		data = append(data, value...)
	}
	return append(offsets, data...)
}
