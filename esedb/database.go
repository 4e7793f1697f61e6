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

// Package esedb reads tables of Extensible Storage Engine (ESE) databases
// such as the Active Directory ntds.dit. The database is accessed read-only,
// transaction logs are not replayed.
package esedb

import (
	"io"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Database is a read-only ESE database.
type Database struct {
	header *Header
	pages  *pageReader
	tables []*Table
	closer io.Closer
}

// Open opens the database file at path.
func Open(fs afero.Fs, path string) (*Database, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.Wrapf(ErrIO, "open %s: %s", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close() // nolint:errcheck
		return nil, errors.Wrapf(ErrIO, "stat %s: %s", path, err)
	}

	db, err := New(f, info.Size())
	if err != nil {
		f.Close() // nolint:errcheck
		return nil, errors.Wrap(err, path)
	}
	db.closer = f
	return db, nil
}

// New reads the database from r, size is the size of the database file.
func New(r io.ReaderAt, size int64) (*Database, error) {
	header, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	if err := header.CheckState(); err != nil {
		return nil, err
	}

	db := &Database{header: header, pages: newPageReader(r, size, header)}
	db.tables, err = readCatalog(db.pages)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// Header returns the database file header.
func (db *Database) Header() *Header {
	return db.header
}

// Tables returns all tables in catalog order.
func (db *Database) Tables() []*Table {
	return db.tables
}

// Table returns the definition of the named table.
func (db *Database) Table(name string) (*Table, error) {
	for _, table := range db.tables {
		if table.Name == name {
			return table, nil
		}
	}
	return nil, errors.Wrap(ErrTableNotFound, name)
}

// ReadPage reads a single page.
func (db *Database) ReadPage(number uint32) (*Page, error) {
	return db.pages.ReadPage(number)
}

// OpenTable returns a cursor positioned before the first record of the table.
func (db *Database) OpenTable(name string) (*Cursor, error) {
	table, err := db.Table(name)
	if err != nil {
		return nil, err
	}
	walker, err := newTreeWalker(db.pages, table.RootPage)
	if err != nil {
		return nil, errors.Wrapf(err, "table %s", name)
	}
	return &Cursor{db: db, table: table, walker: walker}, nil
}

// CountRecords counts the live records of a table by visiting every leaf
// reachable through branch pages, without following sibling links and
// without parsing records.
func (db *Database) CountRecords(name string) (int, error) {
	table, err := db.Table(name)
	if err != nil {
		return 0, err
	}
	return db.countLeafEntries(table.RootPage, mapset.NewThreadUnsafeSet[uint32]())
}

func (db *Database) countLeafEntries(number uint32, visited mapset.Set[uint32]) (int, error) {
	if !visited.Add(number) {
		return 0, errors.Wrapf(ErrCorruptPage, "page %d visited twice", number)
	}
	page, err := db.pages.ReadPage(number)
	if err != nil {
		return 0, err
	}

	count := 0
	for i := 1; i < page.TagCount; i++ {
		tag, err := page.Tag(i)
		if err != nil {
			return 0, err
		}
		if tag.Flags&TagFlagDefunct != 0 {
			continue
		}
		if page.IsLeaf() {
			count++
			continue
		}
		entry, err := page.Entry(i)
		if err != nil {
			return 0, err
		}
		child, err := entry.ChildPage()
		if err != nil {
			return 0, err
		}
		n, err := db.countLeafEntries(child, visited)
		if err != nil {
			return 0, err
		}
		count += n
	}
	return count, nil
}

// Close closes the underlying file if the database was opened by Open.
func (db *Database) Close() error {
	if db.closer == nil {
		return nil
	}
	return db.closer.Close()
}
