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

import "github.com/pkg/errors"

var (
	// ErrIO is returned for short reads, out of range pages and unreadable files.
	ErrIO = errors.New("i/o error")
	// ErrNotESEDatabase is returned if the file signature does not match.
	ErrNotESEDatabase = errors.New("not an ESE database")
	// ErrDirtyDatabase is returned for databases that require recovery.
	ErrDirtyDatabase = errors.New("database was not shut down cleanly")
	// ErrCorruptPage is returned for structurally invalid pages or trees.
	ErrCorruptPage = errors.New("corrupt page")
	// ErrCorruptRecord is returned if a record can not be split into columns.
	ErrCorruptRecord = errors.New("corrupt record")
	// ErrCatalogCorrupt is returned for inconsistent catalog entries.
	ErrCatalogCorrupt = errors.New("catalog corrupt")
	// ErrUnsupportedType is returned for column types the reader can not decode.
	ErrUnsupportedType = errors.New("unsupported column type")
	// ErrTableNotFound is returned by OpenTable for unknown table names.
	ErrTableNotFound = errors.New("table not found")
	// ErrLongValueNotFound is returned if a separated value is missing from the long value tree.
	ErrLongValueNotFound = errors.New("long value not found")
)
