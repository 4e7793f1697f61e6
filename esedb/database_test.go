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

package esedb_test

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/dsnet/golib/memfile"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forensicanalysis/dumpntds/esedb"
	"github.com/forensicanalysis/dumpntds/esedb/esedbtest"
)

var objectColumns = []esedbtest.Column{
	{Name: "DNT_col", ID: 1, Type: esedb.TypeLong},
	{Name: "PDNT_col", ID: 2, Type: esedb.TypeLong},
	{Name: "ATTm3", ID: 128, Type: esedb.TypeText, CodePage: esedb.CodePageUnicode},
	{Name: "ATTk589826", ID: 256, Type: esedb.TypeLongBinary},
}

func objectRows(n int) []esedbtest.Row {
	var rows []esedbtest.Row
	for i := 0; i < n; i++ {
		rows = append(rows, esedbtest.Row{
			1:   esedbtest.Raw(esedbtest.Long(int32(i + 1))),
			2:   esedbtest.Raw(esedbtest.Long(2)),
			128: esedbtest.Raw(esedbtest.UTF16(strings.Repeat("x", i+1))),
		})
	}
	return rows
}

func build(t *testing.T, opts esedbtest.Options, tables ...esedbtest.Table) *memfile.File {
	f, err := esedbtest.Build(opts, tables...)
	require.NoError(t, err)
	return f
}

func open(t *testing.T, f *memfile.File) *esedb.Database {
	db, err := esedb.New(f, int64(len(f.Bytes())))
	require.NoError(t, err)
	return db
}

func readAll(t *testing.T, db *esedb.Database, name string) ([]esedb.Record, error) {
	cursor, err := db.OpenTable(name)
	require.NoError(t, err)
	defer cursor.Close()

	var records []esedb.Record
	for {
		record, err := cursor.Next()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return records, err
		}
		records = append(records, record)
	}
}

func TestDatabase_Tables(t *testing.T) {
	tests := []struct {
		name     string
		pageSize uint32
	}{
		{"small pages", 8192},
		{"large pages", 32768},
		{"4k pages", 4096},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := open(t, build(t, esedbtest.Options{PageSize: tt.pageSize},
				esedbtest.Table{Name: "datatable", Columns: objectColumns, Rows: objectRows(3)},
				esedbtest.Table{Name: "link_table", Columns: []esedbtest.Column{
					{Name: "link_DNT", ID: 1, Type: esedb.TypeLong},
					{Name: "backlink_DNT", ID: 2, Type: esedb.TypeLong},
				}},
			))
			defer db.Close()

			assert.Equal(t, tt.pageSize, db.Header().PageSize)
			var names []string
			for _, table := range db.Tables() {
				names = append(names, table.Name)
			}
			assert.Equal(t, []string{"datatable", "link_table"}, names)

			table, err := db.Table("datatable")
			require.NoError(t, err)
			require.Len(t, table.Columns, 4)
			column := table.Column("ATTm3")
			require.NotNil(t, column)
			assert.Equal(t, esedb.TypeText, column.Type)
			assert.Equal(t, esedb.CodePageUnicode, column.CodePage)
			assert.True(t, column.IsVariable())
			assert.Nil(t, table.Column("ATTm4"))

			records, err := readAll(t, db, "datatable")
			require.NoError(t, err)
			require.Len(t, records, 3)
			for i, record := range records {
				assert.Equal(t, esedbtest.Long(int32(i+1)), record[1].Data)
				assert.Equal(t, esedbtest.UTF16(strings.Repeat("x", i+1)), record[128].Data)
				assert.NotContains(t, record, uint32(256))
			}

			records, err = readAll(t, db, "link_table")
			require.NoError(t, err)
			assert.Empty(t, records)
		})
	}
}

func TestCursor_MultiPage(t *testing.T) {
	db := open(t, build(t, esedbtest.Options{}, esedbtest.Table{
		Name:        "datatable",
		Columns:     objectColumns,
		Rows:        objectRows(7),
		RowsPerPage: 2,
		Deleted:     []int{1, 4},
	}))

	records, err := readAll(t, db, "datatable")
	require.NoError(t, err)
	var ids []byte
	for _, record := range records {
		ids = append(ids, record[1].Data[0])
	}
	assert.Equal(t, []byte{1, 3, 4, 6, 7}, ids)

	count, err := db.CountRecords("datatable")
	require.NoError(t, err)
	assert.Equal(t, len(records), count)
}

func TestCursor_TaggedValues(t *testing.T) {
	big := bytes.Repeat([]byte("0123456789"), 150)
	columns := []esedbtest.Column{
		{Name: "id", ID: 1, Type: esedb.TypeLong},
		{Name: "blob", ID: 256, Type: esedb.TypeLongBinary},
		{Name: "multi", ID: 257, Type: esedb.TypeLongText, CodePage: esedb.CodePageUnicode},
		{Name: "packed", ID: 258, Type: esedb.TypeLongBinary},
	}
	for _, pageSize := range []uint32{8192, 32768} {
		db := open(t, build(t, esedbtest.Options{PageSize: pageSize}, esedbtest.Table{
			Name:    "datatable",
			Columns: columns,
			Rows: []esedbtest.Row{
				{
					1:   esedbtest.Raw(esedbtest.Long(1)),
					256: esedbtest.Separated(big),
					257: esedbtest.Multi(esedbtest.UTF16("a"), esedbtest.UTF16("bc")),
					258: esedbtest.Compressed([]byte{1, 2}),
				},
				{
					1:   esedbtest.Raw(esedbtest.Long(2)),
					256: esedbtest.Raw([]byte{0xca, 0xfe}),
				},
			},
		}))

		records, err := readAll(t, db, "datatable")
		require.NoError(t, err)
		require.Len(t, records, 2)

		assert.NoError(t, records[0][256].Err)
		assert.Equal(t, big, records[0][256].Data)
		assert.NoError(t, records[0][257].Err)
		assert.Equal(t, esedbtest.UTF16("a"), records[0][257].Data)
		assert.True(t, errors.Is(records[0][258].Err, esedb.ErrCompressedValue))

		assert.Equal(t, []byte{0xca, 0xfe}, records[1][256].Data)
		assert.NoError(t, records[1][256].Err)
	}
}

func TestNew_Errors(t *testing.T) {
	table := esedbtest.Table{Name: "datatable", Columns: objectColumns, Rows: objectRows(1)}
	tests := []struct {
		name    string
		opts    esedbtest.Options
		table   esedbtest.Table
		wantErr error
	}{
		{"dirty", esedbtest.Options{State: esedb.StateDirtyShutdown}, table, esedb.ErrDirtyDatabase},
		{"being converted", esedbtest.Options{State: esedb.StateBeingConverted}, table, esedb.ErrDirtyDatabase},
		{"unknown table", esedbtest.Options{Catalog: []esedbtest.CatalogEntry{
			{ObjidTable: 999, Type: 2, ID: 1, ColtypOrFDP: uint32(esedb.TypeLong), Name: "orphan"},
		}}, table, esedb.ErrCatalogCorrupt},
		{"unsupported type", esedbtest.Options{}, esedbtest.Table{Name: "slv", Columns: []esedbtest.Column{
			{Name: "x", ID: 256, Type: esedb.ColumnType(13)},
		}}, esedb.ErrUnsupportedType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := build(t, tt.opts, tt.table)
			_, err := esedb.New(f, int64(len(f.Bytes())))
			assert.True(t, errors.Is(err, tt.wantErr), "New() error = %v, want %v", err, tt.wantErr)
		})
	}

	_, err := esedb.New(bytes.NewReader(make([]byte, 4*8192)), 4*8192)
	assert.True(t, errors.Is(err, esedb.ErrNotESEDatabase))

	_, err = esedb.New(bytes.NewReader(nil), 0)
	assert.True(t, errors.Is(err, esedb.ErrIO))
}

func TestDatabase_Corrupt(t *testing.T) {
	f := build(t, esedbtest.Options{}, esedbtest.Table{
		Name:        "datatable",
		Columns:     objectColumns,
		Rows:        objectRows(3),
		RowsPerPage: 1,
	})
	b := f.Bytes()

	// catalog on page 4, table root on page 5
	truncated := bytes.NewReader(b[:6*8192])
	db, err := esedb.New(truncated, truncated.Size())
	require.NoError(t, err)
	_, err = db.OpenTable("datatable")
	assert.True(t, errors.Is(err, esedb.ErrIO))

	_, err = db.OpenTable("sd_table")
	assert.True(t, errors.Is(err, esedb.ErrTableNotFound))

	// leaves on pages 6 to 8, link page 7 back to page 6
	_, err = f.WriteAt(esedbtest.ULong(6), 8*8192+20)
	require.NoError(t, err)
	db = open(t, f)
	records, err := readAll(t, db, "datatable")
	assert.True(t, errors.Is(err, esedb.ErrCorruptPage))
	assert.Len(t, records, 2)

	count, err := db.CountRecords("datatable")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestCursor_DamagedColumn(t *testing.T) {
	var rows []esedbtest.Row
	for i, name := range []string{"alpha", "beta", "gamma"} {
		rows = append(rows, esedbtest.Row{
			1:   esedbtest.Raw(esedbtest.Long(int32(i + 1))),
			2:   esedbtest.Raw(esedbtest.Long(2)),
			128: esedbtest.Raw(esedbtest.UTF16(name)),
		})
	}
	f := build(t, esedbtest.Options{}, esedbtest.Table{Name: "datatable", Columns: objectColumns, Rows: rows})

	// the only variable end precedes the variable data
	at := bytes.Index(f.Bytes(), esedbtest.UTF16("beta"))
	require.Greater(t, at, 2)
	require.Equal(t, esedbtest.UShort(8), f.Bytes()[at-2:at])
	_, err := f.WriteAt(esedbtest.UShort(0xff), int64(at-2))
	require.NoError(t, err)

	records, err := readAll(t, open(t, f), "datatable")
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, esedbtest.UTF16("alpha"), records[0][128].Data)
	assert.Equal(t, esedbtest.UTF16("gamma"), records[2][128].Data)

	damaged := records[1]
	assert.Equal(t, esedbtest.Long(2), damaged[1].Data)
	assert.Equal(t, esedbtest.Long(2), damaged[2].Data)
	assert.Nil(t, damaged[128].Data)
	assert.True(t, errors.Is(damaged[128].Err, esedb.ErrCorruptRecord))
}

func TestOpen(t *testing.T) {
	fs := afero.NewMemMapFs()
	f := build(t, esedbtest.Options{}, esedbtest.Table{Name: "datatable", Columns: objectColumns, Rows: objectRows(2)})
	require.NoError(t, afero.WriteFile(fs, "ntds.dit", f.Bytes(), 0644))

	db, err := esedb.Open(fs, "ntds.dit")
	require.NoError(t, err)
	defer db.Close()

	page, err := db.ReadPage(esedb.CatalogPage)
	require.NoError(t, err)
	assert.True(t, page.IsRoot())
	assert.True(t, page.IsLeaf())

	_, err = esedb.Open(fs, "missing.dit")
	assert.True(t, errors.Is(err, esedb.ErrIO))
}
