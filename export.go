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

package dumpntds

import (
	"bufio"
	"encoding/json"
	"io"
	"log"
	"path/filepath"
	"strings"

	"github.com/imdario/mergo"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/forensicanalysis/dumpntds/esedb"
)

// Format is an output format of the exporter.
type Format string

// Supported output formats.
const (
	FormatCSV    Format = "csv"
	FormatJSON   Format = "json"
	FormatSQLite Format = "sqlite"
)

var (
	// ErrUnknownFormat is returned for unsupported output formats.
	ErrUnknownFormat = errors.New("unknown export format")
	// ErrSerialization is returned if an output document can not be created.
	ErrSerialization = errors.New("serialization error")
)

// JSONFile is the name of the JSON output file.
const JSONFile = "ntds.json"

// parentColumn holds the parent object, it is null for the root object.
const parentColumn = "PDNT_col"

var fieldReplacer = strings.NewReplacer("\t", " ", "\r", " ", "\n", " ")

// ExportOptions configure an export. Zero fields are taken from
// DefaultExportOptions.
type ExportOptions struct {
	Format    Format
	OutputDir string
	// Columns is the datatable allow-list, link_table is always exported
	// completely.
	Columns []string
}

// DefaultExportOptions returns CSV output to the working directory with the
// UserColumns allow-list.
func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		Format:    FormatCSV,
		OutputDir: ".",
		Columns:   UserColumns(),
	}
}

// Export writes datatable and link_table of the database to the output
// directory, as datatable.csv and linktable.csv, ntds.json or ntds.db.
func Export(db *esedb.Database, fs afero.Fs, opts ExportOptions) error {
	if err := mergo.Merge(&opts, DefaultExportOptions()); err != nil {
		return err
	}
	switch opts.Format {
	case FormatCSV, FormatJSON, FormatSQLite:
	default:
		return errors.Wrap(ErrUnknownFormat, string(opts.Format))
	}
	if err := fs.MkdirAll(opts.OutputDir, 0755); err != nil {
		return errors.Wrapf(esedb.ErrIO, "create %s: %s", opts.OutputDir, err)
	}

	tables := projections(opts.Columns)
	switch opts.Format {
	case FormatJSON:
		return exportJSON(db, fs, opts.OutputDir, tables)
	case FormatSQLite:
		return exportSQLite(db, fs, opts.OutputDir, tables)
	default:
		for _, p := range tables {
			if err := exportCSV(db, fs, opts.OutputDir, p); err != nil {
				return err
			}
		}
		return nil
	}
}

type tableExport struct {
	Projection
	header  []string
	columns []*esedb.Column
	schema  *RowSchema
}

func newTableExport(db *esedb.Database, p Projection) (*tableExport, error) {
	table, err := db.Table(p.Table)
	if err != nil {
		return nil, err
	}
	header, columns := p.resolve(table)
	return &tableExport{Projection: p, header: header, columns: columns, schema: NewRowSchema(header)}, nil
}

// each decodes the records of the table in storage order.
func (te *tableExport) each(db *esedb.Database, fn func(row *Row) error) error {
	cursor, err := db.OpenTable(te.Table)
	if err != nil {
		return err
	}
	defer cursor.Close() // nolint:errcheck

	count := 0
	for {
		record, err := cursor.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrapf(err, "row %d", count+1)
		}
		count++

		row := te.schema.NewRow()
		for name, value := range DecodeRecord(te.Table, count, te.columns, record) {
			row.Set(name, value)
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	log.Printf("Exported %d rows from %s", count, te.Table)
	return nil
}

// fields returns the CSV fields of a row in header order.
func (te *tableExport) fields(row *Row) []string {
	fields := make([]string, len(te.header))
	for i, name := range te.header {
		value := row.Get(name)
		if name == parentColumn && value == "" {
			value = "0"
		}
		fields[i] = fieldReplacer.Replace(value)
	}
	return fields
}

func exportCSV(db *esedb.Database, fs afero.Fs, dir string, p Projection) error {
	te, err := newTableExport(db, p)
	if err != nil {
		return err
	}

	name := filepath.Join(dir, p.Name+".csv")
	log.Printf("Writing %s", name)
	f, err := fs.Create(name)
	if err != nil {
		return errors.Wrapf(esedb.ErrIO, "create %s: %s", name, err)
	}
	defer f.Close() // nolint:errcheck

	w := bufio.NewWriter(f)
	writeLine := func(fields []string) error {
		if _, err := w.WriteString(strings.Join(fields, "\t") + "\n"); err != nil {
			return errors.Wrapf(esedb.ErrIO, "write %s: %s", name, err)
		}
		return nil
	}

	if err := writeLine(te.header); err != nil {
		return err
	}
	err = te.each(db, func(row *Row) error {
		return writeLine(te.fields(row))
	})
	if err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return errors.Wrapf(esedb.ErrIO, "write %s: %s", name, err)
	}
	return f.Close()
}

func exportJSON(db *esedb.Database, fs afero.Fs, dir string, tables []Projection) error {
	document := map[string][]*Row{}
	for _, p := range tables {
		te, err := newTableExport(db, p)
		if err != nil {
			return err
		}
		rows := []*Row{}
		err = te.each(db, func(row *Row) error {
			rows = append(rows, row)
			return nil
		})
		if err != nil {
			return err
		}
		document[p.Name] = rows
	}

	b, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return errors.Wrap(ErrSerialization, err.Error())
	}

	name := filepath.Join(dir, JSONFile)
	log.Printf("Writing %s", name)
	if err := afero.WriteFile(fs, name, b, 0644); err != nil {
		return errors.Wrapf(esedb.ErrIO, "write %s: %s", name, err)
	}
	return nil
}
