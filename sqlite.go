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
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"strings"

	"crawshaw.io/sqlite"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/forensicanalysis/dumpntds/esedb"
)

// SQLiteFile is the name of the SQLite output file.
const SQLiteFile = "ntds.db"

const (
	dumpntdsApplicationID = 0x6e746473
	sqliteVersion         = 1
)

// identify stamps the file so it can be told apart from other SQLite
// databases.
func identify(conn *sqlite.Conn) error {
	for _, p := range []struct {
		name  string
		value int64
	}{
		{"application_id", dumpntdsApplicationID},
		{"user_version", sqliteVersion},
	} {
		if err := exec(conn, fmt.Sprintf("PRAGMA %s = %d", p.name, p.value)); err != nil {
			return err
		}
	}
	return nil
}

// exec runs a single statement without result rows.
func exec(conn *sqlite.Conn, query string) error {
	stmt, _, err := conn.PrepareTransient(query)
	if err != nil {
		return errors.Wrapf(ErrSerialization, "prepare %s: %s", query, err)
	}
	defer stmt.Finalize() // nolint:errcheck
	if _, err := stmt.Step(); err != nil {
		return errors.Wrapf(ErrSerialization, "%s: %s", query, err)
	}
	return nil
}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// exportSQLite writes one TEXT table per projection, empty values are
// stored as NULL. The database is created in a temporary directory and
// copied to fs afterwards.
func exportSQLite(db *esedb.Database, fs afero.Fs, dir string, tables []Projection) error {
	tmp, err := ioutil.TempDir("", "dumpntds")
	if err != nil {
		return errors.Wrapf(esedb.ErrIO, "create temporary directory: %s", err)
	}
	defer os.RemoveAll(tmp) // nolint:errcheck

	path := filepath.Join(tmp, SQLiteFile)
	conn, err := sqlite.OpenConn(path, sqlite.SQLITE_OPEN_READWRITE|sqlite.SQLITE_OPEN_CREATE)
	if err != nil {
		return errors.Wrapf(esedb.ErrIO, "open %s: %s", path, err)
	}
	if err := writeSQLite(db, conn, tables); err != nil {
		conn.Close() // nolint:errcheck
		return err
	}
	if err := conn.Close(); err != nil {
		return errors.Wrapf(esedb.ErrIO, "close %s: %s", path, err)
	}

	b, err := ioutil.ReadFile(path) // #nosec
	if err != nil {
		return errors.Wrapf(esedb.ErrIO, "read %s: %s", path, err)
	}
	name := filepath.Join(dir, SQLiteFile)
	log.Printf("Writing %s", name)
	if err := afero.WriteFile(fs, name, b, 0644); err != nil {
		return errors.Wrapf(esedb.ErrIO, "write %s: %s", name, err)
	}
	return nil
}

func writeSQLite(db *esedb.Database, conn *sqlite.Conn, tables []Projection) error {
	if err := identify(conn); err != nil {
		return err
	}
	if err := exec(conn, "BEGIN"); err != nil {
		return err
	}
	for _, p := range tables {
		if err := writeTable(db, conn, p); err != nil {
			exec(conn, "ROLLBACK") // nolint:errcheck
			return err
		}
	}
	return exec(conn, "COMMIT")
}

func writeTable(db *esedb.Database, conn *sqlite.Conn, p Projection) error {
	te, err := newTableExport(db, p)
	if err != nil {
		return err
	}

	names := te.schema.Names()
	if len(names) == 0 {
		log.Printf("Skipping %s without columns", p.Table)
		return nil
	}
	columns := make([]string, len(names))
	params := make([]string, len(names))
	for i, name := range names {
		columns[i] = quote(name) + " TEXT"
		params[i] = "?"
	}
	if err := exec(conn, fmt.Sprintf("CREATE TABLE %s (%s)", quote(p.Name), strings.Join(columns, ", "))); err != nil {
		return errors.Wrapf(err, "create table %s", p.Name)
	}

	query := fmt.Sprintf("INSERT INTO %s VALUES (%s)", quote(p.Name), strings.Join(params, ", ")) // #nosec
	stmt, err := conn.Prepare(query)
	if err != nil {
		return err
	}
	err = te.each(db, func(row *Row) error {
		for i, name := range names {
			value := row.Get(name)
			if value == "" {
				stmt.BindNull(i + 1)
			} else {
				stmt.BindText(i+1, value)
			}
		}
		if _, err := stmt.Step(); err != nil {
			return errors.Wrapf(err, "insert into %s", p.Name)
		}
		return stmt.Reset()
	})
	if err != nil {
		stmt.Finalize() // nolint:errcheck
		return err
	}
	return stmt.Finalize()
}
