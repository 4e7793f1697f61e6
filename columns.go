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
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/forensicanalysis/dumpntds/esedb"
)

// UserColumns returns the datatable columns needed by ntdsxtract to parse
// user accounts including their password hashes. The list contains
// ATTj589993 twice, the column is exported twice in CSV output.
func UserColumns() []string {
	return []string{
		"DNT_col", "PDNT_col", "time_col", "Ancestors_col", "ATTb590606", "ATTm3", "ATTm589825",
		"ATTk589826", "ATTl131074", "ATTl131075", "ATTq131091", "ATTq131192", "OBJ_col", "ATTi131120",
		"ATTb590605", "ATTr589970", "ATTm590045", "ATTm590480", "ATTj590126", "ATTj589832",
		"ATTq589876", "ATTq591520", "ATTq589983", "ATTq589920", "ATTq589873", "ATTj589993",
		"ATTj589836", "ATTj589922", "ATTk589914", "ATTk589879", "ATTk589918", "ATTk589984",
		"ATTk591734", "ATTk36", "ATTk589949", "ATTj589993", "ATTm590443", "ATTm590187",
		"ATTm590188", "ATTm591788", "ATTk591823", "ATTk591822", "ATTk591789", "ATTi590943",
		"ATTk590689",
	}
}

// Projection selects the exported columns of a table.
type Projection struct {
	// Table is the name of the table in the database.
	Table string
	// Name is used for the output file and the JSON key.
	Name string
	// Columns lists the exported columns in output order. All columns are
	// exported in catalog order if Columns is nil.
	Columns []string
}

func projections(columns []string) []Projection {
	return []Projection{
		{Table: "datatable", Name: "datatable", Columns: columns},
		{Table: "link_table", Name: "linktable"},
	}
}

// resolve returns the output header and the table columns to decode in
// catalog order. Listed columns missing in the table stay in the header.
func (p Projection) resolve(table *esedb.Table) ([]string, []*esedb.Column) {
	if p.Columns == nil {
		header := make([]string, 0, len(table.Columns))
		for _, column := range table.Columns {
			header = append(header, column.Name)
		}
		return header, table.Columns
	}

	allowed := mapset.NewThreadUnsafeSet[string](p.Columns...)
	var columns []*esedb.Column
	for _, column := range table.Columns {
		if allowed.Contains(column.Name) {
			columns = append(columns, column)
		}
	}
	return p.Columns, columns
}
