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

// Package dumpntds implements the dumpntds command line tool that exports
// the datatable and link_table of an Active Directory ntds.dit file.
//
//	export    Export datatable and link_table (default)
//	tables    List tables and columns
//	info      Show the database header
//	validate  Validate a JSON export
//
// # Usage
//
// Export to datatable.csv and linktable.csv
//
//	dumpntds --ntds ntds.dit
//
// Export to ntds.json
//
//	dumpntds export --ntds ntds.dit --type json --output export
//
// Validate the JSON export
//
//	dumpntds validate export/ntds.json
package main

import (
	"fmt"
	"os"

	"github.com/forensicanalysis/dumpntds/cmd"
)

func main() {
	rootCmd := cmd.Export()
	rootCmd.Use = "dumpntds"
	rootCmd.Short = "Export user data from ntds.dit files"
	rootCmd.AddCommand(cmd.Export(), cmd.Tables(), cmd.Info(), cmd.Validate())
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}
