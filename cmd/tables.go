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

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forensicanalysis/dumpntds"
)

// Tables is the dumpntds tables commandline subcommand
func Tables() *cobra.Command {
	var ntds string
	tablesCommand := &cobra.Command{
		Use:   "tables",
		Short: "List tables and columns of an ntds.dit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase(ntds)
			if err != nil {
				return err
			}
			defer db.Close()

			var tables []map[string]interface{}
			for _, table := range db.Tables() {
				info := dumpntds.TableInfo(table)
				info["records"], err = db.CountRecords(table.Name)
				if err != nil {
					return err
				}
				tables = append(tables, info)
			}
			b, err := json.Marshal(tables)
			if err != nil {
				return err
			}
			fmt.Printf("%s\n", b)
			return nil
		},
	}
	addNTDSFlag(tablesCommand, &ntds)
	return tablesCommand
}

// Info is the dumpntds info commandline subcommand
func Info() *cobra.Command {
	var ntds string
	infoCommand := &cobra.Command{
		Use:   "info",
		Short: "Show the database header of an ntds.dit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase(ntds)
			if err != nil {
				return err
			}
			defer db.Close()

			b, err := json.Marshal(dumpntds.HeaderInfo(db.Header()))
			if err != nil {
				return err
			}
			fmt.Printf("%s\n", b)
			return nil
		},
	}
	addNTDSFlag(infoCommand, &ntds)
	return infoCommand
}
