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
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/forensicanalysis/dumpntds"
	"github.com/forensicanalysis/dumpntds/esedb"
)

// Export is the dumpntds export commandline subcommand
func Export() *cobra.Command {
	var ntds, format, output string
	exportCommand := &cobra.Command{
		Use:   "export",
		Short: "Export datatable and link_table of an ntds.dit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase(ntds)
			if err != nil {
				return err
			}
			defer db.Close()
			return dumpntds.Export(db, afero.NewOsFs(), dumpntds.ExportOptions{
				Format:    dumpntds.Format(strings.ToLower(format)),
				OutputDir: output,
			})
		},
	}
	addNTDSFlag(exportCommand, &ntds)
	exportCommand.Flags().StringVarP(&format, "type", "t", string(dumpntds.FormatCSV), "export type (csv, json or sqlite)")
	exportCommand.Flags().StringVarP(&output, "output", "o", ".", "output directory")
	return exportCommand
}

// Validate is the dumpntds validate commandline subcommand
func Validate() *cobra.Command {
	var noFail bool
	validateCommand := &cobra.Command{
		Use:   "validate <ntds.json>",
		Short: "Validate a JSON export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := dumpntds.Validate(afero.NewOsFs(), args[0])
			if err != nil {
				return err
			}
			for _, name := range []string{"datatable", "linktable"} {
				fmt.Printf("%s: %d rows\n", name, result.Rows[name])
			}
			if len(result.Flaws) > 0 {
				for i, v := range result.Flaws {
					result.Flaws[i] = strings.Replace(v, "\"", "\\\"", -1)
				}
				fmt.Printf("[\"%s\"]\n", strings.Join(result.Flaws, "\", \""))
				if noFail {
					return nil
				}
				return errors.Errorf("%s is invalid", args[0])
			}
			return nil
		},
	}
	validateCommand.Flags().BoolVar(&noFail, "no-fail", false, "return exit code 0")
	return validateCommand
}

func addNTDSFlag(cmd *cobra.Command, ntds *string) {
	cmd.Flags().StringVarP(ntds, "ntds", "n", "", "path to ntds.dit file")
	_ = cmd.MarkFlagRequired("ntds")
}

func openDatabase(path string) (*esedb.Database, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, errors.Wrap(os.ErrNotExist, path)
	}
	return esedb.Open(afero.NewOsFs(), path)
}
