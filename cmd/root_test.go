package cmd

import (
	"bytes"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/forensicanalysis/dumpntds/esedb"
	"github.com/forensicanalysis/dumpntds/esedb/esedbtest"
)

func stdout(f func()) []byte {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	outC := make(chan []byte)
	go func() {
		var buf bytes.Buffer
		io.Copy(&buf, r) // nolint
		outC <- buf.Bytes()
	}()

	f()

	w.Close()
	os.Stdout = old
	return <-outC
}

func setup(t *testing.T) (string, string) {
	dir, err := ioutil.TempDir("", "dumpntdscmd")
	if err != nil {
		t.Fatal(err)
	}

	f, err := esedbtest.Build(esedbtest.Options{},
		esedbtest.Table{Name: "datatable", Columns: []esedbtest.Column{
			{Name: "DNT_col", ID: 1, Type: esedb.TypeLong},
			{Name: "PDNT_col", ID: 2, Type: esedb.TypeLong},
			{Name: "ATTm3", ID: 128, Type: esedb.TypeText, CodePage: esedb.CodePageUnicode},
		}, Rows: []esedbtest.Row{
			{1: esedbtest.Raw(esedbtest.Long(1))},
			{1: esedbtest.Raw(esedbtest.Long(2)), 2: esedbtest.Raw(esedbtest.Long(1)), 128: esedbtest.Raw(esedbtest.UTF16("Administrator"))},
		}},
		esedbtest.Table{Name: "link_table", Columns: []esedbtest.Column{
			{Name: "link_DNT", ID: 1, Type: esedb.TypeLong},
			{Name: "backlink_DNT", ID: 2, Type: esedb.TypeLong},
		}, Rows: []esedbtest.Row{
			{1: esedbtest.Raw(esedbtest.Long(2)), 2: esedbtest.Raw(esedbtest.Long(1))},
		}},
	)
	if err != nil {
		t.Fatal(err)
	}

	ntdsPath := filepath.Join(dir, "ntds.dit")
	err = ioutil.WriteFile(ntdsPath, f.Bytes(), os.ModePerm)
	if err != nil {
		t.Fatal(err)
	}

	return dir, ntdsPath
}

func TestExport(t *testing.T) {
	dir, ntdsPath := setup(t)
	defer os.RemoveAll(dir)

	tests := []struct {
		name      string
		args      []string
		wantFiles []string
		wantErr   bool
	}{
		{"csv", []string{"--ntds", ntdsPath, "--output", filepath.Join(dir, "csv")}, []string{"datatable.csv", "linktable.csv"}, false},
		{"json", []string{"-n", ntdsPath, "-t", "JSON", "-o", filepath.Join(dir, "json")}, []string{"ntds.json"}, false},
		{"sqlite", []string{"-n", ntdsPath, "-t", "sqlite", "-o", filepath.Join(dir, "sqlite")}, []string{"ntds.db"}, false},
		{"unknown type", []string{"-n", ntdsPath, "-t", "xml", "-o", filepath.Join(dir, "xml")}, nil, true},
		{"missing ntds", []string{"-n", filepath.Join(dir, "missing.dit"), "-o", filepath.Join(dir, "missing")}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := Export()
			require.NoError(t, cmd.Flags().Parse(tt.args))
			err := cmd.RunE(cmd, cmd.Flags().Args())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Export() error = %v, wantErr %v", err, tt.wantErr)
			}
			for _, name := range tt.wantFiles {
				args := cmd.Flags().Lookup("output").Value.String()
				assert.FileExists(t, filepath.Join(args, name))
			}
		})
	}

	b, err := ioutil.ReadFile(filepath.Join(dir, "csv", "datatable.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "\n1\t0\t")
}

func TestInfo(t *testing.T) {
	dir, ntdsPath := setup(t)
	defer os.RemoveAll(dir)

	cmd := Info()
	require.NoError(t, cmd.Flags().Parse([]string{"--ntds", ntdsPath}))
	output := stdout(func() {
		assert.NoError(t, cmd.RunE(cmd, nil))
	})
	assert.Equal(t, int64(8192), gjson.GetBytes(output, "page_size").Int())
	assert.Equal(t, "clean shutdown", gjson.GetBytes(output, "state_name").String())
}

func TestTables(t *testing.T) {
	dir, ntdsPath := setup(t)
	defer os.RemoveAll(dir)

	cmd := Tables()
	require.NoError(t, cmd.Flags().Parse([]string{"--ntds", ntdsPath}))
	output := stdout(func() {
		assert.NoError(t, cmd.RunE(cmd, nil))
	})
	assert.Equal(t, `["datatable","link_table"]`, gjson.GetBytes(output, "#.name").Raw)
	assert.Equal(t, `[2,1]`, gjson.GetBytes(output, "#.records").Raw)
	assert.Equal(t, `["DNT_col","PDNT_col","ATTm3"]`, gjson.GetBytes(output, "0.columns.#.name").Raw)
}

func TestValidate(t *testing.T) {
	dir, ntdsPath := setup(t)
	defer os.RemoveAll(dir)

	export := Export()
	require.NoError(t, export.Flags().Parse([]string{"-n", ntdsPath, "-t", "json", "-o", dir}))
	require.NoError(t, export.RunE(export, nil))

	invalid := filepath.Join(dir, "invalid.json")
	require.NoError(t, ioutil.WriteFile(invalid, []byte(`{"datatable": [{"DNT_col": 1}]}`), 0644))

	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{"valid", []string{filepath.Join(dir, "ntds.json")}, "datatable: 2 rows\nlinktable: 1 rows\n", false},
		{"invalid", []string{invalid}, "datatable: 1 rows\nlinktable: 0 rows\n", true},
		{"no fail", []string{"--no-fail", invalid}, "datatable: 1 rows\nlinktable: 0 rows\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := Validate()
			require.NoError(t, cmd.Flags().Parse(tt.args))
			output := stdout(func() {
				err := cmd.RunE(cmd, cmd.Flags().Args())
				if (err != nil) != tt.wantErr {
					t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
				}
			})
			assert.Contains(t, string(output), tt.want)
		})
	}
}
