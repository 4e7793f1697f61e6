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
	"testing"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forensicanalysis/dumpntds/esedb"
)

func TestValidateBytes(t *testing.T) {
	tests := []struct {
		name      string
		document  string
		wantFlaws bool
		wantRows  map[string]int64
	}{
		{"valid", `{"datatable": [{"DNT_col": "1"}, {}], "linktable": []}`, false, map[string]int64{"datatable": 2, "linktable": 0}},
		{"missing table", `{"datatable": []}`, true, map[string]int64{"datatable": 0}},
		{"empty value", `{"datatable": [{"DNT_col": ""}], "linktable": []}`, true, map[string]int64{"datatable": 1, "linktable": 0}},
		{"number value", `{"datatable": [{"DNT_col": 1}], "linktable": []}`, true, map[string]int64{"datatable": 1, "linktable": 0}},
		{"invalid json", `{"datatable": [`, true, map[string]int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateBytes([]byte(tt.document))
			require.NoError(t, err)
			assert.Equal(t, tt.wantFlaws, len(got.Flaws) > 0, "flaws: %v", got.Flaws)
			assert.Equal(t, tt.wantRows, got.Rows)
		})
	}
}

func TestValidate(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, JSONFile, []byte(`{"datatable": [], "linktable": [{}]}`), 0644))

	got, err := Validate(fs, JSONFile)
	require.NoError(t, err)
	assert.Empty(t, got.Flaws)
	assert.Equal(t, int64(1), got.Rows["linktable"])

	_, err = Validate(fs, "missing.json")
	assert.True(t, errors.Is(err, esedb.ErrIO))
}
