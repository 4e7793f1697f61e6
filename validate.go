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
	"context"
	_ "embed" // document schema
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/qri-io/jsonschema"
	"github.com/spf13/afero"
	"github.com/tidwall/gjson"

	"github.com/forensicanalysis/dumpntds/esedb"
)

//go:embed ntds.schema.json
var documentSchema []byte

// Validation is the result of checking a JSON export.
type Validation struct {
	Flaws []string
	Rows  map[string]int64
}

// Validate checks a JSON export against the document schema and counts the
// rows of each table.
func Validate(fs afero.Fs, path string) (*Validation, error) {
	b, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrapf(esedb.ErrIO, "read %s: %s", path, err)
	}
	return ValidateBytes(b)
}

// ValidateBytes checks a JSON export.
func ValidateBytes(b []byte) (*Validation, error) {
	v := &Validation{Rows: map[string]int64{}}
	if !gjson.ValidBytes(b) {
		v.Flaws = append(v.Flaws, "invalid JSON")
		return v, nil
	}

	schema := &jsonschema.Schema{}
	if err := json.Unmarshal(documentSchema, schema); err != nil {
		return nil, err
	}
	errs, err := schema.ValidateBytes(context.Background(), b)
	if err != nil {
		return nil, err
	}
	for _, verr := range errs {
		v.Flaws = append(v.Flaws, fmt.Sprintf("failed to validate document: %s", verr))
	}

	for _, p := range projections(nil) {
		if rows := gjson.GetBytes(b, p.Name); rows.IsArray() {
			v.Rows[p.Name] = gjson.GetBytes(b, p.Name+".#").Int()
		}
	}
	return v, nil
}
