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
	"bytes"
	"encoding/json"
)

// RowSchema is the ordered set of column names of an exported table. It is
// built once per table and shared by all rows.
type RowSchema struct {
	names []string
	index map[string]int
}

// NewRowSchema creates a schema, repeated names are kept once.
func NewRowSchema(names []string) *RowSchema {
	s := &RowSchema{index: map[string]int{}}
	for _, name := range names {
		if _, ok := s.index[name]; ok {
			continue
		}
		s.index[name] = len(s.names)
		s.names = append(s.names, name)
	}
	return s
}

// Names returns the unique column names in order.
func (s *RowSchema) Names() []string {
	return s.names
}

// NewRow returns a row without values.
func (s *RowSchema) NewRow() *Row {
	return &Row{schema: s, values: make([]string, len(s.names))}
}

// Row holds the formatted values of one record. Empty values are treated
// as null.
type Row struct {
	schema *RowSchema
	values []string
}

// Set sets the value of a column and reports if the column is in the schema.
func (r *Row) Set(name, value string) bool {
	i, ok := r.schema.index[name]
	if ok {
		r.values[i] = value
	}
	return ok
}

// Get returns the value of a column or an empty string.
func (r *Row) Get(name string) string {
	if i, ok := r.schema.index[name]; ok {
		return r.values[i]
	}
	return ""
}

// MarshalJSON writes the non-empty values in schema order.
func (r *Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for i, value := range r.values {
		if value == "" {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key, err := json.Marshal(r.schema.names[i])
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
