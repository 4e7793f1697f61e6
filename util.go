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
	"reflect"

	"github.com/fatih/structs"
	"github.com/stoewer/go-strcase"

	"github.com/forensicanalysis/dumpntds/esedb"
)

// HeaderInfo returns the database header with snake_case keys.
func HeaderInfo(h *esedb.Header) map[string]interface{} {
	info := snakeKeys(structs.Map(h)).(map[string]interface{})
	info["state_name"] = h.StateName()
	return info
}

// TableInfo describes a table and its columns with snake_case keys.
func TableInfo(table *esedb.Table) map[string]interface{} {
	var columns []interface{}
	for _, column := range table.Columns {
		columns = append(columns, structs.Map(column))
	}
	return snakeKeys(map[string]interface{}{
		"Name":          table.Name,
		"ObjectID":      table.ObjectID,
		"RootPage":      table.RootPage,
		"LongValueRoot": table.LongValueRoot,
		"Columns":       columns,
	}).(map[string]interface{})
}

// snakeKeys renames map keys to snake_case, drops empty values and replaces
// named values like column types by their names.
func snakeKeys(v interface{}) interface{} {
	switch v := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(v))
		for key, value := range v {
			if !isEmpty(value) {
				m[strcase.SnakeCase(key)] = snakeKeys(value)
			}
		}
		return m
	case []interface{}:
		l := make([]interface{}, 0, len(v))
		for _, value := range v {
			l = append(l, snakeKeys(value))
		}
		return l
	case fmt.Stringer:
		return v.String()
	default:
		return v
	}
}

func isEmpty(v interface{}) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Invalid:
		return true
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return rv.Len() == 0
	case reflect.Interface, reflect.Ptr:
		return rv.IsNil()
	}
	return false
}
