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
	"encoding/binary"
	"encoding/hex"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/forensicanalysis/dumpntds/esedb"
)

// ErrColumnDecode is returned if a single value can not be decoded. The
// exporter replaces such values by an empty string.
var ErrColumnDecode = errors.New("column decode error")

// DateTimeLayout is the fixed output format of DateTime columns.
const DateTimeLayout = "01/02/2006 15:04:05"

// linkDataColumn can not be decoded by type and is always exported empty.
const linkDataColumn = "link_data_v2"

const msPerDay = 24 * 60 * 60 * 1000

var oleEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// DecodeRecord formats the given columns of a record. Null columns are
// returned as empty strings. Decode failures are logged with table, column
// and row number and yield an empty string as well.
func DecodeRecord(table string, row int, columns []*esedb.Column, record esedb.Record) map[string]string {
	values := make(map[string]string, len(columns))
	for _, column := range columns {
		value, err := FormatValue(column, record[column.ID])
		if err != nil {
			log.Printf("Error formatting %s.%s in row %d: %s", table, column.Name, row, err)
			value = ""
		}
		values[column.Name] = value
	}
	return values
}

// FormatValue formats a single value according to its column type.
func FormatValue(column *esedb.Column, value esedb.Value) (string, error) { // nolint:gocyclo
	if column.Name == linkDataColumn {
		return "", nil
	}
	if value.Err != nil {
		return "", errors.Wrap(ErrColumnDecode, value.Err.Error())
	}
	data := value.Data
	if len(data) == 0 {
		return "", nil
	}

	if size := column.Type.Size(); size > 0 && len(data) != size {
		return "", errors.Wrapf(ErrColumnDecode, "%s value of %d bytes", column.Type, len(data))
	}

	le := binary.LittleEndian
	switch column.Type {
	case esedb.TypeNull:
		return "", nil
	case esedb.TypeBit:
		if data[0] != 0 {
			return "True", nil
		}
		return "False", nil
	case esedb.TypeUnsignedByte:
		return strconv.FormatUint(uint64(data[0]), 10), nil
	case esedb.TypeShort:
		return strconv.FormatInt(int64(int16(le.Uint16(data))), 10), nil
	case esedb.TypeUnsignedShort:
		return strconv.FormatUint(uint64(le.Uint16(data)), 10), nil
	case esedb.TypeLong:
		return strconv.FormatInt(int64(int32(le.Uint32(data))), 10), nil
	case esedb.TypeUnsignedLong:
		return strconv.FormatUint(uint64(le.Uint32(data)), 10), nil
	case esedb.TypeLongLong, esedb.TypeCurrency:
		return strconv.FormatInt(int64(le.Uint64(data)), 10), nil
	case esedb.TypeUnsignedLongLong:
		return strconv.FormatUint(le.Uint64(data), 10), nil
	case esedb.TypeSingle:
		return formatFloat(float64(math.Float32frombits(le.Uint32(data))), 32), nil
	case esedb.TypeDouble:
		return formatFloat(math.Float64frombits(le.Uint64(data)), 64), nil
	case esedb.TypeDateTime:
		t, err := oleDate(math.Float64frombits(le.Uint64(data)))
		if err != nil {
			return "", err
		}
		return t.Format(DateTimeLayout), nil
	case esedb.TypeGUID:
		return formatGUID(data), nil
	case esedb.TypeText, esedb.TypeLongText:
		return decodeText(data, column.CodePage)
	default:
		return hex.EncodeToString(data), nil
	}
}

// formatFloat writes the shortest representation that reads back to the
// same value, in scientific notation for very large and very small numbers.
func formatFloat(f float64, bitSize int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	s := strconv.FormatFloat(f, 'E', -1, bitSize)
	exp, err := strconv.Atoi(s[strings.LastIndexByte(s, 'E')+1:])
	if err == nil && (exp < -4 || exp >= 15) {
		return s
	}
	return strconv.FormatFloat(f, 'f', -1, bitSize)
}

// oleDate converts an OLE automation date, the days since 1899-12-30 with
// the time of day as fraction.
func oleDate(days float64) (time.Time, error) {
	if math.IsNaN(days) || days <= -657435 || days >= 2958466 {
		return time.Time{}, errors.Wrapf(ErrColumnDecode, "date %v out of range", days)
	}
	ms := int64(days*msPerDay + math.Copysign(0.5, days))
	if ms < 0 {
		// the fraction is the time of day, also before the epoch
		ms -= (ms % msPerDay) * 2
	}
	return oleEpoch.AddDate(0, 0, int(ms/msPerDay)).Add(time.Duration(ms%msPerDay) * time.Millisecond), nil
}

// formatGUID formats a GUID stored with little endian leading fields.
func formatGUID(b []byte) string {
	var u uuid.UUID
	copy(u[:], b)
	u[0], u[1], u[2], u[3] = b[3], b[2], b[1], b[0]
	u[4], u[5] = b[5], b[4]
	u[6], u[7] = b[7], b[6]
	return u.String()
}

func decodeText(data []byte, codePage esedb.CodePage) (string, error) {
	var s string
	switch codePage {
	case esedb.CodePageUnicode:
		b, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(data)
		if err != nil {
			return "", errors.Wrap(ErrColumnDecode, err.Error())
		}
		s = string(b)
	case esedb.CodePageASCII:
		var sb strings.Builder
		for _, c := range data {
			if c > 0x7f {
				c = '?'
			}
			sb.WriteByte(c)
		}
		s = sb.String()
	case esedb.CodePageWestern:
		b, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return "", errors.Wrap(ErrColumnDecode, err.Error())
		}
		s = string(b)
	default:
		b, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return "", errors.Wrap(ErrColumnDecode, err.Error())
		}
		s = string(b)
	}
	return strings.ReplaceAll(s, "\x00", ""), nil
}
