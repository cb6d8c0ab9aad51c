// Package frame holds the tabular data stored in books:
// timeseries,
// which are written in both "wide" and "long" shapes,
// and plain dataframes.
package frame

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bobg/bookshelf"
)

// Type is the type of a dataframe column.
type Type string

// The column types a dataframe may hold.
const (
	Bool      Type = "bool"
	Int64     Type = "int64"
	Float64   Type = "float64"
	String    Type = "string"
	Datetime  Type = "datetime"
	Timedelta Type = "timedelta"
)

// ColumnSpec names and types a column.
// It is what a book's manifest records about each column of a resource.
type ColumnSpec struct {
	Name string `json:"name"`
	Type Type   `json:"type"`
}

// Column is one named column of a Frame.
//
// Data is a slice with one element per row.
// After Normalize it is one of
// []bool, []int64, []float64, []string, []time.Time or []time.Duration.
// Before that, narrower numeric slices ([]int, []int32, []float32, ...)
// and []interface{} holding only strings are also accepted.
type Column struct {
	Name string

	// Levels holds the additional levels of a hierarchical column label.
	// Such columns cannot be stored.
	Levels []string

	Data interface{}
}

// Type reports the type of a normalized column.
func (c Column) Type() Type {
	t, _, _ := normalizeData(c.Data)
	return t
}

// Len is the number of rows in the column.
func (c Column) Len() int {
	switch d := c.Data.(type) {
	case []bool:
		return len(d)
	case []int64:
		return len(d)
	case []float64:
		return len(d)
	case []string:
		return len(d)
	case []time.Time:
		return len(d)
	case []time.Duration:
		return len(d)
	}
	_, d, _ := normalizeData(c.Data)
	if d == nil {
		return 0
	}
	return Column{Data: d}.Len()
}

// Frame is a table of named, typed columns.
type Frame struct {
	// Index holds the levels of the row index.
	// At most one level can be stored.
	Index []Column

	Columns []Column
}

// Len is the number of rows in the frame.
func (f *Frame) Len() int {
	if len(f.Index) > 0 {
		return f.Index[0].Len()
	}
	if len(f.Columns) > 0 {
		return f.Columns[0].Len()
	}
	return 0
}

// Column finds a column (or index level) by name.
func (f *Frame) Column(name string) (Column, bool) {
	for _, c := range f.all() {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Specs describes the columns of a normalized frame, index level first.
func (f *Frame) Specs() []ColumnSpec {
	all := f.all()
	result := make([]ColumnSpec, 0, len(all))
	for _, c := range all {
		result = append(result, ColumnSpec{Name: c.Name, Type: c.Type()})
	}
	return result
}

// IndexName is the name of the frame's index level, or "" if it has none.
func (f *Frame) IndexName() string {
	if len(f.Index) == 0 {
		return ""
	}
	return f.Index[0].Name
}

func (f *Frame) all() []Column {
	return append(append([]Column{}, f.Index...), f.Columns...)
}

// Normalize checks that f can be stored as a resource
// and returns a copy whose column data uses only the canonical slice types.
//
// A frame is rejected, with a *bookshelf.SchemaError naming each offending column,
// if it has more than one index level,
// a hierarchical column label,
// duplicate or empty column names,
// columns of differing lengths,
// or a column whose type is not one of bool, integer, float, string, datetime or timedelta
// (for example complex numbers, or []interface{} holding anything but strings).
func (f *Frame) Normalize() (*Frame, error) {
	var problems []bookshelf.SchemaProblem

	if len(f.Index) > 1 {
		names := make([]string, 0, len(f.Index))
		for _, c := range f.Index {
			names = append(names, c.Name)
		}
		problems = append(problems, bookshelf.SchemaProblem{
			Column: strings.Join(names, ", "),
			Reason: fmt.Sprintf("hierarchical row index with %d levels", len(f.Index)),
		})
	}

	var (
		out  = &Frame{}
		seen = make(map[string]bool)
		rows = -1
	)
	normalize := func(c Column) (Column, bool) {
		ok := true
		if len(c.Levels) > 0 {
			problems = append(problems, bookshelf.SchemaProblem{
				Column: strings.Join(append([]string{c.Name}, c.Levels...), "/"),
				Reason: "hierarchical column label",
			})
			ok = false
		}
		if c.Name == "" {
			problems = append(problems, bookshelf.SchemaProblem{Reason: "empty column name"})
			ok = false
		} else if seen[c.Name] {
			problems = append(problems, bookshelf.SchemaProblem{Column: c.Name, Reason: "duplicate column name"})
			ok = false
		}
		seen[c.Name] = true

		typ, data, dtype := normalizeData(c.Data)
		if data == nil {
			problems = append(problems, bookshelf.SchemaProblem{Column: c.Name, DType: dtype, Reason: "unsupported column type"})
			return c, false
		}
		nc := Column{Name: c.Name, Data: data}
		if n := nc.Len(); rows < 0 {
			rows = n
		} else if n != rows {
			problems = append(problems, bookshelf.SchemaProblem{Column: c.Name, DType: string(typ), Reason: fmt.Sprintf("has %d rows, want %d", n, rows)})
			ok = false
		}
		return nc, ok
	}

	for _, c := range f.Index {
		if nc, ok := normalize(c); ok {
			out.Index = append(out.Index, nc)
		}
	}
	for _, c := range f.Columns {
		if nc, ok := normalize(c); ok {
			out.Columns = append(out.Columns, nc)
		}
	}

	if len(problems) > 0 {
		return nil, &bookshelf.SchemaError{Problems: problems}
	}
	return out, nil
}

// normalizeData converts data to a canonical slice type.
// When that is not possible it returns a nil slice and a description of the data's type.
func normalizeData(data interface{}) (Type, interface{}, string) {
	switch d := data.(type) {
	case []bool:
		return Bool, d, ""
	case []int64:
		return Int64, d, ""
	case []int:
		return Int64, convertInts(d), ""
	case []int8:
		return Int64, convertInts(d), ""
	case []int16:
		return Int64, convertInts(d), ""
	case []int32:
		return Int64, convertInts(d), ""
	case []uint8:
		return Int64, convertInts(d), ""
	case []uint16:
		return Int64, convertInts(d), ""
	case []uint32:
		return Int64, convertInts(d), ""
	case []float64:
		return Float64, d, ""
	case []float32:
		out := make([]float64, len(d))
		for i, v := range d {
			out[i] = float64(v)
		}
		return Float64, out, ""
	case []string:
		return String, d, ""
	case []time.Time:
		out := make([]time.Time, len(d))
		for i, v := range d {
			out[i] = v.UTC()
		}
		return Datetime, out, ""
	case []time.Duration:
		return Timedelta, d, ""
	case []interface{}:
		out := make([]string, len(d))
		for i, v := range d {
			s, ok := v.(string)
			if !ok {
				return "", nil, "object"
			}
			out[i] = s
		}
		return String, out, ""
	case []complex64:
		return "", nil, "complex64"
	case []complex128:
		return "", nil, "complex128"
	case nil:
		return "", nil, "nil"
	}
	return "", nil, fmt.Sprintf("%T", data)
}

type integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32
}

func convertInts[T integer](d []T) []int64 {
	out := make([]int64, len(d))
	for i, v := range d {
		out[i] = int64(v)
	}
	return out
}

// Equal tells whether two normalized frames hold the same data.
// NaNs compare equal to each other.
func (f *Frame) Equal(other *Frame) bool {
	if len(f.Index) != len(other.Index) || len(f.Columns) != len(other.Columns) {
		return false
	}
	a, b := f.all(), other.all()
	for i := range a {
		if !columnsEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func columnsEqual(a, b Column) bool {
	if a.Name != b.Name || a.Type() != b.Type() || a.Len() != b.Len() {
		return false
	}
	switch da := a.Data.(type) {
	case []bool:
		db := b.Data.([]bool)
		for i := range da {
			if da[i] != db[i] {
				return false
			}
		}
	case []int64:
		db := b.Data.([]int64)
		for i := range da {
			if da[i] != db[i] {
				return false
			}
		}
	case []float64:
		db := b.Data.([]float64)
		for i := range da {
			if !floatsEqual(da[i], db[i]) {
				return false
			}
		}
	case []string:
		db := b.Data.([]string)
		for i := range da {
			if da[i] != db[i] {
				return false
			}
		}
	case []time.Time:
		db := b.Data.([]time.Time)
		for i := range da {
			if !da[i].Equal(db[i]) {
				return false
			}
		}
	case []time.Duration:
		db := b.Data.([]time.Duration)
		for i := range da {
			if da[i] != db[i] {
				return false
			}
		}
	default:
		return false
	}
	return true
}

func floatsEqual(a, b float64) bool {
	return a == b || (math.IsNaN(a) && math.IsNaN(b))
}
