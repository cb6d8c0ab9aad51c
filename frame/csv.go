package frame

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// WriteWideCSV writes ts in wide shape:
// a header of the dimension names followed by the times,
// then one row per series.
// Series and times are written in the order given;
// use Sorted first for a canonical encoding.
func WriteWideCSV(w io.Writer, ts *Timeseries) error {
	cw := csv.NewWriter(w)
	header := append(append([]string{}, ts.Dimensions...), ts.Times...)
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "writing header")
	}
	row := make([]string, len(header))
	for _, s := range ts.Series {
		copy(row, s.Meta)
		for j, v := range s.Values {
			row[len(s.Meta)+j] = formatFloat(v)
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, "writing row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing csv")
}

// ReadWideCSV reads a timeseries written by WriteWideCSV.
// The leading columns named in dims hold series metadata
// and the rest are times.
// If dims is empty,
// the metadata columns are taken to be those before the first column whose name is a number.
func ReadWideCSV(r io.Reader, dims []string) (*Timeseries, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "reading header")
	}

	ndims := len(dims)
	if ndims == 0 {
		for ndims < len(header) {
			if _, err := strconv.ParseFloat(header[ndims], 64); err == nil {
				break
			}
			ndims++
		}
	} else {
		if len(header) < ndims {
			return nil, fmt.Errorf("header has %d columns, want at least %d", len(header), ndims)
		}
		for i, d := range dims {
			if header[i] != d {
				return nil, fmt.Errorf("column %d is %q, want dimension %q", i, header[i], d)
			}
		}
	}

	ts := &Timeseries{
		Dimensions: append([]string{}, header[:ndims]...),
		Times:      append([]string{}, header[ndims:]...),
	}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "reading line %d", line)
		}
		s := Series{
			Meta:   append([]string{}, rec[:ndims]...),
			Values: make([]float64, len(rec)-ndims),
		}
		for j, cell := range rec[ndims:] {
			if s.Values[j], err = parseFloat(cell); err != nil {
				return nil, errors.Wrapf(err, "line %d, column %q", line, ts.Times[j])
			}
		}
		ts.Series = append(ts.Series, s)
	}
	return ts, nil
}

// WriteLongCSV writes ts in long shape:
// a header of the dimension names followed by TimeColumn and ValueColumn,
// then one row per (series, time) pair.
// Rows are produced by Melt in chunks of chunkSize series.
func WriteLongCSV(w io.Writer, ts *Timeseries, chunkSize int) error {
	cw := csv.NewWriter(w)
	header := append(append([]string{}, ts.Dimensions...), TimeColumn, ValueColumn)
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "writing header")
	}
	err := ts.Melt(chunkSize, func(rows [][]string) error {
		if err := cw.WriteAll(rows); err != nil {
			return errors.Wrap(err, "writing rows")
		}
		return nil
	})
	if err != nil {
		return err
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing csv")
}

// WriteCSV writes f as CSV, index level first.
// This is the canonical serialization of a dataframe.
func WriteCSV(w io.Writer, f *Frame) error {
	cols := f.all()
	cw := csv.NewWriter(w)

	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Name
	}
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "writing header")
	}

	row := make([]string, len(cols))
	for i := 0; i < f.Len(); i++ {
		for j, c := range cols {
			row[j] = formatCell(c.Data, i)
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, "writing row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing csv")
}

// ReadCSV reads a dataframe written by WriteCSV.
// The header must match specs.
// The column named by index, if any, becomes the frame's index.
func ReadCSV(r io.Reader, specs []ColumnSpec, index string) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "reading header")
	}
	if len(header) != len(specs) {
		return nil, fmt.Errorf("got %d columns, want %d", len(header), len(specs))
	}
	for i, s := range specs {
		if header[i] != s.Name {
			return nil, fmt.Errorf("column %d is %q, want %q", i, header[i], s.Name)
		}
	}

	builders := make([]*builder, len(specs))
	for i, s := range specs {
		if builders[i], err = newBuilder(s); err != nil {
			return nil, err
		}
	}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "reading line %d", line)
		}
		for i, cell := range rec {
			if err = builders[i].parse(cell); err != nil {
				return nil, errors.Wrapf(err, "line %d, column %q", line, specs[i].Name)
			}
		}
	}
	return assemble(builders, index)
}

func assemble(builders []*builder, index string) (*Frame, error) {
	f := new(Frame)
	for _, b := range builders {
		c := b.column()
		if c.Name == index {
			f.Index = append(f.Index, c)
		} else {
			f.Columns = append(f.Columns, c)
		}
	}
	if index != "" && len(f.Index) == 0 {
		return nil, fmt.Errorf("index column %q not found", index)
	}
	return f, nil
}

// builder accumulates the values of one column.
type builder struct {
	spec ColumnSpec

	bools     []bool
	ints      []int64
	floats    []float64
	strs      []string
	times     []time.Time
	durations []time.Duration
}

func newBuilder(spec ColumnSpec) (*builder, error) {
	switch spec.Type {
	case Bool, Int64, Float64, String, Datetime, Timedelta:
		return &builder{spec: spec}, nil
	}
	return nil, fmt.Errorf("column %q has unknown type %q", spec.Name, spec.Type)
}

func (b *builder) parse(cell string) error {
	switch b.spec.Type {
	case Bool:
		v, err := strconv.ParseBool(cell)
		if err != nil {
			return err
		}
		b.bools = append(b.bools, v)

	case Int64:
		v, err := strconv.ParseInt(cell, 10, 64)
		if err != nil {
			return err
		}
		b.ints = append(b.ints, v)

	case Float64:
		v, err := parseFloat(cell)
		if err != nil {
			return err
		}
		b.floats = append(b.floats, v)

	case String:
		b.strs = append(b.strs, cell)

	case Datetime:
		v, err := time.Parse(time.RFC3339Nano, cell)
		if err != nil {
			return err
		}
		b.times = append(b.times, v.UTC())

	case Timedelta:
		v, err := time.ParseDuration(cell)
		if err != nil {
			return err
		}
		b.durations = append(b.durations, v)
	}
	return nil
}

func (b *builder) column() Column {
	c := Column{Name: b.spec.Name}
	switch b.spec.Type {
	case Bool:
		c.Data = nonNil(b.bools)
	case Int64:
		c.Data = nonNil(b.ints)
	case Float64:
		c.Data = nonNil(b.floats)
	case String:
		c.Data = nonNil(b.strs)
	case Datetime:
		c.Data = nonNil(b.times)
	case Timedelta:
		c.Data = nonNil(b.durations)
	}
	return c
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func formatCell(data interface{}, i int) string {
	switch d := data.(type) {
	case []bool:
		return strconv.FormatBool(d[i])
	case []int64:
		return strconv.FormatInt(d[i], 10)
	case []float64:
		return formatFloat(d[i])
	case []string:
		return d[i]
	case []time.Time:
		return d[i].UTC().Format(time.RFC3339Nano)
	case []time.Duration:
		return d[i].String()
	}
	return ""
}

// NaN is written as an empty cell.
func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return ""
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}
