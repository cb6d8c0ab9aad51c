package frame

import (
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"
)

// Parallelism passed to the parquet reader and writer.
const parquetNP = 1

// Columns are stored under positional names (c0, c1, ...),
// since the parquet writer's tag syntax cannot quote arbitrary column names.
// The manifest's column list carries the real names.
// Datetimes and timedeltas are stored as int64 nanoseconds;
// the manifest's column types say how to read them back.
func parquetMetadata(pos int, spec ColumnSpec) (string, error) {
	var typ string
	switch spec.Type {
	case Bool:
		typ = "type=BOOLEAN"
	case Int64, Datetime, Timedelta:
		typ = "type=INT64"
	case Float64:
		typ = "type=DOUBLE"
	case String:
		typ = "type=BYTE_ARRAY, convertedtype=UTF8"
	default:
		return "", fmt.Errorf("column %q has unknown type %q", spec.Name, spec.Type)
	}
	return fmt.Sprintf("name=c%d, %s, repetitiontype=REQUIRED", pos, typ), nil
}

// WriteParquet writes the normalized frame f to w as a parquet file,
// index level first.
func WriteParquet(w io.Writer, f *Frame) error {
	var (
		cols  = f.all()
		specs = f.Specs()
		md    = make([]string, 0, len(specs))
	)
	for i, s := range specs {
		m, err := parquetMetadata(i, s)
		if err != nil {
			return err
		}
		md = append(md, m)
	}

	pf := writerfile.NewWriterFile(w)
	pw, err := writer.NewCSVWriter(md, pf, parquetNP)
	if err != nil {
		return errors.Wrap(err, "creating parquet writer")
	}

	for i := 0; i < f.Len(); i++ {
		rec := make([]interface{}, len(cols))
		for j, c := range cols {
			rec[j] = parquetValue(c.Data, i)
		}
		if err = pw.Write(rec); err != nil {
			return errors.Wrapf(err, "writing row %d", i)
		}
	}
	if err = pw.WriteStop(); err != nil {
		return errors.Wrap(err, "finishing parquet file")
	}
	return errors.Wrap(pf.Close(), "closing parquet file")
}

func parquetValue(data interface{}, i int) interface{} {
	switch d := data.(type) {
	case []bool:
		return d[i]
	case []int64:
		return d[i]
	case []float64:
		return d[i]
	case []string:
		return d[i]
	case []time.Time:
		return d[i].UnixNano()
	case []time.Duration:
		return int64(d[i])
	}
	return nil
}

// ReadParquet reads a frame written by WriteParquet from r.
// The file's columns must match specs.
// The column named by index, if any, becomes the frame's index.
func ReadParquet(r io.Reader, specs []ColumnSpec, index string) (*Frame, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading parquet file")
	}
	return ReadParquetBytes(data, specs, index)
}

// ReadParquetBytes is like ReadParquet but reads from an in-memory parquet file.
// The frame does not retain data.
func ReadParquetBytes(data []byte, specs []ColumnSpec, index string) (*Frame, error) {
	pf, err := buffer.NewBufferFile(data)
	if err != nil {
		return nil, errors.Wrap(err, "opening parquet buffer")
	}
	pr, err := reader.NewParquetColumnReader(pf, parquetNP)
	if err != nil {
		return nil, errors.Wrap(err, "opening parquet file")
	}
	defer pr.ReadStop()

	if n := len(pr.SchemaHandler.ValueColumns); n != len(specs) {
		return nil, fmt.Errorf("parquet file has %d columns, want %d", n, len(specs))
	}

	var (
		nrows    = pr.GetNumRows()
		builders = make([]*builder, len(specs))
	)
	for i, s := range specs {
		if builders[i], err = newBuilder(s); err != nil {
			return nil, err
		}
		values, _, _, err := pr.ReadColumnByIndex(int64(i), nrows)
		if err != nil {
			return nil, errors.Wrapf(err, "reading column %q", s.Name)
		}
		if int64(len(values)) != nrows {
			return nil, fmt.Errorf("column %q has %d values, want %d", s.Name, len(values), nrows)
		}
		for _, v := range values {
			if err = builders[i].add(v); err != nil {
				return nil, errors.Wrapf(err, "column %q", s.Name)
			}
		}
	}
	return assemble(builders, index)
}

func (b *builder) add(v interface{}) error {
	switch b.spec.Type {
	case Bool:
		x, ok := v.(bool)
		if !ok {
			return fmt.Errorf("got %T, want bool", v)
		}
		b.bools = append(b.bools, x)

	case Float64:
		x, ok := v.(float64)
		if !ok {
			return fmt.Errorf("got %T, want float64", v)
		}
		b.floats = append(b.floats, x)

	case String:
		x, ok := v.(string)
		if !ok {
			return fmt.Errorf("got %T, want string", v)
		}
		b.strs = append(b.strs, x)

	case Int64, Datetime, Timedelta:
		x, ok := v.(int64)
		if !ok {
			return fmt.Errorf("got %T, want int64", v)
		}
		switch b.spec.Type {
		case Int64:
			b.ints = append(b.ints, x)
		case Datetime:
			b.times = append(b.times, time.Unix(0, x).UTC())
		case Timedelta:
			b.durations = append(b.durations, time.Duration(x))
		}
	}
	return nil
}
