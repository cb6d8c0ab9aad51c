package frame

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Reserved column names of the long shape.
const (
	TimeColumn  = "year"
	ValueColumn = "values"
)

// Timeseries is a set of series sharing a time axis.
// Each series is identified by its metadata:
// one string per dimension.
type Timeseries struct {
	Dimensions []string
	Times      []string
	Series     []Series
}

// Series is one row of a Timeseries.
// Values holds one value per time; NaN means no value.
type Series struct {
	Meta   []string
	Values []float64
}

// Validate checks the shape of ts:
// every series has one metadata value per dimension and one value per time,
// no two series share metadata,
// and no names are repeated or collide with the long shape's reserved columns.
func (ts *Timeseries) Validate() error {
	if len(ts.Dimensions) == 0 {
		return errors.New("timeseries has no dimensions")
	}

	names := make(map[string]bool)
	for _, d := range ts.Dimensions {
		switch {
		case d == "":
			return errors.New("empty dimension name")
		case d == TimeColumn || d == ValueColumn:
			return fmt.Errorf("dimension name %q is reserved", d)
		case names[d]:
			return fmt.Errorf("duplicate dimension %q", d)
		}
		names[d] = true
	}
	for _, t := range ts.Times {
		if names[t] {
			return fmt.Errorf("duplicate column %q", t)
		}
		names[t] = true
	}

	keys := make(map[string]int)
	for i, s := range ts.Series {
		if len(s.Meta) != len(ts.Dimensions) {
			return fmt.Errorf("series %d has %d metadata values, want %d", i, len(s.Meta), len(ts.Dimensions))
		}
		if len(s.Values) != len(ts.Times) {
			return fmt.Errorf("series %d has %d values, want %d", i, len(s.Values), len(ts.Times))
		}
		k := seriesKey(s.Meta)
		if j, ok := keys[k]; ok {
			return fmt.Errorf("series %d and %d have the same metadata %v", j, i, s.Meta)
		}
		keys[k] = i
	}
	return nil
}

func seriesKey(meta []string) string {
	return strings.Join(meta, "\x00")
}

// Sorted returns a copy of ts with its series ordered by metadata
// (compared dimension by dimension)
// and its times in ascending order (see CompareTimes).
// This is the order in which timeseries are stored,
// so identical data always serializes identically.
func (ts *Timeseries) Sorted() *Timeseries {
	perm := make([]int, len(ts.Times))
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(i, j int) bool {
		return CompareTimes(ts.Times[perm[i]], ts.Times[perm[j]]) < 0
	})

	out := &Timeseries{
		Dimensions: append([]string{}, ts.Dimensions...),
		Times:      make([]string, len(ts.Times)),
		Series:     make([]Series, len(ts.Series)),
	}
	for i, p := range perm {
		out.Times[i] = ts.Times[p]
	}
	for i, s := range ts.Series {
		values := make([]float64, len(perm))
		for j, p := range perm {
			if p < len(s.Values) {
				values[j] = s.Values[p]
			}
		}
		out.Series[i] = Series{Meta: append([]string{}, s.Meta...), Values: values}
	}
	sort.SliceStable(out.Series, func(i, j int) bool {
		return compareMeta(out.Series[i].Meta, out.Series[j].Meta) < 0
	})
	return out
}

func compareMeta(a, b []string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := strings.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}

// CompareTimes orders time labels.
// Labels that both parse as numbers (usually years) compare numerically;
// otherwise they compare as strings.
func CompareTimes(a, b string) int {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil && fa != fb {
		if fa < fb {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

// Equal tells whether two timeseries hold the same data in the same order.
// NaNs compare equal to each other.
func (ts *Timeseries) Equal(other *Timeseries) bool {
	if !stringsEqual(ts.Dimensions, other.Dimensions) || !stringsEqual(ts.Times, other.Times) {
		return false
	}
	if len(ts.Series) != len(other.Series) {
		return false
	}
	for i, s := range ts.Series {
		o := other.Series[i]
		if !stringsEqual(s.Meta, o.Meta) || len(s.Values) != len(o.Values) {
			return false
		}
		for j, v := range s.Values {
			if !floatsEqual(v, o.Values[j]) {
				return false
			}
		}
	}
	return true
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// LongSpecs describes the columns of the long shape of ts.
// The time column is int64 if every time label is an integer,
// float64 if every one is a number,
// and string otherwise.
func (ts *Timeseries) LongSpecs() []ColumnSpec {
	result := make([]ColumnSpec, 0, len(ts.Dimensions)+2)
	for _, d := range ts.Dimensions {
		result = append(result, ColumnSpec{Name: d, Type: String})
	}
	result = append(result, ColumnSpec{Name: TimeColumn, Type: timeType(ts.Times)})
	return append(result, ColumnSpec{Name: ValueColumn, Type: Float64})
}

func timeType(times []string) Type {
	typ := Int64
	for _, t := range times {
		if _, err := strconv.ParseInt(t, 10, 64); err == nil {
			continue
		}
		if _, err := strconv.ParseFloat(t, 64); err == nil {
			typ = Float64
			continue
		}
		return String
	}
	return typ
}

// MeltChunkSize is the number of series melted into long rows at a time.
const MeltChunkSize = 1000

// Melt produces the long shape of ts,
// one row per (series, time) pair,
// in the order of ts's series and times.
// Rows are passed to fn at most chunkSize series' worth at a time,
// so the whole long shape is never held in memory.
// The row slices are reused between calls.
//
// A chunkSize of zero or less means MeltChunkSize.
func (ts *Timeseries) Melt(chunkSize int, fn func(rows [][]string) error) error {
	if chunkSize <= 0 {
		chunkSize = MeltChunkSize
	}
	var (
		width = len(ts.Dimensions) + 2
		rows  = make([][]string, 0, chunkSize*len(ts.Times))
	)
	for start := 0; start < len(ts.Series); start += chunkSize {
		end := start + chunkSize
		if end > len(ts.Series) {
			end = len(ts.Series)
		}
		rows = rows[:0]
		for _, s := range ts.Series[start:end] {
			for j, t := range ts.Times {
				row := make([]string, 0, width)
				row = append(row, s.Meta...)
				row = append(row, t, formatFloat(s.Values[j]))
				rows = append(rows, row)
			}
		}
		if err := fn(rows); err != nil {
			return err
		}
	}
	return nil
}
