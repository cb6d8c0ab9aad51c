package frame

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func testTimeseries() *Timeseries {
	return &Timeseries{
		Dimensions: []string{"region", "variable"},
		Times:      []string{"2030", "2010", "2020"},
		Series: []Series{
			{Meta: []string{"World", "Emissions|CO2"}, Values: []float64{3, 1, 2}},
			{Meta: []string{"AUS", "Emissions|CO2"}, Values: []float64{30, 10, math.NaN()}},
			{Meta: []string{"AUS", "Emissions|CH4"}, Values: []float64{0.3, 0.1, 0.2}},
		},
	}
}

func TestSorted(t *testing.T) {
	got := testTimeseries().Sorted()
	want := &Timeseries{
		Dimensions: []string{"region", "variable"},
		Times:      []string{"2010", "2020", "2030"},
		Series: []Series{
			{Meta: []string{"AUS", "Emissions|CH4"}, Values: []float64{0.1, 0.2, 0.3}},
			{Meta: []string{"AUS", "Emissions|CO2"}, Values: []float64{10, math.NaN(), 30}},
			{Meta: []string{"World", "Emissions|CO2"}, Values: []float64{1, 2, 3}},
		},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if !want.Equal(got) {
		t.Error("Equal reports a difference")
	}
}

func TestCompareTimes(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"2010", "2020", -1},
		{"900", "2020", -1},
		{"2020.5", "2020", 1},
		{"2020", "2020", 0},
		{"a", "b", -1},
		{"2020", "x", -1},
	}
	for _, tc := range cases {
		if got := CompareTimes(tc.a, tc.b); got != tc.want {
			t.Errorf("CompareTimes(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestValidate(t *testing.T) {
	if err := testTimeseries().Validate(); err != nil {
		t.Fatal(err)
	}

	cases := map[string]func(ts *Timeseries){
		"no dimensions": func(ts *Timeseries) { ts.Dimensions = nil },
		"reserved":      func(ts *Timeseries) { ts.Dimensions[1] = "year" },
		"dup dimension": func(ts *Timeseries) { ts.Dimensions[1] = "region" },
		"dup time":      func(ts *Timeseries) { ts.Times[1] = "2030" },
		"short meta":    func(ts *Timeseries) { ts.Series[0].Meta = ts.Series[0].Meta[:1] },
		"short values":  func(ts *Timeseries) { ts.Series[2].Values = nil },
		"dup key":       func(ts *Timeseries) { ts.Series[1].Meta = []string{"AUS", "Emissions|CH4"} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			ts := testTimeseries()
			mutate(ts)
			if err := ts.Validate(); err == nil {
				t.Error("got no error")
			}
		})
	}
}

func TestWide(t *testing.T) {
	ts := testTimeseries().Sorted()

	buf := new(bytes.Buffer)
	if err := WriteWideCSV(buf, ts); err != nil {
		t.Fatal(err)
	}
	const want = `region,variable,2010,2020,2030
AUS,Emissions|CH4,0.1,0.2,0.3
AUS,Emissions|CO2,10,,30
World,Emissions|CO2,1,2,3
`
	if buf.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", buf.String(), want)
	}

	for _, dims := range [][]string{ts.Dimensions, nil} {
		got, err := ReadWideCSV(strings.NewReader(want), dims)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(ts, got, cmpopts.EquateNaNs()); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	}

	if _, err := ReadWideCSV(strings.NewReader(want), []string{"model"}); err == nil {
		t.Error("got no error for mismatched dimensions")
	}
}

func TestMelt(t *testing.T) {
	ts := testTimeseries().Sorted()

	var calls, rows int
	err := ts.Melt(2, func(chunk [][]string) error {
		calls++
		rows += len(chunk)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("got %d chunks, want 2", calls)
	}
	if rows != 9 {
		t.Errorf("got %d rows, want 9", rows)
	}
}

func TestLong(t *testing.T) {
	ts := testTimeseries().Sorted()

	buf := new(bytes.Buffer)
	if err := WriteLongCSV(buf, ts, 1); err != nil {
		t.Fatal(err)
	}
	const want = `region,variable,year,values
AUS,Emissions|CH4,2010,0.1
AUS,Emissions|CH4,2020,0.2
AUS,Emissions|CH4,2030,0.3
AUS,Emissions|CO2,2010,10
AUS,Emissions|CO2,2020,
AUS,Emissions|CO2,2030,30
World,Emissions|CO2,2010,1
World,Emissions|CO2,2020,2
World,Emissions|CO2,2030,3
`
	if buf.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", buf.String(), want)
	}

	specs := ts.LongSpecs()
	if specs[2].Type != Int64 {
		t.Errorf("got time column type %s, want %s", specs[2].Type, Int64)
	}

	f, err := ReadCSV(strings.NewReader(want), specs, "")
	if err != nil {
		t.Fatal(err)
	}
	years, _ := f.Column(TimeColumn)
	if diff := cmp.Diff([]int64{2010, 2020, 2030, 2010, 2020, 2030, 2010, 2020, 2030}, years.Data); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestWideCodec(t *testing.T) {
	ts := testTimeseries().Sorted()

	var hashes []string
	for _, format := range []Format{CSV, CSVGzip} {
		buf := new(bytes.Buffer)
		h, err := EncodeWide(buf, ts, format)
		if err != nil {
			t.Fatal(err)
		}
		hashes = append(hashes, h)

		got, err := DecodeWide(buf, format, ts.Dimensions)
		if err != nil {
			t.Fatal(err)
		}
		if !ts.Equal(got) {
			t.Errorf("%s: round trip changed the data", format)
		}
	}
	if hashes[0] != hashes[1] {
		t.Errorf("content hashes differ: %s vs. %s", hashes[0], hashes[1])
	}
}
