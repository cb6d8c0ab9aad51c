package mem

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bobg/bookshelf/sink"
	"github.com/bobg/bookshelf/sink/sinktest"
)

func TestSink(t *testing.T) {
	s := New()
	sinktest.PutGet(context.Background(), t, s, func(_ context.Context, key string) ([]byte, error) {
		data, ok := s.Get(key)
		if !ok {
			t.Fatalf("no object at %s", key)
		}
		return data, nil
	})

	want := []string{
		"v0.3.2/demo/1.0.0_e001/datapackage.json",
		"v0.3.2/demo/1.0.0_e001/demo_1.0.0_e001_gdp_wide.csv.gz",
		"v0.3.2/demo/volume.json",
	}
	if diff := cmp.Diff(want, s.Keys()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry(t *testing.T) {
	s, err := sink.FromConfig(context.Background(), map[string]interface{}{"type": "mem"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*Sink); !ok {
		t.Errorf("got %T, want *Sink", s)
	}
}
