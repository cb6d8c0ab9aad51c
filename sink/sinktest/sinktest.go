// Package sinktest holds tests that any bookshelf.Sink implementation should pass.
package sinktest

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bobg/bookshelf"
)

// Getter reads back what a Sink stored at a key.
type Getter func(ctx context.Context, key string) ([]byte, error)

// PutGet stores a few objects in s,
// including one replacement,
// and checks that get reads back the latest contents of each.
func PutGet(ctx context.Context, t *testing.T, s bookshelf.Sink, get Getter) {
	var (
		manifest = bookshelf.UploadKey("v0.3.2", "demo", "1.0.0", 1, bookshelf.DatapackageFilename)
		resource = bookshelf.UploadKey("v0.3.2", "demo", "1.0.0", 1, "demo_1.0.0_e001_gdp_wide.csv.gz")
		volume   = bookshelf.VolumeKey("v0.3.2", "demo")
	)

	want := map[string][]byte{
		manifest: []byte(`{"name": "demo"}`),
		resource: {0x1f, 0x8b, 0, 1, 2, 3},
		volume:   []byte(`{"versions": []}`),
	}
	for key, data := range want {
		if err := s.Put(ctx, key, bytes.NewReader(data)); err != nil {
			t.Fatalf("putting %s: %s", key, err)
		}
	}

	want[volume] = []byte(`{"versions": [{"version": "1.0.0", "edition": 1}]}`)
	if err := s.Put(ctx, volume, bytes.NewReader(want[volume])); err != nil {
		t.Fatalf("replacing %s: %s", volume, err)
	}

	for key, data := range want {
		got, err := get(ctx, key)
		if err != nil {
			t.Fatalf("getting %s: %s", key, err)
		}
		if diff := cmp.Diff(data, got); diff != "" {
			t.Errorf("mismatch for %s (-want +got):\n%s", key, diff)
		}
	}
}
