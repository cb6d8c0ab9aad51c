// Package catalogtest contains tests shared by catalog implementations.
package catalogtest

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bobg/bookshelf/catalog"
)

// RecordAndList records some entries in an empty catalog
// and checks that they come back from Books and Entries.
func RecordAndList(ctx context.Context, t *testing.T, c catalog.Catalog) {
	at := time.Date(2022, 6, 1, 12, 0, 0, 0, time.UTC)

	entries := []catalog.Entry{
		{Name: "primap", Version: "v2.4", Edition: 1, Hash: "aaaa", URL: "https://example.com/primap/v2.4_e001", UploadID: "u1", PublishedAt: at},
		{Name: "ceds", Version: "v2016", Edition: 1, Hash: "bbbb", URL: "https://example.com/ceds/v2016_e001", UploadID: "u2", PublishedAt: at.Add(time.Hour)},
		{Name: "primap", Version: "v2.4", Edition: 2, Hash: "cccc", URL: "https://example.com/primap/v2.4_e002", UploadID: "u3", PublishedAt: at.Add(2 * time.Hour)},
		{Name: "primap", Version: "v2.3", Edition: 1, Hash: "dddd", URL: "https://example.com/primap/v2.3_e001", Private: true, UploadID: "u4", PublishedAt: at.Add(3 * time.Hour)},
		{Name: "primap", Version: "v2.10", Edition: 1, Hash: "ffff", URL: "https://example.com/primap/v2.10_e001", UploadID: "u5", PublishedAt: at.Add(4 * time.Hour)},
	}
	for _, e := range entries {
		if err := c.Record(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	books, err := c.Books(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"ceds", "primap"}, books); diff != "" {
		t.Errorf("books mismatch (-want +got):\n%s", diff)
	}

	got, err := c.Entries(ctx, "primap")
	if err != nil {
		t.Fatal(err)
	}
	// Versions compare numerically, not lexically.
	want := []catalog.Entry{entries[3], entries[0], entries[2], entries[4]}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}

	// Rerecording replaces.
	replacement := entries[1]
	replacement.Hash = "eeee"
	if err = c.Record(ctx, replacement); err != nil {
		t.Fatal(err)
	}
	got, err = c.Entries(ctx, "ceds")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]catalog.Entry{replacement}, got); diff != "" {
		t.Errorf("replacement mismatch (-want +got):\n%s", diff)
	}

	got, err = c.Entries(ctx, "nonesuch")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("got %d entries for an unknown book, want 0", len(got))
	}
}
