package bookshelf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"BOOKSHELF_CACHE_LOCATION": "/tmp/cache",
		"BOOKSHELF_REMOTE":         "https://bookshelf.local/v0.3.2",
		"BOOKSHELF_BUCKET_PREFIX":  "/this/prefix",
		"BOOKSHELF_RETRIES":        "0",
	}
	c := DefaultConfig()
	c.ApplyEnv(func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	})

	want := DefaultConfig()
	want.CacheLocation = "/tmp/cache"
	want.Remote = "https://bookshelf.local/v0.3.2"
	want.BucketPrefix = "/this/prefix"
	want.Retries = 0

	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig(t *testing.T) {
	const conf = `{
  // Where books are cached.
  "cache_location": "/var/cache/books",
  "retries": 5,
  "sink": {"type": "file", "root": "/srv/bookshelf"}, /* trailing comment */
}`
	filename := filepath.Join(t.TempDir(), "bookshelf.json")
	if err := os.WriteFile(filename, []byte(conf), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadConfig(filename)
	if err != nil {
		t.Fatal(err)
	}
	if c.Retries != 5 {
		t.Errorf("got retries %d, want 5", c.Retries)
	}
	if c.Remote == "" {
		t.Error("remote default lost")
	}
	if c.Sink["type"] != "file" || c.Sink["root"] != "/srv/bookshelf" {
		t.Errorf("got sink config %v", c.Sink)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("got %v, want a not-exist error", err)
	}
}

func TestErrors(t *testing.T) {
	var err error = &UnknownEditionError{Name: "test", Version: "v1", Edition: 3}
	err = errors.Wrap(err, "loading")

	var uv *UnknownVersionError
	if !errors.As(err, &uv) {
		t.Fatal("UnknownEditionError does not match UnknownVersionError")
	}
	if uv.Name != "test" || uv.Version != "v1" {
		t.Errorf("got %+v", uv)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("UnknownEditionError is not ErrNotFound")
	}

	var ub *UnknownBookError
	if errors.As(err, &ub) {
		t.Error("UnknownEditionError matched UnknownBookError")
	}

	se := &SchemaError{Problems: []SchemaProblem{{Column: "z", DType: "complex128", Reason: "unsupported type"}}}
	if got := se.Error(); got != `unsupported dataframe schema: "z" (complex128): unsupported type` {
		t.Errorf("got %q", got)
	}
}
