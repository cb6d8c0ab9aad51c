package file

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bobg/bookshelf/sink"
	"github.com/bobg/bookshelf/sink/sinktest"
)

func TestSink(t *testing.T) {
	dirname := t.TempDir()
	s := New(dirname)
	sinktest.PutGet(context.Background(), t, s, s.Get)

	// Nothing but the three objects, and no leftover temp files.
	var paths []string
	err := filepath.Walk(dirname, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		switch {
		case info.IsDir() || info.Name() == lockFilename:
		case strings.HasPrefix(info.Name(), ".put-"):
			t.Errorf("temp file %s left behind", path)
		default:
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 3 {
		t.Errorf("got %d files %v, want 3", len(paths), paths)
	}

	info, err := os.Stat(filepath.Join(dirname, "v0.3.2", "demo", "volume.json"))
	if err != nil {
		t.Fatal(err)
	}
	if mode := info.Mode().Perm(); mode != 0644 {
		t.Errorf("got mode %o, want 0644", mode)
	}
}

func TestEscape(t *testing.T) {
	s := New(t.TempDir())
	if err := s.Put(context.Background(), "../outside", bytes.NewReader(nil)); err == nil {
		t.Error("got no error for a key outside the root")
	}
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	dirname := t.TempDir()

	s, err := sink.FromConfig(ctx, map[string]interface{}{"type": "file", "root": dirname})
	if err != nil {
		t.Fatal(err)
	}
	if fs, ok := s.(*Sink); !ok || fs.root != dirname {
		t.Errorf("got %#v, want a *Sink rooted at %s", s, dirname)
	}

	if _, err = sink.Create(ctx, "file", map[string]interface{}{}); err == nil {
		t.Error("got no error for a missing root parameter")
	}
	if _, err = sink.FromConfig(ctx, map[string]interface{}{}); err == nil {
		t.Error("got no error for a missing type")
	}
	if _, err = sink.Create(ctx, "nonesuch", nil); err == nil {
		t.Error("got no error for an unregistered type")
	}
}
