package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bobg/bookshelf"
)

func TestDefaultLocation(t *testing.T) {
	got, err := DefaultLocation(bookshelf.Config{CacheLocation: "/some/where"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "/some/where" {
		t.Errorf("got %s, want /some/where", got)
	}

	userDir, err := os.UserCacheDir()
	if err != nil {
		t.Skipf("no user cache dir: %s", err)
	}
	got, err = DefaultLocation(bookshelf.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(userDir, AppName); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestCreate(t *testing.T) {
	root := t.TempDir()

	dir, err := Create(bookshelf.Config{}, root)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(root, bookshelf.DataFormatVersion); dir != want {
		t.Errorf("got %s, want %s", dir, want)
	}
	info, err := os.Stat(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !info.IsDir() {
		t.Errorf("%s is not a directory", dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("probe file left behind in %s", dir)
	}

	// From config, idempotently.
	dir2, err := Create(bookshelf.Config{CacheLocation: root}, "")
	if err != nil {
		t.Fatal(err)
	}
	if dir2 != dir {
		t.Errorf("got %s, want %s", dir2, dir)
	}
}
