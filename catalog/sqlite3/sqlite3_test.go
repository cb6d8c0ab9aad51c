package sqlite3

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/bobg/bookshelf/catalog"
	"github.com/bobg/bookshelf/catalog/catalogtest"
)

func TestCatalog(t *testing.T) {
	ctx := context.Background()
	err := withTestCatalog(ctx, t, func(c *Catalog) error {
		catalogtest.RecordAndList(ctx, t, c)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	conn := filepath.Join(t.TempDir(), "catalog.db")

	c, err := catalog.FromConfig(ctx, map[string]interface{}{"type": "sqlite3", "conn": conn})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*Catalog); !ok {
		t.Errorf("got %T, want *Catalog", c)
	}
	if _, err = os.Stat(conn); err != nil {
		t.Error(err)
	}

	if _, err = catalog.Create(ctx, "sqlite3", map[string]interface{}{}); err == nil {
		t.Error("got no error for a missing conn parameter")
	}
}

func withTestCatalog(ctx context.Context, t *testing.T, fn func(*Catalog) error) error {
	f, err := os.CreateTemp("", "bookshelfsqlite3test")
	if err != nil {
		return err
	}

	tmpfile := f.Name()
	f.Close()
	defer os.Remove(tmpfile)

	db, err := sql.Open("sqlite3", tmpfile)
	if err != nil {
		return err
	}
	defer db.Close()

	c, err := New(ctx, db)
	if err != nil {
		return err
	}

	return fn(c)
}
