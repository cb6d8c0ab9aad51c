package pg

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/bobg/bookshelf/catalog/catalogtest"
)

func TestCatalog(t *testing.T) {
	withCatalog(t, func(ctx context.Context, c *Catalog) {
		catalogtest.RecordAndList(ctx, t, c)
	})
}

const connVar = "BOOKSHELF_PG_TESTING_CONN"

func withCatalog(t *testing.T, f func(context.Context, *Catalog)) {
	connstr := os.Getenv(connVar)
	if connstr == "" {
		t.Skipf("to run %s, set %s to a valid Postgresql connection string", t.Name(), connVar)
	}

	db, err := sql.Open("postgres", connstr)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	ctx := context.Background()
	if _, err = db.ExecContext(ctx, `DROP TABLE IF EXISTS publishes`); err != nil {
		t.Fatal(err)
	}

	c, err := New(ctx, db)
	if err != nil {
		t.Fatal(err)
	}

	f(ctx, c)
}
