// Package sqlite3 implements a catalog in a Sqlite database.
package sqlite3

import (
	"context"
	"database/sql"
	"time"

	"github.com/bobg/sqlutil"
	_ "github.com/mattn/go-sqlite3" // register the sqlite3 type for sql.Open
	"github.com/pkg/errors"

	"github.com/bobg/bookshelf/catalog"
)

var _ catalog.Catalog = &Catalog{}

// Catalog is a Sqlite-based catalog.
type Catalog struct {
	db *sql.DB
}

// Schema is the SQL that New executes.
// It creates the `publishes` table if it does not exist.
// (If it does exist, it must have the columns, constraints, and indexing described here.)
const Schema = `
CREATE TABLE IF NOT EXISTS publishes (
  name TEXT NOT NULL,
  version TEXT NOT NULL,
  edition INTEGER NOT NULL,
  hash TEXT NOT NULL,
  url TEXT NOT NULL,
  private INTEGER NOT NULL,
  upload_id TEXT NOT NULL,
  published_at TEXT NOT NULL,
  PRIMARY KEY (name, version, edition)
);
`

// New produces a new Catalog using `db` for storage.
// (See variable Schema.)
func New(ctx context.Context, db *sql.DB) (*Catalog, error) {
	_, err := db.ExecContext(ctx, Schema)
	return &Catalog{db: db}, errors.Wrap(err, "creating schema")
}

// Record implements catalog.Catalog.
func (c *Catalog) Record(ctx context.Context, e catalog.Entry) error {
	const q = `INSERT INTO publishes (name, version, edition, hash, url, private, upload_id, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (name, version, edition) DO UPDATE
		SET hash = excluded.hash, url = excluded.url, private = excluded.private,
		  upload_id = excluded.upload_id, published_at = excluded.published_at`

	_, err := c.db.ExecContext(ctx, q, e.Name, e.Version, e.Edition, e.Hash, e.URL, e.Private, e.UploadID, e.PublishedAt.UTC().Format(time.RFC3339Nano))
	return errors.Wrapf(err, "recording %s@%s ed.%d", e.Name, e.Version, e.Edition)
}

// Books implements catalog.Catalog.
func (c *Catalog) Books(ctx context.Context) ([]string, error) {
	const q = `SELECT DISTINCT name FROM publishes ORDER BY name`

	var result []string
	err := sqlutil.ForQueryRows(ctx, c.db, q, func(name string) {
		result = append(result, name)
	})
	return result, errors.Wrap(err, "listing books")
}

// Entries implements catalog.Catalog.
func (c *Catalog) Entries(ctx context.Context, name string) ([]catalog.Entry, error) {
	const q = `SELECT version, edition, hash, url, private, upload_id, published_at
		FROM publishes WHERE name = $1`

	var result []catalog.Entry
	err := sqlutil.ForQueryRows(ctx, c.db, q, name, func(version string, edition int, hash, url string, private bool, uploadID, atstr string) error {
		at, err := time.Parse(time.RFC3339Nano, atstr)
		if err != nil {
			return errors.Wrapf(err, "parsing time %s", atstr)
		}
		result = append(result, catalog.Entry{
			Name:        name,
			Version:     version,
			Edition:     edition,
			Hash:        hash,
			URL:         url,
			Private:     private,
			UploadID:    uploadID,
			PublishedAt: at,
		})
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "listing entries for %s", name)
	}
	catalog.Sort(result)
	return result, nil
}

func init() {
	catalog.Register("sqlite3", func(ctx context.Context, conf map[string]interface{}) (catalog.Catalog, error) {
		conn, ok := conf["conn"].(string)
		if !ok {
			return nil, errors.New(`missing "conn" parameter`)
		}
		db, err := sql.Open("sqlite3", conn)
		if err != nil {
			return nil, errors.Wrap(err, "opening db")
		}
		return New(ctx, db)
	})
}
