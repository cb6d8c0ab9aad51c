// Package catalog defines a record of published books,
// which backs listing the books a remote bookshelf holds.
// (A static file host has no directory listing,
// so the set of volume names must be kept somewhere else.)
package catalog

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bobg/bookshelf"
)

// Entry records one publish of a book.
type Entry struct {
	Name    string
	Version string
	Edition int

	// Hash is the hash of the published manifest.
	Hash string

	URL     string
	Private bool

	// UploadID identifies the publish operation in logs.
	UploadID string

	PublishedAt time.Time
}

// Catalog is a record of published books.
type Catalog interface {
	// Record adds an entry.
	// Recording the same name, version and edition twice replaces the earlier entry.
	Record(context.Context, Entry) error

	// Books lists the distinct names of recorded books, in sorted order.
	Books(context.Context) ([]string, error)

	// Entries lists the entries for a book,
	// ordered by version (see bookshelf.CompareVersions) and edition.
	Entries(ctx context.Context, name string) ([]Entry, error)
}

// Sort puts entries in the order Entries reports them.
// SQL collation orders "v1.10.0" before "v1.9.0";
// implementations sort their query results with this.
func Sort(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if c := bookshelf.CompareVersions(a.Version, b.Version); c != 0 {
			return c < 0
		}
		return a.Edition < b.Edition
	})
}

// Factory creates a Catalog from a configuration map.
type Factory func(context.Context, map[string]interface{}) (Catalog, error)

var registry = make(map[string]Factory)

// Register makes a catalog type available to Create under the given key.
// Catalog implementations call this from init functions.
func Register(key string, f Factory) {
	registry[key] = f
}

// Create creates a Catalog of the registered type key.
func Create(ctx context.Context, key string, conf map[string]interface{}) (Catalog, error) {
	f, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("key %s not found in registry", key)
	}
	return f(ctx, conf)
}

// FromConfig creates a Catalog from a configuration map
// whose "type" key names the registered type.
// A nil map produces a nil Catalog.
func FromConfig(ctx context.Context, conf map[string]interface{}) (Catalog, error) {
	if conf == nil {
		return nil, nil
	}
	key, ok := conf["type"].(string)
	if !ok {
		return nil, fmt.Errorf(`catalog config has no "type"`)
	}
	return Create(ctx, key, conf)
}
