// Package shelf implements a bookshelf:
// a local cache of books backed by a remote bookshelf,
// from which books are resolved by name and, optionally, version and edition.
package shelf

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/bobg/bookshelf"
	"github.com/bobg/bookshelf/book"
	"github.com/bobg/bookshelf/cache"
	"github.com/bobg/bookshelf/catalog"
	"github.com/bobg/bookshelf/fetch"
)

// DefaultLRUSize is the number of loaded books a Shelf keeps handles for.
const DefaultLRUSize = 64

// Shelf resolves and loads books,
// consulting the local cache first and the remote bookshelf only when necessary.
type Shelf struct {
	root    string
	remote  string
	fetcher *fetch.Fetcher
	catalog catalog.Catalog

	books *lru.Cache // bookKey -> *book.Book
}

type bookKey struct {
	name, longVersion string
}

// New produces a Shelf whose local cache is beneath path
// (see cache.Create; an empty path means the default location)
// and whose remote bookshelf is cfg.Remote.
// The catalog may be nil, in which case ListBooks fails.
func New(cfg bookshelf.Config, path string, f *fetch.Fetcher, cat catalog.Catalog) (*Shelf, error) {
	root, err := cache.Create(cfg, path)
	if err != nil {
		return nil, err
	}
	if f == nil {
		f = fetch.New(cfg)
	}
	books, err := lru.New(DefaultLRUSize)
	if err != nil {
		return nil, errors.Wrap(err, "creating book cache")
	}
	return &Shelf{
		root:    root,
		remote:  cfg.Remote,
		fetcher: f,
		catalog: cat,
		books:   books,
	}, nil
}

// Root is the local cache directory,
// including the DataFormatVersion segment.
func (s *Shelf) Root() string {
	return s.root
}

// Remote is the remote bookshelf URL.
func (s *Shelf) Remote() string {
	return s.remote
}

// LoadOptions control Load.
type LoadOptions struct {
	// Force refetches the volume manifest and the book's manifest
	// even when cached copies exist.
	Force bool
}

// Load produces the book with the given name, version and edition.
//
// An empty version means the latest non-private version,
// and an edition of 0 means the latest edition of the version.
// When both are given (and opts.Force is false)
// the pin is trusted and the volume manifest is not consulted at all.
// Otherwise the volume manifest is refetched from the remote bookshelf
// and the version and edition resolved against it.
//
// The book's manifest is downloaded if it is not cached.
// Its resources are fetched lazily when read.
//
// Errors include *bookshelf.UnknownBookError if there is no volume manifest for the name,
// *bookshelf.UnknownVersionError if the version is not in it
// (or the book's files are missing from the remote bookshelf),
// and *bookshelf.UnknownEditionError if the version has no such edition.
func (s *Shelf) Load(ctx context.Context, name, version string, edition int, opts LoadOptions) (*book.Book, error) {
	pinned := version != "" && edition != 0 && !opts.Force

	var knownHash string
	if !pinned {
		res, err := s.resolve(ctx, name, version, edition)
		if err != nil {
			return nil, err
		}
		version, edition, knownHash = res.Version, res.Edition, res.Hash
	}

	key := bookKey{name: name, longVersion: bookshelf.LongVersion(version, edition)}
	path := bookshelf.LocalPath(s.root, name, version, edition, bookshelf.DatapackageFilename)

	if pinned {
		if v, ok := s.books.Get(key); ok {
			if _, err := os.Stat(path); err == nil {
				return v.(*book.Book), nil
			}
			s.books.Remove(key)
		}
	}

	_, err := os.Stat(path)
	switch {
	case os.IsNotExist(err) || opts.Force:
		url := bookshelf.BuildURL(s.remote, bookshelf.PathParts(name, version, edition, bookshelf.DatapackageFilename)...)
		if err := s.fetcher.Fetch(ctx, url, path, knownHash, true); err != nil {
			if fetch.IsHTTPError(err) {
				return nil, &bookshelf.UnknownVersionError{Name: name, Version: version, Err: err}
			}
			return nil, errors.Wrapf(err, "fetching manifest of %s@%s", name, key.longVersion)
		}

	case err != nil:
		return nil, errors.Wrapf(err, "checking %s", path)
	}

	b := book.Open(s.root, name, version, edition, s.remote, s.fetcher)
	s.books.Add(key, b)

	log.WithField("path", b.Dir()).Debugf("Loaded %s", b)
	return b, nil
}

// Resolved is the result of resolving a book against its volume manifest.
type Resolved struct {
	Version string
	Edition int

	// Hash is the recorded hash of the book's manifest.
	Hash string
}

// resolve refetches the volume manifest for name
// and finds the requested version and edition in it.
func (s *Shelf) resolve(ctx context.Context, name, version string, edition int) (Resolved, error) {
	vol, err := s.Volume(ctx, name, true)
	if err != nil {
		return Resolved{}, err
	}

	if version == "" {
		latest, ok := vol.LatestVersion()
		if !ok {
			return Resolved{}, &bookshelf.UnknownVersionError{Name: name}
		}
		version = latest
	}

	entries := vol.Entries(version)
	if len(entries) == 0 {
		return Resolved{}, &bookshelf.UnknownVersionError{Name: name, Version: version}
	}

	if edition == 0 {
		e := entries[len(entries)-1]
		return Resolved{Version: version, Edition: e.Edition, Hash: e.Hash}, nil
	}
	for _, e := range entries {
		if e.Edition == edition {
			return Resolved{Version: version, Edition: edition, Hash: e.Hash}, nil
		}
	}
	return Resolved{}, &bookshelf.UnknownEditionError{Name: name, Version: version, Edition: edition}
}

// Volume produces the volume manifest for name,
// which is cached at <root>/<name>/volume.json.
// If force is true, or there is no cached copy, it is fetched from the remote bookshelf.
// Failure to fetch it is a *bookshelf.UnknownBookError.
func (s *Shelf) Volume(ctx context.Context, name string, force bool) (*bookshelf.Volume, error) {
	path := filepath.Join(s.root, name, bookshelf.VolumeFilename)
	if err := s.fetcher.Fetch(ctx, bookshelf.VolumeURL(s.remote, name), path, "", force); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &bookshelf.UnknownBookError{Name: name, Err: err}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	var vol bookshelf.Volume
	if err = json.Unmarshal(data, &vol); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	return &vol, nil
}

// IsAvailable tells whether the given book can be resolved against the remote bookshelf.
// An empty version or zero edition means any.
// The error is non-nil only for failures other than the book, version or edition being unknown.
func (s *Shelf) IsAvailable(ctx context.Context, name, version string, edition int) (bool, error) {
	_, err := s.resolve(ctx, name, version, edition)
	if err == nil {
		return true, nil
	}
	var (
		ub *bookshelf.UnknownBookError
		uv *bookshelf.UnknownVersionError
	)
	if errors.As(err, &ub) || errors.As(err, &uv) {
		return false, nil
	}
	return false, err
}

// IsCached tells whether the manifest of the given book is in the local cache and readable.
// It does not use the network.
func (s *Shelf) IsCached(name, version string, edition int) bool {
	_, err := book.Open(s.root, name, version, edition, "", nil).Metadata()
	return err == nil
}

// ListVersions lists the non-private versions of the named book,
// in the order they were first published.
// The volume manifest is always refetched.
func (s *Shelf) ListVersions(ctx context.Context, name string) ([]string, error) {
	vol, err := s.Volume(ctx, name, true)
	if err != nil {
		return nil, err
	}
	return vol.PublicVersions(), nil
}

// ListBooks lists the names of the books recorded in the shelf's catalog.
func (s *Shelf) ListBooks(ctx context.Context) ([]string, error) {
	if s.catalog == nil {
		return nil, errors.New("no catalog configured")
	}
	return s.catalog.Books(ctx)
}

// CachedBook identifies a book in the local cache.
type CachedBook struct {
	Name    string
	Version string
	Edition int
}

// ListCached lists the books whose manifests are in the local cache,
// sorted by name, then version, then edition.
func (s *Shelf) ListCached() ([]CachedBook, error) {
	pattern := filepath.Join(s.root, "*", "*", bookshelf.DatapackageFilename)
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "globbing %s", pattern)
	}

	var result []CachedBook
	for _, m := range matches {
		var (
			dir  = filepath.Dir(m)
			long = filepath.Base(dir)
			name = filepath.Base(filepath.Dir(dir))
		)
		version, edition, ok := splitLongVersion(long)
		if !ok {
			continue
		}
		result = append(result, CachedBook{Name: name, Version: version, Edition: edition})
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if c := bookshelf.CompareVersions(a.Version, b.Version); c != 0 {
			return c < 0
		}
		return a.Edition < b.Edition
	})
	return result, nil
}

// splitLongVersion is the inverse of bookshelf.LongVersion.
func splitLongVersion(s string) (string, int, bool) {
	i := strings.LastIndex(s, "_e")
	if i < 0 {
		return "", 0, false
	}
	edition, err := strconv.Atoi(s[i+2:])
	if err != nil || edition <= 0 {
		return "", 0, false
	}
	return s[:i], edition, true
}
