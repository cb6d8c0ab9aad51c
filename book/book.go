// Package book implements books:
// single editions of versioned datasets,
// stored as a directory of resource files plus a datapackage.json manifest.
package book

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bobg/flock"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/bobg/bookshelf"
	"github.com/bobg/bookshelf/fetch"
)

// lockFilename is the advisory lock guarding manifest rewrites.
// Like the fetcher's temp files it is a dotfile,
// and dotfiles are not part of a book.
const lockFilename = ".lock"

// Book is one edition of one version of a dataset in a local bookshelf.
//
// Its manifest is read lazily on first use and cached;
// Invalidate discards the cached copy.
// A Book is not safe for concurrent use by multiple goroutines.
type Book struct {
	Name    string
	Version string
	Edition int

	root    string
	remote  string
	fetcher *fetch.Fetcher
	flocker flock.Locker

	meta *Metadata
}

// Options control book creation.
type Options struct {
	// Recreate allows replacing an existing manifest.
	Recreate bool
}

// Descriptor holds the fields of a dataset description that seed a new book's manifest.
type Descriptor struct {
	Name        string
	Version     string
	Edition     int
	Private     bool
	License     string
	Description string
}

// CreateNew creates an empty book beneath the local bookshelf root.
// An edition of 0 means 1.
//
// If the book's manifest already exists
// the result is an error satisfying errors.Is(err, bookshelf.ErrExists),
// unless opts.Recreate is true.
func CreateNew(root, name, version string, edition int, opts Options) (*Book, error) {
	return CreateFromMetadata(root, Descriptor{Name: name, Version: version, Edition: edition}, opts)
}

// CreateFromMetadata is like CreateNew
// but seeds the manifest from a dataset descriptor.
func CreateFromMetadata(root string, desc Descriptor, opts Options) (*Book, error) {
	if desc.Name == "" || desc.Version == "" {
		return nil, errors.New("a book needs a name and a version")
	}
	if desc.Edition == 0 {
		desc.Edition = 1
	}
	if desc.Edition < 0 {
		return nil, fmt.Errorf("invalid edition %d", desc.Edition)
	}

	b := &Book{
		Name:    desc.Name,
		Version: desc.Version,
		Edition: desc.Edition,
		root:    root,
	}

	dir := b.Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "ensuring path %s exists", dir)
	}

	if err := b.lock(); err != nil {
		return nil, err
	}
	defer b.unlock()

	path := b.manifestPath()
	if !opts.Recreate {
		if _, err := os.Stat(path); err == nil {
			return nil, errors.Wrapf(bookshelf.ErrExists, "manifest %s", path)
		} else if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "checking %s", path)
		}
	}

	m := &Metadata{
		SchemaVersion: bookshelf.DataFormatVersion,
		Name:          desc.Name,
		Version:       desc.Version,
		Edition:       desc.Edition,
		Private:       desc.Private,
		License:       desc.License,
		Description:   desc.Description,
		Resources:     []Resource{},
	}
	if err := b.save(m); err != nil {
		return nil, err
	}

	log.WithField("path", dir).Infof("Created book %s@%s", b.Name, b.LongVersion())
	return b, nil
}

// Open binds to a book in the local bookshelf beneath root.
// Nothing is read until it is needed.
// Resource files missing locally are fetched from remote using f.
// If remote is empty, missing files are errors.
func Open(root, name, version string, edition int, remote string, f *fetch.Fetcher) *Book {
	if f == nil {
		f = new(fetch.Fetcher)
	}
	return &Book{
		Name:    name,
		Version: version,
		Edition: edition,
		root:    root,
		remote:  remote,
		fetcher: f,
	}
}

// LongVersion is the book's version and edition as a single string, e.g. "v1.0.1_e002".
func (b *Book) LongVersion() string {
	return bookshelf.LongVersion(b.Version, b.Edition)
}

func (b *Book) String() string {
	return b.Name + "@" + b.LongVersion()
}

// Dir is the book's local directory.
func (b *Book) Dir() string {
	return bookshelf.LocalPath(b.root, b.Name, b.Version, b.Edition, "")
}

// LocalPath is the local location of a file in the book.
func (b *Book) LocalPath(filename string) string {
	return bookshelf.LocalPath(b.root, b.Name, b.Version, b.Edition, filename)
}

// URL is the remote location of a file in the book.
// It is empty if the book has no remote.
func (b *Book) URL(filename string) string {
	if b.remote == "" {
		return ""
	}
	return bookshelf.BuildURL(b.remote, bookshelf.PathParts(b.Name, b.Version, b.Edition, filename)...)
}

func (b *Book) manifestPath() string {
	return b.LocalPath(bookshelf.DatapackageFilename)
}

// Metadata produces the book's manifest,
// reading it from disk if it is not already cached.
// A missing manifest is an error satisfying errors.Is(err, os.ErrNotExist).
func (b *Book) Metadata() (*Metadata, error) {
	if b.meta != nil {
		return b.meta, nil
	}
	m, err := ReadMetadata(b.manifestPath())
	if err != nil {
		return nil, err
	}
	b.meta = m
	return m, nil
}

// Invalidate discards the cached manifest,
// so the next call to Metadata rereads it.
func (b *Book) Invalidate() {
	b.meta = nil
}

// Resources lists the entries in the book's manifest.
func (b *Book) Resources() ([]Resource, error) {
	m, err := b.Metadata()
	if err != nil {
		return nil, err
	}
	return m.Resources, nil
}

// Hash is the hash of the book's manifest file.
// Since the manifest records the hash of every resource,
// this covers the whole book.
func (b *Book) Hash() (string, error) {
	return bookshelf.HashFile(b.manifestPath())
}

// Files lists the files present in the book's local directory, in sorted order.
// This may be fewer than the manifest names
// if some resources have not been fetched.
func (b *Book) Files() ([]string, error) {
	dir := b.Dir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "reading dir %s", dir)
	}
	var result []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		result = append(result, filepath.Join(dir, e.Name()))
	}
	sort.Strings(result)
	return result, nil
}

// Verify checks that every resource in the manifest is present locally
// and matches its recorded hash.
func (b *Book) Verify() error {
	m, err := b.Metadata()
	if err != nil {
		return err
	}
	for _, r := range m.Resources {
		path := b.LocalPath(r.Filename)
		ok, err := bookshelf.HashMatches(path, r.Hash)
		if err != nil {
			return errors.Wrapf(err, "checking resource %s", r.Name)
		}
		if !ok {
			return &bookshelf.IntegrityError{Path: path, Want: r.Hash}
		}
	}
	return nil
}

// FetchAll makes sure every resource in the manifest is present locally and intact,
// downloading any that are missing.
func (b *Book) FetchAll(ctx context.Context) error {
	m, err := b.Metadata()
	if err != nil {
		return err
	}
	for _, r := range m.Resources {
		if _, err := b.ensure(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// ensure makes sure r's file is present locally and intact,
// fetching it if necessary,
// and returns its path.
func (b *Book) ensure(ctx context.Context, r Resource) (string, error) {
	path := b.LocalPath(r.Filename)
	if b.remote == "" {
		ok, err := bookshelf.HashMatches(path, r.Hash)
		if err != nil {
			return "", errors.Wrapf(err, "checking resource %s", r.Name)
		}
		if !ok {
			return "", &bookshelf.IntegrityError{Path: path, Want: r.Hash}
		}
		return path, nil
	}
	err := b.fetcher.Fetch(ctx, b.URL(r.Filename), path, r.Hash, false)
	return path, errors.Wrapf(err, "fetching resource %s", r.Name)
}

func (b *Book) lock() error {
	err := b.flocker.Lock(filepath.Join(b.Dir(), lockFilename))
	return errors.Wrapf(err, "locking %s", b)
}

func (b *Book) unlock() {
	if err := b.flocker.Unlock(filepath.Join(b.Dir(), lockFilename)); err != nil {
		log.WithError(err).Warnf("Unlocking %s", b)
	}
}

// save writes m as the book's manifest, atomically.
// The lock must be held.
func (b *Book) save(m *Metadata) error {
	data, err := m.Encode()
	if err != nil {
		return err
	}

	path := b.manifestPath()
	err = writeAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
	if err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}

	b.meta = m
	return nil
}
