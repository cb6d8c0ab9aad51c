// Package publish pushes locally built books to a remote bookshelf.
//
// Files are uploaded through a bookshelf.Sink
// and the volume manifest is read back from the shelf's remote,
// so the sink must write where the remote serves from.
//
// Publishing is not transactional.
// A failure after the book's files are uploaded
// but before the volume manifest is updated
// leaves files on the remote that no manifest lists;
// publishing the same edition again with Force repairs it.
// Nothing guards against concurrent publishers of the same volume.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/bobg/bookshelf"
	"github.com/bobg/bookshelf/book"
	"github.com/bobg/bookshelf/catalog"
	"github.com/bobg/bookshelf/fetch"
	"github.com/bobg/bookshelf/shelf"
)

// Publisher publishes books.
type Publisher struct {
	shelf   *shelf.Shelf
	sink    bookshelf.Sink
	catalog catalog.Catalog
	prefix  string

	now func() time.Time
}

// New produces a Publisher uploading to sink beneath cfg.BucketPrefix.
// The shelf supplies the remote bookshelf against which editions are checked.
// The catalog may be nil.
func New(cfg bookshelf.Config, s *shelf.Shelf, sink bookshelf.Sink, cat catalog.Catalog) *Publisher {
	return &Publisher{
		shelf:   s,
		sink:    sink,
		catalog: cat,
		prefix:  cfg.BucketPrefix,
		now:     time.Now,
	}
}

// Options control Publish.
type Options struct {
	// Force publishes even when the remote already has
	// the same or a later edition of the book's version.
	Force bool
}

// Publish uploads b and adds it to its volume manifest,
// creating the volume if necessary.
// It returns the volume entry it added.
//
// Failures are reported as *bookshelf.UploadError.
// These include an edition that is not greater than the remote's latest edition of the same version
// (unless opts.Force is true)
// and any file in the book's directory that the manifest does not list.
func (p *Publisher) Publish(ctx context.Context, b *book.Book, opts Options) (bookshelf.VersionEntry, error) {
	id := uuid.New().String()
	logger := log.WithFields(log.Fields{"upload_id": id, "book": b.String()})

	if err := p.checkEdition(ctx, b, opts.Force, logger); err != nil {
		return bookshelf.VersionEntry{}, err
	}

	m, err := b.Metadata()
	if err != nil {
		return bookshelf.VersionEntry{}, &bookshelf.UploadError{Msg: "reading manifest", Err: err}
	}
	if err = b.Verify(); err != nil {
		return bookshelf.VersionEntry{}, &bookshelf.UploadError{Msg: "verifying book", Err: err}
	}

	files, err := b.Files()
	if err != nil {
		return bookshelf.VersionEntry{}, &bookshelf.UploadError{Msg: "listing files", Err: err}
	}
	tracked := make(map[string]bool)
	for _, r := range m.Resources {
		tracked[r.Filename] = true
	}
	var resourceFiles []string
	for _, f := range files {
		base := filepath.Base(f)
		if base == bookshelf.DatapackageFilename {
			continue
		}
		if !tracked[base] {
			return bookshelf.VersionEntry{}, &bookshelf.UploadError{Msg: "non-resource file " + base + " found in book"}
		}
		resourceFiles = append(resourceFiles, f)
	}

	logger.Info("Beginning upload")

	// The manifest goes last, so a reader never sees a manifest whose resources are missing.
	for _, f := range append(resourceFiles, b.LocalPath(bookshelf.DatapackageFilename)) {
		if err = p.upload(ctx, b, f); err != nil {
			return bookshelf.VersionEntry{}, err
		}
	}

	hash, err := b.Hash()
	if err != nil {
		return bookshelf.VersionEntry{}, &bookshelf.UploadError{Msg: "hashing manifest", Err: err}
	}
	entry := bookshelf.VersionEntry{
		Version: b.Version,
		Edition: b.Edition,
		URL:     bookshelf.BuildURL(p.shelf.Remote(), bookshelf.PathParts(b.Name, b.Version, b.Edition, "")...),
		Hash:    hash,
		Private: m.Private,
	}
	if err = p.appendVolume(ctx, b.Name, m.License, entry); err != nil {
		return entry, err
	}

	if p.catalog != nil {
		err = p.catalog.Record(ctx, catalog.Entry{
			Name:        b.Name,
			Version:     entry.Version,
			Edition:     entry.Edition,
			Hash:        entry.Hash,
			URL:         entry.URL,
			Private:     entry.Private,
			UploadID:    id,
			PublishedAt: p.now(),
		})
		if err != nil {
			return entry, &bookshelf.UploadError{Msg: "recording publish in catalog", Err: err}
		}
	}

	logger.Info("Upload finished")
	return entry, nil
}

func (p *Publisher) checkEdition(ctx context.Context, b *book.Book, force bool, logger log.FieldLogger) error {
	ok, err := p.shelf.IsAvailable(ctx, b.Name, b.Version, 0)
	if err != nil {
		return &bookshelf.UploadError{Msg: "checking remote bookshelf", Err: err}
	}
	if !ok {
		return nil
	}

	remote, err := p.shelf.Load(ctx, b.Name, b.Version, 0, shelf.LoadOptions{})
	if err != nil {
		return &bookshelf.UploadError{Msg: "loading remote book", Err: err}
	}
	if remote.Edition >= b.Edition {
		msg := "edition has not been increased (remote: " + remote.LongVersion() + ", local: " + b.LongVersion() + ")"
		if !force {
			return &bookshelf.UploadError{Msg: msg}
		}
		logger.Warn(msg)
	}
	logger.Warn("Uploading a new edition of an existing book")
	return nil
}

func (p *Publisher) upload(ctx context.Context, b *book.Book, path string) error {
	key := bookshelf.UploadKey(p.prefix, b.Name, b.Version, b.Edition, filepath.Base(path))

	f, err := os.Open(path)
	if err != nil {
		return &bookshelf.UploadError{Msg: "opening " + path, Err: err}
	}
	defer f.Close()

	log.WithField("key", key).Debugf("Uploading %s", path)
	if err = p.sink.Put(ctx, key, f); err != nil {
		return &bookshelf.UploadError{Msg: "failed to upload " + path, Err: err}
	}
	return nil
}

// appendVolume refetches the volume manifest, appends entry, and uploads the result.
// Any HTTP error fetching the manifest means there is no volume yet.
// (A static host such as S3 may answer 403 rather than 404 for a missing object.)
func (p *Publisher) appendVolume(ctx context.Context, name, license string, entry bookshelf.VersionEntry) error {
	vol, err := p.shelf.Volume(ctx, name, true)
	switch {
	case fetch.IsHTTPError(err):
		vol = &bookshelf.Volume{Name: name, License: license}
	case err != nil:
		return &bookshelf.UploadError{Msg: "fetching volume manifest", Err: err}
	}
	vol.Versions = append(vol.Versions, entry)

	data, err := json.Marshal(vol)
	if err != nil {
		return &bookshelf.UploadError{Msg: "encoding volume manifest", Err: errors.WithStack(err)}
	}
	key := bookshelf.VolumeKey(p.prefix, name)
	if err = p.sink.Put(ctx, key, bytes.NewReader(data)); err != nil {
		return &bookshelf.UploadError{Msg: "failed to upload volume manifest", Err: err}
	}
	return nil
}
