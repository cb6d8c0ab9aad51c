package book

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/bobg/bookshelf"
	"github.com/bobg/bookshelf/frame"
)

// AddOptions control how a timeseries is stored.
type AddOptions struct {
	// Compressed gzips the resource files.
	Compressed bool

	// WriteLong stores the long shape in addition to the wide shape.
	WriteLong bool

	// ChunkSize bounds how many series are melted into long rows at a time.
	// Zero means frame.MeltChunkSize.
	ChunkSize int
}

// DefaultAddOptions are the options used for most timeseries.
var DefaultAddOptions = AddOptions{Compressed: true, WriteLong: true}

// ResourceName is the manifest name of one shape of a timeseries.
func ResourceName(timeseriesName string, shape Shape) string {
	return timeseriesName + "_" + string(shape)
}

// filename is the name of a resource file,
// e.g. "demo_v1.0.0_e001_core_wide.csv.gz".
func (b *Book) filename(resourceName string, format frame.Format) string {
	return fmt.Sprintf("%s_%s_%s.%s", b.Name, b.LongVersion(), resourceName, format)
}

// AddTimeseries stores ts as a resource of the book,
// in wide shape and, if opts.WriteLong is set, also in long shape.
// Series are stored sorted by their metadata,
// so equal data always produces identical files.
//
// Each shape's file is written completely before its manifest entry is added.
func (b *Book) AddTimeseries(name string, ts *frame.Timeseries, opts AddOptions) error {
	if err := ts.Validate(); err != nil {
		return errors.Wrapf(err, "timeseries %s", name)
	}
	sorted := ts.Sorted()
	format := frame.CSVFormat(opts.Compressed)

	err := b.addResource(Resource{
		Name:           ResourceName(name, Wide),
		Kind:           KindTimeseries,
		Format:         format,
		TimeseriesName: name,
		Shape:          Wide,
		Dimensions:     sorted.Dimensions,
	}, func(w io.Writer) (string, error) {
		return frame.EncodeWide(w, sorted, format)
	})
	if err != nil || !opts.WriteLong {
		return err
	}

	return b.addResource(Resource{
		Name:           ResourceName(name, Long),
		Kind:           KindTimeseries,
		Format:         format,
		TimeseriesName: name,
		Shape:          Long,
		Dimensions:     sorted.Dimensions,
		Columns:        sorted.LongSpecs(),
	}, func(w io.Writer) (string, error) {
		return frame.EncodeLong(w, sorted, format, opts.ChunkSize)
	})
}

// AddDataFrame stores f as a parquet resource of the book.
// Frames that cannot be stored are rejected with a *bookshelf.SchemaError
// (see frame.Frame.Normalize).
func (b *Book) AddDataFrame(name string, f *frame.Frame, compressed bool) error {
	norm, err := f.Normalize()
	if err != nil {
		return err
	}
	format := frame.ParquetFormat(compressed)

	return b.addResource(Resource{
		Name:    name,
		Kind:    KindDataFrame,
		Format:  format,
		Columns: norm.Specs(),
		Index:   norm.IndexName(),
	}, func(w io.Writer) (string, error) {
		return frame.EncodeFrame(w, norm, format)
	})
}

// addResource writes a resource file with the given encoder,
// which returns the content hash,
// then hashes the file and records r in the manifest.
func (b *Book) addResource(r Resource, encode func(io.Writer) (string, error)) error {
	m, err := b.Metadata()
	if err != nil {
		return err
	}
	if _, ok := m.Resource(r.Name); ok {
		return errors.Wrapf(bookshelf.ErrExists, "resource %s in %s", r.Name, b)
	}

	r.Filename = b.filename(r.Name, r.Format)
	path := b.LocalPath(r.Filename)

	err = writeAtomic(path, func(w io.Writer) error {
		h, err := encode(w)
		r.ContentHash = h
		return err
	})
	if err != nil {
		return errors.Wrapf(err, "writing resource %s", r.Name)
	}
	if r.Hash, err = bookshelf.HashFile(path); err != nil {
		return err
	}
	if err = r.Validate(); err != nil {
		return err
	}

	if err = b.lock(); err != nil {
		return err
	}
	defer b.unlock()

	// Reread under the lock in case the manifest changed on disk.
	b.Invalidate()
	if m, err = b.Metadata(); err != nil {
		return err
	}
	if _, ok := m.Resource(r.Name); ok {
		return errors.Wrapf(bookshelf.ErrExists, "resource %s in %s", r.Name, b)
	}

	updated := *m
	updated.Resources = append(append([]Resource{}, m.Resources...), r)
	if err = b.save(&updated); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"file":         r.Filename,
		"content_hash": r.ContentHash,
	}).Debugf("Added resource %s to %s", r.Name, b)
	return nil
}

// Timeseries reads the named timeseries from its wide-shape resource,
// fetching the file first if necessary.
func (b *Book) Timeseries(ctx context.Context, name string) (*frame.Timeseries, error) {
	r, err := b.timeseriesResource(name, Wide)
	if err != nil {
		return nil, err
	}
	var ts *frame.Timeseries
	err = b.read(ctx, r, func(rd io.Reader) (err error) {
		ts, err = frame.DecodeWide(rd, r.Format, r.Dimensions)
		return err
	})
	return ts, err
}

// LongTimeseries reads the named timeseries from its long-shape resource,
// one row per observation,
// fetching the file first if necessary.
func (b *Book) LongTimeseries(ctx context.Context, name string) (*frame.Frame, error) {
	r, err := b.timeseriesResource(name, Long)
	if err != nil {
		return nil, err
	}
	var f *frame.Frame
	err = b.read(ctx, r, func(rd io.Reader) (err error) {
		f, err = frame.DecodeLong(rd, r.Format, r.Columns)
		return err
	})
	return f, err
}

// DataFrame reads the named dataframe resource,
// fetching the file first if necessary.
func (b *Book) DataFrame(ctx context.Context, name string) (*frame.Frame, error) {
	m, err := b.Metadata()
	if err != nil {
		return nil, err
	}
	r, ok := m.DataFrame(name)
	if !ok {
		return nil, &bookshelf.ResourceNotFoundError{Book: b.String(), Resource: name}
	}
	var f *frame.Frame
	err = b.read(ctx, r, func(rd io.Reader) (err error) {
		f, err = frame.DecodeFrame(rd, r.Format, r.Columns, r.Index)
		return err
	})
	return f, err
}

func (b *Book) timeseriesResource(name string, shape Shape) (Resource, error) {
	m, err := b.Metadata()
	if err != nil {
		return Resource{}, err
	}
	r, ok := m.Timeseries(name, shape)
	if !ok {
		return Resource{}, &bookshelf.ResourceNotFoundError{Book: b.String(), Resource: ResourceName(name, shape)}
	}
	return r, nil
}

func (b *Book) read(ctx context.Context, r Resource, decode func(io.Reader) error) error {
	path, err := b.ensure(ctx, r)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	return errors.Wrapf(decode(f), "decoding resource %s", r.Name)
}

// writeAtomic writes a file via a temp file in the same directory,
// so that path either does not exist or is complete.
func writeAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrapf(err, "creating temp file in %s", dir)
	}
	tmpname := tmp.Name()
	defer os.Remove(tmpname) // no-op after a successful rename

	if err = write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Chmod(0644); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "setting mode of %s", tmpname)
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrapf(err, "closing %s", tmpname)
	}
	return errors.Wrapf(os.Rename(tmpname, path), "renaming %s to %s", tmpname, path)
}
