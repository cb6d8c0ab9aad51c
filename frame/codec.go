package frame

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// Format is the on-disk encoding of a resource file.
type Format string

// Resource file formats.
const (
	CSV         Format = "csv"
	CSVGzip     Format = "csv.gz"
	Parquet     Format = "parquet"
	ParquetGzip Format = "parquet.gz"
)

// Compressed tells whether files in this format are gzipped.
func (f Format) Compressed() bool {
	return strings.HasSuffix(string(f), ".gz")
}

// Base is the format without compression.
func (f Format) Base() Format {
	return Format(strings.TrimSuffix(string(f), ".gz"))
}

// Valid tells whether f is a known format.
func (f Format) Valid() bool {
	switch f {
	case CSV, CSVGzip, Parquet, ParquetGzip:
		return true
	}
	return false
}

// CSVFormat is CSV or CSVGzip.
func CSVFormat(compressed bool) Format {
	if compressed {
		return CSVGzip
	}
	return CSV
}

// ParquetFormat is Parquet or ParquetGzip.
func ParquetFormat(compressed bool) Format {
	if compressed {
		return ParquetGzip
	}
	return Parquet
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// compressor wraps w for writing in format f.
// The gzip header carries no name or timestamp,
// so equal content always compresses to equal bytes.
func compressor(w io.Writer, f Format) io.WriteCloser {
	if f.Compressed() {
		return gzip.NewWriter(w)
	}
	return nopWriteCloser{w}
}

func decompressor(r io.Reader, f Format) (io.ReadCloser, error) {
	if f.Compressed() {
		gr, err := gzip.NewReader(r)
		return gr, errors.Wrap(err, "opening gzip stream")
	}
	return io.NopCloser(r), nil
}

// contentHasher computes the content hash of a resource:
// the sha256 of its canonical (uncompressed CSV) serialization.
type contentHasher struct {
	hash.Hash
}

func newContentHasher() *contentHasher {
	return &contentHasher{Hash: sha256.New()}
}

func (c *contentHasher) String() string { return hex.EncodeToString(c.Sum(nil)) }

func checkCSV(f Format) error {
	if f.Base() != CSV {
		return fmt.Errorf("timeseries cannot be stored as %s", f)
	}
	return nil
}

// EncodeWide writes the wide shape of ts to w in format f,
// which must be CSV or CSVGzip,
// and returns its content hash.
func EncodeWide(w io.Writer, ts *Timeseries, f Format) (string, error) {
	if err := checkCSV(f); err != nil {
		return "", err
	}
	return encode(w, f, func(w io.Writer) error { return WriteWideCSV(w, ts) })
}

// EncodeLong writes the long shape of ts to w in format f,
// which must be CSV or CSVGzip,
// and returns its content hash.
func EncodeLong(w io.Writer, ts *Timeseries, f Format, chunkSize int) (string, error) {
	if err := checkCSV(f); err != nil {
		return "", err
	}
	return encode(w, f, func(w io.Writer) error { return WriteLongCSV(w, ts, chunkSize) })
}

func encode(w io.Writer, f Format, write func(io.Writer) error) (string, error) {
	var (
		ch = newContentHasher()
		cw = compressor(w, f)
	)
	if err := write(io.MultiWriter(cw, ch)); err != nil {
		return "", err
	}
	if err := cw.Close(); err != nil {
		return "", errors.Wrap(err, "closing compressor")
	}
	return ch.String(), nil
}

// EncodeFrame writes the normalized frame fr to w in format f
// and returns its content hash.
func EncodeFrame(w io.Writer, fr *Frame, f Format) (string, error) {
	switch f.Base() {
	case CSV:
		return encode(w, f, func(w io.Writer) error { return WriteCSV(w, fr) })

	case Parquet:
		ch := newContentHasher()
		if err := WriteCSV(ch, fr); err != nil {
			return "", errors.Wrap(err, "computing content hash")
		}
		cw := compressor(w, f)
		if err := WriteParquet(cw, fr); err != nil {
			return "", err
		}
		if err := cw.Close(); err != nil {
			return "", errors.Wrap(err, "closing compressor")
		}
		return ch.String(), nil
	}
	return "", fmt.Errorf("unknown format %q", f)
}

// DecodeWide reads a timeseries written by EncodeWide.
func DecodeWide(r io.Reader, f Format, dims []string) (*Timeseries, error) {
	if err := checkCSV(f); err != nil {
		return nil, err
	}
	rc, err := decompressor(r, f)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ReadWideCSV(rc, dims)
}

// DecodeLong reads the long shape of a timeseries written by EncodeLong.
// Its columns are described by specs (see Timeseries.LongSpecs).
func DecodeLong(r io.Reader, f Format, specs []ColumnSpec) (*Frame, error) {
	if err := checkCSV(f); err != nil {
		return nil, err
	}
	rc, err := decompressor(r, f)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ReadCSV(rc, specs, "")
}

// DecodeFrame reads a frame written by EncodeFrame.
func DecodeFrame(r io.Reader, f Format, specs []ColumnSpec, index string) (*Frame, error) {
	rc, err := decompressor(r, f)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	switch f.Base() {
	case CSV:
		return ReadCSV(rc, specs, index)

	case Parquet:
		return ReadParquet(rc, specs, index)
	}
	return nil, fmt.Errorf("unknown format %q", f)
}
