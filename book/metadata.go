package book

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/bobg/bookshelf"
	"github.com/bobg/bookshelf/frame"
)

// Metadata is the manifest of a book,
// stored as datapackage.json in the book's directory.
type Metadata struct {
	// SchemaVersion is the DataFormatVersion the manifest was written with.
	SchemaVersion string `json:"schema_version"`

	Name    string `json:"name"`
	Version string `json:"version"`
	Edition int    `json:"edition"`
	Private bool   `json:"private"`

	License     string `json:"license,omitempty"`
	Description string `json:"description,omitempty"`

	Resources []Resource `json:"resources"`
}

// Kind is the kind of a resource.
type Kind string

// Resource kinds.
const (
	KindTimeseries Kind = "timeseries"
	KindDataFrame  Kind = "dataframe"
)

// Shape is the shape in which a timeseries resource is stored.
type Shape string

// Timeseries shapes.
const (
	Wide Shape = "wide"
	Long Shape = "long"
)

// Resource is an entry in a book's manifest describing one physical file.
// Which fields are set depends on Kind (see Validate).
type Resource struct {
	// Name is unique within the book.
	// For timeseries it is "{timeseries_name}_{shape}".
	Name string `json:"name"`
	Kind Kind   `json:"kind"`

	Format      frame.Format `json:"format"`
	Filename    string       `json:"filename"`
	Hash        string       `json:"hash"`
	ContentHash string       `json:"content_hash"`

	// Timeseries only.
	TimeseriesName string   `json:"timeseries_name,omitempty"`
	Shape          Shape    `json:"shape,omitempty"`
	Dimensions     []string `json:"dimensions,omitempty"`

	// Columns is set for dataframes and for long-shaped timeseries.
	Columns []frame.ColumnSpec `json:"columns,omitempty"`

	// Index is the name of a dataframe's index column, if any.
	Index string `json:"index,omitempty"`
}

// Validate checks that r has the fields its kind requires and no others.
func (r *Resource) Validate() error {
	if r.Name == "" || r.Filename == "" || r.Hash == "" {
		return fmt.Errorf("resource %q is missing a name, filename or hash", r.Name)
	}
	if !r.Format.Valid() {
		return fmt.Errorf("resource %q has unknown format %q", r.Name, r.Format)
	}

	switch r.Kind {
	case KindTimeseries:
		if r.TimeseriesName == "" || len(r.Dimensions) == 0 {
			return fmt.Errorf("timeseries resource %q is missing timeseries_name or dimensions", r.Name)
		}
		if r.Index != "" {
			return fmt.Errorf("timeseries resource %q has an index", r.Name)
		}
		switch r.Shape {
		case Wide:
			if len(r.Columns) > 0 {
				return fmt.Errorf("wide timeseries resource %q has columns", r.Name)
			}
		case Long:
			if len(r.Columns) == 0 {
				return fmt.Errorf("long timeseries resource %q has no columns", r.Name)
			}
		default:
			return fmt.Errorf("timeseries resource %q has unknown shape %q", r.Name, r.Shape)
		}

	case KindDataFrame:
		if r.TimeseriesName != "" || r.Shape != "" || len(r.Dimensions) > 0 {
			return fmt.Errorf("dataframe resource %q has timeseries fields", r.Name)
		}
		if len(r.Columns) == 0 {
			return fmt.Errorf("dataframe resource %q has no columns", r.Name)
		}

	default:
		return fmt.Errorf("resource %q has unknown kind %q", r.Name, r.Kind)
	}
	return nil
}

// DecodeMetadata parses a manifest.
// Unknown fields, an unexpected schema version and invalid resource entries are all errors.
func DecodeMetadata(r io.Reader) (*Metadata, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var m Metadata
	if err := dec.Decode(&m); err != nil {
		return nil, errors.Wrap(err, "decoding manifest")
	}
	if m.SchemaVersion != bookshelf.DataFormatVersion {
		return nil, fmt.Errorf("manifest has schema version %q, want %q", m.SchemaVersion, bookshelf.DataFormatVersion)
	}

	names := make(map[string]bool)
	for i := range m.Resources {
		r := &m.Resources[i]
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if names[r.Name] {
			return nil, fmt.Errorf("duplicate resource %q", r.Name)
		}
		names[r.Name] = true
	}
	return &m, nil
}

// ReadMetadata reads the manifest at path.
// A missing file produces an error satisfying errors.Is(err, os.ErrNotExist).
func ReadMetadata(path string) (*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	m, err := DecodeMetadata(f)
	return m, errors.Wrapf(err, "reading %s", path)
}

// Encode produces the canonical serialization of a manifest.
// Equal manifests always encode to equal bytes.
func (m *Metadata) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return nil, errors.Wrap(err, "encoding manifest")
	}
	return buf.Bytes(), nil
}

// Resource finds a resource by name.
func (m *Metadata) Resource(name string) (Resource, bool) {
	for _, r := range m.Resources {
		if r.Name == name {
			return r, true
		}
	}
	return Resource{}, false
}

// Timeseries finds the resource holding the given shape of the named timeseries.
func (m *Metadata) Timeseries(name string, shape Shape) (Resource, bool) {
	for _, r := range m.Resources {
		if r.Kind == KindTimeseries && r.TimeseriesName == name && r.Shape == shape {
			return r, true
		}
	}
	return Resource{}, false
}

// DataFrame finds the named dataframe resource.
func (m *Metadata) DataFrame(name string) (Resource, bool) {
	for _, r := range m.Resources {
		if r.Kind == KindDataFrame && r.Name == name {
			return r, true
		}
	}
	return Resource{}, false
}
