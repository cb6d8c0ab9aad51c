// Package notebook connects dataset construction scripts to books.
//
// A dataset is described by a YAML file naming its license, its versions,
// and a data dictionary for its dimensions.
// A Runner executes the dataset's construction script,
// which must write a complete book;
// Build stages that output and moves the book into a local bookshelf only if it verifies.
package notebook

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/bobg/bookshelf"
	"github.com/bobg/bookshelf/book"
)

// Description describes a dataset and the versions of it that can be built.
type Description struct {
	Name        string `yaml:"name"`
	License     string `yaml:"license"`
	Private     bool   `yaml:"private"`
	Description string `yaml:"description"`

	// SourceFile is the file the description was loaded from.
	// LoadDescription always overrides what the file says.
	SourceFile string `yaml:"source_file"`

	Versions []VersionSpec `yaml:"versions"`

	Metadata       map[string]interface{} `yaml:"metadata"`
	Dataset        map[string]interface{} `yaml:"dataset"`
	DataDictionary DataDictionary         `yaml:"data_dictionary"`

	// Selected is the entry of Versions chosen by LoadDescription.
	Selected VersionSpec `yaml:"-"`
}

// VersionSpec is one buildable version of a dataset.
type VersionSpec struct {
	Version string `yaml:"version"`

	// Edition 0 means 1.
	Edition int `yaml:"edition"`

	Private bool `yaml:"private"`

	// Values holds any other per-version settings for the construction script,
	// such as source URLs.
	Values map[string]interface{} `yaml:",inline"`
}

// LoadDescription reads the description of the named dataset from dir,
// which is usually Config.NotebookDirectory.
// It looks first for {dir}/{name}/{name}.yaml and then for {dir}/{name}.yaml.
//
// An empty version selects the last entry in the description's versions list.
// If there is no entry for the version,
// the result is a *bookshelf.UnknownVersionError.
func LoadDescription(name, version, dir string) (*Description, error) {
	filename, err := findDescription(name, dir)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", filename)
	}
	defer f.Close()

	var d Description
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err = dec.Decode(&d); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", filename)
	}
	d.SourceFile = filename

	if d.Name != filepath.Base(name) {
		return nil, errors.Errorf("name in %s is %q, expected %q", filename, d.Name, filepath.Base(name))
	}
	if len(d.Versions) == 0 {
		return nil, &bookshelf.UnknownVersionError{Name: d.Name, Version: version}
	}

	if version == "" {
		d.Selected = d.Versions[len(d.Versions)-1]
		return &d, nil
	}
	for _, v := range d.Versions {
		if v.Version == version {
			d.Selected = v
			return &d, nil
		}
	}
	return nil, &bookshelf.UnknownVersionError{Name: d.Name, Version: version}
}

func findDescription(name, dir string) (string, error) {
	candidates := []string{
		filepath.Join(dir, name, filepath.Base(name)+".yaml"),
		filepath.Join(dir, name+".yaml"),
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		} else if !os.IsNotExist(err) {
			return "", errors.Wrapf(err, "checking %s", c)
		}
	}
	return "", errors.Wrapf(os.ErrNotExist, "no description for %s in %s", name, dir)
}

// Edition is the edition of the selected version.
func (d *Description) Edition() int {
	if d.Selected.Edition == 0 {
		return 1
	}
	return d.Selected.Edition
}

// Descriptor produces the fields that seed the manifest of a book built from the selected version.
// The book is private if either the dataset or the version is.
func (d *Description) Descriptor() book.Descriptor {
	return book.Descriptor{
		Name:        d.Name,
		Version:     d.Selected.Version,
		Edition:     d.Edition(),
		Private:     d.Private || d.Selected.Private,
		License:     d.License,
		Description: d.Description,
	}
}
