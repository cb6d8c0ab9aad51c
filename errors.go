package bookshelf

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is matched, via errors.Is,
	// by UnknownBookError, UnknownVersionError, UnknownEditionError and ResourceNotFoundError.
	ErrNotFound = errors.New("not found")

	// ErrExists is returned when creating something that is already there.
	ErrExists = errors.New("already exists")
)

// UnknownBookError means there is no volume manifest for a name.
type UnknownBookError struct {
	Name string
	Err  error
}

func (e *UnknownBookError) Error() string {
	return fmt.Sprintf("no metadata for %q", e.Name)
}

func (e *UnknownBookError) Unwrap() error        { return e.Err }
func (e *UnknownBookError) Is(target error) bool { return target == ErrNotFound }

// UnknownVersionError means a volume exists
// but the requested version is absent from its manifest,
// or the manifest lists it but the book's files are missing from the remote.
type UnknownVersionError struct {
	Name    string
	Version string
	Err     error
}

func (e *UnknownVersionError) Error() string {
	return fmt.Sprintf("could not find %s@%s", e.Name, e.Version)
}

func (e *UnknownVersionError) Unwrap() error        { return e.Err }
func (e *UnknownVersionError) Is(target error) bool { return target == ErrNotFound }

// UnknownEditionError means a version exists but the requested edition of it does not.
// It also satisfies errors.As for *UnknownVersionError.
type UnknownEditionError struct {
	Name    string
	Version string
	Edition int
}

func (e *UnknownEditionError) Error() string {
	return fmt.Sprintf("could not find %s@%s ed.%d", e.Name, e.Version, e.Edition)
}

func (e *UnknownEditionError) Is(target error) bool { return target == ErrNotFound }

func (e *UnknownEditionError) As(target interface{}) bool {
	if t, ok := target.(**UnknownVersionError); ok {
		*t = &UnknownVersionError{Name: e.Name, Version: e.Version}
		return true
	}
	return false
}

// IntegrityError means a file did not match the hash recorded for it.
type IntegrityError struct {
	Path string
	Want string
	Got  string
}

func (e *IntegrityError) Error() string {
	if e.Got == "" {
		return fmt.Sprintf("hash of %s does not match the expected value %s", e.Path, e.Want)
	}
	return fmt.Sprintf("hash of %s is %s, expected %s", e.Path, e.Got, e.Want)
}

// SchemaProblem is one reason a dataframe was rejected.
type SchemaProblem struct {
	Column string
	DType  string
	Reason string
}

// SchemaError means a dataframe cannot be stored as a resource.
type SchemaError struct {
	Problems []SchemaProblem
}

func (e *SchemaError) Error() string {
	strs := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		s := fmt.Sprintf("%q", p.Column)
		if p.DType != "" {
			s += fmt.Sprintf(" (%s)", p.DType)
		}
		if p.Reason != "" {
			s += ": " + p.Reason
		}
		strs = append(strs, s)
	}
	return "unsupported dataframe schema: " + strings.Join(strs, "; ")
}

// Columns lists the names of the offending columns.
func (e *SchemaError) Columns() []string {
	result := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		result = append(result, p.Column)
	}
	return result
}

// ResourceNotFoundError means a book's manifest has no entry for a resource.
type ResourceNotFoundError struct {
	Book     string
	Resource string
}

func (e *ResourceNotFoundError) Error() string {
	return fmt.Sprintf("unknown resource %q in %s", e.Resource, e.Book)
}

func (e *ResourceNotFoundError) Is(target error) bool { return target == ErrNotFound }

// UploadError means a book could not be published.
type UploadError struct {
	Msg string
	Err error
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *UploadError) Unwrap() error { return e.Err }
