// Package file implements a sink as a file hierarchy.
// Serving the hierarchy's root over HTTP makes it a remote bookshelf.
package file

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bobg/flock"
	"github.com/pkg/errors"

	"github.com/bobg/bookshelf"
	"github.com/bobg/bookshelf/sink"
)

var _ bookshelf.Sink = &Sink{}

// lockFilename serializes writers within one directory.
// Dotfiles are never part of a book.
const lockFilename = ".lock"

// Sink is a file-based implementation of a sink.
type Sink struct {
	root    string
	flocker flock.Locker
}

// New produces a new Sink storing files beneath `root`.
func New(root string) *Sink {
	return &Sink{root: root}
}

func (s *Sink) path(key string) (string, error) {
	p := filepath.Join(s.root, filepath.FromSlash(key))
	if p != s.root && !strings.HasPrefix(p, s.root+string(filepath.Separator)) {
		return "", errors.Errorf("key %s is outside %s", key, s.root)
	}
	return p, nil
}

// Put implements bookshelf.Sink.
// The file at key is replaced atomically.
func (s *Sink) Put(ctx context.Context, key string, r io.Reader) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "ensuring path %s exists", dir)
	}

	lockfile := filepath.Join(dir, lockFilename)
	if err = s.flocker.Lock(lockfile); err != nil {
		return errors.Wrapf(err, "locking %s", dir)
	}
	defer s.flocker.Unlock(lockfile)

	f, err := os.CreateTemp(dir, ".put-*")
	if err != nil {
		return errors.Wrapf(err, "creating temp file in %s", dir)
	}
	tmpname := f.Name()
	defer os.Remove(tmpname)

	_, err = io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return errors.Wrapf(err, "writing %s", tmpname)
	}
	if err = ctx.Err(); err != nil {
		return err
	}
	if err = os.Chmod(tmpname, 0644); err != nil {
		return errors.Wrapf(err, "setting mode of %s", tmpname)
	}
	return errors.Wrapf(os.Rename(tmpname, path), "renaming %s to %s", tmpname, path)
}

// Get reads back the file at key.
func (s *Sink) Get(_ context.Context, key string) ([]byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	return data, errors.Wrapf(err, "reading %s", path)
}

func init() {
	sink.Register("file", func(_ context.Context, conf map[string]interface{}) (bookshelf.Sink, error) {
		root, ok := conf["root"].(string)
		if !ok {
			return nil, errors.New(`missing "root" parameter`)
		}
		return New(root), nil
	})
}
