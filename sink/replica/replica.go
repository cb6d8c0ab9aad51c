// Package replica implements a sink that writes every object to several nested sinks,
// such as a cloud bucket and a local mirror.
package replica

import (
	"bytes"
	"context"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/bobg/bookshelf"
	"github.com/bobg/bookshelf/sink"
)

var _ bookshelf.Sink = (*Sink)(nil)

// Sink delegates writes to a set of nested sinks.
// Writes to all of them must succeed before a call to Put returns,
// so a publisher's ordering of uploads holds in each.
type Sink struct {
	nested []bookshelf.Sink
}

// New produces a new Sink.
// The set of nested sinks must be non-empty.
func New(nested ...bookshelf.Sink) *Sink {
	return &Sink{nested: nested}
}

// Put implements bookshelf.Sink.
// The data is stored in all nested sinks concurrently.
// An error from any of them causes Put to return an error,
// in which case some nested sinks may have the object and others not.
func (s *Sink) Put(ctx context.Context, key string, r io.Reader) error {
	if len(s.nested) == 0 {
		return errors.New("no nested sinks")
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrapf(err, "reading data for %s", key)
	}

	g, ctx := errgroup.WithContext(ctx)
	for i, n := range s.nested {
		i, n := i, n
		g.Go(func() error {
			return errors.Wrapf(n.Put(ctx, key, bytes.NewReader(data)), "in nested sink %d", i)
		})
	}
	return g.Wait()
}

func init() {
	sink.Register("replica", func(ctx context.Context, conf map[string]interface{}) (bookshelf.Sink, error) {
		items, ok := conf["nested"].([]interface{})
		if !ok || len(items) == 0 {
			return nil, errors.New(`missing "nested" parameter`)
		}
		var nested []bookshelf.Sink
		for i, item := range items {
			nconf, ok := item.(map[string]interface{})
			if !ok {
				return nil, errors.Errorf("nested sink %d is not a config object", i)
			}
			n, err := sink.FromConfig(ctx, nconf)
			if err != nil {
				return nil, errors.Wrapf(err, "creating nested sink %d", i)
			}
			nested = append(nested, n)
		}
		return New(nested...), nil
	})
}
