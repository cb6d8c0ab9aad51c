// Package mem implements an in-memory sink.
package mem

import (
	"context"
	"io"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/bobg/bookshelf"
	"github.com/bobg/bookshelf/sink"
)

var _ bookshelf.Sink = &Sink{}

// Sink is a memory-based implementation of a sink.
type Sink struct {
	mu      sync.Mutex
	objects map[string][]byte
}

// New produces a new Sink.
func New() *Sink {
	return &Sink{objects: make(map[string][]byte)}
}

// Put implements bookshelf.Sink.
func (s *Sink) Put(_ context.Context, key string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrapf(err, "reading data for %s", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[key] = data
	return nil
}

// Get gets the object at key.
// The boolean is false if there is none.
func (s *Sink) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.objects[key]
	return data, ok
}

// Keys lists the keys of all objects in the sink, in sorted order.
func (s *Sink) Keys() []string {
	s.mu.Lock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	s.mu.Unlock()

	sort.Strings(keys)
	return keys
}

func init() {
	sink.Register("mem", func(context.Context, map[string]interface{}) (bookshelf.Sink, error) {
		return New(), nil
	})
}
