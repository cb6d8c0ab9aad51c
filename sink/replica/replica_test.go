package replica

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"

	"github.com/bobg/bookshelf/sink"
	"github.com/bobg/bookshelf/sink/mem"
	"github.com/bobg/bookshelf/sink/sinktest"
)

func TestReplicaSets(t *testing.T) {
	var (
		ctx = context.Background()
		m1  = mem.New()
		m2  = mem.New()
		s   = New(m1, m2)
	)

	if err := m1.Put(ctx, "only/in/m1", strings.NewReader("foo")); err != nil {
		t.Fatal(err)
	}

	for name, m := range map[string]*mem.Sink{"m1": m1, "m2": m2} {
		m := m
		t.Run(name, func(t *testing.T) {
			sinktest.PutGet(ctx, t, s, func(_ context.Context, key string) ([]byte, error) {
				data, ok := m.Get(key)
				if !ok {
					return nil, errors.Errorf("no object at %s in %s", key, name)
				}
				return data, nil
			})
		})
	}

	if diff := cmp.Diff(append([]string{"only/in/m1"}, m2.Keys()...), m1.Keys()); diff != "" {
		t.Errorf("key mismatch (-want +got):\n%s", diff)
	}
}

type failingSink struct{}

func (failingSink) Put(context.Context, string, io.Reader) error {
	return errors.New("boom")
}

func TestReplicaError(t *testing.T) {
	var (
		ctx = context.Background()
		m   = mem.New()
	)
	if err := New(m, failingSink{}).Put(ctx, "k", strings.NewReader("v")); err == nil {
		t.Error("got no error with a failing nested sink")
	}
	if err := New().Put(ctx, "k", strings.NewReader("v")); err == nil {
		t.Error("got no error with no nested sinks")
	}
}

func TestRegistry(t *testing.T) {
	s, err := sink.FromConfig(context.Background(), map[string]interface{}{
		"type": "replica",
		"nested": []interface{}{
			map[string]interface{}{"type": "mem"},
			map[string]interface{}{"type": "mem"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	rs, ok := s.(*Sink)
	if !ok {
		t.Fatalf("got %T, want *Sink", s)
	}
	if len(rs.nested) != 2 {
		t.Errorf("got %d nested sinks, want 2", len(rs.nested))
	}
}
