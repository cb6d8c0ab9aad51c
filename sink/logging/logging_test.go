package logging

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/bobg/bookshelf/sink"
	"github.com/bobg/bookshelf/sink/mem"
	"github.com/bobg/bookshelf/sink/sinktest"
)

func TestSink(t *testing.T) {
	var (
		logger, hook = test.NewNullLogger()
		nested       = mem.New()
		s            = New(nested, logger)
	)

	sinktest.PutGet(context.Background(), t, s, func(_ context.Context, key string) ([]byte, error) {
		data, ok := nested.Get(key)
		if !ok {
			return nil, errors.Errorf("no object at %s", key)
		}
		return data, nil
	})

	entries := hook.AllEntries()
	if len(entries) != 4 {
		t.Fatalf("got %d log entries, want 4", len(entries))
	}
	last := entries[3]
	if last.Level != log.InfoLevel {
		t.Errorf("got level %s, want info", last.Level)
	}
	if got := last.Data["key"]; got != "v0.3.2/demo/volume.json" {
		t.Errorf("got key %v, want v0.3.2/demo/volume.json", got)
	}
	if got := last.Data["bytes"]; got != int64(len(`{"versions": [{"version": "1.0.0", "edition": 1}]}`)) {
		t.Errorf("got bytes %v", got)
	}
}

type failingSink struct{}

func (failingSink) Put(context.Context, string, io.Reader) error {
	return errors.New("boom")
}

func TestSinkError(t *testing.T) {
	logger, hook := test.NewNullLogger()
	err := New(failingSink{}, logger).Put(context.Background(), "k", strings.NewReader("abc"))
	if err == nil {
		t.Fatal("got no error")
	}
	entry := hook.LastEntry()
	if entry == nil || entry.Level != log.ErrorLevel {
		t.Fatalf("got %v, want an error-level entry", entry)
	}
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	s, err := sink.FromConfig(ctx, map[string]interface{}{
		"type":   "logging",
		"nested": map[string]interface{}{"type": "mem"},
	})
	if err != nil {
		t.Fatal(err)
	}
	ls, ok := s.(*Sink)
	if !ok {
		t.Fatalf("got %T, want *Sink", s)
	}
	if _, ok := ls.s.(*mem.Sink); !ok {
		t.Errorf("got nested %T, want *mem.Sink", ls.s)
	}

	_, err = sink.FromConfig(ctx, map[string]interface{}{"type": "logging"})
	if err == nil || !strings.Contains(err.Error(), "nested") {
		t.Errorf("got error %v, want one about the nested parameter", err)
	}
}
