// Package logging implements a sink that delegates to a nested sink,
// logging uploads as they happen.
package logging

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/bobg/bookshelf"
	"github.com/bobg/bookshelf/sink"
)

var _ bookshelf.Sink = &Sink{}

type Sink struct {
	s      bookshelf.Sink
	logger log.FieldLogger
}

// New produces a Sink that logs to logger.
// A nil logger means the standard logrus logger.
func New(s bookshelf.Sink, logger log.FieldLogger) *Sink {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Sink{s: s, logger: logger}
}

func (s *Sink) Put(ctx context.Context, key string, r io.Reader) error {
	var (
		cr    = &countingReader{r: r}
		start = time.Now()
		err   = s.s.Put(ctx, key, cr)
		entry = s.logger.WithFields(log.Fields{
			"key":     key,
			"bytes":   cr.n,
			"elapsed": time.Since(start),
		})
	)
	if err != nil {
		entry.WithError(err).Error("Put failed")
	} else {
		entry.Info("Put")
	}
	return err
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(buf []byte) (int, error) {
	n, err := c.r.Read(buf)
	c.n += int64(n)
	return n, err
}

func init() {
	sink.Register("logging", func(ctx context.Context, conf map[string]interface{}) (bookshelf.Sink, error) {
		nested, ok := conf["nested"].(map[string]interface{})
		if !ok {
			return nil, errors.New(`missing "nested" parameter`)
		}
		nestedSink, err := sink.FromConfig(ctx, nested)
		if err != nil {
			return nil, errors.Wrap(err, "creating nested sink")
		}
		return New(nestedSink, nil), nil
	})
}
