// Package gcs implements a sink on Google Cloud Storage.
package gcs

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"github.com/bobg/bookshelf"
	"github.com/bobg/bookshelf/sink"
)

var _ bookshelf.Sink = &Sink{}

// Sink is a Google Cloud Storage-based implementation of a sink.
type Sink struct {
	bucket *storage.BucketHandle
	acl    string
}

// New produces a new Sink.
// A non-empty acl is a predefined ACL such as "publicRead",
// applied to each uploaded object.
func New(bucket *storage.BucketHandle, acl string) *Sink {
	return &Sink{bucket: bucket, acl: acl}
}

// Put implements bookshelf.Sink.
func (s *Sink) Put(ctx context.Context, key string, r io.Reader) error {
	w := s.bucket.Object(key).NewWriter(ctx)
	if s.acl != "" {
		w.PredefinedACL = s.acl
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return errors.Wrapf(err, "writing object %s", key)
	}
	return errors.Wrapf(w.Close(), "closing object %s", key)
}

func init() {
	sink.Register("gcs", func(ctx context.Context, conf map[string]interface{}) (bookshelf.Sink, error) {
		var options []option.ClientOption
		creds, ok := conf["creds"].(string)
		if !ok {
			return nil, errors.New(`missing "creds" parameter`)
		}
		bucketName, ok := conf["bucket"].(string)
		if !ok {
			return nil, errors.New(`missing "bucket" parameter`)
		}
		acl, _ := conf["acl"].(string)
		options = append(options, option.WithCredentialsFile(creds))
		c, err := storage.NewClient(ctx, options...)
		if err != nil {
			return nil, errors.Wrap(err, "creating cloud storage client")
		}
		return New(c.Bucket(bucketName), acl), nil
	})
}
