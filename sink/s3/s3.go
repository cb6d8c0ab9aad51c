// Package s3 implements a sink in an Amazon S3 bucket.
package s3

import (
	"bytes"
	"context"
	"io"
	"mime"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/pkg/errors"

	"github.com/bobg/bookshelf"
	"github.com/bobg/bookshelf/sink"
)

var _ bookshelf.Sink = &Sink{}

// DefaultACL is the canned ACL given to uploaded objects,
// which must be readable by anonymous HTTP GET.
const DefaultACL = s3.ObjectCannedACLPublicRead

// Sink is an S3-based implementation of a sink.
type Sink struct {
	svc    s3svc
	bucket string
	acl    string
}

type s3svc interface {
	PutObjectWithContext(ctx aws.Context, input *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error)
}

// New produces a new Sink writing to the given bucket.
// An empty acl means DefaultACL.
func New(svc s3svc, bucket, acl string) *Sink {
	if acl == "" {
		acl = DefaultACL
	}
	return &Sink{svc: svc, bucket: bucket, acl: acl}
}

// Put implements bookshelf.Sink.
func (s *Sink) Put(ctx context.Context, key string, r io.Reader) error {
	// The SDK needs a ReadSeeker to sign the request body.
	data, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrapf(err, "reading data for %s", key)
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
		ACL:    aws.String(s.acl),
	}
	if ct := contentType(key); ct != "" {
		input.ContentType = aws.String(ct)
	}
	_, err = s.svc.PutObjectWithContext(ctx, input)
	return errors.Wrapf(err, "putting s3://%s/%s", s.bucket, key)
}

func contentType(key string) string {
	switch path.Ext(key) {
	case ".gz":
		return "application/gzip"
	case ".parquet":
		return "application/octet-stream"
	}
	return mime.TypeByExtension(path.Ext(key))
}

func init() {
	sink.Register("s3", func(_ context.Context, conf map[string]interface{}) (bookshelf.Sink, error) {
		bucket, ok := conf["bucket"].(string)
		if !ok {
			return nil, errors.New(`missing "bucket" parameter`)
		}
		var cfg aws.Config
		if region, ok := conf["region"].(string); ok {
			cfg.Region = aws.String(region)
		}
		sess, err := session.NewSessionWithOptions(session.Options{
			Config:            cfg,
			SharedConfigState: session.SharedConfigEnable,
		})
		if err != nil {
			return nil, errors.Wrap(err, "creating aws session")
		}
		acl, _ := conf["acl"].(string)
		return New(s3.New(sess), bucket, acl), nil
	})
}
