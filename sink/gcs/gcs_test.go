package gcs

import (
	"context"
	"io"
	"os"
	"testing"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/bobg/bookshelf/sink"
	"github.com/bobg/bookshelf/sink/sinktest"
)

const (
	credsVar  = "BOOKSHELF_GCS_TESTING_CREDS"
	bucketVar = "BOOKSHELF_GCS_TESTING_BUCKET"
)

func TestSink(t *testing.T) {
	var (
		creds      = os.Getenv(credsVar)
		bucketName = os.Getenv(bucketVar)
	)
	if creds == "" || bucketName == "" {
		t.Skipf("to run TestSink, set %s to the name of a credentials file and %s to an existing bucket", credsVar, bucketVar)
	}

	ctx := context.Background()
	c, err := storage.NewClient(ctx, option.WithCredentialsFile(creds))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	bucket := c.Bucket(bucketName)
	sinktest.PutGet(ctx, t, New(bucket, ""), func(ctx context.Context, key string) ([]byte, error) {
		r, err := bucket.Object(key).NewReader(ctx)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	})
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	if _, err := sink.Create(ctx, "gcs", map[string]interface{}{"bucket": "b"}); err == nil {
		t.Error("got no error for a missing creds parameter")
	}
	if _, err := sink.Create(ctx, "gcs", map[string]interface{}{"creds": "c.json"}); err == nil {
		t.Error("got no error for a missing bucket parameter")
	}
}
