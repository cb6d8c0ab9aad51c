package s3

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/pkg/errors"

	"github.com/bobg/bookshelf/sink/sinktest"
)

type fakeS3 struct {
	mu    sync.Mutex
	data  map[string][]byte
	input map[string]*s3.PutObjectInput
	fail  bool
}

func newFakeS3() *fakeS3 {
	return &fakeS3{
		data:  make(map[string][]byte),
		input: make(map[string]*s3.PutObjectInput),
	}
}

func (m *fakeS3) PutObjectWithContext(_ aws.Context, input *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	if input.Bucket == nil || input.Key == nil {
		return nil, errors.New("bucket and key are required")
	}
	if m.fail {
		return nil, errors.New("service unavailable")
	}

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, input.Body); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[*input.Key] = buf.Bytes()
	m.input[*input.Key] = input
	return &s3.PutObjectOutput{}, nil
}

func TestSink(t *testing.T) {
	fake := newFakeS3()
	s := New(fake, "shelf", "")

	sinktest.PutGet(context.Background(), t, s, func(_ context.Context, key string) ([]byte, error) {
		fake.mu.Lock()
		defer fake.mu.Unlock()
		data, ok := fake.data[key]
		if !ok {
			return nil, errors.Errorf("no object at %s", key)
		}
		return data, nil
	})

	for key, input := range fake.input {
		if got := aws.StringValue(input.Bucket); got != "shelf" {
			t.Errorf("%s: got bucket %s, want shelf", key, got)
		}
		if got := aws.StringValue(input.ACL); got != s3.ObjectCannedACLPublicRead {
			t.Errorf("%s: got ACL %s, want %s", key, got, s3.ObjectCannedACLPublicRead)
		}
	}

	input := fake.input["v0.3.2/demo/1.0.0_e001/demo_1.0.0_e001_gdp_wide.csv.gz"]
	if input == nil {
		t.Fatal("resource was not uploaded")
	}
	if got := aws.StringValue(input.ContentType); got != "application/gzip" {
		t.Errorf("got content type %s, want application/gzip", got)
	}
}

func TestSinkError(t *testing.T) {
	fake := newFakeS3()
	fake.fail = true
	s := New(fake, "shelf", "private")

	err := s.Put(context.Background(), "a/b", strings.NewReader("x"))
	if err == nil {
		t.Fatal("got no error")
	}
	if !strings.Contains(err.Error(), "s3://shelf/a/b") {
		t.Errorf("error %q does not name the object", err)
	}
}
