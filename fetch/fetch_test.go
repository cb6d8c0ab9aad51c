package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/bobg/bookshelf"
)

const (
	content     = "hello\n"
	contentHash = "5891b5b522d5df086d0ff0b110fbd9d21bb4fc7163af34d08286a2e846f6be03"
	wrongHash   = "0000000000000000000000000000000000000000000000000000000000000000"
)

type server struct {
	*httptest.Server
	calls    int32
	failures int32 // respond 500 this many times before succeeding
}

func newServer(t *testing.T) *server {
	s := new(server)
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		atomic.AddInt32(&s.calls, 1)
		if atomic.AddInt32(&s.failures, -1) >= 0 {
			http.Error(w, "try again", http.StatusInternalServerError)
			return
		}
		if req.URL.Path != "/file.txt" {
			http.NotFound(w, req)
			return
		}
		w.Write([]byte(content))
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *server) n() int32 {
	return atomic.LoadInt32(&s.calls)
}

func testFetcher() *Fetcher {
	return &Fetcher{Retries: 2, MinBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func TestFetch(t *testing.T) {
	var (
		ctx  = context.Background()
		srv  = newServer(t)
		f    = testFetcher()
		dst  = filepath.Join(t.TempDir(), "sub", "file.txt")
		url  = srv.URL + "/file.txt"
		read = func() string {
			b, err := os.ReadFile(dst)
			if err != nil {
				t.Fatal(err)
			}
			return string(b)
		}
	)

	if err := f.Fetch(ctx, url, dst, contentHash, false); err != nil {
		t.Fatal(err)
	}
	if got := read(); got != content {
		t.Errorf("got %q, want %q", got, content)
	}
	if srv.n() != 1 {
		t.Errorf("got %d calls, want 1", srv.n())
	}

	// Cached and matching: no request.
	if err := f.Fetch(ctx, url, dst, contentHash, false); err != nil {
		t.Fatal(err)
	}
	if err := f.Fetch(ctx, url, dst, "", false); err != nil {
		t.Fatal(err)
	}
	if srv.n() != 1 {
		t.Errorf("got %d calls, want 1", srv.n())
	}

	// Force: always a request.
	if err := f.Fetch(ctx, url, dst, contentHash, true); err != nil {
		t.Fatal(err)
	}
	if srv.n() != 2 {
		t.Errorf("got %d calls, want 2", srv.n())
	}
}

func TestFetchTampered(t *testing.T) {
	var (
		ctx = context.Background()
		srv = newServer(t)
		f   = testFetcher()
		dst = filepath.Join(t.TempDir(), "file.txt")
		url = srv.URL + "/file.txt"
	)

	if err := f.Fetch(ctx, url, dst, contentHash, false); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dst, []byte("tampered\n"), 0644); err != nil {
		t.Fatal(err)
	}

	err := f.Fetch(ctx, url, dst, contentHash, false)
	var ie *bookshelf.IntegrityError
	if !errors.As(err, &ie) {
		t.Fatalf("got %v, want an IntegrityError", err)
	}
	if srv.n() != 1 {
		t.Errorf("tampered file was redownloaded (%d calls)", srv.n())
	}
	b, _ := os.ReadFile(dst)
	if string(b) != "tampered\n" {
		t.Error("tampered file was replaced")
	}
}

func TestFetchMismatch(t *testing.T) {
	var (
		ctx = context.Background()
		srv = newServer(t)
		f   = testFetcher()
		dir = t.TempDir()
		dst = filepath.Join(dir, "file.txt")
	)

	err := f.Fetch(ctx, srv.URL+"/file.txt", dst, wrongHash, false)
	var ie *bookshelf.IntegrityError
	if !errors.As(err, &ie) {
		t.Fatalf("got %v, want an IntegrityError", err)
	}
	if ie.Got != contentHash {
		t.Errorf("got reported hash %s, want %s", ie.Got, contentHash)
	}
	if srv.n() != 1 {
		t.Errorf("hash mismatch was retried (%d calls)", srv.n())
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("left %d file(s) behind after a failed download", len(entries))
	}
}

func TestFetchRetries(t *testing.T) {
	var (
		ctx = context.Background()
		srv = newServer(t)
		f   = testFetcher()
		dst = filepath.Join(t.TempDir(), "file.txt")
	)

	atomic.StoreInt32(&srv.failures, 2)
	if err := f.Fetch(ctx, srv.URL+"/file.txt", dst, contentHash, false); err != nil {
		t.Fatal(err)
	}
	if srv.n() != 3 {
		t.Errorf("got %d calls, want 3", srv.n())
	}

	atomic.StoreInt32(&srv.calls, 0)
	atomic.StoreInt32(&srv.failures, 5)
	err := f.Fetch(ctx, srv.URL+"/file.txt", dst, contentHash, true)
	if !IsHTTPError(err) || IsNotFound(err) {
		t.Fatalf("got %v, want a 500 error", err)
	}
	if srv.n() != 3 {
		t.Errorf("got %d calls, want 3", srv.n())
	}
}

func TestFetchNotFound(t *testing.T) {
	var (
		ctx = context.Background()
		srv = newServer(t)
		f   = testFetcher()
		dst = filepath.Join(t.TempDir(), "missing.txt")
	)

	err := f.Fetch(ctx, srv.URL+"/missing.txt", dst, "", false)
	if !IsNotFound(err) {
		t.Fatalf("got %v, want a 404 error", err)
	}
	if srv.n() != 1 {
		t.Errorf("404 was retried (%d calls)", srv.n())
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Errorf("%s exists after a failed download", dst)
	}
}
