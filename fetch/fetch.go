// Package fetch downloads remote files into the local cache,
// verifying them against known hashes.
package fetch

import (
	"context"
	"fmt"
	"hash"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jpillora/backoff"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/bobg/bookshelf"
)

// Fetcher fetches remote files.
// The zero value is usable: it uses http.DefaultClient and does not retry.
type Fetcher struct {
	Client *http.Client

	// Retries is how many times a transient failure is retried.
	// Hash mismatches and 4xx responses are never retried.
	Retries int

	// MinBackoff and MaxBackoff bound the wait between retries.
	MinBackoff, MaxBackoff time.Duration
}

// New produces a Fetcher configured from cfg.
func New(cfg bookshelf.Config) *Fetcher {
	return &Fetcher{
		Client:     http.DefaultClient,
		Retries:    cfg.Retries,
		MinBackoff: 100 * time.Millisecond,
		MaxBackoff: 10 * time.Second,
	}
}

// HTTPError is the error for a non-200 response.
type HTTPError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("GET %s: %s", e.URL, e.Status)
}

// IsNotFound tells whether err comes from a 404 response.
func IsNotFound(err error) bool {
	var e *HTTPError
	return errors.As(err, &e) && e.StatusCode == http.StatusNotFound
}

// IsHTTPError tells whether err comes from any non-200 response.
func IsHTTPError(err error) bool {
	var e *HTTPError
	return errors.As(err, &e)
}

// Fetch makes sure localPath holds the file at url.
//
// Unless force is true,
// an existing file at localPath is reused as long as it matches knownHash
// (or knownHash is empty).
// If it does not match, the result is an *IntegrityError
// and nothing is downloaded.
//
// Otherwise the file is downloaded to a temporary file beside localPath,
// hashed along the way,
// and renamed into place only if the hash matches.
// On error nothing is left at localPath
// (other than whatever was there before).
func (f *Fetcher) Fetch(ctx context.Context, url, localPath, knownHash string, force bool) error {
	if !force {
		_, err := os.Stat(localPath)
		if err == nil {
			ok, err := bookshelf.HashMatches(localPath, knownHash)
			if err != nil {
				return err
			}
			if !ok {
				return &bookshelf.IntegrityError{Path: localPath, Want: knownHash}
			}
			return nil
		}
		if !os.IsNotExist(err) {
			return errors.Wrapf(err, "checking %s", localPath)
		}
	}

	var digest *bookshelf.Digest
	if knownHash != "" {
		d, err := bookshelf.ParseDigest(knownHash)
		if err != nil {
			return err
		}
		digest = &d
	}

	dir := filepath.Dir(localPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "ensuring path %s exists", dir)
	}

	b := &backoff.Backoff{
		Min:    f.MinBackoff,
		Max:    f.MaxBackoff,
		Factor: 2,
		Jitter: true,
	}
	for attempt := 0; ; attempt++ {
		retry, err := f.download(ctx, url, localPath, digest)
		if err == nil {
			return nil
		}
		if !retry || attempt >= f.Retries {
			return err
		}
		wait := b.Duration()
		log.WithError(err).Warnf("Retrying download of %s in %s", url, wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// The boolean result tells whether the error is transient.
func (f *Fetcher) download(ctx context.Context, url, dst string, digest *bookshelf.Digest) (bool, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, errors.Wrapf(err, "building request for %s", url)
	}
	resp, err := client.Do(req)
	if err != nil {
		return ctx.Err() == nil, errors.Wrapf(err, "requesting %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		retry := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return retry, &HTTPError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.part")
	if err != nil {
		return false, errors.Wrapf(err, "creating temp file for %s", dst)
	}
	tmpname := tmp.Name()
	defer os.Remove(tmpname) // no-op after a successful rename

	var (
		h hash.Hash
		w io.Writer = tmp
	)
	if digest != nil {
		h = digest.New()
		w = io.MultiWriter(tmp, h)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		tmp.Close()
		return ctx.Err() == nil, errors.Wrapf(err, "reading %s", url)
	}
	if err = tmp.Close(); err != nil {
		return false, errors.Wrapf(err, "writing %s", tmpname)
	}

	if digest != nil && !digest.Matches(h) {
		got := bookshelf.Digest{Alg: digest.Alg, Hex: fmt.Sprintf("%x", h.Sum(nil))}
		return false, &bookshelf.IntegrityError{Path: dst, Want: digest.String(), Got: got.String()}
	}

	if err = os.Rename(tmpname, dst); err != nil {
		return false, errors.Wrapf(err, "renaming %s to %s", tmpname, dst)
	}

	log.WithFields(log.Fields{
		"url":  url,
		"size": humanize.Bytes(uint64(n)),
	}).Infof("Downloaded %s", dst)

	return false, nil
}
