package bookshelf

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/tidwall/jsonc"
)

// EnvPrefix is the prefix of every environment variable consulted by ApplyEnv.
const EnvPrefix = "BOOKSHELF_"

const (
	// DefaultRemote is the remote bookshelf used when none is configured.
	DefaultRemote = "https://cr-prod-datasets-bookshelf.s3.us-west-2.amazonaws.com/" + DataFormatVersion

	// DefaultBucket is the upload bucket used when none is configured.
	DefaultBucket = "cr-prod-datasets-bookshelf"

	// DefaultRetries is the number of times a failed download is retried.
	DefaultRetries = 3
)

// Config holds process-wide settings.
// Build one at startup and pass it to the constructors that need it.
type Config struct {
	// CacheLocation is the root of the local cache, before the DataFormatVersion segment.
	// Empty means the OS-specific user cache directory (see package cache).
	CacheLocation string `json:"cache_location"`

	// Remote is the URL of the remote bookshelf.
	Remote string `json:"remote"`

	// Bucket and BucketPrefix locate published files in the upload sink.
	Bucket       string `json:"bucket"`
	BucketPrefix string `json:"bucket_prefix"`

	// DownloadCacheLocation is where notebook runners keep raw source downloads.
	DownloadCacheLocation string `json:"download_cache_location"`

	// NotebookDirectory is where dataset descriptions and construction scripts live.
	NotebookDirectory string `json:"notebook_directory"`

	// Retries bounds how many times a transient download failure is retried.
	Retries int `json:"retries"`

	// Sink and Catalog configure the backends created by sink.Create and catalog.Create.
	// Each must contain a "type" key naming a registered backend.
	Sink    map[string]interface{} `json:"sink,omitempty"`
	Catalog map[string]interface{} `json:"catalog,omitempty"`
}

// DefaultConfig produces a Config with the static defaults and no environment applied.
func DefaultConfig() Config {
	return Config{
		Remote:       DefaultRemote,
		Bucket:       DefaultBucket,
		BucketPrefix: DataFormatVersion,
		Retries:      DefaultRetries,
	}
}

// ConfigFromEnv produces the default Config overridden by BOOKSHELF_* environment variables.
func ConfigFromEnv() Config {
	c := DefaultConfig()
	c.ApplyEnv(os.LookupEnv)
	return c
}

// LoadConfig reads a JSON config file, which may contain comments,
// over the defaults,
// and then applies the environment.
func LoadConfig(filename string) (Config, error) {
	c := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return c, errors.Wrapf(err, "reading config file %s", filename)
	}
	if err = json.Unmarshal(jsonc.ToJSON(data), &c); err != nil {
		return c, errors.Wrapf(err, "decoding config file %s", filename)
	}

	c.ApplyEnv(os.LookupEnv)
	return c, nil
}

// ApplyEnv overrides fields of c from the variables found by lookup.
// Tests can pass their own lookup function instead of touching the process environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	strs := []struct {
		name string
		dst  *string
	}{
		{"CACHE_LOCATION", &c.CacheLocation},
		{"REMOTE", &c.Remote},
		{"BUCKET", &c.Bucket},
		{"BUCKET_PREFIX", &c.BucketPrefix},
		{"DOWNLOAD_CACHE_LOCATION", &c.DownloadCacheLocation},
		{"NOTEBOOK_DIRECTORY", &c.NotebookDirectory},
	}
	for _, s := range strs {
		if v, ok := lookup(EnvPrefix + s.name); ok {
			*s.dst = v
		}
	}
	if v, ok := lookup(EnvPrefix + "RETRIES"); ok {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Retries = n
		}
	}
}
