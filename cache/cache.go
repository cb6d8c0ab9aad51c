// Package cache locates and prepares the local book cache.
package cache

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/bobg/bookshelf"
)

// AppName is the directory created beneath the OS user cache directory.
const AppName = "bookshelf"

// DefaultLocation is the cache root to use when none is given explicitly:
// cfg.CacheLocation if set (see bookshelf.Config.ApplyEnv),
// otherwise a bookshelf directory beneath the OS user cache directory
// ($XDG_CACHE_HOME or ~/.cache on Unix,
// ~/Library/Caches on macOS,
// %LocalAppData% on Windows).
func DefaultLocation(cfg bookshelf.Config) (string, error) {
	if cfg.CacheLocation != "" {
		return cfg.CacheLocation, nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", errors.Wrap(err, "finding user cache directory")
	}
	return filepath.Join(dir, AppName), nil
}

// Create makes sure path/<DataFormatVersion> exists and is writable,
// and returns it.
// If path is empty, DefaultLocation is used.
func Create(cfg bookshelf.Config, path string) (string, error) {
	if path == "" {
		var err error
		path, err = DefaultLocation(cfg)
		if err != nil {
			return "", err
		}
	}
	dir := filepath.Join(path, bookshelf.DataFormatVersion)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrapf(err, "creating cache directory %s", dir)
	}

	probe, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return "", errors.Wrapf(err, "cache directory %s is not writable", dir)
	}
	probe.Close()
	os.Remove(probe.Name())

	return dir, nil
}
