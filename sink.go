package bookshelf

import (
	"context"
	"io"
	"path"
)

// Sink is the write side of a remote bookshelf.
// Published files are uploaded through a Sink
// and read back over plain HTTP GET from the Config's Remote.
type Sink interface {
	// Put stores the contents of r at key,
	// replacing any object already there.
	Put(ctx context.Context, key string, r io.Reader) error
}

// UploadKey is the sink key of a file in a published book:
// {prefix}/{name}/{version}_e{edition:03d}/{filename}.
func UploadKey(prefix, name, version string, edition int, filename string) string {
	return path.Join(append([]string{prefix}, PathParts(name, version, edition, filename)...)...)
}

// VolumeKey is the sink key of a volume manifest.
func VolumeKey(prefix, name string) string {
	return path.Join(prefix, name, VolumeFilename)
}
