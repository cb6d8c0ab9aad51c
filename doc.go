// Package bookshelf is a client for a versioned dataset registry.
//
// A dataset is published as a _book_:
// an immutable bundle of data files ("resources")
// plus a metadata manifest,
// identified by a name,
// a free-form version string,
// and an integer _edition_.
// Editions distinguish republishes of the same version,
// so a bugfix to the data does not require inventing a new version number.
//
// All the books sharing a name form a _volume_.
// A volume is described by a single manifest file, volume.json,
// which lists every published (version, edition) pair
// together with the hash of that book's metadata manifest.
// Because the metadata manifest in turn records the hash of every resource file,
// that one hash commits to the whole contents of the book.
//
// Books live on a plain static file host
// (anything that answers HTTP GET)
// and are cached locally beneath a cache root.
// The layout is the same in both places:
//
//	{root}/{name}/{version}_e{edition:03d}/{filename}
//
// and the helpers in this package
// (PathParts, LocalPath and BuildURL)
// are the one place that layout is computed,
// so the local cache and the remote can never disagree about where a file belongs.
//
// Files are fetched at most once.
// A cached file is reused only if it matches the hash recorded for it;
// if it does not, the fetch fails with an IntegrityError
// rather than quietly downloading it again,
// since a mismatch against a pinned hash means something changed that should not have.
//
// The subpackages are arranged by concern:
// fetch downloads and verifies files,
// cache locates the local cache root,
// frame holds the tabular data model and its codecs,
// book reads and writes a single book,
// shelf resolves names and versions against the remote,
// publish uploads books through a Sink,
// and sink and catalog hold pluggable backends selected by name from a config file.
package bookshelf
