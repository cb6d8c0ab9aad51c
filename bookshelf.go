package bookshelf

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
)

const (
	// DataFormatVersion is the version of the on-disk and on-the-wire layout.
	// It is the first path segment beneath a cache root
	// and the default upload prefix,
	// so caches and remotes written under different layouts never mix.
	DataFormatVersion = "v0.3.2"

	// DatapackageFilename is the name of a book's metadata manifest.
	DatapackageFilename = "datapackage.json"

	// VolumeFilename is the name of a volume's manifest.
	VolumeFilename = "volume.json"
)

// Volume is the manifest of all published editions of a dataset.
// It is stored remotely at {remote}/{name}/volume.json.
type Volume struct {
	Name string `json:"name"`

	// License is fixed for the life of the volume.
	// Changing it requires publishing under a new name.
	License string `json:"license"`

	// Versions is append-only.
	Versions []VersionEntry `json:"versions"`
}

// VersionEntry records one published book.
type VersionEntry struct {
	Version string `json:"version"`
	Edition int    `json:"edition"`

	// URL is the remote location prefix of the book's files.
	URL string `json:"url"`

	// Hash is the hash of the book's metadata manifest.
	Hash string `json:"hash"`

	// Private entries are omitted from listings and from latest-version resolution.
	Private bool `json:"private"`
}

// Entries returns the entries for the given version,
// sorted by edition.
func (v *Volume) Entries(version string) []VersionEntry {
	var result []VersionEntry
	for _, e := range v.Versions {
		if e.Version == version {
			result = append(result, e)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Edition < result[j].Edition })
	return result
}

// Entry returns the entry for the given version and edition, if there is one.
func (v *Volume) Entry(version string, edition int) (VersionEntry, bool) {
	for _, e := range v.Versions {
		if e.Version == version && e.Edition == edition {
			return e, true
		}
	}
	return VersionEntry{}, false
}

// PublicVersions returns the distinct non-private versions in the volume,
// in the order they were first published.
func (v *Volume) PublicVersions() []string {
	var (
		result []string
		seen   = make(map[string]bool)
	)
	for _, e := range v.Versions {
		if e.Private || seen[e.Version] {
			continue
		}
		seen[e.Version] = true
		result = append(result, e.Version)
	}
	return result
}

// LatestVersion returns the greatest non-private version in the volume
// according to CompareVersions.
// It returns false if the volume has no public versions.
func (v *Volume) LatestVersion() (string, bool) {
	versions := v.PublicVersions()
	if len(versions) == 0 {
		return "", false
	}
	latest := versions[0]
	for _, ver := range versions[1:] {
		if CompareVersions(ver, latest) > 0 {
			latest = ver
		}
	}
	return latest, true
}

// CompareVersions orders free-form version strings.
// A leading "v" is ignored,
// runs of digits compare numerically,
// and everything else compares lexicographically.
// So v1.10.0 sorts after v1.9.2,
// and 2023 after 2022.
// It returns -1, 0, or 1.
func CompareVersions(a, b string) int {
	ta, tb := versionTokens(a), versionTokens(b)
	for i := 0; i < len(ta) && i < len(tb); i++ {
		if c := compareToken(ta[i], tb[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(ta) < len(tb):
		return -1
	case len(ta) > len(tb):
		return 1
	}
	return strings.Compare(a, b)
}

func versionTokens(s string) []string {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "v"), "V")

	var (
		tokens []string
		start  int
	)
	for i := 1; i <= len(s); i++ {
		if i == len(s) || unicode.IsDigit(rune(s[i])) != unicode.IsDigit(rune(s[start])) {
			tokens = append(tokens, s[start:i])
			start = i
		}
	}
	return tokens
}

func compareToken(a, b string) int {
	da, db := isDigits(a), isDigits(b)
	switch {
	case da && db:
		a, b = strings.TrimLeft(a, "0"), strings.TrimLeft(b, "0")
		if len(a) != len(b) {
			if len(a) < len(b) {
				return -1
			}
			return 1
		}
		return strings.Compare(a, b)

	case da:
		return 1 // numbers sort after punctuation and letters: v1.0 > v1-rc

	case db:
		return -1
	}
	return strings.Compare(a, b)
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s != ""
}

// LongVersion is the canonical identifier of an edition of a version,
// e.g. "v1.0.1_e002".
func LongVersion(version string, edition int) string {
	return fmt.Sprintf("%s_e%03d", version, edition)
}

// PathParts produces the path segments that locate a book,
// or a file within it when filename is non-empty.
// Both local paths and remote URLs are built from these segments.
func PathParts(name, version string, edition int, filename string) []string {
	parts := []string{name, LongVersion(version, edition)}
	if filename != "" {
		parts = append(parts, filename)
	}
	return parts
}

// LocalPath is the location of a book (or a file in it) beneath a local cache root.
func LocalPath(root, name, version string, edition int, filename string) string {
	return filepath.Join(append([]string{root}, PathParts(name, version, edition, filename)...)...)
}

// BuildURL joins a remote bookshelf root and path segments into a URL.
func BuildURL(remote string, parts ...string) string {
	return strings.Join(append([]string{strings.TrimRight(remote, "/")}, parts...), "/")
}

// VolumeURL is the location of a volume's manifest on a remote bookshelf.
func VolumeURL(remote, name string) string {
	return BuildURL(remote, name, VolumeFilename)
}
