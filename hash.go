package bookshelf

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/zeebo/blake3"
)

// DefaultHashAlg is the algorithm used for hashes this package computes.
// Hashes written with it carry no "alg:" prefix.
const DefaultHashAlg = "sha256"

// Digest is a parsed hash string.
// Hash strings are either bare hex (sha256)
// or "alg:hex" for one of sha256, sha1, md5 or blake3.
type Digest struct {
	Alg string
	Hex string
}

// ParseDigest parses a hash string.
func ParseDigest(s string) (Digest, error) {
	alg, hexstr := DefaultHashAlg, s
	if i := strings.IndexByte(s, ':'); i >= 0 {
		alg, hexstr = strings.ToLower(s[:i]), s[i+1:]
	}
	if _, ok := hashers[alg]; !ok {
		return Digest{}, fmt.Errorf("unsupported hash algorithm %q", alg)
	}
	if _, err := hex.DecodeString(hexstr); err != nil {
		return Digest{}, errors.Wrapf(err, "decoding hash %q", s)
	}
	return Digest{Alg: alg, Hex: strings.ToLower(hexstr)}, nil
}

// New produces a fresh hash.Hash for the digest's algorithm.
func (d Digest) New() hash.Hash {
	return hashers[d.Alg]()
}

// Matches tells whether h has produced this digest.
func (d Digest) Matches(h hash.Hash) bool {
	return hex.EncodeToString(h.Sum(nil)) == d.Hex
}

func (d Digest) String() string {
	if d.Alg == DefaultHashAlg {
		return d.Hex
	}
	return d.Alg + ":" + d.Hex
}

var hashers = map[string]func() hash.Hash{
	"sha256": sha256.New,
	"sha1":   sha1.New,
	"md5":    md5.New,
	"blake3": func() hash.Hash { return blake3.New() },
}

// HashReader computes the default hash of everything in r.
func HashReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashFile computes the default hash of a file's contents.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	sum, err := HashReader(f)
	return sum, errors.Wrapf(err, "hashing %s", path)
}

// HashMatches tells whether the file at path matches the hash string known.
// An empty known hash always matches.
func HashMatches(path, known string) (bool, error) {
	if known == "" {
		return true, nil
	}
	d, err := ParseDigest(known)
	if err != nil {
		return false, err
	}

	f, err := os.Open(path)
	if err != nil {
		return false, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	h := d.New()
	if _, err := io.Copy(h, f); err != nil {
		return false, errors.Wrapf(err, "hashing %s", path)
	}
	return d.Matches(h), nil
}
