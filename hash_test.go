package bookshelf

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHashMatches(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	if err := os.WriteFile(path, []byte("hello\n"), 0644); err != nil {
		t.Fatal(err)
	}

	const sha256hex = "5891b5b522d5df086d0ff0b110fbd9d21bb4fc7163af34d08286a2e846f6be03"

	got, err := HashFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != sha256hex {
		t.Fatalf("got hash %s, want %s", got, sha256hex)
	}

	cases := []struct {
		known string
		want  bool
	}{
		{"", true},
		{sha256hex, true},
		{"sha256:" + sha256hex, true},
		{"SHA256:" + sha256hex, true},
		{"md5:b1946ac92492d2347c6235b4d2611184", true},
		{"sha1:f572d396fae9206628714fb2ce00f72e94f2258f", true},
		{"md5:00000000000000000000000000000000", false},
		{"0000000000000000000000000000000000000000000000000000000000000000", false},
	}
	for _, c := range cases {
		ok, err := HashMatches(path, c.known)
		if err != nil {
			t.Fatalf("HashMatches(%q): %s", c.known, err)
		}
		if ok != c.want {
			t.Errorf("HashMatches(%q) = %v, want %v", c.known, ok, c.want)
		}
	}

	d, err := ParseDigest("blake3:" + sha256hex)
	if err != nil {
		t.Fatal(err)
	}
	h := d.New()
	h.Write([]byte("hello\n"))
	if d.Matches(h) {
		t.Error("blake3 digest matched a sha256 value")
	}

	if _, err := ParseDigest("crc32:00"); err == nil {
		t.Error("expected an error for an unknown algorithm")
	}
	if _, err := ParseDigest("zz"); err == nil {
		t.Error("expected an error for non-hex input")
	}
}
