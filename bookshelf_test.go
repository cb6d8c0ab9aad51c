package bookshelf

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCompareVersions(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"v1.0.0", "v1.1.0", -1},
		{"v1.10.0", "v1.9.2", 1},
		{"v1.1.0", "v1.1.0", 0},
		{"2023", "2022", 1},
		{"v2", "v10", -1},
		{"v1.0", "v1.0.1", -1},
		{"v2_private", "v1.1.0", 1},
	}
	for _, c := range cases {
		if got := CompareVersions(c.a, c.b); got != c.want {
			t.Errorf("CompareVersions(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
		if got := CompareVersions(c.b, c.a); got != -c.want {
			t.Errorf("CompareVersions(%q, %q) = %d, want %d", c.b, c.a, got, -c.want)
		}
	}
}

func testVolume() *Volume {
	return &Volume{
		Name:    "test",
		License: "MIT",
		Versions: []VersionEntry{
			{Version: "v1.0.0", Edition: 1},
			{Version: "v1.1.0", Edition: 1},
			{Version: "v1.1.0", Edition: 2},
			{Version: "v2_private", Edition: 1, Private: true},
		},
	}
}

func TestVolume(t *testing.T) {
	v := testVolume()

	latest, ok := v.LatestVersion()
	if !ok {
		t.Fatal("no latest version")
	}
	if latest != "v1.1.0" {
		t.Errorf("got latest %s, want v1.1.0", latest)
	}

	if diff := cmp.Diff([]string{"v1.0.0", "v1.1.0"}, v.PublicVersions()); diff != "" {
		t.Errorf("public versions mismatch (-want +got):\n%s", diff)
	}

	entries := v.Entries("v1.1.0")
	if len(entries) != 2 || entries[1].Edition != 2 {
		t.Errorf("got entries %v", entries)
	}

	if _, ok := v.Entry("v2_private", 1); !ok {
		t.Error("private entry not found by explicit lookup")
	}
	if _, ok := v.Entry("v1.0.0", 2); ok {
		t.Error("found nonexistent edition")
	}

	empty := &Volume{Name: "empty"}
	if _, ok := empty.LatestVersion(); ok {
		t.Error("empty volume has a latest version")
	}
}

func TestPaths(t *testing.T) {
	if got := LongVersion("v1.0.1", 2); got != "v1.0.1_e002" {
		t.Errorf("got long version %s", got)
	}

	parts := PathParts("demo", "v1", 12, "datapackage.json")
	if diff := cmp.Diff([]string{"demo", "v1_e012", "datapackage.json"}, parts); diff != "" {
		t.Errorf("path parts mismatch (-want +got):\n%s", diff)
	}
	if got := PathParts("demo", "v1", 1, ""); len(got) != 2 {
		t.Errorf("got %v", got)
	}

	if got := LocalPath("/cache", "demo", "v1", 1, "x.csv"); got != filepath.Join("/cache", "demo", "v1_e001", "x.csv") {
		t.Errorf("got local path %s", got)
	}
	if got := BuildURL("https://example.com/v0.3.2/", PathParts("demo", "v1", 1, "x.csv")...); got != "https://example.com/v0.3.2/demo/v1_e001/x.csv" {
		t.Errorf("got url %s", got)
	}
	if got := UploadKey("v0.3.2", "demo", "v1", 1, "x.csv"); got != "v0.3.2/demo/v1_e001/x.csv" {
		t.Errorf("got key %s", got)
	}
	if got := VolumeKey("", "demo"); got != "demo/volume.json" {
		t.Errorf("got key %s", got)
	}
}
