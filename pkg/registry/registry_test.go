// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package registry

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"
)

func pkg(name, version, tarball string) Descriptor {
	return Descriptor{
		"name":    name,
		"version": version,
		"dist": map[string]any{
			"tarball":   tarball,
			"integrity": "sha512-AAAA",
		},
	}
}

// staticBackend returns the same descriptors for every path and counts
// how often it was asked.
type staticBackend struct {
	descs []Descriptor
	err   error
	calls []string
}

func (b *staticBackend) Extract(ctx context.Context, path string) ([]Descriptor, error) {
	b.calls = append(b.calls, path)
	return b.descs, b.err
}

func newTestRegistry(backends ...Backend) *Registry {
	r := New()
	r.Logger = log.New(io.Discard)
	for _, b := range backends {
		r.AddBackend(b)
	}
	return r
}

func TestRegisterStopsAtFirstNonZeroBackend(t *testing.T) {
	empty := &staticBackend{}
	two := &staticBackend{descs: []Descriptor{
		pkg("a", "1.0.0", "-/a-1.0.0.tgz"),
		pkg("b", "1.0.0", "-/b-1.0.0.tgz"),
	}}
	never := &staticBackend{descs: []Descriptor{pkg("c", "1.0.0", "-/c-1.0.0.tgz")}}
	r := newTestRegistry(empty, two, never)

	if got := r.Register(context.Background(), "P"); got != 2 {
		t.Fatalf("Register = %d, want 2", got)
	}
	if len(empty.calls) != 1 || len(two.calls) != 1 {
		t.Fatalf("calls = %v, %v, want one each", empty.calls, two.calls)
	}
	if len(never.calls) != 0 {
		t.Fatalf("third backend called %d times, want 0", len(never.calls))
	}
	if got := r.Len(); got != 2 {
		t.Fatalf("Len = %d, want 2", got)
	}
}

func TestRegisterErrorFallsThrough(t *testing.T) {
	failing := &staticBackend{
		descs: []Descriptor{pkg("x", "1.0.0", "-/x.tgz")},
		err:   errors.New("boom"),
	}
	ok := &staticBackend{descs: []Descriptor{pkg("a", "1.0.0", "-/a.tgz")}}
	r := newTestRegistry(failing, ok)

	if got := r.Register(context.Background(), "P"); got != 1 {
		t.Fatalf("Register = %d, want 1", got)
	}
	if _, err := r.FetchVersions("x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("descriptor from failing backend was stored: err = %v", err)
	}
}

func TestRegisterNoMatchIsZero(t *testing.T) {
	r := newTestRegistry(&staticBackend{}, &staticBackend{err: errors.New("nope")})
	if got := r.Register(context.Background(), "P"); got != 0 {
		t.Fatalf("Register = %d, want 0", got)
	}
	if got := newTestRegistry().Register(context.Background(), "P"); got != 0 {
		t.Fatalf("Register without backends = %d, want 0", got)
	}
}

func TestRegisterDropsInvalidDescriptors(t *testing.T) {
	invalid := []Descriptor{
		nil,
		{"version": "1.0.0", "dist": map[string]any{"tarball": "-/noname.tgz"}},
		{"name": "nodist", "version": "1.0.0"},
		{"name": "noversion", "dist": map[string]any{"tarball": "-/noversion.tgz"}},
	}
	b := &staticBackend{descs: append(invalid, pkg("good", "1.0.0", "-/good-1.0.0.tgz"))}
	r := newTestRegistry(b)

	if got := r.Register(context.Background(), "P"); got != 1 {
		t.Fatalf("Register = %d, want 1", got)
	}
	for _, name := range []string{"nodist", "noversion", ""} {
		if _, err := r.FetchVersions(name); !errors.Is(err, ErrNotFound) {
			t.Errorf("FetchVersions(%q) err = %v, want ErrNotFound", name, err)
		}
	}
	got := r.FetchPackages()
	if len(got) != 1 || got[0].Name != "good" {
		t.Fatalf("FetchPackages = %+v, want only good", got)
	}
}

func TestRegisterAllInvalidTriesNextBackend(t *testing.T) {
	bad := &staticBackend{descs: []Descriptor{nil, {"name": "x"}}}
	good := &staticBackend{descs: []Descriptor{pkg("a", "1.0.0", "-/a.tgz")}}
	r := newTestRegistry(bad, good)
	if got := r.Register(context.Background(), "P"); got != 1 {
		t.Fatalf("Register = %d, want 1", got)
	}
	if len(good.calls) != 1 {
		t.Fatalf("second backend calls = %d, want 1", len(good.calls))
	}
}

func TestFetchPackages(t *testing.T) {
	r := newTestRegistry(&staticBackend{descs: []Descriptor{
		pkg("b", "1.0.0", "-/b-1.0.0.tgz"),
		pkg("a", "2.0.0", "-/a-2.0.0.tgz"),
		pkg("b", "1.1.0", "-/b-1.1.0.tgz"),
		pkg("@s/c", "0.1.0", "-/s-c-0.1.0.tgz"),
	}})
	r.Register(context.Background(), "P")
	r.SetBaseURL("http://localhost:4873/")

	want := []PackageSummary{
		{Name: "b", Versions: map[string]string{
			"1.0.0": "http://localhost:4873/b/1.0.0",
			"1.1.0": "http://localhost:4873/b/1.1.0",
		}},
		{Name: "a", Versions: map[string]string{
			"2.0.0": "http://localhost:4873/a/2.0.0",
		}},
		{Name: "@s/c", Versions: map[string]string{
			"0.1.0": "http://localhost:4873/@s/c/0.1.0",
		}},
	}
	if diff := cmp.Diff(want, r.FetchPackages()); diff != "" {
		t.Fatalf("FetchPackages mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchPackagesEmpty(t *testing.T) {
	got := newTestRegistry().FetchPackages()
	if got == nil || len(got) != 0 {
		t.Fatalf("FetchPackages = %#v, want empty non-nil slice", got)
	}
}

func TestFetchVersions(t *testing.T) {
	orig := pkg("assert", "1.4.1", "-/vendor/assert-1.4.1.tgz")
	orig["description"] = "assertions"
	r := newTestRegistry(&staticBackend{descs: []Descriptor{
		orig,
		pkg("assert", "2.0.0", "-/vendor/assert-2.0.0.tgz"),
		pkg("other", "1.0.0", "-/other-1.0.0.tgz"),
	}})
	r.Register(context.Background(), "P")
	r.SetBaseURL("http://localhost:1234")

	p, err := r.FetchVersions("assert")
	if err != nil {
		t.Fatalf("FetchVersions: %v", err)
	}
	if p.Name != "assert" {
		t.Fatalf("Name = %q, want assert", p.Name)
	}
	if len(p.Versions) != 2 {
		t.Fatalf("len(Versions) = %d, want 2", len(p.Versions))
	}
	v := p.Versions["1.4.1"]
	if got, want := v.Tarball(), "http://localhost:1234/-/assert-1.4.1.tgz"; got != want {
		t.Fatalf("tarball = %q, want %q", got, want)
	}
	if v["description"] != "assertions" {
		t.Fatalf("description = %v, want passthrough", v["description"])
	}
	dist := v["dist"].(map[string]any)
	if dist["integrity"] != "sha512-AAAA" {
		t.Fatalf("integrity = %v, want sha512-AAAA", dist["integrity"])
	}
	if got := p.DistTags["latest"]; got != "2.0.0" {
		t.Fatalf("dist-tags.latest = %q, want 2.0.0", got)
	}

	// Rendering must not leak into stored descriptors.
	if got := orig.Tarball(); got != "-/vendor/assert-1.4.1.tgz" {
		t.Fatalf("stored locator changed to %q", got)
	}
}

func TestFetchVersionsLastWriteWins(t *testing.T) {
	first := pkg("dup", "1.0.0", "-/a/dup-1.0.0.tgz")
	first["marker"] = "first"
	second := pkg("dup", "1.0.0", "-/b/dup-1.0.0.tgz")
	second["marker"] = "second"
	r := newTestRegistry(&staticBackend{descs: []Descriptor{first, second}})
	if got := r.Register(context.Background(), "P"); got != 2 {
		t.Fatalf("Register = %d, want 2", got)
	}

	d, err := r.FetchPkgVersion("dup", "1.0.0")
	if err != nil {
		t.Fatalf("FetchPkgVersion: %v", err)
	}
	if d["marker"] != "second" {
		t.Fatalf("marker = %v, want second", d["marker"])
	}
}

func TestFetchNotFound(t *testing.T) {
	r := newTestRegistry(&staticBackend{descs: []Descriptor{pkg("a", "1.0.0", "-/a-1.0.0.tgz")}})
	r.Register(context.Background(), "P")

	if _, err := r.FetchVersions("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FetchVersions(missing) err = %v, want ErrNotFound", err)
	}
	if _, err := r.FetchPkgVersion("missing", "1.0.0"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FetchPkgVersion(missing) err = %v, want ErrNotFound", err)
	}
	if _, err := r.FetchPkgVersion("a", "9.9.9"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FetchPkgVersion(a, 9.9.9) err = %v, want ErrNotFound", err)
	}
}

func TestRebindBaseURL(t *testing.T) {
	r := newTestRegistry(&staticBackend{descs: []Descriptor{pkg("assert", "1.4.1", "-/assert-1.4.1.tgz")}})
	if got := r.Register(context.Background(), "assert-1.4.1.tgz"); got != 1 {
		t.Fatalf("Register = %d, want 1", got)
	}

	for _, port := range []string{"1234", "1235"} {
		r.SetBaseURL("http://localhost:" + port)
		d, err := r.FetchPkgVersion("assert", "1.4.1")
		if err != nil {
			t.Fatalf("FetchPkgVersion: %v", err)
		}
		if want := ":" + port + "/-/assert-1.4.1.tgz"; !strings.HasSuffix(d.Tarball(), want) {
			t.Fatalf("tarball = %q, want suffix %q", d.Tarball(), want)
		}
	}
}

func TestArchiveFile(t *testing.T) {
	r := newTestRegistry(&staticBackend{descs: []Descriptor{
		pkg("a", "1.0.0", "-/dir/a-1.0.0.tgz"),
		pkg("b", "1.0.0", "-/one/b-1.0.0.tgz"),
		pkg("b", "1.0.0", "-/two/b-1.0.0.tgz"),
		pkg("c", "1.0.0", "-/dir/"),
	}})
	r.Register(context.Background(), "P")

	got, err := r.ArchiveFile("a-1.0.0.tgz")
	if err != nil {
		t.Fatalf("ArchiveFile: %v", err)
	}
	if got != "dir/a-1.0.0.tgz" {
		t.Fatalf("ArchiveFile = %q, want dir/a-1.0.0.tgz", got)
	}

	for _, name := range []string{"b-1.0.0.tgz", "missing.tgz", ""} {
		if p, err := r.ArchiveFile(name); !errors.Is(err, ErrNotFound) {
			t.Errorf("ArchiveFile(%q) = %q, %v; want ErrNotFound", name, p, err)
		}
	}
}

func TestBaseTarballName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"-/a-1.0.0.tgz", "a-1.0.0.tgz"},
		{"-/dir/sub/a-1.0.0.tgz", "a-1.0.0.tgz"},
		{"a.tgz", "a.tgz"},
		{"-/dir/", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := baseTarballName(tt.in); got != tt.want {
			t.Errorf("baseTarballName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLatestVersion(t *testing.T) {
	tests := []struct {
		versions []string
		want     string
	}{
		{[]string{"1.0.0", "1.10.0", "1.2.0"}, "1.10.0"},
		{[]string{"1.0.0", "2.0.0-beta.1"}, "1.0.0"},
		{[]string{"2.0.0-beta.1", "2.0.0-alpha"}, "2.0.0-beta.1"},
		{[]string{"not-a-version"}, ""},
	}
	for _, tt := range tests {
		m := make(map[string]Descriptor)
		for _, v := range tt.versions {
			m[v] = nil
		}
		if got := latestVersion(m); got != tt.want {
			t.Errorf("latestVersion(%v) = %q, want %q", tt.versions, got, tt.want)
		}
	}
}
