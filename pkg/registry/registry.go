// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package registry

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/log"
	"tailscale.com/syncs"
	"tailscale.com/util/mak"
)

// Backend turns a filesystem path into zero or more descriptors.
type Backend interface {
	Extract(ctx context.Context, path string) ([]Descriptor, error)
}

// BackendFunc adapts a function to the Backend interface.
type BackendFunc func(ctx context.Context, path string) ([]Descriptor, error)

// Extract calls f(ctx, path).
func (f BackendFunc) Extract(ctx context.Context, path string) ([]Descriptor, error) {
	return f(ctx, path)
}

// PackageSummary is one entry of the root listing.
type PackageSummary struct {
	Name     string            `json:"name"`
	Versions map[string]string `json:"versions"`
}

// Packument is the per-package document served for GET /<name>.
type Packument struct {
	Name     string                `json:"name"`
	DistTags map[string]string     `json:"dist-tags,omitempty"`
	Versions map[string]Descriptor `json:"versions"`
}

// Registry accumulates descriptors from its backends and answers metadata
// queries against them. Descriptors are only ever appended.
type Registry struct {
	// Logger receives per-path registration details. If nil, log.Default
	// is used.
	Logger *log.Logger

	mu       sync.RWMutex
	pkgs     []Descriptor
	backends []Backend

	baseURL syncs.AtomicValue[string]
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{}
}

func (r *Registry) logger() *log.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return log.Default()
}

// AddBackend appends b to the list of backends consulted by Register.
// Backends are tried in the order they were added.
func (r *Registry) AddBackend(b Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends = append(r.backends, b)
}

// SetBaseURL sets the URL prefix used when rendering package and tarball
// links. A trailing slash is dropped.
func (r *Registry) SetBaseURL(u string) {
	r.baseURL.Store(strings.TrimSuffix(u, "/"))
}

// BaseURL returns the current rendering prefix.
func (r *Registry) BaseURL() string {
	return r.baseURL.Load()
}

// Len returns the number of stored descriptors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pkgs)
}

// Register offers path to each backend in order and stores the valid
// descriptors of the first backend that yields any. It returns how many
// descriptors were stored; a path no backend understands yields 0.
// Backend errors are treated as zero results.
func (r *Registry) Register(ctx context.Context, path string) int {
	r.mu.RLock()
	backends := r.backends
	r.mu.RUnlock()

	if len(backends) == 0 {
		r.logger().Warn("no backends configured", "path", path)
		return 0
	}
	for i, b := range backends {
		n := r.registerWith(ctx, b, path)
		if n > 0 {
			r.logger().Debug("registered", "path", path, "backend", i, "count", n)
			return n
		}
	}
	return 0
}

func (r *Registry) registerWith(ctx context.Context, b Backend, path string) int {
	descs, err := b.Extract(ctx, path)
	if err != nil {
		r.logger().Debug("backend rejected path", "path", path, "err", err)
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, d := range descs {
		if !d.Valid() {
			continue
		}
		r.pkgs = append(r.pkgs, d)
		n++
	}
	return n
}

func (r *Registry) packageURL(name, version string) string {
	return r.BaseURL() + "/" + name + "/" + version
}

func (r *Registry) tarballURL(locator string) string {
	return r.BaseURL() + "/" + LocatorPrefix + baseTarballName(locator)
}

// FetchPackages lists every distinct package name, in order of first
// registration, with links to each of its versions.
func (r *Registry) FetchPackages() []PackageSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []PackageSummary{}
	index := make(map[string]int)
	for _, d := range r.pkgs {
		name, version := d.Name(), d.Version()
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, PackageSummary{Name: name, Versions: make(map[string]string)})
		}
		out[i].Versions[version] = r.packageURL(name, version)
	}
	return out
}

// FetchVersions returns all stored versions of name with tarball links
// rendered against the base URL. When two descriptors share a version the
// one registered last wins.
func (r *Registry) FetchVersions(name string) (*Packument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p := &Packument{
		Name:     name,
		Versions: make(map[string]Descriptor),
	}
	for _, d := range r.pkgs {
		if d.Name() != name {
			continue
		}
		c, err := d.Clone()
		if err != nil {
			return nil, fmt.Errorf("render %s@%s: %w", name, d.Version(), err)
		}
		c.setTarball(r.tarballURL(d.Tarball()))
		p.Versions[d.Version()] = c
	}
	if len(p.Versions) == 0 {
		return nil, fmt.Errorf("%w: package %q", ErrNotFound, name)
	}
	if latest := latestVersion(p.Versions); latest != "" {
		mak.Set(&p.DistTags, "latest", latest)
	}
	return p, nil
}

// FetchPkgVersion returns the rendered descriptor for name@version.
func (r *Registry) FetchPkgVersion(name, version string) (Descriptor, error) {
	p, err := r.FetchVersions(name)
	if err != nil {
		return nil, err
	}
	d, ok := p.Versions[version]
	if !ok {
		return nil, fmt.Errorf("%w: version %q of package %q", ErrNotFound, version, name)
	}
	return d, nil
}

// ArchiveFile resolves a tarball basename to the path it was registered
// from. The basename must identify exactly one descriptor.
func (r *Registry) ArchiveFile(basename string) (string, error) {
	if basename == "" {
		return "", fmt.Errorf("%w: empty archive name", ErrNotFound)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var match string
	n := 0
	for _, d := range r.pkgs {
		loc := d.Tarball()
		if baseTarballName(loc) == basename {
			match = loc
			n++
		}
	}
	switch n {
	case 0:
		return "", fmt.Errorf("%w: archive %q", ErrNotFound, basename)
	case 1:
		return strings.TrimPrefix(match, LocatorPrefix), nil
	default:
		return "", fmt.Errorf("%w: archive %q is ambiguous (%d matches)", ErrNotFound, basename, n)
	}
}

// latestVersion picks the highest semver key, preferring releases over
// prereleases. Keys that do not parse are ignored.
func latestVersion(versions map[string]Descriptor) string {
	var best, bestPre *semver.Version
	var bestKey, bestPreKey string
	for k := range versions {
		v, err := semver.NewVersion(k)
		if err != nil {
			continue
		}
		if v.Prerelease() != "" {
			if bestPre == nil || v.GreaterThan(bestPre) {
				bestPre, bestPreKey = v, k
			}
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best, bestKey = v, k
		}
	}
	if best != nil {
		return bestKey
	}
	return bestPreKey
}
