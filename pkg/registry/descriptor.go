// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package registry

import (
	"encoding/json"
	"fmt"
	"strings"
)

// LocatorPrefix marks a dist.tarball value as storage-relative.
const LocatorPrefix = "-/"

// Descriptor is a decoded package.json object. Only name, version and dist
// are interpreted; every other key is passed through as-is.
type Descriptor map[string]any

// Valid reports whether d carries the keys the registry depends on.
func (d Descriptor) Valid() bool {
	if d == nil {
		return false
	}
	for _, k := range []string{"name", "version", "dist"} {
		if _, ok := d[k]; !ok {
			return false
		}
	}
	return true
}

// Name returns the package name.
func (d Descriptor) Name() string {
	return stringField(d, "name")
}

// Version returns the package version.
func (d Descriptor) Version() string {
	return stringField(d, "version")
}

// Tarball returns dist.tarball, or "" if it is missing or not a string.
func (d Descriptor) Tarball() string {
	dist, ok := d["dist"].(map[string]any)
	if !ok {
		return ""
	}
	s, _ := dist["tarball"].(string)
	return s
}

// SetDist replaces dist with a fresh tarball/integrity pair.
func (d Descriptor) SetDist(tarball, integrity string) {
	d["dist"] = map[string]any{
		"tarball":   tarball,
		"integrity": integrity,
	}
}

// setTarball rewrites dist.tarball and keeps the other dist keys.
func (d Descriptor) setTarball(tarball string) {
	dist, ok := d["dist"].(map[string]any)
	if !ok {
		dist = make(map[string]any)
		d["dist"] = dist
	}
	dist["tarball"] = tarball
}

// Clone returns a deep copy of d. The copy goes through JSON so that it
// only ever contains JSON-representable values.
func (d Descriptor) Clone() (Descriptor, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal descriptor: %w", err)
	}
	var out Descriptor
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("unmarshal descriptor: %w", err)
	}
	return out, nil
}

func stringField(d Descriptor, key string) string {
	switch v := d[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// baseTarballName returns the final path segment of a locator. Locators
// that are empty or end in "/" have no basename.
func baseTarballName(locator string) string {
	parts := strings.Split(locator, "/")
	return parts[len(parts)-1]
}
