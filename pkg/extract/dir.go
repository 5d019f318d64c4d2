// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package extract

import (
	"context"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/yeetrun/npmlocal/pkg/registry"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds the number of archives read at once when a
// Dir has no Concurrency set.
const DefaultConcurrency = 100

// Dir extracts descriptors from every regular file directly inside a
// directory. It does not recurse.
type Dir struct {
	// Files extracts a single file. If nil, Tarball is used.
	Files registry.Backend
	// Concurrency is the number of lanes. Values < 1 mean
	// DefaultConcurrency.
	Concurrency int
	// Logger receives skipped-file details. If nil, log.Default is used.
	Logger *log.Logger
}

var _ registry.Backend = (*Dir)(nil)

func (d *Dir) files() registry.Backend {
	if d.Files != nil {
		return d.Files
	}
	return Tarball{}
}

func (d *Dir) lanes() int {
	if d.Concurrency < 1 {
		return DefaultConcurrency
	}
	return d.Concurrency
}

func (d *Dir) logger() *log.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return log.Default()
}

// Extract lists dir and extracts each regular file in it. Only a listing
// failure is returned as an error; files that fail to extract contribute
// nothing.
func (d *Dir) Extract(ctx context.Context, dir string) ([]registry.Descriptor, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}

	k := min(d.lanes(), len(paths))
	results := make([][]registry.Descriptor, k)
	backend := d.files()

	var g errgroup.Group
	for lane := range k {
		g.Go(func() error {
			for j := lane; j < len(paths); j += k {
				if ctx.Err() != nil {
					return nil
				}
				descs, err := backend.Extract(ctx, paths[j])
				if err != nil {
					d.logger().Debug("skipping file", "path", paths[j], "err", err)
					continue
				}
				results[lane] = append(results[lane], descs...)
			}
			return nil
		})
	}
	g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []registry.Descriptor
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}
