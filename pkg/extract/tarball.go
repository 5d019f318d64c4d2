// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/yeetrun/npmlocal/pkg/ftdetect"
	"github.com/yeetrun/npmlocal/pkg/registry"
	"github.com/yeetrun/npmlocal/pkg/targz"
	"golang.org/x/sync/errgroup"
)

// DescriptorPattern matches package.json one directory below the archive
// root, which is where npm pack puts it.
const DescriptorPattern = "*/package.json"

// ErrDescriptorNotFound is returned when an archive cannot be decoded or
// holds no non-empty package.json at DescriptorPattern.
var ErrDescriptorNotFound = errors.New("descriptor not found in archive")

// Tarball extracts the descriptor of a single npm tarball.
type Tarball struct{}

var _ registry.Backend = Tarball{}

// Extract returns a one-element slice holding the descriptor of the
// tarball at path. Its dist is replaced with the locator "-/"+path and the
// integrity of the archive bytes. Files without a gzip header are rejected
// before they are hashed.
func (Tarball) Extract(ctx context.Context, path string) ([]registry.Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ft, err := ftdetect.DetectFile(path)
	if err != nil {
		return nil, err
	}
	if ft != ftdetect.Gzip {
		return nil, fmt.Errorf("%w: %s: %v data", ErrDescriptorNotFound, path, ft)
	}

	var (
		integrity string
		data      []byte
		found     bool
	)
	var g errgroup.Group
	g.Go(func() error {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		integrity, err = Integrity(f)
		return err
	})
	g.Go(func() error {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		data, found, err = targz.ReadFirst(f, DescriptorPattern)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrDescriptorNotFound, path, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if !found || len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrDescriptorNotFound, path)
	}

	var d registry.Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse package.json in %s: %w", path, err)
	}
	if d == nil {
		return nil, fmt.Errorf("parse package.json in %s: not an object", path)
	}
	d.SetDist(registry.LocatorPrefix+path, integrity)
	return []registry.Descriptor{d}, nil
}
