// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package targz walks the members of gzip-compressed tar archives.
package targz

import (
	"archive/tar"
	"errors"
	"io"
	"path"

	"github.com/klauspost/compress/gzip"
)

// ErrStop may be returned from a Walk callback to end the walk early
// without error.
var ErrStop = errors.New("targz: stop walking")

type Reader struct {
	z *gzip.Reader
	r *tar.Reader
}

func (r Reader) Read(p []byte) (n int, err error) {
	return r.r.Read(p)
}

func (r Reader) Close() error {
	return r.z.Close()
}

func (r Reader) Next() (*tar.Header, error) {
	return r.r.Next()
}

func New(r io.Reader) (*Reader, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	return &Reader{z: gz, r: tar.NewReader(gz)}, nil
}

// Walk calls f for each entry in the tarball until f returns an error or
// the archive ends. Returning ErrStop ends the walk and Walk returns nil.
func Walk(r io.Reader, f func(*tar.Header, io.Reader) error) error {
	t, err := New(r)
	if err != nil {
		return err
	}
	defer t.Close()

	for {
		header, err := t.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := f(header, t); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
	}
}

// ReadFirst returns the contents of the first regular file whose name
// matches pattern (see path.Match; "*" never matches "/"). ok is false if
// no member matched.
func ReadFirst(r io.Reader, pattern string) (data []byte, ok bool, err error) {
	err = Walk(r, func(h *tar.Header, body io.Reader) error {
		if h.Typeflag != tar.TypeReg {
			return nil
		}
		matched, err := path.Match(pattern, h.Name)
		if err != nil {
			return err
		}
		if !matched {
			return nil
		}
		data, err = io.ReadAll(body)
		if err != nil {
			return err
		}
		ok = true
		return ErrStop
	})
	if err != nil {
		return nil, false, err
	}
	return data, ok, nil
}
