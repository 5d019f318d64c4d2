// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ftdetect identifies archive formats by their leading bytes.
package ftdetect

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

type FileType int

const (
	Unknown FileType = iota
	Gzip
	Zstd
	Tar
)

func (ft FileType) String() string {
	switch ft {
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	case Tar:
		return "tar"
	default:
		return "unknown"
	}
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	tarMagic  = []byte("ustar")
)

// tarMagicOffset is where the ustar magic sits in the first header block.
const tarMagicOffset = 257

// DetectFile reports the type of the file at path. Open and read errors
// are returned as is; a file too short to tell is Unknown.
func DetectFile(path string) (FileType, error) {
	f, err := os.Open(path)
	if err != nil {
		return Unknown, err
	}
	defer f.Close()
	return Detect(f)
}

// Detect reads up to one tar header block from r and reports its type.
func Detect(r io.Reader) (FileType, error) {
	var head [512]byte
	n, err := io.ReadFull(r, head[:])
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Unknown, fmt.Errorf("failed to read header: %w", err)
	}
	b := head[:n]
	switch {
	case bytes.HasPrefix(b, gzipMagic):
		return Gzip, nil
	case bytes.HasPrefix(b, zstdMagic):
		return Zstd, nil
	case len(b) >= tarMagicOffset+len(tarMagic) && bytes.Equal(b[tarMagicOffset:tarMagicOffset+len(tarMagic)], tarMagic):
		return Tar, nil
	}
	return Unknown, nil
}
