// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package extract

import (
	_ "crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/opencontainers/go-digest"
)

// Integrity returns the Subresource Integrity string ("sha512-<base64>")
// of everything read from r, in the form npm expects in dist.integrity.
func Integrity(r io.Reader) (string, error) {
	d, err := digest.SHA512.FromReader(r)
	if err != nil {
		return "", err
	}
	raw, err := hex.DecodeString(d.Encoded())
	if err != nil {
		return "", fmt.Errorf("decode digest %s: %w", d, err)
	}
	return "sha512-" + base64.StdEncoding.EncodeToString(raw), nil
}
