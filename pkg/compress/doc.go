// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package compress negotiates and applies HTTP response compression.
//
// Metadata documents can be large (a packument lists every version of a
// package), so JSON responses are compressed when the client asks for it:
//
//	compress.WriteJSON(w, req, http.StatusOK, doc)
//
// The encoding is chosen from Accept-Encoding by [SelectEncoding]:
// zstd, gzip and deflate are supported, quality values are honoured, and
// ties prefer zstd > gzip > deflate. Tarballs are already gzip streams and
// are not passed through this package.
package compress
