// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package extract provides the registry backends that read package
// descriptors out of npm tarballs.
//
// [Tarball] handles a single .tgz file: it reads the first
// "<top>/package.json" member and stamps dist with a storage locator and
// an integrity digest of the archive bytes.
//
// [Dir] handles a directory of tarballs. Every regular file directly in
// the directory is handed to a per-file backend (Tarball by default);
// files that fail are skipped. At most Concurrency files are processed at
// once: file j is assigned to lane j mod Concurrency, each lane works
// through its files in order, and the lane results are concatenated in
// lane order.
package extract
