// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package registry holds the package descriptors served by npmlocal.
//
// Descriptors are produced by pluggable backends (see [Backend]) and are
// appended to the registry by [Registry.Register]. The first backend that
// yields at least one valid descriptor for a path wins; the remaining
// backends are not consulted.
//
// Stored descriptors keep a storage-relative locator in dist.tarball:
//
//	-/<path>          a tarball registered directly
//	-/<dir>/<file>    a tarball found inside a registered directory
//
// Query methods render those locators as absolute URLs against the base
// URL set with [Registry.SetBaseURL]:
//
//	<base>/<name>/<version>    package links in FetchPackages
//	<base>/-/<basename>        dist.tarball in FetchVersions
//
// Changing the base URL changes every link rendered afterwards without
// re-registering anything.
package registry
