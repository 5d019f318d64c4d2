// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package service

import (
	"net/url"
	"strings"
)

// RequestType is the kind of registry query a request path names.
type RequestType int

const (
	RequestUnknown RequestType = iota
	RequestRoot
	RequestPkgVersions
	RequestPackage
	RequestArchive
)

func (rt RequestType) String() string {
	switch rt {
	case RequestRoot:
		return "root"
	case RequestPkgVersions:
		return "pkg-versions"
	case RequestPackage:
		return "package"
	case RequestArchive:
		return "archive"
	default:
		return "unknown"
	}
}

// Request holds the parsed components of a registry path.
type Request struct {
	Type    RequestType
	Package string // package name, or archive basename for RequestArchive
	Version string
}

// ParseRequestPath parses an escaped request path:
//
//	/                        root
//	/<name>                  pkg-versions
//	/@<scope>/<name>         pkg-versions (also /@<scope>%2f<name>)
//	/<name>/<version>        package
//	/-/<basename>            archive
//
// ok is false for paths with more segments than any of the above.
func ParseRequestPath(escaped string) (req Request, ok bool) {
	p, err := url.PathUnescape(escaped)
	if err != nil {
		return Request{}, false
	}

	var parts []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			parts = append(parts, s)
		}
	}

	if len(parts) >= 2 && strings.HasPrefix(parts[0], "@") {
		parts = append([]string{parts[0] + "/" + parts[1]}, parts[2:]...)
	}

	if len(parts) > 0 && parts[0] == "-" {
		return Request{
			Type:    RequestArchive,
			Package: strings.Join(parts[1:], "/"),
		}, true
	}

	switch len(parts) {
	case 0:
		return Request{Type: RequestRoot}, true
	case 1:
		return Request{Type: RequestPkgVersions, Package: parts[0]}, true
	case 2:
		return Request{Type: RequestPackage, Package: parts[0], Version: parts[1]}, true
	}
	return Request{}, false
}
