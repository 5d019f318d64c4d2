// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/yeetrun/npmlocal/pkg/compress"
	"github.com/yeetrun/npmlocal/pkg/registry"
)

var (
	ErrInvalidScheme = errors.New("invalid scheme")
	ErrInvalidPort   = errors.New("invalid port")
)

// Service serves a Registry over HTTP using the npm registry URL layout.
type Service struct {
	// Logger receives one line per request. If nil, log.Default is used.
	Logger *log.Logger

	reg *registry.Registry

	mu   sync.Mutex
	base *url.URL
	ln   net.Listener
	srv  *http.Server
}

// New returns a Service for reg reachable at base. Only plain http is
// supported, and an explicit port must not be privileged. An empty port
// binds an ephemeral one in Listen.
func New(base *url.URL, reg *registry.Registry) (*Service, error) {
	if base == nil {
		return nil, fmt.Errorf("%w: no URL", ErrInvalidScheme)
	}
	if base.Scheme != "http" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidScheme, base.Scheme)
	}
	if p := base.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1024 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPort, p)
		}
	}
	u := *base
	if u.Path == "" {
		u.Path = "/"
	}
	return &Service{reg: reg, base: &u}, nil
}

func (s *Service) logger() *log.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return log.Default()
}

// URL returns the service base URL. After Listen it carries the bound port.
func (s *Service) URL() *url.URL {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := *s.base
	return &u
}

// Listen binds the listener and points the registry's rendered URLs at the
// bound address.
func (s *Service) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return errors.New("already listening")
	}

	port := s.base.Port()
	if port == "" {
		port = "0"
	}
	ln, err := net.Listen("tcp", net.JoinHostPort(s.base.Hostname(), port))
	if err != nil {
		return err
	}
	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		s.base.Host = net.JoinHostPort(s.base.Hostname(), strconv.Itoa(addr.Port))
	}
	s.ln = ln
	s.srv = &http.Server{Handler: s}
	s.reg.SetBaseURL(s.base.String())
	return nil
}

// Serve accepts connections until Shutdown. It returns nil after a clean
// shutdown.
func (s *Service) Serve() error {
	s.mu.Lock()
	srv, ln := s.srv, s.ln
	s.mu.Unlock()
	if srv == nil {
		return errors.New("not listening")
	}
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for active ones.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// ServeHTTP implements http.Handler.
func (s *Service) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	lg := s.logger().With("req", uuid.NewString()[:8], "path", req.URL.EscapedPath())

	if req.Method != http.MethodGet {
		lg.Warn("bad method", "method", req.Method)
		writeError(w, http.StatusInternalServerError, "Invalid method")
		return
	}
	r, ok := ParseRequestPath(req.URL.EscapedPath())
	if !ok {
		lg.Warn("bad path")
		writeError(w, http.StatusBadRequest, "Invalid path")
		return
	}
	lg = lg.With("type", r.Type)

	var (
		doc any
		err error
	)
	switch r.Type {
	case RequestRoot:
		doc = s.reg.FetchPackages()
	case RequestPkgVersions:
		doc, err = s.reg.FetchVersions(r.Package)
	case RequestPackage:
		doc, err = s.reg.FetchPkgVersion(r.Package, r.Version)
	case RequestArchive:
		err = s.serveArchive(w, r.Package)
		if err == nil {
			lg.Debug("served")
			return
		}
	default:
		err = fmt.Errorf("unhandled request type %v", r.Type)
	}
	if err != nil {
		lg.Warn("not found", "err", err)
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if err := compress.WriteJSON(w, req, http.StatusOK, doc); err != nil {
		lg.Warn("write response", "err", err)
		return
	}
	lg.Debug("served")
}

// serveArchive streams the tarball registered under basename. Nothing is
// written to w when it returns an error.
func (s *Service) serveArchive(w http.ResponseWriter, basename string) error {
	p, err := s.reg.ArchiveFile(basename)
	if err != nil {
		return err
	}
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return err
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("%s: not a regular file", p)
	}
	w.Header().Set("Content-Type", "application/x-compressed-tar")
	w.Header().Set("Content-Length", strconv.FormatInt(fi.Size(), 10))
	w.WriteHeader(http.StatusOK)
	io.Copy(w, f)
	return nil
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	io.WriteString(w, message)
}
