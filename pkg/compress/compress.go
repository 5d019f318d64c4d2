// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compress

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Supported encodings, most preferred first.
var preference = []string{"zstd", "gzip", "deflate"}

// ResponseWriter compresses everything written through it. It sets
// Content-Encoding and Vary and drops Content-Length before the status
// line goes out.
type ResponseWriter struct {
	http.ResponseWriter
	enc         io.WriteCloser
	encoding    string
	wroteHeader bool
}

// NewResponseWriter wraps w with the named encoding. An unknown encoding
// yields a pass-through writer.
func NewResponseWriter(w http.ResponseWriter, encoding string) (*ResponseWriter, error) {
	cw := &ResponseWriter{ResponseWriter: w, encoding: encoding}
	var err error
	switch encoding {
	case "zstd":
		cw.enc, err = zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedFastest))
	case "gzip":
		cw.enc = gzip.NewWriter(w)
	case "deflate":
		cw.enc, err = flate.NewWriter(w, flate.DefaultCompression)
	default:
		cw.encoding = ""
	}
	if err != nil {
		return nil, err
	}
	return cw, nil
}

// WriteHeader sends the compression headers followed by code.
func (cw *ResponseWriter) WriteHeader(code int) {
	if cw.wroteHeader {
		return
	}
	cw.wroteHeader = true
	if cw.encoding != "" {
		h := cw.ResponseWriter.Header()
		h.Set("Content-Encoding", cw.encoding)
		h.Del("Content-Length")
		h.Set("Vary", "Accept-Encoding")
	}
	cw.ResponseWriter.WriteHeader(code)
}

// Write compresses data into the underlying response.
func (cw *ResponseWriter) Write(data []byte) (int, error) {
	if !cw.wroteHeader {
		cw.WriteHeader(http.StatusOK)
	}
	if cw.enc == nil {
		return cw.ResponseWriter.Write(data)
	}
	return cw.enc.Write(data)
}

// Close flushes the encoder. It does not close the underlying response.
func (cw *ResponseWriter) Close() error {
	if cw.enc == nil {
		return nil
	}
	return cw.enc.Close()
}

// SelectEncoding picks an encoding from an Accept-Encoding header value.
// The highest quality wins; ties go to zstd, then gzip, then deflate.
// "*" stands for every encoding not listed explicitly. It returns "" when
// the response should not be compressed.
func SelectEncoding(acceptEncoding string) string {
	if acceptEncoding == "" {
		return ""
	}
	quality := make(map[string]float64)
	wildcard := -1.0
	for _, part := range strings.Split(acceptEncoding, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		name = strings.ToLower(strings.TrimSpace(name))
		q := 1.0
		if v, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				q = f
			}
		}
		if name == "*" {
			wildcard = q
			continue
		}
		quality[name] = q
	}

	best, bestQ := "", 0.0
	for _, enc := range preference {
		q, ok := quality[enc]
		if !ok {
			if wildcard < 0 {
				continue
			}
			q = wildcard
		}
		if q > bestQ {
			best, bestQ = enc, q
		}
	}
	return best
}

// WriteJSON encodes v as the JSON body of a status response, compressed
// according to the request's Accept-Encoding.
func WriteJSON(w http.ResponseWriter, req *http.Request, status int, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")

	encoding := SelectEncoding(req.Header.Get("Accept-Encoding"))
	if encoding == "" {
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(status)
		_, err = w.Write(body)
		return err
	}
	cw, err := NewResponseWriter(w, encoding)
	if err != nil {
		w.WriteHeader(status)
		_, err = w.Write(body)
		return err
	}
	cw.WriteHeader(status)
	if _, err := cw.Write(body); err != nil {
		cw.Close()
		return err
	}
	return cw.Close()
}
