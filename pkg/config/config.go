// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads npmlocal settings from an optional TOML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the config file looked up from the working directory
// upwards when no explicit path is given.
const FileName = "npmlocal.toml"

const (
	DefaultListen      = "http://localhost"
	DefaultConcurrency = 100
	DefaultNpm         = "npm"
)

type Config struct {
	// Listen is the base URL to serve on. Without a port an ephemeral one
	// is chosen.
	Listen string `toml:"listen,omitempty"`
	// Concurrency bounds parallel archive reads per directory.
	Concurrency int `toml:"concurrency,omitempty"`
	// Npm is the npm executable.
	Npm     string `toml:"npm,omitempty"`
	Verbose bool   `toml:"verbose,omitempty"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Listen:      DefaultListen,
		Concurrency: DefaultConcurrency,
		Npm:         DefaultNpm,
	}
}

// Load reads path over the defaults. Keys absent from the file keep their
// default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return nil, fmt.Errorf("%s: unknown key %q", path, undec[0].String())
	}
	if cfg.Concurrency < 1 {
		return nil, fmt.Errorf("%s: concurrency must be positive, got %d", path, cfg.Concurrency)
	}
	return cfg, nil
}

// LoadFromDir loads the nearest FileName at or above dir. It returns the
// defaults and an empty path when there is none.
func LoadFromDir(dir string) (cfg *Config, path string, err error) {
	path, err = find(dir)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), "", nil
	}
	if err != nil {
		return nil, "", err
	}
	cfg, err = Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func find(startDir string) (string, error) {
	dir := filepath.Clean(startDir)
	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		} else if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}
