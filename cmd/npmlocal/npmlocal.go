// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command npmlocal serves local npm tarballs as a registry and runs npm
// against it.
//
//	npmlocal [flags] <tarball | directory>... [npm arguments]
//
// Every argument is offered to the registry first. Arguments that yield no
// packages, and everything after "--", are handed to npm unchanged.
package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fatih/color"
	"github.com/shayne/yargs"
	"github.com/yeetrun/npmlocal/pkg/config"
	"github.com/yeetrun/npmlocal/pkg/extract"
	"github.com/yeetrun/npmlocal/pkg/npm"
	"github.com/yeetrun/npmlocal/pkg/registry"
	"github.com/yeetrun/npmlocal/pkg/service"
	"golang.org/x/sync/errgroup"
	"tailscale.com/util/must"
)

const usage = `usage: npmlocal [flags] <tarball | directory>... [npm arguments]

Serves the given npm tarballs, and every tarball directly inside the given
directories, from a local registry. Remaining arguments are passed to npm
with its registry pointed at the local one.

Flags:
  --listen URL         base URL to serve on (default http://localhost)
  --config FILE        TOML config file (default: nearest npmlocal.toml)
  --concurrency N      tarballs read in parallel per directory (default 100)
  --npm PATH           npm executable (default npm)
  -v, --verbose        debug logging
  -h, --help           print this help
`

type flagsParsed struct {
	Listen      string `flag:"listen" help:"Base URL to serve on"`
	Config      string `flag:"config" help:"TOML config file"`
	Concurrency int    `flag:"concurrency" help:"Tarballs read in parallel per directory"`
	Npm         string `flag:"npm" help:"npm executable"`
	Verbose     bool   `flag:"verbose" short:"v" help:"Debug logging"`
	Help        bool   `flag:"help" short:"h" help:"Print help"`
}

const shutdownTimeout = 5 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("npmlocal: %v", err))
		os.Exit(1)
	}
}

func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// splitArgs separates parsed flags from the registration candidates and
// the arguments reserved for npm after "--".
func splitArgs(args []string) (flagsParsed, []string, []string, error) {
	result, err := yargs.ParseKnownFlags[flagsParsed](args, yargs.KnownFlagsOptions{})
	if err != nil {
		return flagsParsed{}, nil, nil, err
	}
	rest := result.RemainingArgs
	if i := slices.Index(rest, "--"); i >= 0 {
		return result.Flags, rest[:i], rest[i+1:], nil
	}
	return result.Flags, rest, nil, nil
}

// loadConfig applies flags over the config file over the defaults.
func loadConfig(f flagsParsed) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if f.Config != "" {
		cfg, err = config.Load(f.Config)
	} else {
		cfg, _, err = config.LoadFromDir(must.Get(os.Getwd()))
	}
	if err != nil {
		return nil, err
	}
	if f.Listen != "" {
		cfg.Listen = f.Listen
	}
	if f.Concurrency > 0 {
		cfg.Concurrency = f.Concurrency
	}
	if f.Npm != "" {
		cfg.Npm = f.Npm
	}
	if f.Verbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

// registerAll offers each argument to reg in order and returns the total
// number of packages stored plus the arguments that yielded none.
func registerAll(ctx context.Context, reg *registry.Registry, args []string) (int, []string, error) {
	total := 0
	var unused []string
	for _, arg := range args {
		if err := ctx.Err(); err != nil {
			return 0, nil, err
		}
		n := reg.Register(ctx, arg)
		if n == 0 {
			unused = append(unused, arg)
		}
		total += n
	}
	return total, unused, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	flags, candidates, passthrough, err := splitArgs(args)
	if err != nil {
		return err
	}
	if flags.Help {
		fmt.Fprint(stdout, usage)
		return nil
	}
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	level := log.InfoLevel
	if cfg.Verbose {
		level = log.DebugLevel
	}
	logger := newLogger(stderr, level)

	reg := registry.New()
	reg.Logger = logger
	reg.AddBackend(extract.Tarball{})
	reg.AddBackend(&extract.Dir{Concurrency: cfg.Concurrency, Logger: logger})

	total, npmArgs, err := registerAll(ctx, reg, candidates)
	if err != nil {
		return err
	}
	npmArgs = append(npmArgs, passthrough...)
	fmt.Fprintln(stdout, color.GreenString("Serving %d packages", total))

	base, err := url.Parse(cfg.Listen)
	if err != nil {
		return fmt.Errorf("invalid listen URL: %w", err)
	}
	svc, err := service.New(base, reg)
	if err != nil {
		return err
	}
	svc.Logger = logger
	if err := svc.Listen(); err != nil {
		return err
	}
	logger.Info("listening", "url", svc.URL())

	var g errgroup.Group
	g.Go(svc.Serve)

	var npmErr error
	if len(npmArgs) == 0 {
		logger.Info("npm install skipped")
		<-ctx.Done()
	} else {
		client := &npm.Client{Bin: cfg.Npm, Logger: logger}
		npmErr = client.WithRegistry(ctx, svc.URL().String(), func(ctx context.Context) error {
			return client.Install(ctx, npmArgs)
		})
		logger.Info("npm done, shutting down")
	}

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := svc.Shutdown(sctx); err != nil {
		logger.Warn("shutdown", "err", err)
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return npmErr
}
