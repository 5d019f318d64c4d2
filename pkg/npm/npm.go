// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package npm drives the npm command line.
package npm

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/yeetrun/npmlocal/pkg/cmdutil"
)

// DefaultBin is the npm executable looked up in PATH.
const DefaultBin = "npm"

// Client runs npm commands.
type Client struct {
	// Bin is the npm executable. Empty means DefaultBin.
	Bin    string
	Logger *log.Logger
}

func (c *Client) bin() string {
	if c.Bin != "" {
		return c.Bin
	}
	return DefaultBin
}

func (c *Client) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}

// Registry returns the registry npm is currently configured to use.
func (c *Client) Registry(ctx context.Context) (string, error) {
	return cmdutil.Output(ctx, c.bin(), "config", "get", "registry")
}

// SetRegistry points npm at url.
func (c *Client) SetRegistry(ctx context.Context, url string) error {
	c.logger().Debug("npm config set registry", "url", url)
	if err := cmdutil.NewStdCmd(ctx, c.bin(), "config", "set", "registry", url).Run(); err != nil {
		return fmt.Errorf("set npm registry: %w", err)
	}
	return nil
}

// RestoreRegistry puts back a registry value saved from Registry. An empty
// or "undefined" value deletes the setting so npm falls back to its default.
func (c *Client) RestoreRegistry(ctx context.Context, prev string) error {
	if prev == "" || prev == "undefined" {
		c.logger().Debug("npm config delete registry")
		if err := cmdutil.NewStdCmd(ctx, c.bin(), "config", "delete", "registry").Run(); err != nil {
			return fmt.Errorf("restore npm registry: %w", err)
		}
		return nil
	}
	return c.SetRegistry(ctx, prev)
}

// Install runs npm with args, e.g. ["install", "--no-audit"], attached to
// the terminal.
func (c *Client) Install(ctx context.Context, args []string) error {
	c.logger().Info("running npm", "args", args)
	if err := cmdutil.NewStdCmd(ctx, c.bin(), args...).Run(); err != nil {
		return fmt.Errorf("npm %v: %w", args, err)
	}
	return nil
}

// WithRegistry points npm at url for the duration of fn. The previous
// registry is restored afterwards, even when fn fails or ctx is done.
func (c *Client) WithRegistry(ctx context.Context, url string, fn func(context.Context) error) (err error) {
	prev, err := c.Registry(ctx)
	if err != nil {
		return fmt.Errorf("read npm registry: %w", err)
	}
	if err := c.SetRegistry(ctx, url); err != nil {
		return err
	}
	defer func() {
		rerr := c.RestoreRegistry(context.WithoutCancel(ctx), prev)
		err = errors.Join(err, rerr)
	}()
	return fn(ctx)
}
