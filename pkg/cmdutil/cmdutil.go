// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cmdutil runs external commands.
package cmdutil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// NewStdCmd returns a command wired to the process's own stdio, so that
// the child can prompt and draw progress on the user's terminal.
func NewStdCmd(ctx context.Context, name string, arg ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, arg...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd
}

// Output runs a command and returns its stdout with surrounding
// whitespace removed. On failure the error includes stderr.
func Output(ctx context.Context, name string, arg ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, arg...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s %s: %w: %s", name, strings.Join(arg, " "), err, msg)
		}
		return "", fmt.Errorf("%s %s: %w", name, strings.Join(arg, " "), err)
	}
	return strings.TrimSpace(stdout.String()), nil
}
