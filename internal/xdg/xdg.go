// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plugboard Contributors

// Package xdg provides XDG Base Directory paths for Plugboard.
package xdg

import (
	"fmt"
	"os"
	"path/filepath"
)

const appName = "plugboard"

// ConfigDir returns the XDG config directory for plugboard.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// DataDir returns the XDG data directory for plugboard. Plugin paths in
// configs are commonly rooted here.
// Checks XDG_DATA_HOME first, falls back to ~/.local/share.
func DataDir() string {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".local", "share")
	}
	return filepath.Join(base, appName)
}

// ConfigFile returns the default config file path, or "" if none exists.
func ConfigFile() string {
	path := filepath.Join(ConfigDir(), "plugboard.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// EnsureDir creates a directory and all parent directories if they don't exist.
// Directories are created with 0700 permissions.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}
