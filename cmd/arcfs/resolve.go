// Copyright 2026 The Arcfs Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"path/filepath"
)

// resolveArchive maps the origin argument to the archive file to
// mount. A file origin is used as-is; a directory origin must contain
// exactly one regular file, which is taken as the archive. Ambiguity
// is an error rather than a guess — format detection happens later,
// from the file's bytes.
func resolveArchive(origin string) (string, error) {
	info, err := os.Stat(origin)
	if err != nil {
		return "", fmt.Errorf("resolving archive: %w", err)
	}
	if !info.IsDir() {
		return origin, nil
	}

	entries, err := os.ReadDir(origin)
	if err != nil {
		return "", fmt.Errorf("reading archive directory: %w", err)
	}

	var candidates []string
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			candidates = append(candidates, entry.Name())
		}
	}

	switch len(candidates) {
	case 0:
		return "", fmt.Errorf("directory %s contains no regular file", origin)
	case 1:
		return filepath.Join(origin, candidates[0]), nil
	default:
		return "", fmt.Errorf("directory %s contains %d regular files, expected exactly one", origin, len(candidates))
	}
}
