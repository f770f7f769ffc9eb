// Copyright 2026 The Arcfs Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"io"
	"path"
	"strings"
)

// ReadIndex detects the format of an archive byte source and scans it
// into an Index. This is the single mount-time pass: for zip it
// parses the central directory, for plain tar it walks the header
// blocks, and for compressed tar it decodes the whole outer
// compression layer once, recording where each entry's payload sits
// in the decoded stream.
//
// Indexing errors are always fatal. A half-built namespace would
// silently mislead callers about which files exist, so any malformed
// header, truncated record, or checksum mismatch aborts with
// ErrInvalidArchive.
func ReadIndex(source io.ReaderAt, size int64) (*Index, error) {
	format, err := Detect(source, size)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatZip:
		return indexZip(source, size)
	case FormatTar:
		return indexPlainTar(source, size)
	default:
		return indexCompressedTar(format, source, size)
	}
}

// normalizeEntryPath canonicalizes an archive member name into a
// slash-separated, archive-relative path. Returns ok=false for names
// that cannot map to a tree node: the archive root itself, absolute
// escapes, or paths that climb out via "..".
func normalizeEntryPath(name string) (string, bool) {
	name = strings.TrimPrefix(name, "/")
	cleaned := path.Clean(name)
	if cleaned == "." || cleaned == "/" || cleaned == "" {
		return "", false
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", false
	}
	return cleaned, true
}
