// Copyright 2026 The Arcfs Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"strings"
)

// indexZip parses the trailing central directory once. Every member
// record yields a DirectAccess descriptor with its own offset, length
// and codec, so entries decode independently at read time — no
// full-archive scan is needed.
func indexZip(source io.ReaderAt, size int64) (*Index, error) {
	reader, err := zip.NewReader(source, size)
	if err != nil {
		return nil, fmt.Errorf("%w: central directory: %v", ErrInvalidArchive, err)
	}

	index := &Index{Format: FormatZip, Entries: make([]Entry, 0, len(reader.File))}
	for _, file := range reader.File {
		entryPath, ok := normalizeEntryPath(file.Name)
		if !ok {
			continue
		}

		kind := EntryFile
		switch {
		case strings.HasSuffix(file.Name, "/") || file.FileInfo().IsDir():
			kind = EntryDir
		case file.Mode()&fs.ModeSymlink != 0:
			kind = EntrySymlink
		}

		var codec Codec
		switch file.Method {
		case zip.Store:
			codec = CodecNone
		case zip.Deflate:
			codec = CodecDeflate
		default:
			return nil, fmt.Errorf("%w: zip member %q uses compression method %d",
				ErrUnsupported, file.Name, file.Method)
		}

		// DataOffset parses the member's local header, catching
		// truncation and central-directory disagreements now rather
		// than on first read.
		offset, err := file.DataOffset()
		if err != nil {
			return nil, fmt.Errorf("%w: member %q: %v", ErrInvalidArchive, file.Name, err)
		}

		index.Entries = append(index.Entries, Entry{
			Path:    entryPath,
			Kind:    kind,
			Size:    int64(file.UncompressedSize64),
			Mode:    defaultedMode(file.Mode().Perm(), kind),
			ModTime: file.Modified,
			Storage: DirectAccess{
				Offset:           offset,
				CompressedLength: int64(file.CompressedSize64),
				Codec:            codec,
			},
		})
	}

	return index, nil
}

// defaultedMode substitutes conventional permissions for entries whose
// archive metadata carries none (zip files written on systems without
// Unix modes).
func defaultedMode(perm fs.FileMode, kind EntryKind) fs.FileMode {
	if perm != 0 {
		return perm
	}
	switch kind {
	case EntryDir:
		return 0o755
	case EntrySymlink:
		return 0o777
	default:
		return 0o644
	}
}
