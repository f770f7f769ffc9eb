// Copyright 2026 The Arcfs Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// Mount-time sentinel errors. Both are fatal: no filesystem is
// exposed when indexing fails.
var (
	// ErrInvalidArchive indicates a corrupt or unrecognized archive
	// structure: no known signature, a malformed header, a truncated
	// record, or a checksum mismatch.
	ErrInvalidArchive = errors.New("invalid archive")

	// ErrUnsupported indicates a recognized but unhandled codec, such
	// as a zip member compressed with a method other than store or
	// deflate.
	ErrUnsupported = errors.New("unsupported archive codec")
)

// Format identifies the container format of an archive.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatZip
	FormatTar
	FormatTarGzip
	FormatTarBzip2
	FormatTarZstd
	FormatTarLZ4
)

// String returns the human-readable name of a format.
func (f Format) String() string {
	switch f {
	case FormatZip:
		return "zip"
	case FormatTar:
		return "tar"
	case FormatTarGzip:
		return "tar.gz"
	case FormatTarBzip2:
		return "tar.bz2"
	case FormatTarZstd:
		return "tar.zst"
	case FormatTarLZ4:
		return "tar.lz4"
	default:
		return fmt.Sprintf("unknown(%d)", f)
	}
}

// Sequential reports whether the format wraps the whole container in
// a single compressed stream, forcing sequential access to entry
// payloads.
func (f Format) Sequential() bool {
	switch f {
	case FormatTarGzip, FormatTarBzip2, FormatTarZstd, FormatTarLZ4:
		return true
	}
	return false
}

// Container format signatures. Detection is purely magic-byte based;
// the archive may have been handed over with an arbitrary file name.
var (
	zipLocalMagic   = []byte{'P', 'K', 0x03, 0x04}
	zipEmptyMagic   = []byte{'P', 'K', 0x05, 0x06}
	zipSpannedMagic = []byte{'P', 'K', 0x07, 0x08}
	gzipMagic       = []byte{0x1f, 0x8b}
	bzip2Magic      = []byte{'B', 'Z', 'h'}
	zstdMagic       = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4FrameMagic   = []byte{0x04, 0x22, 0x4d, 0x18}
)

// ustarMagicOffset is where the POSIX "ustar" magic sits within the
// first tar header block.
const ustarMagicOffset = 257

// Detect classifies an archive byte source by its leading signature.
// It never looks at file names or extensions. Sources matching no
// known signature fail with ErrInvalidArchive.
func Detect(source io.ReaderAt, size int64) (Format, error) {
	header := make([]byte, 512)
	if size < int64(len(header)) {
		header = header[:size]
	}
	if _, err := source.ReadAt(header, 0); err != nil {
		return FormatUnknown, fmt.Errorf("%w: reading header: %v", ErrInvalidArchive, err)
	}

	switch {
	case bytes.HasPrefix(header, zipLocalMagic),
		bytes.HasPrefix(header, zipEmptyMagic),
		bytes.HasPrefix(header, zipSpannedMagic):
		return FormatZip, nil
	case bytes.HasPrefix(header, gzipMagic):
		return FormatTarGzip, nil
	case bytes.HasPrefix(header, bzip2Magic):
		return FormatTarBzip2, nil
	case bytes.HasPrefix(header, zstdMagic):
		return FormatTarZstd, nil
	case bytes.HasPrefix(header, lz4FrameMagic):
		return FormatTarLZ4, nil
	}

	// POSIX tar: "ustar\x00" (pax/ustar) or "ustar " (old GNU).
	if len(header) >= ustarMagicOffset+5 &&
		bytes.Equal(header[ustarMagicOffset:ustarMagicOffset+5], []byte("ustar")) {
		return FormatTar, nil
	}

	return FormatUnknown, fmt.Errorf("%w: no recognized signature", ErrInvalidArchive)
}
