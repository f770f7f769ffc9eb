// Copyright 2026 The Arcfs Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"compress/bzip2"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// NewContainerDecoder opens a decoder over the whole-container
// compression layer of a sequential format. The returned reader
// yields the decoded stream (the embedded tar) from its beginning.
func NewContainerDecoder(format Format, source io.Reader) (io.ReadCloser, error) {
	switch format {
	case FormatTarGzip:
		reader, err := gzip.NewReader(source)
		if err != nil {
			return nil, fmt.Errorf("%w: gzip: %v", ErrInvalidArchive, err)
		}
		return reader, nil

	case FormatTarBzip2:
		// The standard library decoder validates the stream header
		// lazily, on first read.
		return io.NopCloser(bzip2.NewReader(source)), nil

	case FormatTarZstd:
		decoder, err := zstd.NewReader(source)
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %v", ErrInvalidArchive, err)
		}
		return decoder.IOReadCloser(), nil

	case FormatTarLZ4:
		return io.NopCloser(lz4.NewReader(source)), nil

	default:
		return nil, fmt.Errorf("%w: format %s has no container compression", ErrUnsupported, format)
	}
}

// Open returns a reader over the uncompressed bytes of a direct
// extent, decoding from the extent's start. The caller discards any
// unwanted prefix; cost is proportional to how far into the entry it
// reads, never to other entries.
func (d DirectAccess) Open(source io.ReaderAt) (io.ReadCloser, error) {
	section := io.NewSectionReader(source, d.Offset, d.CompressedLength)
	switch d.Codec {
	case CodecNone:
		return io.NopCloser(section), nil
	case CodecDeflate:
		return flate.NewReader(section), nil
	default:
		return nil, fmt.Errorf("%w: codec %s", ErrUnsupported, d.Codec)
	}
}
