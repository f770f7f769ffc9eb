// Copyright 2026 The Arcfs Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
)

// countingReader tracks the absolute byte position within the stream
// handed to tar.Reader. After Next() returns, the position is exactly
// the start of the entry's payload — tar.Reader consumes header
// blocks precisely and skips payloads only when asked.
type countingReader struct {
	reader io.Reader
	offset int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.reader.Read(p)
	c.offset += int64(n)
	return n, err
}

// countingSeekReader adds Seek pass-through so that tar.Reader can
// skip plain-tar payloads without reading them. Only used when the
// container itself is seekable.
type countingSeekReader struct {
	countingReader
	seeker io.Seeker
}

func (c *countingSeekReader) Seek(offset int64, whence int) (int64, error) {
	n, err := c.seeker.Seek(offset, whence)
	if err == nil {
		c.offset = n
	}
	return n, err
}

// indexPlainTar walks the fixed-size header blocks of an uncompressed
// tar. Payloads are skipped by seeking, never read; each entry gets a
// DirectAccess descriptor pointing at its byte extent.
func indexPlainTar(source io.ReaderAt, size int64) (*Index, error) {
	section := io.NewSectionReader(source, 0, size)
	counter := &countingSeekReader{
		countingReader: countingReader{reader: section},
		seeker:         section,
	}

	entries, err := scanTar(&counter.countingReader, counter, func(offset, size int64) Storage {
		return DirectAccess{Offset: offset, CompressedLength: size, Codec: CodecNone}
	})
	if err != nil {
		return nil, err
	}
	return &Index{Format: FormatTar, Entries: entries}, nil
}

// indexCompressedTar decodes the whole outer compression layer once,
// parsing embedded tar headers as they emerge. Each entry gets a
// SequentialAccess descriptor recording its payload position within
// the decoded stream. This pass is the only full decode of the outer
// layer; payload bytes are decoded lazily at read time.
func indexCompressedTar(format Format, source io.ReaderAt, size int64) (*Index, error) {
	decoder, err := NewContainerDecoder(format, io.NewSectionReader(source, 0, size))
	if err != nil {
		return nil, err
	}
	defer decoder.Close()

	counter := &countingReader{reader: decoder}
	entries, err := scanTar(counter, counter, func(offset, size int64) Storage {
		return SequentialAccess{StreamPosition: offset}
	})
	if err != nil {
		return nil, err
	}
	return &Index{Format: format, Entries: entries, DecodedSize: counter.offset}, nil
}

// scanTar reads tar headers from input and converts them into
// entries. The position callback is read right after each Next(), when
// the stream sits at the entry's payload start.
//
// Hardlink members borrow the storage descriptor and size of their
// link target; a hardlink whose target is not yet indexed is dropped,
// consistent with the first-wins handling of malformed archives.
func scanTar(position *countingReader, input io.Reader, makeStorage func(offset, size int64) Storage) ([]Entry, error) {
	tarReader := tar.NewReader(input)
	var entries []Entry
	byPath := make(map[string]int)

	for {
		header, err := tarReader.Next()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: tar header: %v", ErrInvalidArchive, err)
		}

		entryPath, ok := normalizeEntryPath(header.Name)
		if !ok {
			continue
		}
		payloadOffset := position.offset

		entry := Entry{
			Path:    entryPath,
			ModTime: header.ModTime,
		}

		switch header.Typeflag {
		case tar.TypeReg:
			entry.Kind = EntryFile
			entry.Size = header.Size
			entry.Storage = makeStorage(payloadOffset, header.Size)

		case tar.TypeDir:
			entry.Kind = EntryDir

		case tar.TypeSymlink:
			entry.Kind = EntrySymlink
			entry.LinkTarget = header.Linkname
			entry.Size = int64(len(header.Linkname))

		case tar.TypeLink:
			targetPath, ok := normalizeEntryPath(header.Linkname)
			if !ok {
				continue
			}
			targetIndex, found := byPath[targetPath]
			if !found || entries[targetIndex].Kind != EntryFile {
				continue
			}
			target := entries[targetIndex]
			entry.Kind = EntryFile
			entry.Size = target.Size
			entry.Storage = target.Storage

		default:
			// Device nodes, FIFOs and sparse members have no place
			// in a read-only view; skip them.
			continue
		}

		entry.Mode = defaultedMode(fs.FileMode(header.Mode).Perm(), entry.Kind)

		if _, seen := byPath[entryPath]; !seen {
			byPath[entryPath] = len(entries)
		}
		entries = append(entries, entry)
	}
}
