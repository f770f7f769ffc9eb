// Copyright 2026 The Arcfs Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"io/fs"
	"time"
)

// EntryKind classifies an archive entry.
type EntryKind uint8

const (
	EntryFile EntryKind = iota
	EntryDir
	EntrySymlink
)

// String returns the human-readable name of an entry kind.
func (k EntryKind) String() string {
	switch k {
	case EntryFile:
		return "file"
	case EntryDir:
		return "dir"
	case EntrySymlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// Codec identifies the per-entry compression of a DirectAccess
// extent.
type Codec uint8

const (
	// CodecNone means the extent holds the entry's bytes verbatim.
	CodecNone Codec = iota

	// CodecDeflate means the extent holds a raw DEFLATE stream
	// (zip method 8).
	CodecDeflate
)

// String returns the human-readable name of a codec.
func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecDeflate:
		return "deflate"
	default:
		return "unknown"
	}
}

// Storage describes how an entry's bytes are reached. It is a closed
// set: DirectAccess or SequentialAccess. The read engine dispatches
// on the concrete type.
type Storage interface {
	storage()
}

// DirectAccess describes an entry with its own independently
// decodable byte extent in the container. Reads for distinct direct
// entries never contend.
type DirectAccess struct {
	// Offset is the container byte offset where the extent starts.
	Offset int64

	// CompressedLength is the extent length in container bytes.
	CompressedLength int64

	// Codec is the per-entry compression of the extent.
	Codec Codec
}

func (DirectAccess) storage() {}

// SequentialAccess describes an entry inside a whole-container
// compressed stream. The entry is reachable only by decoding that
// stream forward from an earlier point.
type SequentialAccess struct {
	// StreamPosition is the entry payload's byte position within the
	// decoded container stream.
	StreamPosition int64
}

func (SequentialAccess) storage() {}

// Entry is one logical record inside an archive. Entries are
// immutable after indexing.
type Entry struct {
	// Path is the slash-separated, archive-relative path with no
	// leading "./" or trailing "/".
	Path string

	// Kind classifies the entry.
	Kind EntryKind

	// Size is the uncompressed payload size in bytes.
	Size int64

	// Mode holds the permission bits.
	Mode fs.FileMode

	// ModTime is the recorded modification time.
	ModTime time.Time

	// LinkTarget is the symlink target when the format records it in
	// the entry header (tar). Zip stores the target as the entry
	// body instead, read lazily through the read engine.
	LinkTarget string

	// Storage tells the read engine how to reach the payload.
	Storage Storage
}

// Index is the ordered entry list of one archive plus its detected
// container format. Built once at mount time, never mutated.
type Index struct {
	// Format is the detected container format.
	Format Format

	// Entries lists the archive's records in container order.
	Entries []Entry

	// DecodedSize is the total decoded container stream length for
	// sequential formats, zero otherwise.
	DecodedSize int64
}
