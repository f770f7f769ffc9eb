// Copyright 2026 The Arcfs Authors
// SPDX-License-Identifier: Apache-2.0

package vfs

import (
	"fmt"
	"io"

	"github.com/arcfs-project/arcfs/lib/archive"
)

// Read serves a byte-range read against an open handle. The range is
// clamped to the open-time size snapshot: reads at or past
// end-of-file return zero bytes, reads crossing it return fewer bytes
// than requested. Unknown handles fail with ErrHandleNotFound.
func (m *Mount) Read(handleID uint64, offset int64, length int) ([]byte, error) {
	h, err := m.handle(handleID)
	if err != nil {
		return nil, err
	}
	if offset < 0 {
		return nil, fmt.Errorf("read handle %d: negative offset: %w", handleID, ErrInvalidArgument)
	}
	if offset >= h.size || length <= 0 {
		return nil, nil
	}
	if remaining := h.size - offset; int64(length) > remaining {
		length = int(remaining)
	}

	dest := make([]byte, length)
	n, err := m.readRange(h, h.inode, offset, dest)
	if err != nil {
		return nil, err
	}
	return dest[:n], nil
}

// readRange dispatches on the entry's storage descriptor. The handle
// is optional; Readlink passes nil.
func (m *Mount) readRange(h *handle, node *Inode, offset int64, dest []byte) (int, error) {
	switch storage := node.Entry.Storage.(type) {
	case archive.DirectAccess:
		return m.readDirect(node, storage, offset, dest)
	case archive.SequentialAccess:
		return m.seq.read(h, node, storage, offset, dest)
	default:
		return 0, fmt.Errorf("inode %d has no storage descriptor: %w", node.ID, ErrIO)
	}
}

// readDirect serves a range from an independently decodable extent.
// Each call opens its own decoder; nothing is retained and reads for
// distinct entries or handles never contend.
func (m *Mount) readDirect(node *Inode, storage archive.DirectAccess, offset int64, dest []byte) (int, error) {
	// Stored extents are served straight from the container with one
	// positioned read.
	if storage.Codec == archive.CodecNone {
		n, err := m.source.ReadAt(dest, storage.Offset+offset)
		if n < len(dest) {
			return n, fmt.Errorf("inode %d: short read at offset %d: %w: %v",
				node.ID, offset, ErrIO, err)
		}
		return n, nil
	}

	// Compressed extents decode from the entry start, discarding the
	// prefix. Cost is proportional to offset+length, not to the
	// whole file.
	decoder, err := storage.Open(m.source)
	if err != nil {
		return 0, fmt.Errorf("inode %d: %w: %v", node.ID, ErrIO, err)
	}
	defer decoder.Close()

	if offset > 0 {
		if _, err := io.CopyN(io.Discard, decoder, offset); err != nil {
			return 0, fmt.Errorf("inode %d: skipping to offset %d: %w: %v",
				node.ID, offset, ErrIO, err)
		}
	}
	n, err := io.ReadFull(decoder, dest)
	if err != nil {
		return n, fmt.Errorf("inode %d: decoding %d bytes at offset %d: %w: %v",
			node.ID, len(dest), offset, ErrIO, err)
	}
	return n, nil
}
