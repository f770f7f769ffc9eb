// Copyright 2026 The Arcfs Authors
// SPDX-License-Identifier: Apache-2.0

package vfs

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/arcfs-project/arcfs/lib/archive"
)

// windowKey addresses one aligned decode window of one entry.
type windowKey struct {
	inode uint64
	index int64
}

// decodeWindow is a handle's buffered copy of its most recent window.
type decodeWindow struct {
	index int64
	data  []byte
}

// sequentialStream is the single shared decode cursor of a
// whole-container compressed archive. All reads for the whole mount
// funnel through it; mu serializes both the cursor and the window
// cache. This is an intentional throughput ceiling imposed by the
// container format's one decode stream.
type sequentialStream struct {
	format     archive.Format
	source     io.ReaderAt
	sourceSize int64
	windowSize int
	logger     *slog.Logger

	mu       sync.Mutex
	decoder  io.ReadCloser
	position int64
	restarts int64
	cache    *lru.Cache[windowKey, []byte]
}

func newSequentialStream(format archive.Format, source io.ReaderAt, sourceSize int64, options Options) (*sequentialStream, error) {
	entries := int(options.CacheBytes / int64(options.WindowSize))
	if entries < 1 {
		entries = 1
	}
	cache, err := lru.New[windowKey, []byte](entries)
	if err != nil {
		return nil, fmt.Errorf("window cache: %w", err)
	}
	return &sequentialStream{
		format:     format,
		source:     source,
		sourceSize: sourceSize,
		windowSize: options.WindowSize,
		logger:     options.Logger,
		cache:      cache,
	}, nil
}

// read serves a byte range of a sequential entry window by window.
// dest is pre-clamped to the entry size by the caller.
func (s *sequentialStream) read(h *handle, node *Inode, storage archive.SequentialAccess, offset int64, dest []byte) (int, error) {
	filled := 0
	for filled < len(dest) {
		position := offset + int64(filled)
		windowIndex := position / int64(s.windowSize)

		data, err := s.window(h, node, storage, windowIndex)
		if err != nil {
			return 0, err
		}

		start := int(position - windowIndex*int64(s.windowSize))
		if start >= len(data) {
			return 0, fmt.Errorf("inode %d: decode window %d shorter than expected: %w",
				node.ID, windowIndex, ErrIO)
		}
		filled += copy(dest[filled:], data[start:])
	}
	return filled, nil
}

// window produces one aligned decode window, consulting the handle's
// buffered window, then the shared cache, and only then the decoder.
// Cache hits return without touching the stream.
func (s *sequentialStream) window(h *handle, node *Inode, storage archive.SequentialAccess, windowIndex int64) ([]byte, error) {
	if h != nil {
		h.mu.Lock()
		if h.window != nil && h.window.index == windowIndex {
			data := h.window.data
			h.mu.Unlock()
			return data, nil
		}
		h.mu.Unlock()
	}

	key := windowKey{inode: node.ID, index: windowIndex}

	s.mu.Lock()
	data, ok := s.cache.Get(key)
	if !ok {
		var err error
		data, err = s.decodeWindow(node, storage, windowIndex)
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
		s.cache.Add(key, data)
	}
	s.mu.Unlock()

	if h != nil {
		h.mu.Lock()
		h.window = &decodeWindow{index: windowIndex, data: data}
		h.mu.Unlock()
	}
	return data, nil
}

// decodeWindow steps the shared stream to the window's absolute
// position and decodes it. Called with s.mu held.
//
// The cursor only moves forward. When it already sits past the
// target, the whole container is decoded again from the beginning and
// fast-forwarded — cost proportional to the bytes decoded so far,
// which is what makes sequential access materially more expensive
// than direct access.
func (s *sequentialStream) decodeWindow(node *Inode, storage archive.SequentialAccess, windowIndex int64) ([]byte, error) {
	windowStart := windowIndex * int64(s.windowSize)
	length := node.Size - windowStart
	if length <= 0 {
		return nil, fmt.Errorf("inode %d: window %d beyond entry end: %w", node.ID, windowIndex, ErrIO)
	}
	if length > int64(s.windowSize) {
		length = int64(s.windowSize)
	}
	target := storage.StreamPosition + windowStart

	if s.decoder == nil || s.position > target {
		if err := s.restart(); err != nil {
			return nil, err
		}
	}
	if discard := target - s.position; discard > 0 {
		if _, err := io.CopyN(io.Discard, s.decoder, discard); err != nil {
			return nil, s.fail(fmt.Errorf("fast-forward to position %d: %w: %v", target, ErrIO, err))
		}
		s.position = target
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(s.decoder, data); err != nil {
		return nil, s.fail(fmt.Errorf("inode %d: decoding window %d: %w: %v", node.ID, windowIndex, ErrIO, err))
	}
	s.position += length
	return data, nil
}

// restart reopens the container decode stream from the beginning.
func (s *sequentialStream) restart() error {
	if s.decoder != nil {
		_ = s.decoder.Close()
		s.decoder = nil
	}
	decoder, err := archive.NewContainerDecoder(s.format, io.NewSectionReader(s.source, 0, s.sourceSize))
	if err != nil {
		// The container indexed cleanly at mount time, so a failure
		// here means the byte source itself went bad.
		return fmt.Errorf("restarting container decode: %w: %v", ErrIO, err)
	}
	s.decoder = decoder
	s.position = 0
	s.restarts++
	s.logger.Debug("container decode restarted", "restarts", s.restarts)
	return nil
}

// fail poisons the current decoder so the next read restarts cleanly.
func (s *sequentialStream) fail(err error) error {
	if s.decoder != nil {
		_ = s.decoder.Close()
		s.decoder = nil
	}
	return err
}

// close releases the decoder and drops every cached window.
func (s *sequentialStream) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.decoder != nil {
		_ = s.decoder.Close()
		s.decoder = nil
	}
	s.cache.Purge()
}
