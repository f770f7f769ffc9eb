// Copyright 2026 The Arcfs Authors
// SPDX-License-Identifier: Apache-2.0

package vfs

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/arcfs-project/arcfs/lib/archive"
)

const (
	// DefaultWindowSize is the sequential decode window. Windows are
	// aligned to this size so repeated reads hit identical cache keys.
	DefaultWindowSize = 128 * 1024

	// DefaultCacheBytes is the decode-window cache budget per mount.
	DefaultCacheBytes int64 = 32 * 1024 * 1024
)

// Options tunes a Mount. The zero value selects the defaults.
type Options struct {
	// WindowSize is the sequential decode window in bytes.
	WindowSize int

	// CacheBytes bounds the decode-window cache. The cache is an
	// optimization only; a tiny budget just makes backward seeks
	// slower.
	CacheBytes int64

	// Logger receives diagnostic messages. If nil, logging is off.
	Logger *slog.Logger
}

// Mount is the process-wide state of one mounted archive: the
// immutable index and tree, the concurrent handle table, and — for
// sequential formats — the shared container decode stream.
type Mount struct {
	index  *archive.Index
	tree   *Tree
	source io.ReaderAt
	logger *slog.Logger

	mu         sync.Mutex
	handles    map[uint64]*handle
	nextHandle uint64

	// seq is non-nil only for whole-container compressed archives.
	seq *sequentialStream
}

// handle is per-open() session state. The size snapshot is taken at
// open time; the window buffer holds the most recent sequential
// decode window so small forward reads skip the shared cache.
type handle struct {
	id    uint64
	inode *Inode
	size  int64

	mu     sync.Mutex
	window *decodeWindow
}

// NewMount runs the one-time mount pipeline — detect, index, build
// tree — over an archive byte source and returns a Mount ready to
// serve requests. Mount-time failures (archive.ErrInvalidArchive,
// archive.ErrUnsupported) are fatal: no filesystem is exposed.
func NewMount(source io.ReaderAt, size int64, options Options) (*Mount, error) {
	if options.WindowSize <= 0 {
		options.WindowSize = DefaultWindowSize
	}
	if options.CacheBytes <= 0 {
		options.CacheBytes = DefaultCacheBytes
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	index, err := archive.ReadIndex(source, size)
	if err != nil {
		return nil, err
	}

	tree := BuildTree(index, time.Now())
	if skipped := tree.SkippedDuplicates(); skipped > 0 {
		options.Logger.Debug("dropped duplicate archive paths (first entry wins)",
			"format", index.Format.String(),
			"skipped", skipped,
		)
	}

	mount := &Mount{
		index:   index,
		tree:    tree,
		source:  source,
		logger:  options.Logger,
		handles: make(map[uint64]*handle),
	}
	if index.Format.Sequential() {
		mount.seq, err = newSequentialStream(index.Format, source, size, options)
		if err != nil {
			return nil, err
		}
	}

	options.Logger.Info("archive indexed",
		"format", index.Format.String(),
		"entries", len(index.Entries),
		"inodes", tree.Len(),
	)
	return mount, nil
}

// Format returns the detected container format.
func (m *Mount) Format() archive.Format {
	return m.index.Format
}

// Tree returns the immutable inode table.
func (m *Mount) Tree() *Tree {
	return m.tree
}

// Open allocates a read handle for a file or symlink inode. Any
// write intent fails with ErrPermissionDenied; directories fail with
// ErrIsADirectory.
func (m *Mount) Open(inodeID uint64, writeAccess bool) (uint64, error) {
	node, ok := m.tree.Inode(inodeID)
	if !ok {
		return 0, fmt.Errorf("open inode %d: %w", inodeID, ErrNotFound)
	}
	if writeAccess {
		return 0, fmt.Errorf("open %d for writing: %w", inodeID, ErrPermissionDenied)
	}
	if node.Kind == archive.EntryDir {
		return 0, fmt.Errorf("open inode %d: %w", inodeID, ErrIsADirectory)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextHandle++
	h := &handle{id: m.nextHandle, inode: node, size: node.Size}
	m.handles[h.id] = h
	return h.id, nil
}

// Release removes a handle and discards its buffered window. A second
// release of the same id fails with ErrHandleNotFound.
func (m *Mount) Release(handleID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.handles[handleID]; !ok {
		return fmt.Errorf("release handle %d: %w", handleID, ErrHandleNotFound)
	}
	delete(m.handles, handleID)
	return nil
}

// OpenHandles returns the number of currently open handles.
func (m *Mount) OpenHandles() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handles)
}

// Close tears the mount down: all handles are released and cached
// decode state is discarded. No resource outlives the mount.
func (m *Mount) Close() error {
	m.mu.Lock()
	abandoned := len(m.handles)
	m.handles = make(map[uint64]*handle)
	m.mu.Unlock()

	if abandoned > 0 {
		m.logger.Debug("unmount released abandoned handles", "count", abandoned)
	}
	if m.seq != nil {
		m.seq.close()
	}
	return nil
}

func (m *Mount) handle(handleID uint64) (*handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.handles[handleID]
	if !ok {
		return nil, fmt.Errorf("handle %d: %w", handleID, ErrHandleNotFound)
	}
	return h, nil
}
