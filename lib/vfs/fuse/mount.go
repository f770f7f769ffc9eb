// Copyright 2026 The Arcfs Authors
// SPDX-License-Identifier: Apache-2.0

package fuse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"syscall"
	"time"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/arcfs-project/arcfs/lib/archive"
	"github.com/arcfs-project/arcfs/lib/vfs"
)

// Options configures the FUSE mount.
type Options struct {
	// Mountpoint is the directory where the filesystem is mounted.
	Mountpoint string

	// Mount is the archive mount to expose.
	Mount *vfs.Mount

	// AllowOther permits other users to access the mount. Requires
	// user_allow_other in /etc/fuse.conf.
	AllowOther bool

	// DebugFUSE enables go-fuse protocol tracing.
	DebugFUSE bool

	// Logger receives diagnostic messages. If nil, a no-op logger is
	// used.
	Logger *slog.Logger
}

// Mount exposes the archive at the configured mountpoint. The caller
// must call Unmount on the returned server when done; the mountpoint
// directory is created if it does not exist.
func Mount(options Options) (*fuse.Server, error) {
	if options.Mountpoint == "" {
		return nil, fmt.Errorf("mountpoint is required")
	}
	if options.Mount == nil {
		return nil, fmt.Errorf("mount is required")
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if err := os.MkdirAll(options.Mountpoint, 0o755); err != nil {
		return nil, fmt.Errorf("creating mountpoint %s: %w", options.Mountpoint, err)
	}

	root := &node{mount: options.Mount, id: vfs.RootID, logger: options.Logger}

	// The tree is immutable for the mount's lifetime, so generous
	// kernel cache timeouts are always valid.
	entryTimeout := time.Minute
	attrTimeout := time.Minute

	server, err := gofuse.Mount(options.Mountpoint, root, &gofuse.Options{
		EntryTimeout: &entryTimeout,
		AttrTimeout:  &attrTimeout,
		MountOptions: fuse.MountOptions{
			FsName:     "arcfs",
			Name:       "arcfs",
			AllowOther: options.AllowOther,
			Debug:      options.DebugFUSE,
			Options:    []string{"ro"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("mounting FUSE filesystem at %s: %w", options.Mountpoint, err)
	}

	options.Logger.Info("archive filesystem mounted",
		"mountpoint", options.Mountpoint,
		"format", options.Mount.Format().String(),
	)
	return server, nil
}

// node bridges one core inode to the kernel. All state lives in the
// core mount; the node carries only the inode id.
type node struct {
	gofuse.Inode
	mount  *vfs.Mount
	id     uint64
	logger *slog.Logger
}

var _ gofuse.InodeEmbedder = (*node)(nil)
var _ gofuse.NodeLookuper = (*node)(nil)
var _ gofuse.NodeGetattrer = (*node)(nil)
var _ gofuse.NodeReaddirer = (*node)(nil)
var _ gofuse.NodeOpener = (*node)(nil)
var _ gofuse.NodeReadlinker = (*node)(nil)

func (n *node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	child, err := n.mount.Lookup(n.id, name)
	if err != nil {
		return nil, errnoFromError(err)
	}

	childNode := &node{mount: n.mount, id: child.ID, logger: n.logger}
	inode := n.NewInode(ctx, childNode, gofuse.StableAttr{
		Mode: typeBits(child.Kind),
		Ino:  child.ID,
	})
	fillAttr(&out.Attr, child)
	return inode, 0
}

func (n *node) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	inode, ok := n.mount.Tree().Inode(n.id)
	if !ok {
		return syscall.ENOENT
	}
	fillAttr(&out.Attr, inode)
	return 0
}

func (n *node) Readdir(ctx context.Context) (gofuse.DirStream, syscall.Errno) {
	listing, err := n.mount.List(n.id)
	if err != nil {
		return nil, errnoFromError(err)
	}

	entries := make([]fuse.DirEntry, 0, len(listing))
	for _, entry := range listing {
		// The kernel synthesizes "." and ".." itself.
		if entry.Name == "." || entry.Name == ".." {
			continue
		}
		entries = append(entries, fuse.DirEntry{
			Name: entry.Name,
			Mode: typeBits(entry.Kind),
			Ino:  entry.InodeID,
		})
	}
	return &sliceDirStream{entries: entries}, 0
}

func (n *node) Open(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	writeIntent := flags&(syscall.O_WRONLY|syscall.O_RDWR|syscall.O_TRUNC|syscall.O_APPEND) != 0

	handleID, err := n.mount.Open(n.id, writeIntent)
	if err != nil {
		return nil, 0, errnoFromError(err)
	}

	// Archive content is immutable, so the kernel page cache is
	// always valid.
	return &fileHandle{mount: n.mount, id: handleID, logger: n.logger}, fuse.FOPEN_KEEP_CACHE, 0
}

func (n *node) Readlink(ctx context.Context) ([]byte, syscall.Errno) {
	target, err := n.mount.Readlink(n.id)
	if err != nil {
		return nil, errnoFromError(err)
	}
	return []byte(target), 0
}

// fileHandle carries one core read handle across kernel requests.
type fileHandle struct {
	mount  *vfs.Mount
	id     uint64
	logger *slog.Logger
}

var _ gofuse.FileReader = (*fileHandle)(nil)
var _ gofuse.FileReleaser = (*fileHandle)(nil)

func (f *fileHandle) Read(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	data, err := f.mount.Read(f.id, off, len(dest))
	if err != nil {
		f.logger.Error("read failed",
			"handle", f.id,
			"offset", off,
			"error", err,
		)
		return nil, errnoFromError(err)
	}
	return fuse.ReadResultData(data), 0
}

func (f *fileHandle) Release(ctx context.Context) syscall.Errno {
	if err := f.mount.Release(f.id); err != nil {
		return errnoFromError(err)
	}
	return 0
}

// fillAttr copies an inode's cached attributes into a kernel attr.
func fillAttr(out *fuse.Attr, inode *vfs.Inode) {
	out.Mode = typeBits(inode.Kind) | uint32(inode.Mode.Perm())
	out.Size = uint64(inode.Size)
	out.Blocks = (out.Size + 511) / 512
	mtime := inode.ModTime
	out.SetTimes(nil, &mtime, &mtime)
}

// typeBits maps an entry kind to its stat file-type bits.
func typeBits(kind archive.EntryKind) uint32 {
	switch kind {
	case archive.EntryDir:
		return syscall.S_IFDIR
	case archive.EntrySymlink:
		return syscall.S_IFLNK
	default:
		return syscall.S_IFREG
	}
}

// errnoFromError maps core errors to their native errno. Anything
// unrecognized — including request-scoped archive I/O failures — is
// EIO.
func errnoFromError(err error) syscall.Errno {
	switch {
	case errors.Is(err, vfs.ErrNotFound):
		return syscall.ENOENT
	case errors.Is(err, vfs.ErrNotADirectory):
		return syscall.ENOTDIR
	case errors.Is(err, vfs.ErrIsADirectory):
		return syscall.EISDIR
	case errors.Is(err, vfs.ErrPermissionDenied):
		return syscall.EROFS
	case errors.Is(err, vfs.ErrHandleNotFound):
		return syscall.EBADF
	case errors.Is(err, vfs.ErrInvalidArgument):
		return syscall.EINVAL
	default:
		return syscall.EIO
	}
}

// sliceDirStream implements fs.DirStream from a slice of entries.
type sliceDirStream struct {
	entries []fuse.DirEntry
	index   int
}

func (s *sliceDirStream) HasNext() bool {
	return s.index < len(s.entries)
}

func (s *sliceDirStream) Next() (fuse.DirEntry, syscall.Errno) {
	if s.index >= len(s.entries) {
		return fuse.DirEntry{}, syscall.EINVAL
	}
	entry := s.entries[s.index]
	s.index++
	return entry, 0
}

func (s *sliceDirStream) Close() {}
