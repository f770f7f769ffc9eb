// Copyright 2026 The Arcfs Authors
// SPDX-License-Identifier: Apache-2.0

package vfs

import (
	"fmt"
	"io/fs"
	"time"

	"github.com/arcfs-project/arcfs/lib/archive"
)

// Attr is the attribute set served for an inode.
type Attr struct {
	Kind    archive.EntryKind
	Size    int64
	Mode    fs.FileMode
	ModTime time.Time
}

// DirEntry is one row of a directory listing.
type DirEntry struct {
	Name    string
	InodeID uint64
	Kind    archive.EntryKind
}

// Lookup resolves one name under a parent directory.
func (m *Mount) Lookup(parentID uint64, name string) (*Inode, error) {
	parent, ok := m.tree.Inode(parentID)
	if !ok {
		return nil, fmt.Errorf("lookup in inode %d: %w", parentID, ErrNotFound)
	}
	if parent.Kind != archive.EntryDir {
		return nil, fmt.Errorf("lookup in inode %d: %w", parentID, ErrNotADirectory)
	}

	switch name {
	case ".":
		return parent, nil
	case "..":
		node, _ := m.tree.Inode(parent.Parent)
		return node, nil
	}

	childID, ok := parent.Child(name)
	if !ok {
		return nil, fmt.Errorf("lookup %q in inode %d: %w", name, parentID, ErrNotFound)
	}
	node, _ := m.tree.Inode(childID)
	return node, nil
}

// Attributes returns the cached attributes of an inode. It never
// touches the archive.
func (m *Mount) Attributes(inodeID uint64) (Attr, error) {
	node, ok := m.tree.Inode(inodeID)
	if !ok {
		return Attr{}, fmt.Errorf("attributes of inode %d: %w", inodeID, ErrNotFound)
	}
	return Attr{Kind: node.Kind, Size: node.Size, Mode: node.Mode, ModTime: node.ModTime}, nil
}

// List returns a directory's entries in name order, preceded by the
// synthetic "." and ".." rows. The root's ".." maps to the root
// itself.
func (m *Mount) List(dirID uint64) ([]DirEntry, error) {
	node, ok := m.tree.Inode(dirID)
	if !ok {
		return nil, fmt.Errorf("list inode %d: %w", dirID, ErrNotFound)
	}
	if node.Kind != archive.EntryDir {
		return nil, fmt.Errorf("list inode %d: %w", dirID, ErrNotADirectory)
	}

	entries := make([]DirEntry, 0, node.children.Len()+2)
	entries = append(entries,
		DirEntry{Name: ".", InodeID: node.ID, Kind: archive.EntryDir},
		DirEntry{Name: "..", InodeID: node.Parent, Kind: archive.EntryDir},
	)
	node.children.Scan(func(name string, childID uint64) bool {
		child, _ := m.tree.Inode(childID)
		entries = append(entries, DirEntry{Name: name, InodeID: childID, Kind: child.Kind})
		return true
	})
	return entries, nil
}

// Readlink returns a symlink's target. Tar records the target in the
// entry header; zip stores it as the entry body, so it is read
// through the read engine on demand.
func (m *Mount) Readlink(inodeID uint64) (string, error) {
	node, ok := m.tree.Inode(inodeID)
	if !ok {
		return "", fmt.Errorf("readlink inode %d: %w", inodeID, ErrNotFound)
	}
	if node.Kind != archive.EntrySymlink {
		return "", fmt.Errorf("readlink inode %d: %w", inodeID, ErrInvalidArgument)
	}
	if node.Entry.LinkTarget != "" {
		return node.Entry.LinkTarget, nil
	}

	target := make([]byte, node.Size)
	n, err := m.readRange(nil, node, 0, target)
	if err != nil {
		return "", err
	}
	return string(target[:n]), nil
}
