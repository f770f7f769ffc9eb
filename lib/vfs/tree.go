// Copyright 2026 The Arcfs Authors
// SPDX-License-Identifier: Apache-2.0

package vfs

import (
	"io/fs"
	"strings"
	"time"

	"github.com/tidwall/btree"

	"github.com/arcfs-project/arcfs/lib/archive"
)

// RootID is the inode id of the mount root, fixed by FUSE convention.
const RootID uint64 = 1

// synthesizedDirMode is the permission set for directories implied by
// path prefixes but never explicitly listed in the archive.
const synthesizedDirMode fs.FileMode = 0o755

// Inode is one addressable node of the virtual tree. Inodes are
// immutable after BuildTree returns; ids are unique and stable for
// the mount's lifetime.
type Inode struct {
	// ID is the inode number exposed to the kernel bridge.
	ID uint64

	// Kind mirrors the entry kind; synthesized directories are
	// EntryDir.
	Kind archive.EntryKind

	// Size, Mode and ModTime are the cached attributes served by
	// Attributes without touching the archive.
	Size    int64
	Mode    fs.FileMode
	ModTime time.Time

	// Parent is the id of the unique parent inode. The root is its
	// own parent.
	Parent uint64

	// Entry is the backing archive entry, nil for synthesized
	// directories.
	Entry *archive.Entry

	// children maps child name to inode id, directories only. The
	// btree keeps listings in name order.
	children *btree.Map[string, uint64]
}

// Synthesized reports whether the inode was implied by a path prefix
// rather than listed in the archive.
func (n *Inode) Synthesized() bool {
	return n.Kind == archive.EntryDir && n.Entry == nil
}

// Child returns the inode id of an immediate child by name.
func (n *Inode) Child(name string) (uint64, bool) {
	if n.children == nil {
		return 0, false
	}
	return n.children.Get(name)
}

// Tree is the full inode table of one mount, rooted at RootID.
// Immutable after BuildTree; reads need no locking.
type Tree struct {
	inodes            map[uint64]*Inode
	skippedDuplicates int
}

// Inode returns the node with the given id.
func (t *Tree) Inode(id uint64) (*Inode, bool) {
	node, ok := t.inodes[id]
	return node, ok
}

// Root returns the root inode.
func (t *Tree) Root() *Inode {
	return t.inodes[RootID]
}

// Len returns the number of inodes, root included.
func (t *Tree) Len() int {
	return len(t.inodes)
}

// SkippedDuplicates reports how many archive entries were dropped
// because an earlier entry already claimed their path. Duplicate
// paths in malformed archives resolve first-wins; this is a policy,
// not an error.
func (t *Tree) SkippedDuplicates() int {
	return t.skippedDuplicates
}

// BuildTree folds the flat entry list into a hierarchical namespace.
// Intermediate directories missing from the archive are synthesized
// with default attributes stamped at mount time. Inode ids are
// assigned by a counter above RootID in first-seen order.
func BuildTree(index *archive.Index, mountTime time.Time) *Tree {
	tree := &Tree{inodes: make(map[uint64]*Inode)}
	tree.inodes[RootID] = &Inode{
		ID:       RootID,
		Kind:     archive.EntryDir,
		Mode:     synthesizedDirMode,
		ModTime:  mountTime,
		Parent:   RootID,
		children: btree.NewMap[string, uint64](0),
	}
	nextID := RootID + 1

	newInode := func(parent *Inode, name string) *Inode {
		node := &Inode{ID: nextID, Parent: parent.ID}
		nextID++
		parent.children.Set(name, node.ID)
		tree.inodes[node.ID] = node
		return node
	}

	for i := range index.Entries {
		entry := &index.Entries[i]
		segments := strings.Split(entry.Path, "/")
		parent := tree.inodes[RootID]

		// Walk or synthesize every proper prefix directory.
		malformed := false
		for _, segment := range segments[:len(segments)-1] {
			if childID, ok := parent.Child(segment); ok {
				child := tree.inodes[childID]
				if child.Kind != archive.EntryDir {
					// A file already claims this prefix; the entry
					// cannot be placed. First-wins applies.
					malformed = true
					break
				}
				parent = child
				continue
			}
			child := newInode(parent, segment)
			child.Kind = archive.EntryDir
			child.Mode = synthesizedDirMode
			child.ModTime = mountTime
			child.children = btree.NewMap[string, uint64](0)
			parent = child
		}
		if malformed {
			tree.skippedDuplicates++
			continue
		}

		name := segments[len(segments)-1]
		if existingID, ok := parent.Child(name); ok {
			existing := tree.inodes[existingID]
			if existing.Synthesized() && entry.Kind == archive.EntryDir {
				// An explicit directory entry arriving after its
				// children: adopt its attributes, keep the node.
				existing.Mode = entry.Mode
				existing.ModTime = entry.ModTime
				existing.Entry = entry
				continue
			}
			tree.skippedDuplicates++
			continue
		}

		node := newInode(parent, name)
		node.Kind = entry.Kind
		node.Size = entry.Size
		node.Mode = entry.Mode
		node.ModTime = entry.ModTime
		node.Entry = entry
		if entry.Kind == archive.EntryDir {
			node.children = btree.NewMap[string, uint64](0)
		}
	}

	return tree
}
