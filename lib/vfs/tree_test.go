// Copyright 2026 The Arcfs Authors
// SPDX-License-Identifier: Apache-2.0

package vfs

import (
	"testing"
	"time"

	"github.com/arcfs-project/arcfs/lib/archive"
)

var treeTestTime = time.Unix(1735689600, 0) // 2025-01-01T00:00:00Z

func fileEntry(path, content string) archive.Entry {
	return archive.Entry{
		Path:    path,
		Kind:    archive.EntryFile,
		Size:    int64(len(content)),
		Mode:    0o644,
		ModTime: treeTestTime,
		Storage: archive.DirectAccess{Codec: archive.CodecNone},
	}
}

func TestBuildTreeSynthesizesDirectories(t *testing.T) {
	index := &archive.Index{Entries: []archive.Entry{
		fileEntry("a/b/c.txt", "data"),
	}}
	tree := BuildTree(index, treeTestTime)

	// root, a, b, c.txt
	if tree.Len() != 4 {
		t.Fatalf("tree has %d inodes, want 4", tree.Len())
	}

	root := tree.Root()
	aID, ok := root.Child("a")
	if !ok {
		t.Fatal("root has no child 'a'")
	}
	a, _ := tree.Inode(aID)
	if !a.Synthesized() {
		t.Error("'a' should be synthesized")
	}
	if a.Mode != synthesizedDirMode || a.Size != 0 {
		t.Errorf("'a' mode=%v size=%d, want default dir attributes", a.Mode, a.Size)
	}
	if a.ModTime != treeTestTime {
		t.Errorf("'a' mtime = %v, want mount time", a.ModTime)
	}

	bID, ok := a.Child("b")
	if !ok {
		t.Fatal("'a' has no child 'b'")
	}
	b, _ := tree.Inode(bID)
	leafID, ok := b.Child("c.txt")
	if !ok {
		t.Fatal("'b' has no child 'c.txt'")
	}
	leaf, _ := tree.Inode(leafID)
	if leaf.Kind != archive.EntryFile || leaf.Size != 4 {
		t.Errorf("leaf kind=%s size=%d, want file/4", leaf.Kind, leaf.Size)
	}
	if leaf.Parent != b.ID || b.Parent != a.ID || a.Parent != RootID {
		t.Error("parent chain broken")
	}
}

func TestBuildTreeDuplicateFirstWins(t *testing.T) {
	first := fileEntry("dup.txt", "first")
	second := fileEntry("dup.txt", "second!")
	index := &archive.Index{Entries: []archive.Entry{first, second}}
	tree := BuildTree(index, treeTestTime)

	if tree.SkippedDuplicates() != 1 {
		t.Fatalf("skipped = %d, want 1", tree.SkippedDuplicates())
	}
	id, ok := tree.Root().Child("dup.txt")
	if !ok {
		t.Fatal("dup.txt missing")
	}
	node, _ := tree.Inode(id)
	if node.Size != int64(len("first")) {
		t.Errorf("size = %d, want the first entry's %d", node.Size, len("first"))
	}
}

func TestBuildTreeExplicitDirAdoptsSynthesizedNode(t *testing.T) {
	index := &archive.Index{Entries: []archive.Entry{
		fileEntry("dir/file.txt", "x"),
		{Path: "dir", Kind: archive.EntryDir, Mode: 0o700, ModTime: treeTestTime.Add(time.Hour)},
	}}
	tree := BuildTree(index, treeTestTime)

	id, _ := tree.Root().Child("dir")
	node, _ := tree.Inode(id)
	if node.Synthesized() {
		t.Error("explicit directory entry should have replaced synthesized attributes")
	}
	if node.Mode != 0o700 {
		t.Errorf("mode = %v, want 0700", node.Mode)
	}
	// The child attached while the node was synthesized must survive.
	if _, ok := node.Child("file.txt"); !ok {
		t.Error("file.txt lost when directory attributes were adopted")
	}
	if tree.SkippedDuplicates() != 0 {
		t.Errorf("skipped = %d, want 0", tree.SkippedDuplicates())
	}
}

func TestBuildTreeFileBlockingPrefix(t *testing.T) {
	index := &archive.Index{Entries: []archive.Entry{
		fileEntry("x", "x is a file"),
		fileEntry("x/y.txt", "cannot be placed"),
	}}
	tree := BuildTree(index, treeTestTime)

	if tree.SkippedDuplicates() != 1 {
		t.Fatalf("skipped = %d, want 1", tree.SkippedDuplicates())
	}
	id, _ := tree.Root().Child("x")
	node, _ := tree.Inode(id)
	if node.Kind != archive.EntryFile {
		t.Errorf("'x' kind = %s, want file (first entry wins)", node.Kind)
	}
}

func TestBuildTreeIDsStableAndUnique(t *testing.T) {
	index := &archive.Index{Entries: []archive.Entry{
		fileEntry("b.txt", "b"),
		fileEntry("a.txt", "a"),
	}}
	tree := BuildTree(index, treeTestTime)

	seen := make(map[uint64]bool)
	for id := RootID; id < RootID+3; id++ {
		node, ok := tree.Inode(id)
		if !ok {
			t.Fatalf("inode %d missing", id)
		}
		if seen[node.ID] {
			t.Fatalf("duplicate inode id %d", node.ID)
		}
		seen[node.ID] = true
	}

	// First-seen order: b.txt was indexed first and gets the lower id.
	bID, _ := tree.Root().Child("b.txt")
	aID, _ := tree.Root().Child("a.txt")
	if bID >= aID {
		t.Errorf("b.txt id %d should precede a.txt id %d", bID, aID)
	}
}
