// Copyright 2026 The Arcfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package vfs serves an indexed archive as a read-only virtual
// filesystem.
//
// A [Mount] is created once per archive. Mount time folds the flat
// entry list into a [Tree] of inodes (explicit entries plus
// synthesized intermediate directories); both the tree and the index
// are immutable afterwards and are read without locking. Every
// kernel-facing operation — Lookup, Attributes, List, Open, Read,
// Release, Readlink — runs against those structures.
//
// Reads dispatch on the entry's storage descriptor. Direct entries
// open an independent decoder per call and proceed fully in parallel.
// Sequential entries funnel through one shared container decode
// stream guarded by a single lock; a bounded LRU cache of decode
// windows absorbs repeated and backward-seeking reads, but
// correctness never depends on it — a cold cache only costs another
// restart-and-fast-forward pass over the container.
package vfs
