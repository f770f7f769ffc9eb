// Copyright 2026 The Arcfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package fuse exposes a vfs.Mount through the kernel FUSE interface.
//
// The bridge is a thin translation layer: every kernel callback maps
// onto one core operation (Lookup, Attributes, List, Open, Read,
// Release, Readlink) and every core error onto its native errno. All
// filesystem semantics live in the core; nothing here consults the
// archive directly.
package fuse
