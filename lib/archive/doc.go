// Copyright 2026 The Arcfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package archive detects archive formats and builds an in-memory
// index of their entries.
//
// The index is built exactly once, at mount time, and is immutable
// afterwards. Each indexed entry carries a storage descriptor that
// tells the read engine how its bytes can be reached:
//
//   - [DirectAccess]: the entry occupies its own byte extent in the
//     container (zip members, plain tar payloads) and can be decoded
//     independently of every other entry.
//   - [SequentialAccess]: the entry lives inside one whole-container
//     compressed stream (tar.gz, tar.bz2, tar.zst, tar.lz4) and is
//     only reachable by decoding that stream from an earlier point.
//
// Indexing a sequential format performs the single full decode of the
// container's outer compression layer; entry payloads themselves are
// decoded lazily at read time.
package archive
