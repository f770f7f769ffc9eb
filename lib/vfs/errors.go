// Copyright 2026 The Arcfs Authors
// SPDX-License-Identifier: Apache-2.0

package vfs

import "errors"

// Request-scoped errors. Each reports the failure of one operation;
// the mount stays valid for subsequent requests.
var (
	// ErrNotFound means no such inode or directory child.
	ErrNotFound = errors.New("no such file or directory")

	// ErrNotADirectory means a directory operation hit a file.
	ErrNotADirectory = errors.New("not a directory")

	// ErrIsADirectory means a file operation hit a directory.
	ErrIsADirectory = errors.New("is a directory")

	// ErrPermissionDenied means write access was requested; the
	// filesystem is read-only by design.
	ErrPermissionDenied = errors.New("read-only filesystem")

	// ErrHandleNotFound means the handle id is unknown or already
	// released.
	ErrHandleNotFound = errors.New("handle not found")

	// ErrInvalidArgument means the operation does not apply to the
	// target, such as Readlink on a non-symlink.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrIO wraps failures reading the underlying byte source after
	// mount: the archive vanished, was truncated, or a compressed
	// block turned out corrupt mid-read.
	ErrIO = errors.New("archive read error")
)
