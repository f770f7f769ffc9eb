// Copyright 2026 The Arcfs Authors
// SPDX-License-Identifier: Apache-2.0

package fuse

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/arcfs-project/arcfs/lib/vfs"
)

// testTimestamp is a fixed timestamp for archive fixtures.
var testTimestamp = time.Unix(1735689600, 0) // 2025-01-01T00:00:00Z

// fuseAvailable checks whether /dev/fuse is accessible. Tests that
// need a real FUSE mount call this and skip if the device is absent.
func fuseAvailable(t *testing.T) {
	t.Helper()
	_, err := os.Stat("/dev/fuse")
	if err != nil {
		t.Skip("skipping: /dev/fuse not available")
	}
}

// fixtureZip builds a zip with a/b.txt ("hello"), top.txt ("X"), and
// the symlink ln -> a/b.txt.
func fixtureZip(t *testing.T) []byte {
	t.Helper()
	var buffer bytes.Buffer
	writer := zip.NewWriter(&buffer)

	write := func(name, content string, mode fs.FileMode) {
		header := &zip.FileHeader{Name: name, Method: zip.Deflate, Modified: testTimestamp}
		header.SetMode(mode)
		entryWriter, err := writer.CreateHeader(header)
		if err != nil {
			t.Fatalf("CreateHeader %q: %v", name, err)
		}
		if _, err := io.WriteString(entryWriter, content); err != nil {
			t.Fatalf("writing %q: %v", name, err)
		}
	}
	write("a/b.txt", "hello", 0o644)
	write("top.txt", "X", 0o644)
	write("ln", "a/b.txt", fs.ModeSymlink|0o777)

	if err := writer.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
	return buffer.Bytes()
}

// fixtureTarGz builds a gzipped tar with the same shape as fixtureZip.
func fixtureTarGz(t *testing.T) []byte {
	t.Helper()
	var raw bytes.Buffer
	writer := tar.NewWriter(&raw)

	write := func(header *tar.Header, content string) {
		header.ModTime = testTimestamp
		if err := writer.WriteHeader(header); err != nil {
			t.Fatalf("WriteHeader %q: %v", header.Name, err)
		}
		if content != "" {
			if _, err := io.WriteString(writer, content); err != nil {
				t.Fatalf("writing %q: %v", header.Name, err)
			}
		}
	}
	write(&tar.Header{Name: "a/b.txt", Typeflag: tar.TypeReg, Mode: 0o644, Size: 5}, "hello")
	write(&tar.Header{Name: "top.txt", Typeflag: tar.TypeReg, Mode: 0o644, Size: 1}, "X")
	write(&tar.Header{Name: "ln", Typeflag: tar.TypeSymlink, Linkname: "a/b.txt", Mode: 0o777}, "")
	if err := writer.Close(); err != nil {
		t.Fatalf("closing tar: %v", err)
	}

	var compressed bytes.Buffer
	gzipWriter := gzip.NewWriter(&compressed)
	if _, err := gzipWriter.Write(raw.Bytes()); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := gzipWriter.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return compressed.Bytes()
}

// testMount mounts archive bytes at a temp mountpoint and returns the
// mountpoint path. The mount is unmounted when the test ends.
func testMount(t *testing.T, data []byte) string {
	t.Helper()
	fuseAvailable(t)

	core, err := vfs.NewMount(bytes.NewReader(data), int64(len(data)), vfs.Options{})
	if err != nil {
		t.Fatalf("NewMount: %v", err)
	}
	t.Cleanup(func() { core.Close() })

	mountpoint := filepath.Join(t.TempDir(), "mount")
	server, err := Mount(Options{
		Mountpoint: mountpoint,
		Mount:      core,
	})
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	t.Cleanup(func() {
		if err := server.Unmount(); err != nil {
			t.Errorf("Unmount: %v", err)
		}
	})
	return mountpoint
}

// fixtures returns the canonical archive mounted once per access
// strategy.
func fixtures(t *testing.T) map[string]string {
	t.Helper()
	return map[string]string{
		"zip":    testMount(t, fixtureZip(t)),
		"tar.gz": testMount(t, fixtureTarGz(t)),
	}
}

func TestMountReadDir(t *testing.T) {
	for name, mountpoint := range fixtures(t) {
		t.Run(name, func(t *testing.T) {
			entries, err := os.ReadDir(mountpoint)
			if err != nil {
				t.Fatalf("ReadDir: %v", err)
			}

			names := make(map[string]bool)
			for _, entry := range entries {
				names[entry.Name()] = true
			}
			for _, want := range []string{"a", "top.txt", "ln"} {
				if !names[want] {
					t.Errorf("missing %q in root listing", want)
				}
			}
			if len(entries) != 3 {
				t.Errorf("expected 3 entries, got %d", len(entries))
			}
		})
	}
}

func TestMountReadFile(t *testing.T) {
	for name, mountpoint := range fixtures(t) {
		t.Run(name, func(t *testing.T) {
			got, err := os.ReadFile(filepath.Join(mountpoint, "a", "b.txt"))
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			if string(got) != "hello" {
				t.Errorf("got %q, want hello", got)
			}
		})
	}
}

func TestMountStat(t *testing.T) {
	mountpoint := testMount(t, fixtureZip(t))

	info, err := os.Stat(filepath.Join(mountpoint, "a", "b.txt"))
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() != 5 {
		t.Errorf("size = %d, want 5", info.Size())
	}
	if info.Mode().Perm() != 0o644 {
		t.Errorf("perm = %v, want 0644", info.Mode().Perm())
	}
	if !info.ModTime().Equal(testTimestamp) {
		t.Errorf("mtime = %v, want %v", info.ModTime(), testTimestamp)
	}

	// The intermediate directory is synthesized from the entry path.
	info, err = os.Stat(filepath.Join(mountpoint, "a"))
	if err != nil {
		t.Fatalf("Stat(a): %v", err)
	}
	if !info.IsDir() {
		t.Error("'a' is not a directory")
	}
}

func TestMountReadlink(t *testing.T) {
	for name, mountpoint := range fixtures(t) {
		t.Run(name, func(t *testing.T) {
			target, err := os.Readlink(filepath.Join(mountpoint, "ln"))
			if err != nil {
				t.Fatalf("Readlink: %v", err)
			}
			if target != "a/b.txt" {
				t.Errorf("target = %q, want a/b.txt", target)
			}

			// Following the link resolves inside the mount.
			got, err := os.ReadFile(filepath.Join(mountpoint, "ln"))
			if err != nil {
				t.Fatalf("ReadFile through link: %v", err)
			}
			if string(got) != "hello" {
				t.Errorf("link content = %q, want hello", got)
			}
		})
	}
}

func TestMountRejectsWrites(t *testing.T) {
	mountpoint := testMount(t, fixtureZip(t))

	_, err := os.OpenFile(filepath.Join(mountpoint, "top.txt"), os.O_WRONLY, 0)
	if !errors.Is(err, syscall.EROFS) {
		t.Errorf("open for write: err = %v, want EROFS", err)
	}

	err = os.Remove(filepath.Join(mountpoint, "top.txt"))
	if err == nil {
		t.Error("unlink unexpectedly succeeded on a read-only mount")
	}
}

func TestMountMissingPath(t *testing.T) {
	mountpoint := testMount(t, fixtureZip(t))

	_, err := os.Stat(filepath.Join(mountpoint, "no-such-file"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("stat missing: err = %v, want ErrNotExist", err)
	}
}
