// Copyright 2026 The Arcfs Authors
// SPDX-License-Identifier: Apache-2.0

// arcfs mounts an archive file as a read-only filesystem.
//
// The archive is never extracted: directory structure comes from an
// in-memory index built at mount time, and file contents are decoded
// on demand as the kernel asks for them.
//
// Usage:
//
//	arcfs [flags] ARCHIVE MOUNTPOINT
//
// ARCHIVE is either an archive file (zip, tar, tar.gz, tar.bz2,
// tar.zst, tar.lz4) or a directory containing exactly one such file.
// The format is detected from the file's leading bytes, never from
// its name.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/arcfs-project/arcfs/lib/version"
	"github.com/arcfs-project/arcfs/lib/vfs"
	arcfuse "github.com/arcfs-project/arcfs/lib/vfs/fuse"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var allowOther bool
	var debugFUSE bool
	var showVersion bool
	var cacheBytes int64
	var windowSize int
	var logLevel string

	pflag.BoolVar(&allowOther, "allow-other", false, "allow other users to access the mount (requires user_allow_other in /etc/fuse.conf)")
	pflag.BoolVar(&debugFUSE, "debug-fuse", false, "trace the FUSE protocol")
	pflag.BoolVar(&showVersion, "version", false, "print version information and exit")
	pflag.Int64Var(&cacheBytes, "cache-size", vfs.DefaultCacheBytes, "decode window cache budget in bytes (compressed tar only)")
	pflag.IntVar(&windowSize, "window-size", vfs.DefaultWindowSize, "decode window size in bytes (compressed tar only)")
	pflag.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	pflag.Parse()

	if showVersion {
		fmt.Printf("arcfs %s\n", version.Info())
		return nil
	}

	if pflag.NArg() != 2 {
		return fmt.Errorf("usage: arcfs [flags] ARCHIVE MOUNTPOINT")
	}
	origin := pflag.Arg(0)
	mountpoint := pflag.Arg(1)

	level, err := parseLogLevel(logLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	archivePath, err := resolveArchive(origin)
	if err != nil {
		return err
	}

	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", archivePath, err)
	}

	mount, err := vfs.NewMount(file, info.Size(), vfs.Options{
		WindowSize: windowSize,
		CacheBytes: cacheBytes,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("indexing %s: %w", archivePath, err)
	}
	defer mount.Close()

	server, err := arcfuse.Mount(arcfuse.Options{
		Mountpoint: mountpoint,
		Mount:      mount,
		AllowOther: allowOther,
		DebugFUSE:  debugFUSE,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		received := <-signals
		logger.Info("unmounting", "signal", received.String())
		if err := server.Unmount(); err != nil {
			logger.Error("unmount failed; is the mountpoint busy?", "error", err)
		}
	}()

	// Blocks until the filesystem is unmounted, by the signal handler
	// or externally via fusermount -u.
	server.Wait()
	return nil
}

func parseLogLevel(name string) (slog.Level, error) {
	switch name {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", name)
	}
}
