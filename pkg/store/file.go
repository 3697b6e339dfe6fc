package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// File names used by the directory backend.
const (
	MetaFileName = "vault.meta"
	BlobFileName = "vault.blob"
	LockFileName = "vault.lock"
)

// Disk capacity thresholds
const (
	MinDiskSpaceBytes  = 10 * 1024 * 1024 // 10 MB minimum free space
	DiskWarningPercent = 90               // Warn when disk is 90% full
)

// Option configures a backend.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for permission and disk warnings.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Dir is a Backend that keeps each record in its own file inside a
// directory. Writes go through a temp file, fsync and rename.
type Dir struct {
	path   string
	lock   *fileLock
	logger *slog.Logger
}

// OpenDir opens (creating if needed) the vault directory at path and takes
// an exclusive lock on it. A second OpenDir on the same path fails with
// ErrLocked until the first is closed.
func OpenDir(path string, opts ...Option) (*Dir, error) {
	o := buildOptions(opts)

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("store: resolve path: %w", err)
	}
	if err := os.MkdirAll(abs, DirMode); err != nil {
		return nil, fmt.Errorf("store: create vault directory: %w", err)
	}

	lock, err := acquireLock(filepath.Join(abs, LockFileName))
	if err != nil {
		return nil, err
	}

	d := &Dir{path: abs, lock: lock, logger: o.logger}
	d.checkAndWarnPermissions()
	return d, nil
}

// Path returns the vault directory.
func (d *Dir) Path() string {
	return d.path
}

func (d *Dir) fileFor(name string) (string, error) {
	switch name {
	case RecordMetadata:
		return filepath.Join(d.path, MetaFileName), nil
	case RecordBlob:
		return filepath.Join(d.path, BlobFileName), nil
	default:
		return "", fmt.Errorf("store: unknown record %q", name)
	}
}

func (d *Dir) Get(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.lock == nil {
		return nil, ErrClosed
	}
	path, err := d.fileFor(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", name, err)
	}
	return data, nil
}

// Put atomically writes data: tmp file → fsync → rename → fsync dir.
func (d *Dir) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.lock == nil {
		return ErrClosed
	}
	path, err := d.fileFor(name)
	if err != nil {
		return err
	}
	if err := checkDiskSpaceForWrite(d.path, len(data), d.logger); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(d.path, ".deskvault-tmp-*")
	if err != nil {
		return fmt.Errorf("store: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if err := tmp.Chmod(FileMode); err != nil {
		return fmt.Errorf("store: chmod temp: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("store: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("store: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("store: rename: %w", err)
	}
	success = true

	syncDir(d.path)
	return nil
}

func (d *Dir) Close() error {
	if d.lock == nil {
		return nil
	}
	err := d.lock.release()
	d.lock = nil
	return err
}

// checkAndWarnPermissions logs a warning for group- or world-accessible
// vault files. It never blocks opening the vault.
func (d *Dir) checkAndWarnPermissions() {
	if info, err := os.Stat(d.path); err == nil {
		if perm := info.Mode().Perm(); perm&0077 != 0 {
			d.logger.Warn("vault directory has insecure permissions", "path", d.path, "perm", fmt.Sprintf("%04o", perm), "expected", "0700")
		}
	}
	for _, name := range []string{MetaFileName, BlobFileName} {
		if info, err := os.Stat(filepath.Join(d.path, name)); err == nil {
			if perm := info.Mode().Perm(); perm&0077 != 0 {
				d.logger.Warn("vault file has insecure permissions", "file", name, "perm", fmt.Sprintf("%04o", perm), "expected", "0600")
			}
		}
	}
}

// syncDir flushes a directory entry after rename. Errors are ignored: not
// every platform supports fsync on directories.
func syncDir(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	_ = f.Sync()
	_ = f.Close()
}
