// Package storage persists uploaded files. Two backends exist: Disk, a flat
// directory on the local filesystem, and Minio, a bucket on any
// S3-compatible object store. Both expose the same flat namespace: one
// entry per uploaded file, no sub-directories, no metadata sidecars.
package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

var (
	// ErrNotExist is returned by Open and Stat when no entry has the given name.
	ErrNotExist = errors.New("storage: file does not exist")
	// ErrExist is returned by Create when the name is already taken.
	ErrExist = errors.New("storage: file already exists")
	// ErrInvalidName rejects names that are empty or would leave the root.
	ErrInvalidName = errors.New("storage: invalid file name")
)

// FileInfo describes one stored file.
type FileInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// File is a readable, seekable handle on a stored file.
type File interface {
	io.ReadSeekCloser
}

// Storage is the flat file namespace uploads are written to and served from.
type Storage interface {
	// EnsureRoot creates the root (directory or bucket) if it is missing.
	EnsureRoot(ctx context.Context) error
	// Exists reports whether a regular entry called name is directly inside the root.
	Exists(ctx context.Context, name string) (bool, error)
	// Create streams r into a new entry and returns the number of bytes
	// written. It never overwrites an existing entry. On failure nothing is
	// left behind under name.
	Create(ctx context.Context, name string, r io.Reader) (int64, error)
	Open(ctx context.Context, name string) (File, error)
	Stat(ctx context.Context, name string) (FileInfo, error)
	// List returns every direct child of the root, in enumeration order.
	List(ctx context.Context) ([]FileInfo, error)
	Remove(ctx context.Context, name string) error
	// Ping checks that the root is reachable.
	Ping(ctx context.Context) error
}

// ValidName reports whether name addresses a direct child of the root.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`+"\x00")
}
