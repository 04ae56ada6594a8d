package mountfs

import (
	"context"
	"io"

	"github.com/mwantia/mountfs/data"
)

// File is an open, stateful handle with an implicit cursor.
// It must be closed by its owner; nothing is flushed implicitly.
type File interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer

	// Metadata returns a snapshot of the open file's metadata.
	Metadata() (*data.Metadata, error)
}

// FileSystem is the capability contract every backend implements.
// Paths are virtual paths relative to the root of the implementation;
// every method rejects malformed paths with data.ErrInvalidPath before
// doing any other work. Implementations must be safe for concurrent use.
type FileSystem interface {
	// Metadata returns information about the entry at path.
	// Returns ErrNotExist if no entry exists.
	Metadata(ctx context.Context, path string) (*data.Metadata, error)

	// OpenFile opens the file at path with the requested options.
	// Depending on options and state it fails with ErrNotExist,
	// ErrPermission or ErrExist.
	OpenFile(ctx context.Context, path string, opts data.OpenOptions) (File, error)

	// RemoveFile deletes the file at path.
	// Returns ErrNotExist if it is absent.
	RemoveFile(ctx context.Context, path string) error

	// ReadDir lists the directory at path. Keys of the result are full
	// paths relative to this FileSystem.
	// Returns ErrNotExist if path is missing or not a directory.
	ReadDir(ctx context.Context, path string) (data.DirEntries, error)

	// CreateDir creates a single directory.
	// Returns ErrExist if it already exists.
	CreateDir(ctx context.Context, path string) error

	// CreateDirAll creates path and any missing ancestors.
	CreateDirAll(ctx context.Context, path string) error

	// RemoveDir removes an empty directory.
	RemoveDir(ctx context.Context, path string) error

	// RemoveDirAll removes path and everything beneath it.
	RemoveDirAll(ctx context.Context, path string) error
}

// Named is implemented by backends that report an identifier.
type Named interface {
	Name() string
}
