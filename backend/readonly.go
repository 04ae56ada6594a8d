package backend

import (
	"context"

	"github.com/mwantia/mountfs"
	"github.com/mwantia/mountfs/data"
)

// ReadOnlyFileSystem wraps any FileSystem to make it read-only.
// Read operations are passed through; write operations return ErrReadOnly.
type ReadOnlyFileSystem struct {
	fs mountfs.FileSystem
}

var _ mountfs.FileSystem = (*ReadOnlyFileSystem)(nil)

// NewReadOnly creates a new read-only wrapper around fs.
func NewReadOnly(fs mountfs.FileSystem) *ReadOnlyFileSystem {
	return &ReadOnlyFileSystem{
		fs: fs,
	}
}

// Name reports the wrapped filesystem's name, if it has one.
func (ro *ReadOnlyFileSystem) Name() string {
	if named, ok := ro.fs.(mountfs.Named); ok {
		return named.Name()
	}
	return "readonly"
}

// Unwrap returns the wrapped filesystem.
func (ro *ReadOnlyFileSystem) Unwrap() mountfs.FileSystem {
	return ro.fs
}

func (ro *ReadOnlyFileSystem) Metadata(ctx context.Context, path string) (*data.Metadata, error) {
	meta, err := ro.fs.Metadata(ctx, path)
	if err != nil {
		return nil, err
	}

	copied := *meta
	copied.ReadOnly = true
	return &copied, nil
}

func (ro *ReadOnlyFileSystem) OpenFile(ctx context.Context, path string, opts data.OpenOptions) (mountfs.File, error) {
	if opts.CanWrite() {
		return nil, ro.refuse("open", path)
	}
	return ro.fs.OpenFile(ctx, path, opts)
}

func (ro *ReadOnlyFileSystem) RemoveFile(ctx context.Context, path string) error {
	return ro.refuse("remove", path)
}

func (ro *ReadOnlyFileSystem) ReadDir(ctx context.Context, path string) (data.DirEntries, error) {
	entries, err := ro.fs.ReadDir(ctx, path)
	if err != nil {
		return nil, err
	}

	for key, meta := range entries {
		copied := *meta
		copied.ReadOnly = true
		entries[key] = &copied
	}
	return entries, nil
}

func (ro *ReadOnlyFileSystem) CreateDir(ctx context.Context, path string) error {
	return ro.refuse("mkdir", path)
}

func (ro *ReadOnlyFileSystem) CreateDirAll(ctx context.Context, path string) error {
	return ro.refuse("mkdirall", path)
}

func (ro *ReadOnlyFileSystem) RemoveDir(ctx context.Context, path string) error {
	return ro.refuse("rmdir", path)
}

func (ro *ReadOnlyFileSystem) RemoveDirAll(ctx context.Context, path string) error {
	return ro.refuse("removeall", path)
}

// Close closes the wrapped filesystem if it holds resources.
func (ro *ReadOnlyFileSystem) Close() error {
	if closer, ok := ro.fs.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// refuse validates path first so malformed paths still report ErrInvalidPath.
func (ro *ReadOnlyFileSystem) refuse(op, path string) error {
	if _, err := data.ValidatePath(op, path); err != nil {
		return err
	}
	return data.NewPathError(op, path, data.ErrReadOnly)
}
