package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/mwantia/mountfs"
	"github.com/mwantia/mountfs/data"
	"github.com/mwantia/mountfs/log"
)

// ObjectFileSystem turns an ObjectStorageBackend into a mountfs.FileSystem
// with the usual file semantics: parents must exist, directories cannot be
// opened and only empty directories are removed without recursion.
type ObjectFileSystem struct {
	log      *log.Logger
	storage  ObjectStorageBackend
	readOnly bool
}

var _ mountfs.FileSystem = (*ObjectFileSystem)(nil)

// NewFileSystem opens storage and wraps it. The storage is closed again if
// any option fails.
func NewFileSystem(ctx context.Context, storage ObjectStorageBackend, opts ...ObjectFileSystemOption) (*ObjectFileSystem, error) {
	options := newDefaultObjectFileSystemOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	logger := options.Logger
	if logger == nil {
		logger = log.NewLogger(storage.Name(), log.Info, "", false)
	}

	if err := storage.Open(ctx); err != nil {
		return nil, fmt.Errorf("failed to open backend '%s': %w", storage.Name(), err)
	}

	fs := &ObjectFileSystem{
		log:      logger,
		storage:  storage,
		readOnly: options.ReadOnly || storage.GetCapabilities().IsReadOnly(),
	}

	fs.log.Debug("NewFileSystem: opened backend '%s' (readonly=%t)", storage.Name(), fs.readOnly)
	return fs, nil
}

// Name returns the name of the wrapped backend.
func (fs *ObjectFileSystem) Name() string {
	return fs.storage.Name()
}

// Storage returns the wrapped backend.
func (fs *ObjectFileSystem) Storage() ObjectStorageBackend {
	return fs.storage
}

// Close releases the wrapped backend.
func (fs *ObjectFileSystem) Close() error {
	fs.log.Debug("Close: closing backend '%s'", fs.storage.Name())
	return fs.storage.Close(context.Background())
}

func (fs *ObjectFileSystem) Metadata(ctx context.Context, path string) (*data.Metadata, error) {
	const op = "stat"

	key, err := data.ValidatePath(op, path)
	if err != nil {
		return nil, err
	}

	stat, err := fs.head(ctx, key)
	if err != nil {
		return nil, data.NewPathError(op, path, err)
	}

	return stat.ToMetadata(fs.readOnly), nil
}

func (fs *ObjectFileSystem) OpenFile(ctx context.Context, path string, opts data.OpenOptions) (mountfs.File, error) {
	const op = "open"

	key, err := data.ValidatePath(op, path)
	if err != nil {
		return nil, err
	}

	flags, err := opts.Validate()
	if err != nil {
		return nil, data.NewPathError(op, path, err)
	}

	if key == "" {
		return nil, data.NewPathError(op, path, data.ErrIsDirectory)
	}

	if fs.readOnly && flags.CanWrite() {
		fs.log.Debug("OpenFile: refused write access to '%s' on readonly backend", key)
		return nil, data.NewPathError(op, path, data.ErrReadOnly)
	}

	stat, err := fs.storage.HeadObject(ctx, key)
	switch {
	case errors.Is(err, data.ErrNotExist):
		if !flags.HasCreate() {
			return nil, data.NewPathError(op, path, err)
		}

		fs.log.Debug("OpenFile: creating '%s'", key)
		if _, err := fs.storage.CreateObject(ctx, key, data.FileTypeFile); err != nil {
			return nil, data.NewPathError(op, path, err)
		}
	case err != nil:
		return nil, data.NewPathError(op, path, err)
	case flags.HasCreateNew():
		return nil, data.NewPathError(op, path, data.ErrExist)
	case stat.IsDir():
		return nil, data.NewPathError(op, path, data.ErrIsDirectory)
	case flags.HasTruncate():
		fs.log.Debug("OpenFile: truncating '%s'", key)
		if err := fs.storage.TruncateObject(ctx, key, 0); err != nil {
			return nil, data.NewPathError(op, path, err)
		}
	}

	fs.log.Debug("OpenFile: opened '%s' (%s)", key, flags)
	return newObjectFile(ctx, fs.log, fs, key, flags), nil
}

func (fs *ObjectFileSystem) RemoveFile(ctx context.Context, path string) error {
	const op = "remove"

	key, err := data.ValidatePath(op, path)
	if err != nil {
		return err
	}

	if err := fs.checkWritable(op, path); err != nil {
		return err
	}

	stat, err := fs.head(ctx, key)
	if err != nil {
		return data.NewPathError(op, path, err)
	}

	if stat.IsDir() {
		return data.NewPathError(op, path, data.ErrIsDirectory)
	}

	if err := fs.storage.DeleteObject(ctx, key, false); err != nil {
		return data.NewPathError(op, path, err)
	}

	fs.log.Debug("RemoveFile: removed '%s'", key)
	return nil
}

func (fs *ObjectFileSystem) ReadDir(ctx context.Context, path string) (data.DirEntries, error) {
	const op = "readdir"

	key, err := data.ValidatePath(op, path)
	if err != nil {
		return nil, err
	}

	stats, err := fs.storage.ListObjects(ctx, key)
	if err != nil {
		return nil, data.NewPathError(op, path, err)
	}

	entries := make(data.DirEntries, len(stats))
	for _, stat := range stats {
		entries[stat.Key] = stat.ToMetadata(fs.readOnly)
	}

	fs.log.Debug("ReadDir: listed %d entries in '%s'", len(entries), key)
	return entries, nil
}

func (fs *ObjectFileSystem) CreateDir(ctx context.Context, path string) error {
	const op = "mkdir"

	key, err := data.ValidatePath(op, path)
	if err != nil {
		return err
	}

	if err := fs.checkWritable(op, path); err != nil {
		return err
	}

	if key == "" {
		return data.NewPathError(op, path, data.ErrExist)
	}

	if _, err := fs.storage.CreateObject(ctx, key, data.FileTypeDirectory); err != nil {
		return data.NewPathError(op, path, err)
	}

	fs.log.Debug("CreateDir: created '%s'", key)
	return nil
}

// CreateDirAll creates every missing directory along path. An ancestor that
// appears concurrently is accepted as long as it is a directory.
func (fs *ObjectFileSystem) CreateDirAll(ctx context.Context, path string) error {
	const op = "mkdirall"

	key, err := data.ValidatePath(op, path)
	if err != nil {
		return err
	}

	if err := fs.checkWritable(op, path); err != nil {
		return err
	}

	current := ""
	for _, segment := range data.SplitPath(key) {
		current = data.JoinPath(current, segment)

		stat, err := fs.storage.HeadObject(ctx, current)
		if err == nil {
			if !stat.IsDir() {
				return ancestorError(op, path, current, data.ErrNotDirectory)
			}
			continue
		}
		if !errors.Is(err, data.ErrNotExist) {
			return ancestorError(op, path, current, err)
		}

		if _, err := fs.storage.CreateObject(ctx, current, data.FileTypeDirectory); err != nil {
			if !errors.Is(err, data.ErrExist) {
				return ancestorError(op, path, current, err)
			}

			// Lost a race against another creator
			stat, err := fs.storage.HeadObject(ctx, current)
			if err != nil {
				return ancestorError(op, path, current, err)
			}
			if !stat.IsDir() {
				return ancestorError(op, path, current, data.ErrNotDirectory)
			}
			continue
		}

		fs.log.Debug("CreateDirAll: created '%s'", current)
	}

	return nil
}

// ancestorError reports a failure on an ancestor of path while keeping path
// as the failing operand.
func ancestorError(op, path, ancestor string, err error) error {
	return data.NewPathError(op, path, fmt.Errorf("%s: %w", ancestor, err))
}

func (fs *ObjectFileSystem) RemoveDir(ctx context.Context, path string) error {
	const op = "rmdir"

	key, err := data.ValidatePath(op, path)
	if err != nil {
		return err
	}

	if err := fs.checkWritable(op, path); err != nil {
		return err
	}

	if key == "" {
		return data.PermissionDenied(op, path)
	}

	stat, err := fs.storage.HeadObject(ctx, key)
	if err != nil {
		return data.NewPathError(op, path, err)
	}

	if !stat.IsDir() {
		return data.NewPathError(op, path, data.ErrNotDirectory)
	}

	if err := fs.storage.DeleteObject(ctx, key, false); err != nil {
		return data.NewPathError(op, path, err)
	}

	fs.log.Debug("RemoveDir: removed '%s'", key)
	return nil
}

// RemoveDirAll removes path and everything beneath it. On the root only
// the children are removed.
func (fs *ObjectFileSystem) RemoveDirAll(ctx context.Context, path string) error {
	const op = "removeall"

	key, err := data.ValidatePath(op, path)
	if err != nil {
		return err
	}

	if err := fs.checkWritable(op, path); err != nil {
		return err
	}

	if key == "" {
		stats, err := fs.storage.ListObjects(ctx, key)
		if err != nil {
			return data.NewPathError(op, path, err)
		}

		errs := data.Errors{}
		for _, stat := range stats {
			if err := fs.storage.DeleteObject(ctx, stat.Key, true); err != nil {
				errs.Add(data.NewPathError(op, stat.Key, err))
			}
		}

		fs.log.Debug("RemoveDirAll: cleared %d root entries", len(stats))
		return errs.Errors()
	}

	stat, err := fs.storage.HeadObject(ctx, key)
	if err != nil {
		return data.NewPathError(op, path, err)
	}

	if !stat.IsDir() {
		return data.NewPathError(op, path, data.ErrNotDirectory)
	}

	if err := fs.storage.DeleteObject(ctx, key, true); err != nil {
		return data.NewPathError(op, path, err)
	}

	fs.log.Debug("RemoveDirAll: removed '%s'", key)
	return nil
}

func (fs *ObjectFileSystem) head(ctx context.Context, key string) (*ObjectStat, error) {
	if key == "" {
		return RootStat(), nil
	}
	return fs.storage.HeadObject(ctx, key)
}

func (fs *ObjectFileSystem) checkWritable(op, path string) error {
	if fs.readOnly {
		fs.log.Debug("%s: refused '%s' on readonly backend", op, path)
		return data.NewPathError(op, path, data.ErrReadOnly)
	}
	return nil
}
