package direct

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/mwantia/mountfs"
	"github.com/mwantia/mountfs/data"
	"github.com/mwantia/mountfs/log"
)

// DirectFileSystem serves a directory of the host filesystem.
type DirectFileSystem struct {
	log  *log.Logger
	path string
}

var _ mountfs.FileSystem = (*DirectFileSystem)(nil)

type DirectOptions struct {
	Logger   *log.Logger
	BaseDirs *BaseDirs
}

type DirectOption func(*DirectOptions) error

// WithLogger sets the logger used for debug output.
func WithLogger(logger *log.Logger) DirectOption {
	return func(opts *DirectOptions) error {
		opts.Logger = logger
		return nil
	}
}

// WithBaseDirs sets the directories used to expand tokens in the base path.
func WithBaseDirs(dirs *BaseDirs) DirectOption {
	return func(opts *DirectOptions) error {
		if dirs == nil {
			return fmt.Errorf("base dirs must not be nil")
		}
		opts.BaseDirs = dirs
		return nil
	}
}

// NewDirectFileSystem serves path, which may start with a directory token
// such as "$data_home". The directory must already exist.
func NewDirectFileSystem(path string, opts ...DirectOption) (*DirectFileSystem, error) {
	options := &DirectOptions{}
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	dirs := options.BaseDirs
	if dirs == nil {
		var err error
		if dirs, err = DefaultBaseDirs(); err != nil {
			return nil, err
		}
	}

	expanded, err := dirs.Expand(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to open '%s': %w", expanded, translate(err))
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("failed to open '%s': %w", expanded, data.ErrNotDirectory)
	}

	logger := options.Logger
	if logger == nil {
		logger = log.NewLogger("direct", log.Info, "", false)
	}

	logger.Debug("NewDirectFileSystem: serving '%s'", expanded)
	return &DirectFileSystem{
		log:  logger,
		path: expanded,
	}, nil
}

// Returns the identifier name defined for this backend
func (*DirectFileSystem) Name() string {
	return "direct"
}

// Path returns the expanded base directory.
func (dfs *DirectFileSystem) Path() string {
	return dfs.path
}

func (dfs *DirectFileSystem) Metadata(ctx context.Context, path string) (*data.Metadata, error) {
	const op = "stat"

	full, err := dfs.resolve(op, path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(full)
	if err != nil {
		return nil, data.NewPathError(op, path, translate(err))
	}

	return data.FromFileInfo(info), nil
}

func (dfs *DirectFileSystem) OpenFile(ctx context.Context, path string, opts data.OpenOptions) (mountfs.File, error) {
	const op = "open"

	full, err := dfs.resolve(op, path)
	if err != nil {
		return nil, err
	}

	flags, err := opts.Validate()
	if err != nil {
		return nil, data.NewPathError(op, path, err)
	}

	file, err := os.OpenFile(full, osFlags(flags), 0o644)
	if err != nil {
		return nil, data.NewPathError(op, path, translate(err))
	}

	// Directories open fine for reading on most platforms
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, data.NewPathError(op, path, translate(err))
	}
	if info.IsDir() {
		file.Close()
		return nil, data.NewPathError(op, path, data.ErrIsDirectory)
	}

	dfs.log.Debug("OpenFile: opened '%s' (flags=%s)", full, flags)
	return &directFile{File: file}, nil
}

func (dfs *DirectFileSystem) RemoveFile(ctx context.Context, path string) error {
	const op = "remove"

	full, err := dfs.resolve(op, path)
	if err != nil {
		return err
	}

	info, err := os.Lstat(full)
	if err != nil {
		return data.NewPathError(op, path, translate(err))
	}
	if info.IsDir() {
		return data.NewPathError(op, path, data.ErrIsDirectory)
	}

	if err := os.Remove(full); err != nil {
		return data.NewPathError(op, path, translate(err))
	}
	return nil
}

func (dfs *DirectFileSystem) ReadDir(ctx context.Context, path string) (data.DirEntries, error) {
	const op = "readdir"

	key, err := data.ValidatePath(op, path)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dfs.join(key))
	if err != nil {
		return nil, data.NewPathError(op, path, translate(err))
	}

	result := make(data.DirEntries, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			// Removed between listing and stat
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, data.NewPathError(op, path, translate(err))
		}
		result[data.JoinPath(key, entry.Name())] = data.FromFileInfo(info)
	}

	return result, nil
}

func (dfs *DirectFileSystem) CreateDir(ctx context.Context, path string) error {
	const op = "mkdir"

	full, err := dfs.resolve(op, path)
	if err != nil {
		return err
	}

	if err := os.Mkdir(full, 0o755); err != nil {
		return data.NewPathError(op, path, translate(err))
	}
	return nil
}

func (dfs *DirectFileSystem) CreateDirAll(ctx context.Context, path string) error {
	const op = "mkdirall"

	full, err := dfs.resolve(op, path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(full, 0o755); err != nil {
		return data.NewPathError(op, path, translate(err))
	}
	return nil
}

func (dfs *DirectFileSystem) RemoveDir(ctx context.Context, path string) error {
	const op = "rmdir"

	key, err := data.ValidatePath(op, path)
	if err != nil {
		return err
	}
	if key == "" {
		return data.PermissionDenied(op, path)
	}

	full := dfs.join(key)
	info, err := os.Lstat(full)
	if err != nil {
		return data.NewPathError(op, path, translate(err))
	}
	if !info.IsDir() {
		return data.NewPathError(op, path, data.ErrNotDirectory)
	}

	if err := os.Remove(full); err != nil {
		return data.NewPathError(op, path, translate(err))
	}
	return nil
}

func (dfs *DirectFileSystem) RemoveDirAll(ctx context.Context, path string) error {
	const op = "removeall"

	key, err := data.ValidatePath(op, path)
	if err != nil {
		return err
	}

	full := dfs.join(key)
	info, err := os.Lstat(full)
	if err != nil {
		return data.NewPathError(op, path, translate(err))
	}
	if !info.IsDir() {
		return data.NewPathError(op, path, data.ErrNotDirectory)
	}

	// The base directory itself stays, only its content is removed
	if key == "" {
		entries, err := os.ReadDir(full)
		if err != nil {
			return data.NewPathError(op, path, translate(err))
		}

		errs := data.Errors{}
		for _, entry := range entries {
			errs.Add(os.RemoveAll(filepath.Join(full, entry.Name())))
		}
		if err := errs.Errors(); err != nil {
			return data.NewPathError(op, path, err)
		}
		return nil
	}

	dfs.log.Debug("RemoveDirAll: removing '%s'", full)
	if err := os.RemoveAll(full); err != nil {
		return data.NewPathError(op, path, translate(err))
	}
	return nil
}

// Close is a no-op; the directory persists independently.
func (dfs *DirectFileSystem) Close() error {
	return nil
}

func (dfs *DirectFileSystem) resolve(op, path string) (string, error) {
	key, err := data.ValidatePath(op, path)
	if err != nil {
		return "", err
	}
	return dfs.join(key), nil
}

func (dfs *DirectFileSystem) join(key string) string {
	return filepath.Join(dfs.path, filepath.FromSlash(key))
}

func osFlags(opts data.OpenOptions) int {
	var flags int
	switch {
	case opts.CanRead() && opts.CanWrite():
		flags = os.O_RDWR
	case opts.CanWrite():
		flags = os.O_WRONLY
	default:
		flags = os.O_RDONLY
	}

	if opts.HasAppend() {
		flags |= os.O_APPEND
	}
	if opts.HasTruncate() {
		flags |= os.O_TRUNC
	}
	if opts.HasCreateNew() {
		flags |= os.O_CREATE | os.O_EXCL
	} else if opts.HasCreate() {
		flags |= os.O_CREATE
	}
	return flags
}

// translate maps OS failures onto the data sentinels; anything unknown is
// returned unchanged. ENOTEMPTY also matches fs.ErrExist, so the specific
// errnos go first.
func translate(err error) error {
	switch {
	case errors.Is(err, syscall.ENOTEMPTY):
		return data.ErrDirectoryNotEmpty
	case errors.Is(err, syscall.ENOTDIR):
		return data.ErrNotDirectory
	case errors.Is(err, syscall.EISDIR):
		return data.ErrIsDirectory
	case errors.Is(err, fs.ErrNotExist):
		return data.ErrNotExist
	case errors.Is(err, fs.ErrExist):
		return data.ErrExist
	case errors.Is(err, fs.ErrPermission):
		return data.ErrPermission
	}
	return err
}

// directFile is an *os.File that reports mountfs metadata.
type directFile struct {
	*os.File
}

var _ mountfs.File = (*directFile)(nil)

func (f *directFile) Metadata() (*data.Metadata, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, translate(err)
	}
	return data.FromFileInfo(info), nil
}
