package mountfs

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/mwantia/mountfs/data"
	"github.com/mwantia/mountfs/log"
	"github.com/tidwall/btree"
)

// VirtualFileSystem is a mount table that composes independent FileSystem
// backends into one namespace. It implements FileSystem itself, so tables
// can be nested. Directories between the table root and the shallowest
// mount points are synthesized and read-only; everything at or below a
// mount point is delegated to its backend.
type VirtualFileSystem struct {
	mu     sync.RWMutex
	log    *log.Logger
	mounts *btree.Map[string, *mountEntry]
}

type mountEntry struct {
	fs   FileSystem
	info MountInfo
}

// MountInfo provides metadata about a mounted filesystem.
type MountInfo struct {
	Path      string    // Mount base (e.g., "data/cache")
	Backend   string    // Backend name, if it reports one
	MountedAt time.Time // When the mount was created
}

// resolution is the outcome of matching a path against the bindings.
type resolution struct {
	entry    *mountEntry // exact or descendant match
	rest     string      // path relative to entry's base
	boundary bool        // path lies above at least one mount point
}

var _ FileSystem = (*VirtualFileSystem)(nil)

// NewVirtualFileSystem creates an empty mount table.
func NewVirtualFileSystem(opts ...VirtualFileSystemOption) (*VirtualFileSystem, error) {
	options := newDefaultVirtualFileSystemOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	logger := options.Logger
	if logger == nil {
		logger = log.NewLogger("vfs", options.LogLevel, options.LogFile, options.NoTerminalLog)
	}

	return &VirtualFileSystem{
		log:    logger,
		mounts: btree.NewMap[string, *mountEntry](0),
	}, nil
}

// Mount binds fs at base. It fails with ErrInvalidPath if base is malformed
// and with ErrLocationOverlap if base equals, contains or is contained by an
// existing base.
func (v *VirtualFileSystem) Mount(ctx context.Context, base string, fs FileSystem) error {
	path, err := data.CleanPath(base)
	if err != nil {
		return fmt.Errorf("%w: '%s'", data.ErrInvalidPath, base)
	}

	if fs == nil {
		return fmt.Errorf("vfs: no filesystem given for '%s'", base)
	}

	if other, ok := fs.(*VirtualFileSystem); ok && other == v {
		return fmt.Errorf("%w: '%s'", data.ErrSelfReferential, base)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if existing, ok := v.overlapLocked(path); ok {
		v.log.Debug("Mount: refused '%s', overlaps '%s'", path, existing)
		return data.LocationOverlap(path, existing)
	}

	info := MountInfo{
		Path:      path,
		MountedAt: time.Now(),
	}
	if named, ok := fs.(Named); ok {
		info.Backend = named.Name()
	}

	v.mounts.Set(path, &mountEntry{
		fs:   fs,
		info: info,
	})

	v.log.Debug("Mount: mounted '%s' backend at '%s'", info.Backend, path)
	return nil
}

// Unmount removes and returns the backend bound at exactly base.
// Unmounting a path that is not mounted is a no-op.
func (v *VirtualFileSystem) Unmount(ctx context.Context, base string) (FileSystem, bool) {
	path, err := data.CleanPath(base)
	if err != nil {
		return nil, false
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	entry, ok := v.mounts.Delete(path)
	if !ok {
		return nil, false
	}

	v.log.Debug("Unmount: unmounted '%s'", path)
	return entry.fs, true
}

// UnmountAll drops every binding. Backends are neither flushed nor closed.
func (v *VirtualFileSystem) UnmountAll(ctx context.Context) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.log.Debug("UnmountAll: dropping %d mounts", v.mounts.Len())
	v.mounts.Clear()
}

// Close drops every binding and closes the backends that implement
// io.Closer, nested tables included.
func (v *VirtualFileSystem) Close() error {
	v.mu.Lock()
	entries := make([]*mountEntry, 0, v.mounts.Len())
	v.mounts.Scan(func(_ string, entry *mountEntry) bool {
		entries = append(entries, entry)
		return true
	})
	v.mounts.Clear()
	v.mu.Unlock()

	errs := data.Errors{}
	for _, entry := range entries {
		if closer, ok := entry.fs.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				v.log.Warn("Close: failed to close '%s': %v", entry.info.Path, err)
				errs.Add(fmt.Errorf("close '%s': %w", entry.info.Path, err))
			}
		}
	}

	return errs.Errors()
}

// Mounts returns information about all mounted filesystems, ordered by base.
func (v *VirtualFileSystem) Mounts() []MountInfo {
	v.mu.RLock()
	defer v.mu.RUnlock()

	infos := make([]MountInfo, 0, v.mounts.Len())
	v.mounts.Scan(func(_ string, entry *mountEntry) bool {
		infos = append(infos, entry.info)
		return true
	})

	return infos
}

// Resolve returns the backend mounted at or above path together with path
// relative to its base. It reports false if no mount covers path.
func (v *VirtualFileSystem) Resolve(path string) (FileSystem, string, bool) {
	clean, err := data.CleanPath(path)
	if err != nil {
		return nil, "", false
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	entry, rest, ok := v.lookupLocked(clean)
	if !ok {
		return nil, "", false
	}
	return entry.fs, rest, true
}

// Name returns the identifier name defined for this filesystem.
func (*VirtualFileSystem) Name() string {
	return "vfs"
}

// Metadata returns information about path, a read-only directory above mount points.
func (v *VirtualFileSystem) Metadata(ctx context.Context, path string) (*data.Metadata, error) {
	const op = "stat"

	clean, err := data.ValidatePath(op, path)
	if err != nil {
		return nil, err
	}

	res := v.resolve(op, clean)
	switch {
	case res.entry != nil:
		return res.entry.fs.Metadata(ctx, res.rest)
	case res.boundary:
		return data.VirtualDirectoryMetadata(), nil
	}

	return nil, data.NotExist(op, path)
}

// OpenFile opens path on the backend mounted at or above it.
func (v *VirtualFileSystem) OpenFile(ctx context.Context, path string, opts data.OpenOptions) (File, error) {
	const op = "open"

	clean, err := data.ValidatePath(op, path)
	if err != nil {
		return nil, err
	}

	res := v.resolve(op, clean)
	switch {
	case res.entry != nil:
		return res.entry.fs.OpenFile(ctx, res.rest, opts)
	case res.boundary:
		return nil, v.boundaryViolation(op, path)
	}

	return nil, data.NotExist(op, path)
}

// RemoveFile deletes the file at path from its backend.
func (v *VirtualFileSystem) RemoveFile(ctx context.Context, path string) error {
	const op = "remove"

	clean, err := data.ValidatePath(op, path)
	if err != nil {
		return err
	}

	res := v.resolve(op, clean)
	switch {
	case res.entry != nil:
		return res.entry.fs.RemoveFile(ctx, res.rest)
	case res.boundary:
		return v.boundaryViolation(op, path)
	}

	return data.NotExist(op, path)
}

// ReadDir lists path. Below a mount point the backend's own listing is
// returned unchanged. Above mount points the result holds one synthesized
// directory per nested base, keyed by its path relative to path.
func (v *VirtualFileSystem) ReadDir(ctx context.Context, path string) (data.DirEntries, error) {
	const op = "readdir"

	clean, err := data.ValidatePath(op, path)
	if err != nil {
		return nil, err
	}

	v.mu.RLock()
	entry, rest, ok := v.lookupLocked(clean)
	if ok {
		v.mu.RUnlock()
		v.log.Debug("ReadDir: delegating '%s' to mount '%s' as '%s'", clean, entry.info.Path, rest)
		return entry.fs.ReadDir(ctx, rest)
	}

	entries := make(data.DirEntries)
	v.nestedLocked(clean, func(base string, _ *mountEntry) bool {
		rel, _ := data.TrimPathPrefix(base, clean)
		entries[rel] = data.VirtualDirectoryMetadata()
		return true
	})
	v.mu.RUnlock()

	if len(entries) == 0 {
		return nil, data.NotExist(op, path)
	}

	v.log.Debug("ReadDir: synthesized %d entries for '%s'", len(entries), clean)
	return entries, nil
}

// CreateDir creates a single directory inside a mounted backend.
func (v *VirtualFileSystem) CreateDir(ctx context.Context, path string) error {
	const op = "mkdir"

	clean, err := data.ValidatePath(op, path)
	if err != nil {
		return err
	}

	res := v.resolve(op, clean)
	if res.entry != nil {
		return res.entry.fs.CreateDir(ctx, res.rest)
	}

	return v.boundaryViolation(op, path)
}

// CreateDirAll creates path and its missing ancestors inside a mounted backend.
func (v *VirtualFileSystem) CreateDirAll(ctx context.Context, path string) error {
	const op = "mkdirall"

	clean, err := data.ValidatePath(op, path)
	if err != nil {
		return err
	}

	res := v.resolve(op, clean)
	if res.entry != nil {
		return res.entry.fs.CreateDirAll(ctx, res.rest)
	}

	return v.boundaryViolation(op, path)
}

// RemoveDir removes an empty directory from its backend.
func (v *VirtualFileSystem) RemoveDir(ctx context.Context, path string) error {
	const op = "rmdir"

	clean, err := data.ValidatePath(op, path)
	if err != nil {
		return err
	}

	res := v.resolve(op, clean)
	switch {
	case res.entry != nil:
		return res.entry.fs.RemoveDir(ctx, res.rest)
	case res.boundary:
		return v.boundaryViolation(op, path)
	}

	return data.NotExist(op, path)
}

// RemoveDirAll removes path and everything beneath it from its backend.
func (v *VirtualFileSystem) RemoveDirAll(ctx context.Context, path string) error {
	const op = "removeall"

	clean, err := data.ValidatePath(op, path)
	if err != nil {
		return err
	}

	res := v.resolve(op, clean)
	switch {
	case res.entry != nil:
		return res.entry.fs.RemoveDirAll(ctx, res.rest)
	case res.boundary:
		return v.boundaryViolation(op, path)
	}

	return data.NotExist(op, path)
}

// resolve matches a clean path against the bindings. The read lock is
// released before the caller delegates to a backend.
func (v *VirtualFileSystem) resolve(op, path string) resolution {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if entry, rest, ok := v.lookupLocked(path); ok {
		v.log.Debug("%s: resolved '%s' to mount '%s' as '%s'", op, path, entry.info.Path, rest)
		return resolution{
			entry: entry,
			rest:  rest,
		}
	}

	boundary := false
	v.nestedLocked(path, func(string, *mountEntry) bool {
		boundary = true
		return false
	})

	return resolution{
		boundary: boundary,
	}
}

func (v *VirtualFileSystem) boundaryViolation(op, path string) error {
	v.log.Debug("%s: '%s' is not inside any mount", op, path)
	return data.PermissionDenied(op, path)
}

// lookupLocked finds the binding whose base is path or one of its ancestors.
// Must be called with lock held.
func (v *VirtualFileSystem) lookupLocked(path string) (*mountEntry, string, bool) {
	for prefix := path; ; prefix = data.ParentPath(prefix) {
		if entry, ok := v.mounts.Get(prefix); ok {
			rest, _ := data.TrimPathPrefix(path, prefix)
			return entry, rest, true
		}

		if prefix == "" {
			return nil, "", false
		}
	}
}

// nestedLocked calls fn in order for every base strictly beneath path,
// until fn returns false. Bases sharing the prefix "path/" are contiguous
// in the ordered map, so the scan stops at the first one that does not.
// Must be called with lock held.
func (v *VirtualFileSystem) nestedLocked(path string, fn func(base string, entry *mountEntry) bool) {
	pivot := ""
	if path != "" {
		pivot = path + data.PathSeparator
	}

	v.mounts.Ascend(pivot, func(base string, entry *mountEntry) bool {
		if !strings.HasPrefix(base, pivot) {
			return false
		}
		if base == path {
			return true
		}
		return fn(base, entry)
	})
}

// overlapLocked returns an existing base that equals, contains or lies
// beneath path. Must be called with lock held.
func (v *VirtualFileSystem) overlapLocked(path string) (string, bool) {
	if entry, _, ok := v.lookupLocked(path); ok {
		return entry.info.Path, true
	}

	var nested string
	v.nestedLocked(path, func(base string, _ *mountEntry) bool {
		nested = base
		return false
	})

	return nested, nested != "" || (path == "" && v.mounts.Len() > 0)
}
