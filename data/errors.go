package data

import (
	"errors"
	"fmt"
	"io/fs"
	"sync"
)

// Standard VFS errors that FileSystem implementations should use.
var (
	// Path resolution errors
	ErrInvalidPath     = errors.New("vfs: invalid path")
	ErrLocationOverlap = errors.New("vfs: mount location overlap")
	ErrSelfReferential = errors.New("vfs: self-referential mount not allowed")

	// File operation errors
	ErrNotExist          = errors.New("vfs: file does not exist")
	ErrExist             = errors.New("vfs: file already exists")
	ErrPermission        = errors.New("vfs: permission denied")
	ErrIsDirectory       = errors.New("vfs: is a directory")
	ErrNotDirectory      = &kindError{msg: "vfs: not a directory", kind: ErrNotExist}
	ErrDirectoryNotEmpty = errors.New("vfs: directory not empty")
	ErrReadOnly          = &kindError{msg: "vfs: read-only filesystem", kind: ErrPermission}

	// I/O errors
	ErrInvalidOptions = errors.New("vfs: invalid open options")
	ErrClosed         = errors.New("vfs: file already closed")
	ErrObjectTooLarge = errors.New("vfs: object exceeds backend size limit")
)

// kindError is a sentinel that also reports itself as a broader kind,
// e.g. listing a file is "not a directory" and "does not exist" at once.
type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string {
	return e.msg
}

func (e *kindError) Is(target error) bool {
	return target == e.kind
}

// NewPathError wraps err with the operation and virtual path it failed on.
func NewPathError(op, path string, err error) error {
	return &fs.PathError{Op: op, Path: path, Err: err}
}

// InvalidPath reports a malformed virtual path.
func InvalidPath(op, path string) error {
	return NewPathError(op, path, ErrInvalidPath)
}

// NotExist reports a missing entry.
func NotExist(op, path string) error {
	return NewPathError(op, path, ErrNotExist)
}

// PermissionDenied reports an operation refused at this layer.
func PermissionDenied(op, path string) error {
	return NewPathError(op, path, ErrPermission)
}

// LocationOverlap reports a mount base colliding with an existing one.
func LocationOverlap(base, existing string) error {
	return fmt.Errorf("%w: '%s' overlaps mounted '%s'", ErrLocationOverlap, base, existing)
}

// Errors collects the failures of several independent steps.
type Errors struct {
	mu     sync.RWMutex
	errors []error
}

func (e *Errors) Add(err error) {
	if err == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.errors = append(e.errors, err)
}

func (e *Errors) Errors() error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.errors) == 0 {
		return nil
	}

	return errors.Join(e.errors...)
}
