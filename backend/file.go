package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/mwantia/mountfs"
	"github.com/mwantia/mountfs/data"
	"github.com/mwantia/mountfs/log"
)

// ObjectFile is an open file on an ObjectFileSystem. Every read and write
// goes straight to the backend at the current offset; nothing is buffered.
type ObjectFile struct {
	mu  sync.Mutex
	ctx context.Context
	log *log.Logger

	fs     *ObjectFileSystem
	key    string
	offset int64
	flags  data.OpenOptions
	closed bool
}

var _ mountfs.File = (*ObjectFile)(nil)

func newObjectFile(ctx context.Context, log *log.Logger, fs *ObjectFileSystem, key string, flags data.OpenOptions) *ObjectFile {
	return &ObjectFile{
		ctx:   ctx,
		log:   log,
		fs:    fs,
		key:   key,
		flags: flags,
	}
}

// IsBusy tries to return the current state of the file.
// It should be used to determine, if it's safe to close a file.
func (of *ObjectFile) IsBusy() bool {
	if !of.mu.TryLock() {
		return true
	}
	of.mu.Unlock()

	return false
}

// CanRead returns true if the file can be read, otherwise false.
func (of *ObjectFile) CanRead() bool {
	return of.flags.CanRead()
}

// CanWrite returns true if the file can be written, otherwise false.
func (of *ObjectFile) CanWrite() bool {
	return of.flags.CanWrite()
}

// Read reads up to len(p) bytes from the file at the current offset.
// Returns ErrPermission if the file was not opened with read access.
func (of *ObjectFile) Read(p []byte) (n int, err error) {
	of.mu.Lock()
	defer of.mu.Unlock()

	if of.closed {
		of.log.Error("Read: attempted to read from closed file %s", of.key)
		return 0, data.ErrClosed
	}

	if !of.flags.CanRead() {
		of.log.Debug("Read: no read permission for %s (flags=%s)", of.key, of.flags)
		return 0, data.ErrPermission
	}

	if err := of.ctx.Err(); err != nil {
		return 0, err
	}

	n, err = of.fs.storage.ReadObject(of.ctx, of.key, of.offset, p)
	if n > 0 {
		of.offset += int64(n)
		of.log.Debug("Read: read %d bytes from %s, new offset=%d", n, of.key, of.offset)
	}

	if err != nil && err != io.EOF {
		of.log.Error("Read: failed to read from %s - %v", of.key, err)
	}

	return n, err
}

// Write writes len(p) bytes at the current offset, or at the end of the
// file when opened for appending.
// Returns ErrPermission if the file was not opened with write access.
func (of *ObjectFile) Write(p []byte) (n int, err error) {
	of.mu.Lock()
	defer of.mu.Unlock()

	if of.closed {
		of.log.Error("Write: attempted to write to closed file %s", of.key)
		return 0, data.ErrClosed
	}

	if !of.flags.CanWrite() {
		of.log.Debug("Write: no write permission for %s (flags=%s)", of.key, of.flags)
		return 0, data.ErrPermission
	}

	if err := of.ctx.Err(); err != nil {
		return 0, err
	}

	stat, err := of.fs.storage.HeadObject(of.ctx, of.key)
	if err != nil {
		of.log.Error("Write: failed to read object stat for %s - %v", of.key, err)
		return 0, err
	}

	if stat.IsDir() {
		return 0, data.ErrIsDirectory
	}

	if of.flags.HasAppend() {
		of.offset = stat.Size
	}

	newSize := max(of.offset+int64(len(p)), stat.Size)
	if caps := of.fs.storage.GetCapabilities(); caps.Exceeds(newSize) {
		of.log.Debug("Write: object size %d bytes exceeds maximum %d bytes for %s", newSize, caps.MaxObjectSize, of.key)
		return 0, fmt.Errorf("%w: %d > %d bytes", data.ErrObjectTooLarge, newSize, caps.MaxObjectSize)
	}

	n, err = of.fs.storage.WriteObject(of.ctx, of.key, of.offset, p)
	if n > 0 {
		of.offset += int64(n)
		of.log.Debug("Write: wrote %d bytes to %s, new offset=%d", n, of.key, of.offset)
	}

	if err != nil {
		of.log.Error("Write: failed to write to %s - %v", of.key, err)
	}

	return n, err
}

// Seek sets the offset for the next Read or Write and returns it.
func (of *ObjectFile) Seek(offset int64, whence int) (int64, error) {
	of.mu.Lock()
	defer of.mu.Unlock()

	if of.closed {
		return 0, data.ErrClosed
	}

	var newOffset int64
	switch whence {
	case io.SeekStart:
		newOffset = offset
	case io.SeekCurrent:
		newOffset = of.offset + offset
	case io.SeekEnd:
		stat, err := of.fs.storage.HeadObject(of.ctx, of.key)
		if err != nil {
			of.log.Error("Seek: failed to read object stat for %s - %v", of.key, err)
			return 0, err
		}
		newOffset = stat.Size + offset
	default:
		return 0, fmt.Errorf("%w: whence %d", data.ErrInvalidOptions, whence)
	}

	if newOffset < 0 {
		return 0, fmt.Errorf("%w: negative offset %d", data.ErrInvalidOptions, newOffset)
	}

	of.offset = newOffset
	of.log.Debug("Seek: set offset to %d for %s", newOffset, of.key)
	return newOffset, nil
}

// Metadata returns the current metadata of the open file.
func (of *ObjectFile) Metadata() (*data.Metadata, error) {
	of.mu.Lock()
	defer of.mu.Unlock()

	if of.closed {
		return nil, data.ErrClosed
	}

	stat, err := of.fs.storage.HeadObject(of.ctx, of.key)
	if err != nil {
		if errors.Is(err, data.ErrNotExist) {
			of.log.Debug("Metadata: %s was removed while open", of.key)
		}
		return nil, err
	}

	return stat.ToMetadata(of.fs.readOnly), nil
}

// Close marks the file as closed. A second Close returns ErrClosed.
func (of *ObjectFile) Close() error {
	of.mu.Lock()
	defer of.mu.Unlock()

	if of.closed {
		return data.ErrClosed
	}

	of.closed = true
	of.log.Debug("Close: closed %s", of.key)
	return nil
}
