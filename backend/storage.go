package backend

import (
	"context"
	"time"

	"github.com/mwantia/mountfs/data"
)

// ObjectStorageBackend stores files and directories as objects addressed by
// clean virtual paths. The empty key is the root and always exists as a
// directory; it can neither be created nor deleted.
type ObjectStorageBackend interface {
	Backend

	// CreateObject creates an empty file or directory at key.
	// Returns ErrExist if key exists, ErrNotExist if the parent is missing
	// and ErrNotDirectory if the parent is a file.
	CreateObject(ctx context.Context, key string, fileType data.FileType) (*ObjectStat, error)

	// ReadObject reads up to len(buf) bytes at offset.
	// Returns io.EOF once offset reaches the end of the object.
	ReadObject(ctx context.Context, key string, offset int64, buf []byte) (int, error)

	// WriteObject writes buf at offset, zero-filling any gap.
	WriteObject(ctx context.Context, key string, offset int64, buf []byte) (int, error)

	// DeleteObject removes key. A directory with children is only removed
	// with force, otherwise ErrDirectoryNotEmpty is returned.
	DeleteObject(ctx context.Context, key string, force bool) error

	// ListObjects returns the direct children of the directory at key.
	// Keys of the returned stats are full keys, not basenames.
	ListObjects(ctx context.Context, key string) ([]*ObjectStat, error)

	HeadObject(ctx context.Context, key string) (*ObjectStat, error)

	TruncateObject(ctx context.Context, key string, size int64) error
}

// ObjectStat describes a single stored object.
// Zero times mean the backend does not track them.
type ObjectStat struct {
	Key        string
	Type       data.FileType
	Size       int64
	ETag       string
	CreateTime time.Time
	ModifyTime time.Time
	AccessTime time.Time
}

// RootStat returns the stat of the implicit root directory.
func RootStat() *ObjectStat {
	return &ObjectStat{
		Type: data.FileTypeDirectory,
	}
}

// IsDir returns true if the object is a directory.
func (s *ObjectStat) IsDir() bool {
	return s.Type.IsDir()
}

// ToMetadata converts the stat into contract metadata.
func (s *ObjectStat) ToMetadata(readOnly bool) *data.Metadata {
	meta := &data.Metadata{
		ReadOnly: readOnly,
		Type:     s.Type,
		Created:  optionalTime(s.CreateTime),
		Accessed: optionalTime(s.AccessTime),
		Modified: optionalTime(s.ModifyTime),
	}

	if !s.IsDir() {
		size := uint64(s.Size)
		meta.Len = &size
	}

	return meta
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
