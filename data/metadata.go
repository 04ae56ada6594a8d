package data

import (
	"io/fs"
	"slices"
	"time"
)

// Metadata is a read-only snapshot of an entry. Optional fields stay nil when
// the backend cannot supply them.
type Metadata struct {
	ReadOnly bool     `json:"readonly"`
	Type     FileType `json:"type"`

	Len      *uint64    `json:"len,omitempty"`
	Created  *time.Time `json:"created,omitempty"`
	Accessed *time.Time `json:"accessed,omitempty"`
	Modified *time.Time `json:"modified,omitempty"`
}

// VirtualDirectoryMetadata describes a directory that only exists because a
// mount point lives beneath it.
func VirtualDirectoryMetadata() *Metadata {
	return &Metadata{
		ReadOnly: true,
		Type:     FileTypeDirectory,
	}
}

// NewFileMetadata creates metadata for a regular file of the given size.
func NewFileMetadata(size uint64, created, modified time.Time) *Metadata {
	return &Metadata{
		Type:     FileTypeFile,
		Len:      &size,
		Created:  optionalTime(created),
		Modified: optionalTime(modified),
	}
}

// NewDirectoryMetadata creates metadata for a backed directory.
func NewDirectoryMetadata(created, modified time.Time) *Metadata {
	return &Metadata{
		Type:     FileTypeDirectory,
		Created:  optionalTime(created),
		Modified: optionalTime(modified),
	}
}

// FromFileInfo converts OS metadata.
func FromFileInfo(info fs.FileInfo) *Metadata {
	size := uint64(info.Size())
	meta := &Metadata{
		ReadOnly: info.Mode().Perm()&0o222 == 0,
		Type:     FileTypeFile,
		Len:      &size,
		Modified: optionalTime(info.ModTime()),
	}
	if info.IsDir() {
		meta.Type = FileTypeDirectory
	}

	// Creation and access times are platform specific
	meta.Created, meta.Accessed = fileTimes(info)
	return meta
}

func (m *Metadata) IsDir() bool {
	return m.Type.IsDir()
}

func (m *Metadata) IsFile() bool {
	return m.Type.IsFile()
}

// Length returns the size in bytes, if known.
func (m *Metadata) Length() (uint64, bool) {
	if m.Len == nil {
		return 0, false
	}
	return *m.Len, true
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// DirEntries maps child paths to their metadata. Keys are full paths
// relative to the FileSystem that produced them, never bare names.
type DirEntries map[string]*Metadata

// Paths returns the keys in lexical order.
func (d DirEntries) Paths() []string {
	paths := make([]string, 0, len(d))
	for path := range d {
		paths = append(paths, path)
	}
	slices.Sort(paths)
	return paths
}
