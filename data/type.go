package data

// FileType classifies an entry. It is a bit-set so that FileTypeArchive can
// describe an entry that is both; no backend in this module produces it.
type FileType uint16

const (
	FileTypeFile      FileType = 1 << iota // Regular file
	FileTypeDirectory                      // Directory

	// Reserved: file and directory at once.
	FileTypeArchive = FileTypeFile | FileTypeDirectory
)

// IsFile reports whether the file bit is set.
func (t FileType) IsFile() bool {
	return t&FileTypeFile != 0
}

// IsDir reports whether the directory bit is set.
func (t FileType) IsDir() bool {
	return t&FileTypeDirectory != 0
}

func (t FileType) String() string {
	switch t {
	case FileTypeFile:
		return "file"
	case FileTypeDirectory:
		return "directory"
	case FileTypeArchive:
		return "archive"
	default:
		return "unknown"
	}
}
