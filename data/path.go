package data

import (
	"strings"
)

// PathSeparator separates the segments of a virtual path.
const PathSeparator = "/"

// CleanPath validates a virtual path and returns its canonical form.
// Empty segments are dropped, so "a//b/" becomes "a/b". The empty path is
// valid and addresses the root of whatever FileSystem receives it.
// Roots, drive prefixes, "." and ".." are rejected with ErrInvalidPath.
func CleanPath(path string) (string, error) {
	if strings.HasPrefix(path, PathSeparator) {
		return "", ErrInvalidPath
	}

	segments := make([]string, 0, strings.Count(path, PathSeparator)+1)
	for i, segment := range strings.Split(path, PathSeparator) {
		if segment == "" {
			continue
		}
		if !isPlainSegment(segment) {
			return "", ErrInvalidPath
		}
		if i == 0 && isDrivePrefix(segment) {
			return "", ErrInvalidPath
		}
		segments = append(segments, segment)
	}

	return strings.Join(segments, PathSeparator), nil
}

// ValidatePath checks a virtual path and wraps failures for op.
func ValidatePath(op, path string) (string, error) {
	clean, err := CleanPath(path)
	if err != nil {
		return "", InvalidPath(op, path)
	}
	return clean, nil
}

// IsValidPath reports whether path only consists of plain segments.
func IsValidPath(path string) bool {
	_, err := CleanPath(path)
	return err == nil
}

func isPlainSegment(segment string) bool {
	if segment == "." || segment == ".." {
		return false
	}
	return !strings.ContainsAny(segment, "\\\x00")
}

func isDrivePrefix(segment string) bool {
	if len(segment) != 2 || segment[1] != ':' {
		return false
	}
	c := segment[0]
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// SplitPath returns the segments of a clean path.
func SplitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, PathSeparator)
}

// JoinPath joins clean paths, skipping empty parts.
func JoinPath(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			nonEmpty = append(nonEmpty, part)
		}
	}
	return strings.Join(nonEmpty, PathSeparator)
}

// ParentPath returns the parent of a clean path; the root is its own parent.
func ParentPath(path string) string {
	if idx := strings.LastIndex(path, PathSeparator); idx >= 0 {
		return path[:idx]
	}
	return ""
}

// BaseName returns the last segment of a clean path.
func BaseName(path string) string {
	if idx := strings.LastIndex(path, PathSeparator); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

// HasPathPrefix checks if path has the given prefix on a segment boundary.
// Both paths should be cleaned before calling.
func HasPathPrefix(path, prefix string) bool {
	// Root matches everything
	if prefix == "" {
		return true
	}

	// Exact match
	if path == prefix {
		return true
	}

	// Check if path starts with prefix followed by /
	return strings.HasPrefix(path, prefix+PathSeparator)
}

// TrimPathPrefix removes prefix from path and returns the remainder.
// The second result is false if prefix is not a segment prefix of path.
func TrimPathPrefix(path, prefix string) (string, bool) {
	if !HasPathPrefix(path, prefix) {
		return "", false
	}

	if prefix == "" {
		return path, true
	}

	if path == prefix {
		return "", true
	}

	return path[len(prefix)+1:], true
}
