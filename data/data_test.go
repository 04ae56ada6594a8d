package data

import (
	"errors"
	"io/fs"
	"testing"
)

func TestCleanPath(t *testing.T) {
	valid := map[string]string{
		"":          "",
		"a":         "a",
		"a/b/c":     "a/b/c",
		"a//b/":     "a/b",
		"a/b/":      "a/b",
		"..a/b..":   "..a/b..",
		"x/c:":      "x/c:",
		"dir.d/f.x": "dir.d/f.x",
	}

	for input, want := range valid {
		got, err := CleanPath(input)
		if err != nil {
			t.Errorf("CleanPath(%q) failed: %v", input, err)
			continue
		}
		if got != want {
			t.Errorf("CleanPath(%q) = %q, want %q", input, got, want)
		}
	}

	invalid := []string{"/", "/a", ".", "a/./b", "..", "a/../b", "C:", "c:/x", "a\\b", "a\x00b"}
	for _, input := range invalid {
		if _, err := CleanPath(input); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("CleanPath(%q): expected ErrInvalidPath, got %v", input, err)
		}
		if IsValidPath(input) {
			t.Errorf("IsValidPath(%q) = true", input)
		}
	}
}

func TestValidatePath(t *testing.T) {
	_, err := ValidatePath("stat", "../x")

	var pathErr *fs.PathError
	if !errors.As(err, &pathErr) {
		t.Fatalf("Expected *fs.PathError, got %T", err)
	}
	if pathErr.Op != "stat" || pathErr.Path != "../x" {
		t.Errorf("Unexpected path error %+v", pathErr)
	}
	if !errors.Is(err, ErrInvalidPath) {
		t.Errorf("Expected ErrInvalidPath, got %v", err)
	}
}

func TestPathHelpers(t *testing.T) {
	if got := JoinPath("", "a", "", "b/c"); got != "a/b/c" {
		t.Errorf("JoinPath = %q", got)
	}
	if got := ParentPath("a/b/c"); got != "a/b" {
		t.Errorf("ParentPath = %q", got)
	}
	if got := ParentPath("a"); got != "" {
		t.Errorf("ParentPath of top-level = %q", got)
	}
	if got := BaseName("a/b/c"); got != "c" {
		t.Errorf("BaseName = %q", got)
	}
	if got := SplitPath(""); got != nil {
		t.Errorf("SplitPath of root = %v", got)
	}
	if got := SplitPath("a/b"); len(got) != 2 {
		t.Errorf("SplitPath = %v", got)
	}
}

func TestHasPathPrefix(t *testing.T) {
	tests := []struct {
		path, prefix string
		want         bool
		rest         string
	}{
		{"a/b", "", true, "a/b"},
		{"a/b", "a", true, "b"},
		{"a/b", "a/b", true, ""},
		{"ab/c", "a", false, ""},
		{"a", "a/b", false, ""},
		{"", "", true, ""},
	}

	for _, tt := range tests {
		if got := HasPathPrefix(tt.path, tt.prefix); got != tt.want {
			t.Errorf("HasPathPrefix(%q, %q) = %t", tt.path, tt.prefix, got)
		}

		rest, ok := TrimPathPrefix(tt.path, tt.prefix)
		if ok != tt.want || rest != tt.rest {
			t.Errorf("TrimPathPrefix(%q, %q) = %q, %t", tt.path, tt.prefix, rest, ok)
		}
	}
}

func TestOpenOptions(t *testing.T) {
	tests := map[string]struct {
		opts      OpenOptions
		want      OpenOptions
		wantError bool
	}{
		"read":            {opts: OpenRead, want: OpenRead},
		"write":           {opts: OpenWrite, want: OpenWrite},
		"append":          {opts: OpenAppend, want: OpenAppend | OpenWrite},
		"truncate":        {opts: OpenTruncate, want: OpenTruncate | OpenWrite},
		"create":          {opts: OpenCreate, want: OpenCreate | OpenWrite},
		"create new":      {opts: OpenCreateNew, want: OpenCreateNew | OpenTruncate | OpenWrite},
		"read and append": {opts: OpenRead | OpenAppend, want: OpenRead | OpenAppend | OpenWrite},
		"empty":           {opts: 0, wantError: true},
		"append truncate": {opts: OpenAppend | OpenTruncate, wantError: true},
		"append new":      {opts: OpenAppend | OpenCreateNew, wantError: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := tt.opts.Validate()
			if tt.wantError {
				if !errors.Is(err, ErrInvalidOptions) {
					t.Errorf("Expected ErrInvalidOptions, got %v", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("Validate failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Validate() = %s, want %s", got, tt.want)
			}
		})
	}

	opts := OpenCreate
	if !opts.CanWrite() || opts.CanRead() || !opts.HasCreate() || opts.HasCreateNew() {
		t.Errorf("Unexpected accessors for %s", opts)
	}
	if got := (OpenRead | OpenCreateNew).String(); got != "read|create_new" {
		t.Errorf("String() = %q", got)
	}
	if got := OpenOptions(0).String(); got != "none" {
		t.Errorf("String() of empty = %q", got)
	}
}

func TestErrorKinds(t *testing.T) {
	if !errors.Is(ErrReadOnly, ErrPermission) {
		t.Errorf("ErrReadOnly should match ErrPermission")
	}
	if !errors.Is(NewPathError("readdir", "f", ErrNotDirectory), ErrNotExist) {
		t.Errorf("ErrNotDirectory should match ErrNotExist")
	}
	if errors.Is(ErrPermission, ErrReadOnly) {
		t.Errorf("ErrPermission should not match ErrReadOnly")
	}
	if !errors.Is(LocationOverlap("a/b", "a"), ErrLocationOverlap) {
		t.Errorf("LocationOverlap should wrap ErrLocationOverlap")
	}

	errs := Errors{}
	errs.Add(nil)
	if errs.Errors() != nil {
		t.Errorf("Expected nil for no errors")
	}
	errs.Add(ErrClosed)
	errs.Add(ErrExist)
	if err := errs.Errors(); !errors.Is(err, ErrClosed) || !errors.Is(err, ErrExist) {
		t.Errorf("Expected joined errors, got %v", err)
	}
}

func TestFileType(t *testing.T) {
	if !FileTypeArchive.IsFile() || !FileTypeArchive.IsDir() {
		t.Errorf("Archive should be file and directory")
	}
	if FileTypeFile.IsDir() || FileTypeDirectory.IsFile() {
		t.Errorf("Unexpected type bits")
	}
	if FileTypeDirectory.String() != "directory" || FileType(0).String() != "unknown" {
		t.Errorf("Unexpected type names")
	}

	meta := VirtualDirectoryMetadata()
	if !meta.ReadOnly || !meta.IsDir() || meta.Modified != nil {
		t.Errorf("Unexpected virtual directory metadata %+v", meta)
	}
	if _, ok := meta.Length(); ok {
		t.Errorf("Virtual directory should not report a length")
	}

	entries := DirEntries{"b": meta, "a/c": meta, "a": meta}
	paths := entries.Paths()
	if len(paths) != 3 || paths[0] != "a" || paths[1] != "a/c" || paths[2] != "b" {
		t.Errorf("Paths() = %v", paths)
	}
}
