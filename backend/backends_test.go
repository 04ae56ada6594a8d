package backend_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	iofs "io/fs"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/mwantia/mountfs"
	"github.com/mwantia/mountfs/backend"
	"github.com/mwantia/mountfs/backend/consul"
	"github.com/mwantia/mountfs/backend/ephemeral"
	"github.com/mwantia/mountfs/backend/postgres"
	"github.com/mwantia/mountfs/backend/s3"
	"github.com/mwantia/mountfs/backend/sqlite"
	"github.com/mwantia/mountfs/data"
	"github.com/mwantia/mountfs/log"
)

// TestBackendFactory creates a new backend instance for testing.
type TestBackendFactory func(t *testing.T) (backend.ObjectStorageBackend, error)

// GetTestBackendFactories returns all backend implementations to test.
// Remote backends are only included when their endpoint is configured.
func GetTestBackendFactories() map[string]TestBackendFactory {
	factories := map[string]TestBackendFactory{
		"ephemeral": func(t *testing.T) (backend.ObjectStorageBackend, error) {
			return ephemeral.NewEphemeralBackend(0), nil
		},
		"sqlite": func(t *testing.T) (backend.ObjectStorageBackend, error) {
			return sqlite.NewSQLiteBackend(":memory:", "test")
		},
	}

	if url := os.Getenv("MOUNTFS_TEST_POSTGRES_URL"); url != "" {
		factories["postgres"] = func(t *testing.T) (backend.ObjectStorageBackend, error) {
			return postgres.NewPostgresBackend(t.Context(), url, uuid.NewString())
		}
	}

	if addr := os.Getenv("MOUNTFS_TEST_CONSUL_ADDR"); addr != "" {
		factories["consul"] = func(t *testing.T) (backend.ObjectStorageBackend, error) {
			return consul.NewConsulBackend(&consul.ConsulBackendConfig{
				Address: addr,
				Prefix:  "mountfs-test/" + uuid.NewString(),
			})
		}
	}

	if endpoint := os.Getenv("MOUNTFS_TEST_S3_ENDPOINT"); endpoint != "" {
		factories["s3"] = func(t *testing.T) (backend.ObjectStorageBackend, error) {
			return s3.NewS3Backend(&s3.S3BackendConfig{
				Endpoint:     endpoint,
				Bucket:       "mountfs-test",
				AccessKey:    os.Getenv("MOUNTFS_TEST_S3_ACCESS_KEY"),
				SecretKey:    os.Getenv("MOUNTFS_TEST_S3_SECRET_KEY"),
				Prefix:       uuid.NewString(),
				CreateBucket: true,
			})
		}
	}

	return factories
}

func newTestFileSystem(t *testing.T, factory TestBackendFactory, opts ...backend.ObjectFileSystemOption) *backend.ObjectFileSystem {
	t.Helper()

	storage, err := factory(t)
	if err != nil {
		t.Fatalf("Backend init failed: %v", err)
	}

	opts = append([]backend.ObjectFileSystemOption{
		backend.WithLogger(log.NewWriterLogger("test", log.Error, io.Discard)),
	}, opts...)

	fs, err := backend.NewFileSystem(t.Context(), storage, opts...)
	if err != nil {
		t.Fatalf("NewFileSystem failed: %v", err)
	}
	// t.Context is already canceled when cleanups run
	t.Cleanup(func() {
		fs.RemoveDirAll(context.Background(), "")
		fs.Close()
	})

	return fs
}

func writeFile(t *testing.T, fs mountfs.FileSystem, path string, content []byte, opts data.OpenOptions) {
	t.Helper()

	f, err := fs.OpenFile(t.Context(), path, opts)
	if err != nil {
		t.Fatalf("Open %s for write failed: %v", path, err)
	}
	defer f.Close()

	if _, err := f.Write(content); err != nil {
		t.Fatalf("Write %s failed: %v", path, err)
	}
}

func readFile(t *testing.T, fs mountfs.FileSystem, path string) []byte {
	t.Helper()

	f, err := fs.OpenFile(t.Context(), path, data.OpenRead)
	if err != nil {
		t.Fatalf("Open %s for read failed: %v", path, err)
	}
	defer f.Close()

	got, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll %s failed: %v", path, err)
	}
	return got
}

// TestAllBackends_FileOperations verifies basic file create, write, and read operations
// across all backend implementations.
func TestAllBackends_FileOperations(t *testing.T) {
	for name, factory := range GetTestBackendFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			fs := newTestFileSystem(tst, factory)

			buffer := []byte("hello world")
			writeFile(tst, fs, "test.txt", buffer, data.OpenCreate)

			if got := readFile(tst, fs, "test.txt"); !bytes.Equal(got, buffer) {
				tst.Errorf("Expected %q, got %q", buffer, got)
			}

			meta, err := fs.Metadata(ctx, "test.txt")
			if err != nil {
				tst.Fatalf("Metadata failed: %v", err)
			}
			if !meta.IsFile() || meta.ReadOnly {
				tst.Errorf("Expected writable file, got %+v", meta)
			}
			if size, ok := meta.Length(); !ok || size != uint64(len(buffer)) {
				tst.Errorf("Expected size %d, got %d (%t)", len(buffer), size, ok)
			}

			if err := fs.RemoveFile(ctx, "test.txt"); err != nil {
				tst.Fatalf("RemoveFile failed: %v", err)
			}

			if _, err := fs.Metadata(ctx, "test.txt"); !errors.Is(err, data.ErrNotExist) {
				tst.Errorf("Expected ErrNotExist, got %v", err)
			}

			if err := fs.RemoveFile(ctx, "test.txt"); !errors.Is(err, data.ErrNotExist) {
				tst.Errorf("Expected ErrNotExist on second remove, got %v", err)
			}
		})
	}
}

// TestAllBackends_OpenOptions verifies create, exclusive create, truncate
// and append semantics.
func TestAllBackends_OpenOptions(t *testing.T) {
	for name, factory := range GetTestBackendFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			fs := newTestFileSystem(tst, factory)

			if _, err := fs.OpenFile(ctx, "missing.txt", data.OpenRead); !errors.Is(err, data.ErrNotExist) {
				tst.Errorf("Expected ErrNotExist without create, got %v", err)
			}

			writeFile(tst, fs, "file.txt", []byte("hello"), data.OpenCreateNew)

			if _, err := fs.OpenFile(ctx, "file.txt", data.OpenCreateNew); !errors.Is(err, data.ErrExist) {
				tst.Errorf("Expected ErrExist for exclusive create, got %v", err)
			}

			writeFile(tst, fs, "file.txt", []byte(" world"), data.OpenAppend)
			if got := string(readFile(tst, fs, "file.txt")); got != "hello world" {
				tst.Errorf("Expected appended content, got %q", got)
			}

			writeFile(tst, fs, "file.txt", []byte("bye"), data.OpenTruncate)
			if got := string(readFile(tst, fs, "file.txt")); got != "bye" {
				tst.Errorf("Expected truncated content, got %q", got)
			}

			// Plain write overwrites in place
			writeFile(tst, fs, "file.txt", []byte("B"), data.OpenWrite)
			if got := string(readFile(tst, fs, "file.txt")); got != "Bye" {
				tst.Errorf("Expected overwritten content, got %q", got)
			}

			if _, err := fs.OpenFile(ctx, "file.txt", data.OpenAppend|data.OpenTruncate); !errors.Is(err, data.ErrInvalidOptions) {
				tst.Errorf("Expected ErrInvalidOptions, got %v", err)
			}

			if _, err := fs.OpenFile(ctx, "file.txt", 0); !errors.Is(err, data.ErrInvalidOptions) {
				tst.Errorf("Expected ErrInvalidOptions for empty options, got %v", err)
			}

			if _, err := fs.OpenFile(ctx, "nope/file.txt", data.OpenCreate); !errors.Is(err, data.ErrNotExist) {
				tst.Errorf("Expected ErrNotExist for missing parent, got %v", err)
			}

			if _, err := fs.OpenFile(ctx, "file.txt/child", data.OpenCreate); err == nil {
				tst.Errorf("Expected error creating below a file")
			}
		})
	}
}

// TestAllBackends_Handles verifies read/write permissions, seeking and close
// behavior of open files.
func TestAllBackends_Handles(t *testing.T) {
	for name, factory := range GetTestBackendFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			fs := newTestFileSystem(tst, factory)

			f, err := fs.OpenFile(ctx, "seek.txt", data.OpenRead|data.OpenCreate)
			if err != nil {
				tst.Fatalf("Open failed: %v", err)
			}

			if _, err := f.Write([]byte("0123456789")); err != nil {
				tst.Fatalf("Write failed: %v", err)
			}

			pos, err := f.Seek(2, io.SeekStart)
			if err != nil || pos != 2 {
				tst.Fatalf("Seek failed: %d, %v", pos, err)
			}

			buf := make([]byte, 3)
			if _, err := io.ReadFull(f, buf); err != nil {
				tst.Fatalf("Read failed: %v", err)
			}
			if string(buf) != "234" {
				tst.Errorf("Expected %q, got %q", "234", buf)
			}

			if pos, err := f.Seek(-2, io.SeekEnd); err != nil || pos != 8 {
				tst.Errorf("SeekEnd returned %d, %v", pos, err)
			}

			if _, err := f.Seek(-20, io.SeekCurrent); !errors.Is(err, data.ErrInvalidOptions) {
				tst.Errorf("Expected ErrInvalidOptions for negative offset, got %v", err)
			}

			// Writing past the end zero-fills the gap
			if _, err := f.Seek(12, io.SeekStart); err != nil {
				tst.Fatalf("Seek failed: %v", err)
			}
			if _, err := f.Write([]byte("x")); err != nil {
				tst.Fatalf("Write failed: %v", err)
			}

			meta, err := f.Metadata()
			if err != nil {
				tst.Fatalf("Metadata failed: %v", err)
			}
			if size, _ := meta.Length(); size != 13 {
				tst.Errorf("Expected size 13, got %d", size)
			}

			if err := f.Close(); err != nil {
				tst.Fatalf("Close failed: %v", err)
			}
			if err := f.Close(); !errors.Is(err, data.ErrClosed) {
				tst.Errorf("Expected ErrClosed, got %v", err)
			}
			if _, err := f.Read(buf); !errors.Is(err, data.ErrClosed) {
				tst.Errorf("Expected ErrClosed on read, got %v", err)
			}

			got := readFile(tst, fs, "seek.txt")
			if want := []byte("0123456789\x00\x00x"); !bytes.Equal(got, want) {
				tst.Errorf("Expected %q, got %q", want, got)
			}

			ro, err := fs.OpenFile(ctx, "seek.txt", data.OpenRead)
			if err != nil {
				tst.Fatalf("Open failed: %v", err)
			}
			defer ro.Close()
			if _, err := ro.Write([]byte("no")); !errors.Is(err, data.ErrPermission) {
				tst.Errorf("Expected ErrPermission on write, got %v", err)
			}

			wo, err := fs.OpenFile(ctx, "seek.txt", data.OpenWrite)
			if err != nil {
				tst.Fatalf("Open failed: %v", err)
			}
			defer wo.Close()
			if _, err := wo.Read(buf); !errors.Is(err, data.ErrPermission) {
				tst.Errorf("Expected ErrPermission on read, got %v", err)
			}
		})
	}
}

// TestAllBackends_DirectoryOperations verifies directory creation, listing, and removal
// across all backend implementations.
func TestAllBackends_DirectoryOperations(t *testing.T) {
	for name, factory := range GetTestBackendFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			fs := newTestFileSystem(tst, factory)

			if err := fs.CreateDir(ctx, "a/b"); !errors.Is(err, data.ErrNotExist) {
				tst.Errorf("Expected ErrNotExist for missing parent, got %v", err)
			}

			if err := fs.CreateDirAll(ctx, "a/b/c"); err != nil {
				tst.Fatalf("CreateDirAll failed: %v", err)
			}
			if err := fs.CreateDirAll(ctx, "a/b/c"); err != nil {
				tst.Errorf("CreateDirAll on existing path failed: %v", err)
			}
			if err := fs.CreateDir(ctx, "a/b"); !errors.Is(err, data.ErrExist) {
				tst.Errorf("Expected ErrExist, got %v", err)
			}
			if err := fs.CreateDir(ctx, ""); !errors.Is(err, data.ErrExist) {
				tst.Errorf("Expected ErrExist for root, got %v", err)
			}

			writeFile(tst, fs, "a/file.txt", []byte("content"), data.OpenCreate)

			// Failures on an ancestor still name the requested path
			err := fs.CreateDirAll(ctx, "a/file.txt/sub")
			var pathErr *iofs.PathError
			if !errors.As(err, &pathErr) || pathErr.Op != "mkdirall" || pathErr.Path != "a/file.txt/sub" {
				tst.Errorf("Expected mkdirall error on a/file.txt/sub, got %v", err)
			}
			if !errors.Is(err, data.ErrNotDirectory) {
				tst.Errorf("Expected ErrNotDirectory, got %v", err)
			}

			entries, err := fs.ReadDir(ctx, "a")
			if err != nil {
				tst.Fatalf("ReadDir failed: %v", err)
			}

			paths := entries.Paths()
			if len(paths) != 2 || paths[0] != "a/b" || paths[1] != "a/file.txt" {
				tst.Fatalf("Expected [a/b a/file.txt], got %v", paths)
			}
			if !entries["a/b"].IsDir() || !entries["a/file.txt"].IsFile() {
				tst.Errorf("Unexpected entry types: %+v", entries)
			}

			root, err := fs.ReadDir(ctx, "")
			if err != nil {
				tst.Fatalf("ReadDir root failed: %v", err)
			}
			if len(root) != 1 || root["a"] == nil {
				tst.Errorf("Expected only 'a' in root, got %v", root.Paths())
			}

			if _, err := fs.ReadDir(ctx, "a/file.txt"); !errors.Is(err, data.ErrNotExist) {
				tst.Errorf("Expected ErrNotExist listing a file, got %v", err)
			}
			if _, err := fs.ReadDir(ctx, "missing"); !errors.Is(err, data.ErrNotExist) {
				tst.Errorf("Expected ErrNotExist listing missing dir, got %v", err)
			}

			if _, err := fs.OpenFile(ctx, "a", data.OpenRead); !errors.Is(err, data.ErrIsDirectory) {
				tst.Errorf("Expected ErrIsDirectory opening a dir, got %v", err)
			}
			if err := fs.RemoveFile(ctx, "a"); !errors.Is(err, data.ErrIsDirectory) {
				tst.Errorf("Expected ErrIsDirectory removing a dir, got %v", err)
			}
			if err := fs.RemoveDir(ctx, "a/file.txt"); !errors.Is(err, data.ErrNotDirectory) {
				tst.Errorf("Expected ErrNotDirectory, got %v", err)
			}
			if err := fs.RemoveDir(ctx, "a"); !errors.Is(err, data.ErrDirectoryNotEmpty) {
				tst.Errorf("Expected ErrDirectoryNotEmpty, got %v", err)
			}
			if err := fs.RemoveDir(ctx, ""); !errors.Is(err, data.ErrPermission) {
				tst.Errorf("Expected ErrPermission for root, got %v", err)
			}

			if err := fs.RemoveDir(ctx, "a/b/c"); err != nil {
				tst.Fatalf("RemoveDir failed: %v", err)
			}

			if err := fs.RemoveDirAll(ctx, "a"); err != nil {
				tst.Fatalf("RemoveDirAll failed: %v", err)
			}
			if _, err := fs.Metadata(ctx, "a/file.txt"); !errors.Is(err, data.ErrNotExist) {
				tst.Errorf("Expected ErrNotExist after RemoveDirAll, got %v", err)
			}
			if err := fs.RemoveDirAll(ctx, "a"); !errors.Is(err, data.ErrNotExist) {
				tst.Errorf("Expected ErrNotExist on second RemoveDirAll, got %v", err)
			}
		})
	}
}

// TestAllBackends_RemoveDirAllRoot verifies that clearing the root keeps the
// root itself.
func TestAllBackends_RemoveDirAllRoot(t *testing.T) {
	for name, factory := range GetTestBackendFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			fs := newTestFileSystem(tst, factory)

			if err := fs.CreateDirAll(ctx, "x/y"); err != nil {
				tst.Fatalf("CreateDirAll failed: %v", err)
			}
			writeFile(tst, fs, "top.txt", []byte("1"), data.OpenCreate)

			if err := fs.RemoveDirAll(ctx, ""); err != nil {
				tst.Fatalf("RemoveDirAll root failed: %v", err)
			}

			entries, err := fs.ReadDir(ctx, "")
			if err != nil {
				tst.Fatalf("ReadDir root failed: %v", err)
			}
			if len(entries) != 0 {
				tst.Errorf("Expected empty root, got %v", entries.Paths())
			}

			meta, err := fs.Metadata(ctx, "")
			if err != nil || !meta.IsDir() {
				tst.Errorf("Expected root directory, got %+v, %v", meta, err)
			}
		})
	}
}

// TestAllBackends_InvalidPaths verifies that malformed paths are rejected
// before any backend access.
func TestAllBackends_InvalidPaths(t *testing.T) {
	invalid := []string{"/abs", "a/../b", "./a", "c:", "a\\b"}

	for name, factory := range GetTestBackendFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			fs := newTestFileSystem(tst, factory)

			for _, path := range invalid {
				if _, err := fs.Metadata(ctx, path); !errors.Is(err, data.ErrInvalidPath) {
					tst.Errorf("Metadata(%q): expected ErrInvalidPath, got %v", path, err)
				}
				if _, err := fs.OpenFile(ctx, path, data.OpenCreate); !errors.Is(err, data.ErrInvalidPath) {
					tst.Errorf("OpenFile(%q): expected ErrInvalidPath, got %v", path, err)
				}
				if err := fs.CreateDir(ctx, path); !errors.Is(err, data.ErrInvalidPath) {
					tst.Errorf("CreateDir(%q): expected ErrInvalidPath, got %v", path, err)
				}
				if err := fs.RemoveDirAll(ctx, path); !errors.Is(err, data.ErrInvalidPath) {
					tst.Errorf("RemoveDirAll(%q): expected ErrInvalidPath, got %v", path, err)
				}
			}

			// Redundant separators are normalized, not rejected
			if err := fs.CreateDir(ctx, "dir//"); err != nil {
				tst.Errorf("CreateDir with trailing separator failed: %v", err)
			}
			if _, err := fs.Metadata(ctx, "dir"); err != nil {
				tst.Errorf("Metadata after normalized create failed: %v", err)
			}
		})
	}
}

// TestAllBackends_ReadOnly verifies that a filesystem opened read-only
// refuses every mutation but still serves reads.
func TestAllBackends_ReadOnly(t *testing.T) {
	for name, factory := range GetTestBackendFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()

			storage, err := factory(tst)
			if err != nil {
				tst.Fatalf("Backend init failed: %v", err)
			}

			logger := log.NewWriterLogger("test", log.Error, io.Discard)
			rw, err := backend.NewFileSystem(ctx, storage, backend.WithLogger(logger))
			if err != nil {
				tst.Fatalf("NewFileSystem failed: %v", err)
			}
			defer rw.Close()
			defer rw.RemoveDirAll(ctx, "")

			if err := rw.CreateDir(ctx, "dir"); err != nil {
				tst.Fatalf("CreateDir failed: %v", err)
			}
			writeFile(tst, rw, "dir/file.txt", []byte("data"), data.OpenCreate)

			ro, err := backend.NewFileSystem(ctx, storage, backend.WithLogger(logger), backend.AsReadOnly())
			if err != nil {
				tst.Fatalf("NewFileSystem failed: %v", err)
			}

			if got := string(readFile(tst, ro, "dir/file.txt")); got != "data" {
				tst.Errorf("Expected %q, got %q", "data", got)
			}

			meta, err := ro.Metadata(ctx, "dir/file.txt")
			if err != nil {
				tst.Fatalf("Metadata failed: %v", err)
			}
			if !meta.ReadOnly {
				tst.Errorf("Expected read-only metadata")
			}

			checks := map[string]error{
				"open write": func() error {
					_, err := ro.OpenFile(ctx, "dir/file.txt", data.OpenWrite)
					return err
				}(),
				"remove":    ro.RemoveFile(ctx, "dir/file.txt"),
				"mkdir":     ro.CreateDir(ctx, "other"),
				"mkdirall":  ro.CreateDirAll(ctx, "other/deep"),
				"rmdir":     ro.RemoveDir(ctx, "dir"),
				"removeall": ro.RemoveDirAll(ctx, "dir"),
			}
			for op, err := range checks {
				if !errors.Is(err, data.ErrReadOnly) {
					tst.Errorf("%s: expected ErrReadOnly, got %v", op, err)
				}
				if !errors.Is(err, data.ErrPermission) {
					tst.Errorf("%s: expected ErrReadOnly to match ErrPermission", op)
				}
			}
		})
	}
}

// TestMaxObjectSize verifies that writes beyond the backend limit fail.
func TestMaxObjectSize(t *testing.T) {
	factory := func(t *testing.T) (backend.ObjectStorageBackend, error) {
		return ephemeral.NewEphemeralBackend(8), nil
	}
	fs := newTestFileSystem(t, factory)

	f, err := fs.OpenFile(t.Context(), "small.txt", data.OpenCreate)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	if _, err := f.Write([]byte("12345678")); err != nil {
		t.Fatalf("Write within limit failed: %v", err)
	}
	if _, err := f.Write([]byte("9")); !errors.Is(err, data.ErrObjectTooLarge) {
		t.Errorf("Expected ErrObjectTooLarge, got %v", err)
	}
}
