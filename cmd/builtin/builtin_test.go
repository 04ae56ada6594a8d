package builtin_test

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/mwantia/mountfs"
	"github.com/mwantia/mountfs/backend"
	"github.com/mwantia/mountfs/backend/ephemeral"
	"github.com/mwantia/mountfs/cmd"
	"github.com/mwantia/mountfs/cmd/builtin"
	"github.com/mwantia/mountfs/data"
	"github.com/mwantia/mountfs/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*cmd.Manager, *mountfs.VirtualFileSystem) {
	t.Helper()

	logger := log.NewWriterLogger("test", log.Error, io.Discard)

	vfs, err := mountfs.NewVirtualFileSystem(mountfs.WithLogger(logger))
	require.NoError(t, err)
	t.Cleanup(func() { vfs.Close() })

	for _, base := range []string{"data", "cache/tmp"} {
		fs, err := backend.NewFileSystem(t.Context(), ephemeral.NewEphemeralBackend(0), backend.WithLogger(logger))
		require.NoError(t, err)
		require.NoError(t, vfs.Mount(t.Context(), base, fs))
	}

	m := cmd.NewManager(vfs, logger)
	require.NoError(t, builtin.Register(m))
	return m, vfs
}

func run(t *testing.T, m *cmd.Manager, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	_, err := m.Execute(t.Context(), &buf, args...)
	return buf.String(), err
}

func TestWriteAndCat(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := run(t, m, "write", "data/hello.txt", "hello", "world")
	require.NoError(t, err)

	out, err := run(t, m, "cat", "data/hello.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello world", out)

	_, err = run(t, m, "write", "-a", "-n", "data/hello.txt", "!")
	require.NoError(t, err)

	out, err = run(t, m, "cat", "data/hello.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello world!\n", out)

	_, err = run(t, m, "write", "-x", "data/hello.txt", "again")
	assert.ErrorIs(t, err, data.ErrExist)

	_, err = run(t, m, "write", "-a", "-x", "data/hello.txt")
	assert.Error(t, err)
}

func TestMkdirLsRm(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := run(t, m, "mkdir", "data/a/b")
	assert.ErrorIs(t, err, data.ErrNotExist)

	_, err = run(t, m, "mkdir", "-p", "data/a/b")
	require.NoError(t, err)

	_, err = run(t, m, "write", "data/a/file.txt", "12345")
	require.NoError(t, err)

	out, err := run(t, m, "ls", "data/a")
	require.NoError(t, err)
	assert.Equal(t, "b\nfile.txt\n", out)

	out, err = run(t, m, "ls", "-l", "data/a")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "drw"))
	assert.Contains(t, lines[1], "5 B")
	assert.True(t, strings.HasSuffix(lines[1], "file.txt"))

	_, err = run(t, m, "rmdir", "data/a")
	assert.ErrorIs(t, err, data.ErrDirectoryNotEmpty)

	_, err = run(t, m, "rm", "data/a")
	assert.ErrorIs(t, err, data.ErrIsDirectory)

	_, err = run(t, m, "rm", "-r", "data/a")
	require.NoError(t, err)

	out, err = run(t, m, "ls", "data")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestLsBoundary(t *testing.T) {
	m, _ := newTestManager(t)

	out, err := run(t, m, "ls")
	require.NoError(t, err)
	assert.Equal(t, "cache/tmp\ndata\n", out)

	out, err = run(t, m, "ls", "-l", "cache")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "dr-"))
	assert.Contains(t, out, "tmp")

	_, err = run(t, m, "mkdir", "cache/other")
	assert.ErrorIs(t, err, data.ErrPermission)
}

func TestLsNestedTable(t *testing.T) {
	m, vfs := newTestManager(t)
	logger := log.NewWriterLogger("test", log.Error, io.Discard)

	inner, err := mountfs.NewVirtualFileSystem(mountfs.WithLogger(logger))
	require.NoError(t, err)
	fs, err := backend.NewFileSystem(t.Context(), ephemeral.NewEphemeralBackend(0), backend.WithLogger(logger))
	require.NoError(t, err)
	require.NoError(t, inner.Mount(t.Context(), "cache", fs))
	require.NoError(t, vfs.Mount(t.Context(), "var", inner))

	_, err = run(t, m, "mkdir", "-p", "var/cache/x/sub")
	require.NoError(t, err)
	_, err = run(t, m, "write", "var/cache/x/f", "abc")
	require.NoError(t, err)

	out, err := run(t, m, "ls", "var/cache/x")
	require.NoError(t, err)
	assert.Equal(t, "f\nsub\n", out)

	out, err = run(t, m, "ls", "var")
	require.NoError(t, err)
	assert.Equal(t, "cache\n", out)

	out, err = run(t, m, "ls", "var/cache")
	require.NoError(t, err)
	assert.Equal(t, "x\n", out)
}

func TestStat(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := run(t, m, "write", "data/f", "abc")
	require.NoError(t, err)

	out, err := run(t, m, "stat", "data/f")
	require.NoError(t, err)
	assert.Contains(t, out, "Type:     file")
	assert.Contains(t, out, "Size:     3 (3 B)")

	out, err = run(t, m, "stat", "cache")
	require.NoError(t, err)
	assert.Contains(t, out, "Type:     directory")
	assert.Contains(t, out, "ReadOnly: true")

	_, err = run(t, m, "stat")
	assert.Error(t, err)

	_, err = run(t, m, "stat", "nowhere")
	assert.ErrorIs(t, err, data.ErrNotExist)
}

func TestMounts(t *testing.T) {
	m, _ := newTestManager(t)

	out, err := run(t, m, "mounts")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "cache/tmp"))
	assert.Contains(t, lines[0], "ephemeral")
	assert.True(t, strings.HasPrefix(lines[1], "data"))
}

func TestMounts_NotATable(t *testing.T) {
	logger := log.NewWriterLogger("test", log.Error, io.Discard)
	fs, err := backend.NewFileSystem(t.Context(), ephemeral.NewEphemeralBackend(0), backend.WithLogger(logger))
	require.NoError(t, err)

	m := cmd.NewManager(fs, logger)
	require.NoError(t, builtin.Register(m))

	_, err = run(t, m, "mounts")
	assert.Error(t, err)
}

func TestHelp(t *testing.T) {
	m, _ := newTestManager(t)

	out, err := run(t, m, "help")
	require.NoError(t, err)
	for _, name := range []string{"cat", "help", "ls", "mkdir", "mounts", "rm", "rmdir", "stat", "write"} {
		assert.Contains(t, out, name)
	}

	out, err = run(t, m, "help", "rm")
	require.NoError(t, err)
	assert.Contains(t, out, "usage: rm [-r] <path>...")
	assert.Contains(t, out, "-r, --recursive")

	_, err = run(t, m, "help", "nope")
	assert.Error(t, err)
}
