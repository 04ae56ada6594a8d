package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mwantia/mountfs/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Mounts(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
  no_terminal: true

mounts:
  - path: "tmp//cache/"
    type: ephemeral
    options:
      max_object_size: 1024
  - path: data
    type: SQLite
    read_only: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.True(t, cfg.Logging.NoTerminal)

	require.Len(t, cfg.Mounts, 2)
	assert.Equal(t, "tmp/cache", cfg.Mounts[0].Path)
	assert.Equal(t, "ephemeral", cfg.Mounts[0].Type)
	assert.EqualValues(t, 1024, cfg.Mounts[0].Options["max_object_size"])

	assert.Equal(t, "sqlite", cfg.Mounts[1].Type)
	assert.True(t, cfg.Mounts[1].ReadOnly)
	assert.NotNil(t, cfg.Mounts[1].Options)
}

func TestLoad_NoConfigFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	require.Len(t, cfg.Mounts, 1)
	assert.Equal(t, "", cfg.Mounts[0].Path)
	assert.Equal(t, "ephemeral", cfg.Mounts[0].Type)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "mounts: [[[")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	t.Setenv("MOUNTFS_LOGGING_LEVEL", "warn")

	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "WARN", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	tests := map[string]struct {
		mounts  []MountConfig
		wantErr error
	}{
		"disjoint": {
			mounts: []MountConfig{
				{Path: "a", Type: "ephemeral"},
				{Path: "b/c", Type: "ephemeral"},
				{Path: "ab", Type: "ephemeral"},
			},
		},
		"duplicate": {
			mounts: []MountConfig{
				{Path: "a", Type: "ephemeral"},
				{Path: "a", Type: "sqlite"},
			},
		},
		"nested below": {
			mounts: []MountConfig{
				{Path: "a", Type: "ephemeral"},
				{Path: "a/b", Type: "ephemeral"},
			},
			wantErr: data.ErrLocationOverlap,
		},
		"nested above": {
			mounts: []MountConfig{
				{Path: "a/b", Type: "ephemeral"},
				{Path: "a", Type: "ephemeral"},
			},
			wantErr: data.ErrLocationOverlap,
		},
		"root overlaps everything": {
			mounts: []MountConfig{
				{Path: "", Type: "ephemeral"},
				{Path: "a", Type: "ephemeral"},
			},
			wantErr: data.ErrLocationOverlap,
		},
		"invalid path": {
			mounts: []MountConfig{
				{Path: "/abs", Type: "ephemeral"},
			},
		},
		"unknown type": {
			mounts: []MountConfig{
				{Path: "a", Type: "floppy"},
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := &Config{Mounts: tt.mounts}
			ApplyDefaults(cfg)

			err := Validate(cfg)
			switch {
			case name == "disjoint":
				assert.NoError(t, err)
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			default:
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_LogLevel(t *testing.T) {
	cfg := &Config{Logging: LoggingConfig{Level: "verbose"}}
	ApplyDefaults(cfg)

	assert.Error(t, Validate(cfg))
}

func TestRegisterFactory_Duplicate(t *testing.T) {
	err := RegisterFactory("ephemeral", createEphemeralFileSystem)
	assert.Error(t, err)
	assert.Contains(t, BackendTypes(), "direct")
}

func TestBuild(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("hello"), 0o644))

	cfg := &Config{
		Logging: LoggingConfig{Level: "error", NoTerminal: true},
		Mounts: []MountConfig{
			{Path: "tmp", Type: "ephemeral"},
			{Path: "db", Type: "sqlite"},
			{Path: "host", Type: "direct", ReadOnly: true, Options: map[string]any{"path": dir}},
		},
	}
	ApplyDefaults(cfg)
	require.NoError(t, Validate(cfg))

	vfs, err := Build(t.Context(), cfg)
	require.NoError(t, err)
	defer vfs.Close()

	mounts := vfs.Mounts()
	require.Len(t, mounts, 3)
	assert.Equal(t, "db", mounts[0].Path)
	assert.Equal(t, "sqlite", mounts[0].Backend)
	assert.Equal(t, "host", mounts[1].Path)
	assert.Equal(t, "direct", mounts[1].Backend)
	assert.Equal(t, "tmp", mounts[2].Path)

	require.NoError(t, vfs.CreateDir(t.Context(), "tmp/cache"))
	require.NoError(t, vfs.CreateDir(t.Context(), "db/cache"))

	entries, err := vfs.ReadDir(t.Context(), "host")
	require.NoError(t, err)
	require.Contains(t, entries, "readme.txt")
	assert.True(t, entries["readme.txt"].ReadOnly)

	err = vfs.CreateDir(t.Context(), "host/new")
	assert.True(t, errors.Is(err, data.ErrReadOnly))
}

func TestBuild_FailedMountClosesTable(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{Level: "error", NoTerminal: true},
		Mounts: []MountConfig{
			{Path: "tmp", Type: "ephemeral"},
			{Path: "host", Type: "direct", Options: map[string]any{"path": filepath.Join(t.TempDir(), "missing")}},
		},
	}
	ApplyDefaults(cfg)

	_, err := Build(t.Context(), cfg)
	assert.ErrorIs(t, err, data.ErrNotExist)
}

func TestBuild_UnknownOption(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{Level: "error", NoTerminal: true},
		Mounts: []MountConfig{
			{Path: "tmp", Type: "ephemeral", Options: map[string]any{"max_size": 1}},
		},
	}
	ApplyDefaults(cfg)

	_, err := Build(t.Context(), cfg)
	assert.Error(t, err)
}

func TestWriteSample(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSample(&buf))

	path := writeConfig(t, buf.String())
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.Mounts, 3)
	assert.Equal(t, "direct", cfg.Mounts[2].Type)
	assert.True(t, cfg.Mounts[2].ReadOnly)
}
