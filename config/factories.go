package config

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/mitchellh/mapstructure"
	"github.com/mwantia/mountfs"
	"github.com/mwantia/mountfs/backend"
	"github.com/mwantia/mountfs/backend/consul"
	"github.com/mwantia/mountfs/backend/direct"
	"github.com/mwantia/mountfs/backend/ephemeral"
	"github.com/mwantia/mountfs/backend/postgres"
	"github.com/mwantia/mountfs/backend/s3"
	"github.com/mwantia/mountfs/backend/sqlite"
	"github.com/mwantia/mountfs/log"
)

// Factory creates the filesystem of one mount from its configuration.
type Factory func(ctx context.Context, mount *MountConfig, logger *log.Logger) (mountfs.FileSystem, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]Factory{
		"ephemeral": createEphemeralFileSystem,
		"sqlite":    createSQLiteFileSystem,
		"postgres":  createPostgresFileSystem,
		"consul":    createConsulFileSystem,
		"s3":        createS3FileSystem,
		"direct":    createDirectFileSystem,
	}
)

// RegisterFactory makes an additional backend type available to mounts.
func RegisterFactory(name string, factory Factory) error {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()

	if _, exists := factories[name]; exists {
		return fmt.Errorf("backend type %q is already registered", name)
	}

	factories[name] = factory
	return nil
}

// BackendTypes returns the registered backend types in order.
func BackendTypes() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	types := make([]string, 0, len(factories))
	for name := range factories {
		types = append(types, name)
	}
	sort.Strings(types)
	return types
}

func lookupFactory(name string) (Factory, bool) {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	factory, ok := factories[name]
	return factory, ok
}

// Build creates a mount table with every configured backend mounted,
// logging through a logger created from cfg.Logging.
func Build(ctx context.Context, cfg *Config) (*mountfs.VirtualFileSystem, error) {
	logger, err := NewLogger(&cfg.Logging)
	if err != nil {
		return nil, err
	}
	return BuildWithLogger(ctx, cfg, logger)
}

// BuildWithLogger is Build with an existing logger. Everything already
// mounted is closed again if one mount fails.
func BuildWithLogger(ctx context.Context, cfg *Config, logger *log.Logger) (*mountfs.VirtualFileSystem, error) {
	vfs, err := mountfs.NewVirtualFileSystem(mountfs.WithLogger(logger.Named("vfs")))
	if err != nil {
		return nil, err
	}

	for i := range cfg.Mounts {
		mount := &cfg.Mounts[i]

		factory, ok := lookupFactory(mount.Type)
		if !ok {
			vfs.Close()
			return nil, fmt.Errorf("mounts[%d]: unknown backend type %q", i, mount.Type)
		}

		fs, err := factory(ctx, mount, logger.Named(mount.Type))
		if err != nil {
			vfs.Close()
			return nil, fmt.Errorf("mounts[%d]: failed to create %s backend: %w", i, mount.Type, err)
		}

		if err := vfs.Mount(ctx, mount.Path, fs); err != nil {
			if closer, ok := fs.(io.Closer); ok {
				closer.Close()
			}
			vfs.Close()
			return nil, fmt.Errorf("mounts[%d]: %w", i, err)
		}

		logger.Info("Mounted %s backend at '%s' (readonly=%t)", mount.Type, mount.Path, mount.ReadOnly)
	}

	return vfs, nil
}

// NewLogger creates the root logger described by cfg.
func NewLogger(cfg *LoggingConfig) (*log.Logger, error) {
	level, err := log.Parse(cfg.Level)
	if err != nil {
		return nil, err
	}

	logger := log.NewLogger("mountfs", level, cfg.File, cfg.NoTerminal)
	logger.JSON = cfg.JSON
	return logger, nil
}

// decodeOptions decodes a mount's option map into target. Values coming
// from the environment are strings, so weak typing is enabled.
func decodeOptions(options map[string]any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           target,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(options)
}

// expandFilePath expands directory tokens in path and creates its parent.
func expandFilePath(path string) (string, error) {
	dirs, err := direct.DefaultBaseDirs()
	if err != nil {
		return "", err
	}

	expanded, err := dirs.Expand(path)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory for '%s': %w", expanded, err)
	}
	return expanded, nil
}

// wrapStore opens storage as a filesystem and closes it if that fails.
func wrapStore(ctx context.Context, storage backend.ObjectStorageBackend, mount *MountConfig, logger *log.Logger) (mountfs.FileSystem, error) {
	opts := []backend.ObjectFileSystemOption{backend.WithLogger(logger)}
	if mount.ReadOnly {
		opts = append(opts, backend.AsReadOnly())
	}

	fs, err := backend.NewFileSystem(ctx, storage, opts...)
	if err != nil {
		storage.Close(ctx)
		return nil, err
	}
	return fs, nil
}

func createEphemeralFileSystem(ctx context.Context, mount *MountConfig, logger *log.Logger) (mountfs.FileSystem, error) {
	type EphemeralConfig struct {
		MaxObjectSize int64 `mapstructure:"max_object_size"`
	}

	var cfg EphemeralConfig
	if err := decodeOptions(mount.Options, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode ephemeral config: %w", err)
	}

	return wrapStore(ctx, ephemeral.NewEphemeralBackend(cfg.MaxObjectSize), mount, logger)
}

func createSQLiteFileSystem(ctx context.Context, mount *MountConfig, logger *log.Logger) (mountfs.FileSystem, error) {
	type SQLiteConfig struct {
		Path      string `mapstructure:"path"`
		Namespace string `mapstructure:"namespace"`
	}

	var cfg SQLiteConfig
	if err := decodeOptions(mount.Options, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode sqlite config: %w", err)
	}
	if cfg.Path == "" {
		cfg.Path = ":memory:"
	}

	if cfg.Path != ":memory:" {
		path, err := expandFilePath(cfg.Path)
		if err != nil {
			return nil, err
		}
		cfg.Path = path
	}

	storage, err := sqlite.NewSQLiteBackend(cfg.Path, cfg.Namespace)
	if err != nil {
		return nil, err
	}
	return wrapStore(ctx, storage, mount, logger)
}

func createPostgresFileSystem(ctx context.Context, mount *MountConfig, logger *log.Logger) (mountfs.FileSystem, error) {
	type PostgresConfig struct {
		URL       string `mapstructure:"url"`
		Namespace string `mapstructure:"namespace"`
	}

	var cfg PostgresConfig
	if err := decodeOptions(mount.Options, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode postgres config: %w", err)
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("postgres backend: url is required")
	}

	storage, err := postgres.NewPostgresBackend(ctx, cfg.URL, cfg.Namespace)
	if err != nil {
		return nil, err
	}
	return wrapStore(ctx, storage, mount, logger)
}

func createConsulFileSystem(ctx context.Context, mount *MountConfig, logger *log.Logger) (mountfs.FileSystem, error) {
	var cfg consul.ConsulBackendConfig
	if err := decodeOptions(mount.Options, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode consul config: %w", err)
	}

	storage, err := consul.NewConsulBackend(&cfg)
	if err != nil {
		return nil, err
	}
	return wrapStore(ctx, storage, mount, logger)
}

func createS3FileSystem(ctx context.Context, mount *MountConfig, logger *log.Logger) (mountfs.FileSystem, error) {
	var cfg s3.S3BackendConfig
	if err := decodeOptions(mount.Options, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode s3 config: %w", err)
	}

	storage, err := s3.NewS3Backend(&cfg)
	if err != nil {
		return nil, err
	}
	return wrapStore(ctx, storage, mount, logger)
}

func createDirectFileSystem(ctx context.Context, mount *MountConfig, logger *log.Logger) (mountfs.FileSystem, error) {
	type DirectConfig struct {
		Path    string `mapstructure:"path"`
		Prefix  string `mapstructure:"prefix"`
		Profile string `mapstructure:"profile"`
	}

	var cfg DirectConfig
	if err := decodeOptions(mount.Options, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode direct config: %w", err)
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("direct backend: path is required")
	}

	dirs, err := direct.DefaultBaseDirs()
	if err != nil {
		return nil, err
	}
	switch {
	case cfg.Profile != "":
		dirs = dirs.WithProfile(cfg.Prefix, cfg.Profile)
	case cfg.Prefix != "":
		dirs = dirs.WithPrefix(cfg.Prefix)
	}

	fs, err := direct.NewDirectFileSystem(cfg.Path, direct.WithBaseDirs(dirs), direct.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	if mount.ReadOnly {
		return backend.NewReadOnly(fs), nil
	}
	return fs, nil
}
