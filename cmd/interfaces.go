package cmd

import (
	"context"
	"io"

	"github.com/mwantia/mountfs"
)

// API is the filesystem commands operate on. Any FileSystem works; a
// mount table additionally satisfies MountLister.
type API interface {
	mountfs.FileSystem
}

// MountLister is implemented by filesystems that report their bindings.
type MountLister interface {
	Mounts() []mountfs.MountInfo
}

// MountResolver is implemented by filesystems that delegate paths to
// mounted backends.
type MountResolver interface {
	Resolve(path string) (mountfs.FileSystem, string, bool)
}

// Command represents an executable command within the virtual filesystem.
type Command interface {
	// Name returns the command identifier
	Name() string

	// Description returns human-readable help text
	Description() string

	// Usage returns a usage string for help (e.g. "ls -l [path]")
	Usage() string

	// Execute runs the command with parsed arguments
	// The writer parameter is where command output should be written
	// Returns exit code (0 = success) and error message
	Execute(ctx context.Context, api API, args *CommandArgs, writer io.Writer) (int, error)

	// GetFlags returns the flag set for this command (this is optional)
	GetFlags() *CommandFlagSet
}
