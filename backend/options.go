package backend

import "github.com/mwantia/mountfs/log"

type ObjectFileSystemOptions struct {
	Logger   *log.Logger
	ReadOnly bool // Refuse every mutation, regardless of backend capabilities.
}

type ObjectFileSystemOption func(*ObjectFileSystemOptions) error

func newDefaultObjectFileSystemOptions() *ObjectFileSystemOptions {
	return &ObjectFileSystemOptions{
		ReadOnly: false,
	}
}

// WithLogger sets the logger used for this filesystem and its open files.
func WithLogger(logger *log.Logger) ObjectFileSystemOption {
	return func(opts *ObjectFileSystemOptions) error {
		opts.Logger = logger
		return nil
	}
}

// AsReadOnly specifies, if this filesystem is in a readonly state.
func AsReadOnly() ObjectFileSystemOption {
	return func(opts *ObjectFileSystemOptions) error {
		opts.ReadOnly = true
		return nil
	}
}
