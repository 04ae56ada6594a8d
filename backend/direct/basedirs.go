package direct

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/mitchellh/go-homedir"
	"github.com/mwantia/mountfs/data"
)

// Tokens that may start a base directory. Each one is replaced by the
// matching entry of BaseDirs before the directory is opened.
const (
	HomeDir       = "$home"
	DataHomeDir   = "$data_home"
	ConfigHomeDir = "$config_home"
	CacheHomeDir  = "$cache_home"
	DataDir       = "$data"
	ConfigDir     = "$config"
)

// BaseDirs holds the well-known directories tokens expand to.
type BaseDirs struct {
	Home       string
	DataHome   string
	ConfigHome string
	CacheHome  string
	DataDirs   []string
	ConfigDirs []string

	// Prefix is appended to every XDG directory; Profile is appended after
	// Prefix, but only to the user specific ones.
	Prefix  string
	Profile string
}

// DefaultBaseDirs reads the directories of the current user.
func DefaultBaseDirs() (*BaseDirs, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve home directory: %w", err)
	}

	return &BaseDirs{
		Home:       home,
		DataHome:   xdg.DataHome,
		ConfigHome: xdg.ConfigHome,
		CacheHome:  xdg.CacheHome,
		DataDirs:   append([]string(nil), xdg.DataDirs...),
		ConfigDirs: append([]string(nil), xdg.ConfigDirs...),
	}, nil
}

// WithPrefix returns a copy that appends prefix to every XDG directory.
func (b *BaseDirs) WithPrefix(prefix string) *BaseDirs {
	copied := *b
	copied.Prefix = prefix
	copied.Profile = ""
	return &copied
}

// WithProfile returns a copy that appends prefix to every XDG directory and
// profile to the user specific ones.
func (b *BaseDirs) WithProfile(prefix, profile string) *BaseDirs {
	copied := *b
	copied.Prefix = prefix
	copied.Profile = profile
	return &copied
}

// Expand replaces a leading token of path. Paths without a token are
// returned cleaned. Unknown tokens fail with ErrInvalidPath.
func (b *BaseDirs) Expand(path string) (string, error) {
	if !strings.HasPrefix(path, "$") {
		return filepath.Clean(path), nil
	}

	token, rest, _ := strings.Cut(filepath.ToSlash(path), "/")

	var base string
	switch token {
	case HomeDir:
		base = b.Home
	case DataHomeDir:
		base = b.userDir(b.DataHome)
	case ConfigHomeDir:
		base = b.userDir(b.ConfigHome)
	case CacheHomeDir:
		base = b.userDir(b.CacheHome)
	case DataDir:
		base = b.systemDir(b.DataDirs)
	case ConfigDir:
		base = b.systemDir(b.ConfigDirs)
	default:
		return "", fmt.Errorf("%w: unknown directory token '%s'", data.ErrInvalidPath, token)
	}

	if base == "" {
		return "", fmt.Errorf("%w: directory token '%s' is not set", data.ErrInvalidPath, token)
	}

	return filepath.Join(base, filepath.FromSlash(rest)), nil
}

func (b *BaseDirs) userDir(dir string) string {
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, b.Prefix, b.Profile)
}

// systemDir uses the first, most important entry.
func (b *BaseDirs) systemDir(dirs []string) string {
	if len(dirs) == 0 || dirs[0] == "" {
		return ""
	}
	return filepath.Join(dirs[0], b.Prefix)
}
