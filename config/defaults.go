package config

import (
	"strings"

	"github.com/mwantia/mountfs/data"
)

// ApplyDefaults fills unset fields. Explicit values are preserved; mount
// paths are normalized so "a//b/" and "a/b" compare equal.
func ApplyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}
	cfg.Logging.Level = strings.ToUpper(cfg.Logging.Level)

	if len(cfg.Mounts) == 0 {
		cfg.Mounts = []MountConfig{
			{Path: "", Type: "ephemeral"},
		}
	}

	for i := range cfg.Mounts {
		mount := &cfg.Mounts[i]
		mount.Type = strings.ToLower(strings.TrimSpace(mount.Type))

		// Invalid paths are left alone for Validate to report
		if clean, err := data.CleanPath(mount.Path); err == nil {
			mount.Path = clean
		}

		if mount.Options == nil {
			mount.Options = make(map[string]any)
		}
	}
}
