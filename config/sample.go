package config

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// SampleConfig returns a configuration that mounts one backend of each
// local type.
func SampleConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level: "INFO",
		},
		Mounts: []MountConfig{
			{
				Path: "tmp",
				Type: "ephemeral",
				Options: map[string]any{
					"max_object_size": 10485760,
				},
			},
			{
				Path: "db",
				Type: "sqlite",
				Options: map[string]any{
					"path":      "$data_home/mountfs/objects.db",
					"namespace": "default",
				},
			},
			{
				Path:     "home",
				Type:     "direct",
				ReadOnly: true,
				Options: map[string]any{
					"path": "$home",
				},
			},
		},
	}
}

// WriteSample renders SampleConfig as YAML.
func WriteSample(w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)

	if err := encoder.Encode(SampleConfig()); err != nil {
		return fmt.Errorf("failed to encode sample config: %w", err)
	}
	return encoder.Close()
}
