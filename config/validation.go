package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/mwantia/mountfs/data"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()

	// The root path "" is valid, so these also run on empty fields
	if err := validate.RegisterValidation("vpath", func(fl validator.FieldLevel) bool {
		return data.IsValidPath(fl.Field().String())
	}, true); err != nil {
		panic(err)
	}

	if err := validate.RegisterValidation("backend", func(fl validator.FieldLevel) bool {
		_, ok := lookupFactory(fl.Field().String())
		return ok
	}); err != nil {
		panic(err)
	}
}

// Validate checks struct tags first and then the rules spanning several
// mounts: bases must be unique and must not contain each other.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	return validateMounts(cfg.Mounts)
}

func validateMounts(mounts []MountConfig) error {
	for i, mount := range mounts {
		for j := range i {
			other := mounts[j].Path
			if mount.Path == other {
				return fmt.Errorf("mounts[%d]: duplicate mount path %q", i, mount.Path)
			}
			if data.HasPathPrefix(mount.Path, other) || data.HasPathPrefix(other, mount.Path) {
				return fmt.Errorf("mounts[%d]: %w", i, data.LocationOverlap(mount.Path, other))
			}
		}
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
