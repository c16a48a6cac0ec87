package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	switch cfg.Content.Type {
	case "filesystem":
		if s, _ := cfg.Content.Filesystem["path"].(string); s == "" {
			return fmt.Errorf("content.filesystem.path: required when content.type is filesystem")
		}
	case "s3":
		if s, _ := cfg.Content.S3["bucket"].(string); s == "" {
			return fmt.Errorf("content.s3.bucket: required when content.type is s3")
		}
	}

	if cfg.Metadata.Type == "badger" {
		inMemory, _ := cfg.Metadata.Badger["in_memory"].(bool)
		path, _ := cfg.Metadata.Badger["db_path"].(string)
		if !inMemory && path == "" {
			return fmt.Errorf("metadata.badger.db_path: required unless in_memory is set")
		}
	}

	for i, x := range cfg.Volume.Xlators {
		if _, err := strconv.ParseUint(x.Value, 10, 64); err != nil {
			return fmt.Errorf("volume.xlators[%d]: value %q for %s.%s is not a non-negative integer",
				i, x.Value, x.Xlator, x.Key)
		}
	}

	if cfg.Metrics.Enabled {
		if _, port, err := net.SplitHostPort(cfg.Metrics.Addr); err != nil || port == "" {
			return fmt.Errorf("metrics.addr: invalid listen address %q", cfg.Metrics.Addr)
		}
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		// Return the first validation error with context
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
