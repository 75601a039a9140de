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
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for complex rules
// that cannot be expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
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
	if !cfg.Adapters.HTTP.Enabled {
		return fmt.Errorf("adapters: at least one adapter must be enabled")
	}

	host, port, err := net.SplitHostPort(cfg.Adapters.HTTP.Address)
	if err != nil {
		return fmt.Errorf("adapters.http.address: %w", err)
	}
	httpPort, err := strconv.Atoi(port)
	if err != nil || httpPort < 0 || httpPort > 65535 {
		return fmt.Errorf("adapters.http.address: invalid port %q", port)
	}

	if cfg.Adapters.HTTP.Workers < 1 {
		return fmt.Errorf("adapters.http.workers: must be >= 1")
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Port == httpPort && httpPort != 0 {
		return fmt.Errorf("metrics.port: %d conflicts with the HTTP adapter on %s",
			cfg.Metrics.Port, net.JoinHostPort(host, port))
	}

	if cfg.Store.Type == "s3" {
		if bucket, _ := cfg.Store.S3["bucket"].(string); bucket == "" {
			return fmt.Errorf("store.s3.bucket: required when store.type is s3")
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
