package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration error: %s", e.Errors[0])
	}
	return fmt.Sprintf("configuration errors:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// validateConfig performs cross-field validation on the complete configuration.
// Returns a list of validation errors.
func validateConfig(cfg *Config) []string {
	errs := validateGlobalConfig(cfg.Global)

	if err := cfg.Target.Validate(); err != nil {
		if vErr, ok := err.(*ValidationError); ok {
			errs = append(errs, vErr.Errors...)
		} else {
			errs = append(errs, err.Error())
		}
	}

	// A static zone ID has no meaning for Cloud DNS, which addresses zones by name.
	if cfg.Target.Provider == ProviderGoogle && cfg.Target.ZoneID != "" {
		errs = append(errs, "google: zone id is not supported, use PROJECT ZONE RECORD")
	}

	if cfg.Target.Provider == ProviderRFC2136 && cfg.Global.RFC2136.Server == "" {
		errs = append(errs, "DYNDNS_RFC2136_SERVER: required for rfc2136")
	}

	return errs
}

// validateProviderType checks that the provider type is known.
func validateProviderType(typeName string, knownTypes []string) error {
	for _, known := range knownTypes {
		if typeName == known {
			return nil
		}
	}
	return fmt.Errorf("unknown provider type: %q (known types: %s)", typeName, strings.Join(knownTypes, ", "))
}
