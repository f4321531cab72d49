package cloudflare

import (
	"fmt"
	"strings"
)

// Defaults for the Cloudflare variant.
const (
	// DefaultResolver is the Cloudflare public resolver used to read the
	// published record.
	DefaultResolver = "1.0.0.1"

	// DefaultSecretKey is the KV field holding the API token.
	DefaultSecretKey = "key"
)

// Config holds Cloudflare-specific configuration.
type Config struct {
	Token  string // API token (Bearer authentication), read from Vault
	ZoneID string // Zone ID (optional; looked up by zone name when empty)
}

// Validate checks that all required configuration is present.
func (c *Config) Validate() error {
	var errs []string

	if c.Token == "" {
		errs = append(errs, "token is required")
	}
	if strings.ContainsAny(c.ZoneID, "/? ") {
		errs = append(errs, "zone ID contains invalid characters")
	}

	if len(errs) > 0 {
		return fmt.Errorf("cloudflare config validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}
