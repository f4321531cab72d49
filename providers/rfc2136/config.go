package rfc2136

import (
	"fmt"
	"strings"
	"time"

	"gitlab.bluewillows.net/root/dyndns/pkg/dnsupdate"
	"gitlab.bluewillows.net/root/dyndns/pkg/provider"
)

// Defaults for the RFC 2136 variant.
const (
	// DefaultResolver is empty: the published record is read from the
	// primary server itself.
	DefaultResolver = ""

	// DefaultSecretKey is the KV field holding the base64 TSIG secret.
	DefaultSecretKey = "tsig_secret"

	// DefaultTimeout bounds each DNS exchange.
	DefaultTimeout = 10 * time.Second
)

// Settings describes the primary server and key. The TSIG secret itself is
// not part of Settings; it arrives as the credential at update time.
type Settings struct {
	// Server is the primary server, host or host:port.
	Server string

	// Zone is the zone to update. A trailing dot is added when missing.
	Zone string

	// TSIGKeyName is the key name. Empty sends unsigned updates.
	TSIGKeyName string

	// TSIGAlgorithm is hmac-sha256 (default), hmac-sha512 or hmac-md5.
	TSIGAlgorithm string

	// UseTCP forces TCP transport.
	UseTCP bool

	// Timeout bounds each exchange (default: 10s).
	Timeout time.Duration
}

// Validate checks that the server and zone are set.
func (s Settings) Validate() error {
	var errs []string

	if strings.TrimSpace(s.Server) == "" {
		errs = append(errs, "server is required")
	}
	if strings.TrimSpace(s.Zone) == "" {
		errs = append(errs, "zone is required")
	}
	if s.Timeout < 0 {
		errs = append(errs, "timeout must be non-negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("rfc2136 settings: %s", strings.Join(errs, "; "))
	}
	return nil
}

// clientConfig builds the dnsupdate configuration, taking the TSIG secret
// from cred. A configured key with an empty credential is rejected.
func (s Settings) clientConfig(cred provider.Credential) (*dnsupdate.Config, error) {
	cfg := &dnsupdate.Config{
		Server:  s.Server,
		Zone:    provider.FQDN(s.Zone),
		Timeout: s.Timeout,
		UseTCP:  s.UseTCP,
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	if s.TSIGKeyName == "" {
		return cfg, nil
	}

	secret := strings.TrimSpace(cred.Value())
	if secret == "" {
		return nil, fmt.Errorf("rfc2136 credential: tsig secret is empty: %w", provider.ErrInvalidCredential)
	}
	if _, err := dnsupdate.NewTSIG(s.TSIGKeyName, secret, s.TSIGAlgorithm); err != nil {
		return nil, fmt.Errorf("rfc2136 credential: %v: %w", err, provider.ErrInvalidCredential)
	}

	cfg.TSIGKeyName = s.TSIGKeyName
	cfg.TSIGSecret = secret
	cfg.TSIGAlgorithm = s.TSIGAlgorithm
	return cfg, nil
}
