package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrArgCount is returned when a provider subcommand receives the wrong
// number of positional arguments.
var ErrArgCount = errors.New("wrong number of arguments")

// Provider variant names accepted on the command line.
const (
	ProviderCloudflare = "cloudflare"
	ProviderGoogle     = "google"
	ProviderRoute53    = "route53"
	ProviderRFC2136    = "rfc2136"
)

// knownProviders lists every accepted variant name.
var knownProviders = []string{ProviderCloudflare, ProviderGoogle, ProviderRoute53, ProviderRFC2136}

// Target identifies the single A record this process keeps in sync.
// It is built once from positional arguments and never mutated.
type Target struct {
	Provider string // cloudflare, google, route53, rfc2136
	Project  string // Google Cloud project (google only)
	ZoneID   string // Provider zone identifier; empty means look it up by name
	Zone     string // Zone name (Cloudflare/Route 53) or managed zone (Google)
	Record   string // Record name to track
}

// NewCloudflareTarget accepts [ZONE_ID] ZONE RECORD.
func NewCloudflareTarget(args []string) (Target, error) {
	return zoneTarget(ProviderCloudflare, args)
}

// NewRoute53Target accepts [HOSTED_ZONE_ID] ZONE RECORD.
func NewRoute53Target(args []string) (Target, error) {
	return zoneTarget(ProviderRoute53, args)
}

// NewGoogleTarget accepts PROJECT ZONE RECORD.
func NewGoogleTarget(args []string) (Target, error) {
	if len(args) != 3 {
		return Target{}, fmt.Errorf("%s: expected PROJECT ZONE RECORD, got %d argument(s): %w", ProviderGoogle, len(args), ErrArgCount)
	}

	t := Target{
		Provider: ProviderGoogle,
		Project:  args[0],
		Zone:     args[1],
		Record:   args[2],
	}
	return t, argError(t.Validate())
}

// NewRFC2136Target accepts ZONE RECORD. The server and TSIG key name come
// from configuration.
func NewRFC2136Target(args []string) (Target, error) {
	if len(args) != 2 {
		return Target{}, fmt.Errorf("%s: expected ZONE RECORD, got %d argument(s): %w", ProviderRFC2136, len(args), ErrArgCount)
	}

	t := Target{
		Provider: ProviderRFC2136,
		Zone:     args[0],
		Record:   args[1],
	}
	return t, argError(t.Validate())
}

func zoneTarget(providerType string, args []string) (Target, error) {
	t := Target{Provider: providerType}

	switch len(args) {
	case 2:
		t.Zone, t.Record = args[0], args[1]
	case 3:
		if strings.TrimSpace(args[0]) == "" {
			return Target{}, argError(&ValidationError{Errors: []string{"zone id must not be empty"}})
		}
		t.ZoneID, t.Zone, t.Record = args[0], args[1], args[2]
	default:
		return Target{}, fmt.Errorf("%s: expected [ZONE_ID] ZONE RECORD, got %d argument(s): %w", providerType, len(args), ErrArgCount)
	}

	return t, argError(t.Validate())
}

// argError marks an empty positional argument as an argument error while
// keeping the *ValidationError reachable through errors.As.
func argError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrArgCount, err)
}

// ParseTarget dispatches to the constructor for providerType.
func ParseTarget(providerType string, args []string) (Target, error) {
	switch providerType {
	case ProviderCloudflare:
		return NewCloudflareTarget(args)
	case ProviderGoogle:
		return NewGoogleTarget(args)
	case ProviderRoute53:
		return NewRoute53Target(args)
	case ProviderRFC2136:
		return NewRFC2136Target(args)
	default:
		return Target{}, validateProviderType(providerType, knownProviders)
	}
}

// Validate checks that every supplied field is non-empty.
func (t Target) Validate() error {
	var errs []string

	if t.Provider == ProviderGoogle && strings.TrimSpace(t.Project) == "" {
		errs = append(errs, "project must not be empty")
	}
	if strings.TrimSpace(t.Zone) == "" {
		errs = append(errs, "zone must not be empty")
	}
	if strings.TrimSpace(t.Record) == "" {
		errs = append(errs, "record must not be empty")
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// String returns a short description for logs.
func (t Target) String() string {
	if t.Project != "" {
		return fmt.Sprintf("%s:%s/%s/%s", t.Provider, t.Project, t.Zone, t.Record)
	}
	return fmt.Sprintf("%s:%s/%s", t.Provider, t.Zone, t.Record)
}
