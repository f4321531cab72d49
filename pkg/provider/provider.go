// Package provider defines the interface that all DNS providers must implement.
package provider

import (
	"context"
	"net/netip"
	"strings"
)

// RecordType represents the type of DNS record.
type RecordType string

// RecordTypeA is the only record type dyndns manages.
const RecordTypeA RecordType = "A"

// DefaultTTL is the TTL written on every update.
const DefaultTTL = 60

// Credential is the provider secret read from the secret store at update
// time: an API token, a service-account JSON key or an access-key pair,
// depending on the provider. It is never logged.
type Credential string

// String redacts the credential so it never reaches logs or error messages.
func (c Credential) String() string {
	if c == "" {
		return ""
	}
	return "[redacted]"
}

// Value returns the raw secret.
func (c Credential) Value() string {
	return string(c)
}

// RecordIdentity holds the provider-specific coordinates needed to mutate
// exactly one record. Not every field is used by every provider: Cloudflare
// needs ZoneID and RecordID, Google needs Project, Zone and Name, Route 53
// needs ZoneID and Name.
type RecordIdentity struct {
	ZoneID   string
	RecordID string
	Project  string
	Zone     string
	Name     string
	Type     RecordType
}

// Provider defines the interface for DNS providers.
// Each variant (Cloudflare, Google Cloud DNS, Route 53) must satisfy this interface.
type Provider interface {
	// Type returns the provider type (e.g., "cloudflare", "google").
	Type() string

	// ResolveRecord locates exactly one A record named name within zone.
	// Zero matches wrap ErrNotFound, more than one wrap ErrAmbiguous.
	ResolveRecord(ctx context.Context, zone, name string) (RecordIdentity, error)

	// UpdateRecord sets the record content to addr with the given TTL.
	UpdateRecord(ctx context.Context, id RecordIdentity, addr netip.Addr, ttl int) error
}

// FQDN returns name with a trailing dot, as Google Cloud DNS and Route 53
// expect.
func FQDN(name string) string {
	if strings.HasSuffix(name, ".") {
		return name
	}
	return name + "."
}

// TrimFQDN strips a trailing dot so names from different APIs compare equal.
func TrimFQDN(name string) string {
	return strings.TrimSuffix(name, ".")
}

// NameEquals reports whether two DNS names are the same, ignoring case and
// the trailing root dot.
func NameEquals(a, b string) bool {
	return strings.EqualFold(TrimFQDN(a), TrimFQDN(b))
}
