// Package google implements the dyndns provider interface for Google Cloud DNS.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	clouddns "google.golang.org/api/dns/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"gitlab.bluewillows.net/root/dyndns/pkg/provider"
)

// ProviderType is the registry name of this provider.
const ProviderType = "google"

// Defaults for the Google variant.
const (
	// DefaultResolver is the Google public resolver used to read the
	// published record.
	DefaultResolver = "8.8.4.4"

	// DefaultSecretKey is the KV field holding the service-account JSON key.
	DefaultSecretKey = "serviceaccount"
)

// Config holds Google Cloud DNS configuration.
type Config struct {
	Project         string // GCP project owning the managed zone
	CredentialsJSON []byte // Service-account key, read from Vault
}

// Validate checks that all required configuration is present.
func (c *Config) Validate() error {
	var errs []string

	if c.Project == "" {
		errs = append(errs, "project is required")
	}
	if len(c.CredentialsJSON) == 0 {
		errs = append(errs, "credentials are required")
	} else if !json.Valid(c.CredentialsJSON) {
		errs = append(errs, "credentials are not valid JSON")
	}

	if len(errs) > 0 {
		return fmt.Errorf("google config validation failed: %s: %w", strings.Join(errs, "; "), provider.ErrInvalidCredential)
	}
	return nil
}

// Provider implements provider.Provider for Google Cloud DNS.
type Provider struct {
	project string
	service *clouddns.Service
	logger  *slog.Logger
	options []option.ClientOption
}

// ProviderOption is a functional option for configuring the Provider.
type ProviderOption func(*Provider)

// WithProviderLogger sets a custom logger for the provider.
func WithProviderLogger(logger *slog.Logger) ProviderOption {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClientOptions replaces the credential-derived API client options.
// Used to point the provider at a test server.
func WithClientOptions(opts ...option.ClientOption) ProviderOption {
	return func(p *Provider) {
		p.options = append(p.options, opts...)
	}
}

// New creates a Google Cloud DNS provider.
func New(ctx context.Context, config *Config, opts ...ProviderOption) (*Provider, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}

	p := &Provider{
		project: config.Project,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	clientOpts := p.options
	if len(clientOpts) == 0 {
		if err := config.Validate(); err != nil {
			return nil, err
		}
		clientOpts = []option.ClientOption{
			option.WithCredentialsJSON(config.CredentialsJSON),
			option.WithScopes(clouddns.NdevClouddnsReadwriteScope),
		}
	} else if config.Project == "" {
		return nil, fmt.Errorf("google config validation failed: project is required")
	}

	svc, err := clouddns.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating cloud dns service: %w", err)
	}
	p.service = svc

	return p, nil
}

// Type returns "google".
func (p *Provider) Type() string {
	return ProviderType
}

// ResolveRecord confirms the A record set exists in the managed zone.
// Cloud DNS addresses record sets by name and type, so a lookup can never
// be ambiguous.
func (p *Provider) ResolveRecord(ctx context.Context, zone, name string) (provider.RecordIdentity, error) {
	ctx, span := otel.Tracer("dyndns").Start(ctx, "google.ResolveRecord")
	defer span.End()
	span.SetAttributes(
		attribute.String("dns.zone", zone),
		attribute.String("dns.record", name),
	)

	fqdn := provider.FQDN(name)
	rrset, err := p.service.ResourceRecordSets.Get(p.project, zone, fqdn, string(provider.RecordTypeA)).Context(ctx).Do()
	if err != nil {
		err = translateError(err, true)
		if errors.Is(err, provider.ErrNotFound) {
			err = provider.MatchError("record", name, 0)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve failed")
		return provider.RecordIdentity{}, provider.WrapError(ProviderType, "resolve record", err)
	}

	p.logger.Debug("resolved record",
		slog.String("project", p.project),
		slog.String("zone", zone),
		slog.String("name", rrset.Name),
		slog.Any("rrdatas", rrset.Rrdatas),
	)

	return provider.RecordIdentity{
		Project: p.project,
		Zone:    zone,
		Name:    fqdn,
		Type:    provider.RecordTypeA,
	}, nil
}

// UpdateRecord replaces the record set's data with addr.
func (p *Provider) UpdateRecord(ctx context.Context, id provider.RecordIdentity, addr netip.Addr, ttl int) error {
	ctx, span := otel.Tracer("dyndns").Start(ctx, "google.UpdateRecord")
	defer span.End()
	span.SetAttributes(
		attribute.String("dns.zone", id.Zone),
		attribute.String("dns.name", id.Name),
		attribute.String("dns.address", addr.String()),
	)

	if ttl <= 0 {
		ttl = provider.DefaultTTL
	}

	rrset := &clouddns.ResourceRecordSet{
		Name:    id.Name,
		Type:    string(provider.RecordTypeA),
		Ttl:     int64(ttl),
		Rrdatas: []string{addr.String()},
	}

	_, err := p.service.ResourceRecordSets.Patch(id.Project, id.Zone, id.Name, string(provider.RecordTypeA), rrset).Context(ctx).Do()
	if err != nil {
		err = translateError(err, false)
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return provider.WrapError(ProviderType, "update record", err)
	}

	p.logger.Info("updated DNS record",
		slog.String("project", id.Project),
		slog.String("zone", id.Zone),
		slog.String("name", id.Name),
		slog.String("content", addr.String()),
		slog.Int("ttl", ttl),
	)
	return nil
}

// translateError converts a googleapi error into the provider error taxonomy.
// A 404 only means "not found" during lookup; on update it is an API error.
func translateError(err error, lookup bool) error {
	var gErr *googleapi.Error
	if !errors.As(err, &gErr) {
		return err
	}

	if lookup && gErr.Code == http.StatusNotFound {
		return fmt.Errorf("%s: %w", gErr.Message, provider.ErrNotFound)
	}

	apiErr := &provider.APIError{Provider: ProviderType, Status: gErr.Code}
	for _, item := range gErr.Errors {
		apiErr.Messages = append(apiErr.Messages, provider.APIMessage{Code: item.Reason, Message: item.Message})
	}
	if len(apiErr.Messages) == 0 && gErr.Message != "" {
		apiErr.Messages = []provider.APIMessage{{Code: strconv.Itoa(gErr.Code), Message: gErr.Message}}
	}
	return apiErr
}

// Factory returns a provider.Factory that builds a Google provider from the
// service-account key read at update time.
func Factory(project string, opts ...ProviderOption) provider.Factory {
	return func(ctx context.Context, cred provider.Credential) (provider.Provider, error) {
		return New(ctx, &Config{Project: project, CredentialsJSON: []byte(cred.Value())}, opts...)
	}
}

// Ensure Provider implements provider.Provider at compile time.
var _ provider.Provider = (*Provider)(nil)
