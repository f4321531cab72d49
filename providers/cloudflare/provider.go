package cloudflare

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"gitlab.bluewillows.net/root/dyndns/pkg/provider"
)

// ProviderType is the registry name of this provider.
const ProviderType = "cloudflare"

// Provider implements provider.Provider for Cloudflare DNS.
type Provider struct {
	zoneID  string // Static zone ID; empty means look it up on every resolve
	client  *Client
	logger  *slog.Logger
	options []ClientOption
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

// WithClientOptions passes options through to the API client.
func WithClientOptions(opts ...ClientOption) ProviderOption {
	return func(p *Provider) {
		p.options = append(p.options, opts...)
	}
}

// New creates a new Cloudflare provider instance.
func New(config *Config, opts ...ProviderOption) (*Provider, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	p := &Provider{
		zoneID: config.ZoneID,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	clientOpts := append([]ClientOption{WithLogger(p.logger)}, p.options...)
	p.client = NewClient(config.Token, clientOpts...)

	return p, nil
}

// Type returns "cloudflare".
func (p *Provider) Type() string {
	return ProviderType
}

// ResolveRecord finds the zone (unless a zone ID was configured) and the
// single A record named name within it.
func (p *Provider) ResolveRecord(ctx context.Context, zone, name string) (provider.RecordIdentity, error) {
	ctx, span := otel.Tracer("dyndns").Start(ctx, "cloudflare.ResolveRecord")
	defer span.End()
	span.SetAttributes(
		attribute.String("dns.zone", zone),
		attribute.String("dns.record", name),
	)

	id, err := p.resolveRecord(ctx, zone, name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve failed")
		return provider.RecordIdentity{}, provider.WrapError(ProviderType, "resolve record", err)
	}
	return id, nil
}

func (p *Provider) resolveRecord(ctx context.Context, zone, name string) (provider.RecordIdentity, error) {
	zoneID, err := p.resolveZoneID(ctx, zone)
	if err != nil {
		return provider.RecordIdentity{}, err
	}

	records, err := p.client.FindRecords(ctx, zoneID, string(provider.RecordTypeA), name)
	if err != nil {
		return provider.RecordIdentity{}, err
	}
	if len(records) != 1 {
		return provider.RecordIdentity{}, provider.MatchError("record", name, len(records))
	}

	p.logger.Debug("resolved record",
		slog.String("zone_id", zoneID),
		slog.String("record_id", records[0].ID),
		slog.String("name", records[0].Name),
		slog.String("content", records[0].Content),
	)

	return provider.RecordIdentity{
		ZoneID:   zoneID,
		RecordID: records[0].ID,
		Zone:     zone,
		Name:     records[0].Name,
		Type:     provider.RecordTypeA,
	}, nil
}

func (p *Provider) resolveZoneID(ctx context.Context, zone string) (string, error) {
	if p.zoneID != "" {
		return p.zoneID, nil
	}

	zones, err := p.client.ListZones(ctx, zone)
	if err != nil {
		return "", err
	}
	if len(zones) != 1 {
		return "", provider.MatchError("zone", zone, len(zones))
	}
	return zones[0].ID, nil
}

// UpdateRecord points the record at addr. Records are never proxied.
func (p *Provider) UpdateRecord(ctx context.Context, id provider.RecordIdentity, addr netip.Addr, ttl int) error {
	ctx, span := otel.Tracer("dyndns").Start(ctx, "cloudflare.UpdateRecord")
	defer span.End()
	span.SetAttributes(
		attribute.String("dns.zone", id.ZoneID),
		attribute.String("dns.record", id.RecordID),
		attribute.String("dns.name", id.Name),
		attribute.String("dns.address", addr.String()),
	)

	if ttl <= 0 {
		ttl = provider.DefaultTTL
	}

	err := p.client.UpdateRecord(ctx, id.ZoneID, id.RecordID, updateRecordRequest{
		Type:    string(provider.RecordTypeA),
		Name:    id.Name,
		Content: addr.String(),
		TTL:     ttl,
		Proxied: false,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return provider.WrapError(ProviderType, "update record", err)
	}
	return nil
}

// Factory returns a provider.Factory that builds a Cloudflare provider from
// the API token read at update time.
func Factory(zoneID string, opts ...ProviderOption) provider.Factory {
	return func(_ context.Context, cred provider.Credential) (provider.Provider, error) {
		return New(&Config{Token: cred.Value(), ZoneID: zoneID}, opts...)
	}
}

// Ensure Provider implements provider.Provider at compile time.
var _ provider.Provider = (*Provider)(nil)
