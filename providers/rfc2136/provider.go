package rfc2136

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"gitlab.bluewillows.net/root/dyndns/pkg/dnsupdate"
	"gitlab.bluewillows.net/root/dyndns/pkg/provider"
)

// ProviderType is the registry name of this provider.
const ProviderType = "rfc2136"

// UpdateClient is the subset of the dnsupdate client the provider uses.
type UpdateClient interface {
	Zone() string
	QueryA(ctx context.Context, name string) ([]netip.Addr, error)
	ReplaceA(ctx context.Context, name string, addr netip.Addr, ttl uint32) error
}

// Provider implements provider.Provider for servers that accept RFC 2136
// dynamic updates.
type Provider struct {
	client UpdateClient
	logger *slog.Logger
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

// New creates an RFC 2136 provider around an update client.
func New(client UpdateClient, opts ...ProviderOption) *Provider {
	p := &Provider{
		client: client,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Type returns "rfc2136".
func (p *Provider) Type() string {
	return ProviderType
}

// ResolveRecord asks the primary server for name and requires exactly one
// A record. The zone must be the one the client was built for.
func (p *Provider) ResolveRecord(ctx context.Context, zone, name string) (provider.RecordIdentity, error) {
	ctx, span := otel.Tracer("dyndns").Start(ctx, "rfc2136.ResolveRecord")
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
	if !provider.NameEquals(zone, p.client.Zone()) {
		return provider.RecordIdentity{}, provider.MatchError("zone", zone, 0)
	}

	fqdn := provider.FQDN(name)
	addrs, err := p.client.QueryA(ctx, fqdn)
	if err != nil {
		return provider.RecordIdentity{}, translateError(err)
	}
	if len(addrs) != 1 {
		return provider.RecordIdentity{}, provider.MatchError("record", name, len(addrs))
	}

	return provider.RecordIdentity{
		Zone: p.client.Zone(),
		Name: fqdn,
		Type: provider.RecordTypeA,
	}, nil
}

// UpdateRecord replaces the A RRset with addr in a single UPDATE message.
func (p *Provider) UpdateRecord(ctx context.Context, id provider.RecordIdentity, addr netip.Addr, ttl int) error {
	ctx, span := otel.Tracer("dyndns").Start(ctx, "rfc2136.UpdateRecord")
	defer span.End()
	span.SetAttributes(
		attribute.String("dns.zone", id.Zone),
		attribute.String("dns.name", id.Name),
		attribute.String("dns.address", addr.String()),
	)

	if ttl <= 0 {
		ttl = provider.DefaultTTL
	}

	if err := p.client.ReplaceA(ctx, id.Name, addr, uint32(ttl)); err != nil {
		err = translateError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return provider.WrapError(ProviderType, "update record", err)
	}

	p.logger.Info("updated DNS record",
		slog.String("zone", id.Zone),
		slog.String("name", id.Name),
		slog.String("content", addr.String()),
		slog.Int("ttl", ttl),
	)
	return nil
}

// translateError marks TSIG rejections as unauthorized.
func translateError(err error) error {
	if dnsupdate.IsAuthError(err) {
		return fmt.Errorf("%w: %w", provider.ErrUnauthorized, err)
	}
	return err
}

// Ensure Provider implements provider.Provider at compile time.
var _ provider.Provider = (*Provider)(nil)
