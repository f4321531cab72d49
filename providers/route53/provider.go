// Package route53 implements the dyndns provider interface for Amazon Route 53.
package route53

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/aws/smithy-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"gitlab.bluewillows.net/root/dyndns/pkg/provider"
)

// ProviderType is the registry name of this provider.
const ProviderType = "route53"

// Defaults for the Route 53 variant.
const (
	// DefaultResolver is used to read the published record.
	DefaultResolver = "8.8.4.4"

	// DefaultSecretKey is the KV field holding the access-key pair.
	DefaultSecretKey = "credentials"

	// DefaultRegion is the region the Route 53 control plane is served from.
	DefaultRegion = "us-east-1"
)

// Route53API is the subset of the Route 53 client the provider uses.
type Route53API interface {
	ListHostedZonesByName(ctx context.Context, params *route53.ListHostedZonesByNameInput, optFns ...func(*route53.Options)) (*route53.ListHostedZonesByNameOutput, error)
	ListResourceRecordSets(ctx context.Context, params *route53.ListResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ListResourceRecordSetsOutput, error)
	ChangeResourceRecordSets(ctx context.Context, params *route53.ChangeResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error)
}

// accessKey is the JSON shape of the credential stored in Vault.
type accessKey struct {
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	SessionToken    string `json:"session_token,omitempty"`
	Region          string `json:"region,omitempty"`
}

// parseCredential decodes the access-key pair.
func parseCredential(cred provider.Credential) (accessKey, error) {
	var key accessKey
	if err := json.Unmarshal([]byte(cred.Value()), &key); err != nil {
		return accessKey{}, fmt.Errorf("route53 credential: %w", provider.ErrInvalidCredential)
	}
	if key.AccessKeyID == "" || key.SecretAccessKey == "" {
		return accessKey{}, fmt.Errorf("route53 credential: access_key_id and secret_access_key are required: %w", provider.ErrInvalidCredential)
	}
	return key, nil
}

// Provider implements provider.Provider for Route 53.
type Provider struct {
	hostedZoneID string // Static hosted zone ID; empty means look it up on every resolve
	api          Route53API
	logger       *slog.Logger
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

// New creates a Route 53 provider around an existing API client.
func New(api Route53API, hostedZoneID string, opts ...ProviderOption) *Provider {
	p := &Provider{
		hostedZoneID: trimZoneID(hostedZoneID),
		api:          api,
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Type returns "route53".
func (p *Provider) Type() string {
	return ProviderType
}

// ResolveRecord finds the hosted zone (unless one was configured) and
// confirms exactly one A record set named name exists in it.
func (p *Provider) ResolveRecord(ctx context.Context, zone, name string) (provider.RecordIdentity, error) {
	ctx, span := otel.Tracer("dyndns").Start(ctx, "route53.ResolveRecord")
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

	// Weighted and multivalue sets share a name and differ only by
	// SetIdentifier; fetching two is enough to see a duplicate.
	fqdn := provider.FQDN(name)
	out, err := p.api.ListResourceRecordSets(ctx, &route53.ListResourceRecordSetsInput{
		HostedZoneId:    aws.String(zoneID),
		StartRecordName: aws.String(fqdn),
		StartRecordType: types.RRTypeA,
		MaxItems:        aws.Int32(2),
	})
	if err != nil {
		return provider.RecordIdentity{}, translateError(err)
	}

	matches := 0
	for _, rrset := range out.ResourceRecordSets {
		if rrset.Type == types.RRTypeA && provider.NameEquals(aws.ToString(rrset.Name), fqdn) {
			matches++
		}
	}
	if matches != 1 {
		return provider.RecordIdentity{}, provider.MatchError("record", name, matches)
	}

	return provider.RecordIdentity{
		ZoneID: zoneID,
		Zone:   zone,
		Name:   fqdn,
		Type:   provider.RecordTypeA,
	}, nil
}

func (p *Provider) resolveZoneID(ctx context.Context, zone string) (string, error) {
	if p.hostedZoneID != "" {
		return p.hostedZoneID, nil
	}

	out, err := p.api.ListHostedZonesByName(ctx, &route53.ListHostedZonesByNameInput{
		DNSName: aws.String(provider.FQDN(zone)),
	})
	if err != nil {
		return "", translateError(err)
	}

	// Results are ordered by name starting at DNSName, so later entries may
	// be unrelated zones.
	var ids []string
	for _, hz := range out.HostedZones {
		if provider.NameEquals(aws.ToString(hz.Name), zone) {
			ids = append(ids, trimZoneID(aws.ToString(hz.Id)))
		}
	}
	if len(ids) != 1 {
		return "", provider.MatchError("hosted zone", zone, len(ids))
	}

	p.logger.Debug("resolved hosted zone",
		slog.String("zone", zone),
		slog.String("hosted_zone_id", ids[0]),
	)
	return ids[0], nil
}

// UpdateRecord upserts the A record set with addr.
func (p *Provider) UpdateRecord(ctx context.Context, id provider.RecordIdentity, addr netip.Addr, ttl int) error {
	ctx, span := otel.Tracer("dyndns").Start(ctx, "route53.UpdateRecord")
	defer span.End()
	span.SetAttributes(
		attribute.String("dns.zone", id.ZoneID),
		attribute.String("dns.name", id.Name),
		attribute.String("dns.address", addr.String()),
	)

	if ttl <= 0 {
		ttl = provider.DefaultTTL
	}

	out, err := p.api.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(id.ZoneID),
		ChangeBatch: &types.ChangeBatch{
			Comment: aws.String("dyndns address update"),
			Changes: []types.Change{{
				Action: types.ChangeActionUpsert,
				ResourceRecordSet: &types.ResourceRecordSet{
					Name:            aws.String(id.Name),
					Type:            types.RRTypeA,
					TTL:             aws.Int64(int64(ttl)),
					ResourceRecords: []types.ResourceRecord{{Value: aws.String(addr.String())}},
				},
			}},
		},
	})
	if err != nil {
		err = translateError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return provider.WrapError(ProviderType, "update record", err)
	}

	attrs := []any{
		slog.String("hosted_zone_id", id.ZoneID),
		slog.String("name", id.Name),
		slog.String("content", addr.String()),
		slog.Int("ttl", ttl),
	}
	if out != nil && out.ChangeInfo != nil {
		attrs = append(attrs, slog.String("change_id", aws.ToString(out.ChangeInfo.Id)))
	}
	p.logger.Info("updated DNS record", attrs...)
	return nil
}

// translateError converts SDK errors into *provider.APIError when the
// service responded; transport failures are returned unchanged.
func translateError(err error) error {
	status := 0
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		status = respErr.HTTPStatusCode()
	}

	var ae smithy.APIError
	if !errors.As(err, &ae) {
		if status == 0 {
			return err
		}
		return &provider.APIError{Provider: ProviderType, Status: status}
	}

	return &provider.APIError{
		Provider: ProviderType,
		Status:   status,
		Messages: []provider.APIMessage{{Code: ae.ErrorCode(), Message: ae.ErrorMessage()}},
	}
}

// trimZoneID strips the "/hostedzone/" prefix Route 53 puts on zone IDs.
func trimZoneID(id string) string {
	return strings.TrimPrefix(id, "/hostedzone/")
}

// Factory returns a provider.Factory that builds a Route 53 provider from the
// access-key pair read at update time. endpoint overrides the service URL
// when non-empty.
func Factory(hostedZoneID, endpoint string, opts ...ProviderOption) provider.Factory {
	return func(ctx context.Context, cred provider.Credential) (provider.Provider, error) {
		key, err := parseCredential(cred)
		if err != nil {
			return nil, err
		}

		region := key.Region
		if region == "" {
			region = DefaultRegion
		}

		cfg, err := config.LoadDefaultConfig(ctx,
			config.WithRegion(region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(key.AccessKeyID, key.SecretAccessKey, key.SessionToken)),
		)
		if err != nil {
			return nil, fmt.Errorf("loading aws config: %w", err)
		}

		client := route53.NewFromConfig(cfg, func(o *route53.Options) {
			if endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
			}
		})

		return New(client, hostedZoneID, opts...), nil
	}
}

// Ensure Provider implements provider.Provider at compile time.
var _ provider.Provider = (*Provider)(nil)
