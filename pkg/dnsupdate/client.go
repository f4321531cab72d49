package dnsupdate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"time"

	"github.com/miekg/dns"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Sentinel errors for RFC 2136 operations.
var (
	// ErrUpdateFailed is returned when the server rejects an UPDATE.
	ErrUpdateFailed = errors.New("dns update failed")

	// ErrQueryFailed is returned when the server cannot answer a query.
	ErrQueryFailed = errors.New("dns query failed")

	// ErrAuthenticationFailed is returned when the server rejects the TSIG key.
	ErrAuthenticationFailed = errors.New("tsig authentication failed")

	// ErrConnectionFailed is returned when the server cannot be reached.
	ErrConnectionFailed = errors.New("connection to dns server failed")

	// ErrZoneMismatch is returned when a name is outside the configured zone.
	ErrZoneMismatch = errors.New("record name does not match configured zone")
)

// Client sends queries and updates to one server for one zone.
type Client struct {
	config    *Config
	tsig      *TSIG
	logger    *slog.Logger
	dnsClient *dns.Client
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*Client)

// WithLogger sets a custom logger for the DNS update client.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a new RFC 2136 client with the given configuration.
func NewClient(config *Config, opts ...ClientOption) (*Client, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	tsig, err := TSIGFromConfig(config)
	if err != nil {
		return nil, fmt.Errorf("invalid TSIG configuration: %w", err)
	}

	c := &Client{
		config: config,
		tsig:   tsig,
		logger: slog.Default(),
		dnsClient: &dns.Client{
			Net:     "udp",
			Timeout: config.GetTimeout(),
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	if config.UseTCP {
		c.dnsClient.Net = "tcp"
	}
	tsig.ApplyToClient(c.dnsClient)

	c.logger.Debug("RFC 2136 client initialized",
		slog.String("server", config.GetServer()),
		slog.String("zone", config.Zone),
		slog.Bool("tsig", tsig != nil),
		slog.Bool("tcp", config.UseTCP),
	)

	return c, nil
}

// Zone returns the configured zone name.
func (c *Client) Zone() string {
	return c.config.Zone
}

// Server returns the configured server address.
func (c *Client) Server() string {
	return c.config.GetServer()
}

// QueryA returns every A record the server holds for name. A name that does
// not exist yields no addresses and no error.
func (c *Client) QueryA(ctx context.Context, name string) ([]netip.Addr, error) {
	fqdn := dns.Fqdn(name)
	if !dns.IsSubDomain(c.config.Zone, fqdn) {
		return nil, fmt.Errorf("%w: %s not in %s", ErrZoneMismatch, fqdn, c.config.Zone)
	}

	ctx, span := otel.Tracer("dyndns").Start(ctx, "dnsupdate.QueryA")
	defer span.End()
	span.SetAttributes(
		attribute.String("dns.server", c.config.GetServer()),
		attribute.String("dns.question.name", fqdn),
	)

	msg := new(dns.Msg)
	msg.SetQuestion(fqdn, dns.TypeA)
	msg.RecursionDesired = false
	c.tsig.ApplyToMessage(msg)

	resp, _, err := c.exchangeWithContext(ctx, msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "exchange failed")
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	switch resp.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return nil, nil
	case dns.RcodeNotAuth, dns.RcodeRefused:
		if c.tsig != nil {
			return nil, fmt.Errorf("%w: %s", ErrAuthenticationFailed, dns.RcodeToString[resp.Rcode])
		}
		return nil, fmt.Errorf("%w: %s", ErrQueryFailed, dns.RcodeToString[resp.Rcode])
	default:
		return nil, fmt.Errorf("%w: %s", ErrQueryFailed, dns.RcodeToString[resp.Rcode])
	}

	var addrs []netip.Addr
	for _, rr := range resp.Answer {
		a, ok := rr.(*dns.A)
		if !ok {
			continue
		}
		if addr, ok := netip.AddrFromSlice(a.A.To4()); ok {
			addrs = append(addrs, addr)
		}
	}

	span.SetAttributes(attribute.Int("dns.answer.count", len(addrs)))
	return addrs, nil
}

// ReplaceA replaces the A RRset for name with a single record holding addr.
// The delete and the insert travel in one UPDATE message.
func (c *Client) ReplaceA(ctx context.Context, name string, addr netip.Addr, ttl uint32) error {
	fqdn := dns.Fqdn(name)
	if !dns.IsSubDomain(c.config.Zone, fqdn) {
		return fmt.Errorf("%w: %s not in %s", ErrZoneMismatch, fqdn, c.config.Zone)
	}
	if !addr.Is4() {
		return fmt.Errorf("%w: %s is not an IPv4 address", ErrUpdateFailed, addr)
	}

	ctx, span := otel.Tracer("dyndns").Start(ctx, "dnsupdate.ReplaceA")
	defer span.End()
	span.SetAttributes(
		attribute.String("dns.server", c.config.GetServer()),
		attribute.String("dns.zone", c.config.Zone),
		attribute.String("dns.record", fqdn),
		attribute.String("dns.content", addr.String()),
	)

	rr := &dns.A{
		Hdr: dns.RR_Header{Name: fqdn, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: ttl},
		A:   addr.AsSlice(),
	}

	msg := new(dns.Msg)
	msg.SetUpdate(c.config.Zone)
	msg.RemoveRRset([]dns.RR{rr})
	msg.Insert([]dns.RR{rr})
	c.tsig.ApplyToMessage(msg)

	c.logger.Debug("sending DNS update",
		slog.String("name", fqdn),
		slog.String("content", addr.String()),
		slog.Uint64("ttl", uint64(ttl)),
	)

	resp, _, err := c.exchangeWithContext(ctx, msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "exchange failed")
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	if err := c.checkResponse(resp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update rejected")
		return err
	}

	return nil
}

// exchangeWithContext performs a DNS exchange that honors ctx cancellation.
func (c *Client) exchangeWithContext(ctx context.Context, msg *dns.Msg) (*dns.Msg, time.Duration, error) {
	type result struct {
		resp *dns.Msg
		rtt  time.Duration
		err  error
	}
	ch := make(chan result, 1)

	go func() {
		resp, rtt, err := c.dnsClient.Exchange(msg, c.config.GetServer())
		ch <- result{resp, rtt, err}
	}()

	select {
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	case r := <-ch:
		return r.resp, r.rtt, r.err
	}
}

// checkResponse maps an UPDATE response code to an error.
func (c *Client) checkResponse(resp *dns.Msg) error {
	if resp == nil {
		return fmt.Errorf("%w: no response from server", ErrUpdateFailed)
	}

	switch resp.Rcode {
	case dns.RcodeSuccess:
		return nil

	case dns.RcodeNotAuth:
		// Unsigned: the server is not primary for the zone
		if c.tsig != nil {
			return fmt.Errorf("%w: %s", ErrAuthenticationFailed, dns.RcodeToString[resp.Rcode])
		}
		return fmt.Errorf("%w: server not authoritative for zone", ErrUpdateFailed)

	case dns.RcodeRefused:
		return fmt.Errorf("%w: update refused (check server policy or TSIG configuration)", ErrUpdateFailed)

	case dns.RcodeNotZone:
		return ErrZoneMismatch

	default:
		return fmt.Errorf("%w: %s", ErrUpdateFailed, dns.RcodeToString[resp.Rcode])
	}
}

// IsAuthError reports whether err is a TSIG rejection.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuthenticationFailed)
}
