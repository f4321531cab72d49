// Package resolver performs the single-question A lookups dyndns uses to
// learn both the caller's public address and the currently published one.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"time"

	"github.com/miekg/dns"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Default configuration values.
const (
	// DefaultPort is the standard DNS port.
	DefaultPort = "53"

	// DefaultTimeout bounds a single query.
	DefaultTimeout = 5 * time.Second
)

// Well-known resolvers.
const (
	// OpenDNSResolver answers EchoHostname with the address of the querier.
	OpenDNSResolver = "208.67.222.222"

	// EchoHostname is the IP-echo name served by OpenDNS.
	EchoHostname = "myip.opendns.com"

	CloudflareResolver = "1.0.0.1"
	GoogleResolver     = "8.8.4.4"
)

// ErrResolution is returned when a lookup does not yield an IPv4 address.
var ErrResolution = errors.New("dns resolution failed")

// Answer is the address a resolver returned for a hostname.
type Answer struct {
	Addr     netip.Addr
	Hostname string
	Server   string
}

// Resolver sends A queries to an explicit server, bypassing the system resolver.
type Resolver struct {
	client *dns.Client
	logger *slog.Logger
}

// Option is a functional option for configuring the Resolver.
type Option func(*Resolver)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTimeout overrides the per-query timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Resolver) {
		if timeout > 0 {
			r.client.Timeout = timeout
		}
	}
}

// WithTCP sends queries over TCP instead of UDP.
func WithTCP() Option {
	return func(r *Resolver) {
		r.client.Net = "tcp"
	}
}

// New creates a Resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		client: &dns.Client{
			Net:     "udp",
			Timeout: DefaultTimeout,
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Lookup asks server for the A record of hostname and returns the first
// address in the answer section. There are no retries: any failure is
// reported to the caller, which decides what to do on the next cycle.
func (r *Resolver) Lookup(ctx context.Context, server, hostname string) (Answer, error) {
	ctx, span := otel.Tracer("dyndns").Start(ctx, "resolver.Lookup")
	defer span.End()

	addr := ServerAddr(server)
	span.SetAttributes(
		attribute.String("dns.hostname", hostname),
		attribute.String("dns.resolver", addr),
	)

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(hostname), dns.TypeA)
	msg.RecursionDesired = true

	r.logger.Debug("querying DNS",
		slog.String("hostname", hostname),
		slog.String("resolver", addr),
	)

	resp, rtt, err := r.exchangeWithContext(ctx, msg, addr)
	if err != nil {
		err = fmt.Errorf("%w: querying %s for %s: %w", ErrResolution, addr, hostname, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "exchange failed")
		return Answer{}, err
	}

	ip, err := firstA(resp)
	if err != nil {
		err = fmt.Errorf("%w: %s from %s: %w", ErrResolution, hostname, addr, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "no usable answer")
		return Answer{}, err
	}

	span.SetAttributes(attribute.String("dns.address", ip.String()))
	r.logger.Debug("DNS query complete",
		slog.String("hostname", hostname),
		slog.String("resolver", addr),
		slog.String("address", ip.String()),
		slog.Duration("rtt", rtt),
	)

	return Answer{Addr: ip, Hostname: hostname, Server: addr}, nil
}

// exchangeWithContext performs DNS exchange with context support.
func (r *Resolver) exchangeWithContext(ctx context.Context, msg *dns.Msg, server string) (*dns.Msg, time.Duration, error) {
	type result struct {
		resp *dns.Msg
		rtt  time.Duration
		err  error
	}
	ch := make(chan result, 1)

	go func() {
		resp, rtt, err := r.client.Exchange(msg, server)
		ch <- result{resp, rtt, err}
	}()

	select {
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	case res := <-ch:
		return res.resp, res.rtt, res.err
	}
}

// firstA returns the first A record of a successful response.
func firstA(resp *dns.Msg) (netip.Addr, error) {
	if resp == nil {
		return netip.Addr{}, errors.New("no response from server")
	}

	if resp.Rcode != dns.RcodeSuccess {
		return netip.Addr{}, fmt.Errorf("server returned %s", dns.RcodeToString[resp.Rcode])
	}

	for _, rr := range resp.Answer {
		a, ok := rr.(*dns.A)
		if !ok {
			continue
		}
		ip, ok := netip.AddrFromSlice(a.A.To4())
		if !ok {
			continue
		}
		return ip, nil
	}

	return netip.Addr{}, errors.New("no A record in answer")
}

// ServerAddr appends the default DNS port when server has none.
func ServerAddr(server string) string {
	if server == "" {
		return ""
	}
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	return net.JoinHostPort(server, DefaultPort)
}
