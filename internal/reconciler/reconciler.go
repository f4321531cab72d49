// Package reconciler keeps one DNS A record pointed at the caller's public
// IPv4 address.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"gitlab.bluewillows.net/root/dyndns/internal/metrics"
	"gitlab.bluewillows.net/root/dyndns/pkg/provider"
	"gitlab.bluewillows.net/root/dyndns/pkg/resolver"
	"gitlab.bluewillows.net/root/dyndns/pkg/secrets"
)

// Resolver looks up the first A record for hostname at server.
type Resolver interface {
	Lookup(ctx context.Context, server, hostname string) (resolver.Answer, error)
}

// SecretStore issues sessions and reads provider credentials.
type SecretStore interface {
	Login(ctx context.Context) (*secrets.Session, error)
	TokenTTL(ctx context.Context, session *secrets.Session) (time.Duration, error)
	ReadSecret(ctx context.Context, session *secrets.Session, path, key string) (provider.Credential, error)
}

// Config holds reconciler configuration options.
type Config struct {
	// Zone and Record identify the tracked record at the provider.
	Zone   string
	Record string

	// EchoResolver answers EchoHostname with the caller's public address.
	EchoResolver string
	EchoHostname string

	// PublishedResolver is queried for Record.
	PublishedResolver string

	// SecretPath and SecretKey locate the provider credential.
	SecretPath string
	SecretKey  string

	// TTL is written with every update.
	TTL int

	// Interval is the delay between the end of one cycle and the start of the next.
	Interval time.Duration

	// RenewThreshold triggers a fresh login when the session has less time left.
	RenewThreshold time.Duration

	// DryRun if true, logs the update without calling the provider.
	DryRun bool
}

// DefaultConfig returns a Config with the standard resolvers and timings.
// Zone, Record, PublishedResolver and the secret location must still be set.
func DefaultConfig() Config {
	return Config{
		EchoResolver:   resolver.OpenDNSResolver,
		EchoHostname:   resolver.EchoHostname,
		TTL:            provider.DefaultTTL,
		Interval:       120 * time.Second,
		RenewThreshold: 120 * time.Second,
	}
}

// Reconciler runs the resolve, compare, update cycle.
//
// Each cycle:
//  1. Resolves the public address and the published record concurrently
//  2. Stops if they match
//  3. Otherwise ensures a Vault session, reads the credential, builds the
//     provider, resolves the record identity and updates it
type Reconciler struct {
	resolver Resolver
	secrets  SecretStore
	factory  provider.Factory
	config   Config
	logger   *slog.Logger

	// session is only touched by the goroutine running cycles.
	session *secrets.Session

	mu   sync.RWMutex
	last *Result
}

// Option is a functional option for configuring the Reconciler.
type Option func(*Reconciler)

// WithLogger sets a custom logger for the reconciler.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithConfig sets the reconciler configuration.
func WithConfig(cfg Config) Option {
	return func(r *Reconciler) {
		r.config = cfg
	}
}

// New creates a new Reconciler with the given dependencies.
func New(res Resolver, store SecretStore, factory provider.Factory, opts ...Option) *Reconciler {
	r := &Reconciler{
		resolver: res,
		secrets:  store,
		factory:  factory,
		config:   DefaultConfig(),
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Reconcile performs one cycle. The returned Result is always non-nil; the
// error is non-nil when the cycle failed, and provider.IsFatal reports
// whether the failure is a misconfiguration that retrying cannot fix.
func (r *Reconciler) Reconcile(ctx context.Context) (*Result, error) {
	ctx, span := otel.Tracer("dyndns").Start(ctx, "reconciler.Reconcile")
	defer span.End()
	span.SetAttributes(attribute.String("dns.record", r.config.Record))

	result := NewResult(r.config.Record, r.config.DryRun)

	err := r.reconcile(ctx, result)
	if err != nil {
		result.Fail(err, provider.IsFatal(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "cycle failed")
	}
	span.SetAttributes(attribute.String("dyndns.outcome", string(result.Outcome)))

	metrics.ObserveCycle(string(result.Outcome), result.Duration(), result.EndTime)

	r.mu.Lock()
	r.last = result
	r.mu.Unlock()

	return result, err
}

func (r *Reconciler) reconcile(ctx context.Context, result *Result) error {
	current, published, err := r.lookup(ctx)
	if err != nil {
		return err
	}
	result.CurrentAddress = current.Addr
	result.PublishedAddress = published.Addr

	if !result.Changed() {
		result.Complete(OutcomeUpToDate)
		r.logger.Info(fmt.Sprintf("DNS record for %s (%s) is up to date", r.config.Record, published.Addr),
			slog.String("record", r.config.Record),
			slog.String("address", published.Addr.String()),
		)
		return nil
	}

	r.logger.Info(fmt.Sprintf("DNS record for %s (%s) will be updated to %s", r.config.Record, published.Addr, current.Addr),
		slog.String("record", r.config.Record),
		slog.String("published", published.Addr.String()),
		slog.String("current", current.Addr.String()),
	)

	if r.config.DryRun {
		result.Complete(OutcomeDryRun)
		r.logger.Info("[dry-run] would update DNS record",
			slog.String("record", r.config.Record),
			slog.String("content", current.Addr.String()),
			slog.Int("ttl", r.config.TTL),
		)
		return nil
	}

	if err := r.update(ctx, current.Addr); err != nil {
		return err
	}

	result.Complete(OutcomeUpdated)
	return nil
}

// update pushes addr to the provider with a fresh credential.
func (r *Reconciler) update(ctx context.Context, addr netip.Addr) error {
	if err := r.ensureSession(ctx); err != nil {
		return err
	}

	cred, err := r.secrets.ReadSecret(ctx, r.session, r.config.SecretPath, r.config.SecretKey)
	if err != nil {
		return err
	}

	p, err := r.factory(ctx, cred)
	if err != nil {
		return fmt.Errorf("building provider: %w", err)
	}

	id, err := p.ResolveRecord(ctx, r.config.Zone, r.config.Record)
	if err != nil {
		return err
	}

	err = p.UpdateRecord(ctx, id, addr, r.config.TTL)
	metrics.ObserveUpdate(p.Type(), err)
	if err != nil {
		return err
	}

	r.logger.Warn(fmt.Sprintf("DNS record for %s updated to %s", r.config.Record, addr),
		slog.String("provider", p.Type()),
		slog.String("record", r.config.Record),
		slog.String("address", addr.String()),
	)
	return nil
}

// Run calls Reconcile immediately and then Interval after each cycle ends,
// until ctx is cancelled or a cycle fails fatally. Cycles never overlap.
func (r *Reconciler) Run(ctx context.Context) error {
	r.logger.Info("starting reconciliation loop",
		slog.String("record", r.config.Record),
		slog.Duration("interval", r.config.Interval),
		slog.Bool("dry_run", r.config.DryRun),
	)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciliation loop stopped")
			return nil
		case <-timer.C:
		}

		_, err := r.Reconcile(ctx)
		if err != nil {
			if ctx.Err() != nil {
				r.logger.Info("reconciliation loop stopped")
				return nil
			}
			if provider.IsFatal(err) {
				r.logger.Error("unrecoverable configuration error, stopping",
					slog.String("record", r.config.Record),
					slog.String("error", err.Error()),
				)
				return err
			}
			r.logCycleError(err)
		}

		timer.Reset(r.config.Interval)
	}
}

// RunOnce performs a single cycle and logs it the way Run does. Any failure
// is returned.
func (r *Reconciler) RunOnce(ctx context.Context) error {
	result, err := r.Reconcile(ctx)
	if err != nil {
		if provider.IsFatal(err) {
			r.logger.Error("unrecoverable configuration error",
				slog.String("record", r.config.Record),
				slog.String("error", err.Error()),
			)
		} else {
			r.logCycleError(err)
		}
		return err
	}
	r.logger.Debug("cycle complete",
		slog.String("outcome", string(result.Outcome)),
		slog.Duration("duration", result.Duration()),
	)
	return nil
}

// logCycleError logs a recoverable failure with whatever structured detail
// the error carries.
func (r *Reconciler) logCycleError(err error) {
	attrs := []any{
		slog.String("record", r.config.Record),
		slog.String("error", err.Error()),
	}

	switch {
	case errors.Is(err, resolver.ErrResolution):
		attrs = append(attrs, slog.String("stage", "resolve"))
	case errors.Is(err, secrets.ErrAuth), errors.Is(err, secrets.ErrSecretRead):
		attrs = append(attrs, slog.String("stage", "vault"))
	default:
		attrs = append(attrs, slog.String("stage", "update"))
	}

	if provider.IsUnauthorized(err) {
		attrs = append(attrs, slog.Bool("credential_rejected", true))
	}

	if apiErr, ok := provider.AsAPIError(err); ok {
		attrs = append(attrs,
			slog.String("provider", apiErr.Provider),
			slog.Int("status", apiErr.Status),
		)
		for i, m := range apiErr.Messages {
			attrs = append(attrs, slog.Group(fmt.Sprintf("api_error_%d", i),
				slog.String("code", m.Code),
				slog.String("message", m.Message),
			))
		}
	}

	r.logger.Warn("reconciliation cycle failed", attrs...)
}

// LastResult returns a copy of the most recent cycle's result, or nil before
// the first cycle finishes.
func (r *Reconciler) LastResult() *Result {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.last == nil {
		return nil
	}
	result := *r.last
	return &result
}

// Ready returns an error until the first cycle has finished.
func (r *Reconciler) Ready(_ context.Context) error {
	if r.LastResult() == nil {
		return errors.New("no reconciliation cycle has completed yet")
	}
	return nil
}

// Degraded reports whether the most recent cycle failed.
func (r *Reconciler) Degraded(_ context.Context) (bool, string) {
	last := r.LastResult()
	if last == nil || last.Outcome != OutcomeFailed {
		return false, ""
	}
	return true, "last cycle failed: " + last.Error
}
