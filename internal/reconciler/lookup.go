package reconciler

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"gitlab.bluewillows.net/root/dyndns/internal/metrics"
	"gitlab.bluewillows.net/root/dyndns/pkg/resolver"
)

// Lookup kinds used in metrics.
const (
	lookupCurrent   = "current"
	lookupPublished = "published"
)

// lookup resolves the public address and the published record concurrently.
// If either fails the cycle stops before any provider call.
func (r *Reconciler) lookup(ctx context.Context) (current, published resolver.Answer, err error) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ans, err := r.resolver.Lookup(gctx, r.config.EchoResolver, r.config.EchoHostname)
		metrics.ObserveLookup(lookupCurrent, err)
		if err != nil {
			return fmt.Errorf("resolving public address: %w", err)
		}
		current = ans
		return nil
	})

	g.Go(func() error {
		ans, err := r.resolver.Lookup(gctx, r.config.PublishedResolver, r.config.Record)
		metrics.ObserveLookup(lookupPublished, err)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", r.config.Record, err)
		}
		published = ans
		return nil
	})

	if err := g.Wait(); err != nil {
		return resolver.Answer{}, resolver.Answer{}, err
	}
	return current, published, nil
}
