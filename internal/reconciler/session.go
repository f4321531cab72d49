package reconciler

import (
	"context"
	"log/slog"

	"gitlab.bluewillows.net/root/dyndns/internal/metrics"
)

// ensureSession logs in when there is no session, when the token lookup
// fails, or when the remaining TTL is under RenewThreshold. A failed login
// clears the session so the next cycle starts over.
func (r *Reconciler) ensureSession(ctx context.Context) error {
	if r.session != nil {
		ttl, err := r.secrets.TokenTTL(ctx, r.session)
		switch {
		case err != nil:
			r.logger.Debug("vault token lookup failed, logging in again",
				slog.String("error", err.Error()),
			)
		case ttl < r.config.RenewThreshold:
			r.logger.Debug("vault token near expiry, logging in again",
				slog.Duration("ttl", ttl),
				slog.Duration("threshold", r.config.RenewThreshold),
			)
		default:
			return nil
		}
	}

	session, err := r.secrets.Login(ctx)
	metrics.ObserveLogin(err)
	if err != nil {
		r.session = nil
		return err
	}

	r.session = session
	return nil
}
