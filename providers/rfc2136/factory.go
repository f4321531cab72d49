package rfc2136

import (
	"context"
	"fmt"
	"log/slog"

	"gitlab.bluewillows.net/root/dyndns/pkg/dnsupdate"
	"gitlab.bluewillows.net/root/dyndns/pkg/provider"
)

// Factory returns a provider.Factory that builds an RFC 2136 provider, using
// the credential read at update time as the TSIG secret.
func Factory(settings Settings, opts ...ProviderOption) provider.Factory {
	return func(_ context.Context, cred provider.Credential) (provider.Provider, error) {
		if err := settings.Validate(); err != nil {
			return nil, err
		}

		cfg, err := settings.clientConfig(cred)
		if err != nil {
			return nil, err
		}

		p := New(nil, opts...)

		client, err := dnsupdate.NewClient(cfg, dnsupdate.WithLogger(p.logger))
		if err != nil {
			return nil, fmt.Errorf("creating dnsupdate client: %w", err)
		}
		p.client = client

		p.logger.Debug("RFC 2136 provider created",
			slog.String("server", client.Server()),
			slog.String("zone", client.Zone()),
			slog.Bool("tsig", cfg.HasTSIG()),
			slog.Bool("tcp", cfg.UseTCP),
		)

		return p, nil
	}
}
