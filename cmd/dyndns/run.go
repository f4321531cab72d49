package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"gitlab.bluewillows.net/root/dyndns/internal/config"
	"gitlab.bluewillows.net/root/dyndns/internal/health"
	"gitlab.bluewillows.net/root/dyndns/internal/logging"
	"gitlab.bluewillows.net/root/dyndns/internal/metrics"
	"gitlab.bluewillows.net/root/dyndns/internal/reconciler"
	"gitlab.bluewillows.net/root/dyndns/internal/telemetry"
	"gitlab.bluewillows.net/root/dyndns/pkg/provider"
	"gitlab.bluewillows.net/root/dyndns/pkg/resolver"
	"gitlab.bluewillows.net/root/dyndns/pkg/secrets"
	"gitlab.bluewillows.net/root/dyndns/providers/cloudflare"
	"gitlab.bluewillows.net/root/dyndns/providers/google"
	"gitlab.bluewillows.net/root/dyndns/providers/rfc2136"
	"gitlab.bluewillows.net/root/dyndns/providers/route53"
)

// providerDefaults are the per-variant fallbacks for settings left unset.
type providerDefaults struct {
	resolver  string
	secretKey string
}

var defaults = map[string]providerDefaults{
	config.ProviderCloudflare: {resolver: cloudflare.DefaultResolver, secretKey: cloudflare.DefaultSecretKey},
	config.ProviderGoogle:     {resolver: google.DefaultResolver, secretKey: google.DefaultSecretKey},
	config.ProviderRFC2136:    {resolver: rfc2136.DefaultResolver, secretKey: rfc2136.DefaultSecretKey},
	config.ProviderRoute53:    {resolver: route53.DefaultResolver, secretKey: route53.DefaultSecretKey},
}

func run(ctx context.Context, target config.Target, opts options) error {
	// Load configuration first so bad settings fail before any network traffic
	cfg, err := config.Load(target)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if opts.dryRun {
		cfg.Global.DryRun = true
	}

	logger := logging.New(os.Stdout, cfg.LogLevel(), cfg.LogFormat())
	slog.SetDefault(logger)

	metrics.SetBuildInfo(Version, runtime.Version())

	logger.Info("dyndns starting",
		slog.String("version", Version),
		slog.String("build_date", BuildDate),
		slog.String("go_version", runtime.Version()),
		slog.String("target", target.String()),
		slog.Bool("dry_run", cfg.DryRun()),
		slog.Bool("once", opts.once),
	)

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Exporter: cfg.Global.TraceExporter,
		Endpoint: cfg.Global.TraceEndpoint,
		Version:  Version,
	})
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("tracing shutdown error", logging.Err(err))
		}
	}()

	store, err := secrets.NewClient(secrets.Config{
		Address:   cfg.Global.Vault.Address,
		TokenPath: cfg.Global.Vault.TokenPath,
		AuthMount: cfg.Global.Vault.AuthMount,
		Role:      cfg.Global.Vault.Role,
		KVMount:   cfg.Global.Vault.KVMount,
	}, secrets.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("creating vault client: %w", err)
	}

	registry := newRegistry(target, cfg.Global, logger)
	factory, err := registry.Factory(target.Provider)
	if err != nil {
		return err
	}

	def := defaults[target.Provider]
	published := cfg.PublishedResolver(def.resolver)
	if published == "" {
		// RFC 2136 reads the record back from the primary it updates
		published = cfg.Global.RFC2136.Server
	}

	rec := reconciler.New(
		resolver.New(resolver.WithLogger(logger)),
		store,
		factory,
		reconciler.WithLogger(logger),
		reconciler.WithConfig(reconciler.Config{
			Zone:              target.Zone,
			Record:            target.Record,
			EchoResolver:      cfg.Global.EchoResolver,
			EchoHostname:      cfg.Global.EchoHostname,
			PublishedResolver: published,
			SecretPath:        cfg.Global.Vault.SecretPath,
			SecretKey:         cfg.SecretKey(def.secretKey),
			TTL:               cfg.Global.RecordTTL,
			Interval:          cfg.Interval(),
			RenewThreshold:    cfg.Global.Vault.RenewThreshold,
			DryRun:            cfg.DryRun(),
		}),
	)

	if opts.once {
		return rec.RunOnce(ctx)
	}

	if port := cfg.HealthPort(); port > 0 {
		healthServer := health.New(port,
			health.WithLogger(logger),
			health.WithStatus(func() any { return rec.LastResult() }),
		)
		healthServer.RegisterChecker("reconciler", rec.Ready)
		healthServer.RegisterDegradedChecker("reconciler", rec.Degraded)

		if err := healthServer.Start(); err != nil {
			return fmt.Errorf("starting health server: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := healthServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("health server shutdown error", logging.Err(err))
			}
		}()
	}

	err = rec.Run(ctx)
	logger.Info("dyndns shutdown complete")
	return err
}

// newRegistry registers a factory for every supported provider, bound to
// target's zone id, project or zone.
func newRegistry(target config.Target, global *config.GlobalConfig, logger *slog.Logger) *provider.Registry {
	registry := provider.NewRegistry()

	registry.RegisterFactory(config.ProviderCloudflare,
		cloudflare.Factory(target.ZoneID, cloudflare.WithProviderLogger(logger)))

	registry.RegisterFactory(config.ProviderGoogle,
		google.Factory(target.Project, google.WithProviderLogger(logger)))

	registry.RegisterFactory(config.ProviderRFC2136,
		rfc2136.Factory(rfc2136.Settings{
			Server:        global.RFC2136.Server,
			Zone:          target.Zone,
			TSIGKeyName:   global.RFC2136.TSIGKeyName,
			TSIGAlgorithm: global.RFC2136.TSIGAlgorithm,
			UseTCP:        global.RFC2136.UseTCP,
		}, rfc2136.WithProviderLogger(logger)))

	registry.RegisterFactory(config.ProviderRoute53,
		route53.Factory(target.ZoneID, global.Route53Endpoint, route53.WithProviderLogger(logger)))

	return registry
}
