package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Global configuration defaults.
const (
	DefaultLogLevel        = "warn"
	DefaultLogFormat       = "json"
	DefaultDryRun          = false
	DefaultInterval        = 120 * time.Second
	DefaultRecordTTL       = 60
	DefaultHealthPort      = 8080
	DefaultEchoResolver    = "208.67.222.222"
	DefaultEchoHostname    = "myip.opendns.com"
	DefaultVaultAddress    = "http://vault.vault.svc:8200"
	DefaultJWTTokenPath    = "/var/run/secrets/kubernetes.io/serviceaccount/token"
	DefaultVaultAuthMount  = "kubernetes"
	DefaultVaultRole       = "cf-dyn-dns"
	DefaultVaultKVMount    = "kv"
	DefaultVaultSecretPath = "cf-dyn-dns"
	DefaultRenewThreshold  = 120 * time.Second
	DefaultTraceExporter   = "none"
	DefaultTSIGAlgorithm   = "hmac-sha256"
)

// VaultConfig holds the secret store settings.
type VaultConfig struct {
	Address        string        // Vault server URL (VAULT_ADDR)
	TokenPath      string        // Service-account JWT file (JWT_TOKEN_PATH)
	AuthMount      string        // Kubernetes auth mount
	Role           string        // Kubernetes auth role
	KVMount        string        // KV v2 mount
	SecretPath     string        // Path of the credential secret under the KV mount
	SecretKey      string        // Field of the secret; empty means the provider default
	RenewThreshold time.Duration // Re-login when the token has less than this left
}

// RFC2136Config holds the dynamic update settings for the rfc2136 variant.
// The TSIG secret itself is read from Vault.
type RFC2136Config struct {
	Server        string // Primary server, host[:port]
	TSIGKeyName   string // TSIG key name; empty sends unsigned updates
	TSIGAlgorithm string // hmac-sha256, hmac-sha512, hmac-md5
	UseTCP        bool   // Send queries and updates over TCP
}

// GlobalConfig holds application-wide settings.
// These are parsed from DYNDNS_* environment variables, optionally layered
// over a configuration file.
type GlobalConfig struct {
	// Logging configuration
	LogLevel  string // debug, info, warn, error
	LogFormat string // json, text

	// Behavior
	DryRun     bool          // If true, log intended updates without calling the provider
	Interval   time.Duration // Delay between cycles
	RecordTTL  int           // TTL written with every update
	HealthPort int           // Port for health/metrics endpoints; 0 disables

	// Resolution
	EchoResolver      string // Resolver answering the IP-echo query
	EchoHostname      string // Hostname that resolves to the caller's address
	PublishedResolver string // Resolver for the tracked record; empty means the provider default

	// Secret store
	Vault VaultConfig

	// Tracing
	TraceExporter string // none, console, otlp
	TraceEndpoint string // OTLP gRPC endpoint

	// Route53Endpoint overrides the Route 53 service URL; empty means AWS
	Route53Endpoint string

	// RFC 2136 dynamic update settings
	RFC2136 RFC2136Config
}

// defaultGlobalConfig returns a GlobalConfig populated with defaults.
func defaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		LogLevel:     DefaultLogLevel,
		LogFormat:    DefaultLogFormat,
		DryRun:       DefaultDryRun,
		Interval:     DefaultInterval,
		RecordTTL:    DefaultRecordTTL,
		HealthPort:   DefaultHealthPort,
		EchoResolver: DefaultEchoResolver,
		EchoHostname: DefaultEchoHostname,
		Vault: VaultConfig{
			Address:        DefaultVaultAddress,
			TokenPath:      DefaultJWTTokenPath,
			AuthMount:      DefaultVaultAuthMount,
			Role:           DefaultVaultRole,
			KVMount:        DefaultVaultKVMount,
			SecretPath:     DefaultVaultSecretPath,
			RenewThreshold: DefaultRenewThreshold,
		},
		TraceExporter: DefaultTraceExporter,
		RFC2136: RFC2136Config{
			TSIGAlgorithm: DefaultTSIGAlgorithm,
		},
	}
}

// loadGlobalConfig loads global configuration from environment variables.
// Returns a list of validation errors (may be empty).
func loadGlobalConfig() (*GlobalConfig, []string) {
	return mergeGlobalConfig(nil)
}

// mergeGlobalConfig overrides base with every environment variable that is
// set. Environment variables always take precedence over file config.
func mergeGlobalConfig(base *GlobalConfig) (*GlobalConfig, []string) {
	if base == nil {
		base = defaultGlobalConfig()
	}

	var errs []string
	cfg := *base

	if v := lookup("DYNDNS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := lookup("DYNDNS_LOG_FORMAT"); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}

	if v := lookup("DYNDNS_DRY_RUN"); v != "" {
		cfg.DryRun = parseBool(v, cfg.DryRun)
	}

	// Go duration format: 120s, 5m
	if v := lookup("DYNDNS_INTERVAL"); v != "" {
		interval, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("DYNDNS_INTERVAL: invalid duration %q (use format like 120s, 5m)", v))
		} else {
			cfg.Interval = interval
		}
	}

	if v := lookup("DYNDNS_RECORD_TTL"); v != "" {
		ttl, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("DYNDNS_RECORD_TTL: invalid integer %q", v))
		} else {
			cfg.RecordTTL = ttl
		}
	}

	if v := lookup("DYNDNS_HEALTH_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("DYNDNS_HEALTH_PORT: invalid integer %q", v))
		} else {
			cfg.HealthPort = port
		}
	}

	if v := lookup("DYNDNS_ECHO_RESOLVER"); v != "" {
		cfg.EchoResolver = v
	}
	if v := lookup("DYNDNS_ECHO_HOSTNAME"); v != "" {
		cfg.EchoHostname = v
	}
	if v := lookup("DYNDNS_PUBLISHED_RESOLVER"); v != "" {
		cfg.PublishedResolver = v
	}

	// VAULT_ADDR and JWT_TOKEN_PATH keep the names the deployment already uses.
	if v := lookup("VAULT_ADDR"); v != "" {
		cfg.Vault.Address = v
	}
	if v := lookup("JWT_TOKEN_PATH"); v != "" {
		cfg.Vault.TokenPath = v
	}
	if v := lookup("DYNDNS_VAULT_AUTH_MOUNT"); v != "" {
		cfg.Vault.AuthMount = v
	}
	if v := lookup("DYNDNS_VAULT_ROLE"); v != "" {
		cfg.Vault.Role = v
	}
	if v := lookup("DYNDNS_VAULT_KV_MOUNT"); v != "" {
		cfg.Vault.KVMount = v
	}
	if v := lookup("DYNDNS_VAULT_SECRET_PATH"); v != "" {
		cfg.Vault.SecretPath = v
	}
	if v := lookup("DYNDNS_VAULT_SECRET_KEY"); v != "" {
		cfg.Vault.SecretKey = v
	}
	if v := lookup("DYNDNS_VAULT_RENEW_THRESHOLD"); v != "" {
		threshold, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("DYNDNS_VAULT_RENEW_THRESHOLD: invalid duration %q", v))
		} else {
			cfg.Vault.RenewThreshold = threshold
		}
	}

	if v := lookup("DYNDNS_TRACE_EXPORTER"); v != "" {
		cfg.TraceExporter = strings.ToLower(v)
	}
	if v := lookup("DYNDNS_TRACE_ENDPOINT"); v != "" {
		cfg.TraceEndpoint = v
	}

	if v := lookup("DYNDNS_ROUTE53_ENDPOINT"); v != "" {
		cfg.Route53Endpoint = v
	}

	if v := lookup("DYNDNS_RFC2136_SERVER"); v != "" {
		cfg.RFC2136.Server = v
	}
	if v := lookup("DYNDNS_RFC2136_TSIG_KEY_NAME"); v != "" {
		cfg.RFC2136.TSIGKeyName = v
	}
	if v := lookup("DYNDNS_RFC2136_TSIG_ALGORITHM"); v != "" {
		cfg.RFC2136.TSIGAlgorithm = strings.ToLower(v)
	}
	if v := lookup("DYNDNS_RFC2136_USE_TCP"); v != "" {
		cfg.RFC2136.UseTCP = parseBool(v, cfg.RFC2136.UseTCP)
	}

	return &cfg, errs
}

// validateGlobalConfig checks value ranges and enumerations.
func validateGlobalConfig(cfg *GlobalConfig) []string {
	var errs []string

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
		// Valid
	default:
		errs = append(errs, fmt.Sprintf("DYNDNS_LOG_LEVEL: invalid value %q (must be debug, info, warn, or error)", cfg.LogLevel))
	}

	switch cfg.LogFormat {
	case "json", "text":
		// Valid
	default:
		errs = append(errs, fmt.Sprintf("DYNDNS_LOG_FORMAT: invalid value %q (must be json or text)", cfg.LogFormat))
	}

	if cfg.Interval < time.Second {
		errs = append(errs, "DYNDNS_INTERVAL: must be at least 1s")
	}

	if cfg.RecordTTL < 1 {
		errs = append(errs, "DYNDNS_RECORD_TTL: must be at least 1")
	}

	if cfg.HealthPort < 0 || cfg.HealthPort > 65535 {
		errs = append(errs, fmt.Sprintf("DYNDNS_HEALTH_PORT: must be between 0 and 65535, got %d", cfg.HealthPort))
	}

	if err := validateResolver(cfg.EchoResolver); err != nil {
		errs = append(errs, "DYNDNS_ECHO_RESOLVER: "+err.Error())
	}
	if cfg.PublishedResolver != "" {
		if err := validateResolver(cfg.PublishedResolver); err != nil {
			errs = append(errs, "DYNDNS_PUBLISHED_RESOLVER: "+err.Error())
		}
	}
	if cfg.EchoHostname == "" {
		errs = append(errs, "DYNDNS_ECHO_HOSTNAME: must not be empty")
	}

	if cfg.Vault.Address == "" {
		errs = append(errs, "VAULT_ADDR: must not be empty")
	}
	if cfg.Vault.TokenPath == "" {
		errs = append(errs, "JWT_TOKEN_PATH: must not be empty")
	}
	if cfg.Vault.Role == "" {
		errs = append(errs, "DYNDNS_VAULT_ROLE: must not be empty")
	}
	if cfg.Vault.SecretPath == "" {
		errs = append(errs, "DYNDNS_VAULT_SECRET_PATH: must not be empty")
	}
	if cfg.Vault.RenewThreshold <= 0 {
		errs = append(errs, "DYNDNS_VAULT_RENEW_THRESHOLD: must be positive")
	}

	switch cfg.RFC2136.TSIGAlgorithm {
	case "hmac-sha256", "hmac-sha512", "hmac-md5":
		// Valid
	default:
		errs = append(errs, fmt.Sprintf("DYNDNS_RFC2136_TSIG_ALGORITHM: invalid value %q (must be hmac-sha256, hmac-sha512, or hmac-md5)", cfg.RFC2136.TSIGAlgorithm))
	}

	switch cfg.TraceExporter {
	case "none", "console":
		// Valid
	case "otlp":
		if cfg.TraceEndpoint == "" {
			errs = append(errs, "DYNDNS_TRACE_ENDPOINT: required when DYNDNS_TRACE_EXPORTER is otlp")
		}
	default:
		errs = append(errs, fmt.Sprintf("DYNDNS_TRACE_EXPORTER: invalid value %q (must be none, console, or otlp)", cfg.TraceExporter))
	}

	return errs
}

// validateResolver accepts an IP address with an optional port.
func validateResolver(server string) error {
	host := server
	if h, port, err := net.SplitHostPort(server); err == nil {
		if _, err := strconv.ParseUint(port, 10, 16); err != nil {
			return fmt.Errorf("invalid port in %q", server)
		}
		host = h
	}
	if net.ParseIP(host) == nil {
		return fmt.Errorf("%q is not an IP address", server)
	}
	return nil
}
