package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// FileConfig represents the configuration file structure.
// The same layout is accepted as YAML or TOML.
type FileConfig struct {
	// Logging configuration
	Logging *FileLoggingConfig `yaml:"logging,omitempty" toml:"logging"`

	// Reconciler settings
	Reconciler *FileReconcilerConfig `yaml:"reconciler,omitempty" toml:"reconciler"`

	// DNS resolvers
	Resolver *FileResolverConfig `yaml:"resolver,omitempty" toml:"resolver"`

	// Secret store
	Vault *FileVaultConfig `yaml:"vault,omitempty" toml:"vault"`

	// Tracing exporter
	Tracing *FileTracingConfig `yaml:"tracing,omitempty" toml:"tracing"`

	// Health and metrics server
	Server *FileServerConfig `yaml:"server,omitempty" toml:"server"`

	// Provider-specific settings
	Route53 *FileRoute53Config `yaml:"route53,omitempty" toml:"route53"`
	RFC2136 *FileRFC2136Config `yaml:"rfc2136,omitempty" toml:"rfc2136"`
}

// FileLoggingConfig holds logging settings.
type FileLoggingConfig struct {
	Level  string `yaml:"level,omitempty" toml:"level"`   // debug, info, warn, error
	Format string `yaml:"format,omitempty" toml:"format"` // json, text
}

// FileReconcilerConfig holds reconciliation settings.
type FileReconcilerConfig struct {
	Interval  string `yaml:"interval,omitempty" toml:"interval"`     // Go duration format (e.g., "120s", "5m")
	DryRun    *bool  `yaml:"dry_run,omitempty" toml:"dry_run"`       // Pointer to distinguish unset from false
	RecordTTL int    `yaml:"record_ttl,omitempty" toml:"record_ttl"` // TTL written with every update
}

// FileResolverConfig holds the resolvers used for both lookups.
type FileResolverConfig struct {
	Echo         string `yaml:"echo,omitempty" toml:"echo"`
	EchoHostname string `yaml:"echo_hostname,omitempty" toml:"echo_hostname"`
	Published    string `yaml:"published,omitempty" toml:"published"`
}

// FileVaultConfig holds secret store settings.
type FileVaultConfig struct {
	Address        string `yaml:"address,omitempty" toml:"address"`
	TokenPath      string `yaml:"token_path,omitempty" toml:"token_path"`
	AuthMount      string `yaml:"auth_mount,omitempty" toml:"auth_mount"`
	Role           string `yaml:"role,omitempty" toml:"role"`
	KVMount        string `yaml:"kv_mount,omitempty" toml:"kv_mount"`
	SecretPath     string `yaml:"secret_path,omitempty" toml:"secret_path"`
	SecretKey      string `yaml:"secret_key,omitempty" toml:"secret_key"`
	RenewThreshold string `yaml:"renew_threshold,omitempty" toml:"renew_threshold"`
}

// FileTracingConfig holds OpenTelemetry exporter settings.
type FileTracingConfig struct {
	Exporter string `yaml:"exporter,omitempty" toml:"exporter"` // none, console, otlp
	Endpoint string `yaml:"endpoint,omitempty" toml:"endpoint"`
}

// FileServerConfig holds health/metrics server settings.
type FileServerConfig struct {
	Port *int `yaml:"port,omitempty" toml:"port"` // 0 disables the server
}

// FileRoute53Config holds Route 53 settings.
type FileRoute53Config struct {
	Endpoint string `yaml:"endpoint,omitempty" toml:"endpoint"` // Service URL override, e.g. LocalStack
}

// FileRFC2136Config holds dynamic update settings. The TSIG secret is read
// from Vault, never from the file.
type FileRFC2136Config struct {
	Server        string `yaml:"server,omitempty" toml:"server"`
	TSIGKeyName   string `yaml:"tsig_key_name,omitempty" toml:"tsig_key_name"`
	TSIGAlgorithm string `yaml:"tsig_algorithm,omitempty" toml:"tsig_algorithm"`
	UseTCP        *bool  `yaml:"use_tcp,omitempty" toml:"use_tcp"`
}

// envVarPattern matches ${VAR} or ${VAR:-default} syntax.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// InterpolateEnvVars replaces ${VAR} patterns with environment variable values.
// Supports ${VAR:-default} syntax for default values.
func InterpolateEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultValue := ""
		if len(groups) >= 3 {
			defaultValue = groups[2]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// LoadFile reads and parses a configuration file. Files ending in .toml are
// decoded as TOML, anything else as YAML. Environment variables in ${VAR}
// format are interpolated before decoding.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	content := InterpolateEnvVars(string(data))

	var cfg FileConfig
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(content, &cfg); err != nil {
			return nil, fmt.Errorf("parsing TOML config: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(content), &cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML config: %w", err)
		}
	}

	return &cfg, nil
}

// ToGlobalConfig converts file config to GlobalConfig, applying defaults.
// Values from file take precedence over defaults; env vars override later.
func (c *FileConfig) ToGlobalConfig() (*GlobalConfig, []string) {
	cfg := defaultGlobalConfig()
	var errs []string

	if c.Logging != nil {
		if c.Logging.Level != "" {
			cfg.LogLevel = strings.ToLower(c.Logging.Level)
		}
		if c.Logging.Format != "" {
			cfg.LogFormat = strings.ToLower(c.Logging.Format)
		}
	}

	if c.Reconciler != nil {
		if c.Reconciler.DryRun != nil {
			cfg.DryRun = *c.Reconciler.DryRun
		}
		if c.Reconciler.Interval != "" {
			interval, err := time.ParseDuration(c.Reconciler.Interval)
			if err != nil {
				errs = append(errs, fmt.Sprintf("reconciler.interval: invalid duration %q", c.Reconciler.Interval))
			} else {
				cfg.Interval = interval
			}
		}
		if c.Reconciler.RecordTTL != 0 {
			cfg.RecordTTL = c.Reconciler.RecordTTL
		}
	}

	if c.Resolver != nil {
		if c.Resolver.Echo != "" {
			cfg.EchoResolver = c.Resolver.Echo
		}
		if c.Resolver.EchoHostname != "" {
			cfg.EchoHostname = c.Resolver.EchoHostname
		}
		if c.Resolver.Published != "" {
			cfg.PublishedResolver = c.Resolver.Published
		}
	}

	if v := c.Vault; v != nil {
		setIfNotEmpty(&cfg.Vault.Address, v.Address)
		setIfNotEmpty(&cfg.Vault.TokenPath, v.TokenPath)
		setIfNotEmpty(&cfg.Vault.AuthMount, v.AuthMount)
		setIfNotEmpty(&cfg.Vault.Role, v.Role)
		setIfNotEmpty(&cfg.Vault.KVMount, v.KVMount)
		setIfNotEmpty(&cfg.Vault.SecretPath, v.SecretPath)
		setIfNotEmpty(&cfg.Vault.SecretKey, v.SecretKey)
		if v.RenewThreshold != "" {
			threshold, err := time.ParseDuration(v.RenewThreshold)
			if err != nil {
				errs = append(errs, fmt.Sprintf("vault.renew_threshold: invalid duration %q", v.RenewThreshold))
			} else {
				cfg.Vault.RenewThreshold = threshold
			}
		}
	}

	if c.Tracing != nil {
		if c.Tracing.Exporter != "" {
			cfg.TraceExporter = strings.ToLower(c.Tracing.Exporter)
		}
		setIfNotEmpty(&cfg.TraceEndpoint, c.Tracing.Endpoint)
	}

	if c.Server != nil && c.Server.Port != nil {
		cfg.HealthPort = *c.Server.Port
	}

	if c.Route53 != nil {
		setIfNotEmpty(&cfg.Route53Endpoint, c.Route53.Endpoint)
	}

	if r := c.RFC2136; r != nil {
		setIfNotEmpty(&cfg.RFC2136.Server, r.Server)
		setIfNotEmpty(&cfg.RFC2136.TSIGKeyName, r.TSIGKeyName)
		if r.TSIGAlgorithm != "" {
			cfg.RFC2136.TSIGAlgorithm = strings.ToLower(r.TSIGAlgorithm)
		}
		if r.UseTCP != nil {
			cfg.RFC2136.UseTCP = *r.UseTCP
		}
	}

	return cfg, errs
}

func setIfNotEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// GetConfigFilePath returns the config file path from DYNDNS_CONFIG.
// Returns empty string if no config file is specified.
func GetConfigFilePath() string {
	return getEnv("DYNDNS_CONFIG")
}
