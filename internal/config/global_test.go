package config

import (
	"strings"
	"testing"
	"time"
)

// globalEnvVars lists every variable mergeGlobalConfig reads.
var globalEnvVars = []string{
	"DYNDNS_LOG_LEVEL",
	"DYNDNS_LOG_FORMAT",
	"DYNDNS_DRY_RUN",
	"DYNDNS_INTERVAL",
	"DYNDNS_RECORD_TTL",
	"DYNDNS_HEALTH_PORT",
	"DYNDNS_ECHO_RESOLVER",
	"DYNDNS_ECHO_HOSTNAME",
	"DYNDNS_PUBLISHED_RESOLVER",
	"VAULT_ADDR",
	"JWT_TOKEN_PATH",
	"DYNDNS_VAULT_AUTH_MOUNT",
	"DYNDNS_VAULT_ROLE",
	"DYNDNS_VAULT_KV_MOUNT",
	"DYNDNS_VAULT_SECRET_PATH",
	"DYNDNS_VAULT_SECRET_KEY",
	"DYNDNS_VAULT_RENEW_THRESHOLD",
	"DYNDNS_TRACE_EXPORTER",
	"DYNDNS_TRACE_ENDPOINT",
	"DYNDNS_ROUTE53_ENDPOINT",
	"DYNDNS_RFC2136_SERVER",
	"DYNDNS_RFC2136_TSIG_KEY_NAME",
	"DYNDNS_RFC2136_TSIG_ALGORITHM",
	"DYNDNS_RFC2136_USE_TCP",
	"DYNDNS_CONFIG",
}

// clearGlobalEnv blanks every DYNDNS_ variable for the duration of the test.
func clearGlobalEnv(t *testing.T) {
	t.Helper()
	for _, v := range globalEnvVars {
		t.Setenv(v, "")
		t.Setenv(v+"_FILE", "")
	}
}

func TestLoadGlobalConfig_Defaults(t *testing.T) {
	clearGlobalEnv(t)

	cfg, errs := loadGlobalConfig()
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
	if cfg.LogFormat != DefaultLogFormat {
		t.Errorf("LogFormat = %q, want %q", cfg.LogFormat, DefaultLogFormat)
	}
	if cfg.DryRun {
		t.Error("DryRun should default to false")
	}
	if cfg.Interval != 120*time.Second {
		t.Errorf("Interval = %v, want 120s", cfg.Interval)
	}
	if cfg.RecordTTL != 60 {
		t.Errorf("RecordTTL = %d, want 60", cfg.RecordTTL)
	}
	if cfg.HealthPort != DefaultHealthPort {
		t.Errorf("HealthPort = %d, want %d", cfg.HealthPort, DefaultHealthPort)
	}
	if cfg.EchoResolver != "208.67.222.222" || cfg.EchoHostname != "myip.opendns.com" {
		t.Errorf("echo = %s@%s", cfg.EchoHostname, cfg.EchoResolver)
	}
	if cfg.PublishedResolver != "" {
		t.Errorf("PublishedResolver = %q, want empty", cfg.PublishedResolver)
	}
	if cfg.Vault.Address != "http://vault.vault.svc:8200" {
		t.Errorf("Vault.Address = %q", cfg.Vault.Address)
	}
	if cfg.Vault.Role != "cf-dyn-dns" || cfg.Vault.KVMount != "kv" || cfg.Vault.AuthMount != "kubernetes" {
		t.Errorf("unexpected vault defaults: %+v", cfg.Vault)
	}
	if cfg.Vault.RenewThreshold != 120*time.Second {
		t.Errorf("RenewThreshold = %v, want 120s", cfg.Vault.RenewThreshold)
	}
	if cfg.TraceExporter != "none" {
		t.Errorf("TraceExporter = %q, want none", cfg.TraceExporter)
	}

	if errs := validateGlobalConfig(cfg); len(errs) > 0 {
		t.Errorf("defaults should validate, got %v", errs)
	}
}

func TestLoadGlobalConfig_CustomValues(t *testing.T) {
	clearGlobalEnv(t)

	t.Setenv("DYNDNS_LOG_LEVEL", "DEBUG")
	t.Setenv("DYNDNS_LOG_FORMAT", "text")
	t.Setenv("DYNDNS_DRY_RUN", "yes")
	t.Setenv("DYNDNS_INTERVAL", "5m")
	t.Setenv("DYNDNS_RECORD_TTL", "300")
	t.Setenv("DYNDNS_HEALTH_PORT", "0")
	t.Setenv("DYNDNS_PUBLISHED_RESOLVER", "1.1.1.1:53")
	t.Setenv("VAULT_ADDR", "https://vault.example.com")
	t.Setenv("JWT_TOKEN_PATH", "/tmp/token")
	t.Setenv("DYNDNS_VAULT_ROLE", "dyndns")
	t.Setenv("DYNDNS_VAULT_SECRET_KEY", "token")
	t.Setenv("DYNDNS_VAULT_RENEW_THRESHOLD", "5m")
	t.Setenv("DYNDNS_TRACE_EXPORTER", "OTLP")
	t.Setenv("DYNDNS_TRACE_ENDPOINT", "otel-collector:4317")
	t.Setenv("DYNDNS_ROUTE53_ENDPOINT", "http://localstack:4566")
	t.Setenv("DYNDNS_RFC2136_SERVER", "ns1.example.com:5353")
	t.Setenv("DYNDNS_RFC2136_TSIG_KEY_NAME", "dyndns.")
	t.Setenv("DYNDNS_RFC2136_TSIG_ALGORITHM", "HMAC-SHA512")
	t.Setenv("DYNDNS_RFC2136_USE_TCP", "true")

	cfg, errs := loadGlobalConfig()
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat = %q, want text", cfg.LogFormat)
	}
	if !cfg.DryRun {
		t.Error("DryRun = false, want true")
	}
	if cfg.Interval != 5*time.Minute {
		t.Errorf("Interval = %v, want 5m", cfg.Interval)
	}
	if cfg.RecordTTL != 300 {
		t.Errorf("RecordTTL = %d, want 300", cfg.RecordTTL)
	}
	if cfg.HealthPort != 0 {
		t.Errorf("HealthPort = %d, want 0", cfg.HealthPort)
	}
	if cfg.PublishedResolver != "1.1.1.1:53" {
		t.Errorf("PublishedResolver = %q", cfg.PublishedResolver)
	}
	if cfg.Vault.Address != "https://vault.example.com" || cfg.Vault.TokenPath != "/tmp/token" {
		t.Errorf("unexpected vault endpoint: %+v", cfg.Vault)
	}
	if cfg.Vault.Role != "dyndns" || cfg.Vault.SecretKey != "token" {
		t.Errorf("unexpected vault role/key: %+v", cfg.Vault)
	}
	if cfg.Vault.RenewThreshold != 5*time.Minute {
		t.Errorf("RenewThreshold = %v, want 5m", cfg.Vault.RenewThreshold)
	}
	if cfg.TraceExporter != "otlp" || cfg.TraceEndpoint != "otel-collector:4317" {
		t.Errorf("unexpected tracing: %s %s", cfg.TraceExporter, cfg.TraceEndpoint)
	}
	if cfg.Route53Endpoint != "http://localstack:4566" {
		t.Errorf("Route53Endpoint = %q", cfg.Route53Endpoint)
	}
	want := RFC2136Config{Server: "ns1.example.com:5353", TSIGKeyName: "dyndns.", TSIGAlgorithm: "hmac-sha512", UseTCP: true}
	if cfg.RFC2136 != want {
		t.Errorf("RFC2136 = %+v, want %+v", cfg.RFC2136, want)
	}

	if errs := validateGlobalConfig(cfg); len(errs) > 0 {
		t.Errorf("unexpected validation errors: %v", errs)
	}
}

func TestLoadGlobalConfig_ParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		envVar  string
		value   string
		wantErr string
	}{
		{"bad interval", "DYNDNS_INTERVAL", "two minutes", "DYNDNS_INTERVAL"},
		{"bad ttl", "DYNDNS_RECORD_TTL", "sixty", "DYNDNS_RECORD_TTL"},
		{"bad port", "DYNDNS_HEALTH_PORT", "http", "DYNDNS_HEALTH_PORT"},
		{"bad threshold", "DYNDNS_VAULT_RENEW_THRESHOLD", "soon", "DYNDNS_VAULT_RENEW_THRESHOLD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearGlobalEnv(t)
			t.Setenv(tt.envVar, tt.value)

			_, errs := loadGlobalConfig()
			if len(errs) != 1 {
				t.Fatalf("expected 1 error, got %v", errs)
			}
			if !strings.Contains(errs[0], tt.wantErr) {
				t.Errorf("error %q should mention %s", errs[0], tt.wantErr)
			}
		})
	}
}

func TestValidateGlobalConfig(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*GlobalConfig)
		wantErr string
	}{
		{"invalid log level", func(c *GlobalConfig) { c.LogLevel = "trace" }, "DYNDNS_LOG_LEVEL"},
		{"invalid log format", func(c *GlobalConfig) { c.LogFormat = "xml" }, "DYNDNS_LOG_FORMAT"},
		{"interval too short", func(c *GlobalConfig) { c.Interval = 500 * time.Millisecond }, "DYNDNS_INTERVAL"},
		{"ttl zero", func(c *GlobalConfig) { c.RecordTTL = 0 }, "DYNDNS_RECORD_TTL"},
		{"port out of range", func(c *GlobalConfig) { c.HealthPort = 70000 }, "DYNDNS_HEALTH_PORT"},
		{"echo resolver hostname", func(c *GlobalConfig) { c.EchoResolver = "resolver1.opendns.com" }, "DYNDNS_ECHO_RESOLVER"},
		{"published resolver bad port", func(c *GlobalConfig) { c.PublishedResolver = "1.1.1.1:dns" }, "DYNDNS_PUBLISHED_RESOLVER"},
		{"empty echo hostname", func(c *GlobalConfig) { c.EchoHostname = "" }, "DYNDNS_ECHO_HOSTNAME"},
		{"empty vault address", func(c *GlobalConfig) { c.Vault.Address = "" }, "VAULT_ADDR"},
		{"empty role", func(c *GlobalConfig) { c.Vault.Role = "" }, "DYNDNS_VAULT_ROLE"},
		{"zero threshold", func(c *GlobalConfig) { c.Vault.RenewThreshold = 0 }, "DYNDNS_VAULT_RENEW_THRESHOLD"},
		{"unknown exporter", func(c *GlobalConfig) { c.TraceExporter = "jaeger" }, "DYNDNS_TRACE_EXPORTER"},
		{"otlp without endpoint", func(c *GlobalConfig) { c.TraceExporter = "otlp" }, "DYNDNS_TRACE_ENDPOINT"},
		{"unknown tsig algorithm", func(c *GlobalConfig) { c.RFC2136.TSIGAlgorithm = "hmac-sha1" }, "DYNDNS_RFC2136_TSIG_ALGORITHM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultGlobalConfig()
			tt.modify(cfg)

			errs := validateGlobalConfig(cfg)
			if len(errs) != 1 {
				t.Fatalf("expected 1 error, got %v", errs)
			}
			if !strings.Contains(errs[0], tt.wantErr) {
				t.Errorf("error %q should mention %s", errs[0], tt.wantErr)
			}
		})
	}
}

func TestValidateResolver(t *testing.T) {
	valid := []string{"1.0.0.1", "8.8.4.4:53", "[2606:4700:4700::1111]:53", "::1"}
	for _, s := range valid {
		if err := validateResolver(s); err != nil {
			t.Errorf("validateResolver(%q) = %v", s, err)
		}
	}

	invalid := []string{"", "dns.google", "8.8.4.4:", "8.8.4.4:99999"}
	for _, s := range invalid {
		if err := validateResolver(s); err == nil {
			t.Errorf("validateResolver(%q) should fail", s)
		}
	}
}
