package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func cloudflareTarget() Target {
	return Target{Provider: ProviderCloudflare, Zone: "example.com", Record: "home.example.com"}
}

func TestLoad_Defaults(t *testing.T) {
	clearGlobalEnv(t)

	cfg, err := Load(cloudflareTarget())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LogLevel() != "warn" || cfg.LogFormat() != "json" {
		t.Errorf("unexpected logging: %s %s", cfg.LogLevel(), cfg.LogFormat())
	}
	if cfg.Interval() != 120*time.Second {
		t.Errorf("Interval = %v", cfg.Interval())
	}
	if cfg.DryRun() {
		t.Error("DryRun should be false")
	}
	if cfg.HealthPort() != DefaultHealthPort {
		t.Errorf("HealthPort = %d", cfg.HealthPort())
	}
	if cfg.Target != cloudflareTarget() {
		t.Errorf("Target = %+v", cfg.Target)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearGlobalEnv(t)

	path := writeConfigFile(t, "dyndns.yaml", `
logging:
  level: info
reconciler:
  interval: 10m
vault:
  role: from-file
`)
	t.Setenv("DYNDNS_CONFIG", path)
	t.Setenv("DYNDNS_VAULT_ROLE", "from-env")

	cfg, err := Load(cloudflareTarget())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LogLevel() != "info" {
		t.Errorf("LogLevel = %q, want file value", cfg.LogLevel())
	}
	if cfg.Interval() != 10*time.Minute {
		t.Errorf("Interval = %v, want file value", cfg.Interval())
	}
	if cfg.Global.Vault.Role != "from-env" {
		t.Errorf("Vault.Role = %q, want env override", cfg.Global.Vault.Role)
	}
}

func TestLoad_CollectsAllErrors(t *testing.T) {
	clearGlobalEnv(t)

	path := writeConfigFile(t, "dyndns.yaml", `
reconciler:
  interval: whenever
`)
	t.Setenv("DYNDNS_CONFIG", path)
	t.Setenv("DYNDNS_LOG_LEVEL", "verbose")
	t.Setenv("DYNDNS_RECORD_TTL", "abc")

	_, err := Load(Target{Provider: ProviderCloudflare, Zone: "example.com"})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(vErr.Errors) != 4 {
		t.Fatalf("expected 4 errors (file, ttl, level, record), got %d: %v", len(vErr.Errors), vErr.Errors)
	}
	if !strings.HasPrefix(vErr.Errors[0], "config file:") {
		t.Errorf("first error should come from the file, got %q", vErr.Errors[0])
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearGlobalEnv(t)
	t.Setenv("DYNDNS_CONFIG", "/nonexistent/dyndns.yaml")

	if _, err := Load(cloudflareTarget()); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidateConfig_GoogleZoneID(t *testing.T) {
	cfg := &Config{
		Target: Target{Provider: ProviderGoogle, Project: "p", ZoneID: "123", Zone: "z", Record: "r"},
		Global: defaultGlobalConfig(),
	}

	errs := validateConfig(cfg)
	if len(errs) != 1 || !strings.Contains(errs[0], "zone id") {
		t.Errorf("expected zone id error, got %v", errs)
	}
}

func TestValidateConfig_RFC2136Server(t *testing.T) {
	cfg := &Config{
		Target: Target{Provider: ProviderRFC2136, Zone: "example.com", Record: "home.example.com"},
		Global: defaultGlobalConfig(),
	}

	errs := validateConfig(cfg)
	if len(errs) != 1 || !strings.Contains(errs[0], "DYNDNS_RFC2136_SERVER") {
		t.Errorf("expected server error, got %v", errs)
	}

	cfg.Global.RFC2136.Server = "ns1.example.com"
	if errs := validateConfig(cfg); len(errs) != 0 {
		t.Errorf("unexpected errors: %v", errs)
	}
}

func TestValidationError_Error(t *testing.T) {
	single := &ValidationError{Errors: []string{"bad"}}
	if single.Error() != "configuration error: bad" {
		t.Errorf("single = %q", single.Error())
	}

	multi := &ValidationError{Errors: []string{"one", "two"}}
	want := "configuration errors:\n  - one\n  - two"
	if multi.Error() != want {
		t.Errorf("multi = %q, want %q", multi.Error(), want)
	}
}

func TestConfig_Fallbacks(t *testing.T) {
	cfg := &Config{Global: defaultGlobalConfig()}

	if got := cfg.PublishedResolver("1.0.0.1"); got != "1.0.0.1" {
		t.Errorf("PublishedResolver = %q, want provider default", got)
	}
	if got := cfg.SecretKey("key"); got != "key" {
		t.Errorf("SecretKey = %q, want provider default", got)
	}

	cfg.Global.PublishedResolver = "9.9.9.9"
	cfg.Global.Vault.SecretKey = "token"
	if got := cfg.PublishedResolver("1.0.0.1"); got != "9.9.9.9" {
		t.Errorf("PublishedResolver = %q, want override", got)
	}
	if got := cfg.SecretKey("key"); got != "token" {
		t.Errorf("SecretKey = %q, want override", got)
	}
}
