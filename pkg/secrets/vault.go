// Package secrets reads provider credentials from HashiCorp Vault using
// Kubernetes service-account authentication.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	vault "github.com/hashicorp/vault/api"
	auth "github.com/hashicorp/vault/api/auth/kubernetes"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"gitlab.bluewillows.net/root/dyndns/pkg/provider"
)

// Default configuration values.
const (
	DefaultAddress   = "http://vault.vault.svc:8200"
	DefaultTokenPath = "/var/run/secrets/kubernetes.io/serviceaccount/token"
	DefaultAuthMount = "kubernetes"
	DefaultRole      = "cf-dyn-dns"
	DefaultKVMount   = "kv"
	DefaultTimeout   = 30 * time.Second
)

// Sentinel errors for secret store operations.
var (
	// ErrAuth is returned when logging in or inspecting the session fails.
	ErrAuth = errors.New("vault authentication failed")

	// ErrSecretRead is returned when a secret cannot be read or lacks the requested key.
	ErrSecretRead = errors.New("vault secret read failed")
)

// Config holds Vault connection settings.
type Config struct {
	// Address is the Vault server URL.
	Address string

	// TokenPath is the file holding the service-account JWT.
	TokenPath string

	// AuthMount is the mount path of the Kubernetes auth method, without "auth/".
	AuthMount string

	// Role is the Vault role bound to the service account.
	Role string

	// KVMount is the mount path of the KV version 2 engine.
	KVMount string

	// Timeout bounds each Vault request.
	Timeout time.Duration
}

// Validate checks that all required configuration is present.
func (c *Config) Validate() error {
	var errs []string

	if c.Address == "" {
		errs = append(errs, "address is required")
	}
	if c.TokenPath == "" {
		errs = append(errs, "token path is required")
	}
	if c.AuthMount == "" {
		errs = append(errs, "auth mount is required")
	}
	if c.Role == "" {
		errs = append(errs, "role is required")
	}
	if c.KVMount == "" {
		errs = append(errs, "kv mount is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("vault config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Session is an authenticated Vault token. It carries no behaviour; the
// caller decides when to renew it.
type Session struct {
	Token         string
	Acquired      time.Time
	LeaseDuration time.Duration
}

// String redacts the token.
func (s *Session) String() string {
	if s == nil {
		return "<nil>"
	}
	return fmt.Sprintf("vault session acquired %s lease %s", s.Acquired.Format(time.RFC3339), s.LeaseDuration)
}

// Client talks to Vault. It holds no token of its own: every call clones the
// underlying client and applies the session passed in.
type Client struct {
	cfg    Config
	vault  *vault.Client
	fs     afero.Fs
	logger *slog.Logger
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithFs sets the filesystem the service-account token is read from.
func WithFs(fs afero.Fs) Option {
	return func(c *Client) {
		if fs != nil {
			c.fs = fs
		}
	}
}

// NewClient creates a Vault client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	vcfg := vault.DefaultConfig()
	if vcfg.Error != nil {
		return nil, fmt.Errorf("vault default config: %w", vcfg.Error)
	}
	vcfg.Address = cfg.Address
	vcfg.MaxRetries = 0
	if cfg.Timeout > 0 {
		vcfg.Timeout = cfg.Timeout
	} else {
		vcfg.Timeout = DefaultTimeout
	}

	vc, err := vault.NewClient(vcfg)
	if err != nil {
		return nil, fmt.Errorf("creating vault client: %w", err)
	}
	vc.ClearToken()

	c := &Client{
		cfg:    cfg,
		vault:  vc,
		fs:     afero.NewOsFs(),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Login authenticates with the service-account JWT and returns a new session.
func (c *Client) Login(ctx context.Context) (*Session, error) {
	ctx, span := otel.Tracer("dyndns").Start(ctx, "vault.Login")
	defer span.End()
	span.SetAttributes(
		attribute.String("vault.mount", c.cfg.AuthMount),
		attribute.String("vault.role", c.cfg.Role),
	)

	session, err := c.login(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login failed")
		return nil, err
	}

	c.logger.Info("logged in to vault",
		slog.String("mount", c.cfg.AuthMount),
		slog.String("role", c.cfg.Role),
		slog.Duration("lease", session.LeaseDuration),
	)
	return session, nil
}

func (c *Client) login(ctx context.Context) (*Session, error) {
	raw, err := afero.ReadFile(c.fs, c.cfg.TokenPath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading service account token: %w", ErrAuth, err)
	}
	jwt := strings.TrimSpace(string(raw))
	if jwt == "" {
		return nil, fmt.Errorf("%w: service account token %s is empty", ErrAuth, c.cfg.TokenPath)
	}

	method, err := auth.NewKubernetesAuth(c.cfg.Role,
		auth.WithServiceAccountToken(jwt),
		auth.WithMountPath(c.cfg.AuthMount),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuth, err)
	}

	vc, err := c.vault.Clone()
	if err != nil {
		return nil, fmt.Errorf("%w: cloning client: %w", ErrAuth, err)
	}
	vc.ClearToken()

	acquired := time.Now()
	secret, err := vc.Auth().Login(ctx, method)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuth, err)
	}
	if secret == nil || secret.Auth == nil || secret.Auth.ClientToken == "" {
		return nil, fmt.Errorf("%w: login response has no client token", ErrAuth)
	}

	return &Session{
		Token:         secret.Auth.ClientToken,
		Acquired:      acquired,
		LeaseDuration: time.Duration(secret.Auth.LeaseDuration) * time.Second,
	}, nil
}

// TokenTTL asks Vault how long the session token has left.
func (c *Client) TokenTTL(ctx context.Context, session *Session) (time.Duration, error) {
	ctx, span := otel.Tracer("dyndns").Start(ctx, "vault.TokenTTL")
	defer span.End()

	if session == nil || session.Token == "" {
		return 0, fmt.Errorf("%w: no session", ErrAuth)
	}

	vc, err := c.withToken(session)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrAuth, err)
	}

	secret, err := vc.Auth().Token().LookupSelfWithContext(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup-self failed")
		return 0, fmt.Errorf("%w: token lookup: %w", ErrAuth, err)
	}
	if secret == nil {
		return 0, fmt.Errorf("%w: token lookup returned nothing", ErrAuth)
	}

	ttl, err := secret.TokenTTL()
	if err != nil {
		return 0, fmt.Errorf("%w: parsing token ttl: %w", ErrAuth, err)
	}

	span.SetAttributes(attribute.Int64("vault.ttl_seconds", int64(ttl/time.Second)))
	return ttl, nil
}

// ReadSecret reads key from the KV v2 secret at path.
func (c *Client) ReadSecret(ctx context.Context, session *Session, path, key string) (provider.Credential, error) {
	ctx, span := otel.Tracer("dyndns").Start(ctx, "vault.ReadSecret")
	defer span.End()
	span.SetAttributes(
		attribute.String("vault.mount", c.cfg.KVMount),
		attribute.String("vault.path", path),
		attribute.String("vault.key", key),
	)

	cred, err := c.readSecret(ctx, session, path, key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return "", err
	}
	return cred, nil
}

func (c *Client) readSecret(ctx context.Context, session *Session, path, key string) (provider.Credential, error) {
	if session == nil || session.Token == "" {
		return "", fmt.Errorf("%w: no session", ErrSecretRead)
	}

	vc, err := c.withToken(session)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSecretRead, err)
	}

	kv, err := vc.KVv2(c.cfg.KVMount).Get(ctx, path)
	if err != nil {
		return "", fmt.Errorf("%w: %s/%s: %w", ErrSecretRead, c.cfg.KVMount, path, err)
	}
	if kv == nil || kv.Data == nil {
		return "", fmt.Errorf("%w: %s/%s has no data", ErrSecretRead, c.cfg.KVMount, path)
	}

	raw, ok := kv.Data[key]
	if !ok {
		return "", fmt.Errorf("%w: %s/%s has no key %q", ErrSecretRead, c.cfg.KVMount, path, key)
	}

	value, err := credentialValue(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %s/%s key %q: %w", ErrSecretRead, c.cfg.KVMount, path, key, err)
	}

	c.logger.Debug("read secret",
		slog.String("mount", c.cfg.KVMount),
		slog.String("path", path),
		slog.String("key", key),
	)
	return provider.Credential(value), nil
}

func (c *Client) withToken(session *Session) (*vault.Client, error) {
	vc, err := c.vault.Clone()
	if err != nil {
		return nil, fmt.Errorf("cloning client: %w", err)
	}
	vc.SetToken(session.Token)
	return vc, nil
}

// credentialValue turns a KV field into the credential string. Plain strings
// lose surrounding whitespace and quotes; structured values are re-encoded as
// JSON so a service-account key stored as an object still works.
func credentialValue(v interface{}) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", errors.New("value is null")
	case string:
		s := strings.Trim(strings.TrimSpace(val), `"`)
		if s == "" {
			return "", errors.New("value is empty")
		}
		return s, nil
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return "", fmt.Errorf("encoding value: %w", err)
		}
		return string(b), nil
	}
}
