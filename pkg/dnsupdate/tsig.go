package dnsupdate

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/miekg/dns"
)

// tsigFudge is the allowed clock skew in seconds.
const tsigFudge = 300

// TSIG is a transaction signature key.
type TSIG struct {
	// Name is the key name, with a trailing dot.
	Name string

	// Secret is the base64-encoded shared secret.
	Secret string

	// Algorithm is the algorithm in miekg/dns form, e.g. dns.HmacSHA256.
	Algorithm string
}

// NewTSIG validates and normalizes a key. The secret must be base64.
func NewTSIG(name, secret, algorithm string) (*TSIG, error) {
	name = dns.Fqdn(strings.TrimSpace(name))
	secret = strings.TrimSpace(secret)

	if _, err := base64.StdEncoding.DecodeString(secret); err != nil {
		return nil, fmt.Errorf("tsig secret is not valid base64: %w", err)
	}

	alg := normalizeAlgorithm(algorithm)
	if !isValidAlgorithm(alg) {
		return nil, fmt.Errorf("unsupported tsig algorithm: %s", algorithm)
	}

	return &TSIG{
		Name:      name,
		Secret:    secret,
		Algorithm: alg,
	}, nil
}

// TSIGFromConfig returns the key described by config, or nil when TSIG is
// not configured.
func TSIGFromConfig(config *Config) (*TSIG, error) {
	if !config.HasTSIG() {
		return nil, nil //nolint:nilnil // unsigned updates are allowed
	}
	return NewTSIG(config.TSIGKeyName, config.TSIGSecret, config.TSIGAlgorithm)
}

// ApplyToClient registers the secret so the client signs requests and
// verifies signed responses.
func (t *TSIG) ApplyToClient(client *dns.Client) {
	if t == nil {
		return
	}
	client.TsigSecret = map[string]string{t.Name: t.Secret}
}

// ApplyToMessage adds a TSIG record to msg. Call it after the message is
// fully built.
func (t *TSIG) ApplyToMessage(msg *dns.Msg) {
	if t == nil {
		return
	}
	msg.SetTsig(t.Name, t.Algorithm, tsigFudge, 0)
}

// normalizeAlgorithm maps user-facing names to miekg/dns form.
func normalizeAlgorithm(alg string) string {
	switch strings.ToLower(strings.TrimSpace(alg)) {
	case "":
		return DefaultTSIGAlgorithm
	case "hmac-md5", "md5", dns.HmacMD5:
		return dns.HmacMD5
	case "hmac-sha256", "sha256", dns.HmacSHA256:
		return dns.HmacSHA256
	case "hmac-sha512", "sha512", dns.HmacSHA512:
		return dns.HmacSHA512
	default:
		return alg
	}
}

func isValidAlgorithm(alg string) bool {
	switch alg {
	case dns.HmacMD5, dns.HmacSHA256, dns.HmacSHA512:
		return true
	default:
		return false
	}
}
