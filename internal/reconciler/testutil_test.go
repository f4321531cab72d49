package reconciler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/netip"
	"sync"
	"time"

	"gitlab.bluewillows.net/root/dyndns/pkg/provider"
	"gitlab.bluewillows.net/root/dyndns/pkg/resolver"
	"gitlab.bluewillows.net/root/dyndns/pkg/secrets"
)

const (
	testRecord = "home.example.com"
	testZone   = "example.com"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// =============================================================================
// Mock Resolver
// =============================================================================

// testMockResolver answers by hostname.
type testMockResolver struct {
	mu      sync.Mutex
	answers map[string]netip.Addr
	errs    map[string]error
	queries []string
}

func newTestMockResolver(current, published string) *testMockResolver {
	return &testMockResolver{
		answers: map[string]netip.Addr{
			resolver.EchoHostname: netip.MustParseAddr(current),
			testRecord:            netip.MustParseAddr(published),
		},
		errs: make(map[string]error),
	}
}

func (m *testMockResolver) Lookup(_ context.Context, server, hostname string) (resolver.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, server+"/"+hostname)

	if err := m.errs[hostname]; err != nil {
		return resolver.Answer{}, err
	}
	addr, ok := m.answers[hostname]
	if !ok {
		return resolver.Answer{}, fmt.Errorf("%w: no answer for %s", resolver.ErrResolution, hostname)
	}
	return resolver.Answer{Addr: addr, Hostname: hostname, Server: server}, nil
}

func (m *testMockResolver) setCurrent(addr string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answers[resolver.EchoHostname] = netip.MustParseAddr(addr)
}

// =============================================================================
// Mock SecretStore
// =============================================================================

// testMockStore counts calls and hands out numbered sessions.
type testMockStore struct {
	ttl      time.Duration
	ttlErr   error
	loginErr error
	readErr  error
	cred     provider.Credential

	logins    int
	ttlChecks int
	reads     int
	lastPath  string
	lastKey   string
}

func newTestMockStore() *testMockStore {
	return &testMockStore{
		ttl:  time.Hour,
		cred: "token-abc",
	}
}

func (m *testMockStore) Login(_ context.Context) (*secrets.Session, error) {
	m.logins++
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return &secrets.Session{
		Token:         fmt.Sprintf("session-%d", m.logins),
		Acquired:      time.Now(),
		LeaseDuration: time.Hour,
	}, nil
}

func (m *testMockStore) TokenTTL(_ context.Context, _ *secrets.Session) (time.Duration, error) {
	m.ttlChecks++
	if m.ttlErr != nil {
		return 0, m.ttlErr
	}
	return m.ttl, nil
}

func (m *testMockStore) ReadSecret(_ context.Context, _ *secrets.Session, path, key string) (provider.Credential, error) {
	m.reads++
	m.lastPath = path
	m.lastKey = key
	if m.readErr != nil {
		return "", m.readErr
	}
	return m.cred, nil
}

// =============================================================================
// Mock Provider
// =============================================================================

type updateCall struct {
	id   provider.RecordIdentity
	addr netip.Addr
	ttl  int
}

// testMockProvider records ResolveRecord and UpdateRecord calls.
type testMockProvider struct {
	resolveErr error
	updateErr  error

	resolves []string
	updates  []updateCall
}

func (m *testMockProvider) Type() string { return "mock" }

func (m *testMockProvider) ResolveRecord(_ context.Context, zone, name string) (provider.RecordIdentity, error) {
	m.resolves = append(m.resolves, zone+"/"+name)
	if m.resolveErr != nil {
		return provider.RecordIdentity{}, m.resolveErr
	}
	return provider.RecordIdentity{ZoneID: "zone-1", RecordID: "rec-1", Name: name, Type: provider.RecordTypeA}, nil
}

func (m *testMockProvider) UpdateRecord(_ context.Context, id provider.RecordIdentity, addr netip.Addr, ttl int) error {
	m.updates = append(m.updates, updateCall{id: id, addr: addr, ttl: ttl})
	return m.updateErr
}

// testFactory returns a factory that always hands out p and counts calls.
type testFactory struct {
	p     *testMockProvider
	err   error
	calls int
	creds []provider.Credential
}

func (f *testFactory) build(_ context.Context, cred provider.Credential) (provider.Provider, error) {
	f.calls++
	f.creds = append(f.creds, cred)
	if f.err != nil {
		return nil, f.err
	}
	return f.p, nil
}

// testConfig returns a Config for testRecord with a short interval.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Zone = testZone
	cfg.Record = testRecord
	cfg.PublishedResolver = resolver.CloudflareResolver
	cfg.SecretPath = "cf-dyn-dns"
	cfg.SecretKey = "key"
	cfg.Interval = 10 * time.Millisecond
	return cfg
}

// newTestReconciler wires the mocks together.
func newTestReconciler(res *testMockResolver, store *testMockStore, f *testFactory, cfg Config) *Reconciler {
	return New(res, store, f.build,
		WithConfig(cfg),
		WithLogger(discardLogger()),
	)
}
