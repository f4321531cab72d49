package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"

	"google.golang.org/api/option"

	"gitlab.bluewillows.net/root/dyndns/pkg/provider"
)

const rrsetPath = "/projects/my-project/managedZones/example-zone/rrsets/home.example.com./A"

// fakeCloudDNS serves a single record set and records PATCH bodies.
type fakeCloudDNS struct {
	t          *testing.T
	getStatus  int
	patchErr   int
	patchCalls int
	patchBody  map[string]interface{}
}

func (f *fakeCloudDNS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if !strings.HasSuffix(r.URL.Path, rrsetPath) {
		f.t.Errorf("unexpected path: %s", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		if f.getStatus != 0 {
			writeGoogleError(w, f.getStatus, "notFound", "The 'parameters.name' resource named 'home.example.com.' does not exist.")
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"kind":    "dns#resourceRecordSet",
			"name":    "home.example.com.",
			"type":    "A",
			"ttl":     60,
			"rrdatas": []string{"1.2.3.4"},
		})
	case http.MethodPatch:
		f.patchCalls++
		_ = json.NewDecoder(r.Body).Decode(&f.patchBody)
		if f.patchErr != 0 {
			writeGoogleError(w, f.patchErr, "forbidden", "The caller does not have permission")
			return
		}
		_ = json.NewEncoder(w).Encode(f.patchBody)
	default:
		f.t.Errorf("unexpected method: %s", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func writeGoogleError(w http.ResponseWriter, status int, reason, message string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"code":    status,
			"message": message,
			"errors": []map[string]interface{}{
				{"reason": reason, "message": message, "domain": "global"},
			},
		},
	})
}

func newTestProvider(t *testing.T, api *fakeCloudDNS) *Provider {
	t.Helper()

	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	p, err := New(context.Background(), &Config{Project: "my-project"},
		WithClientOptions(option.WithEndpoint(server.URL+"/"), option.WithoutAuthentication()),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return p
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"valid", Config{Project: "p", CredentialsJSON: []byte(`{"type":"service_account"}`)}, false},
		{"missing project", Config{CredentialsJSON: []byte(`{}`)}, true},
		{"missing credentials", Config{Project: "p"}, true},
		{"invalid JSON", Config{Project: "p", CredentialsJSON: []byte("not-json")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				if !errors.Is(err, provider.ErrInvalidCredential) {
					t.Errorf("expected ErrInvalidCredential, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestFactory_InvalidCredential(t *testing.T) {
	factory := Factory("my-project")

	_, err := factory(context.Background(), provider.Credential("not-json"))
	if !errors.Is(err, provider.ErrInvalidCredential) {
		t.Errorf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestProvider_Type(t *testing.T) {
	p := newTestProvider(t, &fakeCloudDNS{t: t})
	if p.Type() != "google" {
		t.Errorf("expected type google, got %s", p.Type())
	}
}

func TestProvider_ResolveRecord(t *testing.T) {
	p := newTestProvider(t, &fakeCloudDNS{t: t})

	id, err := p.ResolveRecord(context.Background(), "example-zone", "home.example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := provider.RecordIdentity{
		Project: "my-project",
		Zone:    "example-zone",
		Name:    "home.example.com.",
		Type:    provider.RecordTypeA,
	}
	if id != want {
		t.Errorf("expected %+v, got %+v", want, id)
	}
}

func TestProvider_ResolveRecord_NotFound(t *testing.T) {
	p := newTestProvider(t, &fakeCloudDNS{t: t, getStatus: http.StatusNotFound})

	_, err := p.ResolveRecord(context.Background(), "example-zone", "home.example.com")
	if !provider.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if !provider.IsFatal(err) {
		t.Error("expected missing record to be fatal")
	}
}

func TestProvider_ResolveRecord_Forbidden(t *testing.T) {
	p := newTestProvider(t, &fakeCloudDNS{t: t, getStatus: http.StatusForbidden})

	_, err := p.ResolveRecord(context.Background(), "example-zone", "home.example.com")
	apiErr, ok := provider.AsAPIError(err)
	if !ok {
		t.Fatalf("expected *provider.APIError, got %v", err)
	}
	if apiErr.Status != http.StatusForbidden {
		t.Errorf("expected 403, got %d", apiErr.Status)
	}
	if provider.IsFatal(err) {
		t.Error("API errors must not be fatal")
	}
}

func TestProvider_UpdateRecord(t *testing.T) {
	api := &fakeCloudDNS{t: t}
	p := newTestProvider(t, api)

	id := provider.RecordIdentity{Project: "my-project", Zone: "example-zone", Name: "home.example.com.", Type: provider.RecordTypeA}
	if err := p.UpdateRecord(context.Background(), id, netip.MustParseAddr("5.6.7.8"), 60); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if api.patchCalls != 1 {
		t.Fatalf("expected 1 patch, got %d", api.patchCalls)
	}
	if api.patchBody["name"] != "home.example.com." || api.patchBody["type"] != "A" {
		t.Errorf("unexpected body: %v", api.patchBody)
	}
	if fmt.Sprint(api.patchBody["ttl"]) != "60" {
		t.Errorf("expected ttl 60, got %v", api.patchBody["ttl"])
	}
	rrdatas, _ := api.patchBody["rrdatas"].([]interface{})
	if len(rrdatas) != 1 || rrdatas[0] != "5.6.7.8" {
		t.Errorf("expected rrdatas [5.6.7.8], got %v", api.patchBody["rrdatas"])
	}
}

func TestProvider_UpdateRecord_Forbidden(t *testing.T) {
	api := &fakeCloudDNS{t: t, patchErr: http.StatusForbidden}
	p := newTestProvider(t, api)

	id := provider.RecordIdentity{Project: "my-project", Zone: "example-zone", Name: "home.example.com.", Type: provider.RecordTypeA}
	err := p.UpdateRecord(context.Background(), id, netip.MustParseAddr("5.6.7.8"), 60)

	apiErr, ok := provider.AsAPIError(err)
	if !ok {
		t.Fatalf("expected *provider.APIError, got %v", err)
	}
	if len(apiErr.Messages) != 1 || apiErr.Messages[0].Code != "forbidden" {
		t.Errorf("unexpected messages: %+v", apiErr.Messages)
	}
	if !provider.IsUnauthorized(err) {
		t.Error("expected 403 to be reported as unauthorized")
	}
}
