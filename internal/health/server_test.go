package health

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestServer_handleHealth(t *testing.T) {
	s := New(0)

	w := httptest.NewRecorder()
	s.handleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if resp := decode(t, w); resp.Status != "healthy" {
		t.Errorf("expected status 'healthy', got %q", resp.Status)
	}
}

func TestServer_handleReady_NoCheckers(t *testing.T) {
	s := New(0)

	w := httptest.NewRecorder()
	s.handleReady(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if resp := decode(t, w); resp.Status != "ready" {
		t.Errorf("expected status 'ready', got %q", resp.Status)
	}
}

func TestServer_handleReady_SomeUnhealthy(t *testing.T) {
	s := New(0)

	s.RegisterChecker("vault", func(ctx context.Context) error { return nil })
	s.RegisterChecker("reconciler", func(ctx context.Context) error {
		return errors.New("no cycle completed yet")
	})

	w := httptest.NewRecorder()
	s.handleReady(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}

	resp := decode(t, w)
	if resp.Status != "not_ready" {
		t.Errorf("expected status 'not_ready', got %q", resp.Status)
	}
	if len(resp.Components) != 2 {
		t.Fatalf("expected 2 components, got %d", len(resp.Components))
	}
	// Components are reported in name order
	if resp.Components[0].Name != "reconciler" || resp.Components[0].Healthy {
		t.Errorf("unexpected first component: %+v", resp.Components[0])
	}
	if resp.Components[0].Error != "no cycle completed yet" {
		t.Errorf("unexpected error: %q", resp.Components[0].Error)
	}
	if !resp.Components[1].Healthy {
		t.Errorf("expected vault to be healthy")
	}
}

func TestServer_handleReady_Degraded(t *testing.T) {
	s := New(0)

	s.RegisterChecker("reconciler", func(ctx context.Context) error { return nil })
	s.RegisterDegradedChecker("reconciler", func(ctx context.Context) (bool, string) {
		return true, "last cycle failed: resolution failed"
	})

	w := httptest.NewRecorder()
	s.handleReady(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200 for degraded, got %d", w.Code)
	}

	resp := decode(t, w)
	if resp.Status != "degraded" {
		t.Errorf("expected status 'degraded', got %q", resp.Status)
	}
	if len(resp.Degraded) != 1 || !strings.Contains(resp.Degraded[0].Message, "resolution failed") {
		t.Errorf("unexpected degraded list: %+v", resp.Degraded)
	}
}

func TestServer_handleReady_Timeout(t *testing.T) {
	s := New(0, WithTimeout(50*time.Millisecond))

	s.RegisterChecker("slow", func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	})

	w := httptest.NewRecorder()
	s.handleReady(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}
}

func TestServer_handleStatus(t *testing.T) {
	s := New(0, WithStatus(func() any {
		return map[string]string{"outcome": "up_to_date", "current_address": "1.2.3.4"}
	}))

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body["outcome"] != "up_to_date" || body["current_address"] != "1.2.3.4" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestServer_handleStatus_NotConfigured(t *testing.T) {
	s := New(0)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestServer_RegisterChecker(t *testing.T) {
	s := New(0)

	s.RegisterChecker("test", func(ctx context.Context) error { return nil })

	if len(s.checkers) != 1 {
		t.Errorf("expected 1 checker, got %d", len(s.checkers))
	}
	if _, ok := s.checkers["test"]; !ok {
		t.Error("expected checker 'test' to be registered")
	}
}

func TestServer_StartAndShutdown(t *testing.T) {
	s := New(0)
	if s.Addr() != "" {
		t.Error("expected empty address before Start")
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})

	_, port, err := net.SplitHostPort(s.Addr())
	if err != nil {
		t.Fatalf("bad address %q: %v", s.Addr(), err)
	}

	resp, err := http.Get("http://127.0.0.1:" + port + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "go_goroutines") {
		t.Error("expected default Go collector metrics")
	}
}

func TestServer_ShutdownWithoutStart(t *testing.T) {
	if err := New(0).Shutdown(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
