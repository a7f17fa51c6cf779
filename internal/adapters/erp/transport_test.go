package erp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Ramon-Alomia/entradas-app/internal/domain"
)

type serviceLayerStub struct {
	logins  atomic.Int32
	session string
	handler func(w http.ResponseWriter, r *http.Request, sessionID string)
}

func (s *serviceLayerStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/Login" {
		n := s.logins.Add(1)
		s.session = fmt.Sprintf("sess-%d", n)
		http.SetCookie(w, &http.Cookie{Name: "ROUTEID", Value: ".node1"})
		_ = json.NewEncoder(w).Encode(map[string]string{"SessionId": s.session})
		return
	}
	s.handler(w, r, s.session)
}

func newTestTransport(t *testing.T, baseURL string) *Transport {
	t.Helper()
	tr, err := NewTransport(Config{
		BaseURL:   baseURL,
		CompanyDB: "TESTDB",
		Username:  "manager",
		Password:  "secret",
		VerifyTLS: true,
	}, nil)
	if err != nil {
		t.Fatalf("new transport failed: %v", err)
	}
	return tr
}

func TestExecuteReusesSessionAndInjectsCookies(t *testing.T) {
	var gotCookie string
	stub := &serviceLayerStub{handler: func(w http.ResponseWriter, r *http.Request, sessionID string) {
		gotCookie = r.Header.Get("Cookie")
		_, _ = w.Write([]byte(`{"value":[]}`))
	}}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	tr := newTestTransport(t, srv.URL)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := tr.Execute(ctx, http.MethodGet, "/PurchaseOrders", nil, nil); err != nil {
			t.Fatalf("execute %d failed: %v", i, err)
		}
	}
	if stub.logins.Load() != 1 {
		t.Fatalf("expected a single login for consecutive calls, got %d", stub.logins.Load())
	}
	if gotCookie != "B1SESSION=sess-1; ROUTEID=.node1" {
		t.Fatalf("unexpected cookie header: %q", gotCookie)
	}
}

func TestSessionRefreshedAfterMaxAge(t *testing.T) {
	stub := &serviceLayerStub{handler: func(w http.ResponseWriter, r *http.Request, sessionID string) {
		_, _ = w.Write([]byte(`{}`))
	}}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	tr := newTestTransport(t, srv.URL)
	now := time.Now().UTC()
	tr.nowFn = func() time.Time { return now }
	ctx := context.Background()

	if _, err := tr.Execute(ctx, http.MethodGet, "/PurchaseOrders", nil, nil); err != nil {
		t.Fatalf("first execute failed: %v", err)
	}
	now = now.Add(26 * time.Minute)
	if _, err := tr.Execute(ctx, http.MethodGet, "/PurchaseOrders", nil, nil); err != nil {
		t.Fatalf("second execute failed: %v", err)
	}
	if stub.logins.Load() != 2 {
		t.Fatalf("expected re-login after session aged out, got %d logins", stub.logins.Load())
	}
}

func TestUnauthorizedTriggersOneRelogin(t *testing.T) {
	var rejected atomic.Bool
	stub := &serviceLayerStub{}
	stub.handler = func(w http.ResponseWriter, r *http.Request, sessionID string) {
		if !rejected.Swap(true) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	tr := newTestTransport(t, srv.URL)
	body, err := tr.Execute(context.Background(), http.MethodGet, "/PurchaseOrders", nil, nil)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Fatalf("unexpected body: %s", body)
	}
	if stub.logins.Load() != 2 {
		t.Fatalf("expected exactly one re-login, got %d logins", stub.logins.Load())
	}
}

func TestSecondUnauthorizedIsAuthError(t *testing.T) {
	stub := &serviceLayerStub{handler: func(w http.ResponseWriter, r *http.Request, sessionID string) {
		w.WriteHeader(http.StatusUnauthorized)
	}}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	tr := newTestTransport(t, srv.URL)
	_, err := tr.Execute(context.Background(), http.MethodGet, "/PurchaseOrders", nil, nil)
	if !errors.Is(err, domain.ErrUpstreamAuth) {
		t.Fatalf("expected upstream auth error, got %v", err)
	}
	if stub.logins.Load() != 2 {
		t.Fatalf("expected one re-login before giving up, got %d logins", stub.logins.Load())
	}
}

// flakyRoundTripper fails the first non-login request at the socket level.
type flakyRoundTripper struct {
	inner  http.RoundTripper
	failed atomic.Bool
}

func (f *flakyRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Path != "/Login" && !f.failed.Swap(true) {
		return nil, errors.New("connection reset by peer")
	}
	return f.inner.RoundTrip(req)
}

func TestTransientFailureRetriesReadOnce(t *testing.T) {
	stub := &serviceLayerStub{handler: func(w http.ResponseWriter, r *http.Request, sessionID string) {
		_, _ = w.Write([]byte(`{}`))
	}}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	tr := newTestTransport(t, srv.URL)
	tr.client.Transport = &flakyRoundTripper{inner: http.DefaultTransport}
	var slept []time.Duration
	tr.sleepFn = func(d time.Duration) { slept = append(slept, d) }

	if _, err := tr.Execute(context.Background(), http.MethodGet, "/PurchaseOrders", nil, nil); err != nil {
		t.Fatalf("execute should succeed on retry: %v", err)
	}
	if len(slept) != 1 {
		t.Fatalf("expected exactly one backoff pause, got %d", len(slept))
	}
	if slept[0] < 400*time.Millisecond || slept[0] >= time.Second {
		t.Fatalf("backoff outside expected bounds: %v", slept[0])
	}
}

func TestTransientFailureNeverRetriesWrite(t *testing.T) {
	stub := &serviceLayerStub{handler: func(w http.ResponseWriter, r *http.Request, sessionID string) {
		_, _ = w.Write([]byte(`{}`))
	}}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	tr := newTestTransport(t, srv.URL)
	flaky := &flakyRoundTripper{inner: http.DefaultTransport}
	tr.client.Transport = flaky
	tr.sleepFn = func(time.Duration) { t.Fatalf("write path must not back off and retry") }

	_, err := tr.ExecuteWrite(context.Background(), http.MethodPost, "/PurchaseDeliveryNotes", nil, map[string]any{})
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected upstream unavailable, got %v", err)
	}
}

func TestNonSuccessStatusBecomesStatusError(t *testing.T) {
	stub := &serviceLayerStub{handler: func(w http.ResponseWriter, r *http.Request, sessionID string) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
	}}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	tr := newTestTransport(t, srv.URL)
	_, err := tr.Execute(context.Background(), http.MethodGet, "/PurchaseOrders", nil, nil)

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.Status != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", statusErr.Status)
	}
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("StatusError should match domain.ErrUpstream")
	}
}

func TestFailedLoginIsAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid session"}}`))
	}))
	defer srv.Close()

	tr := newTestTransport(t, srv.URL)
	_, err := tr.Execute(context.Background(), http.MethodGet, "/PurchaseOrders", nil, nil)
	if !errors.Is(err, domain.ErrUpstreamAuth) {
		t.Fatalf("expected upstream auth error, got %v", err)
	}
}

func TestNewTransportValidatesConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"missing url", Config{CompanyDB: "DB", Username: "u", Password: "p"}},
		{"missing company db", Config{BaseURL: "https://sl.example", Username: "u", Password: "p"}},
		{"missing credentials", Config{BaseURL: "https://sl.example", CompanyDB: "DB"}},
		{"unreadable ca bundle", Config{BaseURL: "https://sl.example", CompanyDB: "DB", Username: "u", Password: "p", VerifyTLS: true, CABundlePath: "/nonexistent/ca.pem"}},
	}
	for _, tc := range cases {
		if _, err := NewTransport(tc.cfg, nil); !errors.Is(err, domain.ErrConfig) {
			t.Fatalf("%s: expected config error, got %v", tc.name, err)
		}
	}
}
