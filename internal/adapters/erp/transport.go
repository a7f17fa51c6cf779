package erp

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Ramon-Alomia/entradas-app/internal/domain"
)

const (
	defaultSessionMaxAge = 25 * time.Minute
	defaultReadTimeout   = 30 * time.Second
	defaultWriteTimeout  = 60 * time.Second

	sessionCookieName = "B1SESSION"
	routeCookieName   = "ROUTEID"

	bodyExcerptLimit = 4096
)

// Config holds the Service Layer connection settings. TLS trust material is
// resolved once at construction.
type Config struct {
	BaseURL       string
	CompanyDB     string
	Username      string
	Password      string
	VerifyTLS     bool
	CABundlePath  string
	SessionMaxAge time.Duration
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
}

// StatusError is a non-2xx Service Layer response that exhausted the retry
// policy. Callers can branch on Status; errors.Is matches domain.ErrUpstream.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("service layer status %d: %s", e.Status, e.Body)
}

func (e *StatusError) Unwrap() error { return domain.ErrUpstream }

// session is the token pair issued by /Login. Mutated only while the
// transport mutex is held so concurrent callers never observe a half-updated
// cookie set.
type session struct {
	id          string
	route       string
	established time.Time
}

// Transport owns the single authenticated channel to the Service Layer:
// session lifecycle, cookie injection, the 401→re-login→retry-once protocol
// and the one-shot transient backoff retry.
type Transport struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger

	mu   sync.Mutex
	sess session

	nowFn   func() time.Time
	sleepFn func(time.Duration)
}

// NewTransport validates the ERP configuration and resolves TLS trust.
// Missing endpoint or credentials and unreadable CA bundles are configuration
// errors, fatal at startup rather than per-request.
func NewTransport(cfg Config, logger *slog.Logger) (*Transport, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" || cfg.CompanyDB == "" || cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("%w: service layer url, company db and credentials are required", domain.ErrConfig)
	}
	if cfg.SessionMaxAge <= 0 {
		cfg.SessionMaxAge = defaultSessionMaxAge
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}

	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}
	switch {
	case !cfg.VerifyTLS:
		tlsCfg.InsecureSkipVerify = true
	case cfg.CABundlePath != "":
		pem, err := os.ReadFile(cfg.CABundlePath)
		if err != nil {
			return nil, fmt.Errorf("%w: read ca bundle: %v", domain.ErrConfig, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("%w: ca bundle %s contains no usable certificates", domain.ErrConfig, cfg.CABundlePath)
		}
		tlsCfg.RootCAs = pool
	}

	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("module", "erp", "layer", "adapter")
	logger.Info("service layer transport configured",
		"operation", "configure",
		"base_url", cfg.BaseURL,
		"verify_tls", cfg.VerifyTLS,
		"ca_bundle", cfg.CABundlePath != "",
	)

	return &Transport{
		cfg: cfg,
		client: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig:     tlsCfg,
				MaxIdleConnsPerHost: 4,
			},
		},
		logger:  logger,
		nowFn:   func() time.Time { return time.Now().UTC() },
		sleepFn: time.Sleep,
	}, nil
}

// Execute ensures a fresh session and issues one Service Layer read call.
// path is relative to the configured base URL.
func (t *Transport) Execute(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	return t.execute(ctx, method, path, query, body, false)
}

// ExecuteWrite is Execute with the write timeout; document posts may take
// longer on the ERP side.
func (t *Transport) ExecuteWrite(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	return t.execute(ctx, method, path, query, body, true)
}

func (t *Transport) execute(ctx context.Context, method, path string, query url.Values, body any, write bool) ([]byte, error) {
	sess, err := t.ensureSession(ctx)
	if err != nil {
		return nil, err
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
	}

	timeout := t.cfg.ReadTimeout
	if write {
		timeout = t.cfg.WriteTimeout
	}

	transportRetried := false
	reloggedIn := false
	for {
		status, respBody, err := t.attempt(ctx, method, path, query, payload, timeout, sess)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, err
			}
			// Writes are never re-sent after a transport failure: the request
			// may already have reached the ERP.
			if !write && !transportRetried {
				transportRetried = true
				pause := backoffDelay()
				t.logger.Warn("service layer call failed, retrying once",
					"operation", "execute",
					"outcome", "retry",
					"method", method,
					"path", path,
					"backoff_ms", pause.Milliseconds(),
					"error", err.Error(),
				)
				t.sleepFn(pause)
				continue
			}
			return nil, fmt.Errorf("%w: %s %s: %v", domain.ErrUpstreamUnavailable, method, path, err)
		}

		if status == http.StatusUnauthorized {
			if reloggedIn {
				return nil, fmt.Errorf("%w: session rejected twice for %s %s", domain.ErrUpstreamAuth, method, path)
			}
			reloggedIn = true
			t.logger.Info("session rejected, re-authenticating",
				"operation", "execute",
				"outcome", "relogin",
				"method", method,
				"path", path,
			)
			sess, err = t.login(ctx)
			if err != nil {
				return nil, err
			}
			continue
		}

		if status < 200 || status > 299 {
			return nil, &StatusError{Status: status, Body: excerpt(respBody)}
		}
		return respBody, nil
	}
}

func (t *Transport) attempt(ctx context.Context, method, path string, query url.Values, payload []byte, timeout time.Duration, sess session) (int, []byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	target := t.cfg.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(callCtx, method, target, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Cookie", sess.cookieHeader())

	resp, err := t.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, respBody, nil
}

// ensureSession returns the current session, logging in when none exists or
// the session exceeded the freshness threshold.
func (t *Transport) ensureSession(ctx context.Context) (session, error) {
	t.mu.Lock()
	sess := t.sess
	t.mu.Unlock()

	if sess.id != "" && t.nowFn().Sub(sess.established) < t.cfg.SessionMaxAge {
		return sess, nil
	}
	return t.login(ctx)
}

type loginRequest struct {
	CompanyDB string `json:"CompanyDB"`
	UserName  string `json:"UserName"`
	Password  string `json:"Password"`
}

type loginResponse struct {
	SessionID string `json:"SessionId"`
}

// login authenticates against /Login and atomically replaces the session.
// Concurrent logins are tolerated: the ERP invalidates prior tokens and the
// latest swap wins.
func (t *Transport) login(ctx context.Context) (session, error) {
	callCtx, cancel := context.WithTimeout(ctx, t.cfg.ReadTimeout)
	defer cancel()

	payload, err := json.Marshal(loginRequest{
		CompanyDB: t.cfg.CompanyDB,
		UserName:  t.cfg.Username,
		Password:  t.cfg.Password,
	})
	if err != nil {
		return session{}, fmt.Errorf("marshal login request: %w", err)
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, t.cfg.BaseURL+"/Login", bytes.NewReader(payload))
	if err != nil {
		return session{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return session{}, fmt.Errorf("%w: login: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return session{}, fmt.Errorf("%w: read login response: %v", domain.ErrUpstreamUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return session{}, fmt.Errorf("%w: login status %d: %s", domain.ErrUpstreamAuth, resp.StatusCode, excerpt(body))
	}

	var parsed loginResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return session{}, fmt.Errorf("%w: decode login response: %v", domain.ErrUpstreamAuth, err)
	}
	if parsed.SessionID == "" {
		return session{}, fmt.Errorf("%w: login response missing SessionId", domain.ErrUpstreamAuth)
	}

	sess := session{id: parsed.SessionID, established: t.nowFn()}
	for _, c := range resp.Cookies() {
		if c.Name == routeCookieName {
			sess.route = c.Value
		}
	}

	t.mu.Lock()
	t.sess = sess
	t.mu.Unlock()

	t.logger.Info("service layer session established",
		"operation", "login",
		"outcome", "success",
		"has_route", sess.route != "",
	)
	return sess, nil
}

func (s session) cookieHeader() string {
	parts := []string{sessionCookieName + "=" + s.id}
	if s.route != "" {
		parts = append(parts, routeCookieName+"="+s.route)
	}
	return strings.Join(parts, "; ")
}

// backoffDelay is the bounded random pause before the single transport-level
// retry: 400ms plus up to 600ms of jitter.
func backoffDelay() time.Duration {
	return 400*time.Millisecond + time.Duration(rand.Int63n(600))*time.Millisecond
}

func excerpt(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > bodyExcerptLimit {
		s = s[:bodyExcerptLimit]
	}
	return s
}
