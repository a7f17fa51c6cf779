package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Ramon-Alomia/entradas-app/internal/domain"
)

const maxBodyBytes = 1 << 20

// decodeBody decodes a single JSON value from the request body and rejects
// unknown fields and trailing payloads.
func decodeBody(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

func parseIntDefault(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("not an integer: %q", raw)
	}
	return v, nil
}

func parseDateParam(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, fmt.Errorf("expected YYYY-MM-DD date: %q", raw)
	}
	return &t, nil
}

func readIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// mapDomainError translates domain sentinel errors to HTTP status, code and
// client-facing message. Unknown errors map to 500 without leaking detail.
func mapDomainError(err error) (int, string, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "VALIDATION", err.Error()
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "UNAUTHORIZED", "invalid credentials"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED", "authentication required"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN", err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", err.Error()
	case errors.Is(err, domain.ErrDuplicateOperation):
		return http.StatusConflict, "DUPLICATE", "operation already recorded"
	case errors.Is(err, domain.ErrAccountLocked):
		return http.StatusLocked, "ACCOUNT_LOCKED", "account temporarily locked"
	case errors.Is(err, domain.ErrUpstreamAuth):
		return http.StatusBadGateway, "UPSTREAM_AUTH", "upstream authentication failed"
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "upstream service unavailable"
	case errors.Is(err, domain.ErrUpstream):
		return http.StatusBadGateway, "UPSTREAM_ERROR", "upstream service error"
	case errors.Is(err, domain.ErrPersistence):
		// Distinct from a generic 500: the receipt may exist upstream with no
		// audit record, which an operator must investigate.
		return http.StatusInternalServerError, "PERSISTENCE_ERROR", "receipt recorded upstream but audit write failed"
	case errors.Is(err, domain.ErrConfig):
		return http.StatusInternalServerError, "CONFIG_ERROR", "service misconfigured"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"
	}
}

func writeMappedError(ctx context.Context, w http.ResponseWriter, operation string, err error) {
	statusCode, code, message := mapDomainError(err)
	logHTTPOperationError(ctx, operation, statusCode, code, message, err)
	writeError(w, statusCode, code, message)
}

func writeValidationError(ctx context.Context, w http.ResponseWriter, operation, message string) {
	logHTTPOperationError(ctx, operation, http.StatusBadRequest, "VALIDATION", message, nil)
	writeError(w, http.StatusBadRequest, "VALIDATION", message)
}

func writeMissingBearerError(ctx context.Context, w http.ResponseWriter, operation string) {
	logHTTPOperationError(ctx, operation, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token", nil)
	writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
}
