package http

import (
	"context"
	"net/http"

	"github.com/Ramon-Alomia/entradas-app/internal/application"
	"github.com/Ramon-Alomia/entradas-app/internal/ports"
)

// Handler exposes the portal's HTTP surface over the application service.
type Handler struct {
	svc    *application.Service
	signer ports.TokenSigner

	// readyCheck probes the service's backing stores. Nil means always ready.
	readyCheck func(ctx context.Context) error
}

func NewHandler(svc *application.Service, signer ports.TokenSigner, readyCheck func(ctx context.Context) error) *Handler {
	return &Handler{
		svc:        svc,
		signer:     signer,
		readyCheck: readyCheck,
	}
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	if h.readyCheck != nil {
		if err := h.readyCheck(r.Context()); err != nil {
			logHTTPOperationError(r.Context(), "readyz", http.StatusServiceUnavailable, "NOT_READY", "dependency check failed", err)
			writeError(w, http.StatusServiceUnavailable, "NOT_READY", "dependency check failed")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var in application.LoginInput
	if err := decodeBody(r, &in); err != nil {
		writeValidationError(r.Context(), w, "login", err.Error())
		return
	}

	result, err := h.svc.Login(r.Context(), in)
	if err != nil {
		writeMappedError(r.Context(), w, "login", err)
		return
	}

	httpLogger().InfoContext(r.Context(), "operator logged in",
		"operation", "login",
		"outcome", "success",
		"username", result.Username,
		"remote_ip", readIP(r),
		"request_id", requestIDFromContext(r.Context()),
	)
	writeSuccess(w, http.StatusOK, result)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "me")
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"username":   actor.Username,
		"role":       actor.Role,
		"warehouses": actor.Warehouses,
	})
}

func (h *Handler) listWarehouses(w http.ResponseWriter, r *http.Request) {
	warehouses, err := h.svc.ListWarehouses(r.Context())
	if err != nil {
		writeMappedError(r.Context(), w, "list_warehouses", err)
		return
	}
	writeSuccess(w, http.StatusOK, warehouses)
}
