package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter registers the portal's HTTP routes and middleware stack.
// Centralizing routes here ensures consistent auth and error behavior across
// endpoints.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", handler.login)

		r.Group(func(r chi.Router) {
			r.Use(handler.authMiddleware)
			r.Get("/me", handler.me)
			r.Get("/warehouses", handler.listWarehouses)
			r.Get("/orders", handler.listOrders)
			r.Get("/orders/{docEntry}", handler.getOrder)
			r.Post("/receipts", handler.postReceipt)
		})
	})

	return r
}
