package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Ramon-Alomia/entradas-app/internal/application"
)

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "list_orders")
		return
	}

	q := r.URL.Query()

	dueFrom, err := parseDateParam(q.Get("due_from"))
	if err != nil {
		writeValidationError(r.Context(), w, "list_orders", "due_from: "+err.Error())
		return
	}
	dueTo, err := parseDateParam(q.Get("due_to"))
	if err != nil {
		writeValidationError(r.Context(), w, "list_orders", "due_to: "+err.Error())
		return
	}
	page, err := parseIntDefault(q.Get("page"), 1)
	if err != nil {
		writeValidationError(r.Context(), w, "list_orders", "page: "+err.Error())
		return
	}
	pageSize, err := parseIntDefault(q.Get("pageSize"), 20)
	if err != nil {
		writeValidationError(r.Context(), w, "list_orders", "pageSize: "+err.Error())
		return
	}

	orders, err := h.svc.ListOpenOrders(r.Context(), actor, application.ListOrdersInput{
		DueFrom:   dueFrom,
		DueTo:     dueTo,
		Vendor:    q.Get("vendorCode"),
		Warehouse: q.Get("whsCode"),
		Page:      page,
		PageSize:  pageSize,
	})
	if err != nil {
		writeMappedError(r.Context(), w, "list_orders", err)
		return
	}
	writeSuccess(w, http.StatusOK, orders)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "get_order")
		return
	}

	docEntry, err := strconv.Atoi(chi.URLParam(r, "docEntry"))
	if err != nil || docEntry <= 0 {
		writeValidationError(r.Context(), w, "get_order", "docEntry must be a positive integer")
		return
	}

	order, err := h.svc.GetOrder(r.Context(), actor, docEntry, r.URL.Query().Get("whsCode"))
	if err != nil {
		writeMappedError(r.Context(), w, "get_order", err)
		return
	}
	writeSuccess(w, http.StatusOK, order)
}

func (h *Handler) postReceipt(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "post_receipt")
		return
	}

	var in application.ReceiptInput
	if err := decodeBody(r, &in); err != nil {
		writeValidationError(r.Context(), w, "post_receipt", err.Error())
		return
	}

	result, err := h.svc.PostReceipt(r.Context(), actor, in)
	if err != nil {
		writeMappedError(r.Context(), w, "post_receipt", err)
		return
	}

	httpLogger().InfoContext(r.Context(), "goods receipt posted",
		"operation", "post_receipt",
		"outcome", "success",
		"username", actor.Username,
		"doc_entry", in.DocEntry,
		"grpo_doc_entry", result.ERPDocEntry,
		"fingerprint", result.Fingerprint,
		"request_id", requestIDFromContext(r.Context()),
	)
	writeSuccess(w, http.StatusCreated, result)
}
