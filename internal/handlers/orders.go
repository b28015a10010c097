package handlers

import (
	"net/http"
	"strconv"

	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/apperr"
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/audit"
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/auth"
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/metrics"
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/orders"
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/store"
)

type OrderHandler struct {
	Orders *orders.Service
	Audit  *audit.Recorder
}

// List returns the caller's orders, or any user's when the caller is an
// admin. Non-admins are always scoped to themselves regardless of the user
// query parameter.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	q := r.URL.Query()
	f := store.OrderFilter{
		Status: q.Get("status"),
		Search: q.Get("search"),
	}
	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.Limit, _ = strconv.Atoi(q.Get("limit"))

	if p.IsAdmin() {
		f.UserID = q.Get("user")
	} else {
		f.UserID = p.ID
	}

	list, total, err := h.Orders.List(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"orders": list,
		"total":  total,
	})
}

func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	var in orders.CreateOrderInput
	if err := decodeJSON(w, r, &in); err != nil {
		metrics.OrdersTotal.WithLabelValues("invalid").Inc()
		writeError(w, err)
		return
	}

	o, err := h.Orders.Create(r.Context(), p.ID, in)
	if err != nil {
		metrics.OrdersTotal.WithLabelValues("failed").Inc()
		h.Audit.Record(audit.Event{
			UserID: p.ID, UserEmail: p.Email,
			Action: "ORDER_CREATE_FAILED", Resource: "order",
			Success: false, Request: r,
			Details: map[string]any{"reason": apperr.MessageOf(err)},
		})
		writeError(w, err)
		return
	}

	metrics.OrdersTotal.WithLabelValues("created").Inc()
	h.Audit.Record(audit.Event{
		UserID: p.ID, UserEmail: p.Email,
		Action: "ORDER_CREATE", Resource: "order", ResourceID: o.ID,
		Success: true, Request: r,
		Details: map[string]any{"total": o.TotalPrice.String(), "items": len(o.OrderItems)},
	})
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	o, err := h.Orders.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !auth.CanAccessResource(p, o.UserID) {
		h.Audit.Record(audit.Event{
			UserID: p.ID, UserEmail: p.Email,
			Action: "ORDER_VIEW_FORBIDDEN", Resource: "order", ResourceID: o.ID,
			Success: false, Request: r,
		})
		writeError(w, apperr.Forbidden("you do not have access to this order"))
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// Clear deletes the caller's order history. Admins may pass all=true to wipe
// every order in the system.
func (h *OrderHandler) Clear(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	if r.URL.Query().Get("all") == "true" {
		if !p.IsAdmin() {
			writeError(w, apperr.Forbidden("insufficient permissions"))
			return
		}
		n, err := h.Orders.ClearAll(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		h.Audit.Record(audit.Event{
			UserID: p.ID, UserEmail: p.Email,
			Action: "ADMIN_ORDERS_DELETE_ALL", Resource: "order",
			Success: true, Request: r,
			Details: map[string]any{"deleted": n},
		})
		writeJSON(w, http.StatusOK, map[string]any{"deleted": n})
		return
	}

	n, err := h.Orders.ClearHistory(r.Context(), p.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	h.Audit.Record(audit.Event{
		UserID: p.ID, UserEmail: p.Email,
		Action: "ORDER_HISTORY_DELETE", Resource: "order",
		Success: true, Request: r,
		Details: map[string]any{"deleted": n},
	})
	writeJSON(w, http.StatusOK, map[string]any{"deleted": n})
}
