package handlers

import (
	"net/http"

	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/audit"
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/orders"
)

type PaymentHandler struct {
	Orders *orders.Service
	Audit  *audit.Recorder
}

type paymentCallbackRequest struct {
	OrderID       string `json:"orderId"`
	TransactionID string `json:"tranId"`
	Status        string `json:"status"`
}

// Callback receives the gateway verdict for a hosted payment. It is
// unauthenticated: the gateway is not a session holder, so the request is
// validated against the stored transaction id instead.
func (h *PaymentHandler) Callback(w http.ResponseWriter, r *http.Request) {
	var req paymentCallbackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	o, err := h.Orders.ApplyPaymentResult(r.Context(), req.OrderID, req.TransactionID, req.Status)
	if err != nil {
		h.Audit.Record(audit.Event{
			Action: "PAYMENT_CALLBACK_FAILED", Resource: "order", ResourceID: req.OrderID,
			Success: false, Request: r,
			Details: map[string]any{"status": req.Status},
		})
		writeError(w, err)
		return
	}

	h.Audit.Record(audit.Event{
		UserID: o.UserID, UserEmail: o.UserEmail,
		Action: "PAYMENT_CALLBACK", Resource: "order", ResourceID: o.ID,
		Success: true, Request: r,
		Details: map[string]any{"status": req.Status, "paid": o.IsPaid},
	})
	writeJSON(w, http.StatusOK, o)
}
