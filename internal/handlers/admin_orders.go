package handlers

import (
	"net/http"

	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/audit"
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/auth"
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/metrics"
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/models"
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/orders"
)

type AdminOrderHandler struct {
	Orders *orders.Service
	Audit  *audit.Recorder
}

// updateOrderRequest covers the three accepted shapes for updating one
// order: a single item transition (itemId + status), a batch of item
// transitions (items), or an aggregate flag patch (everything else). The
// shapes are mutually exclusive; items and itemId take precedence in that
// order.
type updateOrderRequest struct {
	ItemID string            `json:"itemId"`
	Status models.ItemStatus `json:"status"`

	Items []orders.ItemUpdate `json:"items"`

	IsConfirmed   *bool   `json:"isConfirmed"`
	IsShipped     *bool   `json:"isShipped"`
	IsDelivered   *bool   `json:"isDelivered"`
	IsCancelled   *bool   `json:"isCancelled"`
	CancelReason  *string `json:"cancelReason"`
	IsPaid        *bool   `json:"isPaid"`
	PaymentStatus *string `json:"paymentStatus"`
}

func (h *AdminOrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	orderID := r.PathValue("id")

	var req updateOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	var (
		o   *models.Order
		err error
	)
	switch {
	case len(req.Items) > 0:
		o, err = h.Orders.ApplyItemUpdates(r.Context(), orderID, req.Items)
	case req.ItemID != "":
		reason := ""
		if req.CancelReason != nil {
			reason = *req.CancelReason
		}
		o, err = h.Orders.SetItemStatus(r.Context(), orderID, req.ItemID, req.Status, reason)
	default:
		o, err = h.Orders.UpdateOrder(r.Context(), orderID, orders.OrderPatch{
			IsConfirmed:   req.IsConfirmed,
			IsShipped:     req.IsShipped,
			IsDelivered:   req.IsDelivered,
			IsCancelled:   req.IsCancelled,
			CancelReason:  req.CancelReason,
			IsPaid:        req.IsPaid,
			PaymentStatus: req.PaymentStatus,
		})
	}
	if err != nil {
		writeError(w, err)
		return
	}

	h.Audit.Record(audit.Event{
		UserID: p.ID, UserEmail: p.Email,
		Action: "ADMIN_ORDER_UPDATE", Resource: "order", ResourceID: orderID,
		Success: true, Request: r,
	})
	writeJSON(w, http.StatusOK, o)
}

type bulkOrdersRequest struct {
	OrderIDs []string `json:"orderIds"`
	Action   string   `json:"action"`
	Value    string   `json:"value"`
}

func (h *AdminOrderHandler) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	var req bulkOrdersRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	cmd, err := orders.ParseBulkCommand(req.Action, req.Value)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.Orders.BulkUpdate(r.Context(), req.OrderIDs, cmd)
	if err != nil {
		writeError(w, err)
		return
	}

	metrics.BulkUpdatesTotal.WithLabelValues(req.Action).Inc()
	h.Audit.Record(audit.Event{
		UserID: p.ID, UserEmail: p.Email,
		Action: "ADMIN_BULK_ORDER_UPDATE", Resource: "order",
		Success: true, Request: r,
		Details: map[string]any{
			"action":   req.Action,
			"value":    req.Value,
			"ids":      len(req.OrderIDs),
			"matched":  res.Matched,
			"modified": res.Modified,
		},
	})
	writeJSON(w, http.StatusOK, res)
}
