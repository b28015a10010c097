package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/apperr"
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/audit"
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/auth"
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/metrics"
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/models"
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/orders"
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/store"
)

type ProductHandler struct {
	Store *store.Store
	Audit *audit.Recorder
}

type bulkProductsRequest struct {
	ProductIDs []string `json:"productIds"`
	Action     string   `json:"action"`
}

// parseProductAction maps a catalog toggle keyword to its flag patch.
func parseProductAction(action string) (store.ProductFlagsPatch, error) {
	on, off := true, false
	switch action {
	case "set_featured":
		return store.ProductFlagsPatch{Featured: &on}, nil
	case "remove_featured":
		return store.ProductFlagsPatch{Featured: &off}, nil
	case "activate":
		return store.ProductFlagsPatch{Active: &on}, nil
	case "deactivate":
		return store.ProductFlagsPatch{Active: &off}, nil
	}
	return store.ProductFlagsPatch{}, apperr.Newf(apperr.CodeInvalidArgument, "invalid bulk action %q", action)
}

func (h *ProductHandler) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	var req bulkProductsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	patch, err := parseProductAction(req.Action)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(req.ProductIDs) == 0 {
		writeError(w, apperr.Invalid("product id list is required"))
		return
	}
	if len(req.ProductIDs) > orders.MaxBulkIDs {
		writeError(w, apperr.Newf(apperr.CodeInvalidArgument,
			"cannot update more than %d products at once", orders.MaxBulkIDs))
		return
	}
	for _, id := range req.ProductIDs {
		if _, err := uuid.Parse(id); err != nil {
			writeError(w, apperr.Invalid("malformed product id"))
			return
		}
	}

	matched, modified, err := h.Store.BulkUpdateProducts(r.Context(), req.ProductIDs, patch)
	if err != nil {
		writeError(w, err)
		return
	}

	metrics.BulkUpdatesTotal.WithLabelValues(req.Action).Inc()
	h.Audit.Record(audit.Event{
		UserID: p.ID, UserEmail: p.Email,
		Action: "ADMIN_BULK_PRODUCT_UPDATE", Resource: "product",
		Success: true, Request: r,
		Details: map[string]any{"action": req.Action, "matched": matched, "modified": modified},
	})
	writeJSON(w, http.StatusOK, map[string]any{"matched": matched, "modified": modified})
}

type addReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (h *ProductHandler) AddReview(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	productID := r.PathValue("id")

	var req addReviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		writeError(w, apperr.Invalid("rating must be between 1 and 5"))
		return
	}

	if _, err := h.Store.GetProductByID(r.Context(), productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, apperr.NotFound("product not found"))
			return
		}
		writeError(w, err)
		return
	}

	review := &models.Review{
		ID:        uuid.New().String(),
		ProductID: productID,
		UserID:    p.ID,
		Rating:    req.Rating,
		Comment:   req.Comment,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.AddReview(r.Context(), review); err != nil {
		writeError(w, err)
		return
	}

	h.Audit.Record(audit.Event{
		UserID: p.ID, UserEmail: p.Email,
		Action: "REVIEW_CREATE", Resource: "review", ResourceID: review.ID,
		Success: true, Request: r,
		Details: map[string]any{"product_id": productID, "rating": req.Rating},
	})
	writeJSON(w, http.StatusCreated, review)
}

func (h *ProductHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	productID := r.PathValue("id")
	reviewID := r.PathValue("reviewId")

	review, err := h.Store.GetReview(r.Context(), productID, reviewID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, apperr.NotFound("review not found"))
			return
		}
		writeError(w, err)
		return
	}
	if !auth.CanAccessResource(p, review.UserID) {
		writeError(w, apperr.Forbidden("you do not have access to this review"))
		return
	}

	if err := h.Store.DeleteReview(r.Context(), productID, reviewID); err != nil {
		writeError(w, err)
		return
	}

	h.Audit.Record(audit.Event{
		UserID: p.ID, UserEmail: p.Email,
		Action: "REVIEW_DELETE", Resource: "review", ResourceID: reviewID,
		Success: true, Request: r,
		Details: map[string]any{"product_id": productID},
	})
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}
