// Package orders implements the order lifecycle engine: per-item status
// transitions, aggregate status derivation, monetary recalculation, and the
// administrative bulk paths. All mutations run as atomic read-modify-write
// units against the store.
package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/apperr"
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/models"
)

const maxCancelReasonLen = 500

var (
	freeShippingAbove = decimal.NewFromInt(2000)
	flatShippingPrice = decimal.NewFromInt(60)
	taxRate           = decimal.RequireFromString("0.05")
)

// recalcPrices recomputes the four monetary fields from the current item
// set. Cancelled items do not count toward the payable total; pending and
// confirmed items both do. Shipping is waived only strictly above the
// threshold, and tax rounds half-up.
func recalcPrices(o *models.Order) {
	items := decimal.Zero
	for _, it := range o.OrderItems {
		if it.Status == models.ItemCancelled {
			continue
		}
		items = items.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	o.ItemsPrice = items
	if items.GreaterThan(freeShippingAbove) {
		o.ShippingPrice = decimal.Zero
	} else {
		o.ShippingPrice = flatShippingPrice
	}
	o.TaxPrice = items.Mul(taxRate).Round(0)
	o.TotalPrice = o.ItemsPrice.Add(o.ShippingPrice).Add(o.TaxPrice)
}

// deriveAggregate recomputes the order's confirmed/cancelled flags from the
// full current item set. All-confirmed and all-cancelled are mutually
// exclusive; mixed sets fall through to partial confirmation, which stamps
// confirmedAt only on the first transition into confirmed.
func deriveAggregate(o *models.Order, now time.Time) {
	confirmed, cancelled := 0, 0
	for _, it := range o.OrderItems {
		switch it.Status {
		case models.ItemConfirmed:
			confirmed++
		case models.ItemCancelled:
			cancelled++
		}
	}

	n := len(o.OrderItems)
	switch {
	case n > 0 && confirmed == n:
		o.IsConfirmed = true
		o.ConfirmedAt = &now
		o.IsCancelled = false
		o.CancelledAt = nil
	case n > 0 && cancelled == n:
		o.IsCancelled = true
		o.CancelledAt = &now
		o.IsConfirmed = false
		o.ConfirmedAt = nil
	default:
		o.IsConfirmed = confirmed > 0
		o.IsCancelled = false
		o.CancelledAt = nil
		if o.IsConfirmed {
			if o.ConfirmedAt == nil {
				o.ConfirmedAt = &now
			}
		} else {
			o.ConfirmedAt = nil
		}
	}
}

// applyItemTransition moves one item to newStatus. Only pending items may
// transition; re-submitting an item's current status is a no-op so retries
// stay idempotent.
func applyItemTransition(o *models.Order, itemID string, newStatus models.ItemStatus, reason string, now time.Time) error {
	if newStatus != models.ItemConfirmed && newStatus != models.ItemCancelled {
		return apperr.Newf(apperr.CodeInvalidArgument, "invalid item status %q", newStatus)
	}
	if len(reason) > maxCancelReasonLen {
		return apperr.Invalid("cancel reason too long")
	}

	for i := range o.OrderItems {
		it := &o.OrderItems[i]
		if it.ID != itemID {
			continue
		}
		if it.Status == newStatus {
			return nil
		}
		if it.Status != models.ItemPending {
			return apperr.Newf(apperr.CodeInvalidArgument,
				"item is already %s and cannot change status", it.Status)
		}

		it.Status = newStatus
		switch newStatus {
		case models.ItemConfirmed:
			t := now
			it.ConfirmedAt = &t
		case models.ItemCancelled:
			t := now
			it.CancelledAt = &t
			it.CancelReason = reason
		}
		return nil
	}
	return apperr.NotFound("order item not found")
}
