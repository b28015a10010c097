package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/apperr"
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/models"
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/store"
)

// conflictRetries bounds how often a mutation is retried after losing an
// optimistic-version race before giving up with Conflict.
const conflictRetries = 3

// PaymentInitiator starts a hosted-gateway payment and returns the gateway
// transaction id. Cash-on-delivery orders never reach it.
type PaymentInitiator interface {
	Initiate(ctx context.Context, o *models.Order) (transactionID string, err error)
}

type Service struct {
	store   *store.Store
	payment PaymentInitiator
	now     func() time.Time
}

func NewService(st *store.Store, payment PaymentInitiator) *Service {
	return &Service{store: st, payment: payment, now: time.Now}
}

type CreateItemInput struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Size      string          `json:"size"`
	Color     string          `json:"color"`
}

type CreateOrderInput struct {
	Items           []CreateItemInput      `json:"orderItems"`
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   models.PaymentMethod   `json:"paymentMethod"`
}

func (in *CreateOrderInput) validate() error {
	if len(in.Items) == 0 {
		return apperr.Invalid("order must contain at least one item")
	}
	for i, it := range in.Items {
		if it.ProductID == "" || it.Name == "" {
			return apperr.Newf(apperr.CodeInvalidArgument, "item %d is missing product details", i)
		}
		if it.Quantity < 1 {
			return apperr.Newf(apperr.CodeInvalidArgument, "item %d has invalid quantity", i)
		}
		if it.Price.IsNegative() {
			return apperr.Newf(apperr.CodeInvalidArgument, "item %d has negative price", i)
		}
	}
	if in.ShippingAddress.Street == "" {
		return apperr.Invalid("shipping street is required")
	}
	if in.ShippingAddress.Phone == "" {
		return apperr.Invalid("shipping phone is required")
	}
	if !in.PaymentMethod.Valid() {
		return apperr.Newf(apperr.CodeInvalidArgument, "unsupported payment method %q", in.PaymentMethod)
	}
	return nil
}

// Create builds an order from checkout input: all flags false, every item
// pending, prices derived from the snapshot, and payment initiated for
// hosted gateways. Cash-on-delivery orders start unpaid with no gateway
// round-trip.
func (s *Service) Create(ctx context.Context, userID string, in CreateOrderInput) (*models.Order, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	o := &models.Order{
		ID:              uuid.New().String(),
		UserID:          userID,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   in.PaymentMethod,
		CreatedAt:       now,
	}
	for _, it := range in.Items {
		o.OrderItems = append(o.OrderItems, models.OrderItem{
			ID:        uuid.New().String(),
			ProductID: it.ProductID,
			Name:      it.Name,
			ImageURL:  it.Image,
			Price:     it.Price,
			Quantity:  it.Quantity,
			Size:      it.Size,
			Color:     it.Color,
			Status:    models.ItemPending,
		})
	}
	recalcPrices(o)

	if in.PaymentMethod != models.PaymentCOD && s.payment != nil {
		tranID, err := s.payment.Initiate(ctx, o)
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeInternal, "payment initiation failed", err)
		}
		o.PaymentTransactionID = tranID
		o.PaymentStatus = "initiated"
	}

	if err := s.store.CreateOrder(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Order, error) {
	o, err := s.store.GetOrderByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("order not found")
	}
	return o, err
}

func (s *Service) List(ctx context.Context, f store.OrderFilter) ([]models.Order, int, error) {
	return s.store.ListOrders(ctx, f)
}

// ItemUpdate is one entry of a batched item-status request.
type ItemUpdate struct {
	ItemID       string            `json:"itemId"`
	Status       models.ItemStatus `json:"status"`
	CancelReason string            `json:"cancelReason,omitempty"`
}

// SetItemStatus transitions a single item and re-derives the aggregate state
// and prices in the same atomic unit.
func (s *Service) SetItemStatus(ctx context.Context, orderID, itemID string, status models.ItemStatus, reason string) (*models.Order, error) {
	if err := validateID(orderID, "order id"); err != nil {
		return nil, err
	}
	if err := validateID(itemID, "item id"); err != nil {
		return nil, err
	}
	return s.ApplyItemUpdates(ctx, orderID, []ItemUpdate{{ItemID: itemID, Status: status, CancelReason: reason}})
}

// ApplyItemUpdates applies a batch of item transitions in request order
// inside one transaction. The first failing update aborts the batch: either
// every update commits or none do, and the error names the offender.
func (s *Service) ApplyItemUpdates(ctx context.Context, orderID string, updates []ItemUpdate) (*models.Order, error) {
	if err := validateID(orderID, "order id"); err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return nil, apperr.Invalid("no item updates supplied")
	}

	return s.mutateWithRetry(ctx, orderID, func(o *models.Order) error {
		now := s.now().UTC()
		for _, u := range updates {
			if err := validateID(u.ItemID, "item id"); err != nil {
				return err
			}
			if err := applyItemTransition(o, u.ItemID, u.Status, u.CancelReason, now); err != nil {
				var ae *apperr.Error
				if errors.As(err, &ae) {
					return apperr.Newf(ae.Code, "item %s: %s", u.ItemID, ae.Message)
				}
				return err
			}
		}
		deriveAggregate(o, now)
		recalcPrices(o)
		return nil
	})
}

// OrderPatch is the admin merge patch over aggregate-level fields. Only the
// fields listed here can be changed through this path; item snapshots and
// prices are not expressible, so the price invariant holds by construction.
type OrderPatch struct {
	IsConfirmed   *bool   `json:"isConfirmed,omitempty"`
	IsShipped     *bool   `json:"isShipped,omitempty"`
	IsDelivered   *bool   `json:"isDelivered,omitempty"`
	IsCancelled   *bool   `json:"isCancelled,omitempty"`
	CancelReason  *string `json:"cancelReason,omitempty"`
	IsPaid        *bool   `json:"isPaid,omitempty"`
	PaymentStatus *string `json:"paymentStatus,omitempty"`
}

func (p *OrderPatch) empty() bool {
	return p.IsConfirmed == nil && p.IsShipped == nil && p.IsDelivered == nil &&
		p.IsCancelled == nil && p.CancelReason == nil && p.IsPaid == nil && p.PaymentStatus == nil
}

// UpdateOrder applies an aggregate-level merge patch, used by admins for
// flags the item path does not cover (shipped, delivered, payment state).
func (s *Service) UpdateOrder(ctx context.Context, orderID string, patch OrderPatch) (*models.Order, error) {
	if err := validateID(orderID, "order id"); err != nil {
		return nil, err
	}
	if patch.empty() {
		return nil, apperr.Invalid("no fields to update")
	}
	if patch.CancelReason != nil && len(*patch.CancelReason) > maxCancelReasonLen {
		return nil, apperr.Invalid("cancel reason too long")
	}

	return s.mutateWithRetry(ctx, orderID, func(o *models.Order) error {
		now := s.now().UTC()
		setFlag := func(current *bool, at **time.Time, v *bool) {
			if v == nil {
				return
			}
			if *v && !*current {
				t := now
				*at = &t
			}
			if !*v {
				*at = nil
			}
			*current = *v
		}
		setFlag(&o.IsConfirmed, &o.ConfirmedAt, patch.IsConfirmed)
		setFlag(&o.IsShipped, &o.ShippedAt, patch.IsShipped)
		setFlag(&o.IsDelivered, &o.DeliveredAt, patch.IsDelivered)
		setFlag(&o.IsCancelled, &o.CancelledAt, patch.IsCancelled)
		if patch.CancelReason != nil {
			o.CancelReason = *patch.CancelReason
		}
		if patch.IsPaid != nil {
			o.IsPaid = *patch.IsPaid
			if *patch.IsPaid {
				t := now
				o.PaidAt = &t
			} else {
				o.PaidAt = nil
			}
		}
		if patch.PaymentStatus != nil {
			o.PaymentStatus = *patch.PaymentStatus
		}
		return nil
	})
}

// BulkResult reports how many orders a bulk transition matched and touched.
type BulkResult struct {
	Matched  int64 `json:"matched"`
	Modified int64 `json:"modified"`
}

// BulkUpdate applies one command to up to MaxBulkIDs orders. This is an
// aggregate-only override: item-level statuses are not consulted or
// changed, which admins accept in exchange for a single fast sweep.
func (s *Service) BulkUpdate(ctx context.Context, ids []string, cmd BulkCommand) (BulkResult, error) {
	if len(ids) == 0 {
		return BulkResult{}, apperr.Invalid("order id list is required")
	}
	if len(ids) > MaxBulkIDs {
		return BulkResult{}, apperr.Newf(apperr.CodeInvalidArgument,
			"cannot update more than %d orders at once", MaxBulkIDs)
	}
	for _, id := range ids {
		if err := validateID(id, "order id"); err != nil {
			return BulkResult{}, err
		}
	}

	matched, modified, err := s.store.BulkUpdateOrders(ctx, ids, cmd.patch(), s.now().UTC())
	if err != nil {
		return BulkResult{}, err
	}
	return BulkResult{Matched: matched, Modified: modified}, nil
}

// ClearHistory removes every order belonging to userID. Irreversible.
func (s *Service) ClearHistory(ctx context.Context, userID string) (int64, error) {
	return s.store.DeleteOrdersByUser(ctx, userID)
}

// ClearAll removes every order in the system. Admin-only, irreversible.
func (s *Service) ClearAll(ctx context.Context) (int64, error) {
	return s.store.DeleteAllOrders(ctx)
}

// ApplyPaymentResult records a gateway callback verdict on the order.
func (s *Service) ApplyPaymentResult(ctx context.Context, orderID, transactionID, status string) (*models.Order, error) {
	if err := validateID(orderID, "order id"); err != nil {
		return nil, err
	}
	if status != "VALID" && status != "FAILED" {
		return nil, apperr.Newf(apperr.CodeInvalidArgument, "invalid payment status %q", status)
	}

	return s.mutateWithRetry(ctx, orderID, func(o *models.Order) error {
		// Orders without a stored transaction id never initiated a gateway
		// payment (cash on delivery); a callback for them can only be forged.
		if o.PaymentTransactionID == "" {
			return apperr.Invalid("order has no initiated payment")
		}
		if transactionID != o.PaymentTransactionID {
			return apperr.Invalid("transaction id does not match order")
		}
		now := s.now().UTC()
		if status == "VALID" {
			o.IsPaid = true
			o.PaidAt = &now
			o.PaymentStatus = "paid"
		} else {
			o.IsPaid = false
			o.PaidAt = nil
			o.PaymentStatus = "failed"
		}
		return nil
	})
}

func (s *Service) mutateWithRetry(ctx context.Context, orderID string, fn func(o *models.Order) error) (*models.Order, error) {
	for attempt := 0; attempt < conflictRetries; attempt++ {
		o, err := s.store.MutateOrder(ctx, orderID, fn)
		switch {
		case err == nil:
			return o, nil
		case errors.Is(err, store.ErrVersionConflict):
			continue
		case errors.Is(err, sql.ErrNoRows):
			return nil, apperr.NotFound("order not found")
		default:
			return nil, err
		}
	}
	return nil, apperr.Conflict("order is being modified concurrently, try again")
}

func validateID(id, what string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.New(apperr.CodeInvalidArgument, fmt.Sprintf("malformed %s", what))
	}
	return nil
}
