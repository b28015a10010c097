package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/models"
)

// ErrVersionConflict signals that an order row changed between read and
// write inside MutateOrder. Callers may retry.
var ErrVersionConflict = errors.New("order was modified concurrently")

const orderColumns = `o.id, o.user_id, u.name, u.email,
	o.shipping_street, o.shipping_city, o.shipping_state, o.shipping_postal_code, o.shipping_phone,
	o.payment_method, o.payment_transaction_id, o.payment_status, o.is_paid, o.paid_at,
	o.items_price, o.shipping_price, o.tax_price, o.total_price,
	o.is_confirmed, o.confirmed_at, o.is_shipped, o.shipped_at,
	o.is_delivered, o.delivered_at, o.is_cancelled, o.cancelled_at, o.cancel_reason,
	o.version, o.created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var o models.Order
	var paidAt, confirmedAt, shippedAt, deliveredAt, cancelledAt sql.NullTime
	var itemsPrice, shippingPrice, taxPrice, totalPrice string
	err := row.Scan(&o.ID, &o.UserID, &o.UserName, &o.UserEmail,
		&o.ShippingAddress.Street, &o.ShippingAddress.City, &o.ShippingAddress.State,
		&o.ShippingAddress.PostalCode, &o.ShippingAddress.Phone,
		&o.PaymentMethod, &o.PaymentTransactionID, &o.PaymentStatus, &o.IsPaid, &paidAt,
		&itemsPrice, &shippingPrice, &taxPrice, &totalPrice,
		&o.IsConfirmed, &confirmedAt, &o.IsShipped, &shippedAt,
		&o.IsDelivered, &deliveredAt, &o.IsCancelled, &cancelledAt, &o.CancelReason,
		&o.Version, &o.CreatedAt)
	if err != nil {
		return nil, err
	}

	if o.ItemsPrice, err = decimal.NewFromString(itemsPrice); err != nil {
		return nil, fmt.Errorf("bad items_price for order %s: %w", o.ID, err)
	}
	if o.ShippingPrice, err = decimal.NewFromString(shippingPrice); err != nil {
		return nil, fmt.Errorf("bad shipping_price for order %s: %w", o.ID, err)
	}
	if o.TaxPrice, err = decimal.NewFromString(taxPrice); err != nil {
		return nil, fmt.Errorf("bad tax_price for order %s: %w", o.ID, err)
	}
	if o.TotalPrice, err = decimal.NewFromString(totalPrice); err != nil {
		return nil, fmt.Errorf("bad total_price for order %s: %w", o.ID, err)
	}

	o.PaidAt = timePtr(paidAt)
	o.ConfirmedAt = timePtr(confirmedAt)
	o.ShippedAt = timePtr(shippedAt)
	o.DeliveredAt = timePtr(deliveredAt)
	o.CancelledAt = timePtr(cancelledAt)
	return &o, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) CreateOrder(ctx context.Context, o *models.Order) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO orders (id, user_id, version,
				shipping_street, shipping_city, shipping_state, shipping_postal_code, shipping_phone,
				payment_method, payment_transaction_id, payment_status, is_paid, paid_at,
				items_price, shipping_price, tax_price, total_price,
				is_confirmed, confirmed_at, is_shipped, shipped_at,
				is_delivered, delivered_at, is_cancelled, cancelled_at, cancel_reason, created_at)
			VALUES (?, ?, 1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			o.ID, o.UserID,
			o.ShippingAddress.Street, o.ShippingAddress.City, o.ShippingAddress.State,
			o.ShippingAddress.PostalCode, o.ShippingAddress.Phone,
			o.PaymentMethod, o.PaymentTransactionID, o.PaymentStatus, o.IsPaid, nullTime(o.PaidAt),
			o.ItemsPrice.String(), o.ShippingPrice.String(), o.TaxPrice.String(), o.TotalPrice.String(),
			o.IsConfirmed, nullTime(o.ConfirmedAt), o.IsShipped, nullTime(o.ShippedAt),
			o.IsDelivered, nullTime(o.DeliveredAt), o.IsCancelled, nullTime(o.CancelledAt),
			o.CancelReason, o.CreatedAt)
		if err != nil {
			return err
		}

		for i, item := range o.OrderItems {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO order_items (id, order_id, position, product_id, name, image_url,
					price, quantity, size, color, status, confirmed_at, cancelled_at, cancel_reason)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				item.ID, o.ID, i, item.ProductID, item.Name, item.ImageURL,
				item.Price.String(), item.Quantity, item.Size, item.Color,
				item.Status, nullTime(item.ConfirmedAt), nullTime(item.CancelledAt), item.CancelReason)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	return s.getOrder(ctx, s.DB, id)
}

func (s *Store) getOrder(ctx context.Context, q queryer, id string) (*models.Order, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders o JOIN users u ON u.id = o.user_id
		WHERE o.id = ?`, id)
	o, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	items, err := s.itemsForOrders(ctx, q, []string{id})
	if err != nil {
		return nil, err
	}
	o.OrderItems = items[id]
	return o, nil
}

func (s *Store) itemsForOrders(ctx context.Context, q queryer, orderIDs []string) (map[string][]models.OrderItem, error) {
	if len(orderIDs) == 0 {
		return map[string][]models.OrderItem{}, nil
	}
	args := make([]any, len(orderIDs))
	for i, id := range orderIDs {
		args[i] = id
	}
	rows, err := q.QueryContext(ctx, `
		SELECT id, order_id, product_id, name, image_url, price, quantity, size, color,
			status, confirmed_at, cancelled_at, cancel_reason
		FROM order_items
		WHERE order_id IN (`+placeholders(len(orderIDs))+`)
		ORDER BY order_id, position`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]models.OrderItem, len(orderIDs))
	for rows.Next() {
		var (
			item                     models.OrderItem
			orderID, price           string
			confirmedAt, cancelledAt sql.NullTime
		)
		if err := rows.Scan(&item.ID, &orderID, &item.ProductID, &item.Name, &item.ImageURL,
			&price, &item.Quantity, &item.Size, &item.Color,
			&item.Status, &confirmedAt, &cancelledAt, &item.CancelReason); err != nil {
			return nil, err
		}
		if item.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("bad price for order item %s: %w", item.ID, err)
		}
		item.ConfirmedAt = timePtr(confirmedAt)
		item.CancelledAt = timePtr(cancelledAt)
		out[orderID] = append(out[orderID], item)
	}
	return out, rows.Err()
}

// MutateOrder loads an order inside a transaction, hands it to fn for
// in-memory mutation, and writes the result back conditioned on the version
// read. The whole read-modify-write is one atomic unit; a version mismatch
// returns ErrVersionConflict and nothing is persisted.
func (s *Store) MutateOrder(ctx context.Context, id string, fn func(o *models.Order) error) (*models.Order, error) {
	var out *models.Order
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		o, err := s.getOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		loadedVersion := o.Version

		if err := fn(o); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE orders SET
				payment_transaction_id = ?, payment_status = ?, is_paid = ?, paid_at = ?,
				items_price = ?, shipping_price = ?, tax_price = ?, total_price = ?,
				is_confirmed = ?, confirmed_at = ?, is_shipped = ?, shipped_at = ?,
				is_delivered = ?, delivered_at = ?, is_cancelled = ?, cancelled_at = ?,
				cancel_reason = ?, version = version + 1
			WHERE id = ? AND version = ?`,
			o.PaymentTransactionID, o.PaymentStatus, o.IsPaid, nullTime(o.PaidAt),
			o.ItemsPrice.String(), o.ShippingPrice.String(), o.TaxPrice.String(), o.TotalPrice.String(),
			o.IsConfirmed, nullTime(o.ConfirmedAt), o.IsShipped, nullTime(o.ShippedAt),
			o.IsDelivered, nullTime(o.DeliveredAt), o.IsCancelled, nullTime(o.CancelledAt),
			o.CancelReason, o.ID, loadedVersion)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrVersionConflict
		}

		for _, item := range o.OrderItems {
			_, err := tx.ExecContext(ctx, `
				UPDATE order_items SET status = ?, confirmed_at = ?, cancelled_at = ?, cancel_reason = ?
				WHERE id = ? AND order_id = ?`,
				item.Status, nullTime(item.ConfirmedAt), nullTime(item.CancelledAt),
				item.CancelReason, item.ID, o.ID)
			if err != nil {
				return err
			}
		}

		o.Version = loadedVersion + 1
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type OrderFilter struct {
	UserID string
	Status string // pending, processing, shipped, delivered, cancelled
	Search string // matches order id or owner email
	Page   int
	Limit  int
}

func (f OrderFilter) conditions() (string, []any) {
	var where []string
	var args []any

	if f.UserID != "" {
		where = append(where, "o.user_id = ?")
		args = append(args, f.UserID)
	}
	switch f.Status {
	case "pending":
		where = append(where, "o.is_confirmed = 0 AND o.is_cancelled = 0")
	case "processing":
		where = append(where, "o.is_confirmed = 1 AND o.is_shipped = 0 AND o.is_cancelled = 0")
	case "shipped":
		where = append(where, "o.is_shipped = 1 AND o.is_delivered = 0 AND o.is_cancelled = 0")
	case "delivered":
		where = append(where, "o.is_delivered = 1")
	case "cancelled":
		where = append(where, "o.is_cancelled = 1")
	}
	if f.Search != "" {
		where = append(where, "(o.id LIKE ? OR u.email LIKE ?)")
		term := "%" + f.Search + "%"
		args = append(args, term, term)
	}

	if len(where) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

func (s *Store) ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, int, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 10
	}
	cond, args := f.conditions()

	var total int
	countQuery := `SELECT COUNT(*) FROM orders o JOIN users u ON u.id = o.user_id` + cond
	if err := s.DB.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + orderColumns + `
		FROM orders o JOIN users u ON u.id = o.user_id` + cond + `
		ORDER BY o.created_at DESC
		LIMIT ? OFFSET ?`
	rows, err := s.DB.QueryContext(ctx, query, append(args, f.Limit, (f.Page-1)*f.Limit)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var orders []models.Order
	var ids []string
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	items, err := s.itemsForOrders(ctx, s.DB, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range orders {
		orders[i].OrderItems = items[orders[i].ID]
	}
	return orders, total, nil
}

// FlagsPatch is the aggregate-only override applied by bulk admin
// transitions. Reset clears all four flags before applying; otherwise only
// the named flags are raised and the rest are left untouched.
type FlagsPatch struct {
	Reset   bool
	Confirm bool
	Ship    bool
	Deliver bool
	Cancel  bool
}

// BulkUpdateOrders applies the same flag patch to every order in ids and
// returns how many rows matched and how many the update touched. Item-level
// statuses are deliberately not modified: this is the administrative
// override path.
func (s *Store) BulkUpdateOrders(ctx context.Context, ids []string, p FlagsPatch, now time.Time) (matched, modified int64, err error) {
	args := make([]any, 0, len(ids)+10)
	var set []string

	flag := func(column, tsColumn string, on bool) {
		if on {
			set = append(set, column+" = 1", tsColumn+" = ?")
			args = append(args, now)
		} else if p.Reset {
			set = append(set, column+" = 0", tsColumn+" = NULL")
		}
	}
	flag("is_confirmed", "confirmed_at", p.Confirm)
	flag("is_shipped", "shipped_at", p.Ship)
	flag("is_delivered", "delivered_at", p.Deliver)
	flag("is_cancelled", "cancelled_at", p.Cancel)
	set = append(set, "version = version + 1")

	idArgs := make([]any, len(ids))
	for i, id := range ids {
		idArgs[i] = id
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		countQuery := `SELECT COUNT(*) FROM orders WHERE id IN (` + placeholders(len(ids)) + `)`
		if err := tx.QueryRowContext(ctx, countQuery, idArgs...).Scan(&matched); err != nil {
			return err
		}

		query := `UPDATE orders SET ` + strings.Join(set, ", ") +
			` WHERE id IN (` + placeholders(len(ids)) + `)`
		res, err := tx.ExecContext(ctx, query, append(args, idArgs...)...)
		if err != nil {
			return err
		}
		modified, err = res.RowsAffected()
		return err
	})
	return matched, modified, err
}

func (s *Store) DeleteOrdersByUser(ctx context.Context, userID string) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM orders WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) DeleteAllOrders(ctx context.Context) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM orders`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
