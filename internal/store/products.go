package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/models"
)

func (s *Store) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT id, name, image_url, price, is_featured, is_active, rating, num_reviews, created_at
		FROM products WHERE id = ?`, id)

	var p models.Product
	var price string
	if err := row.Scan(&p.ID, &p.Name, &p.ImageURL, &price, &p.IsFeatured, &p.IsActive,
		&p.Rating, &p.NumReviews, &p.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	if p.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("bad price for product %s: %w", p.ID, err)
	}
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO products (id, name, image_url, price, is_featured, is_active, rating, num_reviews, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.ImageURL, p.Price.String(), p.IsFeatured, p.IsActive,
		p.Rating, p.NumReviews, p.CreatedAt)
	return err
}

// ProductFlagsPatch toggles catalog flags; nil fields are left untouched.
type ProductFlagsPatch struct {
	Featured *bool
	Active   *bool
}

// BulkUpdateProducts mirrors BulkUpdateOrders for the catalog: one fixed
// patch applied to every matched product id.
func (s *Store) BulkUpdateProducts(ctx context.Context, ids []string, p ProductFlagsPatch) (matched, modified int64, err error) {
	var set []string
	var args []any
	if p.Featured != nil {
		set = append(set, "is_featured = ?")
		args = append(args, *p.Featured)
	}
	if p.Active != nil {
		set = append(set, "is_active = ?")
		args = append(args, *p.Active)
	}
	if len(set) == 0 {
		return 0, 0, fmt.Errorf("empty product patch")
	}

	idArgs := make([]any, len(ids))
	for i, id := range ids {
		idArgs[i] = id
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		countQuery := `SELECT COUNT(*) FROM products WHERE id IN (` + placeholders(len(ids)) + `)`
		if err := tx.QueryRowContext(ctx, countQuery, idArgs...).Scan(&matched); err != nil {
			return err
		}
		query := `UPDATE products SET ` + strings.Join(set, ", ") +
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

// AddReview inserts the review and recomputes the product's review count and
// mean rating in the same transaction so the aggregate cannot drift.
func (s *Store) AddReview(ctx context.Context, r *models.Review) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO reviews (id, product_id, user_id, rating, comment, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			r.ID, r.ProductID, r.UserID, r.Rating, r.Comment, r.CreatedAt)
		if err != nil {
			return err
		}
		return recomputeProductRating(ctx, tx, r.ProductID)
	})
}

// DeleteReview removes a review and recomputes the product aggregate
// transactionally. Returns sql.ErrNoRows when the review does not exist.
func (s *Store) DeleteReview(ctx context.Context, productID, reviewID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM reviews WHERE id = ? AND product_id = ?`, reviewID, productID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return sql.ErrNoRows
		}
		return recomputeProductRating(ctx, tx, productID)
	})
}

func (s *Store) GetReview(ctx context.Context, productID, reviewID string) (*models.Review, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT id, product_id, user_id, rating, comment, created_at
		FROM reviews WHERE id = ? AND product_id = ?`, reviewID, productID)
	var r models.Review
	if err := row.Scan(&r.ID, &r.ProductID, &r.UserID, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func recomputeProductRating(ctx context.Context, tx *sql.Tx, productID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE products SET
			num_reviews = (SELECT COUNT(*) FROM reviews WHERE product_id = ?),
			rating = COALESCE((SELECT AVG(rating) FROM reviews WHERE product_id = ?), 0)
		WHERE id = ?`, productID, productID, productID)
	return err
}
