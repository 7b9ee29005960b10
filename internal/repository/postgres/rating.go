package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/domain"
	"github.com/abhilashprasadsahoo/aepl-projectverse/pkg/database"
	apperrors "github.com/abhilashprasadsahoo/aepl-projectverse/pkg/errors"
)

const (
	lockProductSQL = `SELECT id FROM products WHERE id = $1 FOR UPDATE`

	aggregateRatingSQL = `
		SELECT COALESCE(AVG(rating)::float8, 0), count(*)
		FROM reviews
		WHERE product_id = $1 AND approved`

	updateRatingSQL = `UPDATE products SET rating = $2, total_ratings = $3, rating_stale = FALSE, updated_at = $4 WHERE id = $1`

	markStaleSQL = `UPDATE products SET rating_stale = TRUE WHERE id = $1`

	listStaleSQL = `SELECT id FROM products WHERE rating_stale ORDER BY updated_at LIMIT $1`
)

// RatingRepository implements repository.RatingRepository using PostgreSQL.
type RatingRepository struct {
	pool database.DBTX
}

// NewRatingRepository creates a new PostgreSQL-backed rating repository.
func NewRatingRepository(pool database.DBTX) *RatingRepository {
	return &RatingRepository{pool: pool}
}

// Recompute rewrites a product's aggregate from its approved reviews. The
// product row lock serialises concurrent recomputes of the same product, so
// the last writer always saw every committed review.
func (r *RatingRepository) Recompute(ctx context.Context, productID string) (agg *domain.ProductRating, err error) {
	ctx, end := database.TraceQuery(ctx, "products.RecomputeRating", aggregateRatingSQL)
	defer func() { end(err) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var lockedID string
	if err = tx.QueryRow(ctx, lockProductSQL, productID).Scan(&lockedID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", productID)
		}
		return nil, fmt.Errorf("lock product: %w", err)
	}

	agg = &domain.ProductRating{ProductID: productID}
	if err = tx.QueryRow(ctx, aggregateRatingSQL, productID).Scan(&agg.Rating, &agg.TotalRatings); err != nil {
		return nil, fmt.Errorf("aggregate ratings: %w", err)
	}

	if _, err = tx.Exec(ctx, updateRatingSQL, productID, agg.Rating, agg.TotalRatings, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("update product rating: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return agg, nil
}

// MarkStale flags the product for a later recompute.
func (r *RatingRepository) MarkStale(ctx context.Context, productID string) (err error) {
	ctx, end := database.TraceQuery(ctx, "products.MarkRatingStale", markStaleSQL)
	defer func() { end(err) }()

	tag, err := r.pool.Exec(ctx, markStaleSQL, productID)
	if err != nil {
		return fmt.Errorf("mark rating stale: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("product", productID)
	}
	return nil
}

// ListStale returns up to limit flagged product ids, least recently updated
// first.
func (r *RatingRepository) ListStale(ctx context.Context, limit int) (ids []string, err error) {
	ctx, end := database.TraceQuery(ctx, "products.ListRatingStale", listStaleSQL)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, listStaleSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale ratings: %w", err)
	}
	defer rows.Close()

	ids = make([]string, 0)
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan stale product id: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stale products: %w", err)
	}
	return ids, nil
}
