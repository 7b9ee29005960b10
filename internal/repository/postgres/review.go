package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/domain"
	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/repository"
	"github.com/abhilashprasadsahoo/aepl-projectverse/pkg/database"
	apperrors "github.com/abhilashprasadsahoo/aepl-projectverse/pkg/errors"
)

const reviewColumns = `id, product_id, buyer_id, rating, comment, approved, created_at, updated_at`

// ReviewRepository implements repository.ReviewRepository using PostgreSQL.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

func scanReview(row pgx.Row) (*domain.Review, error) {
	var rv domain.Review
	if err := row.Scan(
		&rv.ID,
		&rv.ProductID,
		&rv.BuyerID,
		&rv.Rating,
		&rv.Comment,
		&rv.Approved,
		&rv.CreatedAt,
		&rv.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &rv, nil
}

// Create inserts a review. The (buyer_id, product_id) unique constraint
// rejects a second review without a prior lookup.
func (r *ReviewRepository) Create(ctx context.Context, rv *domain.Review) (err error) {
	query := `
		INSERT INTO reviews (id, product_id, buyer_id, rating, comment, approved, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	ctx, end := database.TraceQuery(ctx, "reviews.Create", query)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, query,
		rv.ID,
		rv.ProductID,
		rv.BuyerID,
		rv.Rating,
		rv.Comment,
		rv.Approved,
		rv.CreatedAt,
		rv.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.AlreadyExists("review", "product_id", rv.ProductID)
		}
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

// GetByID retrieves a review by its ID.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (rv *domain.Review, err error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "reviews.GetByID", query)
	defer func() { end(err) }()

	rv, err = scanReview(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("review", id)
		}
		return nil, fmt.Errorf("get review by id: %w", err)
	}
	return rv, nil
}

// Update applies the non-nil fields of patch and returns the stored row.
// Unset fields keep their current column value, so concurrent updates of
// different fields do not overwrite each other.
func (r *ReviewRepository) Update(ctx context.Context, id string, patch repository.ReviewPatch) (rv *domain.Review, err error) {
	query := `
		UPDATE reviews
		SET rating = COALESCE($2::smallint, rating),
		    comment = COALESCE($3::varchar, comment),
		    updated_at = $4
		WHERE id = $1
		RETURNING ` + reviewColumns

	ctx, end := database.TraceQuery(ctx, "reviews.Update", query)
	defer func() { end(err) }()

	rv, err = scanReview(r.pool.QueryRow(ctx, query, id, patch.Rating, patch.Comment, patch.UpdatedAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("review", id)
		}
		return nil, fmt.Errorf("update review: %w", err)
	}
	return rv, nil
}

// Delete removes a review.
func (r *ReviewRepository) Delete(ctx context.Context, id string) (err error) {
	query := `DELETE FROM reviews WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "reviews.Delete", query)
	defer func() { end(err) }()

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("review", id)
	}
	return nil
}

// SetApproval changes the moderation flag of a review.
func (r *ReviewRepository) SetApproval(ctx context.Context, id string, approved bool) (rv *domain.Review, err error) {
	query := `
		UPDATE reviews SET approved = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + reviewColumns

	ctx, end := database.TraceQuery(ctx, "reviews.SetApproval", query)
	defer func() { end(err) }()

	rv, err = scanReview(r.pool.QueryRow(ctx, query, id, approved))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("review", id)
		}
		return nil, fmt.Errorf("set review approval: %w", err)
	}
	return rv, nil
}

// ListApprovedByProduct returns approved reviews of a product, newest first.
func (r *ReviewRepository) ListApprovedByProduct(ctx context.Context, productID string, page, perPage int) (reviews []domain.Review, total int, err error) {
	query := `
		SELECT ` + reviewColumns + `, count(*) OVER() AS total_count
		FROM reviews
		WHERE product_id = $1 AND approved
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	ctx, end := database.TraceQuery(ctx, "reviews.ListApprovedByProduct", query)
	defer func() { end(err) }()

	limit, offset := window(page, perPage)
	rows, err := r.pool.Query(ctx, query, productID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews = make([]domain.Review, 0)
	for rows.Next() {
		var rv domain.Review
		if err = rows.Scan(
			&rv.ID,
			&rv.ProductID,
			&rv.BuyerID,
			&rv.Rating,
			&rv.Comment,
			&rv.Approved,
			&rv.CreatedAt,
			&rv.UpdatedAt,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, rv)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate review rows: %w", err)
	}

	return reviews, total, nil
}
