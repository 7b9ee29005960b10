package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/domain"
	"github.com/abhilashprasadsahoo/aepl-projectverse/pkg/database"
	apperrors "github.com/abhilashprasadsahoo/aepl-projectverse/pkg/errors"
)

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	pool database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (p *domain.Product, err error) {
	query := `
		SELECT id, title, price::float8, active, rating, total_ratings
		FROM products
		WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "products.GetByID", query)
	defer func() { end(err) }()

	p = &domain.Product{}
	err = r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Title,
		&p.Price,
		&p.Active,
		&p.Rating,
		&p.TotalRatings,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	return p, nil
}

// GetFiles retrieves the asset paths of a product.
func (r *ProductRepository) GetFiles(ctx context.Context, productID string) (f *domain.ProductFiles, err error) {
	query := `
		SELECT product_id, source_code, documentation, project_report, demo_video, readme
		FROM product_files
		WHERE product_id = $1`

	ctx, end := database.TraceQuery(ctx, "products.GetFiles", query)
	defer func() { end(err) }()

	f = &domain.ProductFiles{}
	err = r.pool.QueryRow(ctx, query, productID).Scan(
		&f.ProductID,
		&f.SourceCode,
		&f.Documentation,
		&f.ProjectReport,
		&f.DemoVideo,
		&f.Readme,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product files", productID)
		}
		return nil, fmt.Errorf("get product files: %w", err)
	}
	return f, nil
}
