package postgres

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhilashprasadsahoo/aepl-projectverse/pkg/database"
	apperrors "github.com/abhilashprasadsahoo/aepl-projectverse/pkg/errors"
)

func newProductRepo(t *testing.T) (*ProductRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewProductRepository(mock), mock
}

func TestProductRepository_GetByID(t *testing.T) {
	repo, mock := newProductRepo(t)

	mock.ExpectQuery("SELECT .+ FROM products\\s+WHERE id = \\$1").
		WithArgs("prod-001").
		WillReturnRows(pgxmock.NewRows([]string{"id", "title", "price", "active", "rating", "total_ratings"}).
			AddRow("prod-001", "Attendance System", 499.0, true, 4.5, 2))

	p, err := repo.GetByID(context.Background(), "prod-001")
	require.NoError(t, err)
	assert.Equal(t, "Attendance System", p.Title)
	assert.Equal(t, int64(49900), p.AmountMinor())
	assert.True(t, p.Active)
	assert.Equal(t, 2, p.TotalRatings)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newProductRepo(t)

	mock.ExpectQuery("FROM products").WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestProductRepository_GetFiles(t *testing.T) {
	repo, mock := newProductRepo(t)

	mock.ExpectQuery("FROM product_files\\s+WHERE product_id = \\$1").
		WithArgs("prod-001").
		WillReturnRows(pgxmock.NewRows([]string{"product_id", "source_code", "documentation", "project_report", "demo_video", "readme"}).
			AddRow("prod-001", "prod-001/src.zip", "", "prod-001/report.pdf", "", "prod-001/README.md"))

	f, err := repo.GetFiles(context.Background(), "prod-001")
	require.NoError(t, err)
	assert.Equal(t, "prod-001/src.zip", f.SourceCode)
	assert.Len(t, f.Available(), 3)
}

func TestProductRepository_GetFiles_NotFound(t *testing.T) {
	repo, mock := newProductRepo(t)

	mock.ExpectQuery("FROM product_files").WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetFiles(context.Background(), "prod-001")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
