package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/domain"
	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/repository"
	"github.com/abhilashprasadsahoo/aepl-projectverse/pkg/database"
	apperrors "github.com/abhilashprasadsahoo/aepl-projectverse/pkg/errors"
)

func sampleReview() *domain.Review {
	return &domain.Review{
		ID:        "rev-001",
		ProductID: "prod-001",
		BuyerID:   "buyer-001",
		Rating:    4,
		Comment:   "Clean code, good report.",
		Approved:  true,
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
}

var reviewColumnNames = []string{"id", "product_id", "buyer_id", "rating", "comment", "approved", "created_at", "updated_at"}

func reviewRow(rv *domain.Review) []any {
	return []any{rv.ID, rv.ProductID, rv.BuyerID, rv.Rating, rv.Comment, rv.Approved, rv.CreatedAt, rv.UpdatedAt}
}

func newReviewRepo(t *testing.T) (*ReviewRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewReviewRepository(mock), mock
}

func TestReviewRepository_Create(t *testing.T) {
	repo, mock := newReviewRepo(t)
	rv := sampleReview()

	mock.ExpectExec("INSERT INTO reviews").
		WithArgs(reviewRow(rv)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), rv))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_Create_Duplicate(t *testing.T) {
	repo, mock := newReviewRepo(t)

	mock.ExpectExec("INSERT INTO reviews").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uq_reviews_buyer_product"})

	err := repo.Create(context.Background(), sampleReview())
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}

func TestReviewRepository_GetByID(t *testing.T) {
	repo, mock := newReviewRepo(t)
	rv := sampleReview()

	mock.ExpectQuery("SELECT .+ FROM reviews WHERE id = \\$1").
		WithArgs(rv.ID).
		WillReturnRows(pgxmock.NewRows(reviewColumnNames).AddRow(reviewRow(rv)...))

	got, err := repo.GetByID(context.Background(), rv.ID)
	require.NoError(t, err)
	assert.Equal(t, rv, got)
}

func TestReviewRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newReviewRepo(t)

	mock.ExpectQuery("SELECT .+ FROM reviews").WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestReviewRepository_Update_RatingOnly(t *testing.T) {
	repo, mock := newReviewRepo(t)
	rating := 2
	stored := sampleReview()
	stored.Rating = 2
	stored.UpdatedAt = testNow.Add(time.Hour)

	mock.ExpectQuery("UPDATE reviews\\s+SET rating = COALESCE\\(\\$2::smallint, rating\\),\\s+comment = COALESCE\\(\\$3::varchar, comment\\)").
		WithArgs(stored.ID, &rating, (*string)(nil), stored.UpdatedAt).
		WillReturnRows(pgxmock.NewRows(reviewColumnNames).AddRow(reviewRow(stored)...))

	got, err := repo.Update(context.Background(), stored.ID, repository.ReviewPatch{
		Rating:    &rating,
		UpdatedAt: stored.UpdatedAt,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, got.Rating)
	assert.Equal(t, "Clean code, good report.", got.Comment, "comment comes from the stored row")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_Update_NotFound(t *testing.T) {
	repo, mock := newReviewRepo(t)
	comment := "gone"

	mock.ExpectQuery("UPDATE reviews").WillReturnError(pgx.ErrNoRows)

	_, err := repo.Update(context.Background(), "rev-404", repository.ReviewPatch{Comment: &comment, UpdatedAt: testNow})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestReviewRepository_Delete(t *testing.T) {
	repo, mock := newReviewRepo(t)

	mock.ExpectExec("DELETE FROM reviews").
		WithArgs("rev-001").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, repo.Delete(context.Background(), "rev-001"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_Delete_Errors(t *testing.T) {
	repo, mock := newReviewRepo(t)

	mock.ExpectExec("DELETE FROM reviews").WillReturnResult(pgxmock.NewResult("DELETE", 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), "rev-404"), apperrors.ErrNotFound)

	mock.ExpectExec("DELETE FROM reviews").WillReturnError(errors.New("connection reset"))
	err := repo.Delete(context.Background(), "rev-001")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete review")
}

func TestReviewRepository_SetApproval(t *testing.T) {
	repo, mock := newReviewRepo(t)
	rv := sampleReview()
	rv.Approved = false

	mock.ExpectQuery("UPDATE reviews SET approved = \\$2").
		WithArgs(rv.ID, false).
		WillReturnRows(pgxmock.NewRows(reviewColumnNames).AddRow(reviewRow(rv)...))

	got, err := repo.SetApproval(context.Background(), rv.ID, false)
	require.NoError(t, err)
	assert.False(t, got.Approved)
}

func TestReviewRepository_SetApproval_NotFound(t *testing.T) {
	repo, mock := newReviewRepo(t)

	mock.ExpectQuery("UPDATE reviews").WillReturnError(pgx.ErrNoRows)

	_, err := repo.SetApproval(context.Background(), "missing", true)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestReviewRepository_ListApprovedByProduct(t *testing.T) {
	repo, mock := newReviewRepo(t)
	a := sampleReview()
	b := sampleReview()
	b.ID, b.BuyerID, b.Rating = "rev-002", "buyer-002", 5

	rows := pgxmock.NewRows(append(append([]string{}, reviewColumnNames...), "total_count")).
		AddRow(append(reviewRow(a), 2)...).
		AddRow(append(reviewRow(b), 2)...)

	mock.ExpectQuery("FROM reviews\\s+WHERE product_id = \\$1 AND approved").
		WithArgs("prod-001", 20, 0).
		WillReturnRows(rows)

	reviews, total, err := repo.ListApprovedByProduct(context.Background(), "prod-001", 1, 20)
	require.NoError(t, err)
	assert.Len(t, reviews, 2)
	assert.Equal(t, 2, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
