package service

import (
	"context"
	"sort"
	"sync"

	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/domain"
	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/repository"
	apperrors "github.com/abhilashprasadsahoo/aepl-projectverse/pkg/errors"
)

// memReviewStore keeps the reviews and the rating aggregate of a single
// product in memory. Recompute averages approved reviews the way the
// Postgres aggregate does.
type memReviewStore struct {
	mu      sync.Mutex
	product domain.Product
	reviews map[string]domain.Review
	stale   bool
}

func newMemReviewStore(productID string) *memReviewStore {
	return &memReviewStore{
		product: domain.Product{ID: productID, Title: "test project", Price: 499, Active: true},
		reviews: make(map[string]domain.Review),
	}
}

func (s *memReviewStore) Create(_ context.Context, review *domain.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reviews {
		if r.BuyerID == review.BuyerID && r.ProductID == review.ProductID {
			return apperrors.AlreadyExists("review", "product_id", review.ProductID)
		}
	}
	s.reviews[review.ID] = *review
	return nil
}

func (s *memReviewStore) GetByID(_ context.Context, id string) (*domain.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reviews[id]
	if !ok {
		return nil, apperrors.NotFound("review", id)
	}
	return &r, nil
}

func (s *memReviewStore) Update(_ context.Context, id string, patch repository.ReviewPatch) (*domain.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reviews[id]
	if !ok {
		return nil, apperrors.NotFound("review", id)
	}
	if patch.Rating != nil {
		r.Rating = *patch.Rating
	}
	if patch.Comment != nil {
		r.Comment = *patch.Comment
	}
	r.UpdatedAt = patch.UpdatedAt
	s.reviews[id] = r
	return &r, nil
}

func (s *memReviewStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reviews[id]; !ok {
		return apperrors.NotFound("review", id)
	}
	delete(s.reviews, id)
	return nil
}

func (s *memReviewStore) SetApproval(_ context.Context, id string, approved bool) (*domain.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reviews[id]
	if !ok {
		return nil, apperrors.NotFound("review", id)
	}
	r.Approved = approved
	s.reviews[id] = r
	return &r, nil
}

func (s *memReviewStore) ListApprovedByProduct(_ context.Context, productID string, _, _ int) ([]domain.Review, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Review
	for _, r := range s.reviews {
		if r.ProductID == productID && r.Approved {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, len(out), nil
}

func (s *memReviewStore) Recompute(_ context.Context, productID string) (*domain.ProductRating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if productID != s.product.ID {
		return nil, apperrors.NotFound("product", productID)
	}
	sum, n := 0, 0
	for _, r := range s.reviews {
		if r.ProductID == productID && r.Approved {
			sum += r.Rating
			n++
		}
	}
	agg := &domain.ProductRating{ProductID: productID, TotalRatings: n}
	if n > 0 {
		agg.Rating = float64(sum) / float64(n)
	}
	s.product.Rating = agg.Rating
	s.product.TotalRatings = agg.TotalRatings
	s.stale = false
	return agg, nil
}

func (s *memReviewStore) MarkStale(_ context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if productID != s.product.ID {
		return apperrors.NotFound("product", productID)
	}
	s.stale = true
	return nil
}

func (s *memReviewStore) ListStale(_ context.Context, _ int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stale {
		return nil, nil
	}
	return []string{s.product.ID}, nil
}

// catalog exposes the product row of the store.
func (s *memReviewStore) catalog() repository.ProductRepository {
	return memCatalog{s}
}

type memCatalog struct {
	s *memReviewStore
}

func (c memCatalog) GetByID(_ context.Context, id string) (*domain.Product, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if id != c.s.product.ID {
		return nil, apperrors.NotFound("product", id)
	}
	p := c.s.product
	return &p, nil
}

func (c memCatalog) GetFiles(_ context.Context, productID string) (*domain.ProductFiles, error) {
	return &domain.ProductFiles{ProductID: productID}, nil
}
