package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/domain"
	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/repository"
	apperrors "github.com/abhilashprasadsahoo/aepl-projectverse/pkg/errors"
)

// AdminService serves the sales views of the admin console.
type AdminService struct {
	orders repository.OrderRepository
	logger *slog.Logger
}

// NewAdminService creates a new admin service.
func NewAdminService(orders repository.OrderRepository, logger *slog.Logger) *AdminService {
	return &AdminService{
		orders: orders,
		logger: logger,
	}
}

// Dashboard returns order and revenue totals plus the latest paid orders.
func (s *AdminService) Dashboard(ctx context.Context) (*domain.DashboardStats, error) {
	stats, err := s.orders.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("get dashboard stats: %w", err)
	}
	return stats, nil
}

// Transactions lists orders matching filter with the revenue of the paid
// ones among them.
func (s *AdminService) Transactions(ctx context.Context, filter repository.TransactionFilter) (*repository.TransactionPage, error) {
	if filter.Status != nil && !domain.IsValidStatus(*filter.Status) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid status %q", *filter.Status))
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, apperrors.InvalidInput("from must not be after to")
	}

	page, err := s.orders.ListTransactions(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return page, nil
}
