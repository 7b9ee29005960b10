package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/domain"
	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/repository"
	apperrors "github.com/abhilashprasadsahoo/aepl-projectverse/pkg/errors"
)

func TestDashboard(t *testing.T) {
	orders := new(mockOrderRepository)
	svc := NewAdminService(orders, newTestLogger())
	ctx := context.Background()
	stats := &domain.DashboardStats{TotalOrders: 5, PaidOrders: 3, TotalRevenue: 149700, TotalProducts: 2}
	orders.On("Stats", ctx).Return(stats, nil)

	got, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, stats, got)
}

func TestTransactions_PassesFilter(t *testing.T) {
	orders := new(mockOrderRepository)
	svc := NewAdminService(orders, newTestLogger())
	ctx := context.Background()

	status := domain.OrderStatusPaid
	from := testNow.Add(-24 * time.Hour)
	filter := repository.TransactionFilter{Status: &status, From: &from, To: &testNow, Page: 1, PerPage: 20}
	page := &repository.TransactionPage{Orders: []domain.Order{}, TotalCount: 0, TotalRevenue: 0}
	orders.On("ListTransactions", ctx, filter).Return(page, nil)

	got, err := svc.Transactions(ctx, filter)
	require.NoError(t, err)
	assert.Same(t, page, got)
}

func TestTransactions_RejectsBadFilter(t *testing.T) {
	orders := new(mockOrderRepository)
	svc := NewAdminService(orders, newTestLogger())

	bogus := "shipped"
	_, err := svc.Transactions(context.Background(), repository.TransactionFilter{Status: &bogus})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	from := testNow
	to := testNow.Add(-time.Hour)
	_, err = svc.Transactions(context.Background(), repository.TransactionFilter{From: &from, To: &to})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	orders.AssertNotCalled(t, "ListTransactions", mock.Anything, mock.Anything)
}
