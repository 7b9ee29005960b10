package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/domain"
	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/provider"
	rediscache "github.com/abhilashprasadsahoo/aepl-projectverse/internal/repository/redis"
	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/storage"
	apperrors "github.com/abhilashprasadsahoo/aepl-projectverse/pkg/errors"
)

type accessFixture struct {
	orders   *mockOrderRepository
	products *mockProductRepository
	cache    *mockEntitlementCache
	svc      *AccessService
}

func newTestAccess(t *testing.T) *accessFixture {
	t.Helper()
	assets, err := storage.NewBaseURLLocator("https://cdn.example.com/assets")
	require.NoError(t, err)

	f := &accessFixture{
		orders:   new(mockOrderRepository),
		products: new(mockProductRepository),
		cache:    new(mockEntitlementCache),
	}
	f.svc = NewAccessService(f.orders, f.products, f.cache, assets, newTestLogger())
	return f
}

func sampleFiles() *domain.ProductFiles {
	return &domain.ProductFiles{
		ProductID:     "prod-1",
		SourceCode:    "prod-1/source.zip",
		Documentation: "prod-1/docs.pdf",
		Readme:        "prod-1/README.md",
	}
}

func TestEntitled_CacheHit(t *testing.T) {
	f := newTestAccess(t)
	ctx := context.Background()
	f.cache.On("IsEntitled", ctx, "buyer-1", "prod-1").Return(true, nil)

	ok, err := f.svc.Entitled(ctx, "buyer-1", "prod-1")
	require.NoError(t, err)
	assert.True(t, ok)
	f.orders.AssertNotCalled(t, "HasPaid", mock.Anything, mock.Anything, mock.Anything)
}

func TestEntitled_CacheMissFallsThroughToLedger(t *testing.T) {
	for _, paid := range []bool{true, false} {
		f := newTestAccess(t)
		ctx := context.Background()
		f.cache.On("IsEntitled", ctx, "buyer-1", "prod-1").Return(false, nil)
		f.orders.On("HasPaid", ctx, "buyer-1", "prod-1").Return(paid, nil)

		ok, err := f.svc.Entitled(ctx, "buyer-1", "prod-1")
		require.NoError(t, err)
		assert.Equal(t, paid, ok)
	}
}

func TestEntitled_CacheErrorFallsThroughToLedger(t *testing.T) {
	f := newTestAccess(t)
	ctx := context.Background()
	f.cache.On("IsEntitled", ctx, "buyer-1", "prod-1").Return(false, errors.New("redis down"))
	f.orders.On("HasPaid", ctx, "buyer-1", "prod-1").Return(true, nil)

	ok, err := f.svc.Entitled(ctx, "buyer-1", "prod-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEntitled_NoCache(t *testing.T) {
	orders := new(mockOrderRepository)
	svc := NewAccessService(orders, new(mockProductRepository), nil, nil, newTestLogger())
	ctx := context.Background()
	orders.On("HasPaid", ctx, "buyer-1", "prod-1").Return(false, nil)

	ok, err := svc.Entitled(ctx, "buyer-1", "prod-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEntitled_LedgerError(t *testing.T) {
	f := newTestAccess(t)
	ctx := context.Background()
	f.cache.On("IsEntitled", ctx, "buyer-1", "prod-1").Return(false, nil)
	f.orders.On("HasPaid", ctx, "buyer-1", "prod-1").Return(false, errors.New("db down"))

	_, err := f.svc.Entitled(ctx, "buyer-1", "prod-1")
	assert.Error(t, err)
}

func TestDownloadLinks_Entitled(t *testing.T) {
	f := newTestAccess(t)
	ctx := context.Background()
	f.cache.On("IsEntitled", ctx, "buyer-1", "prod-1").Return(true, nil)
	f.products.On("GetFiles", ctx, "prod-1").Return(sampleFiles(), nil)

	links, err := f.svc.DownloadLinks(ctx, "buyer-1", "prod-1")
	require.NoError(t, err)
	assert.Equal(t, []DownloadLink{
		{FileType: domain.FileTypeSourceCode, URL: "https://cdn.example.com/assets/prod-1/source.zip"},
		{FileType: domain.FileTypeDocumentation, URL: "https://cdn.example.com/assets/prod-1/docs.pdf"},
		{FileType: domain.FileTypeReadme, URL: "https://cdn.example.com/assets/prod-1/README.md"},
	}, links)
}

func TestDownloadLinks_NotEntitled(t *testing.T) {
	f := newTestAccess(t)
	ctx := context.Background()
	f.cache.On("IsEntitled", ctx, "buyer-1", "prod-1").Return(false, nil)
	f.orders.On("HasPaid", ctx, "buyer-1", "prod-1").Return(false, nil)

	_, err := f.svc.DownloadLinks(ctx, "buyer-1", "prod-1")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	f.products.AssertNotCalled(t, "GetFiles", mock.Anything, mock.Anything)
}

func TestDownloadLinks_NoFiles(t *testing.T) {
	f := newTestAccess(t)
	ctx := context.Background()
	f.cache.On("IsEntitled", ctx, "buyer-1", "prod-1").Return(true, nil)
	f.products.On("GetFiles", ctx, "prod-1").Return(&domain.ProductFiles{ProductID: "prod-1"}, nil)

	_, err := f.svc.DownloadLinks(ctx, "buyer-1", "prod-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDownloadLink(t *testing.T) {
	tests := []struct {
		name     string
		fileType string
		entitled bool
		wantURL  string
		wantErr  error
	}{
		{"available slot", domain.FileTypeReadme, true, "https://cdn.example.com/assets/prod-1/README.md", nil},
		{"empty slot", domain.FileTypeDemoVideo, true, "", apperrors.ErrNotFound},
		{"unknown type", "binary", true, "", apperrors.ErrInvalidInput},
		{"not entitled", domain.FileTypeReadme, false, "", apperrors.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestAccess(t)
			ctx := context.Background()
			f.cache.On("IsEntitled", ctx, "buyer-1", "prod-1").Return(tt.entitled, nil)
			f.orders.On("HasPaid", ctx, "buyer-1", "prod-1").Return(false, nil)
			f.products.On("GetFiles", ctx, "prod-1").Return(sampleFiles(), nil)

			link, err := f.svc.DownloadLink(ctx, "buyer-1", "prod-1", tt.fileType)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.fileType, link.FileType)
			assert.Equal(t, tt.wantURL, link.URL)
		})
	}
}

func TestEntitled_GrantLandingAfterRefundDoesNotRestoreAccess(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := rediscache.NewEntitlementCache(client, 10*time.Minute)
	ctx := context.Background()

	ledger := newTestLedger(t)
	ledger.svc.entitlements = cache
	refunded := paidOrder()
	refunded.Status = domain.OrderStatusRefunded
	ledger.orders.On("GetByID", mock.Anything, "ord-1").Return(paidOrder(), nil)
	ledger.provider.On("Refund", mock.Anything, mock.Anything).Return(&provider.RefundResult{ProviderRefundID: "rfnd_1"}, nil)
	ledger.orders.On("MarkRefunded", mock.Anything, "ord-1", testNow).Return(refunded, nil)
	ledger.events.On("PublishOrderRefunded", mock.Anything, refunded).Return(nil)

	_, err := ledger.svc.Refund(ctx, adminActor, "ord-1")
	require.NoError(t, err)

	// A verify call that committed before the refund caches its grant late.
	require.NoError(t, cache.Grant(ctx, "buyer-1", "prod-1"))

	orders := new(mockOrderRepository)
	orders.On("HasPaid", mock.Anything, "buyer-1", "prod-1").Return(false, nil)
	assets, err := storage.NewBaseURLLocator("https://cdn.example.com/assets")
	require.NoError(t, err)
	access := NewAccessService(orders, new(mockProductRepository), cache, assets, newTestLogger())

	ok, err := access.Entitled(ctx, "buyer-1", "prod-1")
	require.NoError(t, err)
	assert.False(t, ok)
	orders.AssertCalled(t, "HasPaid", mock.Anything, "buyer-1", "prod-1")
}
