package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/domain"
	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/repository"
	"github.com/abhilashprasadsahoo/aepl-projectverse/internal/storage"
	apperrors "github.com/abhilashprasadsahoo/aepl-projectverse/pkg/errors"
)

// DownloadLink is a resolved handle for one downloadable file.
type DownloadLink struct {
	FileType string `json:"file_type"`
	URL      string `json:"url"`
}

// AccessService answers whether a buyer owns a product and hands out
// download links to owners.
type AccessService struct {
	orders   repository.OrderRepository
	products repository.ProductRepository
	cache    repository.EntitlementCache
	assets   storage.AssetLocator
	logger   *slog.Logger
}

// NewAccessService creates a new access service. cache may be nil, in which
// case every check goes to the ledger.
func NewAccessService(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	cache repository.EntitlementCache,
	assets storage.AssetLocator,
	logger *slog.Logger,
) *AccessService {
	return &AccessService{
		orders:   orders,
		products: products,
		cache:    cache,
		assets:   assets,
		logger:   logger,
	}
}

// Entitled reports whether buyerID holds a paid order for productID. Only
// a cached grant is trusted; a cache miss or error is answered by the ledger.
func (s *AccessService) Entitled(ctx context.Context, buyerID, productID string) (bool, error) {
	if s.cache != nil {
		ok, err := s.cache.IsEntitled(ctx, buyerID, productID)
		if err != nil {
			s.logger.WarnContext(ctx, "entitlement cache unavailable, falling back to ledger",
				slog.String("product_id", productID),
				slog.String("error", err.Error()),
			)
		} else if ok {
			entitlementChecks.WithLabelValues(entitlementSourceCache).Inc()
			return true, nil
		}
	}

	paid, err := s.orders.HasPaid(ctx, buyerID, productID)
	if err != nil {
		return false, fmt.Errorf("check paid order: %w", err)
	}
	entitlementChecks.WithLabelValues(entitlementSourceLedger).Inc()
	return paid, nil
}

// DownloadLinks returns a link for every file slot of the product that has
// a file.
func (s *AccessService) DownloadLinks(ctx context.Context, buyerID, productID string) ([]DownloadLink, error) {
	if err := s.requireEntitlement(ctx, buyerID, productID); err != nil {
		return nil, err
	}

	files, err := s.products.GetFiles(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product files: %w", err)
	}

	available := files.Available()
	if len(available) == 0 {
		return nil, apperrors.NotFound("product files", productID)
	}

	links := make([]DownloadLink, 0, len(available))
	for _, ft := range domain.FileTypes() {
		path, ok := available[ft]
		if !ok {
			continue
		}
		url, err := s.assets.URL(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("resolve %s link: %w", ft, err)
		}
		links = append(links, DownloadLink{FileType: ft, URL: url})
	}
	return links, nil
}

// DownloadLink returns the link for one file slot of the product.
func (s *AccessService) DownloadLink(ctx context.Context, buyerID, productID, fileType string) (*DownloadLink, error) {
	if !domain.IsValidFileType(fileType) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown file type %q", fileType))
	}
	if err := s.requireEntitlement(ctx, buyerID, productID); err != nil {
		return nil, err
	}

	files, err := s.products.GetFiles(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product files: %w", err)
	}

	path := files.Path(fileType)
	if path == "" {
		return nil, apperrors.NotFound(fileType+" file of product", productID)
	}

	url, err := s.assets.URL(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s link: %w", fileType, err)
	}

	s.logger.InfoContext(ctx, "download link issued",
		slog.String("product_id", productID),
		slog.String("file_type", fileType),
	)
	return &DownloadLink{FileType: fileType, URL: url}, nil
}

func (s *AccessService) requireEntitlement(ctx context.Context, buyerID, productID string) error {
	ok, err := s.Entitled(ctx, buyerID, productID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.Forbidden("purchase required to access this product")
	}
	return nil
}
