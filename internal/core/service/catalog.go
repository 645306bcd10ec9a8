package service

import (
	"context"
	"fmt"

	"github.com/niksmo/levelup-shop/internal/core/domain"
	"github.com/niksmo/levelup-shop/internal/core/port"
)

var _ port.Catalog = (*CatalogService)(nil)

// A CatalogService is a read/write facade over the product catalog.
type CatalogService struct {
	store port.ProductsRepository
}

func NewCatalog(store port.ProductsRepository) CatalogService {
	return CatalogService{store}
}

func (s CatalogService) Products(
	ctx context.Context, q domain.ProductQuery,
) ([]domain.Product, error) {
	const op = "CatalogService.Products"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ps, err := s.store.QueryProducts(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ps, nil
}

func (s CatalogService) ProductByCode(
	ctx context.Context, code string,
) (domain.Product, error) {
	const op = "CatalogService.ProductByCode"

	p, err := s.store.ProductByCode(ctx, code)
	if err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

func (s CatalogService) CountProducts(ctx context.Context) (int, error) {
	const op = "CatalogService.CountProducts"

	n, err := s.store.CountProducts(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// WatchProducts re-emits the selection on every products table write,
// not only on writes matching the query.
func (s CatalogService) WatchProducts(
	ctx context.Context, q domain.ProductQuery,
) port.Subscription[[]domain.Product] {
	return s.store.SubscribeProducts(ctx, q)
}

// SearchProducts is the free-text selection over name or description,
// case-insensitive, optionally narrowed by category.
func (s CatalogService) SearchProducts(
	ctx context.Context, search string, categoryID int,
) ([]domain.Product, error) {
	return s.Products(ctx,
		domain.ProductQuery{Search: search, CategoryID: categoryID})
}

// SellerProducts is the seller-facing management selection,
// sorted by name.
func (s CatalogService) SellerProducts(
	ctx context.Context, sellerID int64,
) port.Subscription[[]domain.Product] {
	q := domain.ProductQuery{SellerID: sellerID, Sort: domain.SortNameAsc}
	return s.store.SubscribeProducts(ctx, q)
}

func (s CatalogService) SaveProduct(
	ctx context.Context, p domain.Product,
) error {
	const op = "CatalogService.SaveProduct"

	if err := s.store.SaveProduct(ctx, p); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s CatalogService) SaveProducts(
	ctx context.Context, ps []domain.Product,
) error {
	const op = "CatalogService.SaveProducts"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.store.SaveProducts(ctx, ps); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s CatalogService) UpdateProduct(
	ctx context.Context, p domain.Product,
) error {
	const op = "CatalogService.UpdateProduct"

	if err := s.store.UpdateProduct(ctx, p); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s CatalogService) DeleteProduct(
	ctx context.Context, p domain.Product,
) error {
	const op = "CatalogService.DeleteProduct"

	if err := s.store.DeleteProduct(ctx, p); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s CatalogService) DeleteByCode(
	ctx context.Context, code string,
) error {
	const op = "CatalogService.DeleteByCode"

	if err := s.store.DeleteByCode(ctx, code); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
