package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/niksmo/levelup-shop/internal/core/domain"
	"github.com/niksmo/levelup-shop/internal/core/port"
	"github.com/niksmo/levelup-shop/internal/core/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockProductsRepo struct {
	mock.Mock
}

func (m *MockProductsRepo) SaveProduct(ctx context.Context, p domain.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockProductsRepo) SaveProducts(ctx context.Context, ps []domain.Product) error {
	args := m.Called(ctx, ps)
	return args.Error(0)
}

func (m *MockProductsRepo) UpdateProduct(ctx context.Context, p domain.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockProductsRepo) DeleteProduct(ctx context.Context, p domain.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockProductsRepo) DeleteByCode(ctx context.Context, code string) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func (m *MockProductsRepo) ProductByCode(
	ctx context.Context, code string,
) (domain.Product, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockProductsRepo) CountProducts(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockProductsRepo) QueryProducts(
	ctx context.Context, q domain.ProductQuery,
) ([]domain.Product, error) {
	args := m.Called(ctx, q)
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *MockProductsRepo) SubscribeProducts(
	ctx context.Context, q domain.ProductQuery,
) port.Subscription[[]domain.Product] {
	args := m.Called(ctx, q)
	return args.Get(0).(port.Subscription[[]domain.Product])
}

type stubProductsSub struct {
	c chan []domain.Product
}

func (s stubProductsSub) Updates() <-chan []domain.Product { return s.c }

func (s stubProductsSub) Close() {}

func TestCatalogProducts(t *testing.T) {

	t.Run("PassesQueryThrough", func(t *testing.T) {
		repo := &MockProductsRepo{}
		catalog := service.NewCatalog(repo)

		q := domain.ProductQuery{CategoryID: 3, Sort: domain.SortPriceAsc}
		want := []domain.Product{{Code: "JM001"}, {Code: "JM002"}}
		repo.On("QueryProducts", mock.Anything, q).Return(want, nil)

		got, err := catalog.Products(t.Context(), q)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		repo.AssertExpectations(t)
	})

	t.Run("WrapsStoreError", func(t *testing.T) {
		repo := &MockProductsRepo{}
		catalog := service.NewCatalog(repo)

		storeErr := errors.New("conn refused")
		repo.On("QueryProducts", mock.Anything, mock.Anything).
			Return([]domain.Product(nil), storeErr)

		_, err := catalog.Products(t.Context(), domain.ProductQuery{})
		require.ErrorIs(t, err, storeErr)
		assert.ErrorContains(t, err, "CatalogService.Products")
	})

	t.Run("CanceledContext", func(t *testing.T) {
		repo := &MockProductsRepo{}
		catalog := service.NewCatalog(repo)

		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		_, err := catalog.Products(ctx, domain.ProductQuery{})
		require.ErrorIs(t, err, context.Canceled)
		repo.AssertNotCalled(t, "QueryProducts")
	})
}

func TestCatalogProductByCode(t *testing.T) {

	t.Run("Found", func(t *testing.T) {
		repo := &MockProductsRepo{}
		catalog := service.NewCatalog(repo)

		want := domain.Product{Code: "JM001", Name: "Catan", Price: 29990}
		repo.On("ProductByCode", mock.Anything, "JM001").Return(want, nil)

		got, err := catalog.ProductByCode(t.Context(), "JM001")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("NotFound", func(t *testing.T) {
		repo := &MockProductsRepo{}
		catalog := service.NewCatalog(repo)

		repo.On("ProductByCode", mock.Anything, "NOPE").
			Return(domain.Product{}, port.ErrNotFound)

		_, err := catalog.ProductByCode(t.Context(), "NOPE")
		require.ErrorIs(t, err, port.ErrNotFound)
	})
}

func TestCatalogSearchProducts(t *testing.T) {
	repo := &MockProductsRepo{}
	catalog := service.NewCatalog(repo)

	q := domain.ProductQuery{Search: "catan", CategoryID: 1}
	repo.On("QueryProducts", mock.Anything, q).
		Return([]domain.Product{{Code: "JM001"}}, nil)

	got, err := catalog.SearchProducts(t.Context(), "catan", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	repo.AssertExpectations(t)
}

func TestCatalogSellerProducts(t *testing.T) {
	repo := &MockProductsRepo{}
	catalog := service.NewCatalog(repo)

	sub := stubProductsSub{c: make(chan []domain.Product)}
	q := domain.ProductQuery{SellerID: 7, Sort: domain.SortNameAsc}
	repo.On("SubscribeProducts", mock.Anything, q).
		Return(port.Subscription[[]domain.Product](sub))

	got := catalog.SellerProducts(t.Context(), 7)
	assert.Equal(t, port.Subscription[[]domain.Product](sub), got)
	repo.AssertExpectations(t)
}

func TestCatalogMutations(t *testing.T) {

	t.Run("SaveProduct", func(t *testing.T) {
		repo := &MockProductsRepo{}
		catalog := service.NewCatalog(repo)

		p := domain.Product{Code: "SG001", Name: "PlayStation 5"}
		repo.On("SaveProduct", mock.Anything, p).Return(nil)

		require.NoError(t, catalog.SaveProduct(t.Context(), p))
		repo.AssertExpectations(t)
	})

	t.Run("UpdateProductWrapsError", func(t *testing.T) {
		repo := &MockProductsRepo{}
		catalog := service.NewCatalog(repo)

		storeErr := errors.New("constraint violated")
		repo.On("UpdateProduct", mock.Anything, mock.Anything).Return(storeErr)

		err := catalog.UpdateProduct(t.Context(), domain.Product{Code: "SG001"})
		require.ErrorIs(t, err, storeErr)
		assert.ErrorContains(t, err, "CatalogService.UpdateProduct")
	})

	t.Run("DeleteByCode", func(t *testing.T) {
		repo := &MockProductsRepo{}
		catalog := service.NewCatalog(repo)

		repo.On("DeleteByCode", mock.Anything, "SG001").Return(nil)

		require.NoError(t, catalog.DeleteByCode(t.Context(), "SG001"))
		repo.AssertExpectations(t)
	})
}
