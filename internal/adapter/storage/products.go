package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/niksmo/levelup-shop/internal/core/domain"
	"github.com/niksmo/levelup-shop/internal/core/port"
)

var _ port.ProductsRepository = (*ProductsRepository)(nil)

const productColumns = `code, name, description, price,
	category_id, category_name, stock, image_url,
	manufacturer, rating, seller_id, active`

// A ProductsRepository owns the products table. Live subscriptions
// re-emit on every table write regardless of the query filter.
type ProductsRepository struct {
	sqldb sqldb
	feed  *tableFeed
}

func NewProductsRepository(sqldb sqldb) *ProductsRepository {
	return &ProductsRepository{sqldb: sqldb, feed: newTableFeed()}
}

func (r *ProductsRepository) SaveProduct(
	ctx context.Context, p domain.Product,
) error {
	const op = "ProductsRepository.SaveProduct"

	if _, err := r.sqldb.ExecContext(ctx, upsertProductQuery,
		productArgs(p)...); err != nil {
		return fmt.Errorf("%s: failed to exec: %w", op, err)
	}

	r.feed.broadcast()
	return nil
}

func (r *ProductsRepository) SaveProducts(
	ctx context.Context, ps []domain.Product,
) (storeErr error) {
	const op = "ProductsRepository.SaveProducts"
	log := slog.With("op", op)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tx, err := r.sqldb.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: failed to begin tx: %w", op, err)
	}

	defer func() {
		if storeErr == nil {
			if err := tx.Commit(); err != nil {
				storeErr = fmt.Errorf("%s: failed to commit: %w", op, err)
				return
			}
			r.feed.broadcast()
			return
		}

		if err := tx.Rollback(); err != nil {
			log.Error("failed to rollback tx", "err", err)
		}
	}()

	stmt, err := tx.PrepareContext(ctx, upsertProductQuery)
	if err != nil {
		return fmt.Errorf("%s: failed to prepare stmt: %w", op, err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			log.Error("failed to close prepared stmt", "err", err)
		}
	}()

	for _, p := range ps {
		if _, err := stmt.ExecContext(ctx, productArgs(p)...); err != nil {
			return fmt.Errorf("%s: failed to exec: %w", op, err)
		}
	}

	return nil
}

func (r *ProductsRepository) UpdateProduct(
	ctx context.Context, p domain.Product,
) error {
	const op = "ProductsRepository.UpdateProduct"

	query := `
		UPDATE products SET
			name = $2, description = $3, price = $4,
			category_id = $5, category_name = $6, stock = $7,
			image_url = $8, manufacturer = $9, rating = $10,
			seller_id = $11, active = $12
		WHERE code = $1;`

	if _, err := r.sqldb.ExecContext(ctx, query,
		productArgs(p)...); err != nil {
		return fmt.Errorf("%s: failed to exec: %w", op, err)
	}

	r.feed.broadcast()
	return nil
}

func (r *ProductsRepository) DeleteProduct(
	ctx context.Context, p domain.Product,
) error {
	return r.DeleteByCode(ctx, p.Code)
}

func (r *ProductsRepository) DeleteByCode(
	ctx context.Context, code string,
) error {
	const op = "ProductsRepository.DeleteByCode"

	query := `DELETE FROM products WHERE code = $1;`
	if _, err := r.sqldb.ExecContext(ctx, query, code); err != nil {
		return fmt.Errorf("%s: failed to exec: %w", op, err)
	}

	r.feed.broadcast()
	return nil
}

func (r *ProductsRepository) ProductByCode(
	ctx context.Context, code string,
) (domain.Product, error) {
	const op = "ProductsRepository.ProductByCode"

	query := fmt.Sprintf(`
		SELECT %s FROM products WHERE code = $1 LIMIT 1;`, productColumns)

	var p domain.Product
	err := r.sqldb.QueryRowContext(ctx, query, code).Scan(productDest(&p)...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, fmt.Errorf("%s: %w", op, port.ErrNotFound)
		}
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

func (r *ProductsRepository) CountProducts(ctx context.Context) (int, error) {
	const op = "ProductsRepository.CountProducts"

	var n int
	query := `SELECT COUNT(*) FROM products;`
	err := r.sqldb.QueryRowContext(ctx, query).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

func (r *ProductsRepository) QueryProducts(
	ctx context.Context, q domain.ProductQuery,
) ([]domain.Product, error) {
	const op = "ProductsRepository.QueryProducts"

	query, args := buildProductsQuery(q)
	rows, err := r.sqldb.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	ps := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(productDest(&p)...); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ps = append(ps, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ps, nil
}

func (r *ProductsRepository) SubscribeProducts(
	ctx context.Context, q domain.ProductQuery,
) port.Subscription[[]domain.Product] {
	const op = "ProductsRepository.SubscribeProducts"

	return subscribeQuery(ctx, r.feed, op,
		func(ctx context.Context) ([]domain.Product, error) {
			return r.QueryProducts(ctx, q)
		})
}

const upsertProductQuery = `
	INSERT INTO products (
		code, name, description, price,
		category_id, category_name, stock, image_url,
		manufacturer, rating, seller_id, active
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (code) DO UPDATE SET
		name = EXCLUDED.name,
		description = EXCLUDED.description,
		price = EXCLUDED.price,
		category_id = EXCLUDED.category_id,
		category_name = EXCLUDED.category_name,
		stock = EXCLUDED.stock,
		image_url = EXCLUDED.image_url,
		manufacturer = EXCLUDED.manufacturer,
		rating = EXCLUDED.rating,
		seller_id = EXCLUDED.seller_id,
		active = EXCLUDED.active;
`

func productArgs(p domain.Product) []any {
	return []any{
		p.Code, p.Name, p.Description, p.Price,
		p.CategoryID, p.CategoryName, p.Stock, p.ImageURL,
		p.Manufacturer, p.Rating, p.SellerID, p.Active,
	}
}

func productDest(p *domain.Product) []any {
	return []any{
		&p.Code, &p.Name, &p.Description, &p.Price,
		&p.CategoryID, &p.CategoryName, &p.Stock, &p.ImageURL,
		&p.Manufacturer, &p.Rating, &p.SellerID, &p.Active,
	}
}

func buildProductsQuery(q domain.ProductQuery) (string, []any) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.Code != "" {
		conds = append(conds, "code = "+arg(q.Code))
	}
	if q.CategoryID != 0 {
		conds = append(conds, "category_id = "+arg(q.CategoryID))
	}
	if q.SellerID != 0 {
		conds = append(conds, "seller_id = "+arg(q.SellerID))
	}
	if q.Search != "" {
		pattern := arg("%" + q.Search + "%")
		conds = append(conds, fmt.Sprintf(
			"(name ILIKE %[1]s OR description ILIKE %[1]s)", pattern))
	}

	query := "SELECT " + productColumns + " FROM products"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	switch q.Sort {
	case domain.SortPriceAsc:
		query += " ORDER BY price ASC"
	case domain.SortPriceDesc:
		query += " ORDER BY price DESC"
	case domain.SortRatingDesc:
		query += " ORDER BY rating DESC"
	case domain.SortNameAsc:
		query += " ORDER BY name ASC"
	}

	return query + ";", args
}
