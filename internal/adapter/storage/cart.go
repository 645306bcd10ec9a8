package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/niksmo/levelup-shop/internal/core/domain"
	"github.com/niksmo/levelup-shop/internal/core/port"
)

var _ port.CartRepository = (*CartRepository)(nil)

// A CartRepository owns the cart_lines table. Every committed write
// broadcasts to live subscriptions; the (session, product code)
// uniqueness is enforced by the engine's merge, not by a constraint.
type CartRepository struct {
	sqldb sqldb
	feed  *tableFeed
}

func NewCartRepository(sqldb sqldb) *CartRepository {
	return &CartRepository{sqldb: sqldb, feed: newTableFeed()}
}

func (r *CartRepository) FindLine(
	ctx context.Context, sessionID int, productCode string,
) (domain.CartLine, error) {
	const op = "CartRepository.FindLine"

	query := `
		SELECT id, session_id, product_code, product_name,
			product_price, quantity, created_at
		FROM cart_lines
		WHERE session_id = $1 AND product_code = $2
		LIMIT 1;`

	var l domain.CartLine
	err := r.sqldb.QueryRowContext(ctx, query, sessionID, productCode).Scan(
		&l.ID, &l.SessionID, &l.ProductCode, &l.ProductName,
		&l.ProductPrice, &l.Quantity, &l.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.CartLine{}, fmt.Errorf("%s: %w", op, port.ErrNotFound)
		}
		return domain.CartLine{}, fmt.Errorf("%s: %w", op, err)
	}
	return l, nil
}

func (r *CartRepository) UpsertLine(
	ctx context.Context, line domain.CartLine,
) error {
	const op = "CartRepository.UpsertLine"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var err error
	if line.ID == 0 {
		query := `
			INSERT INTO cart_lines (
				session_id, product_code, product_name,
				product_price, quantity, created_at
			)
			VALUES ($1, $2, $3, $4, $5, $6);`
		_, err = r.sqldb.ExecContext(ctx, query,
			line.SessionID, line.ProductCode, line.ProductName,
			line.ProductPrice, line.Quantity, line.CreatedAt,
		)
	} else {
		query := `
			UPDATE cart_lines
			SET product_name = $2, product_price = $3, quantity = $4
			WHERE id = $1;`
		_, err = r.sqldb.ExecContext(ctx, query,
			line.ID, line.ProductName, line.ProductPrice, line.Quantity,
		)
	}
	if err != nil {
		return fmt.Errorf("%s: failed to exec: %w", op, err)
	}

	r.feed.broadcast()
	return nil
}

// UpdateLineQuantity is a no-op when the line no longer exists:
// the live query reconciles the view on next emission.
func (r *CartRepository) UpdateLineQuantity(
	ctx context.Context, lineID int64, quantity int,
) error {
	const op = "CartRepository.UpdateLineQuantity"
	log := slog.With("op", op)

	query := `UPDATE cart_lines SET quantity = $2 WHERE id = $1;`
	res, err := r.sqldb.ExecContext(ctx, query, lineID, quantity)
	if err != nil {
		return fmt.Errorf("%s: failed to exec: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		log.Debug("line is gone", "lineID", lineID)
		return nil
	}

	r.feed.broadcast()
	return nil
}

func (r *CartRepository) DeleteLine(
	ctx context.Context, lineID int64,
) error {
	const op = "CartRepository.DeleteLine"

	query := `DELETE FROM cart_lines WHERE id = $1;`
	if _, err := r.sqldb.ExecContext(ctx, query, lineID); err != nil {
		return fmt.Errorf("%s: failed to exec: %w", op, err)
	}

	r.feed.broadcast()
	return nil
}

func (r *CartRepository) DeleteSessionLines(
	ctx context.Context, sessionID int,
) error {
	const op = "CartRepository.DeleteSessionLines"

	query := `DELETE FROM cart_lines WHERE session_id = $1;`
	if _, err := r.sqldb.ExecContext(ctx, query, sessionID); err != nil {
		return fmt.Errorf("%s: failed to exec: %w", op, err)
	}

	r.feed.broadcast()
	return nil
}

func (r *CartRepository) SubscribeLines(
	ctx context.Context, sessionID int,
) port.Subscription[[]domain.CartLine] {
	const op = "CartRepository.SubscribeLines"

	return subscribeQuery(ctx, r.feed, op,
		func(ctx context.Context) ([]domain.CartLine, error) {
			return r.sessionLines(ctx, sessionID)
		})
}

func (r *CartRepository) sessionLines(
	ctx context.Context, sessionID int,
) ([]domain.CartLine, error) {
	query := `
		SELECT id, session_id, product_code, product_name,
			product_price, quantity, created_at
		FROM cart_lines
		WHERE session_id = $1
		ORDER BY id ASC;`

	rows, err := r.sqldb.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := []domain.CartLine{}
	for rows.Next() {
		var l domain.CartLine
		err := rows.Scan(
			&l.ID, &l.SessionID, &l.ProductCode, &l.ProductName,
			&l.ProductPrice, &l.Quantity, &l.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
