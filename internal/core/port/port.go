package port

import (
	"context"
	"errors"

	"github.com/niksmo/levelup-shop/internal/core/domain"
)

// ErrNotFound reports a missing entity on a point query.
var ErrNotFound = errors.New("not found")

// A Subscription is a live query handle: Updates delivers fresh
// snapshots until Close. Channels carry latest-value semantics,
// a slow reader only ever misses stale snapshots.
type Subscription[T any] interface {
	Updates() <-chan T
	Close()
}

type CartRepository interface {
	FindLine(ctx context.Context, sessionID int, productCode string) (domain.CartLine, error)
	UpsertLine(ctx context.Context, line domain.CartLine) error
	UpdateLineQuantity(ctx context.Context, lineID int64, quantity int) error
	DeleteLine(ctx context.Context, lineID int64) error
	DeleteSessionLines(ctx context.Context, sessionID int) error

	// SubscribeLines yields the session's lines in ascending id order,
	// re-emitting on every cart table change.
	SubscribeLines(ctx context.Context, sessionID int) Subscription[[]domain.CartLine]
}

type ProductsRepository interface {
	SaveProduct(ctx context.Context, p domain.Product) error
	SaveProducts(ctx context.Context, ps []domain.Product) error
	UpdateProduct(ctx context.Context, p domain.Product) error
	DeleteProduct(ctx context.Context, p domain.Product) error
	DeleteByCode(ctx context.Context, code string) error

	ProductByCode(ctx context.Context, code string) (domain.Product, error)
	CountProducts(ctx context.Context) (int, error)
	QueryProducts(ctx context.Context, q domain.ProductQuery) ([]domain.Product, error)

	// SubscribeProducts re-emits on every products table write,
	// not only on writes matching the query.
	SubscribeProducts(ctx context.Context, q domain.ProductQuery) Subscription[[]domain.Product]
}

type CartEventsProducer interface {
	ProduceEvents(ctx context.Context, evts []domain.CartEvent) error
	Close()
}

// A CartEngine is the session-scoped reactive cart surface
// consumed by inbound adapters.
type CartEngine interface {
	SetSession(sessionID, discountPercent int)
	ObserveLines() Subscription[[]domain.CartLine]
	ObserveCount() Subscription[int]
	ObserveSummary() Subscription[domain.PriceBreakdown]
	AddOrMerge(ctx context.Context, p domain.Product, quantity int) error
	Increment(ctx context.Context, line domain.CartLine) error
	Decrement(ctx context.Context, line domain.CartLine) error
	Remove(ctx context.Context, line domain.CartLine) error
	Checkout(ctx context.Context, onDone func()) error
}

type Catalog interface {
	Products(ctx context.Context, q domain.ProductQuery) ([]domain.Product, error)
	ProductByCode(ctx context.Context, code string) (domain.Product, error)
	CountProducts(ctx context.Context) (int, error)
	WatchProducts(ctx context.Context, q domain.ProductQuery) Subscription[[]domain.Product]
	SaveProduct(ctx context.Context, p domain.Product) error
	SaveProducts(ctx context.Context, ps []domain.Product) error
	UpdateProduct(ctx context.Context, p domain.Product) error
	DeleteProduct(ctx context.Context, p domain.Product) error
	DeleteByCode(ctx context.Context, code string) error
}
