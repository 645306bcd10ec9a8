package storage

import (
	"context"
	"log/slog"
	"sync"

	"github.com/niksmo/levelup-shop/internal/core/port"
)

// A tableFeed fans committed table writes out to live query
// subscriptions. The process is the only writer of its database,
// so in-process invalidation is sufficient.
type tableFeed struct {
	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

func newTableFeed() *tableFeed {
	return &tableFeed{subs: make(map[chan struct{}]struct{})}
}

func (f *tableFeed) register() chan struct{} {
	c := make(chan struct{}, 1)
	f.mu.Lock()
	f.subs[c] = struct{}{}
	f.mu.Unlock()
	return c
}

func (f *tableFeed) unregister(c chan struct{}) {
	f.mu.Lock()
	delete(f.subs, c)
	f.mu.Unlock()
}

// broadcast signals every subscription; a pending signal already
// covers the change.
func (f *tableFeed) broadcast() {
	f.mu.Lock()
	for c := range f.subs {
		select {
		case c <- struct{}{}:
		default:
		}
	}
	f.mu.Unlock()
}

// A liveQuery re-runs its snapshot query on each table signal and
// pushes results through a latest-value channel. The channel closes
// after Close or context cancellation.
type liveQuery[T any] struct {
	c      chan T
	cancel context.CancelFunc
	once   sync.Once
	feed   *tableFeed
	signal chan struct{}
}

var _ port.Subscription[int] = (*liveQuery[int])(nil)

func subscribeQuery[T any](
	ctx context.Context,
	feed *tableFeed,
	op string,
	query func(context.Context) (T, error),
) *liveQuery[T] {
	ctx, cancel := context.WithCancel(ctx)
	q := &liveQuery[T]{
		c:      make(chan T, 1),
		cancel: cancel,
		feed:   feed,
		signal: feed.register(),
	}
	go q.run(ctx, op, query)
	return q
}

func (q *liveQuery[T]) Updates() <-chan T { return q.c }

func (q *liveQuery[T]) Close() {
	q.once.Do(q.cancel)
}

func (q *liveQuery[T]) run(
	ctx context.Context, op string, query func(context.Context) (T, error),
) {
	defer close(q.c)
	defer q.feed.unregister(q.signal)

	if !q.emit(ctx, op, query) {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.signal:
			if !q.emit(ctx, op, query) {
				return
			}
		}
	}
}

// emit reports whether the subscription should stay alive. A failed
// query keeps it: the next table change reconciles the view.
func (q *liveQuery[T]) emit(
	ctx context.Context, op string, query func(context.Context) (T, error),
) bool {
	v, err := query(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		slog.Error("live query failed", "op", op, "err", err)
		return true
	}
	q.send(v)
	return true
}

// send displaces a stale pending value. The run goroutine is the
// only sender, so the final send cannot block.
func (q *liveQuery[T]) send(v T) {
	select {
	case q.c <- v:
		return
	default:
	}
	select {
	case <-q.c:
	default:
	}
	q.c <- v
}
