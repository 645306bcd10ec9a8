package service_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/niksmo/levelup-shop/internal/core/domain"
	"github.com/niksmo/levelup-shop/internal/core/port"
	"github.com/niksmo/levelup-shop/internal/core/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCartRepo struct {
	mu            sync.Mutex
	nextID        int64
	lines         map[int64]domain.CartLine
	subs          []*fakeCartSub
	subscribeN    int
	quantityCalls int
	upsertErr     error
	deleteErr     error
}

func newFakeCartRepo() *fakeCartRepo {
	return &fakeCartRepo{nextID: 1, lines: make(map[int64]domain.CartLine)}
}

func (r *fakeCartRepo) addLine(l domain.CartLine) domain.CartLine {
	r.mu.Lock()
	defer r.mu.Unlock()
	l.ID = r.nextID
	r.nextID++
	r.lines[l.ID] = l
	return l
}

func (r *fakeCartRepo) FindLine(
	_ context.Context, sessionID int, productCode string,
) (domain.CartLine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.lines {
		if l.SessionID == sessionID && l.ProductCode == productCode {
			return l, nil
		}
	}
	return domain.CartLine{}, fmt.Errorf("fake: %w", port.ErrNotFound)
}

func (r *fakeCartRepo) UpsertLine(_ context.Context, line domain.CartLine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return r.upsertErr
	}
	if line.ID == 0 {
		line.ID = r.nextID
		r.nextID++
	}
	r.lines[line.ID] = line
	return nil
}

func (r *fakeCartRepo) UpdateLineQuantity(
	_ context.Context, lineID int64, quantity int,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.quantityCalls++
	if l, ok := r.lines[lineID]; ok {
		l.Quantity = quantity
		r.lines[lineID] = l
	}
	return nil
}

func (r *fakeCartRepo) DeleteLine(_ context.Context, lineID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	delete(r.lines, lineID)
	return nil
}

func (r *fakeCartRepo) DeleteSessionLines(_ context.Context, sessionID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	for id, l := range r.lines {
		if l.SessionID == sessionID {
			delete(r.lines, id)
		}
	}
	return nil
}

func (r *fakeCartRepo) SubscribeLines(
	_ context.Context, sessionID int,
) port.Subscription[[]domain.CartLine] {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribeN++
	s := &fakeCartSub{
		repo:      r,
		sessionID: sessionID,
		c:         make(chan []domain.CartLine, 1),
	}
	r.subs = append(r.subs, s)
	return s
}

// emitAll pushes a fresh snapshot to every open subscription,
// imitating a store change notification.
func (r *fakeCartRepo) emitAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subs {
		if s.closed {
			continue
		}
		snapshot := r.sessionLinesLocked(s.sessionID)
		select {
		case s.c <- snapshot:
		default:
			select {
			case <-s.c:
			default:
			}
			s.c <- snapshot
		}
	}
}

func (r *fakeCartRepo) sessionLinesLocked(sessionID int) []domain.CartLine {
	snapshot := []domain.CartLine{}
	for _, l := range r.lines {
		if l.SessionID == sessionID {
			snapshot = append(snapshot, l)
		}
	}
	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].ID < snapshot[j].ID
	})
	return snapshot
}

func (r *fakeCartRepo) lineCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lines)
}

func (r *fakeCartRepo) sessionLines(sessionID int) []domain.CartLine {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessionLinesLocked(sessionID)
}

type fakeCartSub struct {
	repo      *fakeCartRepo
	sessionID int
	c         chan []domain.CartLine
	closed    bool
}

func (s *fakeCartSub) Updates() <-chan []domain.CartLine { return s.c }

func (s *fakeCartSub) Close() {
	s.repo.mu.Lock()
	defer s.repo.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.c)
	}
}

func recv[T any](t *testing.T, c <-chan T) T {
	t.Helper()
	select {
	case v := <-c:
		return v
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for emission")
	}
	panic("unreachable")
}

func catanProduct() domain.Product {
	return domain.Product{
		Code:  "JM001",
		Name:  "Catan",
		Price: 29990,
	}
}

func TestCartServiceAddOrMerge(t *testing.T) {

	t.Run("MergesSameProduct", func(t *testing.T) {
		repo := newFakeCartRepo()
		svc := service.NewCart(repo, nil)
		defer svc.Close()
		svc.SetSession(5, 0)

		require.NoError(t, svc.AddOrMerge(t.Context(), catanProduct(), 1))
		require.NoError(t, svc.AddOrMerge(t.Context(), catanProduct(), 2))

		lines := repo.sessionLines(5)
		require.Len(t, lines, 1)
		assert.Equal(t, 3, lines[0].Quantity)
		assert.Equal(t, "JM001", lines[0].ProductCode)
		assert.Equal(t, "Catan", lines[0].ProductName)
		assert.Equal(t, 29990, lines[0].ProductPrice)
		assert.Equal(t, 5, lines[0].SessionID)
	})

	t.Run("CoercesQuantityToOne", func(t *testing.T) {
		repo := newFakeCartRepo()
		svc := service.NewCart(repo, nil)
		defer svc.Close()
		svc.SetSession(5, 0)

		require.NoError(t, svc.AddOrMerge(t.Context(), catanProduct(), 0))

		lines := repo.sessionLines(5)
		require.Len(t, lines, 1)
		assert.Equal(t, 1, lines[0].Quantity)
	})

	t.Run("GuestIsNoOp", func(t *testing.T) {
		repo := newFakeCartRepo()
		svc := service.NewCart(repo, nil)
		defer svc.Close()
		svc.SetSession(0, 0)

		require.NoError(t, svc.AddOrMerge(t.Context(), catanProduct(), 1))

		assert.Zero(t, repo.lineCount())
	})

	t.Run("StoreFailureSurfaces", func(t *testing.T) {
		repo := newFakeCartRepo()
		repo.upsertErr = errors.New("disk full")
		svc := service.NewCart(repo, nil)
		defer svc.Close()
		svc.SetSession(5, 0)

		err := svc.AddOrMerge(t.Context(), catanProduct(), 1)
		require.Error(t, err)
		assert.ErrorContains(t, err, "disk full")
		assert.Zero(t, repo.lineCount())
	})
}

func TestCartServiceQuantity(t *testing.T) {

	t.Run("Increment", func(t *testing.T) {
		repo := newFakeCartRepo()
		line := repo.addLine(domain.CartLine{
			SessionID: 5, ProductCode: "JM001", Quantity: 2,
		})
		svc := service.NewCart(repo, nil)
		defer svc.Close()
		svc.SetSession(5, 0)

		require.NoError(t, svc.Increment(t.Context(), line))

		lines := repo.sessionLines(5)
		require.Len(t, lines, 1)
		assert.Equal(t, 3, lines[0].Quantity)
	})

	t.Run("DecrementFloorsAtOne", func(t *testing.T) {
		repo := newFakeCartRepo()
		line := repo.addLine(domain.CartLine{
			SessionID: 5, ProductCode: "JM001", Quantity: 1,
		})
		svc := service.NewCart(repo, nil)
		defer svc.Close()
		svc.SetSession(5, 0)

		require.NoError(t, svc.Decrement(t.Context(), line))

		lines := repo.sessionLines(5)
		require.Len(t, lines, 1)
		assert.Equal(t, 1, lines[0].Quantity)
		assert.Zero(t, repo.quantityCalls)
	})

	t.Run("Decrement", func(t *testing.T) {
		repo := newFakeCartRepo()
		line := repo.addLine(domain.CartLine{
			SessionID: 5, ProductCode: "JM001", Quantity: 3,
		})
		svc := service.NewCart(repo, nil)
		defer svc.Close()
		svc.SetSession(5, 0)

		require.NoError(t, svc.Decrement(t.Context(), line))

		assert.Equal(t, 2, repo.sessionLines(5)[0].Quantity)
	})

	t.Run("IncrementGoneLineIsNoOp", func(t *testing.T) {
		repo := newFakeCartRepo()
		svc := service.NewCart(repo, nil)
		defer svc.Close()
		svc.SetSession(5, 0)

		gone := domain.CartLine{ID: 42, SessionID: 5, Quantity: 1}
		require.NoError(t, svc.Increment(t.Context(), gone))
		assert.Zero(t, repo.lineCount())
	})
}

func TestCartServiceObserve(t *testing.T) {

	t.Run("GuestEmitsEmptyWithoutQuery", func(t *testing.T) {
		repo := newFakeCartRepo()
		svc := service.NewCart(repo, nil)
		defer svc.Close()

		sub := svc.ObserveLines()
		defer sub.Close()

		assert.Empty(t, recv(t, sub.Updates()))
		assert.Zero(t, repo.subscribeN)
	})

	t.Run("LinesFollowStoreChanges", func(t *testing.T) {
		repo := newFakeCartRepo()
		repo.addLine(domain.CartLine{
			SessionID: 4, ProductCode: "JM001", ProductPrice: 29990, Quantity: 2,
		})
		svc := service.NewCart(repo, nil)
		defer svc.Close()
		svc.SetSession(4, 0)

		sub := svc.ObserveLines()
		defer sub.Close()

		repo.emitAll()
		lines := recv(t, sub.Updates())
		require.Len(t, lines, 1)
		assert.Equal(t, "JM001", lines[0].ProductCode)

		repo.addLine(domain.CartLine{
			SessionID: 4, ProductCode: "MS001", ProductPrice: 49990, Quantity: 1,
		})
		repo.emitAll()
		lines = recv(t, sub.Updates())
		require.Len(t, lines, 2)
		assert.Equal(t, "MS001", lines[1].ProductCode)
	})

	t.Run("CountSumsQuantities", func(t *testing.T) {
		repo := newFakeCartRepo()
		repo.addLine(domain.CartLine{SessionID: 4, ProductCode: "A", Quantity: 2})
		repo.addLine(domain.CartLine{SessionID: 4, ProductCode: "B", Quantity: 3})
		repo.addLine(domain.CartLine{SessionID: 9, ProductCode: "C", Quantity: 7})
		svc := service.NewCart(repo, nil)
		defer svc.Close()
		svc.SetSession(4, 0)

		sub := svc.ObserveCount()
		defer sub.Close()

		repo.emitAll()
		assert.Equal(t, 5, recv(t, sub.Updates()))
	})

	t.Run("SharedStoreSubscription", func(t *testing.T) {
		repo := newFakeCartRepo()
		svc := service.NewCart(repo, nil)
		defer svc.Close()
		svc.SetSession(4, 0)

		lines := svc.ObserveLines()
		defer lines.Close()
		count := svc.ObserveCount()
		defer count.Close()
		summary := svc.ObserveSummary()
		defer summary.Close()

		assert.Equal(t, 1, repo.subscribeN)
	})

	t.Run("LateSubscriberGetsLatestSnapshot", func(t *testing.T) {
		repo := newFakeCartRepo()
		repo.addLine(domain.CartLine{SessionID: 4, ProductCode: "A", Quantity: 1})
		svc := service.NewCart(repo, nil)
		defer svc.Close()
		svc.SetSession(4, 0)

		first := svc.ObserveLines()
		defer first.Close()
		repo.emitAll()
		require.Len(t, recv(t, first.Updates()), 1)

		late := svc.ObserveLines()
		defer late.Close()
		assert.Len(t, recv(t, late.Updates()), 1)
	})

	t.Run("SummaryCombinesSubtotalAndDiscount", func(t *testing.T) {
		repo := newFakeCartRepo()
		repo.addLine(domain.CartLine{
			SessionID: 4, ProductCode: "A", ProductPrice: 50000, Quantity: 2,
		})
		svc := service.NewCart(repo, nil)
		defer svc.Close()
		svc.SetSession(4, 20)

		sub := svc.ObserveSummary()
		defer sub.Close()

		repo.emitAll()
		b := recv(t, sub.Updates())
		assert.Equal(t, 100000, b.Subtotal)
		assert.Equal(t, 20000, b.DiscountAmount)
		assert.Equal(t, 95200, b.Total)

		// discount change alone must re-emit, without resubscribing
		svc.SetSession(4, 50)
		b = recv(t, sub.Updates())
		assert.Equal(t, 50, b.DiscountPercent)
		assert.Equal(t, 50000, b.DiscountAmount)
		assert.Equal(t, 1, repo.subscribeN)
	})
}

func TestCartServiceSetSession(t *testing.T) {

	t.Run("SwitchBeforeFirstEmission", func(t *testing.T) {
		repo := newFakeCartRepo()
		repo.addLine(domain.CartLine{SessionID: 7, ProductCode: "OLD", Quantity: 1})
		repo.addLine(domain.CartLine{SessionID: 3, ProductCode: "NEW", Quantity: 2})
		svc := service.NewCart(repo, nil)
		defer svc.Close()

		svc.SetSession(7, 0)
		svc.SetSession(3, 20)

		sub := svc.ObserveLines()
		defer sub.Close()

		repo.emitAll()
		lines := recv(t, sub.Updates())
		require.Len(t, lines, 1)
		assert.Equal(t, "NEW", lines[0].ProductCode)
		assert.Equal(t, 3, lines[0].SessionID)

		repo.mu.Lock()
		defer repo.mu.Unlock()
		require.Len(t, repo.subs, 2)
		assert.True(t, repo.subs[0].closed, "abandoned subscription must close")
		assert.False(t, repo.subs[1].closed)
	})

	t.Run("SameSessionIsNoOp", func(t *testing.T) {
		repo := newFakeCartRepo()
		svc := service.NewCart(repo, nil)
		defer svc.Close()

		svc.SetSession(7, 0)
		svc.SetSession(7, 0)

		assert.Equal(t, 1, repo.subscribeN)
	})

	t.Run("ClampsNegativeSessionToGuest", func(t *testing.T) {
		repo := newFakeCartRepo()
		svc := service.NewCart(repo, nil)
		defer svc.Close()

		svc.SetSession(-8, 150)

		sub := svc.ObserveLines()
		defer sub.Close()
		assert.Empty(t, recv(t, sub.Updates()))
		assert.Zero(t, repo.subscribeN)
	})

	t.Run("SwitchToGuestEmitsEmpty", func(t *testing.T) {
		repo := newFakeCartRepo()
		repo.addLine(domain.CartLine{SessionID: 7, ProductCode: "OLD", Quantity: 1})
		svc := service.NewCart(repo, nil)
		defer svc.Close()

		svc.SetSession(7, 0)
		sub := svc.ObserveLines()
		defer sub.Close()
		repo.emitAll()
		require.Len(t, recv(t, sub.Updates()), 1)

		svc.SetSession(0, 0)
		assert.Empty(t, recv(t, sub.Updates()))
	})
}

func TestCartServiceCheckout(t *testing.T) {

	t.Run("ClearsOnlyActiveSession", func(t *testing.T) {
		repo := newFakeCartRepo()
		repo.addLine(domain.CartLine{SessionID: 9, ProductCode: "A", Quantity: 1})
		repo.addLine(domain.CartLine{SessionID: 9, ProductCode: "B", Quantity: 2})
		repo.addLine(domain.CartLine{SessionID: 2, ProductCode: "C", Quantity: 1})
		svc := service.NewCart(repo, nil)
		defer svc.Close()
		svc.SetSession(9, 0)

		var done bool
		require.NoError(t, svc.Checkout(t.Context(), func() { done = true }))

		assert.True(t, done)
		assert.Empty(t, repo.sessionLines(9))
		assert.Len(t, repo.sessionLines(2), 1)
	})

	t.Run("GuestPassesThrough", func(t *testing.T) {
		repo := newFakeCartRepo()
		repo.addLine(domain.CartLine{SessionID: 2, ProductCode: "C", Quantity: 1})
		svc := service.NewCart(repo, nil)
		defer svc.Close()

		var done bool
		require.NoError(t, svc.Checkout(t.Context(), func() { done = true }))

		assert.True(t, done)
		assert.Equal(t, 1, repo.lineCount())
	})

	t.Run("StoreFailureKeepsLines", func(t *testing.T) {
		repo := newFakeCartRepo()
		repo.addLine(domain.CartLine{SessionID: 9, ProductCode: "A", Quantity: 1})
		repo.deleteErr = errors.New("io error")
		svc := service.NewCart(repo, nil)
		defer svc.Close()
		svc.SetSession(9, 0)

		var done bool
		err := svc.Checkout(t.Context(), func() { done = true })
		require.Error(t, err)
		assert.False(t, done)
		assert.Equal(t, 1, repo.lineCount())
	})
}

func TestCartServiceEvents(t *testing.T) {

	t.Run("ProducesAddEvent", func(t *testing.T) {
		repo := newFakeCartRepo()
		events := &fakeEventsProducer{}
		svc := service.NewCart(repo, events)
		defer svc.Close()
		svc.SetSession(5, 0)

		require.NoError(t, svc.AddOrMerge(t.Context(), catanProduct(), 2))

		evts := events.produced()
		require.Len(t, evts, 1)
		assert.Equal(t, domain.CartEventAdd, evts[0].Type)
		assert.Equal(t, "JM001", evts[0].ProductCode)
		assert.Equal(t, 2, evts[0].Quantity)
		assert.Equal(t, 5, evts[0].SessionID)
		assert.NotEmpty(t, evts[0].EventID)
	})

	t.Run("ProducerFailureIsSwallowed", func(t *testing.T) {
		repo := newFakeCartRepo()
		events := &fakeEventsProducer{err: errors.New("broker down")}
		svc := service.NewCart(repo, events)
		defer svc.Close()
		svc.SetSession(5, 0)

		require.NoError(t, svc.AddOrMerge(t.Context(), catanProduct(), 1))
		assert.Equal(t, 1, repo.lineCount())
	})
}

type fakeEventsProducer struct {
	mu   sync.Mutex
	evts []domain.CartEvent
	err  error
}

func (p *fakeEventsProducer) ProduceEvents(
	_ context.Context, evts []domain.CartEvent,
) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.evts = append(p.evts, evts...)
	return nil
}

func (p *fakeEventsProducer) Close() {}

func (p *fakeEventsProducer) produced() []domain.CartEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.CartEvent(nil), p.evts...)
}
