package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/niksmo/levelup-shop/internal/core/domain"
	"github.com/niksmo/levelup-shop/internal/core/port"
)

var _ port.CartEngine = (*CartService)(nil)

// A CartService owns the active session and derives live cart views
// (lines, count, price breakdown) from the cart repository.
//
// All observers share one repository subscription per active session.
// Session id and discount percent are transient and reset on restart.
// Callers must not race SetSession against another SetSession on the
// same instance; read subscriptions and writes may run concurrently.
type CartService struct {
	store  port.CartRepository
	events port.CartEventsProducer

	mu          sync.Mutex
	session     int
	discount    int
	feed        *cartFeed
	latest      []domain.CartLine
	latestKnown bool
	lineSubs    map[*lineStream]struct{}
	countSubs   map[*countStream]struct{}
	summarySubs map[*summaryStream]struct{}
}

// NewCart returns an engine scoped to the guest session.
// The events producer is optional.
func NewCart(
	store port.CartRepository, events port.CartEventsProducer,
) *CartService {
	return &CartService{
		store:       store,
		events:      events,
		latest:      []domain.CartLine{},
		latestKnown: true,
		lineSubs:    make(map[*lineStream]struct{}),
		countSubs:   make(map[*countStream]struct{}),
		summarySubs: make(map[*summaryStream]struct{}),
	}
}

// A cartFeed binds the service to one repository subscription.
// Emissions from a replaced feed are dropped by identity check.
type cartFeed struct {
	sub    port.Subscription[[]domain.CartLine]
	cancel context.CancelFunc
}

func (f *cartFeed) close() {
	f.cancel()
	f.sub.Close()
}

// SetSession re-scopes every derived view to the given session.
// The session id is clamped to >= 0 and the discount to [0, 100].
// Calling with the current session id only updates the discount,
// without resubscribing.
func (s *CartService) SetSession(sessionID, discountPercent int) {
	const op = "CartService.SetSession"

	sessionID = max(sessionID, 0)
	discountPercent = min(max(discountPercent, 0), 100)

	s.mu.Lock()
	if sessionID == s.session {
		if discountPercent != s.discount {
			s.discount = discountPercent
			if s.latestKnown {
				s.publishSummaryLocked()
			}
		}
		s.mu.Unlock()
		return
	}

	old := s.feed
	s.session = sessionID
	s.discount = discountPercent
	s.feed = nil
	s.latest = nil
	s.latestKnown = false

	if sessionID <= 0 {
		// guest carts are never queried nor persisted
		s.latest = []domain.CartLine{}
		s.latestKnown = true
		s.publishLocked()
	} else {
		ctx, cancel := context.WithCancel(context.Background())
		f := &cartFeed{cancel: cancel}
		f.sub = s.store.SubscribeLines(ctx, sessionID)
		s.feed = f
		go s.consume(f)
	}
	s.mu.Unlock()

	if old != nil {
		old.close()
	}

	slog.Debug("cart rescoped",
		"op", op, "session", sessionID, "discount", discountPercent)
}

// Close stops the underlying repository subscription.
func (s *CartService) Close() {
	s.mu.Lock()
	f := s.feed
	s.feed = nil
	s.mu.Unlock()

	if f != nil {
		f.close()
	}
}

func (s *CartService) consume(f *cartFeed) {
	for snapshot := range f.sub.Updates() {
		s.mu.Lock()
		if s.feed != f {
			s.mu.Unlock()
			return
		}
		s.latest = snapshot
		s.latestKnown = true
		s.publishLocked()
		s.mu.Unlock()
	}
}

func (s *CartService) publishLocked() {
	for st := range s.lineSubs {
		sendLatest(st.c, s.latest)
	}
	count := domain.Quantity(s.latest)
	for st := range s.countSubs {
		sendLatest(st.c, count)
	}
	s.publishSummaryLocked()
}

func (s *CartService) publishSummaryLocked() {
	breakdown := domain.ComputeBreakdown(domain.Subtotal(s.latest), s.discount)
	for st := range s.summarySubs {
		sendLatest(st.c, breakdown)
	}
}

// ObserveLines returns a live view over the active session's lines
// in ascending id order. Late subscribers receive the latest snapshot.
func (s *CartService) ObserveLines() port.Subscription[[]domain.CartLine] {
	st := &lineStream{s: s, c: make(chan []domain.CartLine, 1)}
	s.mu.Lock()
	s.lineSubs[st] = struct{}{}
	if s.latestKnown {
		sendLatest(st.c, s.latest)
	}
	s.mu.Unlock()
	return st
}

// ObserveCount returns a live view over the total item quantity,
// 0 for an empty or guest cart.
func (s *CartService) ObserveCount() port.Subscription[int] {
	st := &countStream{s: s, c: make(chan int, 1)}
	s.mu.Lock()
	s.countSubs[st] = struct{}{}
	if s.latestKnown {
		sendLatest(st.c, domain.Quantity(s.latest))
	}
	s.mu.Unlock()
	return st
}

// ObserveSummary returns a live view over the pricing breakdown,
// re-emitting on line changes and on discount changes.
func (s *CartService) ObserveSummary() port.Subscription[domain.PriceBreakdown] {
	st := &summaryStream{s: s, c: make(chan domain.PriceBreakdown, 1)}
	s.mu.Lock()
	s.summarySubs[st] = struct{}{}
	if s.latestKnown {
		sendLatest(st.c,
			domain.ComputeBreakdown(domain.Subtotal(s.latest), s.discount))
	}
	s.mu.Unlock()
	return st
}

// AddOrMerge upserts a line for (session, product code), merging
// quantities when the line exists. Adding to the guest cart is a
// silent no-op. The read-then-write merge is not atomic against a
// concurrent add of the same product from the same session; normal
// UI interaction serializes such calls.
func (s *CartService) AddOrMerge(
	ctx context.Context, p domain.Product, quantity int,
) error {
	const op = "CartService.AddOrMerge"

	quantity = max(quantity, 1)

	uid := s.activeSession()
	if uid <= 0 {
		return nil
	}

	line, err := s.store.FindLine(ctx, uid, p.Code)
	switch {
	case err == nil:
		line.Quantity = max(line.Quantity+quantity, 1)
	case errors.Is(err, port.ErrNotFound):
		line = domain.CartLine{
			SessionID:    uid,
			ProductCode:  p.Code,
			ProductName:  p.Name,
			ProductPrice: p.Price,
			Quantity:     quantity,
			CreatedAt:    time.Now(),
		}
	default:
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.store.UpsertLine(ctx, line); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.emitEvent(ctx, domain.CartEventAdd, uid, p.Code, quantity)
	return nil
}

// Increment raises the line quantity by one.
// A line no longer present is a silent no-op.
func (s *CartService) Increment(
	ctx context.Context, line domain.CartLine,
) error {
	const op = "CartService.Increment"

	err := s.store.UpdateLineQuantity(ctx, line.ID, line.Quantity+1)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Decrement lowers the line quantity by one, never below one.
// Removal is explicit via Remove.
func (s *CartService) Decrement(
	ctx context.Context, line domain.CartLine,
) error {
	const op = "CartService.Decrement"

	if line.Quantity <= 1 {
		return nil
	}
	err := s.store.UpdateLineQuantity(ctx, line.ID, line.Quantity-1)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Remove deletes the line unconditionally.
func (s *CartService) Remove(
	ctx context.Context, line domain.CartLine,
) error {
	const op = "CartService.Remove"

	if err := s.store.DeleteLine(ctx, line.ID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.emitEvent(ctx, domain.CartEventRemove,
		line.SessionID, line.ProductCode, line.Quantity)
	return nil
}

// Checkout clears the active session's cart and invokes onDone.
// For the guest session the callback fires without touching storage.
// No order record is created.
func (s *CartService) Checkout(ctx context.Context, onDone func()) error {
	const op = "CartService.Checkout"

	uid := s.activeSession()
	if uid <= 0 {
		if onDone != nil {
			onDone()
		}
		return nil
	}

	if err := s.store.DeleteSessionLines(ctx, uid); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.emitEvent(ctx, domain.CartEventCheckout, uid, "", 0)

	if onDone != nil {
		onDone()
	}
	return nil
}

func (s *CartService) activeSession() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

func (s *CartService) emitEvent(
	ctx context.Context,
	t domain.CartEventType, sessionID int, code string, quantity int,
) {
	const op = "CartService.emitEvent"

	if s.events == nil {
		return
	}

	evt := domain.CartEvent{
		EventID:     uuid.NewString(),
		SessionID:   sessionID,
		Type:        t,
		ProductCode: code,
		Quantity:    quantity,
		OccurredAt:  time.Now(),
	}
	if err := s.events.ProduceEvents(ctx, []domain.CartEvent{evt}); err != nil {
		slog.Warn("failed to produce cart event", "op", op, "err", err)
	}
}

type lineStream struct {
	s    *CartService
	c    chan []domain.CartLine
	once sync.Once
}

func (st *lineStream) Updates() <-chan []domain.CartLine { return st.c }

func (st *lineStream) Close() {
	st.once.Do(func() {
		st.s.mu.Lock()
		delete(st.s.lineSubs, st)
		close(st.c)
		st.s.mu.Unlock()
	})
}

type countStream struct {
	s    *CartService
	c    chan int
	once sync.Once
}

func (st *countStream) Updates() <-chan int { return st.c }

func (st *countStream) Close() {
	st.once.Do(func() {
		st.s.mu.Lock()
		delete(st.s.countSubs, st)
		close(st.c)
		st.s.mu.Unlock()
	})
}

type summaryStream struct {
	s    *CartService
	c    chan domain.PriceBreakdown
	once sync.Once
}

func (st *summaryStream) Updates() <-chan domain.PriceBreakdown { return st.c }

func (st *summaryStream) Close() {
	st.once.Do(func() {
		st.s.mu.Lock()
		delete(st.s.summarySubs, st)
		close(st.c)
		st.s.mu.Unlock()
	})
}

// sendLatest delivers v on a capacity-1 channel, displacing a stale
// pending value. Callers hold the service mutex, so the final send
// cannot race another sender.
func sendLatest[T any](c chan T, v T) {
	select {
	case c <- v:
		return
	default:
	}
	select {
	case <-c:
	default:
	}
	c <- v
}
