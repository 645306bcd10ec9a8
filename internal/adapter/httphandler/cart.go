package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/niksmo/levelup-shop/internal/core/domain"
	"github.com/niksmo/levelup-shop/internal/core/port"
	"github.com/niksmo/levelup-shop/internal/core/session"
)

// POST /v1/session           sign in, re-scope the cart engine
// POST /v1/session/logout    clear the session, back to guest cart
// GET  /v1/cart/stream       SSE: lines, count and summary snapshots
// POST /v1/cart/items        add or merge a product
// POST /v1/cart/increment    +1 on a line
// POST /v1/cart/decrement    -1 on a line, floor 1
// POST /v1/cart/remove       delete a line
// POST /v1/cart/checkout     clear the active session's cart

type CartHandler struct {
	engine  port.CartEngine
	catalog port.Catalog
	session *session.Session
}

func RegisterCart(
	mux *http.ServeMux,
	engine port.CartEngine,
	catalog port.Catalog,
	sess *session.Session,
) {
	h := CartHandler{engine, catalog, sess}
	mux.HandleFunc("POST /v1/session", h.PostSession)
	mux.HandleFunc("POST /v1/session/logout", h.PostLogout)
	mux.HandleFunc("GET /v1/cart/stream", h.StreamCart)
	mux.HandleFunc("POST /v1/cart/items", h.PostItem)
	mux.HandleFunc("POST /v1/cart/increment", h.PostIncrement)
	mux.HandleFunc("POST /v1/cart/decrement", h.PostDecrement)
	mux.HandleFunc("POST /v1/cart/remove", h.PostRemove)
	mux.HandleFunc("POST /v1/cart/checkout", h.PostCheckout)
}

func (h CartHandler) PostSession(w http.ResponseWriter, r *http.Request) {
	const op = "CartHandler.PostSession"
	log := slog.With("op", op)

	var req SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON data", http.StatusBadRequest)
		log.Warn("failed to parse JSON", "err", err)
		return
	}

	role := session.Role(req.Role)
	if role == "" {
		role = session.RoleCustomer
	}

	h.session.SignIn(req.UserID, req.UserName, req.LoyaltyMember, role)
	h.engine.SetSession(req.UserID, h.session.DiscountPercent())

	w.WriteHeader(http.StatusNoContent)
	log.Info("session started", "userID", req.UserID)
}

func (h CartHandler) PostLogout(w http.ResponseWriter, r *http.Request) {
	const op = "CartHandler.PostLogout"

	h.session.Clear()
	h.engine.SetSession(session.GuestID, 0)

	w.WriteHeader(http.StatusNoContent)
	slog.Info("session cleared", "op", op)
}

func (h CartHandler) StreamCart(w http.ResponseWriter, r *http.Request) {
	const op = "CartHandler.StreamCart"
	log := slog.With("op", op)

	f, ok := setupStream(w)
	if !ok {
		return
	}

	lines := h.engine.ObserveLines()
	defer lines.Close()
	count := h.engine.ObserveCount()
	defer count.Close()
	summary := h.engine.ObserveSummary()
	defer summary.Close()

	ctx := r.Context()
	for {
		var (
			err  error
			open bool
		)
		select {
		case <-ctx.Done():
			return
		case ls, ok := <-lines.Updates():
			open = ok
			if ok {
				err = writeEvent(w, f, "lines", linesToWire(ls))
			}
		case n, ok := <-count.Updates():
			open = ok
			if ok {
				err = writeEvent(w, f, "count", n)
			}
		case b, ok := <-summary.Updates():
			open = ok
			if ok {
				err = writeEvent(w, f, "summary", breakdownToWire(b))
			}
		}
		if !open {
			return
		}
		if err != nil {
			log.Debug("stream closed", "err", err)
			return
		}
	}
}

func (h CartHandler) PostItem(w http.ResponseWriter, r *http.Request) {
	const op = "CartHandler.PostItem"
	log := slog.With("op", op)

	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON data", http.StatusBadRequest)
		log.Warn("failed to parse JSON", "err", err)
		return
	}

	p, err := h.catalog.ProductByCode(r.Context(), req.ProductCode)
	if err != nil {
		if errors.Is(err, port.ErrNotFound) {
			http.Error(w, "unknown product", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to read product", http.StatusServiceUnavailable)
		log.Error("failed to read product", "err", err)
		return
	}

	if err := h.engine.AddOrMerge(r.Context(), p, req.Quantity); err != nil {
		http.Error(w, "failed to add product", http.StatusServiceUnavailable)
		log.Error("failed to add product", "err", err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (h CartHandler) PostIncrement(w http.ResponseWriter, r *http.Request) {
	h.mutateLine(w, r, "CartHandler.PostIncrement", h.engine.Increment)
}

func (h CartHandler) PostDecrement(w http.ResponseWriter, r *http.Request) {
	h.mutateLine(w, r, "CartHandler.PostDecrement", h.engine.Decrement)
}

func (h CartHandler) PostRemove(w http.ResponseWriter, r *http.Request) {
	h.mutateLine(w, r, "CartHandler.PostRemove", h.engine.Remove)
}

func (h CartHandler) mutateLine(
	w http.ResponseWriter, r *http.Request,
	op string, mutate func(ctx context.Context, line domain.CartLine) error,
) {
	log := slog.With("op", op)

	var l CartLine
	if err := json.NewDecoder(r.Body).Decode(&l); err != nil {
		http.Error(w, "invalid JSON data", http.StatusBadRequest)
		log.Warn("failed to parse JSON", "err", err)
		return
	}

	if err := mutate(r.Context(), lineToDomain(l)); err != nil {
		http.Error(w, "failed to update cart", http.StatusServiceUnavailable)
		log.Error("failed to update cart", "err", err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (h CartHandler) PostCheckout(w http.ResponseWriter, r *http.Request) {
	const op = "CartHandler.PostCheckout"
	log := slog.With("op", op)

	done := func() {
		log.Info("checkout complete")
	}

	if err := h.engine.Checkout(r.Context(), done); err != nil {
		http.Error(w, "failed to checkout", http.StatusServiceUnavailable)
		log.Error("failed to checkout", "err", err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
