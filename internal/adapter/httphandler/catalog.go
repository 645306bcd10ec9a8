package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/niksmo/levelup-shop/internal/core/domain"
	"github.com/niksmo/levelup-shop/internal/core/port"
)

// GET    /v1/products          query: code, search, category_id, seller_id, sort
// GET    /v1/products/stream   SSE over the same query
// GET    /v1/products/count
// GET    /v1/products/{code}
// POST   /v1/products          bulk upsert
// PUT    /v1/products/{code}
// DELETE /v1/products/{code}

type CatalogHandler struct {
	catalog port.Catalog
}

func RegisterCatalog(mux *http.ServeMux, catalog port.Catalog) {
	h := CatalogHandler{catalog}
	mux.HandleFunc("GET /v1/products", h.GetProducts)
	mux.HandleFunc("GET /v1/products/stream", h.StreamProducts)
	mux.HandleFunc("GET /v1/products/count", h.GetCount)
	mux.HandleFunc("GET /v1/products/{code}", h.GetProduct)
	mux.HandleFunc("POST /v1/products", h.PostProducts)
	mux.HandleFunc("PUT /v1/products/{code}", h.PutProduct)
	mux.HandleFunc("DELETE /v1/products/{code}", h.DeleteProduct)
}

func (h CatalogHandler) GetProducts(w http.ResponseWriter, r *http.Request) {
	const op = "CatalogHandler.GetProducts"
	log := slog.With("op", op)

	ps, err := h.catalog.Products(r.Context(), parseProductQuery(r))
	if err != nil {
		http.Error(w, "failed to read products", http.StatusServiceUnavailable)
		log.Error("failed to read products", "err", err)
		return
	}

	writeJSON(w, log, productsToWire(ps))
}

func (h CatalogHandler) StreamProducts(w http.ResponseWriter, r *http.Request) {
	const op = "CatalogHandler.StreamProducts"
	log := slog.With("op", op)

	f, ok := setupStream(w)
	if !ok {
		return
	}

	sub := h.catalog.WatchProducts(r.Context(), parseProductQuery(r))
	defer sub.Close()

	for {
		select {
		case <-r.Context().Done():
			return
		case ps, open := <-sub.Updates():
			if !open {
				return
			}
			if err := writeEvent(w, f, "products", productsToWire(ps)); err != nil {
				log.Debug("stream closed", "err", err)
				return
			}
		}
	}
}

func (h CatalogHandler) GetCount(w http.ResponseWriter, r *http.Request) {
	const op = "CatalogHandler.GetCount"
	log := slog.With("op", op)

	n, err := h.catalog.CountProducts(r.Context())
	if err != nil {
		http.Error(w, "failed to count products", http.StatusServiceUnavailable)
		log.Error("failed to count products", "err", err)
		return
	}

	writeJSON(w, log, map[string]int{"count": n})
}

func (h CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	const op = "CatalogHandler.GetProduct"
	log := slog.With("op", op)

	p, err := h.catalog.ProductByCode(r.Context(), r.PathValue("code"))
	if err != nil {
		if errors.Is(err, port.ErrNotFound) {
			http.Error(w, "unknown product", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to read product", http.StatusServiceUnavailable)
		log.Error("failed to read product", "err", err)
		return
	}

	writeJSON(w, log, productToWire(p))
}

func (h CatalogHandler) PostProducts(w http.ResponseWriter, r *http.Request) {
	const op = "CatalogHandler.PostProducts"
	log := slog.With("op", op)

	var ps []Product
	if err := json.NewDecoder(r.Body).Decode(&ps); err != nil {
		http.Error(w, "invalid JSON data", http.StatusBadRequest)
		log.Warn("failed to parse JSON", "err", err)
		return
	}

	domainPs := make([]domain.Product, len(ps))
	for i, p := range ps {
		domainPs[i] = productToDomain(p)
	}

	if err := h.catalog.SaveProducts(r.Context(), domainPs); err != nil {
		http.Error(w, "failed to save products", http.StatusServiceUnavailable)
		log.Error("failed to save products", "err", err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
	log.Info("accepted", "nProducts", len(ps))
}

func (h CatalogHandler) PutProduct(w http.ResponseWriter, r *http.Request) {
	const op = "CatalogHandler.PutProduct"
	log := slog.With("op", op)

	var p Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "invalid JSON data", http.StatusBadRequest)
		log.Warn("failed to parse JSON", "err", err)
		return
	}
	p.Code = r.PathValue("code")

	if err := h.catalog.UpdateProduct(r.Context(), productToDomain(p)); err != nil {
		http.Error(w, "failed to update product", http.StatusServiceUnavailable)
		log.Error("failed to update product", "err", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h CatalogHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	const op = "CatalogHandler.DeleteProduct"
	log := slog.With("op", op)

	err := h.catalog.DeleteByCode(r.Context(), r.PathValue("code"))
	if err != nil {
		http.Error(w, "failed to delete product", http.StatusServiceUnavailable)
		log.Error("failed to delete product", "err", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseProductQuery(r *http.Request) domain.ProductQuery {
	vs := r.URL.Query()

	q := domain.ProductQuery{
		Code:   vs.Get("code"),
		Search: vs.Get("search"),
	}
	if v, err := strconv.Atoi(vs.Get("category_id")); err == nil {
		q.CategoryID = v
	}
	if v, err := strconv.ParseInt(vs.Get("seller_id"), 10, 64); err == nil {
		q.SellerID = v
	}

	switch vs.Get("sort") {
	case "price_asc":
		q.Sort = domain.SortPriceAsc
	case "price_desc":
		q.Sort = domain.SortPriceDesc
	case "rating_desc":
		q.Sort = domain.SortRatingDesc
	case "name_asc":
		q.Sort = domain.SortNameAsc
	}
	return q
}

func writeJSON(w http.ResponseWriter, log *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to write response body", "err", err)
	}
}
