package httpx

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/andriwidya/go-checkout-saga/internal/orders"
)

// Catalog is the read-only product view; CRUD lives elsewhere.
type Catalog interface {
	GetProduct(ctx context.Context, id int64) (*orders.Product, error)
	ListProducts(ctx context.Context) ([]orders.Product, error)
}

type CatalogHandler struct {
	Store Catalog
	Log   *zap.Logger
}

func (h *CatalogHandler) Register(r *chi.Mux) {
	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.getProduct)
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ps, err := h.Store.ListProducts(r.Context())
	if err != nil {
		h.Log.Error("list_products_failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if ps == nil {
		ps = []orders.Product{}
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *CatalogHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	p, err := h.Store.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, orders.HTTPStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}
