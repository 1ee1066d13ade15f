package httpx

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/andriwidya/go-checkout-saga/internal/orders"
	"github.com/andriwidya/go-checkout-saga/internal/saga"
)

// OrdersHandler exposes the checkout saga. The verified user id arrives in
// X-User-Id from the upstream auth layer.
type OrdersHandler struct {
	Saga *saga.Orchestrator
	Log  *zap.Logger
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
}

func userID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.Header.Get("X-User-Id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing user")
		return
	}

	var in saga.CreateOrderInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	res, err := h.Saga.CreateOrder(r.Context(), uid, in)
	if err != nil {
		status := orders.HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			h.Log.Error("create_order_failed", zap.Int64("user_id", uid), zap.Error(err))
			writeError(w, status, "internal error")
			return
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing user")
		return
	}
	out, err := h.Saga.ListUserOrders(r.Context(), uid)
	if err != nil {
		h.Log.Error("list_orders_failed", zap.Int64("user_id", uid), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if out == nil {
		out = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing user")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	res, err := h.Saga.GetOrder(r.Context(), uid, id)
	if err != nil {
		status := orders.HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			h.Log.Error("get_order_failed", zap.Int64("order_id", id), zap.Error(err))
			writeError(w, status, "internal error")
			return
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}
