package httpx

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/andriwidya/go-checkout-saga/internal/orders"
	"github.com/andriwidya/go-checkout-saga/internal/payment"
	"github.com/andriwidya/go-checkout-saga/internal/saga"
)

// PaymentHandler owns the provider-facing surface: the webhook, the manual
// status check, and the public client config.
type PaymentHandler struct {
	Reconciler *saga.Reconciler
	ServerKey  string
	ClientKey  string
	Log        *zap.Logger
}

func (h *PaymentHandler) Register(r *chi.Mux) {
	r.Post("/payment/webhook", h.webhook)
	r.Post("/payment/check-status/{orderId}", h.checkStatus)
	r.Get("/payment/config", h.config)
}

// webhook authenticates the notification before any reconciliation runs.
func (h *PaymentHandler) webhook(w http.ResponseWriter, r *http.Request) {
	var n payment.Notification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := payment.VerifySignature(n, h.ServerKey); err != nil {
		h.Log.Warn("webhook_signature_rejected",
			zap.String("order_id", n.OrderID),
			zap.Error(err),
		)
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	if _, err := h.Reconciler.HandleWebhook(r.Context(), n); err != nil {
		status := orders.HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			h.Log.Error("webhook_failed", zap.String("order_id", n.OrderID), zap.Error(err))
			writeError(w, status, "internal error")
			return
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Webhook processed"})
}

func (h *PaymentHandler) checkStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "orderId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	res, err := h.Reconciler.CheckStatus(r.Context(), id)
	if err != nil {
		status := orders.HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			h.Log.Error("check_status_failed", zap.Int64("order_id", id), zap.Error(err))
			writeError(w, status, "internal error")
			return
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"orderId":        res.OrderID,
		"previousStatus": res.PreviousStatus,
		"currentStatus":  res.CurrentStatus,
		"updated":        res.Updated,
	})
}

func (h *PaymentHandler) config(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"clientKey": h.ClientKey})
}
