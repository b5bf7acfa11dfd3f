package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"vidtrans/internal/middleware"
	"vidtrans/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type rechargeRequest struct {
	Amount  json.Number `json:"amount"`
	Channel string      `json:"channel"`
}

func (h *Handler) Recharge(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req rechargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	amount, err := decimal.NewFromString(req.Amount.String())
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid amount")
		return
	}
	if req.Channel == "" {
		req.Channel = "alipay"
	}
	result, err := h.recharge.Recharge(r.Context(), userID, amount, req.Channel)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidAmount), errors.Is(err, services.ErrInvalidChannel):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "recharge failed")
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"order_no": result.OrderNo,
		"amount":   result.Amount,
		"points":   result.Points,
		"channel":  result.Channel,
		"status":   result.Status,
		"balance":  result.Balance,
	})
}

func (h *Handler) RechargeRate(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"rate": h.cfg.PointsPerUnit,
	})
}

func (h *Handler) OrderStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	orderNo := chi.URLParam(r, "orderNo")
	order, err := h.recharge.OrderStatus(r.Context(), userID, orderNo)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			respondError(w, http.StatusNotFound, "order not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load order")
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// AlipayCallback is a payment-gateway stub: it re-drives settlement for the
// referenced order and always acknowledges in the gateway's format.
func (h *Handler) AlipayCallback(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		_, _ = w.Write([]byte("fail"))
		return
	}
	orderNo := r.FormValue("out_trade_no")
	tradeStatus := r.FormValue("trade_status")
	if orderNo != "" && (tradeStatus == "TRADE_SUCCESS" || tradeStatus == "TRADE_FINISHED") {
		_, _ = h.recharge.CompleteOrder(r.Context(), orderNo)
	}
	_, _ = w.Write([]byte("success"))
}

// WechatCallback is a stub acknowledgement in WeChat Pay's XML format.
func (h *Handler) WechatCallback(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/xml")
	_, _ = w.Write([]byte("<xml><return_code><![CDATA[SUCCESS]]></return_code><return_msg><![CDATA[OK]]></return_msg></xml>"))
}
