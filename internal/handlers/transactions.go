package handlers

import (
	"net/http"

	"vidtrans/internal/middleware"
)

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit, offset := parsePage(r)
	txType := r.URL.Query().Get("type")
	transactions, err := h.ledger.ListByUser(r.Context(), userID, txType, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load transactions")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"list": transactions,
	})
}

// TransactionStatistics reports directional ledger totals plus the balance
// recomputed from the ledger itself.
func (h *Handler) TransactionStatistics(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	stats, err := h.ledger.StatsByUser(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load statistics")
		return
	}
	balance, err := h.ledger.SumByUser(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load statistics")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"total_recharged": stats.TotalRecharged,
		"total_consumed":  stats.TotalConsumed,
		"balance":         balance,
	})
}
