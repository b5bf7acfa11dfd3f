package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"vidtrans/internal/models"
	"vidtrans/internal/store"
)

func TestListTransactions(t *testing.T) {
	h := newTestHandler(handlerDeps{
		ledger: stubLedgerStore{
			listByUserFn: func(_ context.Context, userID, txType string, limit, offset int) ([]models.Transaction, error) {
				if userID != "user-1" || txType != "" || limit != 10 || offset != 0 {
					t.Fatalf("unexpected query: %s %q %d %d", userID, txType, limit, offset)
				}
				return []models.Transaction{{ID: "tx-1", Amount: -60, BalanceAfter: 940}}, nil
			},
		},
	})
	req := httptest.NewRequest(http.MethodGet, "/transactions", nil)
	rr := serveWithAuth(t, h.ListTransactions, req, "user-1")
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	var resp struct {
		List []models.Transaction `json:"list"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if len(resp.List) != 1 || resp.List[0].Amount != -60 {
		t.Fatalf("unexpected response: %#v", resp)
	}
}

func TestTransactionStatistics(t *testing.T) {
	h := newTestHandler(handlerDeps{
		ledger: stubLedgerStore{
			statsByUserFn: func(_ context.Context, userID string) (store.LedgerStats, error) {
				if userID != "user-1" {
					t.Fatalf("unexpected user: %s", userID)
				}
				return store.LedgerStats{TotalRecharged: 2000, TotalConsumed: 1060}, nil
			},
			sumByUserFn: func(_ context.Context, userID string) (int64, error) {
				return 940, nil
			},
		},
	})
	req := httptest.NewRequest(http.MethodGet, "/transactions/statistics", nil)
	rr := serveWithAuth(t, h.TransactionStatistics, req, "user-1")
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	var resp struct {
		TotalRecharged int64 `json:"total_recharged"`
		TotalConsumed  int64 `json:"total_consumed"`
		Balance        int64 `json:"balance"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.TotalRecharged != 2000 || resp.TotalConsumed != 1060 || resp.Balance != 940 {
		t.Fatalf("unexpected response: %#v", resp)
	}
}

func TestListTransactionsTypeFilter(t *testing.T) {
	h := newTestHandler(handlerDeps{
		ledger: stubLedgerStore{
			listByUserFn: func(_ context.Context, _ string, txType string, _ int, _ int) ([]models.Transaction, error) {
				if txType != models.TxTypeRecharge {
					t.Fatalf("unexpected type filter: %q", txType)
				}
				return nil, nil
			},
		},
	})
	req := httptest.NewRequest(http.MethodGet, "/transactions?type=recharge", nil)
	rr := serveWithAuth(t, h.ListTransactions, req, "user-1")
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
}
