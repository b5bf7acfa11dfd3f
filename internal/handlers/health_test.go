package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealth(t *testing.T) {
	h := newTestHandler(handlerDeps{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	h.Health(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp["status"] != "ok" {
		t.Fatalf("unexpected response: %#v", resp)
	}
}

func TestHealthDatabaseDown(t *testing.T) {
	h := newTestHandler(handlerDeps{
		database: stubPinger{err: errors.New("connection refused")},
	})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	h.Health(rr, req)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("unreachable database must fail the probe: %d", rr.Code)
	}
}
