package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWorkerAuthAcceptsMatchingToken(t *testing.T) {
	called := false
	handler := WorkerAuth("worker-secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	req := httptest.NewRequest(http.MethodGet, "/tasks/poll", nil)
	req.Header.Set("Authorization", "Bearer worker-secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !called {
		t.Fatalf("unexpected status: %d called=%v", rec.Code, called)
	}
}

func TestWorkerAuthRejectsWrongToken(t *testing.T) {
	handler := WorkerAuth("worker-secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	req := httptest.NewRequest(http.MethodGet, "/tasks/poll", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestWorkerAuthDisabledWhenUnset(t *testing.T) {
	called := false
	handler := WorkerAuth("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	req := httptest.NewRequest(http.MethodGet, "/tasks/poll", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !called {
		t.Fatalf("unexpected status: %d called=%v", rec.Code, called)
	}
}
