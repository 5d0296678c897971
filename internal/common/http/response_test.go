package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequireMethod_RejectsWithEnvelope(t *testing.T) {
	called := false
	h := RequireMethod(http.MethodGet)(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/api/dashboard", nil))

	if called {
		t.Error("expected handler not to run")
	}
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	var env ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Code != CodeMethodNotAllowed || env.Message == "" {
		t.Errorf("unexpected envelope %+v", env)
	}
}
