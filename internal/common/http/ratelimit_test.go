package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRateLimiter_BlocksAfterBurst(t *testing.T) {
	rl := NewRateLimiter("test", 0.001, 2, func(r *http.Request) string { return r.Header.Get("X-Key") })
	defer rl.Stop()

	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
		req.Header.Set("X-Key", "alice")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusNoContent || codes[1] != http.StatusNoContent {
		t.Fatalf("expected first two requests to pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("expected third request to be limited, got %d", codes[2])
	}

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.Header.Set("X-Key", "bob")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected separate bucket for another key, got %d", rec.Code)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		remote string
		want   string
	}{
		{"real ip", map[string]string{"X-Real-IP": "10.0.0.1"}, "1.1.1.1:80", "10.0.0.1"},
		{"forwarded chain", map[string]string{"X-Forwarded-For": "10.0.0.2, 10.0.0.3"}, "1.1.1.1:80", "10.0.0.2"},
		{"remote addr", nil, "192.168.1.5:4312", "192.168.1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			if got := GetClientIP(req); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestPathSegments(t *testing.T) {
	segs, ok := PathSegments("/api/admin/realtime/dashboard/connect", "/api/admin/realtime/")
	if !ok || len(segs) != 2 || segs[0] != "dashboard" || segs[1] != "connect" {
		t.Fatalf("unexpected segments %v ok=%v", segs, ok)
	}
	if _, ok := PathSegments("/api/other", "/api/admin/"); ok {
		t.Error("expected prefix mismatch")
	}
	if err := ValidateName("dash-board"); err == nil {
		t.Error("expected invalid name")
	}
	if err := ValidateName("donations"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
