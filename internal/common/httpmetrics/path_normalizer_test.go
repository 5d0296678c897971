package httpmetrics

import "testing"

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"/api/dashboard", "/api/dashboard"},
		{"/api/donations/42", "/api/donations/{param}"},
		{"/api/notifications/6f1c1c2e-4b7a-4f4e-9d5b-0a1b2c3d4e5f", "/api/notifications/{param}"},
		{"/api/admin/realtime/dashboard/connect", "/api/admin/realtime/{channel}/connect"},
		{"/api/admin/realtime/anything", "/api/admin/realtime/{channel}"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizePath(tt.in); got != tt.want {
				t.Errorf("NormalizePath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
