package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AlibekovAA/givematch-portal/internal/common/clock"
	commonerrors "github.com/AlibekovAA/givematch-portal/internal/common/errors"
	"github.com/AlibekovAA/givematch-portal/internal/common/logger"
	"github.com/AlibekovAA/givematch-portal/internal/common/resilience"
)

func testLogger() *logger.Logger {
	log, _ := logger.New("", "test", "error")
	return log
}

func setupClient(t *testing.T, handler http.HandlerFunc, opts ...ClientOption) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL+"/", testLogger(), opts...)
}

func TestClient_PlainArray(t *testing.T) {
	c := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/donations/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`[{"id":1,"donor":"Ada","amount":"25.50","matched_amount":null},{"id":"d-2","amount":10}]`))
	})

	donations, err := c.Donations(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(donations) != 2 {
		t.Fatalf("expected 2 donations, got %d", len(donations))
	}
	if donations[0].ID != "1" || donations[1].ID != "d-2" {
		t.Errorf("unexpected ids %q %q", donations[0].ID, donations[1].ID)
	}
	if donations[0].Amount != 25.5 || donations[0].MatchedAmount != 0 {
		t.Errorf("unexpected amounts %+v", donations[0])
	}
	if donations[1].MatchedAmount != 0 {
		t.Errorf("expected missing matched amount to default to 0, got %v", donations[1].MatchedAmount)
	}
}

func TestClient_ResultsEnvelope(t *testing.T) {
	c := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"count":1,"next":null,"results":[{"id":7,"title":"Winter drive","goal":1000,"raised":"250","status":"active"}]}`))
	})

	campaigns, err := c.Campaigns(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(campaigns) != 1 || campaigns[0].Raised != 250 || !campaigns[0].Active() {
		t.Errorf("unexpected campaigns %+v", campaigns)
	}
}

func TestClient_ForwardsBearerToken(t *testing.T) {
	var auth atomic.Value
	c := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		w.Write([]byte(`[]`))
	})

	ctx := ContextWithToken(context.Background(), "session-token")
	if _, err := c.Users(ctx); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got := auth.Load(); got != "Bearer session-token" {
		t.Errorf("expected bearer header, got %v", got)
	}
}

func TestClient_ServerErrorIsUnavailable(t *testing.T) {
	c := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Leaderboard(context.Background())
	if !errors.Is(err, commonerrors.ErrUpstreamUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestClient_ClientErrorIsNotAnOutage(t *testing.T) {
	c := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := c.Companies(context.Background())
	if !IsClientError(err) {
		t.Fatalf("expected client error, got %v", err)
	}
}

func TestClient_UnexpectedShape(t *testing.T) {
	c := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"detail":"not a list"}`))
	})

	_, err := c.Nonprofits(context.Background())
	if !errors.Is(err, commonerrors.ErrUpstreamBadResponse) {
		t.Fatalf("expected bad response, got %v", err)
	}
}

func TestClient_FetchUnknownResource(t *testing.T) {
	c := setupClient(t, func(w http.ResponseWriter, r *http.Request) {})

	if _, err := c.Fetch(context.Background(), "invoices"); !errors.Is(err, commonerrors.ErrUnknownResource) {
		t.Fatalf("expected unknown resource, got %v", err)
	}
}

func TestClient_BreakerOpensOnOutage(t *testing.T) {
	var hits atomic.Int32
	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Threshold:  2,
		Timeout:    time.Second,
		ResetAfter: time.Minute,
		Name:       "upstream-test",
		Ignore:     IsClientError,
		Clock:      clock.NewMockClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		Logger:     testLogger(),
	})
	c := setupClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, WithBreaker(breaker))

	for i := 0; i < 3; i++ {
		c.Users(context.Background())
	}

	if got := hits.Load(); got != 2 {
		t.Errorf("expected breaker to stop calls after 2 failures, got %d hits", got)
	}
	if _, err := c.Users(context.Background()); !errors.Is(err, commonerrors.ErrCircuitOpen) {
		t.Errorf("expected circuit open, got %v", err)
	}
}

func TestDecodeList_Shapes(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    int
		wantErr bool
	}{
		{"array", `[{"rank":1},{"rank":"2"}]`, 2, false},
		{"envelope", `{"results":[{"rank":1}]}`, 1, false},
		{"null results", `{"results":null}`, 0, false},
		{"empty body", ``, 0, false},
		{"missing results", `{"items":[]}`, 0, true},
		{"results object", `{"results":{"rank":1}}`, 0, true},
		{"scalar", `42`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := decodeList[LeaderboardEntry]([]byte(tt.body))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(items) != tt.want {
				t.Errorf("expected %d items, got %d", tt.want, len(items))
			}
		})
	}
}

func TestNumber_Lenient(t *testing.T) {
	var v struct {
		A Number `json:"a"`
		B Number `json:"b"`
		C Number `json:"c"`
		D Number `json:"d"`
		E Number `json:"e"`
	}
	if err := json.Unmarshal([]byte(`{"a":1.5,"b":"2","c":null,"d":"n/a","e":true}`), &v); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if v.A != 1.5 || v.B != 2 || v.C != 0 || v.D != 0 || v.E != 0 {
		t.Errorf("unexpected values %+v", v)
	}
}
