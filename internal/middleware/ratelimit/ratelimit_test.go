package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *time.Time) {
	t.Helper()
	rl := NewLimiter(cfg)
	t.Cleanup(rl.Stop)
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }
	return rl, &clock
}

func TestAllow_Window(t *testing.T) {
	rl, clock := newTestLimiter(t, Config{RequestsPerMinute: 3})

	for i := 0; i < 3; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("request %d rejected", i+1)
		}
	}
	if rl.Allow("1.2.3.4") {
		t.Fatal("fourth request in the window allowed")
	}
	if !rl.Allow("5.6.7.8") {
		t.Fatal("other clients have their own budget")
	}

	*clock = clock.Add(30 * time.Second)
	if rl.Allow("1.2.3.4") {
		t.Fatal("window must not slide on rejected requests")
	}
	*clock = clock.Add(30 * time.Second)
	if !rl.Allow("1.2.3.4") {
		t.Fatal("new window should allow again")
	}

	if m := rl.GetMetrics(); m.TotalHits != 2 || m.ClientCount != 2 {
		t.Fatalf("metrics = %+v", m)
	}
}

func TestCleanupStaleEntries(t *testing.T) {
	rl, clock := newTestLimiter(t, Config{RequestsPerMinute: 1})
	rl.Allow("old")
	*clock = clock.Add(11 * time.Minute)
	rl.Allow("new")
	rl.cleanupStaleEntries()
	if rl.ActiveClients() != 1 {
		t.Fatalf("active clients = %d", rl.ActiveClients())
	}
}

func TestMiddleware_OnlyLimitsConfiguredMethods(t *testing.T) {
	rl, _ := newTestLimiter(t, Config{RequestsPerMinute: 1, Methods: []string{http.MethodPost}})
	h := rl.Middleware(func(*http.Request) string { return "ip" }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	tests := []struct {
		method string
		want   int
	}{
		{http.MethodPost, http.StatusNoContent},
		{http.MethodPost, http.StatusTooManyRequests},
		{http.MethodGet, http.StatusNoContent},
		{http.MethodGet, http.StatusNoContent},
	}
	for i, tt := range tests {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(tt.method, "/sync", nil))
		if rr.Code != tt.want {
			t.Fatalf("request %d (%s) = %d, want %d", i, tt.method, rr.Code, tt.want)
		}
		if tt.want == http.StatusTooManyRequests && rr.Header().Get("Retry-After") != "60" {
			t.Fatalf("missing Retry-After")
		}
	}
}

func TestNewLimiter_Defaults(t *testing.T) {
	rl := NewLimiter(Config{})
	defer rl.Stop()
	if rl.cfg.RequestsPerMinute != 60 || rl.cfg.Window != time.Minute || rl.cfg.CleanupInterval != 5*time.Minute {
		t.Fatalf("defaults not applied: %+v", rl.cfg)
	}
	if !rl.Applies(http.MethodGet) {
		t.Fatal("empty method list limits every method")
	}
	rl.Stop()
}

func TestMiddleware_RetryAfterCountsDown(t *testing.T) {
	rl, clock := newTestLimiter(t, Config{RequestsPerMinute: 1})
	h := rl.Middleware(func(*http.Request) string { return "ip" }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/budget", nil))

	tests := []struct {
		elapsed time.Duration
		want    string
	}{
		{20 * time.Second, "40"},
		{39500 * time.Millisecond, "21"},
		{59 * time.Second, "1"},
	}
	start := *clock
	for _, tt := range tests {
		*clock = start.Add(tt.elapsed)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/budget", nil))
		if rr.Code != http.StatusTooManyRequests {
			t.Fatalf("after %v: code = %d", tt.elapsed, rr.Code)
		}
		if got := rr.Header().Get("Retry-After"); got != tt.want {
			t.Errorf("after %v: Retry-After = %q, want %q", tt.elapsed, got, tt.want)
		}
	}
}
