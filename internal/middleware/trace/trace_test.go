package trace

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMiddleware_RequestID(t *testing.T) {
	var seen string
	var observed int
	m := NewMiddleware(nil, func(r *http.Request, status int, _ time.Duration) {
		observed = status
	})
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r)
		w.WriteHeader(http.StatusCreated)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"generated when absent", "", false},
		{"honours caller id", "abc-123", true},
		{"replaces unsafe id", "bad id\n", false},
		{"replaces overlong id", strings.Repeat("x", 65), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			if tt.incoming != "" {
				req.Header.Set(HeaderRequestID, tt.incoming)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			got := rr.Header().Get(HeaderRequestID)
			if got != seen {
				t.Fatalf("header %q != context %q", got, seen)
			}
			if tt.keep && got != tt.incoming {
				t.Fatalf("id = %q, want %q", got, tt.incoming)
			}
			if !tt.keep && !strings.HasPrefix(got, "req_") {
				t.Fatalf("id = %q, want generated", got)
			}
			if observed != http.StatusCreated {
				t.Fatalf("observed status = %d", observed)
			}
		})
	}
	if m.GetMetrics().TotalRequests != 4 {
		t.Fatalf("total = %d", m.GetMetrics().TotalRequests)
	}
}

func TestGenerateRequestID_Unique(t *testing.T) {
	a, b := GenerateRequestID(), GenerateRequestID()
	if a == b || len(a) != len("req_")+16 {
		t.Fatalf("ids %q %q", a, b)
	}
}
