package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCheckoutRateLimiter_Allow(t *testing.T) {
	// 3 attempts per minute
	rl := NewCheckoutRateLimiter(3, time.Minute)
	defer rl.Stop()

	ip := "192.168.1.1"

	// First 3 attempts should be allowed
	for i := 0; i < 3; i++ {
		if !rl.Allow(ip) {
			t.Errorf("Attempt %d should be allowed", i+1)
		}
	}

	// 4th attempt should be blocked
	if rl.Allow(ip) {
		t.Error("4th attempt should be blocked")
	}

	// Different IP should still be allowed
	if !rl.Allow("192.168.1.2") {
		t.Error("Different IP should be allowed")
	}
}

func TestCheckoutRateLimiter_WindowSlides(t *testing.T) {
	rl := NewCheckoutRateLimiter(2, time.Minute)
	defer rl.Stop()

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	ip := "192.168.1.1"
	rl.Allow(ip)
	now = now.Add(30 * time.Second)
	rl.Allow(ip)

	if rl.Allow(ip) {
		t.Error("Should be blocked")
	}

	if retry := rl.RetryAfter(ip); retry != 30*time.Second {
		t.Errorf("Expected 30s until allowed, got %v", retry)
	}

	// The first attempt leaves the window
	now = now.Add(31 * time.Second)
	if !rl.Allow(ip) {
		t.Error("Should be allowed after the oldest attempt expires")
	}
}

func TestCheckoutRateLimit_Middleware(t *testing.T) {
	rl := NewCheckoutRateLimiter(1, time.Minute)
	defer rl.Stop()

	handler := CheckoutRateLimit(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	newRequest := func(method string) *http.Request {
		req := httptest.NewRequest(method, "/checkout", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		return req
	}

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, newRequest("POST"))
	if rr.Code != http.StatusCreated {
		t.Errorf("Expected first checkout to pass, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, newRequest("POST"))
	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("Expected Retry-After header")
	}

	// Reads are never limited
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, newRequest("GET"))
	if rr.Code != http.StatusCreated {
		t.Errorf("Expected GET to pass through, got %d", rr.Code)
	}
}

func TestCheckoutRateLimit_IgnoresSpoofedForwardingHeaders(t *testing.T) {
	rl := NewCheckoutRateLimiter(1, time.Minute)
	defer rl.Stop()

	handler := CheckoutRateLimit(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	for i, forwarded := range []string{"198.51.100.1", "198.51.100.2"} {
		req := httptest.NewRequest("POST", "/checkout", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		req.Header.Set("X-Forwarded-For", forwarded)
		req.Header.Set("X-Real-IP", forwarded)

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		want := http.StatusCreated
		if i > 0 {
			want = http.StatusTooManyRequests
		}
		if rr.Code != want {
			t.Errorf("Request %d with X-Forwarded-For %s: expected %d, got %d", i, forwarded, want, rr.Code)
		}
	}
}
