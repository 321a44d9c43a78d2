// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mockserver

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestValidateBearerToken(t *testing.T) {
	tests := []struct {
		token, expected string
		want            bool
	}{
		{"secret", "secret", true},
		{"secret", "other", false},
		{"", "secret", false},
		{"secret", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		if got := ValidateBearerToken(tt.token, tt.expected); got != tt.want {
			t.Errorf("ValidateBearerToken(%q, %q) = %v, want %v", tt.token, tt.expected, got, tt.want)
		}
	}
}

func TestAuthMiddleware(t *testing.T) {
	var logs bytes.Buffer
	h := AuthMiddleware("secret", testLogger(&logs))(okHandler)

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"valid", "/editor/analyze", "Bearer secret", http.StatusOK},
		{"missing", "/editor/analyze", "", http.StatusUnauthorized},
		{"wrong scheme", "/editor/analyze", "Basic secret", http.StatusUnauthorized},
		{"wrong token", "/editor/analyze", "Bearer nope", http.StatusUnauthorized},
		{"health open", "/health", "", http.StatusOK},
		{"metrics open", "/metrics", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
	assert.Contains(t, logs.String(), "AUTH_DENIED")
	assert.Contains(t, logs.String(), "reason=invalid_token")
}

func TestAuthMiddlewareDisabled(t *testing.T) {
	h := AuthMiddleware("", testLogger(&bytes.Buffer{}))(okHandler)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/editor/story-brain/p1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"), "burst exhausted")
	assert.True(t, rl.Allow("10.0.0.2"), "buckets are per IP")
}

func TestRateLimitMiddleware(t *testing.T) {
	var logs bytes.Buffer
	h := RateLimitMiddleware(NewRateLimiter(1, 1), testLogger(&logs))(okHandler)

	send := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "203.0.113.7:5000"
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send().Code)
	rec := send()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Contains(t, logs.String(), "RATE_LIMIT_EXCEEDED")
}

func TestLoggingMiddleware(t *testing.T) {
	var logs bytes.Buffer
	h := LoggingMiddleware(testLogger(&logs))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	out := logs.String()
	assert.Contains(t, out, "HTTP_REQUEST")
	assert.Contains(t, out, "status=418")
	assert.Contains(t, out, "path=/health")
}

func TestRecoveryMiddleware(t *testing.T) {
	var logs bytes.Buffer
	h := RecoveryMiddleware(testLogger(&logs))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/editor/analyze", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, logs.String(), "PANIC_RECOVERED")
	assert.Contains(t, rec.Body.String(), `"detail"`)
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	Chain(mark("a"), mark("b"), mark("c"))(okHandler).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{"direct", "203.0.113.7:5000", "", "", "203.0.113.7"},
		{"remote cannot spoof", "203.0.113.7:5000", "10.1.1.1", "", "203.0.113.7"},
		{"loopback proxy forwards", "127.0.0.1:5000", "198.51.100.2, 10.0.0.1", "", "198.51.100.2"},
		{"real ip header", "[::1]:5000", "", "198.51.100.3", "198.51.100.3"},
		{"garbage header ignored", "127.0.0.1:5000", "not-an-ip", "", "127.0.0.1"},
		{"no port", "203.0.113.9", "", "", "203.0.113.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			assert.Equal(t, tt.want, GetClientIP(req))
		})
	}
}
