package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trackvote/internal/repository"
	"trackvote/internal/service/auth"
	"trackvote/pkg/errors"
	"trackvote/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

type fakeValidator struct{}

func (fakeValidator) ValidateToken(token string) (*auth.AdminClaims, error) {
	if token == "good" {
		return &auth.AdminClaims{Role: auth.AdminRole}, nil
	}
	return nil, errors.NewAuthenticationError("Invalid or expired token")
}

func TestAdminAuth(t *testing.T) {
	var gotClaims *auth.AdminClaims
	h := AdminAuth(fakeValidator{}, logger.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims, _ = r.Context().Value(AdminContextKey).(*auth.AdminClaims)
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"invalid token", "Bearer bad", http.StatusUnauthorized},
		{"valid token", "Bearer good", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotClaims = nil
			req := httptest.NewRequest(http.MethodGet, "/api/admin/votes", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				require.NotNil(t, gotClaims)
				assert.Equal(t, auth.AdminRole, gotClaims.Role)
				return
			}
			var body errors.ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, errors.ErrorTypeAuthentication, body.Reason)
			assert.Nil(t, gotClaims)
		})
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "upstream-id")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "upstream-id", seen)
}

func TestQueryCounter(t *testing.T) {
	var counter *repository.QueryCounter
	h := QueryCounter(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		counter = repository.QueryCounterFrom(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotNil(t, counter)
	first := counter

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotSame(t, first, counter, "each request gets its own counter")
}

func TestCORS(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = []string{"https://vote.example"}
	h := CORS(cfg, logger.NewNop())(okHandler)

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/vote/count", nil)
		req.Header.Set("Origin", "https://vote.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "https://vote.example", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))
		assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition")
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/vote", nil)
		req.Header.Set("Origin", "https://vote.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("unknown origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/vote/count", nil)
		req.Header.Set("Origin", "https://evil.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("unknown origin preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/vote", nil)
		req.Header.Set("Origin", "https://evil.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("same-origin request", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"), "keys are independent")

	now = now.Add(61 * time.Second)
	assert.True(t, rl.Allow("1.2.3.4"), "window slides")
}

func TestRateLimiter_ForgetsIdleClients(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 0; i < 100; i++ {
		assert.True(t, rl.Allow(fmt.Sprintf("10.0.0.%d", i)))
	}
	assert.Len(t, rl.requests, 100)

	now = now.Add(30 * time.Second)
	assert.True(t, rl.Allow("10.0.1.1"))

	now = now.Add(45 * time.Second)
	assert.True(t, rl.Allow("10.0.1.2"))
	assert.Len(t, rl.requests, 2, "clients idle for a full window are dropped")
	assert.Contains(t, rl.requests, "10.0.1.1")

	assert.True(t, rl.Allow("10.0.1.1"))
	assert.False(t, rl.Allow("10.0.1.1"), "live clients keep their history")
}

func TestLimit(t *testing.T) {
	h := Limit(NewRateLimiter(1, time.Minute), logger.NewNop())(okHandler)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/login", nil)
	req.RemoteAddr = "10.0.0.1:5555"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", ClientIP(req))

	req.RemoteAddr = "192.0.2.9"
	assert.Equal(t, "192.0.2.9", ClientIP(req))
}
