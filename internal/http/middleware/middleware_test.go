package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
)

func okHandler(counter *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if counter != nil {
			*counter++
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
}

func TestBearerAuth(t *testing.T) {
	handler := BearerAuth("secret-token")(okHandler(nil))

	testCases := []struct {
		name     string
		path     string
		header   string
		expected int
	}{
		{"valid token", "/dispatch/open", "Bearer secret-token", http.StatusOK},
		{"missing header", "/dispatch/open", "", http.StatusUnauthorized},
		{"wrong token", "/dispatch/open", "Bearer wrong", http.StatusUnauthorized},
		{"wrong scheme", "/dispatch/open", "Basic secret-token", http.StatusUnauthorized},
		{"health exempt", "/health", "", http.StatusOK},
		{"health db exempt", "/health/db", "", http.StatusOK},
		{"root exempt", "/", "", http.StatusOK},
		{"webhook exempt", "/access/hik/webhook", "", http.StatusOK},
		{"plc input exempt", "/plc/di", "", http.StatusOK},
		{"plc output not exempt", "/plc/do/1/1", "", http.StatusUnauthorized},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tc.expected, rec.Code)
		})
	}
}

func TestBearerAuth_EmptyTokenDisablesGuard(t *testing.T) {
	handler := BearerAuth("")(okHandler(nil))
	req := httptest.NewRequest(http.MethodPost, "/dispatch/open", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	handler := RateLimit(1, 2)(okHandler(nil))

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodGet, "/kpi/summary", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	// Burst of 2 passes, then the bucket is empty.
	assert.Equal(t, http.StatusOK, codes[0])
	assert.Equal(t, http.StatusOK, codes[1])
	assert.Equal(t, http.StatusTooManyRequests, codes[2])
	assert.Equal(t, http.StatusTooManyRequests, codes[3])

	// A different client has its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/kpi/summary", nil)
	req.RemoteAddr = "10.0.0.2:5000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit_Disabled(t *testing.T) {
	handler := RateLimit(0, 0)(okHandler(nil))
	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestResponseCache(t *testing.T) {
	hits := 0
	store := cache.New(time.Minute, time.Minute)
	handler := ResponseCache(store, time.Minute)(okHandler(&hits))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/kpi/summary?from=2026-01-01", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, `{"ok":true}`, rec.Body.String())
	}
	assert.Equal(t, 1, hits, "second and third request served from cache")

	// Different query is a different key.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/kpi/summary?from=2026-02-01", nil))
	assert.Equal(t, 2, hits)
}

func TestResponseCache_SkipsNonGet(t *testing.T) {
	hits := 0
	store := cache.New(time.Minute, time.Minute)
	handler := ResponseCache(store, time.Minute)(okHandler(&hits))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/dispatch/open", nil))
	}
	assert.Equal(t, 2, hits)
}

func TestResponseCache_SkipsErrors(t *testing.T) {
	hits := 0
	store := cache.New(time.Minute, time.Minute)
	failing := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusBadGateway)
	})
	handler := ResponseCache(store, time.Minute)(failing)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/kpi/summary", nil))
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	}
	assert.Equal(t, 2, hits)
}
