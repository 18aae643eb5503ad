package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ctxKey string

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusAccepted)
	})
}

func TestPipelineRunsStagesInOrder(t *testing.T) {
	var order []string
	stage := func(name string) Stage {
		return func(r *http.Request) (*http.Request, *Rejection) {
			order = append(order, name)
			return r.WithContext(context.WithValue(r.Context(), ctxKey(name), true)), nil
		}
	}

	var seen bool
	h := Pipeline(stage("first"), stage("second"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Context().Value(ctxKey("first")) == true && r.Context().Value(ctxKey("second")) == true
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/leads/", nil))

	assert.Equal(t, []string{"first", "second"}, order)
	assert.True(t, seen, "handler receives the request returned by the last stage")
}

func TestPipelineStopsAtFirstRejection(t *testing.T) {
	var laterRan, called bool
	reject := func(r *http.Request) (*http.Request, *Rejection) {
		return nil, Reject(http.StatusForbidden, "nope")
	}
	later := func(r *http.Request) (*http.Request, *Rejection) {
		laterRan = true
		return r, nil
	}

	rec := httptest.NewRecorder()
	Pipeline(reject, later)(okHandler(&called)).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"nope"}`, rec.Body.String())
	assert.False(t, laterRan)
	assert.False(t, called)
}

func TestMaxBodyStage(t *testing.T) {
	var called bool
	h := Pipeline(MaxBodyStage(16))(okHandler(&called))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 64))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.False(t, called)

	// Unknown length bodies are cut off while reading.
	var readErr error
	h = Pipeline(MaxBodyStage(16))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))
	req := httptest.NewRequest(http.MethodPost, "/", io.NopCloser(strings.NewReader(strings.Repeat("x", 64))))
	req.ContentLength = -1
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.Error(t, readErr)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		xff        string
		remoteAddr string
		want       string
	}{
		{"first forwarded hop", "203.0.113.7, 10.0.0.1", "10.0.0.2:5555", "203.0.113.7"},
		{"forwarded hop is trimmed", "  198.51.100.4  ", "10.0.0.2:5555", "198.51.100.4"},
		{"remote addr host", "", "192.0.2.10:41234", "192.0.2.10"},
		{"ipv6 remote addr", "", "[2001:db8::1]:443", "2001:db8::1"},
		{"remote addr without port", "", "192.0.2.11", "192.0.2.11"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, ClientIP(req))
		})
	}
}
