package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurkanbulca/tasktimer/internal/logging"
)

func TestServer_Endpoints(t *testing.T) {
	healthy := PingFunc(func(context.Context) error { return nil })
	broken := PingFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name   string
		checks map[string]Pinger
		path   string
		code   int
		body   map[string]any
	}{
		{
			name: "liveness",
			path: "/healthz",
			code: http.StatusOK,
			body: map[string]any{"status": "ok"},
		},
		{
			name:   "ready",
			checks: map[string]Pinger{"database": healthy},
			path:   "/readyz",
			code:   http.StatusOK,
			body:   map[string]any{"status": "ready"},
		},
		{
			name:   "not ready",
			checks: map[string]Pinger{"database": healthy, "redis": broken},
			path:   "/readyz",
			code:   http.StatusServiceUnavailable,
			body: map[string]any{
				"status": "unavailable",
				"failed": map[string]any{"redis": "connection refused"},
			},
		},
		{
			name: "version",
			path: "/version",
			code: http.StatusOK,
			body: map[string]any{"version": "1.2.3", "environment": "test"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(":0", BuildInfo{Version: "1.2.3", Environment: "test"}, tt.checks, logging.Discard())

			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.body, body)
		})
	}
}

func TestServer_UnknownRoute(t *testing.T) {
	srv := NewServer(":0", BuildInfo{}, nil, logging.Discard())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tasks", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
