package server_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telemart/telemart/internal/server"
	"github.com/telemart/telemart/pkg/commerce"
	"github.com/telemart/telemart/pkg/session"
	"github.com/telemart/telemart/pkg/store/memory"
)

func newHandler(t *testing.T) (*commerce.Service, *session.Manager, *prometheus.Registry) {
	t.Helper()
	svc := commerce.NewService(memory.NewUsers(), memory.NewProducts(), memory.NewOrders())
	mgr := session.NewManager(memory.NewSessions())
	return svc, mgr, prometheus.NewRegistry()
}

func TestBannerAndHealth(t *testing.T) {
	svc, mgr, reg := newHandler(t)
	h := server.Handler(svc, mgr, reg, nil)

	ctx := context.Background()
	_, err := svc.Identify(ctx, 1, "Alice", "alice")
	require.NoError(t, err)
	_, err = mgr.LoadOrStart(ctx, 1)
	require.NoError(t, err)

	t.Run("banner", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
		require.Equal(t, 200, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "telemart", body["service"])
	})

	t.Run("health counts", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
		require.Equal(t, 200, rec.Code)

		var body struct {
			Status string         `json:"status"`
			Counts map[string]int `json:"counts"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "ok", body.Status)
		assert.Equal(t, 1, body.Counts["users"])
		assert.Equal(t, 1, body.Counts["sessions"])
	})

	t.Run("metrics", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
		assert.Equal(t, 200, rec.Code)
	})
}
