package serverhttp

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"kardex-service/internal/config"
	invHnd "kardex-service/internal/inventory/handler"
	"kardex-service/internal/inventory/ledger"
	"kardex-service/internal/inventory/model"
	"kardex-service/internal/inventory/store"
	"kardex-service/internal/metrics"
	"kardex-service/internal/middleware"
)

func TestRouterServesHealthAndMetrics(t *testing.T) {
	cfg := config.Config{AllowOrigins: []string{"*"}, MaxUploadMB: 1}
	st := store.New(&store.MemorySnapshotter{}, model.DefaultSettings(), zerolog.Nop())
	m := metrics.New()
	e := ledger.NewEngine(st, nil, m, zerolog.Nop())
	r := NewRouter(cfg, zerolog.Nop(), invHnd.New(e, zerolog.Nop(), cfg.MaxUploadBytes()), m.Handler())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	require.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "kardex_pending_entries")

	big := strings.NewReader(strings.Repeat("x", 2<<20))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/purchases", big))
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
