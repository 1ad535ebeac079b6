package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCollectors(t *testing.T) {
	m := New()
	m.Line("purchase", "create")
	m.Line("purchase", "create")
	m.Revert("sale", nil)
	m.Revert("sale", errors.New("later movements"))
	m.Pending("purchases", 3)

	require.InDelta(t, 2, testutil.ToFloat64(m.importLines.WithLabelValues("purchase", "create")), 1e-9)
	require.InDelta(t, 1, testutil.ToFloat64(m.reverts.WithLabelValues("sale", "blocked")), 1e-9)
	require.InDelta(t, 3, testutil.ToFloat64(m.pending.WithLabelValues("purchases")), 1e-9)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `kardex_reverts_total{kind="sale",result="ok"} 1`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.Line("sale", "pending")
		m.Revert("purchase", nil)
		m.Pending("sales", 1)
	})
}
