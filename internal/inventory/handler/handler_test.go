package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"kardex-service/internal/inventory/kardex"
	"kardex-service/internal/inventory/ledger"
	"kardex-service/internal/inventory/model"
	"kardex-service/internal/inventory/store"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	st := store.New(&store.MemorySnapshotter{}, model.DefaultSettings(), zerolog.Nop())
	e := ledger.NewEngine(st, nil, nil, zerolog.Nop())
	r := chi.NewRouter()
	New(e, zerolog.Nop(), 1<<20).Routes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestProductEndpoints(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/products", map[string]any{})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, h, http.MethodPost, "/products", map[string]any{"description": "Widget", "category": "Hardware"})
	require.Equal(t, http.StatusCreated, rec.Code)
	p := decodeBody[model.Product](t, rec)
	require.Equal(t, "HAR0001", p.Code)

	rec = do(t, h, http.MethodPost, "/products/"+p.ID+"/adjustments", map[string]any{
		"type": "entry", "quantity": 5, "unitCost": 2, "reason": "opening",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodGet, "/products/"+p.ID+"/kardex", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	k := decodeBody[kardex.Ledger](t, rec)
	require.InDelta(t, 5, k.BalanceQty, 1e-9)

	rec = do(t, h, http.MethodDelete, "/products/"+p.ID, nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPut, "/products/"+p.ID+"/presentations/BOX", map[string]any{"factor": 0})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	rec = do(t, h, http.MethodPut, "/products/"+p.ID+"/presentations/BOX", map[string]any{"factor": 12})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, "/products/"+p.ID+"/deactivate", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, decodeBody[model.Product](t, rec).Active)
	rec = do(t, h, http.MethodGet, "/products", nil)
	require.Empty(t, decodeBody[[]model.Product](t, rec))
	rec = do(t, h, http.MethodGet, "/products?inactive=true", nil)
	require.Len(t, decodeBody[[]model.Product](t, rec), 1)

	rec = do(t, h, http.MethodGet, "/products/missing", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/export/catalog.csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.HasPrefix(rec.Body.String(), "code,description,category"))
}

func TestPurchaseImportAndRevert(t *testing.T) {
	h := newTestRouter(t)

	doc := map[string]any{
		"reference": "DOC-1",
		"party":     "Acme Supply",
		"date":      "2026-03-01T00:00:00Z",
		"lines":     []map[string]any{{"description": "ELECTRICAL BOX 6in", "quantity": 2, "unitPrice": 5}},
	}
	rec := do(t, h, http.MethodPost, "/purchases/analyze", doc)
	require.Equal(t, http.StatusOK, rec.Code)
	an := decodeBody[ledger.Analysis](t, rec)
	require.Equal(t, "create", string(an.Lines[0].Decision.Outcome))

	rec = do(t, h, http.MethodPost, "/purchases", map[string]any{"document": doc})
	require.Equal(t, http.StatusOK, rec.Code)
	res := decodeBody[[]ledger.ImportResult](t, rec)
	require.Equal(t, 1, res[0].Created)

	rec = do(t, h, http.MethodGet, "/alerts/low-stock", nil)
	require.Len(t, decodeBody[[]model.Product](t, rec), 1)

	rec = do(t, h, http.MethodPost, "/purchases/revert", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodPost, "/purchases/revert", nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, "/purchases", map[string]any{})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/purchases", map[string]any{
		"document":      doc,
		"confirmations": []map[string]any{{"line": 0, "action": "link"}},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPurchaseUpload(t *testing.T) {
	h := newTestRouter(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("reference", "INV-77"))
	require.NoError(t, mw.WriteField("party", "Acme Supply"))
	require.NoError(t, mw.WriteField("date", "2026-03-02"))
	fw, err := mw.CreateFormFile("file", "invoice.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("description,qty,unit price\nPaint roller 9in,3,\"4,50\"\nHammer claw 16oz,1,12\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/purchases/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decodeBody[ledger.ImportResult](t, rec)
	require.True(t, res.Applicable)
	require.Equal(t, 2, res.Created)

	rec = do(t, h, http.MethodGet, "/products", nil)
	products := decodeBody[[]model.Product](t, rec)
	require.Len(t, products, 2)
	require.InDelta(t, 4.5, products[0].AverageCost, 1e-9)
}

func TestSalePendingResolution(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/products", map[string]any{"description": "Widget"})
	p := decodeBody[model.Product](t, rec)
	do(t, h, http.MethodPost, "/products/"+p.ID+"/adjustments", map[string]any{"type": "entry", "quantity": 2, "reason": "opening"})

	rec = do(t, h, http.MethodPost, "/sales", map[string]any{"document": map[string]any{
		"reference": "S-1",
		"party":     "Walk-in",
		"date":      "2026-03-03T10:00:00Z",
		"lines":     []map[string]any{{"description": "Mystery gizmo deluxe", "quantity": 1, "unitPrice": 9}},
	}})
	require.Equal(t, http.StatusOK, rec.Code)
	res := decodeBody[ledger.ImportResult](t, rec)
	require.Equal(t, 1, res.Pending)

	rec = do(t, h, http.MethodGet, "/pending/sales", nil)
	require.Len(t, decodeBody[[]model.PendingReconciliation](t, rec), 1)

	rec = do(t, h, http.MethodPost, "/pending/sales/"+res.PendingIDs[0]+"/resolve", map[string]any{"productId": p.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodPost, "/pending/sales/"+res.PendingIDs[0]+"/resolve", map[string]any{"productId": p.ID})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/sales/S-1/revert", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodPost, "/sales/S-1/revert", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSettingsEndpoints(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/settings", nil)
	s := decodeBody[model.Settings](t, rec)
	require.Equal(t, model.CostingAverage, s.CostingMethod)

	s.AutoThreshold, s.AskThreshold = 0.6, 0.8
	rec = do(t, h, http.MethodPut, "/settings", s)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	s.AutoThreshold, s.CostingMethod = 0.95, model.CostingLIFO
	rec = do(t, h, http.MethodPut, "/settings", s)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, model.CostingLIFO, decodeBody[model.Settings](t, rec).CostingMethod)
}
