package matching

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"kardex-service/internal/inventory/model"
	"kardex-service/internal/inventory/store"
	"kardex-service/internal/textsim"
)

func newCatalog(t *testing.T, descriptions ...string) (*store.Store, []*model.Product) {
	t.Helper()
	s := store.New(nil, model.DefaultSettings(), zerolog.Nop())
	var out []*model.Product
	for _, d := range descriptions {
		p, err := s.CreateProduct(d, "", "")
		require.NoError(t, err)
		out = append(out, p)
	}
	return s, out
}

func defaultOptions() Options { return OptionsFrom(model.DefaultSettings()) }

func TestMatchByCode(t *testing.T) {
	s, ps := newCatalog(t, "Hammer")
	_, err := s.UpdateProduct(ps[0].ID, store.ProductPatch{SupplierCode: ptr("SUP-77")})
	require.NoError(t, err)
	m := New(s, nil)

	d := m.Match(model.DocumentLine{Code: ps[0].Code, Description: "something else"}, defaultOptions())
	require.Equal(t, OutcomeUpdate, d.Outcome)
	require.Equal(t, MethodCode, d.Method)
	require.Equal(t, ps[0].ID, d.ProductID)

	d = m.Match(model.DocumentLine{Code: "sup-77"}, defaultOptions())
	require.Equal(t, MethodCode, d.Method)
	require.Equal(t, ps[0].ID, d.ProductID)
}

func TestMatchByRememberedMapping(t *testing.T) {
	s, ps := newCatalog(t, "Hammer")
	s.Remember("MARTILLO GRANDE", ps[0].ID)
	d := New(s, nil).Match(model.DocumentLine{Description: "martillo  grande"}, defaultOptions())
	require.Equal(t, OutcomeUpdate, d.Outcome)
	require.Equal(t, MethodMapping, d.Method)
}

func TestMatchSingleCandidateResolves(t *testing.T) {
	s, ps := newCatalog(t, "pvc pipe elbow 90 degree white", "Hammer")
	d := New(s, nil).Match(model.DocumentLine{Description: "pvc pipe elbow 90 degree"}, defaultOptions())
	require.Equal(t, OutcomeUpdate, d.Outcome)
	require.Equal(t, MethodSimilarity, d.Method)
	require.Equal(t, ps[0].ID, d.ProductID)
	require.InDelta(t, 0.84, d.Score, 1e-9)
}

func TestMatchTopAboveAutoResolvesAmongMany(t *testing.T) {
	s, ps := newCatalog(t, "pvc pipe elbow 45 degree", "pvc pipe elbow 90 degree white")
	d := New(s, nil).Match(model.DocumentLine{Description: "PVC pipe elbow 90 degree white"}, defaultOptions())
	require.Equal(t, OutcomeUpdate, d.Outcome)
	require.Equal(t, ps[1].ID, d.ProductID)
}

func TestMatchAmbiguousGoesPending(t *testing.T) {
	s, ps := newCatalog(t, "pvc pipe elbow 90 degree white", "pvc pipe elbow 45 degree white")
	d := New(s, nil).Match(model.DocumentLine{Description: "pvc pipe elbow 90 degree"}, defaultOptions())
	require.Equal(t, OutcomePending, d.Outcome)
	require.Len(t, d.Candidates, 2)
	ids := []string{d.Candidates[0].ProductID, d.Candidates[1].ProductID}
	require.ElementsMatch(t, []string{ps[0].ID, ps[1].ID}, ids)
}

func TestMatchPendingCapsCandidates(t *testing.T) {
	descs := make([]string, 7)
	for i := range descs {
		descs[i] = "pvc pipe elbow 45 degree white"
	}
	s, _ := newCatalog(t, descs...)
	d := New(s, nil).Match(model.DocumentLine{Description: "pvc pipe elbow 90 degree"}, defaultOptions())
	require.Equal(t, OutcomePending, d.Outcome)
	require.Len(t, d.Candidates, MaxCandidates)
}

func TestMatchNoCandidates(t *testing.T) {
	s, _ := newCatalog(t, "Hammer")
	m := New(s, nil)
	d := m.Match(model.DocumentLine{Description: "Portland cement"}, defaultOptions())
	require.Equal(t, OutcomeCreate, d.Outcome)

	opt := defaultOptions()
	opt.ConfirmCreation = true
	d = m.Match(model.DocumentLine{Description: "Portland cement"}, opt)
	require.Equal(t, OutcomePending, d.Outcome)
	require.Empty(t, d.Candidates)
}

func TestMatchWithoutDescriptionFallback(t *testing.T) {
	s, _ := newCatalog(t, "pvc pipe elbow 90 degree white")
	opt := defaultOptions()
	opt.FallbackByDescription = false
	d := New(s, nil).Match(model.DocumentLine{Description: "pvc pipe elbow 90 degree white"}, opt)
	require.Equal(t, OutcomeCreate, d.Outcome)
}

func TestMatchSkipsInactive(t *testing.T) {
	s, ps := newCatalog(t, "Hammer")
	require.NoError(t, s.Deactivate(ps[0].ID))
	d := New(s, nil).Match(model.DocumentLine{Code: ps[0].Code, Description: "Hammer"}, defaultOptions())
	require.Equal(t, OutcomeCreate, d.Outcome)
}

func TestMatchConsidersVariants(t *testing.T) {
	s, ps := newCatalog(t, "Hammer", "Saw")
	require.NoError(t, s.AddVariant(ps[1].ID, "hand saw 24in steel"))
	d := New(s, nil).Match(model.DocumentLine{Description: "Hand saw 24in steel"}, defaultOptions())
	require.Equal(t, OutcomeUpdate, d.Outcome)
	require.Equal(t, ps[1].ID, d.ProductID)
}

func TestMatchBlankDescriptionGoesPending(t *testing.T) {
	s, _ := newCatalog(t, "Hammer")
	m := New(s, nil)
	for _, desc := range []string{"", "   ", "---", "*/*"} {
		d := m.Match(model.DocumentLine{Code: "ZZ-9", Description: desc}, defaultOptions())
		require.Equal(t, OutcomePending, d.Outcome, "description %q", desc)
	}
}

func TestMatchWithEditScorer(t *testing.T) {
	s, ps := newCatalog(t, "electrical box 6in")
	d := New(s, textsim.EditScorer{}).Match(model.DocumentLine{Description: "box electrical 6in"}, defaultOptions())
	require.Equal(t, OutcomeUpdate, d.Outcome)
	require.Equal(t, ps[0].ID, d.ProductID)
}

func ptr[T any](v T) *T { return &v }
