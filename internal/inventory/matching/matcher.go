package matching

import (
	"kardex-service/internal/inventory/model"
	"kardex-service/internal/textsim"
)

// Outcome is the reconciliation verdict for one document line.
type Outcome string

const (
	OutcomeUpdate  Outcome = "update"
	OutcomeCreate  Outcome = "create"
	OutcomePending Outcome = "pending"
)

// Method tells how an update decision was reached.
type Method string

const (
	MethodCode       Method = "code"
	MethodMapping    Method = "mapping"
	MethodSimilarity Method = "similarity"
)

// MaxCandidates caps the ranked suggestions carried by a pending decision.
const MaxCandidates = 5

// Catalog is the read side of the store the matcher needs.
type Catalog interface {
	ProductByCode(code string) (*model.Product, bool)
	Recall(description string) (*model.Product, bool)
	ActiveProducts() []*model.Product
}

// Decision is the matcher's proposal for one line.
type Decision struct {
	Outcome    Outcome           `json:"outcome"`
	Method     Method            `json:"method,omitempty"`
	ProductID  string            `json:"productId,omitempty"`
	Score      float64           `json:"score,omitempty"`
	Candidates []model.Candidate `json:"candidates,omitempty"`
}

// Options are the thresholds and toggles of the matching policy.
type Options struct {
	AutoThreshold         float64
	AskThreshold          float64
	FallbackByDescription bool
	ConfirmCreation       bool
}

// OptionsFrom extracts the matching policy from engine settings.
func OptionsFrom(s model.Settings) Options {
	return Options{
		AutoThreshold:         s.AutoThreshold,
		AskThreshold:          s.AskThreshold,
		FallbackByDescription: s.FallbackByDescription,
		ConfirmCreation:       s.ConfirmCreation,
	}
}

// Matcher resolves document lines against the catalog. It never fails; an
// ambiguous line degrades to a pending decision.
type Matcher struct {
	catalog Catalog
	scorer  textsim.Scorer
}

// New builds a matcher. A nil scorer means textsim.BlendScorer.
func New(catalog Catalog, scorer textsim.Scorer) *Matcher {
	if scorer == nil {
		scorer = textsim.BlendScorer{}
	}
	return &Matcher{catalog: catalog, scorer: scorer}
}

// Match runs code → remembered mapping → similarity for one line.
func (m *Matcher) Match(line model.DocumentLine, opt Options) Decision {
	if p, ok := m.catalog.ProductByCode(line.Code); ok {
		return Decision{Outcome: OutcomeUpdate, Method: MethodCode, ProductID: p.ID, Score: 1}
	}
	// nothing to name a new product after
	if textsim.Normalize(line.Description) == "" {
		return Decision{Outcome: OutcomePending}
	}
	if p, ok := m.catalog.Recall(line.Description); ok {
		return Decision{Outcome: OutcomeUpdate, Method: MethodMapping, ProductID: p.ID, Score: 1}
	}
	if !opt.FallbackByDescription {
		return m.unmatched(opt)
	}

	ranked := m.Rank(line.Description, opt.AskThreshold)
	switch {
	case len(ranked) == 0:
		return m.unmatched(opt)
	case len(ranked) == 1 || ranked[0].Score >= opt.AutoThreshold:
		return Decision{Outcome: OutcomeUpdate, Method: MethodSimilarity, ProductID: ranked[0].ProductID, Score: ranked[0].Score}
	}
	if len(ranked) > MaxCandidates {
		ranked = ranked[:MaxCandidates]
	}
	return Decision{Outcome: OutcomePending, Score: ranked[0].Score, Candidates: ranked}
}

// Rank lists active products scoring at least threshold against text, best
// first. Each product scores as its best description or variant.
func (m *Matcher) Rank(text string, threshold float64) []model.Candidate {
	products := m.catalog.ActiveProducts()
	cands := make([]textsim.Candidate, 0, len(products))
	byID := make(map[string]*model.Product, len(products))
	for _, p := range products {
		texts := make([]string, 0, 1+len(p.Variants))
		texts = append(texts, p.Description)
		texts = append(texts, p.Variants...)
		cands = append(cands, textsim.Candidate{ID: p.ID, Texts: texts})
		byID[p.ID] = p
	}
	matches := textsim.Rank(text, cands, threshold, m.scorer)
	out := make([]model.Candidate, 0, len(matches))
	for _, mt := range matches {
		out = append(out, model.Candidate{ProductID: mt.ID, Description: byID[mt.ID].Description, Score: mt.Score})
	}
	return out
}

func (m *Matcher) unmatched(opt Options) Decision {
	if opt.ConfirmCreation {
		return Decision{Outcome: OutcomePending}
	}
	return Decision{Outcome: OutcomeCreate}
}
