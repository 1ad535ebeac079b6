package ledger

import (
	"math"

	"kardex-service/internal/inventory/matching"
	"kardex-service/internal/inventory/model"
	"kardex-service/internal/inventory/units"
)

// LineAnalysis is the proposed handling of one document line.
type LineAnalysis struct {
	Index        int                `json:"index"`
	Line         model.DocumentLine `json:"line"`
	Skipped      bool               `json:"skipped,omitempty"`
	SkipReason   string             `json:"skipReason,omitempty"`
	Decision     matching.Decision  `json:"decision"`
	Presentation string             `json:"presentation,omitempty"`
	Factor       float64            `json:"factor,omitempty"`
	FactorKnown  bool               `json:"factorKnown"`
	BaseQuantity float64            `json:"baseQuantity,omitempty"`
	BaseUnitCost float64            `json:"baseUnitCost,omitempty"`
}

// Analysis previews a document without writing anything.
type Analysis struct {
	DocumentRef string         `json:"documentRef"`
	Applicable  bool           `json:"applicable"`
	Lines       []LineAnalysis `json:"lines"`
}

// AnalyzePurchase proposes a decision for every line of a purchase.
func (e *Engine) AnalyzePurchase(doc model.Document) Analysis {
	return e.analyze(doc, false)
}

// AnalyzeSale proposes a decision for every line of a sale. Sales never
// create products, so unmatched lines are reported as pending.
func (e *Engine) AnalyzeSale(doc model.Document) Analysis {
	return e.analyze(doc, true)
}

func (e *Engine) analyze(doc model.Document, sale bool) Analysis {
	out := Analysis{DocumentRef: doc.Reference, Applicable: doc.Applicable(), Lines: []LineAnalysis{}}
	if !out.Applicable {
		return out
	}
	e.read(func() {
		opt := e.options()
		for i, line := range doc.Lines {
			la := LineAnalysis{Index: i, Line: line}
			if reason := skipReason(line); reason != "" {
				la.Skipped, la.SkipReason = true, reason
				out.Lines = append(out.Lines, la)
				continue
			}
			la.Decision = e.matcher.Match(line, opt)
			if sale && la.Decision.Outcome == matching.OutcomeCreate {
				la.Decision.Outcome = matching.OutcomePending
			}
			base := model.DefaultBaseUnit
			var p *model.Product
			if la.Decision.Outcome == matching.OutcomeUpdate {
				p, _ = e.store.Product(la.Decision.ProductID)
				base = p.BaseUnit
			}
			la.Presentation = units.LinePresentation(line.Unit, line.Description, base)
			if p != nil {
				la.Factor, la.FactorKnown = units.LookupFactor(p, la.Presentation)
			} else {
				la.Factor, la.FactorKnown = 1, la.Presentation == base
			}
			la.BaseQuantity = line.Quantity * la.Factor
			la.BaseUnitCost = units.BaseUnitCost(line.UnitPrice, la.Factor)
			out.Lines = append(out.Lines, la)
		}
	})
	return out
}

func skipReason(line model.DocumentLine) string {
	switch {
	case !line.IsGoods():
		return "not goods"
	case !validQuantity(line.Quantity):
		return "invalid quantity"
	case line.UnitPrice < 0 || math.IsNaN(line.UnitPrice) || math.IsInf(line.UnitPrice, 0):
		return "invalid price"
	}
	return ""
}

func validQuantity(q float64) bool {
	return q > 0 && !math.IsNaN(q) && !math.IsInf(q, 0)
}
