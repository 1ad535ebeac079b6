package ledger

import (
	"context"
	"fmt"

	"kardex-service/internal/inventory/matching"
	"kardex-service/internal/inventory/model"
	"kardex-service/internal/inventory/store"
	"kardex-service/internal/inventory/units"
)

// Action is a caller's decision for one line, overriding the matcher.
type Action string

const (
	ActionAuto   Action = ""
	ActionLink   Action = "link"
	ActionCreate Action = "create"
	ActionSkip   Action = "skip"
)

// Confirmation overrides the matcher for the line at index Line.
type Confirmation struct {
	Line      int    `json:"line"`
	Action    Action `json:"action" validate:"omitempty,oneof=link create skip"`
	ProductID string `json:"productId,omitempty" validate:"required_if=Action link"`
	Remember  bool   `json:"remember,omitempty"`
}

// PurchaseDocument is one document of a purchase batch.
type PurchaseDocument struct {
	Document      model.Document `json:"document"`
	Confirmations []Confirmation `json:"confirmations,omitempty" validate:"dive"`
}

// ImportResult summarizes one imported document.
type ImportResult struct {
	DocumentRef       string   `json:"documentRef"`
	Applicable        bool     `json:"applicable"`
	Created           int      `json:"created"`
	Updated           int      `json:"updated"`
	Pending           int      `json:"pending"`
	Skipped           int      `json:"skipped"`
	CreatedProductIDs []string `json:"createdProductIds"`
	PendingIDs        []string `json:"pendingIds"`
	// product id -> presentations imported at the default factor of 1
	PendingPresentations map[string][]string `json:"pendingPresentations,omitempty"`
}

func newImportResult(doc model.Document) ImportResult {
	return ImportResult{
		DocumentRef:       doc.Reference,
		Applicable:        doc.Applicable(),
		CreatedProductIDs: []string{},
		PendingIDs:        []string{},
	}
}

func (r *ImportResult) pendingPresentation(productID, name string) {
	if r.PendingPresentations == nil {
		r.PendingPresentations = map[string][]string{}
	}
	for _, n := range r.PendingPresentations[productID] {
		if n == name {
			return
		}
	}
	r.PendingPresentations[productID] = append(r.PendingPresentations[productID], name)
}

// ImportPurchase imports one purchase document as its own batch.
func (e *Engine) ImportPurchase(ctx context.Context, doc model.Document, confirms []Confirmation) (ImportResult, error) {
	res, err := e.ImportPurchases(ctx, []PurchaseDocument{{Document: doc, Confirmations: confirms}})
	if err != nil {
		return ImportResult{}, err
	}
	return res[0], nil
}

// ImportPurchases imports a batch of purchase documents in one transaction
// and records the batch as the one RevertLastImport undoes. Documents
// without a reference, party, date or lines are skipped.
func (e *Engine) ImportPurchases(ctx context.Context, docs []PurchaseDocument) ([]ImportResult, error) {
	results := make([]ImportResult, len(docs))
	err := e.transact(ctx, "import purchases", func() error {
		rec := &model.BatchImportRecord{DocumentRefs: []string{}, CreatedProductIDs: []string{}, At: e.store.Now()}
		for i, d := range docs {
			results[i] = newImportResult(d.Document)
			if !results[i].Applicable {
				results[i].Skipped = len(d.Document.Lines)
				continue
			}
			if err := e.importPurchase(d.Document, d.Confirmations, rec, &results[i]); err != nil {
				return fmt.Errorf("purchase %s: %w", d.Document.Reference, err)
			}
			if !rec.Has(d.Document.Reference) {
				rec.DocumentRefs = append(rec.DocumentRefs, d.Document.Reference)
			}
			rec.CreatedProductIDs = append(rec.CreatedProductIDs, results[i].CreatedProductIDs...)
		}
		if len(rec.DocumentRefs) > 0 {
			e.store.SetLastImport(rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		if !r.Applicable {
			e.logger.Warn().Str("doc_ref", r.DocumentRef).Msg("purchase document not applicable, skipped")
			continue
		}
		e.logger.Info().
			Str("doc_ref", r.DocumentRef).
			Int("created", r.Created).
			Int("updated", r.Updated).
			Int("pending", r.Pending).
			Int("skipped", r.Skipped).
			Msg("purchase imported")
	}
	return results, nil
}

func (e *Engine) importPurchase(doc model.Document, confirms []Confirmation, rec *model.BatchImportRecord, res *ImportResult) error {
	byLine := make(map[int]Confirmation, len(confirms))
	for _, c := range confirms {
		byLine[c.Line] = c
	}
	opt := e.options()
	sp := e.supplier(doc, rec)

	for i, line := range doc.Lines {
		if skipReason(line) != "" {
			res.Skipped++
			e.metrics.Line("purchase", "skipped")
			continue
		}
		c := byLine[i]
		var (
			p       *model.Product
			created bool
			err     error
		)
		switch c.Action {
		case ActionSkip:
			res.Skipped++
			e.metrics.Line("purchase", "skipped")
			continue
		case ActionLink:
			if p, err = e.store.Product(c.ProductID); err != nil {
				return err
			}
			if c.Remember {
				e.learn(line.Description, p.ID)
			}
		case ActionCreate:
			if p, err = e.createFromLine(line, ""); err != nil {
				return err
			}
			created = true
		default:
			d := e.matcher.Match(line, opt)
			switch d.Outcome {
			case matching.OutcomeUpdate:
				p, _ = e.store.Product(d.ProductID)
				if d.Method == matching.MethodSimilarity {
					e.learn(line.Description, p.ID)
				}
			case matching.OutcomeCreate:
				if p, err = e.createFromLine(line, ""); err != nil {
					return err
				}
				created = true
			default:
				pr := e.store.AddPending(store.QueuePurchases, model.PendingReconciliation{
					DocumentRef: doc.Reference,
					Party:       doc.Party,
					PartyTaxID:  doc.PartyTaxID,
					Date:        doc.Date,
					Line:        line,
					Candidates:  d.Candidates,
				})
				res.Pending++
				res.PendingIDs = append(res.PendingIDs, pr.ID)
				e.metrics.Line("purchase", string(matching.OutcomePending))
				continue
			}
		}

		if err := e.applyPurchaseLine(doc, line, p, sp, rec, res); err != nil {
			return err
		}
		if created {
			res.Created++
			res.CreatedProductIDs = append(res.CreatedProductIDs, p.ID)
			e.metrics.Line("purchase", string(matching.OutcomeCreate))
		} else {
			res.Updated++
			e.metrics.Line("purchase", string(matching.OutcomeUpdate))
		}
	}
	return nil
}

// supplier returns the document's supplier, noting it in rec when the batch
// is the first to buy from it.
func (e *Engine) supplier(doc model.Document, rec *model.BatchImportRecord) *model.Supplier {
	_, known := e.store.FindSupplier(doc.Party)
	sp := e.store.Supplier(doc.Party, doc.PartyTaxID)
	if rec != nil && sp != nil && !known {
		rec.CreatedSupplierIDs = append(rec.CreatedSupplierIDs, sp.ID)
	}
	return sp
}

// applyPurchaseLine writes the lot and entry movement for one line. A non-nil
// rec keeps what a revert needs to restore.
func (e *Engine) applyPurchaseLine(doc model.Document, line model.DocumentLine, p *model.Product, sp *model.Supplier, rec *model.BatchImportRecord, res *ImportResult) error {
	presentation := units.LinePresentation(line.Unit, line.Description, p.BaseUnit)
	factor, pending := units.ResolveFactor(p, presentation)
	if pending {
		res.pendingPresentation(p.ID, presentation)
	}
	qty := line.Quantity * factor
	cost := units.BaseUnitCost(line.UnitPrice, factor)

	lot := model.Lot{Quantity: qty, UnitCost: cost, EntryDate: doc.Date, SupplierCode: line.Code}
	if sp != nil {
		lot.SupplierID, lot.SupplierName = sp.ID, sp.Name
	}
	rec.NotePurchase(p, sp)
	lot, err := e.store.AddLot(p.ID, lot)
	if err != nil {
		return err
	}
	cost = lot.UnitCost
	e.store.AppendMovement(model.Movement{
		ProductID:        p.ID,
		Type:             model.MovementEntry,
		Quantity:         qty,
		OriginalQuantity: line.Quantity,
		Presentation:     presentation,
		Factor:           factor,
		UnitCost:         &cost,
		LotID:            lot.ID,
		DocumentRef:      doc.Reference,
		Date:             doc.Date,
		Party:            doc.Party,
	})
	e.store.RecordPurchase(sp, qty*cost, doc.Date)
	return nil
}

func (e *Engine) createFromLine(line model.DocumentLine, category string) (*model.Product, error) {
	p, err := e.store.CreateProduct(line.Description, category, line.Code)
	if err != nil {
		return nil, err
	}
	e.store.Remember(line.Description, p.ID)
	return p, nil
}

// learn remembers a description for a product and keeps it as a variant.
func (e *Engine) learn(description, productID string) {
	e.store.Remember(description, productID)
	_ = e.store.AddVariant(productID, description)
}

// PendingPurchases lists purchase lines awaiting a decision.
func (e *Engine) PendingPurchases() []model.PendingReconciliation {
	var out []model.PendingReconciliation
	e.read(func() { out = clonePending(e.store.Pending(store.QueuePurchases)) })
	return out
}

// Resolution settles one pending purchase line.
type Resolution struct {
	ProductID   string `json:"productId,omitempty" validate:"required_without=Create"`
	Create      bool   `json:"create,omitempty"`
	Remember    bool   `json:"remember,omitempty"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
}

// ResolveResult tells which product a pending line was applied to.
type ResolveResult struct {
	ProductID            string   `json:"productId"`
	Created              bool     `json:"created"`
	PendingPresentations []string `json:"pendingPresentations,omitempty"`
}

// ResolvePendingPurchase applies a pending purchase line to a chosen or
// newly created product and removes the entry. A second call for the same
// entry fails with ErrPendingNotFound.
func (e *Engine) ResolvePendingPurchase(ctx context.Context, id string, r Resolution) (ResolveResult, error) {
	var out ResolveResult
	err := e.transact(ctx, "resolve pending purchase", func() error {
		entry, ok := e.store.TakePending(store.QueuePurchases, id)
		if !ok {
			return fmt.Errorf("%w: %s", model.ErrPendingNotFound, id)
		}
		var (
			p   *model.Product
			err error
		)
		line := entry.Line
		if r.Create {
			if r.Description != "" {
				line.Description = r.Description
			}
			if p, err = e.createFromLine(line, r.Category); err != nil {
				return err
			}
			if line.Description != entry.Line.Description {
				e.store.Remember(entry.Line.Description, p.ID)
			}
			out.Created = true
		} else {
			if p, err = e.store.Product(r.ProductID); err != nil {
				return err
			}
			if r.Remember {
				e.learn(entry.Line.Description, p.ID)
			}
		}

		rec := e.store.LastImport()
		if !rec.Has(entry.DocumentRef) {
			rec = nil
		}
		doc := model.Document{Reference: entry.DocumentRef, Party: entry.Party, PartyTaxID: entry.PartyTaxID, Date: entry.Date}
		res := newImportResult(doc)
		if err := e.applyPurchaseLine(doc, entry.Line, p, e.supplier(doc, rec), rec, &res); err != nil {
			return err
		}
		if rec != nil && out.Created {
			rec.CreatedProductIDs = append(rec.CreatedProductIDs, p.ID)
		}
		out.ProductID = p.ID
		out.PendingPresentations = res.PendingPresentations[p.ID]
		return nil
	})
	if err == nil {
		e.logger.Info().Str("pending_id", id).Str("product_id", out.ProductID).Bool("created", out.Created).Msg("pending purchase resolved")
	}
	return out, err
}
