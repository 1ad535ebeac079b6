package ledger

import (
	"context"
	"fmt"
	"time"

	"kardex-service/internal/inventory/costing"
	"kardex-service/internal/inventory/matching"
	"kardex-service/internal/inventory/model"
	"kardex-service/internal/inventory/store"
	"kardex-service/internal/inventory/units"
)

// ImportSale records a sale document. Lines matched to a product deplete
// its lots under the configured costing method; the rest wait in the sale
// queue. InsufficientStock on any line rolls the whole document back.
func (e *Engine) ImportSale(ctx context.Context, doc model.Document, confirms []Confirmation) (ImportResult, error) {
	res := newImportResult(doc)
	if !res.Applicable {
		res.Skipped = len(doc.Lines)
		e.logger.Warn().Str("doc_ref", doc.Reference).Msg("sale document not applicable, skipped")
		return res, nil
	}
	err := e.transact(ctx, "import sale", func() error {
		byLine := make(map[int]Confirmation, len(confirms))
		for _, c := range confirms {
			byLine[c.Line] = c
		}
		opt := e.options()
		for i, line := range doc.Lines {
			if skipReason(line) != "" {
				res.Skipped++
				e.metrics.Line("sale", "skipped")
				continue
			}
			c := byLine[i]
			var p *model.Product
			switch c.Action {
			case ActionSkip:
				res.Skipped++
				e.metrics.Line("sale", "skipped")
				continue
			case ActionLink:
				var err error
				if p, err = e.store.Product(c.ProductID); err != nil {
					return err
				}
				if c.Remember {
					e.learn(line.Description, p.ID)
				}
			default:
				d := e.matcher.Match(line, opt)
				if d.Outcome == matching.OutcomeUpdate && c.Action != ActionCreate {
					p, _ = e.store.Product(d.ProductID)
					if d.Method == matching.MethodSimilarity {
						e.learn(line.Description, p.ID)
					}
					break
				}
				pr := e.store.AddPending(store.QueueSales, model.PendingReconciliation{
					DocumentRef: doc.Reference,
					Party:       doc.Party,
					PartyTaxID:  doc.PartyTaxID,
					Date:        doc.Date,
					Line:        line,
					Candidates:  d.Candidates,
				})
				res.Pending++
				res.PendingIDs = append(res.PendingIDs, pr.ID)
				e.metrics.Line("sale", string(matching.OutcomePending))
				continue
			}
			if err := e.applySaleLine(doc.Reference, doc.Party, doc.Date, line, p, &res); err != nil {
				return fmt.Errorf("sale %s line %d: %w", doc.Reference, i, err)
			}
			res.Updated++
			e.metrics.Line("sale", string(matching.OutcomeUpdate))
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	e.logger.Info().
		Str("doc_ref", doc.Reference).
		Int("sold", res.Updated).
		Int("pending", res.Pending).
		Int("skipped", res.Skipped).
		Msg("sale imported")
	return res, nil
}

// applySaleLine depletes stock for one line: one exit per lot allocation
// plus one exit without cost for any uncovered quantity.
func (e *Engine) applySaleLine(ref, party string, date time.Time, line model.DocumentLine, p *model.Product, res *ImportResult) error {
	presentation := units.LinePresentation(line.Unit, line.Description, p.BaseUnit)
	factor, pending := units.ResolveFactor(p, presentation)
	if pending {
		res.pendingPresentation(p.ID, presentation)
	}
	qty := line.Quantity * factor
	price := units.BaseUnitCost(line.UnitPrice, factor)

	allocs, shortfall, err := e.store.Consume(p.ID, qty, date)
	if err != nil {
		return err
	}
	exit := model.Movement{
		ProductID:    p.ID,
		Type:         model.MovementExit,
		Presentation: presentation,
		Factor:       factor,
		UnitPrice:    &price,
		DocumentRef:  ref,
		Date:         date,
		Party:        party,
	}
	for _, a := range allocs {
		m := exit
		cost := a.UnitCost
		m.Quantity = a.Quantity
		m.OriginalQuantity = a.Quantity / factor
		m.UnitCost = &cost
		m.LotID = a.LotID
		m.LotDate = lotDate(a)
		e.store.AppendMovement(m)
	}
	if shortfall > 0 {
		m := exit
		m.Quantity = shortfall
		m.OriginalQuantity = shortfall / factor
		e.store.AppendMovement(m)
	}
	return nil
}

// lotDate is the entry date of the lot an exit drew from, so a revert can
// put the quantity back in its original costing position.
func lotDate(a costing.Allocation) *time.Time {
	if a.EntryDate.IsZero() {
		return nil
	}
	d := a.EntryDate
	return &d
}

// PendingSales lists sale lines awaiting a product.
func (e *Engine) PendingSales() []model.PendingReconciliation {
	var out []model.PendingReconciliation
	e.read(func() { out = clonePending(e.store.Pending(store.QueueSales)) })
	return out
}

// ResolvePendingSale sells a pending line from productID and removes the
// entry. A failed sale leaves the entry queued.
func (e *Engine) ResolvePendingSale(ctx context.Context, id, productID string, remember bool) (ResolveResult, error) {
	var out ResolveResult
	err := e.transact(ctx, "resolve pending sale", func() error {
		entry, ok := e.store.TakePending(store.QueueSales, id)
		if !ok {
			return fmt.Errorf("%w: %s", model.ErrPendingNotFound, id)
		}
		p, err := e.store.Product(productID)
		if err != nil {
			return err
		}
		if remember {
			e.learn(entry.Line.Description, p.ID)
		}
		res := newImportResult(model.Document{Reference: entry.DocumentRef})
		if err := e.applySaleLine(entry.DocumentRef, entry.Party, entry.Date, entry.Line, p, &res); err != nil {
			return err
		}
		out.ProductID = p.ID
		out.PendingPresentations = res.PendingPresentations[p.ID]
		return nil
	})
	if err == nil {
		e.logger.Info().Str("pending_id", id).Str("product_id", productID).Msg("pending sale resolved")
	}
	return out, err
}
