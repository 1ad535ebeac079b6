package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"kardex-service/internal/inventory/model"
	"kardex-service/internal/inventory/store"
)

// RevertResult reports what a revert removed.
type RevertResult struct {
	DocumentRefs       []string `json:"documentRefs"`
	RemovedMovements   int      `json:"removedMovements"`
	RemovedLots        int      `json:"removedLots"`
	RestoredLots       int      `json:"restoredLots,omitempty"`
	DeletedProductIDs  []string `json:"deletedProductIds"`
	DeletedSupplierIDs []string `json:"deletedSupplierIds"`
	DroppedPending     int      `json:"droppedPending"`
}

// RevertLastImport undoes the latest purchase batch. It is refused when any
// affected product has recorded activity after the batch.
func (e *Engine) RevertLastImport(ctx context.Context) (RevertResult, error) {
	var out RevertResult
	err := e.transact(ctx, "revert last import", func() error {
		rec := e.store.LastImport()
		if rec == nil {
			return model.ErrNoRecentImport
		}
		refs := make(map[string]struct{}, len(rec.DocumentRefs))
		for _, r := range rec.DocumentRefs {
			refs[r] = struct{}{}
		}
		var entries []*model.Movement
		for _, m := range e.store.Movements() {
			if _, ok := refs[m.DocumentRef]; ok && m.Type == model.MovementEntry {
				entries = append(entries, m)
			}
		}
		if err := e.ensureLatest(entries); err != nil {
			return err
		}

		ids := make(map[string]struct{}, len(entries))
		for _, m := range entries {
			ids[m.ID] = struct{}{}
			held := 0.0
			if lot, ok := e.store.RemoveLot(m.ProductID, m.LotID); ok {
				held = lot.Quantity
				out.RemovedLots++
			}
			// the part of the entry that settled a backorder is owed again
			if owed := m.Quantity - held; owed > 1e-9 {
				e.store.AdjustBackorder(m.ProductID, owed)
			}
			if sp, ok := e.store.FindSupplier(m.Party); ok && m.UnitCost != nil {
				e.store.RecordPurchase(sp, -m.Quantity * *m.UnitCost, m.Date)
			}
		}
		out.RemovedMovements = e.store.DeleteMovements(ids)

		out.DeletedProductIDs = []string{}
		for _, pid := range rec.CreatedProductIDs {
			p, err := e.store.Product(pid)
			if err != nil || len(p.Lots) > 0 {
				continue
			}
			if err := e.store.Delete(pid); err == nil {
				out.DeletedProductIDs = append(out.DeletedProductIDs, pid)
			} else if !errors.Is(err, model.ErrHasHistory) {
				return err
			}
		}
		for pid, at := range rec.PriorProductPurchase {
			e.store.RestoreLastPurchase(pid, at)
		}
		for sid, at := range rec.PriorSupplierPurchase {
			e.store.RestoreSupplierPurchase(sid, at)
		}
		out.DeletedSupplierIDs = []string{}
		for _, sid := range rec.CreatedSupplierIDs {
			if e.store.RemoveSupplier(sid) {
				out.DeletedSupplierIDs = append(out.DeletedSupplierIDs, sid)
			}
		}
		out.DroppedPending = e.dropPending(store.QueuePurchases, refs)
		out.DocumentRefs = append([]string{}, rec.DocumentRefs...)
		e.store.SetLastImport(nil)
		return nil
	})
	e.metrics.Revert("purchase", err)
	if err == nil {
		e.logger.Info().
			Strs("doc_refs", out.DocumentRefs).
			Int("movements", out.RemovedMovements).
			Int("deleted_products", len(out.DeletedProductIDs)).
			Msg("last import reverted")
	}
	return out, err
}

// RevertSale undoes every exit recorded under ref. Quantity goes back to
// the lot it came from, or to a new reversal lot when that lot is gone.
func (e *Engine) RevertSale(ctx context.Context, ref string) (RevertResult, error) {
	var out RevertResult
	err := e.transact(ctx, "revert sale", func() error {
		exits := e.store.MovementsByRef(ref, model.MovementExit)
		if len(exits) == 0 {
			return fmt.Errorf("%w: %s", model.ErrNothingToRevert, ref)
		}
		if err := e.ensureLatest(exits); err != nil {
			return err
		}

		// newest first so uncovered exits settle the backorder before any
		// quantity returns to a lot
		sorted := append([]*model.Movement(nil), exits...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Seq > sorted[j].Seq })

		ids := make(map[string]struct{}, len(sorted))
		for _, m := range sorted {
			ids[m.ID] = struct{}{}
			p, err := e.store.Product(m.ProductID)
			if err != nil {
				continue
			}
			qty := m.Quantity
			if m.LotID == "" {
				settle := math.Min(qty, p.Backorder)
				e.store.AdjustBackorder(p.ID, -settle)
				qty -= settle
			} else if ok, _ := e.store.Restock(p.ID, m.LotID, qty); ok {
				out.RestoredLots++
				continue
			}
			if qty <= 1e-9 {
				continue
			}
			cost := p.AverageCost
			if m.UnitCost != nil {
				cost = *m.UnitCost
			}
			entered := m.Date
			if m.LotDate != nil {
				entered = *m.LotDate
			}
			if _, err := e.store.AddLot(p.ID, model.Lot{
				Quantity:  qty,
				UnitCost:  cost,
				EntryDate: entered,
				TraceCode: "REVERSAL-" + ref,
			}); err != nil {
				return err
			}
			out.RestoredLots++
		}
		out.RemovedMovements = e.store.DeleteMovements(ids)
		out.DroppedPending = e.dropPending(store.QueueSales, map[string]struct{}{ref: {}})
		out.DocumentRefs = []string{ref}
		out.DeletedProductIDs = []string{}
		out.DeletedSupplierIDs = []string{}
		return nil
	})
	e.metrics.Revert("sale", err)
	if err == nil {
		e.logger.Info().Str("doc_ref", ref).Int("movements", out.RemovedMovements).Msg("sale reverted")
	}
	return out, err
}

// ensureLatest fails when a product touched by batch has a movement outside
// batch recorded after the batch's first movement on that product.
func (e *Engine) ensureLatest(batch []*model.Movement) error {
	first := make(map[string]int64)
	in := make(map[string]struct{}, len(batch))
	for _, m := range batch {
		in[m.ID] = struct{}{}
		if s, ok := first[m.ProductID]; !ok || m.Seq < s {
			first[m.ProductID] = m.Seq
		}
	}
	for _, m := range e.store.Movements() {
		s, affected := first[m.ProductID]
		if !affected {
			continue
		}
		if _, own := in[m.ID]; own {
			continue
		}
		if m.Seq > s {
			return fmt.Errorf("%w: product %s has movement %s", model.ErrLaterMovementsExist, m.ProductID, m.ID)
		}
	}
	return nil
}

func (e *Engine) dropPending(q store.Queue, refs map[string]struct{}) int {
	var ids []string
	for _, p := range e.store.Pending(q) {
		if _, ok := refs[p.DocumentRef]; ok {
			ids = append(ids, p.ID)
		}
	}
	for _, id := range ids {
		e.store.TakePending(q, id)
	}
	return len(ids)
}
