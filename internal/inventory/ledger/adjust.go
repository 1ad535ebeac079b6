package ledger

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"kardex-service/internal/inventory/model"
	"kardex-service/internal/inventory/units"
)

// Adjustment is a manual stock entry or exit.
type Adjustment struct {
	Type         model.MovementType `json:"type" validate:"required,oneof=entry exit"`
	Quantity     float64            `json:"quantity" validate:"gt=0"`
	UnitCost     *float64           `json:"unitCost,omitempty" validate:"omitempty,gte=0"`
	Presentation string             `json:"presentation,omitempty"`
	Reason       string             `json:"reason" validate:"required"`
	Date         *time.Time         `json:"date,omitempty"`
	Reference    string             `json:"reference,omitempty"`
}

// AdjustStock records a manual entry or exit, optionally backdated. An
// entry without a cost is valued at the current average cost.
func (e *Engine) AdjustStock(ctx context.Context, productID string, a Adjustment) ([]model.Movement, error) {
	if !validQuantity(a.Quantity) {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidQuantity, a.Quantity)
	}
	if a.Type != model.MovementEntry && a.Type != model.MovementExit {
		return nil, fmt.Errorf("%w: movement type %q", model.ErrInvalidQuantity, a.Type)
	}
	var out []model.Movement
	err := e.transact(ctx, "adjust stock", func() error {
		p, err := e.store.Product(productID)
		if err != nil {
			return err
		}
		date := e.store.Now()
		if a.Date != nil && !a.Date.IsZero() {
			date = *a.Date
		}
		ref := strings.TrimSpace(a.Reference)
		if ref == "" {
			ref = "ADJ-" + date.Format("20060102150405")
		}
		presentation := units.Canonical(a.Presentation)
		if presentation == "" {
			presentation = p.BaseUnit
		}
		factor, _ := units.ResolveFactor(p, presentation)
		qty := a.Quantity * factor

		base := model.Movement{
			ProductID:        p.ID,
			Type:             a.Type,
			OriginalQuantity: a.Quantity,
			Presentation:     presentation,
			Factor:           factor,
			DocumentRef:      ref,
			Date:             date,
			Reason:           a.Reason,
		}
		if a.Type == model.MovementEntry {
			cost := p.AverageCost
			if a.UnitCost != nil && *a.UnitCost >= 0 && !math.IsInf(*a.UnitCost, 0) {
				cost = units.BaseUnitCost(*a.UnitCost, factor)
			}
			lot, err := e.store.AddLot(p.ID, model.Lot{Quantity: qty, UnitCost: cost, EntryDate: date})
			if err != nil {
				return err
			}
			m := base
			m.Quantity, m.UnitCost, m.LotID = qty, &cost, lot.ID
			out = append(out, *e.store.AppendMovement(m))
			return nil
		}

		allocs, shortfall, err := e.store.Consume(p.ID, qty, date)
		if err != nil {
			return err
		}
		for _, al := range allocs {
			m := base
			cost := al.UnitCost
			m.Quantity, m.UnitCost, m.LotID = al.Quantity, &cost, al.LotID
			m.LotDate = lotDate(al)
			m.OriginalQuantity = al.Quantity / factor
			out = append(out, *e.store.AppendMovement(m))
		}
		if shortfall > 0 {
			m := base
			m.Quantity = shortfall
			m.OriginalQuantity = shortfall / factor
			out = append(out, *e.store.AppendMovement(m))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.logger.Info().
		Str("product_id", productID).
		Str("type", string(a.Type)).
		Float64("quantity", a.Quantity).
		Str("reason", a.Reason).
		Msg("stock adjusted")
	return out, nil
}
