package kardex

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"kardex-service/internal/inventory/model"
)

// Row is one Kardex line with the running balance after it.
type Row struct {
	MovementID   string             `json:"movementId"`
	Date         time.Time          `json:"date"`
	Type         model.MovementType `json:"type"`
	DocumentRef  string             `json:"documentRef"`
	Party        string             `json:"party,omitempty"`
	Reason       string             `json:"reason,omitempty"`
	Quantity     float64            `json:"quantity"`
	UnitCost     float64            `json:"unitCost"`
	Value        float64            `json:"value"`
	BalanceQty   float64            `json:"balanceQty"`
	BalanceValue float64            `json:"balanceValue"`
}

// Ledger is the Kardex of one product.
type Ledger struct {
	ProductID    string  `json:"productId"`
	Code         string  `json:"code"`
	Description  string  `json:"description"`
	Rows         []Row   `json:"rows"`
	TotalIn      float64 `json:"totalIn"`
	TotalOut     float64 `json:"totalOut"`
	BalanceQty   float64 `json:"balanceQty"`
	BalanceValue float64 `json:"balanceValue"`
}

// Build replays movements chronologically (date, then recording order).
// Movements without a unit cost are valued at the product's average cost.
// It does not modify its inputs.
func Build(p *model.Product, movements []*model.Movement) Ledger {
	ms := make([]*model.Movement, 0, len(movements))
	for _, m := range movements {
		if m.ProductID == p.ID {
			ms = append(ms, m)
		}
	}
	sort.SliceStable(ms, func(i, j int) bool {
		if !ms[i].Date.Equal(ms[j].Date) {
			return ms[i].Date.Before(ms[j].Date)
		}
		return ms[i].Seq < ms[j].Seq
	})

	l := Ledger{ProductID: p.ID, Code: p.Code, Description: p.Description, Rows: make([]Row, 0, len(ms))}
	qty, value := decimal.Zero, decimal.Zero
	in, out := decimal.Zero, decimal.Zero
	for _, m := range ms {
		cost := p.AverageCost
		if m.UnitCost != nil {
			cost = *m.UnitCost
		}
		q := decimal.NewFromFloat(m.Quantity)
		v := q.Mul(decimal.NewFromFloat(cost))
		if m.Type == model.MovementExit {
			qty = qty.Sub(q)
			value = value.Sub(v)
			out = out.Add(q)
		} else {
			qty = qty.Add(q)
			value = value.Add(v)
			in = in.Add(q)
		}
		l.Rows = append(l.Rows, Row{
			MovementID:   m.ID,
			Date:         m.Date,
			Type:         m.Type,
			DocumentRef:  m.DocumentRef,
			Party:        m.Party,
			Reason:       m.Reason,
			Quantity:     m.Quantity,
			UnitCost:     cost,
			Value:        v.InexactFloat64(),
			BalanceQty:   qty.InexactFloat64(),
			BalanceValue: value.InexactFloat64(),
		})
	}
	l.TotalIn = in.InexactFloat64()
	l.TotalOut = out.InexactFloat64()
	l.BalanceQty = qty.InexactFloat64()
	l.BalanceValue = value.InexactFloat64()
	return l
}
