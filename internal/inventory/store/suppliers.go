package store

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"kardex-service/internal/inventory/model"
	"kardex-service/internal/textsim"
)

// Supplier returns the supplier called name (case-insensitive), creating it
// on first use.
func (s *Store) Supplier(name, taxID string) *model.Supplier {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	for _, sp := range s.state.Suppliers {
		if strings.EqualFold(sp.Name, name) {
			if sp.TaxID == "" && taxID != "" {
				sp.TaxID = taxID
			}
			return sp
		}
	}
	sp := &model.Supplier{
		ID:       uuid.NewString(),
		Name:     name,
		TaxID:    strings.TrimSpace(taxID),
		Category: textsim.DefaultCategory,
	}
	s.state.Suppliers = append(s.state.Suppliers, sp)
	return sp
}

// FindSupplier looks a supplier up by name without creating it.
func (s *Store) FindSupplier(name string) (*model.Supplier, bool) {
	for _, sp := range s.state.Suppliers {
		if strings.EqualFold(sp.Name, strings.TrimSpace(name)) {
			return sp, true
		}
	}
	return nil, false
}

// RestoreSupplierPurchase resets a supplier's last purchase date.
func (s *Store) RestoreSupplierPurchase(id string, at *time.Time) {
	for _, sp := range s.state.Suppliers {
		if sp.ID == id {
			sp.LastPurchaseAt = at
			return
		}
	}
}

// RemoveSupplier deletes a supplier that no lot refers to and drops its name
// from the products it supplied. It reports whether the supplier was removed.
func (s *Store) RemoveSupplier(id string) bool {
	idx := -1
	for i, sp := range s.state.Suppliers {
		if sp.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	name := s.state.Suppliers[idx].Name
	for _, p := range s.state.Products {
		for _, l := range p.Lots {
			if l.SupplierID == id {
				return false
			}
		}
	}
	for _, p := range s.state.Products {
		out := p.Suppliers[:0]
		for _, n := range p.Suppliers {
			if !strings.EqualFold(n, name) {
				out = append(out, n)
			}
		}
		p.Suppliers = out
	}
	s.state.Suppliers = append(s.state.Suppliers[:idx], s.state.Suppliers[idx+1:]...)
	return true
}

// Suppliers returns every supplier in creation order.
func (s *Store) Suppliers() []*model.Supplier {
	return s.state.Suppliers
}

// RecordPurchase adds amount to the supplier total and bumps its last
// purchase date. A negative amount reverses an earlier purchase.
func (s *Store) RecordPurchase(sp *model.Supplier, amount float64, at time.Time) {
	if sp == nil {
		return
	}
	sp.TotalPurchased += amount
	if sp.TotalPurchased < 0 {
		sp.TotalPurchased = 0
	}
	if amount > 0 && (sp.LastPurchaseAt == nil || at.After(*sp.LastPurchaseAt)) {
		d := at
		sp.LastPurchaseAt = &d
	}
}
