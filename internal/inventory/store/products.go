package store

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"kardex-service/internal/inventory/costing"
	"kardex-service/internal/inventory/model"
	"kardex-service/internal/inventory/units"
	"kardex-service/internal/textsim"
)

// ProductPatch carries the editable product fields; nil means unchanged.
type ProductPatch struct {
	Description    *string  `json:"description,omitempty"`
	Category       *string  `json:"category,omitempty"`
	Code           *string  `json:"code,omitempty"`
	SupplierCode   *string  `json:"supplierCode,omitempty"`
	Favorite       *bool    `json:"favorite,omitempty"`
	TrackInventory *bool    `json:"trackInventory,omitempty"`
	Variants       []string `json:"variants,omitempty"`
}

// CreateProduct adds an active product with zero stock and a generated code.
// An empty category is guessed from the description.
func (s *Store) CreateProduct(description, category, supplierCode string) (*model.Product, error) {
	description = strings.TrimSpace(description)
	if textsim.Normalize(description) == "" {
		return nil, model.ErrInvalidProduct
	}
	if strings.TrimSpace(category) == "" {
		category = textsim.GuessCategory(description)
	}
	p := &model.Product{
		ID:                   uuid.NewString(),
		Code:                 s.nextCode(category),
		SupplierCode:         strings.TrimSpace(supplierCode),
		Description:          description,
		Category:             category,
		Active:               true,
		BaseUnit:             model.DefaultBaseUnit,
		Presentations:        []model.Presentation{},
		PendingPresentations: []string{},
		Lots:                 []model.Lot{},
		Suppliers:            []string{},
		TrackInventory:       true,
		Keywords:             textsim.Keywords(description),
		Variants:             []string{},
		CreatedAt:            s.now(),
	}
	units.EnsureBase(p)
	s.recompute(p)
	s.state.Products = append(s.state.Products, p)
	s.byID[p.ID] = p
	return p, nil
}

// Product returns the product with id.
func (s *Store) Product(id string) (*model.Product, error) {
	p, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrProductNotFound, id)
	}
	return p, nil
}

// Products returns every product in creation order.
func (s *Store) Products() []*model.Product {
	return s.state.Products
}

// ActiveProducts returns products open to matching.
func (s *Store) ActiveProducts() []*model.Product {
	out := make([]*model.Product, 0, len(s.state.Products))
	for _, p := range s.state.Products {
		if p.Active {
			out = append(out, p)
		}
	}
	return out
}

// ProductByCode finds an active product whose code or supplier code equals
// code, ignoring case.
func (s *Store) ProductByCode(code string) (*model.Product, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, false
	}
	for _, p := range s.state.Products {
		if !p.Active {
			continue
		}
		if strings.EqualFold(p.Code, code) || (p.SupplierCode != "" && strings.EqualFold(p.SupplierCode, code)) {
			return p, true
		}
	}
	return nil, false
}

// UpdateProduct applies a patch. A changed description keeps the old text
// as a matching variant.
func (s *Store) UpdateProduct(id string, patch ProductPatch) (*model.Product, error) {
	p, err := s.Product(id)
	if err != nil {
		return nil, err
	}
	if patch.Code != nil {
		code := strings.TrimSpace(*patch.Code)
		if code == "" {
			return nil, fmt.Errorf("%w: empty code", model.ErrDuplicateCode)
		}
		for _, o := range s.state.Products {
			if o.ID != p.ID && strings.EqualFold(o.Code, code) {
				return nil, fmt.Errorf("%w: %s", model.ErrDuplicateCode, code)
			}
		}
		p.Code = code
	}
	if patch.Description != nil {
		d := strings.TrimSpace(*patch.Description)
		if textsim.Normalize(d) == "" {
			return nil, model.ErrInvalidProduct
		}
		if d != p.Description {
			addVariant(p, p.Description)
			p.Description = d
			p.Keywords = textsim.Keywords(d)
		}
	}
	if patch.Category != nil && strings.TrimSpace(*patch.Category) != "" {
		p.Category = strings.TrimSpace(*patch.Category)
	}
	if patch.SupplierCode != nil {
		p.SupplierCode = strings.TrimSpace(*patch.SupplierCode)
	}
	if patch.Favorite != nil {
		p.Favorite = *patch.Favorite
	}
	if patch.TrackInventory != nil {
		p.TrackInventory = *patch.TrackInventory
	}
	for _, v := range patch.Variants {
		addVariant(p, v)
	}
	return p, nil
}

// AddVariant records another description the product is known by.
func (s *Store) AddVariant(id, description string) error {
	p, err := s.Product(id)
	if err != nil {
		return err
	}
	addVariant(p, description)
	return nil
}

// Deactivate hides a product from matching without touching stock.
func (s *Store) Deactivate(id string) error { return s.setActive(id, false) }

// Reactivate reopens a product to matching.
func (s *Store) Reactivate(id string) error { return s.setActive(id, true) }

func (s *Store) setActive(id string, active bool) error {
	p, err := s.Product(id)
	if err != nil {
		return err
	}
	p.Active = active
	return nil
}

// Delete removes a product that has neither lots nor movements and purges
// every reference to it.
func (s *Store) Delete(id string) error {
	p, err := s.Product(id)
	if err != nil {
		return err
	}
	if len(p.Lots) > 0 || s.hasMovements(id) {
		return fmt.Errorf("%w: %s", model.ErrHasHistory, p.Code)
	}
	out := s.state.Products[:0]
	for _, o := range s.state.Products {
		if o.ID != id {
			out = append(out, o)
		}
	}
	s.state.Products = out
	delete(s.byID, id)
	s.purgeReferences(id)
	return nil
}

// AddLot appends a lot and recomputes the aggregates. An outstanding
// backorder is settled from the lot first, so the returned lot may hold less
// than requested or nothing at all.
func (s *Store) AddLot(productID string, lot model.Lot) (model.Lot, error) {
	p, err := s.Product(productID)
	if err != nil {
		return model.Lot{}, err
	}
	if !finitePositive(lot.Quantity) {
		return model.Lot{}, model.ErrInvalidQuantity
	}
	if lot.UnitCost < 0 || math.IsNaN(lot.UnitCost) || math.IsInf(lot.UnitCost, 0) {
		lot.UnitCost = 0
	}
	if lot.ID == "" {
		lot.ID = uuid.NewString()
	}
	if lot.EntryDate.IsZero() {
		lot.EntryDate = s.now()
	}
	if lot.TraceCode == "" {
		lot.TraceCode = fmt.Sprintf("%s-%s", p.Code, strings.ToUpper(lot.ID[:8]))
	}
	lot.Quantity, p.Backorder = costing.Settle(lot.Quantity, p.Backorder)
	if lot.Quantity > 0 {
		p.Lots = append(p.Lots, lot)
	}
	if lot.SupplierName != "" && !containsFold(p.Suppliers, lot.SupplierName) {
		p.Suppliers = append(p.Suppliers, lot.SupplierName)
	}
	if p.LastPurchaseAt == nil || lot.EntryDate.After(*p.LastPurchaseAt) {
		d := lot.EntryDate
		p.LastPurchaseAt = &d
	}
	s.recompute(p)
	return lot, nil
}

// Consume depletes qty from the product's lots under the configured costing
// method. Uncovered quantity becomes backorder when negative stock is
// allowed and fails with ErrInsufficientStock otherwise.
func (s *Store) Consume(productID string, qty float64, at time.Time) ([]costing.Allocation, float64, error) {
	p, err := s.Product(productID)
	if err != nil {
		return nil, 0, err
	}
	if !finitePositive(qty) {
		return nil, 0, model.ErrInvalidQuantity
	}
	cfg := s.state.Settings
	if !cfg.AllowNegativeStock && qty > p.TotalStock+1e-9 {
		return nil, 0, fmt.Errorf("%w: %s has %.4f, need %.4f", model.ErrInsufficientStock, p.Code, p.TotalStock, qty)
	}
	allocs, shortfall := costing.Select(p.Lots, cfg.CostingMethod, qty)
	p.Lots = costing.Apply(p.Lots, allocs, cfg.CostingMethod)
	p.Backorder += shortfall
	if p.LastSaleAt == nil || at.After(*p.LastSaleAt) {
		d := at
		p.LastSaleAt = &d
	}
	s.recompute(p)
	return allocs, shortfall, nil
}

// Restock puts qty back into lot lotID if it still exists.
func (s *Store) Restock(productID, lotID string, qty float64) (bool, error) {
	p, err := s.Product(productID)
	if err != nil {
		return false, err
	}
	for i := range p.Lots {
		if p.Lots[i].ID == lotID {
			p.Lots[i].Quantity += qty
			s.recompute(p)
			return true, nil
		}
	}
	return false, nil
}

// RemoveLot deletes a lot and returns what it held.
func (s *Store) RemoveLot(productID, lotID string) (model.Lot, bool) {
	p, ok := s.byID[productID]
	if !ok {
		return model.Lot{}, false
	}
	for i, l := range p.Lots {
		if l.ID == lotID {
			p.Lots = append(p.Lots[:i], p.Lots[i+1:]...)
			s.recompute(p)
			return l, true
		}
	}
	return model.Lot{}, false
}

// AdjustBackorder moves the backorder by delta, never below zero.
func (s *Store) AdjustBackorder(productID string, delta float64) {
	p, ok := s.byID[productID]
	if !ok {
		return
	}
	p.Backorder = math.Max(0, p.Backorder+delta)
	s.recompute(p)
}

// SetPresentationFactor upserts a presentation factor. It reports false
// when the factor is not a finite positive number.
func (s *Store) SetPresentationFactor(productID, name string, factor float64) (bool, error) {
	p, err := s.Product(productID)
	if err != nil {
		return false, err
	}
	return units.SetFactor(p, name, factor), nil
}

// SetBaseUnit renames the product's base unit.
func (s *Store) SetBaseUnit(productID, unit string) error {
	p, err := s.Product(productID)
	if err != nil {
		return err
	}
	if !units.SetBaseUnit(p, unit) {
		return fmt.Errorf("%w: empty base unit", model.ErrInvalidFactor)
	}
	return nil
}

// RestoreLastPurchase resets a product's last purchase date. Unknown ids
// are ignored.
func (s *Store) RestoreLastPurchase(productID string, at *time.Time) {
	if p, ok := s.byID[productID]; ok {
		p.LastPurchaseAt = at
	}
}

// LowStock lists tracked, active products at or under the alert threshold,
// lowest stock first.
func (s *Store) LowStock() []*model.Product {
	limit := s.state.Settings.LowStockThreshold
	var out []*model.Product
	for _, p := range s.state.Products {
		if p.Active && p.TrackInventory && p.TotalStock <= limit {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalStock < out[j].TotalStock })
	return out
}

func (s *Store) recompute(p *model.Product) {
	p.Lots = costing.Prune(p.Lots)
	costing.Recompute(p, s.state.Settings.Margin)
}

// category prefix + 4 digits, probing upward from the per-prefix count
func (s *Store) nextCode(category string) string {
	prefix := codePrefix(category)
	used := make(map[string]struct{}, len(s.state.Products))
	n := 0
	for _, p := range s.state.Products {
		c := strings.ToUpper(p.Code)
		used[c] = struct{}{}
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	for i := n + 1; ; i++ {
		code := fmt.Sprintf("%s%04d", prefix, i)
		if _, taken := used[code]; !taken {
			return code
		}
	}
}

func codePrefix(category string) string {
	var b strings.Builder
	for _, r := range textsim.Normalize(category) {
		if unicode.IsLetter(r) {
			b.WriteRune(unicode.ToUpper(r))
			if b.Len() == 3 {
				break
			}
		}
	}
	prefix := b.String()
	for len(prefix) < 3 {
		prefix += "X"
	}
	return prefix
}

func addVariant(p *model.Product, text string) {
	n := textsim.Normalize(text)
	if n == "" || n == textsim.Normalize(p.Description) {
		return
	}
	for _, v := range p.Variants {
		if textsim.Normalize(v) == n {
			return
		}
	}
	p.Variants = append(p.Variants, strings.TrimSpace(text))
}

func containsFold(list []string, v string) bool {
	for _, x := range list {
		if strings.EqualFold(x, v) {
			return true
		}
	}
	return false
}

func finitePositive(f float64) bool {
	return f > 0 && !math.IsNaN(f) && !math.IsInf(f, 0)
}
