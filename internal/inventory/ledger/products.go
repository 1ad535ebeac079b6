package ledger

import (
	"context"
	"fmt"
	"io"
	"strings"

	"kardex-service/internal/inventory/kardex"
	"kardex-service/internal/inventory/model"
	"kardex-service/internal/inventory/store"
)

// ProductInput describes a manually created product.
type ProductInput struct {
	Description    string `json:"description" validate:"required"`
	Category       string `json:"category"`
	SupplierCode   string `json:"supplierCode"`
	BaseUnit       string `json:"baseUnit"`
	TrackInventory *bool  `json:"trackInventory"`
}

// CreateProduct adds a product to the catalog.
func (e *Engine) CreateProduct(ctx context.Context, in ProductInput) (model.Product, error) {
	var out model.Product
	err := e.transact(ctx, "create product", func() error {
		p, err := e.store.CreateProduct(in.Description, in.Category, in.SupplierCode)
		if err != nil {
			return err
		}
		if strings.TrimSpace(in.BaseUnit) != "" {
			if err := e.store.SetBaseUnit(p.ID, in.BaseUnit); err != nil {
				return err
			}
		}
		if in.TrackInventory != nil {
			p.TrackInventory = *in.TrackInventory
		}
		out = cloneProduct(p)
		return nil
	})
	if err == nil {
		e.logger.Info().Str("product_id", out.ID).Str("code", out.Code).Msg("product created")
	}
	return out, err
}

// UpdateProduct edits descriptive fields.
func (e *Engine) UpdateProduct(ctx context.Context, id string, patch store.ProductPatch) (model.Product, error) {
	var out model.Product
	err := e.transact(ctx, "update product", func() error {
		p, err := e.store.UpdateProduct(id, patch)
		if err != nil {
			return err
		}
		out = cloneProduct(p)
		return nil
	})
	return out, err
}

// DeactivateProduct hides a product from matching.
func (e *Engine) DeactivateProduct(ctx context.Context, id string) error {
	return e.transact(ctx, "deactivate product", func() error { return e.store.Deactivate(id) })
}

// ReactivateProduct reopens a product to matching.
func (e *Engine) ReactivateProduct(ctx context.Context, id string) error {
	return e.transact(ctx, "reactivate product", func() error { return e.store.Reactivate(id) })
}

// DeleteProduct removes a product without history.
func (e *Engine) DeleteProduct(ctx context.Context, id string) error {
	err := e.transact(ctx, "delete product", func() error { return e.store.Delete(id) })
	if err == nil {
		e.logger.Info().Str("product_id", id).Msg("product deleted")
	}
	return err
}

// SetBaseUnit renames a product's base unit.
func (e *Engine) SetBaseUnit(ctx context.Context, id, unit string) (model.Product, error) {
	var out model.Product
	err := e.transact(ctx, "set base unit", func() error {
		if err := e.store.SetBaseUnit(id, unit); err != nil {
			return err
		}
		p, _ := e.store.Product(id)
		out = cloneProduct(p)
		return nil
	})
	return out, err
}

// SetPresentationFactor stores how many base units a presentation holds.
// Unlike the store setter it reports invalid factors as ErrInvalidFactor.
func (e *Engine) SetPresentationFactor(ctx context.Context, id, name string, factor float64) (model.Product, error) {
	var out model.Product
	err := e.transact(ctx, "set presentation factor", func() error {
		ok, err := e.store.SetPresentationFactor(id, name, factor)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s=%v", model.ErrInvalidFactor, name, factor)
		}
		p, _ := e.store.Product(id)
		out = cloneProduct(p)
		return nil
	})
	return out, err
}

// Product returns one product.
func (e *Engine) Product(id string) (model.Product, error) {
	var (
		out model.Product
		err error
	)
	e.read(func() {
		var p *model.Product
		if p, err = e.store.Product(id); err == nil {
			out = cloneProduct(p)
		}
	})
	return out, err
}

// Products lists the catalog; inactive products only when asked.
func (e *Engine) Products(includeInactive bool) []model.Product {
	var out []model.Product
	e.read(func() {
		for _, p := range e.store.Products() {
			if p.Active || includeInactive {
				out = append(out, cloneProduct(p))
			}
		}
	})
	return out
}

// LowStock lists tracked products at or under the alert threshold.
func (e *Engine) LowStock() []model.Product {
	var out []model.Product
	e.read(func() {
		for _, p := range e.store.LowStock() {
			out = append(out, cloneProduct(p))
		}
	})
	return out
}

// Suppliers lists the suppliers seen so far.
func (e *Engine) Suppliers() []model.Supplier {
	var out []model.Supplier
	e.read(func() {
		for _, s := range e.store.Suppliers() {
			out = append(out, *s)
		}
	})
	return out
}

// Kardex builds the running-balance ledger of one product.
func (e *Engine) Kardex(id string) (kardex.Ledger, error) {
	var (
		out kardex.Ledger
		err error
	)
	e.read(func() {
		var p *model.Product
		if p, err = e.store.Product(id); err == nil {
			out = kardex.Build(p, e.store.MovementsFor(id))
		}
	})
	return out, err
}

// ExportCSV writes the catalog summary as CSV.
func (e *Engine) ExportCSV(w io.Writer) error {
	var err error
	e.read(func() { err = kardex.ExportCSV(w, e.store.Products()) })
	return err
}

// ExportXLSX writes the catalog summary as an xlsx workbook.
func (e *Engine) ExportXLSX(w io.Writer) error {
	var err error
	e.read(func() { err = kardex.ExportXLSX(w, e.store.Products()) })
	return err
}

// Settings returns the engine settings.
func (e *Engine) Settings() model.Settings {
	var out model.Settings
	e.read(func() { out = e.store.Settings() })
	return out
}

// UpdateSettings validates and stores new settings.
func (e *Engine) UpdateSettings(ctx context.Context, s model.Settings) error {
	err := e.transact(ctx, "update settings", func() error { return e.store.SetSettings(s) })
	if err == nil {
		e.logger.Info().
			Str("costing", string(s.CostingMethod)).
			Float64("auto", s.AutoThreshold).
			Float64("ask", s.AskThreshold).
			Msg("settings updated")
	}
	return err
}
