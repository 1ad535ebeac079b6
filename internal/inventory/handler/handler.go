package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"kardex-service/internal/fileio"
	"kardex-service/internal/inventory/ledger"
	"kardex-service/internal/inventory/model"
	"kardex-service/internal/inventory/store"
)

// Handler exposes the ledger engine over JSON.
type Handler struct {
	engine    *ledger.Engine
	logger    zerolog.Logger
	validate  *validator.Validate
	maxUpload int64
}

func New(engine *ledger.Engine, logger zerolog.Logger, maxUpload int64) *Handler {
	return &Handler{
		engine:    engine,
		logger:    logger.With().Str("component", "http").Logger(),
		validate:  validator.New(),
		maxUpload: maxUpload,
	}
}

// Routes mounts every inventory endpoint on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/settings", h.getSettings)
	r.Put("/settings", h.putSettings)

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.listProducts)
		r.Post("/", h.createProduct)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getProduct)
			r.Patch("/", h.updateProduct)
			r.Delete("/", h.deleteProduct)
			r.Post("/deactivate", h.deactivateProduct)
			r.Post("/reactivate", h.reactivateProduct)
			r.Put("/base-unit", h.setBaseUnit)
			r.Put("/presentations/{name}", h.setPresentation)
			r.Post("/adjustments", h.adjustStock)
			r.Get("/kardex", h.kardex)
		})
	})

	r.Post("/purchases/analyze", h.analyzePurchase)
	r.Post("/purchases", h.importPurchases)
	r.Post("/purchases/upload", h.uploadPurchase)
	r.Post("/purchases/revert", h.revertLastImport)

	r.Post("/sales/analyze", h.analyzeSale)
	r.Post("/sales", h.importSale)
	r.Post("/sales/{ref}/revert", h.revertSale)

	r.Get("/pending/purchases", h.pendingPurchases)
	r.Post("/pending/purchases/{id}/resolve", h.resolvePendingPurchase)
	r.Get("/pending/sales", h.pendingSales)
	r.Post("/pending/sales/{id}/resolve", h.resolvePendingSale)

	r.Get("/suppliers", h.suppliers)
	r.Get("/alerts/low-stock", h.lowStock)
	r.Get("/export/catalog.csv", h.exportCSV)
	r.Get("/export/catalog.xlsx", h.exportXLSX)
}

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Settings())
}

func (h *Handler) putSettings(w http.ResponseWriter, r *http.Request) {
	var s model.Settings
	if err := h.decode(r, &s); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.engine.UpdateSettings(r.Context(), s); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.engine.Settings())
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	list := h.engine.Products(toBool(r.URL.Query().Get("inactive"), false))
	if list == nil {
		list = []model.Product{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var in ledger.ProductInput
	if err := h.decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.engine.CreateProduct(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.engine.Product(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var patch store.ProductPatch
	if err := h.decode(r, &patch); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.engine.UpdateProduct(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deactivateProduct(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.engine.DeactivateProduct)
}

func (h *Handler) reactivateProduct(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.engine.ReactivateProduct)
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request, fn func(context.Context, string) error) {
	id := chi.URLParam(r, "id")
	if err := fn(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.getProduct(w, r)
}

type baseUnitRequest struct {
	Unit string `json:"unit" validate:"required"`
}

func (h *Handler) setBaseUnit(w http.ResponseWriter, r *http.Request) {
	var req baseUnitRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.engine.SetBaseUnit(r.Context(), chi.URLParam(r, "id"), req.Unit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type factorRequest struct {
	Factor float64 `json:"factor"`
}

// setPresentation leaves factor checks to the engine so an invalid factor
// surfaces as ErrInvalidFactor.
func (h *Handler) setPresentation(w http.ResponseWriter, r *http.Request) {
	var req factorRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.engine.SetPresentationFactor(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "name"), req.Factor)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	var a ledger.Adjustment
	if err := h.decode(r, &a); err != nil {
		h.fail(w, r, err)
		return
	}
	ms, err := h.engine.AdjustStock(r.Context(), chi.URLParam(r, "id"), a)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ms)
}

func (h *Handler) kardex(w http.ResponseWriter, r *http.Request) {
	k, err := h.engine.Kardex(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, k)
}

func (h *Handler) analyzePurchase(w http.ResponseWriter, r *http.Request) {
	var doc model.Document
	if err := h.decode(r, &doc); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.engine.AnalyzePurchase(doc))
}

// purchaseRequest carries either one document or a batch.
type purchaseRequest struct {
	Document      *model.Document           `json:"document,omitempty"`
	Confirmations []ledger.Confirmation     `json:"confirmations,omitempty" validate:"dive"`
	Documents     []ledger.PurchaseDocument `json:"documents,omitempty" validate:"dive"`
}

func (h *Handler) importPurchases(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	docs := req.Documents
	if req.Document != nil {
		docs = append([]ledger.PurchaseDocument{{Document: *req.Document, Confirmations: req.Confirmations}}, docs...)
	}
	if len(docs) == 0 {
		h.fail(w, r, badRequest("no documents"))
		return
	}
	res, err := h.engine.ImportPurchases(r.Context(), docs)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// uploadPurchase reads the lines of one purchase from a spreadsheet. The
// document header comes from form fields; analyze=true previews only.
func (h *Handler) uploadPurchase(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		h.fail(w, r, badRequest("bad multipart form: %v", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.fail(w, r, badRequest("missing file: %v", err))
		return
	}
	defer file.Close()

	date, err := parseDate(r.FormValue("date"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	lines, err := fileio.ReadLines(file, header.Filename, atoi(r.FormValue("header_row"), 1))
	if err != nil {
		h.fail(w, r, fmt.Errorf("read %s: %w", header.Filename, err))
		return
	}
	doc := model.Document{
		Reference:  strings.TrimSpace(r.FormValue("reference")),
		Party:      strings.TrimSpace(r.FormValue("party")),
		PartyTaxID: strings.TrimSpace(r.FormValue("party_tax_id")),
		Date:       date,
		Lines:      lines,
	}
	h.logger.Info().Str("file", header.Filename).Int("lines", len(lines)).Str("doc_ref", doc.Reference).Msg("purchase upload parsed")

	if toBool(r.FormValue("analyze"), false) {
		writeJSON(w, http.StatusOK, h.engine.AnalyzePurchase(doc))
		return
	}
	res, err := h.engine.ImportPurchase(r.Context(), doc, nil)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) revertLastImport(w http.ResponseWriter, r *http.Request) {
	res, err := h.engine.RevertLastImport(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) analyzeSale(w http.ResponseWriter, r *http.Request) {
	var doc model.Document
	if err := h.decode(r, &doc); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.engine.AnalyzeSale(doc))
}

type saleRequest struct {
	Document      model.Document        `json:"document"`
	Confirmations []ledger.Confirmation `json:"confirmations,omitempty" validate:"dive"`
}

func (h *Handler) importSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.engine.ImportSale(r.Context(), req.Document, req.Confirmations)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) revertSale(w http.ResponseWriter, r *http.Request) {
	res, err := h.engine.RevertSale(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) pendingPurchases(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.PendingPurchases())
}

func (h *Handler) resolvePendingPurchase(w http.ResponseWriter, r *http.Request) {
	var res ledger.Resolution
	if err := h.decode(r, &res); err != nil {
		h.fail(w, r, err)
		return
	}
	out, err := h.engine.ResolvePendingPurchase(r.Context(), chi.URLParam(r, "id"), res)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) pendingSales(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.PendingSales())
}

type saleResolution struct {
	ProductID string `json:"productId" validate:"required"`
	Remember  bool   `json:"remember,omitempty"`
}

func (h *Handler) resolvePendingSale(w http.ResponseWriter, r *http.Request) {
	var req saleResolution
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	out, err := h.engine.ResolvePendingSale(r.Context(), chi.URLParam(r, "id"), req.ProductID, req.Remember)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) suppliers(w http.ResponseWriter, r *http.Request) {
	list := h.engine.Suppliers()
	if list == nil {
		list = []model.Supplier{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	list := h.engine.LowStock()
	if list == nil {
		list = []model.Product{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="catalog.csv"`)
	if err := h.engine.ExportCSV(w); err != nil {
		h.logger.Error().Err(err).Msg("export csv")
	}
}

func (h *Handler) exportXLSX(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="catalog.xlsx"`)
	if err := h.engine.ExportXLSX(w); err != nil {
		h.logger.Error().Err(err).Msg("export xlsx")
	}
}
