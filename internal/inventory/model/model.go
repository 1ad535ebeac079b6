package model

import (
	"encoding/json"
	"time"
)

// DefaultBaseUnit is the base unit assigned to new products.
const DefaultBaseUnit = "UNIT"

// LineKindGoods is the only document line kind that moves stock.
const LineKindGoods = "goods"

// MovementType is the direction of a ledger entry.
type MovementType string

const (
	MovementEntry MovementType = "entry"
	MovementExit  MovementType = "exit"
)

// CostingMethod selects which lots an exit depletes.
type CostingMethod string

const (
	CostingLIFO    CostingMethod = "LIFO"
	CostingFIFO    CostingMethod = "FIFO"
	CostingAverage CostingMethod = "AVERAGE"
)

// Presentation is a packaging unit and how many base units it holds.
type Presentation struct {
	Name   string  `json:"name"`
	Factor float64 `json:"factor"`
}

// Lot is a quantity of one product bought at one cost. Quantity and
// UnitCost are in base units.
type Lot struct {
	ID           string    `json:"id"`
	SupplierID   string    `json:"supplierId,omitempty"`
	SupplierName string    `json:"supplierName,omitempty"`
	Quantity     float64   `json:"quantity"`
	UnitCost     float64   `json:"unitCost"`
	EntryDate    time.Time `json:"entryDate"`
	SupplierCode string    `json:"supplierCode,omitempty"`
	TraceCode    string    `json:"traceCode"`
}

// Product is a catalog entry. TotalStock, AverageCost and SuggestedPrice are
// derived from Lots and Backorder and are only written by the store.
type Product struct {
	ID                   string         `json:"id"`
	Code                 string         `json:"code"`
	SupplierCode         string         `json:"supplierCode,omitempty"`
	Description          string         `json:"description"`
	Category             string         `json:"category"`
	Active               bool           `json:"active"`
	BaseUnit             string         `json:"baseUnit"`
	Presentations        []Presentation `json:"presentations"`
	PendingPresentations []string       `json:"pendingPresentations"`
	TotalStock           float64        `json:"totalStock"`
	AverageCost          float64        `json:"averageCost"`
	SuggestedPrice       float64        `json:"suggestedPrice"`
	// uncovered quantity sold while stock was allowed to go negative
	Backorder      float64    `json:"backorder,omitempty"`
	Lots           []Lot      `json:"lots"`
	Suppliers      []string   `json:"suppliers"`
	LastPurchaseAt *time.Time `json:"lastPurchaseAt,omitempty"`
	LastSaleAt     *time.Time `json:"lastSaleAt,omitempty"`
	Favorite       bool       `json:"favorite"`
	TrackInventory bool       `json:"trackInventory"`
	Keywords       []string   `json:"keywords"`
	Variants       []string   `json:"variants"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// UnmarshalJSON defaults a missing "active" to true for snapshots written
// before the flag existed.
func (p *Product) UnmarshalJSON(b []byte) error {
	type plain Product
	aux := struct {
		*plain
		Active *bool `json:"active"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	p.Active = aux.Active == nil || *aux.Active
	return nil
}

// Movement is an immutable ledger entry. Seq orders movements by recording
// time; Date is the business date and may be backdated.
type Movement struct {
	ID               string       `json:"id"`
	Seq              int64        `json:"seq"`
	ProductID        string       `json:"productId"`
	Type             MovementType `json:"type"`
	Quantity         float64      `json:"quantity"`
	OriginalQuantity float64      `json:"originalQuantity,omitempty"`
	Presentation     string       `json:"presentation,omitempty"`
	Factor           float64      `json:"factor,omitempty"`
	UnitCost         *float64     `json:"unitCost,omitempty"`
	UnitPrice        *float64     `json:"unitPrice,omitempty"`
	LotID            string       `json:"lotId,omitempty"`
	LotDate          *time.Time   `json:"lotDate,omitempty"`
	DocumentRef      string       `json:"documentRef"`
	Date             time.Time    `json:"date"`
	Party            string       `json:"party,omitempty"`
	Reason           string       `json:"reason,omitempty"`
}

// Supplier is created lazily on the first purchase under its name.
type Supplier struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	TaxID          string     `json:"taxId,omitempty"`
	Category       string     `json:"category,omitempty"`
	LastPurchaseAt *time.Time `json:"lastPurchaseAt,omitempty"`
	TotalPurchased float64    `json:"totalPurchased"`
}

// Candidate is a ranked product suggestion for a pending line.
type Candidate struct {
	ProductID   string  `json:"productId"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// PendingReconciliation is a document line waiting for a human decision.
type PendingReconciliation struct {
	ID          string       `json:"id"`
	DocumentRef string       `json:"documentRef"`
	Party       string       `json:"party,omitempty"`
	PartyTaxID  string       `json:"partyTaxId,omitempty"`
	Date        time.Time    `json:"date"`
	Line        DocumentLine `json:"line"`
	Candidates  []Candidate  `json:"candidates"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// BatchImportRecord bounds what RevertLastImport may undo.
type BatchImportRecord struct {
	DocumentRefs       []string  `json:"documentRefs"`
	CreatedProductIDs  []string  `json:"createdProductIds"`
	CreatedSupplierIDs []string  `json:"createdSupplierIds,omitempty"`
	At                 time.Time `json:"at"`

	// last purchase dates from before the batch, by product and supplier id
	PriorProductPurchase  map[string]*time.Time `json:"priorProductPurchase,omitempty"`
	PriorSupplierPurchase map[string]*time.Time `json:"priorSupplierPurchase,omitempty"`
}

// NotePurchase keeps the last purchase dates p and sp had before the batch
// first bought from them. Later calls for the same ids are ignored.
func (r *BatchImportRecord) NotePurchase(p *Product, sp *Supplier) {
	if r == nil {
		return
	}
	if r.PriorProductPurchase == nil {
		r.PriorProductPurchase = map[string]*time.Time{}
	}
	if _, ok := r.PriorProductPurchase[p.ID]; !ok {
		r.PriorProductPurchase[p.ID] = copyTime(p.LastPurchaseAt)
	}
	if sp == nil {
		return
	}
	if r.PriorSupplierPurchase == nil {
		r.PriorSupplierPurchase = map[string]*time.Time{}
	}
	if _, ok := r.PriorSupplierPurchase[sp.ID]; !ok {
		r.PriorSupplierPurchase[sp.ID] = copyTime(sp.LastPurchaseAt)
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := *t
	return &d
}

// Has reports whether ref belongs to the batch.
func (r *BatchImportRecord) Has(ref string) bool {
	if r == nil {
		return false
	}
	for _, d := range r.DocumentRefs {
		if d == ref {
			return true
		}
	}
	return false
}
