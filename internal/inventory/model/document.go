package model

import (
	"strings"
	"time"
)

// Document is a purchase or sale as handed over by the surrounding
// application.
type Document struct {
	Reference  string         `json:"reference"`
	Party      string         `json:"party"`
	PartyTaxID string         `json:"partyTaxId,omitempty"`
	Date       time.Time      `json:"date"`
	Lines      []DocumentLine `json:"lines"`
}

// DocumentLine is one item of a document. Unit is the packaging word when the
// issuer states it; otherwise it is detected from the description.
type DocumentLine struct {
	Kind        string  `json:"kind"`
	Code        string  `json:"code,omitempty"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	Unit        string  `json:"unit,omitempty"`
}

// Applicable reports whether the document has the shape the engine needs.
func (d Document) Applicable() bool {
	return strings.TrimSpace(d.Reference) != "" &&
		strings.TrimSpace(d.Party) != "" &&
		!d.Date.IsZero() &&
		len(d.Lines) > 0
}

// IsGoods reports whether the line moves stock. An empty kind counts as goods.
func (l DocumentLine) IsGoods() bool {
	k := strings.ToLower(strings.TrimSpace(l.Kind))
	return k == "" || k == LineKindGoods
}
