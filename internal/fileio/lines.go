package fileio

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"kardex-service/internal/inventory/model"
	"kardex-service/internal/textsim"
	"kardex-service/internal/utils"
)

var (
	ErrUnsupportedFile = errors.New("fileio: unsupported file")
	ErrMissingColumn   = errors.New("fileio: missing column")
)

// header aliases, compared after textsim.Normalize
var columnAliases = map[string][]string{
	"description": {"description", "desc", "item", "product", "name", "detail", "descripcion", "detalle", "producto", "articulo"},
	"code":        {"code", "sku", "item code", "product code", "ref", "codigo", "cod"},
	"quantity":    {"quantity", "qty", "qnt", "units", "cantidad", "cant"},
	"price":       {"unit price", "price", "unit cost", "cost", "precio", "precio unitario", "costo", "p unit"},
	"unit":        {"unit", "uom", "presentation", "unidad", "medida", "presentacion"},
	"kind":        {"kind", "type", "line type", "tipo"},
}

// ReadLines reads document lines from a csv, xls or xlsx upload. Only the
// description and quantity columns are required; rows whose quantity does
// not parse are dropped.
func ReadLines(r io.Reader, filename string, headerRow int) ([]model.DocumentLine, error) {
	rows, err := ReadAnyMaps(r, filename, headerRow)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []model.DocumentLine{}, nil
	}
	cols := resolveColumns(rows[0])
	for _, need := range []string{"description", "quantity"} {
		if cols[need] == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, need)
		}
	}

	out := make([]model.DocumentLine, 0, len(rows))
	for _, row := range rows {
		if looksLikeHeader(row, cols) {
			continue
		}
		qty, ok := utils.ParseAmount(row[cols["quantity"]])
		if !ok {
			continue
		}
		line := model.DocumentLine{
			Kind:        strings.ToLower(row[cols["kind"]]),
			Code:        row[cols["code"]],
			Description: row[cols["description"]],
			Quantity:    qty,
			Unit:        row[cols["unit"]],
		}
		if price, ok := utils.ParseAmount(row[cols["price"]]); ok {
			line.UnitPrice = price
		}
		if strings.TrimSpace(line.Description) == "" && line.Code == "" {
			continue
		}
		out = append(out, line)
	}
	return out, nil
}

// resolveColumns maps each logical column to the header that names it:
// an exact alias first, then the header containing the longest alias, so
// composite headers like "Qty received" still resolve.
func resolveColumns(sample map[string]string) map[string]string {
	byNorm := make(map[string]string, len(sample))
	for h := range sample {
		byNorm[textsim.Normalize(h)] = h
	}
	out := make(map[string]string, len(columnAliases))
	taken := make(map[string]bool, len(columnAliases))
	// exact matches claim their headers before any partial match runs
	for col, aliases := range columnAliases {
		for _, a := range aliases {
			if h, ok := byNorm[a]; ok && !taken[h] {
				out[col], taken[h] = h, true
				break
			}
		}
	}
	for _, col := range columnOrder {
		if out[col] != "" {
			continue
		}
		best, bestLen := "", 0
		for n, h := range byNorm {
			if taken[h] {
				continue
			}
			for _, a := range columnAliases[col] {
				if len(a) > bestLen && containsWord(n, a) {
					best, bestLen = h, len(a)
				}
			}
		}
		if best != "" {
			out[col], taken[best] = best, true
		}
	}
	return out
}

// partial matching runs in this order so "unit price" is not taken as unit
var columnOrder = []string{"price", "quantity", "description", "code", "unit", "kind"}

func containsWord(s, word string) bool {
	return strings.Contains(" "+s+" ", " "+word+" ")
}

// looksLikeHeader spots a header row repeated inside the data, as paged
// exports do.
func looksLikeHeader(row map[string]string, cols map[string]string) bool {
	hits := 0
	for _, col := range []string{"description", "quantity", "price"} {
		v := textsim.Normalize(row[cols[col]])
		for _, a := range columnAliases[col] {
			if v == a {
				hits++
				break
			}
		}
	}
	return hits >= 2
}
