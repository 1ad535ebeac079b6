package kardex

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	excelize "github.com/xuri/excelize/v2"

	"kardex-service/internal/inventory/model"
)

var summaryHeader = []string{"code", "description", "category", "stock", "average_cost", "suggested_price", "total_value", "suppliers"}

func summaryRow(p *model.Product) []string {
	stock := decimal.NewFromFloat(p.TotalStock)
	avg := decimal.NewFromFloat(p.AverageCost)
	return []string{
		p.Code,
		p.Description,
		p.Category,
		stock.Round(4).String(),
		avg.StringFixed(2),
		decimal.NewFromFloat(p.SuggestedPrice).StringFixed(2),
		stock.Mul(avg).StringFixed(2),
		strings.Join(p.Suppliers, "; "),
	}
}

// summaryCells is summaryRow with numbers kept numeric for spreadsheets.
func summaryCells(p *model.Product) []any {
	stock := decimal.NewFromFloat(p.TotalStock)
	avg := decimal.NewFromFloat(p.AverageCost)
	return []any{
		p.Code,
		p.Description,
		p.Category,
		stock.Round(4).InexactFloat64(),
		avg.Round(2).InexactFloat64(),
		decimal.NewFromFloat(p.SuggestedPrice).Round(2).InexactFloat64(),
		stock.Mul(avg).Round(2).InexactFloat64(),
		strings.Join(p.Suppliers, "; "),
	}
}

// ExportCSV writes the flat catalog summary.
func ExportCSV(w io.Writer, products []*model.Product) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(summaryHeader); err != nil {
		return err
	}
	for _, p := range products {
		if err := cw.Write(summaryRow(p)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportXLSX writes the same summary as a single-sheet workbook.
func ExportXLSX(w io.Writer, products []*model.Product) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Catalog"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return err
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return err
	}
	if err := f.SetColStyle(sheet, "E:G", money); err != nil {
		return err
	}
	write := func(row int, cells []any) error {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		return f.SetSheetRow(sheet, cell, &cells)
	}
	header := make([]any, len(summaryHeader))
	for i, h := range summaryHeader {
		header[i] = h
	}
	if err := write(1, header); err != nil {
		return err
	}
	for i, p := range products {
		if err := write(i+2, summaryCells(p)); err != nil {
			return fmt.Errorf("kardex: xlsx row %d: %w", i+2, err)
		}
	}
	_, err = f.WriteTo(w)
	return err
}
