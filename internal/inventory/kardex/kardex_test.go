package kardex

import (
	"bytes"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	excelize "github.com/xuri/excelize/v2"

	"kardex-service/internal/inventory/model"
)

func f(v float64) *float64 { return &v }

func TestBuildRunningBalance(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	p := &model.Product{ID: "p1", Code: "ELE0001", AverageCost: 6}
	movements := []*model.Movement{
		{ID: "m3", Seq: 3, ProductID: "p1", Type: model.MovementExit, Quantity: 1, Date: day.AddDate(0, 0, 5)},
		{ID: "m1", Seq: 1, ProductID: "p1", Type: model.MovementEntry, Quantity: 2, UnitCost: f(5), Date: day},
		{ID: "x", Seq: 9, ProductID: "other", Type: model.MovementEntry, Quantity: 50, Date: day},
		// backdated after m1 was recorded, sorts before it
		{ID: "m2", Seq: 2, ProductID: "p1", Type: model.MovementEntry, Quantity: 3, UnitCost: f(7), Date: day.AddDate(0, 0, -1)},
	}

	l := Build(p, movements)
	require.Len(t, l.Rows, 3)
	require.Equal(t, []string{"m2", "m1", "m3"}, []string{l.Rows[0].MovementID, l.Rows[1].MovementID, l.Rows[2].MovementID})
	require.InDelta(t, 3.0, l.Rows[0].BalanceQty, 1e-9)
	require.InDelta(t, 21.0, l.Rows[0].BalanceValue, 1e-9)
	require.InDelta(t, 31.0, l.Rows[1].BalanceValue, 1e-9)
	// no unit cost: valued at the product average
	require.InDelta(t, 6.0, l.Rows[2].UnitCost, 1e-9)
	require.InDelta(t, 4.0, l.BalanceQty, 1e-9)
	require.InDelta(t, 25.0, l.BalanceValue, 1e-9)
	require.InDelta(t, 5.0, l.TotalIn, 1e-9)
	require.InDelta(t, 1.0, l.TotalOut, 1e-9)

	// inputs untouched
	require.Equal(t, "m3", movements[0].ID)
}

func TestBuildEmpty(t *testing.T) {
	l := Build(&model.Product{ID: "p1"}, nil)
	require.Empty(t, l.Rows)
	require.Zero(t, l.BalanceQty)
}

func sampleProducts() []*model.Product {
	return []*model.Product{
		{Code: "ELE0001", Description: "Electrical box 6in", Category: "Electrical", TotalStock: 5, AverageCost: 6.2, SuggestedPrice: 8.06, Suppliers: []string{"ACME", "Volt"}},
		{Code: "TOO0001", Description: "Hammer, claw", Category: "Tools"},
	}
}

func TestExportCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, sampleProducts()))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "code,description,category,stock,average_cost,suggested_price,total_value,suppliers", lines[0])
	require.Equal(t, "ELE0001,Electrical box 6in,Electrical,5,6.20,8.06,31.00,ACME; Volt", lines[1])
	require.Equal(t, `TOO0001,"Hammer, claw",Tools,0,0.00,0.00,0.00,`, lines[2])
}

func TestExportXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportXLSX(&buf, sampleProducts()))

	wb, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.GetRows("Catalog")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "ELE0001", rows[1][0])

	raw, err := wb.GetCellValue("Catalog", "G2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	total, err := strconv.ParseFloat(raw, 64)
	require.NoError(t, err, "total value is numeric")
	require.InDelta(t, 31, total, 1e-9)
}
