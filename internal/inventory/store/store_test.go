package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"kardex-service/internal/inventory/costing"
	"kardex-service/internal/inventory/model"
)

func newTestStore(t *testing.T) (*Store, *MemorySnapshotter) {
	t.Helper()
	snap := &MemorySnapshotter{}
	return New(snap, model.DefaultSettings(), zerolog.Nop()), snap
}

// every product's aggregates must match its lots
func requireAggregates(t *testing.T, s *Store) {
	t.Helper()
	for _, p := range s.Products() {
		stock, avg := costing.Aggregate(p.Lots)
		require.InDelta(t, stock-p.Backorder, p.TotalStock, 1e-9, p.Code)
		require.InDelta(t, avg, p.AverageCost, 1e-9, p.Code)
		for _, l := range p.Lots {
			require.Greater(t, l.Quantity, 0.0, p.Code)
		}
	}
}

func TestCreateProductCodes(t *testing.T) {
	s, _ := newTestStore(t)

	p1, err := s.CreateProduct("Electrical box 6in", "", "")
	require.NoError(t, err)
	require.Equal(t, "Electrical", p1.Category)
	require.Equal(t, "ELE0001", p1.Code)
	require.True(t, p1.Active)
	require.Equal(t, []model.Presentation{{Name: "UNIT", Factor: 1}}, p1.Presentations)
	require.Zero(t, p1.TotalStock)

	// a manual code takes the next slot, so the generator skips past it
	code := "ELE0002"
	_, err = s.UpdateProduct(p1.ID, ProductPatch{Code: &code})
	require.NoError(t, err)
	p2, err := s.CreateProduct("Wire 12awg", "Electrical", "")
	require.NoError(t, err)
	require.Equal(t, "ELE0003", p2.Code)

	_, err = s.CreateProduct("  ", "", "")
	require.ErrorIs(t, err, model.ErrInvalidProduct)

	_, err = s.UpdateProduct(p2.ID, ProductPatch{Code: &code})
	require.ErrorIs(t, err, model.ErrDuplicateCode)
}

func TestAddLotWeightedAverage(t *testing.T) {
	s, _ := newTestStore(t)
	p, err := s.CreateProduct("Electrical box 6in", "", "")
	require.NoError(t, err)

	_, err = s.AddLot(p.ID, model.Lot{Quantity: 2, UnitCost: 5, SupplierName: "ACME"})
	require.NoError(t, err)
	_, err = s.AddLot(p.ID, model.Lot{Quantity: 3, UnitCost: 7, SupplierName: "acme"})
	require.NoError(t, err)

	require.InDelta(t, 5.0, p.TotalStock, 1e-9)
	require.InDelta(t, 6.2, p.AverageCost, 1e-9)
	require.InDelta(t, 6.2*1.3, p.SuggestedPrice, 1e-9)
	require.Equal(t, []string{"ACME"}, p.Suppliers)
	require.NotNil(t, p.LastPurchaseAt)
	requireAggregates(t, s)

	_, err = s.AddLot("missing", model.Lot{Quantity: 1})
	require.ErrorIs(t, err, model.ErrProductNotFound)
	_, err = s.AddLot(p.ID, model.Lot{Quantity: 0})
	require.ErrorIs(t, err, model.ErrInvalidQuantity)
}

func TestConsumeRespectsNegativeStockSetting(t *testing.T) {
	s, _ := newTestStore(t)
	p, _ := s.CreateProduct("Hammer", "", "")
	_, err := s.AddLot(p.ID, model.Lot{Quantity: 2, UnitCost: 10})
	require.NoError(t, err)

	_, _, err = s.Consume(p.ID, 3, time.Now())
	require.ErrorIs(t, err, model.ErrInsufficientStock)

	cfg := s.Settings()
	cfg.AllowNegativeStock = true
	require.NoError(t, s.SetSettings(cfg))

	allocs, short, err := s.Consume(p.ID, 3, time.Now())
	require.NoError(t, err)
	require.Len(t, allocs, 1)
	require.InDelta(t, 1.0, short, 1e-9)
	require.InDelta(t, -1.0, p.TotalStock, 1e-9)
	require.Empty(t, p.Lots)

	// the next lot settles the backorder first
	_, err = s.AddLot(p.ID, model.Lot{Quantity: 4, UnitCost: 12})
	require.NoError(t, err)
	require.InDelta(t, 3.0, p.TotalStock, 1e-9)
	require.Zero(t, p.Backorder)
	requireAggregates(t, s)
}

func TestDeleteBlockedByHistoryAndPurges(t *testing.T) {
	s, _ := newTestStore(t)
	p, _ := s.CreateProduct("Hammer", "", "")
	other, _ := s.CreateProduct("Claw hammer", "", "")

	_, err := s.AddLot(p.ID, model.Lot{Quantity: 1, UnitCost: 1})
	require.NoError(t, err)
	require.ErrorIs(t, s.Delete(p.ID), model.ErrHasHistory)

	s.AppendMovement(model.Movement{ProductID: other.ID, Type: model.MovementEntry, Quantity: 1})
	require.ErrorIs(t, s.Delete(other.ID), model.ErrHasHistory)

	clean, _ := s.CreateProduct("Hammer handle", "", "")
	s.Remember("hammer handle wood", clean.ID)
	s.AddPending(QueuePurchases, model.PendingReconciliation{
		Candidates: []model.Candidate{{ProductID: clean.ID}, {ProductID: p.ID}},
	})
	s.SetLastImport(&model.BatchImportRecord{CreatedProductIDs: []string{clean.ID}})

	require.NoError(t, s.Delete(clean.ID))
	_, err = s.Product(clean.ID)
	require.ErrorIs(t, err, model.ErrProductNotFound)
	_, ok := s.Recall("hammer handle wood")
	require.False(t, ok)
	require.Equal(t, []model.Candidate{{ProductID: p.ID}}, s.Pending(QueuePurchases)[0].Candidates)
	require.Empty(t, s.LastImport().CreatedProductIDs)
}

func TestDeactivateKeepsStock(t *testing.T) {
	s, _ := newTestStore(t)
	p, _ := s.CreateProduct("Hammer", "", "HM-1")
	_, _ = s.AddLot(p.ID, model.Lot{Quantity: 4, UnitCost: 2})

	require.NoError(t, s.Deactivate(p.ID))
	require.False(t, p.Active)
	require.InDelta(t, 4.0, p.TotalStock, 1e-9)
	_, ok := s.ProductByCode("hm-1")
	require.False(t, ok)

	require.NoError(t, s.Reactivate(p.ID))
	found, ok := s.ProductByCode("hm-1")
	require.True(t, ok)
	require.Equal(t, p.ID, found.ID)
}

func TestTakePendingOnce(t *testing.T) {
	s, _ := newTestStore(t)
	e := s.AddPending(QueueSales, model.PendingReconciliation{DocumentRef: "S-1"})
	_, ok := s.TakePending(QueueSales, e.ID)
	require.True(t, ok)
	_, ok = s.TakePending(QueueSales, e.ID)
	require.False(t, ok)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s, snap := newTestStore(t)
	p, _ := s.CreateProduct("Electrical box 6in", "", "")
	_, _ = s.AddLot(p.ID, model.Lot{Quantity: 2, UnitCost: 5})
	s.AppendMovement(model.Movement{ProductID: p.ID, Type: model.MovementEntry, Quantity: 2, DocumentRef: "DOC-1"})
	s.Remember("electrical box 6in", p.ID)
	require.NoError(t, s.Save(context.Background()))

	loaded := New(snap, model.DefaultSettings(), zerolog.Nop())
	require.NoError(t, loaded.Load(context.Background()))
	lp, err := loaded.Product(p.ID)
	require.NoError(t, err)
	require.InDelta(t, 2.0, lp.TotalStock, 1e-9)
	require.Len(t, loaded.Movements(), 1)
	require.Equal(t, int64(1), loaded.Movements()[0].Seq)
	_, ok := loaded.Recall("ELECTRICAL BOX 6IN")
	require.True(t, ok)
}

func TestLoadMigratesOldSnapshot(t *testing.T) {
	old := `{"products":[{"id":"p1","code":"HAR0001","description":"Screw","baseUnit":"UNIT",
		"totalStock":99,"lots":[{"id":"l1","quantity":3,"unitCost":2},{"id":"l2","quantity":0,"unitCost":9}]}],
		"movements":[{"id":"m1","productId":"p1","type":"entry","quantity":3}]}`
	snap := &MemorySnapshotter{Data: []byte(old)}
	s := New(snap, model.DefaultSettings(), zerolog.Nop())
	require.NoError(t, s.Load(context.Background()))

	p, err := s.Product("p1")
	require.NoError(t, err)
	require.True(t, p.Active)
	require.Equal(t, []model.Presentation{{Name: "UNIT", Factor: 1}}, p.Presentations)
	require.NotNil(t, p.PendingPresentations)
	require.Len(t, p.Lots, 1)
	require.InDelta(t, 3.0, p.TotalStock, 1e-9)
	require.Equal(t, model.DefaultSettings(), s.Settings())
	require.Equal(t, int64(1), s.Movements()[0].Seq)

	// new movements continue the sequence
	m := s.AppendMovement(model.Movement{ProductID: "p1", Type: model.MovementExit, Quantity: 1})
	require.Equal(t, int64(2), m.Seq)
}

func TestLoadCorruptSnapshotFallsBackToEmpty(t *testing.T) {
	snap := &MemorySnapshotter{Data: []byte(`{"products": [`)}
	s := New(snap, model.DefaultSettings(), zerolog.Nop())
	require.NoError(t, s.Load(context.Background()))
	require.Empty(t, s.Products())
	require.Equal(t, model.DefaultSettings(), s.Settings())
}

func TestFileSnapshotter(t *testing.T) {
	ctx := context.Background()
	f := FileSnapshotter{Path: filepath.Join(t.TempDir(), "data", "ledger.json")}
	_, err := f.Read(ctx)
	require.ErrorIs(t, err, ErrNoSnapshot)

	require.NoError(t, f.Write(ctx, []byte(`{"version":2}`)))
	b, err := f.Read(ctx)
	require.NoError(t, err)
	require.JSONEq(t, `{"version":2}`, string(b))
}

func TestRedisSnapshotter(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	snap := RedisSnapshotter{Client: client, Key: "kardex:test"}
	_, err := snap.Read(ctx)
	require.ErrorIs(t, err, ErrNoSnapshot)

	s := New(snap, model.DefaultSettings(), zerolog.Nop())
	p, _ := s.CreateProduct("Cement sack 50kg", "", "")
	require.NoError(t, s.Save(ctx))

	loaded := New(snap, model.DefaultSettings(), zerolog.Nop())
	require.NoError(t, loaded.Load(ctx))
	lp, err := loaded.Product(p.ID)
	require.NoError(t, err)
	require.Equal(t, "Construction", lp.Category)
}

func TestCheckpointRestore(t *testing.T) {
	s, _ := newTestStore(t)
	p, _ := s.CreateProduct("Hammer", "", "")
	cp, err := s.Checkpoint()
	require.NoError(t, err)

	_, _ = s.AddLot(p.ID, model.Lot{Quantity: 5, UnitCost: 3})
	_, _ = s.CreateProduct("Saw", "", "")
	require.NoError(t, s.Restore(cp))

	require.Len(t, s.Products(), 1)
	rp, err := s.Product(p.ID)
	require.NoError(t, err)
	require.Zero(t, rp.TotalStock)
}

func TestLowStock(t *testing.T) {
	s, _ := newTestStore(t)
	a, _ := s.CreateProduct("Hammer", "", "")
	b, _ := s.CreateProduct("Saw", "", "")
	_, _ = s.AddLot(a.ID, model.Lot{Quantity: 10, UnitCost: 1})
	_, _ = s.AddLot(b.ID, model.Lot{Quantity: 2, UnitCost: 1})

	low := s.LowStock()
	require.Len(t, low, 1)
	require.Equal(t, b.ID, low[0].ID)
}

func TestRemoveSupplierOnlyWhenUnreferenced(t *testing.T) {
	s, _ := newTestStore(t)
	p, err := s.CreateProduct("Hammer", "", "")
	require.NoError(t, err)
	sp := s.Supplier("Beta Tools", "")
	lot, err := s.AddLot(p.ID, model.Lot{Quantity: 1, UnitCost: 3, SupplierID: sp.ID, SupplierName: sp.Name})
	require.NoError(t, err)

	require.False(t, s.RemoveSupplier(sp.ID))
	_, ok := s.RemoveLot(p.ID, lot.ID)
	require.True(t, ok)
	require.True(t, s.RemoveSupplier(sp.ID))
	require.Empty(t, s.Suppliers())
	require.Empty(t, p.Suppliers)
	require.False(t, s.RemoveSupplier(sp.ID))
}
