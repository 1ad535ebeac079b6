package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/redis/go-redis/v9"

	"kardex-service/internal/inventory/costing"
	"kardex-service/internal/inventory/model"
	"kardex-service/internal/inventory/units"
)

// ErrNoSnapshot is returned by a Snapshotter that has nothing stored yet.
var ErrNoSnapshot = errors.New("store: no snapshot")

// Snapshotter persists one opaque snapshot blob.
type Snapshotter interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, b []byte) error
}

// FileSnapshotter keeps the snapshot in a single file, replaced atomically.
type FileSnapshotter struct {
	Path string
}

func (f FileSnapshotter) Read(_ context.Context) ([]byte, error) {
	b, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSnapshot
	}
	return b, err
}

func (f FileSnapshotter) Write(_ context.Context, b []byte) error {
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.Path)
}

// RedisSnapshotter keeps the snapshot under one Redis key.
type RedisSnapshotter struct {
	Client *redis.Client
	Key    string
}

func (r RedisSnapshotter) Read(ctx context.Context) ([]byte, error) {
	b, err := r.Client.Get(ctx, r.Key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSnapshot
	}
	return b, err
}

func (r RedisSnapshotter) Write(ctx context.Context, b []byte) error {
	return r.Client.Set(ctx, r.Key, b, 0).Err()
}

// MemorySnapshotter holds the last written snapshot in memory.
type MemorySnapshotter struct {
	Data []byte
}

func (m *MemorySnapshotter) Read(_ context.Context) ([]byte, error) {
	if m.Data == nil {
		return nil, ErrNoSnapshot
	}
	return append([]byte(nil), m.Data...), nil
}

func (m *MemorySnapshotter) Write(_ context.Context, b []byte) error {
	m.Data = append(m.Data[:0], b...)
	return nil
}

// Encode serializes a state.
func Encode(st *model.State) ([]byte, error) {
	st.Version = model.SnapshotVersion
	return json.Marshal(st)
}

// Decode parses a snapshot and applies migration fix-ups.
func Decode(b []byte, defaults model.Settings) (*model.State, error) {
	var st model.State
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, fmt.Errorf("store: decode snapshot: %w", err)
	}
	migrate(&st, defaults)
	return &st, nil
}

// migrate fills fields missing from older snapshots and recomputes every
// derived aggregate from lots.
func migrate(st *model.State, defaults model.Settings) {
	if st.Settings.CostingMethod == "" {
		st.Settings = defaults
	}
	if err := st.Settings.Validate(); err != nil {
		st.Settings = defaults
	}
	if st.Mappings == nil {
		st.Mappings = make(map[string]string)
	}

	products := st.Products[:0]
	for _, p := range st.Products {
		if p == nil || p.ID == "" {
			continue
		}
		if p.Presentations == nil {
			p.Presentations = []model.Presentation{}
		}
		units.EnsureBase(p)
		if p.PendingPresentations == nil {
			p.PendingPresentations = []string{}
		}
		if p.Suppliers == nil {
			p.Suppliers = []string{}
		}
		if p.Lots == nil {
			p.Lots = []model.Lot{}
		}
		p.Lots = costing.Prune(p.Lots)
		costing.Recompute(p, st.Settings.Margin)
		products = append(products, p)
	}
	st.Products = products

	movements := st.Movements[:0]
	for _, m := range st.Movements {
		if m != nil {
			movements = append(movements, m)
		}
	}
	st.Movements = movements
	// older snapshots have no sequence; number them in stored order
	var maxSeq int64
	for _, m := range st.Movements {
		if m.Seq > maxSeq {
			maxSeq = m.Seq
		}
	}
	for _, m := range st.Movements {
		if m.Seq == 0 {
			maxSeq++
			m.Seq = maxSeq
		}
	}
	sort.SliceStable(st.Movements, func(i, j int) bool { return st.Movements[i].Seq < st.Movements[j].Seq })
	if st.NextSeq < maxSeq {
		st.NextSeq = maxSeq
	}

	st.PendingPurchases = compactPending(st.PendingPurchases)
	st.PendingSales = compactPending(st.PendingSales)
	st.Suppliers = compactSuppliers(st.Suppliers)
	st.Version = model.SnapshotVersion
}

func compactPending(in []*model.PendingReconciliation) []*model.PendingReconciliation {
	out := in[:0]
	for _, p := range in {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

func compactSuppliers(in []*model.Supplier) []*model.Supplier {
	out := in[:0]
	for _, s := range in {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}
