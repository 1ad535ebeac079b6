package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"kardex-service/internal/inventory/matching"
	"kardex-service/internal/inventory/model"
	"kardex-service/internal/inventory/store"
	"kardex-service/internal/metrics"
	"kardex-service/internal/textsim"
)

// Engine runs every command and query against the store under one lock.
// Each command is a transaction: a failure rolls the whole state back and a
// success is persisted as one snapshot.
type Engine struct {
	mu      sync.Mutex
	store   *store.Store
	matcher *matching.Matcher
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewEngine wires the engine. scorer and m may be nil.
func NewEngine(st *store.Store, scorer textsim.Scorer, m *metrics.Metrics, logger zerolog.Logger) *Engine {
	e := &Engine{
		store:   st,
		matcher: matching.New(st, scorer),
		metrics: m,
		logger:  logger.With().Str("component", "ledger").Logger(),
	}
	e.refreshGauges()
	return e
}

func (e *Engine) transact(ctx context.Context, op string, fn func() error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cp, err := e.store.Checkpoint()
	if err != nil {
		return fmt.Errorf("ledger: %s: checkpoint: %w", op, err)
	}
	rollback := func(cause error) error {
		if rerr := e.store.Restore(cp); rerr != nil {
			e.logger.Error().Err(rerr).Str("op", op).Msg("rollback failed")
		}
		return cause
	}
	if err := fn(); err != nil {
		e.logger.Debug().Err(err).Str("op", op).Msg("command rolled back")
		return rollback(err)
	}
	if err := e.store.Save(ctx); err != nil {
		e.logger.Error().Err(err).Str("op", op).Msg("snapshot write failed")
		return rollback(err)
	}
	e.refreshGauges()
	return nil
}

func (e *Engine) read(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn()
}

func (e *Engine) refreshGauges() {
	e.metrics.Pending(string(store.QueuePurchases), len(e.store.Pending(store.QueuePurchases)))
	e.metrics.Pending(string(store.QueueSales), len(e.store.Pending(store.QueueSales)))
}

func (e *Engine) options() matching.Options {
	return matching.OptionsFrom(e.store.Settings())
}

// cloneProduct copies p so callers can use it outside the lock.
func cloneProduct(p *model.Product) model.Product {
	c := *p
	c.Presentations = append([]model.Presentation(nil), p.Presentations...)
	c.PendingPresentations = append([]string{}, p.PendingPresentations...)
	c.Lots = append([]model.Lot{}, p.Lots...)
	c.Suppliers = append([]string{}, p.Suppliers...)
	c.Keywords = append([]string(nil), p.Keywords...)
	c.Variants = append([]string{}, p.Variants...)
	if p.LastPurchaseAt != nil {
		d := *p.LastPurchaseAt
		c.LastPurchaseAt = &d
	}
	if p.LastSaleAt != nil {
		d := *p.LastSaleAt
		c.LastSaleAt = &d
	}
	return c
}

func clonePending(list []*model.PendingReconciliation) []model.PendingReconciliation {
	out := make([]model.PendingReconciliation, 0, len(list))
	for _, p := range list {
		c := *p
		c.Candidates = append([]model.Candidate{}, p.Candidates...)
		out = append(out, c)
	}
	return out
}
