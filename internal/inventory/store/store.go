package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"kardex-service/internal/inventory/model"
)

// Store owns the catalog state tree. It is not safe for concurrent use; the
// ledger engine serializes access.
type Store struct {
	state    *model.State
	byID     map[string]*model.Product
	snap     Snapshotter
	defaults model.Settings
	logger   zerolog.Logger
	now      func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New builds an empty store backed by snap. defaults seed the settings of a
// fresh state.
func New(snap Snapshotter, defaults model.Settings, logger zerolog.Logger, opts ...Option) *Store {
	s := &Store{
		snap:     snap,
		defaults: defaults,
		logger:   logger.With().Str("component", "store").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	s.reset(model.NewState(defaults))
	return s
}

// Now is the store clock.
func (s *Store) Now() time.Time { return s.now() }

// Load replaces the state with the stored snapshot. A missing or corrupt
// snapshot leaves an empty valid state; only transport errors are returned.
func (s *Store) Load(ctx context.Context) error {
	if s.snap == nil {
		return nil
	}
	b, err := s.snap.Read(ctx)
	if errors.Is(err, ErrNoSnapshot) {
		s.logger.Info().Msg("no snapshot, starting empty")
		s.reset(model.NewState(s.defaults))
		return nil
	}
	if err != nil {
		s.reset(model.NewState(s.defaults))
		return fmt.Errorf("store: read snapshot: %w", err)
	}
	st, err := Decode(b, s.defaults)
	if err != nil {
		s.logger.Warn().Err(err).Int("bytes", len(b)).Msg("corrupt snapshot, starting empty")
		st = model.NewState(s.defaults)
	}
	s.reset(st)
	s.logger.Info().
		Int("products", len(st.Products)).
		Int("movements", len(st.Movements)).
		Int("pending_purchases", len(st.PendingPurchases)).
		Int("pending_sales", len(st.PendingSales)).
		Msg("snapshot loaded")
	return nil
}

// Save writes the full state as one snapshot.
func (s *Store) Save(ctx context.Context) error {
	if s.snap == nil {
		return nil
	}
	b, err := Encode(s.state)
	if err != nil {
		return fmt.Errorf("store: encode snapshot: %w", err)
	}
	if err := s.snap.Write(ctx, b); err != nil {
		return fmt.Errorf("store: write snapshot: %w", err)
	}
	return nil
}

// Checkpoint captures the state so a failed command can be rolled back.
func (s *Store) Checkpoint() ([]byte, error) {
	return Encode(s.state)
}

// Restore rolls the state back to a checkpoint.
func (s *Store) Restore(b []byte) error {
	st, err := Decode(b, s.defaults)
	if err != nil {
		return err
	}
	s.reset(st)
	return nil
}

// Settings returns the engine settings.
func (s *Store) Settings() model.Settings { return s.state.Settings }

// SetSettings replaces the engine settings after validation and refreshes
// suggested prices for the new margin.
func (s *Store) SetSettings(cfg model.Settings) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.state.Settings = cfg
	for _, p := range s.state.Products {
		s.recompute(p)
	}
	return nil
}

func (s *Store) reset(st *model.State) {
	s.state = st
	s.byID = make(map[string]*model.Product, len(st.Products))
	for _, p := range st.Products {
		s.byID[p.ID] = p
	}
}
