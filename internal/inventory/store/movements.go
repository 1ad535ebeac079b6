package store

import (
	"github.com/google/uuid"

	"kardex-service/internal/inventory/model"
)

// AppendMovement assigns an id and the next sequence number and records m.
func (s *Store) AppendMovement(m model.Movement) *model.Movement {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Date.IsZero() {
		m.Date = s.now()
	}
	s.state.NextSeq++
	m.Seq = s.state.NextSeq
	rec := &m
	s.state.Movements = append(s.state.Movements, rec)
	return rec
}

// Movements returns every movement in recording order.
func (s *Store) Movements() []*model.Movement {
	return s.state.Movements
}

// MovementsFor returns a product's movements in recording order.
func (s *Store) MovementsFor(productID string) []*model.Movement {
	var out []*model.Movement
	for _, m := range s.state.Movements {
		if m.ProductID == productID {
			out = append(out, m)
		}
	}
	return out
}

// MovementsByRef returns the movements of one type tagged with ref.
func (s *Store) MovementsByRef(ref string, typ model.MovementType) []*model.Movement {
	var out []*model.Movement
	for _, m := range s.state.Movements {
		if m.DocumentRef == ref && m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}

// DeleteMovements drops the movements whose ids are in ids.
func (s *Store) DeleteMovements(ids map[string]struct{}) int {
	out := s.state.Movements[:0]
	n := 0
	for _, m := range s.state.Movements {
		if _, drop := ids[m.ID]; drop {
			n++
			continue
		}
		out = append(out, m)
	}
	// clear the tail so dropped pointers are not retained
	for i := len(out); i < len(s.state.Movements); i++ {
		s.state.Movements[i] = nil
	}
	s.state.Movements = out
	return n
}

func (s *Store) hasMovements(productID string) bool {
	for _, m := range s.state.Movements {
		if m.ProductID == productID {
			return true
		}
	}
	return false
}
