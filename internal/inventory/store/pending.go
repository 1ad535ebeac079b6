package store

import (
	"github.com/google/uuid"

	"kardex-service/internal/inventory/model"
	"kardex-service/internal/textsim"
)

// Queue names one of the two pending-resolution queues.
type Queue string

const (
	QueuePurchases Queue = "purchases"
	QueueSales     Queue = "sales"
)

func (s *Store) queue(q Queue) *[]*model.PendingReconciliation {
	if q == QueueSales {
		return &s.state.PendingSales
	}
	return &s.state.PendingPurchases
}

// AddPending enqueues an entry and returns it with its id assigned.
func (s *Store) AddPending(q Queue, p model.PendingReconciliation) *model.PendingReconciliation {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	if p.Candidates == nil {
		p.Candidates = []model.Candidate{}
	}
	rec := &p
	list := s.queue(q)
	*list = append(*list, rec)
	return rec
}

// Pending lists a queue oldest first.
func (s *Store) Pending(q Queue) []*model.PendingReconciliation {
	return *s.queue(q)
}

// TakePending removes an entry from its queue and returns it.
func (s *Store) TakePending(q Queue, id string) (*model.PendingReconciliation, bool) {
	list := s.queue(q)
	for i, p := range *list {
		if p.ID == id {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return p, true
		}
	}
	return nil, false
}

// Remember maps a description to a product for future imports.
func (s *Store) Remember(description, productID string) {
	if key := textsim.Normalize(description); key != "" {
		s.state.Mappings[key] = productID
	}
}

// Recall returns the active product remembered for description.
func (s *Store) Recall(description string) (*model.Product, bool) {
	id, ok := s.state.Mappings[textsim.Normalize(description)]
	if !ok {
		return nil, false
	}
	p, ok := s.byID[id]
	if !ok || !p.Active {
		return nil, false
	}
	return p, true
}

// LastImport returns the record of the latest purchase batch.
func (s *Store) LastImport() *model.BatchImportRecord { return s.state.LastImport }

// SetLastImport records the latest purchase batch.
func (s *Store) SetLastImport(r *model.BatchImportRecord) { s.state.LastImport = r }

// purgeReferences removes a deleted product from mappings, pending
// candidates and the last import record.
func (s *Store) purgeReferences(id string) {
	for k, v := range s.state.Mappings {
		if v == id {
			delete(s.state.Mappings, k)
		}
	}
	for _, q := range []Queue{QueuePurchases, QueueSales} {
		for _, p := range *s.queue(q) {
			out := p.Candidates[:0]
			for _, c := range p.Candidates {
				if c.ProductID != id {
					out = append(out, c)
				}
			}
			p.Candidates = out
		}
	}
	if r := s.state.LastImport; r != nil {
		out := r.CreatedProductIDs[:0]
		for _, pid := range r.CreatedProductIDs {
			if pid != id {
				out = append(out, pid)
			}
		}
		r.CreatedProductIDs = out
	}
}
