// Package history provides the reading journal backends.
package history

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/KonoNeko/MeowBuling/internal/domain"
	"github.com/KonoNeko/MeowBuling/internal/ports"
)

// MemoryStore keeps the journal in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	limit   int
	records []ports.ReadingRecord
}

func NewMemoryStore(limit int) *MemoryStore {
	if limit <= 0 {
		limit = ports.DefaultHistoryLimit
	}
	return &MemoryStore{limit: limit}
}

func (s *MemoryStore) Save(_ context.Context, record ports.ReadingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = slices.DeleteFunc(s.records, func(r ports.ReadingRecord) bool { return r.ID == record.ID })
	s.records = slices.Insert(s.records, 0, cloneRecord(record))
	if len(s.records) > s.limit {
		s.records = s.records[:s.limit]
	}
	return nil
}

func (s *MemoryStore) LoadAll(_ context.Context) ([]ports.ReadingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ports.ReadingRecord, len(s.records))
	for i, r := range s.records {
		out[i] = cloneRecord(r)
	}
	return out, nil
}

func (s *MemoryStore) UpdateReflection(_ context.Context, id, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.records {
		if s.records[i].ID == id {
			s.records[i].Reflection = text
			return nil
		}
	}
	return fmt.Errorf("%w: %s", domain.ErrReadingNotFound, id)
}

func cloneRecord(r ports.ReadingRecord) ports.ReadingRecord {
	r.Cards = slices.Clone(r.Cards)
	for i := range r.Cards {
		r.Cards[i].Keywords = slices.Clone(r.Cards[i].Keywords)
	}
	if r.Interpretation != nil {
		in := *r.Interpretation
		in.DetailedAnalysis = slices.Clone(in.DetailedAnalysis)
		in.ReflectionQuestions = slices.Clone(in.ReflectionQuestions)
		r.Interpretation = &in
	}
	return r
}
