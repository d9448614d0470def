package app

import (
	"context"
	"fmt"

	"github.com/KonoNeko/MeowBuling/internal/domain"
	"github.com/KonoNeko/MeowBuling/internal/ports"
)

// ListReadings returns the journal, newest first.
func (s *TarotService) ListReadings(ctx context.Context) ([]ports.ReadingRecord, error) {
	records, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load readings: %w", err)
	}
	return records, nil
}

func (s *TarotService) GetReading(ctx context.Context, id string) (ports.ReadingRecord, error) {
	records, err := s.store.LoadAll(ctx)
	if err != nil {
		return ports.ReadingRecord{}, fmt.Errorf("load readings: %w", err)
	}
	for _, r := range records {
		if r.ID == id {
			return r, nil
		}
	}
	return ports.ReadingRecord{}, fmt.Errorf("%w: %s", domain.ErrReadingNotFound, id)
}

// UpdateReflection stores the querent's free-text reflection on a reading.
func (s *TarotService) UpdateReflection(ctx context.Context, id, text string) (ports.ReadingRecord, error) {
	if err := s.store.UpdateReflection(ctx, id, text); err != nil {
		return ports.ReadingRecord{}, err
	}
	return s.GetReading(ctx, id)
}
