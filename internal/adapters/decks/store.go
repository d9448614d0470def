package decks

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/KonoNeko/MeowBuling/internal/domain"
)

//go:embed data/*.json
var deckFS embed.FS

const cardSetFile = "data/rws.json"

// EmbeddedStore serves the Rider-Waite-Smith card set from an embedded JSON file.
type EmbeddedStore struct {
	once  sync.Once
	cards []domain.Card
	err   error
}

func NewEmbeddedStore() *EmbeddedStore {
	return &EmbeddedStore{}
}

func (s *EmbeddedStore) init() {
	raw, err := deckFS.ReadFile(cardSetFile)
	if err != nil {
		s.err = fmt.Errorf("read embedded card set: %w", err)
		return
	}
	var cards []domain.Card
	if err := json.Unmarshal(raw, &cards); err != nil {
		s.err = fmt.Errorf("parse embedded card set: %w", err)
		return
	}
	seen := make(map[int]bool, len(cards))
	for _, c := range cards {
		if seen[c.ID] {
			s.err = fmt.Errorf("embedded card set: duplicate card id %d", c.ID)
			return
		}
		seen[c.ID] = true
	}
	s.cards = cards
}

// CardSet returns a copy of the full card set in its canonical order.
func (s *EmbeddedStore) CardSet(_ context.Context) ([]domain.Card, error) {
	s.once.Do(s.init)
	if s.err != nil {
		return nil, s.err
	}
	out := make([]domain.Card, len(s.cards))
	for i, c := range s.cards {
		c.Keywords = slices.Clone(c.Keywords)
		out[i] = c
	}
	return out, nil
}
