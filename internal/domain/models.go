package domain

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
)

// RNG abstracts random number generation for deterministic testing.
type RNG interface {
	// Intn returns a non-negative random int in [0, n).
	Intn(n int) int
	// Float64 returns a random float in [0.0, 1.0).
	Float64() float64
}

// SeededRNG is a deterministic RNG safe for concurrent use.
type SeededRNG struct {
	mu sync.Mutex
	r  *rand.Rand
}

func NewSeededRNG(seed uint64) *SeededRNG {
	return &SeededRNG{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *SeededRNG) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.IntN(n)
}

func (s *SeededRNG) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

// Orientation represents the orientation of a drawn tarot card.
type Orientation string

const (
	Upright  Orientation = "upright"
	Reversed Orientation = "reversed"
)

// Card is a master record from the full card set. It has no orientation.
type Card struct {
	ID            int      `json:"id" yaml:"id"`
	Name          string   `json:"name" yaml:"name"`
	LocalizedName string   `json:"localized_name,omitempty" yaml:"localized_name"`
	Upright       string   `json:"upright" yaml:"upright"`
	Reversed      string   `json:"reversed" yaml:"reversed"`
	Keywords      []string `json:"keywords,omitempty" yaml:"keywords"`
}

// DrawnCard is a card from a shuffled deck. Position is zero while the card is
// still in the deck and the 1-based spread position once assigned.
type DrawnCard struct {
	Card
	Orientation Orientation `json:"orientation"`
	Position    int         `json:"position,omitempty"`
}

// Meaning returns the meaning that applies to the card's orientation.
func (c DrawnCard) Meaning() string {
	if c.Orientation == Reversed {
		return c.Reversed
	}
	return c.Upright
}

func (c DrawnCard) IsReversed() bool { return c.Orientation == Reversed }

func (c DrawnCard) clone() DrawnCard {
	c.Keywords = slices.Clone(c.Keywords)
	return c
}

// Topic is a question domain offered to the querent, e.g. love or career.
// DefaultTags steer spread recommendation for free-form questions;
// each subcategory carries its own tags for its suggested questions.
type Topic struct {
	ID               string             `json:"id" yaml:"id"`
	Label            string             `json:"label" yaml:"label"`
	Description      string             `json:"description" yaml:"description"`
	SpreadCategories []string           `json:"spread_categories" yaml:"spread_categories"`
	DefaultTags      []string           `json:"default_tags,omitempty" yaml:"default_tags"`
	SubCategories    []TopicSubCategory `json:"subcategories,omitempty" yaml:"subcategories"`
}

// TopicSubCategory groups suggested questions under a title.
type TopicSubCategory struct {
	Title      string   `json:"title" yaml:"title"`
	Questions  []string `json:"questions" yaml:"questions"`
	SpreadTags []string `json:"spread_tags,omitempty" yaml:"spread_tags"`
}

// RecommendedTags returns the spread tags for a subcategory, or the topic's
// default tags when sub is negative.
func (t Topic) RecommendedTags(sub int) ([]string, error) {
	if sub < 0 {
		return slices.Clone(t.DefaultTags), nil
	}
	if sub >= len(t.SubCategories) {
		return nil, fmt.Errorf("%w: %s has no subcategory %d", ErrTopicNotFound, t.ID, sub)
	}
	return slices.Clone(t.SubCategories[sub].SpreadTags), nil
}
