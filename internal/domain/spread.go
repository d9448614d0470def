package domain

import (
	"fmt"
	"slices"
)

// SpreadPosition is one labelled slot of a spread. IDs are 1-based and follow
// the position order.
type SpreadPosition struct {
	ID          int    `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// SpreadDefinition is a named, fixed-size, ordered set of positions.
type SpreadDefinition struct {
	ID          string           `json:"id" yaml:"id"`
	Name        string           `json:"name" yaml:"name"`
	Description string           `json:"description" yaml:"description"`
	CardCount   int              `json:"card_count" yaml:"card_count"`
	Positions   []SpreadPosition `json:"positions" yaml:"positions"`
	Category    string           `json:"category" yaml:"category"`
	LayoutType  string           `json:"layout_type" yaml:"layout_type"`
	Tags        []string         `json:"tags" yaml:"tags"`
}

// Validate checks the structural invariants of a spread. Positions are never
// padded or truncated to match CardCount.
func (s SpreadDefinition) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidSpread)
	}
	if s.CardCount < 1 {
		return fmt.Errorf("%w: %s: card count %d", ErrInvalidSpread, s.ID, s.CardCount)
	}
	if len(s.Positions) != s.CardCount {
		return fmt.Errorf("%w: %s: %d positions for %d cards", ErrInvalidSpread, s.ID, len(s.Positions), s.CardCount)
	}
	for i, p := range s.Positions {
		if p.ID != i+1 {
			return fmt.Errorf("%w: %s: position %d has id %d", ErrInvalidSpread, s.ID, i+1, p.ID)
		}
	}
	return nil
}

// HasTag reports whether the spread carries tag.
func (s SpreadDefinition) HasTag(tag string) bool {
	return slices.Contains(s.Tags, tag)
}

// HasAnyTag reports whether the spread carries at least one of tags.
func (s SpreadDefinition) HasAnyTag(tags []string) bool {
	for _, tag := range tags {
		if s.HasTag(tag) {
			return true
		}
	}
	return false
}

// PositionName returns the label of the 0-based slot, or a generic label when
// the slot is outside the spread.
func (s SpreadDefinition) PositionName(slot int) string {
	if slot >= 0 && slot < len(s.Positions) {
		return s.Positions[slot].Name
	}
	return fmt.Sprintf("Position %d", slot+1)
}

// Clone returns a deep copy.
func (s SpreadDefinition) Clone() SpreadDefinition {
	s.Positions = slices.Clone(s.Positions)
	s.Tags = slices.Clone(s.Tags)
	return s
}
