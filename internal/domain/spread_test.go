package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/KonoNeko/MeowBuling/internal/domain"
)

func testSpread(id string, n int, layoutType string) domain.SpreadDefinition {
	positions := make([]domain.SpreadPosition, n)
	for i := range n {
		positions[i] = domain.SpreadPosition{
			ID:          i + 1,
			Name:        fmt.Sprintf("Position %d", i+1),
			Description: "Test position.",
		}
	}
	return domain.SpreadDefinition{
		ID:         id,
		Name:       "Test Spread",
		CardCount:  n,
		Positions:  positions,
		Category:   "General Insight",
		LayoutType: layoutType,
		Tags:       []string{"general"},
	}
}

func TestSpreadValidate_OK(t *testing.T) {
	for _, n := range []int{1, 3, 10} {
		if err := testSpread("ok", n, "linear").Validate(); err != nil {
			t.Errorf("n=%d: unexpected error: %v", n, err)
		}
	}
}

func TestSpreadValidate_Rejects(t *testing.T) {
	short := testSpread("short", 3, "linear")
	short.Positions = short.Positions[:2]

	long := testSpread("long", 3, "linear")
	long.CardCount = 2

	zero := testSpread("zero", 1, "single")
	zero.CardCount = 0
	zero.Positions = nil

	misnumbered := testSpread("misnumbered", 3, "linear")
	misnumbered.Positions[1].ID = 3

	noID := testSpread("", 1, "single")

	for _, s := range []domain.SpreadDefinition{short, long, zero, misnumbered, noID} {
		err := s.Validate()
		if !errors.Is(err, domain.ErrInvalidSpread) {
			t.Errorf("spread %q: expected ErrInvalidSpread, got %v", s.ID, err)
		}
	}
}

func TestSpreadHasTag(t *testing.T) {
	s := testSpread("tags", 3, "linear")
	if !s.HasTag("general") {
		t.Error("expected tag general")
	}
	if s.HasTag("love_status") {
		t.Error("unexpected tag love_status")
	}
}

func TestSpreadPositionName(t *testing.T) {
	s := testSpread("names", 2, "linear")
	if got := s.PositionName(1); got != "Position 2" {
		t.Errorf("slot 1: got %q", got)
	}
	if got := s.PositionName(5); got != "Position 6" {
		t.Errorf("slot 5: got %q", got)
	}
}

func TestSpreadClone_Independent(t *testing.T) {
	s := testSpread("clone", 2, "linear")
	c := s.Clone()
	c.Positions[0].Name = "changed"
	c.Tags[0] = "changed"
	if s.Positions[0].Name == "changed" || s.Tags[0] == "changed" {
		t.Error("clone shares memory with original")
	}
}

func TestSpreadDefinition_HasAnyTag(t *testing.T) {
	s := testSpread("s", 1, "single")
	s.Tags = []string{"love_status", "daily_simple"}

	if !s.HasAnyTag([]string{"forecast", "daily_simple"}) {
		t.Error("expected a match on daily_simple")
	}
	if s.HasAnyTag([]string{"forecast"}) {
		t.Error("unexpected match")
	}
	if s.HasAnyTag(nil) {
		t.Error("no tags must not match")
	}
}

func TestTopic_RecommendedTags(t *testing.T) {
	topic := domain.Topic{
		ID:          "love",
		DefaultTags: []string{"love_status"},
		SubCategories: []domain.TopicSubCategory{
			{Title: "Conflict", SpreadTags: []string{"love_problem"}},
		},
	}

	tags, err := topic.RecommendedTags(-1)
	if err != nil || len(tags) != 1 || tags[0] != "love_status" {
		t.Errorf("default tags: got %v, %v", tags, err)
	}
	tags, err = topic.RecommendedTags(0)
	if err != nil || len(tags) != 1 || tags[0] != "love_problem" {
		t.Errorf("subcategory tags: got %v, %v", tags, err)
	}
	if _, err := topic.RecommendedTags(1); !errors.Is(err, domain.ErrTopicNotFound) {
		t.Errorf("expected ErrTopicNotFound, got %v", err)
	}
}
