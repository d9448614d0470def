package app

import (
	"context"
	"slices"
	"strings"

	"github.com/KonoNeko/MeowBuling/internal/domain"
)

// SpreadFilter narrows ListSpreads. Empty fields match everything.
//
// TopicID keeps spreads in the topic's categories that carry any of its
// recommended tags: the tags of SubCategory when it is set, otherwise the
// topic's default tags.
type SpreadFilter struct {
	Tag         string
	Category    string
	TopicID     string
	SubCategory *int
}

type spreadMatcher struct {
	tag        string
	category   string
	byTopic    bool
	categories []string
	anyTags    []string
}

func (m spreadMatcher) match(s domain.SpreadDefinition) bool {
	if m.tag != "" && !s.HasTag(m.tag) {
		return false
	}
	if m.category != "" && !strings.EqualFold(m.category, s.Category) {
		return false
	}
	if m.byTopic && !slices.Contains(m.categories, s.Category) {
		return false
	}
	if len(m.anyTags) > 0 && !s.HasAnyTag(m.anyTags) {
		return false
	}
	return true
}

func (s *TarotService) ListTopics(ctx context.Context) ([]domain.Topic, error) {
	return s.catalog.Topics(ctx)
}

// ListSpreads returns catalog spreads in catalog order.
func (s *TarotService) ListSpreads(ctx context.Context, f SpreadFilter) ([]domain.SpreadDefinition, error) {
	m := spreadMatcher{tag: f.Tag, category: f.Category}
	if f.TopicID != "" {
		topic, err := s.catalog.Topic(ctx, f.TopicID)
		if err != nil {
			return nil, err
		}
		sub := -1
		if f.SubCategory != nil {
			sub = *f.SubCategory
		}
		if m.anyTags, err = topic.RecommendedTags(sub); err != nil {
			return nil, err
		}
		m.byTopic = true
		m.categories = topic.SpreadCategories
	}

	all, err := s.catalog.Spreads(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.SpreadDefinition, 0, len(all))
	for _, sp := range all {
		if m.match(sp) {
			out = append(out, sp)
		}
	}
	return out, nil
}

func (s *TarotService) GetSpread(ctx context.Context, id string) (domain.SpreadDefinition, error) {
	return s.catalog.Spread(ctx, id)
}
