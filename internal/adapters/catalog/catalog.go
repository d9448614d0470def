// Package catalog loads the spread and topic catalog from YAML.
package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/KonoNeko/MeowBuling/internal/domain"
)

//go:embed data/catalog.yaml
var embeddedCatalog []byte

type file struct {
	QuickDrawSpread string         `yaml:"quick_draw_spread"`
	QuickDrawTopic  string         `yaml:"quick_draw_topic"`
	Topics          []domain.Topic `yaml:"topics"`
	Spreads         []spreadEntry  `yaml:"spreads"`
}

type spreadEntry struct {
	ID          string          `yaml:"id"`
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	CardCount   int             `yaml:"card_count"`
	Category    string          `yaml:"category"`
	LayoutType  string          `yaml:"layout_type"`
	Tags        []string        `yaml:"tags"`
	Positions   []positionEntry `yaml:"positions"`
}

// positionEntry accepts either a bare label or a {name, description} map.
type positionEntry struct {
	Name        string
	Description string
}

func (p *positionEntry) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		p.Name = value.Value
		p.Description = value.Value
		return nil
	}
	var m struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
	}
	if err := value.Decode(&m); err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	p.Name = m.Name
	p.Description = m.Description
	if p.Description == "" {
		p.Description = m.Name
	}
	return nil
}

// Catalog is an immutable, validated set of spreads and topics.
type Catalog struct {
	spreads       []domain.SpreadDefinition
	byID          map[string]int
	topics        []domain.Topic
	topicByID     map[string]int
	quickSpreadID string
	quickTopicID  string
}

// Embedded returns the catalog compiled into the binary.
func Embedded() (*Catalog, error) {
	return Parse(embeddedCatalog)
}

// LoadFile reads a catalog from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load catalog %q: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load catalog %q: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a YAML catalog. Every spread must satisfy
// domain.SpreadDefinition.Validate.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := &Catalog{
		byID:          make(map[string]int, len(f.Spreads)),
		topicByID:     make(map[string]int, len(f.Topics)),
		quickSpreadID: f.QuickDrawSpread,
		quickTopicID:  f.QuickDrawTopic,
	}

	for _, e := range f.Spreads {
		s := e.toDomain()
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byID[s.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate spread id %s", domain.ErrInvalidSpread, s.ID)
		}
		c.byID[s.ID] = len(c.spreads)
		c.spreads = append(c.spreads, s)
	}

	for _, t := range f.Topics {
		if t.ID == "" {
			return nil, fmt.Errorf("parse catalog: topic without id")
		}
		if _, dup := c.topicByID[t.ID]; dup {
			return nil, fmt.Errorf("parse catalog: duplicate topic id %s", t.ID)
		}
		c.topicByID[t.ID] = len(c.topics)
		c.topics = append(c.topics, t)
	}

	if c.quickSpreadID != "" {
		i, ok := c.byID[c.quickSpreadID]
		if !ok {
			return nil, fmt.Errorf("%w: quick draw spread %s", domain.ErrSpreadNotFound, c.quickSpreadID)
		}
		if c.spreads[i].CardCount != 1 {
			return nil, fmt.Errorf("%w: quick draw spread %s has %d cards", domain.ErrInvalidSpread, c.quickSpreadID, c.spreads[i].CardCount)
		}
	}
	if c.quickTopicID != "" {
		if _, ok := c.topicByID[c.quickTopicID]; !ok {
			return nil, fmt.Errorf("%w: quick draw topic %s", domain.ErrTopicNotFound, c.quickTopicID)
		}
	}

	return c, nil
}

func (e spreadEntry) toDomain() domain.SpreadDefinition {
	positions := make([]domain.SpreadPosition, len(e.Positions))
	for i, p := range e.Positions {
		positions[i] = domain.SpreadPosition{ID: i + 1, Name: p.Name, Description: p.Description}
	}
	layoutType := e.LayoutType
	if layoutType == "" {
		layoutType = "linear"
	}
	return domain.SpreadDefinition{
		ID:          e.ID,
		Name:        e.Name,
		Description: e.Description,
		CardCount:   e.CardCount,
		Positions:   positions,
		Category:    e.Category,
		LayoutType:  layoutType,
		Tags:        e.Tags,
	}
}

func (c *Catalog) Spreads(_ context.Context) ([]domain.SpreadDefinition, error) {
	out := make([]domain.SpreadDefinition, len(c.spreads))
	for i, s := range c.spreads {
		out[i] = s.Clone()
	}
	return out, nil
}

func (c *Catalog) Spread(_ context.Context, id string) (domain.SpreadDefinition, error) {
	i, ok := c.byID[id]
	if !ok {
		return domain.SpreadDefinition{}, fmt.Errorf("%w: %s", domain.ErrSpreadNotFound, id)
	}
	return c.spreads[i].Clone(), nil
}

func (c *Catalog) QuickDrawSpread(ctx context.Context) (domain.SpreadDefinition, error) {
	if c.quickSpreadID == "" {
		return domain.SpreadDefinition{}, fmt.Errorf("%w: no quick draw spread configured", domain.ErrSpreadNotFound)
	}
	return c.Spread(ctx, c.quickSpreadID)
}

// QuickDrawTopic returns the topic used for quick draws, if configured.
func (c *Catalog) QuickDrawTopic(ctx context.Context) (domain.Topic, error) {
	if c.quickTopicID == "" {
		return domain.Topic{}, fmt.Errorf("%w: no quick draw topic configured", domain.ErrTopicNotFound)
	}
	return c.Topic(ctx, c.quickTopicID)
}

func (c *Catalog) Topics(_ context.Context) ([]domain.Topic, error) {
	out := make([]domain.Topic, len(c.topics))
	for i, t := range c.topics {
		out[i] = cloneTopic(t)
	}
	return out, nil
}

func (c *Catalog) Topic(_ context.Context, id string) (domain.Topic, error) {
	i, ok := c.topicByID[id]
	if !ok {
		return domain.Topic{}, fmt.Errorf("%w: %s", domain.ErrTopicNotFound, id)
	}
	return cloneTopic(c.topics[i]), nil
}

func cloneTopic(t domain.Topic) domain.Topic {
	t.SpreadCategories = slices.Clone(t.SpreadCategories)
	t.DefaultTags = slices.Clone(t.DefaultTags)
	t.SubCategories = slices.Clone(t.SubCategories)
	for i := range t.SubCategories {
		t.SubCategories[i].Questions = slices.Clone(t.SubCategories[i].Questions)
		t.SubCategories[i].SpreadTags = slices.Clone(t.SubCategories[i].SpreadTags)
	}
	return t
}
