package ports

import (
	"context"

	"github.com/KonoNeko/MeowBuling/internal/domain"
)

// CardSetProvider supplies the canonical full card set. Order and size must be
// stable for the lifetime of the process.
type CardSetProvider interface {
	CardSet(ctx context.Context) ([]domain.Card, error)
}

// SpreadCatalog supplies the valid spreads and topics.
type SpreadCatalog interface {
	Spreads(ctx context.Context) ([]domain.SpreadDefinition, error)
	Spread(ctx context.Context, id string) (domain.SpreadDefinition, error)
	// QuickDrawSpread returns the distinguished single-card spread.
	QuickDrawSpread(ctx context.Context) (domain.SpreadDefinition, error)
	// QuickDrawTopic returns the topic quick draws are filed under.
	QuickDrawTopic(ctx context.Context) (domain.Topic, error)
	Topics(ctx context.Context) ([]domain.Topic, error)
	Topic(ctx context.Context, id string) (domain.Topic, error)
}
