package ports

import (
	"context"
	"time"

	"github.com/KonoNeko/MeowBuling/internal/domain"
)

// DefaultHistoryLimit bounds the reading journal.
const DefaultHistoryLimit = 50

// ReadingRecord is a completed, interpreted reading kept in the journal.
type ReadingRecord struct {
	ID             string             `json:"id"`
	Timestamp      time.Time          `json:"timestamp"`
	TopicID        string             `json:"topic_id"`
	TopicLabel     string             `json:"topic_label"`
	Question       string             `json:"question"`
	SpreadID       string             `json:"spread_id"`
	SpreadName     string             `json:"spread_name"`
	Cards          []domain.DrawnCard `json:"cards"`
	Interpretation *Interpretation    `json:"interpretation,omitempty"`
	Reflection     string             `json:"reflection,omitempty"`
}

// SessionStore persists the bounded, newest-first reading journal.
type SessionStore interface {
	// Save prepends record and drops the oldest entries beyond the limit.
	Save(ctx context.Context, record ReadingRecord) error
	// LoadAll returns every stored reading, newest first.
	LoadAll(ctx context.Context) ([]ReadingRecord, error)
	// UpdateReflection replaces the free-text reflection of one reading.
	// It returns domain.ErrReadingNotFound for unknown ids.
	UpdateReflection(ctx context.Context, id, text string) error
}
