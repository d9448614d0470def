package app

import (
	"sync"
	"time"

	"github.com/KonoNeko/MeowBuling/internal/domain"
	"github.com/KonoNeko/MeowBuling/internal/ports"
)

// ReadingStatus tracks the interpretation of a draw.
type ReadingStatus string

const (
	ReadingAwaitingCards ReadingStatus = "awaiting_cards"
	ReadingPending       ReadingStatus = "pending"
	ReadingReady         ReadingStatus = "ready"
	ReadingFailed        ReadingStatus = "failed"
	// ReadingSaved means the reading was journaled without an interpretation.
	ReadingSaved ReadingStatus = "saved"
)

// DrawView is a snapshot of a draw session.
type DrawView struct {
	ID             string
	Spread         domain.SpreadDefinition
	TopicID        string
	TopicLabel     string
	Question       string
	State          domain.DrawState
	NextSlot       int
	Remaining      int
	Deck           []domain.DrawnCard
	Assigned       []domain.DrawnCard
	Reading        ReadingStatus
	ReadingID      string
	Interpretation *ports.Interpretation
	ReadingError   string
	CreatedAt      time.Time
}

type session struct {
	mu sync.Mutex

	id        string
	topicID   string
	createdAt time.Time

	// guarded by mu
	draw           *domain.Draw
	touchedAt      time.Time
	reading        ReadingStatus
	readingID      string
	interpretation *ports.Interpretation
	readingErr     string
}

func (s *session) touch(now time.Time) { s.touchedAt = now }

// view must be called with mu held.
func (s *session) view() DrawView {
	v := DrawView{
		ID:           s.id,
		Spread:       s.draw.Spread(),
		TopicID:      s.topicID,
		TopicLabel:   s.draw.Topic(),
		Question:     s.draw.Question(),
		State:        s.draw.State(),
		NextSlot:     s.draw.NextSlot(),
		Remaining:    s.draw.Remaining(),
		Deck:         s.draw.Deck(),
		Assigned:     s.draw.Assigned(),
		Reading:      s.reading,
		ReadingID:    s.readingID,
		ReadingError: s.readingErr,
		CreatedAt:    s.createdAt,
	}
	if s.interpretation != nil {
		in := *s.interpretation
		v.Interpretation = &in
	}
	return v
}
