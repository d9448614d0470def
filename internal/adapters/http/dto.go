package http

import (
	"time"

	"github.com/KonoNeko/MeowBuling/internal/app"
	"github.com/KonoNeko/MeowBuling/internal/domain"
	"github.com/KonoNeko/MeowBuling/internal/layout"
	"github.com/KonoNeko/MeowBuling/internal/ports"
)

// SpreadResponse is a catalog spread with the placement of every position.
type SpreadResponse struct {
	domain.SpreadDefinition
	Placements []layout.Result `json:"placements"`
}

type LayoutResponse struct {
	Type       string          `json:"type"`
	Total      int             `json:"total"`
	Known      bool            `json:"known"`
	Fallback   bool            `json:"fallback"`
	Placements []layout.Result `json:"placements"`
}

type StartDrawRequest struct {
	SpreadID string `json:"spread_id"`
	TopicID  string `json:"topic_id"`
	Question string `json:"question"`
}

// AssignRequest uses pointers so a missing field is told apart from card 0.
type AssignRequest struct {
	CardID *int `json:"card_id"`
	Slot   *int `json:"slot"`
}

type QuickDrawRequest struct {
	Question string `json:"question"`
}

type ReflectionRequest struct {
	Reflection string `json:"reflection"`
}

// PlacedCard is an assigned card with its position label, suit background
// and table placement.
type PlacedCard struct {
	domain.DrawnCard
	Meaning      string            `json:"meaning"`
	PositionName string            `json:"position_name"`
	Education    domain.Education  `json:"education"`
	Placement    *layout.Placement `json:"placement,omitempty"`
}

type ReadingResp struct {
	Status         app.ReadingStatus     `json:"status"`
	ID             string                `json:"id,omitempty"`
	Error          string                `json:"error,omitempty"`
	Interpretation *ports.Interpretation `json:"interpretation,omitempty"`
}

// DrawResponse is the JSON shape of a draw session. The deck is face down:
// only card IDs in shuffled order are exposed.
type DrawResponse struct {
	ID         string           `json:"id"`
	State      domain.DrawState `json:"state"`
	Spread     SpreadResponse   `json:"spread"`
	TopicID    string           `json:"topic_id,omitempty"`
	TopicLabel string           `json:"topic_label"`
	Question   string           `json:"question"`
	NextSlot   int              `json:"next_slot"`
	Remaining  int              `json:"remaining"`
	Deck       []int            `json:"deck"`
	Assigned   []PlacedCard     `json:"assigned"`
	Reading    ReadingResp      `json:"reading"`
	CreatedAt  time.Time        `json:"created_at"`
	RequestID  string           `json:"request_id,omitempty"`
}

type ErrorResponse struct {
	Error        string `json:"error"`
	ExpectedSlot *int   `json:"expected_slot,omitempty"`
}

func toSpreadResponse(s domain.SpreadDefinition) SpreadResponse {
	// Catalog spreads are validated, so CardCount >= 1 and Resolve cannot fail.
	placements, _ := layout.ResolveSpread(s.LayoutType, s.CardCount)
	return SpreadResponse{SpreadDefinition: s, Placements: placements}
}

func toDrawResponse(v app.DrawView, requestID string) DrawResponse {
	spread := toSpreadResponse(v.Spread)

	deck := make([]int, len(v.Deck))
	for i, c := range v.Deck {
		deck[i] = c.ID
	}

	assigned := make([]PlacedCard, len(v.Assigned))
	for i, c := range v.Assigned {
		pc := PlacedCard{
			DrawnCard:    c,
			Meaning:      c.Meaning(),
			PositionName: v.Spread.PositionName(i),
			Education:    c.Education(),
		}
		if i < len(spread.Placements) {
			pc.Placement = spread.Placements[i].Flat
		}
		assigned[i] = pc
	}

	return DrawResponse{
		ID:         v.ID,
		State:      v.State,
		Spread:     spread,
		TopicID:    v.TopicID,
		TopicLabel: v.TopicLabel,
		Question:   v.Question,
		NextSlot:   v.NextSlot,
		Remaining:  v.Remaining,
		Deck:       deck,
		Assigned:   assigned,
		Reading: ReadingResp{
			Status:         v.Reading,
			ID:             v.ReadingID,
			Error:          v.ReadingError,
			Interpretation: v.Interpretation,
		},
		CreatedAt: v.CreatedAt,
		RequestID: requestID,
	}
}
