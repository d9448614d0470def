package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/KonoNeko/MeowBuling/internal/domain"
	"github.com/KonoNeko/MeowBuling/internal/ports"
)

// onComplete returns the draw's completion callback. It runs inside
// Draw.Assign with sess.mu already held, so it only flips the status and
// leaves the slow work to a goroutine.
func (s *TarotService) onComplete(sess *session) func(domain.Completion) {
	return func(c domain.Completion) {
		sess.reading = ReadingPending
		s.metrics.DrawCompleted(c.Spread.ID)
		s.handoffs.Add(1)
		go s.handoff(sess, c)
	}
}

func (s *TarotService) handoff(sess *session, c domain.Completion) {
	defer s.handoffs.Done()

	ctx, cancel := context.WithTimeout(s.baseCtx, s.opts.InterpretTimeout)
	defer cancel()

	record := ports.ReadingRecord{
		ID:         uuid.NewString(),
		Timestamp:  s.opts.Now(),
		TopicID:    sess.topicID,
		TopicLabel: c.Topic,
		Question:   c.Question,
		SpreadID:   c.Spread.ID,
		SpreadName: c.Spread.Name,
		Cards:      c.Cards,
	}
	log := s.log.With("draw_id", sess.id, "spread", c.Spread.ID)

	status := ReadingSaved
	if s.interpreter != nil {
		start := time.Now()
		out, err := s.interpreter.Interpret(ctx, interpretInput(c))
		if err != nil {
			s.metrics.InterpretationFinished("failed", time.Since(start))
			log.Error("interpretation failed", "error", err)
			sess.fail(fmt.Errorf("%w: %w", domain.ErrInterpretation, err))
			return
		}
		s.metrics.InterpretationFinished("ok", time.Since(start))
		record.Interpretation = &out
		status = ReadingReady
	}

	if err := s.store.Save(ctx, record); err != nil {
		log.Error("save reading failed", "error", err)
		sess.fail(fmt.Errorf("save reading: %w", err))
		return
	}

	sess.mu.Lock()
	sess.reading = status
	sess.readingID = record.ID
	sess.interpretation = record.Interpretation
	sess.mu.Unlock()
	log.Info("reading saved", "reading_id", record.ID, "interpreted", record.Interpretation != nil)
}

func (s *session) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reading = ReadingFailed
	s.readingErr = err.Error()
}

func interpretInput(c domain.Completion) ports.InterpretInput {
	cards := make([]ports.CardInput, len(c.Cards))
	for i, card := range c.Cards {
		in := ports.CardInput{
			Name:          card.Name,
			LocalizedName: card.LocalizedName,
			Position:      card.Position,
			Orientation:   string(card.Orientation),
			Meaning:       card.Meaning(),
			Keywords:      card.Keywords,
		}
		if p := card.Position - 1; p >= 0 && p < len(c.Spread.Positions) {
			in.PositionName = c.Spread.Positions[p].Name
			in.PositionDescription = c.Spread.Positions[p].Description
		} else {
			in.PositionName = c.Spread.PositionName(i)
		}
		cards[i] = in
	}
	return ports.InterpretInput{
		TopicLabel: c.Topic,
		Question:   c.Question,
		Spread:     c.Spread,
		Cards:      cards,
	}
}
