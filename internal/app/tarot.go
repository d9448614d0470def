package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KonoNeko/MeowBuling/internal/domain"
	"github.com/KonoNeko/MeowBuling/internal/metrics"
	"github.com/KonoNeko/MeowBuling/internal/ports"
)

// QuickDrawQuestion is asked when a quick draw comes without a question.
const QuickDrawQuestion = "What guidance does the universe have for me right now?"

// Deps are the collaborators of TarotService. Interpreter may be nil, in
// which case completed readings go to the journal uninterpreted.
type Deps struct {
	Cards       ports.CardSetProvider
	Catalog     ports.SpreadCatalog
	Interpreter ports.Interpreter
	Store       ports.SessionStore
	RNG         domain.RNG
	Metrics     *metrics.Collector
	Logger      *slog.Logger
}

type Options struct {
	ReversedProbability float64
	InterpretTimeout    time.Duration
	DrawTTL             time.Duration
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// StartDrawRequest is the application-level input (no HTTP types).
type StartDrawRequest struct {
	SpreadID string
	TopicID  string
	Question string
}

// TarotService runs draw sessions and hands completed draws to the
// interpreter and the reading journal.
type TarotService struct {
	cards       ports.CardSetProvider
	catalog     ports.SpreadCatalog
	interpreter ports.Interpreter
	store       ports.SessionStore
	rng         domain.RNG
	metrics     *metrics.Collector
	log         *slog.Logger
	opts        Options

	mu       sync.Mutex
	sessions map[string]*session

	// closeMu is held for reading by every call that can complete a draw,
	// so handoffs.Add never races with the Wait in Close.
	closeMu  sync.RWMutex
	closed   bool
	handoffs sync.WaitGroup
	baseCtx  context.Context
	abort    context.CancelFunc
	stop     chan struct{}
	stopOnce sync.Once
}

func NewTarotService(deps Deps, opts Options) *TarotService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.InterpretTimeout <= 0 {
		opts.InterpretTimeout = 90 * time.Second
	}
	if opts.DrawTTL <= 0 {
		opts.DrawTTL = 2 * time.Hour
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewCollector()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &TarotService{
		cards:       deps.Cards,
		catalog:     deps.Catalog,
		interpreter: deps.Interpreter,
		store:       deps.Store,
		rng:         deps.RNG,
		metrics:     deps.Metrics,
		log:         deps.Logger,
		opts:        opts,
		sessions:    make(map[string]*session),
		baseCtx:     ctx,
		abort:       cancel,
		stop:        make(chan struct{}),
	}
	go s.janitor()
	return s
}

// StartDraw opens an empty draw session for a catalog spread.
func (s *TarotService) StartDraw(ctx context.Context, req StartDrawRequest) (DrawView, error) {
	spread, err := s.catalog.Spread(ctx, req.SpreadID)
	if err != nil {
		return DrawView{}, err
	}

	var topic domain.Topic
	if req.TopicID != "" {
		if topic, err = s.catalog.Topic(ctx, req.TopicID); err != nil {
			return DrawView{}, err
		}
	}
	label := topic.Label
	if label == "" {
		label = spread.Name
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		question = "Guidance about " + label
	}

	sess := s.newSession(topic)
	d, err := domain.NewDraw(spread, s.rng,
		domain.WithReversedProbability(s.opts.ReversedProbability),
		domain.WithQuestion(label, question),
		domain.WithCompletion(s.onComplete(sess)),
	)
	if err != nil {
		return DrawView{}, err
	}
	sess.draw = d
	s.register(sess)

	s.metrics.DrawStarted(spread.ID)
	s.log.Info("draw started", "draw_id", sess.id, "spread", spread.ID, "topic", topic.ID)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.view(), nil
}

// Shuffle prepares the draw's deck from the full card set.
func (s *TarotService) Shuffle(ctx context.Context, drawID string) (DrawView, error) {
	sess, err := s.session(drawID)
	if err != nil {
		return DrawView{}, err
	}
	cards, err := s.cards.CardSet(ctx)
	if err != nil {
		return DrawView{}, fmt.Errorf("load card set: %w", err)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if _, err := sess.draw.PrepareDeck(cards); err != nil {
		return DrawView{}, err
	}
	sess.touch(s.opts.Now())
	return sess.view(), nil
}

// Assign places cardID into slot. Rejections leave the draw unchanged.
func (s *TarotService) Assign(_ context.Context, drawID string, cardID, slot int) (DrawView, error) {
	s.closeMu.RLock()
	defer s.closeMu.RUnlock()
	if s.closed {
		return DrawView{}, domain.ErrServiceClosed
	}

	sess, err := s.session(drawID)
	if err != nil {
		return DrawView{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.draw.Assign(cardID, slot); err != nil {
		s.metrics.AssignRejected(rejectReason(err))
		return DrawView{}, err
	}
	sess.touch(s.opts.Now())
	return sess.view(), nil
}

func (s *TarotService) GetDraw(_ context.Context, drawID string) (DrawView, error) {
	sess, err := s.session(drawID)
	if err != nil {
		return DrawView{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.view(), nil
}

// QuickDraw runs a complete single-card draw on the catalog's quick-draw
// spread. The interpretation follows asynchronously like any other draw.
func (s *TarotService) QuickDraw(ctx context.Context, question string) (DrawView, error) {
	s.closeMu.RLock()
	defer s.closeMu.RUnlock()
	if s.closed {
		return DrawView{}, domain.ErrServiceClosed
	}

	spread, err := s.catalog.QuickDrawSpread(ctx)
	if err != nil {
		return DrawView{}, err
	}
	topic, err := s.catalog.QuickDrawTopic(ctx)
	if err != nil {
		return DrawView{}, err
	}
	cards, err := s.cards.CardSet(ctx)
	if err != nil {
		return DrawView{}, fmt.Errorf("load card set: %w", err)
	}
	question = strings.TrimSpace(question)
	if question == "" {
		question = QuickDrawQuestion
	}

	sess := s.newSession(topic)
	// Held across the draw so the handoff cannot observe a half-built session.
	sess.mu.Lock()
	defer sess.mu.Unlock()

	_, d, err := domain.QuickSingleDraw(spread, cards, s.rng,
		domain.WithReversedProbability(s.opts.ReversedProbability),
		domain.WithQuestion(topic.Label, question),
		domain.WithCompletion(s.onComplete(sess)),
	)
	if err != nil {
		return DrawView{}, err
	}
	sess.draw = d
	s.register(sess)

	s.metrics.DrawStarted(spread.ID)
	s.log.Info("quick draw", "draw_id", sess.id, "spread", spread.ID)
	return sess.view(), nil
}

// Close stops the janitor and waits for in-flight interpretations. Draws
// can no longer be completed once Close is called. If ctx expires first,
// the remaining handoffs are cancelled.
func (s *TarotService) Close(ctx context.Context) error {
	s.closeMu.Lock()
	s.closed = true
	s.closeMu.Unlock()
	s.stopOnce.Do(func() { close(s.stop) })

	done := make(chan struct{})
	go func() {
		s.handoffs.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.abort()
		return nil
	case <-ctx.Done():
		s.abort()
		<-done
		return ctx.Err()
	}
}

func (s *TarotService) newSession(topic domain.Topic) *session {
	now := s.opts.Now()
	return &session{
		id:        uuid.NewString(),
		topicID:   topic.ID,
		createdAt: now,
		touchedAt: now,
		reading:   ReadingAwaitingCards,
	}
}

func (s *TarotService) register(sess *session) {
	s.mu.Lock()
	s.sessions[sess.id] = sess
	n := len(s.sessions)
	s.mu.Unlock()
	s.metrics.SetActiveDraws(n)
}

func (s *TarotService) session(id string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrDrawNotFound, id)
	}
	return sess, nil
}

// sweepInterval checks four times per TTL, at most once a minute and at
// least once a second.
func sweepInterval(ttl time.Duration) time.Duration {
	return min(max(ttl/4, time.Second), time.Minute)
}

func (s *TarotService) janitor() {
	ticker := time.NewTicker(sweepInterval(s.opts.DrawTTL))
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep(s.opts.Now())
		}
	}
}

// sweep drops sessions idle for longer than the draw TTL. A pending
// interpretation still reaches the journal; only the draw view is lost.
func (s *TarotService) sweep(now time.Time) int {
	s.mu.Lock()
	removed := 0
	for id, sess := range s.sessions {
		sess.mu.Lock()
		idle := now.Sub(sess.touchedAt)
		sess.mu.Unlock()
		if idle > s.opts.DrawTTL {
			delete(s.sessions, id)
			removed++
		}
	}
	n := len(s.sessions)
	s.mu.Unlock()

	if removed > 0 {
		s.metrics.SetActiveDraws(n)
		s.log.Debug("expired draws removed", "count", removed)
	}
	return removed
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrOutOfOrder):
		return "out_of_order"
	case errors.Is(err, domain.ErrUnknownCard):
		return "unknown_card"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_transition"
	default:
		return "other"
	}
}
