package domain

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// DrawState is the lifecycle stage of a draw.
type DrawState string

const (
	StateEmpty    DrawState = "empty"    // spread chosen, no deck yet
	StateShuffled DrawState = "shuffled" // deck prepared, nothing assigned
	StateFilling  DrawState = "filling"  // some slots assigned
	StateComplete DrawState = "complete" // every slot assigned; read-only
)

// DefaultReversedProbability is the chance of a card landing reversed.
const DefaultReversedProbability = 0.3

// OutOfOrderError reports an assignment to a slot other than the next open one.
// It matches ErrOutOfOrder with errors.Is.
type OutOfOrderError struct {
	Slot int
	Next int
}

func (e *OutOfOrderError) Error() string {
	return fmt.Sprintf("%s: slot %d, next open slot is %d", ErrOutOfOrder, e.Slot, e.Next)
}

func (e *OutOfOrderError) Is(target error) bool { return target == ErrOutOfOrder }

// Completion is the bundle emitted once every slot of a draw is filled.
type Completion struct {
	Topic    string
	Question string
	Spread   SpreadDefinition
	Cards    []DrawnCard
}

// DrawOption configures a Draw.
type DrawOption func(*Draw)

// WithReversedProbability sets the chance, in [0,1], that a shuffled card is reversed.
func WithReversedProbability(p float64) DrawOption {
	return func(d *Draw) { d.reversedProbability = p }
}

// WithQuestion attaches the querent's topic label and question to the completion bundle.
func WithQuestion(topic, question string) DrawOption {
	return func(d *Draw) {
		d.topic = topic
		d.question = question
	}
}

// WithCompletion registers fn to receive the completion bundle. fn is called
// once, synchronously, from the Assign call that fills the last slot, and
// must not block.
func WithCompletion(fn func(Completion)) DrawOption {
	return func(d *Draw) { d.onComplete = fn }
}

// Draw governs one divination draw: deck preparation followed by strictly
// sequential slot filling. A Draw is not safe for concurrent use.
type Draw struct {
	spread              SpreadDefinition
	rng                 RNG
	reversedProbability float64
	topic               string
	question            string
	onComplete          func(Completion)

	state    DrawState
	deck     []DrawnCard
	assigned []DrawnCard
}

// NewDraw starts an empty draw for spread.
func NewDraw(spread SpreadDefinition, rng RNG, opts ...DrawOption) (*Draw, error) {
	if err := spread.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, errors.New("new draw: nil RNG")
	}
	d := &Draw{
		spread:              spread.Clone(),
		rng:                 rng,
		reversedProbability: DefaultReversedProbability,
		state:               StateEmpty,
	}
	for _, opt := range opts {
		opt(d)
	}
	if p := d.reversedProbability; math.IsNaN(p) || p < 0 || p > 1 {
		return nil, fmt.Errorf("new draw: reversed probability %v outside [0,1]", p)
	}
	return d, nil
}

// PrepareDeck shuffles a copy of cards and assigns every card an orientation.
// The input slice is not modified.
func (d *Draw) PrepareDeck(cards []Card) ([]DrawnCard, error) {
	if d.state != StateEmpty {
		return nil, fmt.Errorf("%w: prepare deck in state %s", ErrInvalidTransition, d.state)
	}
	if len(cards) < d.spread.CardCount {
		return nil, fmt.Errorf("%w: %d cards for %d positions", ErrInvalidDeck, len(cards), d.spread.CardCount)
	}

	seen := make(map[int]struct{}, len(cards))
	deck := make([]DrawnCard, len(cards))
	for i, c := range cards {
		if _, dup := seen[c.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate card id %d", ErrInvalidDeck, c.ID)
		}
		seen[c.ID] = struct{}{}
		c.Keywords = slices.Clone(c.Keywords)
		deck[i] = DrawnCard{Card: c}
	}

	// Fisher-Yates
	for i := len(deck) - 1; i > 0; i-- {
		j := d.rng.Intn(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}

	for i := range deck {
		deck[i].Orientation = Upright
		if d.rng.Float64() < d.reversedProbability {
			deck[i].Orientation = Reversed
		}
	}

	d.deck = deck
	d.state = StateShuffled
	return d.Deck(), nil
}

// Assign moves cardID from the deck into slot. Only the next open slot is
// accepted; a rejected call leaves the draw unchanged.
func (d *Draw) Assign(cardID, slot int) error {
	next := len(d.assigned)
	if slot != next {
		return &OutOfOrderError{Slot: slot, Next: next}
	}
	switch d.state {
	case StateEmpty:
		return fmt.Errorf("%w: deck not prepared", ErrInvalidTransition)
	case StateComplete:
		return fmt.Errorf("%w: draw already complete", ErrInvalidTransition)
	}

	idx := slices.IndexFunc(d.deck, func(c DrawnCard) bool { return c.ID == cardID })
	if idx < 0 {
		return fmt.Errorf("%w: card %d", ErrUnknownCard, cardID)
	}

	card := d.deck[idx]
	card.Position = d.spread.Positions[slot].ID
	d.deck = slices.Delete(d.deck, idx, idx+1)
	d.assigned = append(d.assigned, card)

	if len(d.assigned) < d.spread.CardCount {
		d.state = StateFilling
		return nil
	}

	d.state = StateComplete
	if d.onComplete != nil {
		d.onComplete(d.completion())
	}
	return nil
}

func (d *Draw) completion() Completion {
	return Completion{
		Topic:    d.topic,
		Question: d.question,
		Spread:   d.spread.Clone(),
		Cards:    cloneCards(d.assigned),
	}
}

func (d *Draw) State() DrawState { return d.state }

func (d *Draw) Spread() SpreadDefinition { return d.spread.Clone() }

func (d *Draw) Topic() string { return d.topic }

func (d *Draw) Question() string { return d.question }

// Deck returns the cards still available, in shuffled order.
func (d *Draw) Deck() []DrawnCard { return cloneCards(d.deck) }

// Assigned returns the cards placed so far, in slot order.
func (d *Draw) Assigned() []DrawnCard { return cloneCards(d.assigned) }

// NextSlot returns the 0-based index of the next open slot, or -1 when complete.
func (d *Draw) NextSlot() int {
	if d.state == StateComplete {
		return -1
	}
	return len(d.assigned)
}

// Remaining returns the number of open slots.
func (d *Draw) Remaining() int { return d.spread.CardCount - len(d.assigned) }

// QuickSingleDraw runs a whole draw for a single-card spread: the deck is
// prepared and its top card is placed in the only slot.
func QuickSingleDraw(spread SpreadDefinition, cards []Card, rng RNG, opts ...DrawOption) (DrawnCard, *Draw, error) {
	d, err := NewDraw(spread, rng, opts...)
	if err != nil {
		return DrawnCard{}, nil, err
	}
	if spread.CardCount != 1 {
		return DrawnCard{}, nil, fmt.Errorf("%w: quick draw needs a single-card spread, %s has %d", ErrInvalidSpread, spread.ID, spread.CardCount)
	}
	deck, err := d.PrepareDeck(cards)
	if err != nil {
		return DrawnCard{}, nil, err
	}
	if err := d.Assign(deck[0].ID, 0); err != nil {
		return DrawnCard{}, nil, err
	}
	return d.assigned[0].clone(), d, nil
}

func cloneCards(cards []DrawnCard) []DrawnCard {
	out := make([]DrawnCard, len(cards))
	for i, c := range cards {
		out[i] = c.clone()
	}
	return out
}
