package domain_test

import (
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/KonoNeko/MeowBuling/internal/domain"
)

// deterministicRNG replays pre-set sequences.
type deterministicRNG struct {
	ints   []int
	floats []float64
	ii, fi int
}

func (r *deterministicRNG) Intn(n int) int {
	if len(r.ints) == 0 {
		return n - 1 // identity shuffle
	}
	v := r.ints[r.ii%len(r.ints)] % n
	r.ii++
	return v
}

func (r *deterministicRNG) Float64() float64 {
	if len(r.floats) == 0 {
		return 0.99
	}
	v := r.floats[r.fi%len(r.floats)]
	r.fi++
	return v
}

func testCards(n int) []domain.Card {
	cards := make([]domain.Card, n)
	for i := range n {
		cards[i] = domain.Card{
			ID:       i,
			Name:     fmt.Sprintf("Card %d", i),
			Upright:  "Upright meaning.",
			Reversed: "Reversed meaning.",
			Keywords: []string{"kw1", "kw2"},
		}
	}
	return cards
}

func ids(cards []domain.DrawnCard) []int {
	out := make([]int, len(cards))
	for i, c := range cards {
		out[i] = c.ID
	}
	return out
}

func newShuffledDraw(t *testing.T, spread domain.SpreadDefinition, cards []domain.Card, rng domain.RNG, opts ...domain.DrawOption) (*domain.Draw, []domain.DrawnCard) {
	t.Helper()
	d, err := domain.NewDraw(spread, rng, opts...)
	if err != nil {
		t.Fatalf("new draw: %v", err)
	}
	deck, err := d.PrepareDeck(cards)
	if err != nil {
		t.Fatalf("prepare deck: %v", err)
	}
	return d, deck
}

func TestPrepareDeck_Permutation(t *testing.T) {
	cards := testCards(78)
	_, deck := newShuffledDraw(t, testSpread("celtic", 10, "celtic_cross"), cards, domain.NewSeededRNG(42))

	if len(deck) != 78 {
		t.Fatalf("expected 78 cards, got %d", len(deck))
	}
	got := ids(deck)
	slices.Sort(got)
	for i, id := range got {
		if id != i {
			t.Fatalf("deck is not a permutation: sorted[%d] = %d", i, id)
		}
	}
}

func TestPrepareDeck_DoesNotMutateInput(t *testing.T) {
	cards := testCards(22)
	before := slices.Clone(cards)

	_, deck := newShuffledDraw(t, testSpread("ppf", 3, "linear"), cards, domain.NewSeededRNG(7))
	deck[0].Keywords[0] = "mutated"

	for i := range cards {
		if cards[i].ID != before[i].ID || cards[i].Keywords[0] != "kw1" {
			t.Fatalf("input card set was modified at %d", i)
		}
	}
}

func TestPrepareDeck_Orientation(t *testing.T) {
	rng := &deterministicRNG{floats: []float64{0.1, 0.5, 0.29, 0.3}}
	_, deck := newShuffledDraw(t, testSpread("four", 4, "square"), testCards(4), rng)

	expected := []domain.Orientation{domain.Reversed, domain.Upright, domain.Reversed, domain.Upright}
	for i, c := range deck {
		if c.Orientation != expected[i] {
			t.Errorf("card %d: expected %s, got %s", i, expected[i], c.Orientation)
		}
		if c.Position != 0 {
			t.Errorf("card %d: deck card has position %d", i, c.Position)
		}
	}
}

func TestPrepareDeck_ShuffleUsesRNG(t *testing.T) {
	// Intn always returns 0: each index i swaps with 0.
	rng := &deterministicRNG{ints: []int{0}}
	_, deck := newShuffledDraw(t, testSpread("three", 3, "linear"), testCards(4), rng)

	// [0 1 2 3] -> i=3:[3 1 2 0] -> i=2:[2 1 3 0] -> i=1:[1 2 3 0]
	want := []int{1, 2, 3, 0}
	if got := ids(deck); !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestPrepareDeck_InvalidDeck(t *testing.T) {
	d, err := domain.NewDraw(testSpread("five", 5, "cross"), domain.NewSeededRNG(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := d.PrepareDeck(testCards(2)); !errors.Is(err, domain.ErrInvalidDeck) {
		t.Errorf("expected ErrInvalidDeck, got %v", err)
	}
	if d.State() != domain.StateEmpty {
		t.Errorf("expected state empty after failure, got %s", d.State())
	}

	dup := testCards(6)
	dup[5].ID = 0
	if _, err := d.PrepareDeck(dup); !errors.Is(err, domain.ErrInvalidDeck) {
		t.Errorf("duplicate ids: expected ErrInvalidDeck, got %v", err)
	}
}

func TestPrepareDeck_Twice(t *testing.T) {
	d, _ := newShuffledDraw(t, testSpread("ppf", 3, "linear"), testCards(10), domain.NewSeededRNG(1))
	if _, err := d.PrepareDeck(testCards(10)); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestPrepareDeck_ReversalRatePerPosition(t *testing.T) {
	const (
		trials = 4000
		size   = 10
		p      = 0.3
	)
	rng := domain.NewSeededRNG(2024)
	spread := testSpread("one", 1, "single")
	cards := testCards(size)

	reversed := make([]int, size)
	for range trials {
		_, deck := newShuffledDraw(t, spread, cards, rng, domain.WithReversedProbability(p))
		for i, c := range deck {
			if c.IsReversed() {
				reversed[i]++
			}
		}
	}

	for i, n := range reversed {
		rate := float64(n) / trials
		if rate < p-0.04 || rate > p+0.04 {
			t.Errorf("position %d: reversed rate %.3f too far from %.2f", i, rate, p)
		}
	}
}

func TestPrepareDeck_ProbabilityExtremes(t *testing.T) {
	spread := testSpread("one", 1, "single")

	_, never := newShuffledDraw(t, spread, testCards(30), domain.NewSeededRNG(3), domain.WithReversedProbability(0))
	for _, c := range never {
		if c.IsReversed() {
			t.Fatal("p=0 produced a reversed card")
		}
	}

	_, always := newShuffledDraw(t, spread, testCards(30), domain.NewSeededRNG(3), domain.WithReversedProbability(1))
	for _, c := range always {
		if !c.IsReversed() {
			t.Fatal("p=1 produced an upright card")
		}
	}
}

func TestNewDraw_Rejects(t *testing.T) {
	bad := testSpread("bad", 3, "linear")
	bad.Positions = bad.Positions[:1]
	if _, err := domain.NewDraw(bad, domain.NewSeededRNG(1)); !errors.Is(err, domain.ErrInvalidSpread) {
		t.Errorf("expected ErrInvalidSpread, got %v", err)
	}

	for _, p := range []float64{-0.1, 1.5} {
		if _, err := domain.NewDraw(testSpread("ok", 3, "linear"), domain.NewSeededRNG(1), domain.WithReversedProbability(p)); err == nil {
			t.Errorf("p=%v: expected error", p)
		}
	}

	if _, err := domain.NewDraw(testSpread("ok", 3, "linear"), nil); err == nil {
		t.Error("expected error for nil RNG")
	}
}

func TestAssign_SequentialScenario(t *testing.T) {
	d, deck := newShuffledDraw(t, testSpread("ppf", 3, "linear"), testCards(22), domain.NewSeededRNG(9))
	a, b, c := deck[0], deck[1], deck[2]

	if err := d.Assign(a.ID, 0); err != nil {
		t.Fatalf("assign A: %v", err)
	}
	if d.State() != domain.StateFilling {
		t.Fatalf("expected filling, got %s", d.State())
	}

	err := d.Assign(b.ID, 2)
	if !errors.Is(err, domain.ErrOutOfOrder) {
		t.Fatalf("expected ErrOutOfOrder, got %v", err)
	}
	var ooo *domain.OutOfOrderError
	if !errors.As(err, &ooo) || ooo.Next != 1 || ooo.Slot != 2 {
		t.Errorf("unexpected out-of-order detail: %+v", ooo)
	}
	if got := ids(d.Assigned()); !slices.Equal(got, []int{a.ID}) {
		t.Fatalf("assigned changed after rejection: %v", got)
	}
	if len(d.Deck()) != 21 {
		t.Fatalf("deck changed after rejection: %d cards", len(d.Deck()))
	}

	if err := d.Assign(b.ID, 1); err != nil {
		t.Fatalf("assign B: %v", err)
	}
	if err := d.Assign(c.ID, 2); err != nil {
		t.Fatalf("assign C: %v", err)
	}

	if d.State() != domain.StateComplete {
		t.Fatalf("expected complete, got %s", d.State())
	}
	if got := ids(d.Assigned()); !slices.Equal(got, []int{a.ID, b.ID, c.ID}) {
		t.Errorf("unexpected assigned order: %v", got)
	}
	for i, card := range d.Assigned() {
		if card.Position != i+1 {
			t.Errorf("card %d: expected position %d, got %d", i, i+1, card.Position)
		}
	}
	if d.NextSlot() != -1 || d.Remaining() != 0 {
		t.Errorf("complete draw reports next slot %d, remaining %d", d.NextSlot(), d.Remaining())
	}
}

func TestAssign_KeepsOrientation(t *testing.T) {
	rng := &deterministicRNG{floats: []float64{0.1, 0.9, 0.9}}
	d, deck := newShuffledDraw(t, testSpread("ppf", 3, "linear"), testCards(3), rng)

	if err := d.Assign(deck[0].ID, 0); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if got := d.Assigned()[0]; !got.IsReversed() || got.Meaning() != "Reversed meaning." {
		t.Errorf("orientation lost on assignment: %+v", got)
	}
}

func TestAssign_BeforeShuffle(t *testing.T) {
	d, err := domain.NewDraw(testSpread("ppf", 3, "linear"), domain.NewSeededRNG(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := d.Assign(0, 0); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
	if err := d.Assign(0, 1); !errors.Is(err, domain.ErrOutOfOrder) {
		t.Errorf("expected ErrOutOfOrder, got %v", err)
	}
	if d.State() != domain.StateEmpty {
		t.Errorf("state changed: %s", d.State())
	}
}

func TestAssign_UnknownCard(t *testing.T) {
	d, deck := newShuffledDraw(t, testSpread("ppf", 3, "linear"), testCards(10), domain.NewSeededRNG(5))

	if err := d.Assign(999, 0); !errors.Is(err, domain.ErrUnknownCard) {
		t.Errorf("expected ErrUnknownCard, got %v", err)
	}
	if d.State() != domain.StateShuffled {
		t.Errorf("state changed: %s", d.State())
	}

	if err := d.Assign(deck[0].ID, 0); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := d.Assign(deck[0].ID, 1); !errors.Is(err, domain.ErrUnknownCard) {
		t.Errorf("reassigning a placed card: expected ErrUnknownCard, got %v", err)
	}
}

func TestAssign_AfterComplete(t *testing.T) {
	d, deck := newShuffledDraw(t, testSpread("one", 1, "single"), testCards(5), domain.NewSeededRNG(5))
	if err := d.Assign(deck[0].ID, 0); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := d.Assign(deck[1].ID, 1); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
	if err := d.Assign(deck[1].ID, 0); !errors.Is(err, domain.ErrOutOfOrder) {
		t.Errorf("expected ErrOutOfOrder, got %v", err)
	}
	if len(d.Assigned()) != 1 {
		t.Errorf("complete draw grew to %d cards", len(d.Assigned()))
	}
}

func TestAssign_CompletionHandoff(t *testing.T) {
	var bundles []domain.Completion
	spread := testSpread("ppf", 3, "linear")
	d, deck := newShuffledDraw(t, spread, testCards(10), domain.NewSeededRNG(11),
		domain.WithQuestion("Career", "Should I change jobs?"),
		domain.WithCompletion(func(c domain.Completion) { bundles = append(bundles, c) }),
	)

	for i := range 3 {
		if len(bundles) != 0 {
			t.Fatalf("handoff before completion at slot %d", i)
		}
		if err := d.Assign(deck[i].ID, i); err != nil {
			t.Fatalf("assign %d: %v", i, err)
		}
	}

	if len(bundles) != 1 {
		t.Fatalf("expected exactly one handoff, got %d", len(bundles))
	}
	b := bundles[0]
	if b.Topic != "Career" || b.Question != "Should I change jobs?" || b.Spread.ID != "ppf" {
		t.Errorf("unexpected bundle header: %+v", b)
	}
	if got := ids(b.Cards); !slices.Equal(got, ids(deck[:3])) {
		t.Errorf("bundle cards %v, want %v", got, ids(deck[:3]))
	}

	b.Cards[0].Name = "mutated"
	if d.Assigned()[0].Name == "mutated" {
		t.Error("bundle shares memory with draw")
	}
}

func TestDraw_CelticCrossFromFullDeck(t *testing.T) {
	d, deck := newShuffledDraw(t, testSpread("celtic_10", 10, "celtic_cross"), testCards(78), domain.NewSeededRNG(78))
	if len(deck) != 78 {
		t.Fatalf("expected 78 cards, got %d", len(deck))
	}

	for i := range 10 {
		if err := d.Assign(deck[i].ID, i); err != nil {
			t.Fatalf("assign %d: %v", i, err)
		}
	}

	if len(d.Deck()) != 68 {
		t.Errorf("expected 68 cards left, got %d", len(d.Deck()))
	}
	if d.State() != domain.StateComplete {
		t.Errorf("expected complete, got %s", d.State())
	}
}

func TestQuickSingleDraw(t *testing.T) {
	var handed int
	card, d, err := domain.QuickSingleDraw(testSpread("daily_1", 1, "single"), testCards(78), domain.NewSeededRNG(1),
		domain.WithCompletion(func(domain.Completion) { handed++ }))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if card.Position != 1 {
		t.Errorf("expected position 1, got %d", card.Position)
	}
	if d.State() != domain.StateComplete || len(d.Deck()) != 77 {
		t.Errorf("unexpected draw after quick draw: state %s, deck %d", d.State(), len(d.Deck()))
	}
	if handed != 1 {
		t.Errorf("expected one handoff, got %d", handed)
	}

	if _, _, err := domain.QuickSingleDraw(testSpread("ppf", 3, "linear"), testCards(78), domain.NewSeededRNG(1)); !errors.Is(err, domain.ErrInvalidSpread) {
		t.Errorf("expected ErrInvalidSpread, got %v", err)
	}
}

func TestSeededRNG_Deterministic(t *testing.T) {
	a, b := domain.NewSeededRNG(99), domain.NewSeededRNG(99)
	for i := range 50 {
		if x, y := a.Intn(1000), b.Intn(1000); x != y {
			t.Fatalf("step %d: %d != %d", i, x, y)
		}
		if x, y := a.Float64(), b.Float64(); x != y {
			t.Fatalf("step %d: %v != %v", i, x, y)
		}
	}
}
