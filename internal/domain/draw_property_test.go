package domain_test

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/KonoNeko/MeowBuling/internal/domain"
)

// TestAssignSequentialInvariant replays random slot attempts against a draw.
// Property: an attempt succeeds iff its slot equals the number of earlier
// successes, deck and assigned stay disjoint and cover the shuffled deck, and
// the draw is complete iff every slot is filled.
func TestAssignSequentialInvariant(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 150
	properties := gopter.NewProperties(parameters)

	properties.Property("assignment is strictly sequential", prop.ForAll(
		func(n int, seed uint64, slots []int) bool {
			d, err := domain.NewDraw(testSpread("prop", n, "linear"), domain.NewSeededRNG(seed))
			if err != nil {
				return false
			}
			deck, err := d.PrepareDeck(testCards(n + 5))
			if err != nil {
				return false
			}
			all := make(map[int]bool, len(deck))
			for _, c := range deck {
				all[c.ID] = true
			}

			successes := 0
			for _, slot := range slots {
				remaining := d.Deck()
				if len(remaining) == 0 {
					break
				}
				err := d.Assign(remaining[0].ID, slot)

				switch {
				case slot == successes && successes < n:
					if err != nil {
						return false
					}
					successes++
				case slot != successes:
					if !errors.Is(err, domain.ErrOutOfOrder) {
						return false
					}
				default:
					if !errors.Is(err, domain.ErrInvalidTransition) {
						return false
					}
				}

				if !coversDeck(all, d.Deck(), d.Assigned()) {
					return false
				}
				if len(d.Assigned()) != successes || successes > n {
					return false
				}
				if (d.State() == domain.StateComplete) != (successes == n) {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 10),
		gen.UInt64(),
		gen.SliceOf(gen.IntRange(-1, 11)),
	))

	properties.TestingRun(t)
}

func coversDeck(all map[int]bool, deck, assigned []domain.DrawnCard) bool {
	seen := make(map[int]bool, len(all))
	for _, c := range deck {
		seen[c.ID] = true
	}
	for _, c := range assigned {
		if seen[c.ID] {
			return false
		}
		seen[c.ID] = true
	}
	if len(seen) != len(all) {
		return false
	}
	for id := range seen {
		if !all[id] {
			return false
		}
	}
	return true
}
