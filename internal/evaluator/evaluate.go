package evaluator

import (
	"errors"
	"fmt"
	"slices"

	"github.com/lox/pokerrooms/internal/deck"
)

// ErrTooFewCards is returned when fewer than five cards are offered.
var ErrTooFewCards = errors.New("need at least five cards")

// Evaluate5 ranks exactly five cards.
func Evaluate5(cards [5]deck.Card) HandRank {
	hand := cards[:]
	sorted := slices.Clone(hand)
	slices.SortFunc(sorted, func(a, b deck.Card) int { return int(b.Rank) - int(a.Rank) })

	flush := true
	for _, c := range sorted[1:] {
		if c.Suit != sorted[0].Suit {
			flush = false
			break
		}
	}
	straightTop, straight := straightHigh(sorted)

	// Ranks grouped by multiplicity, largest group first then highest rank.
	var counts [deck.Ace + 1]int
	for _, c := range sorted {
		counts[c.Rank]++
	}
	type group struct {
		rank deck.Rank
		n    int
	}
	groups := make([]group, 0, 5)
	for r := deck.Ace; r >= deck.Two; r-- {
		if counts[r] > 0 {
			groups = append(groups, group{r, counts[r]})
		}
	}
	slices.SortStableFunc(groups, func(a, b group) int { return b.n - a.n })
	ordered := make([]deck.Rank, len(groups))
	for i, g := range groups {
		ordered[i] = g.rank
	}

	h := HandRank{Cards: sorted}
	switch {
	case straight && flush && straightTop == deck.Ace:
		h.Category = RoyalFlush
		h.Primary = deck.Ace
	case straight && flush:
		h.Category = StraightFlush
		h.Primary = straightTop
	case groups[0].n == 4:
		h.Category = FourOfAKind
		h.fill(ordered)
	case groups[0].n == 3 && groups[1].n == 2:
		h.Category = FullHouse
		h.fill(ordered)
	case flush:
		h.Category = Flush
		h.fill(ordered)
	case straight:
		h.Category = Straight
		h.Primary = straightTop
	case groups[0].n == 3:
		h.Category = ThreeOfAKind
		h.fill(ordered)
	case groups[0].n == 2 && groups[1].n == 2:
		h.Category = TwoPair
		h.fill(ordered)
	case groups[0].n == 2:
		h.Category = OnePair
		h.fill(ordered)
	default:
		h.Category = HighCard
		h.fill(ordered)
	}
	return h
}

func (h *HandRank) fill(ranks []deck.Rank) {
	h.Primary = ranks[0]
	if len(ranks) > 1 {
		h.Secondary = ranks[1]
	}
	if len(ranks) > 2 {
		h.Kickers = slices.Clone(ranks[2:])
	}
}

// straightHigh expects cards sorted by rank descending. The wheel (A-2-3-4-5)
// counts as a five-high straight.
func straightHigh(sorted []deck.Card) (deck.Rank, bool) {
	run := true
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].Rank-sorted[i].Rank != 1 {
			run = false
			break
		}
	}
	if run {
		return sorted[0].Rank, true
	}
	if sorted[0].Rank == deck.Ace && sorted[1].Rank == deck.Five &&
		sorted[2].Rank == deck.Four && sorted[3].Rank == deck.Three && sorted[4].Rank == deck.Two {
		return deck.Five, true
	}
	return 0, false
}

// Best returns the strongest five-card hand among every 5-subset of cards.
// Hold'em calls this with two hole cards plus up to five community cards.
func Best(cards []deck.Card) (HandRank, error) {
	n := len(cards)
	if n < 5 {
		return HandRank{}, fmt.Errorf("evaluate %d cards: %w", n, ErrTooFewCards)
	}
	var best HandRank
	found := false
	var pick [5]deck.Card
	for a := 0; a < n-4; a++ {
		for b := a + 1; b < n-3; b++ {
			for c := b + 1; c < n-2; c++ {
				for d := c + 1; d < n-1; d++ {
					for e := d + 1; e < n; e++ {
						pick = [5]deck.Card{cards[a], cards[b], cards[c], cards[d], cards[e]}
						h := Evaluate5(pick)
						if !found || h.Beats(best) {
							best, found = h, true
						}
					}
				}
			}
		}
	}
	return best, nil
}
