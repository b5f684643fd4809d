package evaluator

import (
	"fmt"

	"github.com/lox/pokerrooms/internal/deck"
)

// Category is the class of a five-card poker hand. Higher is stronger.
type Category int

const (
	HighCard Category = iota
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

var categoryNames = [...]string{
	"High Card",
	"One Pair",
	"Two Pair",
	"Three of a Kind",
	"Straight",
	"Flush",
	"Full House",
	"Four of a Kind",
	"Straight Flush",
	"Royal Flush",
}

// String returns the readable name of the category
func (c Category) String() string {
	if c < HighCard || c > RoyalFlush {
		return "Unknown"
	}
	return categoryNames[c]
}

// HandRank is the evaluated strength of a five-card hand.
//
// Primary and Secondary carry the two most significant ranks for the
// category (quad and kicker, trips and pair, top and bottom pair, straight
// top card, ...). Kickers holds the remaining ranks in descending order of
// significance and is consulted only after Primary and Secondary tie.
type HandRank struct {
	Category  Category    `json:"category"`
	Primary   deck.Rank   `json:"primary"`
	Secondary deck.Rank   `json:"secondary,omitempty"`
	Kickers   []deck.Rank `json:"kickers,omitempty"`
	Cards     []deck.Card `json:"cards,omitempty"`
}

// Compare returns 1 if h beats other, -1 if other beats h, and 0 on a tie.
func (h HandRank) Compare(other HandRank) int {
	if c := cmp(int(h.Category), int(other.Category)); c != 0 {
		return c
	}
	if c := cmp(int(h.Primary), int(other.Primary)); c != 0 {
		return c
	}
	if c := cmp(int(h.Secondary), int(other.Secondary)); c != 0 {
		return c
	}
	for i := 0; i < len(h.Kickers) && i < len(other.Kickers); i++ {
		if c := cmp(int(h.Kickers[i]), int(other.Kickers[i])); c != 0 {
			return c
		}
	}
	return 0
}

// Beats reports whether h is strictly stronger than other.
func (h HandRank) Beats(other HandRank) bool {
	return h.Compare(other) > 0
}

// String returns the category name, e.g. "Full House".
func (h HandRank) String() string {
	return h.Category.String()
}

// Describe returns a longer human description such as "Two Pair, Aces and Kings".
func (h HandRank) Describe() string {
	switch h.Category {
	case RoyalFlush:
		return h.Category.String()
	case StraightFlush, Straight, Flush, HighCard:
		return fmt.Sprintf("%s, %s high", h.Category, h.Primary.Name())
	case FourOfAKind, ThreeOfAKind:
		return fmt.Sprintf("%s, %s", h.Category, plural(h.Primary))
	case FullHouse:
		return fmt.Sprintf("%s, %s over %s", h.Category, plural(h.Primary), plural(h.Secondary))
	case TwoPair:
		return fmt.Sprintf("%s, %s and %s", h.Category, plural(h.Primary), plural(h.Secondary))
	case OnePair:
		return "Pair of " + plural(h.Primary)
	}
	return h.Category.String()
}

func cmp(a, b int) int {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	}
	return 0
}

func plural(r deck.Rank) string {
	if r == deck.Six {
		return "Sixes"
	}
	return r.Name() + "s"
}
