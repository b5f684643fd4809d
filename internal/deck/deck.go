package deck

import (
	"encoding/json"
	"errors"
	"fmt"
	rand "math/rand/v2"
)

// Size is the number of cards in a standard deck.
const Size = 52

// ErrInsufficientCards is returned when a deal asks for more cards than remain.
var ErrInsufficientCards = errors.New("insufficient cards in deck")

// Deck is an ordered sequence of undealt cards. Dealing removes from the top;
// a dealt card never returns until Reset.
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// New returns a full, unshuffled deck. A nil rng falls back to the global
// math/rand/v2 source when shuffling.
func New(rng *rand.Rand) *Deck {
	d := &Deck{cards: make([]Card, 0, Size), rng: rng}
	d.Reset()
	return d
}

// SetRand replaces the shuffle source, e.g. after the deck was decoded from a snapshot.
func (d *Deck) SetRand(rng *rand.Rand) {
	d.rng = rng
}

// Reset restores all 52 distinct cards in canonical order.
func (d *Deck) Reset() {
	d.cards = d.cards[:0]
	for _, suit := range Suits {
		for rank := Two; rank <= Ace; rank++ {
			d.cards = append(d.cards, NewCard(suit, rank))
		}
	}
}

// Shuffle permutes the remaining cards uniformly (Fisher-Yates).
func (d *Deck) Shuffle() {
	for i := len(d.cards) - 1; i > 0; i-- {
		var j int
		if d.rng != nil {
			j = d.rng.IntN(i + 1)
		} else {
			j = rand.IntN(i + 1)
		}
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// DealHoleCards removes n cards from the top of the deck.
func (d *Deck) DealHoleCards(n int) ([]Card, error) {
	return d.deal(n)
}

// DealCommunityCards removes n cards from the top of the deck for the board.
func (d *Deck) DealCommunityCards(n int) ([]Card, error) {
	return d.deal(n)
}

func (d *Deck) deal(n int) ([]Card, error) {
	if n < 0 {
		return nil, fmt.Errorf("deal %d cards: negative count", n)
	}
	if n > len(d.cards) {
		return nil, fmt.Errorf("deal %d cards with %d remaining: %w", n, len(d.cards), ErrInsufficientCards)
	}
	out := make([]Card, n)
	copy(out, d.cards[:n])
	d.cards = d.cards[n:]
	return out, nil
}

// Remaining returns the number of undealt cards.
func (d *Deck) Remaining() int {
	return len(d.cards)
}

// Cards returns a copy of the undealt cards, top first.
func (d *Deck) Cards() []Card {
	out := make([]Card, len(d.cards))
	copy(out, d.cards)
	return out
}

// MarshalJSON encodes the undealt cards so a hand can resume from a snapshot.
func (d *Deck) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.cards)
}

// UnmarshalJSON restores the undealt cards. The shuffle source is not encoded.
func (d *Deck) UnmarshalJSON(b []byte) error {
	var cards []Card
	if err := json.Unmarshal(b, &cards); err != nil {
		return err
	}
	seen := make(map[Card]struct{}, len(cards))
	for _, c := range cards {
		if _, dup := seen[c]; dup {
			return fmt.Errorf("deck snapshot: duplicate card %s", c.Text())
		}
		seen[c] = struct{}{}
	}
	d.cards = cards
	return nil
}

// NewStacked returns a deck that deals cards in the given order. It is meant
// for fixtures and replays; duplicates are not checked.
func NewStacked(cards []Card) *Deck {
	return &Deck{cards: append([]Card(nil), cards...)}
}
