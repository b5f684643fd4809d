package deck

import (
	"fmt"
	"strings"
)

// Suit represents a card suit
type Suit int

const (
	Hearts Suit = iota
	Diamonds
	Clubs
	Spades
)

// Suits lists every suit in deck order.
var Suits = [...]Suit{Hearts, Diamonds, Clubs, Spades}

var suitSymbols = [...]string{"♥", "♦", "♣", "♠"}

const suitLetters = "hdcs"

// String returns the symbol for a suit
func (s Suit) String() string {
	if s < Hearts || s > Spades {
		return "?"
	}
	return suitSymbols[s]
}

// Letter returns the single lowercase letter used in compact card text.
func (s Suit) Letter() byte {
	if s < Hearts || s > Spades {
		return '?'
	}
	return suitLetters[s]
}

// IsRed returns true if the suit is red (Hearts or Diamonds)
func (s Suit) IsRed() bool {
	return s == Hearts || s == Diamonds
}

// Rank represents a card rank
type Rank int

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

const rankLetters = "23456789TJQKA"

// String returns the rank character ("2".."9", "T", "J", "Q", "K", "A")
func (r Rank) String() string {
	if r < Two || r > Ace {
		return "?"
	}
	return rankLetters[r-Two : r-Two+1]
}

// Name returns the long English name used in hand descriptions.
func (r Rank) Name() string {
	switch r {
	case Ten:
		return "Ten"
	case Jack:
		return "Jack"
	case Queen:
		return "Queen"
	case King:
		return "King"
	case Ace:
		return "Ace"
	}
	if r >= Two && r <= Nine {
		return [...]string{"Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine"}[r-Two]
	}
	return "?"
}

// Card represents a playing card. Cards are immutable values.
type Card struct {
	Suit Suit
	Rank Rank
}

// NewCard creates a new card
func NewCard(suit Suit, rank Rank) Card {
	return Card{Suit: suit, Rank: rank}
}

// String returns the display form of a card (e.g., "A♠")
func (c Card) String() string {
	return c.Rank.String() + c.Suit.String()
}

// Text returns the compact ASCII form of a card (e.g., "As").
func (c Card) Text() string {
	return c.Rank.String() + string(c.Suit.Letter())
}

// Valid reports whether the card has a known suit and rank.
func (c Card) Valid() bool {
	return c.Suit >= Hearts && c.Suit <= Spades && c.Rank >= Two && c.Rank <= Ace
}

// MarshalText encodes the card in its compact form so snapshots stay readable.
func (c Card) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid card %d/%d", c.Suit, c.Rank)
	}
	return []byte(c.Text()), nil
}

// UnmarshalText decodes the compact form produced by MarshalText.
func (c *Card) UnmarshalText(b []byte) error {
	parsed, err := ParseCard(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCard parses a two character card such as "Ah" or "td".
func ParseCard(s string) (Card, error) {
	if len(s) != 2 {
		return Card{}, fmt.Errorf("card %q: want 2 characters", s)
	}
	ri := strings.IndexByte(rankLetters, upper(s[0]))
	if ri < 0 {
		return Card{}, fmt.Errorf("card %q: unknown rank %q", s, s[0])
	}
	si := strings.IndexByte(suitLetters, lower(s[1]))
	if si < 0 {
		return Card{}, fmt.Errorf("card %q: unknown suit %q", s, s[1])
	}
	return Card{Suit: Suit(si), Rank: Two + Rank(ri)}, nil
}

// ParseCards parses a run of concatenated cards, e.g. "AsKsQsJsTs".
func ParseCards(s string) ([]Card, error) {
	s = strings.ReplaceAll(s, " ", "")
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("cards %q: odd length", s)
	}
	cards := make([]Card, 0, len(s)/2)
	for i := 0; i < len(s); i += 2 {
		c, err := ParseCard(s[i : i+2])
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}

// MustParseCards is ParseCards for fixtures; it panics on malformed input.
func MustParseCards(s string) []Card {
	cards, err := ParseCards(s)
	if err != nil {
		panic(err)
	}
	return cards
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}

func lower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}
