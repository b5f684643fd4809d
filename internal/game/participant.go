package game

import (
	"fmt"
	"time"

	"github.com/lox/pokerrooms/internal/deck"
)

// Participant is a seated player. Chips never go negative and, within a hand,
// CurrentBet <= TotalBet.
type Participant struct {
	Username   string      `json:"username"`
	Chips      int         `json:"chips"`
	Hand       []deck.Card `json:"hand,omitempty"`
	CurrentBet int         `json:"currentBet"`
	TotalBet   int         `json:"totalBet"`
	Folded     bool        `json:"folded"`
	AllIn      bool        `json:"allIn"`
	// Acted is set once the participant has acted in the current betting round
	// and cleared when someone raises.
	Acted      bool      `json:"acted"`
	Dealer     bool      `json:"dealer"`
	SmallBlind bool      `json:"smallBlind"`
	BigBlind   bool      `json:"bigBlind"`
	JoinedAt   time.Time `json:"joinedAt"`
}

// NewParticipant returns a participant holding chips.
func NewParticipant(username string, chips int, now time.Time) *Participant {
	return &Participant{Username: username, Chips: chips, JoinedAt: now}
}

// PlaceBet moves up to amount chips from the stack into the current round and
// returns what was actually contributed. Reaching zero chips marks the
// participant all-in.
func (p *Participant) PlaceBet(amount int) (int, error) {
	if amount < 0 {
		return 0, fmt.Errorf("bet %d: %w", amount, ErrInvalidAmount)
	}
	amount = min(amount, p.Chips)
	p.Chips -= amount
	p.CurrentBet += amount
	p.TotalBet += amount
	if p.Chips == 0 {
		p.AllIn = true
	}
	return amount, nil
}

// Fold discards the hand for the rest of this hand.
func (p *Participant) Fold() {
	p.Folded = true
	p.Hand = nil
}

// Win credits chips won from the pot.
func (p *Participant) Win(amount int) {
	p.Chips += amount
}

// CanAct reports whether the participant may still make betting decisions.
func (p *Participant) CanAct() bool {
	return !p.Folded && !p.AllIn
}

// ResetForNewHand clears per-hand state, keeping the stack.
func (p *Participant) ResetForNewHand() {
	p.Hand = nil
	p.CurrentBet = 0
	p.TotalBet = 0
	p.Folded = false
	p.AllIn = false
	p.Acted = false
	p.Dealer = false
	p.SmallBlind = false
	p.BigBlind = false
}

// ResetForNewBettingRound clears the current round contribution.
func (p *Participant) ResetForNewBettingRound() {
	p.CurrentBet = 0
	p.Acted = false
}
